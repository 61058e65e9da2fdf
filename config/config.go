// Package config loads the application configuration from a YAML file with
// environment variable overrides for credentials.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config captures the full configuration of an application embedding
// PolyAuth.
type Config struct {
	Server        ServerConfig              `yaml:"server"`
	Authenticator AuthenticatorConfig       `yaml:"authenticator"`
	Tokens        TokenConfig               `yaml:"tokens"`
	SMTP          SMTPConfig                `yaml:"smtp"`
	Providers     map[string]ProviderConfig `yaml:"providers"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	// BaseURL is the externally visible URL of the application. Callback
	// and email links are built from it.
	BaseURL string `yaml:"base_url"`
	// CookieName carries the authenticator id. Default "polyauth_session".
	CookieName string `yaml:"cookie_name"`
}

// AuthenticatorConfig controls session lifetimes.
type AuthenticatorConfig struct {
	AbsoluteTimeout time.Duration `yaml:"absolute_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
}

// TokenConfig controls verification token lifetimes.
type TokenConfig struct {
	ActivationTTL time.Duration `yaml:"activation_ttl"`
	ResetTTL      time.Duration `yaml:"reset_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// SMTPConfig configures outgoing mail. An empty host selects the console
// mailer.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	TLSMode  string `yaml:"tls_mode"`
}

// ProviderConfig holds one provider's credentials. OAuth2 services use the
// client pair, OAuth1 and hybrid services the consumer pair. Values may
// reference environment variables with ${VAR} placeholders.
type ProviderConfig struct {
	ClientID       string `yaml:"client_id"`
	ClientSecret   string `yaml:"client_secret"`
	ConsumerKey    string `yaml:"consumer_key"`
	ConsumerSecret string `yaml:"consumer_secret"`
	Scope          string `yaml:"scope"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
			BaseURL:    "http://localhost:8080",
			CookieName: "polyauth_session",
		},
	}
}

// Load reads path, expands ${VAR} placeholders from the environment and
// returns the parsed configuration. A .env file next to the process is
// loaded first when present, the way development setups expect.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	expanded := os.Expand(string(b), func(key string) string {
		return os.Getenv(key)
	})

	decoder := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the invariants the rest of the application relies on.
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("config: server.base_url is required")
	}
	if !strings.HasPrefix(c.Server.BaseURL, "http://") && !strings.HasPrefix(c.Server.BaseURL, "https://") {
		return fmt.Errorf("config: server.base_url must be an absolute http(s) URL")
	}
	for id, p := range c.Providers {
		if id == "" {
			return fmt.Errorf("config: provider with empty id")
		}
		if p.ClientID == "" && p.ConsumerKey == "" && id != "userpass" && !isOpenIDOnly(id) {
			return fmt.Errorf("config: provider %s has no credentials", id)
		}
	}
	return nil
}

// isOpenIDOnly reports whether id names a provider that needs no
// credentials at all.
func isOpenIDOnly(id string) bool {
	switch id {
	case "yahoo", "myopenid", "wordpress":
		return true
	}
	return false
}
