// Command polyauthd runs a demonstration server exposing every built-in
// provider with in-memory storage. It is the integration surface the
// library's pieces are wired through, not a production deployment.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/polyauth/polyauth"
	"github.com/polyauth/polyauth/config"
	"github.com/polyauth/polyauth/hasher"
	"github.com/polyauth/polyauth/mailer"
	oauth1provider "github.com/polyauth/polyauth/oauth1"
	oauth2provider "github.com/polyauth/polyauth/oauth2"
	openidprovider "github.com/polyauth/polyauth/openid"
	"github.com/polyauth/polyauth/stores/memory"
	"github.com/polyauth/polyauth/userpass"
	"github.com/polyauth/polyauth/web"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("configuration error", zap.Error(err))
	}

	users := memory.NewUserStore()
	auths := memory.NewAuthenticatorStore()
	hashers := polyauth.MustHasherSet(hasher.NewBcrypt(0), hasher.NewArgon2(hasher.Argon2Params{}))

	var mail polyauth.Mailer
	if cfg.SMTP.Host != "" {
		mail = mailer.NewSMTP(mailer.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			TLSMode:  cfg.SMTP.TLSMode,
			BaseURL:  cfg.Server.BaseURL,
		}, logger)
	} else {
		mail = mailer.NewConsole(cfg.Server.BaseURL, logger)
	}

	tokens := polyauth.NewTokenService(users, polyauth.TokenConfig{
		ActivationTTL: cfg.Tokens.ActivationTTL,
		ResetTTL:      cfg.Tokens.ResetTTL,
		SweepInterval: cfg.Tokens.SweepInterval,
	}, logger)
	authenticators := polyauth.NewAuthenticatorService(auths, polyauth.AuthenticatorConfig{
		AbsoluteTimeout: cfg.Authenticator.AbsoluteTimeout,
		IdleTimeout:     cfg.Authenticator.IdleTimeout,
		SweepInterval:   cfg.Authenticator.SweepInterval,
	}, logger)
	signup := polyauth.NewSignupService(users, tokens, hashers, mail, userpass.DefaultProviderID, logger)
	resets := polyauth.NewPasswordResetService(users, tokens, hashers, mail, userpass.DefaultProviderID, logger)

	registry := polyauth.NewRegistry(logger)
	registry.MustRegister(userpass.New(users, hashers, logger))
	registerConfigured(registry, cfg, logger)

	handler := web.NewHandler(web.Config{
		Registry:       registry,
		Authenticators: authenticators,
		Users:          users,
		Signup:         signup,
		Resets:         resets,
		Sessions:       web.NewSessionManager(),
		BaseURL:        cfg.Server.BaseURL,
		CookieName:     cfg.Server.CookieName,
		Logger:         logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go authenticators.RunSweeper(ctx)
	go tokens.RunSweeper(ctx)

	srv := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: handler.Routes(mux.NewRouter()),
	}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	logger.Info("listening", zap.String("addr", cfg.Server.ListenAddr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}

// registerConfigured registers every provider the configuration carries
// credentials for.
func registerConfigured(registry *polyauth.Registry, cfg config.Config, logger *zap.Logger) {
	for id, pc := range cfg.Providers {
		switch id {
		case userpass.DefaultProviderID:
			// Registered unconditionally by the caller.
		case "twitter":
			registry.MustRegister(oauth1provider.NewTwitter(pc.ConsumerKey, pc.ConsumerSecret, logger))
		case "linkedin":
			registry.MustRegister(oauth1provider.NewLinkedIn(pc.ConsumerKey, pc.ConsumerSecret, logger))
		case "facebook":
			registry.MustRegister(oauth2provider.NewFacebook(pc.ClientID, pc.ClientSecret, logger))
		case "github":
			registry.MustRegister(oauth2provider.NewGitHub(pc.ClientID, pc.ClientSecret, logger))
		case "google":
			registry.MustRegister(oauth2provider.NewGoogle(pc.ClientID, pc.ClientSecret, logger))
		case "google-hybrid":
			registry.MustRegister(openidprovider.NewGoogleHybrid(pc.ConsumerKey, pc.ConsumerSecret, pc.Scope, logger))
		case "foursquare":
			registry.MustRegister(oauth2provider.NewFoursquare(pc.ClientID, pc.ClientSecret, logger))
		case "instagram":
			registry.MustRegister(oauth2provider.NewInstagram(pc.ClientID, pc.ClientSecret, logger))
		case "meetup":
			registry.MustRegister(oauth2provider.NewMeetup(pc.ClientID, pc.ClientSecret, logger))
		case "yahoo":
			registry.MustRegister(openidprovider.NewYahoo(logger))
		case "myopenid":
			registry.MustRegister(openidprovider.NewMyOpenID(logger))
		case "wordpress":
			registry.MustRegister(openidprovider.NewWordpress(logger))
		default:
			logger.Warn("unknown provider in configuration", zap.String("provider", id))
		}
	}
}
