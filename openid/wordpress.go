package openid

import (
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/polyauth/polyauth"
)

const (
	wordpressIdentifier = "http://{username}.wordpress.com"
	gravatarAPI         = "https://www.gravatar.com/avatar/"
)

// NewWordpress creates a Wordpress provider. The claimed identifier embeds
// the visitor's blog name; Wordpress returns no avatar over attribute
// exchange, so the profile picture comes from Gravatar when the account's
// email has one.
func NewWordpress(logger *zap.Logger) *Provider {
	return newWordpress(http.DefaultClient, gravatarAPI, logger)
}

func newWordpress(client *http.Client, gravatarBase string, logger *zap.Logger) *Provider {
	return New(Config{
		ProviderID:         "wordpress",
		IdentifierTemplate: wordpressIdentifier,
		Attributes: []Attribute{
			{Alias: "fullname", TypeURI: "http://axschema.org/namePerson"},
			{Alias: "email", TypeURI: "http://axschema.org/contact/email"},
		},
		Fill: func(_ string, ax map[string]string) *polyauth.Profile {
			return &polyauth.Profile{
				DisplayName: ax["fullname"],
				Email:       ax["email"],
				AvatarURL:   gravatarURL(client, gravatarBase, ax["email"]),
			}
		},
		Logger: logger,
	})
}

// gravatarURL returns the Gravatar image URL for email, or empty when the
// email has no gravatar. The d=404 parameter makes Gravatar answer 404
// instead of serving a generated placeholder, so existence is a status
// check.
func gravatarURL(client *http.Client, base, email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}
	sum := md5.Sum([]byte(email))
	avatar := base + hex.EncodeToString(sum[:])
	resp, err := client.Get(avatar + "?d=404")
	if err != nil {
		return ""
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}
	return avatar
}
