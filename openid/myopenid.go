package openid

import (
	"go.uber.org/zap"

	"github.com/polyauth/polyauth"
)

const myOpenIDIdentifier = "http://{username}.myopenid.com/"

// NewMyOpenID creates a MyOpenID provider. The claimed identifier embeds
// the visitor's username, so requests without an openid.user parameter
// fail before any redirect.
func NewMyOpenID(logger *zap.Logger) *Provider {
	return New(Config{
		ProviderID:         "myopenid",
		IdentifierTemplate: myOpenIDIdentifier,
		Attributes: []Attribute{
			{Alias: "fullname", TypeURI: "http://schema.openid.net/namePerson"},
			{Alias: "email", TypeURI: "http://schema.openid.net/contact/email"},
			{Alias: "image", TypeURI: "http://schema.openid.net/media/image/default"},
		},
		Fill: func(_ string, ax map[string]string) *polyauth.Profile {
			return &polyauth.Profile{
				DisplayName: ax["fullname"],
				Email:       ax["email"],
				AvatarURL:   ax["image"],
			}
		},
		Logger: logger,
	})
}
