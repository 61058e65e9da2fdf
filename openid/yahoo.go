package openid

import (
	"go.uber.org/zap"

	"github.com/polyauth/polyauth"
)

const yahooIdentifier = "https://me.yahoo.com"

// NewYahoo creates a Yahoo OpenID provider. Yahoo's directed identity
// endpoint needs no username; the profile comes entirely from the
// attribute exchange response.
func NewYahoo(logger *zap.Logger) *Provider {
	return New(Config{
		ProviderID:         "yahoo",
		IdentifierTemplate: yahooIdentifier,
		Attributes: []Attribute{
			{Alias: "email", TypeURI: "http://axschema.org/contact/email"},
			{Alias: "fullname", TypeURI: "http://axschema.org/namePerson"},
			{Alias: "image", TypeURI: "http://axschema.org/media/image/default"},
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
