package oauth2

import (
	"context"
	"net/http"
	"os"

	"go.uber.org/zap"
	"golang.org/x/oauth2/endpoints"

	"github.com/polyauth/polyauth"
)

const googleUserInfoAPI = "https://www.googleapis.com/oauth2/v1/userinfo"

// NewGoogle creates a Google OAuth2 provider. Google requires the token
// exchange to be a POST. Empty credentials fall back to the
// OAUTH2_GOOGLE_CLIENT_ID and OAUTH2_GOOGLE_CLIENT_SECRET environment
// variables.
func NewGoogle(clientID, clientSecret string, logger *zap.Logger) *Provider {
	if clientID == "" {
		clientID = os.Getenv("OAUTH2_GOOGLE_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_GOOGLE_CLIENT_SECRET")
	}
	return New(Config{
		ProviderID:   "google",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     endpoints.Google,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		AuthorizationParams: map[string]string{"access_type": "online"},
		AccessTokenMethod:   http.MethodPost,
		Logger:              logger,
	}, fillGoogleProfile)
}

func fillGoogleProfile(ctx context.Context, client *http.Client, _ *polyauth.OAuth2Info) (*polyauth.Profile, error) {
	var me struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
		Email   string `json:"email"`
	}
	if err := fetchJSON(ctx, client, googleUserInfoAPI, &me); err != nil {
		return nil, err
	}
	return &polyauth.Profile{
		Key:         polyauth.UserKey{UserID: me.ID},
		DisplayName: me.Name,
		Email:       me.Email,
		AvatarURL:   me.Picture,
	}, nil
}
