package oauth2

import (
	"context"
	"net/http"
	"os"

	"go.uber.org/zap"
	"golang.org/x/oauth2/endpoints"

	"github.com/polyauth/polyauth"
)

const githubUserAPI = "https://api.github.com/user"

// NewGitHub creates a GitHub provider. Empty credentials fall back to the
// OAUTH2_GITHUB_CLIENT_ID and OAUTH2_GITHUB_CLIENT_SECRET environment
// variables.
func NewGitHub(clientID, clientSecret string, logger *zap.Logger) *Provider {
	if clientID == "" {
		clientID = os.Getenv("OAUTH2_GITHUB_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_GITHUB_CLIENT_SECRET")
	}
	return New(Config{
		ProviderID:   "github",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     endpoints.GitHub,
		Logger:       logger,
	}, fillGitHubProfile)
}

func fillGitHubProfile(ctx context.Context, client *http.Client, _ *polyauth.OAuth2Info) (*polyauth.Profile, error) {
	var me struct {
		Login     string `json:"login"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
		Email     string `json:"email"`
	}
	if err := fetchJSON(ctx, client, githubUserAPI, &me); err != nil {
		return nil, err
	}
	displayName := me.Name
	if displayName == "" {
		displayName = me.Login
	}
	return &polyauth.Profile{
		Key:         polyauth.UserKey{UserID: me.Login},
		DisplayName: displayName,
		Email:       me.Email,
		AvatarURL:   me.AvatarURL,
	}, nil
}
