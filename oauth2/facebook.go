package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"
	"golang.org/x/oauth2/endpoints"

	"github.com/polyauth/polyauth"
)

const facebookMeAPI = "https://graph.facebook.com/me?fields=name,picture,email"

// NewFacebook creates a Facebook provider. Empty credentials fall back to
// the OAUTH2_FACEBOOK_CLIENT_ID and OAUTH2_FACEBOOK_CLIENT_SECRET
// environment variables.
func NewFacebook(clientID, clientSecret string, logger *zap.Logger) *Provider {
	if clientID == "" {
		clientID = os.Getenv("OAUTH2_FACEBOOK_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_FACEBOOK_CLIENT_SECRET")
	}
	return New(Config{
		ProviderID:   "facebook",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     endpoints.Facebook,
		Scopes:       []string{"email"},
		Logger:       logger,
	}, fillFacebookProfile)
}

func fillFacebookProfile(ctx context.Context, client *http.Client, _ *polyauth.OAuth2Info) (*polyauth.Profile, error) {
	var me struct {
		Error *struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
		ID   string `json:"id"`
		Name string `json:"name"`
		// Picture is either a bare URL string or an object wrapping one,
		// depending on the Graph API version.
		Picture json.RawMessage `json:"picture"`
		Email   string          `json:"email"`
	}
	if err := fetchJSON(ctx, client, facebookMeAPI, &me); err != nil {
		return nil, err
	}
	if me.Error != nil {
		return nil, fmt.Errorf("facebook error %s: %s", me.Error.Type, me.Error.Message)
	}
	return &polyauth.Profile{
		Key:         polyauth.UserKey{UserID: me.ID},
		DisplayName: me.Name,
		Email:       me.Email,
		AvatarURL:   facebookPictureURL(me.Picture),
	}, nil
}

func facebookPictureURL(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}
	var wrapped struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		return wrapped.Data.URL
	}
	return ""
}
