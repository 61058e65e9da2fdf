package oauth2

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"go.uber.org/zap"
	"golang.org/x/oauth2/endpoints"

	"github.com/polyauth/polyauth"
)

const instagramSelfAPI = "https://api.instagram.com/v1/users/self/"

// NewInstagram creates an Instagram provider. Empty credentials fall back
// to the OAUTH2_INSTAGRAM_CLIENT_ID and OAUTH2_INSTAGRAM_CLIENT_SECRET
// environment variables.
func NewInstagram(clientID, clientSecret string, logger *zap.Logger) *Provider {
	if clientID == "" {
		clientID = os.Getenv("OAUTH2_INSTAGRAM_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_INSTAGRAM_CLIENT_SECRET")
	}
	return New(Config{
		ProviderID:   "instagram",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     endpoints.Instagram,
		Logger:       logger,
	}, fillInstagramProfile)
}

func fillInstagramProfile(ctx context.Context, client *http.Client, info *polyauth.OAuth2Info) (*polyauth.Profile, error) {
	var me struct {
		Meta struct {
			Code        int    `json:"code"`
			ErrorType   string `json:"errorType"`
			ErrorDetail string `json:"errorDetail"`
		} `json:"meta"`
		Data *struct {
			ID             string `json:"id"`
			FullName       string `json:"full_name"`
			ProfilePicture string `json:"profile_picture"`
		} `json:"data"`
	}
	api := instagramSelfAPI + "?access_token=" + url.QueryEscape(info.AccessToken)
	if err := fetchJSON(ctx, client, api, &me); err != nil {
		return nil, err
	}
	if me.Meta.Code != http.StatusOK {
		return nil, fmt.Errorf("instagram error %s: %s", me.Meta.ErrorType, me.Meta.ErrorDetail)
	}
	if me.Data == nil {
		return nil, fmt.Errorf("instagram response carries no user")
	}
	return &polyauth.Profile{
		Key:         polyauth.UserKey{UserID: me.Data.ID},
		DisplayName: me.Data.FullName,
		AvatarURL:   me.Data.ProfilePicture,
	}, nil
}
