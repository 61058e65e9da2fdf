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

const foursquareSelfAPI = "https://api.foursquare.com/v2/users/self"

// NewFoursquare creates a Foursquare provider. Foursquare requires the
// token exchange to be a POST and authenticates API calls with an
// oauth_token query parameter. Empty credentials fall back to the
// OAUTH2_FOURSQUARE_CLIENT_ID and OAUTH2_FOURSQUARE_CLIENT_SECRET
// environment variables.
func NewFoursquare(clientID, clientSecret string, logger *zap.Logger) *Provider {
	if clientID == "" {
		clientID = os.Getenv("OAUTH2_FOURSQUARE_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_FOURSQUARE_CLIENT_SECRET")
	}
	return New(Config{
		ProviderID:        "foursquare",
		ClientID:          clientID,
		ClientSecret:      clientSecret,
		Endpoint:          endpoints.Foursquare,
		AccessTokenMethod: http.MethodPost,
		Logger:            logger,
	}, fillFoursquareProfile)
}

func fillFoursquareProfile(ctx context.Context, client *http.Client, info *polyauth.OAuth2Info) (*polyauth.Profile, error) {
	var me struct {
		Meta struct {
			Code        int    `json:"code"`
			ErrorType   string `json:"errorType"`
			ErrorDetail string `json:"errorDetail"`
		} `json:"meta"`
		Response struct {
			User *struct {
				ID        string `json:"id"`
				FirstName string `json:"firstName"`
				LastName  string `json:"lastName"`
				Photo     string `json:"photo"`
				Contact   struct {
					Email string `json:"email"`
				} `json:"contact"`
			} `json:"user"`
		} `json:"response"`
	}
	api := foursquareSelfAPI + "?oauth_token=" + url.QueryEscape(info.AccessToken)
	if err := fetchJSON(ctx, client, api, &me); err != nil {
		return nil, err
	}
	if me.Meta.Code != http.StatusOK {
		return nil, fmt.Errorf("foursquare error %s: %s", me.Meta.ErrorType, me.Meta.ErrorDetail)
	}
	if me.Response.User == nil {
		return nil, fmt.Errorf("foursquare response carries no user")
	}
	u := me.Response.User
	displayName := u.FirstName
	if u.LastName != "" {
		displayName += " " + u.LastName
	}
	return &polyauth.Profile{
		Key:         polyauth.UserKey{UserID: u.ID},
		DisplayName: displayName,
		Email:       u.Contact.Email,
		AvatarURL:   u.Photo,
	}, nil
}
