package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"go.uber.org/zap"
	xoauth2 "golang.org/x/oauth2"

	"github.com/polyauth/polyauth"
)

const meetupSelfAPI = "https://api.meetup.com/2/member/self"

var meetupEndpoint = xoauth2.Endpoint{
	AuthURL:  "https://secure.meetup.com/oauth2/authorize",
	TokenURL: "https://secure.meetup.com/oauth2/access",
}

// NewMeetup creates a Meetup provider. Meetup requires the token exchange
// to be a POST and authenticates API calls with an access_token query
// parameter. Empty credentials fall back to the OAUTH2_MEETUP_CLIENT_ID
// and OAUTH2_MEETUP_CLIENT_SECRET environment variables.
func NewMeetup(clientID, clientSecret string, logger *zap.Logger) *Provider {
	if clientID == "" {
		clientID = os.Getenv("OAUTH2_MEETUP_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_MEETUP_CLIENT_SECRET")
	}
	return New(Config{
		ProviderID:        "meetup",
		ClientID:          clientID,
		ClientSecret:      clientSecret,
		Endpoint:          meetupEndpoint,
		AccessTokenMethod: http.MethodPost,
		Logger:            logger,
	}, fillMeetupProfile)
}

func fillMeetupProfile(ctx context.Context, client *http.Client, info *polyauth.OAuth2Info) (*polyauth.Profile, error) {
	var me struct {
		Problem string      `json:"problem"`
		Details string      `json:"details"`
		ID      json.Number `json:"id"`
		Name    string      `json:"name"`
		Email   string      `json:"email"`
		Photo   struct {
			PhotoLink string `json:"photo_link"`
		} `json:"photo"`
	}
	api := meetupSelfAPI + "?access_token=" + url.QueryEscape(info.AccessToken)
	if err := fetchJSON(ctx, client, api, &me); err != nil {
		return nil, err
	}
	// Meetup reports API errors in the body, not the status code.
	if me.Problem != "" {
		return nil, fmt.Errorf("meetup error %s: %s", me.Problem, me.Details)
	}
	return &polyauth.Profile{
		Key:         polyauth.UserKey{UserID: me.ID.String()},
		DisplayName: me.Name,
		Email:       me.Email,
		AvatarURL:   me.Photo.PhotoLink,
	}, nil
}
