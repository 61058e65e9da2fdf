package oauth1

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/polyauth/polyauth"
)

const linkedinMeAPI = "https://api.linkedin.com/v1/people/~:(id,first-name,last-name,picture-url)?format=json"

// NewLinkedIn creates a LinkedIn provider. Empty credentials fall back to
// the OAUTH1_LINKEDIN_CONSUMER_KEY and OAUTH1_LINKEDIN_CONSUMER_SECRET
// environment variables. LinkedIn's API never exposes the user's email.
func NewLinkedIn(consumerKey, consumerSecret string, logger *zap.Logger) *Provider {
	if consumerKey == "" {
		consumerKey = os.Getenv("OAUTH1_LINKEDIN_CONSUMER_KEY")
	}
	if consumerSecret == "" {
		consumerSecret = os.Getenv("OAUTH1_LINKEDIN_CONSUMER_SECRET")
	}
	return New(Config{
		ProviderID:      "linkedin",
		ConsumerKey:     consumerKey,
		ConsumerSecret:  consumerSecret,
		RequestTokenURL: "https://api.linkedin.com/uas/oauth/requestToken",
		AuthorizeURL:    "https://api.linkedin.com/uas/oauth/authenticate",
		AccessTokenURL:  "https://api.linkedin.com/uas/oauth/accessToken",
		Logger:          logger,
	}, fillLinkedInProfile)
}

func fillLinkedInProfile(ctx context.Context, client *http.Client) (*polyauth.Profile, error) {
	var me struct {
		ErrorCode  *int   `json:"errorCode"`
		Message    string `json:"message"`
		ID         string `json:"id"`
		FirstName  string `json:"firstName"`
		LastName   string `json:"lastName"`
		PictureURL string `json:"pictureUrl"`
	}
	if err := fetchJSON(ctx, client, linkedinMeAPI, &me); err != nil {
		return nil, err
	}
	if me.ErrorCode != nil {
		return nil, fmt.Errorf("linkedin error %d: %s", *me.ErrorCode, me.Message)
	}
	return &polyauth.Profile{
		Key:         polyauth.UserKey{UserID: me.ID},
		DisplayName: me.FirstName + " " + me.LastName,
		AvatarURL:   me.PictureURL,
	}, nil
}
