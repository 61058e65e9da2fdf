package oauth1

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/polyauth/polyauth"
)

const twitterVerifyCredentialsAPI = "https://api.twitter.com/1.1/account/verify_credentials.json"

// NewTwitter creates a Twitter provider. Empty credentials fall back to
// the OAUTH1_TWITTER_CONSUMER_KEY and OAUTH1_TWITTER_CONSUMER_SECRET
// environment variables. Twitter's API never exposes the user's email.
func NewTwitter(consumerKey, consumerSecret string, logger *zap.Logger) *Provider {
	if consumerKey == "" {
		consumerKey = os.Getenv("OAUTH1_TWITTER_CONSUMER_KEY")
	}
	if consumerSecret == "" {
		consumerSecret = os.Getenv("OAUTH1_TWITTER_CONSUMER_SECRET")
	}
	return New(Config{
		ProviderID:      "twitter",
		ConsumerKey:     consumerKey,
		ConsumerSecret:  consumerSecret,
		RequestTokenURL: "https://api.twitter.com/oauth/request_token",
		AuthorizeURL:    "https://api.twitter.com/oauth/authenticate",
		AccessTokenURL:  "https://api.twitter.com/oauth/access_token",
		Logger:          logger,
	}, fillTwitterProfile)
}

func fillTwitterProfile(ctx context.Context, client *http.Client) (*polyauth.Profile, error) {
	var me struct {
		Error           string      `json:"error"`
		ID              json.Number `json:"id"`
		Name            string      `json:"name"`
		ProfileImageURL string      `json:"profile_image_url"`
	}
	if err := fetchJSON(ctx, client, twitterVerifyCredentialsAPI, &me); err != nil {
		return nil, err
	}
	if me.Error != "" {
		return nil, fmt.Errorf("twitter error: %s", me.Error)
	}
	return &polyauth.Profile{
		Key:         polyauth.UserKey{UserID: me.ID.String()},
		DisplayName: me.Name,
		AvatarURL:   me.ProfileImageURL,
	}, nil
}

func fetchJSON(ctx context.Context, client *http.Client, rawurl string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("profile endpoint returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out)
}
