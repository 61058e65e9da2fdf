package openid

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

const (
	googleIdentifier    = "https://www.google.com/accounts/o8/id"
	googleOpenSocialAPI = "https://www-opensocial.googleusercontent.com/api/people/@me/@self"
)

// NewGoogleHybrid creates a Google OpenID+OAuth hybrid provider. The
// profile comes from the attribute exchange response; the avatar needs an
// extra OpenSocial API call signed with the piggybacked token. Empty
// credentials fall back to the OPENID_GOOGLE_CONSUMER_KEY and
// OPENID_GOOGLE_CONSUMER_SECRET environment variables.
func NewGoogleHybrid(consumerKey, consumerSecret, scope string, logger *zap.Logger) *HybridProvider {
	if consumerKey == "" {
		consumerKey = os.Getenv("OPENID_GOOGLE_CONSUMER_KEY")
	}
	if consumerSecret == "" {
		consumerSecret = os.Getenv("OPENID_GOOGLE_CONSUMER_SECRET")
	}
	return NewHybrid(HybridConfig{
		OpenID: Config{
			ProviderID:         "google",
			IdentifierTemplate: googleIdentifier,
			Attributes: []Attribute{
				{Alias: "email", TypeURI: "http://axschema.org/contact/email"},
				{Alias: "firstname", TypeURI: "http://axschema.org/namePerson/first"},
				{Alias: "lastname", TypeURI: "http://axschema.org/namePerson/last"},
			},
			Fill:   fillGoogleProfile,
			Logger: logger,
		},
		ConsumerKey:     consumerKey,
		ConsumerSecret:  consumerSecret,
		RequestTokenURL: "https://www.google.com/accounts/OAuthGetRequestToken",
		AuthorizeURL:    "https://www.google.com/accounts/OAuthAuthorizeToken",
		AccessTokenURL:  "https://www.google.com/accounts/OAuthGetAccessToken",
		Scope:           scope,
		FillAPI:         fetchGoogleAvatar,
	})
}

func fillGoogleProfile(_ string, ax map[string]string) *polyauth.Profile {
	displayName := ax["firstname"]
	if ax["lastname"] != "" {
		if displayName != "" {
			displayName += " "
		}
		displayName += ax["lastname"]
	}
	return &polyauth.Profile{
		DisplayName: displayName,
		Email:       ax["email"],
	}
}

func fetchGoogleAvatar(ctx context.Context, client *http.Client, profile *polyauth.Profile) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleOpenSocialAPI, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("opensocial endpoint returned status %d", resp.StatusCode)
	}
	var payload struct {
		Entry struct {
			ThumbnailURL string `json:"thumbnailUrl"`
		} `json:"entry"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return err
	}
	profile.AvatarURL = payload.Entry.ThumbnailURL
	return nil
}
