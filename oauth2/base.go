// Package oauth2 implements the OAuth2 authorization code flow as an
// authentication provider, plus ready-made configurations for the services
// PolyAuth supports out of the box.
package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	xoauth2 "golang.org/x/oauth2"

	"github.com/polyauth/polyauth"
)

// Config describes one OAuth2 service.
type Config struct {
	// ProviderID is the registry id, e.g. "github".
	ProviderID string

	ClientID     string
	ClientSecret string
	Endpoint     xoauth2.Endpoint
	Scopes       []string

	// AuthorizationParams are extra query parameters appended to the
	// authorization URL (Google's access_type, for example).
	AuthorizationParams map[string]string

	// AccessTokenMethod is the HTTP method of the token exchange request.
	// Most services accept GET with the parameters in the query string;
	// Google and Foursquare require POST. Default is GET.
	AccessTokenMethod string

	// HTTPClient performs the token exchange. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	Logger *zap.Logger
}

// FillProfileFunc fetches the authenticated user's profile from the
// service's API. client is already authorized with the access token. The
// returned profile needs only UserID, DisplayName, Email and AvatarURL;
// the provider fills in the rest.
type FillProfileFunc func(ctx context.Context, client *http.Client, info *polyauth.OAuth2Info) (*polyauth.Profile, error)

// Provider drives the OAuth2 authorization code flow.
//
// The first Authenticate call for a visitor carries neither a code nor an
// error parameter and yields the redirect to the service's authorization
// page. The callback call carries one of the two and finishes the flow.
type Provider struct {
	cfg    Config
	fill   FillProfileFunc
	logger *zap.Logger
}

// New creates an OAuth2 provider. fill may be nil when the service returns
// an OpenID Connect id_token carrying the profile claims.
func New(cfg Config, fill FillProfileFunc) *Provider {
	if cfg.AccessTokenMethod == "" {
		cfg.AccessTokenMethod = http.MethodGet
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Provider{cfg: cfg, fill: fill, logger: cfg.Logger.With(zap.String("provider", cfg.ProviderID))}
}

func (p *Provider) ID() string { return p.cfg.ProviderID }

func (p *Provider) Method() polyauth.AuthMethod { return polyauth.MethodOAuth2 }

func (p *Provider) Authenticate(ctx context.Context, ex polyauth.Exchange) polyauth.Outcome {
	if e := ex.Param("error"); e != "" {
		if e == "access_denied" {
			return polyauth.FailWith(polyauth.ErrCodeAccessDenied, "the user did not grant access")
		}
		p.logger.Warn("authorization endpoint returned an error", zap.String("error", e))
		return polyauth.FailWith(polyauth.ErrCodeUpstreamError, "the service reported an error")
	}

	code := ex.Param("code")
	if code == "" {
		return polyauth.RedirectTo(p.authorizationURL(ex.CallbackURL()))
	}

	info, idToken, err := p.exchangeCode(ctx, code, ex.CallbackURL())
	if err != nil {
		p.logger.Error("token exchange failed", zap.Error(err))
		return polyauth.FailWith(polyauth.ErrCodeUpstreamError, "could not exchange the authorization code")
	}

	profile, err := p.buildProfile(ctx, info, idToken)
	if err != nil {
		p.logger.Error("profile retrieval failed", zap.Error(err))
		return polyauth.FailWith(polyauth.ErrCodeUpstreamError, "could not retrieve the user profile")
	}
	profile.Key.ProviderID = p.cfg.ProviderID
	profile.AuthMethod = polyauth.MethodOAuth2
	profile.Activated = true
	profile.LastAccess = time.Now()
	profile.OAuth2 = info
	return polyauth.Authenticated(profile)
}

func (p *Provider) oauthConfig(callbackURL string) *xoauth2.Config {
	return &xoauth2.Config{
		ClientID:     p.cfg.ClientID,
		ClientSecret: p.cfg.ClientSecret,
		Endpoint:     p.cfg.Endpoint,
		RedirectURL:  callbackURL,
		Scopes:       p.cfg.Scopes,
	}
}

func (p *Provider) authorizationURL(callbackURL string) string {
	var opts []xoauth2.AuthCodeOption
	for k, v := range p.cfg.AuthorizationParams {
		opts = append(opts, xoauth2.SetAuthURLParam(k, v))
	}
	return p.oauthConfig(callbackURL).AuthCodeURL("", opts...)
}

// exchangeCode swaps the authorization code for an access token. The
// exchange is done by hand rather than through xoauth2.Config.Exchange
// because some services need GET and some return the token in
// query-string form instead of JSON.
func (p *Provider) exchangeCode(ctx context.Context, code, callbackURL string) (*polyauth.OAuth2Info, string, error) {
	params := url.Values{}
	params.Set("client_id", p.cfg.ClientID)
	params.Set("client_secret", p.cfg.ClientSecret)
	params.Set("grant_type", "authorization_code")
	params.Set("redirect_uri", callbackURL)
	params.Set("code", code)

	var req *http.Request
	var err error
	if p.cfg.AccessTokenMethod == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost,
			p.cfg.Endpoint.TokenURL, strings.NewReader(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet,
			p.cfg.Endpoint.TokenURL+"?"+params.Encode(), nil)
	}
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}
	return parseAccessTokenResponse(body)
}

// parseAccessTokenResponse decodes a token endpoint response. Services
// disagree on the format, so three shapes are accepted in order: a
// query-string body with an access_token field, a JSON body with an
// access_token field, and a JSON body with an oauth_token field. Anything
// else is an error.
func parseAccessTokenResponse(body []byte) (*polyauth.OAuth2Info, string, error) {
	if vals, err := url.ParseQuery(string(body)); err == nil && vals.Get("access_token") != "" {
		info := &polyauth.OAuth2Info{
			AccessToken:  vals.Get("access_token"),
			TokenType:    vals.Get("token_type"),
			RefreshToken: vals.Get("refresh_token"),
		}
		expires := vals.Get("expires_in")
		if expires == "" {
			expires = vals.Get("expires")
		}
		if expires != "" {
			var secs int64
			if _, err := fmt.Sscanf(expires, "%d", &secs); err == nil {
				info.Expiry = time.Now().Add(time.Duration(secs) * time.Second)
			}
		}
		return info, "", nil
	}

	var payload struct {
		AccessToken  string      `json:"access_token"`
		OAuthToken   string      `json:"oauth_token"`
		TokenType    string      `json:"token_type"`
		ExpiresIn    json.Number `json:"expires_in"`
		RefreshToken string      `json:"refresh_token"`
		IDToken      string      `json:"id_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, "", fmt.Errorf("undecodable token response: %w", err)
	}
	token := payload.AccessToken
	if token == "" {
		token = payload.OAuthToken
	}
	if token == "" {
		return nil, "", fmt.Errorf("token response carries no access token")
	}
	info := &polyauth.OAuth2Info{
		AccessToken:  token,
		TokenType:    payload.TokenType,
		RefreshToken: payload.RefreshToken,
	}
	if secs, err := payload.ExpiresIn.Int64(); err == nil && secs > 0 {
		info.Expiry = time.Now().Add(time.Duration(secs) * time.Second)
	}
	return info, payload.IDToken, nil
}

func (p *Provider) buildProfile(ctx context.Context, info *polyauth.OAuth2Info, idToken string) (*polyauth.Profile, error) {
	var profile *polyauth.Profile
	if p.fill != nil {
		ctx = context.WithValue(ctx, xoauth2.HTTPClient, p.cfg.HTTPClient)
		client := xoauth2.NewClient(ctx, xoauth2.StaticTokenSource(&xoauth2.Token{
			AccessToken: info.AccessToken,
			TokenType:   info.TokenType,
		}))
		var err error
		profile, err = p.fill(ctx, client, info)
		if err != nil {
			return nil, err
		}
	} else {
		profile = &polyauth.Profile{}
	}
	if idToken != "" {
		mergeIDTokenClaims(profile, idToken)
	}
	if profile.Key.UserID == "" {
		return nil, fmt.Errorf("service returned no user id")
	}
	return profile, nil
}

// mergeIDTokenClaims fills profile fields that are still empty from the
// id_token's claims. The signature is deliberately not checked: the token
// arrived over TLS straight from the token endpoint, not from the user.
func mergeIDTokenClaims(profile *polyauth.Profile, idToken string) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return
	}
	str := func(key string) string {
		s, _ := claims[key].(string)
		return s
	}
	if profile.Key.UserID == "" {
		profile.Key.UserID = str("sub")
	}
	if profile.Email == "" {
		profile.Email = str("email")
	}
	if profile.DisplayName == "" {
		profile.DisplayName = str("name")
	}
	if profile.AvatarURL == "" {
		profile.AvatarURL = str("picture")
	}
}

// fetchJSON is shared by the concrete providers' profile fillers.
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
