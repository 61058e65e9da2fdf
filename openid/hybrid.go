package openid

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/dghubble/oauth1"
	"go.uber.org/zap"

	"github.com/polyauth/polyauth"
)

const oauthHybridNamespace = "http://specs.openid.net/extensions/oauth/1.0"

// HybridConfig describes an endpoint speaking the OpenID+OAuth hybrid
// protocol: an OpenID authentication that also hands back an OAuth1
// request token, saving the user a second authorization round trip.
type HybridConfig struct {
	OpenID Config

	ConsumerKey    string
	ConsumerSecret string

	RequestTokenURL string
	AuthorizeURL    string
	AccessTokenURL  string

	// Scope is the openid.ext2.scope value: the APIs the piggybacked
	// OAuth token should grant access to.
	Scope string

	// FillAPI optionally enriches the profile with an API call made with
	// the freshly obtained access token.
	FillAPI func(ctx context.Context, client *http.Client, profile *polyauth.Profile) error
}

// HybridProvider runs the OpenID leg through an embedded Provider and
// finishes by trading the piggybacked request token for an access token.
type HybridProvider struct {
	inner  *Provider
	cfg    HybridConfig
	logger *zap.Logger
}

func NewHybrid(cfg HybridConfig) *HybridProvider {
	inner := New(cfg.OpenID)
	return &HybridProvider{inner: inner, cfg: cfg, logger: inner.logger}
}

func (p *HybridProvider) ID() string { return p.inner.cfg.ProviderID }

func (p *HybridProvider) Method() polyauth.AuthMethod { return polyauth.MethodOpenIDOAuthHybrid }

// ServiceInfo exposes the live consumer credentials so API calls can be
// signed on behalf of loaded profiles. Stores never persist the secret.
func (p *HybridProvider) ServiceInfo() polyauth.ServiceInfo {
	return polyauth.ServiceInfo{
		RequestTokenURL: p.cfg.RequestTokenURL,
		AccessTokenURL:  p.cfg.AccessTokenURL,
		AuthorizeURL:    p.cfg.AuthorizeURL,
		ConsumerKey:     p.cfg.ConsumerKey,
		ConsumerSecret:  p.cfg.ConsumerSecret,
	}
}

func (p *HybridProvider) oauthConfig() *oauth1.Config {
	return &oauth1.Config{
		ConsumerKey:    p.cfg.ConsumerKey,
		ConsumerSecret: p.cfg.ConsumerSecret,
		Endpoint: oauth1.Endpoint{
			RequestTokenURL: p.cfg.RequestTokenURL,
			AuthorizeURL:    p.cfg.AuthorizeURL,
			AccessTokenURL:  p.cfg.AccessTokenURL,
		},
	}
}

func (p *HybridProvider) Authenticate(ctx context.Context, ex polyauth.Exchange) polyauth.Outcome {
	switch ex.Param("openid.mode") {
	case "":
		outcome := p.inner.startFlow(ex)
		redirect, ok := outcome.Redirect()
		if !ok {
			return outcome
		}
		u, err := url.Parse(redirect)
		if err != nil {
			return polyauth.FailWith(polyauth.ErrCodeUpstreamError, "could not reach the identity service")
		}
		q := u.Query()
		q.Set("openid.ns.ext2", oauthHybridNamespace)
		q.Set("openid.ext2.consumer", p.cfg.ConsumerKey)
		if p.cfg.Scope != "" {
			q.Set("openid.ext2.scope", p.cfg.Scope)
		}
		u.RawQuery = q.Encode()
		return polyauth.RedirectTo(u.String())
	case "cancel":
		return polyauth.FailWith(polyauth.ErrCodeAccessDenied, "the user cancelled the login")
	}

	outcome, _ := p.inner.finishFlow(ex)
	profile, ok := outcome.Profile()
	if !ok {
		return outcome
	}

	requestToken := ex.Param("openid.oauth.request_token")
	if requestToken == "" {
		requestToken = ex.Param("openid.ext2.request_token")
	}
	if requestToken == "" {
		p.logger.Error("assertion carries no piggybacked request token")
		return polyauth.FailWith(polyauth.ErrCodeUpstreamError, "the identity service returned no API token")
	}

	// Hybrid request tokens are pre-authorized: the exchange uses an
	// empty token secret and no verifier.
	cfg := p.oauthConfig()
	accessToken, accessSecret, err := cfg.AccessToken(requestToken, "", "")
	if err != nil {
		p.logger.Error("hybrid access token exchange failed", zap.Error(err))
		return polyauth.FailWith(polyauth.ErrCodeUpstreamError, "could not exchange the API token")
	}

	profile.AuthMethod = polyauth.MethodOpenIDOAuthHybrid
	profile.OAuth1 = &polyauth.OAuth1Info{
		Token:       accessToken,
		Secret:      accessSecret,
		ServiceInfo: p.ServiceInfo(),
	}
	profile.LastAccess = time.Now()

	if p.cfg.FillAPI != nil {
		client := oauth1.NewClient(ctx, cfg, oauth1.NewToken(accessToken, accessSecret))
		if err := p.cfg.FillAPI(ctx, client, profile); err != nil {
			p.logger.Error("profile enrichment failed", zap.Error(err))
			return polyauth.FailWith(polyauth.ErrCodeUpstreamError, "could not retrieve the user profile")
		}
	}
	return polyauth.Authenticated(profile)
}
