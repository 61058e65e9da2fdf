// Package oauth1 implements three-legged OAuth 1.0a authentication, plus
// ready-made configurations for Twitter and LinkedIn.
package oauth1

import (
	"context"
	"net/http"
	"time"

	"github.com/dghubble/oauth1"
	"go.uber.org/zap"

	"github.com/polyauth/polyauth"
)

// Config describes one OAuth1 service.
type Config struct {
	// ProviderID is the registry id, e.g. "twitter".
	ProviderID string

	ConsumerKey    string
	ConsumerSecret string

	RequestTokenURL string
	AuthorizeURL    string
	AccessTokenURL  string

	// PendingTTL bounds how long a visitor may take between the redirect
	// to the service and the callback. Default polyauth.DefaultFlowTTL.
	PendingTTL time.Duration

	Logger *zap.Logger
}

// FillProfileFunc fetches the authenticated user's profile from the
// service's API. client signs its requests with the user's token.
type FillProfileFunc func(ctx context.Context, client *http.Client) (*polyauth.Profile, error)

// pendingToken is the request token pair waiting between the two legs.
type pendingToken struct {
	token  string
	secret string
}

// Provider drives the three-legged OAuth 1.0a flow.
//
// The first Authenticate call obtains a request token, parks its secret in
// a per-session cache and redirects to the service. The callback call
// consumes the cached pair exactly once and trades it for an access token,
// so a replayed callback finds nothing and fails as an expired session.
type Provider struct {
	cfg     Config
	fill    FillProfileFunc
	pending *polyauth.FlowCache
	logger  *zap.Logger
}

func New(cfg Config, fill FillProfileFunc) *Provider {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Provider{
		cfg:     cfg,
		fill:    fill,
		pending: polyauth.NewFlowCache(cfg.PendingTTL),
		logger:  cfg.Logger.With(zap.String("provider", cfg.ProviderID)),
	}
}

func (p *Provider) ID() string { return p.cfg.ProviderID }

func (p *Provider) Method() polyauth.AuthMethod { return polyauth.MethodOAuth1 }

// ServiceInfo exposes the live consumer credentials so API calls can be
// signed on behalf of loaded profiles. Stores never persist the secret.
func (p *Provider) ServiceInfo() polyauth.ServiceInfo {
	return polyauth.ServiceInfo{
		RequestTokenURL: p.cfg.RequestTokenURL,
		AccessTokenURL:  p.cfg.AccessTokenURL,
		AuthorizeURL:    p.cfg.AuthorizeURL,
		ConsumerKey:     p.cfg.ConsumerKey,
		ConsumerSecret:  p.cfg.ConsumerSecret,
	}
}

func (p *Provider) oauthConfig(callbackURL string) *oauth1.Config {
	return &oauth1.Config{
		ConsumerKey:    p.cfg.ConsumerKey,
		ConsumerSecret: p.cfg.ConsumerSecret,
		CallbackURL:    callbackURL,
		Endpoint: oauth1.Endpoint{
			RequestTokenURL: p.cfg.RequestTokenURL,
			AuthorizeURL:    p.cfg.AuthorizeURL,
			AccessTokenURL:  p.cfg.AccessTokenURL,
		},
	}
}

func (p *Provider) cacheKey(ctx context.Context, ex polyauth.Exchange) string {
	return "polyauth.oauth1." + p.cfg.ProviderID + "." + ex.SessionID(ctx)
}

func (p *Provider) Authenticate(ctx context.Context, ex polyauth.Exchange) polyauth.Outcome {
	if ex.Param("denied") != "" {
		return polyauth.FailWith(polyauth.ErrCodeAccessDenied, "the user did not grant access")
	}
	if ex.Param("oauth_verifier") == "" {
		return p.startFlow(ctx, ex)
	}
	return p.finishFlow(ctx, ex)
}

func (p *Provider) startFlow(ctx context.Context, ex polyauth.Exchange) polyauth.Outcome {
	cfg := p.oauthConfig(ex.CallbackURL())
	requestToken, requestSecret, err := cfg.RequestToken()
	if err != nil {
		p.logger.Error("request token retrieval failed", zap.Error(err))
		return polyauth.FailWith(polyauth.ErrCodeUpstreamError, "could not start the login flow")
	}
	p.pending.Put(p.cacheKey(ctx, ex), pendingToken{token: requestToken, secret: requestSecret})
	authorizationURL, err := cfg.AuthorizationURL(requestToken)
	if err != nil {
		p.logger.Error("authorization url construction failed", zap.Error(err))
		return polyauth.FailWith(polyauth.ErrCodeUpstreamError, "could not start the login flow")
	}
	return polyauth.RedirectTo(authorizationURL.String())
}

func (p *Provider) finishFlow(ctx context.Context, ex polyauth.Exchange) polyauth.Outcome {
	v, ok := p.pending.Consume(p.cacheKey(ctx, ex))
	if !ok {
		// Expired, replayed or never started. All three look the same.
		return polyauth.FailWith(polyauth.ErrCodeSessionExpired, "the login attempt took too long, please try again")
	}
	pend := v.(pendingToken)
	if t := ex.Param("oauth_token"); t != "" && t != pend.token {
		return polyauth.FailWith(polyauth.ErrCodeSessionExpired, "the login attempt took too long, please try again")
	}

	cfg := p.oauthConfig(ex.CallbackURL())
	accessToken, accessSecret, err := cfg.AccessToken(pend.token, pend.secret, ex.Param("oauth_verifier"))
	if err != nil {
		p.logger.Error("access token exchange failed", zap.Error(err))
		return polyauth.FailWith(polyauth.ErrCodeUpstreamError, "could not exchange the request token")
	}

	client := oauth1.NewClient(ctx, cfg, oauth1.NewToken(accessToken, accessSecret))
	profile, err := p.fill(ctx, client)
	if err != nil {
		p.logger.Error("profile retrieval failed", zap.Error(err))
		return polyauth.FailWith(polyauth.ErrCodeUpstreamError, "could not retrieve the user profile")
	}
	profile.Key.ProviderID = p.cfg.ProviderID
	profile.AuthMethod = polyauth.MethodOAuth1
	profile.Activated = true
	profile.LastAccess = time.Now()
	profile.OAuth1 = &polyauth.OAuth1Info{
		Token:       accessToken,
		Secret:      accessSecret,
		ServiceInfo: p.ServiceInfo(),
	}
	return polyauth.Authenticated(profile)
}
