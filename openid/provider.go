// Package openid implements OpenID 2.0 authentication, including the
// OpenID+OAuth hybrid extension, plus ready-made configurations for the
// endpoints PolyAuth supports out of the box.
package openid

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	openidgo "github.com/yohcop/openid-go"
	"go.uber.org/zap"

	"github.com/polyauth/polyauth"
)

// usernameTag marks the spot in an identifier template where the
// visitor's username goes.
const usernameTag = "{username}"

// VerifyFunc checks a positive assertion and returns the verified claimed
// identifier. The default implementation performs full discovery-based
// verification through openid-go; tests substitute their own.
type VerifyFunc func(requestURL string) (string, error)

// FillProfileFunc turns the verified identifier and the attribute
// exchange values into a profile.
type FillProfileFunc func(id string, ax map[string]string) *polyauth.Profile

// Config describes one OpenID endpoint.
type Config struct {
	// ProviderID is the registry id, e.g. "yahoo".
	ProviderID string

	// IdentifierTemplate is the claimed identifier sent to discovery. A
	// {username} placeholder is filled from the openid.user request
	// parameter; flows without that parameter fail before any redirect.
	IdentifierTemplate string

	// Attributes is the attribute exchange fetch request.
	Attributes []Attribute

	// Realm is the openid.realm sent with the request. Empty derives
	// scheme://host from the callback URL.
	Realm string

	// HTTPClient performs discovery. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Verify overrides assertion verification.
	Verify VerifyFunc

	// Fill overrides profile construction. The default keeps only the
	// verified identifier.
	Fill FillProfileFunc

	Logger *zap.Logger
}

// Provider drives OpenID 2.0 authentication.
//
// The first Authenticate call for a visitor carries no openid.mode
// parameter and yields the redirect to the endpoint, with the attribute
// exchange request appended. The assertion call carries openid.mode and
// finishes the flow.
type Provider struct {
	cfg    Config
	verify VerifyFunc
	logger *zap.Logger

	oid *openidgo.OpenID
}

func New(cfg Config) *Provider {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	oid := openidgo.NewOpenID(cfg.HTTPClient)
	verify := cfg.Verify
	if verify == nil {
		discoveryCache := openidgo.NewSimpleDiscoveryCache()
		nonceStore := openidgo.NewSimpleNonceStore()
		verify = func(requestURL string) (string, error) {
			return oid.Verify(requestURL, discoveryCache, nonceStore)
		}
	}
	return &Provider{
		cfg:    cfg,
		verify: verify,
		logger: cfg.Logger.With(zap.String("provider", cfg.ProviderID)),
		oid:    oid,
	}
}

func (p *Provider) ID() string { return p.cfg.ProviderID }

func (p *Provider) Method() polyauth.AuthMethod { return polyauth.MethodOpenID }

func (p *Provider) Authenticate(ctx context.Context, ex polyauth.Exchange) polyauth.Outcome {
	switch ex.Param("openid.mode") {
	case "":
		return p.startFlow(ex)
	case "cancel":
		return polyauth.FailWith(polyauth.ErrCodeAccessDenied, "the user cancelled the login")
	default:
		outcome, _ := p.finishFlow(ex)
		return outcome
	}
}

// identifier resolves the claimed identifier for this request, filling the
// {username} placeholder when the template has one.
func (p *Provider) identifier(ex polyauth.Exchange) (string, *polyauth.AuthError) {
	tpl := p.cfg.IdentifierTemplate
	if !strings.Contains(tpl, usernameTag) {
		return tpl, nil
	}
	username := strings.TrimSpace(ex.Param("openid.user"))
	if username == "" {
		return "", polyauth.NewAuthError(polyauth.ErrCodeMissingUsername, "a username is required to log in with this service")
	}
	return strings.Replace(tpl, usernameTag, username, 1), nil
}

func (p *Provider) realm(callbackURL string) string {
	if p.cfg.Realm != "" {
		return p.cfg.Realm
	}
	u, err := url.Parse(callbackURL)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func (p *Provider) startFlow(ex polyauth.Exchange) polyauth.Outcome {
	id, authErr := p.identifier(ex)
	if authErr != nil {
		return polyauth.Failed(authErr)
	}
	callbackURL := ex.CallbackURL()
	redirect, err := p.oid.RedirectURL(id, callbackURL, p.realm(callbackURL))
	if err != nil {
		p.logger.Error("openid discovery failed", zap.String("identifier", id), zap.Error(err))
		return polyauth.FailWith(polyauth.ErrCodeUpstreamError, "could not reach the identity service")
	}
	u, err := url.Parse(redirect)
	if err != nil {
		return polyauth.FailWith(polyauth.ErrCodeUpstreamError, "could not reach the identity service")
	}
	appendAXParams(u, p.cfg.Attributes)
	return polyauth.RedirectTo(u.String())
}

// finishFlow verifies the assertion and builds the profile. The attribute
// values are returned as well so the hybrid flow can reuse them.
func (p *Provider) finishFlow(ex polyauth.Exchange) (polyauth.Outcome, map[string]string) {
	id, err := p.verify(ex.RequestURL())
	if err != nil || id == "" {
		if err != nil {
			p.logger.Warn("openid assertion rejected", zap.Error(err))
		}
		return polyauth.FailWith(polyauth.ErrCodeVerificationFailed, "the identity assertion could not be verified"), nil
	}
	ax := parseAXResponse(ex.Params(), p.cfg.Attributes)

	var profile *polyauth.Profile
	if p.cfg.Fill != nil {
		profile = p.cfg.Fill(id, ax)
	} else {
		profile = &polyauth.Profile{}
	}
	profile.Key = polyauth.UserKey{ProviderID: p.cfg.ProviderID, UserID: id}
	profile.AuthMethod = polyauth.MethodOpenID
	profile.Activated = true
	profile.LastAccess = time.Now()
	return polyauth.Authenticated(profile), ax
}
