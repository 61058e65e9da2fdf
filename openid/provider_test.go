package openid

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyauth/polyauth"
)

type callbackExchange struct {
	params   url.Values
	callback string
}

func (c *callbackExchange) Param(name string) string { return c.params.Get(name) }
func (c *callbackExchange) Params() url.Values       { return c.params }
func (c *callbackExchange) RequestURL() string {
	if len(c.params) == 0 {
		return c.callback
	}
	return c.callback + "?" + c.params.Encode()
}
func (c *callbackExchange) CallbackURL() string { return c.callback }

func (c *callbackExchange) SessionID(context.Context) string          { return "session-1" }
func (c *callbackExchange) SessionPut(_ context.Context, _, _ string) {}
func (c *callbackExchange) SessionGet(context.Context, string) string { return "" }
func (c *callbackExchange) SessionDel(context.Context, string)        {}
func (c *callbackExchange) Cookie(string) string                      { return "" }
func (c *callbackExchange) SetCookie(_, _ string, _ time.Duration)    {}

// newFakeEndpoint serves an XRDS document so discovery resolves to the
// test server's own /op path.
func newFakeEndpoint(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xrds+xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<xrds:XRDS xmlns:xrds="xri://$xrds" xmlns="xri://$xrd*($v*2.0)">
  <XRD>
    <Service priority="0">
      <Type>http://specs.openid.net/auth/2.0/server</Type>
      <URI>%s/op</URI>
    </Service>
  </XRD>
</xrds:XRDS>`, srv.URL)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAuthenticateFirstCallRedirects(t *testing.T) {
	srv := newFakeEndpoint(t)
	p := New(Config{
		ProviderID:         "fake",
		IdentifierTemplate: srv.URL + "/id",
		Attributes: []Attribute{
			{Alias: "email", TypeURI: "http://axschema.org/contact/email"},
		},
	})

	out := p.Authenticate(context.Background(), &callbackExchange{
		params:   url.Values{},
		callback: "https://app.example.com/auth/fake",
	})

	redirect, ok := out.Redirect()
	require.True(t, ok, "outcome: %+v", out)
	u, err := url.Parse(redirect)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "/op", u.Path)
	assert.Equal(t, "checkid_setup", q.Get("openid.mode"))
	assert.Equal(t, "https://app.example.com/auth/fake", q.Get("openid.return_to"))
	assert.Equal(t, "https://app.example.com", q.Get("openid.realm"))
	assert.Equal(t, axNamespace, q.Get("openid.ns.ax"))
	assert.Equal(t, "http://axschema.org/contact/email", q.Get("openid.ax.type.email"))
}

func TestAuthenticateRequiresUsernameForTemplates(t *testing.T) {
	p := New(Config{
		ProviderID:         "fake",
		IdentifierTemplate: "http://{username}.example.com/",
	})

	out := p.Authenticate(context.Background(), &callbackExchange{
		params:   url.Values{},
		callback: "https://app.example.com/auth/fake",
	})

	failure, ok := out.Failure()
	require.True(t, ok)
	assert.Equal(t, polyauth.ErrCodeMissingUsername, failure.Code)
}

func TestAuthenticateUserCancelled(t *testing.T) {
	p := New(Config{ProviderID: "fake", IdentifierTemplate: "https://id.example.com/"})

	out := p.Authenticate(context.Background(), &callbackExchange{
		params:   url.Values{"openid.mode": {"cancel"}},
		callback: "https://app.example.com/auth/fake",
	})

	failure, ok := out.Failure()
	require.True(t, ok)
	assert.Equal(t, polyauth.ErrCodeAccessDenied, failure.Code)
}

func TestAuthenticateVerifiedAssertion(t *testing.T) {
	p := New(Config{
		ProviderID:         "fake",
		IdentifierTemplate: "https://id.example.com/",
		Attributes: []Attribute{
			{Alias: "email", TypeURI: "http://axschema.org/contact/email"},
			{Alias: "fullname", TypeURI: "http://axschema.org/namePerson"},
		},
		Verify: func(requestURL string) (string, error) {
			return "https://id.example.com/jane", nil
		},
		Fill: func(id string, ax map[string]string) *polyauth.Profile {
			return &polyauth.Profile{
				DisplayName: ax["fullname"],
				Email:       ax["email"],
			}
		},
	})

	out := p.Authenticate(context.Background(), &callbackExchange{
		params: url.Values{
			"openid.mode":              {"id_res"},
			"openid.ns.ax":             {axNamespace},
			"openid.ax.type.email":     {"http://axschema.org/contact/email"},
			"openid.ax.value.email":    {"jane@example.com"},
			"openid.ax.type.fullname":  {"http://axschema.org/namePerson"},
			"openid.ax.value.fullname": {"Jane Doe"},
		},
		callback: "https://app.example.com/auth/fake",
	})

	profile, ok := out.Profile()
	require.True(t, ok, "outcome: %+v", out)
	assert.Equal(t, polyauth.UserKey{ProviderID: "fake", UserID: "https://id.example.com/jane"}, profile.Key)
	assert.Equal(t, polyauth.MethodOpenID, profile.AuthMethod)
	assert.Equal(t, "Jane Doe", profile.DisplayName)
	assert.Equal(t, "jane@example.com", profile.Email)
	assert.True(t, profile.Activated)
}

func TestAuthenticateRejectedAssertion(t *testing.T) {
	p := New(Config{
		ProviderID:         "fake",
		IdentifierTemplate: "https://id.example.com/",
		Verify: func(requestURL string) (string, error) {
			return "", errors.New("bad signature")
		},
	})

	out := p.Authenticate(context.Background(), &callbackExchange{
		params:   url.Values{"openid.mode": {"id_res"}},
		callback: "https://app.example.com/auth/fake",
	})

	failure, ok := out.Failure()
	require.True(t, ok)
	assert.Equal(t, polyauth.ErrCodeVerificationFailed, failure.Code)
}
