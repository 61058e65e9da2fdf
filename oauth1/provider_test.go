package oauth1

import (
	"context"
	"encoding/json"
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
func (c *callbackExchange) RequestURL() string       { return c.callback }
func (c *callbackExchange) CallbackURL() string      { return c.callback }

func (c *callbackExchange) SessionID(context.Context) string          { return "session-1" }
func (c *callbackExchange) SessionPut(_ context.Context, _, _ string) {}
func (c *callbackExchange) SessionGet(context.Context, string) string { return "" }
func (c *callbackExchange) SessionDel(context.Context, string)        {}
func (c *callbackExchange) Cookie(string) string                      { return "" }
func (c *callbackExchange) SetCookie(_, _ string, _ time.Duration)    {}

// newFakeService stands in for the OAuth1 endpoints of a real service.
func newFakeService(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/request_token", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Authorization"), `oauth_consumer_key="ckey"`)
		w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
		w.Write([]byte("oauth_token=req-token&oauth_token_secret=req-secret&oauth_callback_confirmed=true"))
	})
	mux.HandleFunc("/access_token", func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		assert.Contains(t, auth, `oauth_token="req-token"`)
		assert.Contains(t, auth, `oauth_verifier="the-verifier"`)
		w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
		w.Write([]byte("oauth_token=acc-token&oauth_token_secret=acc-secret"))
	})
	mux.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Authorization"), `oauth_token="acc-token"`)
		json.NewEncoder(w).Encode(map[string]string{"id": "42", "name": "Jane Doe"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(t *testing.T, srv *httptest.Server) *Provider {
	t.Helper()
	fill := func(ctx context.Context, client *http.Client) (*polyauth.Profile, error) {
		resp, err := client.Get(srv.URL + "/profile")
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		var user struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
			return nil, err
		}
		return &polyauth.Profile{
			Key:         polyauth.UserKey{UserID: user.ID},
			DisplayName: user.Name,
		}, nil
	}
	return New(Config{
		ProviderID:      "fake",
		ConsumerKey:     "ckey",
		ConsumerSecret:  "csecret",
		RequestTokenURL: srv.URL + "/request_token",
		AuthorizeURL:    srv.URL + "/authorize",
		AccessTokenURL:  srv.URL + "/access_token",
	}, fill)
}

func TestAuthenticateFirstCallRedirects(t *testing.T) {
	srv := newFakeService(t)
	p := newTestProvider(t, srv)

	out := p.Authenticate(context.Background(), &callbackExchange{
		params:   url.Values{},
		callback: "https://app.example.com/auth/fake",
	})

	redirect, ok := out.Redirect()
	require.True(t, ok, "outcome: %+v", out)
	u, err := url.Parse(redirect)
	require.NoError(t, err)
	assert.Equal(t, "/authorize", u.Path)
	assert.Equal(t, "req-token", u.Query().Get("oauth_token"))
}

func TestAuthenticateCallbackProducesProfile(t *testing.T) {
	srv := newFakeService(t)
	p := newTestProvider(t, srv)
	ex := &callbackExchange{params: url.Values{}, callback: "https://app.example.com/auth/fake"}

	_, ok := p.Authenticate(context.Background(), ex).Redirect()
	require.True(t, ok)

	ex.params = url.Values{
		"oauth_token":    {"req-token"},
		"oauth_verifier": {"the-verifier"},
	}
	out := p.Authenticate(context.Background(), ex)

	profile, ok := out.Profile()
	require.True(t, ok, "outcome: %+v", out)
	assert.Equal(t, polyauth.UserKey{ProviderID: "fake", UserID: "42"}, profile.Key)
	assert.Equal(t, polyauth.MethodOAuth1, profile.AuthMethod)
	require.NotNil(t, profile.OAuth1)
	assert.Equal(t, "acc-token", profile.OAuth1.Token)
	assert.Equal(t, "acc-secret", profile.OAuth1.Secret)
	assert.Equal(t, "csecret", profile.OAuth1.ServiceInfo.ConsumerSecret)
}

func TestAuthenticateCallbackCannotBeReplayed(t *testing.T) {
	srv := newFakeService(t)
	p := newTestProvider(t, srv)
	ex := &callbackExchange{params: url.Values{}, callback: "https://app.example.com/auth/fake"}

	_, ok := p.Authenticate(context.Background(), ex).Redirect()
	require.True(t, ok)

	ex.params = url.Values{
		"oauth_token":    {"req-token"},
		"oauth_verifier": {"the-verifier"},
	}
	_, ok = p.Authenticate(context.Background(), ex).Profile()
	require.True(t, ok)

	// The pending request token was consumed by the first callback.
	failure, ok := p.Authenticate(context.Background(), ex).Failure()
	require.True(t, ok)
	assert.Equal(t, polyauth.ErrCodeSessionExpired, failure.Code)
}

func TestAuthenticateCallbackWithoutStart(t *testing.T) {
	srv := newFakeService(t)
	p := newTestProvider(t, srv)

	out := p.Authenticate(context.Background(), &callbackExchange{
		params:   url.Values{"oauth_token": {"req-token"}, "oauth_verifier": {"v"}},
		callback: "https://app.example.com/auth/fake",
	})

	failure, ok := out.Failure()
	require.True(t, ok)
	assert.Equal(t, polyauth.ErrCodeSessionExpired, failure.Code)
}

func TestAuthenticateMismatchedRequestToken(t *testing.T) {
	srv := newFakeService(t)
	p := newTestProvider(t, srv)
	ex := &callbackExchange{params: url.Values{}, callback: "https://app.example.com/auth/fake"}

	_, ok := p.Authenticate(context.Background(), ex).Redirect()
	require.True(t, ok)

	ex.params = url.Values{
		"oauth_token":    {"someone-elses-token"},
		"oauth_verifier": {"the-verifier"},
	}
	failure, ok := p.Authenticate(context.Background(), ex).Failure()
	require.True(t, ok)
	assert.Equal(t, polyauth.ErrCodeSessionExpired, failure.Code)
}

func TestAuthenticateUserDeniedAccess(t *testing.T) {
	srv := newFakeService(t)
	p := newTestProvider(t, srv)

	out := p.Authenticate(context.Background(), &callbackExchange{
		params:   url.Values{"denied": {"req-token"}},
		callback: "https://app.example.com/auth/fake",
	})

	failure, ok := out.Failure()
	require.True(t, ok)
	assert.Equal(t, polyauth.ErrCodeAccessDenied, failure.Code)
}
