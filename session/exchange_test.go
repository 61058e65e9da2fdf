package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withSession runs fn inside the scs LoadAndSave middleware, the way the
// HTTP handler invokes providers in production.
func withSession(t *testing.T, sessions *scs.SessionManager, r *http.Request, fn func(ex *Exchange)) *http.Response {
	t.Helper()
	rec := httptest.NewRecorder()
	sessions.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fn(New(sessions, w, r, ""))
	})).ServeHTTP(rec, r)
	return rec.Result()
}

func TestParamsReadQueryAndForm(t *testing.T) {
	sessions := scs.New()

	r := httptest.NewRequest(http.MethodPost, "/auth/userpass?from=query",
		strings.NewReader("username=jdoe&password=s3cret"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	withSession(t, sessions, r, func(ex *Exchange) {
		assert.Equal(t, "jdoe", ex.Param("username"))
		assert.Equal(t, "query", ex.Param("from"))
		assert.Equal(t, "s3cret", ex.Params().Get("password"))
	})
}

func TestRequestAndCallbackURLs(t *testing.T) {
	sessions := scs.New()

	r := httptest.NewRequest(http.MethodGet, "http://app.example.com/auth/github?code=abc", nil)
	withSession(t, sessions, r, func(ex *Exchange) {
		assert.Equal(t, "http://app.example.com/auth/github?code=abc", ex.RequestURL())
		assert.Equal(t, "http://app.example.com/auth/github", ex.CallbackURL())
	})

	// Behind a TLS-terminating proxy the forwarded scheme wins.
	r = httptest.NewRequest(http.MethodGet, "http://app.example.com/auth/github", nil)
	r.Header.Set("X-Forwarded-Proto", "https")
	withSession(t, sessions, r, func(ex *Exchange) {
		assert.Equal(t, "https://app.example.com/auth/github", ex.RequestURL())
	})
}

func TestExplicitCallbackURL(t *testing.T) {
	sessions := scs.New()
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "http://app.example.com/login", nil)

	sessions.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ex := New(sessions, w, r, "https://app.example.com/auth/github")
		assert.Equal(t, "https://app.example.com/auth/github", ex.CallbackURL())
	})).ServeHTTP(rec, r)
}

func TestSessionIDIsStableAcrossRequests(t *testing.T) {
	sessions := scs.New()

	var first, second string
	r := httptest.NewRequest(http.MethodGet, "/auth/twitter", nil)
	resp := withSession(t, sessions, r, func(ex *Exchange) {
		first = ex.SessionID(ex.r.Context())
		assert.NotEmpty(t, first)
	})

	// Replay the session cookie the way a browser would.
	cookies := resp.Cookies()
	require.NotEmpty(t, cookies)
	r = httptest.NewRequest(http.MethodGet, "/auth/twitter?oauth_verifier=v", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	withSession(t, sessions, r, func(ex *Exchange) {
		second = ex.SessionID(ex.r.Context())
	})

	assert.Equal(t, first, second)
}

func TestSessionPutGetDel(t *testing.T) {
	sessions := scs.New()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	withSession(t, sessions, r, func(ex *Exchange) {
		ctx := ex.r.Context()
		ex.SessionPut(ctx, "k", "v")
		assert.Equal(t, "v", ex.SessionGet(ctx, "k"))
		ex.SessionDel(ctx, "k")
		assert.Empty(t, ex.SessionGet(ctx, "k"))
	})
}

func TestCookies(t *testing.T) {
	sessions := scs.New()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "existing", Value: "yes"})
	resp := withSession(t, sessions, r, func(ex *Exchange) {
		assert.Equal(t, "yes", ex.Cookie("existing"))
		assert.Empty(t, ex.Cookie("missing"))
		ex.SetCookie("auth", "tok", time.Hour)
		ex.SetCookie("stale", "", 0)
	})

	byName := make(map[string]*http.Cookie)
	for _, c := range resp.Cookies() {
		byName[c.Name] = c
	}
	require.Contains(t, byName, "auth")
	assert.Equal(t, "tok", byName["auth"].Value)
	assert.Equal(t, 3600, byName["auth"].MaxAge)
	assert.True(t, byName["auth"].HttpOnly)
	require.Contains(t, byName, "stale")
	assert.Less(t, byName["stale"].MaxAge, 0, "non-positive ttl deletes the cookie")
}
