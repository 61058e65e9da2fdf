// Package session adapts HTTP requests with scs-managed sessions into the
// Exchange values providers consume.
package session

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
)

// sidKey stores the stable per-visitor id inside the scs session. The scs
// token itself is not usable as a flow key because it may rotate and is
// empty before the first response is committed.
const sidKey = "polyauth.sid"

// Exchange is a polyauth.Exchange backed by one HTTP request/response pair
// and an scs session manager. The request must already have passed through
// the manager's LoadAndSave middleware.
type Exchange struct {
	sessions    *scs.SessionManager
	w           http.ResponseWriter
	r           *http.Request
	callbackURL string
}

// New wraps a request. callbackURL is the absolute URL of the provider's
// authenticate endpoint; empty derives it from the request itself, which
// is right for flows whose start and callback share one route.
func New(sessions *scs.SessionManager, w http.ResponseWriter, r *http.Request, callbackURL string) *Exchange {
	return &Exchange{sessions: sessions, w: w, r: r, callbackURL: callbackURL}
}

func (e *Exchange) Param(name string) string {
	return e.r.FormValue(name)
}

func (e *Exchange) Params() url.Values {
	_ = e.r.ParseForm()
	return e.r.Form
}

func (e *Exchange) scheme() string {
	if proto := e.r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if e.r.TLS != nil {
		return "https"
	}
	return "http"
}

func (e *Exchange) RequestURL() string {
	return e.scheme() + "://" + e.r.Host + e.r.URL.RequestURI()
}

func (e *Exchange) CallbackURL() string {
	if e.callbackURL != "" {
		return e.callbackURL
	}
	return e.scheme() + "://" + e.r.Host + e.r.URL.Path
}

func (e *Exchange) SessionID(ctx context.Context) string {
	sid := e.sessions.GetString(ctx, sidKey)
	if sid == "" {
		sid = uuid.NewString()
		e.sessions.Put(ctx, sidKey, sid)
	}
	return sid
}

func (e *Exchange) SessionPut(ctx context.Context, key, value string) {
	e.sessions.Put(ctx, key, value)
}

func (e *Exchange) SessionGet(ctx context.Context, key string) string {
	return e.sessions.GetString(ctx, key)
}

func (e *Exchange) SessionDel(ctx context.Context, key string) {
	e.sessions.Remove(ctx, key)
}

func (e *Exchange) Cookie(name string) string {
	c, err := e.r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func (e *Exchange) SetCookie(name, value string, ttl time.Duration) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   e.scheme() == "https",
	}
	if ttl <= 0 {
		cookie.MaxAge = -1
	} else {
		cookie.MaxAge = int(ttl / time.Second)
	}
	http.SetCookie(e.w, cookie)
}
