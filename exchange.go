package polyauth

import (
	"context"
	"net/url"
	"time"
)

// Exchange gives providers access to the inbound HTTP request without
// coupling them to a particular framework. Implementations wrap whatever
// request/session machinery the host application uses; the session package
// ships one backed by alexedwards/scs.
//
// A provider decides where it is in its flow purely by inspecting the
// exchange (is there a code parameter? a verifier? an assertion?), so the
// same Authenticate call serves both the initial leg and the callback leg.
type Exchange interface {
	// Param returns a query or form parameter, or "" when absent.
	Param(name string) string

	// Params returns all request parameters. OpenID assertion handling
	// needs to scan for namespace aliases it cannot predict.
	Params() url.Values

	// RequestURL returns the absolute URL of the inbound request,
	// including its query string.
	RequestURL() string

	// CallbackURL returns the absolute URL the third party should send
	// the user back to, i.e. this provider's authenticate endpoint.
	CallbackURL() string

	// SessionID returns a stable identifier for the visitor's session,
	// present even before the user is authenticated. Pending multi-step
	// flow state is keyed by it.
	SessionID(ctx context.Context) string

	// SessionPut, SessionGet and SessionDel access the session-scoped
	// key-value store.
	SessionPut(ctx context.Context, key, value string)
	SessionGet(ctx context.Context, key string) string
	SessionDel(ctx context.Context, key string)

	// Cookie returns the named request cookie's value, or "" when absent.
	Cookie(name string) string

	// SetCookie sets a response cookie. A non-positive ttl deletes it.
	SetCookie(name, value string, ttl time.Duration)
}
