package polyauth

import "context"

// Provider is a pluggable implementation of one authentication method.
//
// Authenticate is re-entrant: it is called for the initial login request
// and again for the provider callback, and branches on the shape of the
// exchange to tell the two apart. The multi-step flow state itself lives in
// the redirect URL and at the third party, not in the process; the only
// local state is the short-lived per-session entries some providers keep in
// a FlowCache.
type Provider interface {
	// ID identifies the provider in the registry and in profile keys.
	ID() string

	// Method reports the protocol this provider speaks.
	Method() AuthMethod

	// Authenticate drives the provider's state machine one step.
	Authenticate(ctx context.Context, ex Exchange) Outcome
}

// OAuth1ServiceInfo is implemented by providers whose profiles need live
// consumer credentials to sign API calls (OAuth1 and hybrid providers).
// The service info is re-attached to loaded profiles by the caller since
// stores never persist consumer secrets.
type OAuth1ServiceInfo interface {
	ServiceInfo() ServiceInfo
}
