package polyauth

// Outcome is the result of driving a provider's state machine one step.
// It is a closed union: exactly one of the three accessors reports true.
//
//   - Redirect: the user agent must be sent to the returned URL to continue
//     the flow at the third party.
//   - Profile: the flow finished and produced an authenticated profile.
//   - Failure: the flow finished unsuccessfully.
//
// Modeling the redirect as a value instead of writing to the response keeps
// providers free of HTTP plumbing and makes the state machines testable.
type Outcome struct {
	redirect string
	profile  *Profile
	failure  *AuthError
}

// RedirectTo builds an outcome instructing the caller to redirect.
func RedirectTo(url string) Outcome {
	return Outcome{redirect: url}
}

// Authenticated builds a successful outcome.
func Authenticated(p *Profile) Outcome {
	return Outcome{profile: p}
}

// Failed builds a failed outcome.
func Failed(f *AuthError) Outcome {
	return Outcome{failure: f}
}

// FailWith is shorthand for Failed(NewAuthError(code, message)).
func FailWith(code ErrorCode, message string) Outcome {
	return Outcome{failure: NewAuthError(code, message)}
}

// Redirect returns the redirect URL, if this outcome is a redirect.
func (o Outcome) Redirect() (string, bool) {
	return o.redirect, o.redirect != ""
}

// Profile returns the authenticated profile, if this outcome is a success.
func (o Outcome) Profile() (*Profile, bool) {
	return o.profile, o.profile != nil
}

// Failure returns the failure, if this outcome is a failure.
func (o Outcome) Failure() (*AuthError, bool) {
	return o.failure, o.failure != nil
}
