package polyauth

import "errors"

// ErrorCode classifies authentication failures. The codes are stable and
// safe to match on; the accompanying message is safe to show to end users.
type ErrorCode string

const (
	ErrCodeAccessDenied       ErrorCode = "access_denied"
	ErrCodeUpstreamError      ErrorCode = "upstream_error"
	ErrCodeVerificationFailed ErrorCode = "verification_failed"
	ErrCodeMissingUsername    ErrorCode = "missing_username"
	ErrCodeBadCredentials     ErrorCode = "bad_credentials"
	ErrCodeAccountNotActive   ErrorCode = "account_not_active"
	ErrCodeSessionExpired     ErrorCode = "session_expired"
	ErrCodeUnknownProvider    ErrorCode = "unknown_provider"

	// ErrCodeValidation reports local form validation problems. It is the
	// only code that carries field-level errors and it never reaches the
	// upstream provider.
	ErrCodeValidation ErrorCode = "validation_failed"
)

// AuthError is a classified authentication failure. Message is generic by
// design: details about upstream responses are logged, never surfaced.
type AuthError struct {
	Code    ErrorCode
	Message string

	// Fields maps form field names to validation messages. Only populated
	// for ErrCodeValidation.
	Fields map[string]string
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return string(e.Code) + ": " + e.Message
	}
	return string(e.Code)
}

// NewAuthError creates a failure with the given code and user-visible message.
func NewAuthError(code ErrorCode, message string) *AuthError {
	return &AuthError{Code: code, Message: message}
}

// NewFieldErrors creates a validation failure carrying field-level errors.
func NewFieldErrors(fields map[string]string) *AuthError {
	return &AuthError{Code: ErrCodeValidation, Message: "invalid form input", Fields: fields}
}

// Sentinel errors shared by stores and services.
var (
	// ErrNotFound is returned by stores when a profile, token or
	// authenticator does not exist.
	ErrNotFound = errors.New("polyauth: not found")

	// ErrTokenInvalid covers every verification token misuse: unknown,
	// expired or already consumed. Callers cannot tell these apart.
	ErrTokenInvalid = errors.New("polyauth: invalid or expired token")

	// ErrAuthenticatorInvalid covers every authenticator misuse: unknown,
	// expired, idle too long or discarded. Callers cannot tell these apart.
	ErrAuthenticatorInvalid = errors.New("polyauth: invalid authenticator")

	// ErrDuplicateProvider aborts registry construction when two providers
	// share an id.
	ErrDuplicateProvider = errors.New("polyauth: provider id already registered")
)
