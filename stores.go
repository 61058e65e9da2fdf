package polyauth

import (
	"context"
	"time"
)

// SaveMode tells a UserStore why a profile is being saved, so
// implementations can apply different write semantics (insert vs update,
// auditing, etc).
type SaveMode string

const (
	SaveModeSignUp         SaveMode = "signup"
	SaveModeLoggedIn       SaveMode = "logged_in"
	SaveModePasswordChange SaveMode = "password_change"
)

// UserStore is the persistence collaborator for profiles and verification
// tokens. Implementations live outside the core; stores/memory and
// stores/gorm ship reference implementations.
//
// Lookup methods return ErrNotFound when the record does not exist.
type UserStore interface {
	// Find returns the profile stored under key, resolving linked
	// identities to their primary profile.
	Find(ctx context.Context, key UserKey) (*Profile, error)

	// FindByEmailAndProvider returns the profile with the given email
	// under the given provider.
	FindByEmailAndProvider(ctx context.Context, email, providerID string) (*Profile, error)

	// Save persists the profile and returns the stored copy.
	Save(ctx context.Context, p *Profile, mode SaveMode) (*Profile, error)

	// Link attaches the additional identity to the existing profile so
	// that future Find calls for either key resolve to the same account.
	Link(ctx context.Context, existing, additional *Profile) (*Profile, error)

	// Delete removes the profile stored under key. Used by the token
	// sweep to purge abandoned, never-activated sign-up accounts.
	Delete(ctx context.Context, key UserKey) error

	// SaveToken persists a verification token.
	SaveToken(ctx context.Context, t *VerificationToken) error

	// FindToken returns the token with the given uuid.
	FindToken(ctx context.Context, uuid string) (*VerificationToken, error)

	// DeleteToken removes the token with the given uuid. It returns
	// ErrNotFound when the token is already gone; single-use consumption
	// relies on exactly one concurrent caller seeing a nil error.
	DeleteToken(ctx context.Context, uuid string) error

	// DeleteExpiredTokens removes every token whose expiration has passed
	// and returns the removed tokens so the caller can purge the accounts
	// they guarded.
	DeleteExpiredTokens(ctx context.Context, now time.Time) ([]*VerificationToken, error)
}

// AuthenticatorStore persists session authenticators.
//
// Lookup methods return ErrNotFound when the record does not exist, and
// DeleteAuthenticator follows the same check-and-delete discipline as
// DeleteToken.
type AuthenticatorStore interface {
	SaveAuthenticator(ctx context.Context, a *Authenticator) error
	FindAuthenticator(ctx context.Context, id string) (*Authenticator, error)
	DeleteAuthenticator(ctx context.Context, id string) error

	// DeleteExpiredAuthenticators removes every authenticator that is no
	// longer valid at now and reports how many were removed.
	DeleteExpiredAuthenticators(ctx context.Context, now time.Time) (int, error)
}

// Mailer delivers the out-of-band emails of the sign-up and password reset
// flows. The core only supplies the token; composing and sending the email
// is external. The mailer package ships console and SMTP implementations.
type Mailer interface {
	SendActivationEmail(ctx context.Context, p *Profile, tokenUUID string) error
	SendPasswordResetEmail(ctx context.Context, p *Profile, tokenUUID string) error
}
