// Package userpass implements local username/password authentication.
package userpass

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/polyauth/polyauth"
)

// DefaultProviderID is the registry id local accounts live under.
const DefaultProviderID = "userpass"

// Provider authenticates against locally stored password hashes.
type Provider struct {
	id      string
	users   polyauth.UserStore
	hashers *polyauth.HasherSet
	logger  *zap.Logger
}

// New returns a username/password provider registered as
// DefaultProviderID.
func New(users polyauth.UserStore, hashers *polyauth.HasherSet, logger *zap.Logger) *Provider {
	return NewWithID(DefaultProviderID, users, hashers, logger)
}

func NewWithID(id string, users polyauth.UserStore, hashers *polyauth.HasherSet, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{id: id, users: users, hashers: hashers, logger: logger}
}

func (p *Provider) ID() string { return p.id }

func (p *Provider) Method() polyauth.AuthMethod { return polyauth.MethodUsernamePassword }

// Authenticate reads the username and password parameters and checks them
// against the user store. Unknown usernames and wrong passwords produce
// the same failure so the endpoint cannot confirm which accounts exist.
func (p *Provider) Authenticate(ctx context.Context, ex polyauth.Exchange) polyauth.Outcome {
	username := strings.TrimSpace(ex.Param("username"))
	password := ex.Param("password")

	fields := make(map[string]string)
	if username == "" {
		fields["username"] = "username is required"
	}
	if password == "" {
		fields["password"] = "password is required"
	}
	if len(fields) > 0 {
		return polyauth.Failed(polyauth.NewFieldErrors(fields))
	}

	profile, err := p.users.Find(ctx, polyauth.UserKey{ProviderID: p.id, UserID: username})
	if err != nil {
		if errors.Is(err, polyauth.ErrNotFound) {
			return p.badCredentials()
		}
		p.logger.Error("user lookup failed", zap.Error(err))
		return polyauth.FailWith(polyauth.ErrCodeUpstreamError, "user store unavailable")
	}
	if !profile.Activated {
		return polyauth.FailWith(polyauth.ErrCodeAccountNotActive, "account has not been activated")
	}
	if profile.Password == nil || !p.hashers.Verify(password, *profile.Password) {
		return p.badCredentials()
	}
	return polyauth.Authenticated(profile)
}

func (p *Provider) badCredentials() polyauth.Outcome {
	return polyauth.FailWith(polyauth.ErrCodeBadCredentials, "invalid username or password")
}
