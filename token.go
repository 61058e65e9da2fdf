package polyauth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenPurpose says what consuming a verification token proves.
type TokenPurpose string

const (
	// SignUpActivation tokens confirm a new account's email address.
	SignUpActivation TokenPurpose = "signup_activation"
	// PasswordReset tokens authorize a one-shot password change.
	PasswordReset TokenPurpose = "password_reset"
)

// VerificationToken is a single-use, emailed credential tying a uuid to an
// email address for one purpose. It is dead after first use or expiry,
// whichever comes first.
type VerificationToken struct {
	UUID      string       `json:"uuid"`
	Email     string       `json:"email"`
	Purpose   TokenPurpose `json:"purpose"`
	CreatedAt time.Time    `json:"createdAt"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

func (t *VerificationToken) IsSignUp() bool { return t.Purpose == SignUpActivation }

func (t *VerificationToken) expired(now time.Time) bool { return !now.Before(t.ExpiresAt) }

// TokenConfig controls verification token lifetimes.
type TokenConfig struct {
	// ActivationTTL is the sign-up activation window. Default 24h.
	ActivationTTL time.Duration
	// ResetTTL is the password reset window. Default 1h.
	ResetTTL time.Duration
	// SweepInterval is how often RunSweeper scans for expired tokens.
	// Default 10m.
	SweepInterval time.Duration
	// LocalProviderID names the username/password provider whose
	// unverified accounts are purged when their activation token lapses.
	// Default "userpass".
	LocalProviderID string
}

func (c TokenConfig) withDefaults() TokenConfig {
	if c.ActivationTTL <= 0 {
		c.ActivationTTL = 24 * time.Hour
	}
	if c.ResetTTL <= 0 {
		c.ResetTTL = time.Hour
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 10 * time.Minute
	}
	if c.LocalProviderID == "" {
		c.LocalProviderID = "userpass"
	}
	return c
}

// TokenService issues and consumes verification tokens.
type TokenService struct {
	store  UserStore
	config TokenConfig
	logger *zap.Logger
	now    func() time.Time
}

func NewTokenService(store UserStore, config TokenConfig, logger *zap.Logger) *TokenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenService{
		store:  store,
		config: config.withDefaults(),
		logger: logger,
		now:    time.Now,
	}
}

// IssueActivation mints a sign-up activation token for email.
func (s *TokenService) IssueActivation(ctx context.Context, email string) (*VerificationToken, error) {
	return s.issue(ctx, email, SignUpActivation, s.config.ActivationTTL)
}

// IssueReset mints a password reset token for email.
func (s *TokenService) IssueReset(ctx context.Context, email string) (*VerificationToken, error) {
	return s.issue(ctx, email, PasswordReset, s.config.ResetTTL)
}

func (s *TokenService) issue(ctx context.Context, email string, purpose TokenPurpose, ttl time.Duration) (*VerificationToken, error) {
	now := s.now()
	t := &VerificationToken{
		UUID:      uuid.NewString(),
		Email:     email,
		Purpose:   purpose,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.store.SaveToken(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Peek returns the token for id without consuming it, or ErrTokenInvalid
// when the token is unknown, expired, or issued for another purpose.
func (s *TokenService) Peek(ctx context.Context, id string, purpose TokenPurpose) (*VerificationToken, error) {
	t, err := s.store.FindToken(ctx, id)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	if t.Purpose != purpose || t.expired(s.now()) {
		return nil, ErrTokenInvalid
	}
	return t, nil
}

// Consume atomically uses up the token for id. Exactly one of two
// concurrent calls for the same id succeeds; the store's delete reports
// ErrNotFound for the loser.
func (s *TokenService) Consume(ctx context.Context, id string, purpose TokenPurpose) (*VerificationToken, error) {
	t, err := s.Peek(ctx, id, purpose)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteToken(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	return t, nil
}

// Sweep deletes expired tokens. An account created through the local
// provider that never activated dies with its activation token.
func (s *TokenService) Sweep(ctx context.Context) error {
	deleted, err := s.store.DeleteExpiredTokens(ctx, s.now())
	if err != nil {
		return err
	}
	for _, t := range deleted {
		if !t.IsSignUp() {
			continue
		}
		p, err := s.store.FindByEmailAndProvider(ctx, t.Email, s.config.LocalProviderID)
		if err != nil || p.Activated {
			continue
		}
		if err := s.store.Delete(ctx, p.Key); err != nil {
			s.logger.Warn("failed to purge unverified account",
				zap.String("user", p.Key.String()), zap.Error(err))
			continue
		}
		s.logger.Info("purged unverified account", zap.String("email", t.Email))
	}
	return nil
}

// RunSweeper sweeps on the configured interval until ctx is done.
func (s *TokenService) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Warn("token sweep failed", zap.Error(err))
			}
		}
	}
}
