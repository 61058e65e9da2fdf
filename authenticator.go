package polyauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Authenticator is a server-side login session. Its id is an opaque random
// value handed to the client (normally in a cookie); everything else stays
// on the server.
type Authenticator struct {
	ID          string        `json:"id"`
	UserKey     UserKey       `json:"userKey"`
	CreatedAt   time.Time     `json:"createdAt"`
	LastUsedAt  time.Time     `json:"lastUsedAt"`
	ExpiresAt   time.Time     `json:"expiresAt"`
	IdleTimeout time.Duration `json:"idleTimeout"`
}

// valid reports whether the authenticator is usable at now. Both windows
// must hold: the absolute lifetime and the sliding idle window.
func (a *Authenticator) valid(now time.Time) bool {
	if !now.Before(a.ExpiresAt) {
		return false
	}
	return now.Sub(a.LastUsedAt) < a.IdleTimeout
}

// AuthenticatorConfig controls authenticator lifetimes.
type AuthenticatorConfig struct {
	// AbsoluteTimeout bounds the total session length. Default 12h.
	AbsoluteTimeout time.Duration
	// IdleTimeout bounds the gap between uses. Default 30m.
	IdleTimeout time.Duration
	// SweepInterval is how often RunSweeper scans for expired rows.
	// Default 5m.
	SweepInterval time.Duration
}

func (c AuthenticatorConfig) withDefaults() AuthenticatorConfig {
	if c.AbsoluteTimeout <= 0 {
		c.AbsoluteTimeout = 12 * time.Hour
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 5 * time.Minute
	}
	return c
}

// AuthenticatorService creates, validates and retires authenticators.
type AuthenticatorService struct {
	store  AuthenticatorStore
	config AuthenticatorConfig
	logger *zap.Logger

	// now is replaceable so lifetime rules can be tested without sleeping.
	now func() time.Time
}

func NewAuthenticatorService(store AuthenticatorStore, config AuthenticatorConfig, logger *zap.Logger) *AuthenticatorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthenticatorService{
		store:  store,
		config: config.withDefaults(),
		logger: logger,
		now:    time.Now,
	}
}

// newAuthenticatorID returns 32 bytes of hex-encoded randomness. The id is
// a bearer credential, never derived from user data.
func newAuthenticatorID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Create mints a fresh authenticator for key and persists it.
func (s *AuthenticatorService) Create(ctx context.Context, key UserKey) (*Authenticator, error) {
	id, err := newAuthenticatorID()
	if err != nil {
		return nil, err
	}
	now := s.now()
	a := &Authenticator{
		ID:          id,
		UserKey:     key,
		CreatedAt:   now,
		LastUsedAt:  now,
		ExpiresAt:   now.Add(s.config.AbsoluteTimeout),
		IdleTimeout: s.config.IdleTimeout,
	}
	if err := s.store.SaveAuthenticator(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Debug("authenticator created", zap.String("user", key.String()))
	return a, nil
}

// Touch looks up id, checks both expiry windows and slides the idle window
// forward. The absolute expiry never moves. Unknown ids, expired sessions
// and idle sessions all come back as ErrAuthenticatorInvalid so callers
// cannot distinguish them.
func (s *AuthenticatorService) Touch(ctx context.Context, id string) (*Authenticator, error) {
	a, err := s.store.FindAuthenticator(ctx, id)
	if err != nil {
		return nil, ErrAuthenticatorInvalid
	}
	now := s.now()
	if !a.valid(now) {
		// Expired rows are garbage either way; drop them eagerly so the
		// id cannot be probed again.
		_ = s.store.DeleteAuthenticator(ctx, id)
		return nil, ErrAuthenticatorInvalid
	}
	a.LastUsedAt = now
	if err := s.store.SaveAuthenticator(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Discard removes id. Discarding an unknown id is not an error.
func (s *AuthenticatorService) Discard(ctx context.Context, id string) error {
	err := s.store.DeleteAuthenticator(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// Sweep deletes every authenticator whose absolute or idle window has
// passed and returns how many went.
func (s *AuthenticatorService) Sweep(ctx context.Context) (int, error) {
	n, err := s.store.DeleteExpiredAuthenticators(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Debug("swept expired authenticators", zap.Int("count", n))
	}
	return n, nil
}

// RunSweeper sweeps on the configured interval until ctx is done.
func (s *AuthenticatorService) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Warn("authenticator sweep failed", zap.Error(err))
			}
		}
	}
}
