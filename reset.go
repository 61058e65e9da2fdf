package polyauth

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// PasswordResetService handles forgotten and deliberate password changes
// for local accounts.
type PasswordResetService struct {
	users      UserStore
	tokens     *TokenService
	hashers    *HasherSet
	mailer     Mailer
	providerID string
	logger     *zap.Logger
}

func NewPasswordResetService(users UserStore, tokens *TokenService, hashers *HasherSet, mailer Mailer, providerID string, logger *zap.Logger) *PasswordResetService {
	if providerID == "" {
		providerID = "userpass"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PasswordResetService{
		users:      users,
		tokens:     tokens,
		hashers:    hashers,
		mailer:     mailer,
		providerID: providerID,
		logger:     logger,
	}
}

// RequestReset emails a reset token when email belongs to an activated
// local account. It returns nil regardless of whether the account exists
// so the endpoint cannot be used to enumerate addresses.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	p, err := s.users.FindByEmailAndProvider(ctx, email, s.providerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Debug("reset requested for unknown email")
			return nil
		}
		return err
	}
	if !p.Activated {
		return nil
	}
	t, err := s.tokens.IssueReset(ctx, email)
	if err != nil {
		return err
	}
	if err := s.mailer.SendPasswordResetEmail(ctx, p, t.UUID); err != nil {
		s.logger.Warn("password reset email failed", zap.Error(err))
	}
	return nil
}

// CheckReset verifies that id is a live reset token without consuming it.
// Form pages call this before showing the new-password form.
func (s *PasswordResetService) CheckReset(ctx context.Context, id string) (*VerificationToken, error) {
	return s.tokens.Peek(ctx, id, PasswordReset)
}

// CompleteReset consumes the reset token id and replaces the password of
// the account it was issued for. The submitted username must belong to
// the token's email address or the token is rejected unconsumed.
func (s *PasswordResetService) CompleteReset(ctx context.Context, id, username, newPassword string) (*Profile, error) {
	t, err := s.tokens.Peek(ctx, id, PasswordReset)
	if err != nil {
		return nil, err
	}
	p, err := s.users.Find(ctx, UserKey{ProviderID: s.providerID, UserID: username})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	if p.Email != t.Email {
		return nil, ErrTokenInvalid
	}
	if _, err := s.tokens.Consume(ctx, id, PasswordReset); err != nil {
		return nil, err
	}
	info, err := s.hashers.Hash(newPassword)
	if err != nil {
		return nil, err
	}
	p.Password = &info
	if _, err := s.users.Save(ctx, p, SaveModePasswordChange); err != nil {
		return nil, err
	}
	s.logger.Info("password reset completed", zap.String("user", p.Key.String()))
	return p, nil
}

// ChangePassword replaces the password of a logged-in local account after
// checking the current one.
func (s *PasswordResetService) ChangePassword(ctx context.Context, key UserKey, current, next string) error {
	p, err := s.users.Find(ctx, key)
	if err != nil {
		return err
	}
	if p.Password == nil || !s.hashers.Verify(current, *p.Password) {
		return NewAuthError(ErrCodeBadCredentials, "current password is incorrect")
	}
	info, err := s.hashers.Hash(next)
	if err != nil {
		return err
	}
	p.Password = &info
	if _, err := s.users.Save(ctx, p, SaveModePasswordChange); err != nil {
		return err
	}
	s.logger.Info("password changed", zap.String("user", key.String()))
	return nil
}
