package polyauth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// SignUpForm is a new local account request.
type SignUpForm struct {
	Username    string
	DisplayName string
	Email       string
	Password    string
}

// SignupService creates local accounts and walks them through email
// activation. Accounts start deactivated and cannot log in until the
// activation token is consumed.
type SignupService struct {
	users      UserStore
	tokens     *TokenService
	hashers    *HasherSet
	mailer     Mailer
	providerID string
	logger     *zap.Logger
}

func NewSignupService(users UserStore, tokens *TokenService, hashers *HasherSet, mailer Mailer, providerID string, logger *zap.Logger) *SignupService {
	if providerID == "" {
		providerID = "userpass"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignupService{
		users:      users,
		tokens:     tokens,
		hashers:    hashers,
		mailer:     mailer,
		providerID: providerID,
		logger:     logger,
	}
}

func (s *SignupService) validate(ctx context.Context, form SignUpForm) error {
	fields := make(map[string]string)
	if strings.TrimSpace(form.Username) == "" {
		fields["username"] = "username is required"
	}
	if strings.TrimSpace(form.Email) == "" {
		fields["email"] = "email is required"
	} else if !strings.Contains(form.Email, "@") {
		fields["email"] = "email is not valid"
	}
	if form.Password == "" {
		fields["password"] = "password is required"
	}
	if _, ok := fields["username"]; !ok {
		_, err := s.users.Find(ctx, UserKey{ProviderID: s.providerID, UserID: form.Username})
		if err == nil {
			fields["username"] = "username is already taken"
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	if len(fields) > 0 {
		return NewFieldErrors(fields)
	}
	return nil
}

// CreateAccount validates form, stores a deactivated profile and emails an
// activation token. Validation problems come back as an AuthError carrying
// per-field messages.
func (s *SignupService) CreateAccount(ctx context.Context, form SignUpForm) (*Profile, error) {
	if err := s.validate(ctx, form); err != nil {
		return nil, err
	}
	info, err := s.hashers.Hash(form.Password)
	if err != nil {
		return nil, err
	}
	displayName := form.DisplayName
	if displayName == "" {
		displayName = form.Username
	}
	p := &Profile{
		Key:         UserKey{ProviderID: s.providerID, UserID: form.Username},
		DisplayName: displayName,
		Email:       form.Email,
		AuthMethod:  MethodUsernamePassword,
		Activated:   false,
		Password:    &info,
	}
	if _, err := s.users.Save(ctx, p, SaveModeSignUp); err != nil {
		return nil, err
	}
	t, err := s.tokens.IssueActivation(ctx, form.Email)
	if err != nil {
		return nil, err
	}
	if err := s.mailer.SendActivationEmail(ctx, p, t.UUID); err != nil {
		// The account exists and the token is valid. A resend beats a
		// failed sign-up here.
		s.logger.Warn("activation email failed", zap.String("email", form.Email), zap.Error(err))
	}
	s.logger.Info("account created", zap.String("user", p.Key.String()))
	return p, nil
}

// Activate consumes the activation token id and marks the matching local
// account as activated. Unknown, expired or reused tokens return
// ErrTokenInvalid.
func (s *SignupService) Activate(ctx context.Context, id string) (*Profile, error) {
	t, err := s.tokens.Consume(ctx, id, SignUpActivation)
	if err != nil {
		return nil, err
	}
	p, err := s.users.FindByEmailAndProvider(ctx, t.Email, s.providerID)
	if err != nil {
		return nil, err
	}
	p.Activated = true
	if _, err := s.users.Save(ctx, p, SaveModeLoggedIn); err != nil {
		return nil, err
	}
	s.logger.Info("account activated", zap.String("user", p.Key.String()))
	return p, nil
}
