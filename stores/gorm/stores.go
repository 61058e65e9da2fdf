//go:build !wasm
// +build !wasm

package gorm

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pa "github.com/polyauth/polyauth"
)

// AutoMigrate runs database migrations for all polyauth tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&ProfileModel{},
		&LinkModel{},
		&TokenModel{},
		&AuthenticatorModel{},
	)
}

// UserStore implements pa.UserStore using GORM
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Find(ctx context.Context, key pa.UserKey) (*pa.Profile, error) {
	db := s.db.WithContext(ctx)

	var link LinkModel
	err := db.First(&link, "provider_id = ? AND user_id = ?", key.ProviderID, key.UserID).Error
	if err == nil {
		key = pa.UserKey{ProviderID: link.PrimaryProviderID, UserID: link.PrimaryUserID}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var model ProfileModel
	if err := db.First(&model, "provider_id = ? AND user_id = ?", key.ProviderID, key.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pa.ErrNotFound
		}
		return nil, err
	}
	return model.ToProfile()
}

func (s *UserStore) FindByEmailAndProvider(ctx context.Context, email, providerID string) (*pa.Profile, error) {
	var model ProfileModel
	err := s.db.WithContext(ctx).First(&model, "email = ? AND provider_id = ?", email, providerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pa.ErrNotFound
		}
		return nil, err
	}
	return model.ToProfile()
}

func (s *UserStore) Save(ctx context.Context, p *pa.Profile, mode pa.SaveMode) (*pa.Profile, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	model, err := ProfileToModel(p)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(model).Error; err != nil {
		return nil, err
	}
	return model.ToProfile()
}

func (s *UserStore) Link(ctx context.Context, existing, additional *pa.Profile) (*pa.Profile, error) {
	link := &LinkModel{
		ProviderID:        additional.Key.ProviderID,
		UserID:            additional.Key.UserID,
		PrimaryProviderID: existing.Key.ProviderID,
		PrimaryUserID:     existing.Key.UserID,
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(link).Error; err != nil {
		return nil, err
	}
	return s.Find(ctx, existing.Key)
}

func (s *UserStore) Delete(ctx context.Context, key pa.UserKey) error {
	db := s.db.WithContext(ctx)
	res := db.Delete(&ProfileModel{}, "provider_id = ? AND user_id = ?", key.ProviderID, key.UserID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pa.ErrNotFound
	}
	return db.Delete(&LinkModel{}, "primary_provider_id = ? AND primary_user_id = ?", key.ProviderID, key.UserID).Error
}

func (s *UserStore) SaveToken(ctx context.Context, t *pa.VerificationToken) error {
	return s.db.WithContext(ctx).Create(TokenToModel(t)).Error
}

func (s *UserStore) FindToken(ctx context.Context, uuid string) (*pa.VerificationToken, error) {
	var model TokenModel
	if err := s.db.WithContext(ctx).First(&model, "uuid = ?", uuid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pa.ErrNotFound
		}
		return nil, err
	}
	return model.ToToken(), nil
}

func (s *UserStore) DeleteToken(ctx context.Context, uuid string) error {
	res := s.db.WithContext(ctx).Delete(&TokenModel{}, "uuid = ?", uuid)
	if res.Error != nil {
		return res.Error
	}
	// RowsAffected distinguishes the single winning consumer from
	// concurrent losers.
	if res.RowsAffected == 0 {
		return pa.ErrNotFound
	}
	return nil
}

func (s *UserStore) DeleteExpiredTokens(ctx context.Context, now time.Time) ([]*pa.VerificationToken, error) {
	db := s.db.WithContext(ctx)
	var models []TokenModel
	if err := db.Find(&models, "expires_at <= ?", now).Error; err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	if err := db.Delete(&TokenModel{}, "expires_at <= ?", now).Error; err != nil {
		return nil, err
	}
	out := make([]*pa.VerificationToken, 0, len(models))
	for i := range models {
		out = append(out, models[i].ToToken())
	}
	return out, nil
}

// AuthenticatorStore implements pa.AuthenticatorStore using GORM
type AuthenticatorStore struct {
	db *gorm.DB
}

func NewAuthenticatorStore(db *gorm.DB) *AuthenticatorStore {
	return &AuthenticatorStore{db: db}
}

func (s *AuthenticatorStore) SaveAuthenticator(ctx context.Context, a *pa.Authenticator) error {
	model := AuthenticatorToModel(a)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(model).Error
}

func (s *AuthenticatorStore) FindAuthenticator(ctx context.Context, id string) (*pa.Authenticator, error) {
	var model AuthenticatorModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pa.ErrNotFound
		}
		return nil, err
	}
	return model.ToAuthenticator(), nil
}

func (s *AuthenticatorStore) DeleteAuthenticator(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&AuthenticatorModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pa.ErrNotFound
	}
	return nil
}

func (s *AuthenticatorStore) DeleteExpiredAuthenticators(ctx context.Context, now time.Time) (int, error) {
	db := s.db.WithContext(ctx)

	// The idle window depends on each row's own timeout, which SQL date
	// arithmetic cannot express portably, so candidate rows are evaluated
	// here instead. The table holds only live sessions and the sweep runs
	// every few minutes.
	var models []AuthenticatorModel
	if err := db.Select("id", "last_used_at", "expires_at", "idle_timeout").Find(&models).Error; err != nil {
		return 0, err
	}
	var expired []string
	for i := range models {
		m := &models[i]
		if !now.Before(m.ExpiresAt) || now.Sub(m.LastUsedAt) >= time.Duration(m.IdleTimeout) {
			expired = append(expired, m.ID)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}
	res := db.Delete(&AuthenticatorModel{}, "id IN ?", expired)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}
