//go:build !wasm
// +build !wasm

package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	pa "github.com/polyauth/polyauth"
)

// JSONMap is a helper type for storing JSON maps in GORM
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, m)
}

// ProfileModel is the GORM model for identity profiles
type ProfileModel struct {
	ProviderID  string `gorm:"primaryKey;size:32"`
	UserID      string `gorm:"primaryKey;size:255"`
	DisplayName string `gorm:"size:255"`
	Email       string `gorm:"size:255;index"`
	AvatarURL   string `gorm:"size:1024"`
	AuthMethod  string `gorm:"size:32"`
	Activated   bool   `gorm:"default:false"`
	LastAccess  time.Time
	// Credentials holds the method-specific credential record. OAuth1
	// consumer secrets are stripped before the profile gets here and
	// re-attached by the provider on load.
	Credentials JSONMap   `gorm:"type:jsonb"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (ProfileModel) TableName() string {
	return "profiles"
}

func (m *ProfileModel) ToProfile() (*pa.Profile, error) {
	p := &pa.Profile{
		Key:         pa.UserKey{ProviderID: m.ProviderID, UserID: m.UserID},
		DisplayName: m.DisplayName,
		Email:       m.Email,
		AvatarURL:   m.AvatarURL,
		AuthMethod:  pa.AuthMethod(m.AuthMethod),
		Activated:   m.Activated,
		LastAccess:  m.LastAccess,
	}
	if len(m.Credentials) == 0 {
		return p, nil
	}
	raw, err := json.Marshal(m.Credentials)
	if err != nil {
		return nil, err
	}
	switch p.AuthMethod {
	case pa.MethodOAuth1, pa.MethodOpenIDOAuthHybrid:
		p.OAuth1 = &pa.OAuth1Info{}
		err = json.Unmarshal(raw, p.OAuth1)
	case pa.MethodOAuth2:
		p.OAuth2 = &pa.OAuth2Info{}
		err = json.Unmarshal(raw, p.OAuth2)
	case pa.MethodUsernamePassword:
		p.Password = &pa.PasswordInfo{}
		err = json.Unmarshal(raw, p.Password)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func ProfileToModel(p *pa.Profile) (*ProfileModel, error) {
	m := &ProfileModel{
		ProviderID:  p.Key.ProviderID,
		UserID:      p.Key.UserID,
		DisplayName: p.DisplayName,
		Email:       p.Email,
		AvatarURL:   p.AvatarURL,
		AuthMethod:  string(p.AuthMethod),
		Activated:   p.Activated,
		LastAccess:  p.LastAccess,
	}
	var creds any
	switch {
	case p.OAuth1 != nil:
		creds = p.OAuth1
	case p.OAuth2 != nil:
		creds = p.OAuth2
	case p.Password != nil:
		creds = p.Password
	}
	if creds != nil {
		raw, err := json.Marshal(creds)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &m.Credentials); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// LinkModel is the GORM model for identities linked to a primary profile
type LinkModel struct {
	ProviderID        string    `gorm:"primaryKey;size:32"`
	UserID            string    `gorm:"primaryKey;size:255"`
	PrimaryProviderID string    `gorm:"size:32;index:idx_links_primary"`
	PrimaryUserID     string    `gorm:"size:255;index:idx_links_primary"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
}

func (LinkModel) TableName() string {
	return "profile_links"
}

// TokenModel is the GORM model for verification tokens
type TokenModel struct {
	UUID      string    `gorm:"primaryKey;size:36"`
	Email     string    `gorm:"size:255;index"`
	Purpose   string    `gorm:"size:32;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	ExpiresAt time.Time `gorm:"index"`
}

func (TokenModel) TableName() string {
	return "verification_tokens"
}

func (m *TokenModel) ToToken() *pa.VerificationToken {
	return &pa.VerificationToken{
		UUID:      m.UUID,
		Email:     m.Email,
		Purpose:   pa.TokenPurpose(m.Purpose),
		CreatedAt: m.CreatedAt,
		ExpiresAt: m.ExpiresAt,
	}
}

func TokenToModel(t *pa.VerificationToken) *TokenModel {
	return &TokenModel{
		UUID:      t.UUID,
		Email:     t.Email,
		Purpose:   string(t.Purpose),
		CreatedAt: t.CreatedAt,
		ExpiresAt: t.ExpiresAt,
	}
}

// AuthenticatorModel is the GORM model for login sessions
type AuthenticatorModel struct {
	ID          string `gorm:"primaryKey;size:64"`
	ProviderID  string `gorm:"size:32"`
	UserID      string `gorm:"size:255;index"`
	CreatedAt   time.Time
	LastUsedAt  time.Time `gorm:"index"`
	ExpiresAt   time.Time `gorm:"index"`
	IdleTimeout int64     // nanoseconds
}

func (AuthenticatorModel) TableName() string {
	return "authenticators"
}

func (m *AuthenticatorModel) ToAuthenticator() *pa.Authenticator {
	return &pa.Authenticator{
		ID:          m.ID,
		UserKey:     pa.UserKey{ProviderID: m.ProviderID, UserID: m.UserID},
		CreatedAt:   m.CreatedAt,
		LastUsedAt:  m.LastUsedAt,
		ExpiresAt:   m.ExpiresAt,
		IdleTimeout: time.Duration(m.IdleTimeout),
	}
}

func AuthenticatorToModel(a *pa.Authenticator) *AuthenticatorModel {
	return &AuthenticatorModel{
		ID:          a.ID,
		ProviderID:  a.UserKey.ProviderID,
		UserID:      a.UserKey.UserID,
		CreatedAt:   a.CreatedAt,
		LastUsedAt:  a.LastUsedAt,
		ExpiresAt:   a.ExpiresAt,
		IdleTimeout: int64(a.IdleTimeout),
	}
}
