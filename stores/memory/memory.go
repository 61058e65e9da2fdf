// Package memory provides map-backed reference implementations of the
// PolyAuth stores. They are safe for concurrent use and suited to tests
// and single-process deployments; anything else wants stores/gorm.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/polyauth/polyauth"
)

// UserStore keeps profiles, identity links and verification tokens in
// process memory.
type UserStore struct {
	mu       sync.RWMutex
	profiles map[polyauth.UserKey]*polyauth.Profile
	// links maps an additional identity to the primary profile it was
	// attached to.
	links  map[polyauth.UserKey]polyauth.UserKey
	tokens map[string]*polyauth.VerificationToken
}

func NewUserStore() *UserStore {
	return &UserStore{
		profiles: make(map[polyauth.UserKey]*polyauth.Profile),
		links:    make(map[polyauth.UserKey]polyauth.UserKey),
		tokens:   make(map[string]*polyauth.VerificationToken),
	}
}

func cloneProfile(p *polyauth.Profile) *polyauth.Profile {
	c := *p
	if p.OAuth1 != nil {
		v := *p.OAuth1
		c.OAuth1 = &v
	}
	if p.OAuth2 != nil {
		v := *p.OAuth2
		c.OAuth2 = &v
	}
	if p.Password != nil {
		v := *p.Password
		c.Password = &v
	}
	return &c
}

func (s *UserStore) Find(ctx context.Context, key polyauth.UserKey) (*polyauth.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if primary, ok := s.links[key]; ok {
		key = primary
	}
	p, ok := s.profiles[key]
	if !ok {
		return nil, polyauth.ErrNotFound
	}
	return cloneProfile(p), nil
}

func (s *UserStore) FindByEmailAndProvider(ctx context.Context, email, providerID string) (*polyauth.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for key, p := range s.profiles {
		if key.ProviderID == providerID && p.Email == email {
			return cloneProfile(p), nil
		}
	}
	return nil, polyauth.ErrNotFound
}

func (s *UserStore) Save(ctx context.Context, p *polyauth.Profile, mode polyauth.SaveMode) (*polyauth.Profile, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.Key] = cloneProfile(p)
	return cloneProfile(p), nil
}

func (s *UserStore) Link(ctx context.Context, existing, additional *polyauth.Profile) (*polyauth.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	primary, ok := s.profiles[existing.Key]
	if !ok {
		return nil, polyauth.ErrNotFound
	}
	s.links[additional.Key] = existing.Key
	return cloneProfile(primary), nil
}

func (s *UserStore) Delete(ctx context.Context, key polyauth.UserKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[key]; !ok {
		return polyauth.ErrNotFound
	}
	delete(s.profiles, key)
	for additional, primary := range s.links {
		if primary == key {
			delete(s.links, additional)
		}
	}
	return nil
}

func (s *UserStore) SaveToken(ctx context.Context, t *polyauth.VerificationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := *t
	s.tokens[t.UUID] = &v
	return nil
}

func (s *UserStore) FindToken(ctx context.Context, uuid string) (*polyauth.VerificationToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[uuid]
	if !ok {
		return nil, polyauth.ErrNotFound
	}
	v := *t
	return &v, nil
}

func (s *UserStore) DeleteToken(ctx context.Context, uuid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[uuid]; !ok {
		return polyauth.ErrNotFound
	}
	delete(s.tokens, uuid)
	return nil
}

func (s *UserStore) DeleteExpiredTokens(ctx context.Context, now time.Time) ([]*polyauth.VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted []*polyauth.VerificationToken
	for uuid, t := range s.tokens {
		if !now.Before(t.ExpiresAt) {
			deleted = append(deleted, t)
			delete(s.tokens, uuid)
		}
	}
	return deleted, nil
}

// AuthenticatorStore keeps authenticators in process memory.
type AuthenticatorStore struct {
	mu             sync.RWMutex
	authenticators map[string]*polyauth.Authenticator
}

func NewAuthenticatorStore() *AuthenticatorStore {
	return &AuthenticatorStore{authenticators: make(map[string]*polyauth.Authenticator)}
}

func (s *AuthenticatorStore) SaveAuthenticator(ctx context.Context, a *polyauth.Authenticator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := *a
	s.authenticators[a.ID] = &v
	return nil
}

func (s *AuthenticatorStore) FindAuthenticator(ctx context.Context, id string) (*polyauth.Authenticator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.authenticators[id]
	if !ok {
		return nil, polyauth.ErrNotFound
	}
	v := *a
	return &v, nil
}

func (s *AuthenticatorStore) DeleteAuthenticator(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authenticators[id]; !ok {
		return polyauth.ErrNotFound
	}
	delete(s.authenticators, id)
	return nil
}

func (s *AuthenticatorStore) DeleteExpiredAuthenticators(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, a := range s.authenticators {
		if !now.Before(a.ExpiresAt) || now.Sub(a.LastUsedAt) >= a.IdleTimeout {
			delete(s.authenticators, id)
			n++
		}
	}
	return n, nil
}
