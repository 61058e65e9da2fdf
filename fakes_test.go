package polyauth

import (
	"context"
	"net/url"
	"sync"
	"time"
)

// fakeUserStore is a minimal in-process UserStore for service tests.
type fakeUserStore struct {
	mu       sync.Mutex
	profiles map[UserKey]*Profile
	tokens   map[string]*VerificationToken
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		profiles: make(map[UserKey]*Profile),
		tokens:   make(map[string]*VerificationToken),
	}
}

func (s *fakeUserStore) Find(ctx context.Context, key UserKey) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[key]
	if !ok {
		return nil, ErrNotFound
	}
	c := *p
	return &c, nil
}

func (s *fakeUserStore) FindByEmailAndProvider(ctx context.Context, email, providerID string) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, p := range s.profiles {
		if key.ProviderID == providerID && p.Email == email {
			c := *p
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeUserStore) Save(ctx context.Context, p *Profile, mode SaveMode) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *p
	s.profiles[p.Key] = &c
	return p, nil
}

func (s *fakeUserStore) Link(ctx context.Context, existing, additional *Profile) (*Profile, error) {
	return existing, nil
}

func (s *fakeUserStore) Delete(ctx context.Context, key UserKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[key]; !ok {
		return ErrNotFound
	}
	delete(s.profiles, key)
	return nil
}

func (s *fakeUserStore) SaveToken(ctx context.Context, t *VerificationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *t
	s.tokens[t.UUID] = &c
	return nil
}

func (s *fakeUserStore) FindToken(ctx context.Context, uuid string) (*VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[uuid]
	if !ok {
		return nil, ErrNotFound
	}
	c := *t
	return &c, nil
}

func (s *fakeUserStore) DeleteToken(ctx context.Context, uuid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[uuid]; !ok {
		return ErrNotFound
	}
	delete(s.tokens, uuid)
	return nil
}

func (s *fakeUserStore) DeleteExpiredTokens(ctx context.Context, now time.Time) ([]*VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted []*VerificationToken
	for uuid, t := range s.tokens {
		if !now.Before(t.ExpiresAt) {
			deleted = append(deleted, t)
			delete(s.tokens, uuid)
		}
	}
	return deleted, nil
}

// fakeAuthStore is a minimal in-process AuthenticatorStore.
type fakeAuthStore struct {
	mu             sync.Mutex
	authenticators map[string]*Authenticator
}

func newFakeAuthStore() *fakeAuthStore {
	return &fakeAuthStore{authenticators: make(map[string]*Authenticator)}
}

func (s *fakeAuthStore) SaveAuthenticator(ctx context.Context, a *Authenticator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *a
	s.authenticators[a.ID] = &c
	return nil
}

func (s *fakeAuthStore) FindAuthenticator(ctx context.Context, id string) (*Authenticator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.authenticators[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *a
	return &c, nil
}

func (s *fakeAuthStore) DeleteAuthenticator(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authenticators[id]; !ok {
		return ErrNotFound
	}
	delete(s.authenticators, id)
	return nil
}

func (s *fakeAuthStore) DeleteExpiredAuthenticators(ctx context.Context, now time.Time) (int, error) {
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

// recordingMailer captures the tokens the services email out.
type recordingMailer struct {
	mu          sync.Mutex
	activations []string
	resets      []string
}

func (m *recordingMailer) SendActivationEmail(ctx context.Context, p *Profile, tokenUUID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activations = append(m.activations, tokenUUID)
	return nil
}

func (m *recordingMailer) SendPasswordResetEmail(ctx context.Context, p *Profile, tokenUUID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = append(m.resets, tokenUUID)
	return nil
}

// fakeExchange is a scripted Exchange for provider tests.
type fakeExchange struct {
	params      url.Values
	requestURL  string
	callbackURL string
	sessionID   string
	session     map[string]string
	cookies     map[string]string
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{
		params:      url.Values{},
		callbackURL: "https://app.example.com/auth/test",
		sessionID:   "session-1",
		session:     make(map[string]string),
		cookies:     make(map[string]string),
	}
}

func (e *fakeExchange) Param(name string) string { return e.params.Get(name) }
func (e *fakeExchange) Params() url.Values       { return e.params }
func (e *fakeExchange) RequestURL() string       { return e.requestURL }
func (e *fakeExchange) CallbackURL() string      { return e.callbackURL }

func (e *fakeExchange) SessionID(ctx context.Context) string { return e.sessionID }

func (e *fakeExchange) SessionPut(ctx context.Context, key, value string) { e.session[key] = value }
func (e *fakeExchange) SessionGet(ctx context.Context, key string) string { return e.session[key] }
func (e *fakeExchange) SessionDel(ctx context.Context, key string)        { delete(e.session, key) }

func (e *fakeExchange) Cookie(name string) string { return e.cookies[name] }
func (e *fakeExchange) SetCookie(name, value string, ttl time.Duration) {
	if ttl <= 0 {
		delete(e.cookies, name)
		return
	}
	e.cookies[name] = value
}
