package polyauth

import "fmt"

// PasswordHasher turns plaintext passwords into stored PasswordInfo records
// and verifies candidates against them. Implementations live in the hasher
// package.
type PasswordHasher interface {
	// ID names the algorithm. It is recorded in every PasswordInfo the
	// hasher produces and drives verification dispatch.
	ID() string

	Hash(plain string) (PasswordInfo, error)
	Verify(candidate string, info PasswordInfo) bool
}

// HasherSet holds the hashers known to the application. New passwords are
// hashed with the default; verification dispatches to the hasher named in
// the stored record, so rotating the default algorithm never breaks
// existing users' logins.
type HasherSet struct {
	byID      map[string]PasswordHasher
	defaultID string
}

// NewHasherSet builds a set with def as the default hasher. Legacy hashers
// that must keep verifying old records go in rest.
func NewHasherSet(def PasswordHasher, rest ...PasswordHasher) (*HasherSet, error) {
	s := &HasherSet{byID: make(map[string]PasswordHasher), defaultID: def.ID()}
	for _, h := range append([]PasswordHasher{def}, rest...) {
		if _, dup := s.byID[h.ID()]; dup {
			return nil, fmt.Errorf("polyauth: duplicate password hasher %q", h.ID())
		}
		s.byID[h.ID()] = h
	}
	return s, nil
}

// MustHasherSet is NewHasherSet for composition roots.
func MustHasherSet(def PasswordHasher, rest ...PasswordHasher) *HasherSet {
	s, err := NewHasherSet(def, rest...)
	if err != nil {
		panic(err)
	}
	return s
}

// Hash hashes plain with the default hasher.
func (s *HasherSet) Hash(plain string) (PasswordInfo, error) {
	return s.byID[s.defaultID].Hash(plain)
}

// Verify checks candidate against info using the hasher that produced it.
// Unknown hasher ids verify as false rather than erroring: to a login
// attempt an undecodable hash is just a wrong password.
func (s *HasherSet) Verify(candidate string, info PasswordInfo) bool {
	h, ok := s.byID[info.HasherID]
	if !ok {
		return false
	}
	return h.Verify(candidate, info)
}
