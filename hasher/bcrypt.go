// Package hasher provides the password hashing algorithms used by the
// local username/password provider.
package hasher

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/polyauth/polyauth"
)

// BcryptID names the bcrypt hasher in stored password records.
const BcryptID = "bcrypt"

// Bcrypt hashes passwords with bcrypt. The salt lives inside the encoded
// hash so PasswordInfo.Salt stays empty.
type Bcrypt struct {
	cost int
}

// NewBcrypt returns a bcrypt hasher. A cost below bcrypt.MinCost selects
// bcrypt.DefaultCost.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

func (b *Bcrypt) ID() string { return BcryptID }

func (b *Bcrypt) Hash(plain string) (polyauth.PasswordInfo, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), b.cost)
	if err != nil {
		return polyauth.PasswordInfo{}, err
	}
	return polyauth.PasswordInfo{HasherID: BcryptID, Hash: string(h)}, nil
}

func (b *Bcrypt) Verify(candidate string, info polyauth.PasswordInfo) bool {
	return bcrypt.CompareHashAndPassword([]byte(info.Hash), []byte(candidate)) == nil
}
