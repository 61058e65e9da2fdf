package hasher

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/polyauth/polyauth"
)

// Argon2ID names the argon2id hasher in stored password records.
const Argon2ID = "argon2id"

// Argon2Params tunes argon2id. Memory is in KiB.
type Argon2Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	KeyLen      uint32
}

// DefaultArgon2Params follows the RFC 9106 low-memory recommendation.
var DefaultArgon2Params = Argon2Params{Memory: 64 * 1024, Time: 3, Parallelism: 1, KeyLen: 32}

// Argon2 hashes passwords with argon2id and encodes them as PHC strings:
// $argon2id$v=19$m=...,t=...,p=...$<saltB64>$<dkB64>.
type Argon2 struct {
	params Argon2Params
}

// NewArgon2 returns an argon2id hasher. Zero params select
// DefaultArgon2Params.
func NewArgon2(params Argon2Params) *Argon2 {
	if params == (Argon2Params{}) {
		params = DefaultArgon2Params
	}
	return &Argon2{params: params}
}

func (a *Argon2) ID() string { return Argon2ID }

func (a *Argon2) Hash(plain string) (polyauth.PasswordInfo, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return polyauth.PasswordInfo{}, err
	}
	p := a.params
	dk := argon2.IDKey([]byte(plain), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
	phc := fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		p.Memory, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(dk),
	)
	return polyauth.PasswordInfo{HasherID: Argon2ID, Hash: phc}, nil
}

func (a *Argon2) Verify(candidate string, info polyauth.PasswordInfo) bool {
	parts := strings.Split(info.Hash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" || parts[2] != "v=19" {
		return false
	}
	var m, t uint32
	var p uint8
	if n, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil || n != 3 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	stored, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}
	key := argon2.IDKey([]byte(candidate), salt, t, m, p, uint32(len(stored)))
	return subtle.ConstantTimeCompare(key, stored) == 1
}
