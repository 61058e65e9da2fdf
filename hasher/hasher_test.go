package hasher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/polyauth/polyauth"
)

// Low-cost parameters keep the tests fast; production uses the defaults.
var testArgon2 = Argon2Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}

func TestBcrypt(t *testing.T) {
	h := NewBcrypt(bcrypt.MinCost)

	info, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.Equal(t, BcryptID, info.HasherID)
	assert.Empty(t, info.Salt, "bcrypt embeds the salt in the hash")

	assert.True(t, h.Verify("s3cret", info))
	assert.False(t, h.Verify("wrong", info))
	assert.False(t, h.Verify("s3cret", polyauth.PasswordInfo{HasherID: BcryptID, Hash: "garbage"}))
}

func TestBcryptCostFloor(t *testing.T) {
	h := NewBcrypt(0)
	assert.Equal(t, bcrypt.DefaultCost, h.cost)
}

func TestArgon2(t *testing.T) {
	h := NewArgon2(testArgon2)

	info, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.Equal(t, Argon2ID, info.HasherID)
	assert.True(t, strings.HasPrefix(info.Hash, "$argon2id$v=19$m=8192,t=1,p=1$"), info.Hash)

	assert.True(t, h.Verify("s3cret", info))
	assert.False(t, h.Verify("wrong", info))
}

func TestArgon2HashesAreSalted(t *testing.T) {
	h := NewArgon2(testArgon2)
	a, err := h.Hash("s3cret")
	require.NoError(t, err)
	b, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, a.Hash, b.Hash)
}

func TestArgon2VerifyUsesStoredParams(t *testing.T) {
	// A record hashed with different parameters than the verifier's own
	// still verifies, since the PHC string carries them.
	old := NewArgon2(Argon2Params{Memory: 16 * 1024, Time: 2, Parallelism: 1, KeyLen: 32})
	info, err := old.Hash("s3cret")
	require.NoError(t, err)

	h := NewArgon2(testArgon2)
	assert.True(t, h.Verify("s3cret", info))
}

func TestArgon2RejectsMalformedRecords(t *testing.T) {
	h := NewArgon2(testArgon2)
	for _, hash := range []string{
		"",
		"$argon2id$v=19$m=8192,t=1,p=1$only-four-parts",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$bogus$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$aGFzaA",
	} {
		assert.False(t, h.Verify("s3cret", polyauth.PasswordInfo{HasherID: Argon2ID, Hash: hash}), hash)
	}
}

func TestArgon2ZeroParamsFallBackToDefaults(t *testing.T) {
	h := NewArgon2(Argon2Params{})
	assert.Equal(t, DefaultArgon2Params, h.params)
}
