package auth

import (
	"encoding/hex"
	"strings"
	"testing"

	domainerrors "passguard/internal/domain/errors"
	"passguard/internal/domain/service"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPepper = "unit-test-pepper-0123456789abcdef"

// fastParams keeps the memory cost low so the test suite stays quick; the
// production defaults are exercised in the canonical format test below.
func fastParams() Params {
	return Params{
		Iterations:  1,
		MemoryKiB:   1024,
		Parallelism: 1,
		KeyLength:   32,
		SaltLength:  16,
	}
}

func newTestHasher(t *testing.T, pepper string) service.CredentialHasher {
	t.Helper()

	hasher, err := NewArgon2HasherWithPepper(pepper, 0, fastParams())
	require.NoError(t, err)

	return hasher
}

func TestArgon2Hasher_HashAndVerify(t *testing.T) {
	hasher := newTestHasher(t, testPepper)

	password := "StrongPass123!"
	encoded, err := hasher.Hash(password)
	require.NoError(t, err)
	assert.NotEmpty(t, encoded)
	assert.NotEqual(t, password, encoded)

	assert.True(t, hasher.Verify(password, encoded))
	assert.False(t, hasher.Verify("WrongPassword123!", encoded))
}

func TestArgon2Hasher_FreshSaltPerCall(t *testing.T) {
	hasher := newTestHasher(t, testPepper)

	password := "SamePasswordTwice!"
	first, err := hasher.Hash(password)
	require.NoError(t, err)
	second, err := hasher.Hash(password)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, hasher.Verify(password, first))
	assert.True(t, hasher.Verify(password, second))
}

func TestArgon2Hasher_DifferentPeppersRejectEachOther(t *testing.T) {
	hasherA := newTestHasher(t, strings.Repeat("a", 32))
	hasherB := newTestHasher(t, strings.Repeat("b", 32))

	password := "SharedPassword123!"
	fromA, err := hasherA.Hash(password)
	require.NoError(t, err)
	fromB, err := hasherB.Hash(password)
	require.NoError(t, err)

	assert.True(t, hasherA.Verify(password, fromA))
	assert.True(t, hasherB.Verify(password, fromB))
	assert.False(t, hasherA.Verify(password, fromB))
	assert.False(t, hasherB.Verify(password, fromA))
}

func TestArgon2Hasher_EmptyInputs(t *testing.T) {
	hasher := newTestHasher(t, testPepper)

	encoded, err := hasher.Hash("secret-password")
	require.NoError(t, err)

	assert.False(t, hasher.Verify("", encoded))
	assert.False(t, hasher.Verify("secret-password", ""))
	assert.False(t, hasher.Verify("", ""))

	_, err = hasher.Hash("")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrEmptyPassword))
}

func TestArgon2Hasher_VerifyMalformedRecord(t *testing.T) {
	hasher := newTestHasher(t, testPepper)

	malformed := []string{
		"not-a-record",
		"$argon2id$v=19$m=1024,t=1,p=1$short",
		"$bcrypt$v=19$m=1024,t=1,p=1$c2FsdA$ZGlnZXN0",
		"$argon2id$v=19$m=abc,t=1,p=1$c2FsdA$ZGlnZXN0",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$ZGlnZXN0",
		"$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$",
	}

	for _, encoded := range malformed {
		assert.False(t, hasher.Verify("whatever", encoded), "expected false for %q", encoded)
		assert.True(t, hasher.NeedsRehash(encoded), "expected rehash needed for %q", encoded)
	}
}

func TestArgon2Hasher_NeedsRehash(t *testing.T) {
	hasher := newTestHasher(t, testPepper)

	fresh, err := hasher.Hash("RehashCandidate1!")
	require.NoError(t, err)
	assert.False(t, hasher.NeedsRehash(fresh))

	// A record produced under weaker parameters is stale for this hasher,
	// but still verifies because its parameters travel with it.
	weaker, err := NewArgon2HasherWithPepper(testPepper, 0, Params{
		Iterations:  1,
		MemoryKiB:   512,
		Parallelism: 1,
		KeyLength:   32,
		SaltLength:  16,
	})
	require.NoError(t, err)

	stale, err := weaker.Hash("RehashCandidate1!")
	require.NoError(t, err)
	assert.True(t, hasher.NeedsRehash(stale))
	assert.True(t, hasher.Verify("RehashCandidate1!", stale))
}

func TestArgon2Hasher_CanonicalRecordFormat(t *testing.T) {
	pepper := strings.Repeat("a", 64)
	hasher, err := NewArgon2HasherWithPepper(pepper, 0, DefaultParams())
	require.NoError(t, err)

	encoded, err := hasher.Hash("CorrectHorse1!")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=65536,t=3,p=4$"), "unexpected record prefix: %s", encoded)
	assert.Len(t, strings.Split(encoded, "$"), 6)

	assert.True(t, hasher.Verify("CorrectHorse1!", encoded))
	assert.False(t, hasher.Verify("correcthorse1!", encoded))
}

func TestNewArgon2HasherWithPepper_ConfigurationErrors(t *testing.T) {
	_, err := NewArgon2HasherWithPepper("", 0, fastParams())
	assert.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrPepperMissing))

	_, err = NewArgon2HasherWithPepper("too-short", 0, fastParams())
	assert.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrPepperTooShort))

	// A custom floor below 32 is honored.
	_, err = NewArgon2HasherWithPepper("sixteen-chars-ok", 16, fastParams())
	assert.NoError(t, err)
}

func TestGeneratePepper(t *testing.T) {
	first := GeneratePepper()
	second := GeneratePepper()

	assert.Len(t, first, 64)
	assert.NotEqual(t, first, second)

	raw, err := hex.DecodeString(first)
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	// A generated pepper always satisfies the default entropy floor.
	_, err = NewArgon2HasherWithPepper(first, 0, fastParams())
	assert.NoError(t, err)
}
