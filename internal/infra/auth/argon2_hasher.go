// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"

	"passguard/config"
	domainerrors "passguard/internal/domain/errors"
	"passguard/internal/domain/service"
)

const (
	// DefaultIterations is the default number of passes over memory.
	DefaultIterations uint32 = 3

	// DefaultMemoryKiB is the default memory cost in KiB (64 MiB).
	DefaultMemoryKiB uint32 = 64 * 1024

	// DefaultParallelism is the default degree of parallelism within a
	// single derivation. It controls threads per call, not cross-call
	// concurrency.
	DefaultParallelism uint8 = 4

	// DefaultKeyLength is the default derived key length in bytes.
	DefaultKeyLength uint32 = 32

	// DefaultSaltLength is the default random salt length in bytes.
	DefaultSaltLength uint32 = 16

	// DefaultMinPepperLength is the entropy floor for the pepper in bytes.
	DefaultMinPepperLength = 32

	// pepperEntropyBytes is the amount of randomness in a generated pepper:
	// 32 bytes = 256 bits, rendered as 64 hex characters.
	pepperEntropyBytes = 32

	algorithmID = "argon2id"
)

// Params holds the Argon2id cost parameters fixed at hasher construction.
// They only affect newly produced records; verification always uses the
// parameters embedded in the record being checked.
type Params struct {
	Iterations  uint32
	MemoryKiB   uint32
	Parallelism uint8
	KeyLength   uint32
	SaltLength  uint32
}

// DefaultParams returns the production cost parameters. They favor
// brute-force resistance over latency; callers needing different tradeoffs
// supply their own.
func DefaultParams() Params {
	return Params{
		Iterations:  DefaultIterations,
		MemoryKiB:   DefaultMemoryKiB,
		Parallelism: DefaultParallelism,
		KeyLength:   DefaultKeyLength,
		SaltLength:  DefaultSaltLength,
	}
}

// argon2Hasher is a concrete implementation of the CredentialHasher
// interface using peppered Argon2id. Immutable after construction and safe
// for concurrent use.
type argon2Hasher struct {
	pepper string
	params Params
}

// NewArgon2Hasher is the constructor used by Fx. It resolves the pepper and
// cost parameters from the loaded configuration; a missing or too-short
// pepper is a fatal configuration error that prevents startup.
func NewArgon2Hasher(cfg *config.Config) (service.CredentialHasher, error) {
	security := cfg.Security
	if security == nil {
		security = &config.SecurityConfig{}
	}

	params := Params{
		Iterations:  security.Argon2.Iterations,
		MemoryKiB:   security.Argon2.MemoryKiB,
		Parallelism: security.Argon2.Parallelism,
		KeyLength:   security.Argon2.KeyLength,
		SaltLength:  security.Argon2.SaltLength,
	}

	return NewArgon2HasherWithPepper(security.Pepper, security.MinPepperLength, params)
}

// NewArgon2HasherWithPepper constructs a hasher from an explicit pepper.
// Zero-valued cost parameters fall back to the defaults.
func NewArgon2HasherWithPepper(pepper string, minPepperLength int, params Params) (service.CredentialHasher, error) {
	if minPepperLength <= 0 {
		minPepperLength = DefaultMinPepperLength
	}
	if pepper == "" {
		return nil, domainerrors.ErrPepperMissing.WrapMessage(
			"set PASSWORD_PEPPER; generate one with the peppergen command")
	}
	if len(pepper) < minPepperLength {
		return nil, domainerrors.ErrPepperTooShort.WrapMessage(
			fmt.Sprintf("pepper must be at least %d bytes, got %d", minPepperLength, len(pepper)))
	}

	if params.Iterations == 0 {
		params.Iterations = DefaultIterations
	}
	if params.MemoryKiB == 0 {
		params.MemoryKiB = DefaultMemoryKiB
	}
	if params.Parallelism == 0 {
		params.Parallelism = DefaultParallelism
	}
	if params.KeyLength == 0 {
		params.KeyLength = DefaultKeyLength
	}
	if params.SaltLength == 0 {
		params.SaltLength = DefaultSaltLength
	}

	return &argon2Hasher{
		pepper: pepper,
		params: params,
	}, nil
}

// pepperedInput prepends the pepper to the password bytes. This is plain
// concatenation, not a keyed MAC; callers inherit that semantics.
func (h *argon2Hasher) pepperedInput(password string) []byte {
	return []byte(h.pepper + password)
}

// Hash generates a fresh salted, peppered Argon2id credential record.
// The returned string is self-describing: algorithm id, version, cost
// parameters, salt and digest all travel inside it, so it can be verified
// later without external parameter lookup.
func (h *argon2Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", domainerrors.ErrEmptyPassword.WrapMessage("refusing to hash an empty password")
	}

	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", domainerrors.ErrPasswordHashFailed.WrapMessage("failed to generate salt")
	}

	digest := argon2.IDKey(
		h.pepperedInput(password),
		salt,
		h.params.Iterations,
		h.params.MemoryKiB,
		h.params.Parallelism,
		h.params.KeyLength,
	)

	return encodeRecord(h.params.Iterations, h.params.MemoryKiB, h.params.Parallelism, salt, digest), nil
}

// Verify reapplies the pepper and recomputes the derivation using the
// parameters embedded in the encoded record. Empty inputs, parse failures
// and digest mismatches all yield false uniformly.
func (h *argon2Hasher) Verify(password, encoded string) bool {
	if password == "" || encoded == "" {
		return false
	}

	record, err := decodeRecord(encoded)
	if err != nil {
		return false
	}
	if record.version != argon2.Version {
		return false
	}

	computed := argon2.IDKey(
		h.pepperedInput(password),
		record.salt,
		record.iterations,
		record.memoryKiB,
		record.parallelism,
		record.keyLength,
	)

	// Constant-time compare over the digest; the derivation cost itself is
	// parameter-driven and therefore uniform for a given record.
	return subtle.ConstantTimeCompare(computed, record.digest) == 1
}

// NeedsRehash reports whether the record's embedded parameters differ from
// the hasher's current configuration. Unparseable records count as stale.
func (h *argon2Hasher) NeedsRehash(encoded string) bool {
	record, err := decodeRecord(encoded)
	if err != nil {
		return true
	}

	return record.version != argon2.Version ||
		record.iterations != h.params.Iterations ||
		record.memoryKiB != h.params.MemoryKiB ||
		record.parallelism != h.params.Parallelism ||
		record.keyLength != h.params.KeyLength ||
		uint32(len(record.salt)) != h.params.SaltLength
}

// GeneratePepper produces a cryptographically secure random pepper with
// 256 bits of entropy, rendered as a 64-character hex string. Pure and
// stateless; intended for operator-driven provisioning.
func GeneratePepper() string {
	buf := make([]byte, pepperEntropyBytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		// crypto/rand does not fail on supported platforms.
		panic(err)
	}

	return hex.EncodeToString(buf)
}

// record holds parameters and raw values decoded from an encoded
// credential string.
type record struct {
	version     int
	iterations  uint32
	memoryKiB   uint32
	parallelism uint8
	keyLength   uint32
	salt        []byte
	digest      []byte
}

// encodeRecord serialises a credential record in PHC string format:
//
//	$argon2id$v=19$m=65536,t=3,p=4$<salt_base64>$<digest_base64>
//
// Base64 uses the standard alphabet without padding, matching the Argon2
// reference implementation so records are portable across stacks.
func encodeRecord(iterations, memoryKiB uint32, parallelism uint8, salt, digest []byte) string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		memoryKiB,
		iterations,
		parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	)
}

// decodeRecord parses a PHC credential string back into its components.
// Expected shape: 6 dollar-delimited segments, the first empty.
func decodeRecord(encoded string) (*record, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("malformed credential record: expected 5 segments, got %d", len(parts)-1)
	}
	if parts[1] != algorithmID {
		return nil, fmt.Errorf("unsupported algorithm %q", parts[1])
	}

	version, err := parseKV(parts[2], "v")
	if err != nil {
		return nil, err
	}

	params, err := parseParamSegment(parts[3])
	if err != nil {
		return nil, err
	}
	memoryKiB, ok1 := params["m"]
	iterations, ok2 := params["t"]
	parallelism, ok3 := params["p"]
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("missing m/t/p in parameter segment %q", parts[3])
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, fmt.Errorf("invalid salt encoding: %w", err)
	}

	digest, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, fmt.Errorf("invalid digest encoding: %w", err)
	}
	if len(digest) == 0 {
		return nil, fmt.Errorf("empty digest")
	}

	return &record{
		version:     int(version),
		iterations:  uint32(iterations),
		memoryKiB:   uint32(memoryKiB),
		parallelism: uint8(parallelism),
		keyLength:   uint32(len(digest)),
		salt:        salt,
		digest:      digest,
	}, nil
}

// parseKV parses a "key=value" segment and returns the numeric value.
func parseKV(s, key string) (uint64, error) {
	prefix := key + "="
	if !strings.HasPrefix(s, prefix) {
		return 0, fmt.Errorf("expected %q prefix in %q", prefix, s)
	}

	return strconv.ParseUint(s[len(prefix):], 10, 32)
}

// parseParamSegment splits "m=65536,t=3,p=4" into a map.
func parseParamSegment(s string) (map[string]uint64, error) {
	out := make(map[string]uint64)
	for _, kv := range strings.Split(s, ",") {
		eq := strings.IndexByte(kv, '=')
		if eq <= 0 {
			return nil, fmt.Errorf("malformed parameter %q", kv)
		}
		v, err := strconv.ParseUint(kv[eq+1:], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("non-numeric value in %q: %w", kv, err)
		}
		out[kv[:eq]] = v
	}

	return out, nil
}
