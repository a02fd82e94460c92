// Package service defines interfaces for core, stateless domain logic.
// These services encapsulate business rules that don't naturally fit within a single entity.
package service

// CredentialHasher defines the interface for peppered password hashing and
// verification. It abstracts the underlying memory-hard algorithm, keeping
// the domain pure. Implementations are immutable after construction and
// safe for concurrent use; each call is CPU- and memory-intensive by
// design, so callers should treat it as a blocking operation.
type CredentialHasher interface {
	// Hash generates a fresh salted, peppered credential record from a
	// plaintext password. Two calls with the same password produce two
	// different encoded records.
	Hash(password string) (string, error)

	// Verify reports whether a plaintext password matches an encoded
	// credential record. It returns false, never an error, for empty or
	// malformed inputs; wrong password and corrupt record are
	// indistinguishable from the return value.
	Verify(password, encoded string) bool

	// NeedsRehash reports whether an encoded record was produced with
	// parameters that differ from the hasher's current configuration, or
	// cannot be parsed at all. Advisory only; persisting a fresh hash is
	// the caller's job.
	NeedsRehash(encoded string) bool
}
