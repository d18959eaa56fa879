package krypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

const (
	// SaltLengthBytes is the enforced salt length in bytes.
	SaltLengthBytes = 16
	// KeyLengthBytes is the symmetric key length produced by derivation.
	KeyLengthBytes = 32
	// VerifyLengthBytes is the verification hash length stored in the header.
	VerifyLengthBytes = 32

	// ikmLength is the Argon2id output length before the HKDF split.
	ikmLength = 64
)

// Domain-separation tags for splitting the Argon2id output. The verification
// hash and the encryption key come out of the same expensive pass but through
// distinct HKDF info strings, so the stored hash cannot be converted back
// into the key.
var (
	infoVerify  = []byte("lockbox verify v1")
	infoEncrypt = []byte("lockbox encrypt v1")
)

// Argon2Params captures tunable parameters for Argon2id.
type Argon2Params struct {
	MemoryMB    uint32
	Time        uint32
	Parallelism uint8
	SaltLen     int
	KeyLen      uint32
}

// DefaultArgon2Params returns the derivation parameters fixed by format version 1.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		MemoryMB:    64,
		Time:        3,
		Parallelism: 1,
		SaltLen:     SaltLengthBytes,
		KeyLen:      KeyLengthBytes,
	}
}

func validateParams(salt []byte, p Argon2Params) error {
	if len(salt) != SaltLengthBytes {
		return fmt.Errorf("salt must be %d bytes", SaltLengthBytes)
	}
	if p.MemoryMB == 0 {
		return errors.New("memory parameter must be positive")
	}
	if p.Time == 0 {
		return errors.New("time parameter must be positive")
	}
	if p.Parallelism == 0 {
		return errors.New("parallelism parameter must be positive")
	}
	if p.KeyLen != KeyLengthBytes {
		return fmt.Errorf("key length must be %d bytes", KeyLengthBytes)
	}
	return nil
}

// DeriveVaultKeys runs one Argon2id pass over the passphrase and salt and
// splits the result into a verification hash and an encryption key via
// HKDF-SHA256 expansion with distinct info tags. An empty passphrase is a
// valid input; derivation fails only on malformed parameters.
func DeriveVaultKeys(passphrase, salt []byte, p Argon2Params) (verify, key []byte, err error) {
	if err := validateParams(salt, p); err != nil {
		return nil, nil, err
	}

	ikm := argon2.IDKey(passphrase, salt, p.Time, p.MemoryMB*1024, p.Parallelism, ikmLength)
	defer Zero(ikm)

	verify = make([]byte, VerifyLengthBytes)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, ikm, infoVerify), verify); err != nil {
		return nil, nil, fmt.Errorf("expand verification hash: %w", err)
	}

	key = make([]byte, KeyLengthBytes)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, ikm, infoEncrypt), key); err != nil {
		Zero(verify)
		return nil, nil, fmt.Errorf("expand encryption key: %w", err)
	}

	return verify, key, nil
}

// VerifyPassphrase re-derives the verification hash for a candidate
// passphrase and compares it to the stored hash in constant time. The key
// produced alongside the hash is zeroed before returning; callers that need
// it should use DeriveVaultKeys and compare the hash themselves.
func VerifyPassphrase(candidate, salt, storedHash []byte, p Argon2Params) (bool, error) {
	verify, key, err := DeriveVaultKeys(candidate, salt, p)
	if err != nil {
		return false, err
	}
	Zero(key)
	defer Zero(verify)
	return HashEqual(verify, storedHash), nil
}

// HashEqual compares two verification hashes in constant time.
func HashEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// NewRandomSalt returns a cryptographically secure random salt.
func NewRandomSalt() ([]byte, error) {
	salt := make([]byte, SaltLengthBytes)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// Zero overwrites a sensitive byte slice in place to reduce its lifetime in memory.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
