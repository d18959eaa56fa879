package store

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/lockbox-vault/lockbox/krypto"
)

// FormatVersion is the on-disk container version this build reads and writes.
const FormatVersion = 1

// KDFConfig records the key-derivation parameters in the vault header so a
// later open reproduces the exact same derivation.
type KDFConfig struct {
	Name        string `cbor:"name"`
	MemoryMB    uint32 `cbor:"memoryMB"`
	Time        uint32 `cbor:"time"`
	Parallelism uint8  `cbor:"parallelism"`
	SaltLen     int    `cbor:"saltLen"`
	KeyLen      uint32 `cbor:"keyLen"`
}

// Params converts the stored configuration back into derivation parameters.
func (c KDFConfig) Params() krypto.Argon2Params {
	return krypto.Argon2Params{
		MemoryMB:    c.MemoryMB,
		Time:        c.Time,
		Parallelism: c.Parallelism,
		SaltLen:     c.SaltLen,
		KeyLen:      c.KeyLen,
	}
}

// NewKDFConfig records derivation parameters for the header.
func NewKDFConfig(p krypto.Argon2Params) KDFConfig {
	return KDFConfig{
		Name:        "argon2id",
		MemoryMB:    p.MemoryMB,
		Time:        p.Time,
		Parallelism: p.Parallelism,
		SaltLen:     p.SaltLen,
		KeyLen:      p.KeyLen,
	}
}

// Header is the plaintext metadata written ahead of the encrypted blob.
// Salt and Verify are safe to store unencrypted: the salt defeats
// precomputation and the verification hash is domain-separated from the
// encryption key.
type Header struct {
	Version   uint32    `cbor:"version"`
	KDF       KDFConfig `cbor:"kdf"`
	Salt      []byte    `cbor:"salt"`
	Verify    []byte    `cbor:"verify"`
	CreatedAt time.Time `cbor:"createdAt"`
	UpdatedAt time.Time `cbor:"updatedAt"`
}

// encMode encodes headers with Core Deterministic Encoding (RFC 8949 §4.2)
// so the same logical header always produces identical bytes. decMode
// ignores unknown fields for forward compatibility within a version.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("store: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("store: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to deterministic CBOR.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

func (h Header) validate() error {
	if h.KDF.Name != "argon2id" {
		return fmt.Errorf("%w: unsupported kdf", ErrFormatCorrupt)
	}
	if len(h.Salt) < 16 || len(h.Salt) > 32 {
		return fmt.Errorf("%w: bad salt length", ErrFormatCorrupt)
	}
	if len(h.Verify) != krypto.VerifyLengthBytes {
		return fmt.Errorf("%w: bad verification hash length", ErrFormatCorrupt)
	}
	return nil
}
