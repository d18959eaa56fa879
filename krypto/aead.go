package krypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

const (
	// NonceSize is the AES-GCM nonce length in bytes.
	NonceSize = 12
	// TagSize is the GCM authentication tag length in bytes.
	TagSize = 16
)

// ErrAuthentication is returned by OpenAESGCM on any failure to decrypt and
// authenticate. It deliberately does not distinguish a wrong key from
// tampered ciphertext.
var ErrAuthentication = errors.New("ciphertext authentication failed")

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeyLengthBytes {
		return nil, errors.New("aes-gcm requires a 32-byte key")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// NewNonce returns a fresh random 96-bit nonce. Callers must use a new nonce
// for every SealAESGCM call made under the same key.
func NewNonce() ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return nonce, nil
}

// SealAESGCM encrypts plaintext under key and nonce using AES-256-GCM,
// returning ciphertext with the authentication tag appended.
func SealAESGCM(key, nonce, plaintext, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceSize {
		return nil, errors.New("invalid nonce size")
	}
	return gcm.Seal(nil, nonce, plaintext, aad), nil
}

// OpenAESGCM decrypts and authenticates ciphertext produced by SealAESGCM.
// Any single-byte modification of the ciphertext, tag, nonce, or aad makes it
// fail with ErrAuthentication and no plaintext.
func OpenAESGCM(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceSize {
		return nil, errors.New("invalid nonce size")
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}
