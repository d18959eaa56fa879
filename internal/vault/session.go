// Package vault orchestrates the vault lifecycle: passphrase verification,
// key derivation, encryption of the credential set, and the zeroing
// discipline around key material. A Session owns the derived key for one
// open/modify/save cycle and guarantees its erasure on every exit path.
package vault

import (
	"fmt"

	"github.com/lockbox-vault/lockbox/krypto"
	"github.com/lockbox-vault/lockbox/store"
)

// entriesAAD binds the encrypted blob to its role in the container format.
var entriesAAD = []byte("lockbox.entries.v1")

// Session is an unlocked vault. Only one session may exist per file at a
// time; an advisory lock on the path enforces this against other processes.
type Session struct {
	path    string
	header  store.Header
	key     []byte
	entries map[string]Entry
	lock    *store.FileLock
}

// Create initialises a new vault at path protected by passphrase. It refuses
// to overwrite an existing valid vault. The passphrase buffer is consumed:
// Create zeroes it before returning, on success and on error alike.
func Create(path string, passphrase []byte) (*Session, error) {
	defer krypto.Zero(passphrase)

	if store.Exists(path) {
		return nil, ErrVaultExists
	}

	lock, err := store.AcquireLock(path)
	if err != nil {
		return nil, err
	}

	salt, err := krypto.NewRandomSalt()
	if err != nil {
		lock.Release()
		return nil, err
	}

	params := krypto.DefaultArgon2Params()
	verify, key, err := krypto.DeriveVaultKeys(passphrase, salt, params)
	if err != nil {
		lock.Release()
		return nil, fmt.Errorf("derive keys: %w", err)
	}

	hdr := store.Header{
		Version: store.FormatVersion,
		KDF:     store.NewKDFConfig(params),
		Salt:    salt,
		Verify:  verify,
	}
	store.Touch(&hdr)

	s := &Session{
		path:    path,
		header:  hdr,
		key:     key,
		entries: make(map[string]Entry),
		lock:    lock,
	}

	if err := s.Save(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Open unlocks the vault at path. The stored verification hash is checked in
// constant time before any decryption is attempted; the full derivation cost
// is paid regardless of the outcome. An authentication failure after a
// matching hash means the file is damaged and surfaces as ErrFormatCorrupt.
// The passphrase buffer is consumed and zeroed on every path.
func Open(path string, passphrase []byte) (*Session, error) {
	defer krypto.Zero(passphrase)

	lock, err := store.AcquireLock(path)
	if err != nil {
		return nil, err
	}

	hdr, nonce, blob, err := store.Read(path)
	if err != nil {
		lock.Release()
		return nil, err
	}

	verify, key, err := krypto.DeriveVaultKeys(passphrase, hdr.Salt, hdr.KDF.Params())
	if err != nil {
		lock.Release()
		return nil, fmt.Errorf("derive keys: %w", err)
	}
	defer krypto.Zero(verify)

	if !krypto.HashEqual(verify, hdr.Verify) {
		krypto.Zero(key)
		lock.Release()
		return nil, ErrWrongPassphrase
	}

	plaintext, err := krypto.OpenAESGCM(key, nonce, blob, entriesAAD)
	if err != nil {
		krypto.Zero(key)
		lock.Release()
		return nil, fmt.Errorf("%w: blob does not authenticate", ErrFormatCorrupt)
	}
	defer krypto.Zero(plaintext)

	entries := make(map[string]Entry)
	if err := store.Unmarshal(plaintext, &entries); err != nil {
		krypto.Zero(key)
		lock.Release()
		return nil, fmt.Errorf("%w: payload undecodable", ErrFormatCorrupt)
	}

	return &Session{
		path:    path,
		header:  hdr,
		key:     key,
		entries: entries,
		lock:    lock,
	}, nil
}

// Save serializes the in-memory entries, seals them under a freshly
// generated nonce, and atomically rewrites the vault file. It may be called
// any number of times; every call uses a new nonce.
func (s *Session) Save() error {
	if s.key == nil {
		return ErrSessionClosed
	}

	plaintext, err := store.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("encode entries: %w", err)
	}
	defer krypto.Zero(plaintext)

	nonce, err := krypto.NewNonce()
	if err != nil {
		return err
	}

	blob, err := krypto.SealAESGCM(s.key, nonce, plaintext, entriesAAD)
	if err != nil {
		return fmt.Errorf("seal entries: %w", err)
	}

	store.Touch(&s.header)
	if err := store.Write(s.path, s.header, nonce, blob); err != nil {
		return err
	}
	return nil
}

// ChangePassphrase re-keys the vault: it verifies the old passphrase,
// generates a fresh salt, derives a new verification hash and key, and
// rewrites header and blob in one atomic operation so the file never holds a
// header from one passphrase and a blob from another. Both passphrase
// buffers are consumed and zeroed.
func (s *Session) ChangePassphrase(oldPass, newPass []byte) error {
	defer krypto.Zero(oldPass)
	defer krypto.Zero(newPass)

	if s.key == nil {
		return ErrSessionClosed
	}

	ok, err := krypto.VerifyPassphrase(oldPass, s.header.Salt, s.header.Verify, s.header.KDF.Params())
	if err != nil {
		return fmt.Errorf("verify passphrase: %w", err)
	}
	if !ok {
		return ErrWrongPassphrase
	}

	salt, err := krypto.NewRandomSalt()
	if err != nil {
		return err
	}

	params := krypto.DefaultArgon2Params()
	verify, key, err := krypto.DeriveVaultKeys(newPass, salt, params)
	if err != nil {
		return fmt.Errorf("derive keys: %w", err)
	}

	oldHeader, oldKey := s.header, s.key
	s.header.Salt = salt
	s.header.Verify = verify
	s.header.KDF = store.NewKDFConfig(params)
	s.key = key

	if err := s.Save(); err != nil {
		// The file still holds the old header and blob; restore the
		// matching in-memory state.
		s.header, s.key = oldHeader, oldKey
		krypto.Zero(key)
		return err
	}

	krypto.Zero(oldKey)
	return nil
}

// Close erases the derived key and releases the vault lock. Unsaved
// mutations are discarded. Close is idempotent.
func (s *Session) Close() error {
	if s.key != nil {
		krypto.Zero(s.key)
		s.key = nil
	}
	s.entries = nil
	err := s.lock.Release()
	s.lock = nil
	return err
}

// Path returns the vault file location backing this session.
func (s *Session) Path() string { return s.path }
