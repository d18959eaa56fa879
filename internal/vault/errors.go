package vault

import (
	"errors"

	"github.com/lockbox-vault/lockbox/store"
)

var (
	// ErrVaultExists indicates Create was asked to overwrite a valid vault.
	ErrVaultExists = errors.New("a vault already exists at this path")
	// ErrWrongPassphrase indicates the verification hash did not match.
	// It carries no detail beyond pass/fail.
	ErrWrongPassphrase = errors.New("wrong passphrase")
	// ErrEntryNotFound indicates no credential is stored under the service name.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrDuplicateEntry indicates Add was called for a service that already
	// has a credential.
	ErrDuplicateEntry = errors.New("entry already exists")
	// ErrSessionClosed indicates use of a session after Close.
	ErrSessionClosed = errors.New("session is closed")
)

// Codec failures surface through the session unchanged so callers match on
// one error set.
var (
	ErrNotFound           = store.ErrNotFound
	ErrFormatCorrupt      = store.ErrFormatCorrupt
	ErrVersionUnsupported = store.ErrVersionUnsupported
)
