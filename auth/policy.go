// Package auth applies passphrase quality checks at the CLI boundary. The
// vault core accepts any byte sequence; policy is enforced only where a
// human picks a new master passphrase.
package auth

import (
	"errors"

	"github.com/nbutton23/zxcvbn-go"
)

const (
	// MinPassphraseLength is the minimum master passphrase length.
	MinPassphraseLength = 8
	// minStrengthScore is the zxcvbn score (0-4) a new passphrase must reach.
	minStrengthScore = 2
)

var (
	// ErrTooShort indicates the passphrase is below the minimum length.
	ErrTooShort = errors.New("passphrase must be at least 8 characters long")
	// ErrTooWeak indicates the passphrase is too guessable.
	ErrTooWeak = errors.New("passphrase is too easy to guess")
)

// ValidateMasterPassphrase applies the master passphrase policy: minimum
// length plus an estimated-guessability gate. The passphrase is never logged
// or stored by this check.
func ValidateMasterPassphrase(pw string) error {
	if len(pw) < MinPassphraseLength {
		return ErrTooShort
	}
	if zxcvbn.PasswordStrength(pw, nil).Score < minStrengthScore {
		return ErrTooWeak
	}
	return nil
}
