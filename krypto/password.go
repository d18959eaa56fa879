package krypto

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

const (
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*()-_=+[]{}|;:,.<>?"
)

// GeneratePassword returns a random password of the given length drawn from
// lowercase, uppercase, and digit classes, plus symbols when includeSymbols
// is set. At least one character of every active class is guaranteed.
func GeneratePassword(length int, includeSymbols bool) (string, error) {
	if length < 4 {
		return "", errors.New("password length must be at least 4 characters")
	}

	charset := lowerChars + upperChars + digitChars
	classes := []string{lowerChars, upperChars, digitChars}
	if includeSymbols {
		charset += symbolChars
		classes = append(classes, symbolChars)
	}

	out := make([]byte, 0, length)
	for _, class := range classes {
		c, err := randByte(class)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	for len(out) < length {
		c, err := randByte(charset)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}

	// Fisher-Yates so the guaranteed class characters are not positional.
	for i := len(out) - 1; i > 0; i-- {
		j, err := randInt(i + 1)
		if err != nil {
			return "", err
		}
		out[i], out[j] = out[j], out[i]
	}

	return string(out), nil
}

func randByte(charset string) (byte, error) {
	i, err := randInt(len(charset))
	if err != nil {
		return 0, err
	}
	return charset[i], nil
}

func randInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("random index: %w", err)
	}
	return int(v.Int64()), nil
}
