package krypto

import (
	"bytes"
	"testing"
)

// testParams keeps derivation cheap enough for the test suite while
// exercising the same code path as the production defaults.
func testParams() Argon2Params {
	return Argon2Params{
		MemoryMB:    8,
		Time:        1,
		Parallelism: 1,
		SaltLen:     SaltLengthBytes,
		KeyLen:      KeyLengthBytes,
	}
}

func TestDeriveVaultKeysDeterministic(t *testing.T) {
	salt, err := NewRandomSalt()
	if err != nil {
		t.Fatalf("NewRandomSalt: %v", err)
	}

	v1, k1, err := DeriveVaultKeys([]byte("correct horse"), salt, testParams())
	if err != nil {
		t.Fatalf("DeriveVaultKeys: %v", err)
	}
	v2, k2, err := DeriveVaultKeys([]byte("correct horse"), salt, testParams())
	if err != nil {
		t.Fatalf("DeriveVaultKeys: %v", err)
	}

	if !bytes.Equal(v1, v2) {
		t.Fatal("verification hashes differ for identical inputs")
	}
	if !bytes.Equal(k1, k2) {
		t.Fatal("keys differ for identical inputs")
	}
	if len(k1) != KeyLengthBytes {
		t.Fatalf("key length = %d, want %d", len(k1), KeyLengthBytes)
	}
}

func TestVerificationHashIndependentOfKey(t *testing.T) {
	salt, err := NewRandomSalt()
	if err != nil {
		t.Fatalf("NewRandomSalt: %v", err)
	}

	verify, key, err := DeriveVaultKeys([]byte("hunter2hunter2"), salt, testParams())
	if err != nil {
		t.Fatalf("DeriveVaultKeys: %v", err)
	}
	if bytes.Equal(verify, key) {
		t.Fatal("verification hash equals encryption key")
	}
}

func TestVerifyPassphrase(t *testing.T) {
	salt, err := NewRandomSalt()
	if err != nil {
		t.Fatalf("NewRandomSalt: %v", err)
	}

	verify, key, err := DeriveVaultKeys([]byte("correct horse"), salt, testParams())
	if err != nil {
		t.Fatalf("DeriveVaultKeys: %v", err)
	}
	Zero(key)

	ok, err := VerifyPassphrase([]byte("correct horse"), salt, verify, testParams())
	if err != nil {
		t.Fatalf("VerifyPassphrase: %v", err)
	}
	if !ok {
		t.Fatal("correct passphrase rejected")
	}

	ok, err = VerifyPassphrase([]byte("wrong guess"), salt, verify, testParams())
	if err != nil {
		t.Fatalf("VerifyPassphrase: %v", err)
	}
	if ok {
		t.Fatal("wrong passphrase accepted")
	}
}

func TestDeriveVaultKeysSaltSensitivity(t *testing.T) {
	saltA, err := NewRandomSalt()
	if err != nil {
		t.Fatalf("NewRandomSalt: %v", err)
	}
	saltB, err := NewRandomSalt()
	if err != nil {
		t.Fatalf("NewRandomSalt: %v", err)
	}
	if bytes.Equal(saltA, saltB) {
		t.Fatal("two random salts are identical")
	}

	vA, _, err := DeriveVaultKeys([]byte("same passphrase"), saltA, testParams())
	if err != nil {
		t.Fatalf("DeriveVaultKeys: %v", err)
	}
	vB, _, err := DeriveVaultKeys([]byte("same passphrase"), saltB, testParams())
	if err != nil {
		t.Fatalf("DeriveVaultKeys: %v", err)
	}
	if bytes.Equal(vA, vB) {
		t.Fatal("verification hash does not depend on salt")
	}
}

func TestDeriveVaultKeysRejectsBadParams(t *testing.T) {
	salt, err := NewRandomSalt()
	if err != nil {
		t.Fatalf("NewRandomSalt: %v", err)
	}

	cases := []struct {
		name string
		salt []byte
		p    Argon2Params
	}{
		{"short salt", salt[:8], testParams()},
		{"zero memory", salt, Argon2Params{Time: 1, Parallelism: 1, KeyLen: 32}},
		{"zero time", salt, Argon2Params{MemoryMB: 8, Parallelism: 1, KeyLen: 32}},
		{"zero parallelism", salt, Argon2Params{MemoryMB: 8, Time: 1, KeyLen: 32}},
		{"wrong key length", salt, Argon2Params{MemoryMB: 8, Time: 1, Parallelism: 1, KeyLen: 16}},
	}
	for _, tc := range cases {
		if _, _, err := DeriveVaultKeys([]byte("pw"), tc.salt, tc.p); err == nil {
			t.Errorf("%s: expected error, got nil", tc.name)
		}
	}
}

func TestZero(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	Zero(buf)
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("byte %d not zeroed", i)
		}
	}
}
