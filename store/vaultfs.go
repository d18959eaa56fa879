// Package store defines the on-disk vault container and its codec.
//
// File layout, all integers little-endian:
//
//	[u32 header length][header: CBOR][nonce: 12 bytes][ciphertext || tag]
//
// Writes always go through a temporary file in the same directory followed
// by an atomic rename, so a crash mid-write leaves either the old complete
// file or the new complete file on disk.
package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lockbox-vault/lockbox/krypto"
)

// maxHeaderLen bounds the header length prefix; anything larger is treated
// as corruption rather than attempted as an allocation.
const maxHeaderLen = 4096

var (
	// ErrNotFound indicates no vault file exists at the path.
	ErrNotFound = errors.New("vault not found")
	// ErrFormatCorrupt indicates the file exists but cannot be parsed as a
	// vault container.
	ErrFormatCorrupt = errors.New("vault file corrupt")
	// ErrVersionUnsupported indicates the container was written by an
	// incompatible format version.
	ErrVersionUnsupported = errors.New("vault format version unsupported")
)

// Write serializes the header and encrypted blob to path via a temporary
// file and atomic rename, with 0600 permissions.
func Write(path string, hdr Header, nonce, blob []byte) error {
	if hdr.Version != FormatVersion {
		return fmt.Errorf("write header: unsupported version %d", hdr.Version)
	}
	if err := hdr.validate(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if len(nonce) != krypto.NonceSize {
		return fmt.Errorf("write blob: nonce must be %d bytes", krypto.NonceSize)
	}
	if len(blob) < krypto.TagSize {
		return errors.New("write blob: blob shorter than authentication tag")
	}

	headerBytes, err := Marshal(hdr)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	if len(headerBytes) > maxHeaderLen {
		return fmt.Errorf("encode header: %d bytes exceeds limit", len(headerBytes))
	}

	var buf bytes.Buffer
	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(headerBytes)))
	buf.Write(prefix[:])
	buf.Write(headerBytes)
	buf.Write(nonce)
	buf.Write(blob)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create vault directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "vault-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp vault: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp vault: %w", err)
	}

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp vault: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp vault: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp vault: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace vault: %w", err)
	}

	return nil
}

// Read loads and parses the container at path. It returns ErrNotFound when
// the file does not exist, ErrVersionUnsupported for containers written by a
// newer format, and ErrFormatCorrupt for any structural damage.
func Read(path string) (Header, []byte, []byte, error) {
	var hdr Header

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return hdr, nil, nil, ErrNotFound
		}
		return hdr, nil, nil, fmt.Errorf("read vault: %w", err)
	}

	if len(data) < 4 {
		return hdr, nil, nil, fmt.Errorf("%w: truncated length prefix", ErrFormatCorrupt)
	}
	headerLen := binary.LittleEndian.Uint32(data[:4])
	if headerLen > maxHeaderLen || int(headerLen) > len(data)-4 {
		return hdr, nil, nil, fmt.Errorf("%w: header length out of range", ErrFormatCorrupt)
	}

	headerBytes := data[4 : 4+headerLen]
	if err := Unmarshal(headerBytes, &hdr); err != nil {
		return Header{}, nil, nil, fmt.Errorf("%w: header undecodable", ErrFormatCorrupt)
	}
	if hdr.Version != FormatVersion {
		return Header{}, nil, nil, fmt.Errorf("%w: version %d", ErrVersionUnsupported, hdr.Version)
	}
	if err := hdr.validate(); err != nil {
		return Header{}, nil, nil, err
	}

	rest := data[4+headerLen:]
	if len(rest) < krypto.NonceSize+krypto.TagSize {
		return Header{}, nil, nil, fmt.Errorf("%w: blob truncated", ErrFormatCorrupt)
	}

	nonce := bytes.Clone(rest[:krypto.NonceSize])
	blob := bytes.Clone(rest[krypto.NonceSize:])
	return hdr, nonce, blob, nil
}

// Exists reports whether a structurally valid vault container is present at
// path. Corrupt files report false so callers may overwrite them; containers
// from a newer format version report true so they are never clobbered.
func Exists(path string) bool {
	_, _, _, err := Read(path)
	return err == nil || errors.Is(err, ErrVersionUnsupported)
}

// Touch updates the header timestamps for a rewrite.
func Touch(hdr *Header) {
	now := time.Now().UTC()
	if hdr.CreatedAt.IsZero() {
		hdr.CreatedAt = now
	}
	hdr.UpdatedAt = now
}
