//go:build unix

package store

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// FileLock holds an advisory flock on a sidecar file next to the vault so
// two processes cannot interleave writes to the same container.
type FileLock struct {
	f *os.File
}

// AcquireLock takes a non-blocking exclusive lock for the vault at path.
// It fails immediately when another process already holds the lock.
func AcquireLock(path string) (*FileLock, error) {
	f, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("vault is in use by another process: %w", err)
	}
	return &FileLock{f: f}, nil
}

// Release drops the lock. Safe to call on a nil lock.
func (l *FileLock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	closeErr := l.f.Close()
	l.f = nil
	if err != nil {
		return fmt.Errorf("unlock vault: %w", err)
	}
	return closeErr
}
