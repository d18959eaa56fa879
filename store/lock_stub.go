//go:build !unix

package store

// FileLock is a no-op on platforms without flock support.
type FileLock struct{}

// AcquireLock is a no-op on platforms without flock support.
func AcquireLock(path string) (*FileLock, error) {
	return &FileLock{}, nil
}

// Release is a no-op on platforms without flock support.
func (l *FileLock) Release() error { return nil }
