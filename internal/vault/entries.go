package vault

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Entry is one stored credential. The service name is its unique key within
// the vault.
type Entry struct {
	ID        string    `cbor:"id"`
	Service   string    `cbor:"service"`
	Username  string    `cbor:"username,omitempty"`
	Secret    string    `cbor:"secret"`
	CreatedAt time.Time `cbor:"createdAt"`
	UpdatedAt time.Time `cbor:"updatedAt"`
}

// EntrySummary lists a credential without exposing its secret.
type EntrySummary struct {
	Service  string
	Username string
}

// List returns a summary of all entries sorted by service name.
func (s *Session) List() ([]EntrySummary, error) {
	if s.key == nil {
		return nil, ErrSessionClosed
	}
	out := make([]EntrySummary, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, EntrySummary{Service: e.Service, Username: e.Username})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Service < out[j].Service })
	return out, nil
}

// Get returns the entry stored under service.
func (s *Session) Get(service string) (Entry, error) {
	if s.key == nil {
		return Entry{}, ErrSessionClosed
	}
	e, ok := s.entries[service]
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	return e, nil
}

// Add stores a new credential. It fails with ErrDuplicateEntry when the
// service already has one.
func (s *Session) Add(service, username, secret string) error {
	if s.key == nil {
		return ErrSessionClosed
	}
	if _, ok := s.entries[service]; ok {
		return ErrDuplicateEntry
	}
	now := time.Now().UTC()
	s.entries[service] = Entry{
		ID:        uuid.NewString(),
		Service:   service,
		Username:  username,
		Secret:    secret,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// Put stores a credential, replacing any existing one for the service while
// preserving its identity and creation time.
func (s *Session) Put(service, username, secret string) error {
	if s.key == nil {
		return ErrSessionClosed
	}
	now := time.Now().UTC()
	if existing, ok := s.entries[service]; ok {
		existing.Username = username
		existing.Secret = secret
		existing.UpdatedAt = now
		s.entries[service] = existing
		return nil
	}
	s.entries[service] = Entry{
		ID:        uuid.NewString(),
		Service:   service,
		Username:  username,
		Secret:    secret,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// UpdateSecret replaces the secret of an existing entry.
func (s *Session) UpdateSecret(service, secret string) error {
	if s.key == nil {
		return ErrSessionClosed
	}
	e, ok := s.entries[service]
	if !ok {
		return ErrEntryNotFound
	}
	e.Secret = secret
	e.UpdatedAt = time.Now().UTC()
	s.entries[service] = e
	return nil
}

// Delete removes the entry for service and reports whether one existed.
// All mutations stay in memory until Save commits them.
func (s *Session) Delete(service string) (bool, error) {
	if s.key == nil {
		return false, ErrSessionClosed
	}
	if _, ok := s.entries[service]; !ok {
		return false, nil
	}
	delete(s.entries, service)
	return true, nil
}

// Len reports the number of stored entries.
func (s *Session) Len() int { return len(s.entries) }
