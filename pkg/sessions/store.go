package sessions

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get when no session is stored for a username
	ErrNotFound = errors.New("session not found")

	// ErrInvalidRecord is returned by Put for a record without a username
	ErrInvalidRecord = errors.New("session record requires a username")
)

// Record is the persisted cookie state of one identity
type Record struct {
	Username string            `json:"username"`
	Cookies  map[string]string `json:"cookies"`
	SavedAt  time.Time         `json:"saved_at"`
}

// Clone returns a deep copy of the record
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{Username: r.Username, SavedAt: r.SavedAt, Cookies: make(map[string]string, len(r.Cookies))}
	for k, v := range r.Cookies {
		out.Cookies[k] = v
	}
	return out
}

// Expired reports whether the record is older than ttl. A zero ttl never expires.
func (r *Record) Expired(ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.After(r.SavedAt.Add(ttl))
}

// Store persists session records keyed by username
type Store interface {
	// Get returns the record for username, or ErrNotFound
	Get(ctx context.Context, username string) (*Record, error)

	// Put saves the record under its username, replacing any previous one
	Put(ctx context.Context, record *Record) error

	// Delete removes the record for username. Deleting an absent record is not an error.
	Delete(ctx context.Context, username string) error

	// List returns the usernames that have a stored record
	List(ctx context.Context) ([]string, error)
}

func validate(record *Record) error {
	if record == nil || record.Username == "" {
		return ErrInvalidRecord
	}
	return nil
}
