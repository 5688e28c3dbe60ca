package sessions

import (
	"context"
	"errors"
	"os"
	"time"
)

// Environment variables read by EnvironmentStore
const (
	EnvSessionUser = "IGFEED_SESSION_USER"
	EnvSessionID   = "IGFEED_SESSION_ID"
	EnvCSRFToken   = "IGFEED_CSRF_TOKEN"
	EnvUserID      = "IGFEED_DS_USER_ID"
)

// ErrReadOnly is returned by stores that cannot be written
var ErrReadOnly = errors.New("session store is read-only")

// EnvironmentStore serves one session built from cookies exported in the
// environment, for hosts where a browser session is pasted in instead of
// logging in. It cannot be written.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-backed store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Get returns the environment session. When EnvSessionUser is set only that
// username matches; otherwise the session is served for any username.
func (e *EnvironmentStore) Get(_ context.Context, username string) (*Record, error) {
	sessionID := os.Getenv(EnvSessionID)
	csrfToken := os.Getenv(EnvCSRFToken)
	if sessionID == "" || csrfToken == "" {
		return nil, ErrNotFound
	}
	if user := os.Getenv(EnvSessionUser); user != "" && user != username {
		return nil, ErrNotFound
	}

	record := &Record{
		Username: username,
		Cookies: map[string]string{
			"sessionid": sessionID,
			"csrftoken": csrfToken,
		},
		// Treated as fresh on every read
		SavedAt: time.Now(),
	}
	if id := os.Getenv(EnvUserID); id != "" {
		record.Cookies["ds_user_id"] = id
	}
	return record, nil
}

// Put is not supported for environment variables
func (e *EnvironmentStore) Put(context.Context, *Record) error {
	return ErrReadOnly
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(context.Context, string) error {
	return ErrReadOnly
}

// List returns the configured session user, if any
func (e *EnvironmentStore) List(_ context.Context) ([]string, error) {
	user := os.Getenv(EnvSessionUser)
	if user == "" || os.Getenv(EnvSessionID) == "" || os.Getenv(EnvCSRFToken) == "" {
		return []string{}, nil
	}
	return []string{user}, nil
}
