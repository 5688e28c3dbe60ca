package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "igfeed"
	keyringPrefix  = "session_"
	// keyringIndex holds the stored usernames, since keychains cannot be listed
	keyringIndex = "index"
)

// KeyringStore keeps records in the system keychain
type KeyringStore struct {
	service string
	mu      sync.Mutex
}

// NewKeyringStore creates a keyring store after checking the keychain is usable
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{service: keyringService}, nil
}

// Get returns the record for username
func (k *KeyringStore) Get(_ context.Context, username string) (*Record, error) {
	if username == "" {
		return nil, ErrInvalidRecord
	}

	data, err := keyring.Get(k.service, keyringPrefix+username)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var record Record
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &record, nil
}

// Put saves record and adds its username to the index
func (k *KeyringStore) Put(_ context.Context, record *Record) error {
	if err := validate(record); err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if err := keyring.Set(k.service, keyringPrefix+record.Username, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return k.updateIndex(func(names map[string]struct{}) { names[record.Username] = struct{}{} })
}

// Delete removes the record for username
func (k *KeyringStore) Delete(_ context.Context, username string) error {
	if username == "" {
		return ErrInvalidRecord
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if err := keyring.Delete(k.service, keyringPrefix+username); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return k.updateIndex(func(names map[string]struct{}) { delete(names, username) })
}

// List returns the usernames recorded in the index
func (k *KeyringStore) List(_ context.Context) ([]string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	names, err := k.readIndex()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (k *KeyringStore) readIndex() (map[string]struct{}, error) {
	names := make(map[string]struct{})
	data, err := keyring.Get(k.service, keyringIndex)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return names, nil
		}
		return nil, fmt.Errorf("failed to read keyring index: %w", err)
	}

	var list []string
	if err := json.Unmarshal([]byte(data), &list); err != nil {
		return nil, fmt.Errorf("failed to parse keyring index: %w", err)
	}
	for _, name := range list {
		names[name] = struct{}{}
	}
	return names, nil
}

func (k *KeyringStore) updateIndex(change func(map[string]struct{})) error {
	names, err := k.readIndex()
	if err != nil {
		return err
	}
	change(names)

	list := make([]string, 0, len(names))
	for name := range names {
		list = append(list, name)
	}
	sort.Strings(list)

	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	if err := keyring.Set(k.service, keyringIndex, string(data)); err != nil {
		return fmt.Errorf("failed to write keyring index: %w", err)
	}
	return nil
}
