package sessions

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Chain consults several stores in order, falling back when one has no
// record or is unavailable
type Chain struct {
	stores []Store
}

// NewChain creates a chain over stores, first store first
func NewChain(stores ...Store) *Chain {
	return &Chain{stores: stores}
}

// Get returns the record from the first store that has it. If no store has
// it and some store failed, the last failure is returned.
func (c *Chain) Get(ctx context.Context, username string) (*Record, error) {
	var lastErr error
	for _, store := range c.stores {
		record, err := store.Get(ctx, username)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, ErrNotFound) {
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNotFound
}

// Put saves the record in the first store that accepts it
func (c *Chain) Put(ctx context.Context, record *Record) error {
	if err := validate(record); err != nil {
		return err
	}

	var lastErr error
	for _, store := range c.stores {
		err := store.Put(ctx, record)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrReadOnly) {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store session: %w", lastErr)
	}
	return errors.New("no available session stores")
}

// Delete removes the record from every writable store
func (c *Chain) Delete(ctx context.Context, username string) error {
	var errs []error
	for _, store := range c.stores {
		if err := store.Delete(ctx, username); err != nil && !errors.Is(err, ErrReadOnly) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// List returns the union of every store's usernames. Stores that fail are skipped.
func (c *Chain) List(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for _, store := range c.stores {
		names, err := store.List(ctx)
		if err != nil {
			continue
		}
		for _, name := range names {
			seen[name] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}
