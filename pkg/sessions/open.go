package sessions

import (
	"context"
	"fmt"
	"strings"

	"igfeed/pkg/config"
	"igfeed/pkg/logger"
)

// Open builds the store cfg selects. The environment store is chained behind
// every backend so exported cookies are found when nothing is persisted. An
// unavailable keychain falls back to the encrypted file store.
func Open(ctx context.Context, cfg *config.SessionConfig, log logger.Logger) (Store, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	primary, err := openBackend(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return NewChain(primary, NewEnvironmentStore()), nil
}

func openBackend(ctx context.Context, cfg *config.SessionConfig, log logger.Logger) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendFile, "":
		return NewFileStore(cfg.Directory)
	case config.BackendEncrypted:
		return NewEncryptedFileStore(cfg.Directory, cfg.Passphrase)
	case config.BackendKeyring:
		store, err := NewKeyringStore()
		if err == nil {
			return store, nil
		}
		log.WithError(err).Warn("system keyring unavailable, using encrypted file store")
		return NewEncryptedFileStore(cfg.Directory, cfg.Passphrase)
	case config.BackendRedis:
		return DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.TTL)
	case config.BackendSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}
