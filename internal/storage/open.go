package storage

import (
	"context"
	"fmt"
	"strings"
)

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendKeychain = "keychain"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendKV       = "kv"
)

// DefaultKVBinding is the KV namespace binding name configured in wrangler.toml.
const DefaultKVBinding = "authtoken_proxy_kv"

// Options selects and configures a storage backend.
type Options struct {
	Backend string

	// file
	Path string
	// keychain
	KeychainService string
	// redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// sqlite
	SQLitePath string
	Verbose    bool
	// kv
	KVBinding string
}

func noopClose() error { return nil }

// Open constructs the backend named by opts.Backend. The returned close
// function releases any connection the backend holds and is never nil on
// success.
func Open(ctx context.Context, opts Options) (Storage, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendMemory:
		return NewMemory(), noopClose, nil
	case BackendFile:
		path := opts.Path
		if path == "" {
			path = DefaultFilePath()
		}
		return NewFile(path), noopClose, nil
	case BackendKeychain:
		return NewKeychain(opts.KeychainService), noopClose, nil
	case BackendRedis:
		return openRedis(ctx, opts)
	case BackendSQLite:
		return openSQLite(opts)
	case BackendKV:
		return openKV(opts)
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
