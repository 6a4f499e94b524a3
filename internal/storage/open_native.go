//go:build !js || !wasm

package storage

import "context"

func openRedis(ctx context.Context, opts Options) (Storage, func() error, error) {
	r, err := OpenRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	return r, r.Close, nil
}

func openSQLite(opts Options) (Storage, func() error, error) {
	path := opts.SQLitePath
	if path == "" {
		path = DefaultSQLitePath()
	}
	s, err := OpenSQLite(path, opts.Verbose)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}
