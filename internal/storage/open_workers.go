//go:build js && wasm

package storage

import (
	"context"
	"errors"
)

var errNotInWorkers = errors.New("storage backend is not available in the Workers build")

func openRedis(context.Context, Options) (Storage, func() error, error) {
	return nil, nil, errNotInWorkers
}

func openSQLite(Options) (Storage, func() error, error) {
	return nil, nil, errNotInWorkers
}
