//go:build !js || !wasm

package storage

import "errors"

func openKV(Options) (Storage, func() error, error) {
	return nil, nil, errors.New("the kv backend is only available in the Workers build")
}
