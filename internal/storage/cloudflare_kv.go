//go:build js && wasm

package storage

import (
	"context"
	"fmt"

	"github.com/syumai/workers/cloudflare/kv"
)

// CloudflareKV stores values in a Workers KV namespace.
type CloudflareKV struct {
	ns *kv.Namespace
}

func NewCloudflareKV(binding string) (*CloudflareKV, error) {
	if binding == "" {
		binding = DefaultKVBinding
	}
	ns, err := kv.NewNamespace(binding)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize KV namespace: %w", err)
	}
	return &CloudflareKV{ns: ns}, nil
}

func (c *CloudflareKV) Get(_ context.Context, key string) (string, error) {
	v, err := c.ns.GetString(key, nil)
	if err != nil {
		return "", fmt.Errorf("failed to get %s from KV: %w", key, err)
	}
	// A missing key resolves to JS null.
	if v == "" || v == "<null>" {
		return "", ErrNotFound
	}
	return v, nil
}

func (c *CloudflareKV) Set(_ context.Context, key, value string) error {
	if err := c.ns.PutString(key, value, nil); err != nil {
		return fmt.Errorf("failed to store %s in KV: %w", key, err)
	}
	return nil
}

func (c *CloudflareKV) Remove(_ context.Context, key string) error {
	if err := c.ns.Delete(key); err != nil {
		return fmt.Errorf("failed to delete %s from KV: %w", key, err)
	}
	return nil
}

func openKV(opts Options) (Storage, func() error, error) {
	s, err := NewCloudflareKV(opts.KVBinding)
	if err != nil {
		return nil, nil, err
	}
	return s, noopClose, nil
}
