package storage

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultKeychainService is the keychain item service name tokens are stored under.
const DefaultKeychainService = "authtoken-proxy"

// errSecItemNotFound is the exit status of `security` when no item matches.
const errSecItemNotFound = 44

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Keychain stores values as generic passwords in the macOS keychain using
// the `security` command line tool. The storage key is used as the account.
type Keychain struct {
	service string
	run     commandRunner
}

func NewKeychain(service string) *Keychain {
	if service == "" {
		service = DefaultKeychainService
	}
	return &Keychain{service: service, run: execRunner}
}

func (k *Keychain) Get(ctx context.Context, key string) (string, error) {
	out, err := k.run(ctx, "security", "find-generic-password", "-s", k.service, "-a", key, "-w")
	if err != nil {
		if isItemNotFound(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to retrieve password from Keychain: %w", err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}

func (k *Keychain) Set(ctx context.Context, key, value string) error {
	if _, err := k.run(ctx, "security", "add-generic-password", "-s", k.service, "-a", key, "-w", value, "-U"); err != nil {
		return fmt.Errorf("failed to update keychain: %w", err)
	}
	return nil
}

func (k *Keychain) Remove(ctx context.Context, key string) error {
	if _, err := k.run(ctx, "security", "delete-generic-password", "-s", k.service, "-a", key); err != nil {
		if isItemNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete keychain item: %w", err)
	}
	return nil
}

func isItemNotFound(err error) bool {
	var exitErr interface{ ExitCode() int }
	return errors.As(err, &exitErr) && exitErr.ExitCode() == errSecItemNotFound
}
