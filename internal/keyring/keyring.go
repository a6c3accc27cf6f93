// Package keyring keeps the REST service key in the OS keyring so it does
// not have to live in a dotenv file.
package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	service = "planrollup"
	restKey = "rest-key"
)

var (
	ErrNotFound           = errors.New("rest key not found in keyring")
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// RestKey returns the stored key or ErrNotFound.
func RestKey() (string, error) {
	key, err := keyring.Get(service, restKey)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return key, nil
}

func SetRestKey(key string) error {
	if key == "" {
		return errors.New("rest key cannot be empty")
	}
	if err := keyring.Set(service, restKey, key); err != nil {
		return fmt.Errorf("storing rest key: %w", err)
	}
	return nil
}

func DeleteRestKey() error {
	if err := keyring.Delete(service, restKey); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("deleting rest key: %w", err)
	}
	return nil
}

// Resolve prefers an explicit key and falls back to the keyring.
func Resolve(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	return RestKey()
}
