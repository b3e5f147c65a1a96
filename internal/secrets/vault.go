// Package secrets holds provider credentials in memory with hot reload.
package secrets

import (
	"fmt"
	"sync"
)

// Loader fetches the current credential set from its source, typically the
// process environment.
type Loader func() (map[string]string, error)

// Vault is the in-memory credential store the agent registry and provider
// client read from. Reads never block behind a reload, and a failed reload
// keeps the previous credentials serving.
type Vault struct {
	loader Loader

	mu     sync.RWMutex
	values map[string]string
}

// NewVault runs the loader once so the process fails fast when the initial
// credential set cannot be fetched.
func NewVault(loader Loader) (*Vault, error) {
	values, err := loader()
	if err != nil {
		return nil, fmt.Errorf("initial secret load: %w", err)
	}
	return &Vault{loader: loader, values: values}, nil
}

// Get returns the credential for key, or an empty string when absent.
func (v *Vault) Get(key string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.values[key]
}

// Reload swaps in a freshly loaded credential set. When the loader fails
// the vault keeps serving the old values and reports the error.
func (v *Vault) Reload() error {
	values, err := v.loader()
	if err != nil {
		return fmt.Errorf("reload secrets: %w", err)
	}
	v.mu.Lock()
	v.values = values
	v.mu.Unlock()
	return nil
}

// Redacted returns a loggable form of a credential: the first two characters
// followed by a mask, a bare mask for short values, and an empty string for
// a missing key.
func (v *Vault) Redacted(key string) string {
	val := v.Get(key)
	switch {
	case val == "":
		return ""
	case len(val) <= 4:
		return "****"
	default:
		return val[:2] + "****"
	}
}
