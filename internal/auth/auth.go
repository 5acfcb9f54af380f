// Package auth maps chat user identities to their configured accounts.
package auth

import (
	"fmt"

	"finbot/internal/config"
	"finbot/internal/core"
)

// Registry is built once at startup and is read-only afterwards.
type Registry struct {
	accounts map[int64]config.Account
}

func NewRegistry(accounts []config.Account) *Registry {
	r := &Registry{accounts: make(map[int64]config.Account, len(accounts))}
	for _, a := range accounts {
		r.accounts[int64(a.UserID)] = a
	}
	return r
}

// Authorize returns the account of userID or an error wrapping core.ErrUnauthorized.
func (r *Registry) Authorize(userID int64) (config.Account, error) {
	a, ok := r.accounts[userID]
	if !ok {
		return config.Account{}, fmt.Errorf("user %d: %w", userID, core.ErrUnauthorized)
	}
	return a, nil
}

func (r *Registry) Len() int { return len(r.accounts) }
