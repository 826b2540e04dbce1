package domain

import "github.com/smallwat3r/safes/internal/vault"

const (
	// MaxRequestBodySize is the default limit for a lock request body (32 KB).
	MaxRequestBodySize = 32 * 1024

	// DefaultUnlocks is how many times a safe opens when the request does not
	// say otherwise.
	DefaultUnlocks = vault.DefaultUnlocks
)
