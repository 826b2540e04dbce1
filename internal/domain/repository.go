package domain

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/smallwat3r/safes/internal/vault"
)

// ErrNotFound is returned by UnlockSafe when the safe is unknown, expired or
// already emptied.
var ErrNotFound = vault.ErrNotAvailable

type SafeRepository interface {
	LockSafe(ctx context.Context, openDuration uint64, unlocks *uint32, c Contents) (string, error)
	UnlockSafe(ctx context.Context, id string) (Contents, error)
}

type memoryRepository struct {
	vault *vault.Vault
}

func NewMemoryRepository(v *vault.Vault) SafeRepository {
	return &memoryRepository{vault: v}
}

func (r *memoryRepository) LockSafe(
	ctx context.Context, openDuration uint64, unlocks *uint32, c Contents,
) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode safe: %w", err)
	}
	return r.vault.LockSeconds(openDuration, unlocks, payload)
}

func (r *memoryRepository) UnlockSafe(ctx context.Context, id string) (Contents, error) {
	if err := ctx.Err(); err != nil {
		return Contents{}, err
	}
	payload, err := r.vault.Unlock(id)
	if err != nil {
		return Contents{}, err
	}
	var c Contents
	if err := json.Unmarshal(payload, &c); err != nil {
		return Contents{}, fmt.Errorf("decode safe: %w", err)
	}
	return c, nil
}
