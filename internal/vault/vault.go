// Package vault keeps locked safes in memory and hands their contents out
// within a time window and a bounded number of times.
//
// Expiry is lazy: a safe whose window elapsed is removed by the next unlock
// attempt that touches it, or by an explicit Sweep.
package vault

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// ErrNotAvailable is returned by Unlock for unknown, expired and exhausted
// safes alike.
var ErrNotAvailable = errors.New("vault: safe not available")

// handleSize is the number of random bytes behind a handle (128 bits).
const handleSize = 16

// Vault is a concurrency-safe map of handle to safe.
type Vault struct {
	mu    sync.Mutex
	safes map[string]*entry

	now  func() time.Time
	rand io.Reader
}

// Option configures a Vault.
type Option func(*Vault)

// WithClock replaces time.Now. Mostly useful in tests.
func WithClock(now func() time.Time) Option {
	return func(v *Vault) { v.now = now }
}

// WithRandom replaces the handle entropy source. The reader must be safe for
// concurrent use.
func WithRandom(r io.Reader) Option {
	return func(v *Vault) { v.rand = r }
}

// New returns an empty Vault.
func New(opts ...Option) *Vault {
	v := &Vault{
		safes: make(map[string]*entry),
		now:   time.Now,
		rand:  rand.Reader,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Lock stores payload and returns the handle that unlocks it. The safe can be
// unlocked unlocks times until window has elapsed. A zero window or a zero
// unlock budget yields a handle that never unlocks.
func (v *Vault) Lock(window time.Duration, unlocks uint32, payload []byte) (string, error) {
	for {
		id, err := v.newHandle()
		if err != nil {
			return "", err
		}

		v.mu.Lock()
		if _, taken := v.safes[id]; taken {
			v.mu.Unlock()
			continue
		}
		v.safes[id] = newEntry(v.now(), window, unlocks, payload)
		v.mu.Unlock()
		return id, nil
	}
}

// LockSeconds is Lock with the window given in seconds and an optional unlock
// count, defaulting to DefaultUnlocks.
func (v *Vault) LockSeconds(seconds uint64, unlocks *uint32, payload []byte) (string, error) {
	n := DefaultUnlocks
	if unlocks != nil {
		n = *unlocks
	}
	return v.Lock(WindowFromSeconds(seconds), n, payload)
}

// Unlock returns a copy of the payload stored under id and spends one unlock.
// The safe is removed when its window has elapsed or its last unlock is spent.
func (v *Vault) Unlock(id string) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	e, ok := v.safes[id]
	if !ok {
		return nil, ErrNotAvailable
	}
	payload, ok, evict := e.unlock(v.now())
	if evict {
		delete(v.safes, id)
	}
	if !ok {
		return nil, ErrNotAvailable
	}
	return payload, nil
}

// Sweep removes every safe that can no longer be unlocked and returns how
// many were removed.
func (v *Vault) Sweep() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	removed := 0
	for id, e := range v.safes {
		if e.expired(now) {
			delete(v.safes, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of resident safes, including expired ones that
// have not been touched since.
func (v *Vault) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.safes)
}

func (v *Vault) newHandle() (string, error) {
	b := make([]byte, handleSize)
	if _, err := io.ReadFull(v.rand, b); err != nil {
		return "", fmt.Errorf("vault: handle: %w", err)
	}
	return hex.EncodeToString(b), nil
}
