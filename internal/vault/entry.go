package vault

import (
	"bytes"
	"math"
	"time"
)

// DefaultUnlocks is the unlock budget of a safe locked without an explicit count.
const DefaultUnlocks uint32 = 1

const maxWindowSeconds = uint64(math.MaxInt64 / int64(time.Second))

// WindowFromSeconds converts an open duration in seconds to a time.Duration,
// clamping values that do not fit.
func WindowFromSeconds(seconds uint64) time.Duration {
	if seconds > maxWindowSeconds {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(seconds) * time.Second
}

// entry is one locked safe. Only the Vault mutates it, under its lock.
type entry struct {
	createdAt   time.Time
	window      time.Duration
	unlocksLeft uint32
	payload     []byte
}

func newEntry(now time.Time, window time.Duration, unlocks uint32, payload []byte) *entry {
	return &entry{
		createdAt:   now,
		window:      window,
		unlocksLeft: unlocks,
		payload:     bytes.Clone(payload),
	}
}

// expired reports whether the entry can no longer be unlocked at now.
func (e *entry) expired(now time.Time) bool {
	return now.Sub(e.createdAt) >= e.window || e.unlocksLeft == 0
}

// unlock applies the expiry policy at now. On success it returns a copy of
// the payload. evict is set when the entry must leave the vault, which
// includes the call that spends the last unlock.
func (e *entry) unlock(now time.Time) (payload []byte, ok, evict bool) {
	if e.expired(now) {
		return nil, false, true
	}
	payload = bytes.Clone(e.payload)
	e.unlocksLeft--
	return payload, true, e.unlocksLeft == 0
}
