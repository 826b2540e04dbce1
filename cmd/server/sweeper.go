package main

import (
	"context"
	"time"

	"pkt.systems/pslog"
)

type sweeper interface {
	Sweep() int
}

// runSweeper removes expired safes every interval until ctx is done. Expiry
// is enforced on access regardless; this only bounds memory held by safes
// nobody comes back for. A non-positive interval disables it.
func runSweeper(
	ctx context.Context,
	logger pslog.Logger,
	v sweeper,
	interval time.Duration,
	onSwept func(int),
) {
	if interval <= 0 {
		logger.Debug("vault.sweep.disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := v.Sweep()
			if onSwept != nil {
				onSwept(n)
			}
			if n > 0 {
				logger.Info("vault.sweep.removed", "count", n)
			}
		}
	}
}
