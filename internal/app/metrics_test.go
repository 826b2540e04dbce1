package app

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	resident := 7
	m := NewMetrics(func() int { return resident })

	m.SafeLocked()
	m.SafeLocked()
	m.UnlockAttempt(true)
	m.UnlockAttempt(false)
	m.UnlockAttempt(false)
	m.Swept(3)
	m.Swept(0)

	if got := testutil.ToFloat64(m.locked); got != 2 {
		t.Errorf("expected 2 locked, got %v", got)
	}
	if got := testutil.ToFloat64(m.unlocks.WithLabelValues("ok")); got != 1 {
		t.Errorf("expected 1 ok unlock, got %v", got)
	}
	if got := testutil.ToFloat64(m.unlocks.WithLabelValues("not_found")); got != 2 {
		t.Errorf("expected 2 not_found unlocks, got %v", got)
	}
	if got := testutil.ToFloat64(m.swept); got != 3 {
		t.Errorf("expected 3 swept, got %v", got)
	}
	if n, err := testutil.GatherAndCount(m.registry, "safes_resident"); err != nil || n != 1 {
		t.Errorf("expected resident gauge to be registered, got %d (%v)", n, err)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.SafeLocked()
	m.UnlockAttempt(true)
	m.Swept(5)
}
