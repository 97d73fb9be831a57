package faucet

import (
	"fmt"
	"testing"
	"time"
)

func TestDecoyWaitDeterministic(t *testing.T) {
	window := 4 * 24 * time.Hour

	first := DecoyWait("123456789", window)
	second := DecoyWait("123456789", window)
	if first != second {
		t.Fatalf("same id must yield the same duration: %v vs %v", first, second)
	}

	if first < 0 || first >= window {
		t.Fatalf("duration must fall inside the window: %v", first)
	}
}

func TestDecoyWaitSpreadsAcrossUsers(t *testing.T) {
	window := 4 * 24 * time.Hour

	seen := make(map[time.Duration]bool)
	for i := 0; i < 100; i++ {
		seen[DecoyWait(fmt.Sprintf("user-%d", i), window)] = true
	}

	// 100 distinct ids colliding into a handful of durations would mean
	// the hash is not doing its job.
	if len(seen) < 95 {
		t.Fatalf("expected near-unique durations, got %d distinct over 100 users", len(seen))
	}
}

func TestDecoyWaitZeroWindow(t *testing.T) {
	if DecoyWait("anyone", 0) != 0 {
		t.Fatal("zero window should yield zero wait")
	}
}
