package utils

import (
	"context"
	"testing"
	"time"
)

func TestWaitForReturnsOnCancel(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	original := sleep
	sleep = func(time.Duration) { <-release }
	defer func() { sleep = original }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := WaitFor(ctx, time.Hour); err == nil {
		t.Fatal("expected context error")
	}
}

func TestWaitForZeroDuration(t *testing.T) {
	if err := WaitFor(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestJitterBounds(t *testing.T) {
	base := 100 * time.Millisecond

	for i := 0; i < 200; i++ {
		got := Jitter(base)
		if got < base/2 || got >= base/2*3 {
			t.Fatalf("jitter %v outside [%v, %v)", got, base/2, base/2*3)
		}
	}
}

func TestJitterNonPositive(t *testing.T) {
	if got := Jitter(0); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}
