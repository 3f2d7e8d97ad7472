package testkit

import (
	"context"
	"testing"
	"time"
)

func TestMustPanic(t *testing.T) {
	t.Parallel()

	MustPanic(t, func() {
		panic("boom")
	})
}

func TestMustNotPanic(t *testing.T) {
	t.Parallel()

	MustNotPanic(t, func() {
		// no panic
	})
}

func TestMustContain(t *testing.T) {
	t.Parallel()

	haystack := "alpha beta gamma"
	MustContain(t, haystack, "beta")
}

func TestSleeps_RecordsAndHonorsContext(t *testing.T) {
	t.Parallel()

	var s Sleeps
	if err := s.Sleep(context.Background(), time.Second); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Sleep(ctx, 2*time.Second); err == nil {
		t.Fatalf("expected context error")
	}
	got := s.All()
	if len(got) != 2 || got[0] != time.Second || got[1] != 2*time.Second {
		t.Fatalf("recorded = %v", got)
	}
}
