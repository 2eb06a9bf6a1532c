package host_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"coopsched/internal/host"
)

func TestLoop_RunsPostedWorkInOrder(t *testing.T) {
	l := host.NewLoop(zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var got []int
	done := make(chan struct{})
	for i := range 3 {
		l.Post(func() { got = append(got, i) })
	}
	l.Post(func() {
		// a turn requested from inside the loop runs after the current batch
		l.RequestTurn(func() {
			got = append(got, 3)
			close(done)
		})
	})

	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("timed out waiting for posted work")
	}
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	if want := []int{0, 1, 2, 3}; !slices.Equal(got, want) {
		t.Errorf("mismatch:\n  got:  %v\n  want: %v", got, want)
	}
	if l.Count() < 5 {
		t.Errorf("expected at least 5 turns, got %d", l.Count())
	}
}

func TestLoop_AlarmAndCancel(t *testing.T) {
	l := host.NewLoop(zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	fired := make(chan string, 2)
	l.Post(func() {
		id := l.ArmAlarm(func() { fired <- "canceled" }, 5)
		l.CancelAlarm(id)
		l.ArmAlarm(func() { fired <- "kept" }, 10)
	})
	go l.Run(ctx)

	select {
	case got := <-fired:
		if got != "kept" {
			t.Errorf("expected the kept alarm, got %q", got)
		}
	case <-ctx.Done():
		t.Fatal("alarm never fired")
	}

	select {
	case got := <-fired:
		t.Errorf("unexpected second alarm %q", got)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestClock_Monotonic(t *testing.T) {
	c := host.NewClock()
	a := c.Now()
	time.Sleep(2 * time.Millisecond)
	if b := c.Now(); b < a {
		t.Errorf("clock went backwards: %d then %d", a, b)
	}
}
