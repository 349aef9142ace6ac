package service

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) SweepExpired(context.Context) (int64, error) {
	s.calls.Add(1)
	return 1, s.err
}

func TestSweeper_Run(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"sweeps on every tick", nil},
		{"keeps running after errors", errors.New("store unavailable")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &countingSweeper{err: tt.err}
			sweeper := NewSweeper(sessions, slog.New(slog.DiscardHandler), 5*time.Millisecond)

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				sweeper.Run(ctx)
				close(done)
			}()

			assert.Eventually(t, func() bool { return sessions.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

			cancel()
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("sweeper did not stop")
			}
		})
	}
}
