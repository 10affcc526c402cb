package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocker struct {
	held     bool
	err      error
	released int
}

func (f *fakeLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context), bool, error) {
	if f.err != nil || f.held {
		return nil, false, f.err
	}
	f.held = true
	return func(context.Context) {
		f.held = false
		f.released++
	}, true, nil
}

func TestHandleSweepTaskRunsSweepUnderLock(t *testing.T) {
	lock := &fakeLocker{}
	calls := 0
	p := &Processor{Lock: lock, Sweep: func(ctx context.Context) error {
		calls++
		assert.True(t, lock.held)
		return nil
	}}

	require.NoError(t, p.HandleSweepTask(context.Background(), NewSweepTask()))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, lock.released)
}

func TestSweepSkippedWhileLockHeld(t *testing.T) {
	lock := &fakeLocker{held: true}
	p := &Processor{Lock: lock, Sweep: func(ctx context.Context) error {
		t.Fatal("sweep must not run")
		return nil
	}}
	assert.NoError(t, p.Run(context.Background()))
}

func TestSweepErrorsAreReturnedForRetry(t *testing.T) {
	boom := errors.New("db down")
	p := &Processor{Sweep: func(ctx context.Context) error { return boom }}
	assert.ErrorIs(t, p.HandleSweepTask(context.Background(), NewSweepTask()), boom)
}

func TestUnconfiguredSweepIsNotRetried(t *testing.T) {
	err := (&Processor{}).HandleSweepTask(context.Background(), NewSweepTask())
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestRunTickerSweepsImmediatelyAndStops(t *testing.T) {
	var calls atomic.Int32
	p := &Processor{Sweep: func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunTicker(ctx, 10*time.Millisecond, p)
		close(done)
	}()

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ticker did not stop")
	}
}

func TestSweepTaskType(t *testing.T) {
	assert.Equal(t, TypeExpirySweep, NewSweepTask().Type())
}
