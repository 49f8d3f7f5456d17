package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFailureDelay_WaitFrom(t *testing.T) {
	d := NewFailureDelay(100, 0)
	start := time.Now()

	d.WaitFrom(context.Background(), start)

	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestFailureDelay_AdjustsForElapsedTime(t *testing.T) {
	d := NewFailureDelay(100, 0)

	var slept time.Duration
	d.sleep = func(_ context.Context, dur time.Duration) { slept = dur }

	d.WaitFrom(context.Background(), time.Now().Add(-60*time.Millisecond))

	assert.Greater(t, slept, time.Duration(0))
	assert.LessOrEqual(t, slept, 40*time.Millisecond)
}

func TestFailureDelay_NoWaitIfAlreadyExceeded(t *testing.T) {
	d := NewFailureDelay(50, 0)

	called := false
	d.sleep = func(context.Context, time.Duration) { called = true }

	d.WaitFrom(context.Background(), time.Now().Add(-time.Second))

	assert.False(t, called)
}

func TestFailureDelay_JitterBounds(t *testing.T) {
	d := NewFailureDelay(10, 20)

	for i := 0; i < 100; i++ {
		got := d.target()
		assert.GreaterOrEqual(t, got, 10*time.Millisecond)
		assert.Less(t, got, 30*time.Millisecond)
	}
}

func TestFailureDelay_HonoursContext(t *testing.T) {
	d := NewFailureDelay(5000, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	d.WaitFrom(ctx, start)

	assert.Less(t, time.Since(start), time.Second)
}

func TestFailureDelay_NilIsNoop(t *testing.T) {
	var d *FailureDelay
	assert.NotPanics(t, func() { d.WaitFrom(context.Background(), time.Now()) })
}
