package auth

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"time"
)

// FailureDelay pads rejected logins so that an unknown user name and a wrong
// password take about the same wall time
type FailureDelay struct {
	base   time.Duration
	jitter time.Duration
	sleep  func(ctx context.Context, d time.Duration)
}

func NewFailureDelay(baseMs, randomMs int) *FailureDelay {
	return &FailureDelay{
		base:   time.Duration(baseMs) * time.Millisecond,
		jitter: time.Duration(randomMs) * time.Millisecond,
		sleep:  sleepContext,
	}
}

// cryptoRandIntn returns a secure random number in [0, max)
func cryptoRandIntn(max int64) int64 {
	if max <= 0 {
		return 0
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b[:]) % uint64(max))
}

// target is base plus a random share of jitter
func (d *FailureDelay) target() time.Duration {
	return d.base + time.Duration(cryptoRandIntn(int64(d.jitter)))
}

// WaitFrom blocks until at least the target delay has elapsed since start,
// or ctx is done
func (d *FailureDelay) WaitFrom(ctx context.Context, start time.Time) {
	if d == nil {
		return
	}
	remaining := d.target() - time.Since(start)
	if remaining > 0 {
		d.sleep(ctx, remaining)
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
