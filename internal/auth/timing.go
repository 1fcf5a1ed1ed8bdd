package auth

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig controls the delay applied to failed logins
type TimingConfig struct {
	BaseDelayMs    int
	RandomDelayMs  int
	DelayOnSuccess bool
}

// TimingDelay pads login responses so that an unknown login and a wrong
// password take about the same time to answer
type TimingDelay struct {
	config TimingConfig
	sleep  func(ctx context.Context, d time.Duration)
}

// NewTimingDelay creates a TimingDelay
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{
		config: config,
		sleep:  sleepContext,
	}
}

// Target returns the total delay for one attempt: base plus a random jitter
// in [0, RandomDelayMs)
func (td *TimingDelay) Target() time.Duration {
	delay := time.Duration(td.config.BaseDelayMs) * time.Millisecond
	if jitter, err := cryptoRandIntn(td.config.RandomDelayMs); err == nil {
		delay += time.Duration(jitter) * time.Millisecond
	}
	return delay
}

// WaitFrom sleeps until at least Target() has elapsed since start.
// Successful attempts return immediately unless DelayOnSuccess is set.
// A cancelled ctx cuts the wait short.
func (td *TimingDelay) WaitFrom(ctx context.Context, start time.Time, success bool) {
	if td == nil || (success && !td.config.DelayOnSuccess) {
		return
	}
	if remaining := td.Target() - time.Since(start); remaining > 0 {
		td.sleep(ctx, remaining)
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

func cryptoRandIntn(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	return int(binary.BigEndian.Uint64(buf[:]) % uint64(max)), nil
}
