package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func recordingDelay(config TimingConfig) (*TimingDelay, *[]time.Duration) {
	var slept []time.Duration
	td := NewTimingDelay(config)
	td.sleep = func(_ context.Context, d time.Duration) {
		slept = append(slept, d)
	}
	return td, &slept
}

func TestTimingDelay_Target_WithinRange(t *testing.T) {
	td := NewTimingDelay(TimingConfig{BaseDelayMs: 200, RandomDelayMs: 100})

	for i := 0; i < 50; i++ {
		target := td.Target()
		assert.GreaterOrEqual(t, target, 200*time.Millisecond)
		assert.Less(t, target, 300*time.Millisecond)
	}
}

func TestTimingDelay_WaitFrom_OnFailure(t *testing.T) {
	td, slept := recordingDelay(TimingConfig{BaseDelayMs: 200})

	td.WaitFrom(context.Background(), time.Now(), false)

	if assert.Len(t, *slept, 1) {
		assert.InDelta(t, float64(200*time.Millisecond), float64((*slept)[0]), float64(20*time.Millisecond))
	}
}

func TestTimingDelay_WaitFrom_SuccessSkipsDelay(t *testing.T) {
	td, slept := recordingDelay(TimingConfig{BaseDelayMs: 200})

	td.WaitFrom(context.Background(), time.Now(), true)

	assert.Empty(t, *slept)
}

func TestTimingDelay_WaitFrom_DelayOnSuccess(t *testing.T) {
	td, slept := recordingDelay(TimingConfig{BaseDelayMs: 200, DelayOnSuccess: true})

	td.WaitFrom(context.Background(), time.Now(), true)

	assert.Len(t, *slept, 1)
}

func TestTimingDelay_WaitFrom_AccountsForElapsedTime(t *testing.T) {
	td, slept := recordingDelay(TimingConfig{BaseDelayMs: 200})

	td.WaitFrom(context.Background(), time.Now().Add(-150*time.Millisecond), false)

	if assert.Len(t, *slept, 1) {
		assert.LessOrEqual(t, (*slept)[0], 50*time.Millisecond)
	}
}

func TestTimingDelay_WaitFrom_NoWaitIfAlreadyExceeded(t *testing.T) {
	td, slept := recordingDelay(TimingConfig{BaseDelayMs: 50})

	td.WaitFrom(context.Background(), time.Now().Add(-time.Second), false)

	assert.Empty(t, *slept)
}

func TestTimingDelay_NilIsNoop(t *testing.T) {
	var td *TimingDelay
	assert.NotPanics(t, func() {
		td.WaitFrom(context.Background(), time.Now(), false)
	})
}

func TestSleepContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	sleepContext(ctx, 5*time.Second)

	assert.Less(t, time.Since(start), time.Second)
}
