package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimingDelay_Wait(t *testing.T) {
	td := NewTimingDelay(TimingConfig{BaseDelayMs: 50, RandomDelayMs: 20})

	var slept time.Duration
	td.sleep = func(d time.Duration) { slept = d }

	td.Wait()
	assert.GreaterOrEqual(t, slept, 50*time.Millisecond)
	assert.Less(t, slept, 70*time.Millisecond)
}

func TestTimingDelay_WaitFrom_AlreadyElapsed(t *testing.T) {
	td := NewTimingDelay(TimingConfig{BaseDelayMs: 10})

	slept := time.Duration(-1)
	td.sleep = func(d time.Duration) { slept = d }

	// Work already consumed more than the target: no extra sleep
	td.WaitFrom(time.Now().Add(-time.Second))
	assert.Equal(t, time.Duration(-1), slept)
}

func TestTimingDelay_WaitFrom_PadsRemainder(t *testing.T) {
	td := NewTimingDelay(TimingConfig{BaseDelayMs: 200})

	var slept time.Duration
	td.sleep = func(d time.Duration) { slept = d }

	td.WaitFrom(time.Now())
	assert.Greater(t, slept, 100*time.Millisecond)
	assert.LessOrEqual(t, slept, 200*time.Millisecond)
}

func TestCryptoRandIntn_Bounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		v, err := cryptoRandIntn(10)
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 10)
	}

	v, err := cryptoRandIntn(0)
	assert.NoError(t, err)
	assert.Zero(t, v)
}
