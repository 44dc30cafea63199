package auth

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig holds configuration for timing attack prevention
type TimingConfig struct {
	BaseDelayMs   int // Base delay in milliseconds
	RandomDelayMs int // Random delay range in milliseconds
}

// TimingDelay pads authentication failures so "unknown user" and
// "wrong password" take a comparable amount of time.
type TimingDelay struct {
	config TimingConfig
	sleep  func(time.Duration)
}

// NewTimingDelay creates a new TimingDelay instance
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{
		config: config,
		sleep:  time.Sleep,
	}
}

// cryptoRandIntn returns a secure random number in [0, max).
// Uses crypto/rand since the jitter guards a security property.
func cryptoRandIntn(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return 0, err
	}

	randomValue := binary.BigEndian.Uint64(randomBytes)
	return int(randomValue % uint64(max)), nil
}

func (td *TimingDelay) target() time.Duration {
	delay := time.Duration(td.config.BaseDelayMs) * time.Millisecond
	if td.config.RandomDelayMs > 0 {
		if randomValue, err := cryptoRandIntn(td.config.RandomDelayMs); err == nil {
			delay += time.Duration(randomValue) * time.Millisecond
		}
	}
	return delay
}

// Wait applies the failure delay.
func (td *TimingDelay) Wait() {
	td.sleep(td.target())
}

// WaitFrom pads relative to a start time so the total elapsed time is
// at least the target. Useful when the failing path already did work
// (e.g. a bcrypt comparison).
func (td *TimingDelay) WaitFrom(startTime time.Time) {
	targetDelay := td.target()
	elapsed := time.Since(startTime)
	if elapsed < targetDelay {
		td.sleep(targetDelay - elapsed)
	}
}
