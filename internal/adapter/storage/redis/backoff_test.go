package redis

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponential(t *testing.T) {
	tests := []struct {
		name    string
		base    time.Duration
		attempt int
		want    time.Duration
	}{
		{"attempt zero", 50 * time.Millisecond, 0, 50 * time.Millisecond},
		{"attempt three", 50 * time.Millisecond, 3, 400 * time.Millisecond},
		{"negative attempt", 50 * time.Millisecond, -1, 50 * time.Millisecond},
		{"zero base", 0, 5, 0},
		{"saturates", time.Hour, 62, time.Duration(math.MaxInt64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exponential(tt.base, tt.attempt))
		})
	}
}

func TestFullJitter(t *testing.T) {
	assert.Equal(t, time.Duration(0), fullJitter(0))
	assert.Equal(t, time.Duration(0), fullJitter(-time.Second))

	for i := 0; i < 100; i++ {
		d := fullJitter(10 * time.Millisecond)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, 10*time.Millisecond)
	}
}

func TestRetryDelayFunc_CappedAndFloored(t *testing.T) {
	delay := retryDelayFunc(50*time.Millisecond, 200*time.Millisecond)

	for tries := 1; tries < 20; tries++ {
		d := delay(tries)
		assert.GreaterOrEqual(t, d, minRetryDelay)
		assert.LessOrEqual(t, d, 200*time.Millisecond)
	}
}
