package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoff_ExponentialWithCap(t *testing.T) {
	b := newBackoff(Config{BaseDelay: 100 * time.Millisecond, MaxDelay: 400 * time.Millisecond})

	require.Equal(t, 100*time.Millisecond, b.delay(1))
	require.Equal(t, 200*time.Millisecond, b.delay(2))
	require.Equal(t, 400*time.Millisecond, b.delay(3))
	require.Equal(t, 400*time.Millisecond, b.delay(4))
	require.Equal(t, 400*time.Millisecond, b.delay(1000))
	require.Equal(t, 100*time.Millisecond, b.delay(0))
}

func TestBackoff_Uncapped(t *testing.T) {
	b := newBackoff(Config{BaseDelay: time.Second})

	require.Equal(t, 8*time.Second, b.delay(4))
	require.Positive(t, b.delay(200))
}

func TestBackoff_JitterDeterministic(t *testing.T) {
	cfg := Config{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, JitterSeed: 42}
	b1 := newBackoff(cfg)
	b2 := newBackoff(cfg)

	for attempt := 1; attempt <= 6; attempt++ {
		d1 := b1.delay(attempt)
		d2 := b2.delay(attempt)
		require.Equal(t, d1, d2, "same seed must produce same sequence")

		full := newBackoff(Config{BaseDelay: cfg.BaseDelay, MaxDelay: cfg.MaxDelay}).delay(attempt)
		require.GreaterOrEqual(t, d1, full/2)
		require.LessOrEqual(t, d1, full)
	}
}

func TestNewRetryRNG(t *testing.T) {
	require.Nil(t, newRetryRNG(0))
	require.NotNil(t, newRetryRNG(7))
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}
	require.NoError(t, valid.Validate())

	zeroAttempts := valid
	zeroAttempts.MaxAttempts = 0
	require.NoError(t, zeroAttempts.Validate())

	cases := map[string]Config{
		"negative attempts": {MaxAttempts: -1, BaseDelay: time.Millisecond},
		"zero base":         {MaxAttempts: 1},
		"negative max":      {MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: -1},
		"max below base":    {MaxAttempts: 1, BaseDelay: time.Second, MaxDelay: time.Millisecond},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, cfg.Validate())
		})
	}
}
