package transport

import (
	"math"
	rand "math/rand/v2"
	"time"
)

// backoff computes reconnect delays.
//
// Without jitter the delay for attempt n (1-based) is base * 2^(n-1), capped at max.
// With a seeded RNG the delay is drawn uniformly from [d/2, d] ("equal jitter"),
// which keeps the exponential envelope while spreading reconnect storms.
type backoff struct {
	base   time.Duration
	maxDur time.Duration
	rng    *rand.Rand
}

func newBackoff(cfg Config) *backoff {
	return &backoff{
		base:   cfg.BaseDelay,
		maxDur: cfg.MaxDelay,
		rng:    newRetryRNG(cfg.JitterSeed),
	}
}

// delay returns the wait before reconnect attempt n.
func (b *backoff) delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := b.base
	for i := 1; i < attempt; i++ {
		if b.maxDur > 0 && d >= b.maxDur {
			break
		}
		if d > time.Duration(math.MaxInt64/2) {
			break
		}
		d *= 2
	}
	if b.maxDur > 0 && d > b.maxDur {
		d = b.maxDur
	}

	if b.rng == nil || d < 2 {
		return d
	}
	half := d / 2

	return half + time.Duration(b.rng.Int64N(int64(d-half)+1))
}

// newRetryRNG returns a deterministic RNG only when a non-zero seed is provided.
// When seed == 0 it returns nil and delays carry no jitter.
//
//nolint:gosec
func newRetryRNG(seed int64) *rand.Rand {
	if seed == 0 {
		return nil
	}
	s1 := uint64(seed)
	s2 := s1 ^ 0x9e3779b97f4a7c15

	return rand.New(rand.NewPCG(s1, s2))
}
