package transport

import (
	"fmt"
	"time"

	"github.com/arloliu/streamgrid/types"
)

// Config controls the reconnect policy of a Connection.
type Config struct {
	// MaxAttempts is the number of reconnect attempts after a failure before the
	// connection transitions to Failed. Zero means the first failure is fatal.
	MaxAttempts int `yaml:"maxAttempts"`

	// BaseDelay is the delay before the first reconnect attempt.
	// Attempt n waits BaseDelay * 2^(n-1).
	BaseDelay time.Duration `yaml:"baseDelay"`

	// MaxDelay caps the backoff delay. Zero means uncapped.
	MaxDelay time.Duration `yaml:"maxDelay"`

	// JitterSeed enables deterministic jitter when non-zero. Zero disables jitter
	// and delays are exact.
	JitterSeed int64 `yaml:"jitterSeed"`
}

// Validate checks the reconnect policy.
//
// Returns:
//   - error: wrapped types.ErrInvalidConfig describing the first problem found
func (c Config) Validate() error {
	if c.MaxAttempts < 0 {
		return fmt.Errorf("%w: reconnect maxAttempts must be >= 0, got %d", types.ErrInvalidConfig, c.MaxAttempts)
	}
	if c.BaseDelay <= 0 {
		return fmt.Errorf("%w: reconnect baseDelay must be > 0, got %v", types.ErrInvalidConfig, c.BaseDelay)
	}
	if c.MaxDelay < 0 {
		return fmt.Errorf("%w: reconnect maxDelay must be >= 0, got %v", types.ErrInvalidConfig, c.MaxDelay)
	}
	if c.MaxDelay > 0 && c.MaxDelay < c.BaseDelay {
		return fmt.Errorf("%w: reconnect maxDelay (%v) must be >= baseDelay (%v)",
			types.ErrInvalidConfig, c.MaxDelay, c.BaseDelay)
	}

	return nil
}
