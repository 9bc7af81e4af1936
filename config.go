package streamgrid

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/streamgrid/grid"
	"github.com/arloliu/streamgrid/queue"
	"github.com/arloliu/streamgrid/subscription"
	"github.com/arloliu/streamgrid/transport"
	"github.com/arloliu/streamgrid/types"
)

// ReconnectConfig is the transport reconnect policy.
type ReconnectConfig = transport.Config

// Config is the configuration for the Controller.
//
// Pipeline timing:
//
//	FlushInterval bounds how long an update waits before it reaches the surface.
//	MaxBatchSize flushes a window early under burst load.
//	MaxQueueDepth bounds memory: above it, superseded updates are dropped.
//
// Reconnect timing:
//
//	Attempt n waits Reconnect.BaseDelay * 2^(n-1), capped at Reconnect.MaxDelay.
//	After Reconnect.MaxAttempts failed attempts the connection reaches Failed and
//	the error is delivered on Controller.Fatal.
//
// Only FlushInterval and ShutdownTimeout have defaults. Everything else must be set
// explicitly; Validate rejects a config that leaves them unset.
type Config struct {
	// FlushInterval is the batching window length. Default 100ms.
	FlushInterval time.Duration `yaml:"flushInterval"`

	// MaxBatchSize flushes early once this many messages are pending.
	// Zero disables the size threshold.
	MaxBatchSize int `yaml:"maxBatchSize"`

	// MaxQueueDepth is the pending depth above which superseded updates are dropped.
	MaxQueueDepth int `yaml:"maxQueueDepth"`

	// Reconnect is the transport reconnect policy.
	Reconnect ReconnectConfig `yaml:"reconnect"`

	// Topics are the topic patterns the Controller subscribes to. Empty means all.
	Topics []string `yaml:"topics"`

	// Columns are registered with the adapter on construction.
	Columns []grid.Column `yaml:"columns"`

	// ShutdownTimeout bounds Stop when its context carries no deadline. Default 5s.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// DefaultConfig returns a configuration with suggested production values.
//
// Returns:
//   - Config: A fully populated configuration
func DefaultConfig() Config {
	return Config{
		FlushInterval: 100 * time.Millisecond,
		MaxBatchSize:  500,
		MaxQueueDepth: 10000,
		Reconnect: ReconnectConfig{
			MaxAttempts: 10,
			BaseDelay:   100 * time.Millisecond,
			MaxDelay:    10 * time.Second,
		},
		ShutdownTimeout: 5 * time.Second,
	}
}

// SetDefaults fills in the values that have documented defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = defaults.FlushInterval
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}
}

// Validate checks configuration values.
//
// Returns:
//   - error: wrapped types.ErrInvalidConfig describing the first problem found
func (cfg *Config) Validate() error {
	if err := cfg.queueConfig().Validate(); err != nil {
		return err
	}
	if err := cfg.Reconnect.Validate(); err != nil {
		return err
	}
	if cfg.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: shutdownTimeout must be >= 0, got %v", types.ErrInvalidConfig, cfg.ShutdownTimeout)
	}
	for _, p := range cfg.Topics {
		if !subscription.ValidPattern(p) {
			return fmt.Errorf("%w: invalid topic pattern %q", types.ErrInvalidConfig, p)
		}
	}

	return nil
}

// ValidateWithWarnings validates the configuration and logs warnings for settings
// that are legal but likely unintended.
//
// Parameters:
//   - logger: Logger for warnings (nil skips warnings)
//
// Returns:
//   - error: Same as Validate
func (cfg *Config) ValidateWithWarnings(logger Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if logger == nil {
		return nil
	}

	if cfg.FlushInterval < 10*time.Millisecond {
		logger.Warn("flush interval below 10ms; surface transactions will be frequent",
			"flush_interval", cfg.FlushInterval)
	}
	if cfg.MaxBatchSize > cfg.MaxQueueDepth {
		logger.Warn("max batch size exceeds max queue depth; overflow compaction runs before size flushes",
			"max_batch_size", cfg.MaxBatchSize, "max_queue_depth", cfg.MaxQueueDepth)
	}
	if cfg.Reconnect.MaxAttempts == 0 {
		logger.Warn("reconnect disabled; the first transport error is fatal")
	}
	if cfg.Reconnect.MaxDelay == 0 {
		logger.Warn("reconnect delay is uncapped", "max_attempts", cfg.Reconnect.MaxAttempts)
	}

	return nil
}

// TestConfig returns a configuration tuned for tests: short flush windows and
// millisecond reconnect delays.
//
// Example:
//
//	cfg := streamgrid.TestConfig()
//	ctrl, err := streamgrid.NewController(&cfg, factory, surface)
func TestConfig() Config {
	return Config{
		FlushInterval: 10 * time.Millisecond,
		MaxBatchSize:  100,
		MaxQueueDepth: 1000,
		Reconnect: ReconnectConfig{
			MaxAttempts: 3,
			BaseDelay:   5 * time.Millisecond,
			MaxDelay:    20 * time.Millisecond,
		},
		ShutdownTimeout: 2 * time.Second,
	}
}

// LoadConfig reads a YAML configuration file, applies defaults and validates it.
//
// Unknown keys are rejected. Durations use Go syntax ("100ms", "5s").
//
// Example:
//
//	# streamgrid.yaml
//	flushInterval: 100ms
//	maxQueueDepth: 10000
//	reconnect:
//	  maxAttempts: 5
//	  baseDelay: 100ms
//	  maxDelay: 5s
//	topics: ["positions.>"]
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig decodes YAML configuration bytes, applies defaults and validates.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidConfig, err)
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (cfg *Config) queueConfig() queue.Config {
	return queue.Config{
		FlushInterval: cfg.FlushInterval,
		MaxBatchSize:  cfg.MaxBatchSize,
		MaxQueueDepth: cfg.MaxQueueDepth,
	}
}
