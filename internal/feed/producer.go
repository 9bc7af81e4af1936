package feed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/streamgrid/internal/logging"
	"github.com/arloliu/streamgrid/types"
)

// Config controls a Producer.
type Config struct {
	// Topic is the topic (NATS subject) of every message.
	Topic string

	// Keys is the number of distinct row keys.
	Keys int

	// Rate is the number of messages per second.
	Rate float64

	// RemoveRatio is the probability that a message removes its row (0.0-1.0).
	RemoveRatio float64

	// Seed makes the stream reproducible.
	Seed uint64

	// Weights selects keys. Defaults to UniformWeightGenerator.
	Weights WeightGenerator
}

// Producer emits synthetic updates at a fixed rate.
type Producer struct {
	cfg       Config
	publisher Publisher
	logger    types.Logger

	mu     sync.Mutex
	rng    *rand.Rand
	picker *picker
	seq    map[int]int64

	sent    atomic.Int64
	failed  atomic.Int64
	started atomic.Bool
}

// NewProducer creates a producer.
//
// Parameters:
//   - cfg: Stream shape
//   - publisher: Destination of generated messages
//   - logger: Logger (nil for none)
//
// Returns:
//   - *Producer: Initialized producer
//   - error: types.ErrInvalidConfig if cfg is unusable
func NewProducer(cfg Config, publisher Publisher, logger types.Logger) (*Producer, error) {
	if cfg.Topic == "" {
		return nil, fmt.Errorf("%w: topic is required", types.ErrInvalidConfig)
	}
	if cfg.Keys <= 0 {
		return nil, fmt.Errorf("%w: keys must be > 0, got %d", types.ErrInvalidConfig, cfg.Keys)
	}
	if cfg.Rate <= 0 {
		return nil, fmt.Errorf("%w: rate must be > 0, got %v", types.ErrInvalidConfig, cfg.Rate)
	}
	if cfg.RemoveRatio < 0 || cfg.RemoveRatio > 1 {
		return nil, fmt.Errorf("%w: removeRatio must be within [0, 1], got %v", types.ErrInvalidConfig, cfg.RemoveRatio)
	}
	if cfg.Weights == nil {
		cfg.Weights = UniformWeightGenerator{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Producer{
		cfg:       cfg,
		publisher: publisher,
		logger:    logger,
		rng:       rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)), //nolint:gosec // synthetic data
		picker:    newPicker(cfg.Weights.GenerateWeights(cfg.Keys)),
		seq:       make(map[int]int64, cfg.Keys),
	}, nil
}

// Start produces messages until ctx is canceled. Calls while running are ignored.
func (p *Producer) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		p.logger.Warn("producer already started")
		return
	}
	defer p.started.Store(false)

	interval := time.Duration(float64(time.Second) / p.cfg.Rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Info("producer started", "topic", p.cfg.Topic, "keys", p.cfg.Keys, "rate", p.cfg.Rate)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("producer stopped", "sent", p.sent.Load(), "failed", p.failed.Load())
			return
		case <-ticker.C:
			if err := p.publisher.Publish(ctx, p.Next()); err != nil {
				p.failed.Add(1)
				p.logger.Warn("publish failed", "error", err)

				continue
			}
			p.sent.Add(1)
		}
	}
}

// Next generates the next message without publishing it.
func (p *Producer) Next() Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.picker.pick(p.rng)
	key := fmt.Sprintf("row-%04d", idx)

	if p.cfg.RemoveRatio > 0 && p.rng.Float64() < p.cfg.RemoveRatio {
		delete(p.seq, idx)

		return Message{Topic: p.cfg.Topic, Key: key, Op: types.OpRemove}
	}

	p.seq[idx]++

	return Message{
		Topic: p.cfg.Topic,
		Key:   key,
		Op:    types.OpUpdate,
		Fields: map[string]any{
			"price": float64(p.rng.IntN(100000)) / 100,
			"qty":   p.rng.IntN(1000),
			"seq":   p.seq[idx],
		},
	}
}

// Stats returns the number of published and failed messages.
func (p *Producer) Stats() (sent, failed int64) {
	return p.sent.Load(), p.failed.Load()
}
