package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/require"

	gridtest "github.com/arloliu/streamgrid/testing"
	"github.com/arloliu/streamgrid/types"
)

func update(key string, fields map[string]any) types.UpdateMessage {
	return types.UpdateMessage{Topic: "t", Key: types.Key(key), Op: types.OpUpdate, Fields: fields}
}

func remove(key string) types.UpdateMessage {
	return types.UpdateMessage{Topic: "t", Key: types.Key(key), Op: types.OpRemove}
}

func keysOf(b types.Batch) []string {
	out := make([]string, 0, len(b))
	for _, m := range b {
		out = append(out, string(m.Key)+":"+string(m.Op))
	}

	return out
}

type batchSink struct {
	mu      sync.Mutex
	batches []types.Batch
	ch      chan types.Batch
}

func newSink() *batchSink {
	return &batchSink{ch: make(chan types.Batch, 16)}
}

func (s *batchSink) sink(b types.Batch) {
	s.mu.Lock()
	s.batches = append(s.batches, b)
	s.mu.Unlock()
	s.ch <- b
}

func (s *batchSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.batches)
}

func runQueue(t *testing.T, q *Queue, s *batchSink) context.CancelFunc {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = q.Run(ctx, s.sink)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return cancel
}

func newQueue(t *testing.T, cfg Config) *Queue {
	t.Helper()

	q, err := New(cfg, WithLogger(gridtest.NewTestLogger(t)))
	require.NoError(t, err)

	return q
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, Config{FlushInterval: time.Millisecond, MaxQueueDepth: 1}.Validate())
	require.ErrorIs(t, Config{MaxQueueDepth: 1}.Validate(), types.ErrInvalidConfig)
	require.ErrorIs(t, Config{FlushInterval: time.Millisecond}.Validate(), types.ErrInvalidConfig)
	require.ErrorIs(t, Config{FlushInterval: time.Millisecond, MaxQueueDepth: 1, MaxBatchSize: -1}.Validate(), types.ErrInvalidConfig)
}

func TestQueue_IntervalFlushPreservesOrder(t *testing.T) {
	q := newQueue(t, Config{FlushInterval: 20 * time.Millisecond, MaxQueueDepth: 100})
	q.Push(update("1", map[string]any{"price": 10}))
	q.Push(update("2", nil))
	q.Push(update("1", map[string]any{"price": 12}))
	q.Push(remove("3"))

	s := newSink()
	runQueue(t, q, s)

	select {
	case b := <-s.ch:
		require.Equal(t, []string{"1:update", "2:update", "1:update", "3:remove"}, keysOf(b))
		require.Equal(t, 12, b[2].Fields["price"])
	case <-time.After(2 * time.Second):
		t.Fatal("no batch flushed")
	}
	require.Zero(t, q.Len())
}

func TestQueue_FlushWindowFollowsClock(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	q, err := New(Config{FlushInterval: time.Second, MaxQueueDepth: 10},
		WithLogger(gridtest.NewTestLogger(t)), WithClock(clk))
	require.NoError(t, err)

	s := newSink()
	runQueue(t, q, s)

	q.Push(update("1", nil))
	require.NoError(t, clk.WaitAdvance(500*time.Millisecond, time.Second, 1))
	time.Sleep(20 * time.Millisecond)
	require.Zero(t, s.count(), "window still open")

	require.NoError(t, clk.WaitAdvance(500*time.Millisecond, time.Second, 1))
	select {
	case b := <-s.ch:
		require.Equal(t, []string{"1:update"}, keysOf(b))
	case <-time.After(2 * time.Second):
		t.Fatal("window did not close")
	}

	// the next window starts when the previous one closed
	q.Push(update("2", nil))
	require.NoError(t, clk.WaitAdvance(time.Second, time.Second, 1))
	select {
	case b := <-s.ch:
		require.Equal(t, []string{"2:update"}, keysOf(b))
	case <-time.After(2 * time.Second):
		t.Fatal("second window did not close")
	}
}

func TestQueue_EmptyWindowEmitsNothing(t *testing.T) {
	q := newQueue(t, Config{FlushInterval: 5 * time.Millisecond, MaxQueueDepth: 10})
	s := newSink()
	runQueue(t, q, s)

	time.Sleep(60 * time.Millisecond)
	require.Zero(t, s.count())
}

func TestQueue_SizeThresholdFlushesEarly(t *testing.T) {
	q := newQueue(t, Config{FlushInterval: time.Hour, MaxBatchSize: 3, MaxQueueDepth: 100})
	s := newSink()
	runQueue(t, q, s)

	q.Push(update("1", nil))
	q.Push(update("2", nil))
	q.Push(update("3", nil))

	select {
	case b := <-s.ch:
		require.Equal(t, []string{"1:update", "2:update", "3:update"}, keysOf(b))
	case <-time.After(2 * time.Second):
		t.Fatal("size threshold did not flush")
	}
}

func TestQueue_EachMessageInExactlyOneBatch(t *testing.T) {
	q := newQueue(t, Config{FlushInterval: 2 * time.Millisecond, MaxBatchSize: 7, MaxQueueDepth: 1000})
	s := newSink()
	runQueue(t, q, s)

	const total = 200
	for i := range total {
		q.Push(types.UpdateMessage{Key: types.Key(string(rune('a' + i%26))), Op: types.OpUpdate, Fields: map[string]any{"seq": i}})
	}

	seen := 0
	last := -1
	deadline := time.After(5 * time.Second)
	for seen < total {
		select {
		case b := <-s.ch:
			for _, m := range b {
				seq, ok := m.Fields["seq"].(int)
				require.True(t, ok)
				require.Greater(t, seq, last)
				last = seq
				seen++
			}
		case <-deadline:
			t.Fatalf("only %d of %d messages flushed", seen, total)
		}
	}
	require.Equal(t, total, seen)
}

func TestQueue_OverflowDropsSupersededUpdatesOnly(t *testing.T) {
	q := newQueue(t, Config{FlushInterval: time.Hour, MaxQueueDepth: 4})

	q.Push(update("1", map[string]any{"v": 1}))
	q.Push(remove("2"))
	q.Push(update("2", map[string]any{"v": 1}))
	q.Push(update("1", map[string]any{"v": 2}))
	require.Equal(t, 4, q.Len())

	// depth 5 > 4: the first updates of "1" and "2" are superseded
	q.Push(remove("2"))
	require.Equal(t, 3, q.Len())

	// back under the limit duplicates accumulate until the depth is exceeded again
	q.Push(update("1", map[string]any{"v": 3}))
	require.Equal(t, 4, q.Len())
	q.Push(remove("2"))
	require.Equal(t, 4, q.Len())
	q.Push(update("3", nil))
	require.Equal(t, 5, q.Len())

	b := q.Drain()
	require.Equal(t, []string{"2:remove", "2:remove", "1:update", "2:remove", "3:update"}, keysOf(b))
	require.Equal(t, 3, b[2].Fields["v"])
	require.Nil(t, q.Drain())
}

func TestQueue_OverflowWithDistinctKeysKeepsEverything(t *testing.T) {
	q := newQueue(t, Config{FlushInterval: time.Hour, MaxQueueDepth: 2})

	q.Push(update("1", nil))
	q.Push(remove("2"))
	q.Push(remove("2"))
	q.Push(update("3", nil))

	require.Equal(t, []string{"1:update", "2:remove", "2:remove", "3:update"}, keysOf(q.Drain()))
}

func TestQueue_OverflowRemoveSupersedesUpdate(t *testing.T) {
	q := newQueue(t, Config{FlushInterval: time.Hour, MaxQueueDepth: 2})

	q.Push(update("1", nil))
	q.Push(update("2", nil))
	q.Push(update("3", nil))
	q.Push(remove("3"))

	require.Equal(t, []string{"1:update", "2:update", "3:remove"}, keysOf(q.Drain()))
}

func TestQueue_ResetDiscardsPending(t *testing.T) {
	q := newQueue(t, Config{FlushInterval: 10 * time.Millisecond, MaxBatchSize: 2, MaxQueueDepth: 10})
	q.Push(update("1", nil))
	q.Push(update("2", nil))
	q.Reset()

	require.Zero(t, q.Len())

	s := newSink()
	runQueue(t, q, s)
	time.Sleep(50 * time.Millisecond)
	require.Zero(t, s.count())
}

func TestQueue_RunStopsOnCancel(t *testing.T) {
	q := newQueue(t, Config{FlushInterval: time.Hour, MaxQueueDepth: 10})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- q.Run(ctx, func(types.Batch) {}) }()

	q.Push(update("1", nil))
	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	require.Equal(t, 1, q.Len())
}
