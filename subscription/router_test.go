package subscription

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	gridtest "github.com/arloliu/streamgrid/testing"
	"github.com/arloliu/streamgrid/types"
)

func startRouter(t *testing.T, opts ...Option) (*Router, chan types.RawMessage) {
	t.Helper()

	opts = append([]Option{WithLogger(gridtest.NewTestLogger(t))}, opts...)
	r := NewRouter(opts...)
	in := make(chan types.RawMessage)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.Run(ctx, in)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return r, in
}

func next(t *testing.T, s *Subscription) types.UpdateMessage {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	msg, err := s.Next(ctx)
	require.NoError(t, err)

	return msg
}

func TestRouter_DeliversMatchingOnly(t *testing.T) {
	r, in := startRouter(t)
	positions := r.Subscribe("positions.*")
	defer positions.Close()
	everything := r.Subscribe()
	defer everything.Close()

	in <- raw("", `{"topic":"orders.eu","key":"9","op":"update"}`)
	in <- raw("", `{"topic":"positions.eu","key":"1","op":"update","fields":{"price":10}}`)

	require.Equal(t, types.Key("9"), next(t, everything).Key)
	require.Equal(t, types.Key("1"), next(t, everything).Key)

	// the non-matching order never reaches the positions subscription
	msg := next(t, positions)
	require.Equal(t, types.Key("1"), msg.Key)
	require.Equal(t, "positions.eu", msg.Topic)
}

func TestRouter_ParseErrorsAreAbsorbed(t *testing.T) {
	var mu sync.Mutex
	var reported []error
	r, in := startRouter(t, WithErrorHandler(func(err error) {
		mu.Lock()
		reported = append(reported, err)
		mu.Unlock()
	}))
	sub := r.Subscribe(">")
	defer sub.Close()

	in <- raw("grid.bad", `garbage`)
	in <- raw("grid.good", `{"key":"1","op":"update"}`)

	require.Equal(t, types.Key("1"), next(t, sub).Key)

	mu.Lock()
	require.Len(t, reported, 1)
	require.ErrorIs(t, reported[0], types.ErrMessageParse)
	mu.Unlock()

	parsed, dropped := r.Stats()
	require.Equal(t, int64(1), parsed)
	require.Equal(t, int64(1), dropped)
}

func TestSubscription_NextAfterClose(t *testing.T) {
	r := NewRouter()
	sub := r.Subscribe("a")
	sub.Close()
	sub.Close()

	_, err := sub.Next(context.Background())
	require.ErrorIs(t, err, types.ErrClosed)
}

func TestSubscription_NextHonorsContext(t *testing.T) {
	sub := NewRouter().Subscribe("a")
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := sub.Next(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubscription_All(t *testing.T) {
	r, in := startRouter(t)
	sub := r.Subscribe("t")

	go func() {
		for _, k := range []string{"1", "2", "3"} {
			in <- raw("", `{"topic":"t","key":"`+k+`","op":"update"}`)
		}
	}()

	var keys []types.Key
	for msg := range sub.All(context.Background()) {
		keys = append(keys, msg.Key)
		if len(keys) == 3 {
			break
		}
	}
	require.Equal(t, []types.Key{"1", "2", "3"}, keys)

	sub.Close()
	for range sub.All(context.Background()) {
		t.Fatal("closed subscription yielded a message")
	}
}

func TestSubscription_Patterns(t *testing.T) {
	sub := NewRouter().Subscribe("a.*", "b")
	require.Equal(t, []string{"a.*", "b"}, sub.Patterns())
	require.Equal(t, []string{">"}, NewRouter().Subscribe().Patterns())
}

// A disconnected transport simply stops producing frames; the subscription blocks
// and resumes when frames flow again.
func TestSubscription_SuspendsWhileSourceIsQuiet(t *testing.T) {
	r, in := startRouter(t)
	sub := r.Subscribe(">")
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	_, err := sub.Next(ctx)
	cancel()
	require.ErrorIs(t, err, context.DeadlineExceeded)

	in <- raw("", `{"topic":"t","key":"1","op":"update"}`)
	require.Equal(t, types.Key("1"), next(t, sub).Key)
}
