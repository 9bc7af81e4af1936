package kvutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	gridtest "github.com/arloliu/streamgrid/testing"
)

func TestOpenBucket_CreatesWhenMissing(t *testing.T) {
	_, nc := gridtest.StartEmbeddedNATS(t)

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()

	kv, err := OpenBucket(ctx, js, jetstream.KeyValueConfig{Bucket: "positions", Storage: jetstream.MemoryStorage}, true, 3)
	require.NoError(t, err)
	require.Equal(t, "positions", kv.Bucket())

	_, err = kv.Put(ctx, "1", []byte(`{"price":10}`))
	require.NoError(t, err)

	// Opening again returns the same bucket contents.
	again, err := OpenBucket(ctx, js, jetstream.KeyValueConfig{Bucket: "positions"}, false, 3)
	require.NoError(t, err)
	entry, err := again.Get(ctx, "1")
	require.NoError(t, err)
	require.JSONEq(t, `{"price":10}`, string(entry.Value()))
}

func TestOpenBucket_MissingWithoutCreate(t *testing.T) {
	_, nc := gridtest.StartEmbeddedNATS(t)

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	_, err = OpenBucket(t.Context(), js, jetstream.KeyValueConfig{Bucket: "absent"}, false, 3)
	require.ErrorIs(t, err, jetstream.ErrBucketNotFound)
}

func TestOpenBucket_ConcurrentCreate(t *testing.T) {
	_, nc := gridtest.StartEmbeddedNATS(t)

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()

	const readers = 5
	var wg sync.WaitGroup
	errs := make(chan error, readers)

	for range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := OpenBucket(ctx, js, jetstream.KeyValueConfig{Bucket: "shared", Storage: jetstream.MemoryStorage}, true, 5)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
}
