package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/streamgrid/internal/kvutil"
	"github.com/arloliu/streamgrid/types"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// KVFactory streams a JetStream key-value bucket as row updates.
//
// Each dial replays the current bucket contents followed by live changes, so a
// reconnect rebuilds the table from the latest values. A Put becomes an "update"
// frame whose fields are the entry value (a JSON object); Delete and Purge become
// "remove" frames.
type KVFactory struct {
	// URL is the NATS server URL.
	URL string

	// Bucket is the key-value bucket to watch.
	Bucket string

	// Topic is stamped on every produced frame. Defaults to Bucket.
	Topic string

	// Create creates the bucket (memory storage) when it does not exist.
	Create bool

	// Name is the client connection name shown by the server.
	Name string

	// Options are appended after the factory's own options.
	Options []nats.Option
}

var _ types.ConnectionFactory = (*KVFactory)(nil)

// kvFrame is the inbound wire shape produced from a bucket entry.
type kvFrame struct {
	Topic  string          `json:"topic"`
	Key    string          `json:"key"`
	Op     types.Op        `json:"op"`
	Fields json.RawMessage `json:"fields,omitempty"`
}

// Dial implements types.ConnectionFactory.
func (f *KVFactory) Dial(ctx context.Context) (types.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Bucket == "" {
		return nil, fmt.Errorf("%w: kv bucket is required", types.ErrInvalidConfig)
	}

	nc, closed, err := dialNATS(ctx, f.URL, f.Name, f.Options)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	kv, err := kvutil.OpenBucket(ctx, js, jetstream.KeyValueConfig{
		Bucket:  f.Bucket,
		Storage: jetstream.MemoryStorage,
	}, f.Create, 3)
	if err != nil {
		nc.Close()
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	watcher, err := kv.WatchAll(watchCtx)
	if err != nil {
		cancel()
		nc.Close()

		return nil, fmt.Errorf("watch bucket %q: %w", f.Bucket, err)
	}

	topic := f.Topic
	if topic == "" {
		topic = f.Bucket
	}

	return &kvConn{nc: nc, watcher: watcher, cancel: cancel, closed: closed, topic: topic}, nil
}

type kvConn struct {
	nc      *nats.Conn
	watcher jetstream.KeyWatcher
	cancel  context.CancelFunc
	closed  <-chan struct{}
	topic   string
}

func (c *kvConn) Receive(ctx context.Context) (types.RawMessage, error) {
	for {
		select {
		case entry, ok := <-c.watcher.Updates():
			if !ok {
				return types.RawMessage{}, lostError(c.nc.LastError())
			}
			// nil marks the end of the initial replay
			if entry == nil {
				continue
			}

			return c.frame(entry)
		case <-c.closed:
			return types.RawMessage{}, lostError(c.nc.LastError())
		case <-ctx.Done():
			return types.RawMessage{}, ctx.Err()
		}
	}
}

func (c *kvConn) frame(entry jetstream.KeyValueEntry) (types.RawMessage, error) {
	frame := kvFrame{Topic: c.topic, Key: entry.Key()}
	switch entry.Operation() {
	case jetstream.KeyValueDelete, jetstream.KeyValuePurge:
		frame.Op = types.OpRemove
	default:
		frame.Op = types.OpUpdate
		frame.Fields = json.RawMessage(entry.Value())
		if !json.Valid(frame.Fields) {
			// hand the raw value through so the decoder reports it per row
			return types.RawMessage{Subject: c.subject(entry), Data: entry.Value(), ReceivedAt: time.Now()}, nil
		}
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return types.RawMessage{}, errors.Join(types.ErrMessageParse, err)
	}

	return types.RawMessage{Subject: c.subject(entry), Data: data, ReceivedAt: time.Now()}, nil
}

func (c *kvConn) subject(entry jetstream.KeyValueEntry) string {
	return "$KV." + entry.Bucket() + "." + entry.Key()
}

func (c *kvConn) Close() error {
	err := c.watcher.Stop()
	c.cancel()
	c.nc.Close()

	if err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("stop watcher: %w", err)
	}

	return nil
}
