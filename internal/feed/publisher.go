package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/streamgrid/types"
)

// Publisher delivers generated messages to a stream source.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// NATSPublisher publishes each message on the subject named by its topic.
type NATSPublisher struct {
	nc *nats.Conn
}

// NewNATSPublisher creates a publisher on an established connection.
func NewNATSPublisher(nc *nats.Conn) *NATSPublisher {
	return &NATSPublisher{nc: nc}
}

// Publish implements Publisher.
func (p *NATSPublisher) Publish(_ context.Context, msg Message) error {
	data, err := msg.Marshal()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.nc.Publish(msg.Topic, data)
}

// KVPublisher writes updates as bucket entries: the row key is the entry key and
// the entry value is the JSON field object. Removes delete the entry.
//
// KV updates replace the whole value, so a KV-backed feed always carries every
// field of the row.
type KVPublisher struct {
	kv jetstream.KeyValue
}

// NewKVPublisher creates a publisher for bucket kv.
func NewKVPublisher(kv jetstream.KeyValue) *KVPublisher {
	return &KVPublisher{kv: kv}
}

// Publish implements Publisher.
func (p *KVPublisher) Publish(ctx context.Context, msg Message) error {
	if msg.Op == types.OpRemove {
		err := p.kv.Delete(ctx, msg.Key)
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil
		}

		return err
	}

	data, err := json.Marshal(msg.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	_, err = p.kv.Put(ctx, msg.Key, data)

	return err
}
