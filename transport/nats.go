package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/arloliu/streamgrid/internal/natsutil"
	"github.com/arloliu/streamgrid/types"
	"github.com/nats-io/nats.go"
)

const defaultNATSPending = 1024

// NATSFactory dials a NATS server and subscribes to a set of subjects.
//
// The NATS client's own reconnect logic is disabled: a lost server connection
// surfaces as types.ErrConnectionLost so the owning Connection applies its backoff
// policy.
type NATSFactory struct {
	// URL is the server URL, e.g. nats://127.0.0.1:4222.
	URL string

	// Subjects to subscribe to. Wildcards are allowed.
	Subjects []string

	// Name is the client connection name shown by the server.
	Name string

	// Pending is the per-connection buffer of undelivered messages.
	Pending int

	// Options are appended after the factory's own options.
	Options []nats.Option
}

var _ types.ConnectionFactory = (*NATSFactory)(nil)

// Dial implements types.ConnectionFactory.
func (f *NATSFactory) Dial(ctx context.Context) (types.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(f.Subjects) == 0 {
		return nil, fmt.Errorf("%w: at least one subject is required", types.ErrInvalidConfig)
	}

	nc, closed, err := dialNATS(ctx, f.URL, f.Name, f.Options)
	if err != nil {
		return nil, err
	}

	pending := f.Pending
	if pending <= 0 {
		pending = defaultNATSPending
	}
	msgs := make(chan *nats.Msg, pending)
	for _, subject := range f.Subjects {
		if _, err := nc.ChanSubscribe(subject, msgs); err != nil {
			nc.Close()
			return nil, fmt.Errorf("subscribe %q: %w", subject, err)
		}
	}
	// make sure the server has registered the interest before reporting success
	if err := nc.FlushWithContext(ctx); err != nil {
		nc.Close()
		return nil, natsutil.Classify(err)
	}

	return &natsConn{nc: nc, msgs: msgs, closed: closed}, nil
}

// dialNATS connects with client-side reconnects disabled. The returned channel is
// closed when the connection closes for any reason.
func dialNATS(ctx context.Context, url, name string, extra []nats.Option) (*nats.Conn, <-chan struct{}, error) {
	closed := make(chan struct{})
	var once sync.Once

	opts := []nats.Option{
		nats.NoReconnect(),
		nats.ClosedHandler(func(*nats.Conn) {
			once.Do(func() { close(closed) })
		}),
	}
	if name != "" {
		opts = append(opts, nats.Name(name))
	}
	if deadline, ok := ctx.Deadline(); ok {
		opts = append(opts, nats.Timeout(time.Until(deadline)))
	}
	opts = append(opts, extra...)

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, nil, natsutil.Classify(err)
	}

	return nc, closed, nil
}

type natsConn struct {
	nc     *nats.Conn
	msgs   chan *nats.Msg
	closed <-chan struct{}
}

func (c *natsConn) Receive(ctx context.Context) (types.RawMessage, error) {
	select {
	case m := <-c.msgs:
		return types.RawMessage{Subject: m.Subject, Data: m.Data, ReceivedAt: time.Now()}, nil
	case <-c.closed:
		return types.RawMessage{}, lostError(c.nc.LastError())
	case <-ctx.Done():
		return types.RawMessage{}, ctx.Err()
	}
}

func (c *natsConn) Close() error {
	c.nc.Close()
	return nil
}

func lostError(cause error) error {
	if cause == nil {
		return types.ErrConnectionLost
	}
	if errors.Is(cause, types.ErrConnectionLost) {
		return cause
	}

	return fmt.Errorf("%w: %w", types.ErrConnectionLost, cause)
}
