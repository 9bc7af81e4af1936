package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	gridtest "github.com/arloliu/streamgrid/testing"
	"github.com/arloliu/streamgrid/types"
)

func receiveOne(t *testing.T, conn types.Conn) types.RawMessage {
	t.Helper()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	msg, err := conn.Receive(ctx)
	require.NoError(t, err)

	return msg
}

func TestNATSFactory_DialAndReceive(t *testing.T) {
	srv, nc := gridtest.StartEmbeddedNATS(t)

	f := &NATSFactory{URL: srv.ClientURL(), Subjects: []string{"grid.>"}, Name: "test"}
	conn, err := f.Dial(t.Context())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, nc.Publish("other.subject", []byte(`ignored`)))
	require.NoError(t, nc.Publish("grid.positions", []byte(`{"key":"1","op":"update"}`)))
	require.NoError(t, nc.Flush())

	msg := receiveOne(t, conn)
	require.Equal(t, "grid.positions", msg.Subject)
	require.JSONEq(t, `{"key":"1","op":"update"}`, string(msg.Data))
}

func TestNATSFactory_RequiresSubjects(t *testing.T) {
	f := &NATSFactory{URL: "nats://127.0.0.1:1"}
	_, err := f.Dial(t.Context())
	require.ErrorIs(t, err, types.ErrInvalidConfig)
}

func TestNATSFactory_DialRefused(t *testing.T) {
	srv := gridtest.StartEmbeddedNATSServer(t, -1)
	url := srv.ClientURL()
	srv.Shutdown()
	srv.WaitForShutdown()

	f := &NATSFactory{URL: url, Subjects: []string{"grid.>"}}
	_, err := f.Dial(t.Context())
	require.ErrorIs(t, err, types.ErrConnectionLost)
}

func TestNATSFactory_ServerShutdownSurfacesConnectionLost(t *testing.T) {
	srv := gridtest.StartEmbeddedNATSServer(t, -1)

	f := &NATSFactory{URL: srv.ClientURL(), Subjects: []string{"grid.>"}}
	conn, err := f.Dial(t.Context())
	require.NoError(t, err)
	defer conn.Close()

	srv.Shutdown()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	_, err = conn.Receive(ctx)
	require.ErrorIs(t, err, types.ErrConnectionLost)
}

func TestConnection_ReconnectsToRestartedServer(t *testing.T) {
	srv := gridtest.StartEmbeddedNATSServer(t, -1)

	c, err := New(&NATSFactory{URL: srv.ClientURL(), Subjects: []string{"grid.>"}},
		Config{MaxAttempts: 100, BaseDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond},
		WithLogger(gridtest.NewTestLogger(t)))
	require.NoError(t, err)
	defer c.Disconnect()

	rec := recordStates(c)
	require.NoError(t, c.Connect(t.Context()))
	rec.waitFor(t, types.StateConnected)

	srv = gridtest.RestartEmbeddedNATS(t, srv)
	rec.waitFor(t, types.StateReconnecting)
	rec.waitFor(t, types.StateConnected)

	nc := connectClient(t, srv.ClientURL())
	// the subscription is re-established on the new connection
	require.Eventually(t, func() bool {
		_ = nc.Publish("grid.after", []byte(`{}`))
		select {
		case msg := <-c.Messages():
			return msg.Subject == "grid.after"
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}
