package testing

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

func TestStartEmbeddedNATS(t *testing.T) {
	ns, nc := StartEmbeddedNATS(t)

	require.NotNil(t, ns)
	require.True(t, nc.IsConnected())
	require.True(t, ns.ReadyForConnections(time.Second))
	require.True(t, ns.JetStreamEnabled())
}

func TestRestartEmbeddedNATS_SamePort(t *testing.T) {
	ns := StartEmbeddedNATSServer(t, -1)
	port := ServerPort(t, ns)
	url := ns.ClientURL()

	restarted := RestartEmbeddedNATS(t, ns)
	require.Equal(t, port, ServerPort(t, restarted))

	nc, err := nats.Connect(url, nats.Timeout(2*time.Second))
	require.NoError(t, err)
	defer nc.Close()
	require.True(t, nc.IsConnected())
}

func TestCreateJetStreamKV(t *testing.T) {
	_, nc := StartEmbeddedNATS(t)

	kv := CreateJetStreamKV(t, nc, "rows")
	_, err := kv.Put(t.Context(), "1", []byte(`{"price":1}`))
	require.NoError(t, err)

	entry, err := kv.Get(t.Context(), "1")
	require.NoError(t, err)
	require.Equal(t, uint64(1), entry.Revision())
}
