package transport

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

func connectClient(t *testing.T, url string) *nats.Conn {
	t.Helper()

	nc, err := nats.Connect(url, nats.Timeout(2*time.Second))
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	return nc
}
