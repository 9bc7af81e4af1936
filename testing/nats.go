package testing

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// StartEmbeddedNATS starts an in-process NATS server with JetStream enabled and a
// client connected to it.
//
// The server listens on a random port and keeps JetStream data in t.TempDir().
// Server and client are shut down via t.Cleanup.
//
// Returns:
//   - *server.Server: The embedded NATS server instance
//   - *nats.Conn: Connected NATS client (closed automatically on test completion)
//
// Example:
//
//	func TestFeed(t *testing.T) {
//	    srv, nc := gridtest.StartEmbeddedNATS(t)
//	    factory := &transport.NATSFactory{URL: srv.ClientURL(), Subjects: []string{"grid.>"}}
//	    _ = nc.Publish("grid.positions", payload)
//	}
func StartEmbeddedNATS(t testing.TB) (*server.Server, *nats.Conn) {
	t.Helper()

	ns := StartEmbeddedNATSServer(t, -1)

	nc, err := nats.Connect(ns.ClientURL(),
		nats.Timeout(2*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(50*time.Millisecond),
	)
	if err != nil {
		ns.Shutdown()
		t.Fatalf("Failed to connect to embedded NATS server: %v", err)
	}

	t.Cleanup(func() {
		nc.Close()
	})

	return ns, nc
}

// StartEmbeddedNATSServer starts an in-process NATS server without a client.
//
// Parameters:
//   - port: Listen port; -1 picks a random free port
func StartEmbeddedNATSServer(t testing.TB, port int) *server.Server {
	t.Helper()

	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      port,
		JetStream: true,
		StoreDir:  t.TempDir(),
		NoLog:     true,
		NoSigs:    true,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		t.Fatalf("Failed to create embedded NATS server: %v", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		t.Fatal("Embedded NATS server not ready within timeout")
	}

	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})

	return ns
}

// RestartEmbeddedNATS shuts ns down and starts a fresh server on the same port, so
// clients configured with the old URL can reconnect. JetStream state is not carried over.
func RestartEmbeddedNATS(t testing.TB, ns *server.Server) *server.Server {
	t.Helper()

	port := ServerPort(t, ns)
	ns.Shutdown()
	ns.WaitForShutdown()

	return StartEmbeddedNATSServer(t, port)
}

// ServerPort returns the client port ns listens on.
func ServerPort(t testing.TB, ns *server.Server) int {
	t.Helper()

	addr, ok := ns.Addr().(*net.TCPAddr)
	if !ok {
		t.Fatalf("unexpected NATS listen address %v", ns.Addr())
	}

	return addr.Port
}

// CreateJetStreamKV creates a memory-backed JetStream KV bucket for testing.
func CreateJetStreamKV(t testing.TB, nc *nats.Conn, bucketName string) jetstream.KeyValue {
	t.Helper()

	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatalf("Failed to get JetStream context: %v", err)
	}

	kv, err := js.CreateKeyValue(t.Context(), jetstream.KeyValueConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("Test KV bucket: %s", bucketName),
		Storage:     jetstream.MemoryStorage,
		Replicas:    1,
	})
	if err != nil {
		t.Fatalf("Failed to create KV bucket %s: %v", bucketName, err)
	}

	return kv
}
