package feed

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

var errServerNotReady = errors.New("nats server not ready")

// StartServer runs an in-process NATS server with JetStream so a demo feed needs
// no external infrastructure.
//
// Parameters:
//   - host: Listen host (e.g. "127.0.0.1")
//   - port: Listen port, -1 for a random one
//   - storeDir: JetStream storage directory
//
// Returns:
//   - *server.Server: Running server; call Shutdown and WaitForShutdown to stop it
//   - error: Creation failure or readiness timeout
func StartServer(host string, port int, storeDir string) (*server.Server, error) {
	opts := &server.Options{
		Host:      host,
		Port:      port,
		JetStream: true,
		StoreDir:  storeDir,
		NoLog:     true,
		NoSigs:    true,
	}

	srv, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create nats server: %w", err)
	}

	go srv.Start()

	if !srv.ReadyForConnections(10 * time.Second) {
		srv.Shutdown()
		return nil, errServerNotReady
	}

	return srv, nil
}
