package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arloliu/streamgrid"
)

// metricsServer serves Prometheus metrics and a health endpoint.
type metricsServer struct {
	server *http.Server
	ln     net.Listener
	logger streamgrid.Logger
}

// newMetricsServer listens on addr and serves /metrics from reg and /health from
// the controller state.
func newMetricsServer(addr string, reg *prometheus.Registry, ctrl *streamgrid.Controller, logger streamgrid.Logger) (*metricsServer, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		state := ctrl.State()
		if state != streamgrid.StateConnected {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_, _ = w.Write([]byte(state.String() + "\n"))
	})

	return &metricsServer{
		server: &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second},
		ln:     ln,
		logger: logger,
	}, nil
}

// Addr returns the bound address.
func (s *metricsServer) Addr() string {
	return s.ln.Addr().String()
}

// Serve blocks until Shutdown.
func (s *metricsServer) Serve() {
	s.logger.Info("serving metrics", "addr", s.Addr())
	if err := s.server.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("metrics server failed", "error", err)
	}
}

// Shutdown stops the server.
func (s *metricsServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
