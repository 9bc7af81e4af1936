// Package natsutil holds NATS helpers shared by the NATS-backed transports.
package natsutil

import (
	"context"
	"errors"
	"strings"

	"github.com/arloliu/streamgrid/types"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// IsConnectivityError reports whether err is caused by a broken or unreachable server
// rather than by a client-side misuse.
//
// Kept in internal/natsutil to avoid importing NATS dependencies in types/ package.
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, types.ErrConnectionLost) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrDisconnected) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrStaleConnection) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "i/o timeout")
}

// Classify wraps connectivity failures so callers can match types.ErrConnectionLost.
// Context errors and nil pass through unchanged.
func Classify(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if IsConnectivityError(err) && !errors.Is(err, types.ErrConnectionLost) {
		return errors.Join(types.ErrConnectionLost, err)
	}

	return err
}
