// Package testing provides test utilities for the streamgrid library.
//
// It follows Go's convention of shipping test helpers in a dedicated package
// (similar to net/http/httptest).
//
// Key utilities:
//   - StartEmbeddedNATS: single in-process NATS server with JetStream
//   - RestartEmbeddedNATS: bring a stopped server back on the same port
//   - CreateJetStreamKV: convenience wrapper for KV bucket creation
//   - RecordingSurface: a rendering surface that records every transaction
//   - NewTestLogger: a types.Logger writing to testing.T
//
// Example usage:
//
//	import gridtest "github.com/arloliu/streamgrid/testing"
//
//	func TestMyDashboard(t *testing.T) {
//	    srv, nc := gridtest.StartEmbeddedNATS(t)
//	    surface := gridtest.NewRecordingSurface()
//	    // ...
//	}
package testing
