package types

import "context"

// Hooks defines callbacks for Controller lifecycle events.
//
// All hooks are optional. OnStateChanged and OnError run in background goroutines so
// they never block the transport state machine or the flush cycle. OnStateChanged
// calls are delivered one at a time in transition order; OnError calls are unordered.
// OnDiffApplied runs synchronously on the flush goroutine after the diff reached the
// rendering surface, so it sees diffs in flush order.
//
// Best practices for hook implementation:
//   - Complete quickly; OnDiffApplied delays the next flush
//   - Respect context cancellation
//   - Hook errors are logged, never propagated
//
// Example:
//
//	hooks := &streamgrid.Hooks{
//	    OnStateChanged: func(ctx context.Context, change streamgrid.StateChange) error {
//	        statusBar.Set(change.To.String())
//	        return nil
//	    },
//	}
type Hooks struct {
	// OnStateChanged is called when the transport connection changes state.
	OnStateChanged func(ctx context.Context, change StateChange) error

	// OnDiffApplied is called once per flush that produced a non-empty diff.
	OnDiffApplied func(ctx context.Context, diff Diff) error

	// OnError is called for absorbed per-message failures (parse, merge).
	OnError func(ctx context.Context, err error) error
}
