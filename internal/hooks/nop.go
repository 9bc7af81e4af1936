// Package hooks provides default Hooks implementations.
package hooks

import (
	"context"

	"github.com/arloliu/streamgrid/types"
)

// NopHooks implements Hooks with no-op callbacks.
//
// This is the default implementation used when no custom hooks are provided,
// eliminating the need for nil checks throughout the codebase.
type NopHooks struct{}

// Compile-time assertions that NopHooks implements hook callbacks.
var (
	_ func(context.Context, types.StateChange) error = (*NopHooks)(nil).OnStateChanged
	_ func(context.Context, types.Diff) error        = (*NopHooks)(nil).OnDiffApplied
	_ func(context.Context, error) error             = (*NopHooks)(nil).OnError
)

// NewNop creates a new no-op hooks implementation.
func NewNop() types.Hooks {
	h := &NopHooks{}

	return types.Hooks{
		OnStateChanged: h.OnStateChanged,
		OnDiffApplied:  h.OnDiffApplied,
		OnError:        h.OnError,
	}
}

// Fill returns a copy of h with every nil callback replaced by a no-op.
// A nil h yields NewNop().
func Fill(h *types.Hooks) types.Hooks {
	out := NewNop()
	if h == nil {
		return out
	}
	if h.OnStateChanged != nil {
		out.OnStateChanged = h.OnStateChanged
	}
	if h.OnDiffApplied != nil {
		out.OnDiffApplied = h.OnDiffApplied
	}
	if h.OnError != nil {
		out.OnError = h.OnError
	}

	return out
}

// OnStateChanged is a no-op implementation.
func (h *NopHooks) OnStateChanged(_ context.Context, _ types.StateChange) error {
	return nil
}

// OnDiffApplied is a no-op implementation.
func (h *NopHooks) OnDiffApplied(_ context.Context, _ types.Diff) error {
	return nil
}

// OnError is a no-op implementation.
func (h *NopHooks) OnError(_ context.Context, _ error) error {
	return nil
}
