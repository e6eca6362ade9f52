package tool

import (
	"context"
	"fmt"
	"sync"
)

// FinalizeFunc completes a result once its message id is known.
type FinalizeFunc func(ctx context.Context, messageID string) error

// Finalization is a deferred step attached to a Result.
type Finalization struct {
	fn FinalizeFunc
}

// NewFinalization returns nil for a nil fn so results without follow-up work
// stay simple.
func NewFinalization(fn FinalizeFunc) *Finalization {
	if fn == nil {
		return nil
	}
	return &Finalization{fn: fn}
}

// FinalizationTable holds finalizations until the host resolves them. Each
// entry fires at most once.
type FinalizationTable struct {
	mu      sync.Mutex
	pending map[string]*Finalization
}

func NewFinalizationTable() *FinalizationTable {
	return &FinalizationTable{pending: make(map[string]*Finalization)}
}

// Register stores f under invocationID. A second registration for the same
// id is rejected. A nil f is ignored.
func (t *FinalizationTable) Register(invocationID string, f *Finalization) error {
	if f == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.pending[invocationID]; exists {
		return fmt.Errorf("finalization for %s already registered", invocationID)
	}
	t.pending[invocationID] = f
	return nil
}

// Resolve runs and removes the finalization for invocationID. The entry is
// removed before running so concurrent resolves cannot fire it twice. Errors
// are returned to the caller and never retried.
func (t *FinalizationTable) Resolve(ctx context.Context, invocationID, messageID string) error {
	t.mu.Lock()
	f, ok := t.pending[invocationID]
	delete(t.pending, invocationID)
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrFinalizationNotFound, invocationID)
	}
	return f.fn(ctx, messageID)
}

// Discard drops a pending finalization without running it.
func (t *FinalizationTable) Discard(invocationID string) {
	t.mu.Lock()
	delete(t.pending, invocationID)
	t.mu.Unlock()
}

// Pending returns the number of unresolved finalizations.
func (t *FinalizationTable) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
