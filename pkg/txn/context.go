// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

package txn

import (
	"context"
	"sync"
)

// EventContext is the per-attempt queue of pending side effects plus a small
// scratch area for attempt-scoped adapter state.
//
// A fresh EventContext is created for every attempt (including retries) and
// discarded on both commit and rollback; it is never shared across attempts.
// The queue is consumed at PhaseBeforeCommit (sync effects) and
// PhaseAfterCommit (async effects), and purged entirely on PhaseOnRollback.
type EventContext struct {
	workflowID string
	attempt    int

	mu      sync.Mutex
	pending []interface{}
	values  map[string]interface{}
}

// NewEventContext creates an event context for one attempt of the given
// workflow. Attempt numbering starts at zero.
func NewEventContext(workflowID string, attempt int) *EventContext {
	return &EventContext{
		workflowID: workflowID,
		attempt:    attempt,
	}
}

// WorkflowID returns the correlation id of the transaction this attempt
// belongs to.
func (ec *EventContext) WorkflowID() string { return ec.workflowID }

// Attempt returns the zero-based attempt number.
func (ec *EventContext) Attempt() int { return ec.attempt }

// Enqueue appends a pending side effect to the queue. Insertion order is the
// execution order.
func (ec *EventContext) Enqueue(effect interface{}) {
	if effect == nil {
		return
	}
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.pending = append(ec.pending, effect)
}

// Pending returns a copy of the queued side effects in insertion order.
func (ec *EventContext) Pending() []interface{} {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	out := make([]interface{}, len(ec.pending))
	copy(out, ec.pending)
	return out
}

// Drain removes and returns all queued side effects in insertion order.
func (ec *EventContext) Drain() []interface{} {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	out := ec.pending
	ec.pending = nil
	return out
}

// Purge discards all queued side effects without executing them and returns
// how many were dropped.
func (ec *EventContext) Purge() int {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	n := len(ec.pending)
	ec.pending = nil
	return n
}

// Len returns the number of queued side effects.
func (ec *EventContext) Len() int {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return len(ec.pending)
}

// Put stores an attempt-scoped value. Adapters must keep per-attempt state
// here rather than on the adapter itself.
func (ec *EventContext) Put(key string, value interface{}) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if ec.values == nil {
		ec.values = make(map[string]interface{})
	}
	ec.values[key] = value
}

// Get retrieves an attempt-scoped value stored with Put.
func (ec *EventContext) Get(key string) (interface{}, bool) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	v, ok := ec.values[key]
	return v, ok
}

type eventContextKey struct{}

// WithEventContext attaches an event context to ctx. The manager does this
// for every attempt before running the user block and the phase adapters.
func WithEventContext(ctx context.Context, ec *EventContext) context.Context {
	return context.WithValue(ctx, eventContextKey{}, ec)
}

// EventContextFrom extracts the current attempt's event context from ctx.
// Code running inside a transaction block uses this to queue side effects.
func EventContextFrom(ctx context.Context) (*EventContext, bool) {
	ec, ok := ctx.Value(eventContextKey{}).(*EventContext)
	return ec, ok
}

// activeTx marks a context as being inside a transactional scope so that
// re-entrant Transaction calls join the surrounding attempt instead of
// nesting a second phase sequence.
type activeTx struct {
	scope Scope
	ec    *EventContext
}

type activeTxKey struct{}

func withActiveTransaction(ctx context.Context, at *activeTx) context.Context {
	return context.WithValue(ctx, activeTxKey{}, at)
}

func activeTransactionFrom(ctx context.Context) (*activeTx, bool) {
	at, ok := ctx.Value(activeTxKey{}).(*activeTx)
	return at, ok
}

// InTransaction reports whether ctx is inside an active transactional scope.
func InTransaction(ctx context.Context) bool {
	_, ok := activeTransactionFrom(ctx)
	return ok
}
