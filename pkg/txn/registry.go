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
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/innovationmech/txkit/pkg/logger"
	"go.uber.org/zap"
)

// Registry holds the set of registered adapters and executes them per phase.
//
// The adapter list is read-mostly after startup: Register and Unregister
// rebuild a sorted snapshot under a mutex, while ExecutePhase reads the
// snapshot without locking. The registry itself holds no attempt state.
type Registry struct {
	mu       sync.Mutex
	entries  map[string]*registeredAdapter
	nextSeq  int
	snapshot atomic.Value // []*registeredAdapter, sorted
	logger   *zap.Logger
}

type registeredAdapter struct {
	adapter Adapter
	seq     int
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	r := &Registry{
		entries: make(map[string]*registeredAdapter),
		logger:  logger.Named("txn.registry"),
	}
	r.snapshot.Store([]*registeredAdapter{})
	return r
}

// Register adds an adapter. Registration is idempotent per adapter name:
// re-registering the same name replaces the adapter but keeps its original
// position in the registration order.
func (r *Registry) Register(a Adapter) {
	if a == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[a.Name()]; ok {
		existing.adapter = a
	} else {
		r.entries[a.Name()] = &registeredAdapter{adapter: a, seq: r.nextSeq}
		r.nextSeq++
	}
	r.rebuildLocked()

	r.logger.Debug("adapter registered",
		zap.String("adapter", a.Name()),
		zap.Int("priority", a.Priority()),
		zap.Bool("critical", a.Critical()),
	)
}

// Unregister removes the adapter with the given name. Unknown names are ignored.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[name]; !ok {
		return
	}
	delete(r.entries, name)
	r.rebuildLocked()

	r.logger.Debug("adapter unregistered", zap.String("adapter", name))
}

// Adapters returns the registered adapters in execution order
// (ascending priority, registration order breaking ties).
func (r *Registry) Adapters() []Adapter {
	entries := r.snapshot.Load().([]*registeredAdapter)
	out := make([]Adapter, len(entries))
	for i, e := range entries {
		out[i] = e.adapter
	}
	return out
}

// Len returns the number of registered adapters.
func (r *Registry) Len() int {
	return len(r.snapshot.Load().([]*registeredAdapter))
}

// Reset removes all registered adapters. Intended for test isolation.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = make(map[string]*registeredAdapter)
	r.nextSeq = 0
	r.rebuildLocked()
}

// ExecutePhase runs every registered adapter's phase callback in execution
// order.
//
// With failFast set, the first adapter error aborts the remaining adapters
// and is returned, wrapped with the adapter name and phase. Otherwise errors
// are logged and execution continues; the phase as a whole never fails.
func (r *Registry) ExecutePhase(ctx context.Context, phase Phase, ec *EventContext, failFast bool) error {
	entries := r.snapshot.Load().([]*registeredAdapter)

	for _, e := range entries {
		err := r.invoke(ctx, e.adapter, phase, ec)
		if err == nil {
			continue
		}

		if failFast {
			return fmt.Errorf("adapter %q failed in phase %s: %w", e.adapter.Name(), phase, err)
		}

		fields := []zap.Field{
			zap.String("adapter", e.adapter.Name()),
			zap.String("phase", phase.String()),
			zap.String("workflow_id", ec.WorkflowID()),
			zap.Int("attempt", ec.Attempt()),
			zap.Error(err),
		}
		if e.adapter.Critical() {
			r.logger.Error("critical adapter failed in best-effort phase", fields...)
		} else {
			r.logger.Warn("adapter failed in best-effort phase", fields...)
		}
	}

	return nil
}

// invoke shields the registry from adapter panics so a best-effort phase can
// keep going past a panicking participant.
func (r *Registry) invoke(ctx context.Context, a Adapter, phase Phase, ec *EventContext) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("adapter panic: %v", rec)
		}
	}()
	return a.OnPhase(ctx, phase, ec)
}

func (r *Registry) rebuildLocked() {
	entries := make([]*registeredAdapter, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		pi, pj := entries[i].adapter.Priority(), entries[j].adapter.Priority()
		if pi != pj {
			return pi < pj
		}
		return entries[i].seq < entries[j].seq
	})
	r.snapshot.Store(entries)
}
