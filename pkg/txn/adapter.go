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

import "context"

// Adapter is a registered, prioritized transaction participant invoked at
// defined transaction phases.
//
// Adapters are registered once (typically at process start) and reused across
// all transaction attempts. They must be stateless with respect to any single
// attempt; attempt-scoped state belongs in the EventContext passed to OnPhase.
type Adapter interface {
	// Name returns the unique name of the adapter. Registering a second
	// adapter with the same name replaces the first.
	Name() string

	// Priority orders adapters within a phase; lower runs earlier.
	// Ties are broken by registration order.
	Priority() int

	// Critical marks the adapter as essential to the transaction outcome.
	// Errors from critical adapters in best-effort phases are logged at
	// error level instead of warn level; propagation is still governed by
	// the phase policy alone.
	Critical() bool

	// OnPhase is invoked once per phase per attempt. The EventContext is the
	// attempt's side-effect queue and scratch state.
	OnPhase(ctx context.Context, phase Phase, ec *EventContext) error
}

// PhaseHandler is the callback signature used by NewAdapter.
type PhaseHandler func(ctx context.Context, phase Phase, ec *EventContext) error

type funcAdapter struct {
	name     string
	priority int
	critical bool
	handler  PhaseHandler
}

// NewAdapter builds an Adapter from a plain callback. Useful for small
// participants and for tests.
func NewAdapter(name string, priority int, critical bool, handler PhaseHandler) Adapter {
	return &funcAdapter{
		name:     name,
		priority: priority,
		critical: critical,
		handler:  handler,
	}
}

func (a *funcAdapter) Name() string   { return a.name }
func (a *funcAdapter) Priority() int  { return a.priority }
func (a *funcAdapter) Critical() bool { return a.critical }

func (a *funcAdapter) OnPhase(ctx context.Context, phase Phase, ec *EventContext) error {
	if a.handler == nil {
		return nil
	}
	return a.handler(ctx, phase, ec)
}
