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

// Package txn attaches side effects to a database transaction so that some
// effects commit-or-rollback atomically with the data change while others
// fire only after commit and never cause rollback.
//
// The Manager drives a fixed seven-phase lifecycle per attempt:
//
//	BEFORE_BEGIN → AFTER_BEGIN → [user block] →
//	BEFORE_COMMIT_VALIDATION → BEFORE_COMMIT → commit → AFTER_COMMIT
//
// and on failure the forward phases are short-circuited into the rollback
// pair ON_ROLLBACK → AFTER_ROLLBACK. Adapters registered on the manager's
// Registry participate at each phase in priority order. The two phases
// preceding the commit are fail-fast: the first adapter error aborts the
// attempt before any data mutation becomes durable. All other phases are
// best-effort: adapter errors are logged and never mask the attempt's
// primary outcome.
//
// Failed attempts are classified as transient or permanent (explicit error
// lists, vendor deadlock codes, transient keyword patterns) and transient
// failures are retried with exponential, linear or immediate backoff,
// jittered and capped. One attempt's user block, validation and commit share
// a single timeout.
//
// Basic usage:
//
//	manager := txn.NewManager(sqlscope.New(db))
//	manager.Register(effect.NewDispatcher(dedup.NewMemoryStore()))
//
//	result, err := manager.Transaction(ctx, "order-1234", nil,
//	    func(ctx context.Context, scope txn.Scope) (interface{}, error) {
//	        ec, _ := txn.EventContextFrom(ctx)
//	        ec.Enqueue(orderCreatedEvent)
//	        return orderID, insertOrder(ctx, scope)
//	    })
//
// Side-effect queueing, deduplication and dispatch live in the effect and
// dedup subpackages.
package txn
