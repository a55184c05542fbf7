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
	"errors"
	"sync"
)

// Scope is one open instance of the underlying transactional resource.
// Exactly one of Commit or Rollback is called by the manager per scope.
type Scope interface {
	// Commit makes the scope's changes durable.
	Commit(ctx context.Context) error

	// Rollback discards the scope's changes. Rollback after a failed commit
	// must be safe.
	Rollback(ctx context.Context) error
}

// ScopeOptions carries per-attempt options to the scope factory.
type ScopeOptions struct {
	// Isolation is passed through from the transaction configuration.
	Isolation IsolationLevel

	// ReadOnly hints that the attempt performs no writes.
	ReadOnly bool

	// WorkflowID is the correlation id of the transaction, for logging.
	WorkflowID string
}

// ScopeFactory opens transactional scopes. Implementations wrap a database
// handle, a message-store session, or any other commit/rollback resource.
type ScopeFactory interface {
	Begin(ctx context.Context, opts ScopeOptions) (Scope, error)
}

// MemoryScopeFactory is a ScopeFactory without a backing resource. It tracks
// begin/commit/rollback counts and is intended for tests and for workflows
// whose only transactional behavior is the side-effect queue.
type MemoryScopeFactory struct {
	mu        sync.Mutex
	begins    int
	commits   int
	rollbacks int

	// BeginErr, when set, is returned by Begin. Test hook.
	BeginErr error

	// CommitErr, when set, is returned by Commit. Test hook.
	CommitErr error
}

// NewMemoryScopeFactory creates a scope factory backed by counters only.
func NewMemoryScopeFactory() *MemoryScopeFactory {
	return &MemoryScopeFactory{}
}

// Begin opens a new in-memory scope.
func (f *MemoryScopeFactory) Begin(ctx context.Context, opts ScopeOptions) (Scope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.BeginErr != nil {
		return nil, f.BeginErr
	}
	f.begins++
	return &memoryScope{factory: f}, nil
}

// Counts returns the number of begins, commits and rollbacks observed.
func (f *MemoryScopeFactory) Counts() (begins, commits, rollbacks int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.begins, f.commits, f.rollbacks
}

type memoryScope struct {
	factory *MemoryScopeFactory
	mu      sync.Mutex
	done    bool
}

var errScopeDone = errors.New("scope already completed")

func (s *memoryScope) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return errScopeDone
	}

	s.factory.mu.Lock()
	commitErr := s.factory.CommitErr
	s.factory.mu.Unlock()
	if commitErr != nil {
		return commitErr
	}

	s.done = true
	s.factory.mu.Lock()
	s.factory.commits++
	s.factory.mu.Unlock()
	return nil
}

func (s *memoryScope) Rollback(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return nil
	}
	s.done = true

	s.factory.mu.Lock()
	s.factory.rollbacks++
	s.factory.mu.Unlock()
	return nil
}
