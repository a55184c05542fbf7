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
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/innovationmech/txkit/pkg/logger"
	"go.uber.org/zap"
)

// Block is the user code executed with transactional scope. The context
// carries the attempt's EventContext (see EventContextFrom) and is bounded
// by the configured attempt timeout.
type Block func(ctx context.Context, scope Scope) (interface{}, error)

// Manager orchestrates the transaction phase sequence with timeout, retry
// with backoff, and deadlock classification. It owns one adapter Registry.
//
// Each Transaction call drives one sequential logical flow; independent
// calls may run concurrently and are fully isolated, each with its own
// EventContext per attempt.
type Manager struct {
	registry *Registry
	scopes   ScopeFactory
	config   *TransactionConfig
	metrics  *MetricsCollector
	logger   *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// ManagerOption is a functional option for configuring the Manager.
type ManagerOption func(*Manager)

// WithDefaultConfig sets the configuration used when Transaction is called
// with a nil config.
func WithDefaultConfig(config *TransactionConfig) ManagerOption {
	return func(m *Manager) {
		if config != nil {
			m.config = config
		}
	}
}

// WithMetrics attaches a Prometheus metrics collector.
func WithMetrics(collector *MetricsCollector) ManagerOption {
	return func(m *Manager) {
		m.metrics = collector
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithAdapters registers adapters at construction time so the adapter set is
// statically known.
func WithAdapters(adapters ...Adapter) ManagerOption {
	return func(m *Manager) {
		for _, a := range adapters {
			m.registry.Register(a)
		}
	}
}

// NewManager creates a transaction manager over the given scope factory.
func NewManager(scopes ScopeFactory, opts ...ManagerOption) *Manager {
	m := &Manager{
		registry: NewRegistry(),
		scopes:   scopes,
		config:   DefaultTransactionConfig(),
		logger:   logger.Named("txn.manager"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register adds an adapter to the manager's registry.
func (m *Manager) Register(a Adapter) { m.registry.Register(a) }

// Unregister removes the adapter with the given name.
func (m *Manager) Unregister(name string) { m.registry.Unregister(name) }

// Registry returns the manager's adapter registry.
func (m *Manager) Registry() *Registry { return m.registry }

// Close marks the manager as closed; further Transaction calls fail with
// ErrManagerClosed. In-flight transactions are not interrupted.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Transaction executes block within a managed transaction.
//
// workflowID correlates log lines and errors across attempts; when empty, a
// uuid is generated. A nil config falls back to the manager default.
//
// If ctx is already inside an active transactional scope, block runs
// directly in that scope: no nested phases, no new event context.
//
// Otherwise the manager loops up to MaxRetries+1 attempts. Per attempt it
// creates a fresh EventContext, runs PhaseBeforeBegin, opens the scope, runs
// PhaseAfterBegin, executes block bounded by the configured timeout, runs
// the fail-fast validation and commit phases, commits, and runs
// PhaseAfterCommit. Any failure triggers the rollback phase pair, transient
// classification, and either a backoff delay and retry or an immediate stop.
// A permanent error or exhausted retries surface as a FailedError carrying
// the workflow id and attempt count (or as the final attempt's TimeoutError).
func (m *Manager) Transaction(ctx context.Context, workflowID string, config *TransactionConfig, block Block) (interface{}, error) {
	if block == nil {
		return nil, ErrNilBlock
	}

	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return nil, ErrManagerClosed
	}
	if m.scopes == nil {
		return nil, ErrScopeFactoryNotConfigured
	}

	// re-entrant call: join the surrounding attempt
	if at, ok := activeTransactionFrom(ctx); ok {
		return block(ctx, at.scope)
	}

	if config == nil {
		config = m.config
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if workflowID == "" {
		workflowID = uuid.NewString()
	}

	log := m.logger.With(zap.String("workflow_id", workflowID))

	if m.metrics != nil {
		m.metrics.RecordStart()
	}
	start := time.Now()

	maxAttempts := config.RetryPolicy.MaxRetries + 1
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, err := m.runAttempt(ctx, workflowID, attempt, config, block)
		if err == nil {
			log.Debug("transaction committed",
				zap.Int("attempt", attempt),
				zap.Duration("duration", time.Since(start)),
			)
			if m.metrics != nil {
				m.metrics.RecordCommit(attempt+1, time.Since(start))
			}
			return result, nil
		}

		lastErr = err
		if m.metrics != nil {
			m.metrics.RecordRollback()
			if IsTimeout(err) {
				m.metrics.RecordTimeout()
			}
			if IsDeadlockError(err) {
				m.metrics.RecordDeadlock()
			}
		}

		// caller cancellation: the attempt already rolled back, stop here
		if ctx.Err() != nil {
			if m.metrics != nil {
				m.metrics.RecordFailure(attempt+1, time.Since(start))
			}
			return nil, lastErr
		}

		if attempt == maxAttempts-1 {
			break
		}

		if !config.RetryPolicy.ShouldRetry(err) {
			log.Warn("permanent error, not retrying",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			if m.metrics != nil {
				m.metrics.RecordFailure(attempt+1, time.Since(start))
			}
			return nil, &FailedError{WorkflowID: workflowID, Attempts: attempt + 1, Cause: err}
		}

		delay := config.RetryPolicy.Delay(attempt)
		log.Info("retrying after error",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if m.metrics != nil {
			m.metrics.RecordRetry()
		}

		if delay > 0 {
			select {
			case <-ctx.Done():
				if m.metrics != nil {
					m.metrics.RecordFailure(attempt+1, time.Since(start))
				}
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	log.Error("transaction failed, retries exhausted",
		zap.Int("attempts", maxAttempts),
		zap.Error(lastErr),
	)
	if m.metrics != nil {
		m.metrics.RecordFailure(maxAttempts, time.Since(start))
	}

	if IsTimeout(lastErr) {
		return nil, lastErr
	}
	return nil, &FailedError{WorkflowID: workflowID, Attempts: maxAttempts, Cause: lastErr}
}

// runAttempt drives the phase sequence for one attempt.
func (m *Manager) runAttempt(ctx context.Context, workflowID string, attempt int, config *TransactionConfig, block Block) (interface{}, error) {
	ec := NewEventContext(workflowID, attempt)
	attemptCtx := WithEventContext(ctx, ec)

	log := m.logger.With(zap.String("workflow_id", workflowID), zap.Int("attempt", attempt))

	_ = m.registry.ExecutePhase(attemptCtx, PhaseBeforeBegin, ec, false)

	scope, err := m.scopes.Begin(attemptCtx, ScopeOptions{
		Isolation:  config.IsolationLevel,
		WorkflowID: workflowID,
	})
	if err != nil {
		m.finishRollback(attemptCtx, nil, ec, log)
		return nil, fmt.Errorf("failed to begin transactional scope: %w", err)
	}

	attemptCtx = withActiveTransaction(attemptCtx, &activeTx{scope: scope, ec: ec})

	_ = m.registry.ExecutePhase(attemptCtx, PhaseAfterBegin, ec, false)

	// the user block, validation and commit all share the attempt timeout
	boundedCtx := attemptCtx
	cancel := context.CancelFunc(func() {})
	if config.Timeout > 0 {
		boundedCtx, cancel = context.WithTimeout(attemptCtx, config.Timeout)
	}
	defer cancel()

	result, err := m.runBlock(boundedCtx, scope, block)

	if err == nil {
		err = m.registry.ExecutePhase(boundedCtx, PhaseBeforeCommitValidation, ec, true)
	}
	if err == nil {
		err = m.registry.ExecutePhase(boundedCtx, PhaseBeforeCommit, ec, true)
	}
	if err == nil {
		// a cancelled or expired attempt must never commit
		err = boundedCtx.Err()
	}
	if err == nil {
		err = scope.Commit(boundedCtx)
	}

	if err != nil {
		m.finishRollback(attemptCtx, scope, ec, log)
		return nil, m.classifyAttemptError(ctx, workflowID, attempt, config, err)
	}

	_ = m.registry.ExecutePhase(attemptCtx, PhaseAfterCommit, ec, false)

	return result, nil
}

// finishRollback rolls back the scope (when one was opened) and runs the
// best-effort rollback phase pair, then discards the attempt's queue.
func (m *Manager) finishRollback(ctx context.Context, scope Scope, ec *EventContext, log *zap.Logger) {
	if scope != nil {
		if rbErr := scope.Rollback(ctx); rbErr != nil {
			log.Warn("scope rollback failed", zap.Error(rbErr))
		}
	}
	_ = m.registry.ExecutePhase(ctx, PhaseOnRollback, ec, false)
	_ = m.registry.ExecutePhase(ctx, PhaseAfterRollback, ec, false)
	if n := ec.Purge(); n > 0 {
		log.Debug("purged pending side effects on rollback", zap.Int("count", n))
	}
}

// classifyAttemptError maps attempt failures onto the error taxonomy:
// manager-imposed deadline expiry becomes a TimeoutError, vendor deadlock
// signals become a DeadlockError, everything else passes through.
func (m *Manager) classifyAttemptError(parent context.Context, workflowID string, attempt int, config *TransactionConfig, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		return &TimeoutError{WorkflowID: workflowID, Attempt: attempt, Timeout: config.Timeout}
	}
	if !IsDeadlockError(err) && IsDeadlockSignal(err) {
		code, _ := DeadlockCode(err)
		return &DeadlockError{WorkflowID: workflowID, Attempt: attempt, Code: code, Cause: err}
	}
	return err
}

type blockOutcome struct {
	result interface{}
	err    error
}

// runBlock executes the user block on its own goroutine so a block that
// ignores its context cannot stall the manager past the attempt deadline.
func (m *Manager) runBlock(ctx context.Context, scope Scope, block Block) (interface{}, error) {
	done := make(chan blockOutcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- blockOutcome{err: fmt.Errorf("panic in transaction block: %v", r)}
			}
		}()
		result, err := block(ctx, scope)
		done <- blockOutcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
