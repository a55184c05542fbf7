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

package effect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/innovationmech/txkit/pkg/logger"
	"github.com/innovationmech/txkit/pkg/txn"
	"github.com/innovationmech/txkit/pkg/txn/dedup"
)

// executedKey is the event-context scratch slot holding the sync effects that
// have already run in this attempt, for reverse-order compensation on
// rollback.
const executedKey = "effect.executed"

type executedEffect struct {
	effect SideEffect
	result Result
}

// EffectFailure is one failed effect within a batch.
type EffectFailure struct {
	ID     string
	Result Result
}

// BatchError reports the side effects that failed during the pre-commit
// batch. Sync effects execute sequentially and the batch stops at the first
// propagating failure, so the list usually holds one entry; non-propagating
// failures (ContinueOnError) are logged instead of collected.
type BatchError struct {
	Failures []EffectFailure
}

// Error implements error.
func (e *BatchError) Error() string {
	if len(e.Failures) == 0 {
		return "side-effect batch failed"
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.ID, f.Result.Err()))
	}
	return fmt.Sprintf("side-effect batch failed: %s", strings.Join(parts, "; "))
}

// Unwrap exposes the first failure's cause so that the transaction manager's
// retry classifier can inspect it.
func (e *BatchError) Unwrap() error {
	for _, f := range e.Failures {
		if err := f.Result.Err(); err != nil {
			return err
		}
	}
	return nil
}

// Dispatcher is the transaction adapter that drives queued side effects
// through the transaction lifecycle:
//
//   - at PhaseBeforeCommit it drains the event context, leaves async effects
//     queued, and executes sync effects sequentially in insertion order;
//     a propagating sync failure aborts the attempt before commit
//   - at PhaseAfterCommit it drains and executes the remaining async
//     effects, logging failures without propagating them
//   - at PhaseOnRollback it compensates already executed sync effects in
//     reverse execution order
//
// Before executing any effect the dispatcher consults the dedup store and
// skips ids that are already published; after a successful execution it marks
// the id published. Queued values that are not SideEffect implementations are
// dropped with a warning.
type Dispatcher struct {
	store    dedup.Store
	logger   *zap.Logger
	priority int
	critical bool
	now      func() time.Time
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger overrides the package-level logger.
func WithLogger(l *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithPriority sets the adapter priority within each phase.
func WithPriority(priority int) DispatcherOption {
	return func(d *Dispatcher) { d.priority = priority }
}

// WithClock overrides the publish-timestamp source, mainly for tests.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDispatcher creates a side-effect dispatcher backed by the given dedup
// store. A nil store disables deduplication (every effect executes).
func NewDispatcher(store dedup.Store, opts ...DispatcherOption) *Dispatcher {
	if store == nil {
		store = dedup.NewNoopStore()
	}
	d := &Dispatcher{
		store:    store,
		priority: 100,
		critical: true,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logger.GetLogger()
	}
	return d
}

// Name implements txn.Adapter.
func (d *Dispatcher) Name() string { return "side-effect-dispatcher" }

// Priority implements txn.Adapter.
func (d *Dispatcher) Priority() int { return d.priority }

// Critical implements txn.Adapter.
func (d *Dispatcher) Critical() bool { return d.critical }

// OnPhase implements txn.Adapter.
func (d *Dispatcher) OnPhase(ctx context.Context, phase txn.Phase, ec *txn.EventContext) error {
	switch phase {
	case txn.PhaseBeforeCommit:
		return d.executeSync(ctx, ec)
	case txn.PhaseAfterCommit:
		d.executeAsync(ctx, ec)
		return nil
	case txn.PhaseOnRollback:
		d.compensate(ctx, ec)
		return nil
	default:
		return nil
	}
}

// executeSync partitions the queue, re-enqueues async effects for the
// post-commit phase, and runs sync effects in insertion order. The first
// propagating failure aborts the batch.
func (d *Dispatcher) executeSync(ctx context.Context, ec *txn.EventContext) error {
	var executed []executedEffect
	defer func() {
		if len(executed) > 0 {
			ec.Put(executedKey, executed)
		}
	}()

	for _, queued := range ec.Drain() {
		e, ok := queued.(SideEffect)
		if !ok {
			d.logger.Warn("dropping queued value that is not a side effect",
				zap.String("workflow_id", ec.WorkflowID()),
				zap.String("type", fmt.Sprintf("%T", queued)))
			continue
		}
		if e.Mode() == AsyncAfterCommit {
			ec.Enqueue(e)
			continue
		}

		cfg := configOf(e)
		result := d.executeWithRetry(ctx, e, cfg)
		if result.IsSuccess() || result.IsSkipped() {
			executed = append(executed, executedEffect{effect: e, result: result})
			continue
		}

		if cfg.ContinueOnError {
			d.logger.Warn("sync side effect failed, continuing per policy",
				zap.String("workflow_id", ec.WorkflowID()),
				zap.String("side_effect_id", e.ID()),
				zap.Int("retries", result.RetryCount()),
				zap.Error(result.Err()))
			continue
		}

		d.logger.Error("sync side effect failed, aborting commit",
			zap.String("workflow_id", ec.WorkflowID()),
			zap.String("side_effect_id", e.ID()),
			zap.Int("retries", result.RetryCount()),
			zap.Error(result.Err()))
		return &BatchError{Failures: []EffectFailure{{ID: e.ID(), Result: result}}}
	}
	return nil
}

// executeAsync runs the effects left queued at commit time. Each gets a
// single attempt; failures are logged and never propagated.
func (d *Dispatcher) executeAsync(ctx context.Context, ec *txn.EventContext) {
	for _, queued := range ec.Drain() {
		e, ok := queued.(SideEffect)
		if !ok {
			continue
		}

		cfg := configOf(e)
		result := d.executeOnce(ctx, e, cfg)
		switch {
		case result.IsFailed():
			d.logger.Error("async side effect failed after commit",
				zap.String("workflow_id", ec.WorkflowID()),
				zap.String("side_effect_id", e.ID()),
				zap.Error(result.Err()))
		case result.IsSkipped():
			d.logger.Debug("async side effect skipped",
				zap.String("workflow_id", ec.WorkflowID()),
				zap.String("side_effect_id", e.ID()),
				zap.String("reason", result.Reason()))
		}
	}
}

// compensate undoes the sync effects that already ran in this attempt, in
// reverse execution order. Compensation errors are logged, never propagated.
func (d *Dispatcher) compensate(ctx context.Context, ec *txn.EventContext) {
	v, ok := ec.Get(executedKey)
	if !ok {
		return
	}
	executed, ok := v.([]executedEffect)
	if !ok {
		return
	}

	for i := len(executed) - 1; i >= 0; i-- {
		entry := executed[i]
		if entry.result.IsSkipped() {
			continue
		}
		if err := entry.effect.Compensate(ctx, entry.result); err != nil {
			d.logger.Error("side-effect compensation failed",
				zap.String("workflow_id", ec.WorkflowID()),
				zap.String("side_effect_id", entry.effect.ID()),
				zap.Error(err))
		}
	}
}

// executeWithRetry runs a sync effect up to cfg.MaxRetries total attempts,
// backing off by RetryDelay*BackoffMultiplier^n between attempts and
// retrying only failures the policy's classifier deems transient.
func (d *Dispatcher) executeWithRetry(ctx context.Context, e SideEffect, cfg Config) Result {
	maxAttempts := cfg.MaxRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	isTransient := cfg.IsTransient
	if isTransient == nil {
		isTransient = txn.IsTransient
	}

	var last Result
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := cfg.RetryDelay
			for i := 1; i < attempt; i++ {
				delay = time.Duration(float64(delay) * cfg.BackoffMultiplier)
			}
			select {
			case <-ctx.Done():
				return Failed(ctx.Err(), attempt-1)
			case <-time.After(delay):
			}
		}

		last = d.executeOnce(ctx, e, cfg)
		if !last.IsFailed() {
			if attempt > 0 {
				d.logger.Info("sync side effect succeeded after retry",
					zap.String("side_effect_id", e.ID()),
					zap.Int("attempt", attempt))
			}
			return last
		}
		if !isTransient(last.Err()) {
			return Failed(last.Err(), attempt)
		}
		last = Failed(last.Err(), attempt)
	}
	return last
}

// executeOnce performs the dedup check, a single bounded Execute call, and
// the publish mark.
func (d *Dispatcher) executeOnce(ctx context.Context, e SideEffect, cfg Config) Result {
	published, err := d.store.IsPublished(ctx, e.ID())
	if err != nil {
		return Failed(fmt.Errorf("dedup lookup failed: %w", err), 0)
	}
	if published {
		return Skipped("already published")
	}

	execCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	result := d.safeExecute(execCtx, e)
	if result.IsSuccess() {
		if err := d.store.MarkPublished(ctx, e.ID(), d.now()); err != nil {
			d.logger.Warn("failed to mark side effect published",
				zap.String("side_effect_id", e.ID()),
				zap.Error(err))
		}
	}
	return result
}

// safeExecute shields the dispatcher from panicking handlers.
func (d *Dispatcher) safeExecute(ctx context.Context, e SideEffect) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Failed(fmt.Errorf("side effect %q panicked: %v", e.ID(), r), 0)
		}
	}()
	return e.Execute(ctx)
}
