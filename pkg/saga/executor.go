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

package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/innovationmech/txkit/pkg/logger"
)

// ErrNoSteps is returned when a saga is run with an empty step list.
var ErrNoSteps = errors.New("saga has no steps")

// StepError wraps the forward failure that aborted a saga run.
type StepError struct {
	SagaID   string
	StepName string
	Cause    error
}

// Error implements error.
func (e *StepError) Error() string {
	return fmt.Sprintf("saga %s: step %q failed: %v", e.SagaID, e.StepName, e.Cause)
}

// Unwrap returns the step's failure.
func (e *StepError) Unwrap() error { return e.Cause }

// Executor runs sagas sequentially.
type Executor struct {
	logger *zap.Logger
	now    func() time.Time
}

// ExecutorOption customizes an Executor.
type ExecutorOption func(*Executor)

// WithLogger overrides the package-level logger.
func WithLogger(l *zap.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExecutor creates a saga executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.GetLogger()
	}
	return e
}

// Run executes the steps in order. On a step failure it compensates the
// already completed steps in reverse order, passing each compensation the
// result its step produced, and returns a StepError wrapping the failure.
// Compensation errors are recorded on the returned Context, never returned:
// a run whose compensations all succeed ends StatusCompensated, otherwise
// StatusFailed.
//
// An empty sagaID gets a generated uuid. The returned Context is always
// non-nil.
func (e *Executor) Run(ctx context.Context, sagaID string, steps []Step) (*Context, error) {
	if sagaID == "" {
		sagaID = uuid.New().String()
	}

	sc := &Context{
		SagaID:    sagaID,
		Status:    StatusCreated,
		StartedAt: e.now(),
	}
	if len(steps) == 0 {
		sc.Status = StatusFailed
		sc.StepErr = ErrNoSteps
		sc.FinishedAt = e.now()
		return sc, ErrNoSteps
	}

	sc.Status = StatusRunning
	e.logger.Info("saga started",
		zap.String("saga_id", sagaID),
		zap.Int("steps", len(steps)))

	for _, step := range steps {
		result, err := e.executeStep(ctx, step)
		if err != nil {
			stepErr := &StepError{SagaID: sagaID, StepName: step.Name(), Cause: err}
			sc.StepErr = stepErr
			e.logger.Error("saga step failed, compensating",
				zap.String("saga_id", sagaID),
				zap.String("step", step.Name()),
				zap.Int("completed_steps", len(sc.Completed)),
				zap.Error(err))
			e.compensate(ctx, sc, steps)
			sc.FinishedAt = e.now()
			return sc, stepErr
		}
		sc.Completed = append(sc.Completed, CompletedStep{
			StepName:  step.Name(),
			Result:    result,
			Timestamp: e.now(),
		})
	}

	sc.Status = StatusCommitted
	sc.FinishedAt = e.now()
	e.logger.Info("saga committed",
		zap.String("saga_id", sagaID),
		zap.Duration("duration", sc.FinishedAt.Sub(sc.StartedAt)))
	return sc, nil
}

func (e *Executor) executeStep(ctx context.Context, step Step) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step %q panicked: %v", step.Name(), r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return step.Execute(ctx)
}

// compensate undoes completed steps newest-first. Step lookup is by position:
// Completed[i] corresponds to steps[i] because forward execution is strictly
// sequential.
func (e *Executor) compensate(ctx context.Context, sc *Context, steps []Step) {
	sc.Status = StatusCompensating

	for i := len(sc.Completed) - 1; i >= 0; i-- {
		completed := sc.Completed[i]
		err := e.compensateStep(ctx, steps[i], completed.Result)
		if err != nil {
			sc.CompensationErrs = append(sc.CompensationErrs,
				fmt.Errorf("compensation of step %q failed: %w", completed.StepName, err))
			e.logger.Error("saga compensation failed",
				zap.String("saga_id", sc.SagaID),
				zap.String("step", completed.StepName),
				zap.Error(err))
			continue
		}
		e.logger.Info("saga step compensated",
			zap.String("saga_id", sc.SagaID),
			zap.String("step", completed.StepName))
	}

	if len(sc.CompensationErrs) > 0 {
		sc.Status = StatusFailed
		return
	}
	sc.Status = StatusCompensated
}

func (e *Executor) compensateStep(ctx context.Context, step Step, result interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("compensation panicked: %v", r)
		}
	}()
	return step.Compensate(ctx, result)
}
