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

// Package saga runs multi-step workflows with compensation: steps execute
// sequentially, and when one fails the already completed steps are undone in
// reverse order, each compensation receiving the result its step produced.
package saga

import (
	"context"
	"time"
)

// Status is the lifecycle state of a saga run.
type Status int

const (
	// StatusCreated means the saga has not started executing.
	StatusCreated Status = iota

	// StatusRunning means forward steps are executing.
	StatusRunning

	// StatusCommitted means every step completed.
	StatusCommitted

	// StatusCompensating means a step failed and completed steps are being
	// undone.
	StatusCompensating

	// StatusCompensated means every completed step was undone cleanly.
	StatusCompensated

	// StatusFailed means a step failed and at least one compensation also
	// failed, leaving the workflow partially applied.
	StatusFailed
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "CREATED"
	case StatusRunning:
		return "RUNNING"
	case StatusCommitted:
		return "COMMITTED"
	case StatusCompensating:
		return "COMPENSATING"
	case StatusCompensated:
		return "COMPENSATED"
	case StatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusCommitted || s == StatusCompensated || s == StatusFailed
}

// Step is one unit of a saga: a forward action plus the compensation that
// undoes it.
type Step interface {
	// Name identifies the step in logs and in the run record.
	Name() string

	// Execute performs the forward action and returns its result. The
	// result is stored and handed back to Compensate if a later step fails.
	Execute(ctx context.Context) (interface{}, error)

	// Compensate undoes a completed Execute. result is the value Execute
	// returned for this step.
	Compensate(ctx context.Context, result interface{}) error
}

// StepFunc is a Step built from plain callbacks. CompensateFunc may be nil
// for steps with nothing to undo.
type StepFunc struct {
	StepName       string
	ExecuteFunc    func(ctx context.Context) (interface{}, error)
	CompensateFunc func(ctx context.Context, result interface{}) error
}

// Name implements Step.
func (s *StepFunc) Name() string { return s.StepName }

// Execute implements Step.
func (s *StepFunc) Execute(ctx context.Context) (interface{}, error) {
	if s.ExecuteFunc == nil {
		return nil, nil
	}
	return s.ExecuteFunc(ctx)
}

// Compensate implements Step.
func (s *StepFunc) Compensate(ctx context.Context, result interface{}) error {
	if s.CompensateFunc == nil {
		return nil
	}
	return s.CompensateFunc(ctx, result)
}

// CompletedStep records one successfully executed step and the result its
// compensation will receive.
type CompletedStep struct {
	StepName  string
	Result    interface{}
	Timestamp time.Time
}

// Context is the mutable record of one saga run.
type Context struct {
	// SagaID is the correlation id of the run.
	SagaID string

	// Status is the current lifecycle state.
	Status Status

	// Completed lists the steps that executed successfully, in execution
	// order.
	Completed []CompletedStep

	// StepErr is the forward failure that triggered compensation, nil for
	// committed runs.
	StepErr error

	// CompensationErrs collects compensation failures. They are recorded,
	// never returned as the run error.
	CompensationErrs []error

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time
	FinishedAt time.Time
}
