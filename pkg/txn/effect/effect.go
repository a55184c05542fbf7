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

// Package effect is the transactional side-effect framework: effects queued
// during a transaction block are executed either synchronously before commit
// (their failures cause rollback) or asynchronously after commit (their
// failures are logged and swallowed), with at-most-once delivery enforced by
// a dedup store.
package effect

import (
	"context"
	"time"
)

// HandlingMode determines when a side effect executes relative to the
// transaction commit.
type HandlingMode int

const (
	// SyncBeforeCommit executes the effect during the pre-commit phase.
	// A failure prevents the commit and rolls the transaction back.
	SyncBeforeCommit HandlingMode = iota

	// AsyncAfterCommit executes the effect after the commit is durable.
	// Failures are logged and never undo the commit.
	AsyncAfterCommit
)

// String returns a human-readable mode name.
func (m HandlingMode) String() string {
	switch m {
	case SyncBeforeCommit:
		return "SYNC_BEFORE_COMMIT"
	case AsyncAfterCommit:
		return "ASYNC_AFTER_COMMIT"
	default:
		return "UNKNOWN"
	}
}

// SideEffect is an operation tied to a transaction's outcome.
//
// ID must be stable across retried attempts of the same logical operation;
// it doubles as the dedup key that guarantees at-most-once delivery.
type SideEffect interface {
	// ID returns the stable side-effect id.
	ID() string

	// Mode returns when the effect executes relative to commit.
	Mode() HandlingMode

	// Execute performs the effect and reports its outcome.
	Execute(ctx context.Context) Result

	// Compensate undoes a previously executed effect during rollback of the
	// surrounding attempt. result is the value Execute returned. Effects
	// with nothing to undo return nil.
	Compensate(ctx context.Context, result Result) error
}

// Config is the per-effect execution policy. Effects expose one by
// implementing Configurable; all others run under DefaultConfig.
type Config struct {
	// Timeout bounds a single Execute call. Default: 5s.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// ContinueOnError makes a failed sync effect log-and-continue instead
	// of aborting the batch and rolling the transaction back. The zero
	// value keeps the fail-fast behavior, so a partial policy override
	// cannot weaken it by accident.
	ContinueOnError bool `json:"continue_on_error" yaml:"continue_on_error"`

	// MaxRetries is the total number of Execute attempts for a sync
	// effect before its failure is surfaced. Default: 3.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RetryDelay is the delay before the first retry. Default: 100ms.
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay"`

	// BackoffMultiplier scales the delay after each retry. Default: 2.0.
	BackoffMultiplier float64 `json:"backoff_multiplier" yaml:"backoff_multiplier"`

	// IsTransient decides whether a failed attempt is worth retrying.
	// Nil falls back to the shared transient classifier.
	IsTransient func(error) bool `json:"-" yaml:"-"`
}

// DefaultConfig returns the default side-effect policy.
func DefaultConfig() Config {
	return Config{
		Timeout:           5 * time.Second,
		MaxRetries:        3,
		RetryDelay:        100 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

// Configurable is implemented by effects that carry their own policy.
type Configurable interface {
	Config() Config
}

// Func is a SideEffect built from plain callbacks. The zero value is not
// usable; set at least EffectID and ExecuteFunc.
type Func struct {
	// EffectID is the stable side-effect id.
	EffectID string

	// HandlingMode is when the effect executes. Zero value is
	// SyncBeforeCommit.
	HandlingMode HandlingMode

	// ExecuteFunc performs the effect.
	ExecuteFunc func(ctx context.Context) Result

	// CompensateFunc optionally undoes the effect on rollback.
	CompensateFunc func(ctx context.Context, result Result) error

	// Policy optionally overrides DefaultConfig. Nil uses the default.
	Policy *Config
}

// ID implements SideEffect.
func (f *Func) ID() string { return f.EffectID }

// Mode implements SideEffect.
func (f *Func) Mode() HandlingMode { return f.HandlingMode }

// Execute implements SideEffect.
func (f *Func) Execute(ctx context.Context) Result {
	if f.ExecuteFunc == nil {
		return Skipped("no execute function")
	}
	return f.ExecuteFunc(ctx)
}

// Compensate implements SideEffect.
func (f *Func) Compensate(ctx context.Context, result Result) error {
	if f.CompensateFunc == nil {
		return nil
	}
	return f.CompensateFunc(ctx, result)
}

// Config implements Configurable when a policy override is set.
func (f *Func) Config() Config {
	if f.Policy == nil {
		return DefaultConfig()
	}
	return *f.Policy
}

// configOf resolves the effective policy for an effect, filling unset fields
// from the defaults.
func configOf(e SideEffect) Config {
	cfg := DefaultConfig()
	if c, ok := e.(Configurable); ok {
		override := c.Config()
		if override.Timeout > 0 {
			cfg.Timeout = override.Timeout
		}
		cfg.ContinueOnError = override.ContinueOnError
		if override.MaxRetries > 0 {
			cfg.MaxRetries = override.MaxRetries
		}
		if override.RetryDelay > 0 {
			cfg.RetryDelay = override.RetryDelay
		}
		if override.BackoffMultiplier > 0 {
			cfg.BackoffMultiplier = override.BackoffMultiplier
		}
		cfg.IsTransient = override.IsTransient
	}
	return cfg
}
