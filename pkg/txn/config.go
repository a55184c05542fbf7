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
	"time"
)

// BackoffStrategy selects how the delay between retry attempts grows.
type BackoffStrategy int

const (
	// BackoffExponential doubles the delay with each attempt:
	// delay = InitialDelay * 2^attempt.
	BackoffExponential BackoffStrategy = iota

	// BackoffLinear grows the delay linearly:
	// delay = InitialDelay * (attempt + 1).
	BackoffLinear

	// BackoffImmediate retries without delay.
	BackoffImmediate
)

// String returns the string representation of the strategy.
func (s BackoffStrategy) String() string {
	switch s {
	case BackoffExponential:
		return "EXPONENTIAL"
	case BackoffLinear:
		return "LINEAR"
	case BackoffImmediate:
		return "IMMEDIATE"
	default:
		return "UNKNOWN"
	}
}

// IsolationLevel is the isolation level requested from the underlying storage
// engine. It is passed through to the ScopeFactory and not interpreted by the
// transaction manager itself.
type IsolationLevel int

const (
	// IsolationDefault defers to the storage engine's default.
	IsolationDefault IsolationLevel = iota

	// IsolationReadUncommitted allows dirty reads.
	IsolationReadUncommitted

	// IsolationReadCommitted prevents dirty reads. This is the default level.
	IsolationReadCommitted

	// IsolationRepeatableRead additionally prevents non-repeatable reads.
	IsolationRepeatableRead

	// IsolationSerializable provides full serializability.
	IsolationSerializable
)

// String returns the string representation of the isolation level.
func (l IsolationLevel) String() string {
	switch l {
	case IsolationDefault:
		return "DEFAULT"
	case IsolationReadUncommitted:
		return "READ_UNCOMMITTED"
	case IsolationReadCommitted:
		return "READ_COMMITTED"
	case IsolationRepeatableRead:
		return "REPEATABLE_READ"
	case IsolationSerializable:
		return "SERIALIZABLE"
	default:
		return "UNKNOWN"
	}
}

// RetryPolicy configures the manager's retry loop across transaction attempts.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial attempt.
	// Must be >= 0; a value of 0 disables retries.
	MaxRetries int

	// BackoffStrategy selects the delay growth between attempts.
	BackoffStrategy BackoffStrategy

	// InitialDelay is the base delay fed into the backoff formula.
	// Must be >= 0.
	InitialDelay time.Duration

	// MaxDelay caps the computed delay before jitter. A value of 0 means
	// no cap.
	MaxDelay time.Duration

	// JitterFactor randomizes the capped delay by up to ±JitterFactor*delay.
	// Value between 0.0 (no jitter) and 1.0.
	JitterFactor float64

	// RetryableErrors lists errors that are always retried, regardless of
	// the transient-pattern classifier.
	RetryableErrors []error

	// NonRetryableErrors lists errors that are never retried. Takes
	// precedence over the transient-pattern classifier but not over
	// RetryableErrors.
	NonRetryableErrors []error
}

// TransactionConfig configures a single Transaction call.
type TransactionConfig struct {
	// Timeout bounds the user block, validation and commit of one attempt.
	// Expiry fails the attempt with a TimeoutError. A value of 0 means
	// no timeout.
	Timeout time.Duration

	// RetryPolicy governs retries across attempts.
	RetryPolicy RetryPolicy

	// IsolationLevel is passed through to the scope factory.
	IsolationLevel IsolationLevel
}

// DefaultTransactionConfig returns the default configuration:
//   - Timeout: 30s
//   - MaxRetries: 3
//   - BackoffStrategy: exponential
//   - InitialDelay: 100ms
//   - MaxDelay: 30s
//   - IsolationLevel: read committed
func DefaultTransactionConfig() *TransactionConfig {
	return &TransactionConfig{
		Timeout: 30 * time.Second,
		RetryPolicy: RetryPolicy{
			MaxRetries:      3,
			BackoffStrategy: BackoffExponential,
			InitialDelay:    100 * time.Millisecond,
			MaxDelay:        30 * time.Second,
		},
		IsolationLevel: IsolationReadCommitted,
	}
}

// NoRetryConfig returns a configuration with retries disabled and no timeout.
func NoRetryConfig() *TransactionConfig {
	return &TransactionConfig{
		RetryPolicy:    RetryPolicy{MaxRetries: 0, BackoffStrategy: BackoffImmediate},
		IsolationLevel: IsolationReadCommitted,
	}
}

// Validate validates the configuration.
func (c *TransactionConfig) Validate() error {
	if c.Timeout < 0 {
		return ErrInvalidConfig
	}
	return c.RetryPolicy.Validate()
}

// Validate validates the retry policy.
func (p *RetryPolicy) Validate() error {
	if p.MaxRetries < 0 {
		return ErrInvalidConfig
	}
	if p.InitialDelay < 0 {
		return ErrInvalidConfig
	}
	if p.MaxDelay > 0 && p.MaxDelay < p.InitialDelay {
		return ErrInvalidConfig
	}
	if p.JitterFactor < 0 || p.JitterFactor > 1 {
		return ErrInvalidConfig
	}
	return nil
}
