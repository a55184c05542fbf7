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
	"time"
)

// Common errors returned by the transaction manager.
var (
	// ErrInvalidConfig is returned when the transaction configuration is invalid.
	ErrInvalidConfig = errors.New("invalid transaction configuration")

	// ErrNilBlock is returned when Transaction is called without a block.
	ErrNilBlock = errors.New("transaction block is nil")

	// ErrManagerClosed is returned when the manager has been closed.
	ErrManagerClosed = errors.New("transaction manager is closed")

	// ErrScopeFactoryNotConfigured is returned when no scope factory is set.
	ErrScopeFactoryNotConfigured = errors.New("scope factory not configured")
)

// TimeoutError reports that one attempt exceeded the configured timeout.
// A timeout on the final attempt surfaces to the caller as this error rather
// than a FailedError.
type TimeoutError struct {
	// WorkflowID is the correlation id of the transaction.
	WorkflowID string

	// Attempt is the zero-based attempt that timed out.
	Attempt int

	// Timeout is the configured attempt timeout.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("transaction %s timed out after %v (attempt %d)", e.WorkflowID, e.Timeout, e.Attempt)
}

// Is makes TimeoutError match context.DeadlineExceeded in errors.Is chains.
func (e *TimeoutError) Is(target error) bool {
	return target == context.DeadlineExceeded
}

// FailedError reports that all retries were exhausted. It wraps the error
// from the last attempt.
type FailedError struct {
	// WorkflowID is the correlation id of the transaction.
	WorkflowID string

	// Attempts is the total number of attempts made.
	Attempts int

	// Cause is the error from the last attempt.
	Cause error
}

// Error implements the error interface.
func (e *FailedError) Error() string {
	return fmt.Sprintf("transaction %s failed after %d attempts: %v", e.WorkflowID, e.Attempts, e.Cause)
}

// Unwrap returns the last attempt's error.
func (e *FailedError) Unwrap() error { return e.Cause }

// DeadlockError reports a vendor deadlock signal detected during an attempt.
// Deadlocks are always classified as transient and retried.
type DeadlockError struct {
	// WorkflowID is the correlation id of the transaction.
	WorkflowID string

	// Attempt is the zero-based attempt that hit the deadlock.
	Attempt int

	// Code is the vendor error code, when available (e.g. SQLSTATE 40P01).
	Code string

	// Cause is the underlying driver error.
	Cause error
}

// Error implements the error interface.
func (e *DeadlockError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("transaction %s deadlock detected (code %s, attempt %d): %v", e.WorkflowID, e.Code, e.Attempt, e.Cause)
	}
	return fmt.Sprintf("transaction %s deadlock detected (attempt %d): %v", e.WorkflowID, e.Attempt, e.Cause)
}

// Unwrap returns the underlying driver error.
func (e *DeadlockError) Unwrap() error { return e.Cause }

// IsTimeout checks whether err is a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsFailed checks whether err is a FailedError.
func IsFailed(err error) bool {
	var fe *FailedError
	return errors.As(err, &fe)
}

// IsDeadlockError checks whether err is a DeadlockError.
func IsDeadlockError(err error) bool {
	var de *DeadlockError
	return errors.As(err, &de)
}
