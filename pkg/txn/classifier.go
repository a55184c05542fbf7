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
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/lib/pq"
)

// Postgres SQLSTATE codes that signal a retryable concurrency failure.
const (
	pqDeadlockDetected     = "40P01"
	pqSerializationFailure = "40001"
)

// transientKeywords are substrings that mark an error message as transient
// when no typed signal is available.
var transientKeywords = []string{
	"timeout",
	"timed out",
	"deadlock",
	"connection refused",
	"connection reset",
	"broken pipe",
	"temporarily unavailable",
	"too many connections",
	"try again",
	"i/o error",
}

// ShouldRetry classifies err for the retry loop. An error is retried when
//
//  1. it is explicitly listed in RetryableErrors, or
//  2. it is not listed in NonRetryableErrors and matches the transient
//     classifier (deadlock signal, known transient type, or transient
//     keyword).
//
// All other errors fail immediately without retry.
func (p *RetryPolicy) ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	for _, retryable := range p.RetryableErrors {
		if errors.Is(err, retryable) {
			return true
		}
	}

	for _, nonRetryable := range p.NonRetryableErrors {
		if errors.Is(err, nonRetryable) {
			return false
		}
	}

	return IsTransient(err)
}

// IsTransient reports whether err looks recoverable: a deadlock signal, a
// known transient error type, or a transient keyword in the message.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if IsDeadlockSignal(err) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, kw := range transientKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}

	return false
}

// IsDeadlockSignal reports whether err carries a vendor deadlock signal:
// a DeadlockError, a Postgres deadlock/serialization SQLSTATE, or a message
// matching the MySQL deadlock diagnostics.
func IsDeadlockSignal(err error) bool {
	if err == nil {
		return false
	}

	if IsDeadlockError(err) {
		return true
	}

	if code, ok := DeadlockCode(err); ok && code != "" {
		return true
	}

	msg := strings.ToLower(err.Error())
	// MySQL 1213: "Deadlock found when trying to get lock"
	return strings.Contains(msg, "deadlock found") ||
		strings.Contains(msg, "error 1213")
}

// DeadlockCode extracts the vendor error code from a deadlock signal, when
// the driver exposes one.
func DeadlockCode(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		if code == pqDeadlockDetected || code == pqSerializationFailure {
			return code, true
		}
	}
	return "", false
}
