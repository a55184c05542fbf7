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
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("attempt: %w", context.DeadlineExceeded), true},
		{"connection done", sql.ErrConnDone, true},
		{"bad conn", driver.ErrBadConn, true},
		{"timeout keyword", errors.New("read tcp: i/o timeout"), true},
		{"connection refused keyword", errors.New("dial tcp: connection refused"), true},
		{"deadlock keyword", errors.New("Deadlock detected while locking"), true},
		{"too many connections", errors.New("Error: too many connections"), true},
		{"plain business error", errors.New("insufficient funds"), false},
		{"constraint violation", errors.New("duplicate key value violates unique constraint"), false},
		{"canceled is not transient", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsDeadlockSignal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{
			"postgres deadlock sqlstate",
			&pq.Error{Code: "40P01", Message: "deadlock detected"},
			true,
		},
		{
			"postgres serialization failure",
			&pq.Error{Code: "40001", Message: "could not serialize access"},
			true,
		},
		{
			"postgres unrelated sqlstate",
			&pq.Error{Code: "23505", Message: "duplicate key"},
			false,
		},
		{
			"wrapped postgres deadlock",
			fmt.Errorf("exec: %w", &pq.Error{Code: "40P01"}),
			true,
		},
		{
			"mysql deadlock message",
			errors.New("Error 1213: Deadlock found when trying to get lock"),
			true,
		},
		{
			"typed deadlock error",
			&DeadlockError{WorkflowID: "wf", Code: "40P01", Cause: errors.New("x")},
			true,
		},
		{"business error", errors.New("not enough stock"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDeadlockSignal(tt.err); got != tt.want {
				t.Errorf("IsDeadlockSignal(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestDeadlockCode(t *testing.T) {
	code, ok := DeadlockCode(fmt.Errorf("exec: %w", &pq.Error{Code: "40P01"}))
	if !ok || code != "40P01" {
		t.Errorf("DeadlockCode() = (%q, %v), want (40P01, true)", code, ok)
	}

	if _, ok := DeadlockCode(errors.New("deadlock found")); ok {
		t.Error("DeadlockCode() reported a code for an untyped error")
	}
}

func TestShouldRetry(t *testing.T) {
	errBusiness := errors.New("order already shipped")
	errFlaky := errors.New("subsystem flapping")

	tests := []struct {
		name   string
		policy RetryPolicy
		err    error
		want   bool
	}{
		{
			name: "nil error never retries",
			err:  nil,
			want: false,
		},
		{
			name:   "explicit retryable wins",
			policy: RetryPolicy{RetryableErrors: []error{errFlaky}},
			err:    fmt.Errorf("call: %w", errFlaky),
			want:   true,
		},
		{
			name: "explicit retryable beats non-retryable list",
			policy: RetryPolicy{
				RetryableErrors:    []error{errFlaky},
				NonRetryableErrors: []error{errFlaky},
			},
			err:  errFlaky,
			want: true,
		},
		{
			name:   "explicit non-retryable beats transient classifier",
			policy: RetryPolicy{NonRetryableErrors: []error{context.DeadlineExceeded}},
			err:    context.DeadlineExceeded,
			want:   false,
		},
		{
			name: "transient classifier catches deadline",
			err:  context.DeadlineExceeded,
			want: true,
		},
		{
			name: "business error is permanent",
			err:  errBusiness,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.ShouldRetry(tt.err); got != tt.want {
				t.Errorf("ShouldRetry(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
