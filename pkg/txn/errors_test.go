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
	"strings"
	"testing"
	"time"
)

func TestTimeoutErrorMatchesDeadlineExceeded(t *testing.T) {
	err := &TimeoutError{WorkflowID: "wf-1", Attempt: 2, Timeout: 5 * time.Second}

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("TimeoutError should match context.DeadlineExceeded")
	}
	if !IsTransient(err) {
		t.Error("TimeoutError should classify as transient")
	}
	if !IsTimeout(err) {
		t.Error("IsTimeout() should detect a TimeoutError")
	}
	if IsTimeout(errors.New("other")) {
		t.Error("IsTimeout() matched an unrelated error")
	}
	if !strings.Contains(err.Error(), "wf-1") {
		t.Errorf("Error() = %q, want workflow id included", err.Error())
	}
}

func TestFailedErrorUnwrap(t *testing.T) {
	cause := errors.New("deadlock detected")
	err := &FailedError{WorkflowID: "wf-2", Attempts: 4, Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("FailedError should unwrap to its cause")
	}
	if !IsFailed(err) {
		t.Error("IsFailed() should detect a FailedError")
	}
	if !IsFailed(fmt.Errorf("outer: %w", err)) {
		t.Error("IsFailed() should see through wrapping")
	}
	if !strings.Contains(err.Error(), "4 attempts") {
		t.Errorf("Error() = %q, want attempt count included", err.Error())
	}
}

func TestDeadlockErrorUnwrap(t *testing.T) {
	cause := errors.New("driver: deadlock")
	err := &DeadlockError{WorkflowID: "wf-3", Attempt: 1, Code: "40P01", Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("DeadlockError should unwrap to its cause")
	}
	if !IsDeadlockError(err) {
		t.Error("IsDeadlockError() should detect a DeadlockError")
	}
	if !IsTransient(err) {
		t.Error("DeadlockError should classify as transient")
	}
	if !strings.Contains(err.Error(), "40P01") {
		t.Errorf("Error() = %q, want vendor code included", err.Error())
	}

	noCode := &DeadlockError{WorkflowID: "wf-3", Attempt: 1, Cause: cause}
	if strings.Contains(noCode.Error(), "code") {
		t.Errorf("Error() = %q, want no code segment without a code", noCode.Error())
	}
}
