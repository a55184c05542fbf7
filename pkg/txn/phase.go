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

// Phase represents one of the seven fixed points in a transaction attempt's
// lifecycle. For a single attempt, phases fire in exactly declaration order:
// the first five on the success path, or the forward phases up to the failure
// point followed by the rollback pair on the failure path. Never both paths.
type Phase int

const (
	// PhaseBeforeBegin fires before the underlying transactional scope is opened.
	PhaseBeforeBegin Phase = iota

	// PhaseAfterBegin fires right after the scope is opened, inside the scope.
	PhaseAfterBegin

	// PhaseBeforeCommitValidation fires after the user block, inside the scope.
	// A failure here prevents any data mutation from becoming durable.
	PhaseBeforeCommitValidation

	// PhaseBeforeCommit fires after validation, inside the scope. Synchronous
	// side effects execute here; a failure prevents the commit.
	PhaseBeforeCommit

	// PhaseAfterCommit fires after a successful commit, outside the scope.
	// Asynchronous side effects are dispatched here.
	PhaseAfterCommit

	// PhaseOnRollback fires when an attempt fails, after the scope is rolled back.
	PhaseOnRollback

	// PhaseAfterRollback fires after PhaseOnRollback completes.
	PhaseAfterRollback
)

// String returns the canonical name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseBeforeBegin:
		return "BEFORE_BEGIN"
	case PhaseAfterBegin:
		return "AFTER_BEGIN"
	case PhaseBeforeCommitValidation:
		return "BEFORE_COMMIT_VALIDATION"
	case PhaseBeforeCommit:
		return "BEFORE_COMMIT"
	case PhaseAfterCommit:
		return "AFTER_COMMIT"
	case PhaseOnRollback:
		return "ON_ROLLBACK"
	case PhaseAfterRollback:
		return "AFTER_ROLLBACK"
	default:
		return "UNKNOWN"
	}
}

// FailFast reports whether the first adapter error in this phase aborts the
// remaining adapters and propagates, triggering rollback. All other phases
// run best-effort: adapter errors are logged and execution continues.
func (p Phase) FailFast() bool {
	return p == PhaseBeforeCommitValidation || p == PhaseBeforeCommit
}

// ForwardPhases lists the success-path phases in execution order.
func ForwardPhases() []Phase {
	return []Phase{
		PhaseBeforeBegin,
		PhaseAfterBegin,
		PhaseBeforeCommitValidation,
		PhaseBeforeCommit,
		PhaseAfterCommit,
	}
}

// RollbackPhases lists the failure-path phases in execution order.
func RollbackPhases() []Phase {
	return []Phase{PhaseOnRollback, PhaseAfterRollback}
}
