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

import "fmt"

type status int

const (
	statusSuccess status = iota
	statusFailed
	statusSkipped
)

// Result is the closed outcome type of a side-effect execution: exactly one
// of Success, Failed or Skipped. Construct values only through those three
// functions.
type Result struct {
	status     status
	metadata   map[string]interface{}
	err        error
	retryCount int
	reason     string
}

// Success reports a completed execution with optional handler metadata.
func Success(metadata map[string]interface{}) Result {
	return Result{status: statusSuccess, metadata: metadata}
}

// Failed reports a failed execution after retryCount retries.
func Failed(err error, retryCount int) Result {
	return Result{status: statusFailed, err: err, retryCount: retryCount}
}

// Skipped reports that the effect was not executed, e.g. because the dedup
// store already holds its id.
func Skipped(reason string) Result {
	return Result{status: statusSkipped, reason: reason}
}

// IsSuccess reports whether the effect completed.
func (r Result) IsSuccess() bool { return r.status == statusSuccess }

// IsFailed reports whether the effect failed.
func (r Result) IsFailed() bool { return r.status == statusFailed }

// IsSkipped reports whether the effect was skipped.
func (r Result) IsSkipped() bool { return r.status == statusSkipped }

// Metadata returns the handler metadata of a successful result, nil otherwise.
func (r Result) Metadata() map[string]interface{} { return r.metadata }

// Err returns the failure cause of a failed result, nil otherwise.
func (r Result) Err() error { return r.err }

// RetryCount returns how many retries preceded a failed result.
func (r Result) RetryCount() int { return r.retryCount }

// Reason returns the skip reason of a skipped result, "" otherwise.
func (r Result) Reason() string { return r.reason }

// String renders the result for logs.
func (r Result) String() string {
	switch r.status {
	case statusSuccess:
		return "success"
	case statusFailed:
		return fmt.Sprintf("failed after %d retries: %v", r.retryCount, r.err)
	case statusSkipped:
		return fmt.Sprintf("skipped: %s", r.reason)
	default:
		return "unknown"
	}
}
