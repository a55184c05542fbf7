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
	"testing"
	"time"
)

func TestDelayExponential(t *testing.T) {
	policy := RetryPolicy{
		BackoffStrategy: BackoffExponential,
		InitialDelay:    100 * time.Millisecond,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{-1, 100 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := policy.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestDelayLinear(t *testing.T) {
	policy := RetryPolicy{
		BackoffStrategy: BackoffLinear,
		InitialDelay:    100 * time.Millisecond,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 300 * time.Millisecond},
		{5, 600 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := policy.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestDelayImmediate(t *testing.T) {
	policy := RetryPolicy{
		BackoffStrategy: BackoffImmediate,
		InitialDelay:    time.Second,
	}

	for attempt := 0; attempt < 5; attempt++ {
		if got := policy.Delay(attempt); got != 0 {
			t.Errorf("Delay(%d) = %v, want 0", attempt, got)
		}
	}
}

func TestDelayCappedByMaxDelay(t *testing.T) {
	policy := RetryPolicy{
		BackoffStrategy: BackoffExponential,
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        500 * time.Millisecond,
	}

	if got := policy.Delay(1); got != 200*time.Millisecond {
		t.Errorf("Delay(1) = %v, want 200ms (below cap)", got)
	}
	for attempt := 3; attempt < 10; attempt++ {
		if got := policy.Delay(attempt); got != 500*time.Millisecond {
			t.Errorf("Delay(%d) = %v, want capped 500ms", attempt, got)
		}
	}
}

func TestDelayJitterStaysInRange(t *testing.T) {
	policy := RetryPolicy{
		BackoffStrategy: BackoffExponential,
		InitialDelay:    100 * time.Millisecond,
		JitterFactor:    0.5,
	}

	// attempt 2: base 400ms, jitter ±200ms
	min := 200 * time.Millisecond
	max := 600 * time.Millisecond
	for i := 0; i < 100; i++ {
		got := policy.Delay(2)
		if got < min || got > max {
			t.Fatalf("Delay(2) = %v, want within [%v, %v]", got, min, max)
		}
	}
}

func TestDelayNeverNegative(t *testing.T) {
	policy := RetryPolicy{
		BackoffStrategy: BackoffExponential,
		InitialDelay:    time.Millisecond,
		JitterFactor:    1.0,
	}

	for i := 0; i < 100; i++ {
		if got := policy.Delay(0); got < 0 {
			t.Fatalf("Delay(0) = %v, want >= 0", got)
		}
	}
}
