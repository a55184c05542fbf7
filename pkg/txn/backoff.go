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
	"math"
	"math/rand"
	"time"
)

// Delay computes the backoff delay after the given zero-based attempt has
// failed:
//
//	exponential: InitialDelay * 2^attempt
//	linear:      InitialDelay * (attempt + 1)
//	immediate:   0
//
// The result is capped at MaxDelay, then jittered by ±JitterFactor*delay.
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	var base float64
	switch p.BackoffStrategy {
	case BackoffExponential:
		base = float64(p.InitialDelay) * math.Pow(2, float64(attempt))
	case BackoffLinear:
		base = float64(p.InitialDelay) * float64(attempt+1)
	case BackoffImmediate:
		return 0
	default:
		base = float64(p.InitialDelay)
	}

	if p.MaxDelay > 0 && base > float64(p.MaxDelay) {
		base = float64(p.MaxDelay)
	}

	if p.JitterFactor > 0 {
		// ±JitterFactor * delay
		jitter := base * p.JitterFactor * (rand.Float64()*2 - 1)
		base += jitter
		if base < 0 {
			base = 0
		}
	}

	return time.Duration(base)
}
