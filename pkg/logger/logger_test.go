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

package logger

import (
	"sync"
	"testing"

	"go.uber.org/zap"
)

func TestGetLoggerInitializesOnce(t *testing.T) {
	ResetLogger()
	defer ResetLogger()

	first := GetLogger()
	if first == nil {
		t.Fatal("GetLogger returned nil")
	}

	second := GetLogger()
	if first != second {
		t.Error("GetLogger returned a different instance on second call")
	}
}

func TestSetLogger(t *testing.T) {
	ResetLogger()
	defer ResetLogger()

	custom := zap.NewNop()
	SetLogger(custom)

	if GetLogger() != custom {
		t.Error("GetLogger did not return the logger set via SetLogger")
	}

	SetLogger(nil)
	if GetLogger() == nil {
		t.Error("GetLogger should re-initialize after SetLogger(nil)")
	}
}

func TestNamed(t *testing.T) {
	ResetLogger()
	defer ResetLogger()

	if Named("txn") == nil {
		t.Error("Named returned nil")
	}
}

func TestGetLoggerConcurrent(t *testing.T) {
	ResetLogger()
	defer ResetLogger()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if GetLogger() == nil {
				t.Error("GetLogger returned nil under concurrency")
			}
		}()
	}
	wg.Wait()
}
