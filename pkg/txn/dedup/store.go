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

// Package dedup provides the event-deduplication store: an idempotency guard
// keyed by side-effect id that prevents a side effect from being delivered
// more than once across retried transaction attempts.
package dedup

import (
	"context"
	"errors"
	"time"
)

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("dedup store is closed")

// Store maps side-effect ids to publish timestamps.
//
// Invariant: IsPublished(id) is true iff MarkPublished(id) was called and the
// entry has not since been purged by DeleteBefore. The store is the only
// state shared across concurrent transaction attempts and must be safe for
// concurrent callers.
type Store interface {
	// MarkPublished records that the side effect with the given id was
	// delivered at the given time. Re-marking an already published id is a
	// no-op that keeps the original timestamp.
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error

	// IsPublished reports whether the id has been marked and not purged.
	IsPublished(ctx context.Context, id string) (bool, error)

	// Count returns the number of entries currently held.
	Count(ctx context.Context) (int64, error)

	// DeleteBefore removes exactly the entries with timestamp strictly less
	// than cutoff and returns how many were removed.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NoopStore always reports "not published" and never records anything.
// Valid when idempotency is intentionally not required, i.e. every side
// effect is designed to be safely reprocessed.
type NoopStore struct{}

// NewNoopStore creates a NoopStore.
func NewNoopStore() *NoopStore { return &NoopStore{} }

// MarkPublished discards the mark.
func (s *NoopStore) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	return nil
}

// IsPublished always reports false.
func (s *NoopStore) IsPublished(ctx context.Context, id string) (bool, error) {
	return false, nil
}

// Count always reports zero.
func (s *NoopStore) Count(ctx context.Context) (int64, error) { return 0, nil }

// DeleteBefore removes nothing.
func (s *NoopStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}
