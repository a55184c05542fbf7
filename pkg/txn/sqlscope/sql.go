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

// Package sqlscope adapts a database/sql handle to the transaction manager's
// scope contract, mapping the requested isolation level onto sql.TxOptions.
package sqlscope

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/innovationmech/txkit/pkg/txn"
)

// Factory opens SQL transactions as transactional scopes.
type Factory struct {
	db *sql.DB
}

// New wraps a database handle. The handle's lifecycle stays with the caller.
func New(db *sql.DB) *Factory {
	return &Factory{db: db}
}

// DB returns the wrapped handle.
func (f *Factory) DB() *sql.DB { return f.db }

// Begin implements txn.ScopeFactory.
func (f *Factory) Begin(ctx context.Context, opts txn.ScopeOptions) (txn.Scope, error) {
	if f.db == nil {
		return nil, errors.New("sqlscope: nil database handle")
	}

	tx, err := f.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: isolationOf(opts.Isolation),
		ReadOnly:  opts.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for workflow %q: %w", opts.WorkflowID, err)
	}
	return &Scope{tx: tx}, nil
}

// isolationOf maps the manager's isolation enum onto database/sql levels.
// The level is passed through to the engine, not interpreted here.
func isolationOf(level txn.IsolationLevel) sql.IsolationLevel {
	switch level {
	case txn.IsolationReadUncommitted:
		return sql.LevelReadUncommitted
	case txn.IsolationReadCommitted:
		return sql.LevelReadCommitted
	case txn.IsolationRepeatableRead:
		return sql.LevelRepeatableRead
	case txn.IsolationSerializable:
		return sql.LevelSerializable
	default:
		return sql.LevelDefault
	}
}

// Scope is one open SQL transaction.
type Scope struct {
	tx *sql.Tx
}

// Tx exposes the underlying transaction for queries inside the block.
func (s *Scope) Tx() *sql.Tx { return s.tx }

// Commit implements txn.Scope.
func (s *Scope) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.tx.Commit()
}

// Rollback implements txn.Scope. Rolling back a transaction that already
// finished (e.g. after a failed commit) is a no-op.
func (s *Scope) Rollback(ctx context.Context) error {
	err := s.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// TxFrom extracts the SQL transaction from a scope produced by this package.
// Transaction blocks use it to issue statements inside the attempt's scope.
func TxFrom(scope txn.Scope) (*sql.Tx, bool) {
	s, ok := scope.(*Scope)
	if !ok {
		return nil, false
	}
	return s.tx, true
}
