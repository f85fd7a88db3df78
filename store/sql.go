// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"hash/fnv"

	_ "github.com/lib/pq"

	kverrors "github.com/NLnetLabs/kvx/pkg/errors"
	"github.com/NLnetLabs/kvx/pkg/kv"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS kvx_store (
	namespace TEXT NOT NULL,
	scope     TEXT NOT NULL,
	name      TEXT NOT NULL,
	value     JSONB NOT NULL,
	PRIMARY KEY (namespace, scope, name)
);
CREATE INDEX IF NOT EXISTS kvx_store_scope_prefix_idx ON kvx_store (namespace, scope);
`

// SQLBackend implements the backend contract on PostgreSQL, serializing
// concurrent access to a scope with pg_advisory_xact_lock and
// SERIALIZABLE transactions.
type SQLBackend struct {
	db        *sql.DB
	namespace kv.Namespace
}

// NewSQLBackend opens a connection pool against dsn and ensures the
// backing table exists.
func NewSQLBackend(ctx context.Context, dsn string, namespace kv.Namespace) (*SQLBackend, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, wrapDB(err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, wrapDB(err)
	}
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		db.Close()
		return nil, wrapDB(err)
	}
	return &SQLBackend{db: db, namespace: namespace}, nil
}

// wrapDB wraps a non-nil driver error in kverrors.ErrDB, passing nil
// through untouched so callers can return it unconditionally.
func wrapDB(err error) error {
	if err == nil {
		return nil
	}
	return kverrors.ErrDB.Wrap(err)
}

// advisoryLockKey hashes (namespace, scope) into the int64 key
// pg_advisory_xact_lock expects.
func advisoryLockKey(namespace kv.Namespace, scope kv.Scope) int64 {
	h := fnv.New64a()
	h.Write([]byte(namespace.String()))
	h.Write([]byte{0})
	h.Write([]byte(scope.String()))
	return int64(h.Sum64())
}

func (b *SQLBackend) IsEmpty(ctx context.Context) (bool, error) {
	var exists bool
	err := b.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM kvx_store WHERE namespace = $1)`, b.namespace.String(),
	).Scan(&exists)
	if err != nil {
		return false, wrapDB(err)
	}
	return !exists, nil
}

func (b *SQLBackend) Has(ctx context.Context, key kv.Key) (bool, error) {
	var exists bool
	err := b.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM kvx_store WHERE namespace = $1 AND scope = $2 AND name = $3)`,
		b.namespace.String(), key.Scope.String(), key.Name.String(),
	).Scan(&exists)
	if err != nil {
		return false, wrapDB(err)
	}
	return exists, nil
}

func (b *SQLBackend) HasScope(ctx context.Context, scope kv.Scope) (bool, error) {
	if scope.IsGlobal() {
		empty, err := b.IsEmpty(ctx)
		return !empty, err
	}
	var exists bool
	err := b.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM kvx_store WHERE namespace = $1 AND (scope = $2 OR scope LIKE $2 || '/%'))`,
		b.namespace.String(), scope.String(),
	).Scan(&exists)
	if err != nil {
		return false, wrapDB(err)
	}
	return exists, nil
}

func (b *SQLBackend) Get(ctx context.Context, key kv.Key) (kv.Value, bool, error) {
	var raw []byte
	err := b.db.QueryRowContext(ctx,
		`SELECT value FROM kvx_store WHERE namespace = $1 AND scope = $2 AND name = $3`,
		b.namespace.String(), key.Scope.String(), key.Name.String(),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return kv.Value{}, false, nil
	}
	if err != nil {
		return kv.Value{}, false, wrapDB(err)
	}
	v, parseErr := kv.ParseValue(raw)
	if parseErr != nil {
		return kv.Value{}, false, parseErr
	}
	return v, true, nil
}

func (b *SQLBackend) ListKeys(ctx context.Context, scope kv.Scope) ([]kv.Key, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT name FROM kvx_store WHERE namespace = $1 AND scope = $2`,
		b.namespace.String(), scope.String(),
	)
	if err != nil {
		return nil, wrapDB(err)
	}
	defer rows.Close()

	var out []kv.Key
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, wrapDB(err)
		}
		out = append(out, kv.NewScopedKey(scope, kv.Segment(name)))
	}
	return out, wrapDB(rows.Err())
}

func (b *SQLBackend) ListScopes(ctx context.Context) ([]kv.Scope, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT DISTINCT scope FROM kvx_store WHERE namespace = $1`, b.namespace.String(),
	)
	if err != nil {
		return nil, wrapDB(err)
	}
	defer rows.Close()

	var literal []string
	for rows.Next() {
		var scopeStr string
		if err := rows.Scan(&scopeStr); err != nil {
			return nil, wrapDB(err)
		}
		literal = append(literal, scopeStr)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDB(err)
	}
	return expandAncestorScopes(literal), nil
}

func (b *SQLBackend) Store(ctx context.Context, key kv.Key, value kv.Value) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO kvx_store (namespace, scope, name, value) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (namespace, scope, name) DO UPDATE SET value = EXCLUDED.value`,
		b.namespace.String(), key.Scope.String(), key.Name.String(), value.Bytes(),
	)
	if err != nil {
		return wrapDB(err)
	}
	return nil
}

func (b *SQLBackend) MoveValue(ctx context.Context, from, to kv.Key) error {
	has, err := b.Has(ctx, from)
	if err != nil {
		return err
	}
	if !has {
		return kverrors.ErrUnknownKey.WithDetail("key", from.String())
	}
	_, err = b.db.ExecContext(ctx,
		`UPDATE kvx_store SET scope = $1, name = $2 WHERE namespace = $3 AND scope = $4 AND name = $5`,
		to.Scope.String(), to.Name.String(), b.namespace.String(), from.Scope.String(), from.Name.String(),
	)
	if err != nil {
		return wrapDB(err)
	}
	return nil
}

func (b *SQLBackend) MoveScope(ctx context.Context, from, to kv.Scope) error {
	hasTo, err := b.HasScope(ctx, to)
	if err != nil {
		return err
	}
	if hasTo {
		return kverrors.ErrScopeNotEmpty.WithDetail("scope", to.String())
	}

	rows, err := b.db.QueryContext(ctx,
		`SELECT scope, name, value FROM kvx_store WHERE namespace = $1 AND (scope = $2 OR scope LIKE $2 || '/%')`,
		b.namespace.String(), from.String(),
	)
	if err != nil {
		return wrapDB(err)
	}
	type row struct {
		scope, name string
		value       []byte
	}
	var matches []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.scope, &r.name, &r.value); err != nil {
			rows.Close()
			return wrapDB(err)
		}
		matches = append(matches, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return wrapDB(err)
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapDB(err)
	}
	defer tx.Rollback()

	for _, m := range matches {
		fromScope, parseErr := kv.ParseScope(m.scope)
		if parseErr != nil {
			continue
		}
		rel := fromScope[len(from):]
		destScope := append(kv.NewScope(to...), rel...)

		if _, err := tx.ExecContext(ctx, `DELETE FROM kvx_store WHERE namespace = $1 AND scope = $2 AND name = $3`,
			b.namespace.String(), m.scope, m.name); err != nil {
			return wrapDB(err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO kvx_store (namespace, scope, name, value) VALUES ($1, $2, $3, $4)`,
			b.namespace.String(), destScope.String(), m.name, m.value); err != nil {
			return wrapDB(err)
		}
	}
	return wrapDB(tx.Commit())
}

func (b *SQLBackend) Delete(ctx context.Context, key kv.Key) error {
	_, err := b.db.ExecContext(ctx,
		`DELETE FROM kvx_store WHERE namespace = $1 AND scope = $2 AND name = $3`,
		b.namespace.String(), key.Scope.String(), key.Name.String(),
	)
	if err != nil {
		return wrapDB(err)
	}
	return nil
}

func (b *SQLBackend) DeleteScope(ctx context.Context, scope kv.Scope) error {
	_, err := b.db.ExecContext(ctx,
		`DELETE FROM kvx_store WHERE namespace = $1 AND (scope = $2 OR scope LIKE $2 || '/%')`,
		b.namespace.String(), scope.String(),
	)
	if err != nil {
		return wrapDB(err)
	}
	return nil
}

func (b *SQLBackend) Clear(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM kvx_store WHERE namespace = $1`, b.namespace.String())
	if err != nil {
		return wrapDB(err)
	}
	return nil
}

func (b *SQLBackend) MigrateNamespace(ctx context.Context, newNamespace kv.Namespace) error {
	empty, err := (&SQLBackend{db: b.db, namespace: newNamespace}).IsEmpty(ctx)
	if err != nil {
		return err
	}
	if !empty {
		return kverrors.ErrNamespaceNotEmpty.WithDetail("namespace", newNamespace.String())
	}
	_, err = b.db.ExecContext(ctx,
		`UPDATE kvx_store SET namespace = $1 WHERE namespace = $2`, newNamespace.String(), b.namespace.String(),
	)
	if err != nil {
		return wrapDB(err)
	}
	b.namespace = newNamespace
	return nil
}

// TransactionIn runs fn inside a SERIALIZABLE transaction holding an
// advisory lock on scope, translating a Postgres serialization failure
// (SQLSTATE 40001) into a retriable conflict for the Transaction/Execute
// driver.
func (b *SQLBackend) TransactionIn(ctx context.Context, scope kv.Scope, fn TransactionFunc) error {
	tx, err := b.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return wrapDB(err)
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, advisoryLockKey(b.namespace, scope)); err != nil {
		tx.Rollback()
		return wrapDB(err)
	}

	handle := &sqlTxHandle{tx: tx, namespace: b.namespace}
	if err := fn(ctx, handle); err != nil {
		tx.Rollback()
		if isSerializationFailure(err) {
			return kverrors.ErrSerializationConflict.Wrap(err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if isSerializationFailure(err) {
			return kverrors.ErrSerializationConflict.Wrap(err)
		}
		return wrapDB(err)
	}
	return nil
}

func isSerializationFailure(err error) bool {
	return err != nil && errorCodeIs(err, "40001")
}

// errorCodeIs checks a lib/pq error's SQLSTATE without importing the
// driver's internal error type directly, keeping this file's surface
// small; lib/pq exposes it via (*pq.Error).Code.
func errorCodeIs(err error, code string) bool {
	type sqlstateError interface {
		SQLState() string
	}
	var pgErr sqlstateError
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == code
	}
	return false
}

// sqlTxHandle is the Backend view handed to a SQL transaction closure;
// every operation runs against the enclosing *sql.Tx.
type sqlTxHandle struct {
	tx        *sql.Tx
	namespace kv.Namespace
}

func (h *sqlTxHandle) IsEmpty(ctx context.Context) (bool, error) {
	var exists bool
	err := h.tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM kvx_store WHERE namespace = $1)`, h.namespace.String()).Scan(&exists)
	return !exists, wrapDB(err)
}

func (h *sqlTxHandle) Has(ctx context.Context, key kv.Key) (bool, error) {
	var exists bool
	err := h.tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM kvx_store WHERE namespace = $1 AND scope = $2 AND name = $3)`,
		h.namespace.String(), key.Scope.String(), key.Name.String(),
	).Scan(&exists)
	if err != nil {
		return false, wrapDB(err)
	}
	return exists, nil
}

func (h *sqlTxHandle) HasScope(ctx context.Context, scope kv.Scope) (bool, error) {
	if scope.IsGlobal() {
		empty, err := h.IsEmpty(ctx)
		return !empty, err
	}
	var exists bool
	err := h.tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM kvx_store WHERE namespace = $1 AND (scope = $2 OR scope LIKE $2 || '/%'))`,
		h.namespace.String(), scope.String(),
	).Scan(&exists)
	if err != nil {
		return false, wrapDB(err)
	}
	return exists, nil
}

func (h *sqlTxHandle) Get(ctx context.Context, key kv.Key) (kv.Value, bool, error) {
	var raw []byte
	err := h.tx.QueryRowContext(ctx,
		`SELECT value FROM kvx_store WHERE namespace = $1 AND scope = $2 AND name = $3`,
		h.namespace.String(), key.Scope.String(), key.Name.String(),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return kv.Value{}, false, nil
	}
	if err != nil {
		return kv.Value{}, false, wrapDB(err)
	}
	v, parseErr := kv.ParseValue(raw)
	if parseErr != nil {
		return kv.Value{}, false, parseErr
	}
	return v, true, nil
}

func (h *sqlTxHandle) ListKeys(ctx context.Context, scope kv.Scope) ([]kv.Key, error) {
	rows, err := h.tx.QueryContext(ctx,
		`SELECT name FROM kvx_store WHERE namespace = $1 AND scope = $2`, h.namespace.String(), scope.String(),
	)
	if err != nil {
		return nil, wrapDB(err)
	}
	defer rows.Close()
	var out []kv.Key
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, wrapDB(err)
		}
		out = append(out, kv.NewScopedKey(scope, kv.Segment(name)))
	}
	return out, wrapDB(rows.Err())
}

func (h *sqlTxHandle) ListScopes(ctx context.Context) ([]kv.Scope, error) {
	rows, err := h.tx.QueryContext(ctx, `SELECT DISTINCT scope FROM kvx_store WHERE namespace = $1`, h.namespace.String())
	if err != nil {
		return nil, wrapDB(err)
	}
	defer rows.Close()
	var literal []string
	for rows.Next() {
		var scopeStr string
		if err := rows.Scan(&scopeStr); err != nil {
			return nil, wrapDB(err)
		}
		literal = append(literal, scopeStr)
	}
	return expandAncestorScopes(literal), wrapDB(rows.Err())
}

func (h *sqlTxHandle) Store(ctx context.Context, key kv.Key, value kv.Value) error {
	_, err := h.tx.ExecContext(ctx,
		`INSERT INTO kvx_store (namespace, scope, name, value) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (namespace, scope, name) DO UPDATE SET value = EXCLUDED.value`,
		h.namespace.String(), key.Scope.String(), key.Name.String(), value.Bytes(),
	)
	return wrapDB(err)
}

func (h *sqlTxHandle) MoveValue(ctx context.Context, from, to kv.Key) error {
	has, err := h.Has(ctx, from)
	if err != nil {
		return err
	}
	if !has {
		return kverrors.ErrUnknownKey.WithDetail("key", from.String())
	}
	_, err = h.tx.ExecContext(ctx,
		`UPDATE kvx_store SET scope = $1, name = $2 WHERE namespace = $3 AND scope = $4 AND name = $5`,
		to.Scope.String(), to.Name.String(), h.namespace.String(), from.Scope.String(), from.Name.String(),
	)
	return wrapDB(err)
}

func (h *sqlTxHandle) MoveScope(ctx context.Context, from, to kv.Scope) error {
	hasTo, err := h.HasScope(ctx, to)
	if err != nil {
		return err
	}
	if hasTo {
		return kverrors.ErrScopeNotEmpty.WithDetail("scope", to.String())
	}

	rows, err := h.tx.QueryContext(ctx,
		`SELECT scope, name, value FROM kvx_store WHERE namespace = $1 AND (scope = $2 OR scope LIKE $2 || '/%')`,
		h.namespace.String(), from.String(),
	)
	if err != nil {
		return wrapDB(err)
	}
	type row struct {
		scope, name string
		value       []byte
	}
	var matches []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.scope, &r.name, &r.value); err != nil {
			rows.Close()
			return wrapDB(err)
		}
		matches = append(matches, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return wrapDB(err)
	}

	for _, m := range matches {
		fromScope, parseErr := kv.ParseScope(m.scope)
		if parseErr != nil {
			continue
		}
		rel := fromScope[len(from):]
		destScope := append(kv.NewScope(to...), rel...)

		if _, err := h.tx.ExecContext(ctx, `DELETE FROM kvx_store WHERE namespace = $1 AND scope = $2 AND name = $3`,
			h.namespace.String(), m.scope, m.name); err != nil {
			return wrapDB(err)
		}
		if _, err := h.tx.ExecContext(ctx,
			`INSERT INTO kvx_store (namespace, scope, name, value) VALUES ($1, $2, $3, $4)`,
			h.namespace.String(), destScope.String(), m.name, m.value); err != nil {
			return wrapDB(err)
		}
	}
	return nil
}

func (h *sqlTxHandle) Delete(ctx context.Context, key kv.Key) error {
	_, err := h.tx.ExecContext(ctx,
		`DELETE FROM kvx_store WHERE namespace = $1 AND scope = $2 AND name = $3`,
		h.namespace.String(), key.Scope.String(), key.Name.String(),
	)
	return wrapDB(err)
}

func (h *sqlTxHandle) DeleteScope(ctx context.Context, scope kv.Scope) error {
	_, err := h.tx.ExecContext(ctx,
		`DELETE FROM kvx_store WHERE namespace = $1 AND (scope = $2 OR scope LIKE $2 || '/%')`,
		h.namespace.String(), scope.String(),
	)
	return wrapDB(err)
}

func (h *sqlTxHandle) Clear(ctx context.Context) error {
	_, err := h.tx.ExecContext(ctx, `DELETE FROM kvx_store WHERE namespace = $1`, h.namespace.String())
	return wrapDB(err)
}

func (h *sqlTxHandle) MigrateNamespace(ctx context.Context, newNamespace kv.Namespace) error {
	var exists bool
	if err := h.tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM kvx_store WHERE namespace = $1)`, newNamespace.String()).Scan(&exists); err != nil {
		return wrapDB(err)
	}
	if exists {
		return kverrors.ErrNamespaceNotEmpty.WithDetail("namespace", newNamespace.String())
	}
	_, err := h.tx.ExecContext(ctx, `UPDATE kvx_store SET namespace = $1 WHERE namespace = $2`, newNamespace.String(), h.namespace.String())
	if err != nil {
		return wrapDB(err)
	}
	h.namespace = newNamespace
	return nil
}

// TransactionIn on the transactional handle runs fn directly against
// the same *sql.Tx: Postgres already serializes nested access within one
// transaction.
func (h *sqlTxHandle) TransactionIn(ctx context.Context, scope kv.Scope, fn TransactionFunc) error {
	return fn(ctx, h)
}

func (h *sqlTxHandle) Close() error {
	return nil
}

// Close releases the connection pool.
func (b *SQLBackend) Close() error {
	return wrapDB(b.db.Close())
}
