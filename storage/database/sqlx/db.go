// Package sqlxrepos implements the repositories on PostgreSQL with sqlx and squirrel.
package sqlxrepos

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DB wraps the application database and hands out transactions.
type DB struct {
	*sqlx.DB
}

var _ core.Transactor = (*DB)(nil) // interface compliance check

func NewDB(db *sql.DB) *DB {
	return &DB{DB: sqlx.NewDb(db, "postgres")}
}

func (db *DB) InTx(ctx context.Context, fn func(tx core.DBExecutor) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back transaction: %v", rbErr)
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}
	return nil
}

// getExec returns the transaction passed by the caller, or the database itself.
func (db *DB) getExec(exec []core.DBExecutor) sqlx.ExtContext {
	if len(exec) > 0 && exec[0] != nil {
		if ext, ok := exec[0].(sqlx.ExtContext); ok {
			return ext
		}
	}
	return db.DB
}

func get(ctx context.Context, ext sqlx.ExtContext, dest interface{}, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.GetContext(ctx, ext, dest, query, args...)
}

func selectAll(ctx context.Context, ext sqlx.ExtContext, dest interface{}, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.SelectContext(ctx, ext, dest, query, args...)
}

func execute(ctx context.Context, ext sqlx.ExtContext, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	return ext.ExecContext(ctx, query, args...)
}

// insert runs an INSERT ... RETURNING id.
func insert(ctx context.Context, ext sqlx.ExtContext, b sq.InsertBuilder) (int, error) {
	query, args, err := b.Suffix("RETURNING id").ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	var id int
	if err = ext.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// mustAffect turns a write that matched no row into notFound.
func mustAffect(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pqCode(err) == pqUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pqCode(err) == pqForeignKeyViolation
}

func isNoRows(err error) bool {
	return errors.Cause(err) == sql.ErrNoRows
}

func containsPattern(s string) string {
	return "%" + s + "%"
}
