package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// stamp carries the actor and time of one unit of work.
type stamp struct {
	actor string
	now   time.Time
}

func newStamp(ctx context.Context, now func() time.Time) stamp {
	return stamp{actor: ActorFromContext(ctx), now: now()}
}

func (s stamp) audit() Audit {
	return Audit{CreatedBy: s.actor, CreatedOn: s.now, RowVersion: 1}
}

func (s stamp) modify(a *Audit) {
	actor, now := s.actor, s.now
	a.LastModifiedBy = &actor
	a.LastModifiedOn = &now
}

// withTx runs fn inside a transaction, rolling back on any error.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func getRow(ctx context.Context, q sqlx.ExtContext, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, q, dest, q.Rebind(query), args...)
}

func selectRows(ctx context.Context, q sqlx.ExtContext, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, q, dest, q.Rebind(query), args...)
}

func execQuery(ctx context.Context, q sqlx.ExtContext, query string, args ...interface{}) (int64, error) {
	res, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// execIn expands slice arguments with sqlx.In before executing.
func execIn(ctx context.Context, q sqlx.ExtContext, query string, args ...interface{}) (int64, error) {
	expanded, inArgs, err := sqlx.In(query, args...)
	if err != nil {
		return 0, err
	}
	return execQuery(ctx, q, expanded, inArgs...)
}

func deletedFilter(includeDeleted bool) string {
	if includeDeleted {
		return ""
	}
	return " AND is_deleted = FALSE"
}

// rowState loads the deletion flag of the row with the given id.
func rowState(ctx context.Context, q sqlx.ExtContext, table, id string) (deleted bool, err error) {
	err = getRow(ctx, q, &deleted, fmt.Sprintf("SELECT is_deleted FROM %s WHERE id = ?", table), id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("%s %s: %w", table, id, ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("failed to load %s %s: %w", table, id, err)
	}
	return deleted, nil
}

// requireLive fails with ErrNotFound unless the row exists and is not deleted.
func requireLive(ctx context.Context, q sqlx.ExtContext, table, id string) error {
	deleted, err := rowState(ctx, q, table, id)
	if err != nil {
		return err
	}
	if deleted {
		return fmt.Errorf("%s %s is deleted: %w", table, id, ErrNotFound)
	}
	return nil
}

// requireOwner fails with ErrOwnerNotFound unless the owner row exists.
func requireOwner(ctx context.Context, q sqlx.ExtContext, table, id string) (deleted bool, err error) {
	err = getRow(ctx, q, &deleted, fmt.Sprintf("SELECT is_deleted FROM %s WHERE id = ?", table), id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("%s: %w", id, ErrOwnerNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("failed to load owner %s: %w", id, err)
	}
	return deleted, nil
}

// requireLiveOwner fails with ErrOwnerNotFound or ErrOwnerDeleted.
func requireLiveOwner(ctx context.Context, q sqlx.ExtContext, table, id string) error {
	deleted, err := requireOwner(ctx, q, table, id)
	if err != nil {
		return err
	}
	if deleted {
		return fmt.Errorf("%s: %w", id, ErrOwnerDeleted)
	}
	return nil
}

var auditColumns = []string{"created_by", "created_on", "is_deleted", "row_version"}

func (a Audit) insertArgs() []interface{} {
	return []interface{}{a.CreatedBy, a.CreatedOn, a.IsDeleted, a.RowVersion}
}

// insertRow inserts one row; cols and args are matched positionally.
func insertRow(ctx context.Context, q sqlx.ExtContext, table string, cols []string, args ...interface{}) error {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), marks)
	if _, err := execQuery(ctx, q, query, args...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

// lockWhere takes row locks on the rows of table matching where without changing
// them. It must run before the reads it guards.
func lockWhere(ctx context.Context, q sqlx.ExtContext, table, where string, args ...interface{}) error {
	query := fmt.Sprintf("UPDATE %s SET row_version = row_version WHERE %s", table, where)
	if _, err := execIn(ctx, q, query, args...); err != nil {
		return fmt.Errorf("failed to lock %s: %w", table, err)
	}
	return nil
}

// lockOwner locks the owner row and then checks that it is live, so writes to an
// owner's children serialize with each other and with SoftDelete.
func lockOwner(ctx context.Context, q sqlx.ExtContext, table, id string) error {
	if err := lockWhere(ctx, q, table, "id = ?", id); err != nil {
		return err
	}
	return requireLiveOwner(ctx, q, table, id)
}

// touchOwner bumps the owner's row version so that concurrent invariant-preserving
// writes to the owner's children serialize on the owner row.
func touchOwner(ctx context.Context, q sqlx.ExtContext, table, id string) error {
	_, err := execQuery(ctx, q, fmt.Sprintf("UPDATE %s SET row_version = row_version + 1 WHERE id = ?", table), id)
	if err != nil {
		return fmt.Errorf("failed to lock owner %s: %w", id, err)
	}
	return nil
}

// conflictOrMissing explains why a row-version guarded update matched no rows.
func conflictOrMissing(ctx context.Context, q sqlx.ExtContext, table, id string) error {
	if err := requireLive(ctx, q, table, id); err != nil {
		return err
	}
	return fmt.Errorf("%s %s: %w", table, id, ErrConcurrencyConflict)
}

// casUpdate applies set (a comma separated list of "col = ?") to a live row whose
// row_version still equals rowVersion, stamping modification columns.
func casUpdate(ctx context.Context, q sqlx.ExtContext, st stamp, table, id string, rowVersion int64, set string, args ...interface{}) error {
	query := fmt.Sprintf(
		"UPDATE %s SET %s, last_modified_by = ?, last_modified_on = ?, row_version = row_version + 1 WHERE id = ? AND row_version = ? AND is_deleted = FALSE",
		table, set)
	args = append(args, st.actor, st.now, id, rowVersion)
	n, err := execQuery(ctx, q, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", table, id, err)
	}
	if n == 0 {
		return conflictOrMissing(ctx, q, table, id)
	}
	return nil
}

// softDeleteWhere marks the live rows of table matching where as deleted.
func softDeleteWhere(ctx context.Context, q sqlx.ExtContext, st stamp, table, where string, args ...interface{}) (int64, error) {
	query := fmt.Sprintf(
		"UPDATE %s SET is_deleted = TRUE, deleted_on = ?, last_modified_by = ?, last_modified_on = ?, row_version = row_version + 1 WHERE is_deleted = FALSE AND %s",
		table, where)
	n, err := execIn(ctx, q, query, append([]interface{}{st.now, st.actor, st.now}, args...)...)
	if err != nil {
		return 0, fmt.Errorf("failed to soft-delete from %s: %w", table, err)
	}
	return n, nil
}

// restoreWhere clears the deletion flag of rows deleted at deletedOn matching where.
// Restores are not stamped as modifications.
func restoreWhere(ctx context.Context, q sqlx.ExtContext, table string, deletedOn time.Time, where string, args ...interface{}) (int64, error) {
	query := fmt.Sprintf(
		"UPDATE %s SET is_deleted = FALSE, deleted_on = NULL, row_version = row_version + 1 WHERE is_deleted = TRUE AND deleted_on = ? AND %s",
		table, where)
	n, err := execIn(ctx, q, query, append([]interface{}{deletedOn}, args...)...)
	if err != nil {
		return 0, fmt.Errorf("failed to restore rows of %s: %w", table, err)
	}
	return n, nil
}
