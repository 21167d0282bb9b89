package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/reflectx"
)

// fieldMapper resolves db tags the same way sqlx does when scanning.
var fieldMapper = reflectx.NewMapperFunc("db", strings.ToLower)

// subRecordSpec describes the table and kind-specific columns of a sub-record.
type subRecordSpec struct {
	suffix  string
	columns []string
}

type subRecordKind interface {
	subRecordSpec() subRecordSpec
}

type subRecordPtr[R any] interface {
	*R
	Base() *SubRecord
}

// SubRecordRepository handles database operations for the sub-records of kind R
// owned by entities of type E. At most one live record per owner is the default.
type SubRecordRepository[E Owner, R subRecordKind, PR subRecordPtr[R]] struct {
	DB      *sqlx.DB
	now     func() time.Time
	owners  string
	table   string
	columns []string
}

// NewSubRecordRepository creates a new SubRecordRepository.
func NewSubRecordRepository[E Owner, R subRecordKind, PR subRecordPtr[R]](db *sqlx.DB) *SubRecordRepository[E, R, PR] {
	var kind R
	spec := kind.subRecordSpec()
	t := tablesFor[E]()
	return &SubRecordRepository[E, R, PR]{
		DB:      db,
		now:     utcNow,
		owners:  t.Owners,
		table:   t.prefix + "_" + spec.suffix,
		columns: spec.columns,
	}
}

// values returns the kind-specific column values of rec in column order.
func (r *SubRecordRepository[E, R, PR]) values(rec PR) ([]interface{}, error) {
	m := fieldMapper.FieldMap(reflect.ValueOf(rec))
	out := make([]interface{}, 0, len(r.columns))
	for _, col := range r.columns {
		v, ok := m[col]
		if !ok {
			return nil, fmt.Errorf("%s has no column %s", r.table, col)
		}
		out = append(out, v.Interface())
	}
	return out, nil
}

// clearDefaults unsets the default flag on the owner's live records except keep.
func (r *SubRecordRepository[E, R, PR]) clearDefaults(ctx context.Context, q sqlx.ExtContext, st stamp, owner, keep string) error {
	_, err := execQuery(ctx, q, fmt.Sprintf(
		"UPDATE %s SET is_default = FALSE, last_modified_by = ?, last_modified_on = ?, row_version = row_version + 1 WHERE entity_id = ? AND id <> ? AND is_default = TRUE AND is_deleted = FALSE",
		r.table), st.actor, st.now, owner, keep)
	if err != nil {
		return fmt.Errorf("failed to clear defaults of %s: %w", owner, err)
	}
	return nil
}

// Attach adds rec to the owner. If rec is the default, the previous default is
// cleared in the same transaction.
func (r *SubRecordRepository[E, R, PR]) Attach(ctx context.Context, owner OwnerID[E], rec PR) error {
	if err := owner.check(); err != nil {
		return err
	}
	values, err := r.values(rec)
	if err != nil {
		return err
	}
	st := newStamp(ctx, r.now)
	base := rec.Base()
	id := uuid.NewString()

	err = withTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		if err := lockOwner(ctx, tx, r.owners, string(owner)); err != nil {
			if errors.Is(err, ErrOwnerDeleted) {
				return fmt.Errorf("%w: %w", ErrOwnerNotFound, err)
			}
			return err
		}
		if base.Default {
			if err := touchOwner(ctx, tx, r.owners, string(owner)); err != nil {
				return err
			}
			if err := r.clearDefaults(ctx, tx, st, string(owner), id); err != nil {
				return err
			}
		}
		cols := append(append([]string{"id", "entity_id", "is_default"}, r.columns...), auditColumns...)
		args := append([]interface{}{id, string(owner), base.Default}, values...)
		args = append(args, st.audit().insertArgs()...)
		return insertRow(ctx, tx, r.table, cols, args...)
	})
	if err != nil {
		return err
	}

	base.ID = id
	base.EntityID = string(owner)
	base.Audit = st.audit()
	return nil
}

// Get finds a sub-record by its ID.
func (r *SubRecordRepository[E, R, PR]) Get(ctx context.Context, id string, includeDeleted bool) (PR, error) {
	var rec R
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = ?%s", r.table, deletedFilter(includeDeleted))
	err := getRow(ctx, r.DB, &rec, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", r.table, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %w", r.table, id, err)
	}
	return PR(&rec), nil
}

// List retrieves the owner's sub-records, default first.
func (r *SubRecordRepository[E, R, PR]) List(ctx context.Context, owner OwnerID[E], includeDeleted bool) ([]R, error) {
	if err := owner.check(); err != nil {
		return nil, err
	}
	if _, err := requireOwner(ctx, r.DB, r.owners, string(owner)); err != nil {
		return nil, err
	}
	var recs []R
	query := fmt.Sprintf("SELECT * FROM %s WHERE entity_id = ?%s ORDER BY is_default DESC, created_on", r.table, deletedFilter(includeDeleted))
	if err := selectRows(ctx, r.DB, &recs, query, string(owner)); err != nil {
		return nil, fmt.Errorf("failed to list %s of %s: %w", r.table, owner, err)
	}
	return recs, nil
}

// Default returns the owner's live default record, or ErrNotFound if none is set.
func (r *SubRecordRepository[E, R, PR]) Default(ctx context.Context, owner OwnerID[E]) (PR, error) {
	if err := owner.check(); err != nil {
		return nil, err
	}
	var rec R
	query := fmt.Sprintf("SELECT * FROM %s WHERE entity_id = ? AND is_default = TRUE AND is_deleted = FALSE", r.table)
	err := getRow(ctx, r.DB, &rec, query, string(owner))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no default in %s for %s: %w", r.table, owner, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get default %s of %s: %w", r.table, owner, err)
	}
	return PR(&rec), nil
}

// SetDefault makes recordID the owner's only default. The owner row is bumped
// first so that concurrent calls for the same owner serialize on it.
func (r *SubRecordRepository[E, R, PR]) SetDefault(ctx context.Context, owner OwnerID[E], recordID string) error {
	if err := owner.check(); err != nil {
		return err
	}
	st := newStamp(ctx, r.now)
	return withTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		if err := lockOwner(ctx, tx, r.owners, string(owner)); err != nil {
			return err
		}
		if err := touchOwner(ctx, tx, r.owners, string(owner)); err != nil {
			return err
		}

		var target struct {
			EntityID  string `db:"entity_id"`
			Default   bool   `db:"is_default"`
			IsDeleted bool   `db:"is_deleted"`
		}
		err := getRow(ctx, tx, &target, fmt.Sprintf("SELECT entity_id, is_default, is_deleted FROM %s WHERE id = ?", r.table), recordID)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && (target.IsDeleted || target.EntityID != string(owner))) {
			return fmt.Errorf("%s %s of %s: %w", r.table, recordID, owner, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load %s %s: %w", r.table, recordID, err)
		}

		if err := r.clearDefaults(ctx, tx, st, string(owner), recordID); err != nil {
			return err
		}
		if target.Default {
			return nil
		}
		_, err = execQuery(ctx, tx, fmt.Sprintf(
			"UPDATE %s SET is_default = TRUE, last_modified_by = ?, last_modified_on = ?, row_version = row_version + 1 WHERE id = ?",
			r.table), st.actor, st.now, recordID)
		if err != nil {
			return fmt.Errorf("failed to set default %s: %w", recordID, err)
		}
		return nil
	})
}

// Update writes the kind-specific fields and default flag of rec, which must
// carry the row version it was read at. rec is reloaded on success.
func (r *SubRecordRepository[E, R, PR]) Update(ctx context.Context, rec PR) error {
	values, err := r.values(rec)
	if err != nil {
		return err
	}
	base := rec.Base()
	st := newStamp(ctx, r.now)

	err = withTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		var owner string
		err := getRow(ctx, tx, &owner, fmt.Sprintf("SELECT entity_id FROM %s WHERE id = ?", r.table), base.ID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s %s: %w", r.table, base.ID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load %s %s: %w", r.table, base.ID, err)
		}
		if base.Default {
			if err := touchOwner(ctx, tx, r.owners, owner); err != nil {
				return err
			}
		}

		set := make([]string, 0, len(r.columns)+1)
		for _, col := range r.columns {
			set = append(set, col+" = ?")
		}
		set = append(set, "is_default = ?")
		if err := casUpdate(ctx, tx, st, r.table, base.ID, base.RowVersion, strings.Join(set, ", "), append(values, base.Default)...); err != nil {
			return err
		}
		if base.Default {
			return r.clearDefaults(ctx, tx, st, owner, base.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	fresh, err := r.Get(ctx, base.ID, false)
	if err != nil {
		return err
	}
	*rec = *fresh
	return nil
}

// Detach soft-deletes one sub-record. The owner is not touched.
func (r *SubRecordRepository[E, R, PR]) Detach(ctx context.Context, id string) error {
	st := newStamp(ctx, r.now)
	n, err := softDeleteWhere(ctx, r.DB, st, r.table, "id = ?", id)
	if err != nil {
		return err
	}
	if n == 0 {
		if err := requireLive(ctx, r.DB, r.table, id); err != nil {
			return err
		}
	}
	return nil
}
