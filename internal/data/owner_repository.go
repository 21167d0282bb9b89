package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// OwnerRepository handles database operations for owning entities of type E.
type OwnerRepository[E Owner] struct {
	DB  *sqlx.DB
	now func() time.Time
	t   ownerTables
}

// NewOwnerRepository creates a new OwnerRepository.
func NewOwnerRepository[E Owner](db *sqlx.DB) *OwnerRepository[E] {
	return &OwnerRepository[E]{DB: db, now: utcNow, t: tablesFor[E]()}
}

// Create inserts a new owner and returns it.
func (r *OwnerRepository[E]) Create(ctx context.Context, displayName string) (*OwnerRecord[E], error) {
	st := newStamp(ctx, r.now)
	owner := &OwnerRecord[E]{
		ID:          OwnerID[E](newTaggedID[E]()),
		DisplayName: displayName,
		Audit:       st.audit(),
	}
	cols := append([]string{"id", "display_name"}, auditColumns...)
	args := append([]interface{}{string(owner.ID), owner.DisplayName}, owner.Audit.insertArgs()...)
	if err := insertRow(ctx, r.DB, r.t.Owners, cols, args...); err != nil {
		return nil, err
	}
	return owner, nil
}

// Get finds an owner by its ID. A deleted owner yields ErrOwnerDeleted unless
// includeDeleted is set.
func (r *OwnerRepository[E]) Get(ctx context.Context, id OwnerID[E], includeDeleted bool) (*OwnerRecord[E], error) {
	if err := id.check(); err != nil {
		return nil, err
	}
	var owner OwnerRecord[E]
	err := getRow(ctx, r.DB, &owner, fmt.Sprintf("SELECT * FROM %s WHERE id = ?", r.t.Owners), string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrOwnerNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get owner %s: %w", id, err)
	}
	if owner.IsDeleted && !includeDeleted {
		return nil, fmt.Errorf("%s: %w", id, ErrOwnerDeleted)
	}
	return &owner, nil
}

// List retrieves all owners ordered by display name.
func (r *OwnerRepository[E]) List(ctx context.Context, includeDeleted bool) ([]*OwnerRecord[E], error) {
	var owners []*OwnerRecord[E]
	query := fmt.Sprintf("SELECT * FROM %s WHERE 1 = 1%s ORDER BY display_name, created_on", r.t.Owners, deletedFilter(includeDeleted))
	if err := selectRows(ctx, r.DB, &owners, query); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.t.Owners, err)
	}
	return owners, nil
}

// Rename changes the display name of a live owner read at rowVersion.
func (r *OwnerRepository[E]) Rename(ctx context.Context, id OwnerID[E], displayName string, rowVersion int64) (*OwnerRecord[E], error) {
	if err := id.check(); err != nil {
		return nil, err
	}
	st := newStamp(ctx, r.now)
	err := casUpdate(ctx, r.DB, st, r.t.Owners, string(id), rowVersion, "display_name = ?", displayName)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", id, ErrOwnerNotFound)
	}
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id, false)
}

// SoftDelete marks the owner deleted together with every live row that hangs off
// it. All rows share the owner's deleted_on so that Restore can find them again.
func (r *OwnerRepository[E]) SoftDelete(ctx context.Context, id OwnerID[E]) error {
	if err := id.check(); err != nil {
		return err
	}
	st := newStamp(ctx, r.now)
	return withTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		if err := lockOwner(ctx, tx, r.t.Owners, string(id)); err != nil {
			return err
		}
		if _, err := softDeleteWhere(ctx, tx, st, r.t.Owners, "id = ?", string(id)); err != nil {
			return err
		}
		for _, table := range r.t.dependents() {
			if _, err := softDeleteWhere(ctx, tx, st, table, "entity_id = ?", string(id)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Restore revives a deleted owner and the rows deleted along with it. Rows that
// were removed individually before the owner was deleted stay deleted, as do
// memberships of deleted categories and attachments of deleted media.
func (r *OwnerRepository[E]) Restore(ctx context.Context, id OwnerID[E]) error {
	if err := id.check(); err != nil {
		return err
	}
	return withTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		if err := lockWhere(ctx, tx, r.t.Owners, "id = ?", string(id)); err != nil {
			return err
		}
		var owner OwnerRecord[E]
		err := getRow(ctx, tx, &owner, fmt.Sprintf("SELECT * FROM %s WHERE id = ?", r.t.Owners), string(id))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", id, ErrOwnerNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get owner %s: %w", id, err)
		}
		if !owner.IsDeleted || owner.DeletedOn == nil {
			return nil
		}
		deletedOn := *owner.DeletedOn

		for table, where := range r.t.restoreFilters() {
			if _, err := restoreWhere(ctx, tx, table, deletedOn, where, string(id)); err != nil {
				return err
			}
		}
		_, err = restoreWhere(ctx, tx, r.t.Owners, deletedOn, "id = ?", string(id))
		return err
	})
}
