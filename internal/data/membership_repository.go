package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// MembershipRepository handles the links between owners of type E and the
// categories of their own tree.
type MembershipRepository[E Owner] struct {
	DB  *sqlx.DB
	now func() time.Time
	t   ownerTables
}

// NewMembershipRepository creates a new MembershipRepository.
func NewMembershipRepository[E Owner](db *sqlx.DB) *MembershipRepository[E] {
	return &MembershipRepository[E]{DB: db, now: utcNow, t: tablesFor[E]()}
}

// Add puts the owner into a category. A pair removed earlier is revived.
func (r *MembershipRepository[E]) Add(ctx context.Context, owner OwnerID[E], category CategoryID[E]) (*Membership[E], error) {
	if err := owner.check(); err != nil {
		return nil, err
	}
	if err := category.check(); err != nil {
		return nil, err
	}
	st := newStamp(ctx, r.now)

	var id string
	err := withTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		if err := lockOwner(ctx, tx, r.t.Owners, string(owner)); err != nil {
			return err
		}
		if err := lockWhere(ctx, tx, r.t.Categories, "id = ?", string(category)); err != nil {
			return err
		}
		if err := requireLive(ctx, tx, r.t.Categories, string(category)); err != nil {
			return err
		}

		var existing struct {
			ID        string `db:"id"`
			IsDeleted bool   `db:"is_deleted"`
		}
		err := getRow(ctx, tx, &existing, fmt.Sprintf(
			"SELECT id, is_deleted FROM %s WHERE entity_id = ? AND category_id = ?", r.t.Members), string(owner), string(category))
		switch {
		case errors.Is(err, sql.ErrNoRows):
			id = uuid.NewString()
			cols := append([]string{"id", "entity_id", "category_id"}, auditColumns...)
			args := append([]interface{}{id, string(owner), string(category)}, st.audit().insertArgs()...)
			return insertRow(ctx, tx, r.t.Members, cols, args...)
		case err != nil:
			return fmt.Errorf("failed to load membership of %s in %s: %w", owner, category, err)
		case !existing.IsDeleted:
			return fmt.Errorf("%s in %s: %w", owner, category, ErrDuplicateMembership)
		}

		id = existing.ID
		_, err = execQuery(ctx, tx, fmt.Sprintf(
			"UPDATE %s SET is_deleted = FALSE, deleted_on = NULL, last_modified_by = ?, last_modified_on = ?, row_version = row_version + 1 WHERE id = ?",
			r.t.Members), st.actor, st.now, id)
		if err != nil {
			return fmt.Errorf("failed to revive membership %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var m Membership[E]
	if err := getRow(ctx, r.DB, &m, fmt.Sprintf("SELECT * FROM %s WHERE id = ?", r.t.Members), id); err != nil {
		return nil, fmt.Errorf("failed to reload membership %s: %w", id, err)
	}
	return &m, nil
}

// Remove takes the owner out of a category.
func (r *MembershipRepository[E]) Remove(ctx context.Context, owner OwnerID[E], category CategoryID[E]) error {
	if err := owner.check(); err != nil {
		return err
	}
	if err := category.check(); err != nil {
		return err
	}
	st := newStamp(ctx, r.now)
	n, err := softDeleteWhere(ctx, r.DB, st, r.t.Members, "entity_id = ? AND category_id = ?", string(owner), string(category))
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("membership of %s in %s: %w", owner, category, ErrNotFound)
	}
	return nil
}

// ListCategories retrieves the categories the owner belongs to, ordered by name.
func (r *MembershipRepository[E]) ListCategories(ctx context.Context, owner OwnerID[E], includeDeleted bool) ([]*Category[E], error) {
	if err := owner.check(); err != nil {
		return nil, err
	}
	if _, err := requireOwner(ctx, r.DB, r.t.Owners, string(owner)); err != nil {
		return nil, err
	}
	filter := ""
	if !includeDeleted {
		filter = " AND m.is_deleted = FALSE AND c.is_deleted = FALSE"
	}
	var categories []*Category[E]
	query := fmt.Sprintf("SELECT c.* FROM %s c JOIN %s m ON m.category_id = c.id WHERE m.entity_id = ?%s ORDER BY c.name",
		r.t.Categories, r.t.Members, filter)
	if err := selectRows(ctx, r.DB, &categories, query, string(owner)); err != nil {
		return nil, fmt.Errorf("failed to list categories of %s: %w", owner, err)
	}
	return categories, nil
}

// ListMembers retrieves the owners in a category, ordered by display name.
func (r *MembershipRepository[E]) ListMembers(ctx context.Context, category CategoryID[E], includeDeleted bool) ([]*OwnerRecord[E], error) {
	if err := category.check(); err != nil {
		return nil, err
	}
	if _, err := rowState(ctx, r.DB, r.t.Categories, string(category)); err != nil {
		return nil, err
	}
	filter := ""
	if !includeDeleted {
		filter = " AND m.is_deleted = FALSE AND o.is_deleted = FALSE"
	}
	var owners []*OwnerRecord[E]
	query := fmt.Sprintf("SELECT o.* FROM %s o JOIN %s m ON m.entity_id = o.id WHERE m.category_id = ?%s ORDER BY o.display_name",
		r.t.Owners, r.t.Members, filter)
	if err := selectRows(ctx, r.DB, &owners, query, string(category)); err != nil {
		return nil, fmt.Errorf("failed to list members of %s: %w", category, err)
	}
	return owners, nil
}
