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

// MetadataRepository handles key/value pairs owned by entities of type E.
type MetadataRepository[E Owner] struct {
	DB  *sqlx.DB
	now func() time.Time
	t   ownerTables
}

// NewMetadataRepository creates a new MetadataRepository.
func NewMetadataRepository[E Owner](db *sqlx.DB) *MetadataRepository[E] {
	return &MetadataRepository[E]{DB: db, now: utcNow, t: tablesFor[E]()}
}

// Set stores value under key for the owner, reviving a removed pair.
func (r *MetadataRepository[E]) Set(ctx context.Context, owner OwnerID[E], key, value string) (*Metadata, error) {
	if err := owner.check(); err != nil {
		return nil, err
	}
	st := newStamp(ctx, r.now)
	err := withTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		if err := lockOwner(ctx, tx, r.t.Owners, string(owner)); err != nil {
			return err
		}

		var id string
		err := getRow(ctx, tx, &id, fmt.Sprintf("SELECT id FROM %s WHERE entity_id = ? AND meta_key = ?", r.t.Metadata), string(owner), key)
		if errors.Is(err, sql.ErrNoRows) {
			cols := append([]string{"id", "entity_id", "meta_key", "meta_value"}, auditColumns...)
			args := append([]interface{}{uuid.NewString(), string(owner), key, value}, st.audit().insertArgs()...)
			return insertRow(ctx, tx, r.t.Metadata, cols, args...)
		}
		if err != nil {
			return fmt.Errorf("failed to load metadata %s of %s: %w", key, owner, err)
		}

		_, err = execQuery(ctx, tx, fmt.Sprintf(
			"UPDATE %s SET meta_value = ?, is_deleted = FALSE, deleted_on = NULL, last_modified_by = ?, last_modified_on = ?, row_version = row_version + 1 WHERE id = ?",
			r.t.Metadata), value, st.actor, st.now, id)
		if err != nil {
			return fmt.Errorf("failed to update metadata %s of %s: %w", key, owner, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, owner, key)
}

// Get returns the live pair stored under key.
func (r *MetadataRepository[E]) Get(ctx context.Context, owner OwnerID[E], key string) (*Metadata, error) {
	if err := owner.check(); err != nil {
		return nil, err
	}
	var m Metadata
	query := fmt.Sprintf("SELECT * FROM %s WHERE entity_id = ? AND meta_key = ? AND is_deleted = FALSE", r.t.Metadata)
	err := getRow(ctx, r.DB, &m, query, string(owner), key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("metadata %s of %s: %w", key, owner, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata %s of %s: %w", key, owner, err)
	}
	return &m, nil
}

// List retrieves the owner's pairs ordered by key.
func (r *MetadataRepository[E]) List(ctx context.Context, owner OwnerID[E], includeDeleted bool) ([]*Metadata, error) {
	if err := owner.check(); err != nil {
		return nil, err
	}
	if _, err := requireOwner(ctx, r.DB, r.t.Owners, string(owner)); err != nil {
		return nil, err
	}
	var pairs []*Metadata
	query := fmt.Sprintf("SELECT * FROM %s WHERE entity_id = ?%s ORDER BY meta_key", r.t.Metadata, deletedFilter(includeDeleted))
	if err := selectRows(ctx, r.DB, &pairs, query, string(owner)); err != nil {
		return nil, fmt.Errorf("failed to list metadata of %s: %w", owner, err)
	}
	return pairs, nil
}

// Remove soft-deletes the pair stored under key.
func (r *MetadataRepository[E]) Remove(ctx context.Context, owner OwnerID[E], key string) error {
	if err := owner.check(); err != nil {
		return err
	}
	st := newStamp(ctx, r.now)
	n, err := softDeleteWhere(ctx, r.DB, st, r.t.Metadata, "entity_id = ? AND meta_key = ?", string(owner), key)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("metadata %s of %s: %w", key, owner, ErrNotFound)
	}
	return nil
}
