package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// AttachmentRepository handles the ordered links between owners of type E and
// shared media of type M.
type AttachmentRepository[E Owner, M MediaType] struct {
	DB     *sqlx.DB
	now    func() time.Time
	kind   MediaKind
	owners string
	table  string
}

// NewAttachmentRepository creates a new AttachmentRepository.
func NewAttachmentRepository[E Owner, M MediaType](db *sqlx.DB) *AttachmentRepository[E, M] {
	var m M
	t := tablesFor[E]()
	return &AttachmentRepository[E, M]{
		DB:     db,
		now:    utcNow,
		kind:   m.MediaKind(),
		owners: t.Owners,
		table:  t.Attachments(m.MediaKind()),
	}
}

// Kind returns the media kind this repository attaches.
func (r *AttachmentRepository[E, M]) Kind() MediaKind { return r.kind }

// selectColumns lists the attachment columns under alias a, exposing the media
// foreign key as media_id.
func (r *AttachmentRepository[E, M]) selectColumns() string {
	cols := []string{"a.id", "a.entity_id", "a." + r.kind.Column() + " AS media_id", "a.sort_order", "a.selector",
		"a.created_by", "a.created_on", "a.last_modified_by", "a.last_modified_on", "a.is_deleted", "a.deleted_on", "a.row_version"}
	return strings.Join(cols, ", ")
}

// Attach links a live media row to a live owner at the given position.
func (r *AttachmentRepository[E, M]) Attach(ctx context.Context, owner OwnerID[E], mediaID string, order int, selector *string) (*Attachment, error) {
	if err := owner.check(); err != nil {
		return nil, err
	}
	st := newStamp(ctx, r.now)
	a := &Attachment{
		ID:       uuid.NewString(),
		EntityID: string(owner),
		MediaID:  mediaID,
		Order:    order,
		Selector: selector,
		Audit:    st.audit(),
	}

	err := withTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		if err := lockOwner(ctx, tx, r.owners, string(owner)); err != nil {
			return err
		}
		if err := requireLive(ctx, tx, r.kind.Table(), mediaID); err != nil {
			return err
		}

		var n int
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE entity_id = ? AND %s = ? AND is_deleted = FALSE", r.table, r.kind.Column())
		if err := getRow(ctx, tx, &n, query, string(owner), mediaID); err != nil {
			return fmt.Errorf("failed to check attachment of %s %s: %w", r.kind, mediaID, err)
		}
		if n > 0 {
			return fmt.Errorf("%s %s on %s: %w", r.kind, mediaID, owner, ErrDuplicateAttachment)
		}

		cols := append([]string{"id", "entity_id", r.kind.Column(), "sort_order", "selector"}, auditColumns...)
		args := append([]interface{}{a.ID, a.EntityID, a.MediaID, a.Order, a.Selector}, a.Audit.insertArgs()...)
		return insertRow(ctx, tx, r.table, cols, args...)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Reorder assigns positions 0..n-1 to the owner's live attachments in the given
// order. ids must list every live attachment of the owner exactly once.
func (r *AttachmentRepository[E, M]) Reorder(ctx context.Context, owner OwnerID[E], ids []string) error {
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

		var live []string
		query := fmt.Sprintf(
			"SELECT a.id FROM %s a JOIN %s m ON m.id = a.%s WHERE a.entity_id = ? AND a.is_deleted = FALSE AND m.is_deleted = FALSE",
			r.table, r.kind.Table(), r.kind.Column())
		if err := selectRows(ctx, tx, &live, query, string(owner)); err != nil {
			return fmt.Errorf("failed to load attachments of %s: %w", owner, err)
		}
		if !sameSet(live, ids) {
			return fmt.Errorf("%d ids given for %d attachments of %s: %w", len(ids), len(live), owner, ErrIncompleteOrderSet)
		}

		update := fmt.Sprintf(
			"UPDATE %s SET sort_order = ?, last_modified_by = ?, last_modified_on = ?, row_version = row_version + 1 WHERE id = ?",
			r.table)
		for i, id := range ids {
			if _, err := execQuery(ctx, tx, update, i, st.actor, st.now, id); err != nil {
				return fmt.Errorf("failed to reorder attachment %s: %w", id, err)
			}
		}
		return nil
	})
}

// sameSet reports whether ids is a permutation of want.
func sameSet(want, ids []string) bool {
	if len(want) != len(ids) {
		return false
	}
	pending := make(map[string]bool, len(want))
	for _, id := range want {
		pending[id] = true
	}
	for _, id := range ids {
		if !pending[id] {
			return false
		}
		delete(pending, id)
	}
	return len(pending) == 0
}

// Detach soft-deletes one attachment. The media row is left alone.
func (r *AttachmentRepository[E, M]) Detach(ctx context.Context, id string) error {
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

// List retrieves the owner's attachments in display order with their media.
// Attachments whose media row is deleted are never returned.
func (r *AttachmentRepository[E, M]) List(ctx context.Context, owner OwnerID[E], includeDeleted bool) ([]*Attachment, error) {
	return r.list(ctx, owner, includeDeleted, "")
}

// ListBySelector retrieves the owner's live attachments tagged with selector.
func (r *AttachmentRepository[E, M]) ListBySelector(ctx context.Context, owner OwnerID[E], selector string) ([]*Attachment, error) {
	return r.list(ctx, owner, false, " AND a.selector = ?", selector)
}

func (r *AttachmentRepository[E, M]) list(ctx context.Context, owner OwnerID[E], includeDeleted bool, where string, args ...interface{}) ([]*Attachment, error) {
	if err := owner.check(); err != nil {
		return nil, err
	}
	if _, err := requireOwner(ctx, r.DB, r.owners, string(owner)); err != nil {
		return nil, err
	}

	filter := ""
	if !includeDeleted {
		filter = " AND a.is_deleted = FALSE"
	}
	query := fmt.Sprintf(
		"SELECT %s FROM %s a JOIN %s m ON m.id = a.%s WHERE a.entity_id = ? AND m.is_deleted = FALSE%s%s ORDER BY a.sort_order, a.created_on",
		r.selectColumns(), r.table, r.kind.Table(), r.kind.Column(), filter, where)

	var attachments []*Attachment
	if err := selectRows(ctx, r.DB, &attachments, query, append([]interface{}{string(owner)}, args...)...); err != nil {
		return nil, fmt.Errorf("failed to list %s of %s: %w", r.table, owner, err)
	}
	if len(attachments) == 0 {
		return attachments, nil
	}

	mediaIDs := make([]string, 0, len(attachments))
	for _, a := range attachments {
		mediaIDs = append(mediaIDs, a.MediaID)
	}
	inQuery, inArgs, err := sqlx.In(fmt.Sprintf("SELECT * FROM %s WHERE id IN (?)", r.kind.Table()), mediaIDs)
	if err != nil {
		return nil, err
	}
	var media []*Media
	if err := selectRows(ctx, r.DB, &media, inQuery, inArgs...); err != nil {
		return nil, fmt.Errorf("failed to load %s for %s: %w", r.kind.Table(), owner, err)
	}
	byID := make(map[string]*Media, len(media))
	for _, m := range media {
		m.Kind = r.kind
		byID[m.ID] = m
	}
	for _, a := range attachments {
		a.Media = byID[a.MediaID]
	}
	return attachments, nil
}
