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

// MediaRepository handles the shared document, image and video tables.
// Media rows are shared across owner types and are never owned by one entity.
type MediaRepository struct {
	DB         *sqlx.DB
	now        func() time.Time
	ownerTypes []string
}

// NewMediaRepository creates a new MediaRepository. ownerTypes lists the owner
// types whose attachment tables are consulted before a delete; it defaults to
// OwnerTypes().
func NewMediaRepository(db *sqlx.DB, ownerTypes ...string) *MediaRepository {
	if len(ownerTypes) == 0 {
		ownerTypes = OwnerTypes()
	}
	return &MediaRepository{DB: db, now: utcNow, ownerTypes: ownerTypes}
}

func checkKind(kind MediaKind) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown media kind %q", kind)
	}
	return nil
}

// Create stores the metadata of a new media file.
func (r *MediaRepository) Create(ctx context.Context, kind MediaKind, fm FileMetadata) (*Media, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	st := newStamp(ctx, r.now)
	m := &Media{
		ID:           uuid.NewString(),
		Kind:         kind,
		DisplayName:  fm.DisplayName,
		FileName:     fm.FileName,
		ContentType:  fm.ContentType,
		Size:         fm.Size,
		RelativePath: fm.RelativePath,
		Audit:        st.audit(),
	}

	cols := []string{"id", "display_name", "file_name", "content_type", "size", "relative_path"}
	args := []interface{}{m.ID, m.DisplayName, m.FileName, m.ContentType, m.Size, m.RelativePath}
	if kind == KindImage {
		m.Featured, m.ImageType = fm.Featured, fm.ImageType
		cols = append(cols, "featured", "image_type")
		args = append(args, m.Featured, m.ImageType)
	}
	cols = append(cols, auditColumns...)
	args = append(args, m.Audit.insertArgs()...)

	if err := insertRow(ctx, r.DB, kind.Table(), cols, args...); err != nil {
		return nil, err
	}
	return m, nil
}

// Get finds a media row by its ID.
func (r *MediaRepository) Get(ctx context.Context, kind MediaKind, id string, includeDeleted bool) (*Media, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	var m Media
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = ?%s", kind.Table(), deletedFilter(includeDeleted))
	err := getRow(ctx, r.DB, &m, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %w", kind, id, err)
	}
	m.Kind = kind
	return &m, nil
}

// List retrieves every media row of kind, most recent first.
func (r *MediaRepository) List(ctx context.Context, kind MediaKind, includeDeleted bool) ([]*Media, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	var media []*Media
	query := fmt.Sprintf("SELECT * FROM %s WHERE 1 = 1%s ORDER BY created_on DESC", kind.Table(), deletedFilter(includeDeleted))
	if err := selectRows(ctx, r.DB, &media, query); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind.Table(), err)
	}
	for _, m := range media {
		m.Kind = kind
	}
	return media, nil
}

// Delete soft-deletes a media row. It fails with ErrMediaInUse while a live
// attachment of any owner type still references it.
func (r *MediaRepository) Delete(ctx context.Context, kind MediaKind, id string) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	st := newStamp(ctx, r.now)
	return withTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		if err := requireLive(ctx, tx, kind.Table(), id); err != nil {
			return err
		}
		for _, ownerType := range r.ownerTypes {
			table := tablesOf(ownerType).Attachments(kind)
			var n int
			query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ? AND is_deleted = FALSE", table, kind.Column())
			if err := getRow(ctx, tx, &n, query, id); err != nil {
				return fmt.Errorf("failed to count attachments in %s: %w", table, err)
			}
			if n > 0 {
				return fmt.Errorf("%s %s is attached %d times in %s: %w", kind, id, n, table, ErrMediaInUse)
			}
		}
		_, err := softDeleteWhere(ctx, tx, st, kind.Table(), "id = ?", id)
		return err
	})
}
