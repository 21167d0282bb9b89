package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go-school-admin/internal/data"
)

// MediaRepository defines the interface for the shared media tables.
type MediaRepository interface {
	Create(ctx context.Context, kind data.MediaKind, fm data.FileMetadata) (*data.Media, error)
	Get(ctx context.Context, kind data.MediaKind, id string, includeDeleted bool) (*data.Media, error)
	List(ctx context.Context, kind data.MediaKind, includeDeleted bool) ([]*data.Media, error)
	Delete(ctx context.Context, kind data.MediaKind, id string) error
}

var _ MediaRepository = (*data.MediaRepository)(nil)

// MediaService provides business logic for shared media metadata. File bytes
// are stored elsewhere; only their description is kept here.
type MediaService struct {
	repo MediaRepository
}

// NewMediaService creates a new MediaService.
func NewMediaService(repo MediaRepository) *MediaService {
	return &MediaService{repo: repo}
}

func checkKind(kind data.MediaKind) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown media kind %q: %w", kind, ErrInvalidInput)
	}
	return nil
}

// Create validates and stores file metadata.
func (s *MediaService) Create(ctx context.Context, kind data.MediaKind, fm data.FileMetadata) (_ *data.Media, err error) {
	ctx, span := startSpan(ctx, "MediaService.Create", "shared")
	defer func() { endSpan(span, err) }()

	if err := checkKind(kind); err != nil {
		return nil, err
	}
	fm.FileName = path.Base(strings.TrimSpace(fm.FileName))
	if fm.FileName == "" || fm.FileName == "." || fm.FileName == "/" {
		return nil, fmt.Errorf("file name is required: %w", ErrInvalidInput)
	}
	if fm.Size < 0 {
		return nil, fmt.Errorf("negative size: %w", ErrInvalidInput)
	}
	rel := path.Clean("/" + strings.TrimSpace(fm.RelativePath))
	if strings.Contains(fm.RelativePath, "..") {
		return nil, fmt.Errorf("relative path must stay inside the media root: %w", ErrInvalidInput)
	}
	fm.RelativePath = strings.TrimPrefix(rel, "/")
	fm.DisplayName = CleanText(fm.DisplayName)
	if fm.DisplayName == "" {
		fm.DisplayName = fm.FileName
	}
	fm.ContentType = strings.TrimSpace(fm.ContentType)
	if kind != data.KindImage {
		fm.Featured, fm.ImageType = false, ""
	}
	fm.ImageType = CleanText(fm.ImageType)
	return s.repo.Create(ctx, kind, fm)
}

// Get returns one live media row.
func (s *MediaService) Get(ctx context.Context, kind data.MediaKind, id string) (*data.Media, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, kind, id, false)
}

// List returns the media rows of kind.
func (s *MediaService) List(ctx context.Context, kind data.MediaKind, includeDeleted bool) ([]*data.Media, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, kind, includeDeleted)
}

// Delete soft-deletes a media row that no owner still uses.
func (s *MediaService) Delete(ctx context.Context, kind data.MediaKind, id string) (err error) {
	ctx, span := startSpan(ctx, "MediaService.Delete", "shared")
	defer func() { endSpan(span, err) }()

	if err := checkKind(kind); err != nil {
		return err
	}
	return s.repo.Delete(ctx, kind, id)
}
