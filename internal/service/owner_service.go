package service

import (
	"context"
	"fmt"

	"go-school-admin/internal/data"
)

// OwnerRepository defines the interface for database operations on owners.
type OwnerRepository[E data.Owner] interface {
	Create(ctx context.Context, displayName string) (*data.OwnerRecord[E], error)
	Get(ctx context.Context, id data.OwnerID[E], includeDeleted bool) (*data.OwnerRecord[E], error)
	List(ctx context.Context, includeDeleted bool) ([]*data.OwnerRecord[E], error)
	Rename(ctx context.Context, id data.OwnerID[E], displayName string, rowVersion int64) (*data.OwnerRecord[E], error)
	SoftDelete(ctx context.Context, id data.OwnerID[E]) error
	Restore(ctx context.Context, id data.OwnerID[E]) error
}

// MetadataRepository defines the interface for an owner's key/value pairs.
type MetadataRepository[E data.Owner] interface {
	Set(ctx context.Context, owner data.OwnerID[E], key, value string) (*data.Metadata, error)
	Get(ctx context.Context, owner data.OwnerID[E], key string) (*data.Metadata, error)
	List(ctx context.Context, owner data.OwnerID[E], includeDeleted bool) ([]*data.Metadata, error)
	Remove(ctx context.Context, owner data.OwnerID[E], key string) error
}

// AttachmentRepository defines the interface for one kind of media attachment.
// Every data.AttachmentRepository[E, M] satisfies it whatever its media type.
type AttachmentRepository[E data.Owner] interface {
	Attach(ctx context.Context, owner data.OwnerID[E], mediaID string, order int, selector *string) (*data.Attachment, error)
	Reorder(ctx context.Context, owner data.OwnerID[E], ids []string) error
	Detach(ctx context.Context, id string) error
	List(ctx context.Context, owner data.OwnerID[E], includeDeleted bool) ([]*data.Attachment, error)
	ListBySelector(ctx context.Context, owner data.OwnerID[E], selector string) ([]*data.Attachment, error)
}

// MembershipRepository defines the interface for category memberships.
type MembershipRepository[E data.Owner] interface {
	Add(ctx context.Context, owner data.OwnerID[E], category data.CategoryID[E]) (*data.Membership[E], error)
	Remove(ctx context.Context, owner data.OwnerID[E], category data.CategoryID[E]) error
	ListCategories(ctx context.Context, owner data.OwnerID[E], includeDeleted bool) ([]*data.Category[E], error)
	ListMembers(ctx context.Context, category data.CategoryID[E], includeDeleted bool) ([]*data.OwnerRecord[E], error)
}

var (
	_ OwnerRepository[data.Event]      = (*data.OwnerRepository[data.Event])(nil)
	_ MetadataRepository[data.Event]   = (*data.MetadataRepository[data.Event])(nil)
	_ AttachmentRepository[data.Event] = (*data.AttachmentRepository[data.Event, data.Video])(nil)
	_ MembershipRepository[data.Event] = (*data.MembershipRepository[data.Event])(nil)
)

// OwnerRepositories groups the stores an OwnerService works on.
type OwnerRepositories[E data.Owner] struct {
	Owners      OwnerRepository[E]
	Metadata    MetadataRepository[E]
	Attachments map[data.MediaKind]AttachmentRepository[E]
	Memberships MembershipRepository[E]
}

// RepositoriesOf adapts a data module to OwnerRepositories.
func RepositoriesOf[E data.Owner](m *data.Module[E]) OwnerRepositories[E] {
	return OwnerRepositories[E]{
		Owners:   m.Owners,
		Metadata: m.Metadata,
		Attachments: map[data.MediaKind]AttachmentRepository[E]{
			data.KindDocument: m.Documents,
			data.KindImage:    m.Images,
			data.KindVideo:    m.Videos,
		},
		Memberships: m.Memberships,
	}
}

// OwnerService provides business logic for owners of type E and everything
// attached to them except sub-records.
type OwnerService[E data.Owner] struct {
	repos     OwnerRepositories[E]
	ownerType string
}

// NewOwnerService creates a new OwnerService.
func NewOwnerService[E data.Owner](repos OwnerRepositories[E]) *OwnerService[E] {
	var e E
	return &OwnerService[E]{repos: repos, ownerType: e.OwnerType()}
}

// OwnerType returns the owner type served.
func (s *OwnerService[E]) OwnerType() string { return s.ownerType }

func (s *OwnerService[E]) attachments(kind data.MediaKind) (AttachmentRepository[E], error) {
	repo, ok := s.repos.Attachments[kind]
	if !ok {
		return nil, fmt.Errorf("unknown media kind %q: %w", kind, ErrInvalidInput)
	}
	return repo, nil
}

// Create adds an owner with a sanitized display name.
func (s *OwnerService[E]) Create(ctx context.Context, displayName string) (_ *data.OwnerRecord[E], err error) {
	ctx, span := startSpan(ctx, "OwnerService.Create", s.ownerType)
	defer func() { endSpan(span, err) }()

	name := CleanText(displayName)
	if name == "" {
		return nil, fmt.Errorf("display name is required: %w", ErrInvalidInput)
	}
	return s.repos.Owners.Create(ctx, name)
}

// Get returns one owner.
func (s *OwnerService[E]) Get(ctx context.Context, id data.OwnerID[E], includeDeleted bool) (*data.OwnerRecord[E], error) {
	return s.repos.Owners.Get(ctx, id, includeDeleted)
}

// List returns every owner ordered by display name.
func (s *OwnerService[E]) List(ctx context.Context, includeDeleted bool) ([]*data.OwnerRecord[E], error) {
	return s.repos.Owners.List(ctx, includeDeleted)
}

// Rename changes the display name of an owner read at rowVersion.
func (s *OwnerService[E]) Rename(ctx context.Context, id data.OwnerID[E], displayName string, rowVersion int64) (_ *data.OwnerRecord[E], err error) {
	ctx, span := startSpan(ctx, "OwnerService.Rename", s.ownerType)
	defer func() { endSpan(span, err) }()

	name := CleanText(displayName)
	if name == "" {
		return nil, fmt.Errorf("display name is required: %w", ErrInvalidInput)
	}
	return s.repos.Owners.Rename(ctx, id, name, rowVersion)
}

// Delete soft-deletes an owner and everything hanging off it.
func (s *OwnerService[E]) Delete(ctx context.Context, id data.OwnerID[E]) (err error) {
	ctx, span := startSpan(ctx, "OwnerService.Delete", s.ownerType)
	defer func() { endSpan(span, err) }()
	return s.repos.Owners.SoftDelete(ctx, id)
}

// Restore revives a deleted owner.
func (s *OwnerService[E]) Restore(ctx context.Context, id data.OwnerID[E]) (err error) {
	ctx, span := startSpan(ctx, "OwnerService.Restore", s.ownerType)
	defer func() { endSpan(span, err) }()
	return s.repos.Owners.Restore(ctx, id)
}

// SetMetadata stores a sanitized value under key.
func (s *OwnerService[E]) SetMetadata(ctx context.Context, owner data.OwnerID[E], key, value string) (*data.Metadata, error) {
	k := CleanText(key)
	if k == "" {
		return nil, fmt.Errorf("metadata key is required: %w", ErrInvalidInput)
	}
	return s.repos.Metadata.Set(ctx, owner, k, CleanText(value))
}

// Metadata returns the value stored under key.
func (s *OwnerService[E]) Metadata(ctx context.Context, owner data.OwnerID[E], key string) (*data.Metadata, error) {
	return s.repos.Metadata.Get(ctx, owner, key)
}

// ListMetadata returns the owner's pairs.
func (s *OwnerService[E]) ListMetadata(ctx context.Context, owner data.OwnerID[E], includeDeleted bool) ([]*data.Metadata, error) {
	return s.repos.Metadata.List(ctx, owner, includeDeleted)
}

// RemoveMetadata deletes the pair stored under key.
func (s *OwnerService[E]) RemoveMetadata(ctx context.Context, owner data.OwnerID[E], key string) error {
	return s.repos.Metadata.Remove(ctx, owner, key)
}

// Attach links a media row of kind to the owner.
func (s *OwnerService[E]) Attach(ctx context.Context, kind data.MediaKind, owner data.OwnerID[E], mediaID string, order int, selector *string) (_ *data.Attachment, err error) {
	ctx, span := startSpan(ctx, "OwnerService.Attach", s.ownerType)
	defer func() { endSpan(span, err) }()

	repo, err := s.attachments(kind)
	if err != nil {
		return nil, err
	}
	if order < 0 {
		return nil, fmt.Errorf("negative order %d: %w", order, ErrInvalidInput)
	}
	if selector != nil {
		clean := CleanText(*selector)
		if clean == "" {
			selector = nil
		} else {
			selector = &clean
		}
	}
	return repo.Attach(ctx, owner, mediaID, order, selector)
}

// Reorder rewrites the display order of the owner's attachments of kind.
func (s *OwnerService[E]) Reorder(ctx context.Context, kind data.MediaKind, owner data.OwnerID[E], ids []string) (err error) {
	ctx, span := startSpan(ctx, "OwnerService.Reorder", s.ownerType)
	defer func() { endSpan(span, err) }()

	repo, err := s.attachments(kind)
	if err != nil {
		return err
	}
	return repo.Reorder(ctx, owner, ids)
}

// Detach removes one of the owner's attachments of kind. The media row stays.
func (s *OwnerService[E]) Detach(ctx context.Context, kind data.MediaKind, owner data.OwnerID[E], id string) (err error) {
	ctx, span := startSpan(ctx, "OwnerService.Detach", s.ownerType)
	defer func() { endSpan(span, err) }()

	repo, err := s.attachments(kind)
	if err != nil {
		return err
	}
	live, err := repo.List(ctx, owner, false)
	if err != nil {
		return err
	}
	for _, a := range live {
		if a.ID == id {
			return repo.Detach(ctx, id)
		}
	}
	return fmt.Errorf("%s attachment %s of %s: %w", kind, id, owner, data.ErrNotFound)
}

// Attachments lists the owner's attachments of kind, optionally filtered by selector.
func (s *OwnerService[E]) Attachments(ctx context.Context, kind data.MediaKind, owner data.OwnerID[E], selector string, includeDeleted bool) ([]*data.Attachment, error) {
	repo, err := s.attachments(kind)
	if err != nil {
		return nil, err
	}
	if selector != "" {
		return repo.ListBySelector(ctx, owner, selector)
	}
	return repo.List(ctx, owner, includeDeleted)
}

// AddToCategory puts the owner into a category of its own tree.
func (s *OwnerService[E]) AddToCategory(ctx context.Context, owner data.OwnerID[E], category data.CategoryID[E]) (_ *data.Membership[E], err error) {
	ctx, span := startSpan(ctx, "OwnerService.AddToCategory", s.ownerType)
	defer func() { endSpan(span, err) }()
	return s.repos.Memberships.Add(ctx, owner, category)
}

// RemoveFromCategory takes the owner out of a category.
func (s *OwnerService[E]) RemoveFromCategory(ctx context.Context, owner data.OwnerID[E], category data.CategoryID[E]) error {
	return s.repos.Memberships.Remove(ctx, owner, category)
}

// Categories lists the categories the owner belongs to.
func (s *OwnerService[E]) Categories(ctx context.Context, owner data.OwnerID[E], includeDeleted bool) ([]*data.Category[E], error) {
	return s.repos.Memberships.ListCategories(ctx, owner, includeDeleted)
}

// Members lists the owners in a category.
func (s *OwnerService[E]) Members(ctx context.Context, category data.CategoryID[E], includeDeleted bool) ([]*data.OwnerRecord[E], error) {
	return s.repos.Memberships.ListMembers(ctx, category, includeDeleted)
}
