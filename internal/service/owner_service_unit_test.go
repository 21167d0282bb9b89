//go:build unit

package service

import (
	"context"
	"errors"
	"testing"

	"go-school-admin/internal/data"
)

// mockOwnerRepository is a mock implementation of the OwnerRepository interface.
type mockOwnerRepository struct {
	errToReturn  error
	lastName     string
	lastVersion  int64
	deleteCalled bool
}

var _ OwnerRepository[data.Learner] = (*mockOwnerRepository)(nil)

func (m *mockOwnerRepository) Create(ctx context.Context, displayName string) (*data.OwnerRecord[data.Learner], error) {
	m.lastName = displayName
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	return &data.OwnerRecord[data.Learner]{ID: "learner:6f1c2f3e-8b7a-4d5e-9f10-112233445566", DisplayName: displayName}, nil
}

func (m *mockOwnerRepository) Get(ctx context.Context, id data.OwnerID[data.Learner], includeDeleted bool) (*data.OwnerRecord[data.Learner], error) {
	return nil, m.errToReturn
}

func (m *mockOwnerRepository) List(ctx context.Context, includeDeleted bool) ([]*data.OwnerRecord[data.Learner], error) {
	return nil, m.errToReturn
}

func (m *mockOwnerRepository) Rename(ctx context.Context, id data.OwnerID[data.Learner], displayName string, rowVersion int64) (*data.OwnerRecord[data.Learner], error) {
	m.lastName = displayName
	m.lastVersion = rowVersion
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	return &data.OwnerRecord[data.Learner]{ID: id, DisplayName: displayName}, nil
}

func (m *mockOwnerRepository) SoftDelete(ctx context.Context, id data.OwnerID[data.Learner]) error {
	m.deleteCalled = true
	return m.errToReturn
}

func (m *mockOwnerRepository) Restore(ctx context.Context, id data.OwnerID[data.Learner]) error {
	return m.errToReturn
}

// mockAttachmentRepository is a mock implementation of the AttachmentRepository interface.
type mockAttachmentRepository struct {
	attachCalled   bool
	lastSelector   *string
	listCalled     bool
	selectorCalled bool
	reorderIDs     []string
}

var _ AttachmentRepository[data.Learner] = (*mockAttachmentRepository)(nil)

func (m *mockAttachmentRepository) Attach(ctx context.Context, owner data.OwnerID[data.Learner], mediaID string, order int, selector *string) (*data.Attachment, error) {
	m.attachCalled = true
	m.lastSelector = selector
	return &data.Attachment{EntityID: string(owner), MediaID: mediaID, Order: order, Selector: selector}, nil
}

func (m *mockAttachmentRepository) Reorder(ctx context.Context, owner data.OwnerID[data.Learner], ids []string) error {
	m.reorderIDs = ids
	return nil
}

func (m *mockAttachmentRepository) Detach(ctx context.Context, id string) error { return nil }

func (m *mockAttachmentRepository) List(ctx context.Context, owner data.OwnerID[data.Learner], includeDeleted bool) ([]*data.Attachment, error) {
	m.listCalled = true
	return nil, nil
}

func (m *mockAttachmentRepository) ListBySelector(ctx context.Context, owner data.OwnerID[data.Learner], selector string) ([]*data.Attachment, error) {
	m.selectorCalled = true
	return nil, nil
}

// mockMetadataRepository is a mock implementation of the MetadataRepository interface.
type mockMetadataRepository struct {
	setCalled bool
	lastKey   string
	lastValue string
}

var _ MetadataRepository[data.Learner] = (*mockMetadataRepository)(nil)

func (m *mockMetadataRepository) Set(ctx context.Context, owner data.OwnerID[data.Learner], key, value string) (*data.Metadata, error) {
	m.setCalled = true
	m.lastKey, m.lastValue = key, value
	return &data.Metadata{EntityID: string(owner), Key: key, Value: value}, nil
}

func (m *mockMetadataRepository) Get(ctx context.Context, owner data.OwnerID[data.Learner], key string) (*data.Metadata, error) {
	return nil, data.ErrNotFound
}

func (m *mockMetadataRepository) List(ctx context.Context, owner data.OwnerID[data.Learner], includeDeleted bool) ([]*data.Metadata, error) {
	return nil, nil
}

func (m *mockMetadataRepository) Remove(ctx context.Context, owner data.OwnerID[data.Learner], key string) error {
	return nil
}

type ownerServiceMocks struct {
	owners   *mockOwnerRepository
	metadata *mockMetadataRepository
	images   *mockAttachmentRepository
	videos   *mockAttachmentRepository
}

func newTestOwnerService() (*OwnerService[data.Learner], ownerServiceMocks) {
	mocks := ownerServiceMocks{
		owners:   &mockOwnerRepository{},
		metadata: &mockMetadataRepository{},
		images:   &mockAttachmentRepository{},
		videos:   &mockAttachmentRepository{},
	}
	svc := NewOwnerService[data.Learner](OwnerRepositories[data.Learner]{
		Owners:   mocks.owners,
		Metadata: mocks.metadata,
		Attachments: map[data.MediaKind]AttachmentRepository[data.Learner]{
			data.KindImage: mocks.images,
			data.KindVideo: mocks.videos,
		},
	})
	return svc, mocks
}

func TestOwnerService_CreateAndRename(t *testing.T) {
	svc, mocks := newTestOwnerService()
	ctx := context.Background()

	if svc.OwnerType() != "learner" {
		t.Errorf("expected owner type learner, got %q", svc.OwnerType())
	}

	rec, err := svc.Create(ctx, " <em>Thandi</em> Nkosi ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.DisplayName != "Thandi Nkosi" || mocks.owners.lastName != "Thandi Nkosi" {
		t.Errorf("expected a sanitized name, got %q", rec.DisplayName)
	}

	if _, err := svc.Create(ctx, "   "); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	if _, err := svc.Rename(ctx, rec.ID, "Thandi M. Nkosi", 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mocks.owners.lastVersion != 2 {
		t.Errorf("expected the row version to be passed through, got %d", mocks.owners.lastVersion)
	}

	mocks.owners.errToReturn = data.ErrConcurrencyConflict
	if _, err := svc.Rename(ctx, rec.ID, "Other", 1); !errors.Is(err, data.ErrConcurrencyConflict) {
		t.Errorf("expected ErrConcurrencyConflict, got %v", err)
	}
}

func TestOwnerService_AttachDispatchesByKind(t *testing.T) {
	svc, mocks := newTestOwnerService()
	ctx := context.Background()
	owner := data.OwnerID[data.Learner]("learner:6f1c2f3e-8b7a-4d5e-9f10-112233445566")

	blank := "  "
	if _, err := svc.Attach(ctx, data.KindImage, owner, "img-1", 0, &blank); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mocks.images.attachCalled || mocks.videos.attachCalled {
		t.Error("expected only the image repository to be used")
	}
	if mocks.images.lastSelector != nil {
		t.Errorf("expected a blank selector to be dropped, got %q", *mocks.images.lastSelector)
	}

	if _, err := svc.Attach(ctx, data.KindDocument, owner, "doc-1", 0, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for an unwired kind, got %v", err)
	}
	if _, err := svc.Attach(ctx, data.KindVideo, owner, "vid-1", -1, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for a negative order, got %v", err)
	}

	if err := svc.Reorder(ctx, data.KindVideo, owner, []string{"b", "a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mocks.videos.reorderIDs) != 2 {
		t.Errorf("expected the ids to reach the video repository, got %v", mocks.videos.reorderIDs)
	}
}

func TestOwnerService_AttachmentsUsesSelector(t *testing.T) {
	svc, mocks := newTestOwnerService()
	ctx := context.Background()
	owner := data.OwnerID[data.Learner]("learner:6f1c2f3e-8b7a-4d5e-9f10-112233445566")

	if _, err := svc.Attachments(ctx, data.KindImage, owner, "", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mocks.images.listCalled || mocks.images.selectorCalled {
		t.Error("expected a plain list without a selector")
	}
	if _, err := svc.Attachments(ctx, data.KindImage, owner, "thumbnail", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mocks.images.selectorCalled {
		t.Error("expected a selector lookup")
	}
}

func TestOwnerService_SetMetadata(t *testing.T) {
	svc, mocks := newTestOwnerService()
	ctx := context.Background()
	owner := data.OwnerID[data.Learner]("learner:6f1c2f3e-8b7a-4d5e-9f10-112233445566")

	if _, err := svc.SetMetadata(ctx, owner, " shoe_size ", "<b>7</b>"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mocks.metadata.lastKey != "shoe_size" || mocks.metadata.lastValue != "7" {
		t.Errorf("expected a sanitized pair, got %q=%q", mocks.metadata.lastKey, mocks.metadata.lastValue)
	}
	mocks.metadata.setCalled = false
	if _, err := svc.SetMetadata(ctx, owner, "", "x"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if mocks.metadata.setCalled {
		t.Error("expected an empty key to be rejected before storage")
	}
}

func TestOwnerService_KeepsPlainTextCharacters(t *testing.T) {
	svc, mocks := newTestOwnerService()
	ctx := context.Background()
	owner := data.OwnerID[data.Learner]("learner:6f1c2f3e-8b7a-4d5e-9f10-112233445566")

	created, err := svc.Create(ctx, "Sean O'Brien")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.DisplayName != "Sean O'Brien" {
		t.Errorf("expected the apostrophe to survive, got %q", created.DisplayName)
	}

	if _, err := svc.Rename(ctx, owner, "Ama & Kofi <i>Mensah</i>", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mocks.owners.lastName != "Ama & Kofi Mensah" {
		t.Errorf("expected tags stripped and ampersand kept, got %q", mocks.owners.lastName)
	}

	if _, err := svc.SetMetadata(ctx, owner, "homepage", "https://x.test/?a=1&b=2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mocks.metadata.lastValue != "https://x.test/?a=1&b=2" {
		t.Errorf("expected the query string unchanged, got %q", mocks.metadata.lastValue)
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "  Grade 7 ", "Grade 7"},
		{"apostrophe", "O'Brien", "O'Brien"},
		{"ampersand", "Arts & Crafts", "Arts & Crafts"},
		{"quotes", `"Quoted"`, `"Quoted"`},
		{"tags", "<b>Bold</b> move", "Bold move"},
		{"script", "<script>alert(1)</script>Safe", "Safe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.input); got != tt.want {
				t.Errorf("CleanText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
