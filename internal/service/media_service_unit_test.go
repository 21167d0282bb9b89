//go:build unit

package service

import (
	"context"
	"errors"
	"testing"

	"go-school-admin/internal/data"
)

// mockMediaRepository is a mock implementation of the MediaRepository interface.
type mockMediaRepository struct {
	errToReturn  error
	createCalled bool
	lastFile     data.FileMetadata
}

var _ MediaRepository = (*mockMediaRepository)(nil)

func (m *mockMediaRepository) Create(ctx context.Context, kind data.MediaKind, fm data.FileMetadata) (*data.Media, error) {
	m.createCalled = true
	m.lastFile = fm
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	return &data.Media{ID: "m-1", Kind: kind, DisplayName: fm.DisplayName, FileName: fm.FileName}, nil
}

func (m *mockMediaRepository) Get(ctx context.Context, kind data.MediaKind, id string, includeDeleted bool) (*data.Media, error) {
	return nil, m.errToReturn
}

func (m *mockMediaRepository) List(ctx context.Context, kind data.MediaKind, includeDeleted bool) ([]*data.Media, error) {
	return nil, m.errToReturn
}

func (m *mockMediaRepository) Delete(ctx context.Context, kind data.MediaKind, id string) error {
	return m.errToReturn
}

func TestMediaService_Create(t *testing.T) {
	repo := &mockMediaRepository{}
	svc := NewMediaService(repo)
	ctx := context.Background()

	m, err := svc.Create(ctx, data.KindDocument, data.FileMetadata{
		FileName:     "reports/term1.pdf",
		RelativePath: "/uploads/reports/term1.pdf",
		Featured:     true,
		ImageType:    "banner",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.FileName != "term1.pdf" || m.DisplayName != "term1.pdf" {
		t.Errorf("expected the base file name as display name, got %+v", m)
	}
	if repo.lastFile.RelativePath != "uploads/reports/term1.pdf" {
		t.Errorf("unexpected relative path %q", repo.lastFile.RelativePath)
	}
	if repo.lastFile.Featured || repo.lastFile.ImageType != "" {
		t.Error("expected image-only fields to be cleared for documents")
	}
}

func TestMediaService_CreateRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		kind data.MediaKind
		fm   data.FileMetadata
	}{
		{"unknown kind", data.MediaKind("audio"), data.FileMetadata{FileName: "a.mp3"}},
		{"missing file name", data.KindImage, data.FileMetadata{}},
		{"negative size", data.KindImage, data.FileMetadata{FileName: "a.png", Size: -1}},
		{"escaping path", data.KindVideo, data.FileMetadata{FileName: "a.mp4", RelativePath: "../../etc/passwd"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockMediaRepository{}
			svc := NewMediaService(repo)
			if _, err := svc.Create(context.Background(), tt.kind, tt.fm); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
			if repo.createCalled {
				t.Error("expected the repository not to be called")
			}
		})
	}
}

func TestMediaService_DeletePassesDomainErrors(t *testing.T) {
	svc := NewMediaService(&mockMediaRepository{errToReturn: data.ErrMediaInUse})
	if err := svc.Delete(context.Background(), data.KindImage, "m-1"); !errors.Is(err, data.ErrMediaInUse) {
		t.Errorf("expected ErrMediaInUse, got %v", err)
	}
	if _, err := svc.List(context.Background(), data.MediaKind("audio"), false); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
