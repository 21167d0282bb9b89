//go:build integration

package data

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func mustCreateMedia(t *testing.T, r *MediaRepository, kind MediaKind, name string) *Media {
	t.Helper()
	m, err := r.Create(context.Background(), kind, FileMetadata{
		DisplayName:  name,
		FileName:     name + ".bin",
		ContentType:  "application/octet-stream",
		Size:         1024,
		RelativePath: "uploads/" + name + ".bin",
	})
	if err != nil {
		t.Fatalf("failed to create %s %q: %v", kind, name, err)
	}
	return m
}

func attachmentIDs(as []*Attachment) []string {
	ids := make([]string, 0, len(as))
	for _, a := range as {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestAttachmentRepository_ReorderSwapsImages(t *testing.T) {
	m, media, teardown := setupModule(t)
	defer teardown()
	ctx := context.Background()

	p1 := mustCreateOwner(t, m.Owners, "p1")
	img1 := mustCreateMedia(t, media, KindImage, "img1")
	img2 := mustCreateMedia(t, media, KindImage, "img2")

	a1, err := m.Images.Attach(ctx, p1.ID, img1.ID, 0, nil)
	if err != nil {
		t.Fatalf("failed to attach img1: %v", err)
	}
	a2, err := m.Images.Attach(ctx, p1.ID, img2.ID, 1, nil)
	if err != nil {
		t.Fatalf("failed to attach img2: %v", err)
	}

	if err := m.Images.Reorder(ctx, p1.ID, []string{a2.ID, a1.ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	list, err := m.Images.List(ctx, p1.ID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(list))
	}
	if list[0].MediaID != img2.ID || list[1].MediaID != img1.ID {
		t.Errorf("expected img2 before img1, got %s then %s", list[0].MediaID, list[1].MediaID)
	}
	if list[0].Media == nil || list[0].Media.DisplayName != "img2" || list[0].Media.Kind != KindImage {
		t.Errorf("expected joined media row, got %+v", list[0].Media)
	}
}

func TestAttachmentRepository_ReorderRejectsIncompleteSet(t *testing.T) {
	m, media, teardown := setupModule(t)
	defer teardown()
	ctx := context.Background()

	owner := mustCreateOwner(t, m.Owners, "Widget")
	var ids []string
	for i, name := range []string{"manual", "warranty", "spec-sheet"} {
		doc := mustCreateMedia(t, media, KindDocument, name)
		a, err := m.Documents.Attach(ctx, owner.ID, doc.ID, i, nil)
		if err != nil {
			t.Fatalf("failed to attach %s: %v", name, err)
		}
		ids = append(ids, a.ID)
	}

	tests := []struct {
		name string
		ids  []string
	}{
		{"omission", []string{ids[2], ids[1]}},
		{"repeat", []string{ids[2], ids[1], ids[1]}},
		{"extra", []string{ids[2], ids[1], ids[0], "not-an-attachment"}},
		{"foreign id", []string{ids[2], ids[1], "not-an-attachment"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Documents.Reorder(ctx, owner.ID, tt.ids)
			if !errors.Is(err, ErrIncompleteOrderSet) {
				t.Errorf("expected ErrIncompleteOrderSet, got %v", err)
			}
			list, _ := m.Documents.List(ctx, owner.ID, false)
			got := attachmentIDs(list)
			for i := range ids {
				if got[i] != ids[i] {
					t.Fatalf("expected prior ordering %v, got %v", ids, got)
				}
			}
		})
	}
}

func TestAttachmentRepository_AttachErrors(t *testing.T) {
	m, media, teardown := setupModule(t)
	defer teardown()
	ctx := context.Background()

	owner := mustCreateOwner(t, m.Owners, "Widget")
	video := mustCreateMedia(t, media, KindVideo, "demo")

	if _, err := m.Videos.Attach(ctx, owner.ID, video.ID, 0, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.Videos.Attach(ctx, owner.ID, video.ID, 1, nil); !errors.Is(err, ErrDuplicateAttachment) {
		t.Errorf("expected ErrDuplicateAttachment, got %v", err)
	}
	if _, err := m.Videos.Attach(ctx, owner.ID, "missing", 0, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing media, got %v", err)
	}

	// The same media row may be shared by another owner.
	other := mustCreateOwner(t, m.Owners, "Gadget")
	if _, err := m.Videos.Attach(ctx, other.ID, video.ID, 0, nil); err != nil {
		t.Errorf("expected shared media to attach, got %v", err)
	}

	if err := m.Owners.SoftDelete(ctx, other.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.Videos.Attach(ctx, other.ID, video.ID, 0, nil); !errors.Is(err, ErrOwnerDeleted) {
		t.Errorf("expected ErrOwnerDeleted, got %v", err)
	}
}

func TestAttachmentRepository_DetachKeepsMedia(t *testing.T) {
	m, media, teardown := setupModule(t)
	defer teardown()
	ctx := context.Background()

	owner := mustCreateOwner(t, m.Owners, "Widget")
	img := mustCreateMedia(t, media, KindImage, "logo")
	a, err := m.Images.Attach(ctx, owner.ID, img.ID, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := media.Delete(ctx, KindImage, img.ID); !errors.Is(err, ErrMediaInUse) {
		t.Errorf("expected ErrMediaInUse, got %v", err)
	}

	if err := m.Images.Detach(ctx, a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := media.Get(ctx, KindImage, img.ID, false); err != nil {
		t.Errorf("expected media to survive detach, got %v", err)
	}
	if live, _ := m.Images.List(ctx, owner.ID, false); len(live) != 0 {
		t.Errorf("expected no live attachments, got %d", len(live))
	}
	if all, _ := m.Images.List(ctx, owner.ID, true); len(all) != 1 || !all[0].IsDeleted {
		t.Errorf("expected the detached row when including deleted, got %+v", all)
	}

	// Once detached the media row can go, and the old join stays hidden.
	if err := media.Delete(ctx, KindImage, img.ID); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if all, _ := m.Images.List(ctx, owner.ID, true); len(all) != 0 {
		t.Errorf("expected joins to deleted media to be hidden, got %d", len(all))
	}
	if _, err := m.Images.Attach(ctx, owner.ID, img.ID, 0, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for deleted media, got %v", err)
	}
}

func TestAttachmentRepository_ListBySelector(t *testing.T) {
	m, media, teardown := setupModule(t)
	defer teardown()
	ctx := context.Background()

	owner := mustCreateOwner(t, m.Owners, "Widget")
	thumb := "thumbnail"
	banner := "banner"
	small := mustCreateMedia(t, media, KindImage, "small")
	wide := mustCreateMedia(t, media, KindImage, "wide")
	if _, err := m.Images.Attach(ctx, owner.ID, small.ID, 0, &thumb); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.Images.Attach(ctx, owner.ID, wide.ID, 1, &banner); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := m.Images.ListBySelector(ctx, owner.ID, "banner")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].MediaID != wide.ID {
		t.Errorf("expected only the banner, got %+v", got)
	}
	if got[0].Selector == nil || *got[0].Selector != "banner" {
		t.Errorf("expected selector banner, got %v", got[0].Selector)
	}
}

func TestMediaRepository_CreateListDelete(t *testing.T) {
	_, media, teardown := setupModule(t)
	defer teardown()
	ctx := context.Background()

	img, err := media.Create(ctx, KindImage, FileMetadata{DisplayName: "Hero", FileName: "hero.jpg", Featured: true, ImageType: "banner"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := media.Get(ctx, KindImage, img.ID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Featured || got.ImageType != "banner" {
		t.Errorf("expected image fields to round trip, got %+v", got)
	}

	mustCreateMedia(t, media, KindDocument, "terms")
	docs, err := media.List(ctx, KindDocument, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 || docs[0].Kind != KindDocument {
		t.Errorf("expected one document, got %+v", docs)
	}

	if _, err := media.Create(ctx, MediaKind("audio"), FileMetadata{}); err == nil {
		t.Error("expected an error for an unknown kind")
	}
	if err := media.Delete(ctx, KindImage, img.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := media.Get(ctx, KindImage, img.ID, false); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestAttachmentRepository_ConcurrentAttachOnce(t *testing.T) {
	m, media, teardown := setupModule(t)
	defer teardown()
	ctx := context.Background()

	owner := mustCreateOwner(t, m.Owners, "Widget")
	video := mustCreateMedia(t, media, KindVideo, "demo")

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.Videos.Attach(ctx, owner.ID, video.ID, i, nil)
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, ErrDuplicateAttachment):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("expected exactly one attach to win, got %d", ok)
	}
	if list, _ := m.Videos.List(ctx, owner.ID, false); len(list) != 1 {
		t.Errorf("expected a single attachment, got %d", len(list))
	}
}
