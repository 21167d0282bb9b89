//go:build integration

package data

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestOwnerRepository_CreateAndGet(t *testing.T) {
	m, _, teardown := setupModule(t)
	defer teardown()
	ctx := WithActor(context.Background(), "alice")

	owner, err := m.Owners.Create(ctx, "Blue Widget")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(string(owner.ID), "product:") {
		t.Errorf("expected id tagged with product, got %q", owner.ID)
	}

	got, err := m.Owners.Get(ctx, owner.ID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.DisplayName != "Blue Widget" {
		t.Errorf("expected display name 'Blue Widget', got %q", got.DisplayName)
	}
	if got.CreatedBy != "alice" {
		t.Errorf("expected created_by 'alice', got %q", got.CreatedBy)
	}
	if got.RowVersion != 1 {
		t.Errorf("expected row version 1, got %d", got.RowVersion)
	}
	if got.IsDeleted || got.DeletedOn != nil || got.LastModifiedBy != nil {
		t.Errorf("expected a fresh row, got %+v", got.Audit)
	}
}

func TestOwnerRepository_GetMissing(t *testing.T) {
	m, _, teardown := setupModule(t)
	defer teardown()

	id, err := ParseOwnerID[Product]("product:5f0c6c1e-3d7e-4c4b-9b7a-1f0a3c2b1d00")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	_, err = m.Owners.Get(context.Background(), id, false)
	if !errors.Is(err, ErrOwnerNotFound) || !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrOwnerNotFound wrapping ErrNotFound, got %v", err)
	}
}

func TestOwnerRepository_RenameConcurrency(t *testing.T) {
	m, _, teardown := setupModule(t)
	defer teardown()
	ctx := context.Background()

	owner := mustCreateOwner(t, m.Owners, "Widget")

	renamed, err := m.Owners.Rename(WithActor(ctx, "bob"), owner.ID, "Gadget", owner.RowVersion)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if renamed.RowVersion != owner.RowVersion+1 {
		t.Errorf("expected row version %d, got %d", owner.RowVersion+1, renamed.RowVersion)
	}
	if renamed.LastModifiedBy == nil || *renamed.LastModifiedBy != "bob" {
		t.Errorf("expected last_modified_by 'bob', got %v", renamed.LastModifiedBy)
	}

	// A second writer still holding the old version loses.
	_, err = m.Owners.Rename(ctx, owner.ID, "Gizmo", owner.RowVersion)
	if !errors.Is(err, ErrConcurrencyConflict) {
		t.Errorf("expected ErrConcurrencyConflict, got %v", err)
	}

	got, _ := m.Owners.Get(ctx, owner.ID, false)
	if got.DisplayName != "Gadget" {
		t.Errorf("expected the first write to stick, got %q", got.DisplayName)
	}
}

func TestOwnerRepository_RenameRace(t *testing.T) {
	m, _, teardown := setupModule(t)
	defer teardown()
	ctx := context.Background()

	owner := mustCreateOwner(t, m.Owners, "Widget")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, name := range []string{"Left", "Right"} {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			_, errs[i] = m.Owners.Rename(ctx, owner.ID, name, owner.RowVersion)
		}(i, name)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrConcurrencyConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Errorf("expected exactly one winner and one conflict, got %d and %d", ok, conflicts)
	}
}

func TestOwnerRepository_SoftDeleteCascadesAndRestore(t *testing.T) {
	m, media, teardown := setupModule(t)
	defer teardown()
	ctx := context.Background()

	owner := mustCreateOwner(t, m.Owners, "Widget")

	kept := &Address{AddressType: "billing", City: "Cape Town", Country: "ZA"}
	kept.Default = true
	if err := m.Addresses.Attach(ctx, owner.ID, kept); err != nil {
		t.Fatalf("failed to attach address: %v", err)
	}
	detached := &Address{AddressType: "shipping", City: "Durban", Country: "ZA"}
	if err := m.Addresses.Attach(ctx, owner.ID, detached); err != nil {
		t.Fatalf("failed to attach address: %v", err)
	}
	if err := m.Addresses.Detach(ctx, detached.ID); err != nil {
		t.Fatalf("failed to detach address: %v", err)
	}

	img, err := media.Create(ctx, KindImage, FileMetadata{DisplayName: "Front", FileName: "front.png"})
	if err != nil {
		t.Fatalf("failed to create image: %v", err)
	}
	if _, err := m.Images.Attach(ctx, owner.ID, img.ID, 0, nil); err != nil {
		t.Fatalf("failed to attach image: %v", err)
	}
	if _, err := m.Metadata.Set(ctx, owner.ID, "sku", "W-1"); err != nil {
		t.Fatalf("failed to set metadata: %v", err)
	}
	cat := mustCreateCategory(t, m.Categories, "Tools", nil)
	if _, err := m.Memberships.Add(ctx, owner.ID, cat.ID); err != nil {
		t.Fatalf("failed to add membership: %v", err)
	}

	if err := m.Owners.SoftDelete(ctx, owner.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := m.Owners.Get(ctx, owner.ID, false); !errors.Is(err, ErrOwnerDeleted) {
		t.Errorf("expected ErrOwnerDeleted, got %v", err)
	}
	deleted, err := m.Owners.Get(ctx, owner.ID, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	addresses, _ := m.Addresses.List(ctx, owner.ID, true)
	for _, a := range addresses {
		if !a.IsDeleted {
			t.Errorf("expected address %s to be deleted", a.ID)
		}
		if a.ID == kept.ID && !a.DeletedOn.Equal(*deleted.DeletedOn) {
			t.Errorf("expected cascaded deleted_on %v, got %v", deleted.DeletedOn, a.DeletedOn)
		}
	}
	if live, _ := m.Images.List(ctx, owner.ID, false); len(live) != 0 {
		t.Errorf("expected no live attachments, got %d", len(live))
	}
	if _, err := m.Metadata.Get(ctx, owner.ID, "sku"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected metadata to be deleted, got %v", err)
	}
	if members, _ := m.Memberships.ListMembers(ctx, cat.ID, false); len(members) != 0 {
		t.Errorf("expected no live members, got %d", len(members))
	}

	if err := m.Owners.Restore(ctx, owner.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.Owners.Get(ctx, owner.ID, false); err != nil {
		t.Errorf("expected owner to be live again, got %v", err)
	}
	live, _ := m.Addresses.List(ctx, owner.ID, false)
	if len(live) != 1 || live[0].ID != kept.ID {
		t.Errorf("expected only the cascaded address back, got %+v", live)
	}
	if attachments, _ := m.Images.List(ctx, owner.ID, false); len(attachments) != 1 {
		t.Errorf("expected the attachment back, got %d", len(attachments))
	}
	if _, err := m.Metadata.Get(ctx, owner.ID, "sku"); err != nil {
		t.Errorf("expected metadata back, got %v", err)
	}
	if members, _ := m.Memberships.ListMembers(ctx, cat.ID, false); len(members) != 1 {
		t.Errorf("expected the membership back, got %d", len(members))
	}
}

func TestOwnerRepository_ListExcludesDeleted(t *testing.T) {
	m, _, teardown := setupModule(t)
	defer teardown()
	ctx := context.Background()

	a := mustCreateOwner(t, m.Owners, "Alpha")
	mustCreateOwner(t, m.Owners, "Beta")
	if err := m.Owners.SoftDelete(ctx, a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	live, err := m.Owners.List(ctx, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(live) != 1 || live[0].DisplayName != "Beta" {
		t.Errorf("expected only Beta, got %+v", live)
	}
	all, _ := m.Owners.List(ctx, true)
	if len(all) != 2 {
		t.Errorf("expected 2 owners including deleted, got %d", len(all))
	}
}

func TestOwnerRepository_CrossTypeID(t *testing.T) {
	db, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	learner := mustCreateOwner(t, NewOwnerRepository[Learner](db), "Thandi")

	// Re-tag the learner id as a product id the way an untyped caller could.
	_, err := NewOwnerRepository[Product](db).Get(ctx, OwnerID[Product](learner.ID), false)
	if !errors.Is(err, ErrCrossTypeViolation) {
		t.Errorf("expected ErrCrossTypeViolation, got %v", err)
	}
}

func TestOwnerRepository_RestoreSkipsAttachmentsOfDeletedMedia(t *testing.T) {
	m, media, teardown := setupModule(t)
	defer teardown()
	ctx := context.Background()

	p1 := mustCreateOwner(t, m.Owners, "p1")
	img1 := mustCreateMedia(t, media, KindImage, "img1")
	img2 := mustCreateMedia(t, media, KindImage, "img2")
	if _, err := m.Images.Attach(ctx, p1.ID, img1.ID, 0, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a2, err := m.Images.Attach(ctx, p1.ID, img2.ID, 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := m.Owners.SoftDelete(ctx, p1.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The attachment is no longer live, so the media row may go.
	if err := media.Delete(ctx, KindImage, img1.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Owners.Restore(ctx, p1.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var live int
	query := "SELECT COUNT(*) FROM product_images WHERE entity_id = ? AND image_id = ? AND is_deleted = FALSE"
	if err := getRow(ctx, m.Images.DB, &live, query, string(p1.ID), img1.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if live != 0 {
		t.Errorf("expected the attachment of deleted media to stay deleted, got %d live rows", live)
	}

	list, err := m.Images.List(ctx, p1.ID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 || list[0].ID != a2.ID {
		t.Fatalf("expected only the attachment of img2, got %v", attachmentIDs(list))
	}
	if err := m.Images.Reorder(ctx, p1.ID, attachmentIDs(list)); err != nil {
		t.Errorf("expected the listed ids to reorder, got %v", err)
	}
}

func TestOwnerRepository_AttachRacingSoftDelete(t *testing.T) {
	m, media, teardown := setupModule(t)
	defer teardown()
	ctx := context.Background()

	owner := mustCreateOwner(t, m.Owners, "Widget")
	tools := mustCreateCategory(t, m.Categories, "Tools", nil)
	doc := mustCreateMedia(t, media, KindDocument, "manual")

	var wg sync.WaitGroup
	errs := make([]error, 4)
	run := func(i int, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = fn()
		}()
	}
	run(0, func() error { return m.Owners.SoftDelete(ctx, owner.ID) })
	run(1, func() error {
		_, err := m.Documents.Attach(ctx, owner.ID, doc.ID, 0, nil)
		return err
	})
	run(2, func() error {
		_, err := m.Memberships.Add(ctx, owner.ID, tools.ID)
		return err
	})
	run(3, func() error {
		return m.EmailAddresses.Attach(ctx, owner.ID, &EmailAddress{Email: "w@example.com", EmailType: "work"})
	})
	wg.Wait()

	if errs[0] != nil {
		t.Fatalf("unexpected delete error: %v", errs[0])
	}
	for _, err := range errs[1:] {
		if err != nil && !errors.Is(err, ErrOwnerDeleted) {
			t.Errorf("expected success or ErrOwnerDeleted, got %v", err)
		}
	}
	for _, table := range tablesOf("product").dependents() {
		var live int
		if err := getRow(ctx, m.Owners.DB, &live, "SELECT COUNT(*) FROM "+table+" WHERE entity_id = ? AND is_deleted = FALSE", string(owner.ID)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if live != 0 {
			t.Errorf("expected no live rows in %s under a deleted owner, got %d", table, live)
		}
	}
}
