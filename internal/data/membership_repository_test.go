//go:build integration

package data

import (
	"context"
	"errors"
	"testing"
)

func TestMembershipRepository_AddDuplicateAndRevive(t *testing.T) {
	m, _, teardown := setupModule(t)
	defer teardown()
	ctx := context.Background()

	owner := mustCreateOwner(t, m.Owners, "Widget")
	cat := mustCreateCategory(t, m.Categories, "Tools", nil)

	first, err := m.Memberships.Add(ctx, owner.ID, cat.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.Memberships.Add(ctx, owner.ID, cat.ID); !errors.Is(err, ErrDuplicateMembership) {
		t.Errorf("expected ErrDuplicateMembership, got %v", err)
	}

	if err := m.Memberships.Remove(ctx, owner.ID, cat.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Memberships.Remove(ctx, owner.ID, cat.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	revived, err := m.Memberships.Add(ctx, owner.ID, cat.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revived.ID != first.ID || revived.IsDeleted {
		t.Errorf("expected the removed pair to be revived, got %+v", revived)
	}

	members, err := m.Memberships.ListMembers(ctx, cat.ID, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(members) != 1 {
		t.Errorf("expected a single membership row, got %d", len(members))
	}
}

func TestMembershipRepository_ListBothWays(t *testing.T) {
	m, _, teardown := setupModule(t)
	defer teardown()
	ctx := context.Background()

	alpha := mustCreateOwner(t, m.Owners, "Alpha")
	beta := mustCreateOwner(t, m.Owners, "Beta")
	tools := mustCreateCategory(t, m.Categories, "Tools", nil)
	garden := mustCreateCategory(t, m.Categories, "Garden", nil)

	for _, pair := range []struct {
		owner OwnerID[Product]
		cat   CategoryID[Product]
	}{{alpha.ID, tools.ID}, {alpha.ID, garden.ID}, {beta.ID, tools.ID}} {
		if _, err := m.Memberships.Add(ctx, pair.owner, pair.cat); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	cats, err := m.Memberships.ListCategories(ctx, alpha.ID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cats) != 2 || cats[0].Name != "Garden" || cats[1].Name != "Tools" {
		t.Errorf("expected Garden and Tools, got %+v", cats)
	}

	members, err := m.Memberships.ListMembers(ctx, tools.ID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(members) != 2 || members[0].ID != alpha.ID || members[1].ID != beta.ID {
		t.Errorf("expected Alpha and Beta, got %+v", members)
	}
}

func TestMembershipRepository_Errors(t *testing.T) {
	db, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()
	products := NewModule[Product](db)
	learners := NewModule[Learner](db)

	widget := mustCreateOwner(t, products.Owners, "Widget")
	grade := mustCreateCategory(t, learners.Categories, "Grade 7", nil)

	// A learner category id forced into the product tree is rejected by its tag.
	_, err := products.Memberships.Add(ctx, widget.ID, CategoryID[Product](grade.ID))
	if !errors.Is(err, ErrCrossTypeViolation) {
		t.Errorf("expected ErrCrossTypeViolation, got %v", err)
	}

	cat := mustCreateCategory(t, products.Categories, "Tools", nil)
	if err := products.Categories.Delete(ctx, cat.ID, DeleteRestrict); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := products.Memberships.Add(ctx, widget.ID, cat.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for a deleted category, got %v", err)
	}

	if err := products.Owners.SoftDelete(ctx, widget.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	live := mustCreateCategory(t, products.Categories, "Garden", nil)
	if _, err := products.Memberships.Add(ctx, widget.ID, live.ID); !errors.Is(err, ErrOwnerDeleted) {
		t.Errorf("expected ErrOwnerDeleted, got %v", err)
	}
}
