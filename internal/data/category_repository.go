package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// CategoryRepository handles database operations for the category tree of
// owner type E.
type CategoryRepository[E Owner] struct {
	DB  *sqlx.DB
	now func() time.Time
	t   ownerTables
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository[E Owner](db *sqlx.DB) *CategoryRepository[E] {
	return &CategoryRepository[E]{DB: db, now: utcNow, t: tablesFor[E]()}
}

// treeNode is the part of a category row needed to walk the tree.
type treeNode struct {
	ID        string     `db:"id"`
	ParentID  *string    `db:"parent_category_id"`
	IsDeleted bool       `db:"is_deleted"`
	DeletedOn *time.Time `db:"deleted_on"`
}

// lockTree takes the tree's lock row. Writes that change the shape of the tree
// or the liveness of its nodes hold it, so their checks see each other's results.
func (r *CategoryRepository[E]) lockTree(ctx context.Context, q sqlx.ExtContext) error {
	return lockWhere(ctx, q, r.t.TreeLock, "id = 1")
}

// loadTree loads every node of the tree, deleted ones included, in one query.
func (r *CategoryRepository[E]) loadTree(ctx context.Context, q sqlx.ExtContext) (map[string]treeNode, error) {
	var nodes []treeNode
	query := fmt.Sprintf("SELECT id, parent_category_id, is_deleted, deleted_on FROM %s", r.t.Categories)
	if err := selectRows(ctx, q, &nodes, query); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", r.t.Categories, err)
	}
	tree := make(map[string]treeNode, len(nodes))
	for _, n := range nodes {
		tree[n.ID] = n
	}
	return tree, nil
}

// children indexes the tree by parent id.
func children(tree map[string]treeNode) map[string][]string {
	out := make(map[string][]string, len(tree))
	for _, n := range tree {
		if n.ParentID != nil {
			out[*n.ParentID] = append(out[*n.ParentID], n.ID)
		}
	}
	return out
}

// subtree returns root and every descendant accepted by keep, breadth first.
func subtree(tree map[string]treeNode, root string, keep func(treeNode) bool) []string {
	kids := children(tree)
	ids := []string{root}
	for i := 0; i < len(ids); i++ {
		for _, id := range kids[ids[i]] {
			if keep(tree[id]) {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func parentArg[E Owner](parent *CategoryID[E]) interface{} {
	if parent == nil {
		return nil
	}
	return string(*parent)
}

// Create inserts a new category. Its parent, if any, must be a live node of the
// same tree.
func (r *CategoryRepository[E]) Create(ctx context.Context, c *Category[E]) error {
	if c.ParentCategoryID != nil {
		if err := c.ParentCategoryID.check(); err != nil {
			return err
		}
	}
	st := newStamp(ctx, r.now)
	id := CategoryID[E](newTaggedID[E]())

	err := withTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		if err := r.lockTree(ctx, tx); err != nil {
			return err
		}
		if c.ParentCategoryID != nil {
			if err := requireLive(ctx, tx, r.t.Categories, string(*c.ParentCategoryID)); err != nil {
				return fmt.Errorf("parent: %w", err)
			}
		}
		cols := append([]string{"id", "parent_category_id", "name", "description", "active", "featured",
			"display_in_main_menu", "display_as_slider_item", "slogan", "sub_slogan", "web_tags"}, auditColumns...)
		args := append([]interface{}{string(id), parentArg(c.ParentCategoryID), c.Name, c.Description, c.Active, c.Featured,
			c.DisplayInMainMenu, c.DisplayAsSliderItem, c.Slogan, c.SubSlogan, c.WebTags}, st.audit().insertArgs()...)
		return insertRow(ctx, tx, r.t.Categories, cols, args...)
	})
	if err != nil {
		return err
	}

	c.ID = id
	c.Audit = st.audit()
	return nil
}

// GetByID finds a category by its ID.
func (r *CategoryRepository[E]) GetByID(ctx context.Context, id CategoryID[E], includeDeleted bool) (*Category[E], error) {
	if err := id.check(); err != nil {
		return nil, err
	}
	var category Category[E]
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = ?%s", r.t.Categories, deletedFilter(includeDeleted))
	err := getRow(ctx, r.DB, &category, query, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category %s: %w", id, err)
	}
	return &category, nil
}

// GetAll retrieves all categories ordered by name.
func (r *CategoryRepository[E]) GetAll(ctx context.Context, includeDeleted bool) ([]*Category[E], error) {
	var categories []*Category[E]
	query := fmt.Sprintf("SELECT * FROM %s WHERE 1 = 1%s ORDER BY name", r.t.Categories, deletedFilter(includeDeleted))
	if err := selectRows(ctx, r.DB, &categories, query); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.t.Categories, err)
	}
	return categories, nil
}

// FindByName finds a live category by name under parent; a nil parent means a root.
func (r *CategoryRepository[E]) FindByName(ctx context.Context, name string, parent *CategoryID[E]) (*Category[E], error) {
	var category Category[E]
	var err error
	if parent == nil {
		err = getRow(ctx, r.DB, &category, fmt.Sprintf(
			"SELECT * FROM %s WHERE name = ? AND parent_category_id IS NULL AND is_deleted = FALSE", r.t.Categories), name)
	} else {
		err = getRow(ctx, r.DB, &category, fmt.Sprintf(
			"SELECT * FROM %s WHERE name = ? AND parent_category_id = ? AND is_deleted = FALSE", r.t.Categories), name, string(*parent))
	}

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found is not an error
		}
		return nil, fmt.Errorf("failed to find category %q: %w", name, err)
	}
	return &category, nil
}

// SearchByName searches live categories by name.
func (r *CategoryRepository[E]) SearchByName(ctx context.Context, query string) ([]*Category[E], error) {
	var categories []*Category[E]
	err := selectRows(ctx, r.DB, &categories, fmt.Sprintf(
		"SELECT * FROM %s WHERE name LIKE ? AND is_deleted = FALSE ORDER BY name", r.t.Categories), "%"+query+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", r.t.Categories, err)
	}
	return categories, nil
}

// Children retrieves the direct children of a category; a nil id lists the roots.
func (r *CategoryRepository[E]) Children(ctx context.Context, id *CategoryID[E], includeDeleted bool) ([]*Category[E], error) {
	var categories []*Category[E]
	var err error
	if id == nil {
		err = selectRows(ctx, r.DB, &categories, fmt.Sprintf(
			"SELECT * FROM %s WHERE parent_category_id IS NULL%s ORDER BY name", r.t.Categories, deletedFilter(includeDeleted)))
	} else {
		if err := id.check(); err != nil {
			return nil, err
		}
		err = selectRows(ctx, r.DB, &categories, fmt.Sprintf(
			"SELECT * FROM %s WHERE parent_category_id = ?%s ORDER BY name", r.t.Categories, deletedFilter(includeDeleted)), string(*id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list children in %s: %w", r.t.Categories, err)
	}
	return categories, nil
}

// Ancestors returns the path from the root down to the parent of id.
func (r *CategoryRepository[E]) Ancestors(ctx context.Context, id CategoryID[E]) ([]*Category[E], error) {
	self, err := r.GetByID(ctx, id, true)
	if err != nil {
		return nil, err
	}
	all, err := r.GetAll(ctx, true)
	if err != nil {
		return nil, err
	}
	byID := make(map[CategoryID[E]]*Category[E], len(all))
	for _, c := range all {
		byID[c.ID] = c
	}

	var path []*Category[E]
	for cur := self.ParentCategoryID; cur != nil; {
		c, ok := byID[*cur]
		if !ok || len(path) >= len(all) {
			return nil, fmt.Errorf("ancestors of %s: %w", id, ErrCycleDetected)
		}
		path = append(path, c)
		cur = c.ParentCategoryID
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// Update writes the presentation fields of c, which must carry the row version
// it was read at. The parent is changed with Move.
func (r *CategoryRepository[E]) Update(ctx context.Context, c *Category[E]) error {
	if err := c.ID.check(); err != nil {
		return err
	}
	st := newStamp(ctx, r.now)
	err := casUpdate(ctx, r.DB, st, r.t.Categories, string(c.ID), c.RowVersion,
		"name = ?, description = ?, active = ?, featured = ?, display_in_main_menu = ?, display_as_slider_item = ?, slogan = ?, sub_slogan = ?, web_tags = ?",
		c.Name, c.Description, c.Active, c.Featured, c.DisplayInMainMenu, c.DisplayAsSliderItem, c.Slogan, c.SubSlogan, c.WebTags)
	if err != nil {
		return err
	}
	fresh, err := r.GetByID(ctx, c.ID, false)
	if err != nil {
		return err
	}
	*c = *fresh
	return nil
}

// Move re-parents a category; a nil newParent makes it a root. The ancestors of
// newParent are walked from the full parent map, and reaching id, revisiting a
// node, following a dangling pointer or taking more steps than there are nodes
// all reject the move with ErrCycleDetected.
func (r *CategoryRepository[E]) Move(ctx context.Context, id CategoryID[E], newParent *CategoryID[E], rowVersion int64) error {
	if err := id.check(); err != nil {
		return err
	}
	if newParent != nil {
		if err := newParent.check(); err != nil {
			return err
		}
		if *newParent == id {
			return fmt.Errorf("%s under itself: %w", id, ErrCycleDetected)
		}
	}
	st := newStamp(ctx, r.now)

	return withTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		if err := r.lockTree(ctx, tx); err != nil {
			return err
		}
		if err := requireLive(ctx, tx, r.t.Categories, string(id)); err != nil {
			return err
		}
		if newParent != nil {
			if err := requireLive(ctx, tx, r.t.Categories, string(*newParent)); err != nil {
				return fmt.Errorf("parent: %w", err)
			}
			tree, err := r.loadTree(ctx, tx)
			if err != nil {
				return err
			}
			if err := checkAcyclic(tree, string(id), string(*newParent)); err != nil {
				return err
			}
		}
		return casUpdate(ctx, tx, st, r.t.Categories, string(id), rowVersion, "parent_category_id = ?", parentArg(newParent))
	})
}

// checkAcyclic walks up from parent and fails if id is among its ancestors.
func checkAcyclic(tree map[string]treeNode, id, parent string) error {
	seen := make(map[string]bool, len(tree))
	for cur := &parent; cur != nil; {
		if *cur == id {
			return fmt.Errorf("%s is an ancestor of %s: %w", id, parent, ErrCycleDetected)
		}
		if seen[*cur] || len(seen) > len(tree) {
			return fmt.Errorf("loop above %s: %w", parent, ErrCycleDetected)
		}
		seen[*cur] = true
		node, ok := tree[*cur]
		if !ok {
			return fmt.Errorf("dangling parent %s: %w", *cur, ErrCycleDetected)
		}
		cur = node.ParentID
	}
	return nil
}

// Delete soft-deletes a category according to mode.
func (r *CategoryRepository[E]) Delete(ctx context.Context, id CategoryID[E], mode DeleteMode) error {
	if err := id.check(); err != nil {
		return err
	}
	st := newStamp(ctx, r.now)

	return withTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		if err := r.lockTree(ctx, tx); err != nil {
			return err
		}
		if err := requireLive(ctx, tx, r.t.Categories, string(id)); err != nil {
			return err
		}

		switch mode {
		case DeleteRestrict:
			if err := lockWhere(ctx, tx, r.t.Categories, "id = ?", string(id)); err != nil {
				return err
			}
			if err := r.requireNoLiveChildren(ctx, tx, id); err != nil {
				return err
			}
			if err := r.requireNoLiveMembers(ctx, tx, id); err != nil {
				return err
			}
			_, err := softDeleteWhere(ctx, tx, st, r.t.Categories, "id = ?", string(id))
			return err

		case DeleteCascade:
			tree, err := r.loadTree(ctx, tx)
			if err != nil {
				return err
			}
			ids := subtree(tree, string(id), func(n treeNode) bool { return !n.IsDeleted })
			if err := lockWhere(ctx, tx, r.t.Categories, "id IN (?)", ids); err != nil {
				return err
			}
			if _, err := softDeleteWhere(ctx, tx, st, r.t.Members, "category_id IN (?)", ids); err != nil {
				return err
			}
			_, err = softDeleteWhere(ctx, tx, st, r.t.Categories, "id IN (?)", ids)
			return err

		case DeleteReparentChildren:
			if err := lockWhere(ctx, tx, r.t.Categories, "id = ?", string(id)); err != nil {
				return err
			}
			if err := r.requireNoLiveMembers(ctx, tx, id); err != nil {
				return err
			}
			var parent *string
			err := getRow(ctx, tx, &parent, fmt.Sprintf("SELECT parent_category_id FROM %s WHERE id = ?", r.t.Categories), string(id))
			if err != nil {
				return fmt.Errorf("failed to load parent of %s: %w", id, err)
			}
			var parentValue interface{}
			if parent != nil {
				parentValue = *parent
			}
			_, err = execQuery(ctx, tx, fmt.Sprintf(
				"UPDATE %s SET parent_category_id = ?, last_modified_by = ?, last_modified_on = ?, row_version = row_version + 1 WHERE parent_category_id = ?",
				r.t.Categories), parentValue, st.actor, st.now, string(id))
			if err != nil {
				return fmt.Errorf("failed to reparent children of %s: %w", id, err)
			}
			_, err = softDeleteWhere(ctx, tx, st, r.t.Categories, "id = ?", string(id))
			return err

		default:
			return fmt.Errorf("unknown delete mode %q", mode)
		}
	})
}

func (r *CategoryRepository[E]) requireNoLiveChildren(ctx context.Context, q sqlx.ExtContext, id CategoryID[E]) error {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE parent_category_id = ? AND is_deleted = FALSE", r.t.Categories)
	if err := getRow(ctx, q, &n, query, string(id)); err != nil {
		return fmt.Errorf("failed to count children of %s: %w", id, err)
	}
	if n > 0 {
		return fmt.Errorf("%s has %d live children: %w", id, n, ErrHasChildren)
	}
	return nil
}

func (r *CategoryRepository[E]) requireNoLiveMembers(ctx context.Context, q sqlx.ExtContext, id CategoryID[E]) error {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE category_id = ? AND is_deleted = FALSE", r.t.Members)
	if err := getRow(ctx, q, &n, query, string(id)); err != nil {
		return fmt.Errorf("failed to count members of %s: %w", id, err)
	}
	if n > 0 {
		return fmt.Errorf("%s has %d live members: %w", id, n, ErrHasMembers)
	}
	return nil
}

// Restore revives a deleted category together with the descendants and
// memberships deleted at the same instant. Its parent must be live.
func (r *CategoryRepository[E]) Restore(ctx context.Context, id CategoryID[E]) error {
	if err := id.check(); err != nil {
		return err
	}
	return withTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		if err := r.lockTree(ctx, tx); err != nil {
			return err
		}
		tree, err := r.loadTree(ctx, tx)
		if err != nil {
			return err
		}
		node, ok := tree[string(id)]
		if !ok {
			return fmt.Errorf("category %s: %w", id, ErrNotFound)
		}
		if !node.IsDeleted || node.DeletedOn == nil {
			return nil
		}
		if node.ParentID != nil {
			if parent, ok := tree[*node.ParentID]; !ok || parent.IsDeleted {
				return fmt.Errorf("parent %s of %s is deleted: %w", *node.ParentID, id, ErrNotFound)
			}
		}

		deletedOn := *node.DeletedOn
		ids := subtree(tree, string(id), func(n treeNode) bool {
			return n.IsDeleted && n.DeletedOn != nil && n.DeletedOn.Equal(deletedOn)
		})
		if _, err := restoreWhere(ctx, tx, r.t.Categories, deletedOn, "id IN (?)", ids); err != nil {
			return err
		}
		where := fmt.Sprintf("category_id IN (?) AND entity_id IN (SELECT id FROM %s WHERE is_deleted = FALSE)", r.t.Owners)
		_, err = restoreWhere(ctx, tx, r.t.Members, deletedOn, where, ids)
		return err
	})
}
