package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go-school-admin/internal/cache"
	"go-school-admin/internal/data"
	"go-school-admin/internal/logger"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
)

// CategoryRepository defines the interface for database operations on one
// category tree.
type CategoryRepository[E data.Owner] interface {
	Create(ctx context.Context, c *data.Category[E]) error
	GetByID(ctx context.Context, id data.CategoryID[E], includeDeleted bool) (*data.Category[E], error)
	GetAll(ctx context.Context, includeDeleted bool) ([]*data.Category[E], error)
	FindByName(ctx context.Context, name string, parent *data.CategoryID[E]) (*data.Category[E], error)
	SearchByName(ctx context.Context, query string) ([]*data.Category[E], error)
	Children(ctx context.Context, id *data.CategoryID[E], includeDeleted bool) ([]*data.Category[E], error)
	Ancestors(ctx context.Context, id data.CategoryID[E]) ([]*data.Category[E], error)
	Update(ctx context.Context, c *data.Category[E]) error
	Move(ctx context.Context, id data.CategoryID[E], newParent *data.CategoryID[E], rowVersion int64) error
	Delete(ctx context.Context, id data.CategoryID[E], mode data.DeleteMode) error
	Restore(ctx context.Context, id data.CategoryID[E]) error
}

var _ CategoryRepository[data.Product] = (*data.CategoryRepository[data.Product])(nil)

// CategoryInput carries the editable fields of a category.
type CategoryInput struct {
	Name                string `json:"name"`
	Description         string `json:"description"`
	Active              *bool  `json:"active,omitempty"`
	Featured            bool   `json:"featured"`
	DisplayInMainMenu   bool   `json:"displayInMainMenu"`
	DisplayAsSliderItem bool   `json:"displayAsSliderItem"`
	Slogan              string `json:"slogan"`
	SubSlogan           string `json:"subSlogan"`
	WebTags             string `json:"webTags"`
}

// CategoryNode is one node of an assembled category tree.
type CategoryNode[E data.Owner] struct {
	Category        *data.Category[E]  `json:"category"`
	DescriptionHTML string             `json:"descriptionHtml"`
	Children        []*CategoryNode[E] `json:"children"`
}

// CategoryService provides business logic for one owner type's category tree.
type CategoryService[E data.Owner] struct {
	repo      CategoryRepository[E]
	cache     cache.Cache
	ttl       time.Duration
	log       logger.Logger
	sanitizer *bluemonday.Policy
	markdown  goldmark.Markdown
	group     singleflight.Group
	gen       atomic.Uint64 // bumped by every invalidation
	ownerType string
}

// NewCategoryService creates a new CategoryService. The assembled tree is
// cached for ttl under a key private to the owner type.
func NewCategoryService[E data.Owner](repo CategoryRepository[E], c cache.Cache, ttl time.Duration, log logger.Logger) *CategoryService[E] {
	var e E
	return &CategoryService[E]{
		repo:      repo,
		cache:     c,
		ttl:       ttl,
		log:       log.With(map[string]interface{}{"service": "categories", "owner_type": e.OwnerType()}),
		sanitizer: bluemonday.UGCPolicy(),
		markdown:  goldmark.New(),
		ownerType: e.OwnerType(),
	}
}

func (s *CategoryService[E]) treeKey() string {
	return "category_tree:" + s.ownerType
}

// apply copies sanitized input onto c. A nil Active keeps the current flag.
func (s *CategoryService[E]) apply(c *data.Category[E], in CategoryInput) error {
	name := CleanText(in.Name)
	if name == "" {
		return fmt.Errorf("category name is required: %w", ErrInvalidInput)
	}
	c.Name = name
	// Descriptions are markdown; they are sanitized after rendering.
	c.Description = strings.TrimSpace(in.Description)
	if in.Active != nil {
		c.Active = *in.Active
	}
	c.Featured = in.Featured
	c.DisplayInMainMenu = in.DisplayInMainMenu
	c.DisplayAsSliderItem = in.DisplayAsSliderItem
	c.Slogan = CleanText(in.Slogan)
	c.SubSlogan = CleanText(in.SubSlogan)
	c.WebTags = CleanText(in.WebTags)
	return nil
}

// invalidate drops the cached tree. A failure only delays freshness until the
// TTL runs out, so it is logged rather than returned.
func (s *CategoryService[E]) invalidate(ctx context.Context) {
	s.gen.Add(1)
	if err := s.cache.Delete(ctx, s.treeKey()); err != nil {
		s.log.Error(err, "failed to invalidate category tree cache")
	}
}

// Create adds a category under parent, or a root when parent is nil.
func (s *CategoryService[E]) Create(ctx context.Context, parent *data.CategoryID[E], in CategoryInput) (_ *data.Category[E], err error) {
	ctx, span := startSpan(ctx, "CategoryService.Create", s.ownerType)
	defer func() { endSpan(span, err) }()

	c := &data.Category[E]{ParentCategoryID: parent, Active: true}
	if err := s.apply(c, in); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return c, nil
}

// EnsurePath returns the category at the end of names, creating every missing
// level on the way down from the root.
func (s *CategoryService[E]) EnsurePath(ctx context.Context, names ...string) (_ *data.Category[E], err error) {
	ctx, span := startSpan(ctx, "CategoryService.EnsurePath", s.ownerType)
	defer func() { endSpan(span, err) }()

	if len(names) == 0 {
		return nil, fmt.Errorf("empty category path: %w", ErrInvalidInput)
	}
	var (
		parent  *data.CategoryID[E]
		current *data.Category[E]
		created bool
	)
	for _, raw := range names {
		name := CleanText(raw)
		current, err = s.repo.FindByName(ctx, name, parent)
		if err != nil {
			return nil, err
		}
		if current == nil {
			current = &data.Category[E]{ParentCategoryID: parent, Active: true}
			if err := s.apply(current, CategoryInput{Name: name}); err != nil {
				return nil, err
			}
			if err := s.repo.Create(ctx, current); err != nil {
				return nil, err
			}
			created = true
		}
		id := current.ID
		parent = &id
	}
	if created {
		s.invalidate(ctx)
	}
	return current, nil
}

// Get returns one live category.
func (s *CategoryService[E]) Get(ctx context.Context, id data.CategoryID[E]) (*data.Category[E], error) {
	return s.repo.GetByID(ctx, id, false)
}

// List returns every category ordered by name.
func (s *CategoryService[E]) List(ctx context.Context, includeDeleted bool) ([]*data.Category[E], error) {
	return s.repo.GetAll(ctx, includeDeleted)
}

// Search returns the live categories whose name contains query.
func (s *CategoryService[E]) Search(ctx context.Context, query string) ([]*data.Category[E], error) {
	return s.repo.SearchByName(ctx, CleanText(query))
}

// Children lists the direct children of id, or the roots when id is nil.
func (s *CategoryService[E]) Children(ctx context.Context, id *data.CategoryID[E], includeDeleted bool) ([]*data.Category[E], error) {
	return s.repo.Children(ctx, id, includeDeleted)
}

// Path returns the categories from the root down to and including id.
func (s *CategoryService[E]) Path(ctx context.Context, id data.CategoryID[E]) ([]*data.Category[E], error) {
	self, err := s.repo.GetByID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	ancestors, err := s.repo.Ancestors(ctx, id)
	if err != nil {
		return nil, err
	}
	return append(ancestors, self), nil
}

// Update replaces the presentation fields of a category read at rowVersion.
func (s *CategoryService[E]) Update(ctx context.Context, id data.CategoryID[E], rowVersion int64, in CategoryInput) (_ *data.Category[E], err error) {
	ctx, span := startSpan(ctx, "CategoryService.Update", s.ownerType)
	defer func() { endSpan(span, err) }()

	c, err := s.repo.GetByID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if err := s.apply(c, in); err != nil {
		return nil, err
	}
	c.RowVersion = rowVersion
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return c, nil
}

// Move re-parents a category read at rowVersion; a nil parent makes it a root.
func (s *CategoryService[E]) Move(ctx context.Context, id data.CategoryID[E], parent *data.CategoryID[E], rowVersion int64) (err error) {
	ctx, span := startSpan(ctx, "CategoryService.Move", s.ownerType)
	defer func() { endSpan(span, err) }()

	if err := s.repo.Move(ctx, id, parent, rowVersion); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// ParseDeleteMode maps a request parameter to a delete mode; empty means restrict.
func ParseDeleteMode(s string) (data.DeleteMode, error) {
	switch data.DeleteMode(s) {
	case "", data.DeleteRestrict:
		return data.DeleteRestrict, nil
	case data.DeleteCascade:
		return data.DeleteCascade, nil
	case data.DeleteReparentChildren, "reparentChildren":
		return data.DeleteReparentChildren, nil
	default:
		return "", fmt.Errorf("unknown delete mode %q: %w", s, ErrInvalidInput)
	}
}

// Delete soft-deletes a category according to mode.
func (s *CategoryService[E]) Delete(ctx context.Context, id data.CategoryID[E], mode data.DeleteMode) (err error) {
	ctx, span := startSpan(ctx, "CategoryService.Delete", s.ownerType)
	span.SetAttributes(attribute.String("category.delete_mode", string(mode)))
	defer func() { endSpan(span, err) }()

	if err := s.repo.Delete(ctx, id, mode); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Restore revives a deleted category and what was deleted along with it.
func (s *CategoryService[E]) Restore(ctx context.Context, id data.CategoryID[E]) (err error) {
	ctx, span := startSpan(ctx, "CategoryService.Restore", s.ownerType)
	defer func() { endSpan(span, err) }()

	if err := s.repo.Restore(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Tree returns the live category forest with rendered descriptions. It is served
// from the cache when possible; concurrent misses share one load.
func (s *CategoryService[E]) Tree(ctx context.Context) (_ []*CategoryNode[E], err error) {
	ctx, span := startSpan(ctx, "CategoryService.Tree", s.ownerType)
	defer func() { endSpan(span, err) }()

	key := s.treeKey()
	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Error(err, "failed to read category tree cache")
	}
	if cached != nil {
		var tree []*CategoryNode[E]
		if err := json.Unmarshal(cached, &tree); err == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return tree, nil
		}
		s.log.Warn("discarding undecodable category tree cache entry")
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	gen := s.gen.Load()
	v, err, _ := s.group.Do(fmt.Sprintf("%s#%d", key, gen), func() (interface{}, error) {
		tree, err := s.buildTree(ctx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(tree)
		if err != nil {
			return nil, fmt.Errorf("failed to encode category tree: %w", err)
		}
		if s.gen.Load() != gen {
			return tree, nil
		}
		if err := s.cache.Set(ctx, key, encoded, s.ttl); err != nil {
			s.log.Error(err, "failed to write category tree cache")
		}
		// An invalidation that raced the write may have run its delete first.
		if s.gen.Load() != gen {
			s.invalidate(ctx)
		}
		return tree, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*CategoryNode[E]), nil
}

// buildTree assembles the live forest from one flat listing.
func (s *CategoryService[E]) buildTree(ctx context.Context) ([]*CategoryNode[E], error) {
	all, err := s.repo.GetAll(ctx, false)
	if err != nil {
		return nil, err
	}

	nodes := make(map[data.CategoryID[E]]*CategoryNode[E], len(all))
	for _, c := range all {
		html, err := s.render(c.Description)
		if err != nil {
			return nil, err
		}
		nodes[c.ID] = &CategoryNode[E]{Category: c, DescriptionHTML: html, Children: []*CategoryNode[E]{}}
	}

	roots := []*CategoryNode[E]{}
	// all is ordered by name, so children come out ordered too.
	for _, c := range all {
		node := nodes[c.ID]
		if c.ParentCategoryID == nil {
			roots = append(roots, node)
			continue
		}
		if parent, ok := nodes[*c.ParentCategoryID]; ok {
			parent.Children = append(parent.Children, node)
		}
	}
	return roots, nil
}

// render turns a markdown description into sanitized HTML.
func (s *CategoryService[E]) render(markdown string) (string, error) {
	if markdown == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to render category description: %w", err)
	}
	return s.sanitizer.Sanitize(buf.String()), nil
}
