package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go-school-admin/internal/data"
	"go-school-admin/internal/service"

	"gopkg.in/yaml.v3"
)

// DocumentYAML is the seed file: one section per owner type, keyed by the
// owner type name.
type DocumentYAML map[string]*TypeYAML

// TypeYAML seeds the category tree and owners of one owner type.
type TypeYAML struct {
	// Categories are slash separated paths from a root, e.g. "Sport/Soccer".
	Categories []string     `yaml:"categories,omitempty"`
	Owners     []*OwnerYAML `yaml:"owners,omitempty"`
}

// OwnerYAML seeds one owner, found or created by display name.
type OwnerYAML struct {
	Name       string            `yaml:"name"`
	Categories []string          `yaml:"categories,omitempty"`
	Metadata   map[string]string `yaml:"metadata,omitempty"`
}

// Result counts what an import changed.
type Result struct {
	Categories  int
	Owners      int
	Memberships int
}

// Add accumulates o into r.
func (r *Result) Add(o Result) {
	r.Categories += o.Categories
	r.Owners += o.Owners
	r.Memberships += o.Memberships
}

// LoadYAML reads a seed document from path.
func LoadYAML(path string) (DocumentYAML, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseYAML(raw)
}

// ParseYAML parses a seed document.
func ParseYAML(raw []byte) (DocumentYAML, error) {
	var doc DocumentYAML
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	for ownerType, section := range doc {
		if section == nil {
			doc[ownerType] = &TypeYAML{}
			continue
		}
		for i, o := range section.Owners {
			if o == nil || strings.TrimSpace(o.Name) == "" {
				return nil, fmt.Errorf("%s owner %d has no name", ownerType, i)
			}
		}
	}
	return doc, nil
}

func splitPath(p string) []string {
	var names []string
	for _, n := range strings.Split(p, "/") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// Import applies one section to owner type E. Running it twice changes nothing
// the second time.
func Import[E data.Owner](ctx context.Context, owners *service.OwnerService[E], categories *service.CategoryService[E], section *TypeYAML) (Result, error) {
	var res Result
	if section == nil {
		return res, nil
	}

	known, err := categories.List(ctx, false)
	if err != nil {
		return res, err
	}
	before := len(known)
	ensure := func(p string) (*data.Category[E], error) {
		names := splitPath(p)
		if len(names) == 0 {
			return nil, fmt.Errorf("empty category path %q: %w", p, service.ErrInvalidInput)
		}
		return categories.EnsurePath(ctx, names...)
	}
	for _, p := range section.Categories {
		if _, err := ensure(p); err != nil {
			return res, fmt.Errorf("category %q: %w", p, err)
		}
	}

	existing, err := owners.List(ctx, false)
	if err != nil {
		return res, err
	}
	byName := make(map[string]*data.OwnerRecord[E], len(existing))
	for _, o := range existing {
		byName[o.DisplayName] = o
	}

	for _, o := range section.Owners {
		name := service.CleanText(o.Name)
		rec, ok := byName[name]
		if !ok {
			if rec, err = owners.Create(ctx, name); err != nil {
				return res, fmt.Errorf("owner %q: %w", name, err)
			}
			byName[rec.DisplayName] = rec
			res.Owners++
		}
		for _, p := range o.Categories {
			cat, err := ensure(p)
			if err != nil {
				return res, fmt.Errorf("owner %q category %q: %w", name, p, err)
			}
			_, err = owners.AddToCategory(ctx, rec.ID, cat.ID)
			switch {
			case err == nil:
				res.Memberships++
			case errors.Is(err, data.ErrDuplicateMembership):
			default:
				return res, fmt.Errorf("owner %q category %q: %w", name, p, err)
			}
		}
		for k, v := range o.Metadata {
			if _, err := owners.SetMetadata(ctx, rec.ID, k, v); err != nil {
				return res, fmt.Errorf("owner %q metadata %q: %w", name, k, err)
			}
		}
	}

	after, err := categories.List(ctx, false)
	if err != nil {
		return res, err
	}
	res.Categories = len(after) - before
	return res, nil
}
