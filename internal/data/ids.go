package data

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// OwnerID identifies an owning entity of type E. The string form is
// "<owner_type>:<uuid>", so an id can be checked against its tree at runtime as
// well as at compile time.
type OwnerID[E Owner] string

// CategoryID identifies a node of the category tree of owner type E.
type CategoryID[E Owner] string

func ownerTypeOf[E Owner]() string {
	var e E
	return e.OwnerType()
}

func newTaggedID[E Owner]() string {
	return ownerTypeOf[E]() + ":" + uuid.NewString()
}

func checkTagged(ownerType, s string) error {
	tag, raw, ok := strings.Cut(s, ":")
	if !ok {
		return fmt.Errorf("malformed id %q: %w", s, ErrNotFound)
	}
	if tag != ownerType {
		return fmt.Errorf("id %q is tagged %q, want %q: %w", s, tag, ownerType, ErrCrossTypeViolation)
	}
	if _, err := uuid.Parse(raw); err != nil {
		return fmt.Errorf("malformed id %q: %w", s, ErrNotFound)
	}
	return nil
}

// ParseOwnerID validates s as an id of an owner of type E.
func ParseOwnerID[E Owner](s string) (OwnerID[E], error) {
	if err := checkTagged(ownerTypeOf[E](), s); err != nil {
		return "", err
	}
	return OwnerID[E](s), nil
}

// ParseCategoryID validates s as an id of a category in the tree of type E.
func ParseCategoryID[E Owner](s string) (CategoryID[E], error) {
	if err := checkTagged(ownerTypeOf[E](), s); err != nil {
		return "", err
	}
	return CategoryID[E](s), nil
}

func (id OwnerID[E]) check() error    { return checkTagged(ownerTypeOf[E](), string(id)) }
func (id CategoryID[E]) check() error { return checkTagged(ownerTypeOf[E](), string(id)) }
