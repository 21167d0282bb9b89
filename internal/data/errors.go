package data

import (
	"errors"
	"fmt"
)

// Domain errors. Callers match them with errors.Is; everything else returned by
// this package is an infrastructure failure.
var (
	ErrNotFound            = errors.New("not found")
	ErrOwnerNotFound       = fmt.Errorf("owner %w", ErrNotFound)
	ErrOwnerDeleted        = errors.New("owner is deleted")
	ErrConcurrencyConflict = errors.New("concurrency conflict: row version is stale")
	ErrCycleDetected       = errors.New("category cycle detected")
	ErrHasChildren         = errors.New("category has children")
	ErrHasMembers          = errors.New("category has members")
	ErrDuplicateAttachment = errors.New("media is already attached to this owner")
	ErrDuplicateMembership = errors.New("owner is already a member of this category")
	ErrIncompleteOrderSet  = errors.New("order set must list every attachment of the owner exactly once")
	ErrCrossTypeViolation  = errors.New("id belongs to a different owner type")
	ErrMediaInUse          = errors.New("media is still attached")
)

// Code returns a short machine-readable code for err. Unknown errors map to "internal".
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrOwnerDeleted):
		return "owner_deleted"
	case errors.Is(err, ErrOwnerNotFound):
		return "owner_not_found"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConcurrencyConflict):
		return "concurrency_conflict"
	case errors.Is(err, ErrCycleDetected):
		return "cycle_detected"
	case errors.Is(err, ErrHasChildren):
		return "has_children"
	case errors.Is(err, ErrHasMembers):
		return "has_members"
	case errors.Is(err, ErrDuplicateAttachment):
		return "duplicate_attachment"
	case errors.Is(err, ErrDuplicateMembership):
		return "duplicate_membership"
	case errors.Is(err, ErrIncompleteOrderSet):
		return "incomplete_order_set"
	case errors.Is(err, ErrCrossTypeViolation):
		return "cross_type_violation"
	case errors.Is(err, ErrMediaInUse):
		return "media_in_use"
	default:
		return "internal"
	}
}
