package service

import (
	"context"
	"fmt"

	"go-school-admin/internal/data"
)

// SubRecordPtr is satisfied by pointers to the sub-record kinds.
type SubRecordPtr[R any] interface {
	*R
	Base() *data.SubRecord
}

// SubRecordRepository defines the interface for one kind of owned sub-record.
type SubRecordRepository[E data.Owner, R any, PR SubRecordPtr[R]] interface {
	Attach(ctx context.Context, owner data.OwnerID[E], rec PR) error
	Get(ctx context.Context, id string, includeDeleted bool) (PR, error)
	List(ctx context.Context, owner data.OwnerID[E], includeDeleted bool) ([]R, error)
	Default(ctx context.Context, owner data.OwnerID[E]) (PR, error)
	SetDefault(ctx context.Context, owner data.OwnerID[E], recordID string) error
	Update(ctx context.Context, rec PR) error
	Detach(ctx context.Context, id string) error
}

var _ SubRecordRepository[data.Teacher, data.Address, *data.Address] = (*data.SubRecordRepository[data.Teacher, data.Address, *data.Address])(nil)

// SubRecordService wraps the multi-step sub-record writes in spans.
type SubRecordService[E data.Owner, R any, PR SubRecordPtr[R]] struct {
	repo      SubRecordRepository[E, R, PR]
	name      string
	ownerType string
}

// NewSubRecordService creates a new SubRecordService; name labels its spans.
func NewSubRecordService[E data.Owner, R any, PR SubRecordPtr[R]](repo SubRecordRepository[E, R, PR], name string) *SubRecordService[E, R, PR] {
	var e E
	return &SubRecordService[E, R, PR]{repo: repo, name: name, ownerType: e.OwnerType()}
}

// Attach adds rec to the owner, replacing the default if rec is one.
func (s *SubRecordService[E, R, PR]) Attach(ctx context.Context, owner data.OwnerID[E], rec PR) (err error) {
	ctx, span := startSpan(ctx, s.name+".Attach", s.ownerType)
	defer func() { endSpan(span, err) }()
	return s.repo.Attach(ctx, owner, rec)
}

// Get returns one of the owner's records. Records of other owners are
// reported as missing.
func (s *SubRecordService[E, R, PR]) Get(ctx context.Context, owner data.OwnerID[E], id string) (PR, error) {
	rec, err := s.repo.Get(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if rec.Base().EntityID != string(owner) {
		return nil, fmt.Errorf("%s %s of %s: %w", s.name, id, owner, data.ErrNotFound)
	}
	return rec, nil
}

// List returns the owner's records, default first.
func (s *SubRecordService[E, R, PR]) List(ctx context.Context, owner data.OwnerID[E], includeDeleted bool) ([]R, error) {
	return s.repo.List(ctx, owner, includeDeleted)
}

// Default returns the owner's default record.
func (s *SubRecordService[E, R, PR]) Default(ctx context.Context, owner data.OwnerID[E]) (PR, error) {
	return s.repo.Default(ctx, owner)
}

// SetDefault makes recordID the owner's only default.
func (s *SubRecordService[E, R, PR]) SetDefault(ctx context.Context, owner data.OwnerID[E], recordID string) (err error) {
	ctx, span := startSpan(ctx, s.name+".SetDefault", s.ownerType)
	defer func() { endSpan(span, err) }()
	return s.repo.SetDefault(ctx, owner, recordID)
}

// Update writes rec over the owner's record id. rec must carry the row version
// it was read at.
func (s *SubRecordService[E, R, PR]) Update(ctx context.Context, owner data.OwnerID[E], id string, rec PR) (err error) {
	ctx, span := startSpan(ctx, s.name+".Update", s.ownerType)
	defer func() { endSpan(span, err) }()

	if _, err := s.Get(ctx, owner, id); err != nil {
		return err
	}
	base := rec.Base()
	base.ID = id
	base.EntityID = string(owner)
	return s.repo.Update(ctx, rec)
}

// Detach removes one of the owner's records.
func (s *SubRecordService[E, R, PR]) Detach(ctx context.Context, owner data.OwnerID[E], id string) (err error) {
	ctx, span := startSpan(ctx, s.name+".Detach", s.ownerType)
	defer func() { endSpan(span, err) }()

	if _, err := s.Get(ctx, owner, id); err != nil {
		return err
	}
	return s.repo.Detach(ctx, id)
}
