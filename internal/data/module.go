package data

import "github.com/jmoiron/sqlx"

// Module bundles every repository of owner type E. NewModule is the single
// place an owner type acquires sub-records, metadata, attachments and a
// category tree.
type Module[E Owner] struct {
	Owners         *OwnerRepository[E]
	Addresses      *SubRecordRepository[E, Address, *Address]
	ContactNumbers *SubRecordRepository[E, ContactNumber, *ContactNumber]
	EmailAddresses *SubRecordRepository[E, EmailAddress, *EmailAddress]
	Metadata       *MetadataRepository[E]
	Documents      *AttachmentRepository[E, Document]
	Images         *AttachmentRepository[E, Image]
	Videos         *AttachmentRepository[E, Video]
	Categories     *CategoryRepository[E]
	Memberships    *MembershipRepository[E]
}

// NewModule creates the repositories of owner type E. Its tables must exist;
// see ApplyOwnerSchemas.
func NewModule[E Owner](db *sqlx.DB) *Module[E] {
	return &Module[E]{
		Owners:         NewOwnerRepository[E](db),
		Addresses:      NewSubRecordRepository[E, Address, *Address](db),
		ContactNumbers: NewSubRecordRepository[E, ContactNumber, *ContactNumber](db),
		EmailAddresses: NewSubRecordRepository[E, EmailAddress, *EmailAddress](db),
		Metadata:       NewMetadataRepository[E](db),
		Documents:      NewAttachmentRepository[E, Document](db),
		Images:         NewAttachmentRepository[E, Image](db),
		Videos:         NewAttachmentRepository[E, Video](db),
		Categories:     NewCategoryRepository[E](db),
		Memberships:    NewMembershipRepository[E](db),
	}
}

// OwnerType returns the owner type name of E.
func (m *Module[E]) OwnerType() string { return ownerTypeOf[E]() }
