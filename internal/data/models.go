package data

import (
	"time"
)

// Audit holds the bookkeeping columns carried by every persisted row.
type Audit struct {
	CreatedBy      string     `db:"created_by" json:"createdBy"`
	CreatedOn      time.Time  `db:"created_on" json:"createdOn"`
	LastModifiedBy *string    `db:"last_modified_by" json:"lastModifiedBy,omitempty"`
	LastModifiedOn *time.Time `db:"last_modified_on" json:"lastModifiedOn,omitempty"`
	IsDeleted      bool       `db:"is_deleted" json:"isDeleted"`
	DeletedOn      *time.Time `db:"deleted_on" json:"deletedOn,omitempty"`
	RowVersion     int64      `db:"row_version" json:"rowVersion"`
}

// Owner is implemented by the marker type of every owning entity. OwnerType must
// be a constant snake_case name; it prefixes the owner's tables and ids.
type Owner interface {
	OwnerType() string
}

// Owning entity marker types.
type (
	Product         struct{}
	Learner         struct{}
	Parent          struct{}
	Teacher         struct{}
	BlogPost        struct{}
	Advertisement   struct{}
	BusinessListing struct{}
	ActivityGroup   struct{}
	Event           struct{}
)

func (Product) OwnerType() string         { return "product" }
func (Learner) OwnerType() string         { return "learner" }
func (Parent) OwnerType() string          { return "parent" }
func (Teacher) OwnerType() string         { return "teacher" }
func (BlogPost) OwnerType() string        { return "blog_post" }
func (Advertisement) OwnerType() string   { return "advertisement" }
func (BusinessListing) OwnerType() string { return "business_listing" }
func (ActivityGroup) OwnerType() string   { return "activity_group" }
func (Event) OwnerType() string           { return "event" }

// OwnerTypes lists every owner type that has per-type tables.
func OwnerTypes() []string {
	return []string{
		Product{}.OwnerType(),
		Learner{}.OwnerType(),
		Parent{}.OwnerType(),
		Teacher{}.OwnerType(),
		BlogPost{}.OwnerType(),
		Advertisement{}.OwnerType(),
		BusinessListing{}.OwnerType(),
		ActivityGroup{}.OwnerType(),
		Event{}.OwnerType(),
	}
}

// OwnerRecord is the persisted row of an owning entity of type E.
type OwnerRecord[E Owner] struct {
	ID          OwnerID[E] `db:"id" json:"id"`
	DisplayName string     `db:"display_name" json:"displayName"`
	Audit
}

// SubRecord holds the columns shared by every owned sub-record.
type SubRecord struct {
	ID       string `db:"id" json:"id"`
	EntityID string `db:"entity_id" json:"entityId"`
	Default  bool   `db:"is_default" json:"default"`
	Audit
}

// Base returns the columns shared by every sub-record kind.
func (s *SubRecord) Base() *SubRecord { return s }

// Address is a postal address owned by one entity.
type Address struct {
	SubRecord
	AddressType string `db:"address_type" json:"addressType"`
	Line1       string `db:"line1" json:"line1"`
	Line2       string `db:"line2" json:"line2"`
	City        string `db:"city" json:"city"`
	Province    string `db:"province" json:"province"`
	PostalCode  string `db:"postal_code" json:"postalCode"`
	Country     string `db:"country" json:"country"`
}

// ContactNumber is a phone number owned by one entity.
type ContactNumber struct {
	SubRecord
	NumberType string `db:"number_type" json:"numberType"`
	Number     string `db:"number" json:"number"`
}

// EmailAddress is an email address owned by one entity.
type EmailAddress struct {
	SubRecord
	EmailType string `db:"email_type" json:"emailType"`
	Email     string `db:"email" json:"email"`
}

func (Address) subRecordSpec() subRecordSpec {
	return subRecordSpec{
		suffix:  "addresses",
		columns: []string{"address_type", "line1", "line2", "city", "province", "postal_code", "country"},
	}
}

func (ContactNumber) subRecordSpec() subRecordSpec {
	return subRecordSpec{suffix: "contact_numbers", columns: []string{"number_type", "number"}}
}

func (EmailAddress) subRecordSpec() subRecordSpec {
	return subRecordSpec{suffix: "email_addresses", columns: []string{"email_type", "email"}}
}

// Metadata is a key/value pair owned by one entity.
type Metadata struct {
	ID       string `db:"id" json:"id"`
	EntityID string `db:"entity_id" json:"entityId"`
	Key      string `db:"meta_key" json:"key"`
	Value    string `db:"meta_value" json:"value"`
	Audit
}

// MediaKind names one of the shared media tables.
type MediaKind string

const (
	KindDocument MediaKind = "document"
	KindImage    MediaKind = "image"
	KindVideo    MediaKind = "video"
)

// Valid reports whether k is a known media kind.
func (k MediaKind) Valid() bool {
	return k == KindDocument || k == KindImage || k == KindVideo
}

// Table names the shared table holding media of kind k.
func (k MediaKind) Table() string { return string(k) + "s" }

// Column names the foreign key column referencing media of kind k.
func (k MediaKind) Column() string { return string(k) + "_id" }

// Media attachment kind marker types.
type (
	Document struct{}
	Image    struct{}
	Video    struct{}
)

// MediaType is implemented by the media marker types.
type MediaType interface {
	MediaKind() MediaKind
}

func (Document) MediaKind() MediaKind { return KindDocument }
func (Image) MediaKind() MediaKind    { return KindImage }
func (Video) MediaKind() MediaKind    { return KindVideo }

// FileMetadata describes a stored file. The bytes live elsewhere.
type FileMetadata struct {
	DisplayName  string `json:"displayName"`
	FileName     string `json:"fileName"`
	ContentType  string `json:"contentType"`
	Size         int64  `json:"size"`
	RelativePath string `json:"relativePath"`
	// Image only.
	Featured  bool   `json:"featured,omitempty"`
	ImageType string `json:"imageType,omitempty"`
}

// Media is a row of one of the shared media tables.
type Media struct {
	ID           string    `db:"id" json:"id"`
	Kind         MediaKind `db:"-" json:"kind"`
	DisplayName  string    `db:"display_name" json:"displayName"`
	FileName     string    `db:"file_name" json:"fileName"`
	ContentType  string    `db:"content_type" json:"contentType"`
	Size         int64     `db:"size" json:"size"`
	RelativePath string    `db:"relative_path" json:"relativePath"`
	Featured     bool      `db:"featured" json:"featured,omitempty"`
	ImageType    string    `db:"image_type" json:"imageType,omitempty"`
	Audit
}

// Attachment links an owner to a shared media row.
type Attachment struct {
	ID       string  `db:"id" json:"id"`
	EntityID string  `db:"entity_id" json:"entityId"`
	MediaID  string  `db:"media_id" json:"mediaId"`
	Order    int     `db:"sort_order" json:"order"`
	Selector *string `db:"selector" json:"selector,omitempty"`
	Audit
	Media *Media `db:"-" json:"media,omitempty"`
}

// Category is a node of the category tree of owner type E.
type Category[E Owner] struct {
	ID                  CategoryID[E]  `db:"id" json:"id"`
	ParentCategoryID    *CategoryID[E] `db:"parent_category_id" json:"parentCategoryId,omitempty"`
	Name                string         `db:"name" json:"name"`
	Description         string         `db:"description" json:"description"`
	Active              bool           `db:"active" json:"active"`
	Featured            bool           `db:"featured" json:"featured"`
	DisplayInMainMenu   bool           `db:"display_in_main_menu" json:"displayInMainMenu"`
	DisplayAsSliderItem bool           `db:"display_as_slider_item" json:"displayAsSliderItem"`
	Slogan              string         `db:"slogan" json:"slogan"`
	SubSlogan           string         `db:"sub_slogan" json:"subSlogan"`
	WebTags             string         `db:"web_tags" json:"webTags"`
	Audit
}

// Membership links an owner to a category of the same owner type.
type Membership[E Owner] struct {
	ID         string        `db:"id" json:"id"`
	EntityID   OwnerID[E]    `db:"entity_id" json:"entityId"`
	CategoryID CategoryID[E] `db:"category_id" json:"categoryId"`
	Audit
}

// DeleteMode selects how CategoryRepository.Delete treats descendants.
type DeleteMode string

const (
	DeleteRestrict         DeleteMode = "restrict"
	DeleteCascade          DeleteMode = "cascade"
	DeleteReparentChildren DeleteMode = "reparent"
)
