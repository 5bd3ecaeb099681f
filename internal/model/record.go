package model

import "time"

// Record is the kind-specific row of an element.
type Record interface {
	RecordType() ElementType
}

// EntryRecord is the entries row.
type EntryRecord struct {
	SectionID  int64      `json:"section_id"`
	TypeID     int64      `json:"type_id"`
	AuthorID   *int64     `json:"author_id,omitempty"`
	PostDate   *time.Time `json:"post_date,omitempty"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`

	// ParentID places a new entry of a structure section under a parent.
	ParentID *int64 `json:"-"`
}

// AssetRecord is the assetfiles row.
type AssetRecord struct {
	SourceID int64  `json:"source_id"`
	FolderID int64  `json:"folder_id"`
	Filename string `json:"filename"`
	Kind     string `json:"kind"`
	Width    *int64 `json:"width,omitempty"`
	Height   *int64 `json:"height,omitempty"`
	Size     int64  `json:"size"`

	// NewFilename requests a rename on the next save.
	NewFilename string `json:"-"`
}

// CategoryRecord is the categories row.
type CategoryRecord struct {
	GroupID int64 `json:"group_id"`

	// ParentID places a new category under a parent.
	ParentID *int64 `json:"-"`
}

// TagRecord is the tags row.
type TagRecord struct {
	GroupID int64 `json:"group_id"`
}

// UserRecord is the users row.
type UserRecord struct {
	Username      string     `json:"username"`
	FirstName     string     `json:"first_name,omitempty"`
	LastName      string     `json:"last_name,omitempty"`
	Email         string     `json:"email"`
	Admin         bool       `json:"admin"`
	Client        bool       `json:"client"`
	Locked        bool       `json:"locked"`
	Suspended     bool       `json:"suspended"`
	Pending       bool       `json:"pending"`
	Archived      bool       `json:"archived"`
	LastLoginDate *time.Time `json:"last_login_date,omitempty"`
}

// MatrixBlockRecord is the matrixblocks row.
type MatrixBlockRecord struct {
	OwnerID     int64   `json:"owner_id"`
	OwnerLocale *string `json:"owner_locale,omitempty"`
	FieldID     int64   `json:"field_id"`
	TypeID      int64   `json:"type_id"`
	SortOrder   int     `json:"sort_order"`
}

// GlobalSetRecord is the globalsets row.
type GlobalSetRecord struct {
	Name   string `json:"name"`
	Handle string `json:"handle"`
}

func (*EntryRecord) RecordType() ElementType       { return TypeEntry }
func (*AssetRecord) RecordType() ElementType       { return TypeAsset }
func (*CategoryRecord) RecordType() ElementType    { return TypeCategory }
func (*TagRecord) RecordType() ElementType         { return TypeTag }
func (*UserRecord) RecordType() ElementType        { return TypeUser }
func (*MatrixBlockRecord) RecordType() ElementType { return TypeMatrixBlock }
func (*GlobalSetRecord) RecordType() ElementType   { return TypeGlobalSet }

// Name returns "First Last", falling back to the username.
func (u *UserRecord) Name() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}
