// Package catalog reads and writes the configuration rows elements are
// organized by: sections, entry types, groups, asset sources and folders.
package catalog

// Section types.
const (
	SectionSingle    = "single"
	SectionChannel   = "channel"
	SectionStructure = "structure"
)

// Section groups entries.
type Section struct {
	ID          int64  `json:"id"`
	StructureID *int64 `json:"structure_id,omitempty"`
	Name        string `json:"name"`
	Handle      string `json:"handle"`
	Type        string `json:"type"`
	HasURLs     bool   `json:"has_urls"`
	URIFormat   string `json:"uri_format,omitempty"`
}

// EntryType is one layout of a section.
type EntryType struct {
	ID            int64  `json:"id"`
	SectionID     int64  `json:"section_id"`
	Name          string `json:"name"`
	Handle        string `json:"handle"`
	HasTitleField bool   `json:"has_title_field"`
	SortOrder     int    `json:"sort_order"`
}

// CategoryGroup groups categories; every group owns a structure.
type CategoryGroup struct {
	ID          int64  `json:"id"`
	StructureID *int64 `json:"structure_id,omitempty"`
	Name        string `json:"name"`
	Handle      string `json:"handle"`
	HasURLs     bool   `json:"has_urls"`
	URIFormat   string `json:"uri_format,omitempty"`
}

// TagGroup groups tags.
type TagGroup struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Handle string `json:"handle"`
}

// UserGroup groups users for permissions.
type UserGroup struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Handle string `json:"handle"`
}

// AssetSource is a storage location for asset files.
type AssetSource struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Handle    string `json:"handle"`
	Type      string `json:"type"`
	SortOrder int    `json:"sort_order"`
}

// AssetFolder is a folder inside a source. Path is "" for a source's root
// folder and "a/b/" for nested folders.
type AssetFolder struct {
	ID       int64  `json:"id"`
	ParentID *int64 `json:"parent_id,omitempty"`
	SourceID int64  `json:"source_id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
}

// FolderNode is an AssetFolder with its children.
type FolderNode struct {
	AssetFolder
	Children []*FolderNode `json:"children,omitempty"`
}
