package catalog

import (
	"database/sql"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aidanlsb/elements/internal/field"
	"github.com/aidanlsb/elements/internal/structure"
)

// Project is the declarative layout loaded from project.yaml.
type Project struct {
	Sections       []SectionSpec       `yaml:"sections"`
	CategoryGroups []CategoryGroupSpec `yaml:"category_groups"`
	TagGroups      []GroupSpec         `yaml:"tag_groups"`
	UserGroups     []GroupSpec         `yaml:"user_groups"`
	AssetSources   []AssetSourceSpec   `yaml:"asset_sources"`
	Fields         []FieldSpec         `yaml:"fields"`
	GlobalSets     []GroupSpec         `yaml:"global_sets"`
}

// SectionSpec declares a section and its entry types.
type SectionSpec struct {
	Name       string          `yaml:"name"`
	Handle     string          `yaml:"handle"`
	Type       string          `yaml:"type"`
	HasURLs    *bool           `yaml:"has_urls,omitempty"`
	URIFormat  string          `yaml:"uri_format,omitempty"`
	MaxLevels  int             `yaml:"max_levels,omitempty"`
	EntryTypes []EntryTypeSpec `yaml:"entry_types,omitempty"`
}

// EntryTypeSpec declares an entry type.
type EntryTypeSpec struct {
	Name          string `yaml:"name"`
	Handle        string `yaml:"handle"`
	HasTitleField *bool  `yaml:"has_title_field,omitempty"`
}

// CategoryGroupSpec declares a category group.
type CategoryGroupSpec struct {
	Name      string `yaml:"name"`
	Handle    string `yaml:"handle"`
	URIFormat string `yaml:"uri_format,omitempty"`
	MaxLevels int    `yaml:"max_levels,omitempty"`
}

// GroupSpec declares a tag group, user group or global set.
type GroupSpec struct {
	Name   string `yaml:"name"`
	Handle string `yaml:"handle"`
}

// AssetSourceSpec declares a source and its folder tree.
type AssetSourceSpec struct {
	Name    string       `yaml:"name"`
	Handle  string       `yaml:"handle"`
	Type    string       `yaml:"type,omitempty"`
	Folders []FolderSpec `yaml:"folders,omitempty"`
}

// FolderSpec declares a folder and its children.
type FolderSpec struct {
	Name    string       `yaml:"name"`
	Folders []FolderSpec `yaml:"folders,omitempty"`
}

// FieldSpec declares a field; Matrix fields carry block types.
type FieldSpec struct {
	field.Field `yaml:",inline"`
	BlockTypes  []BlockTypeSpec `yaml:"block_types,omitempty"`
}

// BlockTypeSpec declares a Matrix block type and its fields.
type BlockTypeSpec struct {
	Name   string      `yaml:"name"`
	Handle string      `yaml:"handle"`
	Fields []FieldSpec `yaml:"fields"`
}

// ApplyResult counts what Apply wrote.
type ApplyResult struct {
	Sections       int `json:"sections"`
	EntryTypes     int `json:"entry_types"`
	CategoryGroups int `json:"category_groups"`
	TagGroups      int `json:"tag_groups"`
	UserGroups     int `json:"user_groups"`
	AssetSources   int `json:"asset_sources"`
	Folders        int `json:"folders"`
	Fields         int `json:"fields"`
	BlockTypes     int `json:"block_types"`
}

// LoadProject reads and validates a project file.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project file %s: %w", path, err)
	}
	p, err := ParseProject(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse project file %s: %w", path, err)
	}
	return p, nil
}

// ParseProject decodes and validates project YAML.
func ParseProject(data []byte) (*Project, error) {
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks handles and section types.
func (p *Project) Validate() error {
	seen := map[string]bool{}
	check := func(kind, handle string) error {
		if handle == "" {
			return fmt.Errorf("%s: handle is required", kind)
		}
		key := kind + ":" + handle
		if seen[key] {
			return fmt.Errorf("%s %q declared twice", kind, handle)
		}
		seen[key] = true
		return nil
	}

	for _, s := range p.Sections {
		if err := check("section", s.Handle); err != nil {
			return err
		}
		switch s.Type {
		case "", SectionChannel, SectionSingle, SectionStructure:
		default:
			return fmt.Errorf("section %q: unknown type %q", s.Handle, s.Type)
		}
		for _, et := range s.EntryTypes {
			if err := check("entry type "+s.Handle, et.Handle); err != nil {
				return err
			}
		}
	}
	for _, g := range p.CategoryGroups {
		if err := check("category group", g.Handle); err != nil {
			return err
		}
	}
	for _, g := range p.TagGroups {
		if err := check("tag group", g.Handle); err != nil {
			return err
		}
	}
	for _, g := range p.UserGroups {
		if err := check("user group", g.Handle); err != nil {
			return err
		}
	}
	for _, s := range p.AssetSources {
		if err := check("asset source", s.Handle); err != nil {
			return err
		}
	}
	for _, g := range p.GlobalSets {
		if err := check("global set", g.Handle); err != nil {
			return err
		}
	}
	return validateFields("field", p.Fields, seen)
}

func validateFields(kind string, fields []FieldSpec, seen map[string]bool) error {
	for _, f := range fields {
		if f.Handle == "" {
			return fmt.Errorf("%s: handle is required", kind)
		}
		key := kind + ":" + f.Handle
		if seen[key] {
			return fmt.Errorf("%s %q declared twice", kind, f.Handle)
		}
		seen[key] = true
		if !field.IsKnownType(f.Type) {
			return fmt.Errorf("field %q: unknown type %q", f.Handle, f.Type)
		}
		if len(f.BlockTypes) > 0 && f.Type != field.TypeMatrix {
			return fmt.Errorf("field %q: only Matrix fields have block types", f.Handle)
		}
		for _, bt := range f.BlockTypes {
			if err := validateFields("block type "+f.Handle+"."+bt.Handle, bt.Fields, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

// Apply upserts every declared row by handle. Run it inside a transaction.
func (c *Catalog) Apply(p *Project) (*ApplyResult, error) {
	res := &ApplyResult{}

	for _, s := range p.Sections {
		if err := c.applySection(s, res); err != nil {
			return nil, err
		}
	}
	for _, g := range p.CategoryGroups {
		if err := c.applyCategoryGroup(g); err != nil {
			return nil, err
		}
		res.CategoryGroups++
	}
	for _, g := range p.TagGroups {
		if err := c.upsertSimpleGroup("taggroups", g); err != nil {
			return nil, err
		}
		res.TagGroups++
	}
	for _, g := range p.UserGroups {
		if err := c.upsertSimpleGroup("usergroups", g); err != nil {
			return nil, err
		}
		res.UserGroups++
	}
	for i, s := range p.AssetSources {
		if err := c.applyAssetSource(s, i, res); err != nil {
			return nil, err
		}
	}
	for _, f := range p.Fields {
		if err := c.applyField(field.GlobalContext, f, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (c *Catalog) applySection(s SectionSpec, res *ApplyResult) error {
	typ := s.Type
	if typ == "" {
		typ = SectionChannel
	}
	hasURLs := s.URIFormat != ""
	if s.HasURLs != nil {
		hasURLs = *s.HasURLs
	}
	name := defaultName(s.Name, s.Handle)

	var id int64
	var sid sql.NullInt64
	err := c.db.QueryRow(`
		INSERT INTO sections (name, handle, type, hasUrls, uriFormat) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(handle) DO UPDATE SET name = excluded.name, type = excluded.type,
			hasUrls = excluded.hasUrls, uriFormat = excluded.uriFormat
		RETURNING id, structureId`,
		name, s.Handle, typ, hasURLs, nullString(s.URIFormat),
	).Scan(&id, &sid)
	if err != nil {
		return fmt.Errorf("save section %s: %w", s.Handle, err)
	}
	res.Sections++

	if typ == SectionStructure && !sid.Valid {
		structureID, err := structure.Create(c.db, s.MaxLevels)
		if err != nil {
			return err
		}
		if _, err := c.db.Exec("UPDATE sections SET structureId = ? WHERE id = ?", structureID, id); err != nil {
			return fmt.Errorf("attach structure to %s: %w", s.Handle, err)
		}
	}

	entryTypes := s.EntryTypes
	if len(entryTypes) == 0 {
		entryTypes = []EntryTypeSpec{{Name: name, Handle: s.Handle}}
	}
	for i, et := range entryTypes {
		hasTitle := true
		if et.HasTitleField != nil {
			hasTitle = *et.HasTitleField
		}
		if _, err := c.db.Exec(`
			INSERT INTO entrytypes (sectionId, name, handle, hasTitleField, sortOrder) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(sectionId, handle) DO UPDATE SET name = excluded.name,
				hasTitleField = excluded.hasTitleField, sortOrder = excluded.sortOrder`,
			id, defaultName(et.Name, et.Handle), et.Handle, hasTitle, i+1,
		); err != nil {
			return fmt.Errorf("save entry type %s: %w", et.Handle, err)
		}
		res.EntryTypes++
	}
	return nil
}

func (c *Catalog) applyCategoryGroup(g CategoryGroupSpec) error {
	var id int64
	var sid sql.NullInt64
	err := c.db.QueryRow(`
		INSERT INTO categorygroups (name, handle, hasUrls, uriFormat) VALUES (?, ?, ?, ?)
		ON CONFLICT(handle) DO UPDATE SET name = excluded.name, hasUrls = excluded.hasUrls, uriFormat = excluded.uriFormat
		RETURNING id, structureId`,
		defaultName(g.Name, g.Handle), g.Handle, g.URIFormat != "", nullString(g.URIFormat),
	).Scan(&id, &sid)
	if err != nil {
		return fmt.Errorf("save category group %s: %w", g.Handle, err)
	}
	if sid.Valid {
		return nil
	}
	structureID, err := structure.Create(c.db, g.MaxLevels)
	if err != nil {
		return err
	}
	if _, err := c.db.Exec("UPDATE categorygroups SET structureId = ? WHERE id = ?", structureID, id); err != nil {
		return fmt.Errorf("attach structure to %s: %w", g.Handle, err)
	}
	return nil
}

func (c *Catalog) upsertSimpleGroup(table string, g GroupSpec) error {
	if _, err := c.db.Exec(
		"INSERT INTO "+table+" (name, handle) VALUES (?, ?) ON CONFLICT(handle) DO UPDATE SET name = excluded.name",
		defaultName(g.Name, g.Handle), g.Handle,
	); err != nil {
		return fmt.Errorf("save %s %s: %w", table, g.Handle, err)
	}
	return nil
}

func (c *Catalog) applyAssetSource(s AssetSourceSpec, order int, res *ApplyResult) error {
	typ := s.Type
	if typ == "" {
		typ = "local"
	}
	name := defaultName(s.Name, s.Handle)
	var id int64
	err := c.db.QueryRow(`
		INSERT INTO assetsources (name, handle, type, sortOrder) VALUES (?, ?, ?, ?)
		ON CONFLICT(handle) DO UPDATE SET name = excluded.name, type = excluded.type, sortOrder = excluded.sortOrder
		RETURNING id`,
		name, s.Handle, typ, order+1,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("save asset source %s: %w", s.Handle, err)
	}
	res.AssetSources++

	rootFolder, err := c.CreateFolder(id, nil, name)
	if err != nil {
		return err
	}
	res.Folders++
	return c.applyFolders(id, rootFolder, s.Folders, res)
}

func (c *Catalog) applyFolders(sourceID int64, parent *AssetFolder, specs []FolderSpec, res *ApplyResult) error {
	for _, spec := range specs {
		f, err := c.CreateFolder(sourceID, parent, spec.Name)
		if err != nil {
			return err
		}
		res.Folders++
		if err := c.applyFolders(sourceID, f, spec.Folders, res); err != nil {
			return err
		}
	}
	return nil
}

func (c *Catalog) applyField(context string, spec FieldSpec, res *ApplyResult) error {
	f := spec.Field
	f.Context = context
	f.Name = defaultName(f.Name, f.Handle)
	if err := field.Create(c.db, &f); err != nil {
		return err
	}
	res.Fields++

	for i, bts := range spec.BlockTypes {
		bt := &field.BlockType{FieldID: f.ID, Name: defaultName(bts.Name, bts.Handle), Handle: bts.Handle, SortOrder: i + 1}
		if err := field.CreateBlockType(c.db, bt); err != nil {
			return err
		}
		res.BlockTypes++
		for _, sub := range bts.Fields {
			if err := c.applyField(field.BlockTypeContext(bt.ID), sub, res); err != nil {
				return err
			}
		}
	}
	return nil
}

func defaultName(name, handle string) string {
	if name != "" {
		return name
	}
	return handle
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
