package catalog

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/aidanlsb/elements/internal/sqlutil"
)

// ErrNotFound indicates a missing catalog row.
var ErrNotFound = errors.New("not found")

// Catalog reads catalog rows through a DB or transaction.
type Catalog struct {
	db sqlutil.DBTX
}

// New wraps db.
func New(db sqlutil.DBTX) *Catalog {
	return &Catalog{db: db}
}

// DB returns the handle the catalog reads through.
func (c *Catalog) DB() sqlutil.DBTX { return c.db }

const sectionColumns = "id, structureId, name, handle, type, hasUrls, IFNULL(uriFormat, '')"

func scanSection(r *sql.Rows) (*Section, error) {
	s := &Section{}
	var sid sql.NullInt64
	if err := r.Scan(&s.ID, &sid, &s.Name, &s.Handle, &s.Type, &s.HasURLs, &s.URIFormat); err != nil {
		return nil, err
	}
	if sid.Valid {
		s.StructureID = &sid.Int64
	}
	return s, nil
}

// Sections lists every section ordered by name.
func (c *Catalog) Sections() ([]*Section, error) {
	rows, err := c.db.Query("SELECT " + sectionColumns + " FROM sections ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("load sections: %w", err)
	}
	return sqlutil.ScanRows(rows, scanSection)
}

// Section returns the section with id.
func (c *Catalog) Section(id int64) (*Section, error) {
	return c.oneSection("id = ?", id)
}

// SectionByHandle returns the section with handle.
func (c *Catalog) SectionByHandle(handle string) (*Section, error) {
	return c.oneSection("handle = ?", handle)
}

func (c *Catalog) oneSection(where string, arg any) (*Section, error) {
	rows, err := c.db.Query("SELECT "+sectionColumns+" FROM sections WHERE "+where, arg)
	if err != nil {
		return nil, fmt.Errorf("load section: %w", err)
	}
	list, err := sqlutil.ScanRows(rows, scanSection)
	if err != nil {
		return nil, fmt.Errorf("load section: %w", err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("section %v: %w", arg, ErrNotFound)
	}
	return list[0], nil
}

// EntryTypes lists a section's entry types in sort order. sectionID 0 lists all.
func (c *Catalog) EntryTypes(sectionID int64) ([]*EntryType, error) {
	query := "SELECT id, sectionId, name, handle, hasTitleField, sortOrder FROM entrytypes"
	var args []any
	if sectionID != 0 {
		query += " WHERE sectionId = ?"
		args = append(args, sectionID)
	}
	query += " ORDER BY sectionId, sortOrder, id"
	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("load entry types: %w", err)
	}
	return sqlutil.ScanRows(rows, func(r *sql.Rows) (*EntryType, error) {
		et := &EntryType{}
		err := r.Scan(&et.ID, &et.SectionID, &et.Name, &et.Handle, &et.HasTitleField, &et.SortOrder)
		return et, err
	})
}

// EntryType returns the entry type with id.
func (c *Catalog) EntryType(id int64) (*EntryType, error) {
	types, err := c.EntryTypes(0)
	if err != nil {
		return nil, err
	}
	for _, et := range types {
		if et.ID == id {
			return et, nil
		}
	}
	return nil, fmt.Errorf("entry type %d: %w", id, ErrNotFound)
}

// EntryTypeIDsByHandle returns the ids of entry types with any of the handles.
func (c *Catalog) EntryTypeIDsByHandle(handles []string) ([]int64, error) {
	ph, args := sqlutil.InClauseArgs(handles)
	rows, err := c.db.Query("SELECT id FROM entrytypes WHERE handle IN ("+ph+") ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("resolve entry types: %w", err)
	}
	return sqlutil.ScanInt64s(rows)
}

// SectionIDsByHandle returns the ids of sections with any of the handles.
func (c *Catalog) SectionIDsByHandle(handles []string) ([]int64, error) {
	ph, args := sqlutil.InClauseArgs(handles)
	rows, err := c.db.Query("SELECT id FROM sections WHERE handle IN ("+ph+") ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("resolve sections: %w", err)
	}
	return sqlutil.ScanInt64s(rows)
}

const groupColumns = "id, structureId, name, handle, hasUrls, IFNULL(uriFormat, '')"

func scanCategoryGroup(r *sql.Rows) (*CategoryGroup, error) {
	g := &CategoryGroup{}
	var sid sql.NullInt64
	if err := r.Scan(&g.ID, &sid, &g.Name, &g.Handle, &g.HasURLs, &g.URIFormat); err != nil {
		return nil, err
	}
	if sid.Valid {
		g.StructureID = &sid.Int64
	}
	return g, nil
}

// CategoryGroups lists every category group ordered by name.
func (c *Catalog) CategoryGroups() ([]*CategoryGroup, error) {
	rows, err := c.db.Query("SELECT " + groupColumns + " FROM categorygroups ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("load category groups: %w", err)
	}
	return sqlutil.ScanRows(rows, scanCategoryGroup)
}

// CategoryGroup returns the group with id.
func (c *Catalog) CategoryGroup(id int64) (*CategoryGroup, error) {
	rows, err := c.db.Query("SELECT "+groupColumns+" FROM categorygroups WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("load category group: %w", err)
	}
	list, err := sqlutil.ScanRows(rows, scanCategoryGroup)
	if err != nil {
		return nil, fmt.Errorf("load category group: %w", err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("category group %d: %w", id, ErrNotFound)
	}
	return list[0], nil
}

// GroupIDsByHandle resolves handles in one of the simple group tables
// (categorygroups, taggroups, usergroups).
func (c *Catalog) GroupIDsByHandle(table string, handles []string) ([]int64, error) {
	switch table {
	case "categorygroups", "taggroups", "usergroups":
	default:
		return nil, fmt.Errorf("unknown group table %q", table)
	}
	ph, args := sqlutil.InClauseArgs(handles)
	rows, err := c.db.Query("SELECT id FROM "+table+" WHERE handle IN ("+ph+") ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", table, err)
	}
	return sqlutil.ScanInt64s(rows)
}

// TagGroups lists every tag group ordered by name.
func (c *Catalog) TagGroups() ([]*TagGroup, error) {
	rows, err := c.db.Query("SELECT id, name, handle FROM taggroups ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("load tag groups: %w", err)
	}
	return sqlutil.ScanRows(rows, func(r *sql.Rows) (*TagGroup, error) {
		g := &TagGroup{}
		err := r.Scan(&g.ID, &g.Name, &g.Handle)
		return g, err
	})
}

// UserGroups lists every user group ordered by name.
func (c *Catalog) UserGroups() ([]*UserGroup, error) {
	rows, err := c.db.Query("SELECT id, name, handle FROM usergroups ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("load user groups: %w", err)
	}
	return sqlutil.ScanRows(rows, func(r *sql.Rows) (*UserGroup, error) {
		g := &UserGroup{}
		err := r.Scan(&g.ID, &g.Name, &g.Handle)
		return g, err
	})
}

// AddUserToGroup records group membership.
func (c *Catalog) AddUserToGroup(userID, groupID int64) error {
	if _, err := c.db.Exec("INSERT OR IGNORE INTO usergroups_users (groupId, userId) VALUES (?, ?)", groupID, userID); err != nil {
		return fmt.Errorf("add user to group: %w", err)
	}
	return nil
}
