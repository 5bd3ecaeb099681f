package catalog

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/aidanlsb/elements/internal/sqlutil"
)

// AssetSources lists every source in sort order.
func (c *Catalog) AssetSources() ([]*AssetSource, error) {
	rows, err := c.db.Query("SELECT id, name, handle, type, sortOrder FROM assetsources ORDER BY sortOrder, name")
	if err != nil {
		return nil, fmt.Errorf("load asset sources: %w", err)
	}
	return sqlutil.ScanRows(rows, scanSource)
}

// AssetSource returns the source with id.
func (c *Catalog) AssetSource(id int64) (*AssetSource, error) {
	rows, err := c.db.Query("SELECT id, name, handle, type, sortOrder FROM assetsources WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("load asset source: %w", err)
	}
	list, err := sqlutil.ScanRows(rows, scanSource)
	if err != nil {
		return nil, fmt.Errorf("load asset source: %w", err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("asset source %d: %w", id, ErrNotFound)
	}
	return list[0], nil
}

func scanSource(r *sql.Rows) (*AssetSource, error) {
	s := &AssetSource{}
	err := r.Scan(&s.ID, &s.Name, &s.Handle, &s.Type, &s.SortOrder)
	return s, err
}

const folderColumns = "id, parentId, sourceId, name, path"

func scanFolder(r *sql.Rows) (*AssetFolder, error) {
	f := &AssetFolder{}
	var parent sql.NullInt64
	if err := r.Scan(&f.ID, &parent, &f.SourceID, &f.Name, &f.Path); err != nil {
		return nil, err
	}
	if parent.Valid {
		f.ParentID = &parent.Int64
	}
	return f, nil
}

// AssetFolders lists folders ordered by path. sourceID 0 lists every source.
func (c *Catalog) AssetFolders(sourceID int64) ([]*AssetFolder, error) {
	query := "SELECT " + folderColumns + " FROM assetfolders"
	var args []any
	if sourceID != 0 {
		query += " WHERE sourceId = ?"
		args = append(args, sourceID)
	}
	query += " ORDER BY sourceId, path"
	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("load asset folders: %w", err)
	}
	return sqlutil.ScanRows(rows, scanFolder)
}

// AssetFolder returns the folder with id.
func (c *Catalog) AssetFolder(id int64) (*AssetFolder, error) {
	rows, err := c.db.Query("SELECT "+folderColumns+" FROM assetfolders WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("load asset folder: %w", err)
	}
	list, err := sqlutil.ScanRows(rows, scanFolder)
	if err != nil {
		return nil, fmt.Errorf("load asset folder: %w", err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("asset folder %d: %w", id, ErrNotFound)
	}
	return list[0], nil
}

// FolderTree assembles the folders of the given sources into one tree per
// source root. No sourceIDs means every source.
func (c *Catalog) FolderTree(sourceIDs ...int64) ([]*FolderNode, error) {
	folders, err := c.AssetFolders(0)
	if err != nil {
		return nil, err
	}
	want := make(map[int64]bool, len(sourceIDs))
	for _, id := range sourceIDs {
		want[id] = true
	}

	nodes := make(map[int64]*FolderNode, len(folders))
	for _, f := range folders {
		if len(want) > 0 && !want[f.SourceID] {
			continue
		}
		nodes[f.ID] = &FolderNode{AssetFolder: *f}
	}
	var roots []*FolderNode
	// folders are path-ordered within each source so parents come first
	for _, f := range folders {
		n, ok := nodes[f.ID]
		if !ok {
			continue
		}
		if f.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		if parent, ok := nodes[*f.ParentID]; ok {
			parent.Children = append(parent.Children, n)
		}
	}
	return roots, nil
}

// DescendantFolderIDs returns folderID and every folder below it.
func (c *Catalog) DescendantFolderIDs(folderID int64) ([]int64, error) {
	folder, err := c.AssetFolder(folderID)
	if err != nil {
		return nil, err
	}
	rows, err := c.db.Query(
		`SELECT id FROM assetfolders WHERE sourceId = ? AND (id = ? OR path LIKE ? ESCAPE '\') ORDER BY path`,
		folder.SourceID, folder.ID, likePrefix(folder.Path),
	)
	if err != nil {
		return nil, fmt.Errorf("load subfolders: %w", err)
	}
	return sqlutil.ScanInt64s(rows)
}

// CreateFolder inserts a folder below parent (nil for a source root) and
// derives its path.
func (c *Catalog) CreateFolder(sourceID int64, parent *AssetFolder, name string) (*AssetFolder, error) {
	f := &AssetFolder{SourceID: sourceID, Name: name}
	if parent != nil {
		id := parent.ID
		f.ParentID = &id
		f.Path = parent.Path + strings.Trim(name, "/") + "/"
	}
	var parentArg any
	if f.ParentID != nil {
		parentArg = *f.ParentID
	}
	err := c.db.QueryRow(`
		INSERT INTO assetfolders (parentId, sourceId, name, path) VALUES (?, ?, ?, ?)
		ON CONFLICT(sourceId, path) DO UPDATE SET name = excluded.name
		RETURNING id`,
		parentArg, sourceID, name, f.Path,
	).Scan(&f.ID)
	if err != nil {
		return nil, fmt.Errorf("save folder %s: %w", name, err)
	}
	return f, nil
}

func likePrefix(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s) + "%"
}
