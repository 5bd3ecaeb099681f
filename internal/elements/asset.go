package elements

import (
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/aidanlsb/elements/internal/catalog"
	"github.com/aidanlsb/elements/internal/criteria"
	"github.com/aidanlsb/elements/internal/model"
	"github.com/aidanlsb/elements/internal/params"
	"github.com/aidanlsb/elements/internal/volume"
)

// FileKinds lists the values the asset kind criteria accepts.
var FileKinds = []string{
	"access", "audio", "compressed", "excel", "flash", "html", "illustrator",
	"image", "javascript", "json", "pdf", "photoshop", "php", "powerpoint",
	"text", "video", "word", "xml", "unknown",
}

var assetSchema = criteria.Base().Merge(criteria.Schema{
	"title":             {Type: criteria.String},
	"sourceId":          {Type: criteria.Number},
	"folderId":          {Type: criteria.Number},
	"includeSubfolders": {Type: criteria.Bool, Default: false},
	"filename":          {Type: criteria.String},
	"kind":              {Type: criteria.Enum, Values: FileKinds},
	"width":             {Type: criteria.Number},
	"height":            {Type: criteria.Number},
	"size":              {Type: criteria.Number},
	"order":             {Type: criteria.String, Default: "title asc"},
})

var assetColumns = map[string]string{
	"sourceId": "assetfiles.sourceId",
	"folderId": "assetfiles.folderId",
	"filename": "assetfiles.filename",
	"kind":     "assetfiles.kind",
	"width":    "assetfiles.width",
	"height":   "assetfiles.height",
	"size":     "assetfiles.size",
}

type assetKind struct{}

func (assetKind) Type() model.ElementType { return model.TypeAsset }
func (assetKind) Table() string           { return "assetfiles" }
func (assetKind) HasContent() bool        { return true }
func (assetKind) HasTitles() bool         { return true }
func (assetKind) IsLocalized() bool       { return false }
func (assetKind) HasStatuses() bool       { return false }

func (assetKind) Statuses() []StatusOption        { return nil }
func (assetKind) CriteriaSchema() criteria.Schema { return assetSchema }

func (assetKind) column(name string) (string, bool) {
	col, ok := assetColumns[name]
	return col, ok
}

func (k assetKind) StatusCondition(env *Env, status string) (string, []any, error) {
	return "", nil, unknownStatus(k, status)
}

func (assetKind) statusOf(env *Env, el *model.Element) string { return defaultStatusOf(el) }

func (assetKind) ModifyQuery(env *Env, q *Query, c *criteria.Criteria) (bool, error) {
	q.Select(
		"assetfiles.sourceId AS sourceId",
		"assetfiles.folderId AS folderId",
		"assetfiles.filename AS filename",
		"assetfiles.kind AS kind",
		"assetfiles.width AS width",
		"assetfiles.height AS height",
		"assetfiles.size AS size",
	)
	q.Join("JOIN assetfiles ON assetfiles.id = elements.id")

	if v, ok := c.Value("folderId"); ok {
		if sub, _ := c.Flag("includeSubfolders"); sub {
			id, single := c.Int("folderId")
			if !single {
				return false, &criteria.ValidationError{Attribute: "folderId", Message: "includeSubfolders needs a single folder id"}
			}
			ids, err := env.Catalog.DescendantFolderIDs(id)
			if errors.Is(err, catalog.ErrNotFound) {
				return false, nil
			}
			if err != nil {
				return false, err
			}
			v = ids
		}
		if err := q.WhereParam(params.Col("assetfiles.folderId"), v); err != nil {
			return false, fmt.Errorf("folderId: %w", err)
		}
	}
	for _, name := range []string{"sourceId", "filename", "kind", "width", "height", "size"} {
		if v, ok := c.Value(name); ok {
			if err := q.WhereParam(params.Col(assetColumns[name]), v); err != nil {
				return false, fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	return true, nil
}

// Sources returns one folder tree per asset source. The settings context
// lists each source's root folder alone, keyed with a ":single" suffix.
func (assetKind) Sources(env *Env, context string) ([]*model.Source, error) {
	sources, err := env.Catalog.AssetSources()
	if err != nil {
		return nil, err
	}
	var ids []int64
	names := map[int64]string{}
	for _, s := range sources {
		if context == ContextIndex && !env.User.Can(permission("viewassetsource", s.ID)) {
			continue
		}
		ids = append(ids, s.ID)
		names[s.ID] = s.Name
	}
	if len(ids) == 0 {
		return nil, nil
	}
	roots, err := env.Catalog.FolderTree(ids...)
	if err != nil {
		return nil, err
	}

	var out []*model.Source
	for _, id := range ids {
		for _, root := range roots {
			if root.SourceID != id {
				continue
			}
			if context == ContextSettings {
				out = append(out, &model.Source{
					Key:      "folder:" + strconv.FormatInt(root.ID, 10) + ":single",
					Label:    names[id],
					Criteria: map[string]any{"folderId": root.ID},
				})
				continue
			}
			src := folderSource(root)
			src.Label = names[id]
			out = append(out, src)
		}
	}
	return out, nil
}

func folderSource(n *catalog.FolderNode) *model.Source {
	src := &model.Source{
		Key:      "folder:" + strconv.FormatInt(n.ID, 10),
		Label:    n.Name,
		Criteria: map[string]any{"folderId": n.ID},
		Data:     map[string]any{"path": n.Path},
	}
	for _, child := range n.Children {
		src.Nested = append(src.Nested, folderSource(child))
	}
	return src
}

func (k assetKind) EagerLoadingMap(env *Env, sources []*model.Element, handle string) (*model.EagerLoadMap, bool, error) {
	return defaultEagerLoadingMap(env, k, sources, handle)
}

func (assetKind) Populate(row Row) (model.Record, error) {
	return &model.AssetRecord{
		SourceID: row.Int64("sourceId"),
		FolderID: row.Int64("folderId"),
		Filename: row.String("filename"),
		Kind:     row.String("kind"),
		Width:    row.IntPtr("width"),
		Height:   row.IntPtr("height"),
		Size:     row.Int64("size"),
	}, nil
}

func (k assetKind) TableAttributes(source string) []Attribute {
	return append(defaultTableAttributes(k),
		Attribute{Key: "filename", Label: "Filename"},
		Attribute{Key: "size", Label: "Size"},
		Attribute{Key: "dateUpdated", Label: "Date Modified"},
	)
}

func (k assetKind) AttributeValue(env *Env, el *model.Element, attr string) string {
	if rec, ok := el.Record.(*model.AssetRecord); ok {
		switch attr {
		case "filename":
			return rec.Filename
		case "kind":
			return rec.Kind
		case "size":
			return formatSize(rec.Size)
		case "dimensions":
			if rec.Width != nil && rec.Height != nil {
				return fmt.Sprintf("%d × %d", *rec.Width, *rec.Height)
			}
			return ""
		}
	}
	return defaultAttributeValue(env, k, el, attr)
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

func (assetKind) validate(env *Env, el *model.Element) error {
	rec, ok := el.Record.(*model.AssetRecord)
	if !ok {
		return fmt.Errorf("asset %d: record is %T", el.ID, el.Record)
	}
	if strings.TrimSpace(rec.Filename) == "" {
		el.AddError("filename", "Filename cannot be blank.")
	}
	if rec.NewFilename != "" && strings.ContainsAny(rec.NewFilename, `/\`) {
		el.AddError("newFilename", "Filename cannot contain path separators.")
	}
	folder, err := env.Catalog.AssetFolder(rec.FolderID)
	if errors.Is(err, catalog.ErrNotFound) {
		el.AddError("folderId", "Folder is invalid.")
		return nil
	}
	if err != nil {
		return err
	}
	if rec.SourceID == 0 {
		rec.SourceID = folder.SourceID
	}
	if rec.SourceID != folder.SourceID {
		el.AddError("folderId", "Folder does not belong to the asset source.")
	}
	if el.Title == "" && rec.Filename != "" {
		el.Title = titleFromFilename(rec.Filename)
	}
	if rec.Kind == "" {
		rec.Kind = fileKind(rec.Filename)
	}
	return nil
}

func titleFromFilename(name string) string {
	base := strings.TrimSuffix(name, path.Ext(name))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	if base == "" {
		return name
	}
	return strings.ToUpper(base[:1]) + base[1:]
}

var extensionKinds = map[string]string{
	"jpg": "image", "jpeg": "image", "png": "image", "gif": "image", "svg": "image", "webp": "image",
	"mp3": "audio", "wav": "audio", "ogg": "audio",
	"mp4": "video", "mov": "video", "webm": "video",
	"zip": "compressed", "gz": "compressed", "tar": "compressed",
	"pdf": "pdf", "txt": "text", "md": "text", "json": "json", "xml": "xml",
	"html": "html", "htm": "html", "js": "javascript",
	"doc": "word", "docx": "word", "xls": "excel", "xlsx": "excel",
	"ppt": "powerpoint", "pptx": "powerpoint", "psd": "photoshop", "ai": "illustrator",
}

func fileKind(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if k, ok := extensionKinds[ext]; ok {
		return k
	}
	return "unknown"
}

// beforeSave renames the file in its volume when NewFilename is set. A
// taken name records a Conflict with a suggested alternative instead. The
// returned undo renames the file back.
func (assetKind) beforeSave(env *Env, el *model.Element, isNew bool) (func() error, error) {
	rec := el.Record.(*model.AssetRecord)
	if rec.NewFilename == "" || rec.NewFilename == rec.Filename {
		rec.NewFilename = ""
		return nil, nil
	}
	if isNew {
		rec.Filename, rec.NewFilename = rec.NewFilename, ""
		return nil, nil
	}

	folder, err := env.Catalog.AssetFolder(rec.FolderID)
	if err != nil {
		return nil, err
	}
	source, err := env.Catalog.AssetSource(rec.SourceID)
	if err != nil {
		return nil, err
	}
	vol, err := env.Volume(source)
	if err != nil {
		return nil, err
	}

	taken := func(name string) (bool, error) {
		exists, err := vol.Exists(folder.Path + name)
		if err != nil || exists {
			return exists, err
		}
		var n int
		err = env.DB.QueryRow(
			"SELECT COUNT(*) FROM assetfiles WHERE folderId = ? AND filename = ? AND id != ?",
			folder.ID, name, el.ID,
		).Scan(&n)
		return n > 0, err
	}
	conflict := func() (func() error, error) {
		suggested, err := suggestFilename(rec.NewFilename, taken)
		if err != nil {
			return nil, err
		}
		el.Conflict = &model.Conflict{Filename: rec.NewFilename, Suggested: suggested}
		el.AddError("newFilename", fmt.Sprintf("A file named %q already exists.", rec.NewFilename))
		return nil, nil
	}

	isTaken, err := taken(rec.NewFilename)
	if err != nil {
		return nil, fmt.Errorf("check filename: %w", err)
	}
	if isTaken {
		return conflict()
	}

	oldName, newName := rec.Filename, rec.NewFilename
	oldPath, newPath := folder.Path+oldName, folder.Path+newName
	if err := vol.Rename(oldPath, newPath); err != nil {
		if errors.Is(err, volume.ErrExists) {
			return conflict()
		}
		return nil, fmt.Errorf("rename asset: %w", err)
	}
	rec.Filename, rec.NewFilename = newName, ""
	env.Log.Debug().Int64("id", el.ID).Str("from", oldPath).Str("to", newPath).Msg("renamed asset file")
	return func() error {
		rec.Filename, rec.NewFilename = oldName, newName
		return vol.Rename(newPath, oldPath)
	}, nil
}

// suggestFilename returns name with the first free "_<n>" suffix.
func suggestFilename(name string, taken func(string) (bool, error)) (string, error) {
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := base + "_" + strconv.Itoa(i) + ext
		t, err := taken(candidate)
		if err != nil {
			return "", err
		}
		if !t {
			return candidate, nil
		}
	}
}

func (assetKind) saveRecord(env *Env, el *model.Element, isNew bool) error {
	rec := el.Record.(*model.AssetRecord)
	_, err := env.DB.Exec(`
		INSERT INTO assetfiles (id, sourceId, folderId, filename, kind, width, height, size) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET sourceId = excluded.sourceId, folderId = excluded.folderId,
			filename = excluded.filename, kind = excluded.kind, width = excluded.width,
			height = excluded.height, size = excluded.size`,
		el.ID, rec.SourceID, rec.FolderID, rec.Filename, rec.Kind, nullInt(rec.Width), nullInt(rec.Height), rec.Size,
	)
	if err != nil {
		return fmt.Errorf("save asset record: %w", err)
	}
	return nil
}

func (assetKind) afterSave(*Env, *model.Element, bool) error { return nil }

func (assetKind) uriFormat(*Env, *model.Element) (string, error) { return "", nil }

func (assetKind) searchAttributes(el *model.Element) map[string]string {
	rec, ok := el.Record.(*model.AssetRecord)
	if !ok {
		return nil
	}
	return map[string]string{
		"filename":  rec.Filename,
		"extension": strings.TrimPrefix(path.Ext(rec.Filename), "."),
		"kind":      rec.Kind,
	}
}
