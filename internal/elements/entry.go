package elements

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aidanlsb/elements/internal/catalog"
	"github.com/aidanlsb/elements/internal/criteria"
	"github.com/aidanlsb/elements/internal/dates"
	"github.com/aidanlsb/elements/internal/model"
	"github.com/aidanlsb/elements/internal/params"
	"github.com/aidanlsb/elements/internal/sqlutil"
	"github.com/aidanlsb/elements/internal/structure"
)

// Entry status tokens.
const (
	EntryLive    = "live"
	EntryPending = "pending"
	EntryExpired = "expired"
)

var entrySchema = criteria.Base().Merge(structureSchema).Merge(criteria.Schema{
	"title":         {Type: criteria.String},
	"section":       {Type: criteria.String},
	"sectionId":     {Type: criteria.Number},
	"type":          {Type: criteria.String},
	"authorId":      {Type: criteria.Number},
	"authorGroupId": {Type: criteria.Number},
	"authorGroup":   {Type: criteria.String},
	"postDate":      {Type: criteria.DateTime},
	"expiryDate":    {Type: criteria.DateTime},
	"after":         {Type: criteria.DateTime},
	"before":        {Type: criteria.DateTime},
	"editable":      {Type: criteria.Bool, Default: false},
	"ref":           {Type: criteria.String},
	"status":        {Type: criteria.Mixed, Default: EntryLive},
	"order":         {Type: criteria.String, Default: "lft, postDate desc"},
})

var entryColumns = map[string]string{
	"sectionId":  "entries.sectionId",
	"typeId":     "entries.typeId",
	"authorId":   "entries.authorId",
	"postDate":   "entries.postDate",
	"expiryDate": "entries.expiryDate",
}

type entryKind struct{}

func (entryKind) Type() model.ElementType { return model.TypeEntry }
func (entryKind) Table() string           { return "entries" }
func (entryKind) HasContent() bool        { return true }
func (entryKind) HasTitles() bool         { return true }
func (entryKind) IsLocalized() bool       { return true }
func (entryKind) HasStatuses() bool       { return true }

func (entryKind) Statuses() []StatusOption {
	return []StatusOption{
		{Token: EntryLive, Label: "Live"},
		{Token: EntryPending, Label: "Pending"},
		{Token: EntryExpired, Label: "Expired"},
		{Token: StatusDisabled, Label: "Disabled"},
	}
}

func (entryKind) CriteriaSchema() criteria.Schema { return entrySchema }

func (entryKind) column(name string) (string, bool) {
	col, ok := entryColumns[name]
	return col, ok
}

// StatusCondition partitions enabled entries by post and expiry date. An
// entry that has not been posted yet is pending even if its expiry date has
// passed. Entries disabled in the query locale or missing a post date are
// disabled.
func (k entryKind) StatusCondition(env *Env, status string) (string, []any, error) {
	now := dates.FormatDB(env.Now)
	const enabled = "elements.enabled = 1 AND elements_i18n.enabled = 1"
	switch status {
	case EntryLive:
		return enabled + " AND entries.postDate <= ? AND (entries.expiryDate IS NULL OR entries.expiryDate > ?)",
			[]any{now, now}, nil
	case EntryPending:
		return enabled + " AND entries.postDate > ?", []any{now}, nil
	case EntryExpired:
		return enabled + " AND entries.postDate <= ? AND entries.expiryDate IS NOT NULL AND entries.expiryDate <= ?",
			[]any{now, now}, nil
	case StatusDisabled:
		return "(elements.enabled = 0 OR elements_i18n.enabled = 0 OR entries.postDate IS NULL)", nil, nil
	}
	return "", nil, unknownStatus(k, status)
}

func (entryKind) statusOf(env *Env, el *model.Element) string {
	if !el.Enabled || !el.LocaleEnabled {
		return StatusDisabled
	}
	rec, _ := el.Record.(*model.EntryRecord)
	if rec == nil || rec.PostDate == nil {
		return StatusDisabled
	}
	switch {
	case rec.PostDate.After(env.Now):
		return EntryPending
	case rec.ExpiryDate != nil && !rec.ExpiryDate.After(env.Now):
		return EntryExpired
	}
	return EntryLive
}

func (entryKind) ModifyQuery(env *Env, q *Query, c *criteria.Criteria) (bool, error) {
	q.Select(
		"entries.sectionId AS sectionId",
		"entries.typeId AS typeId",
		"entries.authorId AS authorId",
		"entries.postDate AS postDate",
		"entries.expiryDate AS expiryDate",
	)
	q.Join("JOIN entries ON entries.id = elements.id")
	q.Join("JOIN sections ON sections.id = entries.sectionId")
	joinStructure(q)

	if editable, _ := c.Flag("editable"); editable {
		ids, err := editableSectionIDs(env)
		if err != nil {
			return false, err
		}
		if len(ids) == 0 {
			return false, nil
		}
		ph, args := sqlutil.InClauseArgs(ids)
		q.Where("entries.sectionId IN ("+ph+")", args...)
	}

	if v, ok := c.Value("section"); ok {
		if err := q.WhereParam(params.Col("sections.handle"), v); err != nil {
			return false, fmt.Errorf("section: %w", err)
		}
	}
	if v, ok := c.Value("sectionId"); ok {
		if err := q.WhereParam(params.Col("entries.sectionId"), v); err != nil {
			return false, fmt.Errorf("sectionId: %w", err)
		}
	}
	if v, ok := c.Value("type"); ok {
		handles := plainStrings(v)
		ids, err := env.Catalog.EntryTypeIDsByHandle(handles)
		if err != nil {
			return false, err
		}
		if len(ids) == 0 {
			return false, nil
		}
		ph, args := sqlutil.InClauseArgs(ids)
		q.Where("entries.typeId IN ("+ph+")", args...)
	}
	if v, ok := c.Value("authorId"); ok {
		if err := q.WhereParam(params.Col("entries.authorId"), v); err != nil {
			return false, fmt.Errorf("authorId: %w", err)
		}
	}
	if v, ok := c.Value("authorGroupId"); ok {
		cond, args, err := params.Parse(params.Col("usergroups_users.groupId"), v)
		if err != nil {
			return false, fmt.Errorf("authorGroupId: %w", err)
		}
		q.Where("entries.authorId IN (SELECT usergroups_users.userId FROM usergroups_users WHERE "+cond+")", args...)
	}
	if v, ok := c.Value("authorGroup"); ok {
		cond, args, err := params.Parse(params.Col("usergroups.handle"), v)
		if err != nil {
			return false, fmt.Errorf("authorGroup: %w", err)
		}
		q.Where(`entries.authorId IN (
			SELECT usergroups_users.userId FROM usergroups_users
			JOIN usergroups ON usergroups.id = usergroups_users.groupId
			WHERE `+cond+")", args...)
	}
	for _, name := range []string{"postDate", "expiryDate"} {
		if v, ok := c.Value(name); ok {
			if err := q.WhereDate(params.Col(entryColumns[name]), v); err != nil {
				return false, fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	if v, ok := c.Value("after"); ok {
		if err := q.WhereDate(params.Col("entries.postDate"), boundedDate(">=", v)); err != nil {
			return false, fmt.Errorf("after: %w", err)
		}
	}
	if v, ok := c.Value("before"); ok {
		if err := q.WhereDate(params.Col("entries.postDate"), boundedDate("<", v)); err != nil {
			return false, fmt.Errorf("before: %w", err)
		}
	}
	if v, ok := c.Value("ref"); ok {
		applyEntryRefs(q, v)
	}

	return applyStructureCriteria(env, q, c)
}

// applyEntryRefs matches "section/slug" or bare "slug" references, ORed.
func applyEntryRefs(q *Query, v any) {
	var conds []string
	var args []any
	for _, ref := range plainStrings(v) {
		if section, slug, ok := strings.Cut(ref, "/"); ok {
			conds = append(conds, "(sections.handle = ? AND elements_i18n.slug = ?)")
			args = append(args, section, slug)
			continue
		}
		conds = append(conds, "(elements_i18n.slug = ?)")
		args = append(args, ref)
	}
	if len(conds) > 0 {
		q.Where("("+strings.Join(conds, " OR ")+")", args...)
	}
}

func editableSectionIDs(env *Env) ([]int64, error) {
	if env.User == nil {
		return nil, nil
	}
	sections, err := env.Catalog.Sections()
	if err != nil {
		return nil, err
	}
	var ids []int64
	for _, s := range sections {
		if env.User.Can(permission("editentries", s.ID)) {
			ids = append(ids, s.ID)
		}
	}
	return ids, nil
}

func (k entryKind) Sources(env *Env, context string) ([]*model.Source, error) {
	sections, err := env.Catalog.Sections()
	if err != nil {
		return nil, err
	}
	index := context == ContextIndex
	if index {
		var editable []*catalog.Section
		for _, s := range sections {
			if env.User.Can(permission("editentries", s.ID)) {
				editable = append(editable, s)
			}
		}
		sections = editable
	}
	if len(sections) == 0 {
		return nil, nil
	}

	all := &model.Source{Key: "*", Label: "All entries", Criteria: map[string]any{}}
	if index {
		all.Criteria["editable"] = true
	}
	sources := []*model.Source{all}

	var singles []int64
	var channels, structures []*model.Source
	for _, s := range sections {
		switch s.Type {
		case catalog.SectionSingle:
			singles = append(singles, s.ID)
		case catalog.SectionChannel, catalog.SectionStructure:
			src := &model.Source{
				Key:      "section:" + strconv.FormatInt(s.ID, 10),
				Label:    s.Name,
				Criteria: map[string]any{"sectionId": s.ID},
			}
			if index {
				src.Criteria["editable"] = true
			}
			if s.Type == catalog.SectionStructure {
				if s.StructureID != nil {
					src.StructureID = *s.StructureID
				}
				src.StructureEditable = env.User.Can(permission("publishentries", s.ID))
				src.Criteria["order"] = "lft"
				structures = append(structures, src)
			} else {
				channels = append(channels, src)
			}
		}
	}
	if len(singles) > 0 {
		src := &model.Source{Key: "singles", Label: "Singles", Criteria: map[string]any{"sectionId": singles}}
		if index {
			src.Criteria["editable"] = true
		}
		sources = append(sources, src)
	}
	if len(channels) > 0 {
		sources = append(sources, &model.Source{Heading: true, Label: "Channels"})
		sources = append(sources, channels...)
	}
	if len(structures) > 0 {
		sources = append(sources, &model.Source{Heading: true, Label: "Structures"})
		sources = append(sources, structures...)
	}
	return sources, nil
}

// EagerLoadingMap handles "author" and falls back to structure and field
// handles.
func (k entryKind) EagerLoadingMap(env *Env, sources []*model.Element, handle string) (*model.EagerLoadMap, bool, error) {
	if handle == "author" {
		ph, args := sqlutil.InClauseArgs(model.IDs(sources))
		rows, err := env.DB.Query(
			"SELECT id, authorId FROM entries WHERE id IN ("+ph+") AND authorId IS NOT NULL ORDER BY id",
			args...,
		)
		if err != nil {
			return nil, false, fmt.Errorf("load authors: %w", err)
		}
		edges, err := sqlutil.ScanRows(rows, scanEdge)
		if err != nil {
			return nil, false, fmt.Errorf("load authors: %w", err)
		}
		return &model.EagerLoadMap{Type: model.TypeUser, Edges: edges}, true, nil
	}
	return defaultEagerLoadingMap(env, k, sources, handle)
}

func (entryKind) Populate(row Row) (model.Record, error) {
	return &model.EntryRecord{
		SectionID:  row.Int64("sectionId"),
		TypeID:     row.Int64("typeId"),
		AuthorID:   row.IntPtr("authorId"),
		PostDate:   row.TimePtr("postDate"),
		ExpiryDate: row.TimePtr("expiryDate"),
	}, nil
}

func (k entryKind) TableAttributes(source string) []Attribute {
	attrs := defaultTableAttributes(k)
	attrs = append(attrs, Attribute{Key: "uri", Label: "URI"})
	if source == "*" {
		attrs = append(attrs, Attribute{Key: "section", Label: "Section"})
	}
	return append(attrs,
		Attribute{Key: "postDate", Label: "Post Date"},
		Attribute{Key: "expiryDate", Label: "Expiry Date"},
	)
}

func (k entryKind) AttributeValue(env *Env, el *model.Element, attr string) string {
	rec, _ := el.Record.(*model.EntryRecord)
	if rec != nil {
		switch attr {
		case "postDate":
			return formatTimePtr(rec.PostDate)
		case "expiryDate":
			return formatTimePtr(rec.ExpiryDate)
		case "section":
			if s, err := env.Catalog.Section(rec.SectionID); err == nil {
				return s.Name
			}
			return ""
		case "author":
			if rec.AuthorID != nil {
				return strconv.FormatInt(*rec.AuthorID, 10)
			}
			return ""
		}
	}
	return defaultAttributeValue(env, k, el, attr)
}

func (k entryKind) validate(env *Env, el *model.Element) error {
	rec, ok := el.Record.(*model.EntryRecord)
	if !ok {
		return fmt.Errorf("entry %d: record is %T", el.ID, el.Record)
	}
	section, err := env.Catalog.Section(rec.SectionID)
	if errors.Is(err, catalog.ErrNotFound) {
		el.AddError("sectionId", "Section is invalid.")
		return nil
	}
	if err != nil {
		return err
	}
	if rec.TypeID == 0 {
		types, err := env.Catalog.EntryTypes(section.ID)
		if err != nil {
			return err
		}
		if len(types) == 0 {
			el.AddError("typeId", "Section has no entry types.")
			return nil
		}
		rec.TypeID = types[0].ID
	}
	et, err := env.Catalog.EntryType(rec.TypeID)
	if errors.Is(err, catalog.ErrNotFound) || (err == nil && et.SectionID != section.ID) {
		el.AddError("typeId", "Entry type is invalid.")
		return nil
	}
	if err != nil {
		return err
	}
	if et.HasTitleField && strings.TrimSpace(el.Title) == "" {
		el.AddError("title", "Title cannot be blank.")
	}
	if rec.PostDate != nil && rec.ExpiryDate != nil && !rec.ExpiryDate.After(*rec.PostDate) {
		el.AddError("expiryDate", "Expiry Date must be after the Post Date.")
	}
	if rec.ParentID != nil && section.Type != catalog.SectionStructure {
		el.AddError("parentId", "Only entries in structure sections can have a parent.")
	}
	return nil
}

func (entryKind) beforeSave(*Env, *model.Element, bool) (func() error, error) {
	return nil, nil
}

func (entryKind) saveRecord(env *Env, el *model.Element, isNew bool) error {
	rec := el.Record.(*model.EntryRecord)
	if rec.PostDate == nil && el.Enabled {
		now := env.Now
		rec.PostDate = &now
	}
	_, err := env.DB.Exec(`
		INSERT INTO entries (id, sectionId, typeId, authorId, postDate, expiryDate) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET sectionId = excluded.sectionId, typeId = excluded.typeId,
			authorId = excluded.authorId, postDate = excluded.postDate, expiryDate = excluded.expiryDate`,
		el.ID, rec.SectionID, rec.TypeID, nullInt(rec.AuthorID), dbTime(rec.PostDate), dbTime(rec.ExpiryDate),
	)
	if err != nil {
		return fmt.Errorf("save entry record: %w", err)
	}
	return nil
}

func (k entryKind) afterSave(env *Env, el *model.Element, isNew bool) error {
	rec := el.Record.(*model.EntryRecord)
	sid, err := k.structureID(env, el)
	if err != nil || sid == 0 {
		return err
	}
	return placeInStructure(env, sid, el.ID, rec.ParentID)
}

func (entryKind) uriFormat(env *Env, el *model.Element) (string, error) {
	rec := el.Record.(*model.EntryRecord)
	section, err := env.Catalog.Section(rec.SectionID)
	if err != nil {
		return "", err
	}
	if !section.HasURLs {
		return "", nil
	}
	return section.URIFormat, nil
}

func (entryKind) structureID(env *Env, el *model.Element) (int64, error) {
	rec, ok := el.Record.(*model.EntryRecord)
	if !ok {
		return 0, nil
	}
	section, err := env.Catalog.Section(rec.SectionID)
	if err != nil {
		return 0, err
	}
	if section.Type != catalog.SectionStructure || section.StructureID == nil {
		return 0, nil
	}
	return *section.StructureID, nil
}

// placeInStructure appends a new element under parentID, or at the top
// level, and moves an existing element when parentID changes.
func placeInStructure(env *Env, structureID, elementID int64, parentID *int64) error {
	in, err := structure.Contains(env.DB, structureID, elementID)
	if err != nil {
		return err
	}
	var target int64
	if parentID != nil {
		target = *parentID
	}
	if in {
		if parentID == nil {
			return nil
		}
		current, err := structure.Parent(env.DB, structureID, elementID)
		if err != nil || current == target {
			return err
		}
	}
	_, err = structure.Place(env.DB, structureID, elementID, structure.AppendTo, target)
	return err
}

// plainStrings returns the comma-separated string values of a criteria
// value, without a leading set marker.
func plainStrings(v any) []string {
	var out []string
	for i, item := range params.AsList(v) {
		s, ok := item.(string)
		if !ok {
			continue
		}
		if i == 0 && (strings.EqualFold(s, "or") || strings.EqualFold(s, "and")) {
			continue
		}
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// boundedDate prefixes a date criteria value with a comparison operator.
func boundedDate(op string, v any) any {
	if t, ok := v.(time.Time); ok {
		return op + " " + dates.FormatDB(t)
	}
	return fmt.Sprintf("%s %v", op, v)
}

func permission(name string, id int64) string {
	return name + ":" + strconv.FormatInt(id, 10)
}

func scanEdge(r *sql.Rows) (model.Edge, error) {
	var e model.Edge
	err := r.Scan(&e.Source, &e.Target)
	return e, err
}
