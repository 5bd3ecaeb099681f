package elements

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/aidanlsb/elements/internal/dates"
	"github.com/aidanlsb/elements/internal/field"
	"github.com/aidanlsb/elements/internal/model"
	"github.com/aidanlsb/elements/internal/params"
	"github.com/aidanlsb/elements/internal/relations"
	"github.com/aidanlsb/elements/internal/search"
	"github.com/aidanlsb/elements/internal/slugs"
	"github.com/aidanlsb/elements/internal/store"
	"github.com/aidanlsb/elements/internal/structure"
)

// searchAttributer is implemented by kinds that index attributes beyond
// title and slug.
type searchAttributer interface {
	searchAttributes(el *model.Element) map[string]string
}

// Save validates and persists el in one transaction. It returns false with a
// nil error when el has validation errors or a conflict; they are recorded on
// el. Kind side effects outside the database are reverted if the save fails.
func (e *Engine) Save(env *Env, el *model.Element) (bool, error) {
	kind, err := KindOf(el.Type)
	if err != nil {
		return false, err
	}
	isNew := el.ID == 0
	el.ClearErrors()
	if !kind.IsLocalized() || el.Locale == "" {
		el.Locale = env.Locale
	}
	// New elements are enabled in their locale.
	if isNew {
		el.LocaleEnabled = true
	}
	if el.Slug == "" && kind.HasTitles() {
		el.Slug = slugs.Make(el.Title)
	}

	if err := kind.validate(env, el); err != nil {
		return false, err
	}
	if el.HasErrors() {
		return false, nil
	}

	var renamedFrom string
	if rec, ok := el.Record.(*model.AssetRecord); ok && !isNew && rec.NewFilename != "" {
		renamedFrom = rec.Filename
	}

	var undo func() error
	err = store.WithTx(e.db, func(tx *sql.Tx) error {
		txEnv := env.WithDB(tx)
		u, err := kind.beforeSave(txEnv, el, isNew)
		if err != nil {
			return err
		}
		undo = u
		if el.HasErrors() {
			return errInvalid
		}
		return saveElement(txEnv, kind, el, isNew)
	})
	if err != nil {
		if isNew {
			el.ID = 0
		}
		if undo != nil {
			if uerr := undo(); uerr != nil {
				env.Log.Error().Err(uerr).Str("kind", string(kind.Type())).Int64("id", el.ID).Msg("failed to revert save side effects")
			}
		}
		if errors.Is(err, errInvalid) {
			return false, nil
		}
		return false, fmt.Errorf("save %s: %w", kind.Type(), err)
	}

	var userID int64
	if env.User != nil {
		userID = env.User.ID
	}
	if err := e.audit.LogSave(string(kind.Type()), el.ID, el.Locale, userID, isNew); err != nil {
		env.Log.Warn().Err(err).Msg("audit log write failed")
	}
	if rec, ok := el.Record.(*model.AssetRecord); ok && renamedFrom != "" && rec.Filename != renamedFrom {
		if err := e.audit.LogRename(el.ID, renamedFrom, rec.Filename, userID); err != nil {
			env.Log.Warn().Err(err).Msg("audit log write failed")
		}
	}
	return true, nil
}

func saveElement(env *Env, kind Kind, el *model.Element, isNew bool) error {
	now := dates.FormatDB(env.Now)
	if isNew {
		if el.UID == "" {
			el.UID = uuid.NewString()
		}
		res, err := env.DB.Exec(
			"INSERT INTO elements (uid, type, enabled, archived, dateCreated, dateUpdated) VALUES (?, ?, ?, ?, ?, ?)",
			el.UID, string(kind.Type()), el.Enabled, el.Archived, now, now,
		)
		if err != nil {
			return fmt.Errorf("insert element: %w", err)
		}
		if el.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("insert element: %w", err)
		}
		el.DateCreated = env.Now
	} else {
		res, err := env.DB.Exec(
			"UPDATE elements SET enabled = ?, archived = ?, dateUpdated = ? WHERE id = ? AND type = ?",
			el.Enabled, el.Archived, now, el.ID, string(kind.Type()),
		)
		if err != nil {
			return fmt.Errorf("update element: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%s %d: %w", kind.Type(), el.ID, ErrNotFound)
		}
	}
	el.DateUpdated = env.Now

	if err := kind.saveRecord(env, el, isNew); err != nil {
		return err
	}
	if err := kind.afterSave(env, el, isNew); err != nil {
		return err
	}

	uri, err := elementURI(env, kind, el, el.Locale)
	if err != nil {
		return err
	}
	el.URI = uri
	if _, err := env.DB.Exec(`
		INSERT INTO elements_i18n (elementId, locale, slug, uri, enabled) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(elementId, locale) DO UPDATE SET slug = excluded.slug, uri = excluded.uri, enabled = excluded.enabled`,
		el.ID, el.Locale, nullString(el.Slug), nullString(el.URI), el.LocaleEnabled,
	); err != nil {
		return fmt.Errorf("save element locale: %w", err)
	}

	if kind.HasContent() {
		if err := saveContent(env, kind, el); err != nil {
			return err
		}
	}
	return indexKeywords(env, kind, el)
}

// saveContent stores plain field values as JSON and relational field values
// in the relations table.
func saveContent(env *Env, kind Kind, el *model.Element) error {
	ctx := fieldContextOf(kind, el)
	stored := make(map[string]any, len(el.Fields))
	for handle, value := range el.Fields {
		f, ok := env.Fields.Lookup(ctx, handle)
		switch {
		case ok && f.IsRelational():
			ids, err := idList(value)
			if err != nil {
				return fmt.Errorf("field %s: %w", handle, err)
			}
			var locale *string
			if f.Translatable {
				l := el.Locale
				locale = &l
			}
			if err := relations.SaveField(env.DB, f.ID, el.ID, locale, ids); err != nil {
				return fmt.Errorf("field %s: %w", handle, err)
			}
		case ok && f.Type == field.TypeMatrix:
			// Blocks are elements of their own.
		default:
			stored[handle] = value
		}
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	if _, err := env.DB.Exec(`
		INSERT INTO content (elementId, locale, title, fields) VALUES (?, ?, ?, ?)
		ON CONFLICT(elementId, locale) DO UPDATE SET title = excluded.title, fields = excluded.fields`,
		el.ID, el.Locale, nullString(el.Title), string(data),
	); err != nil {
		return fmt.Errorf("save content: %w", err)
	}
	return nil
}

func indexKeywords(env *Env, kind Kind, el *model.Element) error {
	attrs := map[string]string{"slug": el.Slug}
	if kind.HasTitles() {
		attrs["title"] = el.Title
	}
	if sa, ok := kind.(searchAttributer); ok {
		for k, v := range sa.searchAttributes(el) {
			attrs[k] = v
		}
	}
	for attr, value := range attrs {
		if err := search.Index(env.DB, el.ID, attr, 0, el.Locale, search.Normalize(value)); err != nil {
			return err
		}
	}

	ctx := fieldContextOf(kind, el)
	for handle, value := range el.Fields {
		f, ok := env.Fields.Lookup(ctx, handle)
		if !ok || (f.Type != field.TypePlainText && f.Type != field.TypeRichText) {
			continue
		}
		s, ok := value.(string)
		if !ok {
			continue
		}
		keywords := search.Normalize(s)
		if f.Type == field.TypeRichText {
			keywords = search.Keywords(s)
		}
		if err := search.Index(env.DB, el.ID, "field", f.ID, el.Locale, keywords); err != nil {
			return err
		}
	}
	return nil
}

// elementURI renders the element's URI in locale and makes it unique among
// that locale's URIs.
func elementURI(env *Env, kind Kind, el *model.Element, locale string) (string, error) {
	format, err := kind.uriFormat(env, el)
	if err != nil || format == "" {
		return "", err
	}

	var parentURI string
	if s, ok := kind.(structured); ok {
		sid, err := s.structureID(env, el)
		if err != nil {
			return "", err
		}
		if sid != 0 {
			parent, err := structure.Parent(env.DB, sid, el.ID)
			if err != nil && !errors.Is(err, structure.ErrNotInStructure) {
				return "", err
			}
			if parent != 0 {
				err := env.DB.QueryRow(
					"SELECT IFNULL(uri, '') FROM elements_i18n WHERE elementId = ? AND locale = ?",
					parent, locale,
				).Scan(&parentURI)
				if err != nil && !errors.Is(err, sql.ErrNoRows) {
					return "", fmt.Errorf("load parent uri: %w", err)
				}
			}
		}
	}

	uri, err := slugs.RenderURI(format, slugs.URIVars{Slug: el.Slug, ID: el.ID, ParentURI: parentURI})
	if err != nil {
		return "", err
	}
	return slugs.Unique(uri, func(candidate string) (bool, error) {
		var n int
		err := env.DB.QueryRow(
			"SELECT COUNT(*) FROM elements_i18n WHERE uri = ? AND locale = ? AND elementId != ?",
			candidate, locale, el.ID,
		).Scan(&n)
		return n > 0, err
	})
}

func idList(value any) ([]int64, error) {
	var ids []int64
	for _, item := range params.AsList(value) {
		switch v := item.(type) {
		case *model.Element:
			ids = append(ids, v.ID)
		case int64:
			ids = append(ids, v)
		case int:
			ids = append(ids, int64(v))
		case float64:
			ids = append(ids, int64(v))
		default:
			return nil, fmt.Errorf("expected element ids, got %T", item)
		}
	}
	return ids, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
