package elements

import (
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/aidanlsb/elements/internal/dates"
	"github.com/aidanlsb/elements/internal/model"
)

// Row is one result row keyed by column alias.
type Row map[string]any

func scanRow(rows *sql.Rows) (Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	row := make(Row, len(cols))
	for i, c := range cols {
		if b, ok := vals[i].([]byte); ok {
			row[c] = string(b)
			continue
		}
		row[c] = vals[i]
	}
	return row, nil
}

// Int64 returns an integer column, or 0.
func (r Row) Int64(key string) int64 {
	n, _ := r.int(key)
	return n
}

// IntPtr returns an integer column, or nil for NULL.
func (r Row) IntPtr(key string) *int64 {
	n, ok := r.int(key)
	if !ok {
		return nil
	}
	return &n
}

func (r Row) int(key string) (int64, bool) {
	switch v := r[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}

// String returns a text column, or "".
func (r Row) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

// StringPtr returns a text column, or nil for NULL.
func (r Row) StringPtr(key string) *string {
	if r[key] == nil {
		return nil
	}
	s := r.String(key)
	return &s
}

// Bool returns an integer flag column.
func (r Row) Bool(key string) bool {
	return r.Int64(key) != 0
}

// Time returns a date column, or the zero time.
func (r Row) Time(key string) time.Time {
	t := r.TimePtr(key)
	if t == nil {
		return time.Time{}
	}
	return *t
}

// TimePtr returns a date column, or nil for NULL or unparseable values.
func (r Row) TimePtr(key string) *time.Time {
	switch v := r[key].(type) {
	case time.Time:
		t := v.UTC()
		return &t
	case string:
		t, err := dates.ParseDB(v)
		if err != nil {
			return nil
		}
		return &t
	}
	return nil
}

// element builds the generic part of an element from a row.
func (r Row) element(kind Kind) *model.Element {
	el := &model.Element{
		ID:            r.Int64("id"),
		UID:           r.String("uid"),
		Type:          kind.Type(),
		Locale:        r.String("locale"),
		Enabled:       r.Bool("enabled"),
		Archived:      r.Bool("archived"),
		LocaleEnabled: r.Bool("localeEnabled"),
		Slug:          r.String("slug"),
		URI:           r.String("uri"),
		Title:         r.String("title"),
		DateCreated:   r.Time("dateCreated"),
		DateUpdated:   r.Time("dateUpdated"),
	}
	if raw := r.String("fields"); raw != "" && raw != "{}" {
		var fields map[string]any
		if err := json.Unmarshal([]byte(raw), &fields); err == nil {
			el.Fields = fields
		}
	}
	if sid := r.IntPtr("structureId"); sid != nil {
		el.Structure = &model.StructurePosition{
			StructureID: *sid,
			Lft:         r.Int64("lft"),
			Rgt:         r.Int64("rgt"),
			Level:       int(r.Int64("level")),
		}
	}
	return el
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return dates.FormatDB(t)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func dbTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return dates.FormatDB(*t)
}
