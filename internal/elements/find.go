package elements

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/aidanlsb/elements/internal/criteria"
	"github.com/aidanlsb/elements/internal/model"
	"github.com/aidanlsb/elements/internal/sqlutil"
)

// Find returns the elements matching c, eager loading any "with" paths.
func Find(env *Env, kind Kind, c *criteria.Criteria) ([]*model.Element, error) {
	q, ok, err := Compose(env, kind, c)
	if err != nil || !ok {
		return nil, err
	}
	elements, err := run(env, kind, q)
	if err != nil {
		return nil, err
	}
	if with := c.Get("with"); with != nil && len(elements) > 0 {
		paths, err := PathsFromValue(with)
		if err != nil {
			return nil, err
		}
		if err := EagerLoad(env, kind, elements, paths...); err != nil {
			return nil, err
		}
	}
	return elements, nil
}

// FindOne returns the first match, or ErrNotFound.
func FindOne(env *Env, kind Kind, c *criteria.Criteria) (*model.Element, error) {
	c = c.Clone()
	if err := c.Set("limit", 1); err != nil {
		return nil, err
	}
	found, err := Find(env, kind, c)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	return found[0], nil
}

// FindIDs returns the ids of matching elements in query order.
func FindIDs(env *Env, kind Kind, c *criteria.Criteria) ([]int64, error) {
	q, ok, err := Compose(env, kind, c)
	if err != nil || !ok {
		return nil, err
	}
	query, args := q.IDSQL()
	rows, err := env.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w (SQL: %s)", err, query)
	}
	return sqlutil.ScanInt64s(rows)
}

// Count returns the number of matches ignoring limit and offset.
func Count(env *Env, kind Kind, c *criteria.Criteria) (int, error) {
	q, ok, err := Compose(env, kind, c)
	if err != nil || !ok {
		return 0, err
	}
	query, args := q.CountSQL()
	var n int
	if err := env.DB.QueryRow(query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("query failed: %w (SQL: %s)", err, query)
	}
	return n, nil
}

// ByID loads one element of any kind in locale regardless of status.
func ByID(env *Env, id int64, locale string) (*model.Element, Kind, error) {
	var typ string
	err := env.DB.QueryRow("SELECT type FROM elements WHERE id = ?", id).Scan(&typ)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("element %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load element %d: %w", id, err)
	}
	kind, err := KindOf(model.ElementType(typ))
	if err != nil {
		return nil, nil, err
	}
	c := anyStatus(env, kind)
	if err := c.Set("id", id); err != nil {
		return nil, nil, err
	}
	if locale != "" && kind.IsLocalized() {
		if err := c.Set("locale", locale); err != nil {
			return nil, nil, err
		}
	}
	el, err := FindOne(env, kind, c)
	if err != nil {
		return nil, nil, fmt.Errorf("element %d: %w", id, err)
	}
	return el, kind, nil
}

// anyStatus returns criteria that match elements in every state.
func anyStatus(env *Env, kind Kind) *criteria.Criteria {
	c := criteria.New(kind.CriteriaSchema(), false)
	_ = c.Set("status", "")
	_ = c.Set("localeEnabled", false)
	_ = c.Set("limit", -1)
	_ = c.Set("order", "")
	return c
}

func run(env *Env, kind Kind, q *Query) ([]*model.Element, error) {
	query, args := q.SQL()
	rows, err := env.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w (SQL: %s)", err, query)
	}
	return sqlutil.ScanRows(rows, func(r *sql.Rows) (*model.Element, error) {
		row, err := scanRow(r)
		if err != nil {
			return nil, err
		}
		el := row.element(kind)
		el.Record, err = kind.Populate(row)
		if err != nil {
			return nil, fmt.Errorf("populate %s %d: %w", kind.Type(), el.ID, err)
		}
		return el, nil
	})
}
