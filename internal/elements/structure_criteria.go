package elements

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/aidanlsb/elements/internal/criteria"
	"github.com/aidanlsb/elements/internal/model"
	"github.com/aidanlsb/elements/internal/params"
)

var structureSchema = criteria.Schema{
	"ancestorOf":     {Type: criteria.Number},
	"ancestorDist":   {Type: criteria.Number},
	"descendantOf":   {Type: criteria.Number},
	"descendantDist": {Type: criteria.Number},
	"siblingOf":      {Type: criteria.Number},
	"prevSiblingOf":  {Type: criteria.Number},
	"nextSiblingOf":  {Type: criteria.Number},
	"level":          {Type: criteria.Number},
}

func joinStructure(q *Query) {
	q.Select(
		"structureelements.structureId AS structureId",
		"structureelements.lft AS lft",
		"structureelements.rgt AS rgt",
		"structureelements.level AS level",
	)
	q.Join("LEFT JOIN structureelements ON structureelements.elementId = elements.id")
}

// applyStructureCriteria translates the tree-relative criteria. A referenced
// element outside every structure means nothing can match.
func applyStructureCriteria(env *Env, q *Query, c *criteria.Criteria) (bool, error) {
	if v, ok := c.Value("level"); ok {
		if err := q.WhereParam(params.Col("structureelements.level"), v); err != nil {
			return false, fmt.Errorf("level: %w", err)
		}
	}

	type relative struct {
		attr string
		cond func(n model.StructureElement) (string, []any, error)
	}
	rels := []relative{
		{"ancestorOf", func(n model.StructureElement) (string, []any, error) {
			cond := "structureelements.structureId = ? AND structureelements.lft < ? AND structureelements.rgt > ?"
			args := []any{n.StructureID, n.Lft, n.Rgt}
			if dist, ok := c.Int("ancestorDist"); ok && dist > 0 {
				cond += " AND structureelements.level >= ?"
				args = append(args, int64(n.Level)-dist)
			}
			return cond, args, nil
		}},
		{"descendantOf", func(n model.StructureElement) (string, []any, error) {
			cond := "structureelements.structureId = ? AND structureelements.lft > ? AND structureelements.rgt < ?"
			args := []any{n.StructureID, n.Lft, n.Rgt}
			if dist, ok := c.Int("descendantDist"); ok && dist > 0 {
				cond += " AND structureelements.level <= ?"
				args = append(args, int64(n.Level)+dist)
			}
			return cond, args, nil
		}},
		{"siblingOf", func(n model.StructureElement) (string, []any, error) {
			var pl, pr int64
			err := env.DB.QueryRow(`
				SELECT lft, rgt FROM structureelements
				WHERE structureId = ? AND lft < ? AND rgt > ? AND level = ?`,
				n.StructureID, n.Lft, n.Rgt, n.Level-1,
			).Scan(&pl, &pr)
			if err != nil {
				return "", nil, fmt.Errorf("load parent: %w", err)
			}
			return "structureelements.structureId = ? AND structureelements.lft > ? AND structureelements.rgt < ? AND structureelements.level = ? AND elements.id != ?",
				[]any{n.StructureID, pl, pr, n.Level, *n.ElementID}, nil
		}},
		{"prevSiblingOf", func(n model.StructureElement) (string, []any, error) {
			return "structureelements.structureId = ? AND structureelements.rgt = ? AND structureelements.level = ?",
				[]any{n.StructureID, n.Lft - 1, n.Level}, nil
		}},
		{"nextSiblingOf", func(n model.StructureElement) (string, []any, error) {
			return "structureelements.structureId = ? AND structureelements.lft = ? AND structureelements.level = ?",
				[]any{n.StructureID, n.Rgt + 1, n.Level}, nil
		}},
	}

	for _, r := range rels {
		if !c.IsSet(r.attr) {
			continue
		}
		id, ok := c.Int(r.attr)
		if !ok {
			return false, &criteria.ValidationError{Attribute: r.attr, Message: "expected a single element id"}
		}
		node, found, err := structureNode(env, id)
		if err != nil {
			return false, err
		}
		if !found {
			return false, nil
		}
		cond, args, err := r.cond(node)
		if err != nil {
			return false, err
		}
		q.Where(cond, args...)
	}
	return true, nil
}

func structureNode(env *Env, elementID int64) (model.StructureElement, bool, error) {
	n := model.StructureElement{ElementID: &elementID}
	err := env.DB.QueryRow(
		"SELECT structureId, lft, rgt, level FROM structureelements WHERE elementId = ? ORDER BY structureId LIMIT 1",
		elementID,
	).Scan(&n.StructureID, &n.Lft, &n.Rgt, &n.Level)
	if errors.Is(err, sql.ErrNoRows) {
		return n, false, nil
	}
	if err != nil {
		return n, false, fmt.Errorf("load structure element %d: %w", elementID, err)
	}
	return n, true, nil
}
