package structure

import (
	"database/sql"
	"fmt"

	"github.com/aidanlsb/elements/internal/model"
	"github.com/aidanlsb/elements/internal/sqlutil"
)

// Ancestors returns the element's ancestor ids from the top level down,
// excluding the root. dist > 0 limits how many levels up are returned.
func Ancestors(db sqlutil.DBTX, structureID, elementID int64, dist int) ([]int64, error) {
	query := `
		SELECT a.elementId FROM structureelements a
		JOIN structureelements n ON n.structureId = a.structureId
		WHERE n.structureId = ? AND n.elementId = ?
			AND a.lft < n.lft AND a.rgt > n.rgt AND a.elementId IS NOT NULL`
	args := []any{structureID, elementID}
	if dist > 0 {
		query += " AND a.level >= n.level - ?"
		args = append(args, dist)
	}
	query += " ORDER BY a.lft"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("load ancestors: %w", err)
	}
	ids, err := sqlutil.ScanInt64s(rows)
	if err != nil {
		return nil, fmt.Errorf("load ancestors: %w", err)
	}
	return ids, nil
}

// Parent returns the nearest ancestor id, or 0 for a top-level element.
func Parent(db sqlutil.DBTX, structureID, elementID int64) (int64, error) {
	ids, err := Ancestors(db, structureID, elementID, 1)
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	return ids[len(ids)-1], nil
}

// Descendants returns descendant ids in tree order. dist > 0 limits depth.
func Descendants(db sqlutil.DBTX, structureID, elementID int64, dist int) ([]int64, error) {
	query := `
		SELECT d.elementId FROM structureelements d
		JOIN structureelements n ON n.structureId = d.structureId
		WHERE n.structureId = ? AND n.elementId = ? AND d.lft > n.lft AND d.rgt < n.rgt`
	args := []any{structureID, elementID}
	if dist > 0 {
		query += " AND d.level <= n.level + ?"
		args = append(args, dist)
	}
	query += " ORDER BY d.lft"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("load descendants: %w", err)
	}
	ids, err := sqlutil.ScanInt64s(rows)
	if err != nil {
		return nil, fmt.Errorf("load descendants: %w", err)
	}
	return ids, nil
}

// DescendantEdges maps each source to its descendants in any structure the
// source belongs to, in tree order. dist > 0 limits depth; 1 yields children.
func DescendantEdges(db sqlutil.DBTX, sourceIDs []int64, dist int) ([]model.Edge, error) {
	ph, args := sqlutil.InClauseArgs(sourceIDs)
	query := fmt.Sprintf(`
		SELECT p.elementId, d.elementId FROM structureelements p
		JOIN structureelements d ON d.structureId = p.structureId AND d.lft > p.lft AND d.rgt < p.rgt
		WHERE p.elementId IN (%s)`, ph)
	if dist > 0 {
		query += " AND d.level <= p.level + ?"
		args = append(args, dist)
	}
	query += " ORDER BY p.elementId, d.lft"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("load descendant edges: %w", err)
	}
	edges, err := sqlutil.ScanRows(rows, scanEdge)
	if err != nil {
		return nil, fmt.Errorf("load descendant edges: %w", err)
	}
	return edges, nil
}

// Tree returns every non-root row of a structure in tree order.
func Tree(db sqlutil.DBTX, structureID int64) ([]model.StructureElement, error) {
	rows, err := db.Query(`
		SELECT elementId, lft, rgt, level FROM structureelements
		WHERE structureId = ? AND elementId IS NOT NULL ORDER BY lft`, structureID)
	if err != nil {
		return nil, fmt.Errorf("load structure: %w", err)
	}
	out, err := sqlutil.ScanRows(rows, func(r *sql.Rows) (model.StructureElement, error) {
		se := model.StructureElement{StructureID: structureID}
		var id int64
		if err := r.Scan(&id, &se.Lft, &se.Rgt, &se.Level); err != nil {
			return se, err
		}
		se.ElementID = &id
		return se, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load structure: %w", err)
	}
	return out, nil
}

func scanEdge(r *sql.Rows) (model.Edge, error) {
	var e model.Edge
	err := r.Scan(&e.Source, &e.Target)
	return e, err
}
