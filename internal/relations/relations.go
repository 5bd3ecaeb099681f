// Package relations persists relational field values and backfills
// ancestor relations when a hierarchical target moves.
package relations

import (
	"database/sql"
	"fmt"

	"github.com/aidanlsb/elements/internal/model"
	"github.com/aidanlsb/elements/internal/sqlutil"
)

// batchRows bounds one multi-row insert (5 params per row).
const batchRows = 1000

var relationColumns = []string{"fieldId", "sourceId", "sourceLocale", "targetId", "sortOrder"}

// SaveField replaces a source's targets for one field, keeping targetIDs order.
// Duplicate target ids are dropped.
func SaveField(db sqlutil.DBTX, fieldID, sourceID int64, sourceLocale *string, targetIDs []int64) error {
	if _, err := db.Exec(
		"DELETE FROM relations WHERE fieldId = ? AND sourceId = ? AND sourceLocale IS ?",
		fieldID, sourceID, localeArg(sourceLocale),
	); err != nil {
		return fmt.Errorf("clear relations: %w", err)
	}

	seen := make(map[int64]bool, len(targetIDs))
	var rows [][]any
	for _, target := range targetIDs {
		if seen[target] {
			continue
		}
		seen[target] = true
		rows = append(rows, []any{fieldID, sourceID, localeArg(sourceLocale), target, len(rows) + 1})
	}
	return insertRows(db, rows)
}

// Targets lists a source's target ids for one field in sort order.
func Targets(db sqlutil.DBTX, fieldID, sourceID int64, sourceLocale *string) ([]int64, error) {
	rows, err := db.Query(
		"SELECT targetId FROM relations WHERE fieldId = ? AND sourceId = ? AND sourceLocale IS ? ORDER BY sortOrder",
		fieldID, sourceID, localeArg(sourceLocale),
	)
	if err != nil {
		return nil, fmt.Errorf("load relations: %w", err)
	}
	return sqlutil.ScanInt64s(rows)
}

type triple struct {
	fieldID  int64
	sourceID int64
	locale   string
	hasLoc   bool
}

func (t triple) localePtr() *string {
	if !t.hasLoc {
		return nil
	}
	l := t.locale
	return &l
}

// PropagateAncestors makes every relation that targets elementID also target
// each of ancestorIDs under the same (field, source, locale). It only adds
// missing rows and returns how many were inserted.
func PropagateAncestors(db sqlutil.DBTX, elementID int64, ancestorIDs []int64) (int, error) {
	if len(ancestorIDs) == 0 {
		return 0, nil
	}

	rows, err := db.Query(
		"SELECT DISTINCT fieldId, sourceId, sourceLocale FROM relations WHERE targetId = ?",
		elementID,
	)
	if err != nil {
		return 0, fmt.Errorf("load relations targeting %d: %w", elementID, err)
	}
	triples, err := sqlutil.ScanRows(rows, func(r *sql.Rows) (triple, error) {
		var t triple
		var loc sql.NullString
		if err := r.Scan(&t.fieldID, &t.sourceID, &loc); err != nil {
			return t, err
		}
		t.locale, t.hasLoc = loc.String, loc.Valid
		return t, nil
	})
	if err != nil {
		return 0, fmt.Errorf("load relations targeting %d: %w", elementID, err)
	}
	if len(triples) == 0 {
		return 0, nil
	}

	existing, maxSort, err := loadExisting(db, triples)
	if err != nil {
		return 0, err
	}

	var missing [][]any
	for _, t := range triples {
		for _, ancestor := range ancestorIDs {
			if ancestor == elementID || existing[t][ancestor] {
				continue
			}
			maxSort[t]++
			missing = append(missing, []any{t.fieldID, t.sourceID, localeArg(t.localePtr()), ancestor, maxSort[t]})
			if existing[t] == nil {
				existing[t] = make(map[int64]bool)
			}
			existing[t][ancestor] = true
		}
	}
	if err := insertRows(db, missing); err != nil {
		return 0, err
	}
	return len(missing), nil
}

// loadExisting reads, in one query, every relation row of the affected
// (field, source) pairs and groups target ids and max sortOrder by triple.
func loadExisting(db sqlutil.DBTX, triples []triple) (map[triple]map[int64]bool, map[triple]int, error) {
	fieldSet := map[int64]bool{}
	sourceSet := map[int64]bool{}
	var fields, sources []int64
	for _, t := range triples {
		if !fieldSet[t.fieldID] {
			fieldSet[t.fieldID] = true
			fields = append(fields, t.fieldID)
		}
		if !sourceSet[t.sourceID] {
			sourceSet[t.sourceID] = true
			sources = append(sources, t.sourceID)
		}
	}
	fph, fargs := sqlutil.InClauseArgs(fields)
	sph, sargs := sqlutil.InClauseArgs(sources)

	rows, err := db.Query(
		fmt.Sprintf("SELECT fieldId, sourceId, sourceLocale, targetId, sortOrder FROM relations WHERE fieldId IN (%s) AND sourceId IN (%s)", fph, sph),
		append(fargs, sargs...)...,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("load existing relations: %w", err)
	}
	defer rows.Close()

	existing := make(map[triple]map[int64]bool, len(triples))
	maxSort := make(map[triple]int, len(triples))
	for rows.Next() {
		var t triple
		var loc sql.NullString
		var target int64
		var sortOrder int
		if err := rows.Scan(&t.fieldID, &t.sourceID, &loc, &target, &sortOrder); err != nil {
			return nil, nil, fmt.Errorf("scan relation: %w", err)
		}
		t.locale, t.hasLoc = loc.String, loc.Valid
		if existing[t] == nil {
			existing[t] = make(map[int64]bool)
		}
		existing[t][target] = true
		if sortOrder > maxSort[t] {
			maxSort[t] = sortOrder
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("load existing relations: %w", err)
	}
	return existing, maxSort, nil
}

func insertRows(db sqlutil.DBTX, rows [][]any) error {
	for _, batch := range sqlutil.Chunk(rows, batchRows) {
		query, args, err := sqlutil.BulkInsert("", "relations", relationColumns, batch)
		if err != nil {
			return err
		}
		if _, err := db.Exec(query, args...); err != nil {
			return fmt.Errorf("insert relations: %w", err)
		}
	}
	return nil
}

// All returns every relation row for the given source, used by exports and tests.
func All(db sqlutil.DBTX, sourceID int64) ([]model.Relation, error) {
	rows, err := db.Query(
		"SELECT fieldId, sourceId, sourceLocale, targetId, sortOrder FROM relations WHERE sourceId = ? ORDER BY fieldId, sortOrder",
		sourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("load relations: %w", err)
	}
	return sqlutil.ScanRows(rows, func(r *sql.Rows) (model.Relation, error) {
		var rel model.Relation
		var loc sql.NullString
		if err := r.Scan(&rel.FieldID, &rel.SourceID, &loc, &rel.TargetID, &rel.SortOrder); err != nil {
			return rel, err
		}
		if loc.Valid {
			rel.SourceLocale = &loc.String
		}
		return rel, nil
	})
}

func localeArg(locale *string) any {
	if locale == nil {
		return nil
	}
	return *locale
}
