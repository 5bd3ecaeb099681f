// Package structure stores element hierarchies as nested sets.
//
// Every structure has a hidden root row (elementId NULL, level 0) so
// top-level elements are ordinary children.
package structure

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/aidanlsb/elements/internal/model"
	"github.com/aidanlsb/elements/internal/sqlutil"
)

// Position says where Place puts an element relative to its target.
type Position int

const (
	AppendTo Position = iota
	PrependTo
	Before
	After
)

func (p Position) String() string {
	switch p {
	case AppendTo:
		return "append"
	case PrependTo:
		return "prepend"
	case Before:
		return "before"
	case After:
		return "after"
	default:
		return "unknown"
	}
}

var (
	// ErrNotInStructure indicates the element has no row in the structure.
	ErrNotInStructure = errors.New("element is not in the structure")
	// ErrInvalidMove indicates a target inside the moved element's own subtree.
	ErrInvalidMove = errors.New("cannot move an element relative to itself or its descendants")
	// ErrMaxLevels indicates the move would exceed the structure's level limit.
	ErrMaxLevels = errors.New("structure level limit exceeded")
)

// Create inserts a structure and its root row. maxLevels 0 means unlimited.
func Create(db sqlutil.DBTX, maxLevels int) (int64, error) {
	var ml any
	if maxLevels > 0 {
		ml = maxLevels
	}
	res, err := db.Exec("INSERT INTO structures (maxLevels) VALUES (?)", ml)
	if err != nil {
		return 0, fmt.Errorf("create structure: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create structure: %w", err)
	}
	if _, err := root(db, id); err != nil {
		return 0, err
	}
	return id, nil
}

// root returns the structure's root row, creating it if missing.
func root(db sqlutil.DBTX, structureID int64) (model.StructureElement, error) {
	row := db.QueryRow(
		"SELECT lft, rgt, level FROM structureelements WHERE structureId = ? AND elementId IS NULL",
		structureID,
	)
	se := model.StructureElement{StructureID: structureID}
	err := row.Scan(&se.Lft, &se.Rgt, &se.Level)
	if err == nil {
		return se, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return se, fmt.Errorf("load structure root: %w", err)
	}

	var maxRgt sql.NullInt64
	if err := db.QueryRow("SELECT MAX(rgt) FROM structureelements WHERE structureId = ?", structureID).Scan(&maxRgt); err != nil {
		return se, fmt.Errorf("load structure bounds: %w", err)
	}
	if maxRgt.Valid {
		return se, fmt.Errorf("structure %d has rows but no root", structureID)
	}
	if _, err := db.Exec(
		"INSERT INTO structureelements (structureId, elementId, lft, rgt, level) VALUES (?, NULL, 1, 2, 0)",
		structureID,
	); err != nil {
		return se, fmt.Errorf("create structure root: %w", err)
	}
	return model.StructureElement{StructureID: structureID, Lft: 1, Rgt: 2, Level: 0}, nil
}

// Get returns the element's row, or ErrNotInStructure.
func Get(db sqlutil.DBTX, structureID, elementID int64) (model.StructureElement, error) {
	se := model.StructureElement{StructureID: structureID}
	id := elementID
	se.ElementID = &id
	err := db.QueryRow(
		"SELECT lft, rgt, level FROM structureelements WHERE structureId = ? AND elementId = ?",
		structureID, elementID,
	).Scan(&se.Lft, &se.Rgt, &se.Level)
	if errors.Is(err, sql.ErrNoRows) {
		return se, fmt.Errorf("element %d in structure %d: %w", elementID, structureID, ErrNotInStructure)
	}
	if err != nil {
		return se, fmt.Errorf("load structure element: %w", err)
	}
	return se, nil
}

// Contains reports whether the element has a row in the structure.
func Contains(db sqlutil.DBTX, structureID, elementID int64) (bool, error) {
	_, err := Get(db, structureID, elementID)
	if errors.Is(err, ErrNotInStructure) {
		return false, nil
	}
	return err == nil, err
}

// Place inserts elementID, or moves it with its subtree, to pos relative to
// targetID. A targetID of 0 means the structure root, which only accepts
// AppendTo and PrependTo. It reports whether any row changed.
func Place(db sqlutil.DBTX, structureID, elementID int64, pos Position, targetID int64) (bool, error) {
	var target model.StructureElement
	var err error
	if targetID == 0 {
		if pos == Before || pos == After {
			return false, fmt.Errorf("%w: cannot place %s the root", ErrInvalidMove, pos)
		}
		target, err = root(db, structureID)
	} else {
		if _, err := root(db, structureID); err != nil {
			return false, err
		}
		target, err = Get(db, structureID, targetID)
	}
	if err != nil {
		return false, err
	}

	var dst int64
	var level int
	switch pos {
	case AppendTo:
		dst, level = target.Rgt, target.Level+1
	case PrependTo:
		dst, level = target.Lft+1, target.Level+1
	case Before:
		dst, level = target.Lft, target.Level
	case After:
		dst, level = target.Rgt+1, target.Level
	default:
		return false, fmt.Errorf("unknown position %d", pos)
	}

	maxLevels, err := maxLevelsOf(db, structureID)
	if err != nil {
		return false, err
	}

	node, err := Get(db, structureID, elementID)
	if errors.Is(err, ErrNotInStructure) {
		if maxLevels > 0 && level > maxLevels {
			return false, fmt.Errorf("%w: level %d > %d", ErrMaxLevels, level, maxLevels)
		}
		return true, insertAt(db, structureID, elementID, dst, level)
	}
	if err != nil {
		return false, err
	}

	if target.Lft >= node.Lft && target.Rgt <= node.Rgt {
		return false, ErrInvalidMove
	}
	if maxLevels > 0 {
		depth, err := subtreeDepth(db, node)
		if err != nil {
			return false, err
		}
		if level+depth > maxLevels {
			return false, fmt.Errorf("%w: level %d > %d", ErrMaxLevels, level+depth, maxLevels)
		}
	}
	return moveTo(db, node, dst, level)
}

func insertAt(db sqlutil.DBTX, structureID, elementID, dst int64, level int) error {
	if err := openGap(db, structureID, dst, 2); err != nil {
		return err
	}
	if _, err := db.Exec(
		"INSERT INTO structureelements (structureId, elementId, lft, rgt, level) VALUES (?, ?, ?, ?, ?)",
		structureID, elementID, dst, dst+1, level,
	); err != nil {
		return fmt.Errorf("insert structure element: %w", err)
	}
	return nil
}

// moveTo relocates node's subtree so its lft lands at dst in the current
// coordinates.
func moveTo(db sqlutil.DBTX, node model.StructureElement, dst int64, level int) (bool, error) {
	if dst == node.Lft || dst == node.Rgt+1 {
		return false, nil
	}

	width := node.Rgt - node.Lft + 1
	distance := dst - node.Lft
	tmppos := node.Lft
	if distance < 0 {
		distance -= width
		tmppos += width
	}
	levelDelta := level - node.Level

	if err := openGap(db, node.StructureID, dst, width); err != nil {
		return false, err
	}

	if _, err := db.Exec(`
		UPDATE structureelements
		SET lft = lft + ?, rgt = rgt + ?, level = level + ?
		WHERE structureId = ? AND lft >= ? AND rgt < ?`,
		distance, distance, levelDelta, node.StructureID, tmppos, tmppos+width,
	); err != nil {
		return false, fmt.Errorf("move subtree: %w", err)
	}

	end := tmppos + width - 1
	if _, err := db.Exec(`
		UPDATE structureelements
		SET lft = CASE WHEN lft > ? THEN lft - ? ELSE lft END,
			rgt = CASE WHEN rgt > ? THEN rgt - ? ELSE rgt END
		WHERE structureId = ? AND rgt > ?`,
		end, width, end, width, node.StructureID, end,
	); err != nil {
		return false, fmt.Errorf("close structure gap: %w", err)
	}
	return true, nil
}

// openGap shifts every bound at or after dst by width. Each row is updated
// in one statement so lft < rgt holds throughout.
func openGap(db sqlutil.DBTX, structureID, dst, width int64) error {
	if _, err := db.Exec(`
		UPDATE structureelements
		SET lft = CASE WHEN lft >= ? THEN lft + ? ELSE lft END,
			rgt = CASE WHEN rgt >= ? THEN rgt + ? ELSE rgt END
		WHERE structureId = ? AND rgt >= ?`,
		dst, width, dst, width, structureID, dst,
	); err != nil {
		return fmt.Errorf("open structure gap: %w", err)
	}
	return nil
}

func maxLevelsOf(db sqlutil.DBTX, structureID int64) (int, error) {
	var ml sql.NullInt64
	err := db.QueryRow("SELECT maxLevels FROM structures WHERE id = ?", structureID).Scan(&ml)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("structure %d does not exist", structureID)
	}
	if err != nil {
		return 0, fmt.Errorf("load structure: %w", err)
	}
	return int(ml.Int64), nil
}

func subtreeDepth(db sqlutil.DBTX, node model.StructureElement) (int, error) {
	var maxLevel int
	err := db.QueryRow(
		"SELECT MAX(level) FROM structureelements WHERE structureId = ? AND lft >= ? AND rgt <= ?",
		node.StructureID, node.Lft, node.Rgt,
	).Scan(&maxLevel)
	if err != nil {
		return 0, fmt.Errorf("load subtree depth: %w", err)
	}
	return maxLevel - node.Level, nil
}
