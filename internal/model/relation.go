package model

// Relation is a directed edge written by relational fields and by ancestor
// backfill. The tuple (FieldID, SourceID, SourceLocale, TargetID) is unique.
type Relation struct {
	FieldID      int64   `json:"field_id"`
	SourceID     int64   `json:"source_id"`
	SourceLocale *string `json:"source_locale,omitempty"`
	TargetID     int64   `json:"target_id"`
	SortOrder    int     `json:"sort_order"`
}

// StructureElement is one nested-set row. ElementID is nil for the
// structure's root node.
type StructureElement struct {
	StructureID int64  `json:"structure_id"`
	ElementID   *int64 `json:"element_id,omitempty"`
	Lft         int64  `json:"lft"`
	Rgt         int64  `json:"rgt"`
	Level       int    `json:"level"`
}

// Contains reports whether other sits strictly inside s.
func (s StructureElement) Contains(other StructureElement) bool {
	return s.StructureID == other.StructureID && other.Lft > s.Lft && other.Rgt < s.Rgt
}

// Edge maps one source element to one target element.
type Edge struct {
	Source int64 `json:"source"`
	Target int64 `json:"target"`
}

// EagerLoadMap is the result of resolving one eager-load handle: the kind of
// the targets, the ordered edges, and criteria the target query must honour.
type EagerLoadMap struct {
	Type     ElementType    `json:"type"`
	Edges    []Edge         `json:"edges"`
	Criteria map[string]any `json:"criteria,omitempty"`
}

// TargetIDs returns distinct target ids in first-seen order.
func (m *EagerLoadMap) TargetIDs() []int64 {
	seen := make(map[int64]bool, len(m.Edges))
	var ids []int64
	for _, e := range m.Edges {
		if !seen[e.Target] {
			seen[e.Target] = true
			ids = append(ids, e.Target)
		}
	}
	return ids
}
