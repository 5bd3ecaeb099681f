package model

// Source is a navigable grouping node. Keys follow "<scope>:<id>[:single]"
// or the sentinels "*" and "singles".
type Source struct {
	Key               string         `json:"key"`
	Label             string         `json:"label"`
	Heading           bool           `json:"heading,omitempty"`
	Criteria          map[string]any `json:"criteria,omitempty"`
	Nested            []*Source      `json:"nested,omitempty"`
	StructureID       int64          `json:"structure_id,omitempty"`
	StructureEditable bool           `json:"structure_editable,omitempty"`
	Data              map[string]any `json:"data,omitempty"`
}

// FindSource does a depth-first search for key.
func FindSource(sources []*Source, key string) *Source {
	for _, s := range sources {
		if s.Key == key {
			return s
		}
		if found := FindSource(s.Nested, key); found != nil {
			return found
		}
	}
	return nil
}

// Keys flattens the tree's keys in depth-first order, skipping headings.
func Keys(sources []*Source) []string {
	var keys []string
	var walk func([]*Source)
	walk = func(list []*Source) {
		for _, s := range list {
			if !s.Heading {
				keys = append(keys, s.Key)
			}
			walk(s.Nested)
		}
	}
	walk(sources)
	return keys
}
