// Package criteria implements the typed parameter bag used to describe an
// element query.
package criteria

import (
	"sort"
)

// AttrType is the declared type of a criteria attribute.
type AttrType int

const (
	Number AttrType = iota
	String
	Bool
	Mixed
	Enum
	DateTime
	Locale
)

func (t AttrType) String() string {
	switch t {
	case Number:
		return "number"
	case String:
		return "string"
	case Bool:
		return "bool"
	case Mixed:
		return "mixed"
	case Enum:
		return "enum"
	case DateTime:
		return "datetime"
	case Locale:
		return "locale"
	default:
		return "unknown"
	}
}

// Attribute declares one criteria attribute.
type Attribute struct {
	Type    AttrType
	Default any
	// Values lists the allowed values of an Enum attribute.
	Values []string
}

// Schema maps attribute names to their declarations.
type Schema map[string]Attribute

// Merge returns a new schema with other's attributes layered over s.
func (s Schema) Merge(other Schema) Schema {
	out := make(Schema, len(s)+len(other))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Without returns a copy of s without the named attributes.
func (s Schema) Without(names ...string) Schema {
	out := make(Schema, len(s))
	for k, v := range s {
		out[k] = v
	}
	for _, n := range names {
		delete(out, n)
	}
	return out
}

// Names returns the attribute names, sorted.
func (s Schema) Names() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Base is the generic schema every kind starts from.
func Base() Schema {
	return Schema{
		"id":            {Type: Number},
		"uid":           {Type: String},
		"archived":      {Type: Bool, Default: false},
		"dateCreated":   {Type: DateTime},
		"dateUpdated":   {Type: DateTime},
		"locale":        {Type: Locale},
		"localeEnabled": {Type: Bool, Default: true},
		"slug":          {Type: String},
		"uri":           {Type: String},
		"status":        {Type: Mixed},
		"relatedTo":     {Type: Mixed},
		"search":        {Type: String},
		"fixedOrder":    {Type: Bool, Default: false},
		"order":         {Type: String, Default: "dateCreated desc"},
		"limit":         {Type: Number, Default: 100},
		"offset":        {Type: Number, Default: 0},
		"with":          {Type: Mixed},
	}
}
