package elements

import (
	"github.com/aidanlsb/elements/internal/criteria"
	"github.com/aidanlsb/elements/internal/model"
)

// SourceHook contributes extra sources for a kind. Its sources are appended
// after the kind's own.
type SourceHook func(env *Env, kind Kind, context string) ([]*model.Source, error)

// QueryHook adds joins or conditions after the kind has modified the query.
// Returning false means no element can match.
type QueryHook func(env *Env, kind Kind, q *Query, c *criteria.Criteria) (bool, error)

// TableAttributeHook contributes table attributes for a source. An attribute
// with an existing key replaces its label in place.
type TableAttributeHook func(kind Kind, source string) []Attribute

// AttributeValueHook renders an attribute. ok false leaves the value as is.
type AttributeValueHook func(el *model.Element, attr string) (value string, ok bool)

// Extensions holds hooks in registration order.
type Extensions struct {
	sources         []SourceHook
	queries         []QueryHook
	tableAttributes []TableAttributeHook
	attributeValues []AttributeValueHook
}

// AddSourceHook registers a source hook.
func (x *Extensions) AddSourceHook(h SourceHook) { x.sources = append(x.sources, h) }

// AddQueryHook registers a query hook.
func (x *Extensions) AddQueryHook(h QueryHook) { x.queries = append(x.queries, h) }

// AddTableAttributeHook registers a table attribute hook.
func (x *Extensions) AddTableAttributeHook(h TableAttributeHook) {
	x.tableAttributes = append(x.tableAttributes, h)
}

// AddAttributeValueHook registers an attribute value hook.
func (x *Extensions) AddAttributeValueHook(h AttributeValueHook) {
	x.attributeValues = append(x.attributeValues, h)
}

// TableAttributes returns the kind's attributes for source merged with every
// hook's in registration order.
func TableAttributes(env *Env, kind Kind, source string) []Attribute {
	attrs := kind.TableAttributes(source)
	index := make(map[string]int, len(attrs))
	for i, a := range attrs {
		index[a.Key] = i
	}
	for _, h := range env.Extensions().tableAttributes {
		for _, a := range h(kind, source) {
			if i, ok := index[a.Key]; ok {
				attrs[i] = a
				continue
			}
			index[a.Key] = len(attrs)
			attrs = append(attrs, a)
		}
	}
	return attrs
}

// AttributeValue renders attr of el. Hooks run after the kind, so the last
// hook that handles attr wins.
func AttributeValue(env *Env, kind Kind, el *model.Element, attr string) string {
	value := kind.AttributeValue(env, el, attr)
	for _, h := range env.Extensions().attributeValues {
		if v, ok := h(el, attr); ok {
			value = v
		}
	}
	return value
}
