package elements

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanlsb/elements/internal/criteria"
	"github.com/aidanlsb/elements/internal/model"
)

func attributeKeys(attrs []Attribute) []string {
	keys := make([]string, 0, len(attrs))
	for _, a := range attrs {
		keys = append(keys, a.Key)
	}
	return keys
}

func TestTableAttributesCoreFirst(t *testing.T) {
	f := newFixture(t)
	ext := f.engine.Extensions()
	ext.AddTableAttributeHook(func(kind Kind, source string) []Attribute {
		return []Attribute{{Key: "rating", Label: "Rating"}, {Key: "title", Label: "Headline"}}
	})
	ext.AddTableAttributeHook(func(kind Kind, source string) []Attribute {
		return []Attribute{{Key: "views", Label: "Views"}}
	})
	env := f.admin()

	attrs := TableAttributes(env, Entries, "*")
	assert.Equal(t, []string{"title", "uri", "section", "postDate", "expiryDate", "rating", "views"}, attributeKeys(attrs))
	assert.Equal(t, "Headline", attrs[0].Label)

	attrs = TableAttributes(env, Entries, sectionKey(f, "news"))
	assert.NotContains(t, attributeKeys(attrs), "section")
}

func TestAttributeValueLastHookWins(t *testing.T) {
	f := newFixture(t)
	el := f.entry("news", "Hello", at("2024-01-01 00:00:00"), nil)
	ext := f.engine.Extensions()
	ext.AddAttributeValueHook(func(el *model.Element, attr string) (string, bool) {
		if attr == "title" {
			return "first", true
		}
		return "", false
	})
	ext.AddAttributeValueHook(func(el *model.Element, attr string) (string, bool) {
		if attr == "title" {
			return "second", true
		}
		return "", false
	})
	env := f.admin()

	assert.Equal(t, "second", AttributeValue(env, Entries, el, "title"))
	assert.Equal(t, "news/hello", AttributeValue(env, Entries, el, "uri"))
}

func TestSourceHooksAppendInOrder(t *testing.T) {
	f := newFixture(t)
	ext := f.engine.Extensions()
	ext.AddSourceHook(func(env *Env, kind Kind, context string) ([]*model.Source, error) {
		if kind != Tags {
			return nil, nil
		}
		return []*model.Source{{Key: "popular", Label: "Popular"}}, nil
	})
	ext.AddSourceHook(func(env *Env, kind Kind, context string) ([]*model.Source, error) {
		return []*model.Source{{Key: "recent", Label: "Recent"}}, nil
	})
	env := f.admin()

	sources, err := Sources(env, Tags, ContextIndex)
	require.NoError(t, err)
	keys := model.Keys(sources)
	require.Len(t, keys, 3)
	assert.Equal(t, []string{"popular", "recent"}, keys[1:])

	sources, err = Sources(env, GlobalSets, ContextIndex)
	require.NoError(t, err)
	assert.Equal(t, []string{"recent"}, model.Keys(sources))
}

func TestQueryHooksRunAfterKind(t *testing.T) {
	f := newFixture(t)
	keep := f.tag("Keep")
	f.tag("Drop")
	ext := f.engine.Extensions()

	var seen []string
	ext.AddQueryHook(func(env *Env, kind Kind, q *Query, c *criteria.Criteria) (bool, error) {
		seen = append(seen, "first")
		// The kind's joins are already in place.
		q.Where("tags.id = ?", keep.ID)
		return true, nil
	})
	ext.AddQueryHook(func(env *Env, kind Kind, q *Query, c *criteria.Criteria) (bool, error) {
		seen = append(seen, "second")
		return kind != GlobalSets, nil
	})
	env := f.admin()

	assert.Equal(t, []int64{keep.ID}, idsOf(f.find(env, Tags, nil)))
	assert.Equal(t, []string{"first", "second"}, seen)

	_, ok, err := Compose(env, GlobalSets, NewCriteria(env, GlobalSets))
	require.NoError(t, err)
	assert.False(t, ok)
}
