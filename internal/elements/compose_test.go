package elements

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanlsb/elements/internal/access"
	"github.com/aidanlsb/elements/internal/criteria"
	"github.com/aidanlsb/elements/internal/model"
)

func TestComposeLeavesUnsetAttributesOut(t *testing.T) {
	f := newFixture(t)
	env := f.admin()

	q, ok, err := Compose(env, Entries, f.criteria(env, Entries, map[string]any{"status": ""}))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{
		"elements.type = ?",
		"elements.archived = 0",
		"elements_i18n.enabled = 1",
	}, q.Conditions())
}

func TestComposeDoesNotModifyCriteria(t *testing.T) {
	f := newFixture(t)
	env := f.admin()
	c := f.criteria(env, Tags, map[string]any{"name": "alpha", "order": "name asc"})
	before := c.Values()

	_, _, err := Compose(env, Tags, c)
	require.NoError(t, err)
	assert.Equal(t, before, c.Values())
}

func TestComposeShortCircuits(t *testing.T) {
	f := newFixture(t)

	t.Run("editable without a user", func(t *testing.T) {
		env := f.env(nil)
		q, ok, err := Compose(env, Entries, f.criteria(env, Entries, map[string]any{"editable": true}))
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, q)
	})

	t.Run("unknown entry type", func(t *testing.T) {
		env := f.admin()
		_, ok, err := Compose(env, Entries, f.criteria(env, Entries, map[string]any{"type": "recipe"}))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("fixed order without ids", func(t *testing.T) {
		env := f.admin()
		_, ok, err := Compose(env, Entries, f.criteria(env, Entries, map[string]any{"fixedOrder": true}))
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestFindShortCircuitReturnsNothing(t *testing.T) {
	f := newFixture(t)
	f.entry("news", "Hello", at("2024-01-01 00:00:00"), nil)

	found := f.find(f.env(nil), Entries, map[string]any{"editable": true})
	assert.Empty(t, found)
}

func TestEditableEntries(t *testing.T) {
	f := newFixture(t)
	news := f.entry("news", "Hello", at("2024-01-01 00:00:00"), nil)
	f.page("About", nil)

	editor := access.NewUser(2, false, permission("editentries", f.section("news").ID))
	found := f.find(f.env(editor), Entries, map[string]any{"editable": true})
	assert.Equal(t, []int64{news.ID}, idsOf(found))
}

func TestComposeRejectsInvalidOrder(t *testing.T) {
	f := newFixture(t)
	env := f.admin()

	for _, order := range []string{"title sideways", "nosuchcolumn", "title asc extra"} {
		t.Run(order, func(t *testing.T) {
			_, _, err := Compose(env, Entries, f.criteria(env, Entries, map[string]any{"order": order}))
			var se *SchemaError
			require.True(t, errors.As(err, &se), "got %v", err)
			assert.Equal(t, "order", se.Op)
		})
	}
}

func TestFixedOrderKeepsIDOrder(t *testing.T) {
	f := newFixture(t)
	a := f.tag("Alpha")
	b := f.tag("Beta")
	c := f.tag("Gamma")

	found := f.find(f.admin(), Tags, map[string]any{
		"id":         []any{c.ID, a.ID, b.ID},
		"fixedOrder": true,
	})
	assert.Equal(t, []int64{c.ID, a.ID, b.ID}, idsOf(found))
}

func TestDefaultLimit(t *testing.T) {
	f := newFixture(t, WithDefaultLimit(2))
	for _, title := range []string{"Alpha", "Beta", "Gamma"} {
		f.tag(title)
	}
	env := f.admin()

	assert.Len(t, f.find(env, Tags, nil), 2)
	assert.Len(t, f.find(env, Tags, map[string]any{"limit": -1}), 3)

	n, err := Count(env, Tags, f.criteria(env, Tags, nil))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestTitleAndSlugCriteria(t *testing.T) {
	f := newFixture(t)
	hello := f.entry("news", "Hello World", at("2024-01-01 00:00:00"), nil)
	f.entry("news", "Goodbye", at("2024-01-01 00:00:00"), nil)
	env := f.admin()

	assert.Equal(t, []int64{hello.ID}, idsOf(f.find(env, Entries, map[string]any{"title": "Hello*"})))
	assert.Equal(t, []int64{hello.ID}, idsOf(f.find(env, Entries, map[string]any{"slug": "hello-world"})))
	assert.Equal(t, []int64{hello.ID}, idsOf(f.find(env, Entries, map[string]any{"uri": "news/hello-world"})))
}

func TestSectionCriteria(t *testing.T) {
	f := newFixture(t)
	news := f.entry("news", "Hello", at("2024-01-01 00:00:00"), nil)
	page := f.page("About", nil)
	env := f.admin()

	assert.Equal(t, []int64{news.ID}, idsOf(f.find(env, Entries, map[string]any{"section": "news"})))
	assert.Equal(t, []int64{page.ID}, idsOf(f.find(env, Entries, map[string]any{"sectionId": f.section("pages").ID})))
	assert.Empty(t, f.find(env, Entries, map[string]any{"type": "link"}))
}

func TestEntryRefCriteria(t *testing.T) {
	f := newFixture(t)
	hello := f.entry("news", "Hello", at("2024-01-01 00:00:00"), nil)
	f.entry("news", "Other", at("2024-01-01 00:00:00"), nil)
	f.page("About", nil)
	env := f.admin()

	tests := []struct {
		name string
		ref  any
		want []int64
	}{
		{"section and slug", "news/hello", []int64{hello.ID}},
		{"bare slug", "hello", []int64{hello.ID}},
		{"wrong section", "pages/hello", nil},
		{"list is ORed", []string{"pages/hello", "news/hello"}, []int64{hello.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found := f.find(env, Entries, map[string]any{"ref": tt.ref})
			if tt.want == nil {
				assert.Empty(t, found)
				return
			}
			assert.Equal(t, tt.want, idsOf(found))
		})
	}
}

func TestNumericLookingTextFieldEquality(t *testing.T) {
	f := newFixture(t)
	year := f.save(&model.Element{
		Type:    model.TypeEntry,
		Enabled: true,
		Title:   "Archive",
		Fields:  map[string]any{"summary": "2024"},
		Record:  &model.EntryRecord{SectionID: f.section("news").ID, PostDate: at("2024-01-01 00:00:00")},
	})
	f.save(&model.Element{
		Type:    model.TypeEntry,
		Enabled: true,
		Title:   "Older",
		Fields:  map[string]any{"summary": "2023"},
		Record:  &model.EntryRecord{SectionID: f.section("news").ID, PostDate: at("2024-01-01 00:00:00")},
	})
	env := f.admin()

	for _, value := range []any{"2024", []any{"2024", "1999"}} {
		c := NewCriteria(env, Entries)
		c.SetField("summary", value)
		found, err := Find(env, Entries, c)
		require.NoError(t, err)
		assert.Equal(t, []int64{year.ID}, idsOf(found), "%v", value)
	}
}

func TestFieldCriteria(t *testing.T) {
	f := newFixture(t)
	el := f.save(&model.Element{
		Type:    model.TypeEntry,
		Enabled: true,
		Title:   "Go",
		Fields:  map[string]any{"summary": "gophers rule"},
		Record:  &model.EntryRecord{SectionID: f.section("news").ID, PostDate: at("2024-01-01 00:00:00")},
	})
	f.entry("news", "Rust", at("2024-01-01 00:00:00"), nil)
	env := f.admin()

	c := NewCriteria(env, Entries)
	c.SetField("summary", "gophers*")
	found, err := Find(env, Entries, c)
	require.NoError(t, err)
	assert.Equal(t, []int64{el.ID}, idsOf(found))
}

func TestRelatedTo(t *testing.T) {
	f := newFixture(t)
	topic := f.category("Go", nil)
	other := f.category("Rust", nil)
	post := f.save(&model.Element{
		Type:    model.TypeEntry,
		Enabled: true,
		Title:   "Generics",
		Fields:  map[string]any{"topics": []int64{topic.ID}},
		Record:  &model.EntryRecord{SectionID: f.section("news").ID, PostDate: at("2024-01-01 00:00:00")},
	})
	f.entry("news", "Unrelated", at("2024-01-01 00:00:00"), nil)
	env := f.admin()

	assert.Equal(t, []int64{post.ID}, idsOf(f.find(env, Entries, map[string]any{"relatedTo": topic.ID})))
	assert.Equal(t, []int64{topic.ID}, idsOf(f.find(env, Categories, map[string]any{
		"relatedTo": map[string]any{"sourceElement": post.ID, "field": "topics"},
	})))
	assert.Empty(t, f.find(env, Entries, map[string]any{"relatedTo": other.ID}))
	assert.Empty(t, f.find(env, Entries, map[string]any{
		"relatedTo": map[string]any{"element": topic.ID, "field": "summary"},
	}))
}

func TestParseKind(t *testing.T) {
	for name, want := range map[string]Kind{
		"entry":        Entries,
		"Entries":      Entries,
		"categories":   Categories,
		"assets":       Assets,
		"matrixblocks": MatrixBlocks,
		"globalset":    GlobalSets,
		"users":        Users,
	} {
		got, err := ParseKind(name)
		require.NoError(t, err, name)
		assert.Equal(t, want.Type(), got.Type(), name)
	}

	_, err := ParseKind("widgets")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestStrictCriteriaRejectsUnknownAttributes(t *testing.T) {
	f := newFixture(t, WithStrictCriteria(true))
	env := f.admin()

	c := NewCriteria(env, Tags)
	err := c.Set("section", "news")
	var ve *criteria.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.ErrorIs(t, err, criteria.ErrUnknownAttribute)

	c = NewCriteria(env, Tags)
	c.SetField("nosuchfield", "x")
	_, err = Find(env, Tags, c)
	assert.True(t, errors.As(err, &ve))
}

func TestLenientCriteriaIgnoresUnknownAttributes(t *testing.T) {
	f := newFixture(t)
	tag := f.tag("Alpha")
	env := f.admin()

	c := NewCriteria(env, Tags)
	require.NoError(t, c.Set("section", "news"))
	assert.Equal(t, []string{"section"}, c.Ignored())
	found, err := Find(env, Tags, c)
	require.NoError(t, err)
	assert.Equal(t, []int64{tag.ID}, idsOf(found))
}

func TestLocaleCriteria(t *testing.T) {
	f := newFixture(t)
	f.entry("news", "Hello", at("2024-01-01 00:00:00"), nil)
	env := f.admin()

	assert.Len(t, f.find(env, Entries, map[string]any{"locale": "en-us"}), 1)
	assert.Empty(t, f.find(env, Entries, map[string]any{"locale": "de"}))
}
