package elements

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanlsb/elements/internal/model"
)

func eagerIDs(t *testing.T, el *model.Element, handle string) []int64 {
	t.Helper()
	targets, ok := el.EagerLoaded(handle)
	require.True(t, ok, "%s not eager loaded on %d", handle, el.ID)
	return idsOf(targets)
}

func TestEagerLoadAuthor(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice")
	withAuthor := f.save(&model.Element{
		Type:    model.TypeEntry,
		Enabled: true,
		Title:   "By Alice",
		Record: &model.EntryRecord{
			SectionID: f.section("news").ID,
			AuthorID:  &alice.ID,
			PostDate:  at("2024-01-01 00:00:00"),
		},
	})
	anonymous := f.entry("news", "Anonymous", at("2024-01-01 00:00:00"), nil)
	env := f.admin()

	entries := f.find(env, Entries, map[string]any{"id": []int64{withAuthor.ID, anonymous.ID}})
	require.Len(t, entries, 2)
	require.NoError(t, EagerLoad(env, Entries, entries, Paths("author")...))

	for _, el := range entries {
		if el.ID == withAuthor.ID {
			assert.Equal(t, []int64{alice.ID}, eagerIDs(t, el, "author"))
		} else {
			assert.Empty(t, eagerIDs(t, el, "author"))
		}
	}
}

func TestEagerLoadSetsEveryRequestedSource(t *testing.T) {
	f := newFixture(t)
	topic := f.category("Go", nil)
	tagged := f.save(&model.Element{
		Type:    model.TypeEntry,
		Enabled: true,
		Title:   "Tagged",
		Fields:  map[string]any{"topics": []int64{topic.ID}},
		Record:  &model.EntryRecord{SectionID: f.section("news").ID, PostDate: at("2024-01-01 00:00:00")},
	})
	plain := f.entry("news", "Plain", at("2024-01-01 00:00:00"), nil)
	env := f.admin()

	entries := f.find(env, Entries, map[string]any{"id": []int64{tagged.ID, plain.ID}, "with": "topics"})
	require.Len(t, entries, 2)
	for _, el := range entries {
		targets, ok := el.EagerLoaded("topics")
		require.True(t, ok)
		if el.ID == tagged.ID {
			assert.Equal(t, []int64{topic.ID}, idsOf(targets))
		} else {
			assert.Empty(t, targets)
		}
	}
}

func TestEagerLoadIsIdempotent(t *testing.T) {
	f := newFixture(t)
	topic := f.category("Go", nil)
	post := f.save(&model.Element{
		Type:    model.TypeEntry,
		Enabled: true,
		Title:   "Tagged",
		Fields:  map[string]any{"topics": []int64{topic.ID}},
		Record:  &model.EntryRecord{SectionID: f.section("news").ID, PostDate: at("2024-01-01 00:00:00")},
	})
	env := f.admin()

	entries := f.find(env, Entries, map[string]any{"id": post.ID})
	require.NoError(t, EagerLoad(env, Entries, entries, Paths("topics")...))
	first := eagerIDs(t, entries[0], "topics")
	require.NoError(t, EagerLoad(env, Entries, entries, Paths("topics")...))
	assert.Equal(t, first, eagerIDs(t, entries[0], "topics"))
}

func TestEagerLoadTargetCriteria(t *testing.T) {
	f := newFixture(t)
	on := f.category("On", nil)
	off := f.category("Off", nil)
	require.NoError(t, f.engine.SetEnabled(f.admin(), off.ID, false))
	post := f.save(&model.Element{
		Type:    model.TypeEntry,
		Enabled: true,
		Title:   "Tagged",
		Fields:  map[string]any{"topics": []int64{on.ID, off.ID}},
		Record:  &model.EntryRecord{SectionID: f.section("news").ID, PostDate: at("2024-01-01 00:00:00")},
	})
	env := f.admin()

	entries := f.find(env, Entries, map[string]any{"id": post.ID})
	require.NoError(t, EagerLoad(env, Entries, entries, Paths("topics")...))
	assert.Equal(t, []int64{on.ID}, eagerIDs(t, entries[0], "topics"))

	require.NoError(t, EagerLoad(env, Entries, entries, Path{Handle: "topics", Criteria: map[string]any{"status": ""}}))
	assert.ElementsMatch(t, []int64{on.ID, off.ID}, eagerIDs(t, entries[0], "topics"))
}

func TestEagerLoadThroughMatrix(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice")
	bob := f.user("bob")
	post := f.entry("news", "Quotes", at("2024-01-01 00:00:00"), nil)
	q1 := f.block(post, "quote", 0, map[string]any{"author": []int64{alice.ID}})
	text := f.block(post, "text", 1, map[string]any{"copy": "hello"})
	q2 := f.block(post, "quote", 2, map[string]any{"author": []int64{bob.ID}})
	env := f.admin()

	entries := f.find(env, Entries, map[string]any{"id": post.ID})
	require.NoError(t, EagerLoad(env, Entries, entries, Paths("body.quote:author")...))

	blocks, ok := entries[0].EagerLoaded("body")
	require.True(t, ok)
	require.Equal(t, []int64{q1.ID, text.ID, q2.ID}, idsOf(blocks))
	assert.Equal(t, []int64{alice.ID}, eagerIDs(t, blocks[0], "quote:author"))
	assert.Equal(t, []int64{bob.ID}, eagerIDs(t, blocks[2], "quote:author"))
	// Blocks of other types are sources too, with nothing attached.
	assert.Empty(t, eagerIDs(t, blocks[1], "quote:author"))
}

func TestMatrixEagerLoadingMap(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice")
	post := f.entry("news", "Quotes", at("2024-01-01 00:00:00"), nil)
	quote := f.block(post, "quote", 0, map[string]any{"author": []int64{alice.ID}})
	text := f.block(post, "text", 1, nil)
	env := f.admin()
	blocks := f.find(env, MatrixBlocks, map[string]any{"ownerId": post.ID})

	t.Run("matching type", func(t *testing.T) {
		m, handled, err := EagerLoadingMap(env, MatrixBlocks, blocks, "quote:author")
		require.NoError(t, err)
		require.True(t, handled)
		assert.Equal(t, model.TypeUser, m.Type)
		assert.Equal(t, []model.Edge{{Source: quote.ID, Target: alice.ID}}, m.Edges)
	})

	t.Run("no blocks of the type", func(t *testing.T) {
		m, handled, err := EagerLoadingMap(env, MatrixBlocks, blocks, "gallery:images")
		require.NoError(t, err)
		assert.False(t, handled)
		assert.Nil(t, m)
	})

	t.Run("only blocks of another type", func(t *testing.T) {
		only := []*model.Element{blocks[1]}
		require.Equal(t, text.ID, only[0].ID)
		m, handled, err := EagerLoadingMap(env, MatrixBlocks, only, "quote:author")
		require.NoError(t, err)
		assert.False(t, handled)
		assert.Nil(t, m)
	})

	t.Run("field not in the type", func(t *testing.T) {
		// text blocks exist but the text type has no author field.
		m, handled, err := EagerLoadingMap(env, MatrixBlocks, blocks, "text:author")
		require.NoError(t, err)
		assert.False(t, handled)
		assert.Nil(t, m)
	})

	for _, handle := range []string{"a:b:c", ":author", "quote:"} {
		t.Run("malformed "+handle, func(t *testing.T) {
			_, _, err := EagerLoadingMap(env, MatrixBlocks, blocks, handle)
			var se *SchemaError
			assert.True(t, errors.As(err, &se), "got %v", err)
		})
	}

	t.Run("no sources", func(t *testing.T) {
		m, handled, err := EagerLoadingMap(env, MatrixBlocks, nil, "quote:author")
		require.NoError(t, err)
		assert.False(t, handled)
		assert.Nil(t, m)
	})

	t.Run("malformed with no sources", func(t *testing.T) {
		_, _, err := EagerLoadingMap(env, MatrixBlocks, nil, "a:b:c")
		var se *SchemaError
		assert.True(t, errors.As(err, &se), "got %v", err)
	})
}

func TestEagerLoadStructureHandles(t *testing.T) {
	f := newFixture(t)
	about := f.page("About", nil)
	team := f.page("Team", about)
	history := f.page("History", about)
	founders := f.page("Founders", history)
	env := f.admin()

	pages := f.find(env, Entries, map[string]any{"id": about.ID})
	require.NoError(t, EagerLoad(env, Entries, pages, Paths("children", "descendants")...))
	assert.Equal(t, []int64{team.ID, history.ID}, eagerIDs(t, pages[0], "children"))
	assert.Equal(t, []int64{team.ID, history.ID, founders.ID}, eagerIDs(t, pages[0], "descendants"))

	pages = f.find(env, Entries, map[string]any{"id": about.ID})
	require.NoError(t, EagerLoad(env, Entries, pages, Paths("children.children")...))
	children, _ := pages[0].EagerLoaded("children")
	require.Len(t, children, 2)
	assert.Empty(t, eagerIDs(t, children[0], "children"))
	assert.Equal(t, []int64{founders.ID}, eagerIDs(t, children[1], "children"))
}

func TestEagerLoadSkipsUnknownHandles(t *testing.T) {
	f := newFixture(t)
	post := f.entry("news", "Post", at("2024-01-01 00:00:00"), nil)
	env := f.admin()

	entries := f.find(env, Entries, map[string]any{"id": post.ID})
	require.NoError(t, EagerLoad(env, Entries, entries, Paths("nosuchfield", "summary")...))
	_, ok := entries[0].EagerLoaded("nosuchfield")
	assert.False(t, ok)
	_, ok = entries[0].EagerLoaded("summary")
	assert.False(t, ok)
}

func TestPathsFromValue(t *testing.T) {
	paths, err := PathsFromValue([]any{
		"author, topics",
		[]any{"body", map[string]any{"limit": 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, []Path{
		{Handle: "author"},
		{Handle: "topics"},
		{Handle: "body", Criteria: map[string]any{"limit": 2}},
	}, paths)

	_, err = PathsFromValue([]any{[]any{"body"}})
	var se *SchemaError
	assert.True(t, errors.As(err, &se))
}

func TestBuildPathTreeGroupsSegments(t *testing.T) {
	roots := buildPathTree(Paths("body.quote:author", "body.text:copy", "author"))
	require.Len(t, roots, 2)
	assert.Equal(t, "body", roots[0].handle)
	require.Len(t, roots[0].children, 2)
	assert.Equal(t, "quote:author", roots[0].children[0].handle)
	assert.Equal(t, "text:copy", roots[0].children[1].handle)
	assert.Equal(t, "author", roots[1].handle)
}
