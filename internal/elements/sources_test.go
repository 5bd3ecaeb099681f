package elements

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanlsb/elements/internal/access"
	"github.com/aidanlsb/elements/internal/model"
)

func sectionKey(f *fixture, handle string) string {
	return fmt.Sprintf("section:%d", f.section(handle).ID)
}

func folderKey(f *fixture, path string) string {
	return fmt.Sprintf("folder:%d", f.folder(path).ID)
}

func TestEntrySources(t *testing.T) {
	f := newFixture(t)

	t.Run("admin", func(t *testing.T) {
		sources, err := Sources(f.admin(), Entries, ContextIndex)
		require.NoError(t, err)
		assert.Equal(t, []string{"*", "singles", sectionKey(f, "news"), sectionKey(f, "pages")}, model.Keys(sources))

		var headings []string
		for _, s := range sources {
			if s.Heading {
				headings = append(headings, s.Label)
			}
		}
		assert.Equal(t, []string{"Channels", "Structures"}, headings)

		pages := model.FindSource(sources, sectionKey(f, "pages"))
		require.NotNil(t, pages)
		assert.NotZero(t, pages.StructureID)
		assert.True(t, pages.StructureEditable)
		assert.Equal(t, true, pages.Criteria["editable"])
	})

	t.Run("restricted user", func(t *testing.T) {
		editor := access.NewUser(2, false, permission("editentries", f.section("news").ID))
		sources, err := Sources(f.env(editor), Entries, ContextIndex)
		require.NoError(t, err)
		assert.Equal(t, []string{"*", sectionKey(f, "news")}, model.Keys(sources))
	})

	t.Run("anonymous", func(t *testing.T) {
		sources, err := Sources(f.env(nil), Entries, ContextIndex)
		require.NoError(t, err)
		assert.Empty(t, sources)
	})

	t.Run("modal lists every section", func(t *testing.T) {
		sources, err := Sources(f.env(nil), Entries, ContextModal)
		require.NoError(t, err)
		assert.Len(t, model.Keys(sources), 4)
		pages := model.FindSource(sources, sectionKey(f, "pages"))
		require.NotNil(t, pages)
		assert.False(t, pages.StructureEditable)
		_, scoped := pages.Criteria["editable"]
		assert.False(t, scoped)
	})

	t.Run("unknown context", func(t *testing.T) {
		_, err := Sources(f.admin(), Entries, "sidebar")
		assert.Error(t, err)
	})
}

func TestAssetSourcesNestFolders(t *testing.T) {
	f := newFixture(t)
	env := f.admin()

	sources, err := Sources(env, Assets, ContextIndex)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "Uploads", sources[0].Label)
	assert.Equal(t, []string{
		folderKey(f, ""),
		folderKey(f, "docs/"),
		folderKey(f, "photos/"),
		folderKey(f, "photos/2024/"),
	}, model.Keys(sources))

	settings, err := Sources(env, Assets, ContextSettings)
	require.NoError(t, err)
	assert.Equal(t, []string{folderKey(f, "") + ":single"}, model.Keys(settings))
	assert.Empty(t, settings[0].Nested)

	viewer := access.NewUser(2, false)
	sources, err = Sources(f.env(viewer), Assets, ContextIndex)
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestGetSourceFindsNestedSources(t *testing.T) {
	f := newFixture(t)
	f.asset("photos/", "a.jpg")
	nested := f.asset("photos/2024/", "b.jpg")
	env := f.admin()

	src, err := GetSource(env, Assets, ContextIndex, folderKey(f, "photos/2024/"))
	require.NoError(t, err)
	require.NotNil(t, src)
	assert.Equal(t, "photos/2024/", src.Data["path"])

	c := NewCriteria(env, Assets)
	require.NoError(t, ScopeToSource(c, src))
	found, err := Find(env, Assets, c)
	require.NoError(t, err)
	assert.Equal(t, []int64{nested.ID}, idsOf(found))

	missing, err := GetSource(env, Assets, ContextIndex, "folder:9999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestEverySourceKeyRoundTrips(t *testing.T) {
	f := newFixture(t)
	env := f.admin()

	for _, kind := range Kinds() {
		for _, context := range []string{ContextIndex, ContextModal, ContextSettings} {
			sources, err := Sources(env, kind, context)
			require.NoError(t, err)
			for _, key := range model.Keys(sources) {
				src, err := GetSource(env, kind, context, key)
				require.NoError(t, err)
				require.NotNil(t, src, "%s %s %s", kind.Type(), context, key)
				assert.Equal(t, key, src.Key)

				c := NewCriteria(env, kind)
				require.NoError(t, ScopeToSource(c, src), "%s %s", kind.Type(), key)
				_, err = Find(env, kind, c)
				require.NoError(t, err, "%s %s", kind.Type(), key)
			}
		}
	}
}

func TestOtherKindSources(t *testing.T) {
	f := newFixture(t)

	t.Run("categories", func(t *testing.T) {
		sources, err := Sources(f.admin(), Categories, ContextIndex)
		require.NoError(t, err)
		require.Len(t, sources, 1)
		assert.Equal(t, fmt.Sprintf("group:%d", f.groupID("categorygroups", "topics")), sources[0].Key)
		assert.NotZero(t, sources[0].StructureID)

		none, err := Sources(f.env(access.NewUser(2, false)), Categories, ContextIndex)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("tags", func(t *testing.T) {
		sources, err := Sources(f.admin(), Tags, ContextIndex)
		require.NoError(t, err)
		assert.Equal(t, []string{fmt.Sprintf("taggroup:%d", f.groupID("taggroups", "keywords"))}, model.Keys(sources))
	})

	t.Run("users", func(t *testing.T) {
		sources, err := Sources(f.admin(), Users, ContextIndex)
		require.NoError(t, err)
		assert.Equal(t, []string{"*", fmt.Sprintf("group:%d", f.groupID("usergroups", "editors"))}, model.Keys(sources))
		assert.True(t, sources[1].Heading)
	})

	t.Run("kinds without sources", func(t *testing.T) {
		for _, kind := range []Kind{MatrixBlocks, GlobalSets} {
			sources, err := Sources(f.admin(), kind, ContextIndex)
			require.NoError(t, err)
			assert.Empty(t, sources)
		}
	})
}
