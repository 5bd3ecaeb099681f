package elements

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanlsb/elements/internal/catalog"
	"github.com/aidanlsb/elements/internal/criteria"
	"github.com/aidanlsb/elements/internal/model"
)

func noticeCodes(env *Env) []string {
	var codes []string
	for _, n := range env.Notices() {
		codes = append(codes, n.Code)
	}
	return codes
}

func TestTagNameParamIsRewritten(t *testing.T) {
	f := newFixture(t)
	f.tag("Alpha")
	beta := f.tag("Beta")

	env := f.admin()
	found := f.find(env, Tags, map[string]any{"name": "Beta"})
	assert.Equal(t, []int64{beta.ID}, idsOf(found))
	assert.Equal(t, []string{"tag_name_param"}, noticeCodes(env))
}

func TestTagOrderByNameIsRewritten(t *testing.T) {
	f := newFixture(t)
	alpha := f.tag("Alpha")
	beta := f.tag("Beta")

	env := f.admin()
	found := f.find(env, Tags, map[string]any{"order": "name desc"})
	assert.Equal(t, []int64{beta.ID, alpha.ID}, idsOf(found))
	assert.Equal(t, []string{"tag_orderby_name"}, noticeCodes(env))

	quiet := f.admin()
	f.find(quiet, Tags, map[string]any{"order": "title desc"})
	assert.Empty(t, quiet.Notices())
}

func TestRenameOrderTerm(t *testing.T) {
	tests := []struct {
		in, want string
		changed  bool
	}{
		{"name", "title", true},
		{"name desc, dateCreated", "title desc, dateCreated", true},
		{"dateCreated, name asc", "dateCreated, title asc", true},
		{"title asc", "title asc", false},
		{"username", "username", false},
	}
	for _, tt := range tests {
		got, changed := renameOrderTerm(tt.in, "name", "title")
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.changed, changed, tt.in)
	}
}

func TestTagTitlesAreUniquePerGroup(t *testing.T) {
	f := newFixture(t)
	f.tag("Alpha")

	dup := &model.Element{
		Type:   model.TypeTag,
		Title:  "Alpha",
		Record: &model.TagRecord{GroupID: f.groupID("taggroups", "keywords")},
	}
	ok, err := f.engine.Save(f.admin(), dup)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"title"}, dup.ErrorAttributes())
	assert.Zero(t, dup.ID)
}

func TestAssetKindCriteria(t *testing.T) {
	f := newFixture(t)
	photo := f.asset("photos/", "sunset.jpg")
	doc := f.asset("docs/", "report.pdf")
	f.asset("docs/", "notes.txt")
	env := f.admin()

	assert.Equal(t, "image", photo.Record.(*model.AssetRecord).Kind)
	assert.Equal(t, "Sunset", photo.Title)

	assert.Equal(t, []int64{photo.ID}, idsOf(f.find(env, Assets, map[string]any{"kind": "image"})))
	assert.ElementsMatch(t,
		[]int64{photo.ID, doc.ID},
		idsOf(f.find(env, Assets, map[string]any{"kind": []string{"image", "pdf"}})),
	)

	c := NewCriteria(env, Assets)
	err := c.Set("kind", "spreadsheet")
	var ve *criteria.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestAssetIncludeSubfolders(t *testing.T) {
	f := newFixture(t)
	top := f.asset("photos/", "a.jpg")
	nested := f.asset("photos/2024/", "b.jpg")
	f.asset("docs/", "c.pdf")
	env := f.admin()
	photos := f.folder("photos/").ID

	assert.Equal(t, []int64{top.ID}, idsOf(f.find(env, Assets, map[string]any{"folderId": photos})))
	assert.ElementsMatch(t,
		[]int64{top.ID, nested.ID},
		idsOf(f.find(env, Assets, map[string]any{"folderId": photos, "includeSubfolders": true})),
	)

	_, err := Find(env, Assets, f.criteria(env, Assets, map[string]any{
		"folderId":          []int64{photos, f.folder("docs/").ID},
		"includeSubfolders": true,
	}))
	var ve *criteria.ValidationError
	assert.True(t, errors.As(err, &ve))

	assert.Empty(t, f.find(env, Assets, map[string]any{"folderId": 9999, "includeSubfolders": true}))
}

func TestAssetValidation(t *testing.T) {
	f := newFixture(t)
	folder := f.folder("docs/")

	el := &model.Element{
		Type:   model.TypeAsset,
		Record: &model.AssetRecord{FolderID: folder.ID, Filename: "a.txt", NewFilename: "x/y.txt"},
	}
	ok, err := f.engine.Save(f.admin(), el)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, el.ErrorAttributes(), "newFilename")

	el = &model.Element{Type: model.TypeAsset, Record: &model.AssetRecord{FolderID: 9999, Filename: "a.txt"}}
	ok, err = f.engine.Save(f.admin(), el)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"folderId"}, el.ErrorAttributes())
}

func TestUserCriteria(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice")
	bob := f.user("bob")
	admin := f.save(&model.Element{
		Type:    model.TypeUser,
		Enabled: true,
		Record:  &model.UserRecord{Username: "root", Email: "root@example.com", Admin: true},
	})
	editors := f.groupID("usergroups", "editors")
	require.NoError(t, catalog.New(f.db.DB).AddUserToGroup(bob.ID, editors))
	env := f.admin()

	assert.Equal(t, []int64{admin.ID}, idsOf(f.find(env, Users, map[string]any{"admin": true})))
	assert.Equal(t, []int64{bob.ID}, idsOf(f.find(env, Users, map[string]any{"group": "editors"})))
	assert.Equal(t, []int64{bob.ID}, idsOf(f.find(env, Users, map[string]any{"groupId": editors})))
	assert.Equal(t, []int64{alice.ID}, idsOf(f.find(env, Users, map[string]any{"username": "alice"})))
	assert.Equal(t, []int64{admin.ID}, idsOf(f.find(env, Users, map[string]any{"can": "accessCp"})))
}

func TestUserValidation(t *testing.T) {
	f := newFixture(t)
	f.user("alice")

	tests := []struct {
		name string
		rec  *model.UserRecord
		want []string
	}{
		{"blank", &model.UserRecord{}, []string{"email", "username"}},
		{"bad email", &model.UserRecord{Username: "dave", Email: "dave"}, []string{"email"}},
		{"taken", &model.UserRecord{Username: "alice", Email: "other@example.com"}, []string{"username"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el := &model.Element{Type: model.TypeUser, Record: tt.rec}
			ok, err := f.engine.Save(f.admin(), el)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Equal(t, tt.want, el.ErrorAttributes())
		})
	}
}

func TestGlobalSets(t *testing.T) {
	f := newFixture(t)
	footer := f.save(&model.Element{
		Type:    model.TypeGlobalSet,
		Enabled: true,
		Record:  &model.GlobalSetRecord{Name: "Footer", Handle: "footer"},
	})
	env := f.admin()

	found := f.find(env, GlobalSets, map[string]any{"handle": "footer"})
	require.Len(t, found, 1)
	assert.Equal(t, footer.ID, found[0].ID)
	assert.Equal(t, "Footer", AttributeValue(env, GlobalSets, found[0], "name"))

	for name, rec := range map[string]*model.GlobalSetRecord{
		"bad handle": {Name: "Header", Handle: "2header"},
		"taken":      {Name: "Footer 2", Handle: "footer"},
	} {
		el := &model.Element{Type: model.TypeGlobalSet, Record: rec}
		ok, err := f.engine.Save(env, el)
		require.NoError(t, err, name)
		assert.False(t, ok, name)
		assert.Equal(t, []string{"handle"}, el.ErrorAttributes(), name)
	}
}

func TestMatrixBlockCriteria(t *testing.T) {
	f := newFixture(t)
	post := f.entry("news", "Post", at("2024-01-01 00:00:00"), nil)
	quote := f.block(post, "quote", 1, nil)
	text := f.block(post, "text", 0, map[string]any{"copy": "hello"})
	env := f.admin()

	assert.Equal(t, []int64{text.ID, quote.ID}, idsOf(f.find(env, MatrixBlocks, map[string]any{"ownerId": post.ID})))
	assert.Equal(t, []int64{quote.ID}, idsOf(f.find(env, MatrixBlocks, map[string]any{"ownerId": post.ID, "type": "quote"})))
	assert.Empty(t, f.find(env, MatrixBlocks, map[string]any{"type": "gallery"}))
	assert.Equal(t, "quote", AttributeValue(env, MatrixBlocks, quote, "type"))

	// Block fields resolve in the block type's context.
	c := NewCriteria(env, MatrixBlocks)
	c.SetField("copy", "hello")
	found, err := Find(env, MatrixBlocks, c)
	require.NoError(t, err)
	assert.Equal(t, []int64{text.ID}, idsOf(found))
}

func TestMatrixBlockValidation(t *testing.T) {
	f := newFixture(t)
	env := f.admin()
	summary, ok := env.Fields.Lookup("global", "summary")
	require.True(t, ok)

	el := &model.Element{
		Type:   model.TypeMatrixBlock,
		Record: &model.MatrixBlockRecord{OwnerID: 1, FieldID: summary.ID},
	}
	saved, err := f.engine.Save(env, el)
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Equal(t, []string{"fieldId"}, el.ErrorAttributes())
}
