package elements

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aidanlsb/elements/internal/access"
	"github.com/aidanlsb/elements/internal/catalog"
	"github.com/aidanlsb/elements/internal/criteria"
	"github.com/aidanlsb/elements/internal/dates"
	"github.com/aidanlsb/elements/internal/model"
	"github.com/aidanlsb/elements/internal/testutil"
	"github.com/aidanlsb/elements/internal/volume"
)

const fixtureProject = `
sections:
  - name: News
    handle: news
    type: channel
    uri_format: "news/{slug}"
    entry_types:
      - handle: article
      - handle: link
        has_title_field: false
  - name: Pages
    handle: pages
    type: structure
    uri_format: "{parent.uri}/{slug}"
  - name: Home
    handle: home
    type: single
category_groups:
  - name: Topics
    handle: topics
    uri_format: "{parent.uri}/{slug}"
tag_groups:
  - name: Keywords
    handle: keywords
user_groups:
  - name: Editors
    handle: editors
asset_sources:
  - name: Uploads
    handle: uploads
    folders:
      - name: photos
        folders:
          - name: "2024"
      - name: docs
fields:
  - handle: topics
    type: Categories
  - handle: summary
    type: PlainText
  - handle: body
    type: Matrix
    block_types:
      - handle: quote
        fields:
          - handle: author
            type: Users
      - handle: text
        fields:
          - handle: copy
            type: PlainText
`

type fixture struct {
	t      *testing.T
	db     *testutil.TestDB
	engine *Engine
	vol    *volume.Memory
	now    time.Time
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	p, err := catalog.ParseProject([]byte(fixtureProject))
	require.NoError(t, err)
	_, err = catalog.New(db.DB).Apply(p)
	require.NoError(t, err)

	f := &fixture{
		t:   t,
		db:  db,
		vol: volume.NewMemory(),
		now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	base := []Option{
		WithClock(func() time.Time { return f.now }),
		WithLocales("en-us", "de"),
		WithVolumes(func(*catalog.AssetSource) (volume.Volume, error) { return f.vol, nil }),
	}
	f.engine = New(db.DB, append(base, opts...)...)
	return f
}

func (f *fixture) env(user *access.User) *Env {
	f.t.Helper()
	env, err := f.engine.Env(user)
	require.NoError(f.t, err)
	return env
}

func (f *fixture) admin() *Env {
	return f.env(access.NewUser(1, true))
}

func (f *fixture) criteria(env *Env, kind Kind, values map[string]any) *criteria.Criteria {
	f.t.Helper()
	c := NewCriteria(env, kind)
	require.NoError(f.t, c.Apply(values))
	return c
}

func (f *fixture) find(env *Env, kind Kind, values map[string]any) []*model.Element {
	f.t.Helper()
	found, err := Find(env, kind, f.criteria(env, kind, values))
	require.NoError(f.t, err)
	return found
}

func (f *fixture) save(el *model.Element) *model.Element {
	f.t.Helper()
	ok, err := f.engine.Save(f.admin(), el)
	require.NoError(f.t, err)
	require.True(f.t, ok, "save rejected: %v", el.Errors())
	return el
}

func (f *fixture) section(handle string) *catalog.Section {
	f.t.Helper()
	s, err := catalog.New(f.db.DB).SectionByHandle(handle)
	require.NoError(f.t, err)
	return s
}

func (f *fixture) groupID(table, handle string) int64 {
	f.t.Helper()
	ids, err := catalog.New(f.db.DB).GroupIDsByHandle(table, []string{handle})
	require.NoError(f.t, err)
	require.Len(f.t, ids, 1)
	return ids[0]
}

func (f *fixture) folder(path string) *catalog.AssetFolder {
	f.t.Helper()
	folders, err := catalog.New(f.db.DB).AssetFolders(0)
	require.NoError(f.t, err)
	for _, folder := range folders {
		if folder.Path == path {
			return folder
		}
	}
	f.t.Fatalf("no folder with path %q", path)
	return nil
}

func (f *fixture) entry(section, title string, post, expiry *time.Time) *model.Element {
	f.t.Helper()
	return f.save(&model.Element{
		Type:    model.TypeEntry,
		Enabled: true,
		Title:   title,
		Record: &model.EntryRecord{
			SectionID:  f.section(section).ID,
			PostDate:   post,
			ExpiryDate: expiry,
		},
	})
}

func (f *fixture) page(title string, parent *model.Element) *model.Element {
	f.t.Helper()
	rec := &model.EntryRecord{SectionID: f.section("pages").ID, PostDate: at("2024-01-01 00:00:00")}
	if parent != nil {
		rec.ParentID = &parent.ID
	}
	return f.save(&model.Element{Type: model.TypeEntry, Enabled: true, Title: title, Record: rec})
}

func (f *fixture) category(title string, parent *model.Element) *model.Element {
	f.t.Helper()
	rec := &model.CategoryRecord{GroupID: f.groupID("categorygroups", "topics")}
	if parent != nil {
		rec.ParentID = &parent.ID
	}
	return f.save(&model.Element{Type: model.TypeCategory, Enabled: true, Title: title, Record: rec})
}

func (f *fixture) user(username string) *model.Element {
	f.t.Helper()
	return f.save(&model.Element{
		Type:    model.TypeUser,
		Enabled: true,
		Record:  &model.UserRecord{Username: username, Email: username + "@example.com"},
	})
}

func (f *fixture) tag(title string) *model.Element {
	f.t.Helper()
	return f.save(&model.Element{
		Type:    model.TypeTag,
		Enabled: true,
		Title:   title,
		Record:  &model.TagRecord{GroupID: f.groupID("taggroups", "keywords")},
	})
}

func (f *fixture) asset(path, filename string) *model.Element {
	f.t.Helper()
	folder := f.folder(path)
	f.vol.Files[path+filename] = true
	return f.save(&model.Element{
		Type:    model.TypeAsset,
		Enabled: true,
		Record:  &model.AssetRecord{SourceID: folder.SourceID, FolderID: folder.ID, Filename: filename, Size: 2048},
	})
}

// block saves a Matrix block of blockType on owner's body field.
func (f *fixture) block(owner *model.Element, blockType string, order int, fields map[string]any) *model.Element {
	f.t.Helper()
	env := f.admin()
	body, ok := env.Fields.Lookup("global", "body")
	require.True(f.t, ok)
	bt, ok := env.Fields.BlockTypeByHandle(body.ID, blockType)
	require.True(f.t, ok)
	return f.save(&model.Element{
		Type:    model.TypeMatrixBlock,
		Enabled: true,
		Fields:  fields,
		Record:  &model.MatrixBlockRecord{OwnerID: owner.ID, FieldID: body.ID, TypeID: bt.ID, SortOrder: order},
	})
}

func at(s string) *time.Time {
	t, err := dates.ParseDB(s)
	if err != nil {
		panic(err)
	}
	return &t
}

func idsOf(elements []*model.Element) []int64 {
	return model.IDs(elements)
}
