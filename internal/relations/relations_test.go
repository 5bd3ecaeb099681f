package relations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanlsb/elements/internal/testutil"
)

type fixture struct {
	db       *testutil.TestDB
	fieldID  int64
	entryA   int64
	entryB   int64
	parent   int64
	grand    int64
	category int64
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.NewDB(t)
	db.Exec("INSERT INTO fields (id, handle, name, type) VALUES (1, 'cats', 'Cats', 'Categories')")
	return fixture{
		db:       db,
		fieldID:  1,
		entryA:   db.Element("Entry"),
		entryB:   db.Element("Entry"),
		grand:    db.Element("Category"),
		parent:   db.Element("Category"),
		category: db.Element("Category"),
	}
}

func TestSaveFieldReplacesTargets(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, SaveField(f.db.DB, f.fieldID, f.entryA, nil, []int64{f.category, f.parent, f.category}))
	got, err := Targets(f.db.DB, f.fieldID, f.entryA, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{f.category, f.parent}, got)

	require.NoError(t, SaveField(f.db.DB, f.fieldID, f.entryA, nil, []int64{f.grand}))
	got, err = Targets(f.db.DB, f.fieldID, f.entryA, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{f.grand}, got)

	de := "de"
	require.NoError(t, SaveField(f.db.DB, f.fieldID, f.entryA, &de, []int64{f.parent}))
	got, err = Targets(f.db.DB, f.fieldID, f.entryA, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{f.grand}, got, "locale-specific rows are separate")
}

func TestPropagateAncestorsIsIdempotent(t *testing.T) {
	f := newFixture(t)
	de := "de"

	require.NoError(t, SaveField(f.db.DB, f.fieldID, f.entryA, nil, []int64{f.category}))
	require.NoError(t, SaveField(f.db.DB, f.fieldID, f.entryB, &de, []int64{f.category, f.parent}))

	ancestors := []int64{f.grand, f.parent}
	n, err := PropagateAncestors(f.db.DB, f.category, ancestors)
	require.NoError(t, err)
	// entryA gains grand and parent; entryB already has parent so gains grand only.
	assert.Equal(t, 3, n)

	n, err = PropagateAncestors(f.db.DB, f.category, ancestors)
	require.NoError(t, err)
	assert.Zero(t, n, "second run inserts nothing")

	got, err := Targets(f.db.DB, f.fieldID, f.entryA, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{f.category, f.grand, f.parent}, got)

	got, err = Targets(f.db.DB, f.fieldID, f.entryB, &de)
	require.NoError(t, err)
	assert.Equal(t, []int64{f.category, f.parent, f.grand}, got)
}

func TestPropagateAncestorsNeverDeletes(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, SaveField(f.db.DB, f.fieldID, f.entryA, nil, []int64{f.category, f.grand}))

	// The category moved to the top level: no ancestors.
	n, err := PropagateAncestors(f.db.DB, f.category, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, f.db.Count("relations WHERE sourceId = ?", f.entryA))
}

func TestPropagateAncestorsWithoutReferences(t *testing.T) {
	f := newFixture(t)
	n, err := PropagateAncestors(f.db.DB, f.category, []int64{f.parent})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, f.db.Count("relations"))
}

func TestAll(t *testing.T) {
	f := newFixture(t)
	de := "de"
	require.NoError(t, SaveField(f.db.DB, f.fieldID, f.entryA, &de, []int64{f.parent}))

	rels, err := All(f.db.DB, f.entryA)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	require.NotNil(t, rels[0].SourceLocale)
	assert.Equal(t, "de", *rels[0].SourceLocale)
	assert.Equal(t, 1, rels[0].SortOrder)
}
