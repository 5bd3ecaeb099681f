package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanlsb/elements/internal/model"
	"github.com/aidanlsb/elements/internal/testutil"
)

func TestRegistryContexts(t *testing.T) {
	db := testutil.NewDB(t)

	body := &Field{Handle: "body", Name: "Body", Type: TypeRichText}
	matrix := &Field{Handle: "content", Name: "Content", Type: TypeMatrix}
	require.NoError(t, Create(db.DB, body))
	require.NoError(t, Create(db.DB, matrix))

	quote := &BlockType{FieldID: matrix.ID, Name: "Quote", Handle: "quote", SortOrder: 2}
	text := &BlockType{FieldID: matrix.ID, Name: "Text", Handle: "text", SortOrder: 1}
	require.NoError(t, CreateBlockType(db.DB, quote))
	require.NoError(t, CreateBlockType(db.DB, text))

	// Same handle in a block-type context does not shadow the global one.
	quoteBody := &Field{Context: BlockTypeContext(quote.ID), Handle: "body", Name: "Quote", Type: TypePlainText}
	require.NoError(t, Create(db.DB, quoteBody))

	reg, err := Load(db.DB)
	require.NoError(t, err)

	f, ok := reg.Lookup(GlobalContext, "body")
	require.True(t, ok)
	assert.Equal(t, TypeRichText, f.Type)

	f, ok = reg.Lookup(BlockTypeContext(quote.ID), "body")
	require.True(t, ok)
	assert.Equal(t, TypePlainText, f.Type)

	_, ok = reg.Lookup(BlockTypeContext(text.ID), "body")
	assert.False(t, ok)

	bts := reg.BlockTypes(matrix.ID)
	require.Len(t, bts, 2)
	assert.Equal(t, "text", bts[0].Handle)

	bt, ok := reg.BlockTypeByHandle(matrix.ID, "quote")
	require.True(t, ok)
	assert.Equal(t, quote.ID, bt.ID)
}

func TestCreateIsUpsert(t *testing.T) {
	db := testutil.NewDB(t)

	f := &Field{Handle: "cats", Name: "Cats", Type: TypeCategories}
	require.NoError(t, Create(db.DB, f))
	first := f.ID

	again := &Field{Handle: "cats", Name: "Categories", Type: TypeCategories, Settings: map[string]any{"limit": 3}}
	require.NoError(t, Create(db.DB, again))
	assert.Equal(t, first, again.ID)

	reg, err := Load(db.DB)
	require.NoError(t, err)
	loaded, ok := reg.ByID(first)
	require.True(t, ok)
	assert.Equal(t, "Categories", loaded.Name)
	assert.EqualValues(t, 3, loaded.Settings["limit"])

	assert.Error(t, Create(db.DB, &Field{Handle: "x", Name: "X", Type: "Colour"}))
}

func TestRelationalEagerLoadingMap(t *testing.T) {
	db := testutil.NewDB(t)
	f := &Field{Handle: "related", Name: "Related", Type: TypeEntries}
	require.NoError(t, Create(db.DB, f))

	a, b, x, y := db.Element("Entry"), db.Element("Entry"), db.Element("Entry"), db.Element("Entry")
	db.Exec("INSERT INTO relations (fieldId, sourceId, targetId, sortOrder) VALUES (?, ?, ?, 2), (?, ?, ?, 1), (?, ?, ?, 1)",
		f.ID, a, x, f.ID, a, y, f.ID, b, x)
	db.Exec("INSERT INTO relations (fieldId, sourceId, sourceLocale, targetId, sortOrder) VALUES (?, ?, 'de', ?, 1)", f.ID, b, y)

	m, handled, err := f.EagerLoadingMap(db.DB, []int64{a, b}, "en_us")
	require.NoError(t, err)
	require.True(t, handled)
	assert.Equal(t, model.TypeEntry, m.Type)
	assert.Equal(t, []model.Edge{{Source: a, Target: y}, {Source: a, Target: x}, {Source: b, Target: x}}, m.Edges)

	plain := &Field{Handle: "summary", Type: TypePlainText}
	_, handled, err = plain.EagerLoadingMap(db.DB, []int64{a}, "en_us")
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestMatrixEagerLoadingMap(t *testing.T) {
	db := testutil.NewDB(t)
	f := &Field{Handle: "blocks", Name: "Blocks", Type: TypeMatrix}
	require.NoError(t, Create(db.DB, f))
	bt := &BlockType{FieldID: f.ID, Name: "Text", Handle: "text"}
	require.NoError(t, CreateBlockType(db.DB, bt))

	owner := db.Element("Entry")
	b1, b2 := db.Element("MatrixBlock"), db.Element("MatrixBlock")
	db.Exec("INSERT INTO matrixblocks (id, ownerId, fieldId, typeId, sortOrder) VALUES (?, ?, ?, ?, 2), (?, ?, ?, ?, 1)",
		b1, owner, f.ID, bt.ID, b2, owner, f.ID, bt.ID)

	m, handled, err := f.EagerLoadingMap(db.DB, []int64{owner}, "en_us")
	require.NoError(t, err)
	require.True(t, handled)
	assert.Equal(t, model.TypeMatrixBlock, m.Type)
	assert.Equal(t, []model.Edge{{Source: owner, Target: b2}, {Source: owner, Target: b1}}, m.Edges)
	assert.Equal(t, map[string]any{"fieldId": f.ID}, m.Criteria)
}
