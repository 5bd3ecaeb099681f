package structure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanlsb/elements/internal/testutil"
)

type node struct {
	id    int64
	level int
}

func layout(t *testing.T, db *testutil.TestDB, structureID int64) []node {
	t.Helper()
	rows, err := Tree(db.DB, structureID)
	require.NoError(t, err)
	var out []node
	for _, r := range rows {
		out = append(out, node{*r.ElementID, r.Level})
	}
	return out
}

// assertValid checks that bounds form a contiguous, properly nested set.
func assertValid(t *testing.T, db *testutil.TestDB, structureID int64) {
	t.Helper()
	rows, err := db.DB.Query("SELECT lft, rgt FROM structureelements WHERE structureId = ?", structureID)
	require.NoError(t, err)
	defer rows.Close()

	seen := map[int64]bool{}
	var maxRgt int64
	n := 0
	for rows.Next() {
		var l, r int64
		require.NoError(t, rows.Scan(&l, &r))
		assert.Less(t, l, r)
		assert.False(t, seen[l], "duplicate bound %d", l)
		assert.False(t, seen[r], "duplicate bound %d", r)
		seen[l], seen[r] = true, true
		if r > maxRgt {
			maxRgt = r
		}
		n++
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, int64(2*n), maxRgt)
}

func setup(t *testing.T, maxLevels int) (*testutil.TestDB, int64, []int64) {
	t.Helper()
	db := testutil.NewDB(t)
	sid, err := Create(db.DB, maxLevels)
	require.NoError(t, err)

	ids := make([]int64, 5)
	for i := range ids {
		ids[i] = db.Element("Category")
	}
	return db, sid, ids
}

func TestPlaceBuildsTree(t *testing.T) {
	db, sid, ids := setup(t, 0)
	a, b, c, d, e := ids[0], ids[1], ids[2], ids[3], ids[4]

	mustPlace(t, db, sid, a, AppendTo, 0)
	mustPlace(t, db, sid, b, AppendTo, 0)
	mustPlace(t, db, sid, c, AppendTo, a)
	mustPlace(t, db, sid, d, PrependTo, a)
	mustPlace(t, db, sid, e, Before, b)

	assert.Equal(t, []node{{a, 1}, {d, 2}, {c, 2}, {e, 1}, {b, 1}}, layout(t, db, sid))
	assertValid(t, db, sid)

	anc, err := Ancestors(db.DB, sid, c, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{a}, anc)

	desc, err := Descendants(db.DB, sid, a, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{d, c}, desc)

	parent, err := Parent(db.DB, sid, c)
	require.NoError(t, err)
	assert.Equal(t, a, parent)

	parent, err = Parent(db.DB, sid, a)
	require.NoError(t, err)
	assert.Zero(t, parent)
}

func TestPlaceMovesSubtrees(t *testing.T) {
	db, sid, ids := setup(t, 0)
	a, b, c, d, e := ids[0], ids[1], ids[2], ids[3], ids[4]

	// a > (c > d), b, e
	mustPlace(t, db, sid, a, AppendTo, 0)
	mustPlace(t, db, sid, c, AppendTo, a)
	mustPlace(t, db, sid, d, AppendTo, c)
	mustPlace(t, db, sid, b, AppendTo, 0)
	mustPlace(t, db, sid, e, AppendTo, 0)

	// Move right: c's subtree under e.
	mustPlace(t, db, sid, c, AppendTo, e)
	assert.Equal(t, []node{{a, 1}, {b, 1}, {e, 1}, {c, 2}, {d, 3}}, layout(t, db, sid))
	assertValid(t, db, sid)

	// Move left: c's subtree to the top level before a.
	mustPlace(t, db, sid, c, Before, a)
	assert.Equal(t, []node{{c, 1}, {d, 2}, {a, 1}, {b, 1}, {e, 1}}, layout(t, db, sid))
	assertValid(t, db, sid)

	// After a sibling.
	mustPlace(t, db, sid, c, After, b)
	assert.Equal(t, []node{{a, 1}, {b, 1}, {c, 1}, {d, 2}, {e, 1}}, layout(t, db, sid))
	assertValid(t, db, sid)

	anc, err := Ancestors(db.DB, sid, d, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{c}, anc)
}

func TestPlaceNoop(t *testing.T) {
	db, sid, ids := setup(t, 0)
	a, b := ids[0], ids[1]
	mustPlace(t, db, sid, a, AppendTo, 0)
	mustPlace(t, db, sid, b, AppendTo, 0)

	moved, err := Place(db.DB, sid, b, AppendTo, 0)
	require.NoError(t, err)
	assert.False(t, moved)

	moved, err = Place(db.DB, sid, a, Before, b)
	require.NoError(t, err)
	assert.False(t, moved)
}

func TestPlaceRejectsInvalidMoves(t *testing.T) {
	db, sid, ids := setup(t, 2)
	a, b, c := ids[0], ids[1], ids[2]
	mustPlace(t, db, sid, a, AppendTo, 0)
	mustPlace(t, db, sid, b, AppendTo, a)

	_, err := Place(db.DB, sid, a, AppendTo, b)
	assert.ErrorIs(t, err, ErrInvalidMove)

	_, err = Place(db.DB, sid, a, AppendTo, a)
	assert.ErrorIs(t, err, ErrInvalidMove)

	_, err = Place(db.DB, sid, c, Before, 0)
	assert.ErrorIs(t, err, ErrInvalidMove)

	_, err = Place(db.DB, sid, c, AppendTo, b)
	assert.ErrorIs(t, err, ErrMaxLevels)

	_, err = Place(db.DB, sid, c, AppendTo, ids[4])
	assert.ErrorIs(t, err, ErrNotInStructure)
}

func TestDescendantEdges(t *testing.T) {
	db, sid, ids := setup(t, 0)
	a, b, c, d := ids[0], ids[1], ids[2], ids[3]
	mustPlace(t, db, sid, a, AppendTo, 0)
	mustPlace(t, db, sid, b, AppendTo, a)
	mustPlace(t, db, sid, c, AppendTo, b)
	mustPlace(t, db, sid, d, AppendTo, 0)

	all, err := DescendantEdges(db.DB, []int64{a, d}, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, a, all[0].Source)
	assert.Equal(t, []int64{b, c}, []int64{all[0].Target, all[1].Target})

	children, err := DescendantEdges(db.DB, []int64{a}, 1)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, b, children[0].Target)
}

func mustPlace(t *testing.T, db *testutil.TestDB, sid, id int64, pos Position, target int64) {
	t.Helper()
	_, err := Place(db.DB, sid, id, pos, target)
	require.NoError(t, err)
}
