package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanlsb/elements/internal/testutil"
)

func TestKeywords(t *testing.T) {
	src := "# Release Notes\n\nWe shipped **faster** queries and [eager loading](https://example.com).\n\n```go\nfunc hidden() {}\n```\n"
	got := Keywords(src)
	assert.Equal(t, "release notes we shipped faster queries and eager loading", got)
	assert.NotContains(t, got, "hidden")
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "hello world 2024", Normalize("  Hello, WORLD!! 2024 "))
	assert.Equal(t, "", Normalize("--- ***"))
}

func TestConditionMatchesIndexedKeywords(t *testing.T) {
	db := testutil.NewDB(t)
	a, b := db.Element("Entry"), db.Element("Entry")

	require.NoError(t, Index(db.DB, a, "title", 0, "en_us", Keywords("Eager loading explained")))
	require.NoError(t, Index(db.DB, b, "title", 0, "en_us", Keywords("Nested sets")))

	cond, args := Condition("eager load", "en_us")
	require.NotEmpty(t, cond)
	rows, err := db.DB.Query("SELECT id FROM elements WHERE "+cond, args...)
	require.NoError(t, err)
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	assert.Equal(t, []int64{a}, ids)

	cond, args = Condition("  ", "en_us")
	assert.Empty(t, cond)
	assert.Nil(t, args)
}
