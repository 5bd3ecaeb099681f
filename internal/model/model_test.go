package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestElementErrors(t *testing.T) {
	el := &Element{}
	assert.False(t, el.HasErrors())

	el.AddError("title", "Title cannot be blank.")
	el.AddError("slug", "Slug is taken.")
	el.Conflict = &Conflict{Filename: "a.jpg", Suggested: "a_1.jpg"}
	assert.True(t, el.HasErrors())
	assert.Equal(t, []string{"slug", "title"}, el.ErrorAttributes())

	el.ClearErrors()
	assert.False(t, el.HasErrors())
	assert.Nil(t, el.Conflict)
}

func TestFindSourceDepthFirst(t *testing.T) {
	tree := []*Source{
		{Key: "folder:1", Nested: []*Source{
			{Key: "folder:2", Nested: []*Source{{Key: "folder:4"}}},
			{Key: "folder:3"},
		}},
		{Key: "folder:5"},
	}

	for _, key := range Keys(tree) {
		found := FindSource(tree, key)
		if assert.NotNil(t, found, key) {
			assert.Equal(t, key, found.Key)
		}
	}
	assert.Equal(t, []string{"folder:1", "folder:2", "folder:4", "folder:3", "folder:5"}, Keys(tree))
	assert.Nil(t, FindSource(tree, "folder:9"))
}

func TestEagerLoadMapTargetIDs(t *testing.T) {
	m := &EagerLoadMap{Edges: []Edge{{1, 10}, {2, 11}, {3, 10}}}
	assert.Equal(t, []int64{10, 11}, m.TargetIDs())
}

func TestStructureElementContains(t *testing.T) {
	parent := StructureElement{StructureID: 1, Lft: 1, Rgt: 6}
	child := StructureElement{StructureID: 1, Lft: 2, Rgt: 3}
	other := StructureElement{StructureID: 2, Lft: 2, Rgt: 3}
	assert.True(t, parent.Contains(child))
	assert.False(t, child.Contains(parent))
	assert.False(t, parent.Contains(other))
}
