package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanlsb/elements/internal/testutil"
)

func TestCan(t *testing.T) {
	var nobody *User
	assert.False(t, nobody.Can("editEntries:1"))
	assert.Nil(t, nobody.Permissions())

	admin := NewUser(1, true)
	assert.True(t, admin.Can("anything"))

	editor := NewUser(2, false, "editEntries:1")
	assert.True(t, editor.Can("editentries:1"))
	assert.True(t, editor.Can("EDITENTRIES:1"))
	assert.False(t, editor.Can("editEntries:2"))
}

func TestLoad(t *testing.T) {
	db := testutil.NewDB(t)
	uid := db.Element("User")
	db.Exec("INSERT INTO users (id, username, email) VALUES (?, 'ed', 'ed@example.com')", uid)
	db.Exec("INSERT INTO usergroups (id, name, handle) VALUES (1, 'Editors', 'editors')")
	db.Exec("INSERT INTO usergroups_users (groupId, userId) VALUES (1, ?)", uid)

	require.NoError(t, GrantUser(db.DB, uid, "editEntries:1"))
	require.NoError(t, GrantGroup(db.DB, 1, "editCategories:3"))
	require.NoError(t, GrantGroup(db.DB, 1, "editEntries:1"))

	u, err := Load(db.DB, uid)
	require.NoError(t, err)
	assert.False(t, u.Admin)
	assert.Equal(t, []string{"editcategories:3", "editentries:1"}, u.Permissions())

	_, err = Load(db.DB, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
