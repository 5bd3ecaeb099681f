// Package access provides the permission snapshot of the acting user.
//
// Policy is out of scope: a permission is an opaque lowercase string such as
// "editentries:5", granted to a user directly or through a group.
package access

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aidanlsb/elements/internal/sqlutil"
)

// ErrUserNotFound indicates no user row with the requested id.
var ErrUserNotFound = errors.New("user not found")

// User is an immutable permission snapshot.
type User struct {
	ID          int64
	Admin       bool
	permissions map[string]bool
}

// NewUser builds a snapshot from explicit permissions.
func NewUser(id int64, admin bool, permissions ...string) *User {
	u := &User{ID: id, Admin: admin, permissions: make(map[string]bool, len(permissions))}
	for _, p := range permissions {
		u.permissions[strings.ToLower(p)] = true
	}
	return u
}

// Can reports whether the user holds permission. A nil user holds nothing;
// admins hold everything.
func (u *User) Can(permission string) bool {
	if u == nil {
		return false
	}
	if u.Admin {
		return true
	}
	return u.permissions[strings.ToLower(permission)]
}

// Permissions lists explicit permissions, sorted.
func (u *User) Permissions() []string {
	if u == nil {
		return nil
	}
	out := make([]string, 0, len(u.permissions))
	for p := range u.permissions {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Load reads the user's admin flag and every permission granted directly or
// through a group.
func Load(db sqlutil.DBTX, userID int64) (*User, error) {
	var admin bool
	err := db.QueryRow("SELECT admin FROM users WHERE id = ?", userID).Scan(&admin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrUserNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	rows, err := db.Query(`
		SELECT p.name FROM userpermissions p
		JOIN userpermissions_users pu ON pu.permissionId = p.id
		WHERE pu.userId = ?
		UNION
		SELECT p.name FROM userpermissions p
		JOIN userpermissions_usergroups pg ON pg.permissionId = p.id
		JOIN usergroups_users gu ON gu.groupId = pg.groupId
		WHERE gu.userId = ?`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("load permissions: %w", err)
	}
	perms, err := sqlutil.ScanRows(rows, func(r *sql.Rows) (string, error) {
		var name string
		err := r.Scan(&name)
		return name, err
	})
	if err != nil {
		return nil, fmt.Errorf("load permissions: %w", err)
	}
	return NewUser(userID, admin, perms...), nil
}

// GrantUser gives a user a permission directly.
func GrantUser(db sqlutil.DBTX, userID int64, permission string) error {
	id, err := permissionID(db, permission)
	if err != nil {
		return err
	}
	if _, err := db.Exec("INSERT OR IGNORE INTO userpermissions_users (permissionId, userId) VALUES (?, ?)", id, userID); err != nil {
		return fmt.Errorf("grant %s: %w", permission, err)
	}
	return nil
}

// GrantGroup gives every member of a group a permission.
func GrantGroup(db sqlutil.DBTX, groupID int64, permission string) error {
	id, err := permissionID(db, permission)
	if err != nil {
		return err
	}
	if _, err := db.Exec("INSERT OR IGNORE INTO userpermissions_usergroups (permissionId, groupId) VALUES (?, ?)", id, groupID); err != nil {
		return fmt.Errorf("grant %s: %w", permission, err)
	}
	return nil
}

func permissionID(db sqlutil.DBTX, permission string) (int64, error) {
	name := strings.ToLower(strings.TrimSpace(permission))
	if name == "" {
		return 0, errors.New("empty permission name")
	}
	var id int64
	err := db.QueryRow(
		"INSERT INTO userpermissions (name) VALUES (?) ON CONFLICT(name) DO UPDATE SET name = excluded.name RETURNING id",
		name,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save permission %s: %w", name, err)
	}
	return id, nil
}
