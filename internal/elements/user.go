package elements

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aidanlsb/elements/internal/criteria"
	"github.com/aidanlsb/elements/internal/model"
	"github.com/aidanlsb/elements/internal/params"
)

// User status tokens. Each non-active status is one flag on the users row.
const (
	UserActive    = "active"
	UserPending   = "pending"
	UserLocked    = "locked"
	UserSuspended = "suspended"
	UserArchived  = "archived"
)

var userSchema = criteria.Base().Merge(criteria.Schema{
	"username":      {Type: criteria.String},
	"email":         {Type: criteria.String},
	"firstName":     {Type: criteria.String},
	"lastName":      {Type: criteria.String},
	"admin":         {Type: criteria.Bool},
	"client":        {Type: criteria.Bool},
	"group":         {Type: criteria.String},
	"groupId":       {Type: criteria.Number},
	"can":           {Type: criteria.String},
	"lastLoginDate": {Type: criteria.DateTime},
	"status":        {Type: criteria.Mixed, Default: UserActive},
	"order":         {Type: criteria.String, Default: "username asc"},
})

var userColumns = map[string]string{
	"username":      "users.username",
	"email":         "users.email",
	"firstName":     "users.firstName",
	"lastName":      "users.lastName",
	"lastLoginDate": "users.lastLoginDate",
}

type userKind struct{}

func (userKind) Type() model.ElementType { return model.TypeUser }
func (userKind) Table() string           { return "users" }
func (userKind) HasContent() bool        { return true }
func (userKind) HasTitles() bool         { return false }
func (userKind) IsLocalized() bool       { return false }
func (userKind) HasStatuses() bool       { return true }

func (userKind) Statuses() []StatusOption {
	return []StatusOption{
		{Token: UserActive, Label: "Active"},
		{Token: UserPending, Label: "Pending"},
		{Token: UserLocked, Label: "Locked"},
		{Token: UserSuspended, Label: "Suspended"},
		{Token: UserArchived, Label: "Archived"},
	}
}

func (userKind) CriteriaSchema() criteria.Schema { return userSchema }

func (userKind) column(name string) (string, bool) {
	col, ok := userColumns[name]
	return col, ok
}

func (k userKind) StatusCondition(env *Env, status string) (string, []any, error) {
	switch status {
	case UserActive:
		return "users.locked = 0 AND users.suspended = 0 AND users.pending = 0 AND users.archived = 0", nil, nil
	case UserPending, UserLocked, UserSuspended, UserArchived:
		return "users." + status + " = 1", nil, nil
	}
	return "", nil, unknownStatus(k, status)
}

func (userKind) statusOf(env *Env, el *model.Element) string {
	rec, ok := el.Record.(*model.UserRecord)
	if !ok {
		return UserActive
	}
	return userStatus(rec)
}

// userStatus resolves the flags by precedence, for rows written before the
// flags were kept exclusive.
func userStatus(rec *model.UserRecord) string {
	switch {
	case rec.Archived:
		return UserArchived
	case rec.Suspended:
		return UserSuspended
	case rec.Locked:
		return UserLocked
	case rec.Pending:
		return UserPending
	}
	return UserActive
}

func (userKind) ModifyQuery(env *Env, q *Query, c *criteria.Criteria) (bool, error) {
	q.Select(
		"users.username AS username",
		"users.firstName AS firstName",
		"users.lastName AS lastName",
		"users.email AS email",
		"users.admin AS admin",
		"users.client AS client",
		"users.locked AS locked",
		"users.suspended AS suspended",
		"users.pending AS pending",
		"users.archived AS userArchived",
		"users.lastLoginDate AS lastLoginDate",
	)
	q.Join("JOIN users ON users.id = elements.id")

	for _, name := range []string{"username", "email", "firstName", "lastName"} {
		if v, ok := c.Value(name); ok {
			if err := q.WhereParam(params.Col(userColumns[name]), v); err != nil {
				return false, fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	if v, ok := c.Value("lastLoginDate"); ok {
		if err := q.WhereDate(params.Col("users.lastLoginDate"), v); err != nil {
			return false, fmt.Errorf("lastLoginDate: %w", err)
		}
	}
	if admin, ok := c.Flag("admin"); ok {
		q.Where(boolCondition("users.admin", admin))
	}
	if client, ok := c.Flag("client"); ok {
		q.Where(boolCondition("users.client", client))
	}
	if v, ok := c.Value("groupId"); ok {
		cond, args, err := params.Parse(params.Col("usergroups_users.groupId"), v)
		if err != nil {
			return false, fmt.Errorf("groupId: %w", err)
		}
		q.Where("users.id IN (SELECT usergroups_users.userId FROM usergroups_users WHERE "+cond+")", args...)
	}
	if v, ok := c.Value("group"); ok {
		cond, args, err := params.Parse(params.Col("usergroups.handle"), v)
		if err != nil {
			return false, fmt.Errorf("group: %w", err)
		}
		q.Where(`users.id IN (
			SELECT usergroups_users.userId FROM usergroups_users
			JOIN usergroups ON usergroups.id = usergroups_users.groupId
			WHERE `+cond+")", args...)
	}
	if perm := strings.ToLower(strings.TrimSpace(c.String("can"))); perm != "" {
		q.Where(`(users.admin = 1
			OR users.id IN (
				SELECT pu.userId FROM userpermissions_users pu
				JOIN userpermissions p ON p.id = pu.permissionId
				WHERE p.name = ?)
			OR users.id IN (
				SELECT gu.userId FROM usergroups_users gu
				JOIN userpermissions_usergroups pg ON pg.groupId = gu.groupId
				JOIN userpermissions p ON p.id = pg.permissionId
				WHERE p.name = ?))`, perm, perm)
	}
	return true, nil
}

func (userKind) Sources(env *Env, context string) ([]*model.Source, error) {
	out := []*model.Source{{Key: "*", Label: "All users", Criteria: map[string]any{}}}
	groups, err := env.Catalog.UserGroups()
	if err != nil {
		return nil, err
	}
	if len(groups) > 0 {
		out = append(out, &model.Source{Heading: true, Label: "Groups"})
	}
	for _, g := range groups {
		out = append(out, &model.Source{
			Key:      "group:" + strconv.FormatInt(g.ID, 10),
			Label:    g.Name,
			Criteria: map[string]any{"groupId": g.ID},
		})
	}
	return out, nil
}

func (k userKind) EagerLoadingMap(env *Env, sources []*model.Element, handle string) (*model.EagerLoadMap, bool, error) {
	return defaultEagerLoadingMap(env, k, sources, handle)
}

func (userKind) Populate(row Row) (model.Record, error) {
	return &model.UserRecord{
		Username:      row.String("username"),
		FirstName:     row.String("firstName"),
		LastName:      row.String("lastName"),
		Email:         row.String("email"),
		Admin:         row.Bool("admin"),
		Client:        row.Bool("client"),
		Locked:        row.Bool("locked"),
		Suspended:     row.Bool("suspended"),
		Pending:       row.Bool("pending"),
		Archived:      row.Bool("userArchived"),
		LastLoginDate: row.TimePtr("lastLoginDate"),
	}, nil
}

func (userKind) TableAttributes(source string) []Attribute {
	return []Attribute{
		{Key: "username", Label: "Username"},
		{Key: "fullName", Label: "Full Name"},
		{Key: "email", Label: "Email"},
		{Key: "dateCreated", Label: "Join Date"},
		{Key: "lastLoginDate", Label: "Last Login"},
	}
}

func (k userKind) AttributeValue(env *Env, el *model.Element, attr string) string {
	if rec, ok := el.Record.(*model.UserRecord); ok {
		switch attr {
		case "username":
			return rec.Username
		case "fullName":
			return rec.Name()
		case "email":
			return rec.Email
		case "lastLoginDate":
			return formatTimePtr(rec.LastLoginDate)
		case "admin":
			return strconv.FormatBool(rec.Admin)
		}
	}
	return defaultAttributeValue(env, k, el, attr)
}

func (userKind) validate(env *Env, el *model.Element) error {
	rec, ok := el.Record.(*model.UserRecord)
	if !ok {
		return fmt.Errorf("user %d: record is %T", el.ID, el.Record)
	}
	rec.Username = strings.TrimSpace(rec.Username)
	rec.Email = strings.TrimSpace(rec.Email)
	if rec.Username == "" {
		el.AddError("username", "Username cannot be blank.")
	}
	if rec.Email == "" {
		el.AddError("email", "Email cannot be blank.")
	} else if !strings.Contains(rec.Email, "@") {
		el.AddError("email", "Email is not a valid email address.")
	}
	if rec.Username == "" {
		return nil
	}
	var n int
	err := env.DB.QueryRow(
		"SELECT COUNT(*) FROM users WHERE username = ? AND id != ?",
		rec.Username, el.ID,
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if n > 0 {
		el.AddError("username", fmt.Sprintf("Username %q has already been taken.", rec.Username))
	}
	return nil
}

func (userKind) beforeSave(*Env, *model.Element, bool) (func() error, error) {
	return nil, nil
}

// saveRecord keeps at most one status flag set.
func (userKind) saveRecord(env *Env, el *model.Element, isNew bool) error {
	rec := el.Record.(*model.UserRecord)
	status := userStatus(rec)
	rec.Archived = status == UserArchived
	rec.Suspended = status == UserSuspended
	rec.Locked = status == UserLocked
	rec.Pending = status == UserPending

	_, err := env.DB.Exec(`
		INSERT INTO users (id, username, firstName, lastName, email, admin, client, locked, suspended, pending, archived, lastLoginDate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET username = excluded.username, firstName = excluded.firstName,
			lastName = excluded.lastName, email = excluded.email, admin = excluded.admin, client = excluded.client,
			locked = excluded.locked, suspended = excluded.suspended, pending = excluded.pending,
			archived = excluded.archived, lastLoginDate = excluded.lastLoginDate`,
		el.ID, rec.Username, nullString(rec.FirstName), nullString(rec.LastName), rec.Email,
		rec.Admin, rec.Client, rec.Locked, rec.Suspended, rec.Pending, rec.Archived, dbTime(rec.LastLoginDate),
	)
	if err != nil {
		return fmt.Errorf("save user record: %w", err)
	}
	return nil
}

func (userKind) afterSave(*Env, *model.Element, bool) error { return nil }

func (userKind) uriFormat(*Env, *model.Element) (string, error) { return "", nil }

func (userKind) searchAttributes(el *model.Element) map[string]string {
	rec, ok := el.Record.(*model.UserRecord)
	if !ok {
		return nil
	}
	return map[string]string{
		"username":  rec.Username,
		"firstname": rec.FirstName,
		"lastname":  rec.LastName,
		"fullname":  rec.Name(),
		"email":     rec.Email,
	}
}
