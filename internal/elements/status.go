package elements

import (
	"database/sql"
	"fmt"

	"github.com/aidanlsb/elements/internal/dates"
	"github.com/aidanlsb/elements/internal/model"
	"github.com/aidanlsb/elements/internal/store"
)

// Status returns the element's current status token.
func Status(env *Env, kind Kind, el *model.Element) string {
	return kind.statusOf(env, el)
}

// HasStatus reports whether kind understands token.
func HasStatus(kind Kind, token string) bool {
	for _, s := range kind.Statuses() {
		if s.Token == token {
			return true
		}
	}
	return false
}

// SetEnabled enables or disables an element in every locale.
func (e *Engine) SetEnabled(env *Env, id int64, enabled bool) error {
	el, kind, err := ByID(env, id, "")
	if err != nil {
		return err
	}
	from := kind.statusOf(env, el)
	err = store.WithTx(e.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(
			"UPDATE elements SET enabled = ?, dateUpdated = ? WHERE id = ?",
			enabled, dates.FormatDB(env.Now), id,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("set enabled %d: %w", id, err)
	}
	el.Enabled = enabled
	e.logStatus(env, kind, el, from)
	return nil
}

// SetUserStatus moves a user to one of the user status tokens. The flags
// are kept mutually exclusive so that exactly one status holds.
func (e *Engine) SetUserStatus(env *Env, id int64, status string) error {
	if !HasStatus(Users, status) {
		return unknownStatus(Users, status)
	}
	el, kind, err := ByID(env, id, "")
	if err != nil {
		return err
	}
	if kind != Users {
		return fmt.Errorf("element %d is a %s, not a User", id, kind.Type())
	}
	from := kind.statusOf(env, el)

	flags := map[string]bool{}
	if status != UserActive {
		flags[status] = true
	}
	err = store.WithTx(e.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			UPDATE users SET locked = ?, suspended = ?, pending = ?, archived = ? WHERE id = ?`,
			flags[UserLocked], flags[UserSuspended], flags[UserPending], flags[UserArchived], id,
		); err != nil {
			return err
		}
		_, err := tx.Exec("UPDATE elements SET dateUpdated = ? WHERE id = ?", dates.FormatDB(env.Now), id)
		return err
	})
	if err != nil {
		return fmt.Errorf("set user status %d: %w", id, err)
	}

	if rec, ok := el.Record.(*model.UserRecord); ok {
		rec.Locked, rec.Suspended = flags[UserLocked], flags[UserSuspended]
		rec.Pending, rec.Archived = flags[UserPending], flags[UserArchived]
	}
	e.logStatus(env, kind, el, from)
	return nil
}

func (e *Engine) logStatus(env *Env, kind Kind, el *model.Element, from string) {
	var userID int64
	if env.User != nil {
		userID = env.User.ID
	}
	if err := e.audit.LogStatus(string(kind.Type()), el.ID, from, kind.statusOf(env, el), userID); err != nil {
		env.Log.Warn().Err(err).Msg("audit log write failed")
	}
}
