package elements

import (
	"database/sql"
	"fmt"

	"github.com/aidanlsb/elements/internal/relations"
	"github.com/aidanlsb/elements/internal/sqlutil"
	"github.com/aidanlsb/elements/internal/store"
	"github.com/aidanlsb/elements/internal/structure"
)

// ancestorPropagator is implemented by kinds whose relations are copied to
// ancestors when an element moves within its structure.
type ancestorPropagator interface {
	propagatesToAncestors() bool
}

// MoveResult reports what a move changed.
type MoveResult struct {
	Moved bool `json:"moved"`
	// URIsUpdated counts element locales whose URI changed.
	URIsUpdated int `json:"uris_updated"`
	// RelationsAdded counts ancestor relations backfilled.
	RelationsAdded int `json:"relations_added"`
}

// Move places an element at pos relative to targetID (0 for the top level)
// in its structure. URIs of the element and every descendant are recomputed.
// For kinds that propagate, an element that was already in the structure has
// its incoming relations extended to its new ancestors.
func (e *Engine) Move(env *Env, id int64, pos structure.Position, targetID int64) (*MoveResult, error) {
	el, kind, err := ByID(env, id, "")
	if err != nil {
		return nil, err
	}
	s, ok := kind.(structured)
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", kind.Type(), id, ErrNotStructured)
	}

	res := &MoveResult{}
	var sid int64
	var ancestors []int64
	err = store.WithTx(e.db, func(tx *sql.Tx) error {
		txEnv := env.WithDB(tx)
		var err error
		sid, err = s.structureID(txEnv, el)
		if err != nil {
			return err
		}
		if sid == 0 {
			return fmt.Errorf("%s %d: %w", kind.Type(), id, ErrNotStructured)
		}

		wasIn, err := structure.Contains(tx, sid, id)
		if err != nil {
			return err
		}
		res.Moved, err = structure.Place(tx, sid, id, pos, targetID)
		if err != nil {
			return err
		}
		if !res.Moved {
			return nil
		}

		res.URIsUpdated, err = updateURIs(txEnv, kind, id, sid)
		if err != nil {
			return err
		}

		if p, ok := kind.(ancestorPropagator); ok && p.propagatesToAncestors() && wasIn {
			ancestors, err = structure.Ancestors(tx, sid, id, 0)
			if err != nil {
				return err
			}
			res.RelationsAdded, err = relations.PropagateAncestors(tx, id, ancestors)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("move %s %d: %w", kind.Type(), id, err)
	}

	if res.Moved {
		var userID int64
		if env.User != nil {
			userID = env.User.ID
		}
		if err := e.audit.LogMove(string(kind.Type()), id, sid, pos.String(), targetID, userID); err != nil {
			env.Log.Warn().Err(err).Msg("audit log write failed")
		}
		if len(ancestors) > 0 {
			if err := e.audit.LogPropagate(string(kind.Type()), id, ancestors, res.RelationsAdded); err != nil {
				env.Log.Warn().Err(err).Msg("audit log write failed")
			}
		}
	}
	return res, nil
}

// updateURIs recomputes the URI of rootID and its descendants in every
// locale they exist in. Parents are visited before children so
// {parent.uri} sees the new value.
func updateURIs(env *Env, kind Kind, rootID, structureID int64) (int, error) {
	descendants, err := structure.Descendants(env.DB, structureID, rootID, 0)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, id := range append([]int64{rootID}, descendants...) {
		rows, err := env.DB.Query("SELECT locale, IFNULL(uri, '') FROM elements_i18n WHERE elementId = ? ORDER BY locale", id)
		if err != nil {
			return 0, fmt.Errorf("load element locales: %w", err)
		}
		list, err := sqlutil.ScanRows(rows, func(r *sql.Rows) (localeURI, error) {
			var lu localeURI
			err := r.Scan(&lu.locale, &lu.uri)
			return lu, err
		})
		if err != nil {
			return 0, err
		}
		for _, lu := range list {
			el, _, err := ByID(env, id, lu.locale)
			if err != nil {
				return 0, err
			}
			uri, err := elementURI(env, kind, el, lu.locale)
			if err != nil {
				return 0, err
			}
			if uri == lu.uri {
				continue
			}
			if _, err := env.DB.Exec(
				"UPDATE elements_i18n SET uri = ? WHERE elementId = ? AND locale = ?",
				nullString(uri), id, lu.locale,
			); err != nil {
				return 0, fmt.Errorf("update uri: %w", err)
			}
			updated++
		}
	}
	return updated, nil
}

type localeURI struct {
	locale string
	uri    string
}
