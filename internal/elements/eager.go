package elements

import (
	"fmt"
	"strings"

	"github.com/aidanlsb/elements/internal/model"
	"github.com/aidanlsb/elements/internal/params"
)

// Path is one eager-loading request. Handle may be dotted to load through
// several relations ("matrix.quote:author"); Criteria apply to the targets of
// the last segment.
type Path struct {
	Handle   string
	Criteria map[string]any
}

// Paths builds criteria-less paths from handles.
func Paths(handles ...string) []Path {
	out := make([]Path, 0, len(handles))
	for _, h := range handles {
		out = append(out, Path{Handle: h})
	}
	return out
}

// PathsFromValue reads the "with" criteria attribute: a handle, a list of
// handles, or [handle, criteria] pairs.
func PathsFromValue(v any) ([]Path, error) {
	var out []Path
	for _, item := range params.AsList(v) {
		switch t := item.(type) {
		case string:
			for _, h := range strings.Split(t, ",") {
				if h = strings.TrimSpace(h); h != "" {
					out = append(out, Path{Handle: h})
				}
			}
		case Path:
			out = append(out, t)
		case []any:
			if len(t) != 2 {
				return nil, schemaErrorf("with", "expected [handle, criteria], got %d items", len(t))
			}
			h, ok := t[0].(string)
			crit, ok2 := t[1].(map[string]any)
			if !ok || !ok2 {
				return nil, schemaErrorf("with", "expected [handle, criteria]")
			}
			out = append(out, Path{Handle: h, Criteria: crit})
		default:
			return nil, schemaErrorf("with", "unsupported eager-loading path %v", item)
		}
	}
	return out, nil
}

// handleChecker is implemented by kinds with handle syntax beyond a bare
// field or structure handle.
type handleChecker interface {
	checkEagerHandle(handle string) error
}

// EagerLoadingMap asks kind to map sources to targets for one handle.
// Malformed handles fail even when there are no sources.
func EagerLoadingMap(env *Env, kind Kind, sources []*model.Element, handle string) (*model.EagerLoadMap, bool, error) {
	if hc, ok := kind.(handleChecker); ok {
		if err := hc.checkEagerHandle(handle); err != nil {
			return nil, false, err
		}
	}
	if len(sources) == 0 {
		return nil, false, nil
	}
	return kind.EagerLoadingMap(env, sources, handle)
}

type pathNode struct {
	handle   string
	criteria map[string]any
	children []*pathNode
}

// buildPathTree groups dotted paths by their leading handle, keeping the
// order handles were first requested in.
func buildPathTree(paths []Path) []*pathNode {
	var roots []*pathNode
	for _, p := range paths {
		segments := strings.Split(p.Handle, ".")
		level := &roots
		for i, seg := range segments {
			var node *pathNode
			for _, n := range *level {
				if n.handle == seg {
					node = n
					break
				}
			}
			if node == nil {
				node = &pathNode{handle: seg}
				*level = append(*level, node)
			}
			if i == len(segments)-1 && p.Criteria != nil {
				node.criteria = p.Criteria
			}
			level = &node.children
		}
	}
	return roots
}

// EagerLoad attaches related elements to elements for every path. Each
// distinct handle at each depth costs one map query and one target query.
// Handles a kind does not understand are skipped.
func EagerLoad(env *Env, kind Kind, elements []*model.Element, paths ...Path) error {
	return eagerLoad(env, kind, elements, buildPathTree(paths))
}

func eagerLoad(env *Env, kind Kind, sources []*model.Element, nodes []*pathNode) error {
	for _, node := range nodes {
		m, handled, err := EagerLoadingMap(env, kind, sources, node.handle)
		if err != nil {
			return fmt.Errorf("eager load %s.%s: %w", kind.Type(), node.handle, err)
		}
		if !handled {
			env.Log.Debug().Str("kind", string(kind.Type())).Str("handle", node.handle).Msg("eager-loading handle not handled")
			continue
		}
		targetKind, err := KindOf(m.Type)
		if err != nil {
			return err
		}

		targets, err := loadTargets(env, targetKind, m, node.criteria, localeOf(env, sources))
		if err != nil {
			return fmt.Errorf("eager load %s.%s: %w", kind.Type(), node.handle, err)
		}
		byID := make(map[int64]*model.Element, len(targets))
		for _, t := range targets {
			byID[t.ID] = t
		}

		attached := make(map[int64][]*model.Element, len(sources))
		for _, e := range m.Edges {
			if t, ok := byID[e.Target]; ok {
				attached[e.Source] = append(attached[e.Source], t)
			}
		}
		for _, src := range sources {
			src.SetEager(node.handle, attached[src.ID])
		}

		if len(node.children) > 0 && len(targets) > 0 {
			if err := eagerLoad(env, targetKind, targets, node.children); err != nil {
				return err
			}
		}
	}
	return nil
}

func loadTargets(env *Env, kind Kind, m *model.EagerLoadMap, extra map[string]any, locale string) ([]*model.Element, error) {
	ids := m.TargetIDs()
	if len(ids) == 0 {
		return nil, nil
	}
	c := NewCriteria(env, kind)
	if err := c.Set("id", ids); err != nil {
		return nil, err
	}
	if err := c.Set("limit", -1); err != nil {
		return nil, err
	}
	if kind.IsLocalized() {
		if err := c.Set("locale", locale); err != nil {
			return nil, err
		}
	}
	if err := c.Apply(m.Criteria); err != nil {
		return nil, err
	}
	if err := c.Apply(extra); err != nil {
		return nil, err
	}
	return Find(env, kind, c)
}
