package elements

import (
	"fmt"

	"github.com/aidanlsb/elements/internal/criteria"
	"github.com/aidanlsb/elements/internal/model"
)

// Sources returns kind's sources for context followed by those of every
// source hook in registration order.
func Sources(env *Env, kind Kind, context string) ([]*model.Source, error) {
	switch context {
	case ContextIndex, ContextModal, ContextSettings:
	case "":
		context = ContextIndex
	default:
		return nil, fmt.Errorf("unknown source context %q", context)
	}
	sources, err := kind.Sources(env, context)
	if err != nil {
		return nil, fmt.Errorf("%s sources: %w", kind.Type(), err)
	}
	for i, hook := range env.Extensions().sources {
		extra, err := hook(env, kind, context)
		if err != nil {
			return nil, fmt.Errorf("source hook %d: %w", i, err)
		}
		sources = append(sources, extra...)
	}
	return sources, nil
}

// GetSource finds a source by key anywhere in the tree, or returns nil.
func GetSource(env *Env, kind Kind, context, key string) (*model.Source, error) {
	sources, err := Sources(env, kind, context)
	if err != nil {
		return nil, err
	}
	return model.FindSource(sources, key), nil
}

// ScopeToSource applies a source's criteria to c.
func ScopeToSource(c *criteria.Criteria, src *model.Source) error {
	if src == nil {
		return nil
	}
	return c.Apply(src.Criteria)
}
