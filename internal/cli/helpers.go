package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aidanlsb/elements/internal/access"
	"github.com/aidanlsb/elements/internal/audit"
	"github.com/aidanlsb/elements/internal/catalog"
	"github.com/aidanlsb/elements/internal/criteria"
	"github.com/aidanlsb/elements/internal/elements"
	"github.com/aidanlsb/elements/internal/store"
	"github.com/aidanlsb/elements/internal/volume"
)

// anonymousUser is the --user value for a request without a user.
const anonymousUser = "anonymous"

// openEngine opens the configured database and builds an engine over it.
// Caller is responsible for calling db.Close().
func openEngine() (*elements.Engine, *sql.DB, error) {
	c := getConfig()
	db, err := store.Open(c.Database)
	if err != nil {
		return nil, nil, err
	}

	opts := []elements.Option{
		elements.WithLocales(c.PrimaryLocale, c.Locales[1:]...),
		elements.WithStrictCriteria(c.StrictCriteria),
		elements.WithDefaultLimit(c.DefaultLimit),
		elements.WithAudit(audit.New(c.Audit.Path, c.Audit.Enabled)),
	}
	if logger != nil {
		opts = append(opts, elements.WithLogger(logger.Logger))
	}
	if c.Assets.Root != "" {
		root := c.Assets.Root
		opts = append(opts, elements.WithVolumes(func(src *catalog.AssetSource) (volume.Volume, error) {
			return volume.NewLocal(filepath.Join(root, src.Handle)), nil
		}))
	}
	return elements.New(db, opts...), db, nil
}

// newEnv builds the request context for --user. Without the flag the CLI
// acts as the console operator, an admin with id 0.
func newEnv(engine *elements.Engine) (*elements.Env, error) {
	var user *access.User
	switch u := strings.TrimSpace(userFlag); u {
	case "":
		user = access.NewUser(0, true)
	case anonymousUser:
	default:
		id, err := strconv.ParseInt(u, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --user %q: expected a user id or %q", u, anonymousUser)
		}
		user, err = access.Load(engine.DB(), id)
		if err != nil {
			return nil, err
		}
	}
	return engine.Env(user)
}

// handleSetupError reports a failure to open the engine or build an env.
func handleSetupError(err error) error {
	switch {
	case errors.Is(err, access.ErrUserNotFound):
		return handleError(ErrUserNotFound, err, "Pass an existing user id or --user anonymous")
	case errors.Is(err, store.ErrSchemaMismatch):
		return handleError(ErrDatabaseVersion, err, "Recreate the database with 'elq init'")
	default:
		return handleError(ErrDatabaseError, err, "")
	}
}

// parseAssignments splits repeated key=value flags.
func parseAssignments(flag string, pairs []string) ([][2]string, error) {
	out := make([][2]string, 0, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --%s %q: expected key=value", flag, p)
		}
		out = append(out, [2]string{k, v})
	}
	return out, nil
}

// parseValue turns a flag value into a criteria value. Flow collections
// such as [news, pages] or {element: 4, field: topics} decode as YAML;
// scalars become numbers or booleans when the attribute is declared that
// way and stay strings otherwise so operators like ">= 2024-01-01" survive.
func parseValue(attrType criteria.AttrType, raw string) (any, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		var v any
		if err := yaml.Unmarshal([]byte(s), &v); err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", raw, err)
		}
		return normalizeYAML(v), nil
	}
	switch attrType {
	case criteria.Number, criteria.Mixed:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
	case criteria.Bool:
		if b, err := strconv.ParseBool(s); err == nil {
			return b, nil
		}
	}
	return s, nil
}

// normalizeYAML converts decoded ints to int64 and nested maps to
// map[string]any.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case []any:
		for i := range t {
			t[i] = normalizeYAML(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = normalizeYAML(t[k])
		}
		return t
	default:
		return v
	}
}

// buildCriteria applies --param and --field assignments to new criteria.
func buildCriteria(env *elements.Env, kind elements.Kind, params, fields []string) (*criteria.Criteria, error) {
	c := elements.NewCriteria(env, kind)
	schema := c.Schema()

	pairs, err := parseAssignments("param", params)
	if err != nil {
		return nil, err
	}
	for _, p := range pairs {
		v, err := parseValue(schema[p[0]].Type, p[1])
		if err != nil {
			return nil, err
		}
		if err := c.Set(p[0], v); err != nil {
			return nil, err
		}
	}

	pairs, err = parseAssignments("field", fields)
	if err != nil {
		return nil, err
	}
	for _, p := range pairs {
		v, err := parseValue(criteria.String, p[1])
		if err != nil {
			return nil, err
		}
		c.SetField(p[0], v)
	}

	if localeFlag != "" && !c.IsSet("locale") {
		if err := c.Set("locale", strings.ToLower(localeFlag)); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// parseIDs parses comma-separated or repeated element ids.
func parseIDs(values []string) ([]int64, error) {
	var ids []int64
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid element id %q", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
