package elements

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aidanlsb/elements/internal/access"
	"github.com/aidanlsb/elements/internal/audit"
	"github.com/aidanlsb/elements/internal/catalog"
	"github.com/aidanlsb/elements/internal/criteria"
	"github.com/aidanlsb/elements/internal/field"
)

// Engine owns the database and the settings shared by every request.
// Reads go through an Env; mutations run in one transaction each.
type Engine struct {
	db            *sql.DB
	log           zerolog.Logger
	audit         *audit.Logger
	ext           *Extensions
	primaryLocale string
	locales       []string
	strict        bool
	defaultLimit  int
	now           func() time.Time
	volumes       VolumeFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithAudit sets the audit log for mutations.
func WithAudit(a *audit.Logger) Option {
	return func(e *Engine) { e.audit = a }
}

// WithLocales sets the primary locale followed by the other site locales.
func WithLocales(primary string, others ...string) Option {
	return func(e *Engine) {
		e.primaryLocale = primary
		e.locales = append([]string{primary}, others...)
	}
}

// WithStrictCriteria rejects unknown criteria attributes and field handles.
func WithStrictCriteria(strict bool) Option {
	return func(e *Engine) { e.strict = strict }
}

// WithDefaultLimit sets the limit for queries that do not set one.
func WithDefaultLimit(n int) Option {
	return func(e *Engine) { e.defaultLimit = n }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithVolumes sets how asset sources map to file storage.
func WithVolumes(fn VolumeFunc) Option {
	return func(e *Engine) { e.volumes = fn }
}

// New creates an engine over a migrated database.
func New(db *sql.DB, opts ...Option) *Engine {
	e := &Engine{
		db:            db,
		log:           zerolog.Nop(),
		audit:         audit.Disabled(),
		ext:           &Extensions{},
		primaryLocale: "en-us",
		locales:       []string{"en-us"},
		defaultLimit:  100,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DB returns the underlying database.
func (e *Engine) DB() *sql.DB { return e.db }

// Extensions returns the hook registry. Hooks run in registration order
// after the core behavior.
func (e *Engine) Extensions() *Extensions { return e.ext }

// Env creates a request context for user, which may be nil. The field
// registry is loaded fresh so newly created fields are visible.
func (e *Engine) Env(user *access.User) (*Env, error) {
	fields, err := field.Load(e.db)
	if err != nil {
		return nil, fmt.Errorf("load fields: %w", err)
	}
	return &Env{
		DB:           e.db,
		Catalog:      catalog.New(e.db),
		Fields:       fields,
		User:         user,
		Now:          e.now().UTC().Truncate(time.Second),
		Locale:       e.primaryLocale,
		Locales:      append([]string(nil), e.locales...),
		Strict:       e.strict,
		DefaultLimit: e.defaultLimit,
		Log:          e.log,
		ext:          e.ext,
		volumes:      e.volumes,
		notices:      &[]Notice{},
	}, nil
}

// NewCriteria returns empty criteria for kind honoring the strictness of env.
func NewCriteria(env *Env, kind Kind) *criteria.Criteria {
	return criteria.New(kind.CriteriaSchema(), env.Strict)
}
