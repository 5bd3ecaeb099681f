package elements

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/aidanlsb/elements/internal/access"
	"github.com/aidanlsb/elements/internal/catalog"
	"github.com/aidanlsb/elements/internal/field"
	"github.com/aidanlsb/elements/internal/sqlutil"
	"github.com/aidanlsb/elements/internal/volume"
)

// Notice is a non-fatal message produced while composing a query, such as a
// deprecated parameter that was rewritten.
type Notice struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Env is the explicit request context every engine call receives: the
// database handle, the permission snapshot of the acting user and the clock.
type Env struct {
	DB      sqlutil.DBTX
	Catalog *catalog.Catalog
	Fields  *field.Registry
	// User is nil for anonymous requests.
	User *access.User
	// Now is the instant statuses are evaluated against.
	Now time.Time
	// Locale is the primary site locale.
	Locale  string
	Locales []string
	Strict  bool
	// DefaultLimit applies to queries that leave limit unset. Zero or less
	// means unlimited.
	DefaultLimit int
	Log          zerolog.Logger

	ext     *Extensions
	volumes VolumeFunc
	notices *[]Notice
}

// VolumeFunc returns the file storage of an asset source.
type VolumeFunc func(source *catalog.AssetSource) (volume.Volume, error)

// Deprecated logs a deprecation and records it as a notice.
func (env *Env) Deprecated(code, message string) {
	env.Log.Warn().Str("code", code).Msg(message)
	if env.notices != nil {
		*env.notices = append(*env.notices, Notice{Code: code, Message: message})
	}
}

// Notices returns the notices recorded so far.
func (env *Env) Notices() []Notice {
	if env.notices == nil {
		return nil
	}
	return *env.notices
}

// Extensions returns the registered extension hooks.
func (env *Env) Extensions() *Extensions {
	if env.ext == nil {
		return &Extensions{}
	}
	return env.ext
}

// WithDB returns a copy bound to db, typically a transaction. Notices are
// shared with the original.
func (env *Env) WithDB(db sqlutil.DBTX) *Env {
	c := *env
	c.DB = db
	c.Catalog = catalog.New(db)
	return &c
}

// Volume returns the storage behind an asset source.
func (env *Env) Volume(source *catalog.AssetSource) (volume.Volume, error) {
	if env.volumes == nil {
		return nil, ErrNoVolume
	}
	return env.volumes(source)
}
