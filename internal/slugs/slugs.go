// Package slugs generates element slugs and renders URI formats.
//
// Slugs are built on gosimple/slug. URI formats accept the tokens {slug},
// {id} and {parent.uri}; a format that renders to nothing yields no URI.
package slugs

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	goslug "github.com/gosimple/slug"
)

var tokenRe = regexp.MustCompile(`\{([a-zA-Z.]+)\}`)

// Make converts a title to a URL-safe slug.
func Make(title string) string {
	slugged := goslug.Make(title)
	if slugged == "" {
		slugged = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(title), " ", "-"))
	}
	return slugged
}

// URIVars are the values available to a URI format.
type URIVars struct {
	Slug      string
	ID        int64
	ParentURI string
}

// RenderURI renders format. Empty segments are collapsed so a top-level
// element's "{parent.uri}/{slug}" becomes just its slug.
func RenderURI(format string, vars URIVars) (string, error) {
	if strings.TrimSpace(format) == "" {
		return "", nil
	}
	var unknown string
	out := tokenRe.ReplaceAllStringFunc(format, func(tok string) string {
		switch tok {
		case "{slug}":
			return vars.Slug
		case "{id}":
			return strconv.FormatInt(vars.ID, 10)
		case "{parent.uri}":
			return vars.ParentURI
		default:
			if unknown == "" {
				unknown = tok
			}
			return ""
		}
	})
	if unknown != "" {
		return "", fmt.Errorf("unknown URI format token %s", unknown)
	}

	parts := strings.Split(out, "/")
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/"), nil
}

// Unique returns uri, or uri with the first "-N" suffix for which taken
// reports false.
func Unique(uri string, taken func(string) (bool, error)) (string, error) {
	if uri == "" {
		return "", nil
	}
	candidate := uri
	for i := 1; i < 1000; i++ {
		used, err := taken(candidate)
		if err != nil {
			return "", err
		}
		if !used {
			return candidate, nil
		}
		candidate = uri + "-" + strconv.Itoa(i)
	}
	return "", fmt.Errorf("could not find a unique URI for %q", uri)
}
