// Package search produces and queries element keywords.
//
// Rich-text values are parsed as markdown with goldmark so markup never
// reaches the index. Tokenization is simple: lowercase
// letter/digit runs.
package search

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/aidanlsb/elements/internal/sqlutil"
)

// Keywords extracts normalized keywords from markdown source.
func Keywords(source string) string {
	src := []byte(source)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var sb strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			sb.Write(node.Segment.Value(src))
			sb.WriteByte(' ')
		case *ast.String:
			sb.Write(node.Value)
			sb.WriteByte(' ')
		case *ast.AutoLink:
			sb.Write(node.Label(src))
			sb.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})
	return Normalize(sb.String())
}

// Normalize lowercases s and keeps only letter/digit runs separated by one space.
func Normalize(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}

// Index stores keywords for one attribute (or field when fieldID > 0) of an
// element in a locale.
func Index(db sqlutil.DBTX, elementID int64, attribute string, fieldID int64, locale, keywords string) error {
	if _, err := db.Exec(`
		INSERT INTO searchindex (elementId, attribute, fieldId, locale, keywords) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(elementId, attribute, fieldId, locale) DO UPDATE SET keywords = excluded.keywords`,
		elementID, attribute, fieldID, locale, " "+keywords+" ",
	); err != nil {
		return fmt.Errorf("index %s of element %d: %w", attribute, elementID, err)
	}
	return nil
}

// Condition compiles a search query into a predicate on elements.id. Every
// term must prefix-match a keyword of the element in locale. An empty query
// yields no condition.
func Condition(query, locale string) (string, []any) {
	terms := strings.Fields(Normalize(query))
	if len(terms) == 0 {
		return "", nil
	}
	conds := make([]string, 0, len(terms))
	args := make([]any, 0, len(terms)*2)
	for _, term := range terms {
		conds = append(conds, `elements.id IN (SELECT elementId FROM searchindex WHERE locale = ? AND keywords LIKE ? ESCAPE '\')`)
		args = append(args, locale, "% "+escapeLike(term)+"%")
	}
	return strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
