package slugs

import (
	"errors"
	"testing"
)

func TestMake(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"My Awesome Project", "my-awesome-project"},
		{"UPPER CASE", "upper-case"},
		{"Special: Characters!", "special-characters"},
		{"Über Café", "uber-cafe"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Make(tt.in); got != tt.want {
				t.Fatalf("Make(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRenderURI(t *testing.T) {
	tests := []struct {
		format string
		vars   URIVars
		want   string
	}{
		{"news/{slug}", URIVars{Slug: "hello"}, "news/hello"},
		{"{parent.uri}/{slug}", URIVars{Slug: "child", ParentURI: "parent"}, "parent/child"},
		{"{parent.uri}/{slug}", URIVars{Slug: "top"}, "top"},
		{"topics/{parent.uri}/{slug}", URIVars{Slug: "go", ParentURI: "topics/code"}, "topics/topics/code/go"},
		{"items/{id}", URIVars{ID: 42}, "items/42"},
		{"", URIVars{Slug: "x"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := RenderURI(tt.format, tt.vars)
			if err != nil {
				t.Fatalf("RenderURI(%q) error: %v", tt.format, err)
			}
			if got != tt.want {
				t.Fatalf("RenderURI(%q) = %q, want %q", tt.format, got, tt.want)
			}
		})
	}

	if _, err := RenderURI("{author.name}", URIVars{}); err == nil {
		t.Fatal("expected error for unknown token")
	}
}

func TestUnique(t *testing.T) {
	taken := map[string]bool{"news/a": true, "news/a-1": true}
	got, err := Unique("news/a", func(s string) (bool, error) { return taken[s], nil })
	if err != nil {
		t.Fatalf("Unique error: %v", err)
	}
	if got != "news/a-2" {
		t.Fatalf("Unique = %q, want news/a-2", got)
	}

	boom := errors.New("boom")
	if _, err := Unique("x", func(string) (bool, error) { return false, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected lookup error, got %v", err)
	}
}
