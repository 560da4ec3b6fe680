package ui

import (
	"testing"

	"github.com/vanderheijden86/nodetree/pkg/model"
	"github.com/vanderheijden86/nodetree/pkg/testutil"
)

func TestSuggestID(t *testing.T) {
	tree := testutil.BuildTree(t, map[string][]string{
		model.RootID: {"1", "2"},
		"1":          {"1.1", "1.2"},
	})

	tests := []struct {
		name  string
		query string
		want  string
		ok    bool
	}{
		{"one edit away", "1.22", "1.2", true},
		{"tie goes to pre-order first", "1.3", "1.1", true},
		{"root ignores case", "stArt", model.RootID, true},
		{"single char", "9", "1", true},
		{"too far", "xyzzy", "", false},
		{"empty", "  ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SuggestID(tree.Root(), tt.query)
			if got != tt.want || ok != tt.ok {
				t.Errorf("SuggestID(%q) = %q, %v; want %q, %v", tt.query, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestResolveID(t *testing.T) {
	tree := testutil.BuildTree(t, map[string][]string{model.RootID: {"1", "2"}})

	tests := []struct {
		query string
		want  string
		ok    bool
	}{
		{"start", model.RootID, true},
		{"START", model.RootID, true},
		{"1", "1", true},
		{" 2 ", "2", true},
		{"3", "", false},
	}
	for _, tt := range tests {
		got, ok := resolveID(tree.Root(), tt.query)
		if got != tt.want || ok != tt.ok {
			t.Errorf("resolveID(%q) = %q, %v; want %q, %v", tt.query, got, ok, tt.want, tt.ok)
		}
	}
}
