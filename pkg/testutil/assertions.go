// Package testutil provides tree fixtures and assertion helpers shared by
// package tests.
package testutil

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/nodetree/pkg/model"
)

// BuildTree assembles a tree from a parent -> ordered children map rooted
// at START. Ids must be unique; the result is validated.
func BuildTree(t *testing.T, children map[string][]string) *model.Tree {
	t.Helper()

	var build func(id string) *model.Node
	build = func(id string) *model.Node {
		n := model.NewNode(id)
		for _, child := range children[id] {
			n.Children = append(n.Children, build(child))
		}
		return n
	}

	tree, err := model.FromRoot(build(model.RootID))
	if err != nil {
		t.Fatalf("invalid fixture: %v", err)
	}
	return tree
}

// ChildIDs returns the ids of id's children in order, or nil if id is unknown.
func ChildIDs(tree *model.Tree, id string) []string {
	n := tree.FindByID(id)
	if n == nil {
		return nil
	}
	ids := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		ids = append(ids, c.ID)
	}
	return ids
}

// AllIDs lists every id in depth-first order.
func AllIDs(root *model.Node) []string {
	var ids []string
	model.Walk(root, func(n *model.Node, _ int) { ids = append(ids, n.ID) })
	return ids
}

// AssertChildren verifies the ordered children of parentID.
func AssertChildren(t *testing.T, tree *model.Tree, parentID string, want ...string) {
	t.Helper()
	got := ChildIDs(tree, parentID)
	if !slices.Equal(got, want) {
		t.Errorf("children of %s = %v, want %v", parentID, got, want)
	}
}

// AssertValid verifies the structural invariants of a hierarchy.
func AssertValid(t *testing.T, root *model.Node) {
	t.Helper()
	if err := model.Validate(root); err != nil {
		t.Errorf("tree invalid: %v", err)
	}
}

// AssertSameTree verifies two hierarchies have identical shape and ids.
func AssertSameTree(t *testing.T, want, got *model.Node) {
	t.Helper()
	if !model.Equal(want, got) {
		t.Errorf("trees differ:\nwant: %v\ngot:  %v", AllIDs(want), AllIDs(got))
	}
}

// AssertJSONEqual compares two values after JSON round-tripping.
func AssertJSONEqual(t *testing.T, expected, actual any) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}
	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}
	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedJSON, actualJSON)
	}
}

// GoldenFile handles golden file comparisons.
type GoldenFile struct {
	t      *testing.T
	dir    string
	name   string
	update bool
}

// NewGoldenFile creates a golden file helper.
// If GENERATE_GOLDEN env var is set, golden files will be updated.
func NewGoldenFile(t *testing.T, dir, name string) *GoldenFile {
	t.Helper()
	return &GoldenFile{
		t:      t,
		dir:    dir,
		name:   name,
		update: os.Getenv("GENERATE_GOLDEN") != "",
	}
}

// Path returns the full path to the golden file.
func (g *GoldenFile) Path() string {
	return filepath.Join(g.dir, g.name)
}

// Assert compares actual content against the golden file.
func (g *GoldenFile) Assert(actual string) {
	g.t.Helper()

	path := g.Path()
	if g.update {
		if err := os.MkdirAll(g.dir, 0o755); err != nil {
			g.t.Fatalf("failed to create golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(actual), 0o644); err != nil {
			g.t.Fatalf("failed to write golden file: %v", err)
		}
		g.t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			g.t.Fatalf("golden file does not exist: %s\nRun with GENERATE_GOLDEN=1 to create it", path)
		}
		g.t.Fatalf("failed to read golden file: %v", err)
	}

	if string(expected) == actual {
		return
	}
	expectedLines := strings.Split(string(expected), "\n")
	actualLines := strings.Split(actual, "\n")
	for i := 0; i < len(expectedLines) || i < len(actualLines); i++ {
		var expLine, actLine string
		if i < len(expectedLines) {
			expLine = expectedLines[i]
		}
		if i < len(actualLines) {
			actLine = actualLines[i]
		}
		if expLine != actLine {
			g.t.Errorf("golden file mismatch at line %d:\nexpected: %s\nactual:   %s", i+1, expLine, actLine)
			return
		}
	}
	g.t.Errorf("golden file mismatch (length differs)")
}
