package model

import (
	"errors"
	"testing"
)

// buildTree returns START with children 1 and 2, and 1.1 under 1.
func buildTree(t *testing.T) *Tree {
	t.Helper()
	tree := NewTree()
	for _, parent := range []string{RootID, RootID, "1"} {
		if _, err := tree.AddChild(parent); err != nil {
			t.Fatalf("AddChild(%q): %v", parent, err)
		}
	}
	return tree
}

func childIDs(n *Node) []string {
	ids := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		ids = append(ids, c.ID)
	}
	return ids
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNewTreeSeed(t *testing.T) {
	tree := NewTree()
	root := tree.Root()
	if root.ID != RootID {
		t.Fatalf("expected root %q, got %q", RootID, root.ID)
	}
	if len(root.Children) != 0 {
		t.Errorf("expected no children, got %v", childIDs(root))
	}
	if tree.Version() != 0 {
		t.Errorf("expected version 0, got %d", tree.Version())
	}
	if tree.FindParentOf(RootID) != nil {
		t.Error("root must not have a parent")
	}
}

func TestAddChildSequence(t *testing.T) {
	tree := NewTree()

	first, _ := tree.AddChild(RootID)
	second, _ := tree.AddChild(RootID)
	third, _ := tree.AddChild("1")

	if first != "1" || second != "2" || third != "1.1" {
		t.Fatalf("expected ids 1, 2, 1.1; got %s, %s, %s", first, second, third)
	}
	if got := childIDs(tree.Root()); !equalIDs(got, []string{"1", "2"}) {
		t.Errorf("START children = %v, want [1 2]", got)
	}
	if got := childIDs(tree.FindByID("1")); !equalIDs(got, []string{"1.1"}) {
		t.Errorf("1 children = %v, want [1.1]", got)
	}
	if tree.Version() != 3 {
		t.Errorf("expected version 3 after three adds, got %d", tree.Version())
	}
}

func TestAddChildUnknownParent(t *testing.T) {
	tree := buildTree(t)
	before := tree.Snapshot()

	id, err := tree.AddChild("9.9")
	if !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
	if id != "" {
		t.Errorf("expected empty id, got %q", id)
	}
	if !Equal(before, tree.Root()) {
		t.Error("tree changed after rejected add")
	}
}

func TestGenerateChildIDSkipsTakenIDs(t *testing.T) {
	tree := buildTree(t)

	// Move 1.1 under 2: the id "1.1" stays taken even though 1 has no children now.
	if err := tree.MoveNode("1.1", "2"); err != nil {
		t.Fatalf("MoveNode: %v", err)
	}
	one := tree.FindByID("1")
	if got := tree.GenerateChildID(one); got != "1.2" {
		t.Errorf("GenerateChildID(1) = %q, want 1.2", got)
	}
	two := tree.FindByID("2")
	if got := tree.GenerateChildID(two); got != "2.1" {
		t.Errorf("GenerateChildID(2) = %q, want 2.1", got)
	}
}

func TestGenerateChildIDIncreasesPerParent(t *testing.T) {
	tree := NewTree()
	for want := 1; want <= 12; want++ {
		id, err := tree.AddChild(RootID)
		if err != nil {
			t.Fatal(err)
		}
		if id != childID(RootID, want) {
			t.Fatalf("add %d produced %q", want, id)
		}
	}
}

func TestFindByID(t *testing.T) {
	tree := buildTree(t)
	for _, id := range []string{RootID, "1", "2", "1.1"} {
		n := tree.FindByID(id)
		if n == nil || n.ID != id {
			t.Errorf("FindByID(%q) = %v", id, n)
		}
	}
	if n := tree.FindByID("3"); n != nil {
		t.Errorf("FindByID(3) = %v, want nil", n)
	}
}

func TestFindParentOf(t *testing.T) {
	tree := buildTree(t)
	tests := []struct {
		child string
		want  string
	}{
		{"1", RootID},
		{"2", RootID},
		{"1.1", "1"},
		{RootID, ""},
		{"missing", ""},
	}
	for _, tt := range tests {
		got := tree.FindParentOf(tt.child)
		switch {
		case tt.want == "" && got != nil:
			t.Errorf("FindParentOf(%q) = %q, want nil", tt.child, got.ID)
		case tt.want != "" && (got == nil || got.ID != tt.want):
			t.Errorf("FindParentOf(%q) = %v, want %q", tt.child, got, tt.want)
		}
	}
}

func TestMoveNodeScenario(t *testing.T) {
	tree := buildTree(t)

	if err := tree.MoveNode("2", "1.1"); err != nil {
		t.Fatalf("MoveNode(2, 1.1): %v", err)
	}
	if got := childIDs(tree.Root()); !equalIDs(got, []string{"1"}) {
		t.Errorf("START children = %v, want [1]", got)
	}
	if got := childIDs(tree.FindByID("1.1")); !equalIDs(got, []string{"2"}) {
		t.Errorf("1.1 children = %v, want [2]", got)
	}
	if p := tree.FindParentOf("2"); p == nil || p.ID != "1.1" {
		t.Errorf("parent of 2 = %v, want 1.1", p)
	}
}

func TestMoveNodeAppendsAsLastChildAndKeepsSubtree(t *testing.T) {
	tree := NewTree()
	for _, parent := range []string{RootID, RootID, RootID, "1", "1", "1.1", "3"} {
		if _, err := tree.AddChild(parent); err != nil {
			t.Fatal(err)
		}
	}
	subtree := Clone(tree.FindByID("1"))

	if err := tree.MoveNode("1", "3"); err != nil {
		t.Fatalf("MoveNode: %v", err)
	}

	if got := childIDs(tree.Root()); !equalIDs(got, []string{"2", "3"}) {
		t.Errorf("START children = %v, want [2 3]", got)
	}
	three := tree.FindByID("3")
	if got := childIDs(three); !equalIDs(got, []string{"3.1", "1"}) {
		t.Errorf("3 children = %v, want [3.1 1]", got)
	}
	if !Equal(subtree, three.Children[len(three.Children)-1]) {
		t.Error("moved subtree changed shape")
	}
}

func TestMoveNodeRejections(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		wantErr error
	}{
		{"self", "1", "1", ErrSelfMove},
		{"root", RootID, "1", ErrRootImmovable},
		{"into own child", "1", "1.1", ErrCycle},
		{"to current parent", "1.1", "1", ErrSameParent},
		{"top level to root", "2", RootID, ErrSameParent},
		{"unknown from", "7", "1", ErrNodeNotFound},
		{"unknown to", "2", "7", ErrNodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := buildTree(t)
			before := tree.Snapshot()
			version := tree.Version()

			err := tree.MoveNode(tt.from, tt.to)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("MoveNode(%q, %q) error = %v, want %v", tt.from, tt.to, err, tt.wantErr)
			}
			if !IsRejection(err) {
				t.Errorf("expected %v to be a rejection", err)
			}
			if !Equal(before, tree.Root()) {
				t.Error("tree changed after rejected move")
			}
			if tree.Version() != version {
				t.Errorf("version bumped from %d to %d on rejection", version, tree.Version())
			}
			if cerr := tree.CanDrop(tt.from, tt.to); !errors.Is(cerr, tt.wantErr) {
				t.Errorf("CanDrop disagrees: %v", cerr)
			}
		})
	}
}

func TestMoveNodeDeepDescendantRejected(t *testing.T) {
	tree := buildTree(t)
	if _, err := tree.AddChild("1.1"); err != nil {
		t.Fatal(err)
	}
	if err := tree.MoveNode("1", "1.1.1"); !errors.Is(err, ErrCycle) {
		t.Errorf("expected ErrCycle, got %v", err)
	}
}

func TestMoveNodeAboveAppendsToSiblingParent(t *testing.T) {
	tree := buildTree(t)
	if _, err := tree.AddChild("1"); err != nil { // 1.2
		t.Fatal(err)
	}

	// Drop 2 "above" 1.1: 2 joins 1's children at the end, not before 1.1.
	if err := tree.MoveNodeAbove("2", "1.1"); err != nil {
		t.Fatalf("MoveNodeAbove: %v", err)
	}
	if got := childIDs(tree.FindByID("1")); !equalIDs(got, []string{"1.1", "1.2", "2"}) {
		t.Errorf("1 children = %v, want [1.1 1.2 2]", got)
	}
	if got := childIDs(tree.Root()); !equalIDs(got, []string{"1"}) {
		t.Errorf("START children = %v, want [1]", got)
	}
}

func TestMoveNodeAboveRejections(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		sibling string
		wantErr error
	}{
		{"sibling is root", "1", RootID, ErrParentNotFound},
		{"sibling unknown", "1", "nope", ErrNodeNotFound},
		{"same parent", "1", "2", ErrSameParent},
		{"into own subtree", "1", "1.1", ErrSelfMove},
		{"root as source", RootID, "1.1", ErrRootImmovable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := buildTree(t)
			before := tree.Snapshot()
			err := tree.MoveNodeAbove(tt.from, tt.sibling)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("MoveNodeAbove(%q, %q) error = %v, want %v", tt.from, tt.sibling, err, tt.wantErr)
			}
			if !Equal(before, tree.Root()) {
				t.Error("tree changed after rejected move")
			}
			if cerr := tree.CanDropAbove(tt.from, tt.sibling); !errors.Is(cerr, tt.wantErr) {
				t.Errorf("CanDropAbove disagrees: %v", cerr)
			}
		})
	}
}

func TestMoveNodeBeforeInsertsAtPosition(t *testing.T) {
	tree := NewTree()
	for range 3 {
		if _, err := tree.AddChild(RootID); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := tree.AddChild("2"); err != nil { // 2.1
		t.Fatal(err)
	}

	if err := tree.MoveNodeBefore("3", "1"); err != nil {
		t.Fatalf("MoveNodeBefore(3, 1): %v", err)
	}
	if got := childIDs(tree.Root()); !equalIDs(got, []string{"3", "1", "2"}) {
		t.Errorf("START children = %v, want [3 1 2]", got)
	}

	if err := tree.MoveNodeBefore("1", "2.1"); err != nil {
		t.Fatalf("MoveNodeBefore(1, 2.1): %v", err)
	}
	if got := childIDs(tree.FindByID("2")); !equalIDs(got, []string{"1", "2.1"}) {
		t.Errorf("2 children = %v, want [1 2.1]", got)
	}
	if got := childIDs(tree.Root()); !equalIDs(got, []string{"3", "2"}) {
		t.Errorf("START children = %v, want [3 2]", got)
	}
}

func TestMoveNodeBeforeRejections(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		sibling string
		wantErr error
	}{
		{"already before", "1", "2", ErrAlreadyPlaced},
		{"self", "2", "2", ErrSelfMove},
		{"into own subtree", "1", "1.1", ErrCycle},
		{"sibling is root", "1", RootID, ErrParentNotFound},
		{"root as source", RootID, "2", ErrRootImmovable},
		{"unknown", "1", "x", ErrNodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := buildTree(t)
			before := tree.Snapshot()
			err := tree.MoveNodeBefore(tt.from, tt.sibling)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("MoveNodeBefore(%q, %q) error = %v, want %v", tt.from, tt.sibling, err, tt.wantErr)
			}
			if !Equal(before, tree.Root()) {
				t.Error("tree changed after rejected move")
			}
			if cerr := tree.CanDropBefore(tt.from, tt.sibling); !errors.Is(cerr, tt.wantErr) {
				t.Errorf("CanDropBefore disagrees: %v", cerr)
			}
		})
	}
}

func TestMoveNodeBeforeSameParentBackwards(t *testing.T) {
	tree := NewTree()
	for range 3 {
		if _, err := tree.AddChild(RootID); err != nil {
			t.Fatal(err)
		}
	}
	if err := tree.MoveNodeBefore("1", "3"); err != nil {
		t.Fatalf("MoveNodeBefore(1, 3): %v", err)
	}
	if got := childIDs(tree.Root()); !equalIDs(got, []string{"2", "1", "3"}) {
		t.Errorf("START children = %v, want [2 1 3]", got)
	}
}

func TestSubscribeFiresOnMutationOnly(t *testing.T) {
	tree := NewTree()
	var seen []uint64
	tree.Subscribe(func(v uint64) { seen = append(seen, v) })

	tree.AddChild(RootID)
	tree.AddChild(RootID)
	tree.MoveNode("2", "2") // rejected
	tree.MoveNode("2", "1")

	if len(seen) != 3 || seen[0] != 1 || seen[2] != 3 {
		t.Errorf("observer versions = %v, want [1 2 3]", seen)
	}
}

func TestDepthAndPath(t *testing.T) {
	tree := buildTree(t)
	if d := tree.Depth("1.1"); d != 2 {
		t.Errorf("Depth(1.1) = %d, want 2", d)
	}
	if d := tree.Depth("nope"); d != -1 {
		t.Errorf("Depth(nope) = %d, want -1", d)
	}

	path := tree.Path("1.1")
	var ids []string
	for _, n := range path {
		ids = append(ids, n.ID)
	}
	if !equalIDs(ids, []string{RootID, "1", "1.1"}) {
		t.Errorf("Path(1.1) = %v", ids)
	}
	if tree.Path("nope") != nil {
		t.Error("expected nil path for unknown id")
	}
	if tree.Len() != 4 {
		t.Errorf("Len() = %d, want 4", tree.Len())
	}
}

func TestReplaceValidates(t *testing.T) {
	tree := buildTree(t)
	version := tree.Version()

	bad := &Node{ID: RootID, Children: []*Node{NewNode("1"), NewNode("1")}}
	if err := tree.Replace(bad); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if tree.Version() != version {
		t.Error("version bumped on rejected replace")
	}

	good := &Node{ID: RootID, Children: []*Node{NewNode("5")}}
	if err := tree.Replace(good); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if tree.FindByID("5") == nil || tree.Version() != version+1 {
		t.Error("replace did not install the new root")
	}
}

func TestLabel(t *testing.T) {
	if Label(RootID) != "Welcome" {
		t.Errorf("Label(START) = %q", Label(RootID))
	}
	if Label("1.2") != "node 1.2" {
		t.Errorf("Label(1.2) = %q", Label("1.2"))
	}
}
