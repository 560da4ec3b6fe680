package model

import (
	"fmt"
	"slices"
)

// Tree owns the editor's single mutable hierarchy.
//
// Every mutation runs to completion and then bumps Version, so observers can
// tell that the tree was republished. Rejected operations return an error
// and leave both the nodes and Version untouched. Tree is not safe for
// concurrent use; the editor serializes all calls through its update loop.
type Tree struct {
	root      *Node
	version   uint64
	observers []func(version uint64)
}

// NewTree returns a tree seeded with a lone START node.
func NewTree() *Tree {
	return &Tree{root: NewNode(RootID)}
}

// FromRoot wraps an existing hierarchy after validating it.
func FromRoot(root *Node) (*Tree, error) {
	if err := Validate(root); err != nil {
		return nil, err
	}
	return &Tree{root: root}, nil
}

// Root returns the START node.
func (t *Tree) Root() *Node {
	return t.root
}

// Version counts successful mutations since the tree was created.
func (t *Tree) Version() uint64 {
	return t.version
}

// Subscribe registers fn to run after every successful mutation.
func (t *Tree) Subscribe(fn func(version uint64)) {
	t.observers = append(t.observers, fn)
}

func (t *Tree) publish() {
	t.version++
	for _, fn := range t.observers {
		fn(t.version)
	}
}

// Replace swaps in a new hierarchy, for example one loaded from disk.
func (t *Tree) Replace(root *Node) error {
	if err := Validate(root); err != nil {
		return err
	}
	t.root = root
	t.publish()
	return nil
}

// Snapshot returns a deep copy that is safe to hand to another goroutine.
func (t *Tree) Snapshot() *Node {
	return Clone(t.root)
}

// FindByID looks up a node anywhere in the tree.
func (t *Tree) FindByID(id string) *Node {
	return FindByID(t.root, id)
}

// FindParentOf returns the parent of childID, or nil for the root or an
// unknown id.
func (t *Tree) FindParentOf(childID string) *Node {
	return FindParentOf(t.root, childID)
}

// Len returns the number of nodes, root included.
func (t *Tree) Len() int {
	count := 0
	Walk(t.root, func(*Node, int) { count++ })
	return count
}

// Depth returns the distance from the root to id, or -1 if id is unknown.
func (t *Tree) Depth(id string) int {
	depth := -1
	Walk(t.root, func(n *Node, d int) {
		if depth < 0 && n.ID == id {
			depth = d
		}
	})
	return depth
}

// Path returns the chain of nodes from the root down to id, inclusive.
// It is nil when id is unknown.
func (t *Tree) Path(id string) []*Node {
	var path []*Node
	var search func(n *Node) bool
	search = func(n *Node) bool {
		path = append(path, n)
		if n.ID == id {
			return true
		}
		for _, child := range n.Children {
			if search(child) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}
	if t.root == nil || !search(t.root) {
		return nil
	}
	return path
}

// GenerateChildID returns the next unused id for a new child of parent.
// Candidates "<parent>.1", "<parent>.2", … (bare numbers under START) are
// probed against the whole tree, so the result is globally unique even
// when the local numbering has gaps or collides with moved nodes.
func (t *Tree) GenerateChildID(parent *Node) string {
	for n := 1; ; n++ {
		candidate := childID(parent.ID, n)
		if FindByID(t.root, candidate) == nil {
			return candidate
		}
	}
}

// AddChild appends a fresh childless node under parentID and returns its id.
func (t *Tree) AddChild(parentID string) (string, error) {
	parent := FindByID(t.root, parentID)
	if parent == nil {
		return "", fmt.Errorf("%w: %q", ErrNodeNotFound, parentID)
	}
	id := t.GenerateChildID(parent)
	parent.Children = append(parent.Children, NewNode(id))
	t.publish()
	return id, nil
}

// CanDrop reports whether MoveNode(fromID, toID) would succeed.
func (t *Tree) CanDrop(fromID, toID string) error {
	_, _, _, err := t.resolveMove(fromID, toID)
	return err
}

// MoveNode relocates the subtree rooted at fromID so that it becomes the
// last child of toID.
func (t *Tree) MoveNode(fromID, toID string) error {
	from, parent, to, err := t.resolveMove(fromID, toID)
	if err != nil {
		return err
	}
	t.relocate(from, parent, to)
	return nil
}

// CanDropAbove reports whether MoveNodeAbove(fromID, siblingID) would succeed.
func (t *Tree) CanDropAbove(fromID, siblingID string) error {
	_, _, _, err := t.resolveMoveAbove(fromID, siblingID)
	return err
}

// MoveNodeAbove moves fromID under the parent of siblingID. The node is
// appended as that parent's last child; it is not positioned next to the
// sibling. MoveNodeBefore does positional insertion.
func (t *Tree) MoveNodeAbove(fromID, siblingID string) error {
	from, parent, to, err := t.resolveMoveAbove(fromID, siblingID)
	if err != nil {
		return err
	}
	t.relocate(from, parent, to)
	return nil
}

// CanDropBefore reports whether MoveNodeBefore(fromID, siblingID) would succeed.
func (t *Tree) CanDropBefore(fromID, siblingID string) error {
	_, _, _, err := t.resolveMoveBefore(fromID, siblingID)
	return err
}

// MoveNodeBefore moves fromID so that it sits immediately before siblingID
// in the sibling's parent. Reordering within the same parent is allowed.
func (t *Tree) MoveNodeBefore(fromID, siblingID string) error {
	from, parent, sibling, err := t.resolveMoveBefore(fromID, siblingID)
	if err != nil {
		return err
	}
	dest := FindParentOf(t.root, sibling.ID)
	parent.Children = removeChild(parent.Children, from.ID)
	at := dest.indexOf(sibling.ID)
	dest.Children = slices.Insert(dest.Children, at, from)
	t.publish()
	return nil
}

// resolveMove looks up the moved node, its parent and the destination.
func (t *Tree) resolveMove(fromID, toID string) (from, parent, to *Node, err error) {
	from, parent, err = t.resolveSource(fromID)
	if err != nil {
		return nil, nil, nil, err
	}
	to = FindByID(t.root, toID)
	if to == nil {
		return nil, nil, nil, fmt.Errorf("%w: %q", ErrNodeNotFound, toID)
	}
	if err := checkDestination(from, parent, to); err != nil {
		return nil, nil, nil, err
	}
	return from, parent, to, nil
}

func (t *Tree) resolveMoveAbove(fromID, siblingID string) (from, parent, to *Node, err error) {
	from, parent, err = t.resolveSource(fromID)
	if err != nil {
		return nil, nil, nil, err
	}
	to, err = t.resolveSiblingParent(siblingID)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := checkDestination(from, parent, to); err != nil {
		return nil, nil, nil, err
	}
	return from, parent, to, nil
}

func (t *Tree) resolveMoveBefore(fromID, siblingID string) (from, parent, sibling *Node, err error) {
	from, parent, err = t.resolveSource(fromID)
	if err != nil {
		return nil, nil, nil, err
	}
	dest, err := t.resolveSiblingParent(siblingID)
	if err != nil {
		return nil, nil, nil, err
	}
	sibling = FindByID(t.root, siblingID)
	if from.ID == sibling.ID {
		return nil, nil, nil, fmt.Errorf("%w: %q", ErrSelfMove, fromID)
	}
	if FindByID(from, sibling.ID) != nil {
		return nil, nil, nil, fmt.Errorf("%w: %q is inside %q", ErrCycle, siblingID, fromID)
	}
	if dest == parent && parent.indexOf(from.ID) == parent.indexOf(sibling.ID)-1 {
		return nil, nil, nil, fmt.Errorf("%w: %q", ErrAlreadyPlaced, fromID)
	}
	return from, parent, sibling, nil
}

// resolveSource finds a movable node and its current parent.
func (t *Tree) resolveSource(fromID string) (from, parent *Node, err error) {
	from = FindByID(t.root, fromID)
	if from == nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrNodeNotFound, fromID)
	}
	parent = FindParentOf(t.root, fromID)
	if parent == nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrRootImmovable, fromID)
	}
	return from, parent, nil
}

// resolveSiblingParent returns the parent of siblingID.
func (t *Tree) resolveSiblingParent(siblingID string) (*Node, error) {
	dest := FindParentOf(t.root, siblingID)
	if dest != nil {
		return dest, nil
	}
	if FindByID(t.root, siblingID) == nil {
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, siblingID)
	}
	return nil, fmt.Errorf("%w: %q", ErrParentNotFound, siblingID)
}

// checkDestination applies the move preconditions in order: already there,
// onto itself, into its own subtree.
func checkDestination(from, parent, to *Node) error {
	if parent.ID == to.ID {
		return fmt.Errorf("%w: %q under %q", ErrSameParent, from.ID, to.ID)
	}
	if from.ID == to.ID {
		return fmt.Errorf("%w: %q", ErrSelfMove, from.ID)
	}
	if FindByID(from, to.ID) != nil {
		return fmt.Errorf("%w: %q is inside %q", ErrCycle, to.ID, from.ID)
	}
	return nil
}

// relocate appends from to the destination, then drops it from the old
// parent by id.
func (t *Tree) relocate(from, parent, to *Node) {
	to.Children = append(to.Children, from)
	parent.Children = removeChild(parent.Children, from.ID)
	t.publish()
}

func removeChild(children []*Node, id string) []*Node {
	return slices.DeleteFunc(children, func(n *Node) bool { return n.ID == id })
}
