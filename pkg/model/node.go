// Package model holds the node tree that the editor manipulates.
//
// A tree is a single START root with ordered, exclusively owned children.
// Ids are dot-delimited paths ("1", "1.2", "1.2.3") assigned at creation
// time and never renamed, so after a move an id no longer describes the
// node's position.
package model

import (
	"fmt"
	"strconv"
)

// RootID is the id of the distinguished root node.
const RootID = "START"

// Node is one point in the hierarchy.
type Node struct {
	ID       string  `json:"id"`
	Children []*Node `json:"children"`
}

// NewNode returns a childless node with the given id.
func NewNode(id string) *Node {
	return &Node{ID: id, Children: []*Node{}}
}

// IsRoot reports whether n is the START node.
func (n *Node) IsRoot() bool {
	return n != nil && n.ID == RootID
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool {
	return n == nil || len(n.Children) == 0
}

// indexOf returns the position of the child with the given id, or -1.
func (n *Node) indexOf(id string) int {
	for i, child := range n.Children {
		if child.ID == id {
			return i
		}
	}
	return -1
}

// FindByID searches depth-first from node (node first, then children in
// order) and returns the first node whose id matches, or nil.
func FindByID(node *Node, id string) *Node {
	if node == nil {
		return nil
	}
	if node.ID == id {
		return node
	}
	for _, child := range node.Children {
		if found := FindByID(child, id); found != nil {
			return found
		}
	}
	return nil
}

// FindParentOf returns the node whose immediate children contain childID.
// The root has no parent, so FindParentOf(root, RootID) is nil.
func FindParentOf(node *Node, childID string) *Node {
	if node == nil {
		return nil
	}
	if node.indexOf(childID) >= 0 {
		return node
	}
	for _, child := range node.Children {
		if found := FindParentOf(child, childID); found != nil {
			return found
		}
	}
	return nil
}

// Walk visits node and its descendants in pre-order. depth is 0 for node.
func Walk(node *Node, fn func(n *Node, depth int)) {
	walk(node, 0, fn)
}

func walk(node *Node, depth int, fn func(n *Node, depth int)) {
	if node == nil {
		return
	}
	fn(node, depth)
	for _, child := range node.Children {
		walk(child, depth+1, fn)
	}
}

// Clone returns a deep copy of the subtree rooted at node.
func Clone(node *Node) *Node {
	if node == nil {
		return nil
	}
	clone := &Node{ID: node.ID, Children: make([]*Node, 0, len(node.Children))}
	for _, child := range node.Children {
		clone.Children = append(clone.Children, Clone(child))
	}
	return clone
}

// Equal reports whether two subtrees have the same ids in the same shape.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.ID != b.ID || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// Label returns the display label used by the editor.
func Label(id string) string {
	if id == RootID {
		return "Welcome"
	}
	return "node " + id
}

// childID formats the n-th candidate id under parentID.
func childID(parentID string, n int) string {
	if parentID == RootID {
		return strconv.Itoa(n)
	}
	return parentID + "." + strconv.Itoa(n)
}

// Validate checks the tree invariants: a START root, no other START, no
// empty ids, no duplicate ids and no node reachable twice.
func Validate(root *Node) error {
	if root == nil {
		return ErrNoRoot
	}
	if root.ID != RootID {
		return fmt.Errorf("%w: got %q", ErrBadRoot, root.ID)
	}

	seen := make(map[string]bool)
	visited := make(map[*Node]bool)

	var check func(n *Node) error
	check = func(n *Node) error {
		if visited[n] {
			return fmt.Errorf("%w: %q is reachable twice", ErrCycle, n.ID)
		}
		visited[n] = true

		if n.ID == "" {
			return fmt.Errorf("%w: empty id", ErrInvalidID)
		}
		if n != root && n.ID == RootID {
			return fmt.Errorf("%w: %s below the root", ErrInvalidID, RootID)
		}
		if seen[n.ID] {
			return fmt.Errorf("%w: %q", ErrDuplicateID, n.ID)
		}
		seen[n.ID] = true

		for i, child := range n.Children {
			if child == nil {
				return fmt.Errorf("%w: nil child %d of %q", ErrInvalidID, i, n.ID)
			}
			if err := check(child); err != nil {
				return err
			}
		}
		return nil
	}
	return check(root)
}
