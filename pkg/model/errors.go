package model

import "errors"

// Lookup errors
var (
	// ErrNodeNotFound indicates that an id does not resolve to a node in the tree.
	ErrNodeNotFound = errors.New("node not found")

	// ErrParentNotFound indicates that a node has no parent (it is the root).
	ErrParentNotFound = errors.New("node has no parent")
)

// Move rejections. A rejected move never changes the tree.
var (
	// ErrRootImmovable indicates an attempt to move the START node.
	ErrRootImmovable = errors.New("root node cannot be moved")

	// ErrSameParent indicates that the destination is already the node's parent.
	ErrSameParent = errors.New("node is already a child of the destination")

	// ErrSelfMove indicates that the destination is the moved node itself.
	ErrSelfMove = errors.New("node cannot be moved onto itself")

	// ErrCycle indicates that the destination lies inside the moved subtree.
	ErrCycle = errors.New("destination is a descendant of the moved node")

	// ErrAlreadyPlaced indicates that a positional insert would not change child order.
	ErrAlreadyPlaced = errors.New("node is already directly before the sibling")
)

// Structural errors reported by Validate.
var (
	// ErrNoRoot indicates a nil root.
	ErrNoRoot = errors.New("tree has no root")

	// ErrBadRoot indicates that the root is not the START node.
	ErrBadRoot = errors.New("root id must be " + RootID)

	// ErrDuplicateID indicates that two nodes share an id.
	ErrDuplicateID = errors.New("duplicate node id")

	// ErrInvalidID indicates an empty id, a nil child, or a misplaced START.
	ErrInvalidID = errors.New("invalid node id")
)

// IsRejection reports whether err is one of the move/add rejections the
// editor treats as a quiet no-op.
func IsRejection(err error) bool {
	return errors.Is(err, ErrNodeNotFound) ||
		errors.Is(err, ErrParentNotFound) ||
		errors.Is(err, ErrRootImmovable) ||
		errors.Is(err, ErrSameParent) ||
		errors.Is(err, ErrSelfMove) ||
		errors.Is(err, ErrCycle) ||
		errors.Is(err, ErrAlreadyPlaced)
}
