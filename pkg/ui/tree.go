// tree.go - Hierarchical view of the node tree with grab/drop target marking.
package ui

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	json "github.com/goccy/go-json"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/nodetree/pkg/model"
)

// TreeState is the persistent expand/collapse state of the tree view. It is
// saved next to the session snapshot so a reopened session looks the same.
//
// File format (JSON):
//
//	{
//	  "version": 1,
//	  "expanded": {
//	    "1.2": true,   // explicitly expanded
//	    "3": false     // explicitly collapsed
//	  }
//	}
//
// Nodes not in the map use the default: expanded above the configured depth.
type TreeState struct {
	Version  int             `json:"version"`
	Expanded map[string]bool `json:"expanded"`
}

// TreeStateVersion is the current schema version for tree persistence.
const TreeStateVersion = 1

// DefaultExpandDepth is used when no expand depth is configured.
const DefaultExpandDepth = 8

// DefaultTreeState returns an empty TreeState.
func DefaultTreeState() *TreeState {
	return &TreeState{
		Version:  TreeStateVersion,
		Expanded: make(map[string]bool),
	}
}

// TreeStatePath returns where the view state for a session lives, or "" when
// there is no session file.
func TreeStatePath(sessionPath string) string {
	if sessionPath == "" {
		return ""
	}
	ext := filepath.Ext(sessionPath)
	return strings.TrimSuffix(sessionPath, ext) + ".tree-state.json"
}

// TreeNode is a node of the view tree. It wraps a model node and carries the
// view-only state.
type TreeNode struct {
	Node     *model.Node
	Children []*TreeNode
	Expanded bool
	Depth    int
	Parent   *TreeNode
}

// ID returns the id of the wrapped node.
func (n *TreeNode) ID() string {
	return n.Node.ID
}

// DropCheck reports whether the grabbed node may be dropped as the last child
// of target and above target.
type DropCheck func(targetID string) (asChild, above bool)

// TreeModel manages the hierarchical tree view state.
type TreeModel struct {
	root      *TreeNode
	flatList  []*TreeNode // visible nodes in display order
	cursor    int
	theme     Theme
	nodeMap   map[string]*TreeNode
	overrides map[string]bool // explicit expand state by node id

	expandDepth    int
	width          int
	height         int
	viewportOffset int

	built     bool
	statePath string

	grabbed   string
	dropCheck DropCheck
}

// NewTreeModel creates an empty tree model.
func NewTreeModel(theme Theme) TreeModel {
	return TreeModel{
		theme:       theme,
		nodeMap:     make(map[string]*TreeNode),
		overrides:   make(map[string]bool),
		expandDepth: DefaultExpandDepth,
	}
}

// SetSize updates the available dimensions for the tree view.
func (t *TreeModel) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.ensureCursorVisible()
}

// SetExpandDepth sets how many levels start expanded.
func (t *TreeModel) SetExpandDepth(depth int) {
	if depth <= 0 {
		depth = DefaultExpandDepth
	}
	t.expandDepth = depth
}

// SetStatePath enables expand state persistence and loads any saved state.
func (t *TreeModel) SetStatePath(path string) {
	t.statePath = path
	t.loadState()
}

// saveState persists the explicit expand/collapse choices to disk. Errors are
// logged but do not interrupt the user.
func (t *TreeModel) saveState() {
	if t.statePath == "" {
		return
	}

	state := DefaultTreeState()
	for id, expanded := range t.overrides {
		if _, ok := t.nodeMap[id]; ok {
			state.Expanded[id] = expanded
		}
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		log.Printf("warning: failed to marshal tree state: %v", err)
		return
	}

	dir := filepath.Dir(t.statePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("warning: failed to create state directory %s: %v", dir, err)
		return
	}
	if err := os.WriteFile(t.statePath, data, 0o644); err != nil {
		log.Printf("warning: failed to write tree state to %s: %v", t.statePath, err)
	}
}

// loadState restores expand/collapse choices from disk. A missing or
// corrupted file leaves the defaults in place.
func (t *TreeModel) loadState() {
	if t.statePath == "" {
		return
	}
	data, err := os.ReadFile(t.statePath)
	if err != nil {
		return
	}

	var state TreeState
	if err := json.Unmarshal(data, &state); err != nil {
		log.Printf("warning: invalid tree state file, using defaults: %v", err)
		return
	}
	for id, expanded := range state.Expanded {
		t.overrides[id] = expanded
	}
	if t.built {
		t.applyOverrides()
		t.rebuildFlatList()
	}
}

// applyOverrides sets expand state on nodes from the explicit choices.
// Stale ids are ignored.
func (t *TreeModel) applyOverrides() {
	for id, expanded := range t.overrides {
		if node, ok := t.nodeMap[id]; ok {
			node.Expanded = expanded
		}
	}
}

// Build rebuilds the view from the model tree. Expand state and the cursor
// are kept by node id.
func (t *TreeModel) Build(root *model.Node) {
	selected := t.SelectedID()

	t.root = nil
	t.flatList = nil
	t.nodeMap = make(map[string]*TreeNode)

	if root != nil {
		t.root = t.buildNode(root, 0, nil)
	}
	t.rebuildFlatList()
	t.built = true

	if selected == "" || !t.SelectByID(selected) {
		t.cursor = 0
		t.ensureCursorVisible()
	}
}

func (t *TreeModel) buildNode(n *model.Node, depth int, parent *TreeNode) *TreeNode {
	node := &TreeNode{
		Node:     n,
		Depth:    depth,
		Parent:   parent,
		Expanded: depth < t.expandDepth,
	}
	if expanded, ok := t.overrides[n.ID]; ok {
		node.Expanded = expanded
	}
	t.nodeMap[n.ID] = node

	for _, child := range n.Children {
		node.Children = append(node.Children, t.buildNode(child, depth+1, node))
	}
	return node
}

// SetGrab marks id as the grabbed node. Rows are then rendered as valid or
// invalid drop targets according to check. An empty id clears the grab.
func (t *TreeModel) SetGrab(id string, check DropCheck) {
	t.grabbed = id
	t.dropCheck = check
	if id == "" {
		t.dropCheck = nil
	}
}

// Grabbed returns the id of the grabbed node, or "".
func (t *TreeModel) Grabbed() string {
	return t.grabbed
}

// inGrabbedSubtree reports whether node is the grabbed node or below it.
func (t *TreeModel) inGrabbedSubtree(node *TreeNode) bool {
	if t.grabbed == "" {
		return false
	}
	for n := node; n != nil; n = n.Parent {
		if n.ID() == t.grabbed {
			return true
		}
	}
	return false
}

// View renders the visible part of the tree.
func (t *TreeModel) View() string {
	if !t.built || len(t.flatList) == 0 {
		return t.theme.MutedText.Render("Nothing to display.")
	}

	var sb strings.Builder
	start, end := t.visibleRange()
	for i := start; i < end; i++ {
		node := t.flatList[i]
		line := t.renderNode(node)
		if i == t.cursor {
			line = t.theme.Selected.Render(line)
		}
		sb.WriteString(line)
		if i < end-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// renderNode renders a single row with tree characters and drop markers.
func (t *TreeModel) renderNode(node *TreeNode) string {
	var sb strings.Builder

	prefix := t.buildTreePrefix(node)
	sb.WriteString(prefix)
	sb.WriteString(t.theme.Indicator.Render(t.getExpandIndicator(node)))
	sb.WriteString(" ")

	label := model.Label(node.ID())
	if !node.Expanded && len(node.Children) > 0 {
		label += " (" + strconv.Itoa(countDescendants(node)) + ")"
	}

	marker := ""
	style := t.theme.Base
	switch {
	case node.IsRoot() && t.grabbed == "":
		style = t.theme.RootLabel
	case t.inGrabbedSubtree(node):
		style = t.theme.GrabbedText
		if node.ID() == t.grabbed {
			marker = t.theme.GrabbedText.Render(" [grabbed]")
		}
	case t.grabbed != "" && t.dropCheck != nil:
		asChild, above := t.dropCheck(node.ID())
		if asChild {
			marker += t.theme.ValidTarget.Render(" +")
		}
		if above {
			marker += t.theme.ValidTarget.Render(" ↑")
		}
		if !asChild && !above {
			style = t.theme.InvalidTarget
		}
	}

	maxLabel := t.width - lipgloss.Width(prefix) - lipgloss.Width(marker) - 4
	if maxLabel < 8 {
		maxLabel = 8
	}
	sb.WriteString(style.Render(runewidth.Truncate(label, maxLabel, "…")))
	sb.WriteString(marker)

	return sb.String()
}

// IsRoot reports whether node is the view root.
func (n *TreeNode) IsRoot() bool {
	return n.Parent == nil
}

func countDescendants(node *TreeNode) int {
	count := 0
	for _, child := range node.Children {
		count += 1 + countDescendants(child)
	}
	return count
}

// buildTreePrefix builds the indentation and branch characters for a node.
func (t *TreeModel) buildTreePrefix(node *TreeNode) string {
	if node.Depth == 0 {
		return ""
	}

	var parts []string
	ancestors := t.getAncestors(node)
	// ancestors[0] is the root, which draws no column.
	for i := 1; i < len(ancestors)-1; i++ {
		if t.hasSiblingsBelow(ancestors[i]) {
			parts = append(parts, "│   ")
		} else {
			parts = append(parts, "    ")
		}
	}
	if t.isLastChild(node) {
		parts = append(parts, "└── ")
	} else {
		parts = append(parts, "├── ")
	}

	return t.theme.TreeLines.Render(strings.Join(parts, ""))
}

// getAncestors returns the chain from the root to node, node included.
func (t *TreeModel) getAncestors(node *TreeNode) []*TreeNode {
	var ancestors []*TreeNode
	for current := node.Parent; current != nil; current = current.Parent {
		ancestors = append([]*TreeNode{current}, ancestors...)
	}
	return append(ancestors, node)
}

func (t *TreeModel) hasSiblingsBelow(node *TreeNode) bool {
	if node.Parent == nil {
		return false
	}
	for i, sibling := range node.Parent.Children {
		if sibling == node {
			return i < len(node.Parent.Children)-1
		}
	}
	return false
}

func (t *TreeModel) isLastChild(node *TreeNode) bool {
	if node.Parent == nil {
		return true
	}
	siblings := node.Parent.Children
	return len(siblings) > 0 && siblings[len(siblings)-1] == node
}

func (t *TreeModel) getExpandIndicator(node *TreeNode) string {
	if len(node.Children) == 0 {
		return "•"
	}
	if node.Expanded {
		return "▾"
	}
	return "▸"
}

// SelectedNode returns the node under the cursor, or nil.
func (t *TreeModel) SelectedNode() *TreeNode {
	if t.cursor >= 0 && t.cursor < len(t.flatList) {
		return t.flatList[t.cursor]
	}
	return nil
}

// SelectedID returns the id of the node under the cursor, or "".
func (t *TreeModel) SelectedID() string {
	if node := t.SelectedNode(); node != nil {
		return node.ID()
	}
	return ""
}

// Cursor returns the cursor index in the visible list.
func (t *TreeModel) Cursor() int {
	return t.cursor
}

// MoveDown moves the cursor down one row.
func (t *TreeModel) MoveDown() {
	if t.cursor < len(t.flatList)-1 {
		t.cursor++
	}
	t.ensureCursorVisible()
}

// MoveUp moves the cursor up one row.
func (t *TreeModel) MoveUp() {
	if t.cursor > 0 {
		t.cursor--
	}
	t.ensureCursorVisible()
}

// ToggleExpand expands or collapses the selected node.
func (t *TreeModel) ToggleExpand() {
	node := t.SelectedNode()
	if node != nil && len(node.Children) > 0 {
		t.setExpanded(node, !node.Expanded)
		t.rebuildFlatList()
		t.saveState()
	}
}

// ExpandAll expands every node.
func (t *TreeModel) ExpandAll() {
	t.setExpandedRecursive(t.root, true)
	t.rebuildFlatList()
	t.saveState()
}

// CollapseAll collapses every node below the root.
func (t *TreeModel) CollapseAll() {
	t.setExpandedRecursive(t.root, false)
	if t.root != nil {
		t.setExpanded(t.root, true)
	}
	t.cursor = 0
	t.rebuildFlatList()
	t.saveState()
}

// JumpToTop moves the cursor to the first row.
func (t *TreeModel) JumpToTop() {
	t.cursor = 0
	t.ensureCursorVisible()
}

// JumpToBottom moves the cursor to the last row.
func (t *TreeModel) JumpToBottom() {
	if len(t.flatList) > 0 {
		t.cursor = len(t.flatList) - 1
	}
	t.ensureCursorVisible()
}

// JumpToParent moves the cursor to the parent of the selected node.
func (t *TreeModel) JumpToParent() {
	node := t.SelectedNode()
	if node == nil || node.Parent == nil {
		return
	}
	t.SelectByID(node.Parent.ID())
}

// ExpandOrMoveToChild handles the → / l key:
//   - collapsed node with children: expand it
//   - expanded node: move to its first child
//   - leaf: nothing
func (t *TreeModel) ExpandOrMoveToChild() {
	node := t.SelectedNode()
	if node == nil || len(node.Children) == 0 {
		return
	}
	if !node.Expanded {
		t.setExpanded(node, true)
		t.rebuildFlatList()
		t.saveState()
		return
	}
	t.SelectByID(node.Children[0].ID())
}

// CollapseOrJumpToParent handles the ← / h key:
//   - expanded node with children: collapse it
//   - otherwise: jump to the parent
func (t *TreeModel) CollapseOrJumpToParent() {
	node := t.SelectedNode()
	if node == nil {
		return
	}
	if len(node.Children) > 0 && node.Expanded {
		t.setExpanded(node, false)
		t.rebuildFlatList()
		t.saveState()
		return
	}
	t.JumpToParent()
}

// PageDown moves the cursor down by half a viewport.
func (t *TreeModel) PageDown() {
	t.cursor += t.pageSize()
	if t.cursor >= len(t.flatList) {
		t.cursor = len(t.flatList) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
	t.ensureCursorVisible()
}

// PageUp moves the cursor up by half a viewport.
func (t *TreeModel) PageUp() {
	t.cursor -= t.pageSize()
	if t.cursor < 0 {
		t.cursor = 0
	}
	t.ensureCursorVisible()
}

func (t *TreeModel) pageSize() int {
	size := t.height / 2
	if size < 1 {
		size = 5
	}
	return size
}

// Reveal expands every ancestor of id and moves the cursor onto it.
func (t *TreeModel) Reveal(id string) bool {
	node, ok := t.nodeMap[id]
	if !ok {
		return false
	}
	changed := false
	for p := node.Parent; p != nil; p = p.Parent {
		if !p.Expanded {
			t.setExpanded(p, true)
			changed = true
		}
	}
	if changed {
		t.rebuildFlatList()
		t.saveState()
	}
	return t.SelectByID(id)
}

// IsExpanded reports whether the node with id is expanded in the view.
func (t *TreeModel) IsExpanded(id string) bool {
	node, ok := t.nodeMap[id]
	return ok && node.Expanded
}

// visibleRange returns the [start, end) indices of rows in the viewport.
func (t *TreeModel) visibleRange() (start, end int) {
	if len(t.flatList) == 0 {
		return 0, 0
	}

	visibleCount := t.height
	if visibleCount <= 0 {
		visibleCount = 20
	}

	start = t.viewportOffset
	end = start + visibleCount
	if end > len(t.flatList) {
		end = len(t.flatList)
		start = end - visibleCount
	}
	if start < 0 {
		start = 0
	}
	return start, end
}

// ensureCursorVisible scrolls the viewport so the cursor row is shown.
func (t *TreeModel) ensureCursorVisible() {
	visibleCount := t.height
	if visibleCount <= 0 {
		visibleCount = 20
	}
	if t.cursor < t.viewportOffset {
		t.viewportOffset = t.cursor
	}
	if t.cursor >= t.viewportOffset+visibleCount {
		t.viewportOffset = t.cursor - visibleCount + 1
	}
	if t.viewportOffset < 0 {
		t.viewportOffset = 0
	}
}

// SelectByID moves the cursor to the visible node with id.
// Returns false if the node is not visible.
func (t *TreeModel) SelectByID(id string) bool {
	for i, node := range t.flatList {
		if node.ID() == id {
			t.cursor = i
			t.ensureCursorVisible()
			return true
		}
	}
	return false
}

func (t *TreeModel) setExpanded(node *TreeNode, expanded bool) {
	node.Expanded = expanded
	t.overrides[node.ID()] = expanded
}

func (t *TreeModel) setExpandedRecursive(node *TreeNode, expanded bool) {
	if node == nil {
		return
	}
	if len(node.Children) > 0 {
		t.setExpanded(node, expanded)
	}
	for _, child := range node.Children {
		t.setExpandedRecursive(child, expanded)
	}
}

// rebuildFlatList rebuilds the flattened list of visible nodes.
func (t *TreeModel) rebuildFlatList() {
	t.flatList = t.flatList[:0]
	if t.root != nil {
		t.appendVisible(t.root)
	}
	if t.cursor >= len(t.flatList) {
		t.cursor = len(t.flatList) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
	t.ensureCursorVisible()
}

func (t *TreeModel) appendVisible(node *TreeNode) {
	t.flatList = append(t.flatList, node)
	if node.Expanded {
		for _, child := range node.Children {
			t.appendVisible(child)
		}
	}
}

// IsBuilt returns whether the tree has been built.
func (t *TreeModel) IsBuilt() bool {
	return t.built
}

// NodeCount returns the number of visible rows.
func (t *TreeModel) NodeCount() int {
	return len(t.flatList)
}

// VisibleIDs returns the ids of the visible rows in display order.
func (t *TreeModel) VisibleIDs() []string {
	ids := make([]string, len(t.flatList))
	for i, node := range t.flatList {
		ids[i] = node.ID()
	}
	return ids
}
