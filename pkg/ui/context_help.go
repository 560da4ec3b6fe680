package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/glamour"
)

// helpMarkdown is the help overlay content. Rendered with glamour.
const helpMarkdown = `# nodetree

Grow a tree from **START** and rearrange it by grabbing nodes.

## Navigate

| Key | Action |
|---|---|
| ` + "`j` `k`" + ` | move down / up |
| ` + "`h` `l`" + ` | collapse or go to parent / expand or go to child |
| ` + "`g` `G`" + ` | top / bottom |
| ` + "`ctrl+u` `ctrl+d`" + ` | half page up / down |
| ` + "`enter`" + ` | expand or collapse |
| ` + "`E` `C`" + ` | expand all / collapse all |
| ` + "`/`" + ` | jump to a node by id |

## Edit

| Key | Action |
|---|---|
| ` + "`+` `a`" + ` | add a child to the selected node |
| ` + "`m`" + ` | grab the selected node (START cannot be grabbed) |
| ` + "`enter`" + ` | drop the grabbed node as last child of the selected node |
| ` + "`A` `u`" + ` | drop the grabbed node above the selected node |
| ` + "`esc`" + ` | let go without moving |

While a node is grabbed, ` + "`+`" + ` marks rows that accept it as a child and
` + "`↑`" + ` marks rows it can be dropped above. A node can never be dropped on
itself, on its current parent, or anywhere inside its own subtree.

## Session

| Key | Action |
|---|---|
| ` + "`y`" + ` | copy the selected id to the clipboard |
| ` + "`s`" + ` | save the session |
| ` + "`H`" + ` | browse stored snapshots and restore one |
| ` + "`?`" + ` | toggle this help |
| ` + "`q`" + ` | quit |
`

// HelpContent returns the help markdown, noting how "drop above" behaves.
func HelpContent(positionalAbove bool) string {
	mode := "appends the node to the selected node's parent"
	if positionalAbove {
		mode = "inserts the node directly before the selected node"
	}
	return helpMarkdown + fmt.Sprintf("\nIn this session, drop above %s.\n", mode)
}

// newHelpRenderer builds a glamour renderer for the help overlay. Terminals
// without color get the plain notty style.
func newHelpRenderer(width int) (*glamour.TermRenderer, error) {
	if width < 20 {
		width = 20
	}
	style := glamour.WithAutoStyle()
	if TermProfile <= colorprofile.Ascii {
		style = glamour.WithStandardStyle("notty")
	}
	return glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
}

// RenderHelp renders the help markdown for the given width. Rendering
// failures fall back to the raw markdown.
func RenderHelp(positionalAbove bool, width int) string {
	content := HelpContent(positionalAbove)
	r, err := newHelpRenderer(width)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}
