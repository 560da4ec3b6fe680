package export

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vanderheijden86/nodetree/pkg/model"
)

// GenerateMarkdown renders the tree as a nested outline followed by a
// Mermaid diagram of the same hierarchy. A zero generated time omits the
// timestamp line.
func GenerateMarkdown(root *model.Node, title string, generated time.Time) string {
	var sb strings.Builder

	if strings.TrimSpace(title) == "" {
		title = "Node Tree"
	}
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	if !generated.IsZero() {
		sb.WriteString(fmt.Sprintf("Generated: %s\n\n", generated.Format(time.RFC1123)))
	}

	count := 0
	model.Walk(root, func(*model.Node, int) { count++ })
	sb.WriteString(fmt.Sprintf("- **Nodes**: %d\n\n", count))

	sb.WriteString("## Outline\n\n")
	model.Walk(root, func(n *model.Node, depth int) {
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(fmt.Sprintf("- %s `%s`\n", model.Label(n.ID), n.ID))
	})
	sb.WriteString("\n")

	sb.WriteString("## Diagram\n\n")
	sb.WriteString("```mermaid\ngraph TD\n")
	model.Walk(root, func(n *model.Node, _ int) {
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", mermaidID(n.ID), model.Label(n.ID)))
	})
	model.Walk(root, func(n *model.Node, _ int) {
		for _, child := range n.Children {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", mermaidID(n.ID), mermaidID(child.ID)))
		}
	})
	sb.WriteString("```\n")

	return sb.String()
}

// mermaidID maps a dotted id to a Mermaid-safe identifier.
func mermaidID(id string) string {
	if id == model.RootID {
		return "START"
	}
	return "n" + strings.ReplaceAll(id, ".", "_")
}

// SaveMarkdownToFile writes the generated markdown to a file.
func SaveMarkdownToFile(root *model.Node, title, filename string, now time.Time) error {
	content := GenerateMarkdown(root, title, now)
	return os.WriteFile(filename, []byte(content), 0o644)
}
