package export

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/nodetree/pkg/analysis"
	"github.com/vanderheijden86/nodetree/pkg/model"
)

// GraphSnapshotOptions controls image export.
type GraphSnapshotOptions struct {
	Path   string // Output path; format inferred from extension when Format empty
	Format string // "svg" or "png" (case-insensitive)
	Title  string
	Preset string // "compact" (default) or "roomy"
	Root   *model.Node
	Stats  *analysis.Stats // computed when nil
}

// SaveGraphSnapshot renders the tree left to right as an SVG or PNG image.
func SaveGraphSnapshot(opts GraphSnapshotOptions) error {
	if opts.Root == nil {
		return fmt.Errorf("no tree to export")
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		format = strings.ToLower(strings.TrimPrefix(filepath.Ext(opts.Path), "."))
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("unsupported image format %q (want svg or png)", format)
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	if opts.Stats == nil {
		s := analysis.NewAnalyzer(opts.Root).Stats(analysis.DefaultStatsConfig())
		opts.Stats = &s
	}
	layout := buildLayout(opts)

	if format == "png" {
		return renderPNG(opts.Path, layout)
	}
	f, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	if err := renderSVGToWriter(f, layout); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// --- layout computation ----------------------------------------------------

type layoutNode struct {
	ID     string
	Label  string
	Depth  int
	Leaf   bool
	X, Y   float64
	NodeW  float64
	NodeH  float64
	Parent string
}

type layoutResult struct {
	Nodes   []layoutNode
	Width   int
	Height  int
	Header  float64
	Summary summaryInfo
}

type summaryInfo struct {
	Title     string
	NodeCount int
	EdgeCount int
	MaxDepth  int
	TopHub    string
}

// buildLayout places leaves on consecutive rows in pre-order and centres
// each parent on the span of its children.
func buildLayout(opts GraphSnapshotOptions) layoutResult {
	const (
		nodeWCompact  = 120.0
		nodeHCompact  = 36.0
		nodeWRoomy    = 150.0
		nodeHRoomy    = 48.0
		colGapCompact = 48.0
		rowGapCompact = 14.0
		colGapRoomy   = 72.0
		rowGapRoomy   = 24.0
		padding       = 36.0
		headerHeight  = 96.0
	)

	nodeW, nodeH := nodeWCompact, nodeHCompact
	colGap, rowGap := colGapCompact, rowGapCompact
	if strings.EqualFold(opts.Preset, "roomy") {
		nodeW, nodeH = nodeWRoomy, nodeHRoomy
		colGap, rowGap = colGapRoomy, rowGapRoomy
	}

	var nodes []layoutNode
	nextRow := 0.0
	maxDepth := 0

	var place func(n *model.Node, parent string, depth int) float64
	place = func(n *model.Node, parent string, depth int) float64 {
		idx := len(nodes)
		nodes = append(nodes, layoutNode{
			ID:     n.ID,
			Label:  truncate(model.Label(n.ID), 18),
			Depth:  depth,
			Leaf:   len(n.Children) == 0,
			NodeW:  nodeW,
			NodeH:  nodeH,
			Parent: parent,
		})
		if depth > maxDepth {
			maxDepth = depth
		}

		var row float64
		if len(n.Children) == 0 {
			row = nextRow
			nextRow++
		} else {
			first := place(n.Children[0], n.ID, depth+1)
			last := first
			for _, child := range n.Children[1:] {
				last = place(child, n.ID, depth+1)
			}
			row = (first + last) / 2
		}
		nodes[idx].X = padding + float64(depth)*(nodeW+colGap)
		nodes[idx].Y = padding + headerHeight + row*(nodeH+rowGap)
		return row
	}
	place(opts.Root, "", 0)

	width := int(padding*2 + float64(maxDepth)*(nodeW+colGap) + nodeW)
	if width < 640 {
		width = 640
	}
	height := int(padding*2 + headerHeight + nextRow*(nodeH+rowGap))
	if height < 320 {
		height = 320
	}

	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = "Node Tree"
	}
	topHub := "n/a"
	if len(opts.Stats.Hubs) > 0 {
		h := opts.Stats.Hubs[0]
		topHub = fmt.Sprintf("%s (%.0f)", h.ID, h.Betweenness)
	}

	return layoutResult{
		Nodes:  nodes,
		Width:  width,
		Height: height,
		Header: headerHeight,
		Summary: summaryInfo{
			Title:     title,
			NodeCount: opts.Stats.Nodes,
			EdgeCount: opts.Stats.Edges,
			MaxDepth:  opts.Stats.MaxDepth,
			TopHub:    topHub,
		},
	}
}

// --- rendering -------------------------------------------------------------

var (
	colorRoot     = color.RGBA{0xbb, 0xde, 0xfb, 0xff}
	colorInner    = color.RGBA{0xc8, 0xe6, 0xc9, 0xff}
	colorLeaf     = color.RGBA{0xff, 0xf3, 0xe0, 0xff}
	colorStroke   = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorEdge     = color.RGBA{0x6b, 0x80, 0xbf, 0xff}
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
)

func nodeColor(n layoutNode) color.RGBA {
	switch {
	case n.ID == model.RootID:
		return colorRoot
	case n.Leaf:
		return colorLeaf
	default:
		return colorInner
	}
}

func positions(layout layoutResult) map[string]layoutNode {
	pos := make(map[string]layoutNode, len(layout.Nodes))
	for _, n := range layout.Nodes {
		pos[n.ID] = n
	}
	return pos
}

func renderPNG(path string, layout layoutResult) error {
	dc := gg.NewContext(layout.Width, layout.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(layout.Width)-32, layout.Header-24, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)
	drawSummaryBlock(dc, layout)

	pos := positions(layout)
	dc.SetColor(colorEdge)
	dc.SetLineWidth(1.5)
	for _, n := range layout.Nodes {
		if n.Parent == "" {
			continue
		}
		p := pos[n.Parent]
		dc.DrawLine(p.X+p.NodeW, p.Y+p.NodeH/2, n.X, n.Y+n.NodeH/2)
		dc.Stroke()
	}

	for _, n := range layout.Nodes {
		drawNode(dc, n)
	}
	return dc.SavePNG(path)
}

func drawNode(dc *gg.Context, n layoutNode) {
	dc.SetColor(nodeColor(n))
	dc.DrawRoundedRectangle(n.X, n.Y, n.NodeW, n.NodeH, 6)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(n.X, n.Y, n.NodeW, n.NodeH, 6)
	dc.Stroke()

	dc.SetColor(colorText)
	dc.DrawStringAnchored(n.Label, n.X+8, n.Y+n.NodeH/2, 0, 0.5)
}

func drawSummaryBlock(dc *gg.Context, layout layoutResult) {
	dc.SetColor(colorText)
	dc.DrawStringAnchored(layout.Summary.Title, 32, 40, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(fmt.Sprintf("nodes: %d  edges: %d  depth: %d",
		layout.Summary.NodeCount, layout.Summary.EdgeCount, layout.Summary.MaxDepth), 32, 60, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("top hub: %s", layout.Summary.TopHub), 32, 78, 0, 0.5)
}

func renderSVGToWriter(w io.Writer, layout layoutResult) error {
	canvas := svg.New(w)
	canvas.Start(layout.Width, layout.Height)
	canvas.Rect(0, 0, layout.Width, layout.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, layout.Width-32, int(layout.Header-24), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))

	canvas.Text(32, 40, layout.Summary.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	canvas.Text(32, 60, fmt.Sprintf("nodes: %d  edges: %d  depth: %d",
		layout.Summary.NodeCount, layout.Summary.EdgeCount, layout.Summary.MaxDepth),
		fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
	canvas.Text(32, 78, fmt.Sprintf("top hub: %s", layout.Summary.TopHub),
		fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))

	pos := positions(layout)
	for _, n := range layout.Nodes {
		if n.Parent == "" {
			continue
		}
		p := pos[n.Parent]
		canvas.Line(int(p.X+p.NodeW), int(p.Y+p.NodeH/2), int(n.X), int(n.Y+n.NodeH/2),
			fmt.Sprintf("stroke:%s;stroke-width:1.5", css(colorEdge)))
	}

	for _, n := range layout.Nodes {
		x, y := int(n.X), int(n.Y)
		canvas.Gid("node-" + n.ID)
		canvas.Roundrect(x, y, int(n.NodeW), int(n.NodeH), 6, 6,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(nodeColor(n)), css(colorStroke)))
		canvas.Text(x+8, y+int(n.NodeH/2)+4, n.Label,
			fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorText)))
		canvas.Gend()
	}

	canvas.End()
	return nil
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
