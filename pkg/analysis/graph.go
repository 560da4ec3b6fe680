// Package analysis computes structural statistics over a node tree.
//
// The tree is loaded into a gonum directed graph with one edge from each
// parent to each child, so the usual graph algorithms (topological sort,
// connectivity, betweenness) double as invariant checks and as a way to
// find the nodes everything else hangs off.
package analysis

import (
	"gonum.org/v1/gonum/graph/simple"

	"github.com/vanderheijden86/nodetree/pkg/model"
)

// Analyzer holds a tree and its graph form.
type Analyzer struct {
	root  *model.Node
	g     *simple.DirectedGraph
	ids   map[int64]string
	index map[string]int64
	depth map[string]int
}

// NewAnalyzer builds the graph for root. Node ids are assigned in pre-order
// so results are deterministic.
func NewAnalyzer(root *model.Node) *Analyzer {
	a := &Analyzer{
		root:  root,
		g:     simple.NewDirectedGraph(),
		ids:   make(map[int64]string),
		index: make(map[string]int64),
		depth: make(map[string]int),
	}

	var next int64
	model.Walk(root, func(n *model.Node, depth int) {
		if _, ok := a.index[n.ID]; ok {
			return
		}
		a.index[n.ID] = next
		a.ids[next] = n.ID
		a.depth[n.ID] = depth
		a.g.AddNode(simple.Node(next))
		next++
	})
	model.Walk(root, func(n *model.Node, _ int) {
		from := a.index[n.ID]
		for _, child := range n.Children {
			to := a.index[child.ID]
			if from == to {
				continue
			}
			a.g.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
		}
	})
	return a
}

// Graph returns the underlying directed graph.
func (a *Analyzer) Graph() *simple.DirectedGraph {
	return a.g
}

// NodeID maps a graph node id back to the tree id.
func (a *Analyzer) NodeID(id int64) string {
	return a.ids[id]
}
