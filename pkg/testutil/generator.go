package testutil

import (
	"math/rand"

	"github.com/vanderheijden86/nodetree/pkg/model"
)

// Generator grows trees through the public model API so fixtures always
// carry generated ids. A fixed seed gives reproducible shapes.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a Generator seeded with seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Chain returns START -> 1 -> 1.1 -> 1.1.1 ... with size non-root nodes.
func (g *Generator) Chain(size int) *model.Tree {
	tree := model.NewTree()
	parent := model.RootID
	for i := 0; i < size; i++ {
		id, _ := tree.AddChild(parent)
		parent = id
	}
	return tree
}

// Fan returns START with width direct children.
func (g *Generator) Fan(width int) *model.Tree {
	tree := model.NewTree()
	for i := 0; i < width; i++ {
		_, _ = tree.AddChild(model.RootID)
	}
	return tree
}

// Random adds size nodes under uniformly chosen existing parents and then
// applies shuffles random moves, ignoring rejections.
func (g *Generator) Random(size, shuffles int) *model.Tree {
	tree := model.NewTree()
	ids := []string{model.RootID}
	for i := 0; i < size; i++ {
		parent := ids[g.rng.Intn(len(ids))]
		id, _ := tree.AddChild(parent)
		ids = append(ids, id)
	}
	for i := 0; i < shuffles; i++ {
		from := ids[g.rng.Intn(len(ids))]
		to := ids[g.rng.Intn(len(ids))]
		_ = tree.MoveNode(from, to)
	}
	return tree
}
