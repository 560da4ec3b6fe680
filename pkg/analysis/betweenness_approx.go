package analysis

import (
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
)

// BetweennessMode records how betweenness was computed.
type BetweennessMode string

const (
	// BetweennessExact runs Brandes' algorithm from every node.
	BetweennessExact BetweennessMode = "exact"
	// BetweennessApproximate runs it from a random sample of pivots and
	// scales the result by n/k.
	BetweennessApproximate BetweennessMode = "approximate"
)

// BetweennessResult contains the result of betweenness computation.
type BetweennessResult struct {
	Scores     map[int64]float64
	Mode       BetweennessMode
	SampleSize int
	TotalNodes int
	Elapsed    time.Duration
}

// brandesState is the per-source scratch space for Brandes' algorithm.
type brandesState struct {
	sigma map[int64]float64
	dist  map[int64]int
	delta map[int64]float64
	pred  map[int64][]int64
	queue []int64
	stack []int64
}

var brandesPool = sync.Pool{
	New: func() any {
		return &brandesState{
			sigma: make(map[int64]float64, 64),
			dist:  make(map[int64]int, 64),
			delta: make(map[int64]float64, 64),
			pred:  make(map[int64][]int64, 64),
		}
	},
}

func (b *brandesState) reset(nodes []graph.Node) {
	clear(b.sigma)
	clear(b.dist)
	clear(b.delta)
	for _, n := range nodes {
		id := n.ID()
		b.dist[id] = -1
		b.pred[id] = b.pred[id][:0]
	}
	b.queue = b.queue[:0]
	b.stack = b.stack[:0]
}

// ApproxBetweenness computes betweenness centrality, sampling sampleSize
// pivots when the graph is larger than that. In a tree a node's score is
// the number of ancestor/descendant pairs it separates.
func ApproxBetweenness(g *simple.DirectedGraph, sampleSize int, seed int64) BetweennessResult {
	start := time.Now()
	nodes := graph.NodesOf(g.Nodes())
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
	n := len(nodes)

	if sampleSize < 1 {
		sampleSize = 1
	}
	result := BetweennessResult{
		Scores:     make(map[int64]float64),
		Mode:       BetweennessApproximate,
		SampleSize: sampleSize,
		TotalNodes: n,
	}
	if n == 0 {
		result.Elapsed = time.Since(start)
		return result
	}

	if sampleSize >= n {
		result.Scores = network.Betweenness(g)
		result.Mode = BetweennessExact
		result.SampleSize = n
		result.Elapsed = time.Since(start)
		return result
	}

	pivots := sampleNodes(nodes, sampleSize, seed)

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, runtime.NumCPU())

	for _, pivot := range pivots {
		wg.Add(1)
		go func(p graph.Node) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			local := make(map[int64]float64)
			singleSourceBetweenness(g, nodes, p, local)

			mu.Lock()
			for id, v := range local {
				result.Scores[id] += v
			}
			mu.Unlock()
		}(pivot)
	}
	wg.Wait()

	scale := float64(n) / float64(sampleSize)
	for id := range result.Scores {
		result.Scores[id] *= scale
	}
	result.Elapsed = time.Since(start)
	return result
}

// sampleNodes picks k nodes with a partial Fisher-Yates shuffle.
func sampleNodes(nodes []graph.Node, k int, seed int64) []graph.Node {
	if k >= len(nodes) {
		return nodes
	}
	shuffled := make([]graph.Node, len(nodes))
	copy(shuffled, nodes)

	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < k; i++ {
		j := i + rng.Intn(len(shuffled)-i)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:k]
}

// singleSourceBetweenness adds the dependency scores seen from source to bc.
func singleSourceBetweenness(g *simple.DirectedGraph, nodes []graph.Node, source graph.Node, bc map[int64]float64) {
	b := brandesPool.Get().(*brandesState)
	defer brandesPool.Put(b)
	b.reset(nodes)

	s := source.ID()
	b.sigma[s] = 1
	b.dist[s] = 0
	b.queue = append(b.queue, s)

	var neighbors []int64
	for len(b.queue) > 0 {
		v := b.queue[0]
		b.queue = b.queue[1:]
		b.stack = append(b.stack, v)

		neighbors = neighbors[:0]
		to := g.From(v)
		for to.Next() {
			neighbors = append(neighbors, to.Node().ID())
		}
		sort.Slice(neighbors, func(i, j int) bool { return neighbors[i] < neighbors[j] })

		for _, w := range neighbors {
			if b.dist[w] < 0 {
				b.dist[w] = b.dist[v] + 1
				b.queue = append(b.queue, w)
			}
			if b.dist[w] == b.dist[v]+1 {
				b.sigma[w] += b.sigma[v]
				b.pred[w] = append(b.pred[w], v)
			}
		}
	}

	for i := len(b.stack) - 1; i >= 0; i-- {
		w := b.stack[i]
		for _, v := range b.pred[w] {
			if b.sigma[w] > 0 {
				b.delta[v] += (b.sigma[v] / b.sigma[w]) * (1 + b.delta[w])
			}
		}
		if w != s {
			bc[w] += b.delta[w]
		}
	}
}

// RecommendSampleSize balances accuracy against speed for large trees.
func RecommendSampleSize(nodeCount int) int {
	switch {
	case nodeCount < 100:
		return nodeCount
	case nodeCount < 500:
		return max(50, nodeCount/5)
	case nodeCount < 2000:
		return 100
	default:
		return 200
	}
}
