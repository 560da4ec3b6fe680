package analysis

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/topo"
)

// StatsConfig caps the optional parts of Stats.
type StatsConfig struct {
	HubLimit int `json:"hub_limit"` // Max hubs reported (default 5)
	// SampleSize bounds the betweenness pivots; 0 picks RecommendSampleSize.
	SampleSize int   `json:"sample_size"`
	Seed       int64 `json:"seed"`
}

// DefaultStatsConfig returns safe defaults.
func DefaultStatsConfig() StatsConfig {
	return StatsConfig{HubLimit: 5, Seed: 1}
}

// Hub is a node that many root-to-leaf paths pass through.
type Hub struct {
	ID          string  `json:"id"`
	Betweenness float64 `json:"betweenness"`
	Descendants int     `json:"descendants"`
}

// Stats summarises a tree.
type Stats struct {
	Nodes       int    `json:"nodes"`
	Edges       int    `json:"edges"`
	Leaves      int    `json:"leaves"`
	MaxDepth    int    `json:"max_depth"`
	WidestLevel int    `json:"widest_level"`
	WidestCount int    `json:"widest_count"`
	MaxFanout   int    `json:"max_fanout"`
	MaxFanoutID string `json:"max_fanout_id,omitempty"`

	// Acyclic and Connected hold for every valid tree; false means the
	// hierarchy is corrupt.
	Acyclic   bool `json:"acyclic"`
	Connected bool `json:"connected"`

	Hubs           []Hub           `json:"hubs,omitempty"`
	BetweennessRun BetweennessMode `json:"betweenness_mode,omitempty"`
}

// Stats computes the summary for the analyzer's tree.
func (a *Analyzer) Stats(cfg StatsConfig) Stats {
	var s Stats
	if a.root == nil {
		return s
	}

	s.Nodes = a.g.Nodes().Len()
	s.Edges = a.g.Edges().Len()

	perLevel := make(map[int]int)
	for id, d := range a.depth {
		perLevel[d]++
		if d > s.MaxDepth {
			s.MaxDepth = d
		}
		n := a.g.From(a.index[id]).Len()
		if n == 0 {
			s.Leaves++
		}
		if n > s.MaxFanout || (n == s.MaxFanout && n > 0 && id < s.MaxFanoutID) {
			s.MaxFanout = n
			s.MaxFanoutID = id
		}
	}
	for level := 0; level <= s.MaxDepth; level++ {
		if perLevel[level] > s.WidestCount {
			s.WidestCount = perLevel[level]
			s.WidestLevel = level
		}
	}

	_, err := topo.Sort(a.g)
	s.Acyclic = err == nil
	s.Connected = len(topo.ConnectedComponents(graph.Undirect{G: a.g})) == 1

	if cfg.HubLimit > 0 {
		s.Hubs, s.BetweennessRun = a.hubs(cfg)
	}
	return s
}

// hubs ranks nodes by betweenness, highest first, ties by id.
func (a *Analyzer) hubs(cfg StatsConfig) ([]Hub, BetweennessMode) {
	sample := cfg.SampleSize
	if sample <= 0 {
		sample = RecommendSampleSize(a.g.Nodes().Len())
	}
	result := ApproxBetweenness(a.g, sample, cfg.Seed)

	hubs := make([]Hub, 0, len(result.Scores))
	for id, score := range result.Scores {
		if score <= 0 {
			continue
		}
		hubs = append(hubs, Hub{
			ID:          a.ids[id],
			Betweenness: score,
			Descendants: a.descendants(id),
		})
	}
	sort.Slice(hubs, func(i, j int) bool {
		if hubs[i].Betweenness != hubs[j].Betweenness {
			return hubs[i].Betweenness > hubs[j].Betweenness
		}
		return hubs[i].ID < hubs[j].ID
	})
	if len(hubs) > cfg.HubLimit {
		hubs = hubs[:cfg.HubLimit]
	}
	return hubs, result.Mode
}

func (a *Analyzer) descendants(id int64) int {
	count := 0
	stack := []int64{id}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		to := a.g.From(v)
		for to.Next() {
			count++
			stack = append(stack, to.Node().ID())
		}
	}
	return count
}
