package analysis

import (
	"testing"

	"github.com/vanderheijden86/nodetree/pkg/model"
	"github.com/vanderheijden86/nodetree/pkg/testutil"
)

func TestStatsSeed(t *testing.T) {
	s := NewAnalyzer(model.NewTree().Root()).Stats(DefaultStatsConfig())

	if s.Nodes != 1 || s.Edges != 0 || s.Leaves != 1 || s.MaxDepth != 0 {
		t.Errorf("unexpected seed stats: %+v", s)
	}
	if !s.Acyclic || !s.Connected {
		t.Errorf("seed tree should be acyclic and connected: %+v", s)
	}
	if len(s.Hubs) != 0 {
		t.Errorf("seed tree has no hubs, got %v", s.Hubs)
	}
}

func TestStatsShape(t *testing.T) {
	tree := testutil.BuildTree(t, map[string][]string{
		"START": {"1", "2", "3"},
		"1":     {"1.1", "1.2"},
		"2":     {"2.1"},
		"2.1":   {"2.1.1"},
	})
	s := NewAnalyzer(tree.Root()).Stats(DefaultStatsConfig())

	tests := []struct {
		name string
		got  int
		want int
	}{
		{"nodes", s.Nodes, 8},
		{"edges", s.Edges, 7},
		{"leaves", s.Leaves, 4},
		{"max depth", s.MaxDepth, 3},
		{"widest level", s.WidestLevel, 1},
		{"widest count", s.WidestCount, 3},
		{"max fanout", s.MaxFanout, 3},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
	if s.MaxFanoutID != model.RootID {
		t.Errorf("max fanout id = %q, want START", s.MaxFanoutID)
	}
}

func TestStatsHubsOnChain(t *testing.T) {
	tree := testutil.NewGenerator(1).Chain(3)
	s := NewAnalyzer(tree.Root()).Stats(DefaultStatsConfig())

	if s.BetweennessRun != BetweennessExact {
		t.Errorf("small tree should use exact betweenness, got %q", s.BetweennessRun)
	}
	if len(s.Hubs) != 2 {
		t.Fatalf("expected 2 hubs on a 4-node chain, got %+v", s.Hubs)
	}
	if s.Hubs[0].ID != "1" || s.Hubs[1].ID != "1.1" {
		t.Errorf("unexpected hub order: %+v", s.Hubs)
	}
	if s.Hubs[0].Descendants != 2 {
		t.Errorf("hub 1 descendants = %d, want 2", s.Hubs[0].Descendants)
	}
}

func TestStatsHubLimitAndSampling(t *testing.T) {
	tree := testutil.NewGenerator(3).Random(60, 20)
	cfg := StatsConfig{HubLimit: 3, SampleSize: 10, Seed: 9}
	s := NewAnalyzer(tree.Root()).Stats(cfg)

	if len(s.Hubs) > 3 {
		t.Errorf("hub limit ignored: %d hubs", len(s.Hubs))
	}
	if s.BetweennessRun != BetweennessApproximate {
		t.Errorf("expected approximate mode, got %q", s.BetweennessRun)
	}
	for i := 1; i < len(s.Hubs); i++ {
		if s.Hubs[i].Betweenness > s.Hubs[i-1].Betweenness {
			t.Errorf("hubs not sorted: %+v", s.Hubs)
		}
	}
}

func TestStatsNoHubsWhenDisabled(t *testing.T) {
	tree := testutil.NewGenerator(1).Chain(4)
	s := NewAnalyzer(tree.Root()).Stats(StatsConfig{})
	if s.Hubs != nil {
		t.Errorf("expected no hubs with HubLimit 0, got %v", s.Hubs)
	}
}

func TestRecommendSampleSize(t *testing.T) {
	tests := []struct{ n, want int }{
		{10, 10},
		{250, 50},
		{400, 80},
		{1000, 100},
		{5000, 200},
	}
	for _, tt := range tests {
		if got := RecommendSampleSize(tt.n); got != tt.want {
			t.Errorf("RecommendSampleSize(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestSampleNodesDeterministic(t *testing.T) {
	a := NewAnalyzer(testutil.NewGenerator(5).Fan(20).Root())
	nodes := a.Graph().Nodes()
	var all []int64
	for nodes.Next() {
		all = append(all, nodes.Node().ID())
	}
	if len(all) != 21 {
		t.Fatalf("expected 21 nodes, got %d", len(all))
	}

	r1 := ApproxBetweenness(a.Graph(), 5, 42)
	r2 := ApproxBetweenness(a.Graph(), 5, 42)
	if r1.SampleSize != 5 || r2.Mode != BetweennessApproximate {
		t.Errorf("unexpected result: %+v", r1)
	}
	if len(r1.Scores) != len(r2.Scores) {
		t.Errorf("same seed gave different score sets")
	}
}
