package costgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestGraph() *Graph {
	g := New()
	g.AddNode(Node{Tag: "aws:us-east-1", StorageGBMo: 0.023, PutPriceUnit: 0.005, GetPriceUnit: 0.0004})
	g.AddNode(Node{Tag: "aws:eu-west-1", StorageGBMo: 0.024, PutPriceUnit: 0.005, GetPriceUnit: 0.0004})
	g.AddEdge(Edge{Src: "aws:us-east-1", Dst: "aws:eu-west-1", EgressGB: 0.02, ThroughputMBs: 50, LatencyMs: 90})
	return g
}

func TestSameRegionEdgeImplicit(t *testing.T) {
	g := buildTestGraph()
	e, ok := g.Edge("aws:us-east-1", "aws:us-east-1")
	require.True(t, ok)
	assert.Zero(t, e.EgressGB)
}

func TestEgressCostMissingEdge(t *testing.T) {
	g := buildTestGraph()
	_, err := g.EgressCost("aws:eu-west-1", "aws:us-east-1")
	assert.Error(t, err)
}

func TestStoragePerDay(t *testing.T) {
	g := buildTestGraph()
	perDay, err := g.StoragePerDay("aws:us-east-1")
	require.NoError(t, err)
	assert.InDelta(t, 0.023/30.0, perDay, 1e-9)
}

func TestRegions(t *testing.T) {
	g := buildTestGraph()
	assert.ElementsMatch(t, []string{"aws:us-east-1", "aws:eu-west-1"}, g.Regions())
}
