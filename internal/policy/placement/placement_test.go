package placement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skystorehq/geogw/internal/costgraph"
)

func testGraph() *costgraph.Graph {
	g := costgraph.New()
	g.AddNode(costgraph.Node{Tag: "aws:us-east-1", StorageGBMo: 0.023})
	g.AddNode(costgraph.Node{Tag: "aws:eu-west-1", StorageGBMo: 0.023})
	g.AddEdge(costgraph.Edge{Src: "aws:us-east-1", Dst: "aws:eu-west-1", EgressGB: 0.09})
	return g
}

func TestNewUnknownPolicy(t *testing.T) {
	_, ok := New("not_a_real_policy", Config{})
	assert.False(t, ok)
}

func TestSingleRegionPlace(t *testing.T) {
	p, ok := New(NameSingleRegion, Config{FixedRegion: "aws:us-east-1"})
	require.True(t, ok)
	assert.Equal(t, []string{"aws:us-east-1"}, p.Place(Request{}))
	assert.Equal(t, int64(-1), p.GetTTL(0, "", "", false))
}

func TestReplicateAllPlace(t *testing.T) {
	p, _ := New(NameReplicateAll, Config{})
	got := p.Place(Request{InitRegions: []string{"aws:us-east-1", "aws:eu-west-1"}})
	assert.Equal(t, []string{"aws:us-east-1", "aws:eu-west-1"}, got)
}

func TestPushPlacePrimaryPlusWarmup(t *testing.T) {
	p, _ := New(NamePush, Config{})
	got := p.Place(Request{BucketPrimaryRegion: "aws:us-east-1", NeedWarmupRegions: []string{"aws:eu-west-1", "aws:us-east-1"}})
	assert.Equal(t, []string{"aws:us-east-1", "aws:eu-west-1"}, got)
}

func TestAlwaysEvictTTLZero(t *testing.T) {
	p, _ := New(NameAlwaysEvict, Config{})
	assert.Equal(t, int64(0), p.GetTTL(0, "a", "b", false))
}

func TestFixedTTLBaseRegionForever(t *testing.T) {
	p, _ := New(NameFixedTTL, Config{FixedTTLSeconds: 3600})
	assert.Equal(t, int64(-1), p.GetTTL(0, "a", "b", true))
	assert.Equal(t, int64(3600), p.GetTTL(0, "a", "b", false))
}

func TestTEvenGetTTL(t *testing.T) {
	p, _ := New(NameTEven, Config{Graph: testGraph()})
	ttl := p.GetTTL(0, "aws:us-east-1", "aws:eu-west-1", false)
	assert.Greater(t, ttl, int64(0))
	assert.Equal(t, int64(-1), p.GetTTL(0, "aws:us-east-1", "aws:eu-west-1", true))
}
