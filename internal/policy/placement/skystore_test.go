package placement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skystorehq/geogw/internal/costgraph"
)

func skyGraph() *costgraph.Graph {
	g := costgraph.New()
	g.AddNode(costgraph.Node{Tag: "aws:us-east-1", StorageGBMo: 0.023})
	g.AddNode(costgraph.Node{Tag: "aws:eu-west-1", StorageGBMo: 0.023})
	g.AddEdge(costgraph.Edge{Src: "aws:us-east-1", Dst: "aws:eu-west-1", EgressGB: 0.09})
	g.AddEdge(costgraph.Edge{Src: "aws:eu-west-1", Dst: "aws:us-east-1", EgressGB: 0.09})
	return g
}

func TestSkystoreFixedBaseRegionAlwaysForever(t *testing.T) {
	s := NewSkystore(skyGraph(), SkystoreConfig{})
	assert.Equal(t, int64(-1), s.GetTTL(1000, "aws:us-east-1", "aws:eu-west-1", true))
}

func TestSkystoreFallsBackToTEvenHalfWhenThin(t *testing.T) {
	s := NewSkystore(skyGraph(), SkystoreConfig{MinHistogramSamples: 1000})
	ttl := s.GetTTL(3600*24, "aws:us-east-1", "aws:eu-west-1", false)
	expected := int64(tEven(skyGraph(), "aws:us-east-1", "aws:eu-west-1") / 2)
	assert.Equal(t, expected, ttl)
}

func TestSkystorePlaceIsClientRegionOnly(t *testing.T) {
	s := NewSkystore(skyGraph(), SkystoreConfig{})
	got := s.Place(Request{ClientRegion: "aws:eu-west-1"})
	assert.Equal(t, []string{"aws:eu-west-1"}, got)
}

func TestSkystoreUpdatePastRequestsBuildsHistogram(t *testing.T) {
	s := NewSkystore(skyGraph(), SkystoreConfig{MinHistogramSamples: 2})
	base := int64(1_700_000_000)
	s.UpdatePastRequests(base, "aws:eu-west-1", "obj-1", 1<<30)
	s.UpdatePastRequests(base+3600, "aws:eu-west-1", "obj-1", 1<<30)

	s.mu.Lock()
	hist := s.hist["aws:eu-west-1"]
	n := s.numRequests["aws:eu-west-1"]
	s.mu.Unlock()

	require.NotEmpty(t, hist)
	assert.Equal(t, 2, n)
}

func TestSkystorePickSourcePrefersLiveLowerTTL(t *testing.T) {
	s := NewSkystore(skyGraph(), SkystoreConfig{})
	now := int64(1_700_000_000)
	always := func(string, int64) bool { return true }
	got := s.PickSource(now, "aws:eu-west-1", []string{"aws:us-east-1"}, always)
	assert.Equal(t, "aws:us-east-1", got)

	never := func(string, int64) bool { return false }
	got = s.PickSource(now, "aws:eu-west-1", []string{"aws:us-east-1"}, never)
	assert.Equal(t, "", got)
}
