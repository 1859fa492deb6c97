package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skystorehq/geogw/internal/costgraph"
)

func transferGraph() *costgraph.Graph {
	g := costgraph.New()
	g.AddNode(costgraph.Node{Tag: "aws:us-east-1"})
	g.AddNode(costgraph.Node{Tag: "aws:eu-west-1"})
	g.AddNode(costgraph.Node{Tag: "aws:ap-south-1"})
	g.AddEdge(costgraph.Edge{Src: "aws:us-east-1", Dst: "client", ThroughputMBs: 10, EgressGB: 0.09, LatencyMs: 100})
	g.AddEdge(costgraph.Edge{Src: "aws:eu-west-1", Dst: "client", ThroughputMBs: 50, EgressGB: 0.02, LatencyMs: 30})
	return g
}

func TestClientRegionShortCircuitsEveryPolicy(t *testing.T) {
	req := Request{
		ClientRegion: "aws:ap-south-1",
		Candidates:   []Candidate{{RegionTag: "aws:us-east-1"}, {RegionTag: "aws:ap-south-1"}},
	}
	for _, name := range []string{NameDirect, NameClosest, NameCheapest} {
		p, ok := New(name, transferGraph(), nil)
		require.True(t, ok)
		got, err := p.Select(req)
		require.NoError(t, err)
		assert.Equal(t, "aws:ap-south-1", got)
	}
}

func TestClosestPicksHighestThroughput(t *testing.T) {
	p, _ := New(NameClosest, transferGraph(), nil)
	got, err := p.Select(Request{
		ClientRegion: "client",
		Candidates:   []Candidate{{RegionTag: "aws:us-east-1"}, {RegionTag: "aws:eu-west-1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "aws:eu-west-1", got)
}

func TestCheapestPicksLowestEgress(t *testing.T) {
	p, _ := New(NameCheapest, transferGraph(), nil)
	got, err := p.Select(Request{
		ClientRegion: "client",
		Candidates:   []Candidate{{RegionTag: "aws:us-east-1"}, {RegionTag: "aws:eu-west-1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "aws:eu-west-1", got)
}

func TestDirectUsesConfiguredRegion(t *testing.T) {
	p, _ := New(NameDirect, transferGraph(), nil)
	got, err := p.Select(Request{
		ClientRegion:     "client",
		ConfiguredRegion: "aws:us-east-1",
		Candidates:       []Candidate{{RegionTag: "aws:us-east-1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "aws:us-east-1", got)
}

func TestManualReplaysTapeAndAssertsIssueRegion(t *testing.T) {
	p := NewManual([]TapeEntry{
		{IssueRegion: "client", AnswerRegion: "aws:us-east-1"},
		{IssueRegion: "client", AnswerRegion: "aws:us-east-1"},
	})
	got, err := p.Select(Request{
		ClientRegion: "other",
		IssueRegion:  "client",
		Candidates:   []Candidate{{RegionTag: "aws:us-east-1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "aws:us-east-1", got)

	_, err = p.Select(Request{ClientRegion: "other", IssueRegion: "nope", Candidates: nil})
	assert.Error(t, err)
}
