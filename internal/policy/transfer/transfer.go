// Package transfer implements the read-path locator-selection
// policies of spec §4.3.
package transfer

import (
	"fmt"
	"sync"

	"github.com/skystorehq/geogw/internal/costgraph"
)

// Candidate is one ready, live physical locator a transfer policy may
// choose among.
type Candidate struct {
	RegionTag string
}

// Request carries the context a transfer policy needs to pick one
// candidate (spec §4.3). All policies short-circuit to the client
// region's locator if present: each policy's Select first calls the
// shared clientRegionCandidate helper, then applies its own rule.
type Request struct {
	ClientRegion     string
	Candidates       []Candidate
	ConfiguredRegion string // for "direct"
	IssueRegion      string // for "manual" tape replay
}

// Policy is the transfer-policy interface (spec §4.3).
type Policy interface {
	Name() string
	Select(req Request) (string, error)
}

const (
	NameDirect   = "direct"
	NameClosest  = "closest"
	NameCheapest = "cheapest"
	NameManual   = "manual"
)

func clientRegionCandidate(req Request) (string, bool) {
	for _, c := range req.Candidates {
		if c.RegionTag == req.ClientRegion {
			return c.RegionTag, true
		}
	}
	return "", false
}

// New constructs the named transfer policy.
func New(name string, g *costgraph.Graph, tape []TapeEntry) (Policy, bool) {
	switch name {
	case NameDirect:
		return &Direct{}, true
	case NameClosest:
		return &Closest{Graph: g}, true
	case NameCheapest:
		return &Cheapest{Graph: g}, true
	case NameManual:
		return NewManual(tape), true
	default:
		return nil, false
	}
}

// Direct always returns the single configured storage region.
type Direct struct{}

func (p *Direct) Name() string { return NameDirect }
func (p *Direct) Select(req Request) (string, error) {
	if r, ok := clientRegionCandidate(req); ok {
		return r, nil
	}
	for _, c := range req.Candidates {
		if c.RegionTag == req.ConfiguredRegion {
			return c.RegionTag, nil
		}
	}
	return "", fmt.Errorf("transfer: direct: configured region %q not present", req.ConfiguredRegion)
}

// Closest maximizes throughput(src -> client).
type Closest struct {
	Graph *costgraph.Graph
}

func (p *Closest) Name() string { return NameClosest }
func (p *Closest) Select(req Request) (string, error) {
	if r, ok := clientRegionCandidate(req); ok {
		return r, nil
	}
	best, bestT := "", -1.0
	for _, c := range req.Candidates {
		t, err := p.Graph.Throughput(c.RegionTag, req.ClientRegion)
		if err != nil {
			continue
		}
		if t > bestT {
			best, bestT = c.RegionTag, t
		}
	}
	if best == "" {
		return "", fmt.Errorf("transfer: closest: no candidate reachable from %s", req.ClientRegion)
	}
	return best, nil
}

// Cheapest minimizes (egress_cost, latency) lexicographically.
type Cheapest struct {
	Graph *costgraph.Graph
}

func (p *Cheapest) Name() string { return NameCheapest }
func (p *Cheapest) Select(req Request) (string, error) {
	if r, ok := clientRegionCandidate(req); ok {
		return r, nil
	}
	best, bestCost, bestLatency := "", -1.0, -1.0
	for _, c := range req.Candidates {
		cost, err := p.Graph.EgressCost(c.RegionTag, req.ClientRegion)
		if err != nil {
			continue
		}
		lat, _ := p.Graph.Latency(c.RegionTag, req.ClientRegion)
		if best == "" || cost < bestCost || (cost == bestCost && lat < bestLatency) {
			best, bestCost, bestLatency = c.RegionTag, cost, lat
		}
	}
	if best == "" {
		return "", fmt.Errorf("transfer: cheapest: no candidate reachable from %s", req.ClientRegion)
	}
	return best, nil
}

// TapeEntry is one prerecorded (issue_region -> answer_region) line
// used to replay a trace against the manual transfer policy (spec
// §4.3; the trace replay driver itself is out of scope per spec §1,
// but the tape format it feeds is part of this policy's contract).
type TapeEntry struct {
	IssueRegion  string
	AnswerRegion string
}

// Manual reads the next line from a prerecorded tape and asserts that
// the recorded issue region matches the request.
type Manual struct {
	mu   sync.Mutex
	tape []TapeEntry
	pos  int
}

func NewManual(tape []TapeEntry) *Manual { return &Manual{tape: tape} }

func (p *Manual) Name() string { return NameManual }
func (p *Manual) Select(req Request) (string, error) {
	if r, ok := clientRegionCandidate(req); ok {
		return r, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pos >= len(p.tape) {
		return "", fmt.Errorf("transfer: manual: tape exhausted")
	}
	entry := p.tape[p.pos]
	p.pos++
	if entry.IssueRegion != req.IssueRegion {
		return "", fmt.Errorf("transfer: manual: tape mismatch, expected issue region %q, got %q",
			entry.IssueRegion, req.IssueRegion)
	}
	for _, c := range req.Candidates {
		if c.RegionTag == entry.AnswerRegion {
			return c.RegionTag, nil
		}
	}
	return "", fmt.Errorf("transfer: manual: recorded answer region %q not among candidates", entry.AnswerRegion)
}
