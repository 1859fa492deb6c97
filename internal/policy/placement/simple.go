package placement

import "github.com/skystorehq/geogw/internal/costgraph"

// SingleRegion always places into one fixed configured region.
type SingleRegion struct {
	Region string
}

func (p *SingleRegion) Name() string { return NameSingleRegion }
func (p *SingleRegion) Place(Request) []string {
	if p.Region == "" {
		return nil
	}
	return []string{p.Region}
}
func (p *SingleRegion) GetTTL(int64, string, string, bool) int64 { return -1 }

// ReplicateAll places into every init region.
type ReplicateAll struct{}

func (p *ReplicateAll) Name() string { return NameReplicateAll }
func (p *ReplicateAll) Place(req Request) []string {
	out := make([]string, len(req.InitRegions))
	copy(out, req.InitRegions)
	return out
}
func (p *ReplicateAll) GetTTL(int64, string, string, bool) int64 { return -1 }

// Push places into the bucket's primary region plus any region
// flagged need_warmup.
type Push struct{}

func (p *Push) Name() string { return NamePush }
func (p *Push) Place(req Request) []string {
	seen := map[string]bool{}
	out := []string{}
	if req.BucketPrimaryRegion != "" {
		seen[req.BucketPrimaryRegion] = true
		out = append(out, req.BucketPrimaryRegion)
	}
	for _, r := range req.NeedWarmupRegions {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}
func (p *Push) GetTTL(int64, string, string, bool) int64 { return -1 }

// AlwaysStore keeps every write in the writer's own client region,
// forever; reads pull into the reader's region on demand (handled by
// the caller reusing the existing primary, per spec §4.1 step 4).
type AlwaysStore struct{}

func (p *AlwaysStore) Name() string { return NameAlwaysStore }
func (p *AlwaysStore) Place(req Request) []string {
	if req.ClientRegion == "" {
		return nil
	}
	return []string{req.ClientRegion}
}
func (p *AlwaysStore) GetTTL(int64, string, string, bool) int64 { return -1 }

// AlwaysEvict writes locally but with TTL 0: evict at the next sweep
// opportunity (spec §4.2 table; SPEC_FULL supplement grounded on
// policy_always_evict.py).
type AlwaysEvict struct{}

func (p *AlwaysEvict) Name() string { return NameAlwaysEvict }
func (p *AlwaysEvict) Place(req Request) []string {
	if req.ClientRegion == "" {
		return nil
	}
	return []string{req.ClientRegion}
}
func (p *AlwaysEvict) GetTTL(int64, string, string, bool) int64 { return 0 }

// FixedTTL writes locally; the base-region copy is kept forever, any
// pulled copy gets a configured constant TTL.
type FixedTTL struct {
	TTLSeconds int64
}

func (p *FixedTTL) Name() string { return NameFixedTTL }
func (p *FixedTTL) Place(req Request) []string {
	if req.ClientRegion == "" {
		return nil
	}
	return []string{req.ClientRegion}
}
func (p *FixedTTL) GetTTL(_ int64, _ string, _ string, fixedBaseRegion bool) int64 {
	if fixedBaseRegion {
		return -1
	}
	return p.TTLSeconds
}

// TEven writes locally; the base-region copy is kept forever, any
// pulled copy's TTL is the break-even point where storage cost at
// dst equals the egress cost of re-fetching from src (GLOSSARY).
type TEven struct {
	Graph *costgraph.Graph
}

func (p *TEven) Name() string { return NameTEven }
func (p *TEven) Place(req Request) []string {
	if req.ClientRegion == "" {
		return nil
	}
	return []string{req.ClientRegion}
}
func (p *TEven) GetTTL(_ int64, src, dst string, fixedBaseRegion bool) int64 {
	if fixedBaseRegion {
		return -1
	}
	return int64(tEven(p.Graph, src, dst))
}
