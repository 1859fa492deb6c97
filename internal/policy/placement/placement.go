// Package placement implements the placement policies of spec §4.2:
// "what to write where, and with what TTL". Each policy is a variant
// of a small closed sum type (DESIGN NOTES: no dynamic dispatch on
// name strings beyond the one switch in New).
package placement

import "github.com/skystorehq/geogw/internal/costgraph"

// Request carries everything a policy needs to decide upload_to_region_tags
// and the initial TTL for a single start_upload call (spec §4.1 step 5).
type Request struct {
	ClientRegion string
	SizeBytes    int64
	ExplicitTTL  *int64 // request-supplied override, if any

	BucketPrimaryRegion string   // current bucket primary, for push/always_store
	NeedWarmupRegions   []string // bucket locators flagged need_warmup
	InitRegions         []string // init_regions from config, for replicate_all
	FixedRegion         string   // single_region's configured region

	// ExistingLive reports, for each region tag already holding a
	// physical locator of this logical object, whether that locator
	// is still inside its TTL window (spec §4.1 step 5: regions
	// whose existing locator is still live are dropped unless
	// versioning is enabled).
	ExistingLive map[string]bool

	VersioningEnabled bool
}

// Policy is the placement-policy interface (spec §4.2).
type Policy interface {
	Name() string
	// Place returns the set of destination region tags to write to.
	Place(req Request) []string
	// GetTTL returns the TTL, in seconds, for a copy written at dst
	// having been sourced from src. fixedBaseRegion is true when dst
	// is the logical object's base_region, which is kept forever.
	GetTTL(nowIdx int64, src, dst string, fixedBaseRegion bool) int64
}

// Closed set of policy names (spec §4.2 table).
const (
	NameSingleRegion = "single_region"
	NameReplicateAll = "replicate_all"
	NamePush         = "push"
	NameAlwaysStore  = "always_store"
	NameAlwaysEvict  = "always_evict"
	NameFixedTTL     = "fixed_ttl"
	NameTEven        = "t_even"
	NameSkystore     = "skystore"
)

// Config bundles the construction-time parameters shared by several
// policies (a configured region, a configured TTL constant, the cost
// graph, and skystore's tunables).
type Config struct {
	Graph              *costgraph.Graph
	FixedRegion        string // single_region
	FixedTTLSeconds    int64  // fixed_ttl
	Skystore           SkystoreConfig
}

// New constructs the named policy, failing with ok=false on an
// unrecognized name (mapped to bad-request by callers, spec §7).
func New(name string, cfg Config) (Policy, bool) {
	switch name {
	case NameSingleRegion:
		return &SingleRegion{Region: cfg.FixedRegion}, true
	case NameReplicateAll:
		return &ReplicateAll{}, true
	case NamePush:
		return &Push{}, true
	case NameAlwaysStore:
		return &AlwaysStore{}, true
	case NameAlwaysEvict:
		return &AlwaysEvict{}, true
	case NameFixedTTL:
		return &FixedTTL{TTLSeconds: cfg.FixedTTLSeconds}, true
	case NameTEven:
		return &TEven{Graph: cfg.Graph}, true
	case NameSkystore:
		return NewSkystore(cfg.Graph, cfg.Skystore), true
	default:
		return nil, false
	}
}

// tEven computes the break-even eviction time (GLOSSARY): the point
// where accrued storage cost at dst equals the egress cost of
// re-fetching from src, expressed in seconds.
func tEven(g *costgraph.Graph, src, dst string) float64 {
	if g == nil {
		return 0
	}
	egress, err := g.EgressCost(src, dst)
	if err != nil {
		return 0
	}
	storagePerDay, err := g.StoragePerDay(dst)
	if err != nil || storagePerDay <= 0 {
		return 0
	}
	return egress / storagePerDay * 86400
}
