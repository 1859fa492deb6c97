// Package engine orchestrates the metadata store, the policy
// registry, and the cost graph into the two operations that actually
// consult policy: start_upload's placement decision and
// locate_object's transfer-policy decision (spec §4.1, §4.2, §4.3).
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/skystorehq/geogw/internal/config"
	"github.com/skystorehq/geogw/internal/eviction"
	"github.com/skystorehq/geogw/internal/gwerr"
	"github.com/skystorehq/geogw/internal/log"
	"github.com/skystorehq/geogw/internal/metrics"
	"github.com/skystorehq/geogw/internal/model"
	"github.com/skystorehq/geogw/internal/policy"
	"github.com/skystorehq/geogw/internal/policy/placement"
	"github.com/skystorehq/geogw/internal/policy/transfer"
	"github.com/skystorehq/geogw/internal/store"
)

// Engine is the policy-aware layer sitting in front of the store.
type Engine struct {
	st       *store.Store
	reg      *policy.Registry
	eviction *eviction.Controller

	trace    traceIndex
	hourGate hourGate
}

// New builds an Engine. ev may be nil (e.g. in tests that don't care
// about the hourly eviction trigger); a nil controller just means the
// hour-boundary check in LocateObject has nothing to call.
func New(st *store.Store, reg *policy.Registry, ev *eviction.Controller) *Engine {
	return &Engine{st: st, reg: reg, eviction: ev}
}

// traceIndex is the process-wide logical clock advanced on every
// skystore/always_store read (spec §4.1/§5): get_ttl and
// update_past_requests consult a replayed trace's timestamp array by
// index in the original system, so every read sharing a single
// monotonic counter here is what lets a later TraceIdx-aware trace
// replay reattach to this engine without restructuring it. The TTL
// math itself keeps using wall-clock seconds (skystore's histogram
// buckets are hour-of-day arithmetic against real time), so trace.next
// is consulted for its ordering, not substituted in as nowSeconds.
type traceIndex struct {
	mu  sync.Mutex
	idx int64
}

func (t *traceIndex) next() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.idx++
	metrics.SkystoreTraceIndex.Set(float64(t.idx))
	return t.idx
}

// hourGate reports whether now has crossed into a new wall-clock hour
// since the last call, so locate_object can schedule clean_object at
// most once per boundary crossing instead of once per request (spec
// §4.4).
type hourGate struct {
	mu   sync.Mutex
	last int64
}

func (g *hourGate) crossed(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	boundary := now.Truncate(time.Hour).Unix()
	if boundary != g.last {
		g.last = boundary
		return true
	}
	return false
}

// UploadRequest is the caller-facing input to StartUpload (spec §6
// start_upload).
type UploadRequest struct {
	Bucket            string
	Key               string
	Size              int64
	Etag              string
	ClientRegion      string
	ExplicitTTL       *int64
	VersioningEnabled bool
}

// StartUpload resolves the active placement policy's destination
// regions and per-destination TTLs, then persists the pending
// logical/physical rows (spec §4.1 steps 1-7).
func (e *Engine) StartUpload(ctx context.Context, req UploadRequest) (*model.LogicalObject, []model.PhysicalObjectLocator, error) {
	snap := e.reg.Snapshot()
	if snap.PutPolicy == nil {
		return nil, nil, gwerr.Internal("start_upload", "no put policy configured")
	}

	lb, existingLocs, err := e.st.LocateBucket(ctx, req.Bucket)
	if err != nil {
		return nil, nil, err
	}
	versioningEnabled := req.VersioningEnabled || lb.Versioning == model.VersioningEnabled
	cfg := config.Global()

	needWarmup := make([]string, 0)
	for _, l := range existingLocs {
		if l.NeedWarmup {
			needWarmup = append(needWarmup, l.LocationTag)
		}
	}
	primary := ""
	for _, l := range existingLocs {
		if l.IsPrimary {
			primary = l.LocationTag
		}
	}

	placeReq := placement.Request{
		ClientRegion:        req.ClientRegion,
		SizeBytes:           req.Size,
		ExplicitTTL:         req.ExplicitTTL,
		BucketPrimaryRegion: primary,
		NeedWarmupRegions:   needWarmup,
		InitRegions:         cfg.InitRegions,
		VersioningEnabled:   versioningEnabled,
	}
	targets := snap.PutPolicy.Place(placeReq)
	if len(targets) == 0 {
		return nil, nil, gwerr.BadRequest("start_upload", "placement policy %q produced no destination regions", snap.PutPolicy.Name())
	}

	// base_region is immutable once a logical object is first written
	// (I7): the uploader's own region for a fresh key, since this is
	// start_upload rather than a copy/replication path.
	baseRegion := req.ClientRegion

	nowIdx := time.Now().Unix()
	decisions := make([]store.PlacementDecision, 0, len(targets))
	for i, tag := range targets {
		isPrimary := i == 0
		fixedBase := tag == baseRegion
		ttl := snap.PutPolicy.GetTTL(nowIdx, req.ClientRegion, tag, fixedBase)
		if req.ExplicitTTL != nil {
			ttl = *req.ExplicitTTL
		}
		d := store.PlacementDecision{
			RegionTag:  tag,
			IsPrimary:  isPrimary,
			TTL:        ttl,
			BaseRegion: baseRegion,
		}
		if tag != req.ClientRegion && req.ClientRegion != "" {
			d.CopySrc = &store.CopySrc{Bucket: req.Bucket, Key: req.Key}
		}
		decisions = append(decisions, d)
	}

	return e.st.StartUpload(ctx, req.Bucket, req.Key, req.Size, req.Etag, versioningEnabled, decisions)
}

// LocateObject resolves the live physical locators for a read and
// applies the active transfer policy to pick one, refreshing its TTL
// on a hit the way skystore's read-triggered extension works (spec
// §4.2). versionID, when non-nil, pins the read to one exact logical
// version instead of the latest ready row (spec I4).
func (e *Engine) LocateObject(ctx context.Context, bucket, key, clientRegion string, versionID *uint) (*model.LogicalObject, *model.PhysicalObjectLocator, error) {
	snap := e.reg.Snapshot()
	if snap.GetPolicy == nil {
		return nil, nil, gwerr.Internal("locate_object", "no get policy configured")
	}

	putPolicyName := ""
	if snap.PutPolicy != nil {
		putPolicyName = snap.PutPolicy.Name()
	}
	trackedRead := putPolicyName == placement.NameSkystore || putPolicyName == placement.NameAlwaysStore
	if trackedRead {
		e.trace.next()
		if putPolicyName == placement.NameSkystore && e.hourGate.crossed(time.Now()) && e.eviction != nil {
			go func() {
				if err := e.eviction.CleanObject(context.Background()); err != nil {
					log.WithComponent("engine").Error().Err(err).Msg("hour-boundary clean_object failed")
				}
			}()
		}
	}

	obj, locs, err := e.st.LocateObject(ctx, bucket, key, versionID)
	if err != nil {
		return nil, nil, err
	}
	if len(locs) == 0 {
		return nil, nil, gwerr.NotFound("locate_object", "object %s/%s has no live replicas", bucket, key)
	}

	sky, isSkystore := snap.PutPolicy.(*placement.Skystore)
	if isSkystore {
		go sky.UpdatePastRequests(time.Now().Unix(), clientRegion, key, obj.Size)
	}

	candidates := make([]transfer.Candidate, 0, len(locs))
	byTag := make(map[string]model.PhysicalObjectLocator, len(locs))
	for _, l := range locs {
		candidates = append(candidates, transfer.Candidate{RegionTag: l.LocationTag})
		byTag[l.LocationTag] = l
	}

	cfg := config.Global()
	configuredRegion := ""
	if len(cfg.InitRegions) > 0 {
		configuredRegion = cfg.InitRegions[0]
	}
	picked, err := snap.GetPolicy.Select(transfer.Request{
		ClientRegion:     clientRegion,
		Candidates:       candidates,
		ConfiguredRegion: configuredRegion,
		IssueRegion:      clientRegion,
	})
	if err != nil {
		return nil, nil, gwerr.Internal("locate_object", "%v", err)
	}
	chosen := byTag[picked]

	// A cache hit in the client's own region gets its TTL refreshed
	// under the active placement policy's eviction-time formula. Under
	// skystore, the source to refresh from is whichever live candidate
	// PickSource's tie-break prefers (spec §4.2); under any other
	// put policy, GetTTL's own src/dst formula is consulted directly.
	// A TTL only ever grows here; a keep-forever (-1) copy is left as is.
	if l, ok := byTag[clientRegion]; ok && clientRegion != "" && snap.PutPolicy != nil {
		nowSec := time.Now().Unix()
		var newTTL int64
		if isSkystore {
			srcs := make([]string, 0, len(locs))
			for _, loc := range locs {
				if loc.LocationTag != clientRegion {
					srcs = append(srcs, loc.LocationTag)
				}
			}
			stillLive := func(src string, untilSeconds int64) bool {
				cand, ok := byTag[src]
				if !ok {
					return false
				}
				if cand.TTL == -1 {
					return true
				}
				if cand.StorageStartTime == nil {
					return false
				}
				return cand.StorageStartTime.Unix()+cand.TTL > untilSeconds
			}
			src := sky.PickSource(nowSec, clientRegion, srcs, stillLive)
			newTTL = sky.GetTTL(nowSec, src, clientRegion, false)
		} else {
			newTTL = snap.PutPolicy.GetTTL(nowSec, l.LocationTag, clientRegion, false)
		}
		if l.TTL != -1 && newTTL > l.TTL {
			_ = e.st.RefreshTTL(ctx, l.ID, newTTL)
			l.TTL = newTTL
			byTag[clientRegion] = l
			if l.ID == chosen.ID {
				chosen.TTL = newTTL
			}
		}
	}

	return obj, &chosen, nil
}
