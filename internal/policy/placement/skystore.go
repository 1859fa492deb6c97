package placement

import (
	"math"
	"sync"

	"github.com/skystorehq/geogw/internal/costgraph"
)

// SkystoreConfig holds skystore's tunables (spec §4.2).
type SkystoreConfig struct {
	// WindowHours is the histogram horizon; -1 means unbounded
	// (GLOSSARY: Window).
	WindowHours int
	// RecomputeIntervalHours is k in the spec's formula (default 12).
	RecomputeIntervalHours int
	// MinHistogramSamples is the thinness threshold below which
	// get_ttl falls back to t_even/2 (spec §4.2: "fewer than 1000
	// observations").
	MinHistogramSamples int
}

type pairKey struct{ src, dst string }

// Skystore is the cost-minimizing eviction-TTL policy (spec §4.2,
// GLOSSARY t_evict). All mutable state below is guarded by mu; get_ttl
// and update_past_requests take the same lock, matching the "per-policy
// histograms...mutated only under the policy's own mutex" rule in
// spec §5.
type Skystore struct {
	mu    sync.Mutex
	graph *costgraph.Graph
	cfg   SkystoreConfig

	// hist[dst] is the completed sliding histogram of inter-arrival
	// hour-buckets -> accumulated GB; histLast[dst] is the
	// in-progress current-hour histogram (GLOSSARY: Window).
	hist        map[string]map[int]float64
	histLast    map[string]map[int]float64
	numRequests map[string]int
	lastArrival map[string]map[string]int64 // dst -> key -> unix seconds
	windowStart map[string]int64            // dst -> window start, unix seconds

	tEvictSeconds map[pairKey]int64
	lastRecompute int64 // unix seconds, rounded to an hour boundary
}

// NewSkystore builds a skystore policy instance with empty histograms.
func NewSkystore(g *costgraph.Graph, cfg SkystoreConfig) *Skystore {
	if cfg.RecomputeIntervalHours <= 0 {
		cfg.RecomputeIntervalHours = 12
	}
	if cfg.MinHistogramSamples <= 0 {
		cfg.MinHistogramSamples = 1000
	}
	if cfg.WindowHours == 0 {
		cfg.WindowHours = -1
	}
	return &Skystore{
		graph:         g,
		cfg:           cfg,
		hist:          make(map[string]map[int]float64),
		histLast:      make(map[string]map[int]float64),
		numRequests:   make(map[string]int),
		lastArrival:   make(map[string]map[string]int64),
		windowStart:   make(map[string]int64),
		tEvictSeconds: make(map[pairKey]int64),
	}
}

func (s *Skystore) Name() string { return NameSkystore }

// Place always pulls into the reading client's own region (spec §4.2
// table: skystore's place is "client region only").
func (s *Skystore) Place(req Request) []string {
	if req.ClientRegion == "" {
		return nil
	}
	return []string{req.ClientRegion}
}

const gb = 1 << 30

// UpdatePastRequests deposits one read's contribution into dst's
// histogram, sized by size/GB (spec §4.2). Call asynchronously after
// every locate_object, as the spec's control flow requires.
func (s *Skystore) UpdatePastRequests(nowSeconds int64, dst, key string, sizeBytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.WindowHours != -1 {
		s.slideWindowLocked(nowSeconds, dst)
	}

	sizeGB := float64(sizeBytes) / gb
	s.numRequests[dst]++

	if s.lastArrival[dst] == nil {
		s.lastArrival[dst] = make(map[string]int64)
	}
	if last, ok := s.lastArrival[dst][key]; ok {
		delta := nowSeconds - last
		if delta <= 0 {
			delta = 1
		}
		bucket := int(math.Ceil(float64(delta) / 3600))
		if s.hist[dst] == nil {
			s.hist[dst] = make(map[int]float64)
		}
		s.hist[dst][bucket] += sizeGB
	}
	s.lastArrival[dst][key] = nowSeconds

	// in-progress-hour tail bucket: hours remaining until the end of
	// the current hour, from nowSeconds.
	secsIntoHour := nowSeconds % 3600
	tailHours := int(math.Ceil(float64(3600-secsIntoHour) / 3600))
	if tailHours < 1 {
		tailHours = 1
	}
	if s.histLast[dst] == nil {
		s.histLast[dst] = make(map[int]float64)
	}
	s.histLast[dst][tailHours] += sizeGB
}

func (s *Skystore) slideWindowLocked(nowSeconds int64, dst string) {
	windowSecs := int64(s.cfg.WindowHours) * 3600
	start, ok := s.windowStart[dst]
	if !ok {
		s.windowStart[dst] = nowSeconds
		return
	}
	if nowSeconds-start > windowSecs {
		s.windowStart[dst] = nowSeconds
		delete(s.hist, dst)
		delete(s.histLast, dst)
		delete(s.numRequests, dst)
	}
}

// recomputeLocked refreshes t_evict(src,dst) for every region pair
// the cost graph knows about, every k hours of wall-clock time (spec
// §4.2: "every k=12 hours").
func (s *Skystore) recomputeLocked(nowSeconds int64) {
	hourBoundary := nowSeconds - nowSeconds%3600
	if s.lastRecompute != 0 && hourBoundary-s.lastRecompute < int64(s.cfg.RecomputeIntervalHours)*3600 {
		return
	}
	s.lastRecompute = hourBoundary

	if s.graph == nil {
		return
	}
	regions := s.graph.Regions()
	for _, src := range regions {
		for _, dst := range regions {
			if src == dst {
				continue
			}
			s.tEvictSeconds[pairKey{src, dst}] = s.computeTEvictLocked(src, dst)
		}
	}
}

// computeTEvictLocked solves the cost-minimizing eviction time
// (spec §4.2 / GLOSSARY t_evict):
//
//	t_evict = argmin_c  Σ_i H[i]·(min(i,c)·s + 1[i>c]·n) + Σ_i H_last[i]·c·s
func (s *Skystore) computeTEvictLocked(src, dst string) int64 {
	tEvenHours := tEven(s.graph, src, dst) / 3600
	fallback := int64(tEvenHours / 2 * 3600)

	hist := s.hist[dst]
	last := s.histLast[dst]
	n := s.numRequests[dst]
	if n < s.cfg.MinHistogramSamples || (len(hist) == 0 && len(last) == 0) {
		return fallback
	}

	storagePerDay, err := s.graph.StoragePerDay(dst)
	if err != nil || storagePerDay <= 0 {
		return fallback
	}
	egress, err := s.graph.EgressCost(src, dst)
	if err != nil {
		return fallback
	}
	storagePerHour := storagePerDay / 24

	maxC := int(math.Ceil(tEvenHours))
	if maxC < 0 {
		maxC = 0
	}
	bestC, bestCost := 0, math.Inf(1)
	for c := 0; c <= maxC; c++ {
		cost := 0.0
		for i, gbAmt := range hist {
			if i <= c {
				cost += gbAmt * float64(i) * storagePerHour
			} else {
				cost += gbAmt * (float64(c)*storagePerHour + egress)
			}
		}
		for _, gbAmt := range last {
			cost += gbAmt * float64(c) * storagePerHour
		}
		if cost < bestCost {
			bestCost, bestC = cost, c
		}
	}
	return int64(bestC) * 3600
}

// GetTTL returns t_evict(src,dst) in seconds, or -1 for the fixed
// base-region copy (spec §4.2).
func (s *Skystore) GetTTL(nowIdx int64, src, dst string, fixedBaseRegion bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recomputeLocked(nowIdx)

	if fixedBaseRegion {
		return -1
	}
	if src == "" || src == dst {
		return int64(tEven(s.graph, src, dst) / 2)
	}
	if v, ok := s.tEvictSeconds[pairKey{src, dst}]; ok {
		return v
	}
	return int64(tEven(s.graph, src, dst) / 2)
}

// PickSource implements the locate_object tie-break rule (spec §4.2):
// among candidate source regions, prefer the one whose t_evict is
// smallest and whose current ttl window still covers now+t_evict.
func (s *Skystore) PickSource(nowSeconds int64, dst string, candidates []string, stillLive func(src string, untilSeconds int64) bool) string {
	best, bestTTL := "", int64(-2)
	for _, src := range candidates {
		ttl := s.GetTTL(nowSeconds, src, dst, false)
		if !stillLive(src, nowSeconds+ttl) {
			continue
		}
		if bestTTL == -2 || ttl < bestTTL {
			best, bestTTL = src, ttl
		}
	}
	return best
}
