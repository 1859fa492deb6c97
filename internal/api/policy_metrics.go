package api

import (
	"net/http"
	"time"

	"github.com/skystorehq/geogw/internal/config"
	"github.com/skystorehq/geogw/internal/model"
	"github.com/skystorehq/geogw/internal/policy/placement"
	"github.com/skystorehq/geogw/internal/policy/transfer"
)

// updatePolicyRequest carries an optional new put_policy and/or
// get_policy name (spec §6 update_policy). Re-resolving a policy by
// name against the live cost graph means the registry never needs a
// restart to hot-swap policies (spec §5).
type updatePolicyRequest struct {
	PutPolicy string `json:"put_policy"`
	GetPolicy string `json:"get_policy"`
}

func (h *Handler) handleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	var req updatePolicyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "update_policy", badRequest("update_policy", err))
		return
	}
	cfg := config.Global()

	if req.PutPolicy != "" {
		p, ok := placement.New(req.PutPolicy, placement.Config{
			Graph:           h.graph,
			FixedRegion:     firstOrEmpty(cfg.InitRegions),
			FixedTTLSeconds: int64(24 * time.Hour / time.Second),
			Skystore: placement.SkystoreConfig{
				WindowHours:            cfg.Sky.WindowHours,
				RecomputeIntervalHours: cfg.Sky.RecomputeIntervalHours,
				MinHistogramSamples:    cfg.Sky.MinHistogramSamples,
			},
		})
		if !ok {
			writeError(w, "update_policy", badRequest("update_policy", errUnknownPolicy(req.PutPolicy)))
			return
		}
		h.reg.SetPutPolicy(p)
		cfg.PutPolicy = req.PutPolicy
	}
	if req.GetPolicy != "" {
		t, ok := transfer.New(req.GetPolicy, h.graph, nil)
		if !ok {
			writeError(w, "update_policy", badRequest("update_policy", errUnknownPolicy(req.GetPolicy)))
			return
		}
		h.reg.SetGetPolicy(t)
		cfg.GetPolicy = req.GetPolicy
	}
	config.Set(cfg)
	writeOK(w, "update_policy", map[string]string{"put_policy": cfg.PutPolicy, "get_policy": cfg.GetPolicy})
}

func firstOrEmpty(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}

type unknownPolicyError struct{ name string }

func (e unknownPolicyError) Error() string { return "unknown policy name: " + e.name }

func errUnknownPolicy(name string) error { return unknownPolicyError{name: name} }

// updateMetricsRequest ingests one observed request into the Metric
// table and, when skystore is the active put policy, into its
// histogram (spec §6 update_metrics). The transfer policies do not use
// these observations; they read throughput from the cost graph.
type updateMetricsRequest struct {
	IssueRegion  string  `json:"issue_region"`
	AnswerRegion string  `json:"answer_region"`
	LatencyMs    float64 `json:"latency_ms"`
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	Op           string  `json:"op"`
}

func (h *Handler) handleUpdateMetrics(w http.ResponseWriter, r *http.Request) {
	var req updateMetricsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "update_metrics", badRequest("update_metrics", err))
		return
	}
	m := model.Metric{
		Timestamp:    time.Now(),
		IssueRegion:  req.IssueRegion,
		AnswerRegion: req.AnswerRegion,
		LatencyMs:    req.LatencyMs,
		Key:          req.Key,
		Size:         req.Size,
		Op:           req.Op,
	}
	if err := h.st.RecordMetric(r.Context(), m); err != nil {
		writeError(w, "update_metrics", err)
		return
	}
	if sky, ok := h.reg.Snapshot().PutPolicy.(*placement.Skystore); ok {
		sky.UpdatePastRequests(time.Now().Unix(), req.AnswerRegion, req.Key, req.Size)
	}
	writeOK(w, "update_metrics", map[string]string{"status": "ok"})
}
