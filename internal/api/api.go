// Package api implements the external HTTP Request API (spec §6):
// a chi router, JSON request/response bodies via json-iterator/go,
// and a single error-kind-to-status mapping (spec §7) applied at the
// handler boundary. Grounded on cuemby-warren's pkg/api health
// server (endpoint-per-handler-func style) generalized to chi's
// method+path routing and the two-phase start_X/complete_X contract.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/skystorehq/geogw/internal/costgraph"
	"github.com/skystorehq/geogw/internal/engine"
	"github.com/skystorehq/geogw/internal/eviction"
	"github.com/skystorehq/geogw/internal/gwerr"
	"github.com/skystorehq/geogw/internal/log"
	"github.com/skystorehq/geogw/internal/metrics"
	"github.com/skystorehq/geogw/internal/policy"
	"github.com/skystorehq/geogw/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Handler bundles every dependency the Request API needs to service
// spec §6's endpoint table.
type Handler struct {
	st       *store.Store
	reg      *policy.Registry
	eviction *eviction.Controller
	engine   *engine.Engine
	graph    *costgraph.Graph
	logger   zerolog.Logger
}

func NewHandler(st *store.Store, reg *policy.Registry, ev *eviction.Controller, eng *engine.Engine, graph *costgraph.Graph) *Handler {
	return &Handler{st: st, reg: reg, eviction: ev, engine: eng, graph: graph, logger: log.WithComponent("api")}
}

// Router builds the chi router implementing spec §6.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.logger))

	r.Get("/healthz", h.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/register_buckets", h.handleRegisterBuckets)
	r.Post("/start_create_bucket", h.handleStartCreateBucket)
	r.Post("/complete_create_bucket", h.handleCompleteCreateBucket)
	r.Post("/start_delete_bucket", h.handleStartDeleteBucket)
	r.Post("/complete_delete_bucket", h.handleCompleteDeleteBucket)
	r.Get("/locate_bucket", h.handleLocateBucket)
	r.Get("/locate_bucket_status", h.handleLocateBucketStatus)
	r.Get("/head_bucket", h.handleHeadBucket)
	r.Get("/list_buckets", h.handleListBuckets)
	r.Post("/put_bucket_versioning", h.handlePutBucketVersioning)
	r.Get("/check_version_setting", h.handleCheckVersionSetting)

	r.Post("/start_upload", h.handleStartUpload)
	r.Post("/complete_upload", h.handleCompleteUpload)
	r.Get("/locate_object", h.handleLocateObject)
	r.Get("/locate_object_status", h.handleLocateObjectStatus)
	r.Get("/head_object", h.handleHeadObject)
	r.Get("/list_objects", h.handleListObjects)
	r.Get("/list_objects_versioning", h.handleListObjectsVersioning)

	r.Post("/start_delete_objects", h.handleStartDeleteObjects)
	r.Post("/complete_delete_objects", h.handleCompleteDeleteObjects)

	r.Post("/set_multipart_id", h.handleSetMultipartID)
	r.Post("/append_part", h.handleAppendPart)
	r.Get("/continue_upload", h.handleContinueUpload)
	r.Get("/list_parts", h.handleListParts)
	r.Get("/list_multipart_uploads", h.handleListMultipartUploads)

	r.Post("/start_warmup", h.handleStartWarmup)
	r.Post("/clean_object", h.handleCleanObject)
	r.Post("/clean_out_remaining", h.handleCleanOutRemaining)
	r.Post("/update_policy", h.handleUpdatePolicy)
	r.Post("/update_metrics", h.handleUpdateMetrics)

	return r
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		})
	}
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a gwerr.Kind to an HTTP status code (spec §7) and
// writes a uniform {"error": "..."} body.
func writeError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch gwerr.KindOf(err) {
	case gwerr.KindConflict:
		status = http.StatusConflict
	case gwerr.KindNotFound:
		status = http.StatusNotFound
	case gwerr.KindMethodNotAllowed:
		status = http.StatusMethodNotAllowed
	case gwerr.KindBadRequest:
		status = http.StatusBadRequest
	case gwerr.KindTransient:
		status = http.StatusServiceUnavailable
	case gwerr.KindRemoteStoreFailure:
		status = http.StatusBadGateway
	case gwerr.KindInternal:
		status = http.StatusInternalServerError
	}
	metrics.RequestsTotal.WithLabelValues(op, "error").Inc()
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeOK(w http.ResponseWriter, op string, v interface{}) {
	metrics.RequestsTotal.WithLabelValues(op, "ok").Inc()
	writeJSON(w, http.StatusOK, v)
}

func decodeBody(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func badRequest(op string, err error) error {
	return gwerr.BadRequest(op, "invalid request body: %v", err)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.st.Healthcheck(r.Context()); err != nil {
		writeError(w, "healthz", err)
		return
	}
	writeOK(w, "healthz", map[string]string{"status": "ok"})
}
