package api

import (
	"net/http"
	"strconv"

	"github.com/skystorehq/geogw/internal/engine"
	"github.com/skystorehq/geogw/internal/metrics"
)

type startUploadRequest struct {
	Bucket            string `json:"bucket"`
	Key               string `json:"key"`
	Size              int64  `json:"size"`
	Etag              string `json:"etag"`
	ClientRegion      string `json:"client_region"`
	TTLSeconds        *int64 `json:"ttl_seconds"`
	VersioningEnabled bool   `json:"versioning_enabled"`
}

func (h *Handler) handleStartUpload(w http.ResponseWriter, r *http.Request) {
	var req startUploadRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "start_upload", badRequest("start_upload", err))
		return
	}
	obj, locs, err := h.engine.StartUpload(r.Context(), engine.UploadRequest{
		Bucket:            req.Bucket,
		Key:               req.Key,
		Size:              req.Size,
		Etag:              req.Etag,
		ClientRegion:      req.ClientRegion,
		ExplicitTTL:       req.TTLSeconds,
		VersioningEnabled: req.VersioningEnabled,
	})
	if err != nil {
		writeError(w, "start_upload", err)
		return
	}
	writeOK(w, "start_upload", map[string]interface{}{"object": obj, "locators": locs})
}

func (h *Handler) handleCompleteUpload(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LogicalID uint   `json:"logical_id"`
		Etag      string `json:"etag"`
		Size      int64  `json:"size"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "complete_upload", badRequest("complete_upload", err))
		return
	}
	// A multipart upload completes as a single put commit replaying
	// its accumulated parts (spec §4.1); a direct upload just flips
	// status and stamps the TTL clock.
	if req.Etag != "" || req.Size != 0 {
		if err := h.st.CompleteMultipartUpload(r.Context(), req.LogicalID, req.Etag, req.Size); err != nil {
			writeError(w, "complete_upload", err)
			return
		}
	} else if err := h.st.CompleteUpload(r.Context(), req.LogicalID); err != nil {
		writeError(w, "complete_upload", err)
		return
	}
	writeOK(w, "complete_upload", map[string]uint{"logical_id": req.LogicalID})
}

func (h *Handler) handleLocateObject(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bucket, key, clientRegion := q.Get("bucket"), q.Get("key"), q.Get("client_region")
	var versionID *uint
	if vs := q.Get("version_id"); vs != "" {
		v, err := strconv.ParseUint(vs, 10, 64)
		if err != nil {
			writeError(w, "locate_object", badRequest("locate_object", err))
			return
		}
		vv := uint(v)
		versionID = &vv
	}
	obj, loc, err := h.engine.LocateObject(r.Context(), bucket, key, clientRegion, versionID)
	if err != nil {
		writeError(w, "locate_object", err)
		return
	}
	if loc.LocationTag == clientRegion {
		metrics.CacheHits.WithLabelValues(clientRegion).Inc()
	} else {
		metrics.CacheMisses.WithLabelValues(clientRegion).Inc()
	}
	writeOK(w, "locate_object", map[string]interface{}{"object": obj, "locator": loc})
}

func (h *Handler) handleLocateObjectStatus(w http.ResponseWriter, r *http.Request) {
	idStr := r.URL.Query().Get("logical_id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		writeError(w, "locate_object_status", badRequest("locate_object_status", err))
		return
	}
	status, err := h.st.LocateObjectStatus(r.Context(), uint(id))
	if err != nil {
		writeError(w, "locate_object_status", err)
		return
	}
	writeOK(w, "locate_object_status", map[string]string{"status": string(status)})
}

func (h *Handler) handleHeadObject(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	obj, err := h.st.HeadObject(r.Context(), q.Get("bucket"), q.Get("key"))
	if err != nil {
		writeError(w, "head_object", err)
		return
	}
	writeOK(w, "head_object", obj)
}

func (h *Handler) handleListObjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	objs, err := h.st.ListObjects(r.Context(), q.Get("bucket"), q.Get("prefix"))
	if err != nil {
		writeError(w, "list_objects", err)
		return
	}
	writeOK(w, "list_objects", objs)
}

func (h *Handler) handleListObjectsVersioning(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	objs, err := h.st.ListObjectsVersioning(r.Context(), q.Get("bucket"), q.Get("prefix"))
	if err != nil {
		writeError(w, "list_objects_versioning", err)
		return
	}
	writeOK(w, "list_objects_versioning", objs)
}

func (h *Handler) handleStartWarmup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Bucket      string `json:"bucket"`
		LocationTag string `json:"location_tag"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "start_warmup", badRequest("start_warmup", err))
		return
	}
	if err := h.st.StartWarmup(r.Context(), req.Bucket, req.LocationTag); err != nil {
		writeError(w, "start_warmup", err)
		return
	}
	writeOK(w, "start_warmup", map[string]string{"bucket": req.Bucket, "location_tag": req.LocationTag})
}
