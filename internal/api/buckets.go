package api

import (
	"net/http"

	"github.com/skystorehq/geogw/internal/model"
)

type registerBucketsRequest struct {
	Name       string   `json:"name"`
	Prefix     string   `json:"prefix"`
	Versioning string   `json:"versioning"`
	Locators   []string `json:"locators"` // "cloud:region", first is primary
}

func (h *Handler) handleRegisterBuckets(w http.ResponseWriter, r *http.Request) {
	var req registerBucketsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "register_buckets", badRequest("register_buckets", err))
		return
	}
	locs := make([]model.PhysicalBucketLocator, len(req.Locators))
	for i, tag := range req.Locators {
		locs[i] = model.PhysicalBucketLocator{LocationTag: tag, IsPrimary: i == 0}
	}
	mode := model.VersioningMode(req.Versioning)
	if mode == "" {
		mode = model.VersioningUnset
	}
	if err := h.st.RegisterBuckets(r.Context(), req.Name, req.Prefix, locs, mode); err != nil {
		writeError(w, "register_buckets", err)
		return
	}
	writeOK(w, "register_buckets", map[string]string{"name": req.Name})
}

type startCreateBucketRequest struct {
	Name       string   `json:"name"`
	Prefix     string   `json:"prefix"`
	Regions    []string `json:"regions"`
	Versioning string   `json:"versioning"`
}

func (h *Handler) handleStartCreateBucket(w http.ResponseWriter, r *http.Request) {
	var req startCreateBucketRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "start_create_bucket", badRequest("start_create_bucket", err))
		return
	}
	mode := model.VersioningMode(req.Versioning)
	if mode == "" {
		mode = model.VersioningUnset
	}
	locs, err := h.st.StartCreateBucket(r.Context(), req.Name, req.Prefix, req.Regions, mode)
	if err != nil {
		writeError(w, "start_create_bucket", err)
		return
	}
	writeOK(w, "start_create_bucket", locs)
}

func (h *Handler) handleCompleteCreateBucket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "complete_create_bucket", badRequest("complete_create_bucket", err))
		return
	}
	if err := h.st.CompleteCreateBucket(r.Context(), req.Name); err != nil {
		writeError(w, "complete_create_bucket", err)
		return
	}
	writeOK(w, "complete_create_bucket", map[string]string{"name": req.Name})
}

func (h *Handler) handleStartDeleteBucket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "start_delete_bucket", badRequest("start_delete_bucket", err))
		return
	}
	locs, err := h.st.StartDeleteBucket(r.Context(), req.Name)
	if err != nil {
		writeError(w, "start_delete_bucket", err)
		return
	}
	writeOK(w, "start_delete_bucket", locs)
}

func (h *Handler) handleCompleteDeleteBucket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "complete_delete_bucket", badRequest("complete_delete_bucket", err))
		return
	}
	if err := h.st.CompleteDeleteBucket(r.Context(), req.Name); err != nil {
		writeError(w, "complete_delete_bucket", err)
		return
	}
	writeOK(w, "complete_delete_bucket", map[string]string{"name": req.Name})
}

func (h *Handler) handleLocateBucket(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	b, locs, err := h.st.LocateBucket(r.Context(), name)
	if err != nil {
		writeError(w, "locate_bucket", err)
		return
	}
	writeOK(w, "locate_bucket", map[string]interface{}{"bucket": b, "locators": locs})
}

func (h *Handler) handleLocateBucketStatus(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	status, err := h.st.LocateBucketStatus(r.Context(), name)
	if err != nil {
		writeError(w, "locate_bucket_status", err)
		return
	}
	writeOK(w, "locate_bucket_status", map[string]string{"status": string(status)})
}

func (h *Handler) handleHeadBucket(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	status, err := h.st.HeadBucket(r.Context(), name)
	if err != nil {
		writeError(w, "head_bucket", err)
		return
	}
	writeOK(w, "head_bucket", map[string]string{"status": string(status)})
}

func (h *Handler) handleListBuckets(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.st.ListBuckets(r.Context())
	if err != nil {
		writeError(w, "list_buckets", err)
		return
	}
	writeOK(w, "list_buckets", buckets)
}

func (h *Handler) handlePutBucketVersioning(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string `json:"name"`
		Versioning string `json:"versioning"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "put_bucket_versioning", badRequest("put_bucket_versioning", err))
		return
	}
	if err := h.st.PutBucketVersioning(r.Context(), req.Name, model.VersioningMode(req.Versioning)); err != nil {
		writeError(w, "put_bucket_versioning", err)
		return
	}
	writeOK(w, "put_bucket_versioning", map[string]string{"name": req.Name})
}

func (h *Handler) handleCheckVersionSetting(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	mode, err := h.st.CheckVersionSetting(r.Context(), name)
	if err != nil {
		writeError(w, "check_version_setting", err)
		return
	}
	writeOK(w, "check_version_setting", map[string]string{"versioning": string(mode)})
}
