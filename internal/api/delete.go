package api

import (
	"net/http"

	"github.com/skystorehq/geogw/internal/store"
)

type deleteObjectsRequest struct {
	Bucket string `json:"bucket"`
	Items  []struct {
		Key       string `json:"key"`
		VersionID string `json:"version_id"`
	} `json:"items"`
}

func (h *Handler) handleStartDeleteObjects(w http.ResponseWriter, r *http.Request) {
	var req deleteObjectsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "start_delete_objects", badRequest("start_delete_objects", err))
		return
	}
	items := make([]store.DeleteItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = store.DeleteItem{Key: it.Key, VersionID: it.VersionID}
	}
	// The bucket's versioning mode is looked up from the database
	// inside StartDeleteObjects itself (spec §4.1) rather than trusted
	// from the client, so a stale or malicious versioning_enabled flag
	// can no longer bypass the suspended/unset delete-marker rules.
	pending, err := h.st.StartDeleteObjects(r.Context(), req.Bucket, items)
	if err != nil {
		writeError(w, "start_delete_objects", err)
		return
	}
	writeOK(w, "start_delete_objects", pending)
}

func (h *Handler) handleCompleteDeleteObjects(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pending []store.PendingDelete `json:"pending"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "complete_delete_objects", badRequest("complete_delete_objects", err))
		return
	}
	if err := h.st.CompleteDeleteObjects(r.Context(), req.Pending); err != nil {
		writeError(w, "complete_delete_objects", err)
		return
	}
	writeOK(w, "complete_delete_objects", map[string]int{"count": len(req.Pending)})
}

func (h *Handler) handleCleanObject(w http.ResponseWriter, r *http.Request) {
	if err := h.eviction.CleanObject(r.Context()); err != nil {
		writeError(w, "clean_object", err)
		return
	}
	writeOK(w, "clean_object", map[string]string{"status": "ok"})
}

func (h *Handler) handleCleanOutRemaining(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LogicalID uint `json:"logical_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "clean_out_remaining", badRequest("clean_out_remaining", err))
		return
	}
	if err := h.eviction.CleanOutRemaining(r.Context(), req.LogicalID); err != nil {
		writeError(w, "clean_out_remaining", err)
		return
	}
	writeOK(w, "clean_out_remaining", map[string]uint{"logical_id": req.LogicalID})
}
