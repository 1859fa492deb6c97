package api

import (
	"net/http"
	"strconv"
)

func (h *Handler) handleSetMultipartID(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LogicalID uint   `json:"logical_id"`
		UploadID  string `json:"upload_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "set_multipart_id", badRequest("set_multipart_id", err))
		return
	}
	if err := h.st.SetMultipartID(r.Context(), req.LogicalID, req.UploadID); err != nil {
		writeError(w, "set_multipart_id", err)
		return
	}
	writeOK(w, "set_multipart_id", map[string]string{"upload_id": req.UploadID})
}

func (h *Handler) handleAppendPart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LocatorID  uint   `json:"locator_id"`
		PartNumber int    `json:"part_number"`
		Etag       string `json:"etag"`
		Size       int64  `json:"size"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "append_part", badRequest("append_part", err))
		return
	}
	if err := h.st.AppendPart(r.Context(), req.LocatorID, req.PartNumber, req.Etag, req.Size); err != nil {
		writeError(w, "append_part", err)
		return
	}
	writeOK(w, "append_part", map[string]int{"part_number": req.PartNumber})
}

func (h *Handler) handleContinueUpload(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.URL.Query().Get("logical_id"), 10, 64)
	if err != nil {
		writeError(w, "continue_upload", badRequest("continue_upload", err))
		return
	}
	locs, err := h.st.ContinueUpload(r.Context(), uint(id))
	if err != nil {
		writeError(w, "continue_upload", err)
		return
	}
	writeOK(w, "continue_upload", locs)
}

func (h *Handler) handleListParts(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.URL.Query().Get("logical_id"), 10, 64)
	if err != nil {
		writeError(w, "list_parts", badRequest("list_parts", err))
		return
	}
	parts, err := h.st.ListParts(r.Context(), uint(id))
	if err != nil {
		writeError(w, "list_parts", err)
		return
	}
	writeOK(w, "list_parts", parts)
}

func (h *Handler) handleListMultipartUploads(w http.ResponseWriter, r *http.Request) {
	bucket := r.URL.Query().Get("bucket")
	uploads, err := h.st.ListMultipartUploads(r.Context(), bucket)
	if err != nil {
		writeError(w, "list_multipart_uploads", err)
		return
	}
	writeOK(w, "list_multipart_uploads", uploads)
}
