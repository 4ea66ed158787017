package handler

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"clix/internal/httputil"
	"clix/internal/model"
	"clix/internal/upload"
)

// UploadHandler exposes the media pipeline over HTTP: one session per
// picked asset, polled for progress, retried or discarded explicitly.
type UploadHandler struct {
	uploads *upload.Manager
}

func NewUploadHandler(uploads *upload.Manager) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// Create handles POST /uploads (multipart form, field "media"). Validation
// runs synchronously; an accepted asset answers with the session already in
// uploading state and a usable preview reference.
func (h *UploadHandler) Create(w http.ResponseWriter, r *http.Request) {
	// Ceiling plus slack for the multipart framing.
	r.Body = http.MaxBytesReader(w, r.Body, model.MaxMediaSizeBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, model.ErrFileTooLarge.Error())
		return
	}

	file, header, err := r.FormFile("media")
	if err != nil {
		httputil.WriteBadRequest(w, "Missing media file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		log.Printf("[ERROR] Upload read: err=%v", err)
		httputil.WriteInternalError(w, "Failed to read upload")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	if contentType == "" && len(data) > 0 {
		contentType = http.DetectContentType(data[:min(len(data), 512)])
	}

	session, err := h.uploads.Create(r.Context(), contentType, header.Size, data)
	if err != nil {
		code := model.CodeInvalidMediaType
		if errors.Is(err, model.ErrFileTooLarge) {
			code = model.CodeFileTooLarge
		}
		httputil.WriteBadRequestWithCode(w, code, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, session.Snapshot())
}

// Get handles GET /uploads/{id}: the progress poll.
func (h *UploadHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.uploads.Get(chi.URLParam(r, "id"))
	if !ok {
		httputil.WriteNotFound(w, "Upload session not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session.Snapshot())
}

// Retry handles POST /uploads/{id}/retry. Re-runs the transfer on the
// retained asset; no re-selection, no re-validation.
func (h *UploadHandler) Retry(w http.ResponseWriter, r *http.Request) {
	session, ok := h.uploads.Get(chi.URLParam(r, "id"))
	if !ok {
		httputil.WriteNotFound(w, "Upload session not found")
		return
	}
	if err := session.Retry(r.Context()); err != nil {
		httputil.WriteConflict(w, "Session is not in a retryable state")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session.Snapshot())
}

// Delete handles DELETE /uploads/{id}: cancel/reset, releasing the preview.
func (h *UploadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.uploads.Remove(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}
