package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clix/internal/feed"
	"clix/internal/httputil"
	"clix/internal/model"
	"clix/internal/store"
	"clix/internal/upload"
)

// PostHandler exposes this context's feed view and the composition flow.
type PostHandler struct {
	view    *feed.View
	store   *store.Store
	uploads *upload.Manager
}

func NewPostHandler(view *feed.View, st *store.Store, uploads *upload.Manager) *PostHandler {
	return &PostHandler{view: view, store: st, uploads: uploads}
}

// GetFeed handles GET /feed. Serves this context's cached view; the bus
// subscription keeps it current without re-reading the store.
func (h *PostHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.view.Posts())
}

// Create handles POST /posts. A post referencing an upload session may only
// be submitted once the pipeline reports success; text-only or link-only
// posts bypass the pipeline.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.GetUser(r.Context())
	if err != nil {
		httputil.WriteUnauthorized(w, "Not logged in")
		return
	}

	var req model.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if req.UploadID != "" {
		session, ok := h.uploads.Get(req.UploadID)
		if !ok {
			httputil.WriteNotFound(w, "Upload session not found")
			return
		}
		mediaURL, ready := session.MediaURL()
		if !ready {
			httputil.WriteConflict(w, model.ErrUploadNotReady.Error())
			return
		}
		req.MediaURL = mediaURL
	}

	post, err := h.view.CreatePost(r.Context(), user, req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrEmptyPost), errors.Is(err, model.ErrContentTooLong):
			httputil.WriteBadRequest(w, err.Error())
		default:
			log.Printf("[ERROR] Create post: user=%s err=%v", user.ID, err)
			httputil.WriteInternalError(w, "Failed to create post")
		}
		return
	}

	// The session is consumed by the post; the preview reference lives on as
	// the media reference.
	if req.UploadID != "" {
		h.uploads.Complete(req.UploadID)
	}

	httputil.WriteJSON(w, http.StatusCreated, post)
}

// ToggleLike handles POST /posts/{id}/like. The flip is applied to the view
// before persistence, then broadcast overwrites every context's copy.
func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")
	if postID == "" {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	post, err := h.view.ToggleLike(r.Context(), postID)
	if err != nil {
		if errors.Is(err, model.ErrPostNotFound) {
			httputil.WriteNotFound(w, "Post not found")
			return
		}
		log.Printf("[ERROR] Toggle like: post=%s err=%v", postID, err)
		httputil.WriteInternalError(w, "Failed to update post")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, post)
}
