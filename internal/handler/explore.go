package handler

import (
	"net/http"
	"strings"

	"clix/internal/httputil"
	"clix/internal/trends"
)

// ExploreHandler fronts the generative search collaborator. The collaborator
// absorbs its own failures, so these handlers never answer with an error for
// upstream trouble.
type ExploreHandler struct {
	client *trends.Client
}

func NewExploreHandler(client *trends.Client) *ExploreHandler {
	return &ExploreHandler{client: client}
}

// Search handles GET /explore/search?q=.
func (h *ExploreHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		httputil.WriteBadRequest(w, "Query parameter q is required")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.client.SearchWithGrounding(r.Context(), query))
}

// Trending handles GET /explore/trends.
func (h *ExploreHandler) Trending(w http.ResponseWriter, r *http.Request) {
	summary := h.client.TrendingSummary(r.Context())
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"summary": summary})
}
