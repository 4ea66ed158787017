package handler

import (
	"log"
	"net/http"

	"clix/internal/httputil"
	"clix/internal/store"
)

// NotificationHandler reads the notification list slot.
type NotificationHandler struct {
	store *store.Store
}

func NewNotificationHandler(st *store.Store) *NotificationHandler {
	return &NotificationHandler{store: st}
}

// List handles GET /notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.GetNotifications(r.Context())
	if err != nil {
		log.Printf("[ERROR] List notifications: err=%v", err)
		httputil.WriteInternalError(w, "Failed to load notifications")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}
