package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"clix/internal/httputil"
	"clix/internal/model"
	"clix/internal/store"
	"clix/internal/username"
)

// UserHandler covers post-onboarding settings edits.
type UserHandler struct {
	store *store.Store
}

func NewUserHandler(st *store.Store) *UserHandler {
	return &UserHandler{store: st}
}

// Update handles PUT /me. Only provided fields change; a username change
// runs the same format/availability checks as onboarding and the save
// compacts the registry to the new handle.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.GetUser(r.Context())
	if err != nil {
		httputil.WriteUnauthorized(w, "Not logged in")
		return
	}

	var req model.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if req.Username != nil {
		normalized := store.Normalize(*req.Username)
		if !username.ValidFormat(normalized) {
			httputil.WriteBadRequest(w, model.ErrUsernameFormat.Error())
			return
		}
		taken, err := h.store.IsUsernameTaken(r.Context(), normalized, user.ID)
		if err != nil {
			log.Printf("[ERROR] Update availability check: err=%v", err)
			httputil.WriteInternalError(w, "Failed to check username")
			return
		}
		if taken {
			httputil.WriteConflict(w, model.ErrUsernameTaken.Error())
			return
		}
		user.Username = normalized
	}
	if req.Theme != nil {
		if !model.ValidTheme(*req.Theme) {
			httputil.WriteBadRequest(w, model.ErrInvalidTheme.Error())
			return
		}
		user.Theme = *req.Theme
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}

	if err := h.store.SaveUser(r.Context(), user); err != nil {
		log.Printf("[ERROR] Update save: user=%s err=%v", user.ID, err)
		httputil.WriteInternalError(w, "Failed to save settings")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}
