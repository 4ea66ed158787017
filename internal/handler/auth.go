package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"clix/internal/httputil"
	"clix/internal/model"
	"clix/internal/store"
	"clix/internal/transport/http/middleware"
)

// AuthHandler manages the lifecycle of the device's single user record.
type AuthHandler struct {
	store       *store.Store
	jwtSecret   string
	tokenMaxAge time.Duration
}

func NewAuthHandler(st *store.Store, jwtSecret string, tokenMaxAge time.Duration) *AuthHandler {
	return &AuthHandler{store: st, jwtSecret: jwtSecret, tokenMaxAge: tokenMaxAge}
}

// loginResponse pairs the user record with its access token.
type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Login handles POST /auth/login. A first login creates a pending user
// record (onboarding incomplete, dark theme default); a repeat login on the
// same device reuses the existing record.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		httputil.WriteBadRequest(w, "A valid email is required")
		return
	}

	user, err := h.store.GetUser(r.Context())
	switch {
	case errors.Is(err, model.ErrUserNotFound):
		user = &model.User{
			ID:        "u" + uuid.NewString(),
			Email:     email,
			AvatarURL: "https://picsum.photos/seed/profile/200",
			Theme:     model.ThemeDark,
			CreatedAt: time.Now(),
		}
		if err := h.store.SaveUser(r.Context(), user); err != nil {
			log.Printf("[ERROR] Login create user: err=%v", err)
			httputil.WriteInternalError(w, "Failed to create user")
			return
		}
		welcome := model.Notification{
			ID:        "n" + uuid.NewString(),
			Type:      model.NotificationTypeSystem,
			UserID:    user.ID,
			FromName:  "Clix",
			Content:   "Welcome to Clix! Finish setting up your profile to get started.",
			CreatedAt: time.Now(),
		}
		if err := h.store.AddNotification(r.Context(), welcome); err != nil {
			log.Printf("[ERROR] Login welcome notification: err=%v", err)
		}
	case err != nil:
		log.Printf("[ERROR] Login load user: err=%v", err)
		httputil.WriteInternalError(w, "Failed to load user")
		return
	}

	token, err := middleware.IssueToken(h.jwtSecret, user.ID, h.tokenMaxAge)
	if err != nil {
		log.Printf("[ERROR] Login issue token: user=%s err=%v", user.ID, err)
		httputil.WriteInternalError(w, "Failed to issue token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokenMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	httputil.WriteJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

// Logout handles POST /auth/logout. Clears the user, posts and notification
// slots; the username registry intentionally survives.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearAll(r.Context()); err != nil {
		log.Printf("[ERROR] Logout: err=%v", err)
		httputil.WriteInternalError(w, "Failed to log out")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "", Path: "/", MaxAge: -1})
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"redirect_to": "/login"})
}

// Me handles GET /me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.GetUser(r.Context())
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteUnauthorized(w, "Not logged in")
			return
		}
		log.Printf("[ERROR] Me: err=%v", err)
		httputil.WriteInternalError(w, "Failed to load user")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}
