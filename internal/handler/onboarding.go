package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"clix/internal/gate"
	"clix/internal/httputil"
	"clix/internal/model"
	"clix/internal/store"
	"clix/internal/username"
)

// OnboardingHandler drives the two-step account completion flow and the
// debounced username availability check.
type OnboardingHandler struct {
	store    *store.Store
	debounce time.Duration

	mu         sync.Mutex
	validators map[string]*username.Validator // keyed by user id
}

func NewOnboardingHandler(st *store.Store, debounce time.Duration) *OnboardingHandler {
	return &OnboardingHandler{
		store:      st,
		debounce:   debounce,
		validators: make(map[string]*username.Validator),
	}
}

// validatorFor returns the caller's validator, creating it on first use.
func (h *OnboardingHandler) validatorFor(userID string) *username.Validator {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.validators[userID]
	if !ok {
		v = username.New(h.store, userID, h.debounce, nil)
		h.validators[userID] = v
	}
	return v
}

// onboardingResponse returns the updated user plus the next destination the
// gate will allow.
type onboardingResponse struct {
	User *model.User `json:"user"`
	Next string      `json:"next"`
}

// SetupProfile handles POST /onboarding/profile. Validates the three
// required fields, the birth date and the username, then saves the whole
// record, which also syncs the registry.
func (h *OnboardingHandler) SetupProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.GetUser(r.Context())
	if err != nil {
		httputil.WriteUnauthorized(w, "Not logged in")
		return
	}

	var req model.ProfileSetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if req.Name == "" || req.Username == "" || req.DOB == "" {
		httputil.WriteBadRequest(w, model.ErrMissingFields.Error())
		return
	}
	if err := model.ValidateDOB(req.DOB, time.Now()); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if !username.ValidFormat(req.Username) {
		httputil.WriteBadRequest(w, model.ErrUsernameFormat.Error())
		return
	}

	normalized := store.Normalize(req.Username)
	taken, err := h.store.IsUsernameTaken(r.Context(), normalized, user.ID)
	if err != nil {
		log.Printf("[ERROR] SetupProfile availability check: err=%v", err)
		httputil.WriteInternalError(w, "Failed to check username")
		return
	}
	if taken {
		httputil.WriteConflict(w, model.ErrUsernameTaken.Error())
		return
	}

	user.Name = req.Name
	user.Username = normalized
	user.DOB = req.DOB
	user.Bio = req.Bio
	if req.AvatarURL != "" {
		user.AvatarURL = req.AvatarURL
	}

	if err := h.store.SaveUser(r.Context(), user); err != nil {
		log.Printf("[ERROR] SetupProfile save: user=%s err=%v", user.ID, err)
		httputil.WriteInternalError(w, "Failed to save profile")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, onboardingResponse{User: user, Next: gate.RouteOnboardingTheme})
}

// ChooseTheme handles POST /onboarding/theme. Explicitly finishing theme
// selection is what flips onboardingCompleted and unlocks the app.
func (h *OnboardingHandler) ChooseTheme(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.GetUser(r.Context())
	if err != nil {
		httputil.WriteUnauthorized(w, "Not logged in")
		return
	}

	var req model.ThemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if !model.ValidTheme(req.Theme) {
		httputil.WriteBadRequest(w, model.ErrInvalidTheme.Error())
		return
	}

	user.Theme = req.Theme
	user.OnboardingCompleted = true

	if err := h.store.SaveUser(r.Context(), user); err != nil {
		log.Printf("[ERROR] ChooseTheme save: user=%s err=%v", user.ID, err)
		httputil.WriteInternalError(w, "Failed to save theme")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, onboardingResponse{User: user, Next: gate.RouteHome})
}

// CheckUsername handles GET /username/check?u=. Each request feeds the
// caller's debounced validator: a new value answers "checking" right away
// and schedules the registry query, while re-polling the same value returns
// whatever state the validator has settled on. Format failures and empty
// input settle synchronously.
func (h *OnboardingHandler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.GetUser(r.Context())
	if err != nil && !errors.Is(err, model.ErrUserNotFound) {
		log.Printf("[ERROR] CheckUsername load user: err=%v", err)
		httputil.WriteInternalError(w, "Failed to check username")
		return
	}
	currentID := ""
	if user != nil {
		currentID = user.ID
	}

	normalized := store.Normalize(r.URL.Query().Get("u"))

	v := h.validatorFor(currentID)
	if normalized != v.State().Username {
		// New input. Re-polling a value already in flight must not restart
		// the debounce window, or the check would never run.
		v.Input(normalized)
	}

	httputil.WriteJSON(w, http.StatusOK, v.State())
}
