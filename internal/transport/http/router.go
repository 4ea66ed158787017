package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"clix/internal/gate"
	"clix/internal/handler"
	"clix/internal/httputil"
	"clix/internal/store"
	clixmw "clix/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler         *handler.AuthHandler
	UserHandler         *handler.UserHandler
	OnboardingHandler   *handler.OnboardingHandler
	PostHandler         *handler.PostHandler
	UploadHandler       *handler.UploadHandler
	ExploreHandler      *handler.ExploreHandler
	NotificationHandler *handler.NotificationHandler
	Store               *store.Store
	JWTSecret           string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Public routes - no authentication required
	r.Post("/auth/login", cfg.AuthHandler.Login)

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(clixmw.AuthMiddleware(cfg.JWTSecret))

		r.Post("/auth/logout", cfg.AuthHandler.Logout)
		r.Get("/me", cfg.AuthHandler.Me)
		r.Put("/me", cfg.UserHandler.Update)

		// Onboarding endpoints stay reachable in every authenticated state
		// so a partially onboarded user can always resume.
		r.Route("/onboarding", func(r chi.Router) {
			r.With(clixmw.GateMiddleware(cfg.Store, gate.RouteOnboardingProfile)).
				Post("/profile", cfg.OnboardingHandler.SetupProfile)
			r.With(clixmw.GateMiddleware(cfg.Store, gate.RouteOnboardingTheme)).
				Post("/theme", cfg.OnboardingHandler.ChooseTheme)
		})
		r.With(clixmw.GateMiddleware(cfg.Store, gate.RouteOnboardingProfile)).
			Get("/username/check", cfg.OnboardingHandler.CheckUsername)

		// Everything below renders the home surface: the gate redirects to
		// the pending onboarding step until the profile is complete.
		r.Group(func(r chi.Router) {
			r.Use(clixmw.GateMiddleware(cfg.Store, gate.RouteHome))

			r.Get("/feed", cfg.PostHandler.GetFeed)
			r.Post("/posts", cfg.PostHandler.Create)
			r.Post("/posts/{id}/like", cfg.PostHandler.ToggleLike)

			r.Route("/uploads", func(r chi.Router) {
				r.Post("/", cfg.UploadHandler.Create)
				r.Get("/{id}", cfg.UploadHandler.Get)
				r.Post("/{id}/retry", cfg.UploadHandler.Retry)
				r.Delete("/{id}", cfg.UploadHandler.Delete)
			})

			r.Get("/explore/search", cfg.ExploreHandler.Search)
			r.Get("/explore/trends", cfg.ExploreHandler.Trending)

			r.Get("/notifications", cfg.NotificationHandler.List)
		})
	})

	return r
}
