package middleware

import (
	"errors"
	"log"
	"net/http"

	"clix/internal/gate"
	"clix/internal/httputil"
	"clix/internal/model"
	"clix/internal/store"
)

// GateMiddleware evaluates the access gate on every request to a guarded
// destination. route is the logical destination the wrapped handlers render;
// when the computed state does not permit it, the response is a redirect
// instead of the protected content.
func GateMiddleware(st *store.Store, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := st.GetUser(r.Context())
			if err != nil && !errors.Is(err, model.ErrUserNotFound) {
				log.Printf("[Gate] User lookup failed: route=%s err=%v", route, err)
				httputil.WriteInternalError(w, "Failed to evaluate access")
				return
			}

			state := gate.Evaluate(user)
			decision := gate.Resolve(state, route)
			if !decision.Allow {
				log.Printf("[Gate] Redirect: route=%s state=%s to=%s", route, state, decision.RedirectTo)
				httputil.WriteRedirect(w, decision.RedirectTo)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
