// Package gate decides which destination a context may render based on the
// completeness of the current user record, and where to redirect otherwise.
package gate

import "clix/internal/model"

// State is the computed access level, evaluated on every navigation attempt.
type State int

const (
	// Unauthenticated means no user record exists; only login is rendered.
	Unauthenticated State = iota

	// OnboardingProfile means a user exists but name, username or date of
	// birth is missing.
	OnboardingProfile

	// OnboardingTheme means the profile is complete but the user has not
	// explicitly finished theme selection.
	OnboardingTheme

	// Active means the user can reach all normal destinations.
	Active
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case OnboardingProfile:
		return "onboarding_profile"
	case OnboardingTheme:
		return "onboarding_theme"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// Well-known destinations.
const (
	RouteLogin             = "/login"
	RouteHome              = "/"
	RouteOnboardingProfile = "/onboarding/profile"
	RouteOnboardingTheme   = "/onboarding/theme"
)

// Evaluate computes the access state from the user record. A nil user is
// unauthenticated.
func Evaluate(u *model.User) State {
	switch {
	case u == nil:
		return Unauthenticated
	case u.PendingProfile():
		return OnboardingProfile
	case !u.OnboardingCompleted:
		return OnboardingTheme
	default:
		return Active
	}
}

// Destination is where a state's redirect points.
func Destination(s State) string {
	switch s {
	case Unauthenticated:
		return RouteLogin
	case OnboardingProfile:
		return RouteOnboardingProfile
	case OnboardingTheme:
		return RouteOnboardingTheme
	default:
		return RouteHome
	}
}

// Decision is the outcome of resolving a navigation attempt.
type Decision struct {
	Allow      bool
	RedirectTo string
}

// Resolve applies the transition rules to a requested route. The two
// onboarding destinations are self-targets of the redirect and stay
// reachable in any authenticated state; everything else must match the
// computed state or get redirected.
func Resolve(state State, route string) Decision {
	if state == Unauthenticated {
		if route == RouteLogin {
			return Decision{Allow: true}
		}
		return Decision{RedirectTo: RouteLogin}
	}

	switch route {
	case RouteLogin:
		// Already logged in; bounce to wherever the state points.
		return Decision{RedirectTo: Destination(state)}
	case RouteOnboardingProfile, RouteOnboardingTheme:
		return Decision{Allow: true}
	}

	if state == Active {
		return Decision{Allow: true}
	}
	return Decision{RedirectTo: Destination(state)}
}
