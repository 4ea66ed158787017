// Package username implements the debounced availability validator used
// during profile setup.
package username

import (
	"context"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Status of the validator after the latest keystroke.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusInvalid   Status = "invalid"
	StatusChecking  Status = "checking"
	StatusAvailable Status = "available"
	StatusTaken     Status = "taken"
)

// Messages surfaced alongside invalid/taken states.
const (
	msgBadFormat   = "3-20 chars: a-z, 0-9, _ only"
	msgTaken       = "This username is already taken"
	msgCheckFailed = "Could not check availability, try again"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,20}$`)

// Checker answers registry availability queries. *store.Store satisfies it.
type Checker interface {
	IsUsernameTaken(ctx context.Context, name, excludingUserID string) (bool, error)
}

// Result is the observable validator state.
type Result struct {
	Status   Status `json:"status"`
	Message  string `json:"message,omitempty"`
	Username string `json:"username"`
}

// Validator debounces per-keystroke input and runs at most one registry
// check per settled value. A new keystroke inside the debounce window
// cancels the pending check, and a check that was already in flight can
// never overwrite the state a newer keystroke produced.
type Validator struct {
	mu    sync.Mutex
	gen   uint64
	timer *time.Timer
	state Result

	checker  Checker
	userID   string
	debounce time.Duration
	onChange func(Result)
}

// New creates a validator for the given user id. onChange may be nil; when
// set it fires on every state transition.
func New(checker Checker, userID string, debounce time.Duration, onChange func(Result)) *Validator {
	return &Validator{
		checker:  checker,
		userID:   userID,
		debounce: debounce,
		onChange: onChange,
		state:    Result{Status: StatusIdle},
	}
}

// Input feeds one keystroke's worth of input. Format failures settle
// synchronously without touching the registry; well-formed input moves to
// checking and schedules the debounced registry query.
func (v *Validator) Input(raw string) {
	clean := strings.ToLower(strings.TrimSpace(raw))

	v.mu.Lock()
	v.gen++
	gen := v.gen
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}

	switch {
	case clean == "":
		v.setLocked(Result{Status: StatusIdle})
	case !usernamePattern.MatchString(clean):
		v.setLocked(Result{Status: StatusInvalid, Message: msgBadFormat, Username: clean})
	default:
		v.setLocked(Result{Status: StatusChecking, Username: clean})
		v.timer = time.AfterFunc(v.debounce, func() {
			v.check(gen, clean)
		})
	}
	v.mu.Unlock()
}

// check runs the registry query for a settled value. The generation guard
// drops the result if any newer keystroke arrived while we were waiting or
// querying.
func (v *Validator) check(gen uint64, clean string) {
	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		return
	}
	v.mu.Unlock()

	taken, err := v.checker.IsUsernameTaken(context.Background(), clean, v.userID)

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		return // superseded while the query ran
	}

	switch {
	case err != nil:
		log.Printf("[Username] Check failed: username=%s err=%v", clean, err)
		v.setLocked(Result{Status: StatusInvalid, Message: msgCheckFailed, Username: clean})
	case taken:
		v.setLocked(Result{Status: StatusTaken, Message: msgTaken, Username: clean})
	default:
		v.setLocked(Result{Status: StatusAvailable, Username: clean})
	}
}

func (v *Validator) setLocked(r Result) {
	v.state = r
	if v.onChange != nil {
		v.onChange(r)
	}
}

// State returns the current validator state.
func (v *Validator) State() Result {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Close cancels any pending check.
func (v *Validator) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
}

// ValidFormat reports whether a username passes the format rule after
// normalization. Used by handlers for synchronous validation.
func ValidFormat(raw string) bool {
	return usernamePattern.MatchString(strings.ToLower(strings.TrimSpace(raw)))
}
