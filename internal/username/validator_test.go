package username

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type mockChecker struct {
	mu      sync.Mutex
	queries []string
	takenFn func(name string) (bool, error)

	// When set, IsUsernameTaken blocks until the channel is closed. Used to
	// simulate a slow registry query.
	gateCh chan struct{}
}

func (m *mockChecker) IsUsernameTaken(ctx context.Context, name, excludingUserID string) (bool, error) {
	m.mu.Lock()
	m.queries = append(m.queries, name)
	gate := m.gateCh
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if m.takenFn != nil {
		return m.takenFn(name)
	}
	return false, nil
}

func (m *mockChecker) queryLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

const testDebounce = 20 * time.Millisecond

// waitForSettled polls until the validator leaves checking.
func waitForSettled(t *testing.T, v *Validator) Result {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		r := v.State()
		if r.Status != StatusChecking {
			return r
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("validator never settled")
	return Result{}
}

// =============================================================================
// SYNCHRONOUS FORMAT VALIDATION
// =============================================================================

func TestValidator_Input_FormatFailuresSettleWithoutQuery(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Status
	}{
		{name: "empty input", input: "", want: StatusIdle},
		{name: "whitespace only", input: "   ", want: StatusIdle},
		{name: "too short", input: "ab", want: StatusInvalid},
		{name: "too long", input: "this_name_is_way_too_long", want: StatusInvalid},
		{name: "illegal characters", input: "no-dashes!", want: StatusInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := &mockChecker{}
			v := New(checker, "u9", testDebounce, nil)
			defer v.Close()

			v.Input(tt.input)

			// Settled synchronously, no debounce wait.
			r := v.State()
			if r.Status != tt.want {
				t.Errorf("status = %s, want %s", r.Status, tt.want)
			}

			time.Sleep(2 * testDebounce)
			if len(checker.queryLog()) != 0 {
				t.Error("format failures must never reach the registry")
			}
		})
	}
}

func TestValidator_Input_UppercaseNormalizedBeforeFormatCheck(t *testing.T) {
	checker := &mockChecker{}
	v := New(checker, "u9", testDebounce, nil)
	defer v.Close()

	v.Input("  GoodName ")

	r := waitForSettled(t, v)
	if r.Status != StatusAvailable || r.Username != "goodname" {
		t.Errorf("result = %+v, want available goodname", r)
	}
}

// =============================================================================
// DEBOUNCE
// =============================================================================

func TestValidator_RapidTypingRunsOneQuery(t *testing.T) {
	checker := &mockChecker{}
	v := New(checker, "u9", testDebounce, nil)
	defer v.Close()

	// Keystrokes faster than the debounce window.
	v.Input("abc")
	v.Input("abcd")
	v.Input("abcde")

	r := waitForSettled(t, v)
	if r.Status != StatusAvailable || r.Username != "abcde" {
		t.Errorf("result = %+v, want available abcde", r)
	}

	log := checker.queryLog()
	if len(log) != 1 || log[0] != "abcde" {
		t.Errorf("registry queries = %v, want exactly [abcde]", log)
	}
}

func TestValidator_TakenName(t *testing.T) {
	checker := &mockChecker{takenFn: func(string) (bool, error) { return true, nil }}
	v := New(checker, "u9", testDebounce, nil)
	defer v.Close()

	v.Input("ariver")

	if got := v.State().Status; got != StatusChecking {
		t.Errorf("status before debounce = %s, want %s", got, StatusChecking)
	}

	r := waitForSettled(t, v)
	if r.Status != StatusTaken {
		t.Errorf("status = %s, want %s", r.Status, StatusTaken)
	}
	if r.Message == "" {
		t.Error("taken result should carry a message")
	}
}

func TestValidator_QueryErrorSurfacesAsInvalid(t *testing.T) {
	checker := &mockChecker{takenFn: func(string) (bool, error) {
		return false, errors.New("registry unreachable")
	}}
	v := New(checker, "u9", testDebounce, nil)
	defer v.Close()

	v.Input("solid_name")

	r := waitForSettled(t, v)
	if r.Status != StatusInvalid || r.Message == "" {
		t.Errorf("result = %+v, want invalid with message", r)
	}
}

// =============================================================================
// STALE RESULT GUARD
// =============================================================================

func TestValidator_InFlightQueryNeverOverwritesNewerState(t *testing.T) {
	gate := make(chan struct{})
	checker := &mockChecker{gateCh: gate}
	v := New(checker, "u9", testDebounce, nil)
	defer v.Close()

	// Let the first value settle and its query start, then hold the query
	// open while a newer keystroke arrives.
	v.Input("first_name")
	deadline := time.Now().Add(2 * time.Second)
	for len(checker.queryLog()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first query never started")
		}
		time.Sleep(time.Millisecond)
	}

	v.Input("second-name!") // invalid format, settles synchronously
	close(gate)             // first query now completes, stale

	time.Sleep(2 * testDebounce)
	r := v.State()
	if r.Status != StatusInvalid || r.Username != "second-name!" {
		t.Errorf("result = %+v, stale query must not overwrite the newer state", r)
	}
}

func TestValidator_CloseCancelsPendingCheck(t *testing.T) {
	checker := &mockChecker{}
	v := New(checker, "u9", testDebounce, nil)

	v.Input("abc_def")
	v.Close()

	time.Sleep(3 * testDebounce)
	if got := v.State().Status; got == StatusAvailable {
		t.Error("closed validator should not settle a pending check")
	}
}

// =============================================================================
// STATE CHANGE CALLBACK
// =============================================================================

func TestValidator_OnChangeFiresPerTransition(t *testing.T) {
	var mu sync.Mutex
	var transitions []Status
	onChange := func(r Result) {
		mu.Lock()
		transitions = append(transitions, r.Status)
		mu.Unlock()
	}

	v := New(&mockChecker{}, "u9", testDebounce, onChange)
	defer v.Close()

	v.Input("abc_def")
	waitForSettled(t, v)

	mu.Lock()
	defer mu.Unlock()
	if len(transitions) != 2 || transitions[0] != StatusChecking || transitions[1] != StatusAvailable {
		t.Errorf("transitions = %v, want [checking available]", transitions)
	}
}

func TestValidFormat(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: "abc", want: true},
		{input: "user_9", want: true},
		{input: "  MixedCase ", want: true}, // normalized first
		{input: "ab", want: false},
		{input: "has space", want: false},
		{input: "dash-ed", want: false},
		{input: "", want: false},
	}

	for _, tt := range tests {
		if got := ValidFormat(tt.input); got != tt.want {
			t.Errorf("ValidFormat(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
