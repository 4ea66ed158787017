// Package upload implements the client-side media transfer state machine:
// synchronous validation, an immediate local preview, simulated chunked
// transfer with injectable failure, and explicit retry/reset.
package upload

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"clix/internal/model"
)

// Status is the session state.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusUploading Status = "uploading"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
)

// ErrTransferInterrupted is the message shown when the simulated transfer
// fails at the finish line.
const ErrTransferInterrupted = "Network interrupted. Tap to retry."

// FailurePolicy decides whether a transfer that reached 100% resolves to
// success or to a simulated interruption. Injectable so tests force either
// path deterministically.
type FailurePolicy interface {
	Interrupt() bool
}

// RandomFailure interrupts with the given probability. The production
// default is 0.05, which exists specifically to exercise the retry path.
type RandomFailure struct {
	Rate float64
}

func (r RandomFailure) Interrupt() bool {
	return rand.Float64() < r.Rate
}

// NeverFail always resolves to success.
type NeverFail struct{}

func (NeverFail) Interrupt() bool { return false }

// AlwaysFail always resolves to an interruption.
type AlwaysFail struct{}

func (AlwaysFail) Interrupt() bool { return true }

// Previewer synthesizes a local preview reference for an accepted asset and
// releases it when the session resets.
type Previewer interface {
	Preview(data []byte, contentType string) (string, error)
	Release(ref string)
}

// Sink publishes the bytes of a successfully transferred asset and returns
// the public media reference. Optional: without a sink the preview reference
// doubles as the media reference.
type Sink interface {
	Publish(ctx context.Context, data []byte, contentType string) (model.UploadResult, error)
}

// Snapshot is a point-in-time copy of a session's observable state.
type Snapshot struct {
	ID         string `json:"id"`
	Status     Status `json:"status"`
	Progress   int    `json:"progress"`
	Error      string `json:"error,omitempty"`
	PreviewURL string `json:"preview_url,omitempty"`
	MediaURL   string `json:"media_url,omitempty"`
}

// Session is one composition's upload. It is created when the user picks an
// asset and destroyed when the composer submits, cancels or resets.
type Session struct {
	mu sync.Mutex

	id          string
	contentType string
	data        []byte // retained so retry never needs re-selection
	validated   bool

	status     Status
	progress   int
	errMsg     string
	previewURL string
	mediaURL   string

	tick      time.Duration
	policy    FailurePolicy
	previewer Previewer
	sink      Sink

	cancel context.CancelFunc
}

// Manager owns the live sessions of one context.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	tick      time.Duration
	policy    FailurePolicy
	previewer Previewer
	sink      Sink
}

// NewManager wires the pipeline collaborators. sink may be nil.
func NewManager(tick time.Duration, policy FailurePolicy, previewer Previewer, sink Sink) *Manager {
	return &Manager{
		sessions:  make(map[string]*Session),
		tick:      tick,
		policy:    policy,
		previewer: previewer,
		sink:      sink,
	}
}

// Create validates the asset and, when it is acceptable, synthesizes the
// preview and starts the simulated transfer. Validation failures are
// returned to the caller with the session in the error state, but the
// session is never registered: only accepted assets are reachable by id.
func (m *Manager) Create(ctx context.Context, contentType string, size int64, data []byte) (*Session, error) {
	s := &Session{
		id:          uuid.NewString(),
		contentType: contentType,
		status:      StatusIdle,
		tick:        m.tick,
		policy:      m.policy,
		previewer:   m.previewer,
		sink:        m.sink,
	}

	if !model.IsAllowedMediaType(contentType) {
		s.fail(model.ErrInvalidMediaType.Error())
		log.Printf("[Upload] Rejected: session=%s type=%s", s.id, contentType)
		return s, model.ErrInvalidMediaType
	}
	if size > model.MaxMediaSizeBytes {
		s.fail(model.ErrFileTooLarge.Error())
		log.Printf("[Upload] Rejected: session=%s size=%d", s.id, size)
		return s, model.ErrFileTooLarge
	}

	s.data = data
	s.validated = true

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	// Preview before any transfer work so the composer never waits on the
	// simulated network to show something.
	if ref, err := m.previewer.Preview(data, contentType); err != nil {
		log.Printf("[Upload] Preview failed: session=%s err=%v", s.id, err)
	} else {
		s.mu.Lock()
		s.previewURL = ref
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.startTransferLocked(ctx)
	s.mu.Unlock()
	return s, nil
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove resets the session and forgets it. Used for cancel: the preview
// reference is released.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Reset()
	}
}

// Complete forgets the session without releasing the preview. Used on post
// submission, where the media reference must outlive the session.
func (m *Manager) Complete(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.mu.Lock()
		cancel := s.cancel
		s.cancel = nil
		s.data = nil
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Snapshot returns the observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:         s.id,
		Status:     s.status,
		Progress:   s.progress,
		Error:      s.errMsg,
		PreviewURL: s.previewURL,
		MediaURL:   s.mediaURL,
	}
}

// MediaURL returns the published reference, valid only after success.
func (s *Session) MediaURL() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusSuccess {
		return "", false
	}
	if s.mediaURL != "" {
		return s.mediaURL, true
	}
	return s.previewURL, true
}

// Retry re-runs the transfer on the retained source asset without
// re-validating. Only a transfer interruption is retryable. The status flip
// to uploading happens under the same lock as the check, so racing retries
// cannot both start a transfer.
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	if s.status != StatusError || !s.validated {
		s.mu.Unlock()
		return model.ErrUploadNotReady
	}
	s.startTransferLocked(ctx)
	s.mu.Unlock()

	log.Printf("[Upload] Retry: session=%s", s.id)
	return nil
}

// Reset cancels any in-flight transfer, releases the preview reference and
// returns the session to idle. Valid from any state.
func (s *Session) Reset() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	preview := s.previewURL
	s.previewURL = ""
	s.mediaURL = ""
	s.data = nil
	s.validated = false
	s.status = StatusIdle
	s.progress = 0
	s.errMsg = ""
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if preview != "" && s.previewer != nil {
		s.previewer.Release(preview)
	}
}

func (s *Session) fail(msg string) {
	s.mu.Lock()
	s.status = StatusError
	s.errMsg = msg
	s.mu.Unlock()
}

// startTransferLocked moves the session to uploading and drives progress on
// the tick interval until a terminal state. The caller holds s.mu. The
// transfer must outlive the request that started it, so the caller's
// cancellation is stripped; teardown happens only through Reset, which
// tears the whole session down.
func (s *Session) startTransferLocked(ctx context.Context) {
	transferCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	s.cancel = cancel
	s.status = StatusUploading
	s.progress = 0
	s.errMsg = ""

	go s.runTransfer(transferCtx)
}

func (s *Session) runTransfer(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			// Random increment of 5-20 points per tick.
			s.progress += rand.Intn(16) + 5
			if s.progress < 100 {
				s.mu.Unlock()
				continue
			}
			s.progress = 100
			s.mu.Unlock()

			s.resolve(ctx)
			return
		}
	}
}

// resolve decides the terminal state once progress hits 100.
func (s *Session) resolve(ctx context.Context) {
	if s.policy.Interrupt() {
		s.fail(ErrTransferInterrupted)
		log.Printf("[Upload] Transfer interrupted: session=%s", s.id)
		return
	}

	if s.sink != nil {
		s.mu.Lock()
		data, contentType := s.data, s.contentType
		s.mu.Unlock()

		res, err := s.sink.Publish(ctx, data, contentType)
		if err != nil {
			// Sink trouble is a transient failure like any other: the source
			// is retained, retry stays available.
			s.fail(ErrTransferInterrupted)
			log.Printf("[Upload] Sink publish failed: session=%s err=%v", s.id, err)
			return
		}
		s.mu.Lock()
		s.mediaURL = res.URL
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.status = StatusSuccess
	s.mu.Unlock()
	log.Printf("[Upload] Transfer complete: session=%s", s.id)
}
