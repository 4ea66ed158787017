package bus

import (
	"log"
	"sync"
)

// Handler receives every envelope visible to this context, including the
// ones it broadcast itself.
type Handler func(Envelope)

// Bus is the per-context event bus. Broadcast delivers synchronously to the
// local subscriber set in the same call, then hands the envelope to the
// cross-context channel; the originating context never waits for its own
// round trip. Delivery is FIFO per source context, with no ack, retry, or
// replay of missed events.
type Bus interface {
	// Subscribe registers a handler and returns its unsubscribe func.
	Subscribe(h Handler) (unsubscribe func())

	// Broadcast wraps payload in an envelope and delivers it.
	Broadcast(eventType string, payload interface{}) error

	// Close detaches from the cross-context channel.
	Close() error
}

// subscribers is the shared local fan-out used by every Bus implementation.
type subscribers struct {
	mu   sync.RWMutex
	next int
	set  map[int]Handler
}

func newSubscribers() *subscribers {
	return &subscribers{set: make(map[int]Handler)}
}

func (s *subscribers) add(h Handler) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.set[id] = h
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.set, id)
		s.mu.Unlock()
	}
}

// dispatch invokes every registered handler in the caller's goroutine.
func (s *subscribers) dispatch(e Envelope) {
	s.mu.RLock()
	handlers := make([]Handler, 0, len(s.set))
	for _, h := range s.set {
		handlers = append(handlers, h)
	}
	s.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

// MemoryBroker links the memory buses of contexts running in one process.
// Broadcasting on any attached bus delivers to every other attached bus in
// the same call, which keeps per-source ordering trivially intact.
type MemoryBroker struct {
	mu    sync.RWMutex
	buses map[string]*MemoryBus
}

// NewMemoryBroker creates an empty broker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{buses: make(map[string]*MemoryBus)}
}

// Attach creates a bus for the named context and links it to the broker.
func (b *MemoryBroker) Attach(contextID string) *MemoryBus {
	mb := &MemoryBus{
		contextID: contextID,
		broker:    b,
		subs:      newSubscribers(),
	}
	b.mu.Lock()
	b.buses[contextID] = mb
	b.mu.Unlock()
	return mb
}

func (b *MemoryBroker) fanOut(e Envelope) {
	b.mu.RLock()
	others := make([]*MemoryBus, 0, len(b.buses))
	for id, mb := range b.buses {
		if id != e.Origin {
			others = append(others, mb)
		}
	}
	b.mu.RUnlock()

	for _, mb := range others {
		mb.subs.dispatch(e)
	}
}

func (b *MemoryBroker) detach(contextID string) {
	b.mu.Lock()
	delete(b.buses, contextID)
	b.mu.Unlock()
}

// MemoryBus is the in-process Bus used when all contexts live in one
// process, and by tests.
type MemoryBus struct {
	contextID string
	broker    *MemoryBroker
	subs      *subscribers
}

// NewMemoryBus creates a standalone bus with no cross-context channel.
// Events still reach the local subscribers synchronously.
func NewMemoryBus(contextID string) *MemoryBus {
	return &MemoryBus{contextID: contextID, subs: newSubscribers()}
}

func (m *MemoryBus) Subscribe(h Handler) func() {
	return m.subs.add(h)
}

func (m *MemoryBus) Broadcast(eventType string, payload interface{}) error {
	e, err := NewEnvelope(eventType, m.contextID, payload)
	if err != nil {
		return err
	}

	// Local subscribers first, in the broadcasting call.
	m.subs.dispatch(e)

	if m.broker != nil {
		m.broker.fanOut(e)
	}
	log.Printf("[Bus] Broadcast OK: ctx=%s type=%s", m.contextID, eventType)
	return nil
}

func (m *MemoryBus) Close() error {
	if m.broker != nil {
		m.broker.detach(m.contextID)
	}
	return nil
}
