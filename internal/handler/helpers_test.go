package handler

import (
	"context"
	"sync"
	"testing"
	"time"

	"clix/internal/bus"
	"clix/internal/feed"
	"clix/internal/model"
	"clix/internal/store"
	"clix/internal/upload"
)

// memBackend is a map-backed slot store for handler tests.
type memBackend struct {
	mu    sync.Mutex
	slots map[string][]byte
}

func newMemBackend() *memBackend {
	return &memBackend{slots: make(map[string][]byte)}
}

func (m *memBackend) Load(ctx context.Context, slot string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.slots[slot]
	return data, ok, nil
}

func (m *memBackend) Save(ctx context.Context, slot string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[slot] = data
	return nil
}

func (m *memBackend) Delete(ctx context.Context, slot string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, slot)
	return nil
}

func (m *memBackend) Close() error { return nil }

func newHandlerStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(newMemBackend(), bus.NewMemoryBus("test-ctx"))
}

// newHandlerView builds a store and a live feed view over one memory bus.
func newHandlerView(t *testing.T) (*feed.View, *store.Store) {
	t.Helper()
	b := bus.NewMemoryBus("test-ctx")
	st := store.New(newMemBackend(), b)
	v, err := feed.NewView(context.Background(), st, b, 0)
	if err != nil {
		t.Fatalf("NewView: %v", err)
	}
	t.Cleanup(v.Close)
	return v, st
}

// nullPreviewer satisfies upload.Previewer without touching the filesystem.
type nullPreviewer struct{}

func (nullPreviewer) Preview(data []byte, contentType string) (string, error) {
	return "preview://asset", nil
}

func (nullPreviewer) Release(ref string) {}

func newUploadManager() *upload.Manager {
	return upload.NewManager(time.Millisecond, upload.NeverFail{}, nullPreviewer{}, nil)
}

func activeUser() *model.User {
	return &model.User{
		ID:                  "u9",
		Email:               "me@example.com",
		Name:                "Test User",
		Username:            "test_user",
		DOB:                 "1995-04-12",
		AvatarURL:           "https://picsum.photos/seed/test/200",
		Theme:               model.ThemeDark,
		OnboardingCompleted: true,
	}
}

func saveUser(t *testing.T, st *store.Store, u *model.User) {
	t.Helper()
	if err := st.SaveUser(context.Background(), u); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}
}
