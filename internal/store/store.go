package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"clix/internal/bus"
	"clix/internal/model"
)

// Store is the durable state holder shared by every context. Every mutation
// that other contexts care about is announced on the bus from here, so
// writers never have to remember to broadcast.
//
// Operations are atomic with respect to this context (one mutex serializes
// local read-modify-write cycles). There is no cross-context isolation:
// concurrent writers in separate processes resolve last-write-wins, which is
// the accepted design point for a single logical user.
type Store struct {
	mu      sync.Mutex
	backend Backend
	bus     bus.Bus
}

// New creates a store over the given backend. The bus receives NEW_POST,
// LIKE_UPDATE and NOTIFICATION events as a side effect of saves.
func New(backend Backend, eventBus bus.Bus) *Store {
	return &Store{backend: backend, bus: eventBus}
}

// GetUser loads the current user record, or model.ErrUserNotFound if no one
// is logged in on this device.
func (s *Store) GetUser(ctx context.Context) (*model.User, error) {
	data, found, err := s.backend.Load(ctx, SlotUser)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, model.ErrUserNotFound
	}
	var u model.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("decode user slot: %w", err)
	}
	return &u, nil
}

// SaveUser persists the whole user record. A non-empty username is synced
// into the registry so uniqueness holds across re-logins.
func (s *Store) SaveUser(ctx context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.backend.Save(ctx, SlotUser, data); err != nil {
		return err
	}
	if u.Username != "" {
		if err := s.registerUsernameLocked(ctx, u.Username, u.ID); err != nil {
			return err
		}
	}
	log.Printf("[Store] SaveUser OK: user=%s username=%q", u.ID, u.Username)
	return nil
}

// GetPosts returns the post collection newest first, seeding the slot with
// the fixed sample content on first access.
func (s *Store) GetPosts(ctx context.Context) ([]model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getPostsLocked(ctx)
}

func (s *Store) getPostsLocked(ctx context.Context) ([]model.Post, error) {
	data, found, err := s.backend.Load(ctx, SlotPosts)
	if err != nil {
		return nil, err
	}
	if !found {
		posts := SeedPosts()
		if err := s.savePostsLocked(ctx, posts); err != nil {
			return nil, err
		}
		log.Printf("[Store] Seeded %d sample posts", len(posts))
		return posts, nil
	}
	var posts []model.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, fmt.Errorf("decode posts slot: %w", err)
	}
	return posts, nil
}

func (s *Store) savePostsLocked(ctx context.Context, posts []model.Post) error {
	data, err := json.Marshal(posts)
	if err != nil {
		return fmt.Errorf("encode posts: %w", err)
	}
	return s.backend.Save(ctx, SlotPosts, data)
}

// SavePost prepends the post, persists the collection, and broadcasts
// NEW_POST so other contexts fold it into their views.
func (s *Store) SavePost(ctx context.Context, p model.Post) error {
	s.mu.Lock()
	posts, err := s.getPostsLocked(ctx)
	if err == nil {
		posts = append([]model.Post{p}, posts...)
		err = s.savePostsLocked(ctx, posts)
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if err := s.bus.Broadcast(bus.EventNewPost, p); err != nil {
		log.Printf("[Store] SavePost broadcast failed: post=%s err=%v", p.ID, err)
	}
	log.Printf("[Store] SavePost OK: post=%s author=%s", p.ID, p.AuthorUsername)
	return nil
}

// UpdatePost replaces the post with the same id and broadcasts LIKE_UPDATE
// carrying the new counters.
func (s *Store) UpdatePost(ctx context.Context, p model.Post) error {
	s.mu.Lock()
	posts, err := s.getPostsLocked(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	replaced := false
	for i := range posts {
		if posts[i].ID == p.ID {
			posts[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		s.mu.Unlock()
		return model.ErrPostNotFound
	}
	err = s.savePostsLocked(ctx, posts)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	payload := bus.LikeUpdatePayload{PostID: p.ID, Likes: p.Likes, HasLiked: p.HasLiked}
	if err := s.bus.Broadcast(bus.EventLikeUpdate, payload); err != nil {
		log.Printf("[Store] UpdatePost broadcast failed: post=%s err=%v", p.ID, err)
	}
	log.Printf("[Store] UpdatePost OK: post=%s likes=%d hasLiked=%v", p.ID, p.Likes, p.HasLiked)
	return nil
}

// Normalize lowercases and trims a username the way the registry keys it.
func Normalize(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// IsUsernameTaken reports whether normalized(name) is owned by a user id
// other than excludingUserID.
func (s *Store) IsUsernameTaken(ctx context.Context, name, excludingUserID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	registry, err := s.registryLocked(ctx)
	if err != nil {
		return false, err
	}
	owner, ok := registry[Normalize(name)]
	return ok && owner != excludingUserID, nil
}

// RegisterUsername claims normalized(name) for userID. Any other entries the
// user holds are compacted away first, so a user id appears in at most one
// entry at any time.
func (s *Store) RegisterUsername(ctx context.Context, name, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registerUsernameLocked(ctx, name, userID)
}

func (s *Store) registerUsernameLocked(ctx context.Context, name, userID string) error {
	registry, err := s.registryLocked(ctx)
	if err != nil {
		return err
	}

	for key, owner := range registry {
		if owner == userID {
			delete(registry, key)
		}
	}
	registry[Normalize(name)] = userID

	if err := s.saveRegistryLocked(ctx, registry); err != nil {
		return err
	}
	log.Printf("[Store] RegisterUsername OK: username=%s user=%s", Normalize(name), userID)
	return nil
}

func (s *Store) registryLocked(ctx context.Context) (map[string]string, error) {
	data, found, err := s.backend.Load(ctx, SlotUsernames)
	if err != nil {
		return nil, err
	}
	if !found {
		registry := seedRegistry()
		if err := s.saveRegistryLocked(ctx, registry); err != nil {
			return nil, err
		}
		return registry, nil
	}
	var registry map[string]string
	if err := json.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("decode username registry: %w", err)
	}
	return registry, nil
}

func (s *Store) saveRegistryLocked(ctx context.Context, registry map[string]string) error {
	data, err := json.Marshal(registry)
	if err != nil {
		return fmt.Errorf("encode username registry: %w", err)
	}
	return s.backend.Save(ctx, SlotUsernames, data)
}

// GetNotifications returns the notification list, newest first. An unwritten
// slot is an empty list, not an error.
func (s *Store) GetNotifications(ctx context.Context) ([]model.Notification, error) {
	data, found, err := s.backend.Load(ctx, SlotNotifications)
	if err != nil {
		return nil, err
	}
	if !found {
		return []model.Notification{}, nil
	}
	var list []model.Notification
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode notifications slot: %w", err)
	}
	return list, nil
}

// AddNotification prepends the notification, persists the list, and
// broadcasts NOTIFICATION.
func (s *Store) AddNotification(ctx context.Context, n model.Notification) error {
	s.mu.Lock()
	list, err := s.GetNotifications(ctx)
	if err == nil {
		list = append([]model.Notification{n}, list...)
		var data []byte
		if data, err = json.Marshal(list); err != nil {
			err = fmt.Errorf("encode notifications: %w", err)
		} else {
			err = s.backend.Save(ctx, SlotNotifications, data)
		}
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if err := s.bus.Broadcast(bus.EventNotification, n); err != nil {
		log.Printf("[Store] AddNotification broadcast failed: id=%s err=%v", n.ID, err)
	}
	return nil
}

// ClearAll removes the user, post and notification slots on logout. The
// username registry intentionally survives so identity stays unique across
// future re-logins on this device.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, slot := range []string{SlotUser, SlotPosts, SlotNotifications} {
		if err := s.backend.Delete(ctx, slot); err != nil {
			return err
		}
	}
	log.Printf("[Store] ClearAll OK (registry preserved)")
	return nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
