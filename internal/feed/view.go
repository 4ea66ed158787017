// Package feed holds the per-context view of the post collection and the
// optimistic mutation protocol that keeps views across contexts eventually
// consistent.
package feed

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"clix/internal/bus"
	"clix/internal/model"
	"clix/internal/store"
)

// View is one context's in-memory copy of the feed. UI-facing mutations are
// applied locally first for zero-latency feedback, then persisted through
// the store, whose broadcast loops back through Apply on every context
// (including this one, where the dedupe/overwrite rules make it a no-op).
type View struct {
	mu    sync.Mutex
	posts []model.Post

	store         *store.Store
	commitLatency time.Duration
	unsubscribe   func()
}

// NewView loads the current post collection and subscribes to the bus.
// Call Close to detach.
func NewView(ctx context.Context, st *store.Store, b bus.Bus, commitLatency time.Duration) (*View, error) {
	v := &View{store: st, commitLatency: commitLatency}
	if err := v.Refresh(ctx); err != nil {
		return nil, err
	}
	v.unsubscribe = b.Subscribe(v.Apply)
	return v, nil
}

// Refresh re-derives the view from the store. A context that was closed
// while events fired never sees them; this is its recovery path.
func (v *View) Refresh(ctx context.Context) error {
	posts, err := v.store.GetPosts(ctx)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.posts = posts
	v.mu.Unlock()
	return nil
}

// Posts returns a copy of the cached feed, newest first.
func (v *View) Posts() []model.Post {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]model.Post, len(v.posts))
	copy(out, v.posts)
	return out
}

// ToggleLike flips the viewer's like on a post. The local cache is updated
// before the store write so the UI never waits on persistence; the resulting
// LIKE_UPDATE broadcast then overwrites every context's cache, including
// ours, with the same values.
func (v *View) ToggleLike(ctx context.Context, postID string) (model.Post, error) {
	v.mu.Lock()
	var updated model.Post
	found := false
	for i := range v.posts {
		if v.posts[i].ID == postID {
			p := &v.posts[i]
			p.HasLiked = !p.HasLiked
			if p.HasLiked {
				p.Likes++
			} else if p.Likes > 0 {
				p.Likes--
			}
			updated = *p
			found = true
			break
		}
	}
	v.mu.Unlock()

	if !found {
		return model.Post{}, model.ErrPostNotFound
	}

	if err := v.store.UpdatePost(ctx, updated); err != nil {
		return model.Post{}, err
	}
	return updated, nil
}

// CreatePost composes a post for the user, with author display fields
// snapshotted at creation time. The commit is delayed by the configured
// latency (cancellable through ctx) before the store persists and
// broadcasts; the view's own subscription then inserts it.
func (v *View) CreatePost(ctx context.Context, user *model.User, req model.CreatePostRequest) (model.Post, error) {
	content := req.Content
	if content == "" && req.MediaURL == "" && req.Link == "" {
		return model.Post{}, model.ErrEmptyPost
	}
	if len(content) > model.MaxPostContentLength {
		return model.Post{}, model.ErrContentTooLong
	}

	post := model.Post{
		ID:             "p" + uuid.NewString(),
		UserID:         user.ID,
		AuthorName:     user.Name,
		AuthorUsername: user.Username,
		AuthorAvatar:   user.AvatarURL,
		Content:        content,
		MediaURL:       req.MediaURL,
		Link:           req.Link,
		CreatedAt:      time.Now(),
	}

	if v.commitLatency > 0 {
		select {
		case <-time.After(v.commitLatency):
		case <-ctx.Done():
			return model.Post{}, ctx.Err()
		}
	}

	if err := v.store.SavePost(ctx, post); err != nil {
		return model.Post{}, err
	}
	return post, nil
}

// Apply folds a bus envelope into the cached feed. It runs for every event
// visible to this context, mutator included, so both arms are idempotent:
// NEW_POST dedupes by id, LIKE_UPDATE overwrites unconditionally.
func (v *View) Apply(e bus.Envelope) {
	switch e.Type {
	case bus.EventNewPost:
		post, err := e.Post()
		if err != nil {
			log.Printf("[Feed] Drop bad NEW_POST: %v", err)
			return
		}
		v.mu.Lock()
		if !v.holds(post.ID) {
			v.posts = append([]model.Post{post}, v.posts...)
		}
		v.mu.Unlock()

	case bus.EventLikeUpdate:
		upd, err := e.LikeUpdate()
		if err != nil {
			log.Printf("[Feed] Drop bad LIKE_UPDATE: %v", err)
			return
		}
		v.mu.Lock()
		for i := range v.posts {
			if v.posts[i].ID == upd.PostID {
				// Last writer wins: the payload is "the" viewer's state in
				// this single-logical-user model, so no merge.
				v.posts[i].Likes = upd.Likes
				v.posts[i].HasLiked = upd.HasLiked
				break
			}
		}
		v.mu.Unlock()

	case bus.EventRepostUpdate:
		upd, err := e.RepostUpdate()
		if err != nil {
			log.Printf("[Feed] Drop bad REPOST_UPDATE: %v", err)
			return
		}
		v.mu.Lock()
		for i := range v.posts {
			if v.posts[i].ID == upd.PostID {
				v.posts[i].Reposts = upd.Reposts
				break
			}
		}
		v.mu.Unlock()
	}
}

// holds reports whether the view already caches a post id. Caller must hold
// v.mu.
func (v *View) holds(postID string) bool {
	for i := range v.posts {
		if v.posts[i].ID == postID {
			return true
		}
	}
	return false
}

// Close detaches the view from the bus.
func (v *View) Close() {
	if v.unsubscribe != nil {
		v.unsubscribe()
	}
}
