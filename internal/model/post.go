package model

import (
	"errors"
	"time"
)

// Post is a feed entry. Author display fields are snapshotted at creation
// time, not live-joined against the user record. Posts are mutated in place
// by reaction updates and never deleted.
type Post struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	AuthorName     string    `json:"author_name"`
	AuthorUsername string    `json:"author_username"`
	AuthorAvatar   string    `json:"author_avatar"`
	Content        string    `json:"content"`
	MediaURL       string    `json:"media_url,omitempty"`
	Link           string    `json:"link,omitempty"`
	Likes          int       `json:"likes"`
	Replies        int       `json:"replies"`
	Reposts        int       `json:"reposts"`
	CreatedAt      time.Time `json:"created_at"`

	// HasLiked is a per-client optimistic annotation for the single logical
	// viewer on this device, not authoritative cross-user state.
	HasLiked bool `json:"has_liked"`
}

// CreatePostRequest is the request body for composing a post. MediaURL must
// come from a completed upload session; text-only or link-only posts bypass
// the upload pipeline entirely.
type CreatePostRequest struct {
	Content  string `json:"content"`
	MediaURL string `json:"media_url,omitempty"`
	Link     string `json:"link,omitempty"`
	UploadID string `json:"upload_id,omitempty"`
}

// MaxPostContentLength caps post text length.
const MaxPostContentLength = 2200

var (
	// ErrPostNotFound is returned when a post id is not in the collection.
	ErrPostNotFound = errors.New("post not found")

	// ErrEmptyPost is returned when a post carries no content, media or link.
	ErrEmptyPost = errors.New("post needs text, media or a link")

	// ErrContentTooLong is returned when post text exceeds the cap.
	ErrContentTooLong = errors.New("post content too long")

	// ErrUploadNotReady is returned when a post references an upload session
	// that has not reported success.
	ErrUploadNotReady = errors.New("media upload has not completed")
)
