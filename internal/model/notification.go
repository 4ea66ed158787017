package model

import "time"

// Notification types
const (
	NotificationTypeLike    = "like"
	NotificationTypeReply   = "reply"
	NotificationTypeMention = "mention"
	NotificationTypeSystem  = "system"
)

// Notification is a single entry in the notification list slot.
type Notification struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"` // like, reply, mention, system
	UserID     string    `json:"user_id"`
	FromName   string    `json:"from_name"`
	FromAvatar string    `json:"from_avatar"`
	Content    string    `json:"content"`
	PostID     string    `json:"post_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
