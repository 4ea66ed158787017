package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"clix/internal/model"
)

// Event types carried on the cross-context channel
const (
	EventNewPost      = "NEW_POST"
	EventLikeUpdate   = "LIKE_UPDATE"
	EventRepostUpdate = "REPOST_UPDATE"
	EventNotification = "NOTIFICATION"
)

// Envelope is the wire format of a domain event. Envelopes are transient:
// they exist only on the bus and are never persisted, so a context that was
// not open when one fired re-derives state from the store instead.
type Envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"` // Unix millis at broadcast
	Origin    string          `json:"origin"`    // Broadcasting context id
}

// LikeUpdatePayload carries the authoritative counters after a like toggle.
// Receivers overwrite their cached values unconditionally.
type LikeUpdatePayload struct {
	PostID   string `json:"post_id"`
	Likes    int    `json:"likes"`
	HasLiked bool   `json:"has_liked"`
}

// RepostUpdatePayload carries the repost counter after a repost toggle.
type RepostUpdatePayload struct {
	PostID  string `json:"post_id"`
	Reposts int    `json:"reposts"`
}

// NewEnvelope wraps a payload for broadcast. The payload must be JSON
// serializable; the timestamp is stamped here so all transports agree.
func NewEnvelope(eventType, origin string, payload interface{}) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		Type:      eventType,
		Payload:   data,
		Timestamp: time.Now().UnixMilli(),
		Origin:    origin,
	}, nil
}

// Encode serializes the envelope for the cross-context channel.
func (e Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return data, nil
}

// ParseEnvelope parses an envelope received from the cross-context channel.
func ParseEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if e.Type == "" {
		return Envelope{}, fmt.Errorf("envelope missing type")
	}
	return e, nil
}

// Post decodes a NEW_POST payload.
func (e Envelope) Post() (model.Post, error) {
	var p model.Post
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return model.Post{}, fmt.Errorf("unmarshal post payload: %w", err)
	}
	return p, nil
}

// LikeUpdate decodes a LIKE_UPDATE payload.
func (e Envelope) LikeUpdate() (LikeUpdatePayload, error) {
	var p LikeUpdatePayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return LikeUpdatePayload{}, fmt.Errorf("unmarshal like payload: %w", err)
	}
	return p, nil
}

// RepostUpdate decodes a REPOST_UPDATE payload.
func (e Envelope) RepostUpdate() (RepostUpdatePayload, error) {
	var p RepostUpdatePayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return RepostUpdatePayload{}, fmt.Errorf("unmarshal repost payload: %w", err)
	}
	return p, nil
}

// Notification decodes a NOTIFICATION payload.
func (e Envelope) Notification() (model.Notification, error) {
	var n model.Notification
	if err := json.Unmarshal(e.Payload, &n); err != nil {
		return model.Notification{}, fmt.Errorf("unmarshal notification payload: %w", err)
	}
	return n, nil
}
