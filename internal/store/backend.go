package store

import "context"

// Slot names for the four persisted records. Each slot is (de)serialized as
// a whole JSON document on every access; there is no partial access.
const (
	SlotUser          = "clix:user"
	SlotPosts         = "clix:posts"
	SlotNotifications = "clix:notifications"
	SlotUsernames     = "clix:registered_usernames"
)

// Backend is the raw slot storage under the store. Implementations only
// move opaque bytes; all domain logic lives in Store.
type Backend interface {
	// Load returns the slot contents, or found=false when the slot has
	// never been written (or was deleted).
	Load(ctx context.Context, slot string) (data []byte, found bool, err error)

	// Save overwrites the slot contents.
	Save(ctx context.Context, slot string, data []byte) error

	// Delete removes the slot entirely.
	Delete(ctx context.Context, slot string) error

	Close() error
}
