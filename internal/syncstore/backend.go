// Package syncstore implements the remote side of the synchronization wire
// contract: one authoritative stored snapshot, a bounded rolling backup
// history, and a global lock serializing every request.
package syncstore

import (
	"context"
	"time"
)

// StoredSnapshot is the remote's unit of storage: an opaque payload token
// plus the moment it was accepted.
type StoredSnapshot struct {
	Payload  string    `json:"payload"`
	StoredAt time.Time `json:"storedAt"`
}

// Backend is the persistence strategy behind the store service.
type Backend interface {
	// Load returns the current snapshot; found is false when nothing has
	// been pushed yet.
	Load(ctx context.Context) (snap StoredSnapshot, found bool, err error)
	// Save replaces the current snapshot.
	Save(ctx context.Context, snap StoredSnapshot) error
	// PushBackup prepends snap to the backup history, evicting the oldest
	// entries beyond limit.
	PushBackup(ctx context.Context, snap StoredSnapshot, limit int) error
	// Backups returns the history, newest first.
	Backups(ctx context.Context) ([]StoredSnapshot, error)
}
