package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrDisabled  = errors.New("storage disabled")
	ErrMalformed = errors.New("malformed fulfiller store")
)

// Store is the persistence API used by the registry and the audit trail.
//
// LoadFulfillers returns (nil, nil) when nothing has been saved yet.
// SaveFulfillers overwrites the whole set.
type Store interface {
	LoadFulfillers(ctx context.Context) ([]int64, error)
	SaveFulfillers(ctx context.Context, ids []int64) error
	AppendAudit(ctx context.Context, e AuditEntry) error
	Close() error
}

// Config configures storage.
//
// Driver values:
//   - "file": JSON array file at Path, audit log next to it
//   - "sqlite": SQLite database file at Path
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// AuditEntry records an operator action or a dispatch outcome.
// Keep it compact and schema-stable.
type AuditEntry struct {
	At            time.Time `json:"at"`
	ActorID       int64     `json:"actor_id,omitempty"`
	ActorUsername string    `json:"actor_username,omitempty"`
	ChatID        int64     `json:"chat_id,omitempty"`
	Action        string    `json:"action"`
	Target        string    `json:"target,omitempty"`
	OK            int       `json:"ok"`
	Fail          int       `json:"fail"`
	Error         string    `json:"err,omitempty"`
	TookMS        int64     `json:"took_ms,omitempty"`
}
