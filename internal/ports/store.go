// Package ports declares the narrow interfaces the application depends on.
// Adapters live in subpackages.
package ports

import (
	"context"
	"errors"

	"thirteen/internal/domain"
)

// ErrVersionConflict is returned by TourneyStore.Save when the snapshot was
// modified since it was loaded.
var ErrVersionConflict = errors.New("tourney snapshot version conflict")

// ConnectionRecord binds a transport connection to a player identity.
type ConnectionRecord struct {
	ConnectionID string `json:"connectionId"`
	PlayerID     string `json:"playerId"`
	PlayerName   string `json:"playerName"`
	ConnectedAt  int64  `json:"connectedAt"`
	LastPing     int64  `json:"lastPing"`
	TTL          int64  `json:"ttl"`
}

// TourneyStore persists the singleton tournament snapshot with optimistic
// concurrency. Load returns an opaque version token; Save succeeds only if
// the stored snapshot still carries that version. A missing snapshot loads
// as (nil, "", nil).
type TourneyStore interface {
	Load(ctx context.Context) (*domain.Tourney, string, error)
	Save(ctx context.Context, t *domain.Tourney, version string) (string, error)
	Delete(ctx context.Context) error
}

// ConnectionStore is the connection registry.
type ConnectionStore interface {
	Put(ctx context.Context, rec *ConnectionRecord) error
	Get(ctx context.Context, connectionID string) (*ConnectionRecord, error)
	Delete(ctx context.Context, connectionID string) error
	All(ctx context.Context) ([]*ConnectionRecord, error)
	// ReapExpired deletes records whose TTL is in the past and returns how
	// many were removed.
	ReapExpired(ctx context.Context, now int64) (int, error)
}
