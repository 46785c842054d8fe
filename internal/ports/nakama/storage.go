package nakama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"thirteen/internal/domain"
	"thirteen/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const storageListPageSize = 100

// tourneyStore persists the tournament snapshot through Nakama storage.
// Saves are conditional on the version returned by the last load, which
// gives the optimistic concurrency the dispatcher relies on.
type tourneyStore struct {
	nk runtime.NakamaModule
}

// NewTourneyStore builds the Nakama-backed tournament store.
func NewTourneyStore(nk runtime.NakamaModule) ports.TourneyStore {
	return &tourneyStore{nk: nk}
}

func (s *tourneyStore) Load(ctx context.Context) (*domain.Tourney, string, error) {
	objects, err := s.nk.StorageRead(ctx, []*runtime.StorageRead{{
		Collection: CollectionTourneys,
		Key:        domain.GlobalID,
	}})
	if err != nil {
		return nil, "", fmt.Errorf("failed to read tourney snapshot: %w", err)
	}
	if len(objects) == 0 {
		return nil, "", nil
	}
	var t domain.Tourney
	if err := json.Unmarshal([]byte(objects[0].Value), &t); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal tourney snapshot: %w", err)
	}
	return &t, objects[0].Version, nil
}

func (s *tourneyStore) Save(ctx context.Context, t *domain.Tourney, version string) (string, error) {
	value, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tourney snapshot: %w", err)
	}
	if version == "" {
		version = "*" // create only
	}
	acks, err := s.nk.StorageWrite(ctx, []*runtime.StorageWrite{{
		Collection:      CollectionTourneys,
		Key:             domain.GlobalID,
		Value:           string(value),
		Version:         version,
		PermissionRead:  0,
		PermissionWrite: 0,
	}})
	if err != nil {
		if isVersionConflict(err) {
			// A rejected conditional write; callers retry the whole
			// load-mutate-save cycle.
			return "", fmt.Errorf("%w: %v", ports.ErrVersionConflict, err)
		}
		return "", fmt.Errorf("failed to write tourney snapshot: %w", err)
	}
	if len(acks) == 0 {
		return "", fmt.Errorf("tourney snapshot write returned no ack")
	}
	return acks[0].Version, nil
}

// isVersionConflict recognizes the storage engine's rejected conditional
// write. Nakama reports it as "Storage write rejected - version check
// failed."; anything else is a real storage fault and must not be retried.
func isVersionConflict(err error) bool {
	return err != nil && strings.Contains(err.Error(), "version check failed")
}

func (s *tourneyStore) Delete(ctx context.Context) error {
	return s.nk.StorageDelete(ctx, []*runtime.StorageDelete{{
		Collection: CollectionTourneys,
		Key:        domain.GlobalID,
	}})
}

// connectionStore is the Nakama-backed connection registry. Records are
// keyed by connection id and carry an explicit TTL, reaped opportunistically
// since Nakama storage has no native expiry.
type connectionStore struct {
	nk runtime.NakamaModule
}

// NewConnectionStore builds the Nakama-backed connection registry.
func NewConnectionStore(nk runtime.NakamaModule) ports.ConnectionStore {
	return &connectionStore{nk: nk}
}

func (s *connectionStore) Put(ctx context.Context, rec *ports.ConnectionRecord) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal connection record: %w", err)
	}
	_, err = s.nk.StorageWrite(ctx, []*runtime.StorageWrite{{
		Collection:      CollectionConnections,
		Key:             rec.ConnectionID,
		Value:           string(value),
		PermissionRead:  0,
		PermissionWrite: 0,
	}})
	if err != nil {
		return fmt.Errorf("failed to write connection record: %w", err)
	}
	return nil
}

func (s *connectionStore) Get(ctx context.Context, connectionID string) (*ports.ConnectionRecord, error) {
	objects, err := s.nk.StorageRead(ctx, []*runtime.StorageRead{{
		Collection: CollectionConnections,
		Key:        connectionID,
	}})
	if err != nil {
		return nil, fmt.Errorf("failed to read connection record: %w", err)
	}
	if len(objects) == 0 {
		return nil, nil
	}
	var rec ports.ConnectionRecord
	if err := json.Unmarshal([]byte(objects[0].Value), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal connection record: %w", err)
	}
	return &rec, nil
}

func (s *connectionStore) Delete(ctx context.Context, connectionID string) error {
	return s.nk.StorageDelete(ctx, []*runtime.StorageDelete{{
		Collection: CollectionConnections,
		Key:        connectionID,
	}})
}

func (s *connectionStore) All(ctx context.Context) ([]*ports.ConnectionRecord, error) {
	var records []*ports.ConnectionRecord
	cursor := ""
	for {
		objects, next, err := s.nk.StorageList(ctx, "", "", CollectionConnections, storageListPageSize, cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to list connection records: %w", err)
		}
		for _, obj := range objects {
			var rec ports.ConnectionRecord
			if err := json.Unmarshal([]byte(obj.Value), &rec); err != nil {
				continue // skip corrupt records
			}
			records = append(records, &rec)
		}
		if next == "" {
			break
		}
		cursor = next
	}
	return records, nil
}

func (s *connectionStore) ReapExpired(ctx context.Context, now int64) (int, error) {
	records, err := s.All(ctx)
	if err != nil {
		return 0, err
	}
	reaped := 0
	for _, rec := range records {
		if rec.TTL > 0 && rec.TTL <= now {
			if err := s.Delete(ctx, rec.ConnectionID); err != nil {
				return reaped, err
			}
			reaped++
		}
	}
	return reaped, nil
}
