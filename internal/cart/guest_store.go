package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dekorekillian57-star/spendo/pkg/redis"
	"github.com/dekorekillian57-star/spendo/pkg/security"
)

// GuestStore keeps a guest's cart as a redis hash: item id -> JSON line.
type GuestStore struct {
	store redis.HashStore
	ttl   time.Duration
	now   func() time.Time
}

func NewGuestStore(store redis.HashStore, ttl time.Duration) *GuestStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &GuestStore{store: store, ttl: ttl, now: time.Now}
}

// Add always creates a new line; guest carts do not accumulate duplicates.
func (s *GuestStore) Add(ctx context.Context, owner Owner, line Line) (string, error) {
	suffix, err := security.RandomHex(6)
	if err != nil {
		return "", err
	}
	itemID := fmt.Sprintf("%s_%s", line.PackageID, suffix)
	if line.AddedAt.IsZero() {
		line.AddedAt = s.now().UTC()
	}
	if err := s.write(ctx, owner, itemID, line); err != nil {
		return "", err
	}
	return itemID, nil
}

func (s *GuestStore) SetQuantity(ctx context.Context, owner Owner, itemID string, quantity int) error {
	line, err := s.read(ctx, owner, itemID)
	if err != nil {
		return err
	}
	line.Quantity = quantity
	line.fitRecipients()
	return s.write(ctx, owner, itemID, *line)
}

func (s *GuestStore) Remove(ctx context.Context, owner Owner, itemID string) error {
	if _, err := s.read(ctx, owner, itemID); err != nil {
		return err
	}
	return s.store.HDel(ctx, s.store.GuestCartKey(owner.SessionID), itemID)
}

func (s *GuestStore) Clear(ctx context.Context, owner Owner) error {
	return s.store.Del(ctx, s.store.GuestCartKey(owner.SessionID))
}

// Lines returns the newest line first. Undecodable entries are skipped.
func (s *GuestStore) Lines(ctx context.Context, owner Owner) ([]Line, error) {
	raw, err := s.store.HGetAll(ctx, s.store.GuestCartKey(owner.SessionID))
	if err != nil {
		return nil, err
	}
	out := make([]Line, 0, len(raw))
	for id, payload := range raw {
		var line Line
		if err := json.Unmarshal([]byte(payload), &line); err != nil {
			continue
		}
		line.ID = id
		out = append(out, line)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AddedAt.Equal(out[j].AddedAt) {
			return strings.Compare(out[i].ID, out[j].ID) < 0
		}
		return out[i].AddedAt.After(out[j].AddedAt)
	})
	return out, nil
}

func (s *GuestStore) read(ctx context.Context, owner Owner, itemID string) (*Line, error) {
	payload, err := s.store.HGet(ctx, s.store.GuestCartKey(owner.SessionID), itemID)
	if err != nil {
		if redis.IsNil(err) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	var line Line
	if err := json.Unmarshal([]byte(payload), &line); err != nil {
		return nil, fmt.Errorf("decode guest cart line: %w", err)
	}
	line.ID = itemID
	return &line, nil
}

func (s *GuestStore) write(ctx context.Context, owner Owner, itemID string, line Line) error {
	payload, err := json.Marshal(line)
	if err != nil {
		return err
	}
	key := s.store.GuestCartKey(owner.SessionID)
	if err := s.store.HSet(ctx, key, itemID, string(payload)); err != nil {
		return err
	}
	return s.store.Expire(ctx, key, s.ttl)
}
