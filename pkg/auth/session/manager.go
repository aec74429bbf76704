// Package session keeps the server-side half of a login: one Redis key per
// access token jti, so logout and admin deletes invalidate unexpired JWTs.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dekorekillian57-star/spendo/pkg/config"
	pkgredis "github.com/dekorekillian57-star/spendo/pkg/redis"
)

// Store is the Redis surface a Manager needs.
type Store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker is what request authentication consults.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

var errNoAccessID = errors.New("access id is required")

type Manager struct {
	store Store
	ttl   time.Duration
}

// NewManager validates that a session outlives the access token it backs.
func NewManager(store Store, cfg config.JWTConfig) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	ttl := cfg.SessionTTL()
	tokenTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= 0 || ttl < tokenTTL {
		return nil, fmt.Errorf("session ttl %s must be positive and cover the token ttl %s", ttl, tokenTTL)
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// Open records accessID (generated when blank) for userID and returns it.
func (m *Manager) Open(ctx context.Context, accessID, userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("user id is required")
	}
	if strings.TrimSpace(accessID) == "" {
		accessID = NewAccessID()
	}
	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), userID, m.ttl); err != nil {
		return "", fmt.Errorf("open session: %w", err)
	}
	return accessID, nil
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errNoAccessID
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

// HasSession is false for a revoked or expired session; store failures are errors.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, errNoAccessID
	}
	_, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	switch {
	case err == nil:
		return true, nil
	case pkgredis.IsNil(err):
		return false, nil
	default:
		return false, err
	}
}

// NewAccessID mints the jti shared by the token and its session key.
func NewAccessID() string {
	return uuid.NewString()
}
