package auth

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dekorekillian57-star/spendo/internal/repo"
	"github.com/dekorekillian57-star/spendo/pkg/config"
	"github.com/dekorekillian57-star/spendo/pkg/db/models"
	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
)

// Attempt tables.
const (
	CustomerAttemptsTable = "login_attempts"
	AdminAttemptsTable    = "admin_login_attempts"
)

// AttemptRepository stores login attempts in one of the attempt tables.
type AttemptRepository struct {
	repo.Base
	table string
}

func NewAttemptRepository(db *gorm.DB, table string) *AttemptRepository {
	return &AttemptRepository{Base: repo.NewBase(db), table: table}
}

// Table returns the backing table name.
func (r *AttemptRepository) Table() string { return r.table }

func (r *AttemptRepository) Record(ctx context.Context, ip string, success bool, at time.Time) error {
	return r.DB(ctx).Table(r.table).Create(&models.LoginAttempt{IP: ip, Success: success, AttemptedAt: at}).Error
}

func (r *AttemptRepository) CountFailuresSince(ctx context.Context, ip string, since time.Time) (int64, error) {
	var count int64
	err := r.DB(ctx).
		Table(r.table).
		Where("ip = ? AND success = ? AND attempted_at > ?", ip, false, since).
		Count(&count).Error
	return count, err
}

// PruneBefore deletes attempts older than cutoff.
func (r *AttemptRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.DB(ctx).Table(r.table).Where("attempted_at < ?", cutoff).Delete(&models.LoginAttempt{})
	return res.RowsAffected, res.Error
}

// Throttle is the per-IP sliding window in front of a login form. The check and
// the later insert are separate statements; under concurrent requests from one
// IP a few extra attempts can slip through, which is accepted.
type Throttle struct {
	attempts *AttemptRepository
	max      int
	window   time.Duration
	now      func() time.Time
}

func NewThrottle(attempts *AttemptRepository, cfg config.LoginThrottleConfig) (*Throttle, error) {
	if attempts == nil {
		return nil, fmt.Errorf("attempt repository required")
	}
	max := cfg.MaxAttempts
	if max <= 0 {
		max = 5
	}
	window := cfg.Window
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &Throttle{attempts: attempts, max: max, window: window, now: time.Now}, nil
}

// Check prunes the window and rejects the IP once it has max failures inside it.
func (t *Throttle) Check(ctx context.Context, ip string) error {
	cutoff := t.now().UTC().Add(-t.window)
	if _, err := t.attempts.PruneBefore(ctx, cutoff); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "prune login attempts")
	}
	failures, err := t.attempts.CountFailuresSince(ctx, ip, cutoff)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count login attempts")
	}
	if failures >= int64(t.max) {
		return pkgerrors.Newf(pkgerrors.CodeRateLimit, "too many failed login attempts, try again in %d minutes", int(t.window.Minutes()))
	}
	return nil
}

func (t *Throttle) Record(ctx context.Context, ip string, success bool) error {
	return t.attempts.Record(ctx, ip, success, t.now().UTC())
}
