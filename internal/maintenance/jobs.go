package maintenance

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/dekorekillian57-star/spendo/pkg/logger"
)

// Pruner deletes rows older than a cutoff and reports how many went.
type Pruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type intentExpirer interface {
	ExpireInitializedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type attemptTable interface {
	Pruner
	Table() string
}

// NewLoginAttemptPruneJob removes attempts that fell out of the lockout window
// from every attempt table.
func NewLoginAttemptPruneJob(logg *logger.Logger, window time.Duration, tables ...attemptTable) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("at least one attempt table required")
	}
	if window <= 0 {
		return nil, fmt.Errorf("lockout window must be positive")
	}
	return &loginAttemptPruneJob{logg: logg, tables: tables, window: window, now: time.Now}, nil
}

type loginAttemptPruneJob struct {
	logg   *logger.Logger
	tables []attemptTable
	window time.Duration
	now    func() time.Time
}

func (j *loginAttemptPruneJob) Name() string { return "login-attempt-prune" }

func (j *loginAttemptPruneJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.window)
	var errs error
	for _, table := range j.tables {
		deleted, err := table.PruneBefore(ctx, cutoff)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("prune %s: %w", table.Table(), err))
			continue
		}
		logCtx := j.logg.WithFields(ctx, map[string]any{"table": table.Table(), "rows_deleted": deleted})
		j.logg.Info(logCtx, "login attempts pruned")
	}
	return errs
}

// NewResetTokenPruneJob drops password reset tokens past their lifetime.
func NewResetTokenPruneJob(logg *logger.Logger, resets Pruner, ttl time.Duration) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if resets == nil {
		return nil, fmt.Errorf("reset repository required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("reset ttl must be positive")
	}
	return &resetTokenPruneJob{logg: logg, resets: resets, ttl: ttl, now: time.Now}, nil
}

type resetTokenPruneJob struct {
	logg   *logger.Logger
	resets Pruner
	ttl    time.Duration
	now    func() time.Time
}

func (j *resetTokenPruneJob) Name() string { return "password-reset-prune" }

func (j *resetTokenPruneJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	deleted, err := j.resets.PruneBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune reset tokens: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "rows_deleted", deleted), "reset tokens pruned")
	return nil
}

// NewIntentExpiryJob marks checkouts that never reached the gateway callback as
// expired. A late confirmation can still materialize an expired intent.
func NewIntentExpiryJob(logg *logger.Logger, intents intentExpirer, ttl time.Duration) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if intents == nil {
		return nil, fmt.Errorf("intent repository required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("intent ttl must be positive")
	}
	return &intentExpiryJob{logg: logg, intents: intents, ttl: ttl, now: time.Now}, nil
}

type intentExpiryJob struct {
	logg    *logger.Logger
	intents intentExpirer
	ttl     time.Duration
	now     func() time.Time
}

func (j *intentExpiryJob) Name() string { return "payment-intent-expiry" }

func (j *intentExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	expired, err := j.intents.ExpireInitializedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("expire payment intents: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{"cutoff": cutoff, "rows_expired": expired}), "stale payment intents expired")
	return nil
}
