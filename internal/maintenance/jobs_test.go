package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekorekillian57-star/spendo/internal/auth"
	"github.com/dekorekillian57-star/spendo/internal/payments"
	"github.com/dekorekillian57-star/spendo/internal/repo/repotest"
	"github.com/dekorekillian57-star/spendo/pkg/db/models"
	"github.com/dekorekillian57-star/spendo/pkg/enums"
)

var fixedNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func TestLoginAttemptPruneJobCoversBothTables(t *testing.T) {
	gdb := repotest.NewDB(t)
	ctx := context.Background()
	customers := auth.NewAttemptRepository(gdb, auth.CustomerAttemptsTable)
	admins := auth.NewAttemptRepository(gdb, auth.AdminAttemptsTable)
	for _, repo := range []*auth.AttemptRepository{customers, admins} {
		require.NoError(t, repo.Record(ctx, "10.0.0.1", false, fixedNow.Add(-time.Hour)))
		require.NoError(t, repo.Record(ctx, "10.0.0.1", false, fixedNow.Add(-time.Minute)))
	}

	job, err := NewLoginAttemptPruneJob(testLogger(), 5*time.Minute, customers, admins)
	require.NoError(t, err)
	job.(*loginAttemptPruneJob).now = func() time.Time { return fixedNow }
	require.NoError(t, job.Run(ctx))

	for _, table := range []string{auth.CustomerAttemptsTable, auth.AdminAttemptsTable} {
		var remaining int64
		require.NoError(t, gdb.Table(table).Count(&remaining).Error)
		assert.EqualValues(t, 1, remaining, table)
	}
}

type failingPruner struct{ table string }

func (f failingPruner) PruneBefore(context.Context, time.Time) (int64, error) {
	return 0, errors.New("db down")
}

func (f failingPruner) Table() string { return f.table }

func TestLoginAttemptPruneJobCombinesErrors(t *testing.T) {
	job, err := NewLoginAttemptPruneJob(testLogger(), time.Minute, failingPruner{"a"}, failingPruner{"b"})
	require.NoError(t, err)
	err = job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prune a")
	assert.Contains(t, err.Error(), "prune b")
}

func TestResetTokenPruneJobDropsExpiredTokens(t *testing.T) {
	gdb := repotest.NewDB(t)
	ctx := context.Background()
	resets := auth.NewResetRepository(gdb)
	require.NoError(t, resets.Upsert(ctx, "old@example.com", "old-token", fixedNow.Add(-2*time.Hour)))
	require.NoError(t, resets.Upsert(ctx, "new@example.com", "new-token", fixedNow.Add(-10*time.Minute)))

	job, err := NewResetTokenPruneJob(testLogger(), resets, time.Hour)
	require.NoError(t, err)
	job.(*resetTokenPruneJob).now = func() time.Time { return fixedNow }
	require.NoError(t, job.Run(ctx))

	_, err = resets.FindByToken(ctx, "old-token")
	assert.Error(t, err)
	_, err = resets.FindByToken(ctx, "new-token")
	assert.NoError(t, err)
}

func TestIntentExpiryJobOnlyTouchesStaleInitializedIntents(t *testing.T) {
	gdb := repotest.NewDB(t)
	ctx := context.Background()
	intents := payments.NewIntentRepository(gdb)

	seed := func(ref string, status enums.PaymentIntentStatus, created time.Time) {
		require.NoError(t, intents.Create(ctx, &models.PaymentIntent{
			Reference:        ref,
			Email:            "ama@example.com",
			AmountMinor:      1000,
			Currency:         "GHS",
			Status:           status,
			Lines:            models.CheckoutLines{},
			AuthorizationURL: "https://checkout.paystack.com/x",
			CreatedAt:        created,
		}))
	}
	seed("REF-STALE", enums.PaymentIntentInitialized, fixedNow.Add(-48*time.Hour))
	seed("REF-FRESH", enums.PaymentIntentInitialized, fixedNow.Add(-time.Hour))
	seed("REF-PAID", enums.PaymentIntentSucceeded, fixedNow.Add(-48*time.Hour))

	job, err := NewIntentExpiryJob(testLogger(), intents, 24*time.Hour)
	require.NoError(t, err)
	job.(*intentExpiryJob).now = func() time.Time { return fixedNow }
	require.NoError(t, job.Run(ctx))

	expect := map[string]enums.PaymentIntentStatus{
		"REF-STALE": enums.PaymentIntentExpired,
		"REF-FRESH": enums.PaymentIntentInitialized,
		"REF-PAID":  enums.PaymentIntentSucceeded,
	}
	for ref, status := range expect {
		intent, err := intents.FindByReference(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, status, intent.Status, ref)
	}
}

func TestJobConstructorsValidate(t *testing.T) {
	_, err := NewLoginAttemptPruneJob(testLogger(), time.Minute)
	assert.Error(t, err)
	_, err = NewResetTokenPruneJob(testLogger(), nil, time.Hour)
	assert.Error(t, err)
	_, err = NewIntentExpiryJob(nil, nil, time.Hour)
	assert.Error(t, err)
}
