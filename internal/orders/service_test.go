package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekorekillian57-star/spendo/pkg/enums"
	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
	"github.com/dekorekillian57-star/spendo/pkg/events"
	"github.com/dekorekillian57-star/spendo/pkg/pagination"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
	err    error
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, event events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func newTestService(t *testing.T) (*fixture, Service, *recordingPublisher) {
	t.Helper()
	f := newFixture(t)
	pub := &recordingPublisher{}
	svc, err := NewService(ServiceParams{Repo: f.repo, Publisher: pub})
	require.NoError(t, err)
	return f, svc, pub
}

func TestTrackRequiresCriteriaAndHidesMisses(t *testing.T) {
	f, svc, _ := newTestService(t)
	ctx := context.Background()
	o := f.order(t, "REF-T", 1, enums.OrderStatusProcessing, time.Now().UTC(), phones("0551234567"))

	_, err := svc.Track(ctx, Criteria{OrderCode: "  "})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	got, err := svc.Track(ctx, Criteria{Phone: "055 123 4567"})
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, missErr := svc.Track(ctx, Criteria{OrderCode: "ORD-NOPE"})
	_, oddErr := svc.Track(ctx, Criteria{Phone: "'; drop table orders; --"})
	require.True(t, pkgerrors.IsCode(missErr, pkgerrors.CodeNotFound))
	require.True(t, pkgerrors.IsCode(oddErr, pkgerrors.CodeNotFound))
	assert.Equal(t, pkgerrors.As(missErr).Message(), pkgerrors.As(oddErr).Message())
}

func TestSetStatusIsPermissiveAndPublishes(t *testing.T) {
	f, svc, pub := newTestService(t)
	ctx := context.Background()
	o := f.order(t, "REF-S", 1, enums.OrderStatusCompleted, time.Now().UTC(), phones("0551234567"))

	updated, err := svc.SetStatus(ctx, o.ID, "pending")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, updated.Status)
	require.Len(t, pub.events, 1)
	assert.Equal(t, events.TypeOrderStatusChanged, pub.events[0].Type)
	assert.Equal(t, "REF-S", pub.events[0].PaymentRef)
	assert.Equal(t, "pending", pub.events[0].Orders[0].Status)

	_, err = svc.SetStatus(ctx, o.ID, "shipped")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.SetStatus(ctx, uuid.New(), "failed")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestBulkOperationsReturnCounts(t *testing.T) {
	f, svc, pub := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()
	a := f.order(t, "REF-1", 1, enums.OrderStatusProcessing, now, phones("0551234567"))
	b := f.order(t, "REF-1", 2, enums.OrderStatusProcessing, now, phones("0551234567"))
	c := f.order(t, "REF-2", 1, enums.OrderStatusProcessing, now, phones("0551234567"))

	count, err := svc.BulkSetStatus(ctx, []uuid.UUID{a.ID, b.ID, c.ID, uuid.New()}, "completed")
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
	require.Len(t, pub.events, 2)
	assert.Len(t, pub.events[0].Orders, 2)

	_, err = svc.BulkSetStatus(ctx, nil, "completed")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	count, err = svc.BulkDelete(ctx, []uuid.UUID{a.ID, b.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	require.NoError(t, svc.Delete(ctx, c.ID))
	assert.True(t, pkgerrors.IsCode(svc.Delete(ctx, c.ID), pkgerrors.CodeNotFound))
}

func TestPublishFailureDoesNotFailStatusChange(t *testing.T) {
	f, svc, pub := newTestService(t)
	pub.err = errors.New("broker down")
	o := f.order(t, "REF-E", 1, enums.OrderStatusProcessing, time.Now().UTC(), phones("0551234567"))

	_, err := svc.SetStatus(context.Background(), o.ID, "completed")
	require.NoError(t, err)
}

func TestAdminListMapsWireShape(t *testing.T) {
	f, svc, _ := newTestService(t)
	o := f.order(t, "REF-W", 1, enums.OrderStatusProcessing, time.Now().UTC(), phones("0551234567"))

	page, err := svc.List(context.Background(), "processing", "", pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	dto := page.Items[0]
	assert.Equal(t, o.OrderCode, dto.OrderID)
	assert.Equal(t, "25.00", dto.TotalPrice)
	assert.Equal(t, pagination.DefaultPageSize, page.Meta.PageSize)
	require.NotNil(t, dto.Username)

	_, err = svc.List(context.Background(), "bogus", "", pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
