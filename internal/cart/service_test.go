package cart

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dekorekillian57-star/spendo/internal/catalog"
	"github.com/dekorekillian57-star/spendo/internal/repo/repotest"
	"github.com/dekorekillian57-star/spendo/pkg/db/models"
	"github.com/dekorekillian57-star/spendo/pkg/enums"
	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
	"github.com/dekorekillian57-star/spendo/pkg/types"
)

type fakeHashStore struct {
	mu      sync.Mutex
	hashes  map[string]map[string]string
	expires map[string]time.Duration
}

func newFakeHashStore() *fakeHashStore {
	return &fakeHashStore{hashes: map[string]map[string]string{}, expires: map[string]time.Duration{}}
}

func (f *fakeHashStore) HSet(_ context.Context, key, field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hashes[key] == nil {
		f.hashes[key] = map[string]string{}
	}
	f.hashes[key][field] = value
	return nil
}

func (f *fakeHashStore) HGet(_ context.Context, key, field string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.hashes[key][field]
	if !ok {
		return "", errRedisNil
	}
	return v, nil
}

func (f *fakeHashStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]string{}
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeHashStore) HDel(_ context.Context, key string, fields ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, field := range fields {
		delete(f.hashes[key], field)
	}
	return nil
}

func (f *fakeHashStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expires[key] = ttl
	return nil
}

func (f *fakeHashStore) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.hashes, k)
	}
	return nil
}

func (f *fakeHashStore) GuestCartKey(sessionID string) string {
	return "spendo:cart:guest:" + sessionID
}

type fixture struct {
	db      *gorm.DB
	svc     Service
	hash    *fakeHashStore
	catalog catalog.Service
	user    uuid.UUID
	data    *models.Package
	cable   *models.Package
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := repotest.NewDB(t)
	cat, err := catalog.NewService(catalog.NewRepository(db))
	require.NoError(t, err)

	ctx := context.Background()
	data, err := cat.Create(ctx, catalog.PackageInput{Type: "data", Name: "MTN 5GB", Price: decimal.RequireFromString("25.00")})
	require.NoError(t, err)
	cable, err := cat.Create(ctx, catalog.PackageInput{Type: "cable", Name: "GOtv Max", Price: decimal.RequireFromString("95.00")})
	require.NoError(t, err)

	user := models.User{ID: uuid.New(), Username: "kofi", Email: "kofi@example.com", PasswordHash: "x", Phone: "0241234567"}
	require.NoError(t, db.Create(&user).Error)

	hash := newFakeHashStore()
	svc, err := NewService(ServiceParams{
		Users:    NewDBStore(db),
		Guests:   NewGuestStore(hash, time.Hour),
		Packages: cat,
	})
	require.NoError(t, err)
	return &fixture{db: db, svc: svc, hash: hash, catalog: cat, user: user.ID, data: data, cable: cable}
}

func phones(values ...string) json.RawMessage {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, `{"phone":"`+v+`"}`)
	}
	return json.RawMessage("[" + strings.Join(parts, ",") + "]")
}

func TestUserCartAccumulatesDuplicateAdds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := UserOwner(f.user)

	first, err := f.svc.AddItem(ctx, owner, AddItemInput{PackageID: f.data.ID, Quantity: 1, Recipients: phones("0551234567")})
	require.NoError(t, err)
	second, err := f.svc.AddItem(ctx, owner, AddItemInput{PackageID: f.data.ID, Quantity: 2, Recipients: phones("0241234567", "0201234567")})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	cart, err := f.svc.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, []string{"0241234567", "0201234567"}, cart.Items[0].Recipients.Phones())
	assert.Equal(t, "75.00", cart.Total.StringFixed(2))
}

func TestGuestCartKeepsSeparateLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := GuestOwner("sess-1")

	a, err := f.svc.AddItem(ctx, owner, AddItemInput{PackageID: f.data.ID, Quantity: 1, Recipients: phones("0551234567")})
	require.NoError(t, err)
	b, err := f.svc.AddItem(ctx, owner, AddItemInput{PackageID: f.data.ID, Quantity: 1, Recipients: phones("0551234567")})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, f.data.ID.String()+"_"))

	cart, err := f.svc.List(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
	assert.Equal(t, 2, cart.Count())
	assert.Equal(t, time.Hour, f.hash.expires["spendo:cart:guest:sess-1"])
}

func TestUpdateQuantityBelowOneRemoves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, owner := range []Owner{UserOwner(f.user), GuestOwner("sess-2")} {
		id, err := f.svc.AddItem(ctx, owner, AddItemInput{PackageID: f.data.ID, Quantity: 2, Recipients: phones("0551234567")})
		require.NoError(t, err)

		require.NoError(t, f.svc.UpdateQuantity(ctx, owner, id, 5))
		cart, err := f.svc.List(ctx, owner)
		require.NoError(t, err)
		require.Len(t, cart.Items, 1)
		assert.Equal(t, 5, cart.Items[0].Quantity)

		require.NoError(t, f.svc.UpdateQuantity(ctx, owner, id, 0))
		cart, err = f.svc.List(ctx, owner)
		require.NoError(t, err)
		assert.Empty(t, cart.Items)

		err = f.svc.UpdateQuantity(ctx, owner, id, -1)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	}
}

func TestLoweringQuantityTrimsRecipients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, owner := range []Owner{UserOwner(f.user), GuestOwner("sess-4")} {
		id, err := f.svc.AddItem(ctx, owner, AddItemInput{PackageID: f.data.ID, Quantity: 3, Recipients: phones("0551234567", "0241234567", "0201234567")})
		require.NoError(t, err)

		require.NoError(t, f.svc.UpdateQuantity(ctx, owner, id, 2))
		cart, err := f.svc.List(ctx, owner)
		require.NoError(t, err)
		require.Len(t, cart.Items, 1)
		assert.Equal(t, 2, cart.Items[0].Quantity)
		assert.Equal(t, []string{"0551234567", "0241234567"}, cart.Items[0].Recipients.Phones())

		require.NoError(t, f.svc.UpdateQuantity(ctx, owner, id, 4))
		cart, err = f.svc.List(ctx, owner)
		require.NoError(t, err)
		assert.Len(t, cart.Items[0].Recipients, 2)
	}
}

func TestUserCartAccumulationStopsAtMaxQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := UserOwner(f.user)

	for i := 0; i < 2; i++ {
		_, err := f.svc.AddItem(ctx, owner, AddItemInput{PackageID: f.data.ID, Quantity: 60, Recipients: phones("0551234567")})
		require.NoError(t, err)
	}

	cart, err := f.svc.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, MaxQuantity, cart.Items[0].Quantity)
}

func TestPriceIsReadAtListTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := UserOwner(f.user)

	_, err := f.svc.AddItem(ctx, owner, AddItemInput{PackageID: f.data.ID, Quantity: 2, Recipients: phones("0551234567")})
	require.NoError(t, err)

	_, err = f.catalog.Update(ctx, f.data.ID, catalog.PackageInput{Type: "data", Name: "MTN 5GB", Price: decimal.RequireFromString("30.00")})
	require.NoError(t, err)

	cart, err := f.svc.List(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, "60.00", cart.Total.StringFixed(2))
}

func TestAddItemValidatesRecipients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := UserOwner(f.user)

	_, err := f.svc.AddItem(ctx, owner, AddItemInput{PackageID: f.cable.ID, Quantity: 1, Recipients: phones("0551234567")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.AddItem(ctx, owner, AddItemInput{PackageID: f.data.ID, Quantity: 1, Recipients: phones("0551234567", "0241234567")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.AddItem(ctx, owner, AddItemInput{PackageID: f.data.ID, Quantity: 1, Recipients: json.RawMessage(`[]`)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.AddItem(ctx, owner, AddItemInput{PackageID: uuid.New(), Quantity: 1, Recipients: phones("0551234567")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.AddItem(ctx, Owner{}, AddItemInput{PackageID: f.data.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	id, err := f.svc.AddItem(ctx, owner, AddItemInput{PackageID: f.cable.ID, Recipients: json.RawMessage(`[{"smart_card":"7023456789"}]`)})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestMergeGuestIntoUserCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := GuestOwner("sess-3")
	user := UserOwner(f.user)

	_, err := f.svc.AddItem(ctx, user, AddItemInput{PackageID: f.data.ID, Quantity: 1, Recipients: phones("0551234567")})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, guest, AddItemInput{PackageID: f.data.ID, Quantity: 2, Recipients: phones("0241234567")})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, guest, AddItemInput{PackageID: f.cable.ID, Quantity: 1, Recipients: json.RawMessage(`[{"smart_card":"7023456789"}]`)})
	require.NoError(t, err)

	merged, err := f.svc.MergeGuest(ctx, "sess-3", f.user)
	require.NoError(t, err)
	assert.Equal(t, 2, merged)

	cart, err := f.svc.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, 4, cart.Count())

	guestCart, err := f.svc.List(ctx, guest)
	require.NoError(t, err)
	assert.Empty(t, guestCart.Items)
}

func TestClearTxEmptiesUserCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := UserOwner(f.user)

	_, err := f.svc.AddItem(ctx, owner, AddItemInput{PackageID: f.data.ID, Quantity: 1, Recipients: phones("0551234567")})
	require.NoError(t, err)

	require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
		return f.svc.ClearTx(ctx, tx, owner)
	}))
	cart, err := f.svc.List(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	assert.NoError(t, f.svc.ClearTx(ctx, nil, GuestOwner("sess")))
}

func TestNewCartDTO(t *testing.T) {
	dto := NewCartDTO(&Cart{
		Items: []Item{{ID: "1", PackageType: enums.PackageTypeData, UnitPrice: decimal.NewFromInt(25), Quantity: 2, LineTotal: decimal.NewFromInt(50), Recipients: types.Recipients{&types.PhoneRecipient{Phone: "0551234567"}}}},
		Total: decimal.NewFromInt(50),
	}, "GHS")
	assert.Equal(t, "50.00", dto.Total)
	assert.Equal(t, "25.00", dto.Items[0].UnitPrice)
	assert.Equal(t, 2, dto.ItemCount)

	empty := NewCartDTO(nil, "GHS")
	assert.NotNil(t, empty.Items)
}
