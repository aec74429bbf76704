package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekorekillian57-star/spendo/internal/repo/repotest"
	"github.com/dekorekillian57-star/spendo/pkg/enums"
	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(repotest.NewDB(t)))
	require.NoError(t, err)
	return svc
}

func strPtr(v string) *string { return &v }

func TestCreateAndListPackages(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Create(ctx, PackageInput{Type: "data", Name: "MTN 5GB", Price: decimal.RequireFromString("25.00"), Network: strPtr("MTN")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, PackageInput{Type: "data", Name: "MTN 1GB", Price: decimal.RequireFromString("6"), Network: strPtr("MTN")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, PackageInput{Type: "cable", Name: "DStv Compact", Price: decimal.RequireFromString("225")})
	require.NoError(t, err)

	all, err := svc.List(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, all, 3)

	data, err := svc.List(ctx, "data", "mtn")
	require.NoError(t, err)
	require.Len(t, data, 2)
	assert.Equal(t, "MTN 1GB", data[0].Name)
	assert.Equal(t, "6.00", NewPackageDTO(data[0]).Price)

	_, err = svc.List(ctx, "satellite", "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreateValidatesInput(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	cases := []PackageInput{
		{Type: "bogus", Name: "x", Price: decimal.NewFromInt(1)},
		{Type: "data", Name: "  ", Price: decimal.NewFromInt(1)},
		{Type: "data", Name: "x", Price: decimal.Zero},
		{Type: "data", Name: "x", Price: decimal.NewFromInt(-5)},
	}
	for _, in := range cases {
		_, err := svc.Create(ctx, in)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "input %+v", in)
	}
}

func TestUpdateAndDeletePackage(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	pkg, err := svc.Create(ctx, PackageInput{Type: "airtime", Name: "MTN Airtime", Price: decimal.NewFromInt(10)})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, pkg.ID, PackageInput{Type: "airtime", Name: "MTN Airtime GHS 20", Price: decimal.NewFromInt(20), Description: strPtr(" top-up ")})
	require.NoError(t, err)
	assert.Equal(t, "MTN Airtime GHS 20", updated.Name)
	assert.True(t, decimal.NewFromInt(20).Equal(updated.Price))
	require.NotNil(t, updated.Description)
	assert.Equal(t, "top-up", *updated.Description)
	assert.Equal(t, enums.PackageTypeAirtime, updated.Type)

	_, err = svc.Update(ctx, uuid.New(), PackageInput{Type: "airtime", Name: "x", Price: decimal.NewFromInt(1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	require.NoError(t, svc.Delete(ctx, pkg.ID))
	_, err = svc.Get(ctx, pkg.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.True(t, pkgerrors.IsCode(svc.Delete(ctx, pkg.ID), pkgerrors.CodeNotFound))
}

func TestGetManySkipsMissing(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	pkg, err := svc.Create(ctx, PackageInput{Type: "afa", Name: "MTN AFA", Price: decimal.NewFromInt(15)})
	require.NoError(t, err)

	found, err := svc.GetMany(ctx, []uuid.UUID{pkg.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Equal(t, "MTN AFA", found[pkg.ID].Name)
}

func TestNewServiceRequiresRepo(t *testing.T) {
	_, err := NewService(nil)
	require.Error(t, err)
}
