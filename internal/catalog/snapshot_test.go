package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/caseflow-backend/internal/pricing"
	"github.com/angelmondragon/caseflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/caseflow-backend/pkg/db/models"
)

func TestSnapshotLoaderIgnoresOtherTenantsOverrides(t *testing.T) {
	db := dbtest.OpenSQLite(t)
	repo := NewRepository(db)
	loader, err := NewSnapshotLoader(repo)
	require.NoError(t, err)
	ctx := context.Background()

	tenantA := uuid.New()
	tenantB := uuid.New()
	buyerID := uuid.New()

	sharedID := uuid.New()
	seedProduct(t, db, tenantA, "Tonic", func(p *models.Product) { p.ID = sharedID })

	require.NoError(t, repo.UpsertBuyerOverride(ctx, &models.BuyerPriceOverride{
		TenantID:     tenantB,
		BuyerID:      buyerID,
		ProductID:    sharedID,
		PricePerUnit: decimal.NewNullDecimal(decimal.RequireFromString("0.99")),
		PricePerCase: decimal.NewNullDecimal(decimal.RequireFromString("5.00")),
	}))
	require.NoError(t, repo.UpsertBulkOverride(ctx, &models.BulkPriceOverride{
		TenantID:     tenantB,
		ProductID:    sharedID,
		PricePerCase: decimal.NewNullDecimal(decimal.RequireFromString("6.00")),
	}))

	snapshot, err := loader.Load(ctx, tenantA, buyerID, []uuid.UUID{sharedID})
	require.NoError(t, err)
	assert.Empty(t, snapshot.BuyerOverrides)
	assert.Empty(t, snapshot.BulkOverrides)

	prices, ok := snapshot.Resolve(sharedID)
	require.True(t, ok)
	assert.Equal(t, pricing.SourceBase, prices.UnitSource)
	assert.True(t, prices.UnitPrice.Decimal.Equal(decimal.RequireFromString("2.50")))
	assert.True(t, prices.CasePrice.Decimal.Equal(decimal.NewFromInt(14)))
}

func TestSnapshotLoaderAppliesOverridesAndReportsMissing(t *testing.T) {
	db := dbtest.OpenSQLite(t)
	repo := NewRepository(db)
	loader, err := NewSnapshotLoader(repo)
	require.NoError(t, err)
	ctx := context.Background()

	tenantID := uuid.New()
	buyerID := uuid.New()
	product := seedProduct(t, db, tenantID, "Seltzer", nil)
	require.NoError(t, repo.UpsertBuyerOverride(ctx, &models.BuyerPriceOverride{
		TenantID:     tenantID,
		BuyerID:      buyerID,
		ProductID:    product.ID,
		PricePerCase: decimal.NewNullDecimal(decimal.NewFromInt(12)),
	}))
	require.NoError(t, repo.UpsertBulkOverride(ctx, &models.BulkPriceOverride{
		TenantID:     tenantID,
		ProductID:    product.ID,
		PricePerUnit: decimal.NewNullDecimal(decimal.RequireFromString("2.10")),
	}))

	unknown := uuid.New()
	snapshot, err := loader.Load(ctx, tenantID, buyerID, []uuid.UUID{unknown, product.ID})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{unknown}, snapshot.Missing([]uuid.UUID{unknown, product.ID}))

	prices, ok := snapshot.Resolve(product.ID)
	require.True(t, ok)
	assert.Equal(t, pricing.SourceBuyer, prices.CaseSource)
	assert.Equal(t, pricing.SourceBulk, prices.UnitSource)

	_, ok = snapshot.Resolve(unknown)
	assert.False(t, ok)
}

type failingRepo struct {
	Repository
	err error
}

func (f failingRepo) FindProducts(context.Context, uuid.UUID, []uuid.UUID) ([]models.Product, error) {
	return nil, f.err
}

func (f failingRepo) WithTx(*gorm.DB) Repository {
	return f
}

func TestSnapshotLoaderWrapsRepositoryErrors(t *testing.T) {
	boom := errors.New("connection reset")
	loader, err := NewSnapshotLoader(failingRepo{err: boom})
	require.NoError(t, err)

	_, err = loader.Load(context.Background(), uuid.New(), uuid.New(), []uuid.UUID{uuid.New()})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	_, err = NewSnapshotLoader(nil)
	assert.Error(t, err)
}
