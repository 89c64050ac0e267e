package buyerlinks

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/caseflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/caseflow-backend/pkg/db/models"
	"github.com/angelmondragon/caseflow-backend/pkg/enums"
)

func TestIsLinkedRequiresActiveLinkInTenant(t *testing.T) {
	db := dbtest.OpenSQLite(t)
	repo := NewRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	otherTenant := uuid.New()
	buyerID := uuid.New()

	linked, err := repo.IsLinked(ctx, tenantID, buyerID)
	require.NoError(t, err)
	assert.False(t, linked)

	require.NoError(t, repo.Create(ctx, &models.BuyerLink{TenantID: tenantID, BuyerID: buyerID}))

	linked, err = repo.IsLinked(ctx, tenantID, buyerID)
	require.NoError(t, err)
	assert.True(t, linked)

	linked, err = repo.IsLinked(ctx, otherTenant, buyerID)
	require.NoError(t, err)
	assert.False(t, linked)

	require.NoError(t, repo.UpdateStatus(ctx, tenantID, buyerID, enums.BuyerLinkStatusSuspended))
	linked, err = repo.IsLinked(ctx, tenantID, buyerID)
	require.NoError(t, err)
	assert.False(t, linked)
}

func TestUpdateStatusMissingLink(t *testing.T) {
	db := dbtest.OpenSQLite(t)
	repo := NewRepository(db)

	err := repo.UpdateStatus(context.Background(), uuid.New(), uuid.New(), enums.BuyerLinkStatusActive)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestCreateRejectsDuplicateLink(t *testing.T) {
	db := dbtest.OpenSQLite(t)
	repo := NewRepository(db)
	ctx := context.Background()
	tenantID, buyerID := uuid.New(), uuid.New()

	require.NoError(t, repo.Create(ctx, &models.BuyerLink{TenantID: tenantID, BuyerID: buyerID}))
	err := repo.Create(ctx, &models.BuyerLink{TenantID: tenantID, BuyerID: buyerID})
	assert.ErrorIs(t, err, ErrLinkExists)

	require.NoError(t, repo.Create(ctx, &models.BuyerLink{TenantID: uuid.New(), BuyerID: buyerID}))
}
