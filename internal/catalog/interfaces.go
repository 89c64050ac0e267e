package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/caseflow-backend/pkg/db/models"
)

// Repository reads and writes tenant-scoped catalog and override rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProducts(ctx context.Context, tenantID uuid.UUID, productIDs []uuid.UUID) ([]models.Product, error)
	FindProductsIncludingDeleted(ctx context.Context, tenantID uuid.UUID, productIDs []uuid.UUID) ([]models.Product, error)
	FindBuyerOverrides(ctx context.Context, tenantID, buyerID uuid.UUID, productIDs []uuid.UUID) ([]models.BuyerPriceOverride, error)
	FindBulkOverrides(ctx context.Context, tenantID uuid.UUID, productIDs []uuid.UUID) ([]models.BulkPriceOverride, error)
	UpsertBuyerOverride(ctx context.Context, override *models.BuyerPriceOverride) error
	UpsertBulkOverride(ctx context.Context, override *models.BulkPriceOverride) error
	DeleteBuyerOverride(ctx context.Context, tenantID, buyerID, productID uuid.UUID) error
}
