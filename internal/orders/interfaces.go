package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/caseflow-backend/internal/catalog"
	"github.com/angelmondragon/caseflow-backend/pkg/db/models"
)

// Repository defines persistence operations for order headers and line snapshots.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order, withMetadata bool) error
	CreateOrderLines(ctx context.Context, lines []models.OrderLine) error
	DeleteOrder(ctx context.Context, tenantID, orderID uuid.UUID) error
	FindOrder(ctx context.Context, tenantID, orderID uuid.UUID) (*models.Order, error)
}

type linkChecker interface {
	IsLinked(ctx context.Context, tenantID, buyerID uuid.UUID) (bool, error)
}

type snapshotLoader interface {
	Load(ctx context.Context, tenantID, buyerID uuid.UUID, productIDs []uuid.UUID) (*catalog.PricingSnapshot, error)
}
