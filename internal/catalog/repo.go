package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/caseflow-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindProducts(ctx context.Context, tenantID uuid.UUID, productIDs []uuid.UUID) ([]models.Product, error) {
	if len(productIDs) == 0 {
		return []models.Product{}, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, productIDs).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// FindProductsIncludingDeleted also returns tombstoned rows so reporting can still name them.
func (r *repository) FindProductsIncludingDeleted(ctx context.Context, tenantID uuid.UUID, productIDs []uuid.UUID) ([]models.Product, error) {
	if len(productIDs) == 0 {
		return []models.Product{}, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).
		Unscoped().
		Where("tenant_id = ? AND id IN ?", tenantID, productIDs).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) FindBuyerOverrides(ctx context.Context, tenantID, buyerID uuid.UUID, productIDs []uuid.UUID) ([]models.BuyerPriceOverride, error) {
	if len(productIDs) == 0 {
		return []models.BuyerPriceOverride{}, nil
	}
	var overrides []models.BuyerPriceOverride
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND buyer_id = ? AND product_id IN ?", tenantID, buyerID, productIDs).
		Find(&overrides).Error
	if err != nil {
		return nil, err
	}
	return overrides, nil
}

func (r *repository) FindBulkOverrides(ctx context.Context, tenantID uuid.UUID, productIDs []uuid.UUID) ([]models.BulkPriceOverride, error) {
	if len(productIDs) == 0 {
		return []models.BulkPriceOverride{}, nil
	}
	var overrides []models.BulkPriceOverride
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id IN ?", tenantID, productIDs).
		Find(&overrides).Error
	if err != nil {
		return nil, err
	}
	return overrides, nil
}

// UpsertBuyerOverride replaces both price sides of the (tenant, buyer, product) row. Last write wins.
func (r *repository) UpsertBuyerOverride(ctx context.Context, override *models.BuyerPriceOverride) error {
	if override.ID == uuid.Nil {
		override.ID = uuid.New()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "buyer_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"price_per_unit", "price_per_case", "updated_at"}),
		}).
		Create(override).Error
}

// UpsertBulkOverride replaces both price sides of the (tenant, product) tier row.
func (r *repository) UpsertBulkOverride(ctx context.Context, override *models.BulkPriceOverride) error {
	if override.ID == uuid.Nil {
		override.ID = uuid.New()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"price_per_unit", "price_per_case", "updated_at"}),
		}).
		Create(override).Error
}

func (r *repository) DeleteBuyerOverride(ctx context.Context, tenantID, buyerID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ? AND buyer_id = ? AND product_id = ?", tenantID, buyerID, productID).
		Delete(&models.BuyerPriceOverride{}).Error
}
