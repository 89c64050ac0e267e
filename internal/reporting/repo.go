package reporting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/caseflow-backend/pkg/db/models"
	"github.com/angelmondragon/caseflow-backend/pkg/enums"
)

// Window scopes the sold records read for a report. From is inclusive, To exclusive.
type Window struct {
	TenantID uuid.UUID
	From     time.Time
	To       time.Time
	BuyerID  *uuid.UUID
}

// Repository reads the two sold-record families.
type Repository interface {
	ListOpenOrders(ctx context.Context, window Window) ([]models.Order, error)
	ListFinalizedInvoices(ctx context.Context, window Window) ([]models.Invoice, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a reporting repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// ListOpenOrders returns orders not yet invoiced or cancelled, with their lines.
// An order referenced by a finalized invoice is reported through that invoice even when
// its own status has not moved yet.
func (r *repository) ListOpenOrders(ctx context.Context, window Window) ([]models.Order, error) {
	var orders []models.Order
	query := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("tenant_id = ?", window.TenantID).
		Where("status IN ?", enums.OpenOrderStatuses).
		Where("created_at >= ? AND created_at < ?", window.From, window.To).
		Where("NOT EXISTS (SELECT 1 FROM invoices i WHERE i.order_id = orders.id AND i.tenant_id = orders.tenant_id AND i.status = ?)",
			enums.InvoiceStatusFinalized)
	if window.BuyerID != nil {
		query = query.Where("buyer_id = ?", *window.BuyerID)
	}
	if err := query.Order("created_at ASC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListFinalizedInvoices returns finalized invoices issued in the window, with their lines.
func (r *repository) ListFinalizedInvoices(ctx context.Context, window Window) ([]models.Invoice, error) {
	var invoices []models.Invoice
	query := r.db.WithContext(ctx).
		Preload("Lines").
		Where("tenant_id = ?", window.TenantID).
		Where("status = ?", enums.InvoiceStatusFinalized).
		Where("issued_at >= ? AND issued_at < ?", window.From, window.To)
	if window.BuyerID != nil {
		query = query.Where("buyer_id = ?", *window.BuyerID)
	}
	if err := query.Order("issued_at ASC").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}
