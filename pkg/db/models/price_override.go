package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BuyerPriceOverride supersedes catalog prices for one buyer. Either side may be null.
type BuyerPriceOverride struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID     uuid.UUID           `gorm:"column:tenant_id;type:uuid;not null"`
	BuyerID      uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null"`
	ProductID    uuid.UUID           `gorm:"column:product_id;type:uuid;not null"`
	PricePerUnit decimal.NullDecimal `gorm:"column:price_per_unit;type:numeric(14,6)"`
	PricePerCase decimal.NullDecimal `gorm:"column:price_per_case;type:numeric(14,6)"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// BulkPriceOverride is the tier price for a product across all buyers of a tenant.
type BulkPriceOverride struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID     uuid.UUID           `gorm:"column:tenant_id;type:uuid;not null"`
	ProductID    uuid.UUID           `gorm:"column:product_id;type:uuid;not null"`
	PricePerUnit decimal.NullDecimal `gorm:"column:price_per_unit;type:numeric(14,6)"`
	PricePerCase decimal.NullDecimal `gorm:"column:price_per_case;type:numeric(14,6)"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
