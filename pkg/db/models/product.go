package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a tenant-scoped catalog entry. Rows are tombstoned through DeletedAt and never hard-deleted.
type Product struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID     uuid.UUID           `gorm:"column:tenant_id;type:uuid;not null"`
	Name         string              `gorm:"column:name;not null"`
	Category     *string             `gorm:"column:category"`
	SellPerUnit  decimal.NullDecimal `gorm:"column:sell_per_unit;type:numeric(14,6)"`
	SellPerCase  decimal.NullDecimal `gorm:"column:sell_per_case;type:numeric(14,6)"`
	CostPerUnit  decimal.NullDecimal `gorm:"column:cost_per_unit;type:numeric(14,6)"`
	CostPerCase  decimal.NullDecimal `gorm:"column:cost_per_case;type:numeric(14,6)"`
	UnitsPerCase *int                `gorm:"column:units_per_case"`
	AllowUnit    bool                `gorm:"column:allow_unit;not null;default:true"`
	AllowCase    bool                `gorm:"column:allow_case;not null;default:false"`
	StockPieces  int                 `gorm:"column:stock_pieces;not null;default:0"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt    gorm.DeletedAt      `gorm:"column:deleted_at;index"`
}

// CaseSize returns the units-per-case factor when it is usable.
func (p *Product) CaseSize() (int, bool) {
	if p == nil || p.UnitsPerCase == nil || *p.UnitsPerCase <= 0 {
		return 0, false
	}
	return *p.UnitsPerCase, true
}

// CategoryName returns the category or an empty string.
func (p *Product) CategoryName() string {
	if p == nil || p.Category == nil {
		return ""
	}
	return *p.Category
}
