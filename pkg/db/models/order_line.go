package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/caseflow-backend/pkg/enums"
)

// OrderLine is the immutable price and quantity snapshot of one ordered product.
type OrderLine struct {
	ID                   uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID              uuid.UUID           `gorm:"column:order_id;type:uuid;not null"`
	TenantID             uuid.UUID           `gorm:"column:tenant_id;type:uuid;not null"`
	Position             int                 `gorm:"column:position;not null"`
	ProductID            *uuid.UUID          `gorm:"column:product_id;type:uuid"`
	ProductName          string              `gorm:"column:product_name;not null"`
	Category             *string             `gorm:"column:category"`
	Granularity          enums.Granularity   `gorm:"column:granularity;type:text;not null"`
	Quantity             int                 `gorm:"column:quantity;not null"`
	UnitsPerCaseSnapshot *int                `gorm:"column:units_per_case_snapshot"`
	UnitPriceSnapshot    decimal.NullDecimal `gorm:"column:unit_price_snapshot;type:numeric(14,6)"`
	CasePriceSnapshot    decimal.NullDecimal `gorm:"column:case_price_snapshot;type:numeric(14,6)"`
	SellingPriceAtTime   decimal.Decimal     `gorm:"column:selling_price_at_time;type:numeric(14,6);not null"`
	CostPriceAtTime      decimal.NullDecimal `gorm:"column:cost_price_at_time;type:numeric(14,6)"`
	UnitCostSnapshot     decimal.NullDecimal `gorm:"column:unit_cost_snapshot;type:numeric(14,6)"`
	CaseCostSnapshot     decimal.NullDecimal `gorm:"column:case_cost_snapshot;type:numeric(14,6)"`
	LineTotal            decimal.Decimal     `gorm:"column:line_total;type:numeric(14,6);not null"`
	CreatedAt            time.Time           `gorm:"column:created_at;autoCreateTime"`
}
