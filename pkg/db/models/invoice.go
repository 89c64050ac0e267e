package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/caseflow-backend/pkg/enums"
)

// Invoice is a finalized (or voided) bill produced by the invoicing tool.
type Invoice struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID      uuid.UUID           `gorm:"column:tenant_id;type:uuid;not null"`
	BuyerID       uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null"`
	OrderID       *uuid.UUID          `gorm:"column:order_id;type:uuid"`
	InvoiceNumber string              `gorm:"column:invoice_number;not null"`
	Status        enums.InvoiceStatus `gorm:"column:status;type:text;not null;default:'finalized'"`
	IssuedAt      time.Time           `gorm:"column:issued_at;not null"`
	Lines         []InvoiceLine       `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

// InvoiceLine carries whatever the invoicing tool recorded. Most numeric fields are optional.
type InvoiceLine struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InvoiceID    uuid.UUID           `gorm:"column:invoice_id;type:uuid;not null"`
	TenantID     uuid.UUID           `gorm:"column:tenant_id;type:uuid;not null"`
	ProductID    *uuid.UUID          `gorm:"column:product_id;type:uuid"`
	Description  string              `gorm:"column:description;not null"`
	Category     *string             `gorm:"column:category"`
	SoldAs       string              `gorm:"column:sold_as;not null;default:'unit'"`
	Quantity     decimal.Decimal     `gorm:"column:quantity;type:numeric(14,4);not null"`
	UnitsPerCase *int                `gorm:"column:units_per_case"`
	TotalPieces  *int                `gorm:"column:total_pieces"`
	UnitPrice    decimal.NullDecimal `gorm:"column:unit_price;type:numeric(14,6)"`
	CasePrice    decimal.NullDecimal `gorm:"column:case_price;type:numeric(14,6)"`
	LineTotal    decimal.NullDecimal `gorm:"column:line_total;type:numeric(14,6)"`
	UnitCost     decimal.NullDecimal `gorm:"column:unit_cost;type:numeric(14,6)"`
	CaseCost     decimal.NullDecimal `gorm:"column:case_cost;type:numeric(14,6)"`
}
