package reporting

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/caseflow-backend/pkg/db/models"
	"github.com/angelmondragon/caseflow-backend/pkg/enums"
)

// Source identifies the record family a sold line was read from.
type Source string

const (
	SourceOrder   Source = "order"
	SourceInvoice Source = "invoice"
)

// RawLine is the single input shape of the normalizer. It is only built by the
// per-family adapters below, so every field has one meaning regardless of origin.
type RawLine struct {
	Source      Source
	SourceID    uuid.UUID
	LineID      uuid.UUID
	TenantID    uuid.UUID
	BuyerID     uuid.UUID
	ProductID   *uuid.UUID
	ProductName string
	Category    string
	SoldAt      time.Time

	// RecordedGranularity is kept as recorded; only "case" means a case line.
	RecordedGranularity string
	Quantity            decimal.Decimal
	UnitsPerCase        *int
	TotalPieces         *int

	UnitPrice decimal.NullDecimal
	CasePrice decimal.NullDecimal
	LineTotal decimal.NullDecimal
	UnitCost  decimal.NullDecimal
	CaseCost  decimal.NullDecimal
}

// CatalogRef carries the live catalog values used when a line lacks its own snapshot.
type CatalogRef struct {
	Name         string
	Category     string
	UnitsPerCase *int
	SellPerUnit  decimal.NullDecimal
	SellPerCase  decimal.NullDecimal
	CostPerUnit  decimal.NullDecimal
	CostPerCase  decimal.NullDecimal
}

// CatalogRefFromProduct builds a catalog reference from a product row, tombstoned or not.
func CatalogRefFromProduct(product *models.Product) *CatalogRef {
	if product == nil {
		return nil
	}
	return &CatalogRef{
		Name:         product.Name,
		Category:     product.CategoryName(),
		UnitsPerCase: product.UnitsPerCase,
		SellPerUnit:  product.SellPerUnit,
		SellPerCase:  product.SellPerCase,
		CostPerUnit:  product.CostPerUnit,
		CostPerCase:  product.CostPerCase,
	}
}

// FromOrderLine adapts an order line snapshot. The charged line total is authoritative.
func FromOrderLine(order *models.Order, line *models.OrderLine) RawLine {
	raw := RawLine{
		Source:              SourceOrder,
		SourceID:            order.ID,
		LineID:              line.ID,
		TenantID:            order.TenantID,
		BuyerID:             order.BuyerID,
		ProductID:           line.ProductID,
		ProductName:         line.ProductName,
		Category:            deref(line.Category),
		SoldAt:              order.CreatedAt,
		RecordedGranularity: string(line.Granularity),
		Quantity:            decimal.NewFromInt(int64(line.Quantity)),
		UnitsPerCase:        line.UnitsPerCaseSnapshot,
		UnitPrice:           line.UnitPriceSnapshot,
		CasePrice:           line.CasePriceSnapshot,
		LineTotal:           decimal.NewNullDecimal(line.LineTotal),
		UnitCost:            line.UnitCostSnapshot,
		CaseCost:            line.CaseCostSnapshot,
	}
	// cost_price_at_time is the cost of the ordered granularity and fills the matching side.
	if line.CostPriceAtTime.Valid {
		if line.Granularity == enums.GranularityCase && !raw.CaseCost.Valid {
			raw.CaseCost = line.CostPriceAtTime
		}
		if line.Granularity == enums.GranularityUnit && !raw.UnitCost.Valid {
			raw.UnitCost = line.CostPriceAtTime
		}
	}
	return raw
}

// FromInvoiceLine adapts a finalized invoice line.
func FromInvoiceLine(invoice *models.Invoice, line *models.InvoiceLine) RawLine {
	return RawLine{
		Source:              SourceInvoice,
		SourceID:            invoice.ID,
		LineID:              line.ID,
		TenantID:            invoice.TenantID,
		BuyerID:             invoice.BuyerID,
		ProductID:           line.ProductID,
		ProductName:         line.Description,
		Category:            deref(line.Category),
		SoldAt:              invoice.IssuedAt,
		RecordedGranularity: line.SoldAs,
		Quantity:            line.Quantity,
		UnitsPerCase:        line.UnitsPerCase,
		TotalPieces:         line.TotalPieces,
		UnitPrice:           line.UnitPrice,
		CasePrice:           line.CasePrice,
		LineTotal:           line.LineTotal,
		UnitCost:            line.UnitCost,
		CaseCost:            line.CaseCost,
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
