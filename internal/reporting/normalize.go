// Package reporting turns sold lines from orders and invoices into one canonical
// accounting line and aggregates them for profitability and sales-mix reports.
package reporting

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/caseflow-backend/internal/pricing"
	"github.com/angelmondragon/caseflow-backend/pkg/enums"
)

// NormalizedLine is one sold line with consistent case and unit math.
type NormalizedLine struct {
	Source       Source
	SourceID     uuid.UUID
	LineID       uuid.UUID
	TenantID     uuid.UUID
	BuyerID      uuid.UUID
	ProductID    *uuid.UUID
	ProductName  string
	Category     string
	SoldAt       time.Time
	SoldUnit     enums.Granularity
	SoldQty      decimal.Decimal
	SoldCases    decimal.Decimal
	SoldUnits    decimal.NullDecimal
	UnitsPerCase *int

	Revenue decimal.Decimal
	Cost    decimal.Decimal
	Profit  decimal.Decimal

	IsEstimatedCost    bool
	IsEstimatedRevenue bool
	// UnitsUnknown lines must be left out of unit totals rather than counted as zero.
	UnitsUnknown   bool
	CostUnknown    bool
	RevenueUnknown bool
}

// NormalizeLine reconciles quantity, revenue and cost for one raw line. Missing data
// degrades to flags, never to an error.
func NormalizeLine(raw RawLine, catalog *CatalogRef) NormalizedLine {
	out := NormalizedLine{
		Source:      raw.Source,
		SourceID:    raw.SourceID,
		LineID:      raw.LineID,
		TenantID:    raw.TenantID,
		BuyerID:     raw.BuyerID,
		ProductID:   raw.ProductID,
		ProductName: raw.ProductName,
		Category:    raw.Category,
		SoldAt:      raw.SoldAt,
		SoldUnit:    enums.DetectGranularity(raw.RecordedGranularity),
		SoldQty:     raw.Quantity,
	}
	if catalog != nil {
		if out.ProductName == "" {
			out.ProductName = catalog.Name
		}
		if out.Category == "" {
			out.Category = catalog.Category
		}
	}

	upc, hasUPC := unitsPerCase(raw, catalog)
	if hasUPC {
		size := upc
		out.UnitsPerCase = &size
	}
	upcDec := decimal.NewFromInt(int64(upc))

	if out.SoldUnit == enums.GranularityCase {
		out.SoldCases = out.SoldQty
		switch {
		case hasUPC:
			out.SoldUnits = decimal.NewNullDecimal(out.SoldQty.Mul(upcDec))
		case raw.TotalPieces != nil && *raw.TotalPieces >= 0:
			out.SoldUnits = decimal.NewNullDecimal(decimal.NewFromInt(int64(*raw.TotalPieces)))
		default:
			out.UnitsUnknown = true
		}
	} else {
		out.SoldUnits = decimal.NewNullDecimal(out.SoldQty)
		out.SoldCases = decimal.Zero
		if hasUPC {
			out.SoldCases = out.SoldQty.Div(upcDec)
		}
	}

	out.Revenue, out.IsEstimatedRevenue, out.RevenueUnknown = revenueFor(out, raw, catalog, upc, hasUPC)
	out.Cost, out.IsEstimatedCost, out.CostUnknown = costFor(out, raw, catalog, upc, hasUPC)
	out.Profit = out.Revenue.Sub(out.Cost)
	return out
}

func unitsPerCase(raw RawLine, catalog *CatalogRef) (int, bool) {
	if upc, ok := pricing.CaseSize(raw.UnitsPerCase); ok {
		return upc, true
	}
	if catalog != nil {
		return pricing.CaseSize(catalog.UnitsPerCase)
	}
	return 0, false
}

// priceFor picks the price of the sold granularity, deriving it from the other side when needed.
func priceFor(g enums.Granularity, perUnit, perCase decimal.NullDecimal, upc int, hasUPC bool) (decimal.Decimal, bool) {
	if g == enums.GranularityCase {
		if perCase.Valid {
			return perCase.Decimal, true
		}
		if perUnit.Valid && hasUPC {
			return pricing.UnitToCase(perUnit.Decimal, upc), true
		}
		return decimal.Zero, false
	}
	if perUnit.Valid {
		return perUnit.Decimal, true
	}
	if perCase.Valid && hasUPC {
		return pricing.CaseToUnit(perCase.Decimal, upc), true
	}
	return decimal.Zero, false
}

func revenueFor(line NormalizedLine, raw RawLine, catalog *CatalogRef, upc int, hasUPC bool) (revenue decimal.Decimal, estimated, unknown bool) {
	if raw.LineTotal.Valid {
		return raw.LineTotal.Decimal, false, false
	}
	if price, ok := priceFor(line.SoldUnit, raw.UnitPrice, raw.CasePrice, upc, hasUPC); ok {
		return line.SoldQty.Mul(price), false, false
	}
	if catalog != nil {
		if price, ok := priceFor(line.SoldUnit, catalog.SellPerUnit, catalog.SellPerCase, upc, hasUPC); ok {
			return line.SoldQty.Mul(price), true, false
		}
	}
	return decimal.Zero, false, true
}

// costFor runs the cost waterfall. A line-level snapshot always beats a catalog value,
// and within each tier the cost recorded for the sold granularity wins.
func costFor(line NormalizedLine, raw RawLine, catalog *CatalogRef, upc int, hasUPC bool) (cost decimal.Decimal, estimated, unknown bool) {
	qty := line.SoldQty
	upcDec := decimal.NewFromInt(int64(upc))

	var catUnit, catCase decimal.NullDecimal
	if catalog != nil {
		catUnit = catalog.CostPerUnit
		catCase = catalog.CostPerCase
	}

	if line.SoldUnit == enums.GranularityCase {
		switch {
		case raw.CaseCost.Valid:
			return qty.Mul(raw.CaseCost.Decimal), false, false
		case raw.UnitCost.Valid && hasUPC:
			return qty.Mul(raw.UnitCost.Decimal).Mul(upcDec), false, false
		case catCase.Valid:
			return qty.Mul(catCase.Decimal), true, false
		case catUnit.Valid && hasUPC:
			return qty.Mul(catUnit.Decimal).Mul(upcDec), true, false
		}
		if line.SoldUnits.Valid {
			if raw.UnitCost.Valid {
				return line.SoldUnits.Decimal.Mul(raw.UnitCost.Decimal), false, false
			}
			if catUnit.Valid {
				return line.SoldUnits.Decimal.Mul(catUnit.Decimal), true, false
			}
		}
		return decimal.Zero, false, true
	}

	switch {
	case raw.UnitCost.Valid:
		return qty.Mul(raw.UnitCost.Decimal), false, false
	case raw.CaseCost.Valid && hasUPC:
		return qty.Mul(pricing.CaseToUnit(raw.CaseCost.Decimal, upc)), false, false
	case catUnit.Valid:
		return qty.Mul(catUnit.Decimal), true, false
	case catCase.Valid && hasUPC:
		return qty.Mul(pricing.CaseToUnit(catCase.Decimal, upc)), true, false
	}
	return decimal.Zero, false, true
}
