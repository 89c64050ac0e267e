package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/caseflow-backend/internal/pricing"
	"github.com/angelmondragon/caseflow-backend/pkg/db/models"
	"github.com/angelmondragon/caseflow-backend/pkg/enums"
)

// snapshotScale is the number of decimal places stored for every price and cost snapshot.
const snapshotScale = 6

// buildLineSnapshot copies everything reporting needs into the line so it never has to
// re-resolve pricing. Both price sides are stored regardless of the ordered granularity.
func buildLineSnapshot(tenantID uuid.UUID, position int, line LineRequest, product *models.Product, prices pricing.EffectivePrices) models.OrderLine {
	selling := prices.PriceFor(line.Granularity).Decimal.Round(snapshotScale)
	productID := product.ID

	return models.OrderLine{
		ID:                   uuid.New(),
		TenantID:             tenantID,
		Position:             position,
		ProductID:            &productID,
		ProductName:          product.Name,
		Category:             copyString(product.Category),
		Granularity:          line.Granularity,
		Quantity:             line.Quantity,
		UnitsPerCaseSnapshot: copyInt(product.UnitsPerCase),
		UnitPriceSnapshot:    roundNull(prices.UnitPrice),
		CasePriceSnapshot:    roundNull(prices.CasePrice),
		SellingPriceAtTime:   selling,
		CostPriceAtTime:      roundNull(costFor(line.Granularity, product)),
		UnitCostSnapshot:     roundNull(product.CostPerUnit),
		CaseCostSnapshot:     roundNull(product.CostPerCase),
		LineTotal:            selling.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(snapshotScale),
	}
}

// costFor returns the catalog cost matching the granularity, derived from the other side
// through units-per-case when only that side is recorded.
func costFor(g enums.Granularity, product *models.Product) decimal.NullDecimal {
	upc, hasUPC := product.CaseSize()
	if g == enums.GranularityCase {
		if product.CostPerCase.Valid {
			return product.CostPerCase
		}
		if product.CostPerUnit.Valid && hasUPC {
			return decimal.NewNullDecimal(pricing.UnitToCase(product.CostPerUnit.Decimal, upc))
		}
		return decimal.NullDecimal{}
	}
	if product.CostPerUnit.Valid {
		return product.CostPerUnit
	}
	if product.CostPerCase.Valid && hasUPC {
		return decimal.NewNullDecimal(pricing.CaseToUnit(product.CostPerCase.Decimal, upc))
	}
	return decimal.NullDecimal{}
}

func roundNull(v decimal.NullDecimal) decimal.NullDecimal {
	if !v.Valid {
		return v
	}
	return decimal.NewNullDecimal(v.Decimal.Round(snapshotScale))
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
