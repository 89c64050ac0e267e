// Package pricing resolves the effective unit and case price of a catalog line.
//
// Each granularity is resolved independently through a fixed waterfall:
// buyer override, then bulk override, then the catalog base price. A side that
// is still missing is derived from the other side through units-per-case when
// that factor is known. Nothing here performs I/O.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/caseflow-backend/pkg/db/models"
	"github.com/angelmondragon/caseflow-backend/pkg/enums"
)

// PricePair is one pricing layer. Either side may be null.
type PricePair struct {
	PerUnit decimal.NullDecimal
	PerCase decimal.NullDecimal
}

// Input is the model-free form of a resolution request.
type Input struct {
	Base         PricePair
	Buyer        *PricePair
	Bulk         *PricePair
	UnitsPerCase *int
}

// Source names the layer a resolved price came from.
type Source string

const (
	SourceNone    Source = ""
	SourceBuyer   Source = "buyer_override"
	SourceBulk    Source = "bulk_override"
	SourceBase    Source = "catalog"
	SourceDerived Source = "derived"
)

// EffectivePrices is the resolved price of each granularity.
type EffectivePrices struct {
	UnitPrice  decimal.NullDecimal
	CasePrice  decimal.NullDecimal
	UnitSource Source
	CaseSource Source
}

// PriceFor returns the price matching the requested granularity.
func (e EffectivePrices) PriceFor(g enums.Granularity) decimal.NullDecimal {
	if g == enums.GranularityCase {
		return e.CasePrice
	}
	return e.UnitPrice
}

// Orderable reports whether the granularity resolved to a usable price.
func (e EffectivePrices) Orderable(g enums.Granularity) bool {
	return Usable(e.PriceFor(g))
}

// Usable reports whether a price can be charged. Null, zero and negative prices are not.
func Usable(p decimal.NullDecimal) bool {
	return p.Valid && p.Decimal.IsPositive()
}

// Resolve applies the waterfall to a model-free input.
func Resolve(in Input) EffectivePrices {
	var out EffectivePrices

	out.UnitPrice, out.UnitSource = pick(in, func(p PricePair) decimal.NullDecimal { return p.PerUnit })
	out.CasePrice, out.CaseSource = pick(in, func(p PricePair) decimal.NullDecimal { return p.PerCase })

	upc, ok := caseSize(in.UnitsPerCase)
	if !ok {
		return out
	}
	if !out.UnitPrice.Valid && out.CasePrice.Valid {
		out.UnitPrice = decimal.NewNullDecimal(CaseToUnit(out.CasePrice.Decimal, upc))
		out.UnitSource = SourceDerived
	}
	if !out.CasePrice.Valid && out.UnitPrice.Valid {
		out.CasePrice = decimal.NewNullDecimal(UnitToCase(out.UnitPrice.Decimal, upc))
		out.CaseSource = SourceDerived
	}
	return out
}

func pick(in Input, side func(PricePair) decimal.NullDecimal) (decimal.NullDecimal, Source) {
	if in.Buyer != nil {
		if v := side(*in.Buyer); v.Valid {
			return v, SourceBuyer
		}
	}
	if in.Bulk != nil {
		if v := side(*in.Bulk); v.Valid {
			return v, SourceBulk
		}
	}
	if v := side(in.Base); v.Valid {
		return v, SourceBase
	}
	return decimal.NullDecimal{}, SourceNone
}

// ResolveEffectivePrices resolves prices for a catalog row and its optional override rows.
func ResolveEffectivePrices(product *models.Product, buyer *models.BuyerPriceOverride, bulk *models.BulkPriceOverride) EffectivePrices {
	if product == nil {
		return EffectivePrices{}
	}
	in := Input{
		Base: PricePair{
			PerUnit: product.SellPerUnit,
			PerCase: product.SellPerCase,
		},
		UnitsPerCase: product.UnitsPerCase,
	}
	if buyer != nil {
		in.Buyer = &PricePair{PerUnit: buyer.PricePerUnit, PerCase: buyer.PricePerCase}
	}
	if bulk != nil {
		in.Bulk = &PricePair{PerUnit: bulk.PricePerUnit, PerCase: bulk.PricePerCase}
	}
	return Resolve(in)
}
