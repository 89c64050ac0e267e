package reporting

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/caseflow-backend/pkg/enums"
)

var hundred = decimal.NewFromInt(100)

// Totals sums normalized lines. SoldUnits only counts lines whose unit quantity is known.
type Totals struct {
	LineCount           int                 `json:"line_count"`
	SoldUnits           decimal.Decimal     `json:"sold_units"`
	UnitsExcludedLines  int                 `json:"units_excluded_lines"`
	SoldCases           decimal.Decimal     `json:"sold_cases"`
	Revenue             decimal.Decimal     `json:"revenue"`
	Cost                decimal.Decimal     `json:"cost"`
	Profit              decimal.Decimal     `json:"profit"`
	MarginPercent       decimal.NullDecimal `json:"margin_percent"`
	HasEstimatedCost    bool                `json:"has_estimated_cost"`
	EstimatedCostLines  int                 `json:"estimated_cost_lines"`
	CostUnknownLines    int                 `json:"cost_unknown_lines"`
	RevenueUnknownLines int                 `json:"revenue_unknown_lines"`
}

// Aggregate sums the per-line fields without re-deriving any conversion.
func Aggregate(lines []NormalizedLine) Totals {
	totals := Totals{
		SoldUnits: decimal.Zero,
		SoldCases: decimal.Zero,
		Revenue:   decimal.Zero,
		Cost:      decimal.Zero,
		Profit:    decimal.Zero,
	}
	for _, line := range lines {
		totals.LineCount++
		if line.SoldUnits.Valid {
			totals.SoldUnits = totals.SoldUnits.Add(line.SoldUnits.Decimal)
		} else {
			totals.UnitsExcludedLines++
		}
		totals.SoldCases = totals.SoldCases.Add(line.SoldCases)
		totals.Revenue = totals.Revenue.Add(line.Revenue)
		totals.Cost = totals.Cost.Add(line.Cost)
		totals.Profit = totals.Profit.Add(line.Profit)
		if line.IsEstimatedCost {
			totals.HasEstimatedCost = true
			totals.EstimatedCostLines++
		}
		if line.CostUnknown {
			totals.CostUnknownLines++
		}
		if line.RevenueUnknown {
			totals.RevenueUnknownLines++
		}
	}
	if !totals.Revenue.IsZero() {
		totals.MarginPercent = decimal.NewNullDecimal(totals.Profit.Div(totals.Revenue).Mul(hundred).Round(2))
	}
	return totals
}

// GroupKey selects the dimension used by GroupBy.
type GroupKey string

const (
	KeyProduct  GroupKey = "product"
	KeyBuyer    GroupKey = "buyer"
	KeyDay      GroupKey = "day"
	KeyCategory GroupKey = "category"
)

// ParseGroupKey converts raw input into a GroupKey. An empty value means no grouping.
func ParseGroupKey(value string) (GroupKey, error) {
	switch GroupKey(strings.ToLower(strings.TrimSpace(value))) {
	case "":
		return "", nil
	case KeyProduct:
		return KeyProduct, nil
	case KeyBuyer:
		return KeyBuyer, nil
	case KeyDay:
		return KeyDay, nil
	case KeyCategory:
		return KeyCategory, nil
	default:
		return "", fmt.Errorf("invalid group key %q", value)
	}
}

// Group is the totals of the lines sharing one key value.
type Group struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Totals Totals `json:"totals"`
}

const uncategorized = "uncategorized"

// GroupBy buckets lines by the key and aggregates each bucket. Groups are sorted by key.
func GroupBy(lines []NormalizedLine, key GroupKey) []Group {
	buckets := map[string][]NormalizedLine{}
	labels := map[string]string{}
	for _, line := range lines {
		k, label := groupValue(line, key)
		buckets[k] = append(buckets[k], line)
		if _, ok := labels[k]; !ok {
			labels[k] = label
		}
	}

	groups := make([]Group, 0, len(buckets))
	for k, bucket := range buckets {
		groups = append(groups, Group{Key: k, Label: labels[k], Totals: Aggregate(bucket)})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups
}

func groupValue(line NormalizedLine, key GroupKey) (string, string) {
	switch key {
	case KeyBuyer:
		return line.BuyerID.String(), line.BuyerID.String()
	case KeyDay:
		day := line.SoldAt.UTC().Format("2006-01-02")
		return day, day
	case KeyCategory:
		if line.Category == "" {
			return uncategorized, uncategorized
		}
		return strings.ToLower(line.Category), line.Category
	default:
		return productKey(line), line.ProductName
	}
}

// productKey falls back to the denormalized name for lines whose product reference was removed.
func productKey(line NormalizedLine) string {
	if line.ProductID != nil {
		return line.ProductID.String()
	}
	return "name:" + strings.ToLower(strings.TrimSpace(line.ProductName))
}

// MixRow is the case versus unit split of one product.
type MixRow struct {
	ProductKey       string              `json:"product_key"`
	ProductName      string              `json:"product_name"`
	CaseLines        int                 `json:"case_lines"`
	UnitLines        int                 `json:"unit_lines"`
	CaseUnits        decimal.Decimal     `json:"case_units"`
	UnitUnits        decimal.Decimal     `json:"unit_units"`
	CaseRevenue      decimal.Decimal     `json:"case_revenue"`
	UnitRevenue      decimal.Decimal     `json:"unit_revenue"`
	CaseSharePercent decimal.NullDecimal `json:"case_share_percent"`
}

// SalesMix splits sold units and revenue per product by the granularity they were sold in.
// Case share is measured on known units.
func SalesMix(lines []NormalizedLine) []MixRow {
	rows := map[string]*MixRow{}
	order := []string{}
	for _, line := range lines {
		k := productKey(line)
		row, ok := rows[k]
		if !ok {
			row = &MixRow{
				ProductKey:  k,
				ProductName: line.ProductName,
				CaseUnits:   decimal.Zero,
				UnitUnits:   decimal.Zero,
				CaseRevenue: decimal.Zero,
				UnitRevenue: decimal.Zero,
			}
			rows[k] = row
			order = append(order, k)
		}
		units := decimal.Zero
		if line.SoldUnits.Valid {
			units = line.SoldUnits.Decimal
		}
		if line.SoldUnit == enums.GranularityCase {
			row.CaseLines++
			row.CaseUnits = row.CaseUnits.Add(units)
			row.CaseRevenue = row.CaseRevenue.Add(line.Revenue)
		} else {
			row.UnitLines++
			row.UnitUnits = row.UnitUnits.Add(units)
			row.UnitRevenue = row.UnitRevenue.Add(line.Revenue)
		}
	}

	out := make([]MixRow, 0, len(order))
	for _, k := range order {
		row := rows[k]
		total := row.CaseUnits.Add(row.UnitUnits)
		if !total.IsZero() {
			row.CaseSharePercent = decimal.NewNullDecimal(row.CaseUnits.Div(total).Mul(hundred).Round(2))
		}
		out = append(out, *row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ProductName < out[j].ProductName })
	return out
}
