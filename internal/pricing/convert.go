package pricing

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/caseflow-backend/pkg/enums"
)

// CaseToUnit splits a case amount across its units.
func CaseToUnit(caseAmount decimal.Decimal, unitsPerCase int) decimal.Decimal {
	return caseAmount.Div(decimal.NewFromInt(int64(unitsPerCase)))
}

// UnitToCase multiplies a unit amount up to a full case.
func UnitToCase(unitAmount decimal.Decimal, unitsPerCase int) decimal.Decimal {
	return unitAmount.Mul(decimal.NewFromInt(int64(unitsPerCase)))
}

var (
	ErrNoCaseSize       = errors.New("no units per case")
	ErrQuantityOverflow = errors.New("quantity out of range")
)

// RequiredPieces converts an ordered quantity into base units.
// Case lines without a usable units-per-case factor cannot be converted.
func RequiredPieces(g enums.Granularity, qty int, unitsPerCase *int) (int, error) {
	if qty < 0 {
		return 0, ErrQuantityOverflow
	}
	if g != enums.GranularityCase {
		return qty, nil
	}
	upc, ok := caseSize(unitsPerCase)
	if !ok {
		return 0, ErrNoCaseSize
	}
	if qty > math.MaxInt/upc {
		return 0, ErrQuantityOverflow
	}
	return qty * upc, nil
}

// CaseSize returns the factor when it is present and positive.
func CaseSize(unitsPerCase *int) (int, bool) {
	return caseSize(unitsPerCase)
}

func caseSize(unitsPerCase *int) (int, bool) {
	if unitsPerCase == nil || *unitsPerCase <= 0 {
		return 0, false
	}
	return *unitsPerCase, true
}
