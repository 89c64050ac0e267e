package enums

import (
	"fmt"
	"strings"
)

// Granularity is the ordering/selling unit of a line: a single piece or a full case.
type Granularity string

const (
	GranularityUnit Granularity = "unit"
	GranularityCase Granularity = "case"
)

var validGranularities = []Granularity{
	GranularityUnit,
	GranularityCase,
}

// String implements fmt.Stringer.
func (g Granularity) String() string {
	return string(g)
}

// IsValid reports whether the value is a known Granularity.
func (g Granularity) IsValid() bool {
	for _, candidate := range validGranularities {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGranularity converts raw input into a Granularity.
func ParseGranularity(value string) (Granularity, error) {
	for _, candidate := range validGranularities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid granularity %q", value)
}

// DetectGranularity maps a free-text sold-as value recorded by an upstream tool.
// Only an exact "case" (ignoring surrounding space and letter case) maps to a case line.
func DetectGranularity(recorded string) Granularity {
	if strings.EqualFold(strings.TrimSpace(recorded), string(GranularityCase)) {
		return GranularityCase
	}
	return GranularityUnit
}
