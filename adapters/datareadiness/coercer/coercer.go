package coercer

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"dataanalyst/domain/dataset"
)

// TypeCoercer parses raw cell text into typed values and decides column kinds
type TypeCoercer struct {
	config CoercionConfig
}

// CoercionConfig defines the coercion thresholds and rules
type CoercionConfig struct {
	NumericThreshold   float64 `json:"numeric_threshold" yaml:"numeric_threshold"`     // share of rows that must parse as numbers (strictly greater)
	BooleanThreshold   float64 `json:"boolean_threshold" yaml:"boolean_threshold"`     // share of rows that must parse as booleans, 0 disables
	TimestampThreshold float64 `json:"timestamp_threshold" yaml:"timestamp_threshold"` // share of rows that must parse as timestamps (at least)
	LenientNumbers     bool    `json:"lenient_numbers" yaml:"lenient_numbers"`         // accept currency, thousands separators, (neg)
	NormalizeStrings   bool    `json:"normalize_strings" yaml:"normalize_strings"`     // trim and lowercase leftover text
}

// DefaultCoercionConfig returns the 70% rule used by the cleaning pipeline
func DefaultCoercionConfig() CoercionConfig {
	return CoercionConfig{
		NumericThreshold:   0.7,
		BooleanThreshold:   0,
		TimestampThreshold: 0.7,
		LenientNumbers:     false,
		NormalizeStrings:   true,
	}
}

// NewTypeCoercer creates a coercer with the given config
func NewTypeCoercer(config CoercionConfig) *TypeCoercer {
	return &TypeCoercer{config: config}
}

// Config returns the active configuration
func (c *TypeCoercer) Config() CoercionConfig {
	return c.config
}

var missingTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-NaN": {}, "-nan": {},
	"null": {}, "NULL": {}, "None": {}, "#N/A": {}, "#NA": {}, "<NA>": {}, "#N/A N/A": {},
	"-1.#IND": {}, "1.#IND": {}, "-1.#QNAN": {}, "1.#QNAN": {},
}

// IsMissing reports whether raw cell text denotes a missing value
func IsMissing(s string) bool {
	_, ok := missingTokens[strings.TrimSpace(s)]
	return ok
}

// ParseNumber parses plain decimal or scientific notation
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "xX_") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// ParseInt parses a base-10 integer
func ParseInt(s string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseNumberLenient also handles parentheses for negatives, European
// decimals, currency symbols and percent signs.
func ParseNumberLenient(strVal string) (float64, bool) {
	cleanVal := strings.TrimSpace(strVal)
	if cleanVal == "" {
		return 0, false
	}

	isNegative := false
	if strings.HasPrefix(cleanVal, "(") && strings.HasSuffix(cleanVal, ")") {
		cleanVal = strings.TrimSuffix(strings.TrimPrefix(cleanVal, "("), ")")
		isNegative = true
	}

	for _, symbol := range []string{"$", "€", "£", "¥", "USD", "EUR", "GBP", "JPY", "%"} {
		cleanVal = strings.ReplaceAll(cleanVal, symbol, "")
	}
	cleanVal = strings.TrimSpace(cleanVal)

	hasComma := strings.Contains(cleanVal, ",")
	hasPeriod := strings.Contains(cleanVal, ".")
	hasSpace := strings.Contains(cleanVal, " ")

	switch {
	case hasComma && (hasPeriod || hasSpace):
		// 1.234,56 and 1 234,56 use the comma as decimal mark
		commaIdx := strings.LastIndex(cleanVal, ",")
		afterComma := cleanVal[commaIdx+1:]
		if commaIdx > strings.LastIndex(cleanVal, ".") && len(afterComma) <= 2 && isDigits(afterComma) {
			cleanVal = strings.ReplaceAll(cleanVal, ".", "")
			cleanVal = strings.ReplaceAll(cleanVal, " ", "")
			cleanVal = strings.ReplaceAll(cleanVal, ",", ".")
		} else {
			cleanVal = strings.ReplaceAll(cleanVal, ",", "")
			cleanVal = strings.ReplaceAll(cleanVal, " ", "")
		}
	case hasComma:
		// 1,234 is a thousands group, 12,5 is a decimal
		commaIdx := strings.LastIndex(cleanVal, ",")
		if len(cleanVal)-commaIdx-1 == 3 && isDigits(strings.TrimPrefix(strings.ReplaceAll(cleanVal, ",", ""), "-")) {
			cleanVal = strings.ReplaceAll(cleanVal, ",", "")
		} else {
			cleanVal = strings.ReplaceAll(cleanVal, ",", ".")
		}
	default:
		cleanVal = strings.ReplaceAll(cleanVal, " ", "")
	}

	if isNegative {
		cleanVal = "-" + cleanVal
	}
	return ParseNumber(cleanVal)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseBool accepts the spellings a spreadsheet export produces
func ParseBool(s string) (bool, bool) {
	switch strings.TrimSpace(s) {
	case "True", "TRUE", "true":
		return true, true
	case "False", "FALSE", "false":
		return false, true
	}
	return false, false
}

var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"02-Jan-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseTimestamp tries the supported layouts in order. Bare numbers are
// never treated as timestamps.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if _, ok := ParseNumber(s); ok {
		return time.Time{}, false
	}
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeString trims, lowercases and collapses whitespace
func NormalizeString(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}

// parseNumber honours the LenientNumbers setting
func (c *TypeCoercer) parseNumber(s string) (float64, bool) {
	if c.config.LenientNumbers {
		return ParseNumberLenient(s)
	}
	return ParseNumber(s)
}

// InferKind picks the storage kind for freshly read cells. A column is int
// when every value is an integer and none is missing, float when every present value is
// numeric, bool when every value is a boolean literal and none is missing,
// and object otherwise. A column with no present values is float.
func InferKind(raw []string) dataset.Kind {
	present, ints, nums, bools := 0, 0, 0, 0
	for _, s := range raw {
		if IsMissing(s) {
			continue
		}
		present++
		if _, ok := ParseInt(s); ok {
			ints++
		}
		if _, ok := ParseNumber(s); ok {
			nums++
		}
		if _, ok := ParseBool(s); ok {
			bools++
		}
	}
	switch {
	case present == 0:
		return dataset.KindFloat
	case ints == present && present == len(raw):
		return dataset.KindInt
	case nums == present:
		return dataset.KindFloat
	case bools == present && present == len(raw):
		return dataset.KindBool
	default:
		return dataset.KindObject
	}
}

// BuildColumn converts raw cell text into a typed column of the given kind.
// Cells that do not parse become missing.
func BuildColumn(name string, kind dataset.Kind, raw []string) *dataset.Column {
	values := make([]dataset.Value, len(raw))
	for i, s := range raw {
		if IsMissing(s) {
			values[i] = dataset.Missing()
			continue
		}
		switch kind {
		case dataset.KindInt, dataset.KindFloat:
			if v, ok := ParseNumber(s); ok {
				values[i] = dataset.Number(v)
			} else {
				values[i] = dataset.Missing()
			}
		case dataset.KindBool:
			if b, ok := ParseBool(s); ok {
				values[i] = dataset.Bool(b)
			} else {
				values[i] = dataset.Missing()
			}
		case dataset.KindDatetime:
			if t, ok := ParseTimestamp(s); ok {
				values[i] = dataset.Time(t)
			} else {
				values[i] = dataset.Missing()
			}
		default:
			values[i] = dataset.String(s)
		}
	}
	return dataset.NewColumn(name, kind, values)
}

// AnalyzeTypeDistribution counts how many cells parse as each type. Ratios are
// taken over all rows, missing included, so a sparse column cannot be promoted
// on the strength of a handful of values.
func (c *TypeCoercer) AnalyzeTypeDistribution(values []string) TypeAnalysis {
	analysis := TypeAnalysis{TotalCount: len(values)}

	for _, val := range values {
		if IsMissing(val) {
			continue
		}
		analysis.ValidCount++
		if _, ok := c.parseNumber(val); ok {
			analysis.NumericCount++
		}
		if _, ok := ParseBool(val); ok {
			analysis.BooleanCount++
		}
		if _, ok := ParseTimestamp(val); ok {
			analysis.TimestampCount++
		}
	}

	if analysis.TotalCount > 0 {
		total := float64(analysis.TotalCount)
		analysis.NumericRatio = float64(analysis.NumericCount) / total
		analysis.BooleanRatio = float64(analysis.BooleanCount) / total
		analysis.TimestampRatio = float64(analysis.TimestampCount) / total
	}
	analysis.RecommendedKind = c.determineRecommendedKind(analysis)
	return analysis
}

// determineRecommendedKind applies datetime first, then numeric, then boolean
func (c *TypeCoercer) determineRecommendedKind(analysis TypeAnalysis) dataset.Kind {
	if analysis.TotalCount == 0 {
		return dataset.KindObject
	}
	if analysis.TimestampRatio >= c.config.TimestampThreshold {
		return dataset.KindDatetime
	}
	if analysis.NumericRatio > c.config.NumericThreshold {
		return dataset.KindFloat
	}
	if c.config.BooleanThreshold > 0 && analysis.BooleanRatio >= c.config.BooleanThreshold {
		return dataset.KindBool
	}
	return dataset.KindObject
}

// Coerce converts an object column to the recommended kind. Text that stays
// text is normalized when NormalizeStrings is set.
func (c *TypeCoercer) Coerce(col *dataset.Column) (*dataset.Column, TypeAnalysis) {
	raw := make([]string, col.Len())
	for i, v := range col.Values {
		if v.Missing {
			raw[i] = ""
			continue
		}
		raw[i] = col.Format(i)
	}

	analysis := c.AnalyzeTypeDistribution(raw)
	switch analysis.RecommendedKind {
	case dataset.KindDatetime:
		return BuildColumn(col.Name, dataset.KindDatetime, raw), analysis
	case dataset.KindFloat:
		values := make([]dataset.Value, len(raw))
		for i, s := range raw {
			if v, ok := c.parseNumber(s); ok && !IsMissing(s) {
				values[i] = dataset.Number(v)
			} else {
				values[i] = dataset.Missing()
			}
		}
		return dataset.NewColumn(col.Name, dataset.KindFloat, values), analysis
	case dataset.KindBool:
		return BuildColumn(col.Name, dataset.KindBool, raw), analysis
	}

	out := col.Copy()
	if c.config.NormalizeStrings {
		for i, v := range out.Values {
			if !v.Missing {
				out.Values[i] = dataset.String(NormalizeString(v.Str))
			}
		}
	}
	return out, analysis
}

// TypeAnalysis contains the results of type distribution analysis
type TypeAnalysis struct {
	TotalCount      int          `json:"total_count"`
	ValidCount      int          `json:"valid_count"`
	NumericCount    int          `json:"numeric_count"`
	BooleanCount    int          `json:"boolean_count"`
	TimestampCount  int          `json:"timestamp_count"`
	NumericRatio    float64      `json:"numeric_ratio"`
	BooleanRatio    float64      `json:"boolean_ratio"`
	TimestampRatio  float64      `json:"timestamp_ratio"`
	RecommendedKind dataset.Kind `json:"recommended_kind"`
}
