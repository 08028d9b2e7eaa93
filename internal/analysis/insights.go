package analysis

import (
	"fmt"
	"strings"

	"dataanalyst/domain/dataset"
)

// HighCardinalityThreshold is the unique-value count above which a
// categorical column is flagged for grouping or encoding
const HighCardinalityThreshold = 20

// Recommendation texts
const (
	RecommendMissing     = "Consider handling missing values using imputation techniques or removing rows/columns with excessive missing data."
	recommendOutliers    = "Consider addressing outliers in the following columns: "
	recommendCardinality = "Consider grouping or encoding high cardinality categorical variables: "
)

// Insights is the narrative shown on the insights tab
type Insights struct {
	Overview        []string `json:"overview"`
	MissingSummary  string   `json:"missing_summary,omitempty"`
	Missing         []string `json:"missing,omitempty"`
	Correlations    []string `json:"correlations,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// GenerateInsights describes the dataset, its gaps, its strongest
// correlations and what to do next
func GenerateInsights(f *dataset.Frame) Insights {
	insights := Insights{
		Overview: []string{
			fmt.Sprintf("Your dataset contains %d records with %d variables.", f.Rows(), f.Width()),
			fmt.Sprintf("There are %d numeric variables and %d categorical variables.",
				len(f.NumericColumns()), len(f.NonNumericColumns())),
		},
	}

	var missingCols int
	for _, col := range f.Columns {
		n := col.MissingCount()
		if n == 0 {
			continue
		}
		missingCols++
		insights.Missing = append(insights.Missing, fmt.Sprintf("%s: %d missing values (%.2f%%)",
			col.Name, n, float64(n)/float64(f.Rows())*100))
	}
	if missingCols > 0 {
		insights.MissingSummary = fmt.Sprintf("Your dataset contains missing values in %d columns.", missingCols)
	}

	if len(f.NumericColumns()) > 1 {
		for _, pair := range TopCorrelations(Correlate(f), 5) {
			insights.Correlations = append(insights.Correlations, fmt.Sprintf("%s and %s: %.2f (%s)",
				pair.A, pair.B, pair.Value, InterpretCorrelation(pair.Value)))
		}
	}

	insights.Recommendations = Recommendations(f)
	return insights
}

// Recommendations applies the missing-value, outlier and cardinality rules
func Recommendations(f *dataset.Frame) []string {
	var recs []string
	if f.MissingCount() > 0 {
		recs = append(recs, RecommendMissing)
	}

	var outliers []string
	for _, name := range f.NumericColumns() {
		if n := CountOutliers(f, name); n > 0 {
			outliers = append(outliers, fmt.Sprintf("%s (%d outliers)", name, n))
		}
	}
	if len(outliers) > 0 {
		recs = append(recs, recommendOutliers+strings.Join(outliers, ", "))
	}

	var highCard []string
	for _, name := range f.NonNumericColumns() {
		col, _ := f.Column(name)
		if n := col.UniqueCount(); n > HighCardinalityThreshold {
			highCard = append(highCard, fmt.Sprintf("%s (%d unique values)", name, n))
		}
	}
	if len(highCard) > 0 {
		recs = append(recs, recommendCardinality+strings.Join(highCard, ", "))
	}
	return recs
}
