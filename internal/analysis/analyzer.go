package analysis

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"dataanalyst/domain/dataset"
	"dataanalyst/internal/errors"

	"golang.org/x/sync/errgroup"
)

// Analysis bundles the statistics computed for one frame
type Analysis struct {
	Numerical   []NumericSummary     `json:"numerical"`
	Categorical []CategoricalSummary `json:"categorical"`
	Correlation CorrelationMatrix    `json:"correlation"`
	Describe    DescribeTable        `json:"describe"`
}

// StrongestCorrelation is the off-diagonal pair with the largest |r|
type StrongestCorrelation struct {
	Pair  string  `json:"pair"`
	Value float64 `json:"value"`
}

// ReportSummary carries everything the PDF and markdown reports print
type ReportSummary struct {
	NumericColumns       []string              `json:"numeric_columns"`
	CategoricalColumns   []string              `json:"categorical_columns"`
	MissingPercentage    float64               `json:"missing_percentage"`
	DescriptiveStats     []NumericSummary      `json:"descriptive_stats"`
	OutlierCount         int                   `json:"outlier_count"`
	StrongestCorrelation *StrongestCorrelation `json:"strongest_correlation,omitempty"`
	Patterns             []string              `json:"patterns"`
	Recommendations      []string              `json:"recommendations"`
}

// StatisticalAnalyzer runs the statistics pipeline
type StatisticalAnalyzer struct{}

// NewStatisticalAnalyzer creates an analyzer
func NewStatisticalAnalyzer() *StatisticalAnalyzer {
	return &StatisticalAnalyzer{}
}

// Analyze computes numeric, categorical and correlation statistics concurrently
func (a *StatisticalAnalyzer) Analyze(ctx context.Context, f *dataset.Frame) (*Analysis, error) {
	if err := errors.ValidateFrame(f); err != nil {
		return nil, err
	}
	start := time.Now()
	result := &Analysis{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result.Numerical = NumericalStatistics(f)
		return gctx.Err()
	})
	g.Go(func() error {
		result.Categorical = CategoricalStatistics(f)
		return gctx.Err()
	})
	g.Go(func() error {
		result.Correlation = CalculateCorrelationMatrix(f)
		return gctx.Err()
	})
	g.Go(func() error {
		result.Describe = Describe(f)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "analysis cancelled")
	}

	log.Printf("[Analyzer] analyzed %d rows x %d columns in %.2fms",
		f.Rows(), f.Width(), float64(time.Since(start).Nanoseconds())/1e6)
	return result, nil
}

// Summarize builds the report summary
func (a *StatisticalAnalyzer) Summarize(f *dataset.Frame) ReportSummary {
	summary := ReportSummary{
		NumericColumns:     f.NumericColumns(),
		CategoricalColumns: f.NonNumericColumns(),
		MissingPercentage:  Round2(f.MissingRate() * 100),
		DescriptiveStats:   NumericalStatistics(f),
		Patterns:           []string{},
		Recommendations:    Recommendations(f),
	}
	if summary.Recommendations == nil {
		summary.Recommendations = []string{}
	}

	for _, name := range summary.NumericColumns {
		summary.OutlierCount += CountOutliers(f, name)
	}

	matrix := CalculateCorrelationMatrix(f)
	if !matrix.Empty() {
		strongest := &StrongestCorrelation{Pair: "N/A"}
		for _, pair := range matrix.Pairs() {
			if math.Abs(pair.Value) > math.Abs(strongest.Value) {
				strongest.Pair = fmt.Sprintf("%s and %s", pair.A, pair.B)
				strongest.Value = pair.Value
			}
		}
		summary.StrongestCorrelation = strongest
		if strongest.Pair != "N/A" {
			summary.Patterns = append(summary.Patterns,
				fmt.Sprintf("Strong correlation between %s (%.2f)", strongest.Pair, strongest.Value))
		}
	}
	return summary
}
