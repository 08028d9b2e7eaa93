package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"dataanalyst/adapters/datareadiness/coercer"
	"dataanalyst/adapters/excel"
	"dataanalyst/adapters/sqlstore"
	"dataanalyst/domain/dataset"
	"dataanalyst/internal/analysis"
	"dataanalyst/internal/config"
	"dataanalyst/internal/errors"
	"dataanalyst/internal/migration"
	"dataanalyst/internal/processing"
	"dataanalyst/internal/report"
	"dataanalyst/internal/visualization"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var now = time.Now

// lenientNumbers is bound to the root --lenient-numbers flag
var lenientNumbers bool

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "dataanalyst",
		Short:         "DataAnalyst Pro command line for headless analysis",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&lenientNumbers, "lenient-numbers", false,
		"With --clean, convert text such as \"$1,200\" or \"(5)\" to numbers")

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newReportCmd(),
		newExportCmd(),
		newChartCmd(),
		newMigrateCmd(),
	)
	return rootCmd
}

// loadFrame reads and validates a CSV or Excel file, optionally cleaning it
func loadFrame(path string, clean bool) (*dataset.Frame, error) {
	if err := errors.ValidateFile(path, ""); err != nil {
		return nil, err
	}
	f, err := excel.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := errors.ValidateFrame(f); err != nil {
		return nil, err
	}
	if clean {
		cfg := coercer.DefaultCoercionConfig()
		cfg.LenientNumbers = lenientNumbers
		return processing.NewDataProcessor(cfg).Process(f)
	}
	return f, nil
}

// userError replaces err with the message the dashboard would show
func userError(err error) error {
	return errors.New(errors.GetCode(err), errors.UserMessage(err, ""))
}

type analyzeOutput struct {
	File     string                 `json:"file"`
	Rows     int                    `json:"rows"`
	Columns  int                    `json:"columns"`
	Summary  analysis.ReportSummary `json:"summary"`
	Insights analysis.Insights      `json:"insights"`
}

func newAnalyzeCmd() *cobra.Command {
	var clean bool
	var format string

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Print statistics, insights and recommendations for a CSV or Excel file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := loadFrame(args[0], clean)
			if err != nil {
				return userError(err)
			}
			out := analyzeOutput{
				File:     args[0],
				Rows:     f.Rows(),
				Columns:  f.Width(),
				Summary:  analysis.NewStatisticalAnalyzer().Summarize(f),
				Insights: analysis.GenerateInsights(f),
			}

			switch format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			case "text":
				printAnalysis(cmd.OutOrStdout(), out)
				return nil
			default:
				return fmt.Errorf("unknown format %q (use json or text)", format)
			}
		},
	}

	cmd.Flags().BoolVar(&clean, "clean", false, "Remove duplicates and impute missing values first")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: json|text")
	return cmd
}

func printAnalysis(w io.Writer, out analyzeOutput) {
	fmt.Fprintf(w, "%s\n%s\n", out.File, strings.Repeat("=", len(out.File)))
	for _, line := range out.Insights.Overview {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "Missing values: %.2f%% of the dataset\n", out.Summary.MissingPercentage)
	fmt.Fprintf(w, "Outliers detected: %d\n", out.Summary.OutlierCount)

	if len(out.Insights.Missing) > 0 {
		fmt.Fprintf(w, "\nMissing data:\n")
		for _, line := range out.Insights.Missing {
			fmt.Fprintf(w, "  - %s\n", line)
		}
	}
	if len(out.Insights.Correlations) > 0 {
		fmt.Fprintf(w, "\nTop correlations:\n")
		for _, line := range out.Insights.Correlations {
			fmt.Fprintf(w, "  - %s\n", line)
		}
	}
	if len(out.Insights.Recommendations) > 0 {
		fmt.Fprintf(w, "\nRecommendations:\n")
		for _, line := range out.Insights.Recommendations {
			fmt.Fprintf(w, "  - %s\n", line)
		}
	}
}

func newReportCmd() *cobra.Command {
	var output string
	var clean bool

	cmd := &cobra.Command{
		Use:   "report <file>",
		Short: "Generate the PDF analysis report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := loadFrame(args[0], clean)
			if err != nil {
				return userError(err)
			}
			ts := now()
			if output == "" {
				output = excel.ExportFilename(excel.ExportReport, ts)
			}

			var buf bytes.Buffer
			summary := analysis.NewStatisticalAnalyzer().Summarize(f)
			if err := report.NewGenerator(visualization.DefaultPalette()).GeneratePDF(cmd.Context(), &buf, f, summary, ts); err != nil {
				return userError(err)
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output PDF path (default data_analysis_report_<timestamp>.pdf)")
	cmd.Flags().BoolVar(&clean, "clean", false, "Clean the data before reporting")
	return cmd
}

func newExportCmd() *cobra.Command {
	var output, format string
	var clean bool

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Convert a dataset to CSV or XLSX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			if format != excel.ExportCSV && format != excel.ExportXLSX {
				return fmt.Errorf("unknown format %q (use csv or xlsx)", format)
			}
			f, err := loadFrame(args[0], clean)
			if err != nil {
				return userError(err)
			}
			if output == "" {
				output = excel.ExportFilename(format, now())
			}

			var buf bytes.Buffer
			if format == excel.ExportCSV {
				err = excel.WriteCSV(&buf, f)
			} else {
				err = excel.WriteXLSX(&buf, f)
			}
			if err != nil {
				return userError(err)
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows to %s\n", f.Rows(), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", excel.ExportCSV, "Export format: csv|xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default data_export_<timestamp>.<format>)")
	cmd.Flags().BoolVar(&clean, "clean", false, "Clean the data before exporting")
	return cmd
}

func newChartCmd() *cobra.Command {
	var req visualization.ChartRequest

	cmd := &cobra.Command{
		Use:   "chart <file>",
		Short: "Print a chart as plotly figure JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := loadFrame(args[0], false)
			if err != nil {
				return userError(err)
			}
			fig, err := visualization.BuildChart(f, req)
			if err != nil {
				return userError(err)
			}
			raw, err := fig.JSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Type, "type", visualization.ChartBar,
		"Chart type: "+strings.Join(visualization.ChartTypes, "|"))
	cmd.Flags().StringVar(&req.X, "x", "", "X-axis column")
	cmd.Flags().StringVar(&req.Y, "y", "", "Y-axis column")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|status]",
		Short:     "Apply or inspect database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := sqlstore.Open(cmd.Context(), cfg.Database.Driver, cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			runner := migration.NewRunner(cfg.Database.Driver)
			if action == "status" {
				return runner.Status(cmd.Context(), db)
			}
			if err := runner.Run(cmd.Context(), db); err != nil {
				return err
			}
			version, err := runner.Version(cmd.Context(), db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema at version %d\n", cfg.Database.Driver, version)
			return nil
		},
	}
}
