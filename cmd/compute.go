package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nikogura/penalty-matrix/pkg/config"
	"github.com/nikogura/penalty-matrix/pkg/evidence"
	"github.com/nikogura/penalty-matrix/pkg/export"
	"github.com/nikogura/penalty-matrix/pkg/history"
	"github.com/nikogura/penalty-matrix/pkg/metrics"
	"github.com/nikogura/penalty-matrix/pkg/penalty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//nolint:gochecknoglobals // Cobra boilerplate
var computeOutputDir string

//nolint:gochecknoglobals // Cobra boilerplate
var computeFormats []string

//nolint:gochecknoglobals // Cobra boilerplate
var computeMetricsFile string

//nolint:gochecknoglobals // Cobra boilerplate
var computeName string

//nolint:gochecknoglobals // Cobra boilerplate
var computeSkipIndex bool

//nolint:gochecknoglobals // Cobra boilerplate
var computeCmd = &cobra.Command{
	Use:   "compute <violations-file-or-url>",
	Short: "Compute the penalty matrix for a batch of violations",
	Long: `Compute the penalty matrix for a batch of detected violations.

The violations can be provided as:
- A file path (e.g., violations.json)
- A URL (e.g., https://collector.example.com/batches/42)

Either a JSON array of violations or an object with a "violations" array is
accepted. Rejected lines are reported and dropped; the batch continues.

Example:
  penalty-matrix compute violations.json
  penalty-matrix compute violations.json --format json --format markdown -v
  penalty-matrix compute https://collector.example.com/batches/42 --name q3-filings`,
	Args: cobra.ExactArgs(1),
	RunE: runCompute,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(computeCmd)
	computeCmd.Flags().StringVar(&computeOutputDir, "output-dir", "", "Output directory (default from config)")
	computeCmd.Flags().StringSliceVar(&computeFormats, "format", nil, "Export formats: json, csv, markdown (default from config)")
	computeCmd.Flags().StringVar(&computeMetricsFile, "metrics-file", "", "Write prometheus metrics to this textfile (default from config)")
	computeCmd.Flags().StringVar(&computeName, "name", "", "Base name for output files (default derived from input)")
	computeCmd.Flags().BoolVar(&computeSkipIndex, "skip-index", false, "Do not update the matrix history index")
}

func runCompute(cmd *cobra.Command, args []string) (err error) {
	var cfg config.Config
	cfg, err = loadConfig()
	if err != nil {
		return err
	}

	applyComputeFlags(&cfg)

	err = cfg.Validate()
	if err != nil {
		err = fmt.Errorf("invalid options: %w", err)
		return err
	}

	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	_, err = computeOnce(cmd.Context(), cfg, args[0], logger)
	return err
}

func applyComputeFlags(cfg *config.Config) {
	if computeOutputDir != "" {
		cfg.OutputDir = computeOutputDir
	}
	if len(computeFormats) > 0 {
		cfg.Formats = computeFormats
	}
	if computeMetricsFile != "" {
		cfg.MetricsFile = computeMetricsFile
	}
}

// computeOnce runs one full load, compute and export cycle.
func computeOnce(ctx context.Context, cfg config.Config, input string, logger *zap.Logger) (matrix *penalty.Matrix, err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	registry, err := loadRegistry(cfg)
	if err != nil {
		return matrix, err
	}

	if getVerbose() {
		fmt.Printf("Loading violations from %s...\n", input)
	}

	var detections []evidence.Detection
	detections, err = evidence.Load(ctx, input, cfg.FetchTimeout)
	if err != nil {
		err = fmt.Errorf("failed to load violations: %w", err)
		return matrix, err
	}

	m := metrics.New()
	var engine *penalty.Engine
	engine, err = penalty.NewEngine(registry, penalty.WithLogger(logger), penalty.WithMetrics(m))
	if err != nil {
		err = fmt.Errorf("failed to create engine: %w", err)
		return matrix, err
	}

	matrix, err = engine.ComputeMatrix(detections, auditSink(logger))
	if err != nil {
		err = fmt.Errorf("penalty calculation failed, no report written: %w", err)
		return matrix, err
	}

	base := outputBase(input, matrix.CalculationTimestamp)
	var paths []string
	paths, err = export.WriteFiles(cfg.OutputDir, base, matrix, cfg.Formats)
	if err != nil {
		err = fmt.Errorf("failed to write reports: %w", err)
		return matrix, err
	}

	if cfg.MetricsFile != "" {
		err = m.WriteTextfile(cfg.MetricsFile)
		if err != nil {
			err = fmt.Errorf("failed to write metrics: %w", err)
			return matrix, err
		}
	}

	if !computeSkipIndex {
		indexErr := updateIndex(ctx, cfg.OutputDir, logger)
		if indexErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to update history index: %v\n", indexErr)
		}
	}

	printMatrixSummary(matrix, paths)

	return matrix, err
}

// auditSink prints audit lines in verbose mode and mirrors them to the log.
func auditSink(logger *zap.Logger) (sink penalty.AuditSink) {
	sink = func(line string) {
		if getVerbose() {
			fmt.Println(line)
		}
		logger.Debug(line)
	}
	return sink
}

func updateIndex(ctx context.Context, outputDir string, logger *zap.Logger) (err error) {
	var indexer *history.Indexer
	indexer, err = history.NewIndexer(outputDir, logger)
	if err != nil {
		return err
	}

	_, err = indexer.Index(ctx)
	return err
}

// outputBase derives the report base name from the input and the run time.
func outputBase(input string, at time.Time) (base string) {
	name := computeName
	if name == "" {
		name = "violations"
		if u, parseErr := url.Parse(input); parseErr == nil && (u.Scheme == "http" || u.Scheme == "https") {
			if last := filepath.Base(u.Path); last != "" && last != "/" && last != "." {
				name = last
			}
		} else {
			name = filepath.Base(input)
		}
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}

	base = fmt.Sprintf("%s-%s", name, at.UTC().Format("20060102T150405Z"))
	return base
}

func printMatrixSummary(matrix *penalty.Matrix, paths []string) {
	p := message.NewPrinter(language.English)

	p.Printf("Schedule %s: %d violations, %d accepted, %d rejected\n",
		matrix.ScheduleVersion, matrix.TotalViolations, matrix.ValidatedCount, matrix.RejectedCount)
	for _, document := range matrix.DocumentNames() {
		var subtotal int64
		for _, calc := range matrix.Documents[document] {
			if calc.Subtotal != nil {
				subtotal += *calc.Subtotal
			}
		}
		p.Printf("  %s: %d line(s), $%d\n", document, len(matrix.Documents[document]), subtotal)
	}
	p.Printf("Grand total: $%d\n", matrix.GrandTotal)

	if len(matrix.MissingStatuteMappings) > 0 {
		fmt.Fprintf(os.Stderr, "Missing statute mappings: %s\n", strings.Join(matrix.MissingStatuteMappings, ", "))
	}

	for _, path := range paths {
		fmt.Printf("Wrote %s\n", path)
	}
}
