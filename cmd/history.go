package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/nikogura/penalty-matrix/pkg/config"
	"github.com/nikogura/penalty-matrix/pkg/history"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//nolint:gochecknoglobals // Cobra boilerplate
var historyOutputDir string

//nolint:gochecknoglobals // Cobra boilerplate
var historyLimit int

//nolint:gochecknoglobals // Cobra boilerplate
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Rebuild and show the index of past matrices",
	Long: `Scan the output directory for stored matrices, rebuild the history index and
print the runs newest first, with the change in exposure since the previous
run.

Example:
  penalty-matrix history
  penalty-matrix history --limit 5 --output-dir ./reports`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historyOutputDir, "output-dir", "", "Output directory (default from config)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to show (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) (err error) {
	var cfg config.Config
	cfg, err = loadConfig()
	if err != nil {
		return err
	}

	if historyOutputDir != "" {
		cfg.OutputDir = historyOutputDir
	}

	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	var indexer *history.Indexer
	indexer, err = history.NewIndexer(cfg.OutputDir, logger)
	if err != nil {
		err = fmt.Errorf("failed to create indexer: %w", err)
		return err
	}

	var index history.Index
	index, err = indexer.Index(cmd.Context())
	if err != nil {
		err = fmt.Errorf("failed to build history index: %w", err)
		return err
	}

	if len(index.Entries) == 0 {
		fmt.Printf("No matrices found in %s\n", cfg.OutputDir)
		return err
	}

	p := message.NewPrinter(language.English)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	p.Fprintf(w, "CALCULATED\tSCHEDULE\tACCEPTED\tREJECTED\tREVIEW\tGRAND TOTAL\tPATH\n")

	for i, entry := range index.Entries {
		if historyLimit > 0 && i >= historyLimit {
			break
		}
		p.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t$%d\t%s\n",
			entry.CalculationTimestamp.Format("2006-01-02 15:04:05"), entry.ScheduleVersion,
			entry.ValidatedCount, entry.RejectedCount, entry.ManualReview, entry.GrandTotal, entry.Path)
	}

	err = w.Flush()
	if err != nil {
		return err
	}

	if change, ok := index.LatestChange(); ok {
		sign := "+"
		delta := change.GrandTotalDelta
		if delta < 0 {
			sign = "-"
			delta = -delta
		}
		p.Printf("\nChange since previous run: %s$%d (%+d accepted, %+d rejected)\n",
			sign, delta, change.ValidatedDelta, change.RejectedDelta)
	}

	if getVerbose() {
		fmt.Printf("Index written to %s\n", indexer.IndexPath())
	}

	return err
}
