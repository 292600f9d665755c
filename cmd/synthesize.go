package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nikogura/penalty-matrix/pkg/evidence"
	"github.com/nikogura/penalty-matrix/pkg/export"
	"github.com/nikogura/penalty-matrix/pkg/hashutil"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var synthesizeOutput string

//nolint:gochecknoglobals // Cobra boilerplate
var synthesizeCmd = &cobra.Command{
	Use:   "synthesize <files...>",
	Short: "Generate deterministic placeholder violations for a set of files",
	Long: `Generate one placeholder violation per input file when no evidence collector
output is available. Amounts, counts and violation types are derived from
stable hashes of the file names and sizes, so the same files always produce
the same violations. Every record is marked for manual review.

Example:
  penalty-matrix synthesize filings/*.pdf --output synthetic.json
  penalty-matrix compute synthetic.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSynthesize,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(synthesizeCmd)
	synthesizeCmd.Flags().StringVarP(&synthesizeOutput, "output", "o", "", "Output file (default stdout)")
}

func runSynthesize(cmd *cobra.Command, args []string) (err error) {
	var items []hashutil.Item
	items, err = statItems(args)
	if err != nil {
		return err
	}

	detections := evidence.Synthesize(items)

	var data []byte
	data, err = json.MarshalIndent(detections, "", "  ")
	if err != nil {
		err = fmt.Errorf("failed to encode violations: %w", err)
		return err
	}
	data = append(data, '\n')

	if synthesizeOutput == "" {
		_, err = os.Stdout.Write(data)
		return err
	}

	err = export.WriteFileAtomic(synthesizeOutput, data)
	if err != nil {
		err = fmt.Errorf("failed to write violations: %w", err)
		return err
	}

	if getVerbose() {
		fmt.Printf("Wrote %d synthetic violations to %s\n", len(detections), synthesizeOutput)
	}

	return err
}
