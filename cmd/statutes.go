package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/nikogura/penalty-matrix/pkg/config"
	"github.com/nikogura/penalty-matrix/pkg/statute"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//nolint:gochecknoglobals // Cobra boilerplate
var statutesCmd = &cobra.Command{
	Use:   "statutes [violation-type]",
	Short: "List the statute schedule or resolve a violation type",
	Long: `List every statute in the active schedule with its per-violation penalties,
or resolve one violation type to its ordered candidate statutes.

Unknown violation types resolve to the default statute.

Example:
  penalty-matrix statutes
  penalty-matrix statutes insider_trading`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatutes,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(statutesCmd)
}

func runStatutes(cmd *cobra.Command, args []string) (err error) {
	var cfg config.Config
	cfg, err = loadConfig()
	if err != nil {
		return err
	}

	var registry *statute.Registry
	registry, err = loadRegistry(cfg)
	if err != nil {
		return err
	}

	p := message.NewPrinter(language.English)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	if len(args) == 1 {
		citations, mapped := registry.ResolveStatutes(args[0])
		if !mapped {
			fmt.Fprintf(os.Stderr, "%s is not a mapped violation type, using the default statute\n", args[0])
		}

		p.Fprintf(w, "#\tCITATION\tNATURAL PERSON\tOTHER PERSON\n")
		for i, citation := range citations {
			entry, ok := registry.Lookup(citation)
			if !ok {
				p.Fprintf(w, "%d\t%s\t(missing)\t(missing)\n", i+1, citation)
				continue
			}
			p.Fprintf(w, "%d\t%s\t$%d\t$%d\n", i+1, citation, entry.NaturalPersonPenalty, entry.OtherPersonPenalty)
		}

		err = w.Flush()
		return err
	}

	fmt.Printf("Schedule %s (default statute %s)\n\n", registry.Version(), registry.DefaultStatute())

	p.Fprintf(w, "CITATION\tNATURAL PERSON\tOTHER PERSON\tDESCRIPTION\n")
	for _, entry := range registry.Entries() {
		p.Fprintf(w, "%s\t$%d\t$%d\t%s\n", entry.Citation, entry.NaturalPersonPenalty, entry.OtherPersonPenalty, entry.ContextLine)
	}

	err = w.Flush()
	if err != nil {
		return err
	}

	if getVerbose() {
		fmt.Println()
		for _, violationType := range registry.ViolationTypes() {
			citations, _ := registry.ResolveStatutes(violationType)
			fmt.Printf("%s -> %v\n", violationType, citations)
		}
	}

	return err
}
