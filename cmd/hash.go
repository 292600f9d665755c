package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nikogura/penalty-matrix/pkg/hashutil"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var hashCmd = &cobra.Command{
	Use:   "hash <files...>",
	Short: "Print the stable set hash and per-file hashes",
	Long: `Print the order-independent hash of a set of files and the order-dependent
hash of each file. Hashes depend only on file names and sizes, so identical
inputs give identical hashes across runs and machines.

Example:
  penalty-matrix hash filings/*.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHash,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(hashCmd)
}

func runHash(cmd *cobra.Command, args []string) (err error) {
	var items []hashutil.Item
	items, err = statItems(args)
	if err != nil {
		return err
	}

	fmt.Printf("set: %s\n", hashutil.StableSetHash(items))
	for i, item := range items {
		fmt.Printf("%d %s (%d bytes): %s\n", i, item.Name, item.Size, hashutil.StableItemHash(item, i))
	}

	return err
}

// statItems turns file paths into name and size pairs, keeping arg order.
func statItems(paths []string) (items []hashutil.Item, err error) {
	for _, path := range paths {
		var info os.FileInfo
		info, err = os.Stat(path)
		if err != nil {
			err = fmt.Errorf("failed to stat %s: %w", path, err)
			return items, err
		}

		if info.IsDir() {
			err = fmt.Errorf("%s is a directory", path)
			return items, err
		}

		items = append(items, hashutil.Item{Name: filepath.Base(path), Size: info.Size()})
	}

	return items, err
}
