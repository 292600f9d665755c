package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/nikogura/penalty-matrix/pkg/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const watchDebounce = 300 * time.Millisecond

//nolint:gochecknoglobals // Cobra boilerplate
var watchCmd = &cobra.Command{
	Use:   "watch <violations-file>",
	Short: "Recompute the matrix whenever the violations file changes",
	Long: `Compute the matrix once, then watch the violations file and recompute it
after every change. Bursts of writes are debounced. Fatal calculation errors
are reported and the watch continues. Stop with Ctrl-C.

Example:
  penalty-matrix watch violations.json --format markdown`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&computeOutputDir, "output-dir", "", "Output directory (default from config)")
	watchCmd.Flags().StringSliceVar(&computeFormats, "format", nil, "Export formats: json, csv, markdown (default from config)")
	watchCmd.Flags().StringVar(&computeMetricsFile, "metrics-file", "", "Write prometheus metrics to this textfile (default from config)")
	watchCmd.Flags().StringVar(&computeName, "name", "", "Base name for output files (default derived from input)")
}

func runWatch(cmd *cobra.Command, args []string) (err error) {
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

	var target string
	target, err = filepath.Abs(args[0])
	if err != nil {
		err = fmt.Errorf("failed to resolve %s: %w", args[0], err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = watchFile(ctx, target, func() {
		_, computeErr := computeOnce(ctx, cfg, target, logger)
		if computeErr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", computeErr)
		}
	}, logger)

	return err
}

// watchFile calls trigger once, then again after each debounced change to
// target. It watches the parent directory so editors that replace the file
// by rename are still seen.
func watchFile(ctx context.Context, target string, trigger func(), logger *zap.Logger) (err error) {
	var watcher *fsnotify.Watcher
	watcher, err = fsnotify.NewWatcher()
	if err != nil {
		err = fmt.Errorf("watch init failed: %w", err)
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(target)
	err = watcher.Add(dir)
	if err != nil {
		err = fmt.Errorf("failed to watch %s: %w", dir, err)
		return err
	}

	trigger()
	fmt.Printf("Watching %s for changes...\n", target)

	runs := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return err

		case ev, ok := <-watcher.Events:
			if !ok {
				return err
			}
			changed := ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
			if filepath.Clean(ev.Name) != target || !changed {
				continue
			}
			logger.Debug("violations file changed", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case runs <- struct{}{}:
				default:
				}
			})

		case <-runs:
			trigger()

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return err
			}
			fmt.Fprintf(os.Stderr, "Watch error: %v\n", watchErr)
		}
	}
}
