package cli

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/vacation-distri/internal/ingest"
	"github.com/joseph-ayodele/vacation-distri/internal/repository"
)

var (
	watchInitialScan bool
	watchDebounce    time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>...",
	Short: "Process documents as they appear under the given directories",
	Long: `Watch processes every supported document created or changed under the
given directories and writes <name>_processed.json beside it. Unchanged
content is processed once.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchInitialScan, "initial-scan", false, "process existing files on start")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "coalesce bursts of file events")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	comp, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	files, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       args,
		InitialScan: watchInitialScan,
		Debounce:    watchDebounce,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	opts := pipelineOptions(cfg)
	dedupe := ingest.NewDeduper()
	for {
		select {
		case path, ok := <-files:
			if !ok {
				logger.Info("watch.stopped", "stats", comp.processor.Stats())
				return nil
			}
			changed, _, err := dedupe.Changed(path)
			if err != nil {
				logger.Warn("watch.hash_failed", "file", path, "error", err)
				continue
			}
			if !changed {
				logger.Debug("watch.unchanged", "file", path)
				continue
			}
			res, _ := comp.processor.ProcessDocument(ctx, path, opts)
			out, err := repository.SaveResult(res, "")
			if err != nil {
				logger.Error("watch.save_failed", "file", path, "error", err)
				continue
			}
			logger.Info("watch.processed", "file", path, "status", res.Status(), "out", out)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watch.error", "error", err)
		}
	}
}
