package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/vacation-distri/constants"
	"github.com/joseph-ayodele/vacation-distri/internal/ingest"
	"github.com/joseph-ayodele/vacation-distri/internal/pipeline"
	"github.com/joseph-ayodele/vacation-distri/internal/repository"
)

var batchOutDir string

var batchCmd = &cobra.Command{
	Use:   "batch <file|dir>...",
	Short: "Process several documents in order",
	Long: `Batch processes every named file and every supported document found under
the named directories, one after another, sharing one anonymization session.
A failing document does not stop the batch.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchOutDir, "out-dir", "", "directory for result JSON files (default: beside each input)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	files, stats, err := ingest.CollectFiles(args)
	if err != nil {
		return err
	}
	logger.Info("batch.collected", "files", len(files), "scanned", stats.Scanned, "skipped", stats.Skipped)

	comp, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	results := comp.processor.ProcessBatch(ctx, files, pipelineOptions(cfg))

	summaries := make([]pipeline.Summary, 0, len(results))
	failures := 0
	for _, res := range results {
		out := ""
		if batchOutDir != "" {
			out = filepath.Join(batchOutDir, filepath.Base(repository.DefaultOutputPath(res.FilePath)))
		}
		if _, err := repository.SaveResult(res, out); err != nil {
			logger.Error("batch.save_failed", "file", res.FilePath, "error", err)
		}
		if res.Status() == constants.ResultFailed {
			failures++
		}
		summaries = append(summaries, res.Summary())
	}

	if err := printJSON(cmd, map[string]any{
		"results":          summaries,
		"processing_stats": comp.processor.Stats(),
	}); err != nil {
		return err
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d documents failed", failures, len(results))
	}
	return nil
}
