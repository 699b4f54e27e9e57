package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/vacation-distri/internal/export"
	"github.com/joseph-ayodele/vacation-distri/internal/repository"
)

var (
	processPassword      string
	processNoAnonymize   bool
	processNoRestructure bool
	processOut           string
	processXLSX          string
)

var processCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Run one document through the pipeline and save the result",
	Long: `Process extracts, anonymizes and restructures a single PDF or Excel file.
The result is written as JSON to --out (default <name>_processed.json next to
the input) and its summary is printed to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVar(&processPassword, "password", "", "password for encrypted documents")
	processCmd.Flags().BoolVar(&processNoAnonymize, "no-anonymize", false, "skip anonymization")
	processCmd.Flags().BoolVar(&processNoRestructure, "no-restructure", false, "skip LLM restructuring")
	processCmd.Flags().StringVarP(&processOut, "out", "o", "", "result JSON path")
	processCmd.Flags().StringVar(&processXLSX, "xlsx", "", "also export restructured absence records to this XLSX path")
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	comp, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}

	opts := pipelineOptions(cfg)
	opts.Password = processPassword
	if processNoAnonymize {
		opts.Anonymize = false
	}
	if processNoRestructure {
		opts.Restructure = false
	}

	res, procErr := comp.processor.ProcessDocument(ctx, args[0], opts)
	path, err := repository.SaveResult(res, processOut)
	if err != nil {
		return err
	}
	logger.Info("process.saved", "file", args[0], "out", path)

	if processXLSX != "" && res.RestructuredData != nil {
		xlsx, err := export.NewService(comp.anonymizer.Mapper(), logger).AbsenceWorkbook(res.RestructuredData)
		if err != nil {
			return fmt.Errorf("export xlsx: %w", err)
		}
		if err := os.WriteFile(processXLSX, xlsx, 0o644); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
		logger.Info("process.exported", "out", processXLSX)
	} else if processXLSX != "" {
		logger.Warn("process.export_skipped", "reason", "no restructured data")
	}

	if err := printJSON(cmd, res.Summary()); err != nil {
		return err
	}
	return procErr
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
