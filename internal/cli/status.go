package cli

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the availability of every pipeline component",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		comp, err := buildComponents(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		return printJSON(cmd, comp.processor.ServiceStatus(cmd.Context()))
	},
}
