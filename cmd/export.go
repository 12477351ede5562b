package cmd

import (
	"log/slog"

	"formscan/internal/export"
	"formscan/internal/merge"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export FUSED",
	Short: "Render a fused document as a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := merge.Load(args[0])
		if err != nil {
			return err
		}

		output, _ := cmd.Flags().GetString("output")
		if err := export.WriteXLSX(doc, output); err != nil {
			return err
		}
		slog.Info("spreadsheet written", "path", output)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "results.xlsx", "Output path for the workbook")
	RootCmd.AddCommand(exportCmd)
}
