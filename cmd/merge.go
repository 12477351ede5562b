package cmd

import (
	"log/slog"

	"formscan/internal/merge"
	"formscan/internal/result"
	"formscan/internal/template"

	"github.com/spf13/cobra"
)

var mergeCmd = &cobra.Command{
	Use:   "merge TEMPLATE RESULTS",
	Short: "Join template titles onto page records and compute overall scores",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tmpl, err := template.Load(args[0])
		if err != nil {
			return err
		}
		doc, err := result.LoadDocument(args[1])
		if err != nil {
			return err
		}

		fused := merge.Merge(tmpl, doc)

		output, _ := cmd.Flags().GetString("output")
		if err := fused.Save(output); err != nil {
			return err
		}
		slog.Info("fused results written", "path", output, "pages", len(fused.Pages))
		return nil
	},
}

func init() {
	mergeCmd.Flags().StringP("output", "o", "fused.json", "Output path for the fused document")
	RootCmd.AddCommand(mergeCmd)
}
