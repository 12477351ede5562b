package cmd

import (
	"fmt"
	"log/slog"

	"formscan/internal/analyze"
	"formscan/internal/overlay"
	"formscan/internal/result"
	"formscan/internal/template"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze TEMPLATE PAGE...",
	Short: "Analyze scanned pages against a blank template",
	Long: `Analyze locates the calibration landmarks on each scanned page, scores
the severity scale and reads the checkbox answers against the template.
Pages are raster images (PNG, JPEG or TIFF) in page order; rasterize PDFs
upstream at the template's scan resolution.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		templatePath := args[0]
		pagePaths := args[1:]

		tmpl, err := template.Load(templatePath)
		if err != nil {
			return err
		}

		analyzer, err := analyze.New(cfg, tmpl)
		if err != nil {
			return err
		}

		overlayDir, _ := cmd.Flags().GetString("overlays")
		if overlayDir != "" {
			analyzer.SetObserver(overlay.NewRenderer(overlayDir))
		}

		pages, err := analyzer.AnalyzeFiles(pagePaths)
		if err != nil {
			return err
		}

		for _, page := range pages {
			if page.Error != "" {
				slog.Warn("page analysis failed", "page", page.Page, "error", page.Error)
				continue
			}
			slog.Info("page analyzed",
				"page", page.Page,
				"dx", page.DX,
				"scale_scores", fmt.Sprint(page.ScaleScores),
				"questions", len(page.Questions))
		}

		doc := &result.Document{
			TemplateFile: templatePath,
			SourceFile:   pagePaths[0],
			Pages:        pages,
		}

		output, _ := cmd.Flags().GetString("output")
		if err := doc.Save(output); err != nil {
			return err
		}
		slog.Info("results written", "path", output)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringP("output", "o", "results.json", "Output path for the page records")
	analyzeCmd.Flags().String("overlays", "", "Directory for diagnostic overlay images")
	RootCmd.AddCommand(analyzeCmd)
}
