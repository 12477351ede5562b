package cmd

import (
	"log/slog"
	"os"

	"formscan/internal/history"
	"formscan/internal/server"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve TEMPLATE",
	Short: "Serve the upload endpoint",
	Long: `Serve starts the HTTP front end: scanned page images are uploaded,
analyzed against the template and the result record plus spreadsheet are
made available for download. Run history is kept in Postgres when
DATABASE_URL is set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if err := godotenv.Load(); err != nil {
			slog.Debug("no .env file", "error", err)
		}

		var store *history.Store
		if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
			store, err = history.Open(dsn)
			if err != nil {
				return err
			}
		} else {
			slog.Warn("DATABASE_URL not set, run history disabled")
		}

		dataDir, _ := cmd.Flags().GetString("data-dir")
		overlays, _ := cmd.Flags().GetBool("overlays")

		srv, err := server.New(server.Config{
			TemplatePath: args[0],
			DataDir:      dataDir,
			Overlays:     overlays,
			Analyze:      cfg,
		}, store)
		if err != nil {
			return err
		}

		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		slog.Info("serving", "port", port, "data_dir", dataDir)
		return srv.Run(":" + port)
	},
}

func init() {
	serveCmd.Flags().String("data-dir", "data", "Directory for uploads and results")
	serveCmd.Flags().Bool("overlays", false, "Write diagnostic overlays for each run")
	RootCmd.AddCommand(serveCmd)
}
