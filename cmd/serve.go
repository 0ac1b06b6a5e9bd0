package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kdindex/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the JSON query API",
	Long: `Start a local HTTP server that answers spatial queries over the stored
datasets. Trees are built on the first query against a dataset and reused
afterwards.

Endpoints:
  GET /api/datasets
  GET /api/nearest?dataset=<name>&target=<x,y,...>
  GET /api/knn?dataset=<name>&target=<x,y,...>&k=<n>
  GET /api/within?dataset=<name>&target=<x,y,...>&radius=<r>
  GET /api/tree?dataset=<name>
  GET /api/history?dataset=<name>&limit=<n>

The server shuts down on Ctrl+C or after the idle timeout.

Example:
  kdindex serve                  # Start on default port 8080
  kdindex serve -p 3000          # Use custom port
  kdindex serve --timeout 10m    # 10 minute idle timeout`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().Duration("timeout", 5*time.Minute, "Idle timeout (0 to disable)")

	settings.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	settings.BindPFlag("server.idle_timeout", serveCmd.Flags().Lookup("timeout"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	// The server closes the store on shutdown

	srv := server.New(store, cfg.Server.Port, cfg.Server.IdleTimeout)

	fmt.Printf("Serving %s at http://localhost:%d\n", cfg.DB, cfg.Server.Port)
	fmt.Printf("Idle timeout: %v (resets on every request)\n", cfg.Server.IdleTimeout)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	return srv.Start()
}
