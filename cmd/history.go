package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"kdindex/internal/models"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [dataset]",
	Short: "Show recent queries",
	Long: `Show the most recent nearest, knn and within queries, newest first,
optionally restricted to one dataset.

Example:
  kdindex history
  kdindex history plane -n 5`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Limit number of queries to display (0 = all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	var name string
	if len(args) > 0 {
		name = args[0]
	}

	records, err := store.GetQueryHistory(name, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No queries recorded.")
		return nil
	}

	fmt.Printf("%-16s  %-20s  %-7s  %-20s  %-8s  %s\n", "When", "Dataset", "Kind", "Target", "Param", "Results")
	fmt.Println(strings.Repeat("-", 90))
	for _, r := range records {
		fmt.Printf("%-16s  %-20s  %-7s  %-20s  %-8s  %d\n",
			r.QueriedAt.Format("2006-01-02 15:04"), r.Dataset, r.Kind, r.Target, formatParam(r), r.Results)
	}
	return nil
}

func formatParam(r *models.QueryRecord) string {
	switch r.Kind {
	case models.QueryKNN:
		return fmt.Sprintf("k=%d", int(r.Param))
	case models.QueryWithin:
		return fmt.Sprintf("r=%g", r.Param)
	default:
		return "-"
	}
}
