package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"kdindex/internal/models"
)

var (
	listJSON    bool
	listVerbose bool
	listLimit   int
	listOffset  int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List imported datasets",
	Long: `Display all imported datasets with their dimensionality and size.

Example:
  kdindex list              # Show first 20 datasets (default)
  kdindex list -n 0         # Show all datasets
  kdindex list -v           # Include source hash and image details
  kdindex list --offset 20  # Datasets 21-40`,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().BoolVarP(&listVerbose, "verbose", "v", false, "Show detailed dataset info")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "Limit number of datasets to display (0 = all)")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "Skip first N datasets (for pagination)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	datasets, err := store.ListDatasets()
	if err != nil {
		return fmt.Errorf("failed to list datasets: %w", err)
	}

	if listJSON {
		if datasets == nil {
			datasets = []*models.Dataset{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(datasets)
	}

	if len(datasets) == 0 {
		fmt.Println("No datasets found.")
		fmt.Println("Run 'kdindex import <path>' to import point sets.")
		return nil
	}

	totalPoints := 0
	for _, ds := range datasets {
		totalPoints += ds.PointCount
	}
	fmt.Printf("Found %d datasets (%d points)\n\n", len(datasets), totalPoints)

	// Apply pagination
	total := len(datasets)
	startIdx := listOffset
	if startIdx > len(datasets) {
		startIdx = len(datasets)
	}
	datasets = datasets[startIdx:]

	if listLimit > 0 && listLimit < len(datasets) {
		datasets = datasets[:listLimit]
	}

	if len(datasets) == 0 {
		fmt.Printf("No datasets in range (offset %d exceeds total %d)\n", listOffset, total)
		return nil
	}

	fmt.Printf("%-24s  %-4s  %-8s  %-16s  %s\n", "Name", "Dims", "Points", "Imported", "Source")
	fmt.Println(strings.Repeat("-", 90))
	for _, ds := range datasets {
		printDataset(ds, listVerbose)
	}
	fmt.Println()

	endIdx := startIdx + len(datasets)
	fmt.Printf("Showing datasets %d-%d of %d\n", startIdx+1, endIdx, total)
	if endIdx < total {
		limitArg := ""
		if listLimit > 0 {
			limitArg = fmt.Sprintf(" -n %d", listLimit)
		}
		fmt.Printf("Next page: kdindex list%s --offset %d\n", limitArg, endIdx)
	}

	return nil
}

func printDataset(ds *models.Dataset, verbose bool) {
	fmt.Printf("%-24s  %-4d  %-8d  %-16s  %s\n",
		ds.Name, ds.Dims, ds.PointCount, ds.CreatedAt.Format("2006-01-02 15:04"), shortenPath(ds.Source, 36))

	if verbose {
		fmt.Printf("    SHA256: %s\n", ds.SourceHash)
		if ds.IsImage() {
			fmt.Printf("    Format: %s  pHash: %016x  EXIF: %v\n", ds.Format, ds.Fingerprint, ds.HasExif)
		}
	}
}
