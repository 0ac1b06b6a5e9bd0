package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"kdindex/internal/kdtree"
)

var (
	sortAxis  int
	sortLimit int
)

var sortCmd = &cobra.Command{
	Use:   "sort <dataset>",
	Short: "Print a dataset ordered by one axis",
	Long: `Print the points of a dataset in ascending order of one coordinate.

The sort is stable: points with equal coordinates keep their stored order.

Example:
  kdindex sort space --axis 2
  kdindex sort space -a 0 -n 0   # All points`,
	Args: cobra.ExactArgs(1),
	RunE: runSort,
}

func init() {
	sortCmd.Flags().IntVarP(&sortAxis, "axis", "a", 0, "Axis to sort by (0-based)")
	sortCmd.Flags().IntVarP(&sortLimit, "limit", "n", 20, "Limit number of points to display (0 = all)")
	rootCmd.AddCommand(sortCmd)
}

func runSort(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ds, err := store.GetDataset(args[0])
	if err != nil {
		return fmt.Errorf("failed to load dataset %s: %w", args[0], err)
	}

	sorted, err := kdtree.SortByAxis(ds.Points, sortAxis)
	if err != nil {
		return fmt.Errorf("sort failed: %w", err)
	}

	shown := sorted
	if sortLimit > 0 && sortLimit < len(shown) {
		shown = shown[:sortLimit]
	}

	fmt.Printf("%s sorted by axis %d:\n", ds.Name, sortAxis)
	for _, p := range shown {
		fmt.Printf("  %s\n", p)
	}
	if len(shown) < len(sorted) {
		fmt.Printf("  ... %d more (use -n 0 to show all)\n", len(sorted)-len(shown))
	}
	return nil
}
