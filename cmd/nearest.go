package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"kdindex/internal/kdtree"
	"kdindex/internal/models"
)

var nearestCmd = &cobra.Command{
	Use:   "nearest <dataset> <target>",
	Short: "Find the point closest to a target",
	Long: `Find the stored point with the smallest Euclidean distance to the target.

The target is a comma-separated list of coordinates and must have the same
dimensionality as the dataset. When several points are equally close, the one
the search reaches first is reported.

Example:
  kdindex nearest space 4,3,5`,
	Args: cobra.ExactArgs(2),
	RunE: runNearest,
}

func init() {
	rootCmd.AddCommand(nearestCmd)
}

func runNearest(cmd *cobra.Command, args []string) error {
	target, err := parseTarget(args[1])
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ds, tree, err := loadTree(store, args[0])
	if err != nil {
		return err
	}

	node, err := tree.Nearest(target)
	if err != nil {
		return fmt.Errorf("nearest query failed: %w", err)
	}

	if node == nil {
		recordQuery(store, ds.Name, models.QueryNearest, target, 0, 0)
		fmt.Printf("Dataset %s is empty.\n", ds.Name)
		return nil
	}
	recordQuery(store, ds.Name, models.QueryNearest, target, 0, 1)

	fmt.Printf("Nearest to %s in %s:\n", target, ds.Name)
	printPoints([]kdtree.Point{node.Value()}, target)
	return nil
}
