package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"kdindex/internal/models"
)

var withinRadius float64

var withinCmd = &cobra.Command{
	Use:   "within <dataset> <target>",
	Short: "Find all points within a distance of a target",
	Long: `Find every stored point whose Euclidean distance to the target is at
most the radius, nearest first. Points exactly on the boundary are included.

Example:
  kdindex within plane 10,10 -r 5`,
	Args: cobra.ExactArgs(2),
	RunE: runWithin,
}

func init() {
	withinCmd.Flags().Float64VarP(&withinRadius, "radius", "r", 1, "Search radius")
	rootCmd.AddCommand(withinCmd)
}

func runWithin(cmd *cobra.Command, args []string) error {
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

	points, err := tree.Within(target, withinRadius)
	if err != nil {
		return fmt.Errorf("radius query failed: %w", err)
	}
	recordQuery(store, ds.Name, models.QueryWithin, target, withinRadius, len(points))

	if len(points) == 0 {
		fmt.Printf("No points within %g of %s in %s.\n", withinRadius, target, ds.Name)
		return nil
	}

	fmt.Printf("%d points within %g of %s in %s:\n", len(points), withinRadius, target, ds.Name)
	printPoints(points, target)
	return nil
}
