package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"kdindex/internal/kdtree"
	"kdindex/internal/models"
)

var knnK int

var knnCmd = &cobra.Command{
	Use:   "knn <dataset> <target>",
	Short: "Find the k points closest to a target",
	Long: `Find the k stored points closest to the target, nearest first.

Fewer than k points are returned when the dataset is smaller than k.

Example:
  kdindex knn plane 10,10 -k 3`,
	Args: cobra.ExactArgs(2),
	RunE: runKNN,
}

func init() {
	knnCmd.Flags().IntVarP(&knnK, "neighbors", "k", 5, "Number of neighbors")
	rootCmd.AddCommand(knnCmd)
}

func runKNN(cmd *cobra.Command, args []string) error {
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

	nodes, err := tree.KNearest(target, knnK)
	if err != nil {
		return fmt.Errorf("knn query failed: %w", err)
	}
	recordQuery(store, ds.Name, models.QueryKNN, target, float64(knnK), len(nodes))

	points := make([]kdtree.Point, len(nodes))
	for i, n := range nodes {
		points[i] = n.Value()
	}

	fmt.Printf("%d nearest to %s in %s:\n", len(points), target, ds.Name)
	printPoints(points, target)
	return nil
}
