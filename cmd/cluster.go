package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"kdindex/internal/cluster"
	"kdindex/internal/models"
)

var (
	clusterRadius  float64
	clusterMinSize int
	clusterJSON    bool
	clusterLimit   int
)

var clusterCmd = &cobra.Command{
	Use:   "cluster <dataset>",
	Short: "Group points that lie close together",
	Long: `Group the points of a dataset into clusters. Two points share a cluster
when a chain of points connects them in which each step is at most the radius.

Each cluster shows its representative, the point closest to the cluster's
centroid.

Example:
  kdindex cluster plane -r 5
  kdindex cluster photo -r 12 --min-size 50   # Dominant colors`,
	Args: cobra.ExactArgs(1),
	RunE: runCluster,
}

func init() {
	clusterCmd.Flags().Float64VarP(&clusterRadius, "radius", "r", 1, "Linking radius")
	clusterCmd.Flags().IntVar(&clusterMinSize, "min-size", 2, "Smallest cluster to report")
	clusterCmd.Flags().BoolVar(&clusterJSON, "json", false, "Output in JSON format")
	clusterCmd.Flags().IntVarP(&clusterLimit, "limit", "n", 10, "Limit number of clusters to display (0 = all)")
	rootCmd.AddCommand(clusterCmd)
}

func runCluster(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ds, err := store.GetDataset(args[0])
	if err != nil {
		return fmt.Errorf("failed to load dataset %s: %w", args[0], err)
	}

	c := cluster.NewClusterer(clusterRadius, clusterMinSize)
	clusters, err := c.FindClusters(ds.Points)
	if err != nil {
		return fmt.Errorf("clustering failed: %w", err)
	}

	if clusterJSON {
		if clusters == nil {
			clusters = []*models.Cluster{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(clusters)
	}

	if len(clusters) == 0 {
		fmt.Printf("No clusters of %d or more points within radius %g.\n", clusterMinSize, c.GetRadius())
		return nil
	}

	clustered := 0
	for _, cl := range clusters {
		clustered += len(cl.Points)
	}
	fmt.Printf("Found %d clusters in %s (%d of %d points, radius %g)\n\n",
		len(clusters), ds.Name, clustered, len(ds.Points), c.GetRadius())

	shown := clusters
	if clusterLimit > 0 && clusterLimit < len(shown) {
		shown = shown[:clusterLimit]
	}

	fmt.Printf("%-8s  %-8s  %s\n", "Cluster", "Points", "Representative")
	fmt.Println(strings.Repeat("-", 50))
	for _, cl := range shown {
		fmt.Printf("#%-7d  %-8d  %s\n", cl.ID, len(cl.Points), cl.Representative)
	}
	if len(shown) < len(clusters) {
		fmt.Printf("... %d more (use -n 0 to show all)\n", len(clusters)-len(shown))
	}
	return nil
}
