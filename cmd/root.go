package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"kdindex/internal/config"
)

var (
	cfgFile  string
	cfg      *config.Config
	settings = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "kdindex",
	Short: "Index integer point sets and run spatial queries",
	Long: `kdindex is a CLI tool for nearest-neighbor and radius queries over
integer point sets.

Point sets are imported from text files (one point per line) or derived from
images (one RGB point per sampled pixel) and stored in a SQLite database.
Every query builds a k-d tree over the stored points and searches it with
pruning, so only a fraction of the points is ever compared.

Example usage:
  kdindex import ./points              # Import every point file in a folder
  kdindex list                         # List imported datasets
  kdindex nearest cities 4,3           # Closest point to (4,3)
  kdindex knn cities 10,10 -k 3        # Three closest points
  kdindex within cities 10,10 -r 5     # Points within distance 5
  kdindex serve                        # JSON query API`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(settings, cfgFile)
		return err
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.kdindex.yaml)")
	rootCmd.PersistentFlags().String("db", config.DefaultDBPath(), "Path to SQLite database")
	rootCmd.PersistentFlags().Int("workers", 8, "Number of parallel workers for importing")

	settings.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	settings.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
}
