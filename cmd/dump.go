package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <dataset>",
	Short: "Print the k-d tree built over a dataset",
	Long: `Build the k-d tree for a dataset and print it in pre-order, one node per
line, indented by depth. The split axis of a node is its depth modulo the
dimensionality.

Example:
  kdindex dump space`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	_, tree, err := loadTree(store, args[0])
	if err != nil {
		return err
	}

	if tree.Len() == 0 {
		fmt.Println("(empty tree)")
		return nil
	}
	if err := tree.Dump(os.Stdout); err != nil {
		return fmt.Errorf("failed to write tree: %w", err)
	}
	return nil
}
