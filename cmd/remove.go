package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"kdindex/internal/models"
	"kdindex/internal/storage"
)

var (
	dryRun    bool
	noConfirm bool
)

var removeCmd = &cobra.Command{
	Use:   "remove <dataset>...",
	Short: "Remove datasets from the database",
	Long: `Remove datasets and their points from the database. Source files are
not touched, and query history is kept.

Options:
  --dry-run     Preview what would be removed without actually removing
  --yes         Skip confirmation prompt

Example:
  kdindex remove cities
  kdindex remove photos/a photos/b --yes
  kdindex remove cities --dry-run`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview without removing")
	removeCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	// Verify datasets exist
	var toRemove []*models.Dataset
	var totalPoints int
	for _, name := range args {
		ds, err := store.GetDataset(name)
		if errors.Is(err, storage.ErrNotFound) {
			fmt.Printf("Skipping unknown dataset: %s\n", name)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to load dataset %s: %w", name, err)
		}
		toRemove = append(toRemove, ds)
		totalPoints += ds.PointCount
	}

	if len(toRemove) == 0 {
		fmt.Println("Nothing to remove.")
		fmt.Println("Run 'kdindex list' to see available datasets.")
		return nil
	}

	fmt.Printf("Will remove %d datasets (%d points)\n\n", len(toRemove), totalPoints)

	if dryRun {
		fmt.Println("Datasets to be removed:")
		for _, ds := range toRemove {
			fmt.Printf("  %s\n", ds.Name)
		}
		fmt.Println()
		fmt.Println("(Dry run - nothing was removed)")
		fmt.Println("Run without --dry-run to actually remove datasets.")
		return nil
	}

	// Confirm unless --yes flag is set
	if !noConfirm {
		fmt.Printf("Are you sure you want to remove %d datasets? [y/N]: ", len(toRemove))
		reader := bufio.NewReader(os.Stdin)
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	var removed, failed int
	for _, ds := range toRemove {
		if err := store.DeleteDataset(ds.Name); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to remove %s: %v\n", ds.Name, err)
			failed++
			continue
		}
		removed++
	}

	fmt.Println()
	fmt.Printf("Removed %d datasets\n", removed)
	if failed > 0 {
		fmt.Printf("Failed: %d datasets\n", failed)
	}

	return nil
}
