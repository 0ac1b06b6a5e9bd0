package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"kdindex/internal/models"
	"kdindex/internal/scan"
)

var (
	importStride int
	importJSON   bool
)

var importCmd = &cobra.Command{
	Use:   "import <file|folder>",
	Short: "Import point sets from files or a folder",
	Long: `Import point sets into the database.

Supported sources:
- Text point files (.txt, .csv, .pts): one point per line, coordinates
  separated by commas, semicolons or whitespace, '#' starts a comment
- Images (jpg, png, gif, webp, bmp, tiff): one (r,g,b) point per sampled pixel

A folder is scanned recursively and each file becomes a dataset named by its
path relative to the folder, without extension. Importing a name again
replaces the stored dataset.

Example:
  kdindex import cities.csv
  kdindex import ./photos --stride 8`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().IntVar(&importStride, "stride", 0, "Pixel sampling stride for images (default from config)")
	importCmd.Flags().BoolVar(&importJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	absPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("path not found: %w", err)
	}

	stride := cfg.Stride
	if importStride > 0 {
		stride = importStride
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	lastLine := ""
	clearLine := func() {
		if lastLine != "" {
			fmt.Print("\r" + strings.Repeat(" ", len(lastLine)) + "\r")
		}
	}

	opts := []scan.Option{
		scan.WithWorkers(cfg.Workers),
		scan.WithTimeout(cfg.Timeout),
		scan.WithStride(stride),
	}
	if !importJSON {
		opts = append(opts, scan.WithProgress(func(scanned, total int, current string) {
			clearLine()
			lastLine = fmt.Sprintf("Progress: %d/%d  %s", scanned, total, shortenPath(current, 50))
			fmt.Print(lastLine)
		}))
	}
	s := scan.NewScanner(opts...)

	var datasets []*models.Dataset
	if info.IsDir() {
		if !importJSON {
			fmt.Printf("Importing: %s\n", absPath)
			fmt.Printf("Workers: %d\n\n", cfg.Workers)
		}
		datasets, err = s.ScanFolder(absPath)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		clearLine()
	} else {
		ds, err := s.LoadFileWithTimeout(absPath)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		datasets = []*models.Dataset{ds}
	}

	if len(datasets) == 0 {
		fmt.Println("No point files found.")
		return nil
	}

	if err := store.SaveDatasets(datasets); err != nil {
		return fmt.Errorf("failed to save datasets: %w", err)
	}

	result := &models.ImportResult{TotalFiles: len(datasets), Datasets: datasets}
	for _, ds := range datasets {
		result.TotalPoints += ds.PointCount
	}

	if importJSON {
		// Summaries only; the points are in the database
		for _, ds := range datasets {
			ds.Points = nil
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Println("=== Import Complete ===")
	fmt.Printf("Datasets: %d\n", result.TotalFiles)
	fmt.Printf("Points:   %d\n", result.TotalPoints)
	fmt.Println()
	for _, ds := range datasets {
		fmt.Printf("  %-30s  %3dD  %8d points\n", ds.Name, ds.Dims, ds.PointCount)
	}

	// Images with the same perceptual hash yield near-identical point sets
	for _, ds := range datasets {
		if !ds.IsImage() {
			continue
		}
		names, err := store.FindByFingerprint(ds.Fingerprint)
		if err != nil {
			return fmt.Errorf("failed to look up fingerprint: %w", err)
		}
		var others []string
		for _, n := range names {
			if n != ds.Name {
				others = append(others, n)
			}
		}
		if len(others) > 0 {
			fmt.Printf("\nNote: %s looks identical to %s\n", ds.Name, strings.Join(others, ", "))
		}
	}

	fmt.Println()
	fmt.Println("Run 'kdindex list' to see stored datasets")
	return nil
}
