package cmd

import (
	"fmt"
	"path/filepath"

	"kdindex/internal/kdtree"
	"kdindex/internal/models"
	"kdindex/internal/storage"
)

func openStore() (*storage.Storage, error) {
	store, err := storage.NewStorage(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// loadTree fetches a dataset and builds its index
func loadTree(store *storage.Storage, name string) (*models.Dataset, *kdtree.Tree, error) {
	ds, err := store.GetDataset(name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load dataset %s: %w", name, err)
	}

	tree, err := kdtree.Build(ds.Points)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to index %s: %w", name, err)
	}
	return ds, tree, nil
}

func parseTarget(s string) (kdtree.Point, error) {
	target, err := storage.ParsePoint(s)
	if err != nil {
		return nil, fmt.Errorf("invalid target %q: %w", s, err)
	}
	if len(target) == 0 {
		return nil, fmt.Errorf("invalid target: empty point")
	}
	return target, nil
}

// recordQuery stores a query in the history; failures only warn
func recordQuery(store *storage.Storage, name, kind string, target kdtree.Point, param float64, results int) {
	err := store.RecordQuery(&models.QueryRecord{
		Dataset: name,
		Kind:    kind,
		Target:  target,
		Param:   param,
		Results: results,
	})
	if err != nil {
		fmt.Printf("Warning: failed to record query: %v\n", err)
	}
}

func printPoints(points []kdtree.Point, target kdtree.Point) {
	for i, p := range points {
		d, _ := kdtree.Distance(p, target)
		fmt.Printf("  %3d  %-30s  distance %.3f\n", i+1, p, d)
	}
}

func shortenPath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}

	// Try to show filename and as much of the path as possible
	dir, file := filepath.Split(path)
	if len(file) >= maxLen-3 {
		return "..." + file[len(file)-(maxLen-3):]
	}

	remaining := maxLen - len(file) - 4 // 4 for ".../"
	if remaining > 0 && len(dir) > remaining {
		dir = dir[len(dir)-remaining:]
	}
	return "..." + dir + file
}
