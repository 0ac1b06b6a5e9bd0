package models

import (
	"time"

	"kdindex/internal/kdtree"
)

// Dataset is a named point set loaded from a file
type Dataset struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Dims        int            `json:"dims"`
	Source      string         `json:"source"`
	SourceHash  string         `json:"source_hash,omitempty"` // SHA256 of the source file
	Format      string         `json:"format"`                // FormatText or the decoded image format
	Fingerprint uint64         `json:"fingerprint,omitempty"` // Perceptual hash, image sources only
	HasExif     bool           `json:"has_exif"`
	PointCount  int            `json:"point_count"`
	CreatedAt   time.Time      `json:"created_at"`
	Points      []kdtree.Point `json:"points,omitempty"`
}

// FormatText marks datasets loaded from text point files
const FormatText = "text"

// IsImage reports whether the dataset was derived from an image
func (d *Dataset) IsImage() bool {
	return d.Format != "" && d.Format != FormatText
}

// Cluster is a group of points chained together within a radius
type Cluster struct {
	ID             int            `json:"id"`
	Points         []kdtree.Point `json:"points"`
	Representative kdtree.Point   `json:"representative"` // Point closest to the centroid
}

// Query kinds recorded in history
const (
	QueryNearest = "nearest"
	QueryKNN     = "knn"
	QueryWithin  = "within"
)

// QueryRecord is one query issued against a dataset
type QueryRecord struct {
	ID        int64        `json:"id"`
	Dataset   string       `json:"dataset"`
	Kind      string       `json:"kind"`
	Target    kdtree.Point `json:"target"`
	Param     float64      `json:"param"` // k for knn, radius for within
	Results   int          `json:"results"`
	QueriedAt time.Time    `json:"queried_at"`
}

// ImportResult summarises an import run
type ImportResult struct {
	TotalFiles  int        `json:"total_files"`
	TotalPoints int        `json:"total_points"`
	Datasets    []*Dataset `json:"datasets"`
}
