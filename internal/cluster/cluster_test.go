package cluster

import (
	"errors"
	"testing"

	"kdindex/internal/kdtree"
)

func TestNewClusterer_Defaults(t *testing.T) {
	c := NewClusterer(1.5, 0)
	if c.minSize != 2 {
		t.Errorf("default minSize = %d, want 2", c.minSize)
	}
	if c.GetRadius() != 1.5 {
		t.Errorf("radius = %v, want 1.5", c.GetRadius())
	}
}

func TestFindClusters(t *testing.T) {
	// A chain of three along the x axis and one diagonal pair
	points := []kdtree.Point{
		{0, 0},
		{50, 50},
		{1, 0},
		{2, 0},
		{20, 20},
		{21, 21},
		{90, 0},
	}

	c := NewClusterer(1.5, 2)
	clusters, err := c.FindClusters(points)
	if err != nil {
		t.Fatalf("FindClusters failed: %v", err)
	}

	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}

	first := clusters[0]
	if first.ID != 1 || len(first.Points) != 3 {
		t.Errorf("first cluster = id %d with %d points, want id 1 with 3", first.ID, len(first.Points))
	}
	if !first.Representative.Equal(kdtree.Point{1, 0}) {
		t.Errorf("representative = %v, want [1 0]", first.Representative)
	}

	second := clusters[1]
	if len(second.Points) != 2 {
		t.Errorf("second cluster has %d points, want 2", len(second.Points))
	}
	if !second.Points[0].Equal(kdtree.Point{20, 20}) {
		t.Errorf("second cluster starts with %v, want [20 20]", second.Points[0])
	}
}

func TestFindClusters_ChainsTransitively(t *testing.T) {
	// Ends are 4 apart but linked through the middle point
	points := []kdtree.Point{{0}, {2}, {4}}

	clusters, err := NewClusterer(2, 2).FindClusters(points)
	if err != nil {
		t.Fatalf("FindClusters failed: %v", err)
	}
	if len(clusters) != 1 || len(clusters[0].Points) != 3 {
		t.Errorf("expected one cluster of 3, got %v", clusters)
	}
}

func TestFindClusters_Duplicates(t *testing.T) {
	points := []kdtree.Point{{5, 5}, {9, 9}, {5, 5}, {5, 5}}

	clusters, err := NewClusterer(0, 2).FindClusters(points)
	if err != nil {
		t.Fatalf("FindClusters failed: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if len(clusters[0].Points) != 3 {
		t.Errorf("duplicate cluster has %d points, want 3", len(clusters[0].Points))
	}
}

func TestFindClusters_MinSize(t *testing.T) {
	points := []kdtree.Point{{0, 0}, {10, 10}, {20, 20}}

	clusters, err := NewClusterer(1, 1).FindClusters(points)
	if err != nil {
		t.Fatalf("FindClusters failed: %v", err)
	}
	if len(clusters) != 3 {
		t.Errorf("minSize 1 should keep singletons, got %d clusters", len(clusters))
	}

	clusters, err = NewClusterer(1, 2).FindClusters(points)
	if err != nil {
		t.Fatalf("FindClusters failed: %v", err)
	}
	if len(clusters) != 0 {
		t.Errorf("expected no clusters, got %d", len(clusters))
	}
}

func TestFindClusters_InvalidInput(t *testing.T) {
	if _, err := NewClusterer(-1, 2).FindClusters([]kdtree.Point{{1}}); !errors.Is(err, kdtree.ErrInvalidInput) {
		t.Errorf("negative radius error = %v, want ErrInvalidInput", err)
	}
	if _, err := NewClusterer(1, 2).FindClusters([]kdtree.Point{{1}, {1, 2}}); !errors.Is(err, kdtree.ErrInvalidInput) {
		t.Errorf("mixed dims error = %v, want ErrInvalidInput", err)
	}
}

func TestUnionFind(t *testing.T) {
	uf := newUnionFind(5)
	uf.union(0, 1)
	uf.union(3, 4)
	uf.union(1, 4)

	if uf.find(0) != uf.find(3) {
		t.Error("0 and 3 should share a root")
	}
	if uf.find(2) == uf.find(0) {
		t.Error("2 should stay on its own")
	}
}
