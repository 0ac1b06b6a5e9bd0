package cluster

import (
	"fmt"
	"math"
	"sort"

	"kdindex/internal/kdtree"
	"kdindex/internal/models"
)

// Clusterer groups points that are chained together by neighbours within
// a radius (single-linkage clustering).
type Clusterer struct {
	radius  float64
	minSize int
}

// NewClusterer creates a new Clusterer. Clusters smaller than minSize are
// dropped; minSize < 1 defaults to 2.
func NewClusterer(radius float64, minSize int) *Clusterer {
	if minSize < 1 {
		minSize = 2 // Default: only report actual groups
	}
	return &Clusterer{radius: radius, minSize: minSize}
}

// FindClusters returns the clusters of points, largest first. Each point
// belongs to at most one cluster.
func (c *Clusterer) FindClusters(points []kdtree.Point) ([]*models.Cluster, error) {
	if c.radius < 0 || math.IsNaN(c.radius) {
		return nil, fmt.Errorf("%w: radius must be non-negative, got %v", kdtree.ErrInvalidInput, c.radius)
	}

	tree, err := kdtree.Build(points)
	if err != nil {
		return nil, err
	}

	// Equal points share one key; the first index stands for all of them
	firstIndex := make(map[string]int, len(points))
	for i, p := range points {
		key := p.String()
		if _, ok := firstIndex[key]; !ok {
			firstIndex[key] = i
		}
	}

	uf := newUnionFind(len(points))
	for i, p := range points {
		neighbors, err := tree.Within(p, c.radius)
		if err != nil {
			return nil, err
		}
		for _, q := range neighbors {
			uf.union(i, firstIndex[q.String()])
		}
	}

	// Collect groups in input order
	groupMap := make(map[int][]int)
	var roots []int
	for i := range points {
		root := uf.find(i)
		if _, ok := groupMap[root]; !ok {
			roots = append(roots, root)
		}
		groupMap[root] = append(groupMap[root], i)
	}

	var groups [][]int
	for _, root := range roots {
		if len(groupMap[root]) >= c.minSize {
			groups = append(groups, groupMap[root])
		}
	}

	// Largest first, then by first appearance
	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i]) > len(groups[j])
	})

	clusters := make([]*models.Cluster, 0, len(groups))
	for id, members := range groups {
		cl := &models.Cluster{ID: id + 1}
		for _, i := range members {
			cl.Points = append(cl.Points, points[i].Clone())
		}
		if cl.Representative, err = representative(cl.Points); err != nil {
			return nil, err
		}
		clusters = append(clusters, cl)
	}

	return clusters, nil
}

// GetRadius returns the linkage radius
func (c *Clusterer) GetRadius() float64 {
	return c.radius
}

// representative returns the member closest to the rounded centroid
func representative(points []kdtree.Point) (kdtree.Point, error) {
	tree, err := kdtree.Build(points)
	if err != nil {
		return nil, err
	}

	node, err := tree.Nearest(centroid(points))
	if err != nil || node == nil {
		return nil, err
	}
	return node.Value(), nil
}

func centroid(points []kdtree.Point) kdtree.Point {
	dims := len(points[0])
	sums := make([]float64, dims)
	for _, p := range points {
		for i, c := range p {
			sums[i] += float64(c)
		}
	}

	center := make(kdtree.Point, dims)
	for i, s := range sums {
		center[i] = int(math.Round(s / float64(len(points))))
	}
	return center
}

// Union-Find data structure for efficient grouping
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	rank := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent, rank: rank}
}

func (uf *unionFind) find(x int) int {
	if uf.parent[x] != x {
		uf.parent[x] = uf.find(uf.parent[x]) // Path compression
	}
	return uf.parent[x]
}

func (uf *unionFind) union(x, y int) {
	px, py := uf.find(x), uf.find(y)
	if px == py {
		return
	}
	// Union by rank
	if uf.rank[px] < uf.rank[py] {
		px, py = py, px
	}
	uf.parent[py] = px
	if uf.rank[px] == uf.rank[py] {
		uf.rank[px]++
	}
}
