// Package kdtree implements a static k-dimensional tree over integer points.
//
// A Tree is built once from a point set by recursive median partitioning and
// is read-only afterwards, so any number of goroutines may query it
// concurrently without locking.
package kdtree

import "fmt"

// Node holds one point of the tree and owns its two subtrees.
type Node struct {
	value Point
	left  *Node
	right *Node
}

// Value returns a copy of the point stored in the node.
func (n *Node) Value() Point {
	return n.value.Clone()
}

// Left returns the subtree whose points are <= this node on the splitting axis.
func (n *Node) Left() *Node {
	return n.left
}

// Right returns the subtree whose points are >= this node on the splitting axis.
func (n *Node) Right() *Node {
	return n.right
}

// Tree is an immutable k-d tree.
type Tree struct {
	root *Node
	dims int
	size int
}

// Build constructs a balanced tree from points. The points are copied, so
// the caller may reuse the slice afterwards. Every point must have the same,
// non-zero number of coordinates. An empty input yields an empty tree.
func Build(points []Point) (*Tree, error) {
	if len(points) == 0 {
		return &Tree{}, nil
	}

	dims := len(points[0])
	if dims == 0 {
		return nil, fmt.Errorf("%w: points must have at least one coordinate", ErrInvalidInput)
	}

	owned := make([]Point, len(points))
	for i, p := range points {
		if len(p) != dims {
			return nil, fmt.Errorf("%w: point %d has %d coordinates, expected %d",
				ErrInvalidInput, i, len(p), dims)
		}
		owned[i] = p.Clone()
	}

	root, err := build(owned, 0, dims)
	if err != nil {
		return nil, err
	}

	return &Tree{root: root, dims: dims, size: len(owned)}, nil
}

// build creates the subtree for points at the given depth. The median on
// the depth's axis becomes the node; everything before it goes left and
// everything after it goes right.
func build(points []Point, depth, dims int) (*Node, error) {
	if len(points) == 0 {
		return nil, nil
	}

	sorted, err := SortByAxis(points, depth%dims)
	if err != nil {
		return nil, err
	}

	median := len(sorted) / 2
	node := &Node{value: sorted[median]}

	if node.left, err = build(sorted[:median], depth+1, dims); err != nil {
		return nil, err
	}
	if node.right, err = build(sorted[median+1:], depth+1, dims); err != nil {
		return nil, err
	}

	return node, nil
}

// Root returns the root node, or nil for an empty tree.
func (t *Tree) Root() *Node {
	return t.root
}

// Dims returns the dimensionality shared by every point in the tree.
// It is zero for an empty tree.
func (t *Tree) Dims() int {
	return t.dims
}

// Len returns the number of points stored in the tree.
func (t *Tree) Len() int {
	return t.size
}

// Walk visits every node in pre-order (node, left subtree, right subtree),
// passing its depth. Returning false from fn stops the walk.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	walk(t.root, 0, fn)
}

func walk(n *Node, depth int, fn func(*Node, int) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n, depth) {
		return false
	}
	if !walk(n.left, depth+1, fn) {
		return false
	}
	return walk(n.right, depth+1, fn)
}

// axis returns the splitting axis used at depth.
func (t *Tree) axis(depth int) int {
	return depth % t.dims
}

// checkTarget rejects query points whose length differs from the tree's.
func (t *Tree) checkTarget(target Point) error {
	if len(target) != t.dims {
		return fmt.Errorf("%w: query has %d coordinates, tree has %d",
			ErrDimensionMismatch, len(target), t.dims)
	}
	return nil
}
