package kdtree

// Nearest returns the node closest to target, or nil if the tree is empty.
//
// The search descends into the child on target's side of each splitting
// plane first and only visits the other child when the plane is strictly
// closer than the best distance found so far. Among equidistant points the
// first one met in that traversal is kept, so results are reproducible.
// Distances are compared exactly, whatever the coordinate magnitudes.
func (t *Tree) Nearest(target Point) (*Node, error) {
	if t.root == nil {
		return nil, nil
	}
	if err := t.checkTarget(target); err != nil {
		return nil, err
	}

	s := &nearestSearch{tree: t, target: target, bestDist: maxSqDist}
	s.visit(t.root, 0)
	return s.best, nil
}

type nearestSearch struct {
	tree     *Tree
	target   Point
	best     *Node
	bestDist sqDist
}

func (s *nearestSearch) visit(n *Node, depth int) {
	if n == nil {
		return
	}

	if dist := squaredDistance(n.value, s.target); dist.less(s.bestDist) {
		s.best = n
		s.bestDist = dist
	}

	axis := s.tree.axis(depth)
	near, far := n.right, n.left
	if s.target[axis] < n.value[axis] {
		near, far = n.left, n.right
	}

	s.visit(near, depth+1)

	// The far side can only hold something closer if the plane is nearer
	// than the best distance so far.
	if planeDistance(s.target, n, axis).less(s.bestDist) {
		s.visit(far, depth+1)
	}
}
