package kdtree

import (
	"fmt"

	"github.com/tidwall/tinyqueue"
)

// candidate is a node scored against a query point. seq records the order
// in which the traversal met the node and breaks distance ties.
type candidate struct {
	node *Node
	dist sqDist
	seq  int
}

// farthestFirst orders candidates so the queue head is the worst one kept.
type farthestFirst candidate

func (c *farthestFirst) Less(b tinyqueue.Item) bool {
	o := b.(*farthestFirst)
	if c.dist != o.dist {
		return o.dist.less(c.dist)
	}
	return c.seq > o.seq
}

// closestFirst orders candidates so the queue head is the best one.
type closestFirst candidate

func (c *closestFirst) Less(b tinyqueue.Item) bool {
	o := b.(*closestFirst)
	if c.dist != o.dist {
		return c.dist.less(o.dist)
	}
	return c.seq < o.seq
}

// KNearest returns up to k nodes ordered by ascending distance to target.
// If the tree holds fewer than k points, all of them are returned. Points at
// equal distance are ordered by when the traversal reached them, and at the
// k-th boundary the earlier one is kept.
func (t *Tree) KNearest(target Point, k int) ([]*Node, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidInput, k)
	}
	if t.root == nil {
		return []*Node{}, nil
	}
	if err := t.checkTarget(target); err != nil {
		return nil, err
	}

	s := &knnSearch{
		tree:   t,
		target: target,
		k:      k,
		queue:  tinyqueue.New(nil),
	}
	s.visit(t.root, 0)

	// Popping yields farthest first, so fill from the back
	result := make([]*Node, s.queue.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = s.queue.Pop().(*farthestFirst).node
	}
	return result, nil
}

type knnSearch struct {
	tree   *Tree
	target Point
	k      int
	queue  *tinyqueue.Queue
	seq    int
}

func (s *knnSearch) full() bool {
	return s.queue.Len() >= s.k
}

// worst returns the distance of the farthest kept candidate, or a bound
// beyond every distance while the queue is not yet full.
func (s *knnSearch) worst() sqDist {
	if !s.full() {
		return maxSqDist
	}
	return s.queue.Peek().(*farthestFirst).dist
}

func (s *knnSearch) visit(n *Node, depth int) {
	if n == nil {
		return
	}

	s.admit(n, squaredDistance(n.value, s.target))

	axis := s.tree.axis(depth)
	near, far := n.right, n.left
	if s.target[axis] < n.value[axis] {
		near, far = n.left, n.right
	}

	s.visit(near, depth+1)
	if !s.full() || planeDistance(s.target, n, axis).less(s.worst()) {
		s.visit(far, depth+1)
	}
}

func (s *knnSearch) admit(n *Node, dist sqDist) {
	c := &farthestFirst{node: n, dist: dist, seq: s.seq}
	s.seq++

	if !s.full() {
		s.queue.Push(c)
		return
	}
	if dist.less(s.worst()) {
		s.queue.Pop()
		s.queue.Push(c)
	}
}
