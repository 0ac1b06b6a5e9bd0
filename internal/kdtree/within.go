package kdtree

import (
	"fmt"
	"math"

	"github.com/tidwall/tinyqueue"
)

// Within returns every point whose distance to query is at most radius,
// ordered by ascending distance. A radius of zero matches only points equal
// to query. The returned points are copies. The radius test uses Distance,
// so it shares its float64 precision.
func (t *Tree) Within(query Point, radius float64) ([]Point, error) {
	if radius < 0 || math.IsNaN(radius) {
		return nil, fmt.Errorf("%w: radius must be non-negative, got %v", ErrInvalidInput, radius)
	}
	if t.root == nil {
		return []Point{}, nil
	}
	if err := t.checkTarget(query); err != nil {
		return nil, err
	}

	s := &withinSearch{tree: t, query: query, radius: radius, queue: tinyqueue.New(nil)}
	if err := s.visit(t.root, 0); err != nil {
		return nil, err
	}

	result := make([]Point, 0, s.queue.Len())
	for s.queue.Len() > 0 {
		result = append(result, s.queue.Pop().(*closestFirst).node.Value())
	}
	return result, nil
}

type withinSearch struct {
	tree   *Tree
	query  Point
	radius float64
	queue  *tinyqueue.Queue
	seq    int
}

func (s *withinSearch) visit(n *Node, depth int) error {
	if n == nil {
		return nil
	}

	dist, err := Distance(n.value, s.query)
	if err != nil {
		return err
	}
	if dist <= s.radius {
		s.queue.Push(&closestFirst{node: n, dist: squaredDistance(n.value, s.query), seq: s.seq})
		s.seq++
	}

	axis := s.tree.axis(depth)
	q := float64(s.query[axis])
	v := float64(n.value[axis])

	// The search sphere touches the left half-space
	if q-s.radius <= v {
		if err := s.visit(n.left, depth+1); err != nil {
			return err
		}
	}
	// The search sphere touches the right half-space
	if q+s.radius >= v {
		if err := s.visit(n.right, depth+1); err != nil {
			return err
		}
	}
	return nil
}
