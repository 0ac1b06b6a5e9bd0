package kdtree

import "math/bits"

// sqDist is an exact squared Euclidean distance, most significant word
// first. Three words hold the sum of any number of squared int differences
// a slice can have, so comparisons never overflow or round.
type sqDist [3]uint64

// maxSqDist is larger than any distance between two points.
var maxSqDist = sqDist{^uint64(0), ^uint64(0), ^uint64(0)}

// absDiff returns |a - b|, which always fits in a uint64.
func absDiff(a, b int) uint64 {
	if a >= b {
		return uint64(a) - uint64(b)
	}
	return uint64(b) - uint64(a)
}

func square(d uint64) sqDist {
	hi, lo := bits.Mul64(d, d)
	return sqDist{0, hi, lo}
}

func (x sqDist) add(y sqDist) sqDist {
	lo, carry := bits.Add64(x[2], y[2], 0)
	mid, carry := bits.Add64(x[1], y[1], carry)
	hi, _ := bits.Add64(x[0], y[0], carry)
	return sqDist{hi, mid, lo}
}

func (x sqDist) less(y sqDist) bool {
	for i := range x {
		if x[i] != y[i] {
			return x[i] < y[i]
		}
	}
	return false
}

// squaredDistance assumes p and q have the same length.
func squaredDistance(p, q Point) sqDist {
	var sum sqDist
	for i := range p {
		sum = sum.add(square(absDiff(p[i], q[i])))
	}
	return sum
}

// planeDistance is the squared distance from target to the splitting plane
// through n on axis.
func planeDistance(target Point, n *Node, axis int) sqDist {
	return square(absDiff(target[axis], n.value[axis]))
}
