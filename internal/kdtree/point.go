package kdtree

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrDimensionMismatch is returned when two points of different length are compared.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrInvalidInput is returned for malformed build input or query parameters.
	ErrInvalidInput = errors.New("invalid input")
)

// Point is an ordered, fixed-length sequence of integer coordinates.
type Point []int

// Dims returns the number of coordinates in p.
func (p Point) Dims() int {
	return len(p)
}

// Clone returns a copy of p that shares no storage with it.
func (p Point) Clone() Point {
	if p == nil {
		return nil
	}
	c := make(Point, len(p))
	copy(c, p)
	return c
}

// Equal reports whether p and q have the same coordinates.
func (p Point) Equal(q Point) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// String formats p as "[c0 c1 ...]".
func (p Point) String() string {
	parts := make([]string, len(p))
	for i, c := range p {
		parts[i] = strconv.Itoa(c)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Distance returns the Euclidean distance between p and q. The result is a
// float64, so coordinate differences beyond 2^53 are rounded and distinct
// distances can compare equal; Nearest and KNearest compare exactly.
func Distance(p, q Point) (float64, error) {
	if len(p) != len(q) {
		return 0, fmt.Errorf("%w: %d vs %d coordinates", ErrDimensionMismatch, len(p), len(q))
	}

	var sum float64
	for i := range p {
		d := float64(p[i]) - float64(q[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}
