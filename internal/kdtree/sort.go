package kdtree

import "fmt"

// SortByAxis returns the points ordered ascending by their coordinate on axis.
// The sort is a stable merge sort: points with equal keys keep their input
// order. The input slice is left untouched; the returned slice shares the
// point values with it.
func SortByAxis(points []Point, axis int) ([]Point, error) {
	if axis < 0 {
		return nil, fmt.Errorf("%w: negative axis %d", ErrInvalidInput, axis)
	}
	for i, p := range points {
		if axis >= len(p) {
			return nil, fmt.Errorf("%w: axis %d out of range for point %d with %d coordinates",
				ErrInvalidInput, axis, i, len(p))
		}
	}

	sorted := make([]Point, len(points))
	copy(sorted, points)
	if len(sorted) < 2 {
		return sorted, nil
	}

	buf := make([]Point, len(sorted))
	mergeSort(sorted, buf, axis)
	return sorted, nil
}

// mergeSort sorts points in place, using buf (same length) as scratch space.
func mergeSort(points, buf []Point, axis int) {
	if len(points) <= 1 {
		return
	}

	middle := len(points) / 2
	mergeSort(points[:middle], buf[:middle], axis)
	mergeSort(points[middle:], buf[middle:], axis)

	// Already ordered across the split
	if points[middle-1][axis] <= points[middle][axis] {
		return
	}

	merge(points[:middle], points[middle:], buf, axis)
	copy(points, buf)
}

// merge combines two sorted runs into dst. On equal keys the left run wins,
// which is what keeps the sort stable.
func merge(left, right, dst []Point, axis int) {
	i, j, k := 0, 0, 0
	for i < len(left) && j < len(right) {
		if left[i][axis] <= right[j][axis] {
			dst[k] = left[i]
			i++
		} else {
			dst[k] = right[j]
			j++
		}
		k++
	}
	k += copy(dst[k:], left[i:])
	copy(dst[k:], right[j:])
}
