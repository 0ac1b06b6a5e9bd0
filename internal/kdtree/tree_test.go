package kdtree

import (
	"errors"
	"math/rand"
	"sort"
	"testing"
)

func TestBuild_Empty(t *testing.T) {
	tree, err := Build(nil)
	if err != nil {
		t.Fatalf("Build(nil) failed: %v", err)
	}
	if tree.Root() != nil {
		t.Error("expected nil root for empty tree")
	}
	if tree.Len() != 0 {
		t.Errorf("expected size 0, got %d", tree.Len())
	}
}

func TestBuild_SinglePoint(t *testing.T) {
	tree, err := Build([]Point{{7, 3}})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	root := tree.Root()
	if root == nil {
		t.Fatal("expected non-nil root")
	}
	if !root.Value().Equal(Point{7, 3}) {
		t.Errorf("root = %v, want [7 3]", root.Value())
	}
	if root.Left() != nil || root.Right() != nil {
		t.Error("single node should have no children")
	}
	if tree.Dims() != 2 {
		t.Errorf("dims = %d, want 2", tree.Dims())
	}
}

func TestBuild_Structure(t *testing.T) {
	tree, err := Build([]Point{
		{5, 2, 9},
		{3, 7, 4},
		{8, 1, 6},
		{6, 4, 2},
		{2, 9, 8},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	root := tree.Root()
	checks := []struct {
		name string
		node *Node
		want Point
	}{
		{"root", root, Point{5, 2, 9}},
		{"left", root.Left(), Point{2, 9, 8}},
		{"left.left", root.Left().Left(), Point{3, 7, 4}},
		{"right", root.Right(), Point{6, 4, 2}},
		{"right.left", root.Right().Left(), Point{8, 1, 6}},
	}
	for _, c := range checks {
		if c.node == nil {
			t.Fatalf("%s is nil", c.name)
		}
		if !c.node.Value().Equal(c.want) {
			t.Errorf("%s = %v, want %v", c.name, c.node.Value(), c.want)
		}
	}
	if root.Left().Right() != nil || root.Right().Right() != nil {
		t.Error("depth-1 nodes should have no right child")
	}
}

func TestBuild_EvenSizeTakesUpperMedian(t *testing.T) {
	tree, err := Build([]Point{{4}, {1}, {3}, {2}})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := tree.Root().Value(); !got.Equal(Point{3}) {
		t.Errorf("root = %v, want [3]", got)
	}
}

func TestBuild_Duplicates(t *testing.T) {
	points := []Point{{1, 1}, {1, 1}, {1, 1}, {2, 2}}
	tree, err := Build(points)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if tree.Len() != 4 {
		t.Errorf("expected 4 points, got %d", tree.Len())
	}
	if got := countNodes(tree); got != 4 {
		t.Errorf("walk counted %d nodes, want 4", got)
	}
}

func TestBuild_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
	}{
		{"mismatched dims", []Point{{1, 2}, {3, 4, 5}}},
		{"mismatch later", []Point{{1, 2}, {3, 4}, {5}}},
		{"zero dims", []Point{{}, {}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.points)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Build error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestBuild_CopiesInput(t *testing.T) {
	points := []Point{{1, 2}, {3, 4}, {5, 6}}
	tree, err := Build(points)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	points[1][0] = 100
	if got := tree.Root().Value(); !got.Equal(Point{3, 4}) {
		t.Errorf("tree changed after caller mutation: root = %v", got)
	}

	v := tree.Root().Value()
	v[0] = -1
	if got := tree.Root().Value(); !got.Equal(Point{3, 4}) {
		t.Errorf("Value() exposed internal storage: root = %v", got)
	}
}

func TestBuild_Invariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for _, dims := range []int{1, 2, 3, 5} {
		for _, n := range []int{1, 2, 3, 10, 57, 300} {
			points := randomPoints(rng, n, dims, 25)
			tree, err := Build(points)
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}

			if got := countNodes(tree); got != n {
				t.Errorf("dims=%d n=%d: walk counted %d nodes", dims, n, got)
			}
			checkSplits(t, tree.Root(), 0, dims)

			if h := height(tree.Root()); h > bitsFor(n) {
				t.Errorf("dims=%d n=%d: height %d exceeds %d", dims, n, h, bitsFor(n))
			}

			var stored []Point
			tree.Walk(func(n *Node, _ int) bool {
				stored = append(stored, n.Value())
				return true
			})
			if !sameMultiset(points, stored) {
				t.Errorf("dims=%d n=%d: tree does not hold the input multiset", dims, n)
			}
		}
	}
}

func TestWalk_PreOrderAndStop(t *testing.T) {
	tree, err := Build([]Point{{5, 2, 9}, {3, 7, 4}, {8, 1, 6}, {6, 4, 2}, {2, 9, 8}})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var depths []int
	tree.Walk(func(n *Node, depth int) bool {
		depths = append(depths, depth)
		return true
	})
	want := []int{0, 1, 2, 1, 2}
	for i := range want {
		if depths[i] != want[i] {
			t.Fatalf("depths = %v, want %v", depths, want)
		}
	}

	visited := 0
	tree.Walk(func(n *Node, depth int) bool {
		visited++
		return visited < 2
	})
	if visited != 2 {
		t.Errorf("walk visited %d nodes after stop, want 2", visited)
	}
}

// checkSplits verifies that every point below n lies on the correct side
// of n's splitting plane.
func checkSplits(t *testing.T, n *Node, depth, dims int) {
	t.Helper()
	if n == nil {
		return
	}
	axis := depth % dims
	eachPoint(n.left, func(p Point) {
		if p[axis] > n.value[axis] {
			t.Errorf("left descendant %v of %v exceeds it on axis %d", p, n.value, axis)
		}
	})
	eachPoint(n.right, func(p Point) {
		if p[axis] < n.value[axis] {
			t.Errorf("right descendant %v of %v is below it on axis %d", p, n.value, axis)
		}
	})
	checkSplits(t, n.left, depth+1, dims)
	checkSplits(t, n.right, depth+1, dims)
}

func eachPoint(n *Node, fn func(Point)) {
	if n == nil {
		return
	}
	fn(n.value)
	eachPoint(n.left, fn)
	eachPoint(n.right, fn)
}

func countNodes(tree *Tree) int {
	count := 0
	tree.Walk(func(*Node, int) bool {
		count++
		return true
	})
	return count
}

func height(n *Node) int {
	if n == nil {
		return 0
	}
	l, r := height(n.left), height(n.right)
	if l > r {
		return l + 1
	}
	return r + 1
}

// bitsFor returns floor(log2(n)) + 1, the height of a median-split tree.
func bitsFor(n int) int {
	bits := 0
	for n > 0 {
		bits++
		n >>= 1
	}
	return bits
}

func randomPoints(rng *rand.Rand, n, dims, max int) []Point {
	points := make([]Point, n)
	for i := range points {
		p := make(Point, dims)
		for j := range p {
			p[j] = rng.Intn(2*max+1) - max
		}
		points[i] = p
	}
	return points
}

func sameMultiset(a, b []Point) bool {
	if len(a) != len(b) {
		return false
	}
	key := func(ps []Point) []string {
		keys := make([]string, len(ps))
		for i, p := range ps {
			keys[i] = p.String()
		}
		sort.Strings(keys)
		return keys
	}
	ka, kb := key(a), key(b)
	for i := range ka {
		if ka[i] != kb[i] {
			return false
		}
	}
	return true
}

func BenchmarkBuild(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	points := randomPoints(rng, 10000, 3, 1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Build(points)
	}
}
