package kdtree

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes one line per node in pre-order, indented by depth:
//
//	0: [5 2 9]
//	  1: [2 9 8]
//	    2: [3 7 4]
//	  1: [6 4 2]
//	    2: [8 1 6]
func (t *Tree) Dump(w io.Writer) error {
	var err error
	t.Walk(func(n *Node, depth int) bool {
		_, err = fmt.Fprintf(w, "%s%d: %s\n", strings.Repeat("  ", depth), depth, n.value)
		return err == nil
	})
	return err
}
