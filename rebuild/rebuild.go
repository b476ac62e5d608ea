// Package rebuild implements the RIB-to-FIB rebuild protocol, spec.md
// §4.4 (Component D): it traverses a RIB trie in its natural pre-order
// and replays each valid, non-empty node into a FIB trie.
//
// Grounded on original_source/radix.c's rebuild_fib_from_rib/_add_to_fib.
package rebuild

import (
	"fmt"

	"github.com/k1yoto/rib-and-fib/fib"
	"github.com/k1yoto/rib-and-fib/rib"
)

// Rebuild copies family/table ID from r to f, then replays every valid
// route in r into f via fib.Tree.Add. It aborts on the first failing add,
// per spec.md §4.4 step 3 — the caller must discard f's partial state in
// that case, since correctness of what's already inserted does not imply
// correctness of the whole FIB.
//
// Order does not affect correctness (spec.md §4.3.4); pre-order is used
// only because RIB traversal naturally produces it.
func Rebuild(r *rib.Tree, f *fib.Tree) error {
	f.Family = r.Family
	f.TableID = r.TableID

	var rebuildErr error
	r.Traverse(func(n *rib.Node) bool {
		if err := f.Add(n.Key(), n.PrefixLen(), n.RouteIdx()); err != nil {
			rebuildErr = fmt.Errorf("rebuild: add %v/%d: %w", n.Key(), n.PrefixLen(), err)
			return false
		}
		return true
	})
	return rebuildErr
}
