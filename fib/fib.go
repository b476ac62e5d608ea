// Package fib implements the FIB Trie, spec.md §3.4/§4.3 (Component C):
// a multi-bit, prefix-expanded trie with a fixed stride K and branching
// factor 2^K, optimized for longest-prefix-match lookup at the cost of
// memory (prefix expansion) rather than per-node comparisons.
//
// This is the hard subsystem the spec calls out: on insertion, a prefix
// whose length does not land on a stride boundary must be replicated
// ("expanded") across every child it covers, and that expansion must
// compose correctly regardless of insertion order. See addNode's case
// analysis, grounded on original_source/fib.c's _add.
//
// The teacher (gaissmai/bart) solves the same LPM problem with a
// completely different technique — Knuth's ART, stride-8,
// popcount-compressed complete binary tree, no explicit leaf/internal
// distinction — so this package does not reuse its node algorithm; what
// carries over is the bitset-backed occupancy idiom from the teacher's
// node.go (see childMask below) and its doc-comment density.
package fib

import (
	"errors"

	"github.com/bits-and-blooms/bitset"

	"github.com/k1yoto/rib-and-fib/key"
)

// MaxECMP bounds the number of nexthop indices carried per leaf.
const MaxECMP = key.MaxECMP

const unused = key.UnusedRoute

// ErrAlloc is returned when a node cannot be materialized. Node creation
// in this implementation cannot actually fail (Go doesn't expose
// allocation failure), but the error is kept in the surface per spec.md
// §7's AllocFailure so callers have a total, checkable Add contract.
var ErrAlloc = errors.New("fib: allocation failure")

// Node is one node of the FIB trie.
type Node struct {
	leaf      bool
	key       key.Key
	prefixLen int // valid only when leaf
	routeIdx  [MaxECMP]int
	numRoutes int
	children  []*Node
	childMask *bitset.BitSet // occupancy over children, mirrors teacher's childTree.addrs
}

// Leaf reports whether this node carries a route.
func (n *Node) Leaf() bool { return n.leaf }

// Key returns the node's stored prefix key (valid only when Leaf()).
func (n *Node) Key() key.Key { return n.key }

// PrefixLen returns the node's prefix length (valid only when Leaf()).
func (n *Node) PrefixLen() int { return n.prefixLen }

// RouteIdx returns a copy of the node's nexthop index slots.
func (n *Node) RouteIdx() [MaxECMP]int { return n.routeIdx }

// NumRoutes reports the number of occupied route-index slots.
func (n *Node) NumRoutes() int { return n.numRoutes }

func newNode(branch int) *Node {
	n := &Node{
		children:  make([]*Node, branch),
		childMask: bitset.New(uint(branch)),
	}
	for i := range n.routeIdx {
		n.routeIdx[i] = unused
	}
	return n
}

// Tree is a FIB trie for one address family, built with a fixed stride K.
type Tree struct {
	Family  int
	TableID int

	k      int
	branch int
	root   *Node
}

// New returns an empty FIB trie with stride K (branching factor 2^K).
// spec.md §8.3 requires every K in {1, 2, 4, 8} to behave identically on
// its test matrix, so K is a construction parameter rather than a
// compile-time constant (see DESIGN.md).
func New(k int) *Tree {
	if k <= 0 || k > 8 || key.MaxBits%k != 0 {
		panic("fib: stride K must evenly divide the 128-bit key width")
	}
	return &Tree{k: k, branch: 1 << k}
}

// Stride returns the trie's configured stride K.
func (t *Tree) Stride() int { return t.k }

func countNonSentinel(idx [MaxECMP]int) int {
	n := 0
	for _, v := range idx {
		if v != unused {
			n++
		}
	}
	return n
}

// Add inserts route idx[] at (k, prefixLen), per spec.md §4.3.3. k is
// masked to prefixLen on entry. Add is safe to call in any order relative
// to other prefixes in the same build (spec.md §4.3.4): a less-specific
// prefix inserted after a more-specific one never overwrites it, and
// re-inserting an identical (prefix, idx) is a no-op.
func (t *Tree) Add(k key.Key, prefixLen int, idx [MaxECMP]int) error {
	k = k.Mask(prefixLen)
	root, err := t.addNode(t.root, k, prefixLen, idx, 0)
	if err != nil {
		return err
	}
	t.root = root
	return nil
}

// addNode implements spec.md §4.3.3's recursive add. depth is the bit
// depth on entry; n may be nil (materialized below).
func (t *Tree) addNode(n *Node, k key.Key, prefixLen int, idx [MaxECMP]int, depth int) (*Node, error) {
	exists := n != nil
	if !exists {
		n = newNode(t.branch)
	}

	switch {
	case prefixLen <= depth:
		// Case A: the prefix reaches or has already passed this depth.
		return t.addCaseA(n, exists, k, prefixLen, idx, depth)

	case prefixLen < depth+t.k:
		// Case B: the prefix ends mid-stride.
		return t.addCaseB(n, k, prefixLen, idx, depth)

	case n.leaf:
		// Case C: the prefix extends past this depth, but the node is
		// currently a leaf that must first be expanded into its children.
		return t.addCaseC(n, k, prefixLen, idx, depth)

	default:
		// Case D: plain descent into one child.
		return t.addCaseD(n, k, prefixLen, idx, depth)
	}
}

func (t *Tree) addCaseA(n *Node, exists bool, k key.Key, prefixLen int, idx [MaxECMP]int, depth int) (*Node, error) {
	if !n.leaf && exists {
		// Reached when a shorter prefix arrives at an existing internal
		// node: from addCaseB's covered range, or from addCaseD when the
		// prefix length is a multiple of K and a longer prefix was
		// installed below it first. The keylen > n.keylen guard below on
		// each child leaf is what prevents this from clobbering a longer
		// prefix already installed deeper in the trie.
		for i := 0; i < t.branch; i++ {
			child, err := t.addNode(n.children[i], k, prefixLen, idx, depth+t.k)
			if err != nil {
				return n, err
			}
			n.children[i] = child
			n.childMask.Set(uint(i))
		}
		return n, nil
	}

	if n.leaf {
		if prefixLen > n.prefixLen {
			n.key = k
			n.prefixLen = prefixLen
			n.routeIdx = idx
			n.numRoutes = countNonSentinel(idx)
		}
		return n, nil
	}

	// Fresh, empty node: install as a new leaf.
	n.leaf = true
	n.key = k
	n.prefixLen = prefixLen
	n.routeIdx = idx
	n.numRoutes = countNonSentinel(idx)
	return n, nil
}

func (t *Tree) addCaseB(n *Node, k key.Key, prefixLen int, idx [MaxECMP]int, depth int) (*Node, error) {
	bitsInDepth := prefixLen - depth
	base := k.Bits(depth, bitsInDepth)
	first := base << uint(t.k-bitsInDepth)
	count := 1 << uint(t.k-bitsInDepth)

	// Snapshot before any mutation: the parent's prior (key, prefixLen,
	// routeIdx) must be cloned into covered-but-not-this-prefix siblings
	// before the parent itself is demoted to internal (spec.md §9.1).
	wasLeaf := n.leaf
	oldKey, oldLen, oldIdx := n.key, n.prefixLen, n.routeIdx

	for i := 0; i < t.branch; i++ {
		switch {
		case i >= first && i < first+count:
			child, err := t.addNode(n.children[i], k, prefixLen, idx, depth+t.k)
			if err != nil {
				return n, err
			}
			n.children[i] = child
			n.childMask.Set(uint(i))
		case wasLeaf:
			child, err := t.addNode(n.children[i], oldKey, oldLen, oldIdx, depth+t.k)
			if err != nil {
				return n, err
			}
			n.children[i] = child
			n.childMask.Set(uint(i))
		}
		// else: leave this child exactly as it was.
	}

	n.leaf = false
	n.prefixLen = 0
	n.numRoutes = 0
	for i := range n.routeIdx {
		n.routeIdx[i] = unused
	}
	return n, nil
}

func (t *Tree) addCaseC(n *Node, k key.Key, prefixLen int, idx [MaxECMP]int, depth int) (*Node, error) {
	oldKey, oldLen, oldIdx := n.key, n.prefixLen, n.routeIdx

	for i := 0; i < t.branch; i++ {
		child, err := t.addNode(n.children[i], oldKey, oldLen, oldIdx, depth+t.k)
		if err != nil {
			return n, err
		}
		n.children[i] = child
		n.childMask.Set(uint(i))
	}

	sel := int(k.Bits(depth, t.k))
	child, err := t.addNode(n.children[sel], k, prefixLen, idx, depth+t.k)
	if err != nil {
		return n, err
	}
	n.children[sel] = child
	n.childMask.Set(uint(sel))

	n.leaf = false
	n.prefixLen = 0
	n.numRoutes = 0
	for i := range n.routeIdx {
		n.routeIdx[i] = unused
	}
	return n, nil
}

func (t *Tree) addCaseD(n *Node, k key.Key, prefixLen int, idx [MaxECMP]int, depth int) (*Node, error) {
	sel := int(k.Bits(depth, t.k))
	child, err := t.addNode(n.children[sel], k, prefixLen, idx, depth+t.k)
	if err != nil {
		return n, err
	}
	n.children[sel] = child
	n.childMask.Set(uint(sel))
	return n, nil
}

// Stats walks the trie and reports the number of leaf and internal nodes,
// the Go counterpart of original_source/test.c's test_count_fib_nodes.
// Descent into children uses childMask's NextSet to visit only occupied
// slots directly, rather than scanning all 2^K children and nil-checking
// each one — the same occupancy shortcut the teacher's node.go takes over
// its own child bitset.
func (t *Tree) Stats() (leaves, internal int) {
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		if n.leaf {
			leaves++
			return
		}
		internal++
		for i, ok := n.childMask.NextSet(0); ok; i, ok = n.childMask.NextSet(i + 1) {
			walk(n.children[i])
		}
	}
	walk(t.root)
	return
}

// Lookup performs the longest-prefix-match descent of spec.md §4.3.5,
// returning the leaf carrying the longest stored prefix covering k, or
// nil if no route matches.
func (t *Tree) Lookup(k key.Key) *Node {
	var cand *Node
	n := t.root
	depth := 0

	for n != nil {
		if n.leaf {
			cand = n
		}
		if depth >= key.MaxBits {
			break
		}
		sel := int(k.Bits(depth, t.k))
		n = n.children[sel]
		depth += t.k
	}
	return cand
}
