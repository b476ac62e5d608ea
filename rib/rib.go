// Package rib implements the RIB Trie, spec.md §3.3/§4.2 (Component B):
// an uncompressed binary trie that is the authoritative store of
// prefix-to-nexthop-index bindings. It supports insertion, deletion,
// longest-prefix-match lookup and ordered traversal.
//
// Grounded on original_source/radix.c (_add/_delete/_lookup/_traverse),
// with traversal reshaped from the C callback style into a Go iterator
// following the teacher's (gaissmai/bart) table_iter.go convention.
package rib

import (
	"errors"
	"iter"

	"github.com/k1yoto/rib-and-fib/key"
)

// MaxECMP bounds the number of nexthop indices carried per route, per
// spec.md §3.3.
const MaxECMP = key.MaxECMP

// unused marks an empty route-index slot, distinguishable from the valid
// index 0 (spec.md §9.1's "tagged option" note, implemented here as a
// plain sentinel to match the source's int[MaxECMP] layout).
const unused = key.UnusedRoute

var (
	// ErrEcmpFull is returned by Add when a node's route-index slots are
	// all occupied by distinct nexthop indices.
	ErrEcmpFull = errors.New("rib: ecmp slots full")
	// ErrNotFound is returned by Delete when no route exists at the
	// given (key, prefixLen, idx).
	ErrNotFound = errors.New("rib: route not found")
)

// Node is one node of the RIB trie.
type Node struct {
	key        key.Key
	prefixLen  int
	valid      bool
	routeIdx   [MaxECMP]int
	numRoutes  int
	left       *Node
	right      *Node
}

// Key returns the node's stored key, masked to PrefixLen.
func (n *Node) Key() key.Key { return n.key }

// PrefixLen returns the node's prefix length.
func (n *Node) PrefixLen() int { return n.prefixLen }

// Valid reports whether the node carries at least one route.
func (n *Node) Valid() bool { return n.valid }

// NumRoutes reports the number of occupied route-index slots.
func (n *Node) NumRoutes() int { return n.numRoutes }

// RouteIdx returns a copy of the node's route-index slots (unused slots
// hold -1).
func (n *Node) RouteIdx() [MaxECMP]int { return n.routeIdx }

func newNode() *Node {
	n := &Node{}
	for i := range n.routeIdx {
		n.routeIdx[i] = unused
	}
	return n
}

// Tree is a RIB trie for one address family.
type Tree struct {
	Family  int
	TableID int
	root    *Node
}

// New returns an empty RIB tree.
func New(family, tableID int) *Tree {
	return &Tree{Family: family, TableID: tableID}
}

// Add inserts route idx at (k, prefixLen). k is masked to prefixLen on
// entry, matching spec.md §3.1's "implementations must not assume callers
// do so." Inserting the same idx at the same prefix twice is a no-op
// (deduplicated, spec.md §9.2's preferred behavior).
func (t *Tree) Add(k key.Key, prefixLen int, idx int) error {
	k = k.Mask(prefixLen)
	root, err := addNode(t.root, k, prefixLen, idx, 0)
	if err != nil {
		return err
	}
	t.root = root
	return nil
}

func addNode(n *Node, k key.Key, prefixLen, idx, depth int) (*Node, error) {
	if n == nil {
		n = newNode()
	}

	if depth == prefixLen {
		if n.valid {
			for _, v := range n.routeIdx {
				if v == idx {
					return n, nil // already present, dedup
				}
			}
			for i := range n.routeIdx {
				if n.routeIdx[i] == unused {
					n.routeIdx[i] = idx
					n.numRoutes++
					return n, nil
				}
			}
			return n, ErrEcmpFull
		}

		n.key = k
		n.prefixLen = prefixLen
		n.valid = true
		n.routeIdx[0] = idx
		n.numRoutes = 1
		return n, nil
	}

	var err error
	if k.Bit(depth) == 1 {
		n.right, err = addNode(n.right, k, prefixLen, idx, depth+1)
	} else {
		n.left, err = addNode(n.left, k, prefixLen, idx, depth+1)
	}
	return n, err
}

// Delete removes route idx from (k, prefixLen). If the node held no other
// routes afterward, it (and any now-childless, invalid ancestors) is
// pruned via shrink.
func (t *Tree) Delete(k key.Key, prefixLen int, idx int) error {
	k = k.Mask(prefixLen)
	root, err := deleteNode(t.root, k, prefixLen, idx, 0)
	if err != nil {
		return err
	}
	t.root = root
	return nil
}

func deleteNode(n *Node, k key.Key, prefixLen, idx, depth int) (*Node, error) {
	if n == nil {
		return nil, ErrNotFound
	}

	if depth == prefixLen {
		if !n.valid {
			return n, ErrNotFound
		}

		found := -1
		for i := 0; i < n.numRoutes; i++ {
			if n.routeIdx[i] == idx {
				found = i
				break
			}
		}
		if found == -1 {
			return n, ErrNotFound
		}

		for j := found; j < n.numRoutes-1; j++ {
			n.routeIdx[j] = n.routeIdx[j+1]
		}
		n.routeIdx[n.numRoutes-1] = unused
		n.numRoutes--

		if n.numRoutes == 0 {
			n.key = key.Key{}
			n.prefixLen = 0
			n.valid = false
			return shrink(n), nil
		}
		return n, nil
	}

	var err error
	if k.Bit(depth) == 1 {
		n.right, err = deleteNode(n.right, k, prefixLen, idx, depth+1)
	} else {
		n.left, err = deleteNode(n.left, k, prefixLen, idx, depth+1)
	}
	if !n.valid && n.left == nil && n.right == nil {
		return nil, err
	}
	return n, err
}

func shrink(n *Node) *Node {
	if n == nil {
		return nil
	}
	n.left = shrink(n.left)
	n.right = shrink(n.right)
	if n.left == nil && n.right == nil && !n.valid {
		return nil
	}
	return n
}

// Lookup performs a longest-prefix-match walk for k, returning the most
// specific valid node on the path, or nil if none exists.
func (t *Tree) Lookup(k key.Key) *Node {
	return lookupNode(t.root, nil, k, 0)
}

func lookupNode(n, cand *Node, k key.Key, depth int) *Node {
	if n == nil {
		return cand
	}
	if n.valid {
		cand = n
	}
	if depth >= key.MaxBits {
		return cand
	}
	if k.Bit(depth) == 1 {
		return lookupNode(n.right, cand, k, depth+1)
	}
	return lookupNode(n.left, cand, k, depth+1)
}

// Traverse visits every valid, non-empty node in pre-order (node, then
// left, then right). The walk stops early if cb returns false.
func (t *Tree) Traverse(cb func(*Node) bool) {
	traverse(t.root, cb)
}

func traverse(n *Node, cb func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if n.valid && n.numRoutes > 0 {
		if !cb(n) {
			return false
		}
	}
	if !traverse(n.left, cb) {
		return false
	}
	return traverse(n.right, cb)
}

// All returns an iter.Seq (range-over-func) iterator over every valid node in pre-order,
// the teacher's (gaissmai/bart) iter-based alternative to the
// callback-style Traverse, following table_iter.go's convention.
func (t *Tree) All() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		traverse(t.root, yield)
	}
}
