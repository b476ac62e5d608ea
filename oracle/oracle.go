// Package oracle implements the Oracle Trie, spec.md §3.5/§4.5
// (Component E): a second, independent LPM implementation used only in
// tests, to validate the RIB/FIB pair by exhaustive comparison.
//
// spec.md leaves the technique unconstrained as long as
// oracle.Search(key, keylen) returns the data of the longest stored
// prefix covering (key, keylen), or nil. We implement the plain
// uncompressed binary trie spec.md's own component table names
// ("Reference uncompressed binary trie"), rather than the path-compressed
// Patricia trie original_source/ptree.h describes — see SPEC_FULL.md's
// SUPPLEMENTED FEATURES section for why.
package oracle

import "github.com/k1yoto/rib-and-fib/key"

// Trie is an uncompressed binary trie carrying an arbitrary payload per
// stored prefix.
type Trie struct {
	root *node
}

type node struct {
	hasData   bool
	data      any
	left      *node
	right     *node
}

// New returns an empty oracle trie.
func New() *Trie {
	return &Trie{}
}

// Insert stores data at (k, prefixLen), masked to prefixLen on entry. A
// later Insert at the same prefix overwrites the payload.
func (t *Trie) Insert(k key.Key, prefixLen int, data any) {
	k = k.Mask(prefixLen)
	t.root = insert(t.root, k, prefixLen, data, 0)
}

func insert(n *node, k key.Key, prefixLen int, data any, depth int) *node {
	if n == nil {
		n = &node{}
	}
	if depth == prefixLen {
		n.hasData = true
		n.data = data
		return n
	}
	if k.Bit(depth) == 1 {
		n.right = insert(n.right, k, prefixLen, data, depth+1)
	} else {
		n.left = insert(n.left, k, prefixLen, data, depth+1)
	}
	return n
}

// Search returns the payload of the longest stored prefix covering
// (k, keylen), or nil if none covers it. keylen bounds the search depth
// (the oracle will not consider prefixes longer than keylen), matching
// spec.md §4.5's "longest stored prefix that is a prefix of (key,
// keylen)".
func (t *Trie) Search(k key.Key, keylen int) any {
	n := t.root
	var best any
	for depth := 0; depth <= keylen && n != nil; depth++ {
		if n.hasData {
			best = n.data
		}
		if depth == keylen {
			break
		}
		if k.Bit(depth) == 1 {
			n = n.right
		} else {
			n = n.left
		}
	}
	return best
}
