package fib

import (
	"testing"

	"github.com/k1yoto/rib-and-fib/key"
)

func routeIdx(i int) [MaxECMP]int {
	var r [MaxECMP]int
	for j := range r {
		r[j] = unused
	}
	r[0] = i
	return r
}

func mustPrefix(t *testing.T, cidr string) (key.Key, int) {
	t.Helper()
	k, bits, _, err := key.ParsePrefix(cidr)
	if err != nil {
		t.Fatal(err)
	}
	return k, bits
}

func mustAddr(t *testing.T, addr string) key.Key {
	t.Helper()
	k, _, err := key.ParseAddr(addr)
	if err != nil {
		t.Fatal(err)
	}
	return k
}

// The six end-to-end scenarios from spec.md §8.3, run for every stride K
// spec.md requires (1, 2, 4, 8).
func TestEndToEndScenarios(t *testing.T) {
	for _, k := range []int{1, 2, 4, 8} {
		t.Run(kLabel(k), func(t *testing.T) {
			t.Run("default route matches everything", func(t *testing.T) {
				tr := New(k)
				p, bits := mustPrefix(t, "0.0.0.0/0")
				must(t, tr.Add(p, bits, routeIdx(1)))

				got := tr.Lookup(mustAddr(t, "1.2.3.4"))
				wantMatch(t, got, 0, 1)
			})

			t.Run("more specific wins, insert order 8-then-16", func(t *testing.T) {
				tr := New(k)
				p8, b8 := mustPrefix(t, "10.0.0.0/8")
				p16, b16 := mustPrefix(t, "10.1.0.0/16")
				must(t, tr.Add(p8, b8, routeIdx(1)))
				must(t, tr.Add(p16, b16, routeIdx(2)))

				wantMatch(t, tr.Lookup(mustAddr(t, "10.1.2.3")), 16, 2)
				wantMatch(t, tr.Lookup(mustAddr(t, "10.2.0.1")), 8, 1)
			})

			t.Run("no match beyond covered range", func(t *testing.T) {
				tr := New(k)
				p, bits := mustPrefix(t, "192.0.2.0/24")
				must(t, tr.Add(p, bits, routeIdx(1)))

				if got := tr.Lookup(mustAddr(t, "192.0.3.1")); got != nil {
					t.Fatalf("expected no match, got %+v", got)
				}
			})

			t.Run("mid-stride expansion /3", func(t *testing.T) {
				tr := New(k)
				p, bits := mustPrefix(t, "96.0.0.0/3")
				must(t, tr.Add(p, bits, routeIdx(1)))

				wantMatch(t, tr.Lookup(mustAddr(t, "127.255.255.255")), 3, 1)
			})

			t.Run("reverse insert order 16-then-8", func(t *testing.T) {
				tr := New(k)
				p8, b8 := mustPrefix(t, "10.0.0.0/8")
				p16, b16 := mustPrefix(t, "10.1.0.0/16")
				must(t, tr.Add(p16, b16, routeIdx(2)))
				must(t, tr.Add(p8, b8, routeIdx(1)))

				wantMatch(t, tr.Lookup(mustAddr(t, "10.1.2.3")), 16, 2)
				wantMatch(t, tr.Lookup(mustAddr(t, "10.2.0.1")), 8, 1)
			})
		})
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func wantMatch(t *testing.T, n *Node, wantLen, wantIdx int) {
	t.Helper()
	if n == nil {
		t.Fatalf("expected match /%d idx=%d, got none", wantLen, wantIdx)
	}
	if n.PrefixLen() != wantLen {
		t.Fatalf("prefixLen = %d, want %d", n.PrefixLen(), wantLen)
	}
	if n.RouteIdx()[0] != wantIdx {
		t.Fatalf("routeIdx[0] = %d, want %d", n.RouteIdx()[0], wantIdx)
	}
}

func kLabel(k int) string {
	switch k {
	case 1:
		return "K=1"
	case 2:
		return "K=2"
	case 4:
		return "K=4"
	case 8:
		return "K=8"
	default:
		return "K=?"
	}
}

func TestIdempotentInsert(t *testing.T) {
	tr := New(2)
	p, bits := mustPrefix(t, "10.0.0.0/8")
	must(t, tr.Add(p, bits, routeIdx(1)))
	must(t, tr.Add(p, bits, routeIdx(1)))

	wantMatch(t, tr.Lookup(mustAddr(t, "10.1.1.1")), 8, 1)
}

func TestFullAddressWidthPrefix(t *testing.T) {
	tr := New(2)
	p, bits := mustPrefix(t, "203.0.113.7/32")
	must(t, tr.Add(p, bits, routeIdx(9)))

	wantMatch(t, tr.Lookup(mustAddr(t, "203.0.113.7")), 32, 9)
	if got := tr.Lookup(mustAddr(t, "203.0.113.8")); got != nil {
		t.Fatalf("neighboring /32 must not match, got %+v", got)
	}
}

// CaseAPropagation: a longer prefix installed first must survive a later,
// shorter, mid-stride prefix that expands across the same region. The /3
// expansion (Case B) reaches the existing /4 leaf, where Case A's
// keylen > n.keylen guard keeps the longer prefix.
func TestCaseAPropagationDoesNotClobberLonger(t *testing.T) {
	tr := New(2)

	// 96.0.0.0/4 is a sub-range of 96.0.0.0/3 and shares the stride-2
	// boundary at depth 2..4. Install the longer /4 first.
	p4, b4 := mustPrefix(t, "96.0.0.0/4")
	must(t, tr.Add(p4, b4, routeIdx(100)))

	p3, b3 := mustPrefix(t, "96.0.0.0/3")
	must(t, tr.Add(p3, b3, routeIdx(1)))

	// An address still covered by the more specific /4 must keep routing there.
	wantMatch(t, tr.Lookup(mustAddr(t, "96.0.0.1")), 4, 100)

	// An address only covered by /3 (not /4) must fall back to it.
	wantMatch(t, tr.Lookup(mustAddr(t, "112.0.0.1")), 3, 1)
}

func TestOverlapBothOrders(t *testing.T) {
	for _, reverse := range []bool{false, true} {
		tr := New(2)
		p8, b8 := mustPrefix(t, "10.0.0.0/8")
		p16, b16 := mustPrefix(t, "10.1.0.0/16")

		if reverse {
			must(t, tr.Add(p16, b16, routeIdx(2)))
			must(t, tr.Add(p8, b8, routeIdx(1)))
		} else {
			must(t, tr.Add(p8, b8, routeIdx(1)))
			must(t, tr.Add(p16, b16, routeIdx(2)))
		}

		wantMatch(t, tr.Lookup(mustAddr(t, "10.1.2.3")), 16, 2)
		wantMatch(t, tr.Lookup(mustAddr(t, "10.2.0.1")), 8, 1)
	}
}

func TestNoRouteReturnsNil(t *testing.T) {
	tr := New(2)
	if got := tr.Lookup(mustAddr(t, "8.8.8.8")); got != nil {
		t.Fatalf("empty trie must never match, got %+v", got)
	}
}

func TestStatsEmptyTree(t *testing.T) {
	tr := New(2)
	leaves, internal := tr.Stats()
	if leaves != 0 || internal != 0 {
		t.Fatalf("empty trie: got leaves=%d internal=%d, want 0,0", leaves, internal)
	}
}

func TestStatsCountsLeavesAndInternal(t *testing.T) {
	tr := New(2)
	p8, b8 := mustPrefix(t, "10.0.0.0/8")
	must(t, tr.Add(p8, b8, routeIdx(1)))

	// A single /8 at stride 2 is aligned, so it descends by plain Case D
	// steps through internal nodes at depths 0, 2, 4 and 6 and is
	// installed as one leaf at depth 8.
	leaves, internal := tr.Stats()
	if leaves == 0 {
		t.Fatal("expected at least one leaf after inserting a route")
	}
	if internal == 0 {
		t.Fatal("expected at least one internal node from stride expansion")
	}

	p16, b16 := mustPrefix(t, "10.1.0.0/16")
	must(t, tr.Add(p16, b16, routeIdx(2)))

	leaves2, internal2 := tr.Stats()
	if leaves2 < leaves {
		t.Fatalf("leaves shrank after adding a more specific route: %d -> %d", leaves, leaves2)
	}
	if internal2 < internal {
		t.Fatalf("internal nodes shrank after adding a more specific route: %d -> %d", internal, internal2)
	}
}
