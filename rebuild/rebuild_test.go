package rebuild

import (
	"testing"

	"github.com/k1yoto/rib-and-fib/fib"
	"github.com/k1yoto/rib-and-fib/key"
	"github.com/k1yoto/rib-and-fib/nexthop"
	"github.com/k1yoto/rib-and-fib/rib"
)

func mustPrefix(t *testing.T, cidr string) (key.Key, int) {
	t.Helper()
	k, bits, _, err := key.ParsePrefix(cidr)
	if err != nil {
		t.Fatal(err)
	}
	return k, bits
}

func mustAddr(t *testing.T, s string) key.Key {
	t.Helper()
	k, _, err := key.ParseAddr(s)
	if err != nil {
		t.Fatal(err)
	}
	return k
}

func TestRebuildPropagatesRoutes(t *testing.T) {
	r := rib.New(nexthop.AFInet, 0)
	p8, b8 := mustPrefix(t, "10.0.0.0/8")
	p16, b16 := mustPrefix(t, "10.1.0.0/16")
	if err := r.Add(p8, b8, 1); err != nil {
		t.Fatal(err)
	}
	if err := r.Add(p16, b16, 2); err != nil {
		t.Fatal(err)
	}

	f := fib.New(2)
	if err := Rebuild(r, f); err != nil {
		t.Fatal(err)
	}

	if f.Family != nexthop.AFInet {
		t.Fatalf("family not copied: got %d", f.Family)
	}

	n := f.Lookup(mustAddr(t, "10.1.2.3"))
	if n == nil || n.PrefixLen() != 16 || n.RouteIdx()[0] != 2 {
		t.Fatalf("rebuild lookup = %+v", n)
	}

	n2 := f.Lookup(mustAddr(t, "10.2.0.1"))
	if n2 == nil || n2.PrefixLen() != 8 || n2.RouteIdx()[0] != 1 {
		t.Fatalf("rebuild lookup = %+v", n2)
	}
}

func TestRebuildOrderIndependence(t *testing.T) {
	build := func(reverse bool) *fib.Tree {
		r := rib.New(nexthop.AFInet, 0)
		p8, b8 := mustPrefix(t, "10.0.0.0/8")
		p16, b16 := mustPrefix(t, "10.1.0.0/16")
		if reverse {
			r.Add(p16, b16, 2)
			r.Add(p8, b8, 1)
		} else {
			r.Add(p8, b8, 1)
			r.Add(p16, b16, 2)
		}
		f := fib.New(2)
		if err := Rebuild(r, f); err != nil {
			t.Fatal(err)
		}
		return f
	}

	a := build(false)
	b := build(true)

	for _, addr := range []string{"10.1.2.3", "10.2.0.1", "8.8.8.8"} {
		na := a.Lookup(mustAddr(t, addr))
		nb := b.Lookup(mustAddr(t, addr))
		if (na == nil) != (nb == nil) {
			t.Fatalf("%s: presence mismatch a=%v b=%v", addr, na, nb)
		}
		if na != nil && (na.PrefixLen() != nb.PrefixLen() || na.RouteIdx() != nb.RouteIdx()) {
			t.Fatalf("%s: mismatch a=%+v b=%+v", addr, na, nb)
		}
	}
}
