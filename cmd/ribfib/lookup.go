package main

import (
	"fmt"

	"github.com/k1yoto/rib-and-fib/fib"
	"github.com/k1yoto/rib-and-fib/key"
	"github.com/k1yoto/rib-and-fib/nexthop"
)

// runBasic is the file-driven lookup test (spec.md §6.1's third mode),
// grounded on original_source/test.c's _run_lookup: look up every address
// in the lookup file and print whether a route was found.
func runBasic(f *fib.Tree, nt *nexthop.Table, path string) error {
	is6 := f.Family == nexthop.AFInet6
	addrs, err := LoadLookups(path, is6)
	if err != nil {
		return err
	}

	found, missing := 0, 0
	for _, k := range addrs {
		addr := k.Addr(!is6)
		n := f.Lookup(k)
		if n == nil {
			fmt.Printf("- No route for %s\n", addr)
			missing++
			continue
		}

		e, ok := nt.At(n.RouteIdx()[0])
		if !ok {
			fmt.Printf("- No route for %s\n", addr)
			missing++
			continue
		}
		nh := key.Key(e.Addr).Addr(!is6)
		fmt.Printf("+ Found route for %-16s: %s (via /%d)\n", addr, nh, n.PrefixLen())
		found++
	}

	fmt.Printf("lookup test: %d found, %d missing, %d total\n", found, missing, len(addrs))
	return nil
}
