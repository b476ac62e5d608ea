// Command ribfib is the exercise harness for the RIB/FIB pair: it loads a
// route file, builds a RIB and a nexthop table, rebuilds a FIB from the
// RIB, and then runs one of three test modes (spec.md §6.1), matching
// original_source/main.c's flow (load, rebuild, dispatch on argv[2]).
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/k1yoto/rib-and-fib/fib"
	"github.com/k1yoto/rib-and-fib/nexthop"
	"github.com/k1yoto/rib-and-fib/oracle"
	"github.com/k1yoto/rib-and-fib/rebuild"
	"github.com/k1yoto/rib-and-fib/rib"
)

// stride is the FIB's fixed branching factor for the CLI harness. spec.md
// §8.3's worked scenarios use K=2; the package itself supports any K in
// {1, 2, 4, 8} (see fib.New), but the harness only needs to pick one.
const stride = 2

type config struct {
	is6       bool
	routeFile string
	lookupArg string // "" = benchmark, "all" = exhaustive sweep, else a file path
}

func parseArgs(args []string) (config, error) {
	var c config
	i := 0
	if i < len(args) && args[i] == "-6" {
		c.is6 = true
		i++
	}
	if i >= len(args) {
		return c, fmt.Errorf("usage: ribfib [-6] <route_file> [<lookup_file>|all]")
	}
	c.routeFile = args[i]
	i++
	if i < len(args) {
		c.lookupArg = args[i]
		i++
	}
	if i < len(args) {
		return c, fmt.Errorf("usage: ribfib [-6] <route_file> [<lookup_file>|all]")
	}
	return c, nil
}

func main() {
	log.SetFlags(log.Lmicroseconds)

	c, err := parseArgs(os.Args[1:])
	if err != nil {
		log.Print(err)
		os.Exit(1)
	}

	family := nexthop.AFInet
	if c.is6 {
		family = nexthop.AFInet6
	}

	fmt.Printf("ribfib: family=%s route_file=%s mode=%s\n", familyName(c.is6), c.routeFile, modeName(c.lookupArg))

	nt := nexthop.New()
	rt := rib.New(family, 0)
	oc := oracle.New()

	n, err := LoadRoutes(c.routeFile, c.is6, nt, rt, oc)
	if err != nil {
		log.Printf("load routes: %v", err)
		os.Exit(1)
	}
	fmt.Printf("loaded %d routes (%d distinct nexthops)\n", n, nt.Len())

	f := fib.New(stride)
	if err := rebuild.Rebuild(rt, f); err != nil {
		log.Printf("rebuild: %v", err)
		os.Exit(1)
	}

	leaves, internal := f.Stats()
	fmt.Printf("fib: %d leaf nodes, %d internal nodes\n", leaves, internal)

	switch c.lookupArg {
	case "":
		if err := runPerformance(f, c.is6); err != nil {
			log.Printf("performance test: %v", err)
			os.Exit(1)
		}
	case "all":
		if c.is6 {
			log.Print("exhaustive sweep only supports IPv4 (spec.md §6.1)")
			os.Exit(1)
		}
		if err := runAll(f, oc, nt, rt); err != nil {
			log.Printf("exhaustive sweep: %v", err)
			os.Exit(1)
		}
	default:
		if err := runBasic(f, nt, c.lookupArg); err != nil {
			log.Printf("lookup test: %v", err)
			os.Exit(1)
		}
	}
}

func familyName(is6 bool) string {
	if is6 {
		return "inet6"
	}
	return "inet"
}

func modeName(lookupArg string) string {
	switch lookupArg {
	case "":
		return "performance"
	case "all":
		return "exhaustive"
	default:
		return "lookup:" + lookupArg
	}
}
