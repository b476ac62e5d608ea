package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/k1yoto/rib-and-fib/key"
	"github.com/k1yoto/rib-and-fib/nexthop"
	"github.com/k1yoto/rib-and-fib/oracle"
	"github.com/k1yoto/rib-and-fib/rib"
)

// LoadRoutes reads a route file (spec.md §6.2, "<cidr> <nexthop>" per
// line), interning each nexthop, inserting into rt and oc, and returns the
// number of routes loaded. Malformed lines are logged and skipped rather
// than aborting the load, matching original_source/test.c's
// _load_routes.
func LoadRoutes(path string, is6 bool, nt *nexthop.Table, rt *rib.Tree, oc *oracle.Trie) (int, error) {
	fh, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("ribfib: open route file: %w", err)
	}
	defer fh.Close()

	wantIs4 := !is6
	loaded := 0
	lineNo := 0

	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			log.Printf("route file %s:%d: malformed line %q, skipping", path, lineNo, line)
			continue
		}

		pfxKey, bits, is4, err := key.ParsePrefix(fields[0])
		if err != nil || is4 != wantIs4 {
			log.Printf("route file %s:%d: bad prefix %q, skipping", path, lineNo, fields[0])
			continue
		}

		nhKey, nhIs4, err := key.ParseAddr(fields[1])
		if err != nil || nhIs4 != wantIs4 {
			log.Printf("route file %s:%d: bad nexthop %q, skipping", path, lineNo, fields[1])
			continue
		}

		family := nexthop.AFInet
		if is6 {
			family = nexthop.AFInet6
		}

		idx, err := nt.AddEntry(family, nhKey, 0)
		if err != nil {
			log.Printf("route file %s:%d: %v, skipping", path, lineNo, err)
			continue
		}

		if err := rt.Add(pfxKey, bits, idx); err != nil {
			log.Printf("route file %s:%d: %v, skipping", path, lineNo, err)
			continue
		}

		oc.Insert(pfxKey, bits, nhKey)
		loaded++
	}
	if err := sc.Err(); err != nil {
		return loaded, fmt.Errorf("ribfib: read route file: %w", err)
	}
	return loaded, nil
}

// LoadLookups reads a lookup file (spec.md §6.3, one "<ip>" per line),
// skipping and logging malformed lines, grounded on
// original_source/test.c's _run_lookup.
func LoadLookups(path string, is6 bool) ([]key.Key, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ribfib: open lookup file: %w", err)
	}
	defer fh.Close()

	wantIs4 := !is6
	var out []key.Key
	lineNo := 0

	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		k, is4, err := key.ParseAddr(line)
		if err != nil || is4 != wantIs4 {
			log.Printf("lookup file %s:%d: bad address %q, skipping", path, lineNo, line)
			continue
		}
		out = append(out, k)
	}
	if err := sc.Err(); err != nil {
		return out, fmt.Errorf("ribfib: read lookup file: %w", err)
	}
	return out, nil
}
