package main

import (
	"fmt"
	"time"

	"github.com/k1yoto/rib-and-fib/fib"
	"github.com/k1yoto/rib-and-fib/key"
)

// trials is the number of random lookups the performance benchmark runs,
// matching original_source/test.c's _benchmark_lookup_performance
// (0x10000000 ULL).
const trials = 0x10000000

// xorshift32 is the same deterministic PRNG original_source/test.c uses
// for benchmark address generation, so repeated runs are reproducible.
type xorshift32 struct {
	state uint32
}

func newXorshift32(seed uint32) *xorshift32 {
	if seed == 0 {
		seed = 1
	}
	return &xorshift32{state: seed}
}

func (x *xorshift32) next() uint32 {
	s := x.state
	s ^= s << 13
	s ^= s >> 17
	s ^= s << 5
	x.state = s
	return s
}

// runPerformance is the random-address lookup benchmark (spec.md §6.1's
// default mode), grounded on original_source/test.c's
// _benchmark_lookup_performance. IPv6 is not supported, matching the
// original (it only ever generates 32-bit addresses).
func runPerformance(f *fib.Tree, is6 bool) error {
	if is6 {
		return fmt.Errorf("performance benchmark only supports IPv4")
	}

	rng := newXorshift32(0xdeadbeef)
	start := time.Now()

	var hits uint64
	for i := uint64(0); i < trials; i++ {
		v := rng.next()
		b := [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
		k := key.FromIPv4Bytes(b)
		if f.Lookup(k) != nil {
			hits++
		}
	}

	elapsed := time.Since(start)
	qps := float64(trials) / elapsed.Seconds()
	fmt.Printf("performance: %d lookups in %v (%.0f lookups/sec), %d hits\n", uint64(trials), elapsed, qps, hits)
	return nil
}
