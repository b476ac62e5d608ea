// Package nexthop implements the Nexthop Table, spec.md §3.2/§4.1
// (Component A): a fixed-capacity, open-addressed hash table that interns
// (family, nexthop, output-interface) tuples into compact integer
// indices, so the RIB and FIB store a small index instead of a 20-byte
// tuple per route.
//
// Grounded on original_source/route_entry.c: the same Jenkins
// one-at-a-time hash, the same family==0 emptiness sentinel, and the same
// linear-probe-with-wraparound collision policy.
package nexthop

import (
	"encoding/binary"
	"errors"

	"github.com/bits-and-blooms/bitset"
)

// Well-known address families, matching AF_INET/AF_INET6 on a Linux host.
// family == 0 is reserved as the empty-slot sentinel (spec.md §3.2); no
// real family may be 0.
const (
	AFInet  = 2
	AFInet6 = 10
)

// Capacity is the fixed slot count, 2^20, per spec.md §3.2.
const Capacity = 1 << 20

// hashMask masks a hash down to a table index.
const hashMask = Capacity - 1

// ErrFull is returned when every slot has been visited during a probe
// without finding a match or an empty slot.
var ErrFull = errors.New("nexthop: table full")

// entry is one hash-table slot. family == 0 means empty.
type entry struct {
	family int
	oif    uint32
	addr   [16]byte
}

// Table is the fixed-capacity nexthop table. The zero value is not usable;
// construct with New.
type Table struct {
	slots    []entry
	occupied *bitset.BitSet // tracks occupied slots; Len() is its popcount, see DESIGN.md
}

// New allocates a nexthop table with Capacity slots.
func New() *Table {
	return &Table{
		slots:    make([]entry, Capacity),
		occupied: bitset.New(Capacity),
	}
}

// jenkinsOneAtATime is the classic Jenkins one-at-a-time hash, matching
// original_source/route_entry.c's jenkins_hash byte-by-byte.
func jenkinsOneAtATime(data []byte) uint32 {
	var h uint32
	for _, b := range data {
		h += uint32(b)
		h += h << 10
		h ^= h >> 6
	}
	h += h << 3
	h ^= h >> 11
	h += h << 15
	return h
}

// hash computes the table index for (nexthop, oif), matching
// route_table_jenkins_hash: Jenkins one-at-a-time over (nexthop ∥
// big-endian oif), masked to 20 bits.
func hash(addr [16]byte, oif uint32) uint32 {
	var buf [20]byte
	copy(buf[:16], addr[:])
	binary.BigEndian.PutUint32(buf[16:], oif)
	return jenkinsOneAtATime(buf[:]) & hashMask
}

func (t *Table) matches(idx uint32, family int, addr [16]byte, oif uint32) bool {
	s := &t.slots[idx]
	return s.family == family && s.oif == oif && s.addr == addr
}

// AddEntry interns (family, addr, oif), returning its index. Repeated
// calls with the same tuple return the same index (idempotent); a
// pre-existing entry anywhere on the probe path is matched and reused
// before a new slot is written. Returns ErrFull if the probe wraps back to
// the starting slot without finding a match or an empty slot.
func (t *Table) AddEntry(family int, addr [16]byte, oif uint32) (int, error) {
	start := hash(addr, oif)
	idx := start

	for {
		if t.slots[idx].family == 0 {
			t.slots[idx] = entry{family: family, oif: oif, addr: addr}
			t.occupied.Set(uint(idx))
			return int(idx), nil
		}
		if t.matches(idx, family, addr, oif) {
			return int(idx), nil
		}

		idx = (idx + 1) % Capacity
		if idx == start {
			return -1, ErrFull
		}
	}
}

// LookupEntry returns the index of (family, addr, oif), or -1 if absent.
func (t *Table) LookupEntry(family int, addr [16]byte, oif uint32) int {
	start := hash(addr, oif)
	idx := start

	for t.slots[idx].family != 0 {
		if t.matches(idx, family, addr, oif) {
			return int(idx)
		}
		idx = (idx + 1) % Capacity
		if idx == start {
			break
		}
	}
	return -1
}

// Entry is the resolved (family, nexthop, output-interface) tuple at an
// index, returned by At for formatting/display callers.
type Entry struct {
	Family int
	Addr   [16]byte
	Oif    uint32
}

// At returns the entry stored at idx. ok is false for an out-of-range or
// empty index.
func (t *Table) At(idx int) (e Entry, ok bool) {
	if idx < 0 || idx >= len(t.slots) {
		return Entry{}, false
	}
	s := t.slots[idx]
	if s.family == 0 {
		return Entry{}, false
	}
	return Entry{Family: s.family, Addr: s.addr, Oif: s.oif}, true
}

// Len reports the number of interned entries.
func (t *Table) Len() int {
	return int(t.occupied.Count())
}
