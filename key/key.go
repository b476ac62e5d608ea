// Package key carries the bit-level address representation shared by the
// nexthop table, the RIB trie, the FIB trie and the oracle: a fixed
// 16-byte, big-endian, MSB-first buffer plus a prefix length, matching
// spec.md §3.1.
//
// IPv4 addresses are carried zero-padded into the high 4 bytes of the
// buffer per spec.md; the length still reflects the real prefix length
// (0-32 for IPv4, 0-128 for IPv6), it is never offset by the padding.
package key

import (
	"fmt"
	"net/netip"
)

// MaxBits is the width of the internal key buffer in bits (128, IPv6-sized).
const MaxBits = 128

// MaxECMP bounds the number of nexthop indices carried per route in both
// the RIB and the FIB (spec.md §3.3/§3.4). Kept general rather than
// collapsed to a single slot, see DESIGN.md's Open Question decisions;
// the test suite only exercises N=1.
const MaxECMP = 1

// UnusedRoute marks an empty route-index slot, distinguishable from the
// valid index 0.
const UnusedRoute = -1

// Key is a fixed-width, big-endian, MSB-first address buffer.
// The zero value is the all-zeros address.
type Key [16]byte

// FromAddr converts a netip.Addr into a Key. IPv4 addresses are placed in
// the first 4 bytes; the remaining bytes stay zero.
func FromAddr(a netip.Addr) Key {
	var k Key
	if a.Is4() {
		b := a.As4()
		copy(k[:4], b[:])
		return k
	}
	b := a.As16()
	copy(k[:], b[:])
	return k
}

// FromIPv4Bytes builds a Key directly from four big-endian address bytes,
// the same shape as original_source/test.c's uint32_to_ipv4_bytes_hton,
// for callers (the benchmark generator) that already have a host-order
// uint32 and want to avoid a round trip through netip.Addr.
func FromIPv4Bytes(b [4]byte) Key {
	var k Key
	copy(k[:4], b[:])
	return k
}

// Addr converts a Key back to a netip.Addr. is4 selects whether the first
// 4 bytes (IPv4) or all 16 bytes (IPv6) are interpreted.
func (k Key) Addr(is4 bool) netip.Addr {
	if is4 {
		var b [4]byte
		copy(b[:], k[:4])
		return netip.AddrFrom4(b)
	}
	return netip.AddrFrom16(k)
}

// Mask clears every bit at position >= prefixLen, per spec.md §3.1's
// "bits beyond prefix-length in the address are treated as zero" — callers
// (parsers) must not assume this has already happened, so every entry
// point that accepts a caller-supplied (Key, prefixLen) masks on the way
// in.
func (k Key) Mask(prefixLen int) Key {
	if prefixLen >= MaxBits {
		return k
	}
	if prefixLen < 0 {
		prefixLen = 0
	}
	out := k
	fullBytes := prefixLen / 8
	rem := prefixLen % 8
	if rem != 0 {
		mask := byte(0xff << (8 - rem))
		out[fullBytes] &= mask
		fullBytes++
	}
	for i := fullBytes; i < len(out); i++ {
		out[i] = 0
	}
	return out
}

// Bit returns the bit at MSB-first index i (0 is the high bit of byte 0).
func (k Key) Bit(i int) uint8 {
	byteIdx := i >> 3
	bitIdx := uint(i & 7)
	return (k[byteIdx] >> (7 - bitIdx)) & 1
}

// Bits extracts an n-bit big-endian field starting at MSB-first bit
// position s, per spec.md §4.3.1's BITS(key, s, n). n must be in [1,64]
// and s+n must be <= MaxBits.
func (k Key) Bits(s, n int) uint {
	if n <= 0 || n > 64 || s < 0 || s+n > MaxBits {
		panic(fmt.Sprintf("key: Bits(s=%d, n=%d) out of range", s, n))
	}

	var v uint
	for i := 0; i < n; i++ {
		v = (v << 1) | uint(k.Bit(s+i))
	}
	return v
}

// ParsePrefix parses a CIDR string into its masked Key, prefix length and
// whether it is IPv4. Malformed input is reported through err so the
// route/lookup-file loaders (spec.md §6.2/§6.3) can log and skip rather
// than abort.
func ParsePrefix(s string) (k Key, bits int, is4 bool, err error) {
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return Key{}, 0, false, fmt.Errorf("key: parse prefix %q: %w", s, err)
	}
	p = p.Masked()
	return FromAddr(p.Addr()), p.Bits(), p.Addr().Is4(), nil
}

// ParseAddr parses a bare IP address string into a Key.
func ParseAddr(s string) (k Key, is4 bool, err error) {
	a, err := netip.ParseAddr(s)
	if err != nil {
		return Key{}, false, fmt.Errorf("key: parse addr %q: %w", s, err)
	}
	return FromAddr(a), a.Is4(), nil
}
