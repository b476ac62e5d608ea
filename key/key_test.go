package key

import (
	"net/netip"
	"testing"
)

func TestMask(t *testing.T) {
	k, bits, is4, err := ParsePrefix("10.1.2.3/16")
	if err != nil {
		t.Fatal(err)
	}
	if !is4 || bits != 16 {
		t.Fatalf("got is4=%v bits=%d", is4, bits)
	}
	want := FromAddr(netip.MustParseAddr("10.1.0.0"))
	if k != want {
		t.Fatalf("got %v want %v", k, want)
	}
}

func TestMaskUnmaskedCaller(t *testing.T) {
	// spec.md §3.1: implementations must not assume callers pre-masked.
	a := FromAddr(netip.MustParseAddr("10.1.2.3"))
	masked := a.Mask(8)
	want := FromAddr(netip.MustParseAddr("10.0.0.0"))
	if masked != want {
		t.Fatalf("Mask(8) = %v want %v", masked, want)
	}
}

func TestMaskFullWidth(t *testing.T) {
	a := FromAddr(netip.MustParseAddr("::1"))
	if a.Mask(128) != a {
		t.Fatal("Mask(128) must be a no-op")
	}
}

func TestMaskZero(t *testing.T) {
	a := FromAddr(netip.MustParseAddr("10.1.2.3"))
	if a.Mask(0) != (Key{}) {
		t.Fatal("Mask(0) must clear every bit")
	}
}

func TestBit(t *testing.T) {
	k := FromAddr(netip.MustParseAddr("128.0.0.0"))
	if k.Bit(0) != 1 {
		t.Fatal("high bit of 128.0.0.0 must be 1")
	}
	if k.Bit(1) != 0 {
		t.Fatal("second bit of 128.0.0.0 must be 0")
	}
}

func TestBits(t *testing.T) {
	// 96.0.0.0 = 0b0110_0000...; depth=0, K=2 -> 0b01 = 1
	k := FromAddr(netip.MustParseAddr("96.0.0.0"))
	if got := k.Bits(0, 2); got != 1 {
		t.Fatalf("Bits(0,2) = %d want 1", got)
	}
	if got := k.Bits(2, 2); got != 2 {
		t.Fatalf("Bits(2,2) = %d want 2 (0b10)", got)
	}
}

func TestRoundTrip4(t *testing.T) {
	want := netip.MustParseAddr("203.0.113.7")
	got := FromAddr(want).Addr(true)
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestRoundTrip6(t *testing.T) {
	want := netip.MustParseAddr("2001:db8::1")
	got := FromAddr(want).Addr(false)
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
}
