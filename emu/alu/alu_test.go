package alu

import "testing"

func TestAddInvariant(t *testing.T) {
	cases := []struct{ a, b uint64 }{
		{0, 0},
		{1, 1},
		{WordMask, 1},
		{WordMask, WordMask},
		{0x123456789, 0xabcdef012},
	}
	for _, c := range cases {
		got := Compute(Input{A: c.a, B: c.b, Op: ADD})
		wantResult := (c.a + c.b) & WordMask
		wantCarry := (c.a+c.b) >= (WordMask + 1)
		if got&WordMask != wantResult {
			t.Errorf("ADD(%#x,%#x) result = %#x, want %#x", c.a, c.b, got&WordMask, wantResult)
		}
		gotCarry := got&CarryBit != 0
		if gotCarry != wantCarry {
			t.Errorf("ADD(%#x,%#x) carry = %v, want %v", c.a, c.b, gotCarry, wantCarry)
		}
	}
}

func TestCondCarrySetSkip(t *testing.T) {
	got := Compute(Input{A: WordMask, B: 1, Op: ADD, Cond: CondCarrySet})
	if got&SkipBit == 0 {
		t.Fatalf("expected skip bit set when carry set under CondCarrySet")
	}
	got = Compute(Input{A: 1, B: 1, Op: ADD, Cond: CondCarrySet})
	if got&SkipBit != 0 {
		t.Fatalf("expected skip bit clear when carry clear under CondCarrySet")
	}
}

func TestRotateIdentityAtWidth(t *testing.T) {
	v := uint64(0x123456789)
	got := Compute(Input{A: v, Op: PASSA, RT: 36})
	if got&WordMask != v {
		t.Errorf("rotate by +36 not identity: got %#x want %#x", got&WordMask, v)
	}
	got = Compute(Input{A: v, Op: PASSA, RT: -36})
	if got&WordMask != v {
		t.Errorf("rotate by -36 not identity: got %#x want %#x", got&WordMask, v)
	}
}

func TestCIOverride(t *testing.T) {
	got := Compute(Input{A: 0, Op: INCA, CI: CISet})
	if got&WordMask != 1 {
		t.Errorf("INCA with CISet: got %#x want 1", got&WordMask)
	}
	got = Compute(Input{A: 0, Op: INCA, CI: CIClear, C: 1})
	if got&WordMask != 0 {
		t.Errorf("INCA with CIClear: got %#x want 0", got&WordMask)
	}
}

func TestMaskMSB(t *testing.T) {
	got := Compute(Input{A: 0, B: 0, Op: ADD, CI: CISet, MK: 4})
	// Carry after ADD(0,0,1) is 0, so the top 4 bits are forced to 0 and
	// the sum's low bit is left as it is.
	if got&WordMask != 1 {
		t.Errorf("mask MSB with carry 0: got %#x want 1", got&WordMask)
	}
}

func TestMaskLSBWithCarry(t *testing.T) {
	got := Compute(Input{A: WordMask, B: 1, Op: ADD, MK: -4})
	if got&CarryBit == 0 {
		t.Fatalf("expected carry set")
	}
	if got&0xf != 0xf {
		t.Errorf("mask LSB with carry 1: got low nibble %#x want 0xf", got&0xf)
	}
}

func TestLogicalOpsPassCarryThrough(t *testing.T) {
	got := Compute(Input{A: 0xf0, B: 0x0f, Op: AND, CI: CISet})
	if got&CarryBit == 0 {
		t.Errorf("AND should pass effective carry through unchanged")
	}
	if got&WordMask != 0 {
		t.Errorf("AND(0xf0,0x0f) = %#x, want 0", got&WordMask)
	}
}
