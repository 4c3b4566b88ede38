package fpu

import "testing"

func TestFloat36RoundTrip(t *testing.T) {
	cases := []uint64{
		0,
		packFloat36(false, 64, 1),
		packFloat36(true, 64, 1),
		packFloat36(false, 127, 0x5555555),
	}
	for _, w := range cases {
		f := FromFloat36(w)
		got, flags := ToFloat36(f, false)
		if got != w {
			t.Errorf("round trip %#x -> %#x, flags=%#x", w, got, flags)
		}
	}
}

func TestFloat72RoundTrip(t *testing.T) {
	f := FromFloat36(packFloat36(false, 100, 0x2AAAAAA))
	hi, lo := ToFloat72(f)
	back := FromFloat72(hi, lo)
	if back.Sign != f.Sign || back.Exp != f.Exp || back.Signif != f.Signif {
		t.Errorf("float72 round trip mismatch: got %+v, want %+v", back, f)
	}
}

func TestNormalizeZero(t *testing.T) {
	f := Normalize(Float80{Signif: 0, Exp: 42})
	if f.Exp != 0 || f.Signif != 0 {
		t.Errorf("normalize of zero: got %+v", f)
	}
}

func TestAddSameExponent(t *testing.T) {
	a := Float80{Exp: Bias, Signif: 1 << 63}
	b := Float80{Exp: Bias, Signif: 1 << 63}
	sum, _ := Add(a, b)
	// 1.0 + 1.0 = 2.0: same significand, exponent +1.
	if sum.Exp != Bias+1 {
		t.Errorf("Add exponent = %d, want %d", sum.Exp, Bias+1)
	}
	if sum.Signif != 1<<63 {
		t.Errorf("Add significand = %#x, want %#x", sum.Signif, uint64(1)<<63)
	}
}

func TestAddCancelsToZero(t *testing.T) {
	a := Float80{Exp: Bias, Signif: 1 << 63}
	b := Float80{Exp: Bias, Signif: 1 << 63, Sign: true}
	sum, _ := Add(a, b)
	if sum.Signif != 0 {
		t.Errorf("a + (-a) should be zero, got %+v", sum)
	}
}

func TestMultiplyOne(t *testing.T) {
	one := Float80{Exp: Bias, Signif: 1 << 63}
	prod, flags := Multiply(one, one)
	if prod.Exp != Bias || prod.Signif != 1<<63 {
		t.Errorf("1.0 * 1.0 = %+v, flags=%#x", prod, flags)
	}
}

func TestDivideByZeroIllegal(t *testing.T) {
	one := Float80{Exp: Bias, Signif: 1 << 63}
	_, flags := Divide(one, Float80{})
	if flags&ILGL == 0 {
		t.Errorf("divide by zero should set ILGL, got flags=%#x", flags)
	}
}

func TestConormalizeInsignificant(t *testing.T) {
	a := Float80{Exp: Bias + 100, Signif: 1 << 63}
	b := Float80{Exp: Bias, Signif: 1 << 63}
	_, bOut, flags := Conormalize(a, b)
	if flags&INSG == 0 {
		t.Errorf("expected INSG when exponent difference exceeds 64")
	}
	if bOut.Signif != 0 {
		t.Errorf("insignificant operand should zero its significand, got %#x", bOut.Signif)
	}
}
