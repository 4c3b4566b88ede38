/*
   IST-66 - MD (multiply/divide) instruction family.

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   RICHARD CORNWELL BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

*/

package cpu

import mathbits "math/bits"

const signBit36 = uint64(1) << 35

func toSigned36(w uint64) int64 {
	w &= WordMask
	if w&signBit36 != 0 {
		return int64(w) - (1 << 36)
	}
	return int64(w)
}

func fromSigned36(v int64) uint64 {
	return uint64(v) & WordMask
}

// product72 computes the signed 72-bit product a*b, split into the
// high and low 36-bit words of a two-AC pair.
func product72(a, b int64) (hi, lo uint64) {
	neg := (a < 0) != (b < 0)
	ua, ub := uint64(a), uint64(b)
	if a < 0 {
		ua = uint64(-a)
	}
	if b < 0 {
		ub = uint64(-b)
	}
	mHi, mLo := mathbits.Mul64(ua, ub)
	if neg {
		mLo, carry := mathbits.Sub64(0, mLo, 0)
		mHi, _ = mathbits.Sub64(0, mHi, carry)
		return ((mHi << 28) | (mLo >> 36)) & WordMask, mLo & WordMask
	}
	return ((mHi << 28) | (mLo >> 36)) & WordMask, mLo & WordMask
}

// addPair72 adds (hi2,lo2) into (hi1,lo1) as a 72-bit value, cascading
// carry from the low word into the high word.
func addPair72(hi1, lo1, hi2, lo2 uint64) (hi, lo uint64) {
	sumLo := (lo1 + lo2)
	carry := uint64(0)
	if sumLo > WordMask {
		carry = 1
	}
	lo = sumLo & WordMask
	hi = (hi1 + hi2 + carry) & WordMask
	return hi, lo
}

func subPair72(hi1, lo1, hi2, lo2 uint64) (hi, lo uint64) {
	negHi, negLo := (^hi2)&WordMask, (^lo2)&WordMask
	negLo = (negLo + 1) & WordMask
	if negLo == 0 {
		negHi = (negHi + 1) & WordMask
	}
	return addPair72(hi1, lo1, negHi, negLo)
}

// execMD decodes and runs a family-MD instruction: MPY, MPA, MNA, DIV.
func (c *CPU) execMD(word uint64) {
	sub := field(word, 9, 2)
	ac := field(word, 11, 2) * 2
	ea, ok := c.decodeEA(word)
	if !ok {
		return
	}
	mem, ok, cause := c.readWord(ea)
	if !ok {
		c.fault(cause)
		return
	}

	a := toSigned36(c.AC[ac])
	m := toSigned36(mem)

	switch sub {
	case subMPY:
		hi, lo := product72(a, m)
		c.AC[ac], c.AC[ac+1] = hi, lo
	case subMPA:
		hi, lo := product72(a, m)
		hi, lo = addPair72(hi, lo, c.AC[ac], c.AC[ac+1])
		c.AC[ac], c.AC[ac+1] = hi, lo
	case subMNA:
		hi, lo := product72(a, m)
		hi, lo = subPair72(c.AC[ac], c.AC[ac+1], hi, lo)
		c.AC[ac], c.AC[ac+1] = hi, lo
	case subDIV:
		if m == 0 {
			c.fault(CauseDIVZ)
			return
		}
		q, r := a/m, a%m
		c.AC[ac] = fromSigned36(q)
		c.AC[ac+1] = fromSigned36(r)
	default:
		c.fault(CauseINST)
	}
}
