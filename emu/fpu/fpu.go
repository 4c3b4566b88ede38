/*
 * IST-66 - Extended-precision floating point surface.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */
package fpu

import "math/bits"

// Float80 is the internal extended-precision representation: an explicit
// leading one in the significand (bit 63 set when normalized and nonzero),
// a 15-bit-range exponent biased by Bias, and a separate sign.
type Float80 struct {
	Sign   bool
	Exp    int16
	Signif uint64
}

// Result flag bits, OR-combined in a single uint8 return.
const (
	OVRF     uint8 = 1 << iota // Exponent overflow.
	UNDF                       // Exponent underflow.
	ILGL                       // Illegal operation (e.g. divide by zero).
	INSG                       // Operand became insignificant in conormalize.
	INEXACT                    // Rounding discarded nonzero bits.
)

const (
	float36ExpBits  = 8
	float36FracBits = 27
	float36Bias     = 127

	Bias    = 16383 // extended-80 exponent bias
	maxExp  = 32767
	signBit = uint64(1) << 35
)

// Normalize left-shifts Signif until its top bit is set, decrementing Exp
// to match; a zero significand normalizes to exponent 0 with sign kept.
func Normalize(f Float80) Float80 {
	if f.Signif == 0 {
		f.Exp = 0
		return f
	}
	shift := bits.LeadingZeros64(f.Signif)
	f.Signif <<= uint(shift)
	f.Exp -= int16(shift)
	return f
}

// Conormalize aligns a and b to the larger exponent, shifting the smaller
// operand's significand right with round-to-nearest-even on the bits
// shifted out. If the exponent difference exceeds 64 the smaller operand
// is zeroed and INSG is flagged.
func Conormalize(a, b Float80) (Float80, Float80, uint8) {
	var flags uint8
	if a.Exp == b.Exp {
		return a, b, 0
	}
	if a.Exp < b.Exp {
		a, b = b, a
	}
	diff := uint(a.Exp - b.Exp)
	if diff > 64 {
		b.Signif = 0
		b.Exp = a.Exp
		return a, b, INSG
	}
	if diff == 64 {
		// Round using the top shifted-out bit only.
		round := b.Signif>>63 != 0
		b.Signif = 0
		if round {
			b.Signif = 1
		}
	} else if diff > 0 {
		roundBit := (b.Signif >> (diff - 1)) & 1
		rest := b.Signif & (uint64(1)<<(diff-1) - 1)
		shifted := b.Signif >> diff
		if roundBit != 0 && (rest != 0 || shifted&1 != 0) {
			shifted++
			flags |= INEXACT
		}
		b.Signif = shifted
	}
	b.Exp = a.Exp
	return a, b, flags
}

// Add computes a+b (or a-b when signs differ, via the usual magnitude
// comparison), renormalizing and flagging overflow/underflow/inexact.
func Add(a, b Float80) (Float80, uint8) {
	a, b, flags := Conormalize(a, b)

	var result Float80
	result.Exp = a.Exp
	if a.Sign == b.Sign {
		sum, carry := bits.Add64(a.Signif, b.Signif, 0)
		result.Sign = a.Sign
		if carry != 0 {
			// Shift right one to absorb the carry out of the top bit.
			round := sum & 1
			sum = (sum >> 1) | (1 << 63)
			result.Exp++
			if round != 0 {
				flags |= INEXACT
			}
		}
		result.Signif = sum
	} else {
		var diff uint64
		if a.Signif >= b.Signif {
			diff = a.Signif - b.Signif
			result.Sign = a.Sign
		} else {
			diff = b.Signif - a.Signif
			result.Sign = b.Sign
		}
		result.Signif = diff
	}

	result = Normalize(result)
	if result.Exp > maxExp {
		flags |= OVRF
	}
	if result.Exp < 0 && result.Signif != 0 {
		flags |= UNDF
	}
	return result, flags
}

// Multiply computes the full 128-bit product of the significands, then
// post-normalizes by 0 or 1 bits. The significand keeps the top 64 bits
// of the product; the discarded low bits set INEXACT but are truncated,
// not rounded.
func Multiply(a, b Float80) (Float80, uint8) {
	var flags uint8
	hi, lo := bits.Mul64(a.Signif, b.Signif)

	var result Float80
	result.Sign = a.Sign != b.Sign
	result.Exp = a.Exp + b.Exp - Bias

	// With both operands normalized (msb set), the product's top bit
	// lands in hi's bit 63 (product in [2,4)) or bit 62 (in [1,2)).
	if hi&(1<<63) != 0 {
		// Already aligned; lo is discarded.
		if lo != 0 {
			flags |= INEXACT
		}
		result.Signif = hi
		result.Exp++
	} else {
		rest := lo & (1<<63 - 1)
		hi <<= 1
		hi |= lo >> 63
		if rest != 0 {
			flags |= INEXACT
		}
		result.Signif = hi
	}

	result = Normalize(result)
	if result.Exp > maxExp {
		flags |= OVRF
	}
	return result, flags
}

// Divide computes a/b via a 128-bit dividend over a 64-bit divisor,
// normalizing the quotient and flagging division by zero as ILGL.
func Divide(a, b Float80) (Float80, uint8) {
	if b.Signif == 0 {
		return Float80{}, ILGL
	}
	var flags uint8

	var result Float80
	result.Sign = a.Sign != b.Sign
	// The 128/64 quotient carries one extra bit of scale (a/b * 2^64 over
	// a 2^63 significand), hence the -1.
	result.Exp = a.Exp - b.Exp + Bias - 1

	// Normalize so the dividend's top bit is below the divisor's, then
	// divide via the standard 128/64 primitive.
	hi, lo := a.Signif, uint64(0)
	if hi >= b.Signif {
		hi >>= 1
		lo = (a.Signif << 63) | (lo >> 1)
		result.Exp++
	}
	q, r := bits.Div64(hi, lo, b.Signif)
	if r != 0 {
		flags |= INEXACT
	}
	result.Signif = q
	result = Normalize(result)
	if result.Exp > maxExp {
		flags |= OVRF
	}
	return result, flags
}

// FromFloat36 widens a packed float36 word to the internal representation.
func FromFloat36(w uint64) Float80 {
	sign := w&signBit != 0
	exp := uint8((w >> float36FracBits) & (1<<float36ExpBits - 1))
	frac := w & (1<<float36FracBits - 1)

	var f Float80
	f.Sign = sign
	if exp == 0 {
		f.Signif = 0
		f.Exp = 0
		return f
	}
	f.Exp = int16(exp) - float36Bias + Bias
	f.Signif = (1 << 63) | (frac << (63 - float36FracBits))
	return f
}

// ToFloat36 narrows the internal representation to a packed float36 word,
// rounding the truncated low 36 bits to nearest-even when round is true.
// Overflow returns an infinity-encoded word and OVRF; underflow returns
// zero and UNDF.
func ToFloat36(f Float80, round bool) (uint64, uint8) {
	var flags uint8
	if f.Signif == 0 {
		return packFloat36(f.Sign, 0, 0), 0
	}

	exp := int32(f.Exp) - Bias + float36Bias
	frac := f.Signif >> (63 - float36FracBits)
	if round {
		roundBit := (f.Signif >> (63 - float36FracBits - 1)) & 1
		rest := f.Signif & (1<<(63-float36FracBits-1) - 1)
		if roundBit != 0 && (rest != 0 || frac&1 != 0) {
			frac++
			flags |= INEXACT
			if frac&(1<<(float36FracBits+1)) != 0 {
				frac >>= 1
				exp++
			}
		}
	}
	if exp >= 1<<float36ExpBits {
		return packFloat36(f.Sign, (1<<float36ExpBits)-1, 0), flags | OVRF
	}
	if exp <= 0 {
		return packFloat36(f.Sign, 0, 0), flags | UNDF
	}
	return packFloat36(f.Sign, uint8(exp), frac&(1<<float36FracBits-1)), flags
}

func packFloat36(sign bool, exp uint8, frac uint64) uint64 {
	var w uint64
	if sign {
		w |= signBit
	}
	w |= uint64(exp) << float36FracBits
	w |= frac & (1<<float36FracBits - 1)
	return w
}

// ToFloat72 narrows the internal representation into the two-word external
// format: the first word holds sign, exponent, and the high 27 bits of the
// 63-bit fraction; the second holds the low 36 bits.
func ToFloat72(f Float80) (hi, lo uint64) {
	exp := int32(f.Exp) - Bias + float36Bias
	frac63 := f.Signif &^ (1 << 63) // drop explicit leading one
	if exp < 0 {
		exp = 0
	}
	if exp >= 1<<float36ExpBits {
		exp = (1 << float36ExpBits) - 1
	}
	hiFrac := frac63 >> 36
	loFrac := frac63 & (1<<36 - 1)
	hi = packFloat36(f.Sign, uint8(exp), hiFrac)
	lo = loFrac
	return hi, lo
}

// FromFloat72 widens the two-word external format back to the internal
// representation.
func FromFloat72(hi, lo uint64) Float80 {
	sign := hi&signBit != 0
	exp := uint8((hi >> float36FracBits) & (1<<float36ExpBits - 1))
	hiFrac := hi & (1<<float36FracBits - 1)
	frac63 := (hiFrac << 36) | (lo & (1<<36 - 1))

	var f Float80
	f.Sign = sign
	if exp == 0 && frac63 == 0 {
		return f
	}
	f.Exp = int16(exp) - float36Bias + Bias
	f.Signif = (1 << 63) | frac63
	return f
}
