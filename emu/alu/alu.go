/*
 * IST-66 - Arithmetic/logic unit.
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
package alu

// Bit widths of the 36-bit machine word and the 38-bit ALU result.
const (
	WordMask uint64 = 1<<36 - 1 // Significant bits of a machine word.
	CarryBit uint64 = 1 << 36   // Updated carry, in the returned value.
	SkipBit  uint64 = 1 << 37   // Skip decision, in the returned value.
)

// Op selects one of the 16 ALU functions.
const (
	NOTA = iota
	NEGA
	PASSA
	INCA
	RSUBB
	NASUBB
	ADD
	AND
	ANDNOT
	NOTAAND
	OR
	NOR
	NAND
	PASSB
	XNOR
	XOR
)

// CI is the pre-op carry override.
const (
	CIPreserve = iota
	CIClear
	CISet
	CIFlip
)

// Cond is the post-op skip predicate.
const (
	CondNever = iota
	CondCarrySet
	CondCarryClear
	CondZero
	CondNonZero
	CondCarrySetOrZero
	CondCarrySetAndZero
	CondAlways
)

// Input holds one ALU evaluation's operands and selectors.
type Input struct {
	A, B uint64 // 36-bit operands.
	C    uint64 // Input carry, 0 or 1.
	Op   uint8  // 0..15.
	CI   uint8  // 0..3.
	Cond uint8  // 0..7.
	NL   bool   // No-load: caller discards the result bits.
	RC   uint8  // Rotate width selector: 0 = 36-bit, 1 = 37-bit (incl. carry).
	MK   int8   // Signed 7-bit mask width.
	RT   int8   // Signed 7-bit rotate amount, left if positive.
}

// Compute evaluates the ALU for one instruction. Evaluation order is fixed:
// ci, then op, then rotate, then mask, then cond. The return value packs the
// 36-bit result in bits [35:0], the updated carry in bit 36, and the skip
// decision in bit 37.
func Compute(in Input) uint64 {
	ec := effectiveCarry(in.C, in.CI)

	result, carry := apply(in.Op, in.A, in.B, ec)
	result &= WordMask

	result, carry = rotate(result, carry, in.RC, in.RT)
	result = mask(result, carry, in.MK)

	ret := result & WordMask
	if carry != 0 {
		ret |= CarryBit
	}
	if skip(in.Cond, carry, result) {
		ret |= SkipBit
	}
	return ret
}

func effectiveCarry(c uint64, ci uint8) uint64 {
	c &= 1
	switch ci {
	case CIClear:
		return 0
	case CISet:
		return 1
	case CIFlip:
		return c ^ 1
	default: // CIPreserve
		return c
	}
}

// apply runs the named op against A, B and the effective carry, returning
// the raw (unmasked) result and the updated carry bit.
func apply(op uint8, a, b, ec uint64) (uint64, uint64) {
	switch op {
	case NOTA:
		return ^a & WordMask, ec
	case NEGA:
		sum := (^a & WordMask) + ec
		return sum, (sum >> 36) & 1
	case PASSA:
		return a, ec
	case INCA:
		sum := a + ec
		return sum, (sum >> 36) & 1
	case RSUBB:
		sum := (^a & WordMask) + b + ec
		return sum, (sum >> 36) & 1
	case NASUBB:
		notAPlus1 := (^a & WordMask) + 1
		sum := notAPlus1 + b + ec
		return sum, (sum >> 36) & 1
	case ADD:
		sum := a + b + ec
		return sum, (sum >> 36) & 1
	case AND:
		return a & b, ec
	case ANDNOT:
		return a &^ b, ec
	case NOTAAND:
		return ^a & b, ec
	case OR:
		return a | b, ec
	case NOR:
		return ^(a | b) & WordMask, ec
	case NAND:
		return ^(a & b) & WordMask, ec
	case PASSB:
		return b, ec
	case XNOR:
		return ^(a ^ b) & WordMask, ec
	case XOR:
		return a ^ b, ec
	default:
		return a, ec
	}
}

// rotate applies the rt-bit rotate after the op, over either the 36-bit
// result alone (rc=0) or the 37-bit {carry,result} pair (rc=1).
func rotate(result, carry uint64, rc uint8, rt int8) (uint64, uint64) {
	if rc == 0 {
		return rotateN(result, 36, rt), carry
	}
	combined := rotateN((carry<<36)|result, 37, rt)
	return combined & WordMask, (combined >> 36) & 1
}

// rotateN rotates the low width bits of v left by n (negative n rotates
// right), modulo width. A rotate of ±width is the identity.
func rotateN(v uint64, width uint, n int8) uint64 {
	m := int(n) % int(width)
	if m < 0 {
		m += int(width)
	}
	if m == 0 {
		return v
	}
	bits := uint64(1)<<width - 1
	v &= bits
	return ((v << uint(m)) | (v >> (width - uint(m)))) & bits
}

// mask replaces mk most-significant bits (mk>0) or |mk| least-significant
// bits (mk<0) of the rotated result with the current carry bit.
func mask(result, carry uint64, mk int8) uint64 {
	if mk == 0 {
		return result
	}
	fill := uint64(0)
	if carry != 0 {
		fill = 1
	}
	n := uint(mk)
	if mk < 0 {
		n = uint(-mk)
	}
	if n > 36 {
		n = 36
	}
	var replace uint64
	if fill != 0 {
		replace = 1<<n - 1
	}
	if mk > 0 {
		shift := 36 - n
		result &^= (uint64(1)<<n - 1) << shift
		result |= replace << shift
	} else {
		result &^= uint64(1)<<n - 1
		result |= replace
	}
	return result & WordMask
}

func skip(cond uint8, carry, result uint64) bool {
	zero := result == 0
	set := carry != 0
	switch cond {
	case CondNever:
		return false
	case CondCarrySet:
		return set
	case CondCarryClear:
		return !set
	case CondZero:
		return zero
	case CondNonZero:
		return !zero
	case CondCarrySetOrZero:
		return set || zero
	case CondCarrySetAndZero:
		return set && zero
	case CondAlways:
		return true
	default:
		return false
	}
}
