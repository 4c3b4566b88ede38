/*
   IST-66 - AA (two/three-AC ALU) instruction family.

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

import "github.com/rcornwell/ist66/emu/alu"

// execAA decodes and runs a family-AA instruction: a two/three-AC ALU
// form forwarding straight into emu/alu with the instruction's bits
// read as selectors. The top 3 bits of the 9-bit opcode are fixed at
// 111 (that is what selects family AA), leaving 6 free bits; AC1 and
// AC2 share those 6 bits as overlapping 4-bit fields (AC1 the upper
// four, AC2 the lower four), matching this implementation's own
// choice of the ADR-mode alternate destination encoding described
// alongside it.
func (c *CPU) execAA(word uint64) {
	opcode := opcode9(word) & 0x3F
	ac1 := uint8((opcode >> 2) & 0xF)
	ac2 := uint8(opcode & 0xF)

	op := uint8(field(word, 9, 4))
	ci := uint8(field(word, 13, 2))
	cond := uint8(field(word, 15, 3))
	nl := field(word, 18, 1) != 0
	rc := uint8(field(word, 19, 1))
	mk := int8(signExtend(uint32(field(word, 20, 7)), 7))
	rt := int8(signExtend(uint32(field(word, 27, 7)), 7))

	dest := ac1
	if rt&7 == 4 {
		dest = uint8(field(word, 7, 4))
		mk, rt = rt, mk
	}

	carry := uint64(0)
	if c.Carry {
		carry = 1
	}

	out := alu.Compute(alu.Input{
		A:    c.AC[ac1],
		B:    c.AC[ac2],
		C:    carry,
		Op:   op,
		CI:   ci,
		Cond: cond,
		NL:   nl,
		RC:   rc,
		MK:   mk,
		RT:   rt,
	})

	if !nl {
		c.AC[dest] = out & alu.WordMask
	}
	c.Carry = out&alu.CarryBit != 0
	if out&alu.SkipBit != 0 {
		c.PC++
	}
}
