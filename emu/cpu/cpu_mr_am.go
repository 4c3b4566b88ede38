/*
   IST-66 - MR (memory reference jump/skip) and AM (accumulator-memory)
   instruction families.

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

// execMR decodes and runs a family-MR instruction: JMP, JSR, ISZ, DSZ.
func (c *CPU) execMR(word uint64) {
	sub := field(word, 9, 4)
	ea, ok := c.decodeEA(word)
	if !ok {
		return
	}

	switch sub {
	case subJMP:
		c.PC = (ea - 1) & AddrMask // execute()'s trailing PC++ lands exactly on ea.
	case subJSR:
		c.AC[15] = uint64(c.PC+1) & WordMask
		c.PC = (ea - 1) & AddrMask
	case subISZ:
		c.bumpAndSkip(ea, 1)
	case subDSZ:
		c.bumpAndSkip(ea, ^uint64(0))
	default:
		c.fault(CauseINST)
	}
}

// bumpAndSkip adds delta to the word at ea, writes it back, and, if
// the deferred-write commit later succeeds, arranges a skip of the
// next instruction when the result is zero.
func (c *CPU) bumpAndSkip(ea uint32, delta uint64) {
	w, ok, cause := c.readWord(ea)
	if !ok {
		c.fault(cause)
		return
	}
	w = (w + delta) & WordMask
	if okw, cause := c.writeWord(ea, w); !okw {
		c.fault(cause)
		return
	}
	if w == 0 {
		c.PC++
	}
}

// execAM decodes and runs a family-AM instruction: the AC/memory
// arithmetic and data-movement ops.
func (c *CPU) execAM(word uint64, op uint32) {
	ac := field(word, 9, 4)
	ea, ok := c.decodeEA(word)
	if !ok {
		return
	}

	switch op {
	case opEDT:
		w, ok, cause := c.readWord(ea)
		if !ok {
			c.fault(cause)
			return
		}
		c.deferExec = deferredExec{armed: true, word: w}
	case opESK:
		w, ok, cause := c.readWord(ea)
		if !ok {
			c.fault(cause)
			return
		}
		c.deferExec = deferredExec{armed: true, word: w, skip: true}
	case opMOVEA:
		c.AC[ac] = uint64(ea) & WordMask
	case opADDEA:
		c.AC[ac] = (c.AC[ac] + uint64(ea)) & WordMask
	case opISE:
		c.arithMemSkip(ea, ac, 1)
	case opDSE:
		c.arithMemSkip(ea, ac, ^uint64(0))
	case opMOVEAS:
		c.AC[ac] = uint64(ea) & WordMask
		c.PC++
	case opLDCOM:
		w, ok, cause := c.readWord(ea)
		if !ok {
			c.fault(cause)
			return
		}
		c.AC[ac] = (^w) & WordMask
	case opLDNEG:
		w, ok, cause := c.readWord(ea)
		if !ok {
			c.fault(cause)
			return
		}
		c.AC[ac] = (-w) & WordMask
	case opLDA:
		w, ok, cause := c.readWord(ea)
		if !ok {
			c.fault(cause)
			return
		}
		c.AC[ac] = w
	case opSTA:
		if okw, cause := c.writeWord(ea, c.AC[ac]); !okw {
			c.fault(cause)
		}
	case opADCM:
		c.storeMemOp(ea, func(w uint64) uint64 { return (w + c.AC[ac]) & WordMask })
	case opSUBM:
		c.storeMemOp(ea, func(w uint64) uint64 { return (w - c.AC[ac]) & WordMask })
	case opADDM:
		c.storeMemOp(ea, func(w uint64) uint64 { return (w + c.AC[ac]) & WordMask })
	case opANDM:
		c.storeMemOp(ea, func(w uint64) uint64 { return w & c.AC[ac] })
	case opORM:
		c.storeMemOp(ea, func(w uint64) uint64 { return w | c.AC[ac] })
	case opXORM:
		c.storeMemOp(ea, func(w uint64) uint64 { return w ^ c.AC[ac] })
	default:
		c.fault(CauseINST)
	}
}

func (c *CPU) storeMemOp(ea uint32, f func(uint64) uint64) {
	w, ok, cause := c.readWord(ea)
	if !ok {
		c.fault(cause)
		return
	}
	if okw, cause := c.writeWord(ea, f(w)); !okw {
		c.fault(cause)
	}
}

func (c *CPU) arithMemSkip(ea uint32, ac uint64, delta uint64) {
	w, ok, cause := c.readWord(ea)
	if !ok {
		c.fault(cause)
		return
	}
	w = (w + delta) & WordMask
	if okw, cause := c.writeWord(ea, w); !okw {
		c.fault(cause)
		return
	}
	c.AC[ac] = w
	if w == 0 {
		c.PC++
	}
}
