/*
   IST-66 - main CPU instruction fetch and execute.

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

import (
	"github.com/rcornwell/ist66/emu/memory"
)

/*
   IST-66 36-bit word machine. Sixteen general accumulators, sixteen
   extended-80 float accumulators, a 27-bit program counter and carry
   flag packed as PSW, and a control word (CW) holding the current/prior
   IRQ level (or, after an exception, the cause nibble), the active
   protection key, and an 18-bit direct-page base.

   Instruction word, bits 0-8 (MSB-first, bit 0 is the top bit of the
   9-bit primary opcode):

     MR   (000)          sub-op | indirect | index | 18-bit displacement
     AM   (001-021)      AC     | indirect | index | 18-bit displacement
     MD   (030)          sub-op | AC       | indirect | index | displacement
     CLM  (100) / RTM (101)      effective-address tail (CLM only)
     SMI  (600)          sub-op | operand
     IO1  (670)          device id | ctl | transfer | AC
     AA   (700-777)      op | ci | cond | nl | rc | mk | rt

   These bit offsets are this implementation's own choice, fixed and
   consistent between every family handler below and the tests that
   construct raw instruction words.
*/

// PSW bit layout: bit 27 carries the carry flag, bits 0-26 the PC.
// spec.md's data model names only {carry, PC} for PSW but is silent on
// where the protection key in effect at interrupt time is preserved
// across entry/RFI; this implementation uses PSW's otherwise-unused
// upper byte (bits 28-35) to carry it, the only spare room available.
const (
	pswCarryBit = 1 << 27
	pswPCMask   = (1 << 27) - 1
)

func packPSW(carry bool, pc uint32, key uint8) uint64 {
	w := uint64(pc) & pswPCMask
	if carry {
		w |= pswCarryBit
	}
	w |= uint64(key) << 28
	return w
}

func unpackPSW(w uint64) (carry bool, pc uint32, key uint8) {
	return w&pswCarryBit != 0, uint32(w) & uint32(pswPCMask), uint8(w >> 28)
}

// packCW assembles the word written to a vector slot when CW is saved:
// bits 28-35 hold CurIRQL, bits 24-27 the reused Nibble field
// (PriorIRQL for a normal interrupt, Cause after an exception), bits
// 0-17 the direct-page base. Key is not part of the CW image; it is
// saved in the upper byte of the PSW image (packPSW), and RFI restores
// it from there.
func packCW(cw ControlWord) uint64 {
	return uint64(cw.CurIRQL)<<28 | uint64(cw.Nibble&0xF)<<24 | uint64(cw.Base&0x3FFFF)
}

func unpackCW(w uint64, key uint8) ControlWord {
	return ControlWord{
		CurIRQL: uint8(w>>28) & 0xFF,
		Nibble:  uint8(w>>24) & 0xF,
		Base:    uint32(w) & 0x3FFFF,
		Key:     key,
	}
}

func vectorSlot(n uint8) uint32 {
	return uint32(n)
}

// readWord reads one word with the CPU's current protection key,
// translating the memory unit's sentinel fault bits into a Cause.
func (c *CPU) readWord(addr uint32) (uint64, bool, Cause) {
	v := c.Mem.Read(c.CW.Key, addr)
	switch {
	case v&memory.MemFault != 0:
		return 0, false, CauseMEMX
	case v&memory.KeyFault != 0:
		return 0, false, CausePPFR
	default:
		return v & WordMask, true, 0
	}
}

func (c *CPU) writeWord(addr uint32, val uint64) (bool, Cause) {
	v := c.Mem.Write(c.CW.Key, addr, val)
	switch {
	case v&memory.MemFault != 0:
		return false, CauseMEMX
	case v&memory.KeyFault != 0:
		return false, CausePPFW
	default:
		return true, 0
	}
}

// readVectorAt reads one word with key temporarily in effect; interrupt
// entry and RFI pass key 0 so vector slots are read unconditionally.
func (c *CPU) readVectorAt(key uint8, addr uint32) uint64 {
	save := c.CW.Key
	c.CW.Key = key
	v, _, _ := c.readWord(addr)
	c.CW.Key = save
	return v
}

func (c *CPU) writeVectorAt(key uint8, addr uint32, val uint64) {
	save := c.CW.Key
	c.CW.Key = key
	_, _ = c.writeWord(addr, val)
	c.CW.Key = save
}

// discardDeferred drops any staged indirect auto-mod write or
// synthesized EDT/ESK instruction. Required on every exception and on
// every interrupt entry.
func (c *CPU) discardDeferred() {
	c.deferWrite = deferredWrite{}
	c.deferExec = deferredExec{}
}

// enterInterrupt performs §4.4's interrupt entry: the outgoing
// {PSW, CW} are saved to the vector slot for the current IRQ level,
// and the new CW/PSW are loaded from the slot for irq.
func (c *CPU) enterInterrupt(irq uint8) {
	curSlot := 32 + 2*c.CW.CurIRQL
	c.writeVectorAt(0, vectorSlot(curSlot), packPSW(c.Carry, c.PC, c.CW.Key))
	c.writeVectorAt(0, vectorSlot(curSlot+1), packCW(c.CW))

	newCW := c.readVectorAt(0, vectorSlot(1+2*irq))
	c.CW = ControlWord{
		CurIRQL: irq,
		Nibble:  c.CW.CurIRQL,
		Base:    uint32(newCW) & 0x3FFFF,
		Key:     0, // Interrupt entry always lands in supervisor state.
	}

	newPSW := c.readVectorAt(0, vectorSlot(2*irq)) & WordMask
	c.Carry, c.PC, _ = unpackPSW(newPSW) // The vector's key byte is ignored: entry already forces key 0.

	c.discardDeferred()
}

// enterException is interrupt entry at IRQ 0, with the cause nibble
// overwriting the Nibble field enterInterrupt just set to the old
// CurIRQL (the hardware reuses the same 4-bit slot for both purposes).
func (c *CPU) enterException(cause Cause) {
	c.enterInterrupt(0)
	c.CW.Nibble = uint8(cause)
}

// returnFromInterrupt restores {PSW, CW} from the vector slot for the
// CW's Nibble field, which after a normal (non-exception) entry holds
// the preempted IRQ level.
func (c *CPU) returnFromInterrupt() {
	prior := c.CW.Nibble
	slot := 32 + 2*prior
	psw := c.readVectorAt(0, vectorSlot(slot)) & WordMask
	cw := c.readVectorAt(0, vectorSlot(slot+1))
	var key uint8
	c.Carry, c.PC, key = unpackPSW(psw)
	c.CW = unpackCW(cw, key)
}

// Step runs the five-stage execution loop body once: deferred
// execute/skip, interrupt check, fetch/decode/execute, deferred write
// commit. Returns the number of memory cycles charged and whether the
// CPU should keep being stepped.
func (c *CPU) Step() (cycles int, keepGoing bool) {
	cycles = 1

	if c.deferExec.armed {
		word := c.deferExec.word
		skip := c.deferExec.skip
		c.deferExec = deferredExec{}
		if fault, cause := c.decodeExecuteFaulting(word); fault {
			c.enterException(cause)
			return cycles, true
		}
		if skip {
			c.PC++
		}
	}

	if pending := c.Intr.Pending(); pending < int(c.CW.CurIRQL) {
		c.enterInterrupt(uint8(pending))
		return cycles, true
	}

	if !c.running {
		if c.exit || c.Intr.Mask() == 0 {
			return cycles, false
		}
		c.Intr.Wait(func() bool { return c.exit })
		return cycles, true
	}

	word, ok, cause := c.readWord(c.PC)
	if !ok {
		c.enterException(cause)
		return cycles, true
	}

	if fault, cause := c.decodeExecuteFaulting(word); fault {
		c.enterException(cause)
		return cycles, true
	}

	if c.deferWrite.armed {
		w := c.deferWrite
		c.deferWrite = deferredWrite{}
		if okw, cause := c.writeWord(w.addr, w.value); !okw {
			c.enterException(cause)
			return cycles, true
		}
	}

	return cycles, true
}

// decodeExecuteFaulting wraps execute with the PC-advance discipline:
// most instructions decode their own effective address (which may
// fault) before calling execute; faults detected there are surfaced
// here so Step can enter the exception and skip the commit phase.
func (c *CPU) decodeExecuteFaulting(word uint64) (fault bool, cause Cause) {
	c.lastFault = 0
	c.hadFault = false
	c.execute(word)
	return c.hadFault, c.lastFault
}

// fault records a mid-instruction fault for decodeExecuteFaulting to
// observe; instruction handlers call this instead of returning an
// error so every family shares one fault path.
func (c *CPU) fault(cause Cause) {
	if !c.hadFault {
		c.hadFault = true
		c.lastFault = cause
	}
}

// opcode9 extracts the top 9-bit primary opcode.
func opcode9(word uint64) uint32 {
	return uint32(word >> 27)
}

func (c *CPU) execute(word uint64) {
	op := opcode9(word)
	switch {
	case op == opMR:
		c.execMR(word)
	case op >= opAMLo && op <= opAMHi:
		c.execAM(word, op)
	case op == opMD:
		c.execMD(word)
	case op == opCLM:
		c.execCLM(word)
	case op == opRTM:
		c.execRTM()
	case op == opSMI:
		c.execSMI(word)
	case op == opIO1:
		c.execIO1(word)
	case op&0x1C0 == 0o700:
		c.execAA(word)
	default:
		c.fault(CauseINST)
	}
	if !c.hadFault {
		c.PC++
	}
}

// effectiveAddress implements §4.2's "Effective address" paragraph:
// indirect fetch, then auto-mod staging via the deferred-write pair.
func (c *CPU) effectiveAddress(indirect bool, index uint8, disp int32) (uint32, bool) {
	var base uint32
	switch {
	case index == idxNone:
		base = 0
	case index == idxDirect:
		base = c.CW.Base << 9
	case index == idxPCRel:
		base = c.PC
	case index >= idxACFirst && index <= idxACLast:
		base = uint32(c.AC[index]) & AddrMask
	case index == idxPostInc:
		old := c.AC[13]
		c.AC[13] = (old + uint64(int64(disp))) & WordMask
		return uint32(old) & AddrMask, true
	case index == idxPreDec:
		c.AC[13] = (c.AC[13] - uint64(int64(disp))) & WordMask
		return uint32(c.AC[13]) & AddrMask, true
	}

	addr := (base + uint32(disp)) & AddrMask
	if !indirect {
		return addr, true
	}

	word, ok, cause := c.readWord(addr)
	if !ok {
		c.fault(cause)
		return 0, false
	}

	if word&(1<<35) == 0 {
		return uint32(word) & AddrMask, true
	}

	mode := (word >> 33) & 0x3
	immed := signExtend(uint32(word>>27)&0x3F, 6)
	switch mode {
	case 0: // post-increment: return pre-mod address, stage new value.
		final := uint32(word) & AddrMask
		c.deferWrite = deferredWrite{armed: true, addr: addr, value: (word + uint64(int64(immed))) & WordMask}
		return final, true
	case 1: // pre-decrement: stage new value, return post-mod address.
		newVal := (word - uint64(int64(immed))) & WordMask
		c.deferWrite = deferredWrite{armed: true, addr: addr, value: newVal}
		return uint32(newVal) & AddrMask, true
	default:
		c.fault(CauseMEMX)
		return 0, false
	}
}

// decodeEA pulls the standard {indirect, index, 18-bit displacement}
// tail shared by MR, AM, and MD family instructions and resolves it.
func (c *CPU) decodeEA(word uint64) (uint32, bool) {
	indirect := word&(1<<22) != 0
	index := uint8((word >> 18) & 0xF)
	disp := signExtend(uint32(word)&0x3FFFF, 18)
	return c.effectiveAddress(indirect, index, disp)
}
