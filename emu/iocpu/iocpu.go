/*
   IST-66 - IOCPU fetch/decode/execute.

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

package iocpu

import (
	"context"

	"github.com/rcornwell/ist66/emu/device"
)

// Step fetches, decodes, and executes one instruction. It returns the
// cycle count charged (1 per executed instruction, the IOCPU has no
// documented timing model; 0 when stopped) and whether the IOCPU should
// keep running.
func (c *IOCPU) Step() (cycles int, keepGoing bool) {
	if !c.running {
		return 0, false
	}
	word := c.readLocal(c.PC) & WordMask
	c.PC = (c.PC + 1) & LocalLimit
	c.execute(word)
	return 1, c.running
}

func (c *IOCPU) execute(word uint64) {
	switch field18(word, 0, 3) {
	case famMR:
		c.execMR(word)
	case famIO:
		c.execIO(word)
	case famOPR0:
		c.execOPR0(word)
	case famOPR1:
		c.execOPR1(word)
	case famOPR3:
		c.execOPR3(word)
	}
}

// readLocal/writeLocal implement the local/host address split: addr <=
// LocalLimit is this IOCPU's own memory; anything above is read or
// written through the host's bus, with an out-of-range host access
// (or a nil host, when none is wired) silently returning 0 rather than
// faulting the IOCPU.
func (c *IOCPU) readLocal(addr uint32) uint64 {
	addr &= BusMask
	if addr <= LocalLimit {
		if int(addr) < len(c.Local) {
			return c.Local[addr] & WordMask
		}
		return 0
	}
	if c.Host == nil {
		return 0
	}
	v := c.Host.Read(0, addr-LocalLimit-1)
	if v&^(1<<36-1) != 0 {
		return 0 // bus error: fault bits set above the 36-bit host word.
	}
	return v & WordMask
}

func (c *IOCPU) writeLocal(addr uint32, v uint64) {
	addr &= BusMask
	v &= WordMask
	if addr <= LocalLimit {
		if int(addr) < len(c.Local) {
			c.Local[addr] = v
		}
		return
	}
	if c.Host == nil {
		return
	}
	c.Host.Write(0, addr-LocalLimit-1, v)
}

// effectiveAddress implements §4.3's MR addressing: a zero-page flag
// stands in for the main CPU's direct-page base (set -> absolute
// address within page zero; clear -> PC-relative), an optional add of
// the single index AC, and indirection through the auto-incrementing
// slots at local addresses 8-15.
func (c *IOCPU) effectiveAddress(word uint64) uint32 {
	indirect := field18(word, 5, 1) != 0
	index := field18(word, 6, 1) != 0
	zeroPage := field18(word, 7, 1) != 0
	disp := signExtend10(uint32(field18(word, 8, 10)))

	var addr uint32
	if zeroPage {
		addr = uint32(disp) & LocalLimit
	} else {
		addr = (c.PC + uint32(disp)) & LocalLimit
	}
	if index {
		addr = (addr + uint32(c.AC[IndexAC])) & LocalLimit
	}
	if indirect {
		if addr >= autoIndexFirst && addr <= autoIndexLast {
			c.Local[addr] = (c.Local[addr] + 1) & WordMask
		}
		addr = uint32(c.readLocal(addr)) & BusMask
	}
	return addr
}

func (c *IOCPU) execMR(word uint64) {
	ea := c.effectiveAddress(word)
	switch field18(word, 3, 2) {
	case subJMP:
		c.PC = ea & LocalLimit
	case subJSR:
		c.writeLocal(ea, uint64(c.PC)&WordMask)
		c.PC = (ea + 1) & LocalLimit
	case subISZ:
		v := (c.readLocal(ea) + 1) & WordMask
		c.writeLocal(ea, v)
		if v == 0 {
			c.PC = (c.PC + 1) & LocalLimit
		}
	case subDSZ:
		v := (c.readLocal(ea) - 1) & WordMask
		c.writeLocal(ea, v)
		if v == 0 {
			c.PC = (c.PC + 1) & LocalLimit
		}
	}
}

// execIO implements the IOCPU's own I/O family: a 7-bit device id
// (0-127, per spec.md's "128 on the IOCPU"), a 2-bit ctl, a 4-bit
// transfer code, and a 2-bit accumulator select, mirroring the main
// CPU's IO1 family shape at reduced width. A status transfer whose ctl
// predicate holds skips the next instruction. A missing device is a
// silent no-op/zero-status rather than a fault; the IOCPU has no
// documented exception path of its own.
func (c *IOCPU) execIO(word uint64) {
	devID := uint16(field18(word, 3, 7))
	ctl := uint8(field18(word, 10, 2))
	transfer := uint8(field18(word, 12, 4))
	ac := uint8(field18(word, 16, 2))

	dev, ok := c.Devices.Get(devID)
	if !ok {
		return
	}
	result := dev.Op(context.Background(), c.AC[ac], ctl, transfer)
	if devinput(transfer) {
		c.AC[ac] |= result & WordMask
	}
	if transfer == device.TransferStatus {
		done := result&uint64(device.StatusDone) != 0
		busy := result&uint64(device.StatusBusy) != 0
		if (ctl == device.StatusSkipBusy && busy) || (ctl == device.StatusSkipNotBusy && !busy) ||
			(ctl == device.StatusSkipDone && done) || (ctl == device.StatusSkipNotDone && !done) {
			c.PC = (c.PC + 1) & LocalLimit
		}
	}
}

func devinput(transfer uint8) bool {
	return transfer <= 12 && transfer%2 == 0
}

func (c *IOCPU) execOPR0(word uint64) {
	if field18(word, 3, 1) != 0 { // CLA
		c.AC[0] = 0
	}
	if field18(word, 4, 1) != 0 { // CLL
		c.Link = false
	}
}

func (c *IOCPU) execOPR1(word uint64) {
	if field18(word, 3, 1) != 0 { // INC
		c.AC[0] = (c.AC[0] + 1) & WordMask
	}
	if field18(word, 4, 1) != 0 { // COM
		c.AC[0] = ^c.AC[0] & WordMask
	}
}

// execOPR3 carries the API opcode: a 4-bit operand that both loads
// C_IRQ and asserts the host interrupt controller at that level,
// per spec.md §4.3.
func (c *IOCPU) execOPR3(word uint64) {
	if field18(word, 3, 1) == 0 {
		return
	}
	level := uint8(field18(word, 4, 4))
	c.CIRQ = level
	if c.HostIntr != nil {
		c.HostIntr.Assert(int(level))
	}
}
