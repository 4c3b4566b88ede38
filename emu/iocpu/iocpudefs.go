/*
   IST-66 - IOCPU state and instruction-family constants.

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

// Package iocpu implements the IST-66's companion I/O processor: an
// 18-bit-word interpreter running its own small instruction set over a
// local memory that aliases into the host's address space above a fixed
// split point, per spec.md §4.3.
package iocpu

import (
	"github.com/rcornwell/ist66/emu/device"
	"github.com/rcornwell/ist66/emu/intr"
	"github.com/rcornwell/ist66/emu/memory"
)

// Word and address masks. The local address space is 18 bits; the full
// bus address space the IOCPU can reference is 28 bits, split at
// LocalLimit between the IOCPU's own memory and the host's.
const (
	WordMask   uint64 = 0o777777 // 18 bits.
	LocalLimit uint32 = 0x3FFFF  // addr <= LocalLimit targets local memory.
	BusMask    uint32 = 0xFFFFFFF
)

// Auto-increment indirect slots: referencing one of these local
// addresses indirectly increments it before use, the classic
// "auto-index register" idiom spec.md's §4.3 calls out.
const (
	autoIndexFirst = 8
	autoIndexLast  = 15
)

// Primary opcode families, bits 0-2 of the 18-bit word. The nominal
// "bits 0-4 (5 bits) primary opcode" of spec.md §4.3 is this
// implementation's family selector; spec.md leaves the exact bit
// assignment to the implementer (as it already does for the main CPU's
// family layout), and a 3-bit family code is all five families need,
// leaving more room for the MR family's displacement.
const (
	famMR   = 0
	famIO   = 1
	famOPR0 = 2
	famOPR1 = 3
	famOPR3 = 4
)

// MR family sub-opcodes (bits 3-4).
const (
	subJMP = 0
	subJSR = 1
	subISZ = 2
	subDSZ = 3
)

// IndexAC selects which of the four accumulators (AC[0], the same one
// OPR0/OPR1 operate on) serves as the IOCPU's single index AC.
const IndexAC = 0

// IOCPU is the I/O processor: four accumulators, a link (carry) flag,
// a program counter over the local address space, the C_IRQ register
// API loads and asserts against, local memory, and references to the
// host memory/interrupt controller/device table it can reach.
type IOCPU struct {
	AC   [4]uint64
	Link bool
	PC   uint32
	CIRQ uint8

	Local []uint64

	Host     *memory.Memory
	HostIntr *intr.Controller
	Devices  *device.Table

	running bool
}

// New returns an IOCPU with localWords words of local memory, wired to
// the host memory/interrupt controller/device table it shares the bus
// with.
func New(localWords uint32, host *memory.Memory, hostIntr *intr.Controller, devices *device.Table) *IOCPU {
	return &IOCPU{
		Local:    make([]uint64, localWords),
		Host:     host,
		HostIntr: hostIntr,
		Devices:  devices,
	}
}

// Running reports whether the IOCPU is in the run state.
func (c *IOCPU) Running() bool {
	return c.running
}

// Resume leaves the wait state.
func (c *IOCPU) Resume() {
	c.running = true
}

// Stop halts instruction dispatch.
func (c *IOCPU) Stop() {
	c.running = false
}

func field18(word uint64, start, width uint) uint64 {
	shift := 18 - (start + width)
	mask := uint64(1)<<width - 1
	return (word >> shift) & mask
}

func signExtend10(v uint32) int32 {
	const bits = 10
	shift := 32 - bits
	return int32(v<<shift) >> shift
}
