/*
   IST-66 - CPU state, exception causes, and instruction-family constants.

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
	"github.com/rcornwell/ist66/emu/device"
	"github.com/rcornwell/ist66/emu/fpu"
	"github.com/rcornwell/ist66/emu/intr"
	"github.com/rcornwell/ist66/emu/memory"
)

// Word, address and field masks.
const (
	WordMask uint64 = 0o777777777777 // 36 bits.
	AddrMask uint32 = 0o777777777    // 27 bits.
	PageSize        = 512
)

// Primary opcode families, top 9 bits of the instruction word.
const (
	opMR   = 0o000
	opAMLo = 0o001
	opAMHi = 0o021
	opMD   = 0o030
	opCLM  = 0o100
	opRTM  = 0o101
	opSMI  = 0o600
	opIO1  = 0o670
)

// MR sub-opcodes (bits 9-12).
const (
	subJMP = 0
	subJSR = 1
	subISZ = 2
	subDSZ = 3
)

// AM family opcodes (bits 0-8), offset from opAMLo.
const (
	opEDT = iota + opAMLo
	opESK
	opMOVEA
	opADDEA
	opISE
	opDSE
	opMOVEAS
	opLDCOM
	opLDNEG
	opLDA
	opSTA
	opADCM
	opSUBM
	opADDM
	opANDM
	opORM
	opXORM
)

// MD sub-opcodes (bits 9-10).
const (
	subMPY = 0
	subMPA = 1
	subMNA = 2
	subDIV = 3
)

// SMI sub-opcodes (bits 9-12).
const (
	subHLT = iota
	subINT
	subRFI
	subRMSK
	subLDMSK
	subSTMSK
	subLDK
	subSTK
	subLCT
	subSTCTL
)

// Index field values (bits 14-17 of a memory-reference instruction).
const (
	idxNone    = 0
	idxDirect  = 1
	idxPCRel   = 2
	idxACFirst = 3
	idxACLast  = 13
	idxPostInc = 14
	idxPreDec  = 15
)

// Cause is the 4-bit exception cause nibble stored in CW bits 24..27.
// Values are assigned consecutively in the order spec.md's Error
// Handling Design lists them.
type Cause uint8

const (
	CauseUSER Cause = iota
	CauseINST
	CauseMEMX
	CauseDEVX
	CausePPFR
	CausePPFW
	CausePPFS
	CauseTIME
	CauseDIVZ
	CauseNFPU
	CauseMCHK
	CausePWRF
)

func (c Cause) String() string {
	switch c {
	case CauseUSER:
		return "USER"
	case CauseINST:
		return "INST"
	case CauseMEMX:
		return "MEMX"
	case CauseDEVX:
		return "DEVX"
	case CausePPFR:
		return "PPFR"
	case CausePPFW:
		return "PPFW"
	case CausePPFS:
		return "PPFS"
	case CauseTIME:
		return "TIME"
	case CauseDIVZ:
		return "DIVZ"
	case CauseNFPU:
		return "NFPU"
	case CauseMCHK:
		return "MCHK"
	case CausePWRF:
		return "PWRF"
	default:
		return "????"
	}
}

// ControlWord is CW, kept as discrete fields rather than one packed
// 36-bit word: spec.md's prose layout (4+4+4+8+18 = 38 bits) does not
// fit in 36 bits. Packing is only honored at the specific points
// spec.md operationally describes (interrupt entry's upper
// byte/nibble/low-18 assignment); Key is an always-addressable field
// used directly by LDK/STK. Nibble is the hardware's one 4-bit slot
// reused for two purposes: after a normal interrupt entry it holds the
// preempted IRQ level, after an exception entry it holds the cause.
type ControlWord struct {
	CurIRQL uint8  // Current IRQ level, [0,15].
	Nibble  uint8  // Prior IRQL, or exception cause — context-dependent.
	Key     uint8  // 8-bit protection key in effect.
	Base    uint32 // 18-bit direct-page base.
}

// Cause reinterprets Nibble as the exception cause; valid only after
// an exception entry.
func (cw ControlWord) Cause() Cause {
	return Cause(cw.Nibble)
}

// PriorIRQL reinterprets Nibble as the preempted IRQ level; valid only
// after a normal (non-exception) interrupt entry.
func (cw ControlWord) PriorIRQL() uint8 {
	return cw.Nibble
}

// deferredWrite stages an indirect auto-mod slot update until the
// issuing instruction commits.
type deferredWrite struct {
	armed bool
	addr  uint32
	value uint64
}

// deferredExec stages an EDT/ESK synthesized instruction.
type deferredExec struct {
	armed bool
	skip  bool
	word  uint64
}

// CPU is the IST-66 main processor: 16 accumulators, 16 extended-80
// float accumulators, PC, carry, and the control-word fields, bound to
// a memory unit, interrupt controller, and device table.
type CPU struct {
	AC    [16]uint64
	FP    [16]fpu.Float80
	PC    uint32
	Carry bool
	CW    ControlWord

	Mem     *memory.Memory
	Intr    *intr.Controller
	Devices *device.Table

	running bool
	exit    bool

	deferWrite deferredWrite
	deferExec  deferredExec

	// Scratch fault state for the current instruction, consumed by
	// Step via decodeExecuteFaulting.
	hadFault  bool
	lastFault Cause
}

// New returns a CPU wired to the given memory, interrupt controller,
// and device table, halted at PC 0 with key 0 in effect.
func New(mem *memory.Memory, ic *intr.Controller, dv *device.Table) *CPU {
	return &CPU{
		Mem:     mem,
		Intr:    ic,
		Devices: dv,
	}
}

// Running reports whether the CPU is in the run state.
func (c *CPU) Running() bool {
	return c.running
}

// Stop halts instruction dispatch without requesting shutdown.
func (c *CPU) Stop() {
	c.running = false
	c.Intr.SetRunning(false)
}

// Resume leaves the wait state, e.g. after an IPL or console start.
func (c *CPU) Resume() {
	c.running = true
	c.Intr.SetRunning(true)
}

// Exit requests that the execution loop terminate.
func (c *CPU) Exit() {
	c.exit = true
}

func signExtend(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}
