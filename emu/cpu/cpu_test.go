package cpu

import (
	"testing"

	"github.com/rcornwell/ist66/emu/device"
	"github.com/rcornwell/ist66/emu/intr"
	"github.com/rcornwell/ist66/emu/memory"
)

func newTestCPU(words uint32) *CPU {
	mem := memory.New(words)
	ic := intr.New()
	dv := device.NewTable()
	c := New(mem, ic, dv)
	c.Resume()
	return c
}

// encode assembles a 36-bit instruction word from its MSB-first bit
// fields, mirroring field()'s bit numbering.
func encode(parts ...struct {
	start, width uint
	value        uint64
}) uint64 {
	var w uint64
	for _, p := range parts {
		shift := 36 - (p.start + p.width)
		mask := uint64(1)<<p.width - 1
		w |= (p.value & mask) << shift
	}
	return w
}

func bits(start, width uint, value uint64) struct {
	start, width uint
	value        uint64
} {
	return struct {
		start, width uint
		value        uint64
	}{start, width, value}
}

func TestEffectiveAddressDirectAndACIndex(t *testing.T) {
	c := newTestCPU(4096)

	// MOVEA AC0, index=none, disp=100: AC0 = 100.
	word := encode(bits(0, 9, opMOVEA), bits(9, 4, 0), bits(13, 1, 0), bits(14, 4, idxNone), bits(18, 18, 100))
	c.PC = 10
	c.Mem.Write(0, 10, word)
	cyc, keep := c.Step()
	if cyc != 1 || !keep {
		t.Fatalf("Step returned %d,%v", cyc, keep)
	}
	if c.AC[0] != 100 {
		t.Errorf("AC0 = %o, want 100", c.AC[0])
	}
	if c.PC != 11 {
		t.Errorf("PC = %o, want 11", c.PC)
	}

	// MOVEA AC1, index=AC3 (base), disp=5: AC1 = AC[3]+5.
	c.AC[3] = 0o20
	word2 := encode(bits(0, 9, opMOVEA), bits(9, 4, 1), bits(13, 1, 0), bits(14, 4, 3), bits(18, 18, 5))
	c.Mem.Write(0, 11, word2)
	c.Step()
	if c.AC[1] != 0o20+5 {
		t.Errorf("AC1 = %o, want %o", c.AC[1], 0o20+5)
	}
}

func TestProtectionKeyFaultEntersException(t *testing.T) {
	c := newTestCPU(4096)
	c.Mem.SetKey(512, 0x42)
	c.Mem.Write(0x42, 512, 0o123456)
	// Seed the vector: PPFR lands via exception entry at IRQ 0; set up
	// vector slot 0 (new PSW) to point at address 0o2000 so the
	// handler is observable.
	c.Mem.Write(0, 0, uint64(0o2000))
	c.Mem.Write(0, 1, 0)

	c.CW.Key = 0x43 // mismatched caller key
	c.PC = 20
	word := encode(bits(0, 9, opLDA), bits(9, 4, 0), bits(13, 1, 0), bits(14, 4, idxNone), bits(18, 18, 512))
	c.Mem.Write(0, 20, word)
	// Make page 20's key readable by 0x43 so the fetch itself succeeds.
	c.Mem.SetKey(20, 0x43)

	c.Step()

	if c.CW.Cause() != CausePPFR {
		t.Fatalf("cause = %v, want PPFR", c.CW.Cause())
	}
	if c.PC != 0o2000 {
		t.Errorf("PC after exception entry = %o, want 2000", c.PC)
	}
	if c.CW.Key != 0 {
		t.Errorf("exception entry should force key 0, got %#x", c.CW.Key)
	}
}

func TestCallReturnWithMaskRoundTrip(t *testing.T) {
	c := newTestCPU(4096)
	c.AC[13] = 3000 // stack pointer
	c.AC[1], c.AC[2], c.AC[3], c.AC[12] = 111, 222, 333, 444

	mask := uint16(0b1110000000001000) // bits 3,13,14,15 -> AC12,AC2,AC1,AC0
	c.Mem.Write(0, 100, uint64(mask))

	c.PC = 50
	clm := encode(bits(0, 9, opCLM), bits(13, 1, 0), bits(14, 4, idxNone), bits(18, 18, 100))
	c.Mem.Write(0, 50, clm)
	c.Step()

	if c.PC != 101 {
		t.Fatalf("PC after CLM = %o, want 101 (ea+1)", c.PC)
	}
	savedAC1, savedAC2, savedAC3, savedAC12 := c.AC[1], c.AC[2], c.AC[3], c.AC[12]

	rtm := encode(bits(0, 9, opRTM))
	c.Mem.Write(0, 101, rtm)
	c.Step()

	if c.PC != 51 {
		t.Errorf("PC after RTM = %o, want 51 (CLM+1)", c.PC)
	}
	if c.AC[1] != savedAC1 || c.AC[2] != savedAC2 || c.AC[3] != savedAC3 || c.AC[12] != savedAC12 {
		t.Errorf("RTM did not restore accumulators bit-exact")
	}
	if c.AC[13] != 3000 {
		t.Errorf("AC13 (SP) = %o, want 3000 restored", c.AC[13])
	}
}

func TestCallFaultLeavesStateUnchanged(t *testing.T) {
	c := newTestCPU(16) // tiny memory: the decremented SP wraps far out of bounds
	c.AC[13] = 0
	c.AC[0] = 999
	savedSP := c.AC[13]
	savedAC := c.AC

	mask := uint16(1 << 15) // push AC0
	c.Mem.Write(0, 10, uint64(mask))
	c.PC = 5
	clm := encode(bits(0, 9, opCLM), bits(13, 1, 0), bits(14, 4, idxNone), bits(18, 18, 10))
	c.Mem.Write(0, 5, clm)

	c.Step()

	if c.CW.Cause() != CauseMEMX {
		t.Fatalf("cause = %v, want MEMX", c.CW.Cause())
	}
	if c.AC != savedAC {
		t.Errorf("accumulators changed across a faulting CLM")
	}
	if c.AC[13] != savedSP {
		t.Errorf("SP changed across a faulting CLM: %o, want %o", c.AC[13], savedSP)
	}
}

func TestInterruptPriorityAcceptsLowerLevelFirst(t *testing.T) {
	c := newTestCPU(4096)
	c.CW.CurIRQL = intr.None
	c.Intr.SetMask(0xFFFF)
	c.Intr.Assert(7)
	c.Intr.Assert(3)

	// Vector entries for IRQ 3 and IRQ 7.
	c.Mem.Write(0, 2*3, 0o10000)
	c.Mem.Write(0, 2*7, 0o20000)

	c.Step()
	if c.CW.CurIRQL != 3 {
		t.Fatalf("entered level %d first, want 3", c.CW.CurIRQL)
	}
	if c.PC != 0o10000 {
		t.Errorf("PC = %o, want 10000", c.PC)
	}

	c.Intr.Release(3)
	c.returnFromInterrupt()
	c.PC--
	c.Step()

	if c.CW.CurIRQL != 7 {
		t.Fatalf("after RFI entered level %d, want 7", c.CW.CurIRQL)
	}
}

func TestAAFamilyAddSetsCarryAndSkip(t *testing.T) {
	c := newTestCPU(4096)
	c.AC[0] = WordMask // all ones
	c.AC[1] = 1

	// Top 3 bits fixed at 111 (family AA); of the 6 free bits, AC1 takes
	// the upper 4 and AC2 the lower 4: ac1=(opcode&0x3F)>>2, ac2=opcode&0xF.
	opcode := uint64(0o700) | 1 // ac2 = 1, ac1 = 0
	word := encode(
		bits(0, 9, opcode),
		bits(9, 4, 6), // op = ADD
		bits(13, 2, 0),
		bits(15, 3, 1), // cond = carry set
		bits(18, 1, 0),
		bits(19, 1, 0),
		bits(20, 7, 0),
		bits(27, 7, 0),
	)
	c.PC = 30
	c.Mem.Write(0, 30, word)
	c.Step()

	if c.AC[0] != 0 {
		t.Errorf("AC0 = %o, want 0", c.AC[0])
	}
	if !c.Carry {
		t.Errorf("carry not set")
	}
	if c.PC != 32 {
		t.Errorf("PC = %o, want 32 (31 + skip)", c.PC)
	}
}

func TestHLTStopsCPU(t *testing.T) {
	c := newTestCPU(4096)
	hlt := encode(bits(0, 9, opSMI), bits(9, 4, subHLT), bits(13, 23, 1))
	c.PC = 40
	c.Mem.Write(0, 40, hlt)
	c.Step()
	if c.Running() {
		t.Errorf("CPU still running after HLT")
	}
}

func TestDeviceMissingRaisesDEVX(t *testing.T) {
	c := newTestCPU(4096)
	io := encode(bits(0, 9, opIO1), bits(9, 12, 0xFFF), bits(21, 2, 0), bits(23, 4, 0), bits(27, 4, 0))
	c.PC = 60
	c.Mem.Write(0, 60, io)
	c.Step()
	if c.CW.Cause() != CauseDEVX {
		t.Fatalf("cause = %v, want DEVX", c.CW.Cause())
	}
}
