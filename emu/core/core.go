/*
   IST-66 core engine loop.

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

// Package core drives the IST-66 CPU's fetch/execute loop on its own
// goroutine and serializes every external event — clock ticks, TELNET
// connection lifecycle, start/stop/IPL requests — through the shared
// master channel, a single-consumer dispatch loop.
package core

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/rcornwell/ist66/emu/cpu"
	"github.com/rcornwell/ist66/emu/device"
	"github.com/rcornwell/ist66/emu/intr"
	"github.com/rcornwell/ist66/emu/iocpu"
	"github.com/rcornwell/ist66/emu/master"
	"github.com/rcornwell/ist66/emu/memory"
)

// TelnetPeer is the subset of a TTY-like device's behavior the core
// needs in order to deliver TELNET connection lifecycle events to it,
// without core depending on the devtty package directly.
type TelnetPeer interface {
	Connect(conn net.Conn)
	Disconnect()
	Receive(data []byte)
}

// Core owns the CPU, its interrupt controller, its device table, and
// (optionally) the companion IOCPU, and runs the simulator's run loop.
type Core struct {
	CPU     *cpu.CPU
	IOCPU   *iocpu.IOCPU
	Intr    *intr.Controller
	Mem     *memory.Memory
	Devices *device.Table

	master  chan master.Packet
	done    chan struct{}
	stopped chan struct{}
	running bool
}

// New returns a Core with words of memory, wired to the given master
// channel. Devices may be Add()ed to Devices before Start.
func New(words uint32, masterChannel chan master.Packet) *Core {
	mem := memory.New(words)
	ic := intr.New()
	dv := device.NewTable()
	return &Core{
		CPU:     cpu.New(mem, ic, dv),
		Intr:    ic,
		Mem:     mem,
		Devices: dv,
		master:  masterChannel,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// AttachIOCPU instantiates the companion I/O processor sharing this
// Core's memory, interrupt controller, and device table, per
// spec.md §5's "one IOCPU thread, if instantiated."
func (c *Core) AttachIOCPU(localWords uint32) {
	c.IOCPU = iocpu.New(localWords, c.Mem, c.Intr, c.Devices)
	c.IOCPU.Resume()
}

// Deposit writes one word of initial memory content, the boot
// loader's basic primitive (spec.md component 9).
func (c *Core) Deposit(addr uint32, word uint64) {
	c.Mem.Write(0, addr, word)
}

// Examine reads one word of memory at key 0, bypassing protection.
func (c *Core) Examine(addr uint32) uint64 {
	return c.Mem.Read(0, addr) & memory.WordMask
}

// SeedPC sets the CPU's program counter, the second boot-loader
// primitive.
func (c *Core) SeedPC(pc uint32) {
	c.CPU.PC = pc
}

// PC returns the CPU's current program counter.
func (c *Core) PC() uint32 {
	return c.CPU.PC
}

// Start runs the CPU (and IOCPU, if attached) fetch/execute loop on
// the calling goroutine until Stop is called; meant to be launched
// with `go core.Start()`.
func (c *Core) Start() {
	defer close(c.stopped)
	for {
		if c.running {
			_, keepGoing := c.CPU.Step()
			if c.IOCPU != nil && c.IOCPU.Running() {
				c.IOCPU.Step()
			}
			if !keepGoing {
				c.running = false
			}
		}
		select {
		case <-c.done:
			c.Devices.Shutdown()
			slog.Info("core: shutdown")
			return
		case packet := <-c.master:
			c.processPacket(packet)
		default:
			if !c.running {
				time.Sleep(time.Millisecond)
			}
		}
	}
}

// Stop requests the run loop to exit and waits (up to one second) for
// it to do so.
func (c *Core) Stop() {
	close(c.done)
	select {
	case <-c.stopped:
	case <-time.After(time.Second):
		slog.Warn("core: shutdown timed out")
	}
}

// Go starts (or resumes) CPU execution.
func (c *Core) Go() {
	c.CPU.Resume()
	c.running = true
}

// Pause suspends CPU execution without tearing anything down.
func (c *Core) Pause() {
	c.CPU.Stop()
	c.running = false
}

// Running reports whether the CPU is currently free-running.
func (c *Core) Running() bool {
	return c.running
}

// clockIRQ is the periodic-timer interrupt level; the low IRQ levels
// are reserved for fixed system functions (spec.md §4.4).
const clockIRQ = 1

func (c *Core) processPacket(packet master.Packet) {
	switch packet.Msg {
	case master.TelConnect:
		if peer, ok := c.telnetPeer(packet.DevNum); ok {
			peer.Connect(packet.Conn)
		}
	case master.TelDisconnect:
		if peer, ok := c.telnetPeer(packet.DevNum); ok {
			peer.Disconnect()
		}
	case master.TelReceive:
		if peer, ok := c.telnetPeer(packet.DevNum); ok {
			peer.Receive(packet.Data)
		}
	case master.TimeClock:
		c.Intr.Assert(clockIRQ)
	case master.IPLdevice:
		if err := c.ipl(packet.DevNum); err != nil {
			slog.Error(err.Error())
		} else {
			c.Go()
		}
	case master.Start:
		c.Go()
	case master.Stop:
		c.Pause()
	}
}

func (c *Core) telnetPeer(devNum uint16) (TelnetPeer, bool) {
	dev, ok := c.Devices.Get(devNum)
	if !ok {
		return nil, false
	}
	peer, ok := dev.(TelnetPeer)
	return peer, ok
}

// ipl verifies devNum's device is present and seeds the PC at 0, the
// minimal program-load sequence spec.md component 9 calls for.
func (c *Core) ipl(devNum uint16) error {
	if _, ok := c.Devices.Get(devNum); !ok {
		return fmt.Errorf("IPL device %03o not present", devNum)
	}
	c.SeedPC(0)
	return nil
}
