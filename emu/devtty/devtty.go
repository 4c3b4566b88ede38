/*
 * IST-66 - TELNET-backed console TTY device.
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

// Package devtty implements the console TTY device driven over
// TELNET, grounded on the teacher's 1052 console model (model1052.go)
// but stripped to spec.md §6's simplified single-peer framing: the
// device itself only ever sees decoded data bytes via Receive, with
// all IAC filtering done by the telnet package before Receive is
// called.
package devtty

import (
	"context"
	"net"
	"sync"

	"github.com/rcornwell/ist66/emu/device"
)

// TTY is a single console device: one input queue fed by the TELNET
// listener, one output path written directly to the live connection.
type TTY struct {
	mu   sync.Mutex
	conn net.Conn
	in   []byte
	irq  func()
}

// New returns a TTY device that asserts irq() whenever bytes arrive
// from its TELNET peer; output transfers do not assert it.
func New(irq func()) *TTY {
	return &TTY{irq: irq}
}

// Connect attaches conn as this TTY's live peer, per
// core.TelnetPeer.
func (t *TTY) Connect(conn net.Conn) {
	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()
}

// Disconnect detaches the current peer.
func (t *TTY) Disconnect() {
	t.mu.Lock()
	t.conn = nil
	t.mu.Unlock()
}

// Receive queues bytes already stripped of TELNET control sequences
// by the listener.
func (t *TTY) Receive(data []byte) {
	t.mu.Lock()
	t.in = append(t.in, data...)
	t.mu.Unlock()
	if t.irq != nil {
		t.irq()
	}
}

// Op implements device.Device: an input transfer dequeues the next
// received byte (0 if none is pending); an output transfer writes the
// low byte directly to the connected peer, if any.
func (t *TTY) Op(_ context.Context, accIn uint64, _, transfer uint8) uint64 {
	switch {
	case device.IsInput(transfer):
		t.mu.Lock()
		defer t.mu.Unlock()
		if len(t.in) == 0 {
			return accIn
		}
		b := t.in[0]
		t.in = t.in[1:]
		return accIn | uint64(b)

	case device.IsOutput(transfer):
		t.mu.Lock()
		conn := t.conn
		t.mu.Unlock()
		if conn != nil {
			conn.Write([]byte{byte(accIn)})
		}
		return accIn

	case transfer == device.TransferStatus:
		t.mu.Lock()
		defer t.mu.Unlock()
		var s uint8
		if len(t.in) > 0 {
			s |= device.StatusDone
		}
		return uint64(s)

	default:
		return accIn
	}
}

// Shutdown closes the live connection, if any.
func (t *TTY) Shutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
}
