/*
 * IST-66 - Paper tape punch device (id 014).
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

// Package devpch implements the paper-tape punch device, reserved at
// device id 014 (spec.md §6), grounded on the teacher's card-punch
// device model (model2540P.go)'s worker-latency-plus-status shape,
// writing Nineball-coded frames via util/nbtape.
package devpch

import (
	"context"
	"sync"
	"time"

	"github.com/rcornwell/ist66/emu/device"
	"github.com/rcornwell/ist66/util/nbtape"
)

// DevNum is the reserved paper-tape punch device id.
const DevNum uint16 = 0o014

const punchLatency = 100 * time.Microsecond

// PCH is the paper-tape punch.
type PCH struct {
	mu     sync.Mutex
	tape   *nbtape.Context
	buf    byte
	worker *device.Worker
}

// New attaches path as a Nineball-coded paper tape image opened for
// output, asserting irq() each time a frame is punched.
func New(path string, irq func()) (*PCH, error) {
	tape, err := nbtape.Attach(path, "NINEBALL")
	if err != nil {
		return nil, err
	}
	p := &PCH{tape: tape}
	p.worker = device.NewWorker(punchLatency, irq, p.punch)
	return p, nil
}

func (p *PCH) punch(_ uint8) {
	p.mu.Lock()
	b := p.buf
	p.mu.Unlock()
	p.tape.WriteRecord([]byte{b})
}

// Op implements device.Device. An output transfer latches the byte to
// punch; ctl==CtlStart fires the worker; transfer==TransferStatus
// reports done/busy.
func (p *PCH) Op(_ context.Context, accIn uint64, ctl, transfer uint8) uint64 {
	switch {
	case device.IsOutput(transfer):
		p.mu.Lock()
		p.buf = byte(accIn)
		p.mu.Unlock()
		return accIn
	case ctl == device.CtlStart:
		p.worker.Start(0)
		return accIn
	case transfer == device.TransferStatus:
		return uint64(p.worker.Status())
	default:
		return accIn
	}
}

// Shutdown closes the backing tape image.
func (p *PCH) Shutdown() {
	p.worker.Stop()
	p.tape.Close()
}
