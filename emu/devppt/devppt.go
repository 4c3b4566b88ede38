/*
 * IST-66 - Paper tape reader device (id 012).
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

// Package devppt implements the paper-tape reader device, reserved at
// device id 012 (spec.md §6), grounded on the teacher's card-reader
// device model's worker-latency-plus-status shape (model2540R.go) but
// reading Nineball-coded frames via util/nbtape instead of EBCDIC
// card images.
package devppt

import (
	"context"
	"sync"
	"time"

	"github.com/rcornwell/ist66/emu/device"
	"github.com/rcornwell/ist66/util/nbtape"
)

// DevNum is the reserved paper-tape reader device id.
const DevNum uint16 = 0o012

// readLatency models the mechanical time to advance one frame.
const readLatency = 100 * time.Microsecond

// PPT is the paper-tape reader.
type PPT struct {
	mu     sync.Mutex
	tape   *nbtape.Context
	pend   []byte
	worker *device.Worker
	last   byte
}

// New attaches path as a Nineball-coded paper tape image and returns
// a reader device that asserts irq() each time a frame completes.
func New(path string, irq func()) (*PPT, error) {
	tape, err := nbtape.Attach(path, "NINEBALL")
	if err != nil {
		return nil, err
	}
	p := &PPT{tape: tape}
	p.worker = device.NewWorker(readLatency, irq, p.advance)
	return p, nil
}

func (p *PPT) advance(_ uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pend) == 0 {
		rec, err := p.tape.ReadRecord()
		if err == nil {
			p.pend = rec
		}
	}
	if len(p.pend) > 0 {
		p.last = p.pend[0]
		p.pend = p.pend[1:]
	}
}

// Op implements device.Device. ctl==CtlStart advances one frame;
// transfer==TransferStatus reports the worker's done/busy bits;
// an input transfer returns the last frame read.
func (p *PPT) Op(_ context.Context, accIn uint64, ctl, transfer uint8) uint64 {
	switch {
	case ctl == device.CtlStart:
		p.worker.Start(0)
		return accIn
	case transfer == device.TransferStatus:
		return uint64(p.worker.Status())
	case device.IsInput(transfer):
		p.mu.Lock()
		defer p.mu.Unlock()
		return accIn | uint64(p.last)
	default:
		return accIn
	}
}

// Shutdown closes the backing tape image.
func (p *PPT) Shutdown() {
	p.worker.Stop()
	p.tape.Close()
}
