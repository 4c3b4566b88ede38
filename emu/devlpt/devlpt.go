/*
 * IST-66 - Line printer device (id 013).
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

// Package devlpt implements the line printer device, reserved at
// device id 013 (spec.md §6), grounded on the teacher's 1403 printer
// model (model1403.go)'s worker-latency-plus-status shape but writing
// plain bytes line-buffered to an output file rather than EBCDIC
// carriage-control records.
package devlpt

import (
	"bufio"
	"context"
	"os"
	"sync"
	"time"

	"github.com/rcornwell/ist66/emu/device"
)

// DevNum is the reserved line printer device id.
const DevNum uint16 = 0o013

const printLatency = 5 * time.Millisecond

// LPT is the line printer: a byte-at-a-time output device that
// buffers a line until a newline or form-feed byte flushes it.
type LPT struct {
	mu     sync.Mutex
	file   *os.File
	out    *bufio.Writer
	line   []byte
	buf    byte
	worker *device.Worker
}

// New opens path as the printer's output file.
func New(path string, irq func()) (*LPT, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	l := &LPT{file: file, out: bufio.NewWriter(file)}
	l.worker = device.NewWorker(printLatency, irq, l.print)
	return l, nil
}

func (l *LPT) print(_ uint8) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.line = append(l.line, l.buf)
	if l.buf == '\n' || l.buf == '\f' {
		l.out.Write(l.line)
		l.out.Flush()
		l.line = l.line[:0]
	}
}

// Op implements device.Device.
func (l *LPT) Op(_ context.Context, accIn uint64, ctl, transfer uint8) uint64 {
	switch {
	case device.IsOutput(transfer):
		l.mu.Lock()
		l.buf = byte(accIn)
		l.mu.Unlock()
		return accIn
	case ctl == device.CtlStart:
		l.worker.Start(0)
		return accIn
	case transfer == device.TransferStatus:
		return uint64(l.worker.Status())
	default:
		return accIn
	}
}

// Shutdown flushes and closes the printer's output file.
func (l *LPT) Shutdown() {
	l.worker.Stop()
	l.mu.Lock()
	if len(l.line) > 0 {
		l.out.Write(l.line)
	}
	l.out.Flush()
	l.mu.Unlock()
	l.file.Close()
}
