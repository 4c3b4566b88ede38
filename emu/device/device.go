/*
 * IST-66 - Generic I/O device contract.
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
package device

import "context"

// NoDev is the sentinel "no device id" value config parsing uses
// before a model creation function assigns a real one.
const NoDev uint16 = 0xFFFF

// Transfer selects the direction (or non-transfer function) of an I/O
// instruction. Even values <=12 are input (device to accumulator, OR-merged
// into the result); odd values <=13 are output (accumulator to device,
// result ignored); 14 is a status query; 15 is reserved.
const (
	TransferStatus   uint8 = 14
	TransferReserved uint8 = 15
)

// IsInput reports whether transfer is an input (device-to-accumulator) code.
func IsInput(transfer uint8) bool {
	return transfer <= 12 && transfer%2 == 0
}

// IsOutput reports whether transfer is an output (accumulator-to-device) code.
func IsOutput(transfer uint8) bool {
	return transfer <= 13 && transfer%2 == 1
}

// Ctl selects the control action combined with a transfer.
const (
	CtlNone  uint8 = 0
	CtlStart uint8 = 1
	CtlStop  uint8 = 2

	// Status-query ctl selectors.
	StatusSkipBusy    uint8 = 0
	StatusSkipNotBusy uint8 = 1
	StatusSkipDone    uint8 = 2
	StatusSkipNotDone uint8 = 3
)

// Status bits returned in the low two bits of a transfer==14 result.
const (
	StatusDone uint8 = 1 << 0
	StatusBusy uint8 = 1 << 1
)

// Device is the uniform contract every peripheral implements.
type Device interface {
	// Op performs one I/O instruction against the device. accIn is the
	// current value of the issuing accumulator; the return value's
	// meaning depends on transfer (see IsInput/IsOutput/TransferStatus).
	Op(ctx context.Context, accIn uint64, ctl, transfer uint8) uint64
	// Shutdown releases any resources the device holds (files, sockets).
	Shutdown()
}

// Table maps device ids to their Device implementation. Device ids absent
// from the table are the caller's responsibility to fault as DEVX.
type Table struct {
	devices map[uint16]Device
}

// NewTable returns an empty device table.
func NewTable() *Table {
	return &Table{devices: make(map[uint16]Device)}
}

// Add registers a device under id, replacing any prior occupant.
func (t *Table) Add(id uint16, d Device) {
	t.devices[id] = d
}

// Get returns the device registered at id, or ok==false if none is.
func (t *Table) Get(id uint16) (Device, bool) {
	d, ok := t.devices[id]
	return d, ok
}

// Shutdown destroys every registered device in ascending id order.
func (t *Table) Shutdown() {
	ids := make([]uint16, 0, len(t.devices))
	for id := range t.devices {
		ids = append(ids, id)
	}
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if ids[j] < ids[i] {
				ids[i], ids[j] = ids[j], ids[i]
			}
		}
	}
	for _, id := range ids {
		t.devices[id].Shutdown()
	}
}
