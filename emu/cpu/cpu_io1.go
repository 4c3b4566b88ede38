/*
   IST-66 - IO1 (device transfer) instruction family.

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
	"context"

	"github.com/rcornwell/ist66/emu/device"
)

// execIO1 decodes and runs a family-IO1 instruction: device id, ctl,
// transfer, and the AC carrying the data, per the Device Contract.
func (c *CPU) execIO1(word uint64) {
	if c.CW.Key != 0 {
		c.fault(CausePPFS)
		return
	}
	devID := uint16(field(word, 9, 12))
	ctl := uint8(field(word, 21, 2))
	transfer := uint8(field(word, 23, 4))
	ac := field(word, 27, 4)

	dev, ok := c.Devices.Get(devID)
	if !ok {
		c.fault(CauseDEVX)
		return
	}

	out := dev.Op(context.Background(), c.AC[ac], ctl, transfer)

	switch {
	case device.IsInput(transfer):
		c.AC[ac] |= out & WordMask
	case device.IsOutput(transfer):
		// Accumulator -> device; result carries no data back.
	case transfer == device.TransferStatus:
		done := out&uint64(device.StatusDone) != 0
		busy := out&uint64(device.StatusBusy) != 0
		var skip bool
		switch ctl {
		case device.StatusSkipBusy:
			skip = busy
		case device.StatusSkipNotBusy:
			skip = !busy
		case device.StatusSkipDone:
			skip = done
		case device.StatusSkipNotDone:
			skip = !done
		}
		if skip {
			c.PC++
		}
	}
}
