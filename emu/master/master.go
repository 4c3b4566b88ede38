/*
 * IST-66 - Master control channel.
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

// Package master carries cross-goroutine control events into the core
// engine's single-threaded dispatch loop: clock ticks, IPL requests,
// run/stop transitions, and TELNET connection lifecycle events for the
// TTY devices. Every producer (the timer goroutine and the TELNET
// listener) sends a Packet over one shared channel; the core's Start
// loop is the sole consumer.
package master

import "net"

// Msg identifies the kind of event a Packet carries.
type Msg int

const (
	TelConnect    Msg = iota // A new TELNET connection arrived for DevNum.
	TelDisconnect            // The TELNET connection for DevNum closed.
	TelReceive                // DevNum received bytes from its TELNET peer.
	TimeClock                // A periodic clock tick fired.
	IPLdevice                 // Request to IPL from DevNum.
	Start                     // Resume CPU execution.
	Stop                      // Suspend CPU execution.
)

// Packet is one event delivered over the master channel. Only the fields
// relevant to Msg are populated; the rest are zero.
type Packet struct {
	Msg    Msg
	DevNum uint16
	Conn   net.Conn // Valid for TelConnect.
	Data   []byte   // Valid for TelReceive.
}
