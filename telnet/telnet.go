/*
 * IST-66 - Simplified TELNET TTY listener.
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

// Package telnet implements spec.md §6's simplified TELNET framing: a
// 3-state {NORMAL, COMMAND, SUBNEG} IAC filter that strips option
// negotiation rather than answering it, one TTY peer per listening
// port, and a BUSY rejection of a second concurrent connection. It is
// grounded on the teacher's telnet.go's accept/handle goroutine pair
// and state-machine shape, trimmed to the much smaller grammar
// spec.md actually calls for (no RFC854/3270 option negotiation).
package telnet

import (
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"github.com/rcornwell/ist66/emu/master"
)

// TELNET protocol bytes this filter recognizes.
const (
	iac  = 255
	will = 251
	wont = 252
	do   = 253
	dont = 254
	sb   = 250
	se   = 240
)

// Filter states. stateOption is a fourth state folded in alongside
// spec.md's nominal three: one option byte is still owed after a
// WILL/WONT/DO/DONT command byte.
const (
	stateNormal = iota
	stateCommand
	stateSubneg
	stateOption
)

// initSequence is sent immediately on connect: WILL ECHO, WILL
// SUPPRESS-GO-AHEAD, the only negotiation spec.md mandates.
var initSequence = []byte{iac, will, 1, iac, will, 3}

// Listener serves one TCP port, forwarding at most one connection's
// worth of TELNET-filtered data to devNum over master.
type Listener struct {
	port   int
	devNum uint16
	master chan master.Packet
	ln     net.Listener

	mu     sync.Mutex
	active net.Conn
}

// Serve starts accepting connections on port, filtering TELNET
// framing and delivering data bytes for devNum over masterChannel.
func Serve(port int, devNum uint16, masterChannel chan master.Packet) (*Listener, error) {
	ln, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return nil, err
	}
	l := &Listener{port: port, devNum: devNum, master: masterChannel, ln: ln}
	go l.acceptLoop()
	return l, nil
}

// Stop closes the listening socket and any active connection.
func (l *Listener) Stop() {
	l.ln.Close()
	l.mu.Lock()
	if l.active != nil {
		l.active.Close()
	}
	l.mu.Unlock()
}

func (l *Listener) acceptLoop() {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			return
		}
		go l.handle(conn)
	}
}

func (l *Listener) handle(conn net.Conn) {
	l.mu.Lock()
	if l.active != nil {
		l.mu.Unlock()
		conn.Write([]byte("BUSY\r\n"))
		conn.Close()
		return
	}
	l.active = conn
	l.mu.Unlock()

	conn.Write(initSequence)
	l.master <- master.Packet{Msg: master.TelConnect, DevNum: l.devNum, Conn: conn}

	l.filterLoop(conn)

	l.mu.Lock()
	l.active = nil
	l.mu.Unlock()
	l.master <- master.Packet{Msg: master.TelDisconnect, DevNum: l.devNum}
	conn.Close()
}

// filterLoop runs the 3-state IAC filter: IAC introduces a command
// (WILL/WONT/DO/DONT consume one option byte and are discarded; SB
// begins a subnegotiation run until SE); every byte outside a command
// or subnegotiation is data, forwarded to the core.
func (l *Listener) filterLoop(conn net.Conn) {
	state := stateNormal
	buf := make([]byte, 256)
	var data []byte

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			data = data[:0]
			for _, b := range buf[:n] {
				switch state {
				case stateNormal:
					if b == iac {
						state = stateCommand
						continue
					}
					data = append(data, b)
				case stateCommand:
					switch b {
					case will, wont, do, dont:
						state = stateOption
					case sb:
						state = stateSubneg
					case iac:
						data = append(data, iac)
						state = stateNormal
					default:
						state = stateNormal
					}
				case stateOption:
					state = stateNormal
				case stateSubneg:
					if b == se {
						state = stateNormal
					}
				}
			}
			if len(data) > 0 {
				l.master <- master.Packet{Msg: master.TelReceive, DevNum: l.devNum, Data: append([]byte(nil), data...)}
			}
		}
		if err != nil {
			if err != io.EOF {
				slog.Debug("telnet: connection closed: " + err.Error())
			}
			return
		}
	}
}
