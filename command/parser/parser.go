/*
 * IST-66 - Console command grammar.
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

// Package parser implements the front-panel-style console command
// grammar of spec.md §6: a single address pointer, examine/deposit of
// octal words, and run-state transitions, against an emu/core.Core.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rcornwell/ist66/emu/core"
)

// pointer is the console's current working address, set by '/' and
// advanced by '='.
var pointer uint32

// ProcessCommand parses and executes one console command line against
// c. The bool result reports whether the console should exit (the X
// command).
func ProcessCommand(cmd string, c *core.Core) (bool, error) {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return false, nil
	}

	switch cmd[0] {
	case '/':
		addr, err := parseOctal(strings.TrimSpace(cmd[1:]))
		if err != nil {
			return false, err
		}
		pointer = addr
		return false, nil

	case '?':
		fmt.Printf("%07o\n", pointer)
		return false, nil

	case '.':
		n, err := parseOctal(strings.TrimSpace(cmd[1:]))
		if err != nil {
			return false, err
		}
		for i := uint32(0); i < n; i++ {
			addr := pointer + i
			fmt.Printf("%07o: %012o\n", addr, c.Examine(addr))
		}
		return false, nil

	case '=':
		fields := strings.Fields(cmd[1:])
		if len(fields) == 0 {
			return false, errors.New("= requires at least one value")
		}
		for _, f := range fields {
			v, err := parseOctal(f)
			if err != nil {
				return false, err
			}
			c.Deposit(pointer, uint64(v))
			pointer++
		}
		return false, nil
	}

	return processRunCommand(strings.ToUpper(cmd), c)
}

func processRunCommand(cmd string, c *core.Core) (bool, error) {
	switch cmd {
	case "W":
		waitUntilHalted(c)
		return false, nil
	case "S":
		c.Go()
		return false, nil
	case "P":
		c.Pause()
		pointer = c.PC()
		return false, nil
	case "G", "GW":
		c.SeedPC(pointer)
		c.Go()
		waitUntilHalted(c)
		return false, nil
	case "GS":
		c.SeedPC(pointer)
		c.Go()
		return false, nil
	case "X":
		return true, nil
	}
	return false, fmt.Errorf("unrecognized command: %s", cmd)
}

// waitUntilHalted blocks until the CPU leaves the run state, the "W"
// command's namesake behavior.
func waitUntilHalted(c *core.Core) {
	for c.Running() {
		time.Sleep(time.Millisecond)
	}
}

func parseOctal(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid octal value %q: %w", s, err)
	}
	return uint32(v), nil
}

// commandNames lists the fixed-form (non-octal-prefixed) console
// commands, for CompleteCmd.
var commandNames = []string{"W", "S", "P", "G", "GW", "GS", "X"}

// CompleteCmd returns completion candidates for line, used by the
// liner-backed console reader's tab completion.
func CompleteCmd(line string) []string {
	upper := strings.ToUpper(line)
	var out []string
	for _, name := range commandNames {
		if strings.HasPrefix(name, upper) {
			out = append(out, name)
		}
	}
	return out
}
