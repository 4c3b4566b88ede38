/*
 * IST-66 - Nineball/AWS tape image codec.
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

// Package nbtape implements the two tape image formats spec.md §6
// names: "Nineball" (a 9-bit-per-symbol stream packed 8 symbols to 9
// bytes, with in-band control markers) and AWS (SIMH's 4-byte
// length-prefixed record container), behind one Context type, the
// same buffered-file-plus-sentinel-error shape the teacher's own tape
// package used.
package nbtape

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"strings"
)

// Supported image formats.
const (
	FormatNineball = 1 + iota
	FormatAWS
)

// Nineball in-band symbol markers (9-bit values, spec.md §6).
const (
	symEOR  = 0x1E
	symMark = 0x1C
	symGap  = 0x7F
	symEOM  = 0x00
)

// Sentinel errors, mirroring the teacher's own tape package.
var (
	ErrEOT         = errors.New("EOT")
	ErrMark        = errors.New("MARK")
	ErrFormat      = errors.New("FORMAT")
	ErrNotAttached = errors.New("not attached")
)

// Debug option flags.
const (
	debugCmd = 1 << iota
	debugData
)

var debugOption = map[string]int{
	"CMD":  debugCmd,
	"DATA": debugData,
}

var debugMsk int

// Debug enables one named debug option.
func Debug(opt string) error {
	flag, ok := debugOption[strings.ToUpper(opt)]
	if !ok {
		return errors.New("tape debug option invalid: " + opt)
	}
	debugMsk |= flag
	return nil
}

// Context holds one open tape image.
type Context struct {
	file   *os.File
	format int
	bot    bool
	eot    bool
}

// Attach opens path as a tape image in the named format ("NINEBALL"
// or "AWS").
func Attach(path, format string) (*Context, error) {
	var fmtID int
	switch strings.ToUpper(format) {
	case "NINEBALL":
		fmtID = FormatNineball
	case "AWS":
		fmtID = FormatAWS
	default:
		return nil, ErrFormat
	}
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	return &Context{file: file, format: fmtID, bot: true}, nil
}

// Close releases the underlying file.
func (c *Context) Close() error {
	if c.file == nil {
		return ErrNotAttached
	}
	err := c.file.Close()
	c.file = nil
	return err
}

// Rewind repositions the image at its beginning.
func (c *Context) Rewind() error {
	if c.file == nil {
		return ErrNotAttached
	}
	_, err := c.file.Seek(0, io.SeekStart)
	c.bot = true
	c.eot = false
	return err
}

// ReadRecord reads the next logical record, returning ErrMark if the
// record encountered is a tape mark rather than data, or ErrEOT at
// end of medium.
func (c *Context) ReadRecord() ([]byte, error) {
	if c.file == nil {
		return nil, ErrNotAttached
	}
	if c.format == FormatAWS {
		return c.readAWSRecord()
	}
	return c.readNineballRecord()
}

// WriteRecord appends data as the next logical record.
func (c *Context) WriteRecord(data []byte) error {
	if c.file == nil {
		return ErrNotAttached
	}
	c.bot = false
	if c.format == FormatAWS {
		return c.writeAWSRecord(data)
	}
	return c.writeNineballRecord(data)
}

// WriteMark appends a tape mark.
func (c *Context) WriteMark() error {
	if c.file == nil {
		return ErrNotAttached
	}
	c.bot = false
	if c.format == FormatAWS {
		return binary.Write(c.file, binary.LittleEndian, uint32(0))
	}
	g := packNineballGroup([8]uint16{symMark, symGap, symGap, symGap, symGap, symGap, symGap, symGap})
	_, err := c.file.Write(g[:])
	return err
}

// --- AWS: 4-byte little-endian record length, data, trailing length
// repeated; a zero length is a tape mark.

func (c *Context) readAWSRecord() ([]byte, error) {
	var length uint32
	if err := binary.Read(c.file, binary.LittleEndian, &length); err != nil {
		if errors.Is(err, io.EOF) {
			c.eot = true
			return nil, ErrEOT
		}
		return nil, err
	}
	c.bot = false
	if length == 0 {
		return nil, ErrMark
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(c.file, data); err != nil {
		return nil, err
	}
	var trailer uint32
	if err := binary.Read(c.file, binary.LittleEndian, &trailer); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Context) writeAWSRecord(data []byte) error {
	length := uint32(len(data))
	if err := binary.Write(c.file, binary.LittleEndian, length); err != nil {
		return err
	}
	if _, err := c.file.Write(data); err != nil {
		return err
	}
	return binary.Write(c.file, binary.LittleEndian, length)
}

// --- Nineball: a stream of 9-bit symbols packed 8-to-a-group into 9
// bytes (the low 8 bits of each symbol in bytes 0-7, the 9th bit of
// symbol n in bit n of byte 8), scanned for in-band control markers.

func packNineballGroup(symbols [8]uint16) [9]byte {
	var g [9]byte
	for i, s := range symbols {
		g[i] = byte(s)
		if s&0x100 != 0 {
			g[8] |= 1 << uint(i)
		}
	}
	return g
}

func unpackNineballGroup(g [9]byte) [8]uint16 {
	var symbols [8]uint16
	for i := 0; i < 8; i++ {
		symbols[i] = uint16(g[i])
		if g[8]&(1<<uint(i)) != 0 {
			symbols[i] |= 0x100
		}
	}
	return symbols
}

// nineballSymbols reads every remaining 9-bit symbol in the image as
// a flat slice, for marker scanning.
func (c *Context) nineballSymbols() ([]uint16, error) {
	var out []uint16
	var group [9]byte
	for {
		n, err := io.ReadFull(c.file, group[:])
		if n > 0 {
			partial := unpackNineballGroup(group)
			for i := 0; i < n && i < 8; i++ {
				out = append(out, partial[i])
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return out, err
		}
		if n < 9 {
			break
		}
	}
	return out, nil
}

func (c *Context) readNineballRecord() ([]byte, error) {
	start, err := c.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	symbols, err := c.nineballSymbols()
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		c.eot = true
		return nil, ErrEOT
	}
	// seekGroup leaves the file at the start of group g (counted from
	// start), so the next read resumes after the record just returned.
	seekGroup := func(g int) error {
		_, err := c.file.Seek(start+int64(g)*9, io.SeekStart)
		return err
	}
	var data []byte
	for i, s := range symbols {
		switch s {
		case symEOR:
			return data, seekGroup(i/8 + 1)
		case symMark:
			if len(data) == 0 {
				if err := seekGroup(i/8 + 1); err != nil {
					return nil, err
				}
				return nil, ErrMark
			}
			return data, seekGroup(i / 8)
		case symEOM:
			c.eot = true
			if len(data) == 0 {
				return nil, ErrEOT
			}
			return data, nil
		case symGap:
			continue
		default:
			data = append(data, byte(s))
		}
	}
	return data, nil
}

func (c *Context) writeNineballRecord(data []byte) error {
	symbols := make([]uint16, 0, len(data)+1)
	for _, b := range data {
		symbols = append(symbols, uint16(b))
	}
	symbols = append(symbols, symEOR)

	var group [8]uint16
	for i := 0; i < len(symbols); i += 8 {
		n := copy(group[:], symbols[i:])
		for j := n; j < 8; j++ {
			group[j] = symGap
		}
		packed := packNineballGroup(group)
		if _, err := c.file.Write(packed[:]); err != nil {
			return err
		}
	}
	return nil
}
