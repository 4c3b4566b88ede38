/*
 * IST-66 - Memory unit with per-page protection keys.
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
package memory

// Page size is 512 words; the page key applies to every word in the page.
const PageWords = 512

// WordMask is the significant bits of a 36-bit machine word.
const WordMask uint64 = 1<<36 - 1

// Sentinel fault bits, distinguishable from any valid 36-bit word.
const (
	MemFault uint64 = 1 << 36
	KeyFault uint64 = 1 << 37
)

// Protection key bands.
const (
	KeySupervisor  uint8 = 0x00
	KeyReadOnly    uint8 = 0xFE
	KeyReadWrite   uint8 = 0xFF
)

// Memory is a flat word array backed by one protection key per page.
type Memory struct {
	words []uint64
	keys  []uint8
	size  uint32
}

// New allocates a memory of the given word count.
func New(words uint32) *Memory {
	pages := (words + PageWords - 1) / PageWords
	return &Memory{
		words: make([]uint64, words),
		keys:  make([]uint8, pages),
		size:  words,
	}
}

// Size returns the memory's word count.
func (m *Memory) Size() uint32 {
	return m.size
}

func (m *Memory) pageOf(addr uint32) uint32 {
	return addr >> 9
}

// canRead reports whether caller key may read a page with the given key.
func canRead(callerKey, pageKey uint8) bool {
	if pageKey == KeyReadOnly || pageKey == KeyReadWrite {
		return true
	}
	if callerKey == 0 {
		return true
	}
	return callerKey == pageKey
}

// canWrite reports whether caller key may write a page with the given key.
func canWrite(callerKey, pageKey uint8) bool {
	if pageKey == KeyReadWrite {
		return true
	}
	if pageKey == KeyReadOnly {
		return false
	}
	if callerKey == 0 {
		return true
	}
	return callerKey == pageKey
}

// Read fetches the low 36 bits of the word at addr, bounds- and key-checked
// against callerKey. Returns MemFault or KeyFault set in the high bits on
// failure; the low 36 bits are a valid word only when neither is set.
func (m *Memory) Read(callerKey uint8, addr uint32) uint64 {
	if addr >= m.size {
		return MemFault
	}
	page := m.pageOf(addr)
	if !canRead(callerKey, m.keys[page]) {
		return KeyFault
	}
	return m.words[addr] & WordMask
}

// Write stores the low 36 bits of data at addr, bounds- and key-checked.
// Returns MemFault or KeyFault on failure, 0 on success.
func (m *Memory) Write(callerKey uint8, addr uint32, data uint64) uint64 {
	if addr >= m.size {
		return MemFault
	}
	page := m.pageOf(addr)
	if !canWrite(callerKey, m.keys[page]) {
		return KeyFault
	}
	m.words[addr] = data & WordMask
	return 0
}

// GetKey returns the protection key of the page containing addr.
func (m *Memory) GetKey(addr uint32) uint8 {
	if addr >= m.size {
		return 0
	}
	return m.keys[m.pageOf(addr)]
}

// SetKey replaces the protection key of the page containing addr.
func (m *Memory) SetKey(addr uint32, key uint8) {
	if addr >= m.size {
		return
	}
	m.keys[m.pageOf(addr)] = key
}
