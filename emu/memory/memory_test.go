package memory

/*
 * IST-66 - Memory unit tests.
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

import "testing"

func TestReadWriteRoundTrip(t *testing.T) {
	m := New(1024)
	if f := m.Write(0, 5, 0x123456789); f != 0 {
		t.Fatalf("write faulted: %#x", f)
	}
	got := m.Read(0, 5)
	if got != 0x123456789 {
		t.Errorf("read back %#x, want %#x", got, 0x123456789)
	}
}

func TestBoundsFault(t *testing.T) {
	m := New(16)
	if got := m.Read(0, 16); got != MemFault {
		t.Errorf("expected MemFault at bound, got %#x", got)
	}
	if got := m.Write(0, 1000, 1); got != MemFault {
		t.Errorf("expected MemFault on out of range write, got %#x", got)
	}
}

func TestKeyFaultMatrix(t *testing.T) {
	m := New(1024)
	m.SetKey(0, 0x42)

	// Caller key 0 always bypasses.
	if got := m.Read(0, 0); got != 0 {
		t.Errorf("key 0 bypass read faulted: %#x", got)
	}
	// Mismatched nonzero key faults.
	if got := m.Read(0x43, 0); got != KeyFault {
		t.Errorf("mismatched key read should fault, got %#x", got)
	}
	// Exact match succeeds.
	if got := m.Read(0x42, 0); got != 0 {
		t.Errorf("exact key match should not fault, got %#x", got)
	}
}

func TestKeyReadOnlyPublic(t *testing.T) {
	m := New(1024)
	m.SetKey(0, KeyReadOnly)

	if got := m.Read(0x77, 0); got != 0 {
		t.Errorf("0xFE page should be world readable, got %#x", got)
	}
	if got := m.Write(0x77, 0, 1); got != KeyFault {
		t.Errorf("0xFE page should reject mismatched write, got %#x", got)
	}
}

func TestKeyReadWritePublic(t *testing.T) {
	m := New(1024)
	m.SetKey(0, KeyReadWrite)

	if got := m.Write(0x99, 0, 1); got != 0 {
		t.Errorf("0xFF page should be world writable, got %#x", got)
	}
}

func TestSetGetKeyRoundTrip(t *testing.T) {
	m := New(PageWords * 2)
	m.SetKey(600, 0x17)
	if got := m.GetKey(600); got != 0x17 {
		t.Errorf("GetKey after SetKey = %#x, want 0x17", got)
	}
	// Every word in the page shares the key.
	if got := m.GetKey(512); got != 0x17 {
		t.Errorf("page base key = %#x, want 0x17", got)
	}
	if got := m.GetKey(1023); got != 0x17 {
		t.Errorf("page end key = %#x, want 0x17", got)
	}
	// Other page unaffected.
	if got := m.GetKey(0); got != 0 {
		t.Errorf("other page key disturbed: %#x", got)
	}
}

func TestWriteMasksToWordSize(t *testing.T) {
	m := New(16)
	m.Write(0, 0, ^uint64(0))
	if got := m.Read(0, 0); got != WordMask {
		t.Errorf("write should mask to 36 bits: got %#x want %#x", got, WordMask)
	}
}
