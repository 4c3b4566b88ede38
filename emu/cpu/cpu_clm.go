/*
   IST-66 - CLM/RTM subroutine call/return with register-save mask.

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

// execCLM implements "read a 16-bit save mask from ea; for each set
// bit n, push AC[15-n]; push the mask; push the return address; jump
// to ea+1." AC13 is the stack pointer, pre-decremented on every push.
// Any fault leaves AC13 and every accumulator exactly as they were.
func (c *CPU) execCLM(word uint64) {
	ea, ok := c.decodeEA(word)
	if !ok {
		return
	}
	maskWord, ok, cause := c.readWord(ea)
	if !ok {
		c.fault(cause)
		return
	}
	mask := uint16(maskWord)

	savedSP := c.AC[13]
	savedACs := c.AC
	restore := func() { c.AC = savedACs; c.AC[13] = savedSP }

	push := func(v uint64) bool {
		c.AC[13] = (c.AC[13] - 1) & WordMask
		ok, cause := c.writeWord(uint32(c.AC[13])&AddrMask, v)
		if !ok {
			c.fault(cause)
			return false
		}
		return true
	}

	for n := 0; n < 16; n++ {
		if mask&(1<<uint(n)) == 0 {
			continue
		}
		if !push(c.AC[15-n]) {
			restore()
			return
		}
	}
	if !push(uint64(mask)) {
		restore()
		return
	}
	if !push(uint64(c.PC+1) & WordMask) {
		restore()
		return
	}

	c.PC = ea // execute()'s trailing PC++ lands on ea+1.
}

// execRTM pops the return address, the mask, then each saved
// accumulator in reverse push order. AC13 only takes the popped value
// if the mask names it (bit n such that 15-n==13); otherwise it is
// left at its post-pop stack-pointer value.
func (c *CPU) execRTM() {
	savedSP := c.AC[13]
	savedACs := c.AC
	restore := func() { c.AC = savedACs; c.AC[13] = savedSP }

	pop := func() (uint64, bool) {
		v, ok, cause := c.readWord(uint32(c.AC[13]) & AddrMask)
		if !ok {
			c.fault(cause)
			return 0, false
		}
		c.AC[13] = (c.AC[13] + 1) & WordMask
		return v, true
	}

	retAddr, ok := pop()
	if !ok {
		restore()
		return
	}
	maskWord, ok := pop()
	if !ok {
		restore()
		return
	}
	mask := uint16(maskWord)

	for n := 15; n >= 0; n-- {
		if mask&(1<<uint(n)) == 0 {
			continue
		}
		v, ok := pop()
		if !ok {
			restore()
			return
		}
		c.AC[15-n] = v
	}

	c.PC = (uint32(retAddr) - 1) & AddrMask // execute()'s trailing PC++ restores retAddr exactly.
}
