/*
 * IST-66 - Priority interrupt controller.
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
package intr

import "sync"

// NumIRQ is the size of the counter vector; level 0 is exception entry,
// level 15 is reserved for IOCPU asynchronous entry, 1..14 are usable.
const NumIRQ = 16

// None is the min_pending value meaning "no enabled IRQ is pending".
const None = 15

// Controller is the shared interrupt controller: 16 pending counters, a
// 16-bit enable mask, and a cached lowest-pending-enabled level. CPU and
// device goroutines serialize through one mutex and wait/wake on one
// condition variable.
type Controller struct {
	mu      sync.Mutex
	cond    *sync.Cond
	counter [NumIRQ]int
	mask    uint16
	pending int // cached min_pending, in [1,15]
	running bool
}

// New returns a controller with no IRQs pending and all masked.
func New() *Controller {
	c := &Controller{pending: None}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func (c *Controller) maskBit(n int) bool {
	return c.mask&(1<<uint(n)) != 0
}

// recompute scans upward from 1 for the first enabled, pending level.
func (c *Controller) recompute() {
	for n := 1; n < NumIRQ; n++ {
		if c.counter[n] > 0 && c.maskBit(n) {
			c.pending = n
			return
		}
	}
	c.pending = None
}

// Assert increments IRQ n's pending counter. If n becomes the new lowest
// pending enabled level, the CPU is marked running and the condition
// variable is signaled.
func (c *Controller) Assert(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counter[n]++
	if n < c.pending && c.maskBit(n) {
		c.pending = n
		c.running = true
		c.cond.Broadcast()
	}
}

// Release decrements IRQ n's pending counter, clamped at zero, and
// recomputes min_pending.
func (c *Controller) Release(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counter[n] > 0 {
		c.counter[n]--
	}
	c.recompute()
}

// SetMask replaces the enable mask and recomputes min_pending.
func (c *Controller) SetMask(mask uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mask = mask
	c.recompute()
	if c.pending != None {
		c.running = true
		c.cond.Broadcast()
	}
}

// Mask returns the current enable mask.
func (c *Controller) Mask() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mask
}

// Pending returns the cached lowest pending enabled IRQ, or None.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// SetRunning sets or clears the CPU-running flag consulted by Wait.
func (c *Controller) SetRunning(running bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = running
	if running {
		c.cond.Broadcast()
	}
}

// Wait blocks the CPU goroutine until an enabled IRQ is pending or the
// controller is marked running, unless stop reports true (checked under
// the lock so callers can request shutdown).
func (c *Controller) Wait(stop func() bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for !c.running && c.pending == None && !stop() {
		c.cond.Wait()
	}
}
