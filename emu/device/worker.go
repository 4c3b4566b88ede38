/*
 * IST-66 - Per-device worker runtime.
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

import (
	"context"
	"sync"
	"time"
)

// Worker is the generic per-device worker: {command, done, busy} guarded
// by a lock, with a condition variable broadcast on every state change
// (Wait blocks on it). A Start clears done and schedules the physical work
// on a time.AfterFunc timer; it does not release the device's IRQ. Stop
// cancels any outstanding simulated latency.
type Worker struct {
	mu      sync.Mutex
	cond    *sync.Cond
	command uint8
	done    bool
	busy    bool
	latency time.Duration
	timer   *time.Timer
	irq     func()     // Assert the device's IRQ when work completes.
	onWork  func(cmd uint8) // Physical work performed for a started command.
}

// NewWorker returns a worker that calls irq() when queued work completes
// and invokes onWork(cmd) to perform the physical operation, after a
// simulated latency of delay (0 for immediate completion).
func NewWorker(delay time.Duration, irq func(), onWork func(cmd uint8)) *Worker {
	w := &Worker{latency: delay, irq: irq, onWork: onWork}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// Start begins command cmd: clears done, marks busy, and schedules the
// physical work after the configured latency.
func (w *Worker) Start(cmd uint8) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.command = cmd
	w.done = false
	w.busy = true
	w.cond.Broadcast()

	w.timer = time.AfterFunc(w.latency, func() {
		w.complete(cmd)
	})
}

// complete runs the device's physical work and marks it done.
func (w *Worker) complete(cmd uint8) {
	if w.onWork != nil {
		w.onWork(cmd)
	}
	w.mu.Lock()
	w.command = 0
	w.done = true
	w.busy = false
	w.cond.Broadcast()
	w.mu.Unlock()
	if w.irq != nil {
		w.irq()
	}
}

// Stop cancels any outstanding simulated work.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.command = 0
	w.busy = false
	w.cond.Broadcast()
}

// Busy reports whether the worker has an outstanding command.
func (w *Worker) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.busy
}

// Done reports whether the last started command has completed.
func (w *Worker) Done() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done
}

// Status packs StatusDone/StatusBusy for a transfer==14 query.
func (w *Worker) Status() uint8 {
	w.mu.Lock()
	defer w.mu.Unlock()
	var s uint8
	if w.done {
		s |= StatusDone
	}
	if w.busy {
		s |= StatusBusy
	}
	return s
}

// Wait blocks until the worker is idle or ctx is canceled.
func (w *Worker) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		w.mu.Lock()
		for w.busy {
			w.cond.Wait()
		}
		w.mu.Unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
