/*
 * ppc32 - Context synchronization queue.
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

// Package ctxsync implements the context-synchronization queue: a small
// FIFO of deferred actions (TLB flushes after BAT/SDR1/segment-register
// writes) that must run before the next guest instruction that could
// observe stale translations (isync, rfi, mtmsr, sc).
//
// Run drains into a local copy before invoking any callback, so a
// queued action can itself enqueue more work without recursing into Run.
package ctxsync

// defaultCapacity bounds the common case (a handful of BAT/PAT flushes
// coalesced between two sync points); the slice still grows past it.
const defaultCapacity = 8

// Action is a unit of deferred work, e.g. a TLB flush.
type Action func()

// Queue is a FIFO of pending context-sync actions.
type Queue struct {
	pending []Action
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{pending: make([]Action, 0, defaultCapacity)}
}

// Add enqueues f to run at the next Run call.
func (q *Queue) Add(f Action) {
	q.pending = append(q.pending, f)
}

// Pending reports whether any action is queued.
func (q *Queue) Pending() bool {
	return len(q.pending) > 0
}

// Run executes every queued action in order and empties the queue.
// Actions queued by a running action (e.g. one flush triggering another)
// run on the next Run call, not this one: Run first swaps the queue's
// backing slice out from under itself.
func (q *Queue) Run() {
	if len(q.pending) == 0 {
		return
	}
	batch := q.pending
	q.pending = make([]Action, 0, defaultCapacity)
	for _, act := range batch {
		act()
	}
}
