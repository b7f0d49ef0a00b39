/*
 * ppc32 - Timer and decrementer manager.
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

// Package timer is a minimal, single-threaded virtual-time manager: it
// advances virtual time by a cycle budget, fires one-shot callbacks that
// have come due, and lets the interpreter request a decrementer/timebase
// reload.
//
// The callback list is a time-ordered singly linked chain where each
// node stores cycles-until-fire relative to its predecessor: AddEvent
// inserts in sorted position, subtracting the elapsed delta from the
// next node.
package timer

import "sync/atomic"

// Callback fires when a scheduled event's cycle budget is exhausted.
type Callback func(arg int)

type event struct {
	cycles int
	cb     Callback
	arg    int
	next   *event
}

// Manager tracks virtual time (in nanoseconds, derived from a cycle
// frequency) and a sorted list of pending one-shot callbacks.
type Manager struct {
	freqHz    uint64 // guest cycles per second
	virtNS    uint64 // virtual time elapsed, nanoseconds
	head *event
	// reloadReq may be set from a device helper thread; everything else
	// on Manager is interpreter-thread-only.
	reloadReq atomic.Bool
}

// New returns a Manager ticking at freqHz guest cycles per second.
func New(freqHz uint64) *Manager {
	if freqHz == 0 {
		freqHz = 1
	}
	return &Manager{freqHz: freqHz}
}

// AddEvent schedules cb to fire after the given number of cycles. A
// cycles value of 0 runs cb immediately.
func (m *Manager) AddEvent(cycles int, cb Callback, arg int) {
	if cycles <= 0 {
		cb(arg)
		return
	}
	ev := &event{cycles: cycles, cb: cb, arg: arg}

	if m.head == nil {
		m.head = ev
		return
	}
	var prev *event
	cur := m.head
	for cur != nil && ev.cycles > cur.cycles {
		ev.cycles -= cur.cycles
		prev = cur
		cur = cur.next
	}
	if cur != nil {
		cur.cycles -= ev.cycles
	}
	ev.next = cur
	if prev == nil {
		m.head = ev
	} else {
		prev.next = ev
	}
}

// ProcessTimers advances virtual time by elapsedCycles and fires every
// event whose budget is now exhausted, in order.
func (m *Manager) ProcessTimers(elapsedCycles int) {
	m.virtNS += uint64(elapsedCycles) * 1_000_000_000 / m.freqHz
	for m.head != nil {
		if m.head.cycles > elapsedCycles {
			m.head.cycles -= elapsedCycles
			return
		}
		elapsedCycles -= m.head.cycles
		ev := m.head
		m.head = ev.next
		ev.cb(ev.arg)
	}
}

// GetVirtTimeNS returns the monotonic virtual clock.
func (m *Manager) GetVirtTimeNS() uint64 {
	return m.virtNS
}

// ForceCycleCounterReload requests that the interpreter re-check its
// cycle budget (and timers) at the next convenient point, e.g. because a
// device's exec_timer flag fired on another thread.
func (m *Manager) ForceCycleCounterReload() {
	m.reloadReq.Store(true)
}

// TakeReloadRequest reports and clears a pending reload request.
func (m *Manager) TakeReloadRequest() bool {
	return m.reloadReq.Swap(false)
}
