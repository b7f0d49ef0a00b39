/*
 * ppc32 - PowerPC CPU core.
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

package interp

// Instruction trace: an optional circular ring recording one entry per
// dispatched instruction. Disabled (nil ring) by default since the
// record path costs a few stores per instruction.

// TraceEntry is one dispatched instruction's record.
type TraceEntry struct {
	Cycle     uint64
	PC        uint32
	Opcode    uint32
	MSRBefore uint32
	MSRAfter  uint32
	ExecFlags uint32
}

type traceRing struct {
	entries []TraceEntry
	next    int
	wrapped bool
	cycle   uint64
}

// EnableTrace starts recording the last n instructions; n <= 0 disables.
func (mc *Machine) EnableTrace(n int) {
	if n <= 0 {
		mc.trace = nil
		return
	}
	mc.trace = &traceRing{entries: make([]TraceEntry, n)}
}

func (r *traceRing) record(e TraceEntry) {
	e.Cycle = r.cycle
	r.cycle++
	r.entries[r.next] = e
	r.next++
	if r.next == len(r.entries) {
		r.next = 0
		r.wrapped = true
	}
}

// TraceEntries returns the recorded entries, oldest first.
func (mc *Machine) TraceEntries() []TraceEntry {
	r := mc.trace
	if r == nil {
		return nil
	}
	if !r.wrapped {
		return append([]TraceEntry(nil), r.entries[:r.next]...)
	}
	out := make([]TraceEntry, 0, len(r.entries))
	out = append(out, r.entries[r.next:]...)
	out = append(out, r.entries[:r.next]...)
	return out
}
