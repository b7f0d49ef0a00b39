/*
 * ppc32 - Exception engine.
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

// Package except implements the PowerPC exception engine: SRR0/SRR1
// setup, vector computation, and the non-local exit back to the
// interpreter's saved control point.
//
// The non-local exit is panic/recover, confined entirely to the
// interpreter's own call stack so it never crosses a goroutine boundary
// or escapes to an unrelated recover.
package except

import "github.com/beigebox/ppc32/internal/cpu"

// vectorOffset maps an exception kind to its PowerPC IP=0 vector offset.
var vectorOffset = map[int]uint32{
	cpu.ExcSystemReset:  0x0100,
	cpu.ExcMachineCheck: 0x0200,
	cpu.ExcDSI:          0x0300,
	cpu.ExcISI:          0x0400,
	cpu.ExcExternalInt:  0x0500,
	cpu.ExcAlignment:    0x0600,
	cpu.ExcProgram:      0x0700,
	cpu.ExcNoFPU:        0x0800,
	cpu.ExcDecrementer:  0x0900,
	cpu.ExcSyscall:      0x0C00,
	cpu.ExcTrace:        0x0D00,
}

// signal is the sentinel panic value a trampoline's deferred recover
// checks for; any other panic is a real bug and re-panics.
type signal struct {
	kind int
}

// Engine implements cpu.Exceptions, raising exceptions into a trampoline
// installed by Trampoline.Run.
type Engine struct{}

// New returns an exception engine.
func New() *Engine { return &Engine{} }

// Raise performs the exception entry sequence: copy PC/MSR
// into SRR0/SRR1, clear MSR[EE,PR,IR,DR,...], compute the vector from
// MSR[IP] and the exception kind, and unwind to the trampoline via
// panic. It never returns.
func (e *Engine) Raise(c *cpu.CPU, kind int, srr1Bits uint32) {
	c.SPR[cpu.SPRSRR0] = c.PC
	srr1 := (c.MSR & 0x0000FF7D) | srr1Bits
	c.SPR[cpu.SPRSRR1] = srr1

	// DSI and alignment faults report the faulting address (and, for
	// DSI, the cause bits) through DAR/DSISR for the guest's handler.
	switch kind {
	case cpu.ExcDSI:
		c.SPR[cpu.SPRDAR] = c.PendingDAR
		c.SPR[cpu.SPRDSISR] = c.PendingDSISR
	case cpu.ExcAlignment:
		c.SPR[cpu.SPRDAR] = c.PendingDAR
	}

	newMSR := c.MSR &^ (cpu.MSREE | cpu.MSRPR | cpu.MSRFP | cpu.MSRFE0 |
		cpu.MSRSE | cpu.MSRBE | cpu.MSRFE1 | cpu.MSRIR | cpu.MSRDR | cpu.MSRRI)
	if kind == cpu.ExcMachineCheck {
		newMSR &^= cpu.MSRME
	}

	base := uint32(0)
	if c.MSR&cpu.MSRIP != 0 {
		base = 0xFFF00000
	}
	off, ok := vectorOffset[kind]
	if !ok {
		off = 0x0700 // unmapped kinds fall back to the program-exception vector
	}

	c.MsrDidChange(newMSR)
	c.PC = base + off
	c.NIA = c.PC
	c.ExecFlags |= cpu.ExecException

	panic(signal{kind: kind})
}

// Trampoline confines the panic/recover non-local exit to the
// interpreter's own call stack: Run executes body, and if body (or
// anything it calls, including deep into instruction handlers) panics
// with a signal raised by this package's Raise, Run recovers it and
// returns normally. Any other panic propagates.
type Trampoline struct{}

// Run calls body and absorbs exactly the panic values produced by Raise.
func (Trampoline) Run(body func()) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(signal); ok {
				return
			}
			panic(r)
		}
	}()
	body()
}
