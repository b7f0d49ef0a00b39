/*
 * ppc32 - Interpreter loop.
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

// Package interp implements the outer/inner interpreter loop. It is the
// machine composition root: it owns a CPU, an MMU, the exception
// engine/trampoline, the dispatch tables, and the timer manager, and
// wires them together through cpu.Hooks (a handful of function values,
// not a vtable).
//
// The outer loop installs a savepoint absorbing panics from the
// exception trampoline and re-enters the inner loop after each one. The
// inner loop steps until the exit condition is met or power goes off;
// Step polls the timer manager every cyclesPerTimerCheck instructions
// and, before each dispatch, reselects the dispatch table when the
// previous instruction set the DECODER_CHANGED exec flag.
package interp

import (
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/beigebox/ppc32/internal/cpu"
	"github.com/beigebox/ppc32/internal/ctxsync"
	"github.com/beigebox/ppc32/internal/except"
	"github.com/beigebox/ppc32/internal/memmap"
	"github.com/beigebox/ppc32/internal/mmu"
	"github.com/beigebox/ppc32/internal/timer"
)

// cyclesPerTimerCheck bounds how many instructions run before the
// interpreter polls the timer manager.
const cyclesPerTimerCheck = 4096

// Machine is the process-scoped emulator value: one Go struct, not a
// set of package-level globals.
type Machine struct {
	CPU   *cpu.CPU
	MMU   *mmu.MMU
	Mem   *memmap.Registry
	Exc   *except.Engine
	Sync  *ctxsync.Queue
	Timer *timer.Manager
	Tabs  *cpu.Tables

	tr except.Trampoline

	icycles     int
	activeTable *[cpu.TableSize]cpu.OpFunc

	// intPin is the external interrupt line. Devices may assert from a
	// helper thread, so it is the one relaxed-atomic in the core; it is
	// level-triggered, and a request arriving while MSR[EE] is clear
	// stays latched until an mtmsr/rfi re-enables EE.
	intPin atomic.Bool

	trace *traceRing

	sigChan chan os.Signal
}

// AssertInt raises the external interrupt line. The interpreter takes
// the exception at its next instruction boundary with MSR[EE] set.
func (mc *Machine) AssertInt() { mc.intPin.Store(true) }

// ReleaseInt lowers the external interrupt line.
func (mc *Machine) ReleaseInt() { mc.intPin.Store(false) }

// New builds a fully wired Machine: it is the only place in this module
// that constructs a CPU, an MMU, and hooks them together.
func New(model cpu.Model, hasAltivec bool, tbFreqHz uint64, mem *memmap.Registry, log *slog.Logger) *Machine {
	c := cpu.New(model, log)
	c.TBFreqHz = tbFreqHz
	m := mmu.New(mem)
	sync := ctxsync.New()
	exc := except.New()

	mc := &Machine{
		CPU:   c,
		MMU:   m,
		Mem:   mem,
		Exc:   exc,
		Sync:  sync,
		Timer: timer.New(tbFreqHz),
		Tabs:  cpu.BuildTables(model, hasAltivec),
	}

	// mc is addressable and already holds every field the hook closures
	// reference by pointer; the closures themselves don't run until
	// later, well after construction completes.
	h := m.Hooks()
	h.SelectTable = func(bool) { mc.selectTable() }
	c.Attach(h, sync)
	c.MMU = m
	c.Exc = exc

	mc.selectTable()
	return mc
}

func (mc *Machine) selectTable() {
	if mc.CPU.FPEnabled() {
		mc.activeTable = &mc.Tabs.FPOn
	} else {
		mc.activeTable = &mc.Tabs.FPOff
	}
}
