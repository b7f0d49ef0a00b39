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

package interp

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/beigebox/ppc32/internal/cpu"
)

// ExitCondition tells the inner loop when to stop: Main runs until
// power-off, Until runs to a target PC (the debugger's "go until"), and
// Debug runs a single instruction (single-step).
type ExitCondition int

const (
	ExitMain ExitCondition = iota
	ExitUntil
	ExitDebug
)

// Run is the outer loop: it sets a savepoint via the exception
// trampoline, then repeatedly runs the inner loop until PowerOn goes
// false, re-entering on an endian switch (a cooperative re-entry, not an
// in-kernel mode flip). It returns when the exit condition is met or
// power goes off; a power-off leaves its cause in CPU.PowerOffReason for
// the caller (e.g. a REPL) to read.
func (mc *Machine) Run(cond ExitCondition, untilPC uint32) {
	mc.installSignalHandler()
	defer mc.stopSignalHandler()

	for mc.CPU.PowerOn {
		exited := false
		mc.tr.Run(func() {
			mc.innerLoop(cond, untilPC)
			exited = true
		})
		if !exited {
			// An exception unwound through the trampoline. Raise has
			// already pointed PC at the vector; the guest's handler
			// runs on the next iteration. A single-step stops here so
			// the debugger shows the vector entry.
			if cond == ExitDebug {
				return
			}
			continue
		}
		if mc.CPU.PowerOffReason == cpu.ReasonEndianSwitch {
			mc.CPU.PowerOn = true
			mc.CPU.PowerOffReason = cpu.ReasonNone
			if cond == ExitDebug {
				return
			}
			continue
		}
		break
	}
}

// innerLoop runs instructions until the exit condition is met, a
// power-off is requested, or an exception unwinds through the
// trampoline (which resumes Run's loop, not this function).
func (mc *Machine) innerLoop(cond ExitCondition, untilPC uint32) {
	for {
		if !mc.CPU.PowerOn {
			return
		}
		if cond == ExitUntil && mc.CPU.PC == untilPC {
			return
		}

		mc.Step()

		if cond == ExitDebug {
			return
		}
		if mc.CPU.PowerOffReason != cpu.ReasonNone {
			return
		}
	}
}

// Step fetches, decodes, and executes exactly one instruction, advances
// the cycle counter, and polls the timer manager when the budget is
// exhausted.
//
// The active table pointer is cached on Machine rather than re-derived
// every dispatch: a decoder change flagged by the instruction just
// executed is picked up here, before c.ExecFlags is cleared for the new
// instruction.
func (mc *Machine) Step() {
	c := mc.CPU
	if c.ExecFlags&cpu.ExecDecoderChanged != 0 {
		mc.selectTable()
	}
	c.ExecFlags = 0

	instr, ok := c.MMU.FetchInstruction(c, c.PC)
	if !ok {
		return // FetchInstruction's failure path already raised ISI
	}

	c.NIA = c.PC + 4
	msrBefore := c.MSR
	mc.activeTable[cpu.Index(instr)](c, instr)
	if mc.trace != nil {
		mc.trace.record(TraceEntry{
			PC: c.PC, Opcode: instr,
			MSRBefore: msrBefore, MSRAfter: c.MSR,
			ExecFlags: c.ExecFlags,
		})
	}
	c.PC = c.NIA

	mc.icycles++
	if mc.icycles >= cyclesPerTimerCheck || mc.Timer.TakeReloadRequest() {
		mc.Timer.ProcessTimers(mc.icycles)
		mc.icycles = 0
	}

	mc.pollInterrupts()
}

// pollInterrupts takes a pending external interrupt before the
// decrementer. The pin is level-triggered: asserting while MSR[EE] is
// clear leaves the request latched in intPin, and the poll after the
// mtmsr/rfi that re-enables EE picks it up.
func (mc *Machine) pollInterrupts() {
	c := mc.CPU
	if c.MSR&cpu.MSREE == 0 {
		return
	}
	if mc.intPin.Load() {
		c.Exc.Raise(c, cpu.ExcExternalInt, 0)
	}
	mc.pollDecrementer()
}

// pollDecrementer fires the decrementer exception when DEC has gone
// negative and MSR[EE] is set; pollInterrupts calls it after every
// instruction.
func (mc *Machine) pollDecrementer() {
	c := mc.CPU
	if c.MSR&cpu.MSREE == 0 {
		return
	}
	if int32(c.Decrementer()) < 0 {
		c.Exc.Raise(c, cpu.ExcDecrementer, 0)
	}
}

func (mc *Machine) installSignalHandler() {
	mc.sigChan = make(chan os.Signal, 1)
	signal.Notify(mc.sigChan, syscall.SIGINT)
	go func() {
		if _, ok := <-mc.sigChan; ok {
			mc.CPU.PowerOn = false
			mc.CPU.PowerOffReason = cpu.ReasonSignalInterrupt
		}
	}()
}

func (mc *Machine) stopSignalHandler() {
	signal.Stop(mc.sigChan)
	close(mc.sigChan)
}
