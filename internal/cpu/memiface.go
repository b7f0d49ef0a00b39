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

package cpu

// Memory is the MMU's contract as seen by instruction handlers and the
// interpreter loop. Implemented by internal/mmu.MMU; stored on CPU as a
// hook to avoid an import cycle between cpu and mmu (mmu needs *CPU to
// read MSR/mode/reserve, cpu's handlers need to call mmu).
type Memory interface {
	// FetchInstruction resolves PC to a host-readable instruction word.
	// On failure it has already raised ISI through Exceptions and
	// performed the non-local exit; callers never see ok=false return.
	FetchInstruction(c *CPU, vaddr uint32) (instr uint32, ok bool)
	Read(c *CPU, vaddr uint32, size int) (uint64, bool)
	Write(c *CPU, vaddr uint32, size int, val uint64) bool
}

// Exceptions is the exception engine's contract. Raise never returns:
// it performs SRR0/SRR1 setup and a non-local exit back to the
// interpreter's saved control point.
type Exceptions interface {
	Raise(c *CPU, kind int, srr1Bits uint32)
}

// Exception type numbers, so the vector table and debugger output read
// the same way.
const (
	ExcSystemReset int = iota + 1
	ExcMachineCheck
	ExcDSI
	ExcISI
	ExcExternalInt
	ExcAlignment
	ExcProgram
	ExcNoFPU
	ExcDecrementer
	_
	_
	_
	ExcSyscall
	ExcTrace
)

// Program-exception cause bits (SRR1), matching the architecture's
// defined bit positions for the FP-unavailable/illegal/privileged/trap
// sub-causes.
const (
	CauseFPUOff     uint32 = 1 << 20 // SRR1 bit 11
	CauseIllegalOp  uint32 = 1 << 19 // SRR1 bit 12
	CausePrivileged uint32 = 1 << 18 // SRR1 bit 13
	CauseTrap       uint32 = 1 << 17 // SRR1 bit 14
)
