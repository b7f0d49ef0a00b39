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
	"encoding/binary"
	"io"
	"log/slog"
	"testing"

	"github.com/beigebox/ppc32/internal/cpu"
	"github.com/beigebox/ppc32/internal/memmap"
)

func newTestMachine(t *testing.T) *Machine {
	t.Helper()
	mem := memmap.New()
	if err := mem.AddRAM(0, 0x10000); err != nil {
		t.Fatal(err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(cpu.Model750, false, 1_000_000, mem, log)
}

// TestStepAddiAdvancesPC programs a single addi and checks the register
// file and PC both update the way a real-mode fetch/dispatch should.
func TestStepAddiAdvancesPC(t *testing.T) {
	mc := newTestMachine(t)
	mc.CPU.PC = 0
	mc.CPU.NIA = 0
	// addi r3, r0, 42: primary 14, RT=3, RA=0, SIMM=42
	instr := uint32(14)<<26 | uint32(3)<<21 | uint32(0)<<16 | 42
	mc.MMU.Write(mc.CPU, 0, 4, uint64(instr))

	mc.Step()

	if mc.CPU.GPR[3] != 42 {
		t.Fatalf("r3 = %d, want 42", mc.CPU.GPR[3])
	}
	if mc.CPU.PC != 4 {
		t.Fatalf("PC = %#x, want 4", mc.CPU.PC)
	}
}

func TestRunExitUntilStopsAtTarget(t *testing.T) {
	mc := newTestMachine(t)
	mc.CPU.PC = 0
	mc.CPU.NIA = 0
	// Two addi instructions back to back; run until PC==4.
	addi := func(rt, simm uint32) uint32 { return uint32(14)<<26 | rt<<21 | 0<<16 | (simm & 0xFFFF) }
	mc.MMU.Write(mc.CPU, 0, 4, uint64(addi(3, 1)))
	mc.MMU.Write(mc.CPU, 4, 4, uint64(addi(4, 2)))

	mc.Run(ExitUntil, 4)

	if mc.CPU.PC != 4 {
		t.Fatalf("PC = %#x, want 4", mc.CPU.PC)
	}
	if mc.CPU.GPR[3] != 1 {
		t.Fatalf("r3 = %d, want 1 (second instruction must not have run)", mc.CPU.GPR[3])
	}
}

// TestRunContinuesAtVectorAfterException programs an illegal opcode at 0
// and a valid instruction at the program-exception vector: the outer loop
// must absorb the exception and resume executing the guest's handler.
func TestRunContinuesAtVectorAfterException(t *testing.T) {
	mc := newTestMachine(t)
	mc.CPU.MSR &^= cpu.MSRIP // vectors at 0x000xxxxx, inside test RAM
	mc.CPU.PC = 0
	mc.CPU.NIA = 0
	// 0x00000000 is an illegal encoding; at the 0x700 vector, addi r3,
	// r0, 7 then an until-target lands us inside the handler.
	addi := uint32(14)<<26 | uint32(3)<<21 | 7
	mc.MMU.Write(mc.CPU, 0x700, 4, uint64(addi))

	mc.Run(ExitUntil, 0x704)

	if mc.CPU.GPR[3] != 7 {
		t.Fatalf("r3 = %d, want 7 (the exception handler must have run)", mc.CPU.GPR[3])
	}
	if mc.CPU.SPR[cpu.SPRSRR0] != 0 {
		t.Fatalf("SRR0 = %#x, want 0 (faulting PC)", mc.CPU.SPR[cpu.SPRSRR0])
	}
}

// TestExternalInterruptLatchesUntilEESet asserts the pin with MSR[EE]
// clear, runs one instruction (no interrupt may fire), then sets EE and
// checks the next boundary takes the external-interrupt vector.
func TestExternalInterruptLatchesUntilEESet(t *testing.T) {
	mc := newTestMachine(t)
	mc.CPU.MSR &^= cpu.MSRIP
	mc.CPU.PC = 0
	mc.CPU.NIA = 0
	addi := uint32(14)<<26 | uint32(3)<<21 | 1
	mc.MMU.Write(mc.CPU, 0, 4, uint64(addi))
	mc.MMU.Write(mc.CPU, 4, 4, uint64(addi))

	mc.AssertInt()
	mc.Step()
	if mc.CPU.GPR[3] != 1 {
		t.Fatal("instruction must complete with EE clear despite pending interrupt")
	}
	if mc.CPU.PC != 4 {
		t.Fatalf("PC = %#x, want 4: interrupt must stay latched while EE clear", mc.CPU.PC)
	}

	mc.CPU.MsrDidChange(mc.CPU.MSR | cpu.MSREE)
	mc.tr.Run(func() { mc.Step() })
	if mc.CPU.PC != 0x500 {
		t.Fatalf("PC = %#x, want external interrupt vector 0x500", mc.CPU.PC)
	}
}

func TestTraceRingRecordsAndWraps(t *testing.T) {
	mc := newTestMachine(t)
	mc.CPU.PC = 0
	mc.CPU.NIA = 0
	mc.EnableTrace(2)
	addi := func(rt uint32) uint32 { return uint32(14)<<26 | rt<<21 | 1 }
	for i := uint32(0); i < 3; i++ {
		mc.MMU.Write(mc.CPU, i*4, 4, uint64(addi(3+i)))
	}
	mc.Step()
	mc.Step()
	mc.Step()
	entries := mc.TraceEntries()
	if len(entries) != 2 {
		t.Fatalf("trace holds %d entries, want ring capacity 2", len(entries))
	}
	if entries[0].PC != 4 || entries[1].PC != 8 {
		t.Errorf("trace PCs = %#x,%#x, want 4,8 (oldest first)", entries[0].PC, entries[1].PC)
	}
	if entries[1].Cycle != entries[0].Cycle+1 {
		t.Error("trace cycles must be consecutive")
	}
}

// TestResetBootFetchesFromROMResetVector maps ROM over the top of the
// address space and checks the first fetch decodes at the reset vector
// with LR clear, and one step advances PC by 4.
func TestResetBootFetchesFromROMResetVector(t *testing.T) {
	mem := memmap.New()
	rom := make([]byte, 0x1000)
	binary.BigEndian.PutUint32(rom[0x100:], uint32(24)<<26) // ori r0,r0,0
	if err := mem.AddROM(0xFFF00000, rom); err != nil {
		t.Fatal(err)
	}
	if err := mem.AddRAM(0, 0x10000); err != nil {
		t.Fatal(err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mc := New(cpu.Model750, false, 25_000_000, mem, log)

	if mc.CPU.PC != 0xFFF00100 {
		t.Fatalf("PC = %#x, want the reset vector", mc.CPU.PC)
	}
	if mc.CPU.SPR[cpu.SPRLR] != 0 {
		t.Fatal("LR must be clear out of reset")
	}
	mc.Step()
	if mc.CPU.PC != 0xFFF00104 {
		t.Fatalf("PC = %#x after one step, want 0xFFF00104", mc.CPU.PC)
	}
}
