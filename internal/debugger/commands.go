/*
 * ppc32 - Debugger command implementations.
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

package debugger

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/beigebox/ppc32/internal/cpu"
	"github.com/beigebox/ppc32/internal/disasm"
	"github.com/beigebox/ppc32/internal/interp"
)

// cmdStep single-steps the interpreter exactly one instruction. A fault
// during the step raises through the same except.Engine the normal run
// uses, so a step that faults reports the exception instead of
// corrupting debugger state.
func cmdStep(d *Debugger, _ *cmdLine) (bool, error) {
	if !d.Machine.CPU.PowerOn {
		return false, fmt.Errorf("debugger: cpu is not running")
	}
	d.Machine.Run(interp.ExitDebug, 0)
	fmt.Println(d.formatStopLine(d.Machine.CPU.PC))
	return false, nil
}

// cmdUntil runs until PC reaches the given address or the CPU halts.
func cmdUntil(d *Debugger, line *cmdLine) (bool, error) {
	addr, err := parseAddr(line.getWord())
	if err != nil {
		return false, err
	}
	d.Machine.CPU.PowerOn = true
	d.Machine.Run(interp.ExitUntil, addr)
	fmt.Println(d.formatStopLine(d.Machine.CPU.PC))
	return false, nil
}

// cmdGo resumes full-speed execution; a single optional address
// argument sets PC before resuming, for restarting after an
// examine-driven patch.
func cmdGo(d *Debugger, line *cmdLine) (bool, error) {
	if w := line.getWord(); w != "" {
		addr, err := parseAddr(w)
		if err != nil {
			return false, err
		}
		d.Machine.CPU.PC = addr
		d.Machine.CPU.NIA = addr
	}
	d.Machine.CPU.PowerOn = true
	d.runUntilBreakpoint()
	fmt.Println(d.formatStopLine(d.Machine.CPU.PC))
	return false, nil
}

// runUntilBreakpoint drives Machine.Run one instruction at a time so the
// breakpoint set installed by "break" can be consulted every step; a
// plain ExitMain run has no hook point for that without mutating
// internal/interp, so the debugger does its own outer loop here.
func (d *Debugger) runUntilBreakpoint() {
	if len(d.breakpoints) == 0 {
		d.Machine.Run(interp.ExitMain, 0)
		return
	}
	for d.Machine.CPU.PowerOn {
		d.Machine.Run(interp.ExitDebug, 0)
		if !d.Machine.CPU.PowerOn {
			return
		}
		if d.breakpoints[d.Machine.CPU.PC] {
			return
		}
	}
}

// cmdBreak installs a breakpoint at the given address, or lists the
// current breakpoint set when called with no argument.
func cmdBreak(d *Debugger, line *cmdLine) (bool, error) {
	w := line.getWord()
	if w == "" {
		for _, a := range d.Breakpoints() {
			fmt.Printf("%#08x %s\n", a, d.Symbols.FormatAddress(a))
		}
		return false, nil
	}
	addr, err := parseAddr(w)
	if err != nil {
		return false, err
	}
	d.breakpoints[addr] = true
	return false, nil
}

func cmdDeleteBreak(d *Debugger, line *cmdLine) (bool, error) {
	addr, err := parseAddr(line.getWord())
	if err != nil {
		return false, err
	}
	delete(d.breakpoints, addr)
	return false, nil
}

// cmdRegister implements get (one argument) and set (two arguments)
// forms over internal/cpu's name-resolved register accessors.
func cmdRegister(d *Debugger, line *cmdLine) (bool, error) {
	name := line.getWord()
	if name == "" {
		printRegisterDump(d.Machine.CPU)
		return false, nil
	}
	rest := line.rest()
	if rest == "" {
		v, err := d.Machine.CPU.GetRegister(name)
		if err != nil {
			return false, err
		}
		fmt.Printf("%s = %#08x\n", name, v)
		return false, nil
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(rest, "0x"), 16, 32)
	if err != nil {
		return false, fmt.Errorf("debugger: invalid value %q: %w", rest, err)
	}
	if err := d.Machine.CPU.SetRegister(name, uint32(v)); err != nil {
		return false, err
	}
	return false, nil
}

func completeRegister(_ *Debugger, line *cmdLine) []string {
	prefix := strings.ToLower(line.getWord())
	names := []string{"pc", "nia", "cr", "xer", "msr", "fpscr", "lr", "ctr"}
	var out []string
	for _, n := range names {
		if strings.HasPrefix(n, prefix) {
			out = append(out, n)
		}
	}
	return out
}

func printRegisterDump(c *cpu.CPU) {
	fmt.Printf("PC=%#08x MSR=%#08x CR=%#08x XER=%#08x LR=%#08x CTR=%#08x\n",
		c.PC, c.MSR, c.CR, c.XER, c.SPR[cpu.SPRLR], c.SPR[cpu.SPRCTR])
	for i := 0; i < 32; i += 4 {
		fmt.Printf("r%-2d=%#08x r%-2d=%#08x r%-2d=%#08x r%-2d=%#08x\n",
			i, c.GPR[i], i+1, c.GPR[i+1], i+2, c.GPR[i+2], i+3, c.GPR[i+3])
	}
}

// cmdDump prints word-sized memory cells starting at the given address,
// or continuing from the previous dump's end.
func cmdDump(d *Debugger, line *cmdLine) (bool, error) {
	w := line.getWord()
	addr := d.lastDump
	if w != "" {
		a, err := parseAddr(w)
		if err != nil {
			return false, err
		}
		addr = a
	}
	count := 8
	if w2 := line.getWord(); w2 != "" {
		n, err := strconv.Atoi(w2)
		if err != nil {
			return false, fmt.Errorf("debugger: invalid count %q: %w", w2, err)
		}
		count = n
	}

	for i := 0; i < count; i++ {
		v, ok := d.readMem(addr, 4)
		if !ok {
			return false, fmt.Errorf("debugger: read fault at %#08x", addr)
		}
		if i%4 == 0 {
			if i != 0 {
				fmt.Println()
			}
			fmt.Printf("%#08x:", addr)
		}
		fmt.Printf(" %08x", uint32(v))
		addr += 4
	}
	fmt.Println()
	d.lastDump = addr
	return false, nil
}

// cmdPatch writes a single word-sized cell.
func cmdPatch(d *Debugger, line *cmdLine) (bool, error) {
	addr, err := parseAddr(line.getWord())
	if err != nil {
		return false, err
	}
	valStr := line.getWord()
	if valStr == "" {
		return false, fmt.Errorf("debugger: patch requires a value")
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(valStr, "0x"), 16, 64)
	if err != nil {
		return false, fmt.Errorf("debugger: invalid value %q: %w", valStr, err)
	}
	if !d.writeMem(addr, 4, v) {
		return false, fmt.Errorf("debugger: write fault at %#08x", addr)
	}
	return false, nil
}

// cmdDisassemble formats count instructions starting at addr using
// internal/disasm, annotating each with its symbolized address.
func cmdDisassemble(d *Debugger, line *cmdLine) (bool, error) {
	w := line.getWord()
	addr := d.Machine.CPU.PC
	if w != "" {
		a, err := parseAddr(w)
		if err != nil {
			return false, err
		}
		addr = a
	}
	count := 10
	if w2 := line.getWord(); w2 != "" {
		n, err := strconv.Atoi(w2)
		if err != nil {
			return false, fmt.Errorf("debugger: invalid count %q: %w", w2, err)
		}
		count = n
	}

	for i := 0; i < count; i++ {
		v, ok := d.readMem(addr, 4)
		if !ok {
			return false, fmt.Errorf("debugger: read fault at %#08x", addr)
		}
		marker := "  "
		if addr == d.Machine.CPU.PC {
			marker = "->"
		}
		fmt.Printf("%s %-28s %s\n", marker, d.Symbols.FormatAddress(addr), disasm.Format(addr, uint32(v)))
		addr += 4
	}
	return false, nil
}

// cmdBacktrace symbolizes the current PC and the link register. A full
// frame-pointer walk needs the guest ABI's frame layout, which the core
// does not assume; LR is the one return address always available.
func cmdBacktrace(d *Debugger, _ *cmdLine) (bool, error) {
	c := d.Machine.CPU
	fmt.Printf("#0 %s\n", d.Symbols.FormatAddress(c.PC))
	fmt.Printf("#1 %s\n", d.Symbols.FormatAddress(c.SPR[cpu.SPRLR]))
	return false, nil
}

// cmdSymbol resolves a hex address to its nearest symbol, or an exact
// symbol name to its address.
func cmdSymbol(d *Debugger, line *cmdLine) (bool, error) {
	w := line.getWord()
	if w == "" {
		return false, fmt.Errorf("debugger: symbol requires an address or name")
	}
	if addr, err := parseAddr(w); err == nil {
		fmt.Println(d.Symbols.FormatAddress(addr))
		return false, nil
	}
	addr, ok := d.Symbols.LookupByName(w)
	if !ok {
		return false, fmt.Errorf("debugger: unknown symbol %q", w)
	}
	fmt.Printf("%s = %#08x\n", w, addr)
	return false, nil
}

func (d *Debugger) formatStopLine(pc uint32) string {
	v, ok := d.readMem(pc, 4)
	if !ok {
		return fmt.Sprintf("%#08x %s", pc, d.Symbols.FormatAddress(pc))
	}
	return fmt.Sprintf("%#08x %-28s %s", pc, d.Symbols.FormatAddress(pc), disasm.Format(pc, uint32(v)))
}

// cmdTrace controls the instruction-trace ring: "trace on [n]" enables
// an n-entry ring, "trace off" disables it, and "trace" or "trace dump"
// replays the recorded entries through the disassembler.
func cmdTrace(d *Debugger, line *cmdLine) (bool, error) {
	switch w := line.getWord(); w {
	case "on":
		n := 1 << 16
		if w2 := line.getWord(); w2 != "" {
			v, err := strconv.Atoi(w2)
			if err != nil || v <= 0 {
				return false, fmt.Errorf("debugger: invalid trace size %q", w2)
			}
			n = v
		}
		d.Machine.EnableTrace(n)
		return false, nil
	case "off":
		d.Machine.EnableTrace(0)
		return false, nil
	case "", "dump":
		entries := d.Machine.TraceEntries()
		if len(entries) == 0 {
			return false, fmt.Errorf("debugger: trace is empty (enable with \"trace on\")")
		}
		for _, e := range entries {
			fmt.Printf("%10d %#08x %08x msr %08x->%08x %-28s %s\n",
				e.Cycle, e.PC, e.Opcode, e.MSRBefore, e.MSRAfter,
				d.Symbols.FormatAddress(e.PC), disasm.Format(e.PC, e.Opcode))
		}
		return false, nil
	default:
		return false, fmt.Errorf("debugger: trace takes on/off/dump, not %q", w)
	}
}

// cmdNVEdit views and edits Open Firmware NVRAM variables: "nvedit"
// lists all, "nvedit name" prints one, "nvedit name value" sets one.
func cmdNVEdit(d *Debugger, line *cmdLine) (bool, error) {
	if d.Config == nil {
		return false, fmt.Errorf("debugger: no configuration attached")
	}
	name := line.getWord()
	if name == "" {
		names := make([]string, 0, len(d.Config.NVRAM))
		for n := range d.Config.NVRAM {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Printf("%-24s %s\n", n, d.Config.NVRAM[n])
		}
		return false, nil
	}
	if value := strings.TrimSpace(line.rest()); value != "" {
		d.Config.NVRAMSet(name, value)
		return false, nil
	}
	v, ok := d.Config.NVRAMGet(name)
	if !ok {
		return false, fmt.Errorf("debugger: no NVRAM variable %q", name)
	}
	fmt.Println(v)
	return false, nil
}
