/*
 * ppc32 - Interactive debugger.
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

// Package debugger implements the line-oriented command interpreter:
// step/next/until/go, register get/set, memory dump/patch, disassembly,
// and a symbolized backtrace, sharing address space with the
// interpreter.
//
// Commands live in a []cmd table of {name, minimum unique-prefix
// length, process func, complete func}, matched by matchCommand/
// matchList and dispatched from Process. The command set is CPU/MMU-
// oriented (step/until/break/reg/dump/patch/disas/bt), with register-name
// completion for the register command.
package debugger

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/beigebox/ppc32/internal/config"
	"github.com/beigebox/ppc32/internal/cpu"
	"github.com/beigebox/ppc32/internal/interp"
	"github.com/beigebox/ppc32/internal/symbols"
)

// cmd is one debugger command: name, minimum match length, process
// function, and completion function.
type cmd struct {
	name     string
	min      int
	process  func(d *Debugger, line *cmdLine) (bool, error)
	complete func(d *Debugger, line *cmdLine) []string
}

var cmdList []cmd

func init() {
	cmdList = []cmd{
		{name: "step", min: 1, process: cmdStep},
		{name: "next", min: 1, process: cmdStep},
		{name: "until", min: 1, process: cmdUntil},
		{name: "go", min: 1, process: cmdGo},
		{name: "continue", min: 1, process: cmdGo},
		{name: "break", min: 2, process: cmdBreak},
		{name: "delete", min: 3, process: cmdDeleteBreak},
		{name: "register", min: 3, process: cmdRegister, complete: completeRegister},
		{name: "dump", min: 2, process: cmdDump},
		{name: "patch", min: 2, process: cmdPatch},
		{name: "disassemble", min: 4, process: cmdDisassemble},
		{name: "backtrace", min: 2, process: cmdBacktrace},
		{name: "symbol", min: 3, process: cmdSymbol},
		{name: "trace", min: 2, process: cmdTrace},
		{name: "nvedit", min: 2, process: cmdNVEdit},
		{name: "quit", min: 1, process: cmdQuit},
		{name: "help", min: 1, process: cmdHelp},
	}
}

// Debugger owns the machine and symbol table the command set operates
// on, plus the breakpoint list go/continue consult.
type Debugger struct {
	Machine *interp.Machine
	Symbols *symbols.Table

	// Config, when set, gives nvedit its NVRAM variable store.
	Config *config.Machine

	breakpoints map[uint32]bool
	lastDump    uint32
}

// New returns a Debugger attached to an already-constructed Machine.
func New(mc *interp.Machine, syms *symbols.Table) *Debugger {
	if syms == nil {
		syms = symbols.New()
	}
	return &Debugger{Machine: mc, Symbols: syms, breakpoints: map[uint32]bool{}}
}

// cmdLine tokenizes one command line with a cursor.
type cmdLine struct {
	line string
	pos  int
}

func (l *cmdLine) isEOL() bool { return l.pos >= len(l.line) }

func (l *cmdLine) skipSpace() {
	for !l.isEOL() && l.line[l.pos] == ' ' {
		l.pos++
	}
}

// getWord returns the next whitespace-delimited token, advancing past it.
func (l *cmdLine) getWord() string {
	l.skipSpace()
	start := l.pos
	for !l.isEOL() && l.line[l.pos] != ' ' {
		l.pos++
	}
	return l.line[start:l.pos]
}

func (l *cmdLine) rest() string {
	l.skipSpace()
	return l.line[l.pos:]
}

// matchCommand reports whether command matches cand's name at least to
// cand's minimum unique-prefix length.
func matchCommand(cand cmd, command string) bool {
	if len(command) < cand.min || len(command) > len(cand.name) {
		return false
	}
	return cand.name[:len(command)] == command
}

func matchList(command string) []cmd {
	if command == "" {
		return nil
	}
	var out []cmd
	for _, c := range cmdList {
		if matchCommand(c, command) {
			out = append(out, c)
		}
	}
	return out
}

// Process executes one command line, returning (quit, err). quit is true
// when the "quit" command was run.
func (d *Debugger) Process(commandLine string) (bool, error) {
	line := &cmdLine{line: commandLine}
	name := line.getWord()
	if name == "" {
		return false, nil
	}

	match := matchList(name)
	if len(match) == 0 {
		return false, fmt.Errorf("debugger: unknown command: %s", name)
	}
	if len(match) > 1 {
		names := make([]string, len(match))
		for i, m := range match {
			names[i] = m.name
		}
		return false, fmt.Errorf("debugger: ambiguous command %q matches %s", name, strings.Join(names, ", "))
	}
	return match[0].process(d, line)
}

// Complete implements tab completion for an in-progress command line,
// consumed by an internal/debugger.ConsoleReader's liner.SetCompleter.
func (d *Debugger) Complete(commandLine string) []string {
	line := &cmdLine{line: commandLine}
	name := line.getWord()

	if !line.isEOL() || (len(commandLine) > 0 && commandLine[len(commandLine)-1] == ' ') {
		match := matchList(name)
		if len(match) != 1 || match[0].complete == nil {
			return nil
		}
		return match[0].complete(d, line)
	}

	match := matchList(name)
	out := make([]string, len(match))
	for i, m := range match {
		out[i] = m.name
	}
	return out
}

func parseAddr(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("missing address")
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return uint32(v), nil
}

func cmdQuit(_ *Debugger, _ *cmdLine) (bool, error) {
	return true, nil
}

func cmdHelp(_ *Debugger, _ *cmdLine) (bool, error) {
	names := make([]string, len(cmdList))
	for i, c := range cmdList {
		names[i] = c.name
	}
	sort.Strings(names)
	fmt.Println(strings.Join(names, " "))
	return false, nil
}

// Breakpoints returns a sorted copy of the currently installed
// breakpoint addresses, for the "break" command with no argument.
func (d *Debugger) Breakpoints() []uint32 {
	out := make([]uint32, 0, len(d.breakpoints))
	for a := range d.breakpoints {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Stopped reports whether the CPU's PowerOffReason indicates the
// interpreter stopped for a debugger-visible reason (not a clean
// shutdown request).
func (d *Debugger) Stopped() (reason string, ok bool) {
	switch d.Machine.CPU.PowerOffReason {
	case cpu.ReasonNone:
		return "", false
	case cpu.ReasonEnterDebugger:
		return "fatal condition", true
	case cpu.ReasonSignalInterrupt:
		return "interrupt", true
	case cpu.ReasonQuit:
		return "quit", true
	default:
		return "stopped", true
	}
}

// probeExc is the alternate exception handler installed around memory
// inspection: instead of performing the guest-visible exception entry
// (SRR0/SRR1, vector, non-local exit), it records that a fault happened
// and returns, so dump/patch/disassemble report an error without
// perturbing processor state or unwinding the REPL.
type probeExc struct {
	faulted bool
}

func (p *probeExc) Raise(_ *cpu.CPU, _ int, _ uint32) {
	p.faulted = true
}

// readMem reads guest memory through the MMU with the probe handler
// swapped in.
func (d *Debugger) readMem(addr uint32, size int) (uint64, bool) {
	c := d.Machine.CPU
	saved := c.Exc
	p := &probeExc{}
	c.Exc = p
	defer func() { c.Exc = saved }()
	v, ok := c.MMU.Read(c, addr, size)
	return v, ok && !p.faulted
}

// writeMem is readMem's store counterpart, used by patch.
func (d *Debugger) writeMem(addr uint32, size int, v uint64) bool {
	c := d.Machine.CPU
	saved := c.Exc
	p := &probeExc{}
	c.Exc = p
	defer func() { c.Exc = saved }()
	return c.MMU.Write(c, addr, size, v) && !p.faulted
}
