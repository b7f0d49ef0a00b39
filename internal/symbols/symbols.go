/*
 * ppc32 - Symbol table and backtrace support.
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

// Package symbols implements the address-to-name table the debugger's
// backtrace and disassembly annotation consume, covering symbolized
// backtraces across a kernel, kernel extensions, and firmware images
// loaded into the same address space.
//
// The table is a flat list of binaries (kernel, kexts, firmware, user
// processes/libraries), each with an address range and its own flat
// symbol list, loaded from a simple "start end type name" text table.
// Segment/section boundaries are not represented — only the nearest
// preceding symbol is needed to resolve a name for an address.
package symbols

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies which kind of binary a symbol table entry belongs to.
type Kind int

const (
	KindUnknown Kind = iota
	KindOpenFirmware
	KindDarwinKernel
	KindDarwinKext
	KindDarwinProcess
	KindDarwinLibrary
)

func (k Kind) String() string {
	switch k {
	case KindOpenFirmware:
		return "Open_Firmware"
	case KindDarwinKernel:
		return "kernel"
	case KindDarwinKext:
		return "kext"
	case KindDarwinProcess:
		return "process"
	case KindDarwinLibrary:
		return "library"
	default:
		return "unknown"
	}
}

func kindFromString(s string) Kind {
	switch s {
	case "Open_Firmware":
		return KindOpenFirmware
	case "kernel":
		return KindDarwinKernel
	case "kext":
		return KindDarwinKext
	case "process":
		return KindDarwinProcess
	case "library":
		return KindDarwinLibrary
	default:
		return KindUnknown
	}
}

// Symbol is one named address range within a binary.
type Symbol struct {
	Start, End uint32
	Name       string
}

// Binary is one loaded symbol source: an Open Firmware image, a Darwin
// kernel, a kext, a user process, or a shared library.
type Binary struct {
	Start, End uint32
	Name       string
	Kind       Kind
	Symbols    []Symbol // sorted by Start
}

func (b *Binary) contains(addr uint32) bool {
	return addr >= b.Start && addr <= b.End
}

// Table is the process-wide symbol store: an ordered list of Binary
// ranges, each with its own symbol list.
type Table struct {
	binaries []*Binary
}

// New returns an empty symbol table.
func New() *Table {
	return &Table{}
}

// Load reads a symbol file in the format:
//
//	<start-hex> <end-hex> 0 <kind> <binary-name>
//	<start-hex> <end-hex> 1 <symbol-name>
//	...
//
// A record with type 0 opens a new binary; every following record until
// the next type-0 record is a symbol within it.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parse(f)
}

func parse(r io.Reader) (*Table, error) {
	t := New()
	scanner := bufio.NewScanner(r)
	var cur *Binary
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("symbols: line %d: too few fields", lineNo)
		}
		start, err := strconv.ParseUint(fields[0], 16, 32)
		if err != nil {
			return nil, fmt.Errorf("symbols: line %d: bad start: %w", lineNo, err)
		}
		end, err := strconv.ParseUint(fields[1], 16, 32)
		if err != nil {
			return nil, fmt.Errorf("symbols: line %d: bad end: %w", lineNo, err)
		}
		recType, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("symbols: line %d: bad type: %w", lineNo, err)
		}

		switch recType {
		case 0:
			if len(fields) < 4 {
				return nil, fmt.Errorf("symbols: line %d: binary record missing kind/name", lineNo)
			}
			name := strings.Join(fields[4:], " ")
			cur = &Binary{Start: uint32(start), End: uint32(end), Kind: kindFromString(fields[3]), Name: name}
			t.binaries = append(t.binaries, cur)
		case 1:
			if cur == nil {
				return nil, fmt.Errorf("symbols: line %d: symbol record before any binary", lineNo)
			}
			name := strings.Join(fields[3:], " ")
			cur.Symbols = append(cur.Symbols, Symbol{Start: uint32(start), End: uint32(end), Name: name})
		default:
			// Segment/section nesting from the original format; this
			// table flattens everything to per-binary symbols, so
			// higher record types are accepted and ignored rather
			// than rejected — older symbol files stay loadable.
		}
	}
	for _, b := range t.binaries {
		sort.Slice(b.Symbols, func(i, j int) bool { return b.Symbols[i].Start < b.Symbols[j].Start })
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// Add installs a Binary directly, for callers building a symbol table
// programmatically rather than from a file.
func (t *Table) Add(b *Binary) {
	sort.Slice(b.Symbols, func(i, j int) bool { return b.Symbols[i].Start < b.Symbols[j].Start })
	t.binaries = append(t.binaries, b)
}

// Lookup resolves addr to the nearest preceding symbol, returning the
// symbol name, the byte offset into it, and the owning binary's kind.
// ok is false if addr falls outside every loaded binary.
func (t *Table) Lookup(addr uint32) (name string, offset uint32, kind Kind, ok bool) {
	for _, b := range t.binaries {
		if !b.contains(addr) {
			continue
		}
		sym, found := nearestSymbol(b.Symbols, addr)
		if !found {
			return b.Name, addr - b.Start, b.Kind, true
		}
		return sym.Name, addr - sym.Start, b.Kind, true
	}
	return "", 0, KindUnknown, false
}

// nearestSymbol returns the last symbol in a Start-sorted slice whose
// range contains or precedes addr.
func nearestSymbol(syms []Symbol, addr uint32) (Symbol, bool) {
	i := sort.Search(len(syms), func(i int) bool { return syms[i].Start > addr })
	if i == 0 {
		return Symbol{}, false
	}
	return syms[i-1], true
}

// FormatAddress renders addr the way the debugger's backtrace and
// disassembly annotator want it: "name+0x10 (kind)" when resolved, or a
// bare hex address otherwise.
func (t *Table) FormatAddress(addr uint32) string {
	name, off, kind, ok := t.Lookup(addr)
	if !ok {
		return fmt.Sprintf("%#08x", addr)
	}
	if off == 0 {
		return fmt.Sprintf("%s (%s)", name, kind)
	}
	return fmt.Sprintf("%s+%#x (%s)", name, off, kind)
}

// LookupByName resolves a symbol by exact name across every loaded
// binary, used by the debugger to set a breakpoint on a function name.
func (t *Table) LookupByName(name string) (uint32, bool) {
	for _, b := range t.binaries {
		for _, s := range b.Symbols {
			if s.Name == name {
				return s.Start, true
			}
		}
	}
	return 0, false
}

// Binaries returns every loaded binary.
func (t *Table) Binaries() []*Binary {
	return t.binaries
}
