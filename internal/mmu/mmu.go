/*
 * ppc32 - Software-managed MMU.
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

// Package mmu implements the software two-level TLB that emulates
// PowerPC block (BAT) and page (PAT) translation.
//
// Every access reaches physical memory through a single translate-then-
// access path: a two-stage translate (BAT fast path, PAT hashed-walk
// fallback) cached in a per-mode two-level TLB, falling back to a slow
// walk on a miss and raising through c.Exc on failure.
package mmu

import (
	"github.com/beigebox/ppc32/internal/cpu"
	"github.com/beigebox/ppc32/internal/memmap"
)

// MMU implements cpu.Memory. It owns the physical address registry and
// the per-mode instruction/data TLB pairs.
type MMU struct {
	Mem *memmap.Registry

	// littleEndian mirrors HID0[ENDIAN] on a 601: when set, accesses are
	// byte-swapped at the munge layer.
	littleEndian bool

	itlb [3]tlbSet // indexed by cpu.MMUMode
	dtlb [3]tlbSet

	// lastPtab caches the physical region holding the hashed page
	// table, so a PTEG scan does not re-resolve the registry on every
	// miss. Invalidated by any PAT flush.
	lastPtab   memmap.AddressMapEntry
	lastPtabOK bool
}

// New returns an MMU backed by mem, with TLBs empty.
func New(mem *memmap.Registry) *MMU {
	m := &MMU{Mem: mem}
	m.FlushAll()
	return m
}

// Hooks returns the cpu.Hooks callbacks this MMU needs wired into the
// CPU. Mode changes re-seat nothing (TLB entries carry their own mode).
// The BAT/PAT flush hooks run the flush directly; the SPR write
// handlers are what queue them onto the context-sync list, so by the
// time one of these fires a sync point has been reached.
func (m *MMU) Hooks() cpu.Hooks {
	return cpu.Hooks{
		FlushBAT: m.FlushBAT,
		FlushPAT: m.FlushPAT,
		FlushTLB: m.FlushAll,
		EndianChanged: func(le bool) {
			m.littleEndian = le
		},
	}
}

// FlushBAT invalidates every TLB entry tagged FROM_BAT, in every mode.
func (m *MMU) FlushBAT() {
	m.flushTagged(flagFromBAT)
}

// FlushPAT invalidates every TLB entry tagged FROM_PAT, in every mode.
func (m *MMU) FlushPAT() {
	m.flushTagged(flagFromPAT)
	m.lastPtabOK = false
}

// FlushAll invalidates every TLB entry in every mode (tlbia).
func (m *MMU) FlushAll() {
	for mode := 0; mode < 3; mode++ {
		m.itlb[mode].reset()
		m.dtlb[mode].reset()
	}
	m.lastPtabOK = false
}

func (m *MMU) flushTagged(flag tlbFlags) {
	for mode := 0; mode < 3; mode++ {
		m.itlb[mode].flushTagged(flag)
		m.dtlb[mode].flushTagged(flag)
	}
}

// FetchInstruction resolves vaddr through the ITLB, raising ISI through
// c.Exc on a translation or physical-access failure and then returning
// ok=false (reached only when Raise returns, as a recording handler does).
func (m *MMU) FetchInstruction(c *cpu.CPU, vaddr uint32) (uint32, bool) {
	phys, flags, ok := m.translate(c, vaddr, &m.itlb[c.Mode()], false, true)
	if !ok {
		return 0, false
	}
	v, rok := m.readPhys(c, phys, 4, flags, true)
	return uint32(v), rok
}

// Read resolves vaddr for a size-byte load, decomposing into per-byte
// accesses when the span crosses a page boundary.
func (m *MMU) Read(c *cpu.CPU, vaddr uint32, size int) (uint64, bool) {
	if m.raiseIfMisaligned(c, vaddr, size) {
		return 0, false
	}
	if crossesPage(vaddr, size) {
		return m.readCrosspage(c, vaddr, size)
	}
	phys, flags, ok := m.translate(c, vaddr, &m.dtlb[c.Mode()], false, false)
	if !ok {
		return 0, false
	}
	return m.readPhys(c, phys, size, flags, false)
}

// Write resolves vaddr for a size-byte store, decomposing on crosspage
// the same way Read does.
func (m *MMU) Write(c *cpu.CPU, vaddr uint32, size int, val uint64) bool {
	if m.raiseIfMisaligned(c, vaddr, size) {
		return false
	}
	if crossesPage(vaddr, size) {
		return m.writeCrosspage(c, vaddr, size, val)
	}
	phys, flags, ok := m.translate(c, vaddr, &m.dtlb[c.Mode()], true, false)
	if !ok {
		return false
	}
	return m.writePhys(c, phys, size, val, flags)
}

// raiseIfMisaligned enforces the one alignment rule this core checks:
// a double-word (lfd/stfd) access must be 4-byte aligned. Everything
// narrower can span any byte boundary and is handled by crossesPage.
func (m *MMU) raiseIfMisaligned(c *cpu.CPU, vaddr uint32, size int) bool {
	if size != 8 || vaddr&3 == 0 {
		return false
	}
	c.PendingDAR = vaddr
	c.Exc.Raise(c, cpu.ExcAlignment, 0)
	return true
}

func crossesPage(vaddr uint32, size int) bool {
	return (vaddr&0xFFF)+uint32(size) > 0x1000
}

// readCrosspage and writeCrosspage decompose a spanning access into
// size individual byte accesses, each independently translated, and
// compose/split the value in big-endian byte order.
func (m *MMU) readCrosspage(c *cpu.CPU, vaddr uint32, size int) (uint64, bool) {
	var v uint64
	for i := 0; i < size; i++ {
		phys, flags, ok := m.translate(c, vaddr+uint32(i), &m.dtlb[c.Mode()], false, false)
		if !ok {
			return 0, false
		}
		b, ok := m.readPhys(c, phys, 1, flags, false)
		if !ok {
			return 0, false
		}
		v = v<<8 | b
	}
	return v, true
}

func (m *MMU) writeCrosspage(c *cpu.CPU, vaddr uint32, size int, val uint64) bool {
	for i := 0; i < size; i++ {
		shift := uint((size - 1 - i) * 8)
		b := (val >> shift) & 0xFF
		phys, flags, ok := m.translate(c, vaddr+uint32(i), &m.dtlb[c.Mode()], true, false)
		if !ok {
			return false
		}
		if !m.writePhys(c, phys, 1, b, flags) {
			return false
		}
	}
	return true
}
