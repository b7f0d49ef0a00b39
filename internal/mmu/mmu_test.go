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

package mmu

import (
	"io"
	"log/slog"
	"testing"

	"github.com/beigebox/ppc32/internal/cpu"
	"github.com/beigebox/ppc32/internal/endian"
	"github.com/beigebox/ppc32/internal/memmap"
)

type fakeExc struct {
	kind  int
	srr1  uint32
	calls int
}

func (f *fakeExc) Raise(c *cpu.CPU, kind int, srr1 uint32) {
	f.kind = kind
	f.srr1 = srr1
	f.calls++
}

func newTestCPU(t *testing.T) (*cpu.CPU, *MMU, *fakeExc) {
	t.Helper()
	reg := memmap.New()
	if err := reg.AddRAM(0, 0x10000); err != nil {
		t.Fatal(err)
	}
	if err := reg.AddRAM(0x00100000, 0x10000); err != nil {
		t.Fatal(err)
	}
	m := New(reg)
	c := cpu.New(cpu.Model750, slog.New(slog.NewTextHandler(io.Discard, nil)))
	exc := &fakeExc{}
	c.Exc = exc
	c.MMU = m
	return c, m, exc
}

func TestRealModeIdentityMap(t *testing.T) {
	c, m, exc := newTestCPU(t)
	// MSR[IR,DR] both clear by default after Reset: real mode.
	if !m.Write(c, 0x100, 4, 0xDEADBEEF) {
		t.Fatal("write failed in real mode")
	}
	v, ok := m.Read(c, 0x100, 4)
	if !ok || v != 0xDEADBEEF {
		t.Fatalf("got %#x, %v", v, ok)
	}
	if exc.calls != 0 {
		t.Fatalf("unexpected exception raised: %d", exc.kind)
	}
}

func TestDSIOnUnmappedRead(t *testing.T) {
	c, _, exc := newTestCPU(t)
	c.MsrDidChange(c.MSR | cpu.MSRDR | cpu.MSRIR)
	_, ok := c.MMU.Read(c, 0xDEADBEEF, 1)
	if ok {
		t.Fatal("expected failure on unmapped translation")
	}
	if exc.calls != 1 || exc.kind != cpu.ExcDSI {
		t.Fatalf("expected one DSI, got kind=%d calls=%d", exc.kind, exc.calls)
	}
}

func TestMisalignedDoublewordRaisesAlignment(t *testing.T) {
	c, _, exc := newTestCPU(t)
	if _, ok := c.MMU.Read(c, 0x103, 8); ok {
		t.Fatal("expected a misaligned doubleword read to fault")
	}
	if exc.calls != 1 || exc.kind != cpu.ExcAlignment {
		t.Fatalf("expected one alignment exception, got kind=%d calls=%d", exc.kind, exc.calls)
	}
}

func TestBATFastPath(t *testing.T) {
	c, _, exc := newTestCPU(t)
	c.MsrDidChange(c.MSR | cpu.MSRDR | cpu.MSRIR)
	c.DBAT[0] = cpu.BAT{
		Valid:  true,
		Access: 0x3,
		Prot:   2,
		BEPI:   0x80000000,
		HiMask: 0,
		PhysHi: 0x00100000,
	}
	if !c.MMU.Write(c, 0x80000040, 4, 0x12345678) {
		t.Fatal("BAT-mapped write failed")
	}
	v, ok := c.MMU.Read(c, 0x80000040, 4)
	if !ok || v != 0x12345678 {
		t.Fatalf("got %#x, %v", v, ok)
	}
	if exc.calls != 0 {
		t.Fatalf("unexpected exception: %d", exc.kind)
	}
}

// testPtabBase is the hashed page table's host base for the PAT-walk
// tests below: 1024 PTEGs of 64 bytes each, distinct from the RAM
// backing the pages it maps.
const testPtabBase = 0x00100000

func newPATTestCPU(t *testing.T) (*cpu.CPU, *MMU, *fakeExc) {
	t.Helper()
	reg := memmap.New()
	if err := reg.AddRAM(0, 0x10000); err != nil {
		t.Fatal(err)
	}
	if err := reg.AddRAM(testPtabBase, 0x10000); err != nil {
		t.Fatal(err)
	}
	if err := reg.AddRAM(0x00200000, 0x10000); err != nil {
		t.Fatal(err)
	}
	m := New(reg)
	c := cpu.New(cpu.Model750, slog.New(slog.NewTextHandler(io.Discard, nil)))
	exc := &fakeExc{}
	c.Exc = exc
	c.MMU = m
	c.SPR[cpu.SPRSDR1] = testPtabBase // HTABMASK=0: the 1024-PTEG minimum table
	c.MsrDidChange(c.MSR | cpu.MSRDR | cpu.MSRIR)
	return c, m, exc
}

// ptegEntryAddr mirrors ptegAddr for the test table: with HTABMASK=0
// only the low 10 hash bits select a PTEG. The test SR values keep
// their VSIDs below 2^19, so hashing with the VSID matches the
// walker's 19-bit hash input.
func ptegEntryAddr(vsid, pageIndex uint32, secondary bool) uint32 {
	hash := (vsid ^ pageIndex) & 1023
	if secondary {
		hash = (^(vsid ^ pageIndex)) & 1023
	}
	return testPtabBase + hash*ptegBytes
}

// installPTE writes a single valid PTE into the hashed page table for
// vsid's hash of pageIndex (primary or secondary PTEG), mapping to phys
// with the given PP bits and R/C both clear.
func installPTE(t *testing.T, m *MMU, vsid, pageIndex, phys, pp uint32, secondary bool) {
	t.Helper()
	entryAddr := ptegEntryAddr(vsid, pageIndex, secondary)
	api := (pageIndex >> 10) & 0x3F
	w0 := pteValidBit | (vsid&0x00FFFFFF)<<7 | api
	if secondary {
		w0 |= pteHBit
	}
	w1 := (phys &^ 0xFFF) | (pp & 0x3)
	e, ok := m.Mem.FindRange(entryAddr)
	if !ok {
		t.Fatalf("ptab entry %#x not backed by RAM", entryAddr)
	}
	off := entryAddr - e.Start
	endian.WriteBE(e.Host[off:off+4], 4, uint64(w0))
	endian.WriteBE(e.Host[off+4:off+8], 4, uint64(w1))
}

func pteWord1(t *testing.T, m *MMU, vsid, pageIndex uint32, secondary bool) uint32 {
	t.Helper()
	entryAddr := ptegEntryAddr(vsid, pageIndex, secondary)
	e, _ := m.Mem.FindRange(entryAddr)
	off := entryAddr - e.Start
	return uint32(endian.ReadBE(e.Host[off+4:off+8], 4))
}

func TestPATWalkSetsReferencedAndChangedOnWrite(t *testing.T) {
	c, m, exc := newPATTestCPU(t)
	c.SR[8] = 0x555 // Ks=Kp=0: key is always 0, PP alone governs access
	vaddr := uint32(0x80001000)
	pageIndex := (vaddr >> 12) & 0xFFFF
	installPTE(t, m, 0x555, pageIndex, 0x00200000, 2, false)

	if !m.Write(c, vaddr, 4, 0xCAFEBABE) {
		t.Fatal("PAT-mapped write failed")
	}
	w1 := pteWord1(t, m, 0x555, pageIndex, false)
	if w1&pteRMask == 0 {
		t.Fatal("R bit not set after a write")
	}
	if w1&pteCMask == 0 {
		t.Fatal("C bit not set after a write")
	}
	if exc.calls != 0 {
		t.Fatalf("unexpected exception: %d", exc.kind)
	}
}

func TestPATWalkSetsReferencedOnlyOnRead(t *testing.T) {
	c, m, exc := newPATTestCPU(t)
	c.SR[9] = 0x321
	vaddr := uint32(0x90002000)
	pageIndex := (vaddr >> 12) & 0xFFFF
	installPTE(t, m, 0x321, pageIndex, 0x00201000, 2, false)

	if _, ok := m.Read(c, vaddr, 4); !ok {
		t.Fatal("PAT-mapped read failed")
	}
	w1 := pteWord1(t, m, 0x321, pageIndex, false)
	if w1&pteRMask == 0 {
		t.Fatal("R bit not set after a read")
	}
	if w1&pteCMask != 0 {
		t.Fatal("C bit set by a mere read")
	}
	if exc.calls != 0 {
		t.Fatalf("unexpected exception: %d", exc.kind)
	}
}

func TestPATKeyDeniesAllAccessWhenPPZero(t *testing.T) {
	c, m, exc := newPATTestCPU(t)
	c.SR[10] = 0x42 | (1 << 30) // Ks=1; CPU is in supervisor mode so key=1
	vaddr := uint32(0xA0003000)
	pageIndex := (vaddr >> 12) & 0xFFFF
	installPTE(t, m, 0x42, pageIndex, 0x00202000, 0, false) // PP=00, key=1: no access

	if _, ok := m.Read(c, vaddr, 4); ok {
		t.Fatal("expected a protection violation, read succeeded")
	}
	if exc.calls != 1 || exc.kind != cpu.ExcDSI {
		t.Fatalf("expected one DSI, got kind=%d calls=%d", exc.kind, exc.calls)
	}
}

func TestPATPPThreeIsAlwaysReadOnly(t *testing.T) {
	c, m, exc := newPATTestCPU(t)
	c.SR[11] = 0x77 // Ks=Kp=0: key is always 0, yet PP=11 still blocks writes
	vaddr := uint32(0xB0004000)
	pageIndex := (vaddr >> 12) & 0xFFFF
	installPTE(t, m, 0x77, pageIndex, 0x00203000, 3, false)

	if _, ok := m.Read(c, vaddr, 4); !ok {
		t.Fatal("expected PP=11 page to still permit reads")
	}
	if exc.calls != 0 {
		t.Fatalf("unexpected exception on read: %d", exc.kind)
	}
	if m.Write(c, vaddr, 4, 0xFFFFFFFF) {
		t.Fatal("expected write to a PP=11 page to fault")
	}
	if exc.calls != 1 || exc.kind != cpu.ExcDSI {
		t.Fatalf("expected one DSI, got kind=%d calls=%d", exc.kind, exc.calls)
	}
}

func TestPATWalkFallsBackToSecondaryHash(t *testing.T) {
	c, m, exc := newPATTestCPU(t)
	c.SR[12] = 0x99
	vaddr := uint32(0xC0005000)
	pageIndex := (vaddr >> 12) & 0xFFFF
	installPTE(t, m, 0x99, pageIndex, 0x00204000, 2, true) // only the secondary PTEG has it

	if _, ok := m.Read(c, vaddr, 4); !ok {
		t.Fatal("expected the secondary-hash PTE to resolve the page")
	}
	if exc.calls != 0 {
		t.Fatalf("unexpected exception: %d", exc.kind)
	}
}

func TestTLBIAForcesRefill(t *testing.T) {
	c, m, exc := newPATTestCPU(t)
	c.SR[13] = 0xAA | (1 << 30) // Ks=1: key=1 in supervisor mode
	vaddr := uint32(0xD0006000)
	pageIndex := (vaddr >> 12) & 0xFFFF
	installPTE(t, m, 0xAA, pageIndex, 0x00205000, 2, false) // key=1, PP=10: read/write

	if _, ok := m.Read(c, vaddr, 4); !ok {
		t.Fatal("first read failed")
	}
	if exc.calls != 0 {
		t.Fatalf("unexpected exception before revoking access: %d", exc.kind)
	}

	// Revoke access at the PTE level (PP=00, key=1: no access). The
	// stale TLB entry keeps granting the access until it is flushed.
	entryAddr := ptegEntryAddr(0xAA, pageIndex, false)
	e, _ := m.Mem.FindRange(entryAddr)
	off := entryAddr - e.Start
	w1 := uint32(endian.ReadBE(e.Host[off+4:off+8], 4))
	endian.WriteBE(e.Host[off+4:off+8], 4, uint64(w1&^uint32(0x3)))

	if _, ok := m.Read(c, vaddr, 4); !ok {
		t.Fatal("expected the stale TLB entry to still permit the read")
	}

	m.FlushAll()
	if _, ok := m.Read(c, vaddr, 4); ok {
		t.Fatal("expected tlbia to force a refill that now denies access")
	}
	if exc.calls != 1 || exc.kind != cpu.ExcDSI {
		t.Fatalf("expected one DSI after refill, got kind=%d calls=%d", exc.kind, exc.calls)
	}
}

func TestROMWriteSilentlyAbsorbed(t *testing.T) {
	reg := memmap.New()
	if err := reg.AddROM(0, []byte{0xDE, 0xAD, 0xBE, 0xEF}); err != nil {
		t.Fatal(err)
	}
	m := New(reg)
	c := cpu.New(cpu.Model750, slog.New(slog.NewTextHandler(io.Discard, nil)))
	exc := &fakeExc{}
	c.Exc = exc
	c.MMU = m
	// MSR[IR,DR] clear by default: real mode, ROM resolved directly.

	if !m.Write(c, 0, 4, 0x11223344) {
		t.Fatal("a ROM write should be silently absorbed, not fail")
	}
	v, ok := m.Read(c, 0, 4)
	if !ok || v != 0xDEADBEEF {
		t.Fatalf("ROM contents changed by the write: got %#x, %v", v, ok)
	}
	if exc.calls != 0 {
		t.Fatalf("unexpected exception: %d", exc.kind)
	}
}

func TestCrosspageWrite(t *testing.T) {
	c, _, exc := newTestCPU(t)
	addr := uint32(0xFFD)
	if !c.MMU.Write(c, addr, 4, 0x01020304) {
		t.Fatal("crosspage write failed")
	}
	for i, want := range []byte{0x01, 0x02, 0x03, 0x04} {
		v, ok := c.MMU.Read(c, addr+uint32(i), 1)
		if !ok || byte(v) != want {
			t.Fatalf("byte %d: got %#x, %v", i, v, ok)
		}
	}
	if exc.calls != 0 {
		t.Fatalf("unexpected exception: %d", exc.kind)
	}
}

// TestPTECSetOnFirstWriteThroughReadFilledTLB reads first (TLB entry
// cached with C clear), then writes through the TLB hit: the PTE's C bit
// in guest memory must still be set by the write.
func TestPTECSetOnFirstWriteThroughReadFilledTLB(t *testing.T) {
	c, m, exc := newPATTestCPU(t)
	c.SR[8] = 0x444
	vaddr := uint32(0x80003000)
	pageIndex := (vaddr >> 12) & 0xFFFF
	installPTE(t, m, 0x444, pageIndex, 0x00202000, 2, false)

	if _, ok := m.Read(c, vaddr, 4); !ok {
		t.Fatal("priming read failed")
	}
	if w1 := pteWord1(t, m, 0x444, pageIndex, false); w1&pteCMask != 0 {
		t.Fatal("C bit set by the priming read")
	}
	if !m.Write(c, vaddr+8, 4, 1) {
		t.Fatal("write through cached TLB entry failed")
	}
	if w1 := pteWord1(t, m, 0x444, pageIndex, false); w1&pteCMask == 0 {
		t.Fatal("C bit not written back on the first write through a TLB hit")
	}
	if exc.calls != 0 {
		t.Fatalf("unexpected exception: %d", exc.kind)
	}
}

// TestFlushAllImplementsTlbie checks the hook wiring: a write through a
// cached entry after FlushAll must re-walk, observing a PTE swapped
// underneath the TLB.
func TestFlushAllImplementsTlbie(t *testing.T) {
	c, m, _ := newPATTestCPU(t)
	c.SR[8] = 0x456
	vaddr := uint32(0x80004000)
	pageIndex := (vaddr >> 12) & 0xFFFF
	installPTE(t, m, 0x456, pageIndex, 0x00203000, 2, false)

	if _, ok := m.Read(c, vaddr, 4); !ok {
		t.Fatal("priming read failed")
	}
	// Retarget the PTE to a different physical page, then flush.
	installPTE(t, m, 0x456, pageIndex, 0x00204000, 2, false)
	m.FlushAll()

	if !m.Write(c, vaddr, 4, 0x12345678) {
		t.Fatal("write after flush failed")
	}
	e, _ := m.Mem.FindRange(0x00204000)
	got := uint32(endian.ReadBE(e.Host[0x00204000-e.Start:][:4], 4))
	if got != 0x12345678 {
		t.Fatalf("write landed at the stale physical page (got %#x at new page)", got)
	}
}

// TestPATWalkResolvesExactPhysicalPage writes through a PAT mapping and
// reads the bytes back at the mapped physical address: the R/C update
// must not disturb the PTE's RPN field or skew the returned physical
// page.
func TestPATWalkResolvesExactPhysicalPage(t *testing.T) {
	c, m, exc := newPATTestCPU(t)
	c.SR[8] = 0x777
	vaddr := uint32(0x80005000)
	pageIndex := (vaddr >> 12) & 0xFFFF
	installPTE(t, m, 0x777, pageIndex, 0x00205000, 2, false)

	if !m.Write(c, vaddr+0x24, 4, 0xA5A55A5A) {
		t.Fatal("PAT-mapped write failed")
	}
	e, _ := m.Mem.FindRange(0x00205024)
	got := uint32(endian.ReadBE(e.Host[0x00205024-e.Start:][:4], 4))
	if got != 0xA5A55A5A {
		t.Fatalf("write landed at the wrong physical address (got %#x at 0x00205024)", got)
	}
	w1 := pteWord1(t, m, 0x777, pageIndex, false)
	if w1&0xFFFFF000 != 0x00205000 {
		t.Fatalf("PTE RPN corrupted by R/C update: word1 = %#x", w1)
	}
	if w1&pteRMask == 0 {
		t.Fatal("R bit not set")
	}
	if exc.calls != 0 {
		t.Fatalf("unexpected exception: %d", exc.kind)
	}
}

// TestFetchPhysicalMissRaisesISI fetches from an address whose
// translation succeeds (real mode identity) but whose physical page has
// no backing region: the fetch side must raise ISI, not DSI.
func TestFetchPhysicalMissRaisesISI(t *testing.T) {
	c, m, exc := newTestCPU(t)
	if _, ok := m.FetchInstruction(c, 0x00300000); ok {
		t.Fatal("expected a fetch from unbacked physical memory to fail")
	}
	if exc.calls != 1 || exc.kind != cpu.ExcISI {
		t.Fatalf("expected one ISI, got kind=%d calls=%d", exc.kind, exc.calls)
	}
}
