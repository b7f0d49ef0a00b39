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

import (
	"encoding/binary"
	"io"
	"log/slog"
	"testing"

	"github.com/beigebox/ppc32/internal/ctxsync"
)

func testCPU() *CPU {
	return New(Model750, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// flatMem is a tiny byte-addressed Memory stub backing load/store tests;
// it has no translation of its own, matching real-addressing mode.
type flatMem struct {
	buf [256]byte
}

func (m *flatMem) FetchInstruction(c *CPU, vaddr uint32) (uint32, bool) {
	return binary.BigEndian.Uint32(m.buf[vaddr:]), true
}

func (m *flatMem) Read(c *CPU, vaddr uint32, size int) (uint64, bool) {
	switch size {
	case 1:
		return uint64(m.buf[vaddr]), true
	case 2:
		return uint64(binary.BigEndian.Uint16(m.buf[vaddr:])), true
	case 4:
		return uint64(binary.BigEndian.Uint32(m.buf[vaddr:])), true
	case 8:
		return binary.BigEndian.Uint64(m.buf[vaddr:]), true
	default:
		return 0, false
	}
}

func (m *flatMem) Write(c *CPU, vaddr uint32, size int, val uint64) bool {
	switch size {
	case 1:
		m.buf[vaddr] = byte(val)
	case 2:
		binary.BigEndian.PutUint16(m.buf[vaddr:], uint16(val))
	case 4:
		binary.BigEndian.PutUint32(m.buf[vaddr:], uint32(val))
	case 8:
		binary.BigEndian.PutUint64(m.buf[vaddr:], val)
	default:
		return false
	}
	return true
}

func dForm(op, rt, ra uint32, simm int16) uint32 {
	return (op << 26) | (rt << 21) | (ra << 16) | uint32(uint16(simm))
}

func xForm(op, rt, ra, rb, xo uint32, rc bool) uint32 {
	v := (op << 26) | (rt << 21) | (ra << 16) | (rb << 11) | (xo << 1)
	if rc {
		v |= 1
	}
	return v
}

func TestAddiComputesRtPlusSimm(t *testing.T) {
	c := testCPU()
	c.GPR[1] = 10
	opAddi(c, dForm(14, 3, 1, -4))
	if c.GPR[3] != 6 {
		t.Errorf("addi r3,r1,-4 = %d, want 6", c.GPR[3])
	}
}

func TestAddiWithRA0TreatsRA0AsLiteralZero(t *testing.T) {
	c := testCPU()
	c.GPR[0] = 0xdead // RA field 0 means "literal 0", not GPR0's value
	opAddi(c, dForm(14, 3, 0, 5))
	if c.GPR[3] != 5 {
		t.Errorf("addi r3,0,5 = %#x, want 5", c.GPR[3])
	}
}

func TestAddSetsOverflowOnSignedWrap(t *testing.T) {
	c := testCPU()
	c.GPR[1] = 0x7FFFFFFF
	c.GPR[2] = 1
	op := xForm(31, 3, 1, 2, 266, false) | (1 << 10) // OE=1
	opAdd(c, op)
	if c.GPR[3] != 0x80000000 {
		t.Errorf("add result = %#x, want 0x80000000", c.GPR[3])
	}
	if c.XER&XEROverflowBit == 0 {
		t.Error("XER[OV] not set on signed overflow")
	}
	if c.XER&XERSOBit == 0 {
		t.Error("XER[SO] not set alongside OV")
	}
}

func TestAddDotSetsCR0FromResult(t *testing.T) {
	c := testCPU()
	c.GPR[1] = 5
	c.GPR[2] = 0xFFFFFFFB // -5
	opAdd(c, xForm(31, 3, 1, 2, 266, true))
	if c.GPR[3] != 0 {
		t.Fatalf("add result = %#x, want 0", c.GPR[3])
	}
	if c.GetCRField(0) != 0x2 {
		t.Errorf("CR0 = %#x, want EQ (0x2)", c.GetCRField(0))
	}
}

func TestSubfComputesRbMinusRa(t *testing.T) {
	c := testCPU()
	c.GPR[1] = 4
	c.GPR[2] = 10
	opSubf(c, xForm(31, 3, 1, 2, 40, false))
	if c.GPR[3] != 6 {
		t.Errorf("subf r3,r1,r2 = %d, want 6", c.GPR[3])
	}
}

func TestDivwByZeroLeavesResultUndefinedButFlagsOverflow(t *testing.T) {
	c := testCPU()
	c.GPR[1] = 10
	c.GPR[2] = 0
	opDivw(c, xForm(31, 3, 1, 2, 491, false)|(1<<10))
	if c.XER&XEROverflowBit == 0 {
		t.Error("divw by zero must set XER[OV] when OE=1")
	}
}

func TestCmpiSetsLTForNegativeComparison(t *testing.T) {
	c := testCPU()
	c.GPR[1] = 0xFFFFFFFF // -1
	opCmpi(c, dForm(11, 0, 1, 0))
	if c.GetCRField(0) != 0x8 {
		t.Errorf("cmpi cr0,r1,0 = %#x, want LT (0x8)", c.GetCRField(0))
	}
}

func TestRlwinmExtractsAndMasksField(t *testing.T) {
	c := testCPU()
	c.GPR[1] = 0x12345678
	// rlwinm r3,r1,16,24,31 -> rotate left 16, keep low byte: 0x34
	op := uint32((21 << 26) | (1 << 21) | (3 << 16) | (16 << 11) | (24 << 6) | (31 << 1))
	opRlwinm(c, op)
	if c.GPR[3] != 0x34 {
		t.Errorf("rlwinm r3,r1,16,24,31 = %#x, want 0x34", c.GPR[3])
	}
}

func TestCntlzwCountsLeadingZeros(t *testing.T) {
	c := testCPU()
	c.GPR[1] = 0x0000_0001
	opCntlzw(c, xForm(31, 1, 3, 0, 26, false))
	if c.GPR[3] != 31 {
		t.Errorf("cntlzw(1) = %d, want 31", c.GPR[3])
	}
}

func TestOpBUnconditionalBranchSetsNIAAndFlag(t *testing.T) {
	c := testCPU()
	c.PC = 0x1000
	c.NIA = 0x1004
	opB(c, (18<<26)|0x100) // b +0x100, AA=0, LK=0
	if c.NIA != 0x1100 {
		t.Errorf("branch target = %#x, want 0x1100", c.NIA)
	}
	if c.ExecFlags&ExecBranch == 0 {
		t.Error("ExecBranch not set after b")
	}
	if c.SPR[SPRLR] != 0 {
		t.Error("LR written despite LK=0")
	}
}

func TestOpBWithLinkSavesReturnAddress(t *testing.T) {
	c := testCPU()
	c.PC = 0x2000
	c.NIA = 0x2004
	opB(c, (18<<26)|0x10|1) // bl +0x10
	if c.SPR[SPRLR] != 0x2004 {
		t.Errorf("LR = %#x, want 0x2004", c.SPR[SPRLR])
	}
}

func TestOpBCLRReturnsToSavedLR(t *testing.T) {
	c := testCPU()
	c.SPR[SPRLR] = 0x4000
	// BO=20 (10100): ignore CTR, branch always
	op := xForm(19, 20, 0, 0, 16, false)
	opBCLR(c, op)
	if c.NIA != 0x4000 {
		t.Errorf("bclr target = %#x, want 0x4000", c.NIA)
	}
}

func TestLwzStwRoundTripThroughMemory(t *testing.T) {
	c := testCPU()
	c.MMU = &flatMem{}
	c.GPR[1] = 0
	c.GPR[2] = 0xCAFEBABE
	opStw(c, dForm(36, 2, 1, 8))
	opLwz(c, dForm(32, 3, 1, 8))
	if c.GPR[3] != 0xCAFEBABE {
		t.Errorf("lwz after stw = %#x, want 0xcafebabe", c.GPR[3])
	}
}

func TestLbzSignExtensionNotAppliedUnlikeLha(t *testing.T) {
	c := testCPU()
	c.MMU = &flatMem{}
	c.GPR[1] = 0
	c.GPR[2] = 0xFF
	opStb(c, dForm(38, 2, 1, 0))
	opLbz(c, dForm(34, 3, 1, 0))
	if c.GPR[3] != 0xFF {
		t.Errorf("lbz = %#x, want 0xff (zero extended)", c.GPR[3])
	}
}

func TestLwarxStwcxSucceedsWithoutInterveningWrite(t *testing.T) {
	c := testCPU()
	c.MMU = &flatMem{}
	c.GPR[1] = 0
	c.GPR[2] = 0x20
	c.GPR[3] = 0x99
	opLwarx(c, xForm(31, 4, 1, 2, 20, false))
	if !c.Reserve {
		t.Fatal("lwarx did not set reservation")
	}
	opStwcxDot(c, xForm(31, 3, 1, 2, 150, true))
	if c.GetCRField(0)&0x2 == 0 {
		t.Error("stwcx. should report success (EQ set) when reservation still held")
	}
	if c.Reserve {
		t.Error("reservation must be cleared after stwcx. regardless of outcome")
	}
}

func TestStwcxFailsWithoutPriorLwarx(t *testing.T) {
	c := testCPU()
	c.MMU = &flatMem{}
	opStwcxDot(c, xForm(31, 3, 1, 2, 150, true))
	if c.GetCRField(0)&0x2 != 0 {
		t.Error("stwcx. without a reservation must report failure")
	}
}

func TestFaddComputesHostDoubleSum(t *testing.T) {
	c := testCPU()
	fset(c, 1, 1.5)
	fset(c, 2, 2.25)
	opFadd(c, xForm(63, 3, 1, 2, 21, false))
	if got := fget(c, 3); got != 3.75 {
		t.Errorf("fadd f3,f1,f2 = %v, want 3.75", got)
	}
}

func TestStfdLfdRoundTripPreservesBits(t *testing.T) {
	c := testCPU()
	c.MMU = &flatMem{}
	fset(c, 1, -12345.6789)
	opStfd(c, dForm(54, 1, 0, 16))
	opLfd(c, dForm(50, 2, 0, 16))
	if fget(c, 2) != -12345.6789 {
		t.Errorf("lfd after stfd = %v, want -12345.6789", fget(c, 2))
	}
}

func TestBuildTablesFPOffReplacesFPSlotsWithUnavailableTrap(t *testing.T) {
	tabs := BuildTables(Model750, false)
	// lfd (primary 50) is a floating-point load; its FP-off slot must trap.
	idx := Index(50 << 26)
	if tabs.FPOn[idx] == nil {
		t.Fatal("lfd has no handler in the FP-on table")
	}
	c := testCPU()
	spy := &raiseSpy{}
	c.Exc = spy
	tabs.FPOff[idx](c, 50<<26)
	if !spy.raised || spy.kind != ExcNoFPU {
		t.Error("FP-off slot of lfd must raise the FP-unavailable trap")
	}
	// Slots no installX call touches keep the opIllegal default in both.
	if tabs.FPOn[Index(0)] == nil || tabs.FPOff[Index(0)] == nil {
		t.Fatal("illegal-opcode slot 0 has no default handler")
	}
}

func TestDispatchSelectsFPOffTableWhenMSRFPClear(t *testing.T) {
	c := testCPU()
	tabs := BuildTables(Model750, false)
	c.MSR &^= MSRFP
	spy := &raiseSpy{}
	c.Exc = spy
	// A fixed-point nop-ish instruction (addi r0,r0,0) must still execute
	// normally in the FP-off table, since only FP-class slots trap.
	Dispatch(c, tabs, dForm(14, 0, 0, 0))
	if spy.raised {
		t.Error("non-FP instruction must not trap in the FP-off table")
	}
	// An FP load (lfd) dispatched with MSR[FP] clear reaches the FP-off
	// table's FP-unavailable trap.
	Dispatch(c, tabs, dForm(50, 1, 0, 0))
	if !spy.raised || spy.kind != ExcNoFPU {
		t.Error("lfd with MSR[FP] clear must raise the FP-unavailable trap")
	}
}

// raiseSpy is a minimal Exceptions stub recording whether Raise fired,
// without performing a non-local exit (the real engine lives in
// internal/except and is tested there).
type raiseSpy struct {
	raised   bool
	kind     int
	srr1Bits uint32
}

func (r *raiseSpy) Raise(c *CPU, kind int, srr1Bits uint32) {
	r.raised = true
	r.kind = kind
	r.srr1Bits = srr1Bits
}

func TestResetPlacesCPUAtResetVector(t *testing.T) {
	c := testCPU()
	if c.PC != 0xFFF00100 {
		t.Errorf("PC = %#x, want reset vector 0xFFF00100", c.PC)
	}
	if c.NIA != c.PC {
		t.Errorf("NIA = %#x, want to match PC", c.NIA)
	}
	if c.MSR&MSRIP == 0 {
		t.Error("MSR[IP] must be set coming out of reset")
	}
	if !c.PowerOn {
		t.Error("PowerOn must be true coming out of reset")
	}
	if c.Mode() != ModeReal {
		t.Errorf("mode = %v, want ModeReal with MSR[IR,DR] both clear out of reset", c.Mode())
	}
}

func TestIllegalOpcodeRaisesProgramException(t *testing.T) {
	c := testCPU()
	tabs := BuildTables(Model750, false)
	spy := &raiseSpy{}
	c.Exc = spy
	// Primary opcode 1 is unused by every installX call in this core.
	Dispatch(c, tabs, uint32(1)<<26)
	if !spy.raised {
		t.Fatal("unimplemented primary opcode must raise through c.Exc")
	}
	if spy.kind != ExcProgram || spy.srr1Bits != CauseIllegalOp {
		t.Errorf("got kind=%d cause=%#x, want ExcProgram/CauseIllegalOp", spy.kind, spy.srr1Bits)
	}
}

func TestAddeAddsCarryIn(t *testing.T) {
	c := testCPU()
	c.GPR[1] = 0xFFFFFFFF
	c.GPR[2] = 0
	c.XER |= XERCarryBit
	opAdde(c, xForm(31, 3, 1, 2, 138, false))
	if c.GPR[3] != 0 {
		t.Errorf("adde = %#x, want 0 (0xFFFFFFFF + 0 + CA)", c.GPR[3])
	}
	if c.XER&XERCarryBit == 0 {
		t.Error("adde must set CA on carry out of bit 0")
	}
}

func TestSubfcSetsCarryLikeNotBorrow(t *testing.T) {
	c := testCPU()
	c.GPR[1] = 3
	c.GPR[2] = 5
	opSubfc(c, xForm(31, 3, 1, 2, 8, false))
	if c.GPR[3] != 2 {
		t.Errorf("subfc = %d, want 2", c.GPR[3])
	}
	if c.XER&XERCarryBit == 0 {
		t.Error("subfc 5-3 must set CA (no borrow)")
	}
	c.GPR[1] = 5
	c.GPR[2] = 3
	opSubfc(c, xForm(31, 3, 1, 2, 8, false))
	if c.XER&XERCarryBit != 0 {
		t.Error("subfc 3-5 must clear CA (borrow)")
	}
}

func TestAddzePropagatesCarryChain(t *testing.T) {
	c := testCPU()
	c.GPR[1] = 0xFFFFFFFF
	c.XER |= XERCarryBit
	opAddze(c, xForm(31, 3, 1, 0, 202, false))
	if c.GPR[3] != 0 || c.XER&XERCarryBit == 0 {
		t.Errorf("addze = %#x CA=%v, want 0 with CA set", c.GPR[3], c.XER&XERCarryBit != 0)
	}
}

func TestMulhwReturnsHighWord(t *testing.T) {
	c := testCPU()
	c.GPR[1] = 0x10000
	c.GPR[2] = 0x10000
	opMulhw(c, xForm(31, 3, 1, 2, 75, false))
	if c.GPR[3] != 1 {
		t.Errorf("mulhw(0x10000,0x10000) = %d, want 1", c.GPR[3])
	}
	c.GPR[1] = 0xFFFFFFFF // -1
	c.GPR[2] = 2
	opMulhw(c, xForm(31, 3, 1, 2, 75, false))
	if c.GPR[3] != 0xFFFFFFFF {
		t.Errorf("mulhw(-1,2) high word = %#x, want 0xFFFFFFFF", c.GPR[3])
	}
}

func TestCrandCombinesCRBits(t *testing.T) {
	c := testCPU()
	setCRBit(c, 1, 1)
	setCRBit(c, 2, 1)
	opCrand(c, xForm(19, 0, 1, 2, 257, false))
	if crBit(c, 0) != 1 {
		t.Error("crand of two set bits must set the target bit")
	}
	setCRBit(c, 2, 0)
	opCrand(c, xForm(19, 0, 1, 2, 257, false))
	if crBit(c, 0) != 0 {
		t.Error("crand with a clear operand must clear the target bit")
	}
}

func TestMtcrfUpdatesOnlySelectedFields(t *testing.T) {
	c := testCPU()
	c.CR = 0x12345678
	c.GPR[1] = 0xFFFFFFFF
	// FXM selects field 0 only.
	op := uint32(31)<<26 | 1<<21 | 0x80<<12 | 144<<1
	opMtcrf(c, op)
	if c.CR != 0xF2345678 {
		t.Errorf("mtcrf(fxm=0x80) CR = %#x, want 0xF2345678", c.CR)
	}
}

func TestMcrxrMovesAndClearsXERBits(t *testing.T) {
	c := testCPU()
	c.XER = XERSOBit | XERCarryBit
	opMcrxr(c, xForm(31, 12, 0, 0, 512, false)) // BF = 3
	if got := c.GetCRField(3); got != 0xA {
		t.Errorf("mcrxr CR field = %#x, want SO|CA = 0xA", got)
	}
	if c.XER&(XERSOBit|XEROverflowBit|XERCarryBit) != 0 {
		t.Error("mcrxr must clear XER[SO,OV,CA]")
	}
}

func TestLwbrxReversesBytes(t *testing.T) {
	c := testCPU()
	mem := &flatMem{}
	c.MMU = mem
	binary.BigEndian.PutUint32(mem.buf[16:], 0x11223344)
	c.GPR[2] = 16
	opLwbrx(c, xForm(31, 3, 0, 2, 534, false))
	if c.GPR[3] != 0x44332211 {
		t.Errorf("lwbrx = %#x, want 0x44332211", c.GPR[3])
	}
}

func TestStwbrxThenLwzRoundTrips(t *testing.T) {
	c := testCPU()
	mem := &flatMem{}
	c.MMU = mem
	c.GPR[3] = 0xAABBCCDD
	c.GPR[2] = 32
	opStwbrx(c, xForm(31, 3, 0, 2, 662, false))
	if got := binary.BigEndian.Uint32(mem.buf[32:]); got != 0xDDCCBBAA {
		t.Errorf("stwbrx stored %#x, want 0xDDCCBBAA", got)
	}
}

func TestLswiPacksBytesBigEndian(t *testing.T) {
	c := testCPU()
	mem := &flatMem{}
	c.MMU = mem
	copy(mem.buf[8:], []byte{1, 2, 3, 4, 5})
	c.GPR[2] = 8
	// lswi r4, r2, 5
	op := uint32(31)<<26 | 4<<21 | 2<<16 | 5<<11 | 597<<1
	opLswi(c, op)
	if c.GPR[4] != 0x01020304 {
		t.Errorf("lswi first register = %#x, want 0x01020304", c.GPR[4])
	}
	if c.GPR[5] != 0x05000000 {
		t.Errorf("lswi partial register = %#x, want 0x05000000", c.GPR[5])
	}
}

func TestDcbzZeroesCacheLine(t *testing.T) {
	c := testCPU()
	mem := &flatMem{}
	c.MMU = mem
	for i := range mem.buf {
		mem.buf[i] = 0xFF
	}
	c.GPR[2] = 70 // inside the line at 64
	opDcbz(c, xForm(31, 0, 0, 2, 1014, false))
	for i := 64; i < 96; i++ {
		if mem.buf[i] != 0 {
			t.Fatalf("dcbz left byte %d = %#x, want 0", i, mem.buf[i])
		}
	}
	if mem.buf[63] != 0xFF || mem.buf[96] != 0xFF {
		t.Error("dcbz must not touch bytes outside its 32-byte line")
	}
}

func TestWriteBATRangeDecodesAllFourPairs(t *testing.T) {
	c := testCPU()
	for i, upper := range []int{SPRIBAT0U, SPRIBAT1U, SPRIBAT2U, SPRIBAT3U} {
		c.writeSPR(upper, 0x80000000|uint32(i)<<17|0x3) // BEPI + Vs|Vp
		c.writeSPR(upper+1, 0x00100002)
		if !c.IBAT[i].Valid {
			t.Errorf("IBAT%d not marked valid after upper write", i)
		}
		if c.IBAT[i].Prot != 2 {
			t.Errorf("IBAT%d PP = %d, want 2", i, c.IBAT[i].Prot)
		}
	}
	c.writeSPR(SPRDBAT2U, 0x90000003)
	if !c.DBAT[2].Valid {
		t.Error("DBAT2 not decoded from its SPR pair")
	}
}

func TestMtsprDECWritesDecrementer(t *testing.T) {
	c := testCPU()
	c.TBFreqHz = 0 // freeze derivation so the write is directly readable
	c.writeSPR(SPRDEC, 1234)
	if got := c.readDecrementer(); got != 1234 {
		t.Errorf("DEC = %d after mtspr(DEC, 1234), want 1234", got)
	}
}

func TestMftbReadsTBRNumbers(t *testing.T) {
	c := testCPU()
	c.TBFreqHz = 0
	c.TBLastValue = 0x11223344_55667788
	// mftb rt, 268 (TBL): spr field is swapped-halves encoding.
	lo := uint32(31)<<26 | 3<<21 | ((268&0x1F)<<16 | (268>>5)<<11) | 371<<1
	opMftb(c, lo)
	if c.GPR[3] != 0x55667788 {
		t.Errorf("mftb(TBL) = %#x, want 0x55667788", c.GPR[3])
	}
	hi := uint32(31)<<26 | 4<<21 | ((269&0x1F)<<16 | (269>>5)<<11) | 371<<1
	opMftb(c, hi)
	if c.GPR[4] != 0x11223344 {
		t.Errorf("mftb(TBU) = %#x, want 0x11223344", c.GPR[4])
	}
}

func TestFmaddFusesMultiplyAdd(t *testing.T) {
	c := testCPU()
	fset(c, 1, 2.0)
	fset(c, 2, 3.0)
	fset(c, 3, 4.0)
	// fmadd f0, f1, f2(C), f3(B)
	op := uint32(63)<<26 | 0<<21 | 1<<16 | 3<<11 | 2<<6 | 29<<1
	opFmadd(c, op)
	if got := fget(c, 0); got != 10.0 {
		t.Errorf("fmadd(2*3+4) = %v, want 10", got)
	}
}

func TestFctiwzTruncatesAndSaturates(t *testing.T) {
	c := testCPU()
	fset(c, 1, -2.9)
	opFctiwz(c, xForm(63, 0, 0, 1, 15, false))
	if got := int32(uint32(c.FPR[0])); got != -2 {
		t.Errorf("fctiwz(-2.9) = %d, want -2 (truncate toward zero)", got)
	}
	fset(c, 1, 1e12)
	opFctiwz(c, xForm(63, 0, 0, 1, 15, false))
	if got := int32(uint32(c.FPR[0])); got != 1<<31-1 {
		t.Errorf("fctiwz(1e12) = %d, want saturation to MaxInt32", got)
	}
}

func TestFPOffTableTrapsIndexedFPLoads(t *testing.T) {
	tabs := BuildTables(Model750, false)
	// lfdx is primary 31, so the FP-off table must trap it even though
	// its primary opcode is shared with fixed-point forms.
	op := xForm(31, 1, 0, 2, 599, false)
	c := testCPU()
	spy := &raiseSpy{}
	c.Exc = spy
	tabs.FPOff[Index(op)](c, op)
	if !spy.raised || spy.kind != ExcNoFPU {
		t.Error("FP-off dispatch of lfdx must raise the FP-unavailable trap")
	}
}

func TestMtsrQueuesPATFlushUntilSync(t *testing.T) {
	c := testCPU()
	sync := ctxsync.New()
	flushed := false
	c.Attach(Hooks{FlushPAT: func() { flushed = true }}, sync)
	// mtsr sr3, r1
	c.GPR[1] = 0x1234
	opMtsr(c, uint32(31)<<26|1<<21|3<<16|210<<1)
	if c.SR[3] != 0x1234 {
		t.Errorf("SR[3] = %#x, want 0x1234", c.SR[3])
	}
	if flushed {
		t.Fatal("PAT flush must be queued, not run inside the handler")
	}
	opISync(c, 0)
	if !flushed {
		t.Error("isync must drain the queued PAT flush")
	}
}

func TestTlbieFlushesThroughHook(t *testing.T) {
	c := testCPU()
	flushed := false
	c.Attach(Hooks{FlushTLB: func() { flushed = true }}, ctxsync.New())
	opTlbie(c, 0)
	if !flushed {
		t.Error("tlbie must invoke the TLB flush hook immediately")
	}
}

func Test601RTCReadsSecondsAndNanoseconds(t *testing.T) {
	c := New(Model601, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.writeRTCU(5)
	u := c.readRTCU()
	l := c.readRTCL()
	if u != 5 {
		t.Errorf("RTCU = %d immediately after writing 5", u)
	}
	if l%128 != 0 {
		t.Errorf("RTCL = %d, low 7 bits must read zero", l)
	}
}

func TestSubficCarryTracksNoBorrow(t *testing.T) {
	c := testCPU()
	c.GPR[1] = 3
	opSubfic(c, dForm(8, 3, 1, 5)) // 5 - 3
	if c.GPR[3] != 2 || c.XER&XERCarryBit == 0 {
		t.Errorf("subfic 5-3 = %d CA=%v, want 2 with CA set", c.GPR[3], c.XER&XERCarryBit != 0)
	}
	c.GPR[1] = 7
	opSubfic(c, dForm(8, 3, 1, 5)) // 5 - 7 borrows
	if c.XER&XERCarryBit != 0 {
		t.Error("subfic 5-7 must clear CA (borrow)")
	}
}
