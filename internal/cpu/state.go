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

// Package cpu implements the PowerPC processor state, the dispatch
// tables, and the instruction handlers.
//
// The processor lives in a single state value (New returns &CPU, every
// handler is a func(c *CPU, op uint32) that mutates it) holding the full
// GPR/FPR/CR/XER/FPSCR/MSR/SPR/SR register file.
package cpu

import (
	"log/slog"

	"github.com/beigebox/ppc32/internal/ctxsync"
)

// Exec flag bits, a bitmap of pending post-dispatch conditions.
const (
	ExecBranch uint32 = 1 << iota
	ExecException
	ExecRFI
	ExecDecoderChanged
)

// MSR bit positions (subset this core cares about).
const (
	MSRLE  uint32 = 1 << 0  // little-endian mode
	MSRRI  uint32 = 1 << 1  // recoverable interrupt
	MSRPR  uint32 = 1 << 14 // problem state (user mode)
	MSRFP  uint32 = 1 << 13 // floating point available
	MSRME  uint32 = 1 << 12 // machine check enable
	MSRFE0 uint32 = 1 << 11
	MSRSE  uint32 = 1 << 10 // single-step trace
	MSRBE  uint32 = 1 << 9  // branch trace
	MSRFE1 uint32 = 1 << 8
	MSRIP  uint32 = 1 << 6 // exception prefix
	MSRIR  uint32 = 1 << 5 // instruction relocate
	MSRDR  uint32 = 1 << 4 // data relocate
	MSREE  uint32 = 1 << 15
)

// SPR slot numbers this core names explicitly; the remaining 1024-sized
// array holds unnamed architectural SPRs addressed directly by number.
const (
	SPRXER   = 1
	SPRLR    = 8
	SPRCTR   = 9
	SPRDSISR = 18
	SPRDAR   = 19
	SPRDEC   = 22
	SPRSDR1  = 25
	SPRSRR0  = 26
	SPRSRR1  = 27
	SPRSPRG0 = 272
	SPRSPRG1 = 273
	SPRSPRG2 = 274
	SPRSPRG3 = 275
	SPRMQ    = 0  // 601 MQ register
	SPRRTCU  = 4  // 601 real-time clock upper, read side
	SPRRTCL  = 5  // 601 real-time clock lower, read side
	SPRRTCUW = 20 // 601 RTC upper, write side
	SPRRTCLW = 21 // 601 RTC lower, write side
	SPRTBL   = 284
	SPRTBU   = 285
	SPRPVR   = 287
	SPRIBAT0U = 528
	SPRIBAT0L = 529
	SPRIBAT1U = 530
	SPRIBAT1L = 531
	SPRIBAT2U = 532
	SPRIBAT2L = 533
	SPRIBAT3U = 534
	SPRIBAT3L = 535
	SPRDBAT0U = 536
	SPRDBAT0L = 537
	SPRDBAT1U = 538
	SPRDBAT1L = 539
	SPRDBAT2U = 540
	SPRDBAT2L = 541
	SPRDBAT3U = 542
	SPRDBAT3L = 543
	SPRHID0   = 1008
	SPRHID1   = 1009
)

// PowerOffReason explains why the outer loop stopped running.
type PowerOffReason int

const (
	ReasonNone PowerOffReason = iota
	ReasonSignalInterrupt
	ReasonEnterDebugger
	ReasonQuit
	ReasonEndianSwitch
)

// MMUMode selects which of the three per-mode TLB sets is active.
type MMUMode int

const (
	ModeReal MMUMode = iota // translation off
	ModeSupervisor
	ModeUser
)

// Model identifies a supported PowerPC implementation.
type Model int

const (
	Model601 Model = iota
	Model603
	Model604
	Model750
)

// BAT holds one decoded IBAT/DBAT pair's state.
type BAT struct {
	Valid   bool
	Access  uint8  // Vs|Vp copy
	Prot    uint8  // PP bits
	PhysHi  uint32 // physical high-order bits
	HiMask  uint32 // logical address high-bit mask
	BEPI    uint32 // block effective page index
}

// CPU is the single process-scoped processor state value.
type CPU struct {
	GPR [32]uint32
	FPR [32]uint64 // raw IEEE-754 double bits

	CR   uint32 // condition register, 8 fields of 4 bits
	XER  uint32
	FPSCR uint32
	MSR  uint32
	SR   [16]uint32
	SPR  [1024]uint32

	Reserve     bool
	ReserveAddr uint32

	PC  uint32 // current instruction address (CIA)
	NIA uint32 // next_instruction_address

	ExecFlags uint32

	PowerOn        bool
	PowerOffReason PowerOffReason

	Model    Model
	Is601    bool
	HasAltivec bool

	IBAT [4]BAT
	DBAT [4]BAT

	// VR holds the AltiVec vector register file, used only when
	// HasAltivec is set.
	VR [32][2]uint64

	// Time base: 64-bit counter plus the bookkeeping needed to derive
	// DEC/TBL/TBU on demand.
	TBFreqHz     uint64
	TBLastWriteNS uint64
	TBLastValue  uint64
	DECLastWriteNS uint64
	DECLastValue  uint32
	RTCBaseNS      uint64 // 601 RTC: guest clock at last write
	RTCLastWriteNS uint64

	mode MMUMode // cached from MSR[IR,DR,PR]; see RecomputeMode

	Log *slog.Logger

	// The Pending* fields carry exception detail from a handler to the
	// interpreter's trampoline; see internal/except.
	PendingType  int
	PendingSRR1  uint32
	PendingDAR   uint32
	PendingDSISR uint32

	hooks Hooks
	Sync  *ctxsync.Queue

	MMU Memory
	Exc Exceptions
}

// New returns a freshly constructed CPU: clears registers, seeds control
// fields, and leaves MMU table construction to the caller (internal/mmu
// owns the TLB).
func New(model Model, log *slog.Logger) *CPU {
	c := &CPU{Model: model, Is601: model == Model601, Log: log}
	c.Reset()
	return c
}

// Reset places the CPU at the PowerPC reset vector with MSR[IP] (and
// MSR[ME] on 601) set.
func (c *CPU) Reset() {
	*c = CPU{
		Model: c.Model, Is601: c.Is601, HasAltivec: c.HasAltivec,
		Log: c.Log, TBFreqHz: c.TBFreqHz, hooks: c.hooks, Sync: c.Sync,
		MMU: c.MMU, Exc: c.Exc,
	}
	c.MSR = MSRIP
	if c.Is601 {
		c.MSR |= MSRME
	}
	c.PC = 0xFFF00100
	c.NIA = c.PC
	c.PowerOn = true
	c.PowerOffReason = ReasonNone
	c.SPR[SPRPVR] = pvrFor(c.Model)
	c.recomputeMode()
}

func pvrFor(m Model) uint32 {
	switch m {
	case Model601:
		return 0x00010001
	case Model603:
		return 0x00030001
	case Model604:
		return 0x00040001
	case Model750:
		return 0x00080200
	default:
		return 0
	}
}

// Mode returns the cached MMU mode derived from MSR[IR,DR,PR].
func (c *CPU) Mode() MMUMode {
	return c.mode
}

// recomputeMode re-derives c.mode from MSR. User-mode-without-translation
// is architecturally unreachable on these implementations and coerces to
// ModeReal.
func (c *CPU) recomputeMode() {
	ir := c.MSR&MSRIR != 0
	dr := c.MSR&MSRDR != 0
	if !ir && !dr {
		c.mode = ModeReal
		return
	}
	if c.MSR&MSRPR != 0 {
		c.mode = ModeUser
		return
	}
	c.mode = ModeSupervisor
}

// FPEnabled reports whether MSR[FP] is set.
func (c *CPU) FPEnabled() bool {
	return c.MSR&MSRFP != 0
}

// GetCRField returns the 4-bit CR field n (0 = most significant, field 0
// is bits 0-3).
func (c *CPU) GetCRField(n int) uint32 {
	shift := uint(28 - 4*n)
	return (c.CR >> shift) & 0xF
}

// SetCRField writes the 4-bit CR field n.
func (c *CPU) SetCRField(n int, v uint32) {
	shift := uint(28 - 4*n)
	mask := uint32(0xF) << shift
	c.CR = (c.CR &^ mask) | ((v & 0xF) << shift)
}

// SetCR0 sets CR field 0 from a signed comparison against zero plus the
// current XER[SO], as every integer Rc=1 form does.
func (c *CPU) SetCR0(result int32) {
	var v uint32
	switch {
	case result < 0:
		v = 0x8
	case result > 0:
		v = 0x4
	default:
		v = 0x2
	}
	if c.XER&XERSOBit != 0 {
		v |= 0x1
	}
	c.SetCRField(0, v)
}

// XER bit positions, IBM bit-numbering (bit 0 = MSB).
const (
	XERSOBit       uint32 = 1 << 31 // bit 0: summary overflow
	XEROverflowBit uint32 = 1 << 30 // bit 1: overflow
	XERCarryBit    uint32 = 1 << 29 // bit 2: carry
)
