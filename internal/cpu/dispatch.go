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

// Opcode decoder table construction and dispatch.
//
// Two 64*2048-entry flat arrays (Tables.FPOn, Tables.FPOff) are built once
// at init by a domain-specific set of fill helpers (op/opx), keyed by
// index = (primary<<11) | opcode[21:31], i.e.
// index = (opcode >> 15) & 0x1F800 | (opcode & 0x7FF).
package cpu

// TableSize is 64 primary opcodes times 2048 (11-bit) modifier slots.
const TableSize = 64 * 2048

// OpFunc is one decoded instruction handler. Handlers never return an
// error: exceptional conditions call c.Exc.Raise, which performs a
// non-local exit.
type OpFunc func(c *CPU, op uint32)

// Tables holds the two sibling dispatch tables.
type Tables struct {
	FPOn  [TableSize]OpFunc
	FPOff [TableSize]OpFunc
}

// Index computes the dispatch-table slot for a raw instruction word.
func Index(op uint32) int {
	return int((op>>15)&0x1F800 | (op & 0x7FF))
}

// op fills every modifier slot of primary opcode p with fn: used for
// forms (branches, immediate arithmetic, load/store) where the bits
// shared with the table index are operand bits, not a sub-opcode.
func op(t *[TableSize]OpFunc, p uint32, fn OpFunc) {
	base := int(p) << 11
	for i := 0; i < 2048; i++ {
		t[base+i] = fn
	}
}

// opx fills the two slots (Rc/LK = 0 and 1) of primary p, extended
// opcode xo, since every extended form carries either Rc or LK there.
func opx(t *[TableSize]OpFunc, p, xo uint32, fn OpFunc) {
	base := (int(p) << 11) | (int(xo) << 1)
	t[base] = fn
	t[base+1] = fn
}

// opFP is op, additionally marking every filled slot in mask — used for
// the floating-point primaries so BuildTables knows which slots to
// replace with fpUnavailable in the FP-off table.
func opFP(t *[TableSize]OpFunc, mask *[TableSize]bool, p uint32, fn OpFunc) {
	op(t, p, fn)
	base := int(p) << 11
	for i := 0; i < 2048; i++ {
		mask[base+i] = true
	}
}

// opv fills the single slot of a VX-form AltiVec instruction, whose
// 11-bit extended opcode occupies the entire modifier-bit range.
func opv(t *[TableSize]OpFunc, p, xo11 uint32, fn OpFunc) {
	t[(int(p)<<11)|int(xo11)] = fn
}

// opaFP fills every slot of an A-form floating-point instruction:
// bits 21..25 of the index are the FRC operand field, so all 32 values
// (times Rc) map to the same handler. The 5-bit A-form extended opcodes
// were assigned so their slots never collide with the 10-bit X-form
// space on the same primary.
func opaFP(t *[TableSize]OpFunc, mask *[TableSize]bool, p, xo5 uint32, fn OpFunc) {
	for frc := 0; frc < 32; frc++ {
		base := (int(p) << 11) | (frc << 6) | (int(xo5) << 1)
		t[base] = fn
		t[base+1] = fn
		mask[base] = true
		mask[base+1] = true
	}
}

// opxFP is opx with the same mask bookkeeping.
func opxFP(t *[TableSize]OpFunc, mask *[TableSize]bool, p, xo uint32, fn OpFunc) {
	opx(t, p, xo, fn)
	base := (int(p) << 11) | (int(xo) << 1)
	mask[base] = true
	mask[base+1] = true
}

// BuildTables constructs both dispatch tables for the given model:
// first fill with illegalOp, then install concrete handlers, then
// enable model-specific (601 legacy, AltiVec) blocks, then derive the
// FP-off table as a copy with FP slots replaced by fpUnavailable.
func BuildTables(model Model, hasAltivec bool) *Tables {
	tabs := &Tables{}
	for i := range tabs.FPOn {
		tabs.FPOn[i] = opIllegal
	}

	var fpSlots [TableSize]bool

	installBranch(tabs)
	installFixed(tabs)
	installCRLogic(tabs)
	installLoadStore(tabs)
	installSystem(tabs)
	installFPU(tabs, &fpSlots)

	if model == Model601 {
		install601Legacy(tabs)
	}
	if hasAltivec {
		installAltivec(tabs)
	}

	tabs.FPOff = tabs.FPOn
	for i := range tabs.FPOff {
		if fpSlots[i] {
			tabs.FPOff[i] = opFPUnavailable
		}
	}
	return tabs
}

// Dispatch decodes and executes one instruction using the active table.
func Dispatch(c *CPU, tabs *Tables, instr uint32) {
	var t *[TableSize]OpFunc
	if c.FPEnabled() {
		t = &tabs.FPOn
	} else {
		t = &tabs.FPOff
	}
	t[Index(instr)](c, instr)
}

func opIllegal(c *CPU, _ uint32) {
	c.Exc.Raise(c, ExcProgram, CauseIllegalOp)
}

func opFPUnavailable(c *CPU, _ uint32) {
	c.Exc.Raise(c, ExcNoFPU, CauseFPUOff)
}
