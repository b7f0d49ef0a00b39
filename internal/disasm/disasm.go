/*
 * ppc32 - PowerPC disassembler.
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

// Package disasm implements a native PowerPC disassembler: a map keyed
// by opcode value to a {name, operand-format, flags} record, walked by a
// single Format entry point that switches on operand shape to build the
// operand string. The table is keyed by (primary<<11)|xo, the 10-bit
// extended opcode without the Rc bit, so both Rc forms of an encoding
// share one entry.
package disasm

import "fmt"

// operandForm selects how Format renders an instruction's operands.
type operandForm int

const (
	formNone    operandForm = iota
	formRcAlu3  // rt, ra, rb (d-form alu: rt, ra, simm)
	formAlu3Imm // rt, ra, SIMM
	formAluLog  // ra, rs, rb  (logical ops list rs first: and ra,rs,rb)
	formAluLogImm
	formLoadStore // rt, d(ra)
	formBranch    // absolute/relative target
	formBranchCond
	formBranchReg // bclr/bcctr
	formSPR       // mtspr/mfspr: spr, rs|rt
	formShift     // rlwinm-family: ra, rs, sh, mb, me
	formTrap      // twi/tw: TO, ra, (rb|SIMM)
	formCmp       // cmp crf, ra, rb/SIMM/UIMM
)

type opcode struct {
	name  string
	form  operandForm
	alu   bool // true if this is an OE/Rc-templated fixed-point op (name gets "o"/"." suffixes)
}

// table is keyed by idx(primary, xo); primaries without an extended
// opcode use xo 0.
var table = map[uint32]opcode{}

func idx(primary uint32, ext uint32) uint32 {
	return (primary << 11) | (ext & 0x7FF)
}

func reg(primary uint32, name string, form operandForm) {
	table[idx(primary, 0)] = opcode{name: name, form: form}
}

func ext(primary, xo uint32, name string, form operandForm) {
	table[idx(primary, xo)] = opcode{name: name, form: form, alu: primary == 31 && form == formRcAlu3}
}

func init() {
	// Branch forms.
	reg(18, "b", formBranch)
	reg(16, "bc", formBranchCond)
	ext(19, 16, "bclr", formBranchReg)
	ext(19, 528, "bcctr", formBranchReg)
	ext(19, 150, "isync", formNone)
	ext(19, 0, "mcrf", formNone)
	ext(19, 50, "rfi", formNone)

	// Fixed-point arithmetic, d-form.
	reg(14, "addi", formAlu3Imm)
	reg(15, "addis", formAlu3Imm)
	reg(12, "addic", formAlu3Imm)
	reg(13, "addic.", formAlu3Imm)
	reg(7, "mulli", formAlu3Imm)
	reg(8, "subfic", formAlu3Imm)
	reg(20, "rlwimi", formShift)
	reg(21, "rlwinm", formShift)
	reg(23, "rlwnm", formShift)

	// Fixed-point arithmetic, x-form (primary 31).
	ext(31, 266, "add", formRcAlu3)
	ext(31, 40, "subf", formRcAlu3)
	ext(31, 10, "addc", formRcAlu3)
	ext(31, 8, "subfc", formRcAlu3)
	ext(31, 138, "adde", formRcAlu3)
	ext(31, 136, "subfe", formRcAlu3)
	ext(31, 202, "addze", formRcAlu3)
	ext(31, 200, "subfze", formRcAlu3)
	ext(31, 235, "mullw", formRcAlu3)
	ext(31, 75, "mulhw", formRcAlu3)
	ext(31, 11, "mulhwu", formRcAlu3)
	ext(31, 491, "divw", formRcAlu3)
	ext(31, 459, "divwu", formRcAlu3)
	ext(31, 28, "and", formAluLog)
	ext(31, 444, "or", formAluLog)
	ext(31, 316, "xor", formAluLog)
	ext(31, 476, "nand", formAluLog)
	ext(31, 124, "nor", formAluLog)
	ext(31, 60, "andc", formAluLog)
	ext(31, 412, "orc", formAluLog)
	ext(31, 284, "eqv", formAluLog)
	ext(31, 24, "slw", formAluLog)
	ext(31, 536, "srw", formAluLog)
	ext(31, 792, "sraw", formAluLog)
	ext(31, 824, "srawi", formShift)
	ext(31, 104, "neg", formRcAlu3)
	ext(31, 0, "cmp", formCmp)
	ext(31, 32, "cmpl", formCmp)
	reg(11, "cmpi", formCmp)
	reg(10, "cmpli", formCmp)

	// Load/store.
	reg(32, "lwz", formLoadStore)
	reg(33, "lwzu", formLoadStore)
	reg(34, "lbz", formLoadStore)
	reg(35, "lbzu", formLoadStore)
	reg(40, "lhz", formLoadStore)
	reg(41, "lhzu", formLoadStore)
	reg(42, "lha", formLoadStore)
	reg(36, "stw", formLoadStore)
	reg(37, "stwu", formLoadStore)
	reg(38, "stb", formLoadStore)
	reg(39, "stbu", formLoadStore)
	reg(44, "sth", formLoadStore)
	reg(45, "sthu", formLoadStore)
	reg(46, "lmw", formLoadStore)
	reg(47, "stmw", formLoadStore)
	reg(48, "lfs", formLoadStore)
	reg(49, "lfsu", formLoadStore)
	reg(50, "lfd", formLoadStore)
	reg(51, "lfdu", formLoadStore)
	reg(52, "stfs", formLoadStore)
	reg(53, "stfsu", formLoadStore)
	reg(54, "stfd", formLoadStore)
	reg(55, "stfdu", formLoadStore)
	ext(31, 23, "lwzx", formLoadStore)
	ext(31, 151, "stwx", formLoadStore)
	ext(31, 20, "lwarx", formLoadStore)
	ext(31, 150, "stwcx.", formLoadStore)

	// System / SPR.
	ext(31, 467, "mtspr", formSPR)
	ext(31, 19, "mfcr", formNone)
	ext(31, 144, "mtcrf", formNone)
	ext(31, 210, "mtsr", formNone)
	ext(31, 595, "mfsr", formNone)
	ext(31, 306, "tlbie", formNone)
	ext(31, 370, "tlbia", formNone)
	ext(31, 598, "sync", formNone)
	ext(31, 854, "eieio", formNone)
	ext(31, 1014, "dcbz", formNone)
	ext(31, 339, "mfspr", formSPR)
	ext(31, 146, "mtmsr", formNone)
	ext(31, 83, "mfmsr", formNone)
	ext(31, 371, "mftb", formSPR)
	ext(31, 4, "tw", formTrap)
	reg(3, "twi", formTrap)
	reg(17, "sc", formNone)

	// Floating point, primary 63.
	ext(63, 18, "fdiv", formRcAlu3)
	ext(63, 21, "fadd", formRcAlu3)
	ext(63, 20, "fsub", formRcAlu3)
	ext(63, 25, "fmul", formRcAlu3)
	ext(63, 72, "fmr", formAluLog)
	ext(63, 40, "fneg", formAluLog)
	ext(63, 264, "fabs", formAluLog)
	ext(63, 0, "fcmpu", formCmp)
	ext(63, 32, "fcmpo", formCmp)
}

// Format disassembles the instruction word op located at pc into a
// "mnemonic operands" string, e.g. "addi r3,r4,16" or "b 0x1000".
// Unknown encodings render as ".long 0xXXXXXXXX".
func Format(pc uint32, op uint32) string {
	primary := op >> 26
	var xo uint32
	switch primary {
	case 19, 31, 63:
		xo = (op >> 1) & 0x3FF
	}
	entry, ok := table[idx(primary, xo)]
	if !ok {
		// Retry with the 9-bit extended-opcode window, which drops the
		// OE bit so XO-form OE=1 encodings (addo, subfo, ...) resolve.
		entry, ok = table[idx(primary, (op>>1)&0x1FF)]
	}
	if !ok {
		return fmt.Sprintf(".long %#08x", op)
	}

	name := entry.name
	if entry.alu {
		if op&(1<<10) != 0 {
			name += "o"
		}
	}
	if (entry.form == formRcAlu3 || entry.form == formAluLog || entry.form == formShift) && op&1 != 0 {
		name += "."
	}

	return name + " " + formatOperands(entry.form, pc, op)
}

func formatOperands(form operandForm, pc uint32, op uint32) string {
	rt := (op >> 21) & 0x1F
	ra := (op >> 16) & 0x1F
	rb := (op >> 11) & 0x1F
	simm := int32(int16(op & 0xFFFF))
	uimm := op & 0xFFFF

	switch form {
	case formNone:
		return ""
	case formRcAlu3:
		return fmt.Sprintf("r%d,r%d,r%d", rt, ra, rb)
	case formAlu3Imm:
		return fmt.Sprintf("r%d,r%d,%d", rt, ra, simm)
	case formAluLog:
		return fmt.Sprintf("r%d,r%d,r%d", ra, rt, rb)
	case formAluLogImm:
		return fmt.Sprintf("r%d,r%d,%#x", ra, rt, uimm)
	case formLoadStore:
		return fmt.Sprintf("r%d,%d(r%d)", rt, simm, ra)
	case formBranch:
		target := branchTarget(pc, op)
		return fmt.Sprintf("%#x", target)
	case formBranchCond:
		bo := (op >> 21) & 0x1F
		bi := (op >> 16) & 0x1F
		target := branchTarget(pc, op)
		return fmt.Sprintf("%d,%d,%#x", bo, bi, target)
	case formBranchReg:
		bo := (op >> 21) & 0x1F
		bi := (op >> 16) & 0x1F
		return fmt.Sprintf("%d,%d", bo, bi)
	case formSPR:
		spr := ((op >> 16) & 0x1F) | (((op >> 11) & 0x1F) << 5)
		return fmt.Sprintf("%d,r%d", spr, rt)
	case formShift:
		sh := (op >> 11) & 0x1F
		mb := (op >> 6) & 0x1F
		me := (op >> 1) & 0x1F
		return fmt.Sprintf("r%d,r%d,%d,%d,%d", ra, rt, sh, mb, me)
	case formTrap:
		to := (op >> 21) & 0x1F
		if op>>26 == 3 { // twi
			return fmt.Sprintf("%d,r%d,%d", to, ra, simm)
		}
		return fmt.Sprintf("%d,r%d,r%d", to, ra, rb)
	case formCmp:
		crf := (op >> 23) & 0x7
		switch op >> 26 {
		case 11: // cmpi
			return fmt.Sprintf("cr%d,r%d,%d", crf, ra, simm)
		case 10: // cmpli
			return fmt.Sprintf("cr%d,r%d,%#x", crf, ra, uimm)
		}
		return fmt.Sprintf("cr%d,r%d,r%d", crf, ra, rb)
	default:
		return ""
	}
}

func branchTarget(pc uint32, op uint32) uint32 {
	primary := op >> 26
	var disp int32
	if primary == 18 {
		v := op & 0x03FFFFFC
		if v&0x02000000 != 0 {
			v |= 0xFC000000
		}
		disp = int32(v)
	} else {
		v := op & 0x0000FFFC
		if v&0x00008000 != 0 {
			v |= 0xFFFF0000
		}
		disp = int32(v)
	}
	if op&2 != 0 { // AA bit: absolute
		return uint32(disp)
	}
	return pc + uint32(disp)
}
