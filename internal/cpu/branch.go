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

// Branch instructions: b/bc/bclr/bcctr. Each handler updates NIA and
// sets ExecBranch so the interpreter knows not to fall through to PC+4.

func installBranch(t *Tables) {
	op(&t.FPOn, 18, opB)     // b, ba, bl, bla
	op(&t.FPOn, 16, opBC)    // bc, bca, bcl, bcla
	opx(&t.FPOn, 19, 16, opBCLR)  // bclr, bclrl
	opx(&t.FPOn, 19, 528, opBCCTR) // bcctr, bcctrl
	opx(&t.FPOn, 19, 150, opISync)
	opx(&t.FPOn, 19, 50, opRFI)
	op(&t.FPOn, 17, opSC)
}

func (c *CPU) branchTo(target uint32, lk bool) {
	if lk {
		c.SPR[SPRLR] = c.NIA
	}
	c.NIA = target
	c.ExecFlags |= ExecBranch
}

func opB(c *CPU, op uint32) {
	var target uint32
	if fieldAA(op) {
		target = uint32(li(op))
	} else {
		target = c.PC + uint32(li(op))
	}
	c.branchTo(target, fieldLK(op))
}

// condPassed evaluates the BO/BI branch-condition fields, updating CTR as
// BO dictates, exactly as the architecture's branch-conditional pseudocode
// does.
func (c *CPU) condPassed(op uint32) bool {
	bo := fieldBO(op)
	bi := fieldBI(op)

	ctrOK := true
	if bo&0x04 == 0 { // decrement CTR
		c.SPR[SPRCTR]--
		ctrCond := c.SPR[SPRCTR] != 0
		if bo&0x02 != 0 {
			ctrCond = !ctrCond
		}
		ctrOK = ctrCond
	}

	condOK := true
	if bo&0x10 == 0 { // test CR bit
		bit := (c.CR >> (31 - bi)) & 1
		want := (bo >> 3) & 1
		condOK = bit == want
	}
	return ctrOK && condOK
}

func opBC(c *CPU, op uint32) {
	if !c.condPassed(op) {
		return
	}
	var target uint32
	if fieldAA(op) {
		target = uint32(bd(op))
	} else {
		target = c.PC + uint32(bd(op))
	}
	c.branchTo(target, fieldLK(op))
}

func opBCLR(c *CPU, op uint32) {
	if !c.condPassed(op) {
		return
	}
	c.branchTo(c.SPR[SPRLR]&^3, fieldLK(op))
}

func opBCCTR(c *CPU, op uint32) {
	bo := fieldBO(op)
	condOK := true
	if bo&0x10 == 0 {
		bi := fieldBI(op)
		bit := (c.CR >> (31 - bi)) & 1
		want := (bo >> 3) & 1
		condOK = bit == want
	}
	if !condOK {
		return
	}
	c.branchTo(c.SPR[SPRCTR]&^3, fieldLK(op))
}

// opISync drains the context-sync queue: BAT/PAT flushes queued by
// mtspr/mtsr become visible here.
func opISync(c *CPU, _ uint32) {
	if c.Sync != nil {
		c.Sync.Run()
	}
}

func opRFI(c *CPU, _ uint32) {
	srr0 := c.SPR[SPRSRR0]
	srr1 := c.SPR[SPRSRR1]
	// MSR bits restored from SRR1 are the defined subset; reserved bits
	// of SRR1 never reach MSR.
	const restoreMask = MSRPR | MSRFP | MSRME | MSRFE0 | MSRSE | MSRBE |
		MSRFE1 | MSRIP | MSRIR | MSRDR | MSREE | MSRLE | MSRRI
	c.MsrDidChange((c.MSR &^ restoreMask) | (srr1 & restoreMask))
	c.NIA = srr0 &^ 3
	c.ExecFlags |= ExecBranch | ExecRFI
	if c.Sync != nil {
		c.Sync.Run()
	}
}

func opSC(c *CPU, _ uint32) {
	if c.Sync != nil {
		c.Sync.Run()
	}
	c.Exc.Raise(c, ExcSyscall, 0)
}
