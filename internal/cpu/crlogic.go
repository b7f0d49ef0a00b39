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

// Condition-register logical instructions and CR/XER moves. The CR bit
// operands (BT, BA, BB) reuse the RT/RA/RB field positions; bit 0 is
// the most significant bit of CR, per IBM numbering.

func installCRLogic(t *Tables) {
	opx(&t.FPOn, 19, 0, opMcrf)
	opx(&t.FPOn, 19, 33, opCrnor)
	opx(&t.FPOn, 19, 129, opCrandc)
	opx(&t.FPOn, 19, 193, opCrxor)
	opx(&t.FPOn, 19, 225, opCrnand)
	opx(&t.FPOn, 19, 257, opCrand)
	opx(&t.FPOn, 19, 289, opCreqv)
	opx(&t.FPOn, 19, 417, opCrorc)
	opx(&t.FPOn, 19, 449, opCror)
	opx(&t.FPOn, 31, 19, opMfcr)
	opx(&t.FPOn, 31, 144, opMtcrf)
	opx(&t.FPOn, 31, 512, opMcrxr)
}

func crBit(c *CPU, n uint32) uint32 {
	return (c.CR >> (31 - n)) & 1
}

func setCRBit(c *CPU, n, v uint32) {
	mask := uint32(1) << (31 - n)
	if v != 0 {
		c.CR |= mask
	} else {
		c.CR &^= mask
	}
}

func crLogic(c *CPU, op uint32, f func(a, b uint32) uint32) {
	setCRBit(c, fieldRT(op), f(crBit(c, fieldRA(op)), crBit(c, fieldRB(op)))&1)
}

func opCrand(c *CPU, op uint32)  { crLogic(c, op, func(a, b uint32) uint32 { return a & b }) }
func opCror(c *CPU, op uint32)   { crLogic(c, op, func(a, b uint32) uint32 { return a | b }) }
func opCrxor(c *CPU, op uint32)  { crLogic(c, op, func(a, b uint32) uint32 { return a ^ b }) }
func opCrnand(c *CPU, op uint32) { crLogic(c, op, func(a, b uint32) uint32 { return ^(a & b) }) }
func opCrnor(c *CPU, op uint32)  { crLogic(c, op, func(a, b uint32) uint32 { return ^(a | b) }) }
func opCreqv(c *CPU, op uint32)  { crLogic(c, op, func(a, b uint32) uint32 { return ^(a ^ b) }) }
func opCrandc(c *CPU, op uint32) { crLogic(c, op, func(a, b uint32) uint32 { return a &^ b }) }
func opCrorc(c *CPU, op uint32)  { crLogic(c, op, func(a, b uint32) uint32 { return a | ^b }) }

// opMcrf copies CR field BFA into field BF.
func opMcrf(c *CPU, op uint32) {
	bf := int(fieldRT(op) >> 2)
	bfa := int(fieldRA(op) >> 2)
	v := (c.CR >> uint((7-bfa)*4)) & 0xF
	c.SetCRField(bf, v)
}

func opMfcr(c *CPU, op uint32) {
	c.GPR[fieldRT(op)] = c.CR
}

// opMtcrf updates only the CR fields selected by the FXM mask.
func opMtcrf(c *CPU, op uint32) {
	fxm := (op >> 12) & 0xFF
	v := c.GPR[fieldRS(op)]
	var mask uint32
	for i := 0; i < 8; i++ {
		if fxm&(0x80>>uint(i)) != 0 {
			mask |= 0xF << uint((7-i)*4)
		}
	}
	c.CR = (c.CR &^ mask) | (v & mask)
}

// opMcrxr copies XER[SO,OV,CA] into a CR field and clears them in XER.
func opMcrxr(c *CPU, op uint32) {
	bf := int(fieldRT(op) >> 2)
	var v uint32
	if c.XER&XERSOBit != 0 {
		v |= 0x8
	}
	if c.XER&XEROverflowBit != 0 {
		v |= 0x4
	}
	if c.XER&XERCarryBit != 0 {
		v |= 0x2
	}
	c.SetCRField(bf, v)
	c.XER &^= XERSOBit | XEROverflowBit | XERCarryBit
}
