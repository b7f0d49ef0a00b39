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

// install601Legacy wires the handful of opcodes unique to the 601's
// unified BAT/combined-MMU lineage. The 601 shares the 603/604/750
// primary opcode map almost entirely but adds abs/nabs/doz as xo31 forms
// the later models repurposed for other instructions, so these are
// installed only when Model601 is selected.
func install601Legacy(t *Tables) {
	opx(&t.FPOn, 31, 360, opAbs601)
	opx(&t.FPOn, 31, 488, opNabs601)
	opx(&t.FPOn, 31, 264, opDoz601)
	op(&t.FPOn, 9, opDozi601)
	opx(&t.FPOn, 31, 107, opMul601)
	opx(&t.FPOn, 31, 331, opDiv601)
	opx(&t.FPOn, 31, 363, opDivs601)
	// OE=1 encodings of the forms whose handlers read the OE bit.
	opx(&t.FPOn, 31, 107|512, opMul601)
	opx(&t.FPOn, 31, 331|512, opDiv601)
	opx(&t.FPOn, 31, 363|512, opDivs601)
}

func opAbs601(c *CPU, op uint32) {
	a := int32(c.GPR[fieldRA(op)])
	if a < 0 {
		a = -a
	}
	c.GPR[fieldRT(op)] = uint32(a)
	c.maybeCR0(fieldRc(op), a)
}

func opNabs601(c *CPU, op uint32) {
	a := int32(c.GPR[fieldRA(op)])
	if a > 0 {
		a = -a
	}
	c.GPR[fieldRT(op)] = uint32(a)
	c.maybeCR0(fieldRc(op), a)
}

func opDoz601(c *CPU, op uint32) {
	a := int32(c.GPR[fieldRA(op)])
	b := int32(c.GPR[fieldRB(op)])
	var r int32
	if b > a {
		r = b - a
	}
	c.GPR[fieldRT(op)] = uint32(r)
	c.maybeCR0(fieldRc(op), r)
}

func opDozi601(c *CPU, op uint32) {
	a := int32(c.GPR[fieldRA(op)])
	b := simm16(op)
	var r int32
	if b > a {
		r = b - a
	}
	c.GPR[fieldRT(op)] = uint32(r)
}

// opMul601 is the POWER mul: the 64-bit product's low word lands in MQ
// (SPR 0) and the high word in RT.
func opMul601(c *CPU, op uint32) {
	a := int64(int32(c.GPR[fieldRA(op)]))
	b := int64(int32(c.GPR[fieldRB(op)]))
	p := a * b
	c.SPR[SPRMQ] = uint32(p)
	result := uint32(p >> 32)
	c.GPR[fieldRT(op)] = result
	c.maybeCR0(fieldRc(op), int32(result))
}

// opDiv601 divides the 64-bit value RA||MQ by RB; quotient to RT,
// remainder to MQ.
func opDiv601(c *CPU, op uint32) {
	dividend := int64(c.GPR[fieldRA(op)])<<32 | int64(c.SPR[SPRMQ])
	divisor := int64(int32(c.GPR[fieldRB(op)]))
	if divisor == 0 {
		if fieldOE(op) {
			setOverflow(c, true)
		}
		return
	}
	q := dividend / divisor
	c.SPR[SPRMQ] = uint32(dividend % divisor)
	result := uint32(q)
	if fieldOE(op) {
		setOverflow(c, q != int64(int32(q)))
	}
	c.GPR[fieldRT(op)] = result
	c.maybeCR0(fieldRc(op), int32(result))
}

// opDivs601 is the short divide: RA / RB, remainder to MQ.
func opDivs601(c *CPU, op uint32) {
	a := int32(c.GPR[fieldRA(op)])
	b := int32(c.GPR[fieldRB(op)])
	if b == 0 {
		if fieldOE(op) {
			setOverflow(c, true)
		}
		return
	}
	c.SPR[SPRMQ] = uint32(a % b)
	result := a / b
	if fieldOE(op) {
		setOverflow(c, a == -1<<31 && b == -1)
	}
	c.GPR[fieldRT(op)] = uint32(result)
	c.maybeCR0(fieldRc(op), result)
}
