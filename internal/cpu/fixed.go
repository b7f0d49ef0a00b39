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

// Fixed-point arithmetic, logical and compare instructions. Each
// handler computes the result, conditionally sets XER[CA]/[OV]/[SO],
// and conditionally sets CR0.

func installFixed(t *Tables) {
	op(&t.FPOn, 14, opAddi)
	op(&t.FPOn, 15, opAddis)
	op(&t.FPOn, 12, opAddic)
	op(&t.FPOn, 13, opAddicDot)
	op(&t.FPOn, 7, opMulli)
	op(&t.FPOn, 8, opSubfic)
	op(&t.FPOn, 11, opCmpi)
	op(&t.FPOn, 10, opCmpli)
	op(&t.FPOn, 24, opOri)
	op(&t.FPOn, 25, opOris)
	op(&t.FPOn, 26, opXori)
	op(&t.FPOn, 27, opXoris)
	op(&t.FPOn, 28, opAndiDot)
	op(&t.FPOn, 29, opAndisDot)
	op(&t.FPOn, 20, opRlwimi)
	op(&t.FPOn, 21, opRlwinm)
	op(&t.FPOn, 23, opRlwnm)

	opx(&t.FPOn, 31, 266, opAdd)
	opx(&t.FPOn, 31, 10, opAddc)
	opx(&t.FPOn, 31, 138, opAdde)
	opx(&t.FPOn, 31, 202, opAddze)
	opx(&t.FPOn, 31, 234, opAddme)
	opx(&t.FPOn, 31, 40, opSubf)
	opx(&t.FPOn, 31, 8, opSubfc)
	opx(&t.FPOn, 31, 136, opSubfe)
	opx(&t.FPOn, 31, 200, opSubfze)
	opx(&t.FPOn, 31, 232, opSubfme)
	opx(&t.FPOn, 31, 75, opMulhw)
	opx(&t.FPOn, 31, 11, opMulhwu)
	opx(&t.FPOn, 31, 284, opEqv)
	opx(&t.FPOn, 31, 235, opMullw)
	opx(&t.FPOn, 31, 491, opDivw)
	opx(&t.FPOn, 31, 459, opDivwu)
	opx(&t.FPOn, 31, 104, opNeg)
	opx(&t.FPOn, 31, 0, opCmp)
	opx(&t.FPOn, 31, 32, opCmpl)
	opx(&t.FPOn, 31, 444, opOr)
	opx(&t.FPOn, 31, 28, opAnd)
	opx(&t.FPOn, 31, 316, opXor)
	opx(&t.FPOn, 31, 476, opNand)
	opx(&t.FPOn, 31, 124, opNor)
	opx(&t.FPOn, 31, 412, opOrc)
	opx(&t.FPOn, 31, 60, opAndc)
	opx(&t.FPOn, 31, 24, opSlw)
	opx(&t.FPOn, 31, 536, opSrw)
	opx(&t.FPOn, 31, 792, opSraw)
	opx(&t.FPOn, 31, 824, opSrawi)
	opx(&t.FPOn, 31, 954, opExtsb)
	opx(&t.FPOn, 31, 922, opExtsh)
	opx(&t.FPOn, 31, 26, opCntlzw)

	// XO-form OE=1 encodings (xo|512) share the handler of their OE=0
	// form, which reads the OE bit itself.
	for _, xo := range []uint32{266, 10, 138, 202, 234, 40, 8, 136, 200, 232, 235, 491, 459, 104} {
		opx(&t.FPOn, 31, xo|512, t.FPOn[(31<<11)|(int(xo)<<1)])
	}
}

func (c *CPU) maybeCR0(rc bool, result int32) {
	if rc {
		c.SetCR0(result)
	}
}

func setAddCarry(c *CPU, a, b, result uint32) {
	if result < a {
		c.XER |= XERCarryBit
	} else {
		c.XER &^= XERCarryBit
	}
}

func setOverflow(c *CPU, overflowed bool) {
	if overflowed {
		c.XER |= XEROverflowBit | XERSOBit
	} else {
		c.XER &^= XEROverflowBit
	}
}

func opAddi(c *CPU, op uint32) {
	ra := fieldRA(op)
	var base int32
	if ra != 0 {
		base = int32(c.GPR[ra])
	}
	c.GPR[fieldRT(op)] = uint32(base + simm16(op))
}

func opAddis(c *CPU, op uint32) {
	ra := fieldRA(op)
	var base int32
	if ra != 0 {
		base = int32(c.GPR[ra])
	}
	c.GPR[fieldRT(op)] = uint32(base + (simm16(op) << 16))
}

func opAddic(c *CPU, op uint32) {
	a := c.GPR[fieldRA(op)]
	imm := uint32(simm16(op))
	result := a + imm
	setAddCarry(c, a, imm, result)
	c.GPR[fieldRT(op)] = result
}

func opAddicDot(c *CPU, op uint32) {
	opAddic(c, op)
	c.SetCR0(int32(c.GPR[fieldRT(op)]))
}

func opSubfic(c *CPU, op uint32) {
	a := c.GPR[fieldRA(op)]
	imm := uint32(simm16(op))
	result := imm - a
	// CA is the no-borrow case: carry out of ^a + imm + 1.
	if a <= imm {
		c.XER |= XERCarryBit
	} else {
		c.XER &^= XERCarryBit
	}
	c.GPR[fieldRT(op)] = result
}

func opMulli(c *CPU, op uint32) {
	a := int32(c.GPR[fieldRA(op)])
	c.GPR[fieldRT(op)] = uint32(a * simm16(op))
}

func opCmpi(c *CPU, op uint32) {
	crf := int(fieldRT(op) >> 2)
	a := int32(c.GPR[fieldRA(op)])
	b := simm16(op)
	c.setCmpField(crf, a < b, a > b, a == b)
}

func opCmpli(c *CPU, op uint32) {
	crf := int(fieldRT(op) >> 2)
	a := c.GPR[fieldRA(op)]
	b := uimm16(op)
	c.setCmpField(crf, a < b, a > b, a == b)
}

func (c *CPU) setCmpField(crf int, lt, gt, eq bool) {
	var v uint32
	switch {
	case lt:
		v = 0x8
	case gt:
		v = 0x4
	default:
		v = 0x2
	}
	_ = eq
	if c.XER&XERSOBit != 0 {
		v |= 0x1
	}
	c.SetCRField(crf, v)
}

func opOri(c *CPU, op uint32) {
	c.GPR[fieldRA(op)] = c.GPR[fieldRS(op)] | uimm16(op)
}

func opOris(c *CPU, op uint32) {
	c.GPR[fieldRA(op)] = c.GPR[fieldRS(op)] | (uimm16(op) << 16)
}

func opXori(c *CPU, op uint32) {
	c.GPR[fieldRA(op)] = c.GPR[fieldRS(op)] ^ uimm16(op)
}

func opXoris(c *CPU, op uint32) {
	c.GPR[fieldRA(op)] = c.GPR[fieldRS(op)] ^ (uimm16(op) << 16)
}

func opAndiDot(c *CPU, op uint32) {
	r := c.GPR[fieldRS(op)] & uimm16(op)
	c.GPR[fieldRA(op)] = r
	c.SetCR0(int32(r))
}

func opAndisDot(c *CPU, op uint32) {
	r := c.GPR[fieldRS(op)] & (uimm16(op) << 16)
	c.GPR[fieldRA(op)] = r
	c.SetCR0(int32(r))
}

func opAdd(c *CPU, op uint32) {
	a := c.GPR[fieldRA(op)]
	b := c.GPR[fieldRB(op)]
	result := a + b
	if fieldOE(op) {
		overflowed := (a^result)&(b^result)&0x80000000 != 0
		setOverflow(c, overflowed)
	}
	c.GPR[fieldRT(op)] = result
	c.maybeCR0(fieldRc(op), int32(result))
}

func opSubf(c *CPU, op uint32) {
	a := c.GPR[fieldRA(op)]
	b := c.GPR[fieldRB(op)]
	result := b - a
	if fieldOE(op) {
		overflowed := (a^b)&(result^b)&0x80000000 != 0
		setOverflow(c, overflowed)
	}
	c.GPR[fieldRT(op)] = result
	c.maybeCR0(fieldRc(op), int32(result))
}

func opMullw(c *CPU, op uint32) {
	a := int64(int32(c.GPR[fieldRA(op)]))
	b := int64(int32(c.GPR[fieldRB(op)]))
	result := a * b
	if fieldOE(op) {
		setOverflow(c, result != int64(int32(result)))
	}
	c.GPR[fieldRT(op)] = uint32(result)
	c.maybeCR0(fieldRc(op), int32(result))
}

func opDivw(c *CPU, op uint32) {
	a := int32(c.GPR[fieldRA(op)])
	b := int32(c.GPR[fieldRB(op)])
	var result int32
	overflow := b == 0 || (a == int32(-1<<31) && b == -1)
	if !overflow {
		result = a / b
	}
	if fieldOE(op) {
		setOverflow(c, overflow)
	}
	c.GPR[fieldRT(op)] = uint32(result)
	c.maybeCR0(fieldRc(op), result)
}

func opDivwu(c *CPU, op uint32) {
	a := c.GPR[fieldRA(op)]
	b := c.GPR[fieldRB(op)]
	var result uint32
	overflow := b == 0
	if !overflow {
		result = a / b
	}
	if fieldOE(op) {
		setOverflow(c, overflow)
	}
	c.GPR[fieldRT(op)] = result
	c.maybeCR0(fieldRc(op), int32(result))
}

func opNeg(c *CPU, op uint32) {
	a := c.GPR[fieldRA(op)]
	result := ^a + 1
	if fieldOE(op) {
		setOverflow(c, a == 0x80000000)
	}
	c.GPR[fieldRT(op)] = result
	c.maybeCR0(fieldRc(op), int32(result))
}

func opCmp(c *CPU, op uint32) {
	crf := int(fieldRT(op) >> 2)
	a := int32(c.GPR[fieldRA(op)])
	b := int32(c.GPR[fieldRB(op)])
	c.setCmpField(crf, a < b, a > b, a == b)
}

func opCmpl(c *CPU, op uint32) {
	crf := int(fieldRT(op) >> 2)
	a := c.GPR[fieldRA(op)]
	b := c.GPR[fieldRB(op)]
	c.setCmpField(crf, a < b, a > b, a == b)
}

func opOr(c *CPU, op uint32) {
	r := c.GPR[fieldRS(op)] | c.GPR[fieldRB(op)]
	c.GPR[fieldRA(op)] = r
	c.maybeCR0(fieldRc(op), int32(r))
}

func opAnd(c *CPU, op uint32) {
	r := c.GPR[fieldRS(op)] & c.GPR[fieldRB(op)]
	c.GPR[fieldRA(op)] = r
	c.maybeCR0(fieldRc(op), int32(r))
}

func opXor(c *CPU, op uint32) {
	r := c.GPR[fieldRS(op)] ^ c.GPR[fieldRB(op)]
	c.GPR[fieldRA(op)] = r
	c.maybeCR0(fieldRc(op), int32(r))
}

func opNand(c *CPU, op uint32) {
	r := ^(c.GPR[fieldRS(op)] & c.GPR[fieldRB(op)])
	c.GPR[fieldRA(op)] = r
	c.maybeCR0(fieldRc(op), int32(r))
}

func opNor(c *CPU, op uint32) {
	r := ^(c.GPR[fieldRS(op)] | c.GPR[fieldRB(op)])
	c.GPR[fieldRA(op)] = r
	c.maybeCR0(fieldRc(op), int32(r))
}

func opOrc(c *CPU, op uint32) {
	r := c.GPR[fieldRS(op)] | ^c.GPR[fieldRB(op)]
	c.GPR[fieldRA(op)] = r
	c.maybeCR0(fieldRc(op), int32(r))
}

func opAndc(c *CPU, op uint32) {
	r := c.GPR[fieldRS(op)] &^ c.GPR[fieldRB(op)]
	c.GPR[fieldRA(op)] = r
	c.maybeCR0(fieldRc(op), int32(r))
}

func opSlw(c *CPU, op uint32) {
	sh := c.GPR[fieldRB(op)] & 0x3F
	var r uint32
	if sh < 32 {
		r = c.GPR[fieldRS(op)] << sh
	}
	c.GPR[fieldRA(op)] = r
	c.maybeCR0(fieldRc(op), int32(r))
}

func opSrw(c *CPU, op uint32) {
	sh := c.GPR[fieldRB(op)] & 0x3F
	var r uint32
	if sh < 32 {
		r = c.GPR[fieldRS(op)] >> sh
	}
	c.GPR[fieldRA(op)] = r
	c.maybeCR0(fieldRc(op), int32(r))
}

func opSraw(c *CPU, op uint32) {
	s := int32(c.GPR[fieldRS(op)])
	sh := c.GPR[fieldRB(op)] & 0x3F
	var r int32
	carry := false
	if sh >= 32 {
		if s < 0 {
			r = -1
			carry = true
		}
	} else {
		r = s >> sh
		if s < 0 && (uint32(s)&((1<<sh)-1)) != 0 {
			carry = true
		}
	}
	if carry {
		c.XER |= XERCarryBit
	} else {
		c.XER &^= XERCarryBit
	}
	c.GPR[fieldRA(op)] = uint32(r)
	c.maybeCR0(fieldRc(op), r)
}

func opSrawi(c *CPU, op uint32) {
	s := int32(c.GPR[fieldRS(op)])
	sh := fieldRB(op) // SH field reuses the RB slot position
	r := s >> sh
	carry := s < 0 && (uint32(s)&((1<<sh)-1)) != 0
	if carry {
		c.XER |= XERCarryBit
	} else {
		c.XER &^= XERCarryBit
	}
	c.GPR[fieldRA(op)] = uint32(r)
	c.maybeCR0(fieldRc(op), r)
}

func opExtsb(c *CPU, op uint32) {
	r := uint32(int32(int8(c.GPR[fieldRS(op)])))
	c.GPR[fieldRA(op)] = r
	c.maybeCR0(fieldRc(op), int32(r))
}

func opExtsh(c *CPU, op uint32) {
	r := uint32(int32(int16(c.GPR[fieldRS(op)])))
	c.GPR[fieldRA(op)] = r
	c.maybeCR0(fieldRc(op), int32(r))
}

func opCntlzw(c *CPU, op uint32) {
	v := c.GPR[fieldRS(op)]
	n := uint32(0)
	for n < 32 && v&(0x80000000>>n) == 0 {
		n++
	}
	c.GPR[fieldRA(op)] = n
	c.maybeCR0(fieldRc(op), int32(n))
}

// Rotate family: SH and MB/ME share the RB/XO bit range.
func rlFields(op uint32) (sh, mb, me uint32) {
	sh = (op >> 11) & 0x1F
	mb = (op >> 6) & 0x1F
	me = (op >> 1) & 0x1F
	return
}

func opRlwinm(c *CPU, op uint32) {
	sh, mb, me := rlFields(op)
	m := rlMask(mb, me)
	r := rotl32(c.GPR[fieldRS(op)], sh) & m
	c.GPR[fieldRA(op)] = r
	c.maybeCR0(fieldRc(op), int32(r))
}

func opRlwimi(c *CPU, op uint32) {
	sh, mb, me := rlFields(op)
	m := rlMask(mb, me)
	rotated := rotl32(c.GPR[fieldRS(op)], sh)
	ra := fieldRA(op)
	r := (rotated & m) | (c.GPR[ra] &^ m)
	c.GPR[ra] = r
	c.maybeCR0(fieldRc(op), int32(r))
}

func opRlwnm(c *CPU, op uint32) {
	sh := c.GPR[fieldRB(op)] & 0x1F
	_, mb, me := rlFields(op)
	m := rlMask(mb, me)
	r := rotl32(c.GPR[fieldRS(op)], sh) & m
	c.GPR[fieldRA(op)] = r
	c.maybeCR0(fieldRc(op), int32(r))
}

// Carry-chain arithmetic. The wide (64-bit) intermediate makes carry-out
// computation uniform across the a+b, a+b+CA, and the minus-one forms.
func (c *CPU) carryIn() uint64 {
	if c.XER&XERCarryBit != 0 {
		return 1
	}
	return 0
}

func (c *CPU) addWithCarry(op uint32, a, b, cin uint64) {
	wide := a + b + cin
	result := uint32(wide)
	if wide>>32 != 0 {
		c.XER |= XERCarryBit
	} else {
		c.XER &^= XERCarryBit
	}
	if fieldOE(op) {
		overflowed := (uint32(a)^result)&(uint32(b)^result)&0x80000000 != 0
		setOverflow(c, overflowed)
	}
	c.GPR[fieldRT(op)] = result
	c.maybeCR0(fieldRc(op), int32(result))
}

func opAddc(c *CPU, op uint32) {
	c.addWithCarry(op, uint64(c.GPR[fieldRA(op)]), uint64(c.GPR[fieldRB(op)]), 0)
}

func opAdde(c *CPU, op uint32) {
	c.addWithCarry(op, uint64(c.GPR[fieldRA(op)]), uint64(c.GPR[fieldRB(op)]), c.carryIn())
}

func opAddze(c *CPU, op uint32) {
	c.addWithCarry(op, uint64(c.GPR[fieldRA(op)]), 0, c.carryIn())
}

func opAddme(c *CPU, op uint32) {
	c.addWithCarry(op, uint64(c.GPR[fieldRA(op)]), 0xFFFFFFFF, c.carryIn())
}

func opSubfc(c *CPU, op uint32) {
	c.addWithCarry(op, uint64(^c.GPR[fieldRA(op)]), uint64(c.GPR[fieldRB(op)]), 1)
}

func opSubfe(c *CPU, op uint32) {
	c.addWithCarry(op, uint64(^c.GPR[fieldRA(op)]), uint64(c.GPR[fieldRB(op)]), c.carryIn())
}

func opSubfze(c *CPU, op uint32) {
	c.addWithCarry(op, uint64(^c.GPR[fieldRA(op)]), 0, c.carryIn())
}

func opSubfme(c *CPU, op uint32) {
	c.addWithCarry(op, uint64(^c.GPR[fieldRA(op)]), 0xFFFFFFFF, c.carryIn())
}

func opMulhw(c *CPU, op uint32) {
	a := int64(int32(c.GPR[fieldRA(op)]))
	b := int64(int32(c.GPR[fieldRB(op)]))
	result := uint32((a * b) >> 32)
	c.GPR[fieldRT(op)] = result
	c.maybeCR0(fieldRc(op), int32(result))
}

func opMulhwu(c *CPU, op uint32) {
	a := uint64(c.GPR[fieldRA(op)])
	b := uint64(c.GPR[fieldRB(op)])
	result := uint32((a * b) >> 32)
	c.GPR[fieldRT(op)] = result
	c.maybeCR0(fieldRc(op), int32(result))
}

func opEqv(c *CPU, op uint32) {
	result := ^(c.GPR[fieldRS(op)] ^ c.GPR[fieldRB(op)])
	c.GPR[fieldRA(op)] = result
	c.maybeCR0(fieldRc(op), int32(result))
}
