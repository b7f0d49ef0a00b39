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

import "math"

// Floating-point instructions. FPRs are stored as raw IEEE-754 double
// bits; single-precision loads and stores convert through float32 at
// the memory boundary, matching the architecture's "operand is always
// a double internally" rule.
//
// installFPU marks every slot it fills in mask so BuildTables can derive
// the FPOff table by replacing them with opFPUnavailable.

func installFPU(t *Tables, mask *[TableSize]bool) {
	opFP(&t.FPOn, mask, 48, opLfs)
	opFP(&t.FPOn, mask, 49, opLfsu)
	opFP(&t.FPOn, mask, 50, opLfd)
	opFP(&t.FPOn, mask, 51, opLfdu)
	opFP(&t.FPOn, mask, 52, opStfs)
	opFP(&t.FPOn, mask, 53, opStfsu)
	opFP(&t.FPOn, mask, 54, opStfd)
	opFP(&t.FPOn, mask, 55, opStfdu)

	opxFP(&t.FPOn, mask, 31, 535, opLfsx)
	opxFP(&t.FPOn, mask, 31, 567, opLfsux)
	opxFP(&t.FPOn, mask, 31, 599, opLfdx)
	opxFP(&t.FPOn, mask, 31, 631, opLfdux)
	opxFP(&t.FPOn, mask, 31, 663, opStfsx)
	opxFP(&t.FPOn, mask, 31, 695, opStfsux)
	opxFP(&t.FPOn, mask, 31, 727, opStfdx)
	opxFP(&t.FPOn, mask, 31, 759, opStfdux)

	opaFP(&t.FPOn, mask, 63, 21, opFadd)
	opaFP(&t.FPOn, mask, 63, 20, opFsub)
	opaFP(&t.FPOn, mask, 63, 25, opFmul)
	opaFP(&t.FPOn, mask, 63, 18, opFdiv)
	opaFP(&t.FPOn, mask, 63, 29, opFmadd)
	opaFP(&t.FPOn, mask, 63, 28, opFmsub)
	opaFP(&t.FPOn, mask, 63, 31, opFnmadd)
	opaFP(&t.FPOn, mask, 63, 30, opFnmsub)
	opaFP(&t.FPOn, mask, 63, 23, opFsel)
	opxFP(&t.FPOn, mask, 63, 72, opFmr)
	opxFP(&t.FPOn, mask, 63, 40, opFneg)
	opxFP(&t.FPOn, mask, 63, 264, opFabs)
	opxFP(&t.FPOn, mask, 63, 136, opFnabs)
	opxFP(&t.FPOn, mask, 63, 0, opFcmpu)
	opxFP(&t.FPOn, mask, 63, 32, opFcmpo)
	opxFP(&t.FPOn, mask, 63, 12, opFrsp)
	opxFP(&t.FPOn, mask, 63, 14, opFctiw)
	opxFP(&t.FPOn, mask, 63, 15, opFctiwz)
	opxFP(&t.FPOn, mask, 63, 583, opMffs)
	opxFP(&t.FPOn, mask, 63, 711, opMtfsf)
	opxFP(&t.FPOn, mask, 63, 70, opMtfsb0)
	opxFP(&t.FPOn, mask, 63, 38, opMtfsb1)
	opxFP(&t.FPOn, mask, 63, 64, opMcrfs)

	opaFP(&t.FPOn, mask, 59, 21, opFadds)
	opaFP(&t.FPOn, mask, 59, 20, opFsubs)
	opaFP(&t.FPOn, mask, 59, 25, opFmuls)
	opaFP(&t.FPOn, mask, 59, 18, opFdivs)
	opaFP(&t.FPOn, mask, 59, 29, opFmadds)
	opaFP(&t.FPOn, mask, 59, 28, opFmsubs)
	opaFP(&t.FPOn, mask, 59, 31, opFnmadds)
	opaFP(&t.FPOn, mask, 59, 30, opFnmsubs)
}

func fget(c *CPU, n uint32) float64  { return math.Float64frombits(c.FPR[n]) }
func fset(c *CPU, n uint32, v float64) { c.FPR[n] = math.Float64bits(v) }

func opLfs(c *CPU, op uint32) {
	if v, ok := c.MMU.Read(c, eaD(c, op), 4); ok {
		fset(c, fieldRT(op), float64(math.Float32frombits(uint32(v))))
	}
}

func opLfsu(c *CPU, op uint32) {
	addr := eaD(c, op)
	if v, ok := c.MMU.Read(c, addr, 4); ok {
		fset(c, fieldRT(op), float64(math.Float32frombits(uint32(v))))
		c.GPR[fieldRA(op)] = addr
	}
}

func opLfd(c *CPU, op uint32) {
	if v, ok := c.MMU.Read(c, eaD(c, op), 8); ok {
		c.FPR[fieldRT(op)] = v
	}
}

func opLfdu(c *CPU, op uint32) {
	addr := eaD(c, op)
	if v, ok := c.MMU.Read(c, addr, 8); ok {
		c.FPR[fieldRT(op)] = v
		c.GPR[fieldRA(op)] = addr
	}
}

func opStfs(c *CPU, op uint32) {
	bits := math.Float32bits(float32(fget(c, fieldRT(op))))
	c.MMU.Write(c, eaD(c, op), 4, uint64(bits))
}

func opStfsu(c *CPU, op uint32) {
	addr := eaD(c, op)
	bits := math.Float32bits(float32(fget(c, fieldRT(op))))
	if c.MMU.Write(c, addr, 4, uint64(bits)) {
		c.GPR[fieldRA(op)] = addr
	}
}

func opStfd(c *CPU, op uint32) {
	c.MMU.Write(c, eaD(c, op), 8, c.FPR[fieldRT(op)])
}

func opStfdu(c *CPU, op uint32) {
	addr := eaD(c, op)
	if c.MMU.Write(c, addr, 8, c.FPR[fieldRT(op)]) {
		c.GPR[fieldRA(op)] = addr
	}
}

func (c *CPU) maybeCR1(rc bool) {
	if !rc {
		return
	}
	var v uint32
	if c.FPSCR&(1<<31) != 0 { // FX
		v |= 0x8
	}
	if c.FPSCR&(1<<30) != 0 { // FEX
		v |= 0x4
	}
	if c.FPSCR&(1<<29) != 0 { // VX
		v |= 0x2
	}
	if c.FPSCR&(1<<28) != 0 { // OX
		v |= 0x1
	}
	c.SetCRField(1, v)
}

func opFadd(c *CPU, op uint32) {
	r := fget(c, fieldRA(op)) + fget(c, fieldRB(op))
	fset(c, fieldRT(op), r)
	c.maybeCR1(fieldRc(op))
}

func opFsub(c *CPU, op uint32) {
	r := fget(c, fieldRA(op)) - fget(c, fieldRB(op))
	fset(c, fieldRT(op), r)
	c.maybeCR1(fieldRc(op))
}

func opFmul(c *CPU, op uint32) {
	// fmul is A-form: the second factor lives in the FRC field, not FRB.
	r := fget(c, fieldRA(op)) * fget(c, fieldFRC(op))
	fset(c, fieldRT(op), r)
	c.maybeCR1(fieldRc(op))
}

func opFdiv(c *CPU, op uint32) {
	r := fget(c, fieldRA(op)) / fget(c, fieldRB(op))
	fset(c, fieldRT(op), r)
	c.maybeCR1(fieldRc(op))
}

func opFmr(c *CPU, op uint32) {
	c.FPR[fieldRT(op)] = c.FPR[fieldRB(op)]
	c.maybeCR1(fieldRc(op))
}

func opFneg(c *CPU, op uint32) {
	c.FPR[fieldRT(op)] = c.FPR[fieldRB(op)] ^ (1 << 63)
	c.maybeCR1(fieldRc(op))
}

func opFabs(c *CPU, op uint32) {
	c.FPR[fieldRT(op)] = c.FPR[fieldRB(op)] &^ (1 << 63)
	c.maybeCR1(fieldRc(op))
}

func fcmp(c *CPU, op uint32, ordered bool) {
	crf := int(fieldRT(op) >> 2)
	a := fget(c, fieldRA(op))
	b := fget(c, fieldRB(op))
	var v uint32
	switch {
	case math.IsNaN(a) || math.IsNaN(b):
		v = 0x1
		if ordered {
			c.FPSCR |= 1 << 29 // VX
		}
	case a < b:
		v = 0x8
	case a > b:
		v = 0x4
	default:
		v = 0x2
	}
	c.SetCRField(crf, v)
}

func opFcmpu(c *CPU, op uint32) { fcmp(c, op, false) }
func opFcmpo(c *CPU, op uint32) { fcmp(c, op, true) }

func opFrsp(c *CPU, op uint32) {
	r := float64(float32(fget(c, fieldRB(op))))
	fset(c, fieldRT(op), r)
	c.maybeCR1(fieldRc(op))
}

// Fused multiply-add family: FRT = ±(FRA*FRC ± FRB). Host math.FMA
// supplies the single-rounding semantics the architecture requires.
func opFmadd(c *CPU, op uint32) {
	r := math.FMA(fget(c, fieldRA(op)), fget(c, fieldFRC(op)), fget(c, fieldRB(op)))
	fset(c, fieldRT(op), r)
	c.maybeCR1(fieldRc(op))
}

func opFmsub(c *CPU, op uint32) {
	r := math.FMA(fget(c, fieldRA(op)), fget(c, fieldFRC(op)), -fget(c, fieldRB(op)))
	fset(c, fieldRT(op), r)
	c.maybeCR1(fieldRc(op))
}

func opFnmadd(c *CPU, op uint32) {
	r := -math.FMA(fget(c, fieldRA(op)), fget(c, fieldFRC(op)), fget(c, fieldRB(op)))
	fset(c, fieldRT(op), r)
	c.maybeCR1(fieldRc(op))
}

func opFnmsub(c *CPU, op uint32) {
	r := -math.FMA(fget(c, fieldRA(op)), fget(c, fieldFRC(op)), -fget(c, fieldRB(op)))
	fset(c, fieldRT(op), r)
	c.maybeCR1(fieldRc(op))
}

func opFsel(c *CPU, op uint32) {
	r := fget(c, fieldFRC(op))
	if fget(c, fieldRA(op)) < 0 {
		r = fget(c, fieldRB(op))
	}
	fset(c, fieldRT(op), r)
	c.maybeCR1(fieldRc(op))
}

func opFnabs(c *CPU, op uint32) {
	c.FPR[fieldRT(op)] = c.FPR[fieldRB(op)] | (1 << 63)
	c.maybeCR1(fieldRc(op))
}

// singleRounded stores v rounded to single precision into FRT, the
// shared shape of every opcode-59 arithmetic form.
func singleRounded(c *CPU, op uint32, v float64) {
	fset(c, fieldRT(op), float64(float32(v)))
	c.maybeCR1(fieldRc(op))
}

func opFadds(c *CPU, op uint32) {
	singleRounded(c, op, fget(c, fieldRA(op))+fget(c, fieldRB(op)))
}

func opFsubs(c *CPU, op uint32) {
	singleRounded(c, op, fget(c, fieldRA(op))-fget(c, fieldRB(op)))
}

func opFmuls(c *CPU, op uint32) {
	singleRounded(c, op, fget(c, fieldRA(op))*fget(c, fieldFRC(op)))
}

func opFdivs(c *CPU, op uint32) {
	singleRounded(c, op, fget(c, fieldRA(op))/fget(c, fieldRB(op)))
}

func opFmadds(c *CPU, op uint32) {
	singleRounded(c, op, math.FMA(fget(c, fieldRA(op)), fget(c, fieldFRC(op)), fget(c, fieldRB(op))))
}

func opFmsubs(c *CPU, op uint32) {
	singleRounded(c, op, math.FMA(fget(c, fieldRA(op)), fget(c, fieldFRC(op)), -fget(c, fieldRB(op))))
}

func opFnmadds(c *CPU, op uint32) {
	singleRounded(c, op, -math.FMA(fget(c, fieldRA(op)), fget(c, fieldFRC(op)), fget(c, fieldRB(op))))
}

func opFnmsubs(c *CPU, op uint32) {
	singleRounded(c, op, -math.FMA(fget(c, fieldRA(op)), fget(c, fieldFRC(op)), -fget(c, fieldRB(op))))
}

// fctiwCore converts FRB to a 32-bit integer with saturation; the boxed
// result occupies the low word of FRT.
func fctiwCore(c *CPU, op uint32, round func(float64) float64) {
	v := fget(c, fieldRB(op))
	var i int32
	switch {
	case math.IsNaN(v):
		i = -1 << 31
		c.FPSCR |= 1 << 29 // VX
	case v >= float64(1<<31):
		i = 1<<31 - 1
		c.FPSCR |= 1 << 29
	case v <= -float64(1<<31)-1:
		i = -1 << 31
		c.FPSCR |= 1 << 29
	default:
		i = int32(round(v))
	}
	c.FPR[fieldRT(op)] = 0xFFF8000000000000 | uint64(uint32(i))
	c.maybeCR1(fieldRc(op))
}

func opFctiw(c *CPU, op uint32) {
	fctiwCore(c, op, math.RoundToEven)
}

func opFctiwz(c *CPU, op uint32) {
	fctiwCore(c, op, math.Trunc)
}

// FPSCR moves. The status bits this core maintains (FX, FEX, VX, OX and
// the rounding-mode field) round-trip through mffs/mtfsf unchanged.
func opMffs(c *CPU, op uint32) {
	c.FPR[fieldRT(op)] = 0xFFF8000000000000 | uint64(c.FPSCR)
	c.maybeCR1(fieldRc(op))
}

func opMtfsf(c *CPU, op uint32) {
	fm := (op >> 17) & 0xFF
	v := uint32(c.FPR[fieldRB(op)])
	var mask uint32
	for i := 0; i < 8; i++ {
		if fm&(0x80>>uint(i)) != 0 {
			mask |= 0xF << uint((7-i)*4)
		}
	}
	c.FPSCR = (c.FPSCR &^ mask) | (v & mask)
	c.maybeCR1(fieldRc(op))
}

func opMtfsb0(c *CPU, op uint32) {
	c.FPSCR &^= 1 << (31 - fieldRT(op))
	c.maybeCR1(fieldRc(op))
}

func opMtfsb1(c *CPU, op uint32) {
	c.FPSCR |= 1 << (31 - fieldRT(op))
	c.maybeCR1(fieldRc(op))
}

func opMcrfs(c *CPU, op uint32) {
	bf := int(fieldRT(op) >> 2)
	bfa := fieldRA(op) >> 2
	v := (c.FPSCR >> uint((7-bfa)*4)) & 0xF
	c.SetCRField(bf, v)
	// Exception bits copied out of FPSCR are cleared, except the
	// sticky FEX/VX summaries which only clear with their sources.
	if bfa == 0 {
		c.FPSCR &^= 0x9 << 28
	}
}

func opLfsx(c *CPU, op uint32) {
	if v, ok := c.MMU.Read(c, eaX(c, op), 4); ok {
		fset(c, fieldRT(op), float64(math.Float32frombits(uint32(v))))
	}
}

func opLfsux(c *CPU, op uint32) {
	addr := eaX(c, op)
	if v, ok := c.MMU.Read(c, addr, 4); ok {
		fset(c, fieldRT(op), float64(math.Float32frombits(uint32(v))))
		c.GPR[fieldRA(op)] = addr
	}
}

func opLfdx(c *CPU, op uint32) {
	if v, ok := c.MMU.Read(c, eaX(c, op), 8); ok {
		c.FPR[fieldRT(op)] = v
	}
}

func opLfdux(c *CPU, op uint32) {
	addr := eaX(c, op)
	if v, ok := c.MMU.Read(c, addr, 8); ok {
		c.FPR[fieldRT(op)] = v
		c.GPR[fieldRA(op)] = addr
	}
}

func opStfsx(c *CPU, op uint32) {
	bits := math.Float32bits(float32(fget(c, fieldRT(op))))
	c.MMU.Write(c, eaX(c, op), 4, uint64(bits))
}

func opStfsux(c *CPU, op uint32) {
	addr := eaX(c, op)
	bits := math.Float32bits(float32(fget(c, fieldRT(op))))
	if c.MMU.Write(c, addr, 4, uint64(bits)) {
		c.GPR[fieldRA(op)] = addr
	}
}

func opStfdx(c *CPU, op uint32) {
	c.MMU.Write(c, eaX(c, op), 8, c.FPR[fieldRT(op)])
}

func opStfdux(c *CPU, op uint32) {
	addr := eaX(c, op)
	if c.MMU.Write(c, addr, 8, c.FPR[fieldRT(op)]) {
		c.GPR[fieldRA(op)] = addr
	}
}
