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

// Load/store instructions. Handlers compute the effective address and
// defer the actual byte transfer to c.MMU, which performs endian
// munging and raises DSI through c.Exc on a translation miss (a
// non-local exit, so handlers never see a failed Read/Write return
// except as "this call never returns here").

func installLoadStore(t *Tables) {
	op(&t.FPOn, 32, opLwz)
	op(&t.FPOn, 33, opLwzu)
	op(&t.FPOn, 34, opLbz)
	op(&t.FPOn, 35, opLbzu)
	op(&t.FPOn, 40, opLhz)
	op(&t.FPOn, 41, opLhzu)
	op(&t.FPOn, 42, opLha)
	op(&t.FPOn, 43, opLhau)
	op(&t.FPOn, 36, opStw)
	op(&t.FPOn, 37, opStwu)
	op(&t.FPOn, 38, opStb)
	op(&t.FPOn, 39, opStbu)
	op(&t.FPOn, 44, opSth)
	op(&t.FPOn, 45, opSthu)
	op(&t.FPOn, 46, opLmw)
	op(&t.FPOn, 47, opStmw)

	opx(&t.FPOn, 31, 23, opLwzx)
	opx(&t.FPOn, 31, 55, opLwzux)
	opx(&t.FPOn, 31, 87, opLbzx)
	opx(&t.FPOn, 31, 119, opLbzux)
	opx(&t.FPOn, 31, 279, opLhzx)
	opx(&t.FPOn, 31, 311, opLhzux)
	opx(&t.FPOn, 31, 343, opLhax)
	opx(&t.FPOn, 31, 375, opLhaux)
	opx(&t.FPOn, 31, 151, opStwx)
	opx(&t.FPOn, 31, 183, opStwux)
	opx(&t.FPOn, 31, 215, opStbx)
	opx(&t.FPOn, 31, 247, opStbux)
	opx(&t.FPOn, 31, 407, opSthx)
	opx(&t.FPOn, 31, 439, opSthux)
	opx(&t.FPOn, 31, 534, opLwbrx)
	opx(&t.FPOn, 31, 790, opLhbrx)
	opx(&t.FPOn, 31, 662, opStwbrx)
	opx(&t.FPOn, 31, 918, opSthbrx)
	opx(&t.FPOn, 31, 597, opLswi)
	opx(&t.FPOn, 31, 725, opStswi)
	opx(&t.FPOn, 31, 20, opLwarx)
	opx(&t.FPOn, 31, 150, opStwcxDot)
}

func eaD(c *CPU, op uint32) uint32 {
	ra := fieldRA(op)
	var base uint32
	if ra != 0 {
		base = c.GPR[ra]
	}
	return base + uint32(simm16(op))
}

func eaX(c *CPU, op uint32) uint32 {
	ra := fieldRA(op)
	var base uint32
	if ra != 0 {
		base = c.GPR[ra]
	}
	return base + c.GPR[fieldRB(op)]
}

func opLwz(c *CPU, op uint32) {
	if v, ok := c.MMU.Read(c, eaD(c, op), 4); ok {
		c.GPR[fieldRT(op)] = uint32(v)
	}
}

func opLwzu(c *CPU, op uint32) {
	addr := eaD(c, op)
	if v, ok := c.MMU.Read(c, addr, 4); ok {
		c.GPR[fieldRT(op)] = uint32(v)
		c.GPR[fieldRA(op)] = addr
	}
}

func opLbz(c *CPU, op uint32) {
	if v, ok := c.MMU.Read(c, eaD(c, op), 1); ok {
		c.GPR[fieldRT(op)] = uint32(v)
	}
}

func opLbzu(c *CPU, op uint32) {
	addr := eaD(c, op)
	if v, ok := c.MMU.Read(c, addr, 1); ok {
		c.GPR[fieldRT(op)] = uint32(v)
		c.GPR[fieldRA(op)] = addr
	}
}

func opLhz(c *CPU, op uint32) {
	if v, ok := c.MMU.Read(c, eaD(c, op), 2); ok {
		c.GPR[fieldRT(op)] = uint32(v)
	}
}

func opLhzu(c *CPU, op uint32) {
	addr := eaD(c, op)
	if v, ok := c.MMU.Read(c, addr, 2); ok {
		c.GPR[fieldRT(op)] = uint32(v)
		c.GPR[fieldRA(op)] = addr
	}
}

func opLha(c *CPU, op uint32) {
	if v, ok := c.MMU.Read(c, eaD(c, op), 2); ok {
		c.GPR[fieldRT(op)] = uint32(int32(int16(v)))
	}
}

func opLhau(c *CPU, op uint32) {
	addr := eaD(c, op)
	if v, ok := c.MMU.Read(c, addr, 2); ok {
		c.GPR[fieldRT(op)] = uint32(int32(int16(v)))
		c.GPR[fieldRA(op)] = addr
	}
}

func opStw(c *CPU, op uint32) {
	c.MMU.Write(c, eaD(c, op), 4, uint64(c.GPR[fieldRS(op)]))
}

func opStwu(c *CPU, op uint32) {
	addr := eaD(c, op)
	if c.MMU.Write(c, addr, 4, uint64(c.GPR[fieldRS(op)])) {
		c.GPR[fieldRA(op)] = addr
	}
}

func opStb(c *CPU, op uint32) {
	c.MMU.Write(c, eaD(c, op), 1, uint64(c.GPR[fieldRS(op)]))
}

func opStbu(c *CPU, op uint32) {
	addr := eaD(c, op)
	if c.MMU.Write(c, addr, 1, uint64(c.GPR[fieldRS(op)])) {
		c.GPR[fieldRA(op)] = addr
	}
}

func opSth(c *CPU, op uint32) {
	c.MMU.Write(c, eaD(c, op), 2, uint64(c.GPR[fieldRS(op)]))
}

func opSthu(c *CPU, op uint32) {
	addr := eaD(c, op)
	if c.MMU.Write(c, addr, 2, uint64(c.GPR[fieldRS(op)])) {
		c.GPR[fieldRA(op)] = addr
	}
}

func opLmw(c *CPU, op uint32) {
	addr := eaD(c, op)
	for r := fieldRT(op); r <= 31; r++ {
		v, ok := c.MMU.Read(c, addr, 4)
		if !ok {
			return
		}
		c.GPR[r] = uint32(v)
		addr += 4
	}
}

func opStmw(c *CPU, op uint32) {
	addr := eaD(c, op)
	for r := fieldRT(op); r <= 31; r++ {
		if !c.MMU.Write(c, addr, 4, uint64(c.GPR[r])) {
			return
		}
		addr += 4
	}
}

func opLwzx(c *CPU, op uint32) {
	if v, ok := c.MMU.Read(c, eaX(c, op), 4); ok {
		c.GPR[fieldRT(op)] = uint32(v)
	}
}

func opLbzx(c *CPU, op uint32) {
	if v, ok := c.MMU.Read(c, eaX(c, op), 1); ok {
		c.GPR[fieldRT(op)] = uint32(v)
	}
}

func opLhzx(c *CPU, op uint32) {
	if v, ok := c.MMU.Read(c, eaX(c, op), 2); ok {
		c.GPR[fieldRT(op)] = uint32(v)
	}
}

func opStwx(c *CPU, op uint32) {
	c.MMU.Write(c, eaX(c, op), 4, uint64(c.GPR[fieldRS(op)]))
}

func opStbx(c *CPU, op uint32) {
	c.MMU.Write(c, eaX(c, op), 1, uint64(c.GPR[fieldRS(op)]))
}

func opSthx(c *CPU, op uint32) {
	c.MMU.Write(c, eaX(c, op), 2, uint64(c.GPR[fieldRS(op)]))
}

// opLwarx and opStwcxDot implement the reserve-bit pair used for atomic
// read-modify-write sequences: a reservation is set by lwarx and
// consumed (checked, then cleared) by stwcx. regardless of success.
func opLwarx(c *CPU, op uint32) {
	addr := eaX(c, op)
	if v, ok := c.MMU.Read(c, addr, 4); ok {
		c.GPR[fieldRT(op)] = uint32(v)
		c.Reserve = true
		c.ReserveAddr = addr
	}
}

func opStwcxDot(c *CPU, op uint32) {
	addr := eaX(c, op)
	ok := c.Reserve && c.ReserveAddr == addr
	if ok {
		ok = c.MMU.Write(c, addr, 4, uint64(c.GPR[fieldRS(op)]))
	}
	c.Reserve = false
	var cr uint32
	if ok {
		cr = 0x2
	}
	if c.XER&XERSOBit != 0 {
		cr |= 0x1
	}
	c.SetCRField(0, cr)
}

func opLwzux(c *CPU, op uint32) {
	addr := eaX(c, op)
	if v, ok := c.MMU.Read(c, addr, 4); ok {
		c.GPR[fieldRT(op)] = uint32(v)
		c.GPR[fieldRA(op)] = addr
	}
}

func opLbzux(c *CPU, op uint32) {
	addr := eaX(c, op)
	if v, ok := c.MMU.Read(c, addr, 1); ok {
		c.GPR[fieldRT(op)] = uint32(v)
		c.GPR[fieldRA(op)] = addr
	}
}

func opLhzux(c *CPU, op uint32) {
	addr := eaX(c, op)
	if v, ok := c.MMU.Read(c, addr, 2); ok {
		c.GPR[fieldRT(op)] = uint32(v)
		c.GPR[fieldRA(op)] = addr
	}
}

func opLhax(c *CPU, op uint32) {
	if v, ok := c.MMU.Read(c, eaX(c, op), 2); ok {
		c.GPR[fieldRT(op)] = uint32(int32(int16(v)))
	}
}

func opLhaux(c *CPU, op uint32) {
	addr := eaX(c, op)
	if v, ok := c.MMU.Read(c, addr, 2); ok {
		c.GPR[fieldRT(op)] = uint32(int32(int16(v)))
		c.GPR[fieldRA(op)] = addr
	}
}

func opStwux(c *CPU, op uint32) {
	addr := eaX(c, op)
	if c.MMU.Write(c, addr, 4, uint64(c.GPR[fieldRS(op)])) {
		c.GPR[fieldRA(op)] = addr
	}
}

func opStbux(c *CPU, op uint32) {
	addr := eaX(c, op)
	if c.MMU.Write(c, addr, 1, uint64(c.GPR[fieldRS(op)])) {
		c.GPR[fieldRA(op)] = addr
	}
}

func opSthux(c *CPU, op uint32) {
	addr := eaX(c, op)
	if c.MMU.Write(c, addr, 2, uint64(c.GPR[fieldRS(op)])) {
		c.GPR[fieldRA(op)] = addr
	}
}

// Byte-reversed forms: the value crosses the bus in the opposite byte
// order from the rest of the memory system.
func opLwbrx(c *CPU, op uint32) {
	if v, ok := c.MMU.Read(c, eaX(c, op), 4); ok {
		u := uint32(v)
		c.GPR[fieldRT(op)] = u>>24 | (u>>8)&0xFF00 | (u<<8)&0xFF0000 | u<<24
	}
}

func opLhbrx(c *CPU, op uint32) {
	if v, ok := c.MMU.Read(c, eaX(c, op), 2); ok {
		u := uint16(v)
		c.GPR[fieldRT(op)] = uint32(u>>8 | u<<8)
	}
}

func opStwbrx(c *CPU, op uint32) {
	u := c.GPR[fieldRS(op)]
	v := u>>24 | (u>>8)&0xFF00 | (u<<8)&0xFF0000 | u<<24
	c.MMU.Write(c, eaX(c, op), 4, uint64(v))
}

func opSthbrx(c *CPU, op uint32) {
	u := uint16(c.GPR[fieldRS(op)])
	c.MMU.Write(c, eaX(c, op), 2, uint64(u>>8|u<<8))
}

// String loads/stores move NB bytes (NB=0 means 32) starting at RA|0,
// packing big-endian into successive registers from RT, wrapping at r31
// back to r0.
func opLswi(c *CPU, op uint32) {
	ra := fieldRA(op)
	var addr uint32
	if ra != 0 {
		addr = c.GPR[ra]
	}
	nb := fieldRB(op)
	if nb == 0 {
		nb = 32
	}
	r := fieldRT(op)
	for i := uint32(0); i < nb; i++ {
		if i%4 == 0 {
			if i > 0 {
				r = (r + 1) & 31
			}
			c.GPR[r] = 0
		}
		b, ok := c.MMU.Read(c, addr+i, 1)
		if !ok {
			return
		}
		c.GPR[r] |= uint32(b) << uint((3-i%4)*8)
	}
}

func opStswi(c *CPU, op uint32) {
	ra := fieldRA(op)
	var addr uint32
	if ra != 0 {
		addr = c.GPR[ra]
	}
	nb := fieldRB(op)
	if nb == 0 {
		nb = 32
	}
	r := fieldRT(op)
	for i := uint32(0); i < nb; i++ {
		if i%4 == 0 && i > 0 {
			r = (r + 1) & 31
		}
		b := (c.GPR[r] >> uint((3-i%4)*8)) & 0xFF
		if !c.MMU.Write(c, addr+i, 1, uint64(b)) {
			return
		}
	}
}
