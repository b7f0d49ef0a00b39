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

// installAltivec wires a minimal AltiVec subset per the scoped-down
// Non-goal ("a handful of load/store and logical ops, not a full vector
// pipeline"): vector load/store plus the bitwise ops on CPU.VR, good
// enough for detection probes and simple vector-register save/restore,
// not a vector ALU.
//
// VX-form instructions carry an 11-bit extended opcode in the same bit
// range the dispatch index uses for its modifier slot, so each one
// occupies exactly one table entry.
func installAltivec(t *Tables) {
	opv(&t.FPOn, 4, 1028, opVand)
	opv(&t.FPOn, 4, 1156, opVor)
	opv(&t.FPOn, 4, 1220, opVxor)
	opx(&t.FPOn, 31, 103, opLvx)
	opx(&t.FPOn, 31, 231, opStvx)
}

func opVand(c *CPU, op uint32) {
	vd, va, vb := fieldRT(op), fieldRA(op), fieldRB(op)
	c.VR[vd][0] = c.VR[va][0] & c.VR[vb][0]
	c.VR[vd][1] = c.VR[va][1] & c.VR[vb][1]
}

func opVor(c *CPU, op uint32) {
	vd, va, vb := fieldRT(op), fieldRA(op), fieldRB(op)
	c.VR[vd][0] = c.VR[va][0] | c.VR[vb][0]
	c.VR[vd][1] = c.VR[va][1] | c.VR[vb][1]
}

func opVxor(c *CPU, op uint32) {
	vd, va, vb := fieldRT(op), fieldRA(op), fieldRB(op)
	c.VR[vd][0] = c.VR[va][0] ^ c.VR[vb][0]
	c.VR[vd][1] = c.VR[va][1] ^ c.VR[vb][1]
}

// opLvx and opStvx move a 16-byte quadword at EA&~15 as two 8-byte
// accesses; the quadword never crosses a page.
func opLvx(c *CPU, op uint32) {
	ea := eaX(c, op) &^ 15
	hi, ok := c.MMU.Read(c, ea, 8)
	if !ok {
		return
	}
	lo, ok := c.MMU.Read(c, ea+8, 8)
	if !ok {
		return
	}
	c.VR[fieldRT(op)] = [2]uint64{hi, lo}
}

func opStvx(c *CPU, op uint32) {
	ea := eaX(c, op) &^ 15
	v := c.VR[fieldRT(op)]
	if c.MMU.Write(c, ea, 8, v[0]) {
		c.MMU.Write(c, ea+8, 8, v[1])
	}
}
