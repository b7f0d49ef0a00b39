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

// Instruction field extraction helpers, IBM/PowerPC bit numbering (bit 0
// is the MSB of the 32-bit word).

func primaryOp(op uint32) uint32 { return op >> 26 }
func fieldRT(op uint32) uint32   { return (op >> 21) & 0x1F }
func fieldRS(op uint32) uint32   { return (op >> 21) & 0x1F }
func fieldRA(op uint32) uint32   { return (op >> 16) & 0x1F }
func fieldRB(op uint32) uint32   { return (op >> 11) & 0x1F }
func fieldXO10(op uint32) uint32 { return (op >> 1) & 0x3FF }
func fieldXO9(op uint32) uint32  { return (op >> 1) & 0x1FF }
func fieldFRC(op uint32) uint32 { return (op >> 6) & 0x1F }
func fieldRc(op uint32) bool     { return op&1 != 0 }
func fieldOE(op uint32) bool     { return op&(1<<10) != 0 }
func fieldLK(op uint32) bool     { return op&1 != 0 }
func fieldAA(op uint32) bool     { return op&2 != 0 }

func simm16(op uint32) int32 {
	return int32(int16(op & 0xFFFF))
}

func uimm16(op uint32) uint32 {
	return op & 0xFFFF
}

// li extracts the 24-bit branch-immediate field of a b-form instruction,
// sign extended.
func li(op uint32) int32 {
	v := op & 0x03FFFFFC
	if v&0x02000000 != 0 {
		v |= 0xFC000000
	}
	return int32(v)
}

// bd extracts the 14-bit branch-displacement field of a bc-form
// instruction, sign extended.
func bd(op uint32) int32 {
	v := op & 0x0000FFFC
	if v&0x00008000 != 0 {
		v |= 0xFFFF0000
	}
	return int32(v)
}

func fieldBO(op uint32) uint32 { return (op >> 21) & 0x1F }
func fieldBI(op uint32) uint32 { return (op >> 16) & 0x1F }

// mask returns a PowerPC-style bit mask spanning bits mb..me inclusive
// (IBM numbering), used by rlwinm/rlwimi/rlwnm.
func rlMask(mb, me uint32) uint32 {
	var m uint32
	if mb <= me {
		for i := mb; i <= me; i++ {
			m |= 1 << (31 - i)
		}
	} else {
		for i := uint32(0); i <= me; i++ {
			m |= 1 << (31 - i)
		}
		for i := mb; i <= 31; i++ {
			m |= 1 << (31 - i)
		}
	}
	return m
}

func rotl32(v uint32, n uint32) uint32 {
	n &= 31
	return (v << n) | (v >> (32 - n))
}
