/*
 * ppc32 - Software-managed MMU.
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

package mmu

import "github.com/beigebox/ppc32/internal/cpu"

// batLookup checks the four BAT registers of the appropriate array
// (instruction or data) for a block mapping covering vaddr. The 601
// unifies IBAT/DBAT; callers pass the same array for both directions in
// that case (see translate).
func batLookup(bats *[4]cpu.BAT, c *cpu.CPU, vaddr uint32, isWrite bool) (phys uint32, writable bool, hit bool, protViolation bool) {
	user := c.MSR&cpu.MSRPR != 0
	for i := range bats {
		b := &bats[i]
		if !b.Valid {
			continue
		}
		// blockMask covers every bit the block's size makes a "pass
		// through unchanged" offset bit: the fixed 128KB granule (17
		// bits) plus whatever extra high bits HiMask marks don't-care.
		blockMask := (b.HiMask << 17) | 0x1FFFF
		if vaddr&^blockMask != b.BEPI&^blockMask {
			continue
		}
		if user && b.Access&1 == 0 {
			continue
		}
		if !user && b.Access&2 == 0 {
			continue
		}
		// PP==0 is no access in either direction; an odd PP (01 or the
		// reserved 11) blocks writes only, same as page-level PP.
		if b.Prot == 0 || (isWrite && b.Prot&1 != 0) {
			return 0, false, true, true
		}
		offset := vaddr & blockMask
		return (b.PhysHi &^ blockMask) | offset, b.Prot&1 == 0, true, false
	}
	return 0, false, false, false
}
