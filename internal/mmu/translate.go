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

// translate resolves vaddr to a physical page through the TLB, falling
// back to BAT then PAT on a miss. On failure it raises DSI/ISI through
// c.Exc and returns ok=false — the call never returns to the handler in
// that case, since Raise performs a non-local exit, but translate still
// reports ok=false defensively.
func (m *MMU) translate(c *cpu.CPU, vaddr uint32, tlb *tlbSet, isWrite, isFetch bool) (phys uint32, flags tlbFlags, ok bool) {
	if c.Mode() == cpu.ModeReal {
		return vaddr, flagMem | flagWritable, true
	}

	page := vaddr >> 12
	if e, hit := tlb.lookup(page); hit {
		if isWrite && e.flags&flagWritable == 0 {
			m.raiseProtection(c, vaddr, isFetch, isWrite)
			return 0, 0, false
		}
		if isWrite && e.flags&flagCSet == 0 {
			// First write through an entry filled by a read: the PTE's
			// C bit in guest memory is still clear, so re-walk to set
			// it before caching the fact on the TLB entry.
			if e.flags&flagFromPAT != 0 {
				m.patWalk(c, vaddr&^0xFFF, true)
			}
			tlb.setChanged(page)
			e.flags |= flagCSet
		}
		return e.phys | (vaddr & 0xFFF), e.flags, true
	}

	// The 601's I/O controller interface takes precedence over BAT: a set
	// T bit (SR bit 0) in the segment covering vaddr forces a BAT miss,
	// sending the access straight to the PAT walk.
	force601Miss := c.Is601 && c.SR[vaddr>>28]&0x80000000 != 0

	ibats, dbats := &c.IBAT, &c.DBAT
	if c.Is601 {
		dbats = ibats
	}
	bats := dbats
	if isFetch {
		bats = ibats
	}
	if !force601Miss {
		if physFull, writable, hit, violation := batLookup(bats, c, vaddr, isWrite); hit {
			if violation {
				m.raiseProtection(c, vaddr, isFetch, isWrite)
				return 0, 0, false
			}
			f := flagMem | flagFromBAT
			if writable {
				f |= flagWritable
			}
			physPage := physFull &^ 0xFFF
			tlb.insert(page, f, physPage)
			return physFull, f, true
		}
	}

	physPage, writable, walked, violation := m.patWalk(c, vaddr&^0xFFF, isWrite)
	if violation {
		m.raiseProtection(c, vaddr, isFetch, isWrite)
		return 0, 0, false
	}
	if !walked {
		m.raiseMiss(c, vaddr, isFetch, isWrite)
		return 0, 0, false
	}
	f := flagMem | flagFromPAT
	if writable {
		f |= flagWritable
	}
	tlb.insert(page, f, physPage)
	return physPage | (vaddr & 0xFFF), f, true
}

func (m *MMU) raiseMiss(c *cpu.CPU, vaddr uint32, isFetch, isWrite bool) {
	if isFetch {
		c.Exc.Raise(c, cpu.ExcISI, 1<<30) // SRR1 bit 1: no valid translation
		return
	}
	dsisr := uint32(1 << 30) // DSISR bit 1: no valid translation
	if isWrite {
		dsisr |= 1 << 25 // DSISR bit 6: access was a store
	}
	c.PendingDAR = vaddr
	c.PendingDSISR = dsisr
	c.Exc.Raise(c, cpu.ExcDSI, 0)
}

func (m *MMU) raiseProtection(c *cpu.CPU, vaddr uint32, isFetch, isWrite bool) {
	if isFetch {
		c.Exc.Raise(c, cpu.ExcISI, 1<<28) // SRR1 bit 3: protection violation
		return
	}
	dsisr := uint32(1 << 27) // DSISR bit 4: protection violation
	if isWrite {
		dsisr |= 1 << 25
	}
	c.PendingDAR = vaddr
	c.PendingDSISR = dsisr
	c.Exc.Raise(c, cpu.ExcDSI, 0)
}
