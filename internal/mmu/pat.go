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

import (
	"github.com/beigebox/ppc32/internal/cpu"
	"github.com/beigebox/ppc32/internal/endian"
	"github.com/beigebox/ppc32/internal/memmap"
)

const (
	pteWordsPerPTE = 2
	pteBytes       = pteWordsPerPTE * 4
	ptesPerPTEG    = 8
	ptegBytes      = ptesPerPTEG * pteBytes

	pteValidBit = uint32(1) << 31 // word0 bit0, IBM numbering
	pteHBit     = uint32(1) << 6  // word0 bit25
	pteRMask    = uint32(1) << 8  // word1 byte 6, low bit
	pteCMask    = uint32(1) << 7  // word1 byte 7, high bit
)

// ptegAddr composes a PTEG's physical address from SDR1's HTABORG and
// HTABMASK fields: the mask gates which middle hash bits reach the
// address, sizing the table in power-of-two steps.
func ptegAddr(sdr1, hash uint32) uint32 {
	addr := sdr1 & 0xFE000000
	addr |= (sdr1 & 0x01FF0000) | (((sdr1 & 0x1FF) << 16) & ((hash & 0x7FC00) << 6))
	addr |= (hash & 0x3FF) << 6
	return addr
}

// patWalk performs the two-hash PTEG scan: a primary hash, and on miss
// an inverted secondary hash, each scanning 8 co-located PTEs. It sets
// PTE R on every successful walk and PTE C on the first write, and
// returns the resolved physical page plus whether the mapping is
// writable. violation reports a protection fault on an entry that
// otherwise matched (PP/key denied the access) as distinct from ok=false,
// which means no matching PTE was found at all.
func (m *MMU) patWalk(c *cpu.CPU, vaddr uint32, isWrite bool) (phys uint32, writable bool, ok bool, violation bool) {
	segReg := c.SR[vaddr>>28]
	vsid := segReg & 0x00FFFFFF
	pageIndex := (vaddr >> 12) & 0xFFFF
	sdr1 := c.SPR[cpu.SPRSDR1]

	// key = (Ks & !MSR[PR]) | (Kp & MSR[PR]); Ks is SR bit 1, Kp is SR
	// bit 2 in IBM numbering, i.e. bits 30 and 29 counting from the LSB.
	var key uint32
	if c.MSR&cpu.MSRPR != 0 {
		key = (segReg >> 29) & 1
	} else {
		key = (segReg >> 30) & 1
	}

	// The hash takes only the low 19 VSID bits; the full 24-bit VSID is
	// still what each PTE must match.
	hash := (segReg & 0x7FFFF) ^ pageIndex
	if phys, writable, ok, violation = m.scanPTEG(ptegAddr(sdr1, hash), vsid, pageIndex, false, isWrite, key); ok || violation {
		return
	}
	return m.scanPTEG(ptegAddr(sdr1, ^hash), vsid, pageIndex, true, isWrite, key)
}

func (m *MMU) scanPTEG(groupAddr, vsid, pageIndex uint32, secondary, isWrite bool, key uint32) (phys uint32, writable bool, ok bool, violation bool) {
	api := (pageIndex >> 10) & 0x3F
	for i := 0; i < ptesPerPTEG; i++ {
		entryAddr := groupAddr + uint32(i)*pteBytes
		w0, w1, pteHost, found := m.readPTEWords(entryAddr)
		if !found || w0&pteValidBit == 0 {
			continue
		}
		entryVSID := (w0 >> 7) & 0x00FFFFFF
		entryAPI := w0 & 0x3F
		entryH := w0&pteHBit != 0
		if entryVSID != vsid || entryAPI != api || entryH != secondary {
			continue
		}
		pp := w1 & 0x3
		// DSI/ISI on: any access with key=1 and PP=00, a write with
		// key=1 and PP=01, or a write with PP=11.
		if (key != 0 && (pp == 0 || (pp == 1 && isWrite))) || (pp == 3 && isWrite) {
			return 0, false, false, true
		}
		writable = pp != 3 && (pp == 2 || key == 0)
		phys = w1 & 0xFFFFF000
		w1 |= pteRMask
		if isWrite {
			w1 |= pteCMask
		}
		endian.WriteBE(pteHost[4:8], 4, uint64(w1))
		return phys, writable, true, false
	}
	return 0, false, false, false
}

// readPTEWords resolves entryAddr's two 32-bit words through the
// physical registry, returning the backing slice for in-place R/C
// update. The containing region is cached across calls, since every
// PTEG of a given page table lives in the same one.
func (m *MMU) readPTEWords(entryAddr uint32) (w0, w1 uint32, host []byte, ok bool) {
	e := m.lastPtab
	if !m.lastPtabOK || entryAddr < e.Start || entryAddr > e.End {
		var found bool
		e, found = m.Mem.FindRange(entryAddr)
		if !found || e.Kind == memmap.KindMMIO {
			return 0, 0, nil, false
		}
		m.lastPtab = e
		m.lastPtabOK = true
	}
	off := entryAddr - e.Start
	if off+pteBytes > uint32(len(e.Host)) {
		return 0, 0, nil, false
	}
	host = e.Host[off : off+pteBytes]
	w0 = uint32(endian.ReadBE(host[0:4], 4))
	w1 = uint32(endian.ReadBE(host[4:8], 4))
	return w0, w1, host, true
}
