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

// readPhys and writePhys perform the host-side access for a translation
// that is known not to cross a page boundary: resolve the physical
// range, apply the guest-LE address munge if active, then dispatch to
// RAM/ROM bytes or an MMIO device. A physical miss on the fetch side
// raises ISI, not DSI.
func (m *MMU) readPhys(c *cpu.CPU, phys uint32, size int, flags tlbFlags, isFetch bool) (uint64, bool) {
	addr := phys
	if m.littleEndian {
		addr = endian.MungeAddr(phys, size)
	}
	e, found := m.Mem.FindRange(addr)
	if !found {
		m.raiseMiss(c, phys, isFetch, false)
		return 0, false
	}
	switch e.Kind {
	case memmap.KindMMIO:
		v, err := e.Device.Read(addr-e.DeviceBase, size)
		if err != nil {
			m.raiseMiss(c, phys, isFetch, false)
			return 0, false
		}
		if e.Device.RequiresByteSwap() {
			v = byteSwap(v, size)
		}
		return v, true
	default:
		off := addr - e.Start
		if off+uint32(size) > e.Size() {
			m.raiseMiss(c, phys, isFetch, false)
			return 0, false
		}
		return endian.ReadBE(e.Host[off:off+uint32(size)], size), true
	}
}

func (m *MMU) writePhys(c *cpu.CPU, phys uint32, size int, val uint64, flags tlbFlags) bool {
	addr := phys
	if m.littleEndian {
		addr = endian.MungeAddr(phys, size)
	}
	e, found := m.Mem.FindRange(addr)
	if !found {
		m.raiseMiss(c, phys, false, true)
		return false
	}
	switch e.Kind {
	case memmap.KindROM:
		return true // writes to ROM are silently absorbed
	case memmap.KindMMIO:
		v := val
		if e.Device.RequiresByteSwap() {
			v = byteSwap(v, size)
		}
		if err := e.Device.Write(addr-e.DeviceBase, size, v); err != nil {
			m.raiseMiss(c, phys, false, true)
			return false
		}
		return true
	default:
		off := addr - e.Start
		if off+uint32(size) > e.Size() {
			m.raiseMiss(c, phys, false, true)
			return false
		}
		endian.WriteBE(e.Host[off:off+uint32(size)], size, val)
		return true
	}
}

func byteSwap(v uint64, size int) uint64 {
	switch size {
	case 2:
		return uint64(uint16(v>>8) | uint16(v<<8))
	case 4:
		u := uint32(v)
		return uint64(u>>24 | (u>>8)&0xFF00 | (u<<8)&0xFF0000 | u<<24)
	default:
		return v
	}
}
