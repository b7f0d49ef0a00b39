/*
 * ppc32 - Memory map registry.
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

// Package memmap implements the memory-mapped device registry: it
// resolves a physical address to
// an AddressMapEntry (ROM/RAM/MMIO), and backs RAM/ROM with flat host
// byte slices the MMU can resolve directly into host pointers.
//
// Regions are a small list of inclusive ranges (ROM, RAM, MMIO device
// ranges), kept in insertion order and checked for overlap,
// since a Mac ROM + RAM + device layout is not a single contiguous space.
package memmap

import "fmt"

// Kind identifies the nature of a physical address range.
type Kind int

const (
	KindRAM Kind = iota
	KindROM
	KindMMIO
)

// MMIODevice is the read/write contract a device in an MMIO range must
// satisfy. Size is 1, 2, 4, or 8 bytes.
type MMIODevice interface {
	Name() string
	Read(offset uint32, size int) (uint64, error)
	Write(offset uint32, size int, val uint64) error
	// RequiresByteSwap reports whether the device's bus is wired
	// byte-swapped relative to the guest's natural endianness.
	RequiresByteSwap() bool
}

// AddressMapEntry describes one physical range in the device registry.
type AddressMapEntry struct {
	Start, End uint32 // inclusive physical range
	Kind       Kind
	Host       []byte      // backing bytes for RAM/ROM
	Device     MMIODevice  // handle for MMIO
	DeviceBase uint32      // Start, kept alongside Device for offset math
}

func (e AddressMapEntry) contains(addr uint32) bool {
	return addr >= e.Start && addr <= e.End
}

// Size returns the number of bytes in the range.
func (e AddressMapEntry) Size() uint32 {
	return e.End - e.Start + 1
}

// Registry is the device/memory registry: an insertion-ordered,
// non-overlapping set of AddressMapEntry ranges plus lookup.
type Registry struct {
	entries []AddressMapEntry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{}
}

// AddRAM installs a host-backed RAM region of size bytes starting at
// start. A zero-sized region is an error.
func (r *Registry) AddRAM(start uint32, size uint32) error {
	if size == 0 {
		return fmt.Errorf("memmap: zero-size RAM region at %#x", start)
	}
	return r.add(AddressMapEntry{Start: start, End: start + size - 1, Kind: KindRAM, Host: make([]byte, size)})
}

// AddROM installs a host-backed, write-absorbing ROM region containing
// the given image bytes starting at start.
func (r *Registry) AddROM(start uint32, image []byte) error {
	if len(image) == 0 {
		return fmt.Errorf("memmap: zero-size ROM region at %#x", start)
	}
	return r.add(AddressMapEntry{Start: start, End: start + uint32(len(image)) - 1, Kind: KindROM, Host: append([]byte(nil), image...)})
}

// AddMMIO installs a device-backed region of size bytes starting at start.
func (r *Registry) AddMMIO(start, size uint32, dev MMIODevice) error {
	if size == 0 {
		return fmt.Errorf("memmap: zero-size MMIO region at %#x", start)
	}
	return r.add(AddressMapEntry{Start: start, End: start + size - 1, Kind: KindMMIO, Device: dev, DeviceBase: start})
}

func (r *Registry) add(e AddressMapEntry) error {
	for _, o := range r.entries {
		if e.Start <= o.End && o.Start <= e.End {
			return fmt.Errorf("memmap: region %#x-%#x overlaps existing %#x-%#x", e.Start, e.End, o.Start, o.End)
		}
	}
	r.entries = append(r.entries, e)
	return nil
}

// FindRange returns the AddressMapEntry containing phys, if any.
func (r *Registry) FindRange(phys uint32) (AddressMapEntry, bool) {
	for _, e := range r.entries {
		if e.contains(phys) {
			return e, true
		}
	}
	return AddressMapEntry{}, false
}

// DMAMapping is the result of mapping a DMA transfer: either a host slice
// (RAM/ROM) or a device handle with base and offset.
type DMAMapping struct {
	Kind       Kind
	Writable   bool
	Host       []byte
	Device     MMIODevice
	DeviceBase uint32
	Offset     uint32
}

// MapDMA resolves phys for a size-byte DMA transfer. A transfer that
// straddles into an adjacent region of the same kind is accepted, but
// the mapping describes only the first region: Host ends at that
// region's end. A transfer that crosses into unmapped space or a
// region of a different kind cannot be mapped.
func (r *Registry) MapDMA(phys uint32, size uint32, allowMMIO bool) (DMAMapping, error) {
	e, ok := r.FindRange(phys)
	if !ok {
		return DMAMapping{}, fmt.Errorf("memmap: DMA to unmapped physical address %#x", phys)
	}
	if e.Kind == KindMMIO && !allowMMIO {
		return DMAMapping{}, fmt.Errorf("memmap: DMA to MMIO range %#x not permitted here", phys)
	}
	end := phys + size - 1
	if end > e.End {
		next, ok := r.FindRange(e.End + 1)
		if !ok || next.Kind != e.Kind {
			return DMAMapping{}, fmt.Errorf("memmap: DMA at %#x size %d crosses into incompatible region", phys, size)
		}
	}
	switch e.Kind {
	case KindMMIO:
		return DMAMapping{Kind: KindMMIO, Writable: true, Device: e.Device, DeviceBase: e.DeviceBase, Offset: phys - e.Start}, nil
	default:
		off := phys - e.Start
		return DMAMapping{Kind: e.Kind, Writable: e.Kind == KindRAM, Host: e.Host[off:], Offset: off}, nil
	}
}
