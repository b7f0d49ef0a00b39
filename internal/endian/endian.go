/*
 * ppc32 - Endian conversion helpers.
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

// Package endian provides the sized, byte-order aware memory helpers the
// MMU uses for guest reads and writes, plus the PowerPC little-endian
// guest-mode address munge.
package endian

import "encoding/binary"

// Munge returns the XOR constant applied to a guest address of the given
// access size when MSR[LE] is set, realizing the PowerPC address-munging
// convention for little-endian guest mode. Sizes other than 1, 2, 4, 8
// are treated as 1.
func Munge(size int) uint32 {
	switch size {
	case 2:
		return 6
	case 4:
		return 4
	case 8:
		return 0
	default:
		return 7
	}
}

// MungeAddr applies the guest-LE munge to vaddr for an access of size bytes.
func MungeAddr(vaddr uint32, size int) uint32 {
	return vaddr ^ Munge(size)
}

// ReadBE reads a big-endian value of the given width (1, 2, 4, or 8 bytes)
// from b and returns it zero-extended to 64 bits.
func ReadBE(b []byte, size int) uint64 {
	switch size {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.BigEndian.Uint16(b))
	case 4:
		return uint64(binary.BigEndian.Uint32(b))
	case 8:
		return binary.BigEndian.Uint64(b)
	default:
		panic("endian: bad size")
	}
}

// WriteBE writes a big-endian value of the given width into b.
func WriteBE(b []byte, size int, v uint64) {
	switch size {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.BigEndian.PutUint16(b, uint16(v))
	case 4:
		binary.BigEndian.PutUint32(b, uint32(v))
	case 8:
		binary.BigEndian.PutUint64(b, v)
	default:
		panic("endian: bad size")
	}
}

// ReadLE is the little-endian counterpart of ReadBE, used when the memory
// controller reports that a device requires byte-swapped access.
func ReadLE(b []byte, size int) uint64 {
	switch size {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	case 8:
		return binary.LittleEndian.Uint64(b)
	default:
		panic("endian: bad size")
	}
}

// WriteLE is the little-endian counterpart of WriteBE.
func WriteLE(b []byte, size int, v uint64) {
	switch size {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(b, v)
	default:
		panic("endian: bad size")
	}
}
