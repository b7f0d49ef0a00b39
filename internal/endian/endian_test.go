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

package endian

import "testing"

func TestMungeInvolution(t *testing.T) {
	for _, size := range []int{1, 2, 4, 8} {
		for _, va := range []uint32{0, 1, 2, 3, 4, 0xFF, 0x1000, 0xDEAD0000} {
			m := MungeAddr(va, size)
			back := MungeAddr(m, size)
			if back != va {
				t.Fatalf("munge(munge(%#x, %d)) = %#x, want %#x", va, size, back, va)
			}
		}
	}
}

func TestReadWriteBERoundTrip(t *testing.T) {
	buf := make([]byte, 8)
	for _, tc := range []struct {
		size int
		val  uint64
	}{
		{1, 0x7f}, {2, 0x1234}, {4, 0xdeadbeef}, {8, 0x0102030405060708},
	} {
		WriteBE(buf, tc.size, tc.val)
		got := ReadBE(buf, tc.size)
		if got != tc.val {
			t.Errorf("size %d: got %#x want %#x", tc.size, got, tc.val)
		}
	}
}
