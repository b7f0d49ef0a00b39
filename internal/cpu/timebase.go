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

import "time"

// Time base and decrementer. Both are derived on demand from a
// wall-clock anchor rather than ticked every instruction: reads compute
// the current value from host time instead of incrementing per opcode.

func (c *CPU) nowNS() uint64 {
	return uint64(time.Now().UnixNano())
}

func (c *CPU) readTimebase() uint64 {
	if c.TBFreqHz == 0 {
		return c.TBLastValue
	}
	elapsed := c.nowNS() - c.TBLastWriteNS
	ticks := elapsed * c.TBFreqHz / 1e9
	return c.TBLastValue + ticks
}

// WriteTimebase implements mtspr(TBL)/mtspr(TBU), privileged on real
// hardware but exposed here for debugger and test use.
func (c *CPU) WriteTimebase(v uint64) {
	c.TBLastValue = v
	c.TBLastWriteNS = c.nowNS()
}

// Decrementer returns the current value of the decrementer SPR, computed
// lazily from the wall-clock anchor rather than ticked per instruction.
func (c *CPU) Decrementer() uint32 {
	return c.readDecrementer()
}

func (c *CPU) readDecrementer() uint32 {
	if c.TBFreqHz == 0 {
		return c.DECLastValue
	}
	elapsed := c.nowNS() - c.DECLastWriteNS
	ticks := uint32(elapsed * c.TBFreqHz / 1e9)
	return c.DECLastValue - ticks
}

// WriteDecrementer implements mtspr(DEC); a decrementer exception is
// raised by the interpreter loop's periodic check, not here, since a
// write that sets DEC to a negative value must not fire until the next
// poll point.
func (c *CPU) WriteDecrementer(v uint32) {
	c.DECLastValue = v
	c.DECLastWriteNS = c.nowNS()
}

// The 601's real-time clock replaces TBL/TBU with a seconds/nanoseconds
// pair: RTCU counts whole seconds, RTCL nanoseconds within the current
// second in 128 ns steps (bits 31..7).
func (c *CPU) rtcNS() uint64 {
	return c.RTCBaseNS + (c.nowNS() - c.RTCLastWriteNS)
}

func (c *CPU) readRTCU() uint32 {
	return uint32(c.rtcNS() / 1e9)
}

func (c *CPU) readRTCL() uint32 {
	return uint32(c.rtcNS()%1e9) &^ 0x7F
}

func (c *CPU) writeRTCU(seconds uint32) {
	ns := c.rtcNS() % 1e9
	c.RTCBaseNS = uint64(seconds)*1e9 + ns
	c.RTCLastWriteNS = c.nowNS()
}

func (c *CPU) writeRTCL(nsInSecond uint32) {
	sec := c.rtcNS() / 1e9
	c.RTCBaseNS = sec*1e9 + uint64(nsInSecond&^0x7F)
	c.RTCLastWriteNS = c.nowNS()
}
