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

// SPR and privileged-state instructions. SPR access is a big switch
// keyed on the SPR number, with side-effecting SPRs calling a named
// "DidChange" hook rather than being read back from the array. BAT and
// SDR1 writes queue a flush via ctxsync instead of flushing inline.

func installSystem(t *Tables) {
	opx(&t.FPOn, 31, 467, opMtspr)
	opx(&t.FPOn, 31, 339, opMfspr)
	opx(&t.FPOn, 31, 146, opMtmsr)
	opx(&t.FPOn, 31, 83, opMfmsr)
	opx(&t.FPOn, 31, 371, opMftb)
	opx(&t.FPOn, 31, 210, opMtsr)
	opx(&t.FPOn, 31, 242, opMtsrin)
	opx(&t.FPOn, 31, 595, opMfsr)
	opx(&t.FPOn, 31, 659, opMfsrin)
	opx(&t.FPOn, 31, 306, opTlbie)
	opx(&t.FPOn, 31, 370, opTlbia)
	opx(&t.FPOn, 31, 566, opTlbsync)
	opx(&t.FPOn, 31, 4, opTw)
	op(&t.FPOn, 3, opTwi)
	opx(&t.FPOn, 31, 854, opEieio)
	opx(&t.FPOn, 31, 598, opSync)

	// Cache management: the interpreter has no caches, so all but dcbz
	// reduce to no-ops. dcbz must still zero its 32-byte line.
	opx(&t.FPOn, 31, 54, opCacheNop)  // dcbst
	opx(&t.FPOn, 31, 86, opCacheNop)  // dcbf
	opx(&t.FPOn, 31, 246, opCacheNop) // dcbtst
	opx(&t.FPOn, 31, 278, opCacheNop) // dcbt
	opx(&t.FPOn, 31, 470, opCacheNop) // dcbi
	opx(&t.FPOn, 31, 982, opCacheNop) // icbi
	opx(&t.FPOn, 31, 1014, opDcbz)
}

func sprNum(op uint32) int {
	raw := (op >> 11) & 0x3FF
	return int((raw&0x1F)<<5 | (raw >> 5))
}

func opMtspr(c *CPU, op uint32) {
	n := sprNum(op)
	v := c.GPR[fieldRS(op)]
	c.writeSPR(n, v)
}

func (c *CPU) writeSPR(n int, v uint32) {
	switch {
	case n == SPRSDR1:
		c.SPR[n] = v
		c.onSDR1Change()
	case n >= SPRIBAT0U && n <= SPRDBAT3L:
		c.SPR[n] = v
		c.writeBATRange(n, v)
		c.onBATChange()
	case n == SPRDEC:
		c.SPR[n] = v
		c.WriteDecrementer(v)
	case n == SPRTBL:
		c.WriteTimebase(c.readTimebase()&^uint64(0xFFFFFFFF) | uint64(v))
	case n == SPRTBU:
		c.WriteTimebase(c.readTimebase()&0xFFFFFFFF | uint64(v)<<32)
	case c.Is601 && n == SPRRTCUW:
		c.writeRTCU(v)
	case c.Is601 && n == SPRRTCLW:
		c.writeRTCL(v)
	case n == SPRHID0:
		c.hid0DidChange(v)
	case n == SPRPVR:
		// read-only architecturally; writes are ignored.
	default:
		c.SPR[n] = v
	}
}

// writeBATRange decodes one of the 16 BAT SPRs (IBAT0U..DBAT3L, a
// contiguous SPR range) into c.IBAT/c.DBAT.
func (c *CPU) writeBATRange(n int, v uint32) {
	idx := (n - SPRIBAT0U) / 2
	isData := false
	if n >= SPRDBAT0U {
		idx = (n - SPRDBAT0U) / 2
		isData = true
	}
	upper := (n-SPRIBAT0U)%2 == 0
	if idx < 0 || idx > 3 {
		return
	}
	table := &c.IBAT
	if isData {
		table = &c.DBAT
	}
	b := &table[idx]
	if upper {
		b.BEPI = v &^ 0x1FFFF
		b.HiMask = (v >> 2) & 0x7FF
		b.Valid = v&0x2 != 0 || v&0x1 != 0
		b.Access = uint8(v & 0x3)
	} else {
		b.PhysHi = v &^ 0x1FFFF
		b.Prot = uint8(v & 0x3)
	}
}

func opMfspr(c *CPU, op uint32) {
	n := sprNum(op)
	var v uint32
	switch n {
	case SPRTBL:
		v = uint32(c.readTimebase())
	case SPRTBU:
		v = uint32(c.readTimebase() >> 32)
	case SPRDEC:
		v = c.readDecrementer()
	case SPRRTCU:
		if c.Is601 {
			v = c.readRTCU()
		}
	case SPRRTCL:
		if c.Is601 {
			v = c.readRTCL()
		}
	default:
		v = c.SPR[n]
	}
	c.GPR[fieldRT(op)] = v
}

func opMtmsr(c *CPU, op uint32) {
	c.MsrDidChange(c.GPR[fieldRS(op)])
	if c.Sync != nil {
		c.Sync.Run()
	}
}

func opMfmsr(c *CPU, op uint32) {
	c.GPR[fieldRT(op)] = c.MSR
}

// opMftb reads the user-visible time-base registers. The TBR space uses
// 268/269 for TBL/TBU, distinct from the supervisor mfspr numbers but
// sourced from the same counter.
func opMftb(c *CPU, op uint32) {
	if sprNum(op) == 269 {
		c.GPR[fieldRT(op)] = uint32(c.readTimebase() >> 32)
		return
	}
	c.GPR[fieldRT(op)] = uint32(c.readTimebase())
}

// Segment-register moves. Writes go through the PAT-flush hook the same
// way SDR1 writes do: the flush is queued, and a context-sync point
// (isync/rfi/sc) makes it visible.
func opMtsr(c *CPU, op uint32) {
	c.SR[fieldRA(op)&0xF] = c.GPR[fieldRS(op)]
	c.onSegmentRegisterChange()
}

func opMtsrin(c *CPU, op uint32) {
	c.SR[c.GPR[fieldRB(op)]>>28] = c.GPR[fieldRS(op)]
	c.onSegmentRegisterChange()
}

func opMfsr(c *CPU, op uint32) {
	c.GPR[fieldRT(op)] = c.SR[fieldRA(op)&0xF]
}

func opMfsrin(c *CPU, op uint32) {
	c.GPR[fieldRT(op)] = c.SR[c.GPR[fieldRB(op)]>>28]
}

// opTlbie conservatively flushes the whole TLB rather than the single
// EA: correct, just slower than a granular invalidate.
func opTlbie(c *CPU, _ uint32) {
	if c.hooks.FlushTLB != nil {
		c.hooks.FlushTLB()
	}
}

func opTlbia(c *CPU, _ uint32) {
	if c.hooks.FlushTLB != nil {
		c.hooks.FlushTLB()
	}
}

// opTlbsync is a no-op: there is no other processor whose TLB
// invalidations need ordering against.
func opTlbsync(c *CPU, _ uint32) {}

func opCacheNop(c *CPU, _ uint32) {}

// opDcbz zeroes the 32-byte cache line containing EA. The line is
// always within one page, so four aligned 8-byte stores cover it.
func opDcbz(c *CPU, op uint32) {
	ea := eaX(c, op) &^ 31
	for i := uint32(0); i < 32; i += 8 {
		c.MMU.Write(c, ea+i, 8, 0)
	}
}

func opTwi(c *CPU, op uint32) {
	to := fieldRT(op)
	a := int32(c.GPR[fieldRA(op)])
	b := simm16(op)
	if trapConditionMet(to, a, b) {
		c.Exc.Raise(c, ExcProgram, CauseTrap)
	}
}

func opTw(c *CPU, op uint32) {
	to := fieldRT(op)
	a := int32(c.GPR[fieldRA(op)])
	b := int32(c.GPR[fieldRB(op)])
	if trapConditionMet(to, a, b) {
		c.Exc.Raise(c, ExcProgram, CauseTrap)
	}
}

func trapConditionMet(to uint32, a, b int32) bool {
	if to&0x10 != 0 && a < b {
		return true
	}
	if to&0x08 != 0 && a > b {
		return true
	}
	if to&0x04 != 0 && a == b {
		return true
	}
	if to&0x02 != 0 && uint32(a) < uint32(b) {
		return true
	}
	if to&0x01 != 0 && uint32(a) > uint32(b) {
		return true
	}
	return false
}

// opEieio is a no-op for a single-threaded interpreter: there is no
// weaker-than-program-order memory system to enforce against. opSync
// only drains the context-sync queue.
func opEieio(c *CPU, _ uint32) {}

func opSync(c *CPU, _ uint32) {
	if c.Sync != nil {
		c.Sync.Run()
	}
}
