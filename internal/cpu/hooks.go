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

// Hooks decouple CPU from the packages that must react to register
// writes (MMU table selection and flush queuing, dispatch-table
// reselection) without an import cycle. The indirection is a handful of
// function values installed once at machine-build time, not a vtable.
package cpu

import "github.com/beigebox/ppc32/internal/ctxsync"

// Hooks is populated by the machine composition root (interp.New) after
// both CPU and MMU exist.
type Hooks struct {
	// SelectTable is called whenever FP availability toggles, so the
	// interpreter picks up Tables.FPOn/FPOff on its next dispatch.
	SelectTable func(fpEnabled bool)
	// ModeChanged is called whenever MSR[IR,DR,PR] changes, so the MMU
	// re-seats its current_primary/current_secondary pointers.
	ModeChanged func(mode MMUMode)
	// FlushBAT/FlushPAT are queued (not called directly) by the SPR
	// write handlers; see ctxsync.
	FlushBAT func()
	FlushPAT func()
	// FlushTLB runs immediately: tlbie/tlbia are themselves the
	// synchronization point, no context-sync is needed after them.
	FlushTLB func()
	// EndianChanged is called when HID0[ENDIAN] flips on a 601.
	EndianChanged func(littleEndian bool)
}

// Attach installs hooks and the context-sync queue used by mtspr/mtmsr
// and the isync/sync/rfi/sc handlers.
func (c *CPU) Attach(h Hooks, sync *ctxsync.Queue) {
	c.hooks = h
	c.Sync = sync
}

// MsrDidChange is the single choke point for MSR writes: it re-selects
// the opcode dispatch table if FP availability toggled and flags a
// decoder change so the interpreter reloads its cached pointer at the
// top of its loop.
func (c *CPU) MsrDidChange(newMSR uint32) {
	oldFP := c.FPEnabled()
	oldMode := c.mode
	oldMSR := c.MSR
	c.MSR = newMSR
	c.recomputeMode()
	if c.FPEnabled() != oldFP {
		if c.hooks.SelectTable != nil {
			c.hooks.SelectTable(c.FPEnabled())
		}
		c.ExecFlags |= ExecDecoderChanged
	}
	if c.mode != oldMode && c.hooks.ModeChanged != nil {
		c.hooks.ModeChanged(c.mode)
	}
	if (oldMSR^newMSR)&MSRLE != 0 {
		if c.hooks.EndianChanged != nil {
			c.hooks.EndianChanged(newMSR&MSRLE != 0)
		}
		// The interpreter re-enters its loop for the new byte order
		// rather than flipping mid-flight.
		c.PowerOffReason = ReasonEndianSwitch
	}
}

// hid0DidChange handles writes to HID0; on a 601 this can toggle guest
// endianness.
func (c *CPU) hid0DidChange(value uint32) {
	const hid0EndianBit uint32 = 1 << 25 // implementation-defined bit used for this core
	old := c.SPR[SPRHID0]
	c.SPR[SPRHID0] = value
	if c.Is601 && (old^value)&hid0EndianBit != 0 {
		if c.hooks.EndianChanged != nil {
			c.hooks.EndianChanged(value&hid0EndianBit != 0)
		}
		c.PowerOffReason = ReasonEndianSwitch
	}
}

// onSegmentRegisterChange queues a PAT flush, since segment-register
// writes invalidate VSID-derived translations.
func (c *CPU) onSegmentRegisterChange() {
	if c.Sync != nil && c.hooks.FlushPAT != nil {
		c.Sync.Add(c.hooks.FlushPAT)
	}
}

// onSDR1Change queues a PAT flush; called by the mtspr(SDR1) handler.
func (c *CPU) onSDR1Change() {
	if c.Sync != nil && c.hooks.FlushPAT != nil {
		c.Sync.Add(c.hooks.FlushPAT)
	}
}

// onBATChange queues a BAT flush; called by the mtspr(xBATxU/L) handlers.
func (c *CPU) onBATChange() {
	if c.Sync != nil && c.hooks.FlushBAT != nil {
		c.Sync.Add(c.hooks.FlushBAT)
	}
}
