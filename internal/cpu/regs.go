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

// Register name resolution for the debugger facade: parses "r5",
// "fp3", "spr275", "PC", "CR", "MSR", etc. into direct field accesses.
package cpu

import (
	"fmt"
	"strconv"
	"strings"
)

// GetRegister resolves name to its current value.
func (c *CPU) GetRegister(name string) (uint32, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch {
	case n == "pc":
		return c.PC, nil
	case n == "nia":
		return c.NIA, nil
	case n == "cr":
		return c.CR, nil
	case n == "xer":
		return c.XER, nil
	case n == "msr":
		return c.MSR, nil
	case n == "fpscr":
		return c.FPSCR, nil
	case n == "lr":
		return c.SPR[SPRLR], nil
	case n == "ctr":
		return c.SPR[SPRCTR], nil
	case strings.HasPrefix(n, "r") && isDigits(n[1:]):
		i, _ := strconv.Atoi(n[1:])
		if i < 0 || i > 31 {
			return 0, fmt.Errorf("cpu: register index out of range: %s", name)
		}
		return c.GPR[i], nil
	case strings.HasPrefix(n, "fp") && isDigits(n[2:]):
		i, _ := strconv.Atoi(n[2:])
		if i < 0 || i > 31 {
			return 0, fmt.Errorf("cpu: register index out of range: %s", name)
		}
		return uint32(c.FPR[i] >> 32), nil
	case strings.HasPrefix(n, "spr") && isDigits(n[3:]):
		i, _ := strconv.Atoi(n[3:])
		if i < 0 || i > 1023 {
			return 0, fmt.Errorf("cpu: SPR index out of range: %s", name)
		}
		return c.SPR[i], nil
	case strings.HasPrefix(n, "sr") && isDigits(n[2:]):
		i, _ := strconv.Atoi(n[2:])
		if i < 0 || i > 15 {
			return 0, fmt.Errorf("cpu: SR index out of range: %s", name)
		}
		return c.SR[i], nil
	default:
		return 0, fmt.Errorf("cpu: unknown register: %s", name)
	}
}

// SetRegister parses and writes value into the named register. Writes to
// MSR and HID0 go through MsrDidChange / hid0DidChange so table selection
// and endian state stay consistent, exactly like a guest mtmsr would.
func (c *CPU) SetRegister(name string, value uint32) error {
	n := strings.ToLower(strings.TrimSpace(name))
	switch {
	case n == "pc":
		c.PC = value
	case n == "nia":
		c.NIA = value
	case n == "cr":
		c.CR = value
	case n == "xer":
		c.XER = value
	case n == "msr":
		c.MsrDidChange(value)
	case n == "fpscr":
		c.FPSCR = value
	case n == "lr":
		c.SPR[SPRLR] = value
	case n == "ctr":
		c.SPR[SPRCTR] = value
	case strings.HasPrefix(n, "r") && isDigits(n[1:]):
		i, _ := strconv.Atoi(n[1:])
		if i < 0 || i > 31 {
			return fmt.Errorf("cpu: register index out of range: %s", name)
		}
		c.GPR[i] = value
	case strings.HasPrefix(n, "spr") && isDigits(n[3:]):
		i, _ := strconv.Atoi(n[3:])
		if i < 0 || i > 1023 {
			return fmt.Errorf("cpu: SPR index out of range: %s", name)
		}
		if i == SPRHID0 {
			c.hid0DidChange(value)
		} else {
			c.SPR[i] = value
		}
	case strings.HasPrefix(n, "sr") && isDigits(n[2:]):
		i, _ := strconv.Atoi(n[2:])
		if i < 0 || i > 15 {
			return fmt.Errorf("cpu: SR index out of range: %s", name)
		}
		c.SR[i] = value
		c.onSegmentRegisterChange()
	default:
		return fmt.Errorf("cpu: unknown register: %s", name)
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
