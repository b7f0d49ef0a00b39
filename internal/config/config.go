/*
 * ppc32 - Configuration and NVRAM file parser.
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

// Package config implements the machine configuration file and a small
// Open Firmware-style NVRAM variable store for persisting variables and
// CPU preferences across runs. No environment variables are consulted;
// all configuration is through the machine factory and command line.
//
// Parsing uses a hand-rolled line-oriented tokenizer (comment-to-EOL on
// '#', quoted strings, one "key value" pair per line separated by
// whitespace) scoped to this core's much smaller surface
// (ROM path, RAM size, CPU model, time-base frequency, NVRAM variables).
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Machine holds the parsed configuration for one emulated machine.
type Machine struct {
	ROMPath    string
	RAMSize    uint32
	CPUModel   string // "601", "603", "604", "750"
	HasAltivec bool
	TBFreqHz   uint64
	LogFile    string
	Verbose    bool

	// NVRAM holds Open Firmware-style name/value pairs, e.g.
	// "auto-boot?" = "true", "boot-device" = "scsi0:2,\\:tbxi".
	NVRAM map[string]string
}

// Default returns a Machine seeded with the values cmd/ppcmon falls
// back to when a config file omits them.
func Default() *Machine {
	return &Machine{
		RAMSize:  64 << 20,
		CPUModel: "750",
		TBFreqHz: 25_000_000,
		NVRAM:    map[string]string{},
	}
}

// Load reads a configuration file into a fresh Machine seeded with
// Default's values, overriding whichever keys the file sets.
func Load(path string) (*Machine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parse(f)
}

func parse(r io.Reader) (*Machine, error) {
	m := Default()
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := &tokenLine{text: scanner.Text()}
		if err := line.apply(m); err != nil {
			return nil, fmt.Errorf("config: line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// tokenLine tokenizes one configuration line by scanning with a cursor,
// in this format:
//
//	<key> <whitespace> <value> | '#' <comment>
//
// key is "rom", "ram", "cpu", "altivec", "tbfreq", "log", "verbose", or
// "nvram.<name>"; value is a bare word or a "quoted string".
type tokenLine struct {
	text string
	pos  int
}

func (l *tokenLine) apply(m *Machine) error {
	l.skipSpace()
	if l.isEOL() || l.peek() == '#' {
		return nil
	}
	key := l.word()
	l.skipSpace()
	value, err := l.value()
	if err != nil {
		return err
	}

	switch {
	case key == "rom":
		m.ROMPath = value
	case key == "ram":
		size, err := parseSize(value)
		if err != nil {
			return err
		}
		m.RAMSize = size
	case key == "cpu":
		m.CPUModel = value
	case key == "altivec":
		m.HasAltivec = parseBool(value)
	case key == "tbfreq":
		hz, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid tbfreq %q: %w", value, err)
		}
		m.TBFreqHz = hz
	case key == "log":
		m.LogFile = value
	case key == "verbose":
		m.Verbose = parseBool(value)
	case strings.HasPrefix(key, "nvram."):
		m.NVRAM[strings.TrimPrefix(key, "nvram.")] = value
	default:
		return fmt.Errorf("unknown configuration key %q", key)
	}
	return nil
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// parseSize accepts a plain byte count or a K/M-suffixed shorthand.
func parseSize(v string) (uint32, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, fmt.Errorf("empty size")
	}
	mult := uint64(1)
	last := v[len(v)-1]
	switch last {
	case 'k', 'K':
		mult = 1 << 10
		v = v[:len(v)-1]
	case 'm', 'M':
		mult = 1 << 20
		v = v[:len(v)-1]
	}
	n, err := strconv.ParseUint(v, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", v, err)
	}
	return uint32(n * mult), nil
}

func (l *tokenLine) isEOL() bool { return l.pos >= len(l.text) }

func (l *tokenLine) peek() byte {
	if l.isEOL() {
		return 0
	}
	return l.text[l.pos]
}

func (l *tokenLine) skipSpace() {
	for !l.isEOL() && (l.text[l.pos] == ' ' || l.text[l.pos] == '\t') {
		l.pos++
	}
}

func (l *tokenLine) word() string {
	start := l.pos
	for !l.isEOL() && l.text[l.pos] != ' ' && l.text[l.pos] != '\t' {
		l.pos++
	}
	return l.text[start:l.pos]
}

// value reads either a bare word (up to end of line, trailing comment
// stripped) or a "quoted string".
func (l *tokenLine) value() (string, error) {
	if l.isEOL() {
		return "", nil
	}
	if l.peek() == '"' {
		l.pos++
		start := l.pos
		for !l.isEOL() && l.text[l.pos] != '"' {
			l.pos++
		}
		if l.isEOL() {
			return "", fmt.Errorf("unterminated quoted string")
		}
		s := l.text[start:l.pos]
		l.pos++
		return s, nil
	}
	start := l.pos
	for !l.isEOL() && l.text[l.pos] != '#' {
		l.pos++
	}
	return strings.TrimSpace(l.text[start:l.pos]), nil
}

// NVRAMGet resolves an Open Firmware variable by name, as the debugger's
// "nvedit" command consumes it.
func (m *Machine) NVRAMGet(name string) (string, bool) {
	v, ok := m.NVRAM[name]
	return v, ok
}

// NVRAMSet installs or overwrites an Open Firmware variable.
func (m *Machine) NVRAMSet(name, value string) {
	m.NVRAM[name] = value
}
