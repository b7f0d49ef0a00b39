/*
 * ppc32 - Main process.
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

// Command ppcmon is the platform-glue entry point: it parses flags and a
// machine configuration file, builds a Machine (CPU + MMU + timer +
// memory map), optionally loads a symbol table, and either runs to
// completion or drops into the interactive debugger. All configuration
// flows through the config file and command line.
package main

import (
	"fmt"
	"log/slog"
	"os"

	getopt "github.com/pborman/getopt/v2"

	"github.com/beigebox/ppc32/internal/config"
	"github.com/beigebox/ppc32/internal/cpu"
	"github.com/beigebox/ppc32/internal/debugger"
	"github.com/beigebox/ppc32/internal/interp"
	"github.com/beigebox/ppc32/internal/logging"
	"github.com/beigebox/ppc32/internal/memmap"
	"github.com/beigebox/ppc32/internal/symbols"
)

func main() {
	optConfig := getopt.StringLong("config", 'c', "", "Machine configuration file")
	optROM := getopt.StringLong("rom", 'r', "", "ROM image path (overrides config file)")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optCPU := getopt.StringLong("cpu", 'p', "", "CPU model: 601, 603, 604, 750 (overrides config file)")
	optSymbols := getopt.StringLong("symbols", 's', "", "Symbol table file")
	optDebug := getopt.BoolLong("debug", 'd', "Drop into the debugger instead of running to completion")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	mach := config.Default()
	if *optConfig != "" {
		loaded, err := config.Load(*optConfig)
		if err != nil {
			fmt.Fprintln(os.Stderr, "ppcmon: "+err.Error())
			os.Exit(1)
		}
		mach = loaded
	}
	if *optROM != "" {
		mach.ROMPath = *optROM
	}
	if *optCPU != "" {
		mach.CPUModel = *optCPU
	}
	if mach.ROMPath == "" {
		fmt.Fprintln(os.Stderr, "ppcmon: no ROM image specified (--rom or config file's \"rom\")")
		os.Exit(1)
	}

	var logFileHandle *os.File
	if *optLogFile != "" {
		var err error
		logFileHandle, err = os.Create(*optLogFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "ppcmon: "+err.Error())
			os.Exit(1)
		}
	} else if mach.LogFile != "" {
		var err error
		logFileHandle, err = os.Create(mach.LogFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "ppcmon: "+err.Error())
			os.Exit(1)
		}
	}

	log := logging.New(logFileHandle, slog.LevelDebug, mach.Verbose)
	slog.SetDefault(log)

	log.Info("ppcmon started", "rom", mach.ROMPath, "cpu", mach.CPUModel, "ram", mach.RAMSize)

	model, err := parseModel(mach.CPUModel)
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}

	rom, err := os.ReadFile(mach.ROMPath)
	if err != nil {
		log.Error("reading ROM image: " + err.Error())
		os.Exit(1)
	}

	mem := memmap.New()
	if err := mem.AddRAM(0, mach.RAMSize); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
	if err := mem.AddROM(0xFFF00000, rom); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}

	mc := interp.New(model, mach.HasAltivec, mach.TBFreqHz, mem, log)

	var symTab *symbols.Table
	if *optSymbols != "" {
		symTab, err = symbols.Load(*optSymbols)
		if err != nil {
			log.Error("loading symbol table: " + err.Error())
			os.Exit(1)
		}
	} else {
		symTab = symbols.New()
	}

	dbg := debugger.New(mc, symTab)
	dbg.Config = mach

	if *optDebug {
		debugger.ConsoleReader(dbg)
	} else {
		mc.Run(interp.ExitMain, 0)
		if reason, stopped := dbg.Stopped(); stopped {
			log.Info("cpu stopped, entering debugger", "reason", reason)
			debugger.ConsoleReader(dbg)
		}
	}

	log.Info("ppcmon exiting")
}

func parseModel(name string) (cpu.Model, error) {
	switch name {
	case "601":
		return cpu.Model601, nil
	case "603":
		return cpu.Model603, nil
	case "604":
		return cpu.Model604, nil
	case "750", "":
		return cpu.Model750, nil
	default:
		return 0, fmt.Errorf("ppcmon: unknown CPU model %q", name)
	}
}
