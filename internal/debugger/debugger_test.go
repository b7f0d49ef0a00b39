package debugger

import (
	"log/slog"
	"io"
	"testing"

	"github.com/beigebox/ppc32/internal/cpu"
	"github.com/beigebox/ppc32/internal/interp"
	"github.com/beigebox/ppc32/internal/memmap"
	"github.com/beigebox/ppc32/internal/symbols"
)

func newTestDebugger(t *testing.T) *Debugger {
	t.Helper()
	mem := memmap.New()
	if err := mem.AddRAM(0, 0x10000); err != nil {
		t.Fatalf("AddRAM: %v", err)
	}
	if err := mem.AddROM(0xFFF00000, make([]byte, 0x1000)); err != nil {
		t.Fatalf("AddROM: %v", err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mc := interp.New(cpu.Model750, false, 25_000_000, mem, log)
	return New(mc, symbols.New())
}

func TestMatchCommandUniquePrefix(t *testing.T) {
	m := matchList("br")
	if len(m) != 1 || m[0].name != "break" {
		t.Fatalf("matchList(br) = %+v", m)
	}
}

func TestMatchCommandBelowMinimum(t *testing.T) {
	// "d" is shorter than both delete's and dump's minimum unique
	// prefix, so it should resolve to no command at all.
	if m := matchList("d"); len(m) != 0 {
		t.Fatalf("matchList(d) = %+v, want no matches below minimum", m)
	}
}

func TestProcessUnknownCommand(t *testing.T) {
	d := newTestDebugger(t)
	_, err := d.Process("bogus")
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestProcessQuit(t *testing.T) {
	d := newTestDebugger(t)
	quit, err := d.Process("quit")
	if err != nil || !quit {
		t.Fatalf("Process(quit) = %v, %v", quit, err)
	}
}

func TestRegisterGetSet(t *testing.T) {
	d := newTestDebugger(t)
	if _, err := d.Process("register r3 0x42"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if d.Machine.CPU.GPR[3] != 0x42 {
		t.Errorf("r3 = %#x, want 0x42", d.Machine.CPU.GPR[3])
	}
}

func TestBreakpointAddDelete(t *testing.T) {
	d := newTestDebugger(t)
	if _, err := d.Process("break 1000"); err != nil {
		t.Fatalf("break: %v", err)
	}
	if !d.breakpoints[0x1000] {
		t.Fatalf("breakpoint not installed")
	}
	if _, err := d.Process("delete 1000"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if d.breakpoints[0x1000] {
		t.Fatalf("breakpoint not removed")
	}
}

func TestDumpAndPatch(t *testing.T) {
	d := newTestDebugger(t)
	if _, err := d.Process("patch 100 deadbeef"); err != nil {
		t.Fatalf("patch: %v", err)
	}
	v, ok := d.Machine.MMU.Read(d.Machine.CPU, 0x100, 4)
	if !ok || uint32(v) != 0xdeadbeef {
		t.Fatalf("read back = %#x, %v", v, ok)
	}
}
