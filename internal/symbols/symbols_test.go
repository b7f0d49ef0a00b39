package symbols

import (
	"strings"
	"testing"
)

const sample = `
00000000 000fffff 0 Open_Firmware OF
00000100 00000200 1 boot-entry
00000200 00000400 1 claim

01000000 013fffff 0 kernel mach_kernel
01000000 010000ff 1 _bootstrap_thread
01000100 010001ff 1 _vm_fault
`

func TestLookup(t *testing.T) {
	tab, err := parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	name, off, kind, ok := tab.Lookup(0x150)
	if !ok || name != "boot-entry" || off != 0x50 || kind != KindOpenFirmware {
		t.Errorf("Lookup(0x150) = %q %#x %v %v", name, off, kind, ok)
	}

	name, off, kind, ok = tab.Lookup(0x1000180)
	if !ok || name != "_vm_fault" || off != 0x80 || kind != KindDarwinKernel {
		t.Errorf("Lookup(0x1000180) = %q %#x %v %v", name, off, kind, ok)
	}

	if _, _, _, ok := tab.Lookup(0x2000000); ok {
		t.Errorf("Lookup outside any binary should miss")
	}
}

func TestLookupByName(t *testing.T) {
	tab, err := parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	addr, ok := tab.LookupByName("claim")
	if !ok || addr != 0x200 {
		t.Errorf("LookupByName(claim) = %#x %v", addr, ok)
	}
	if _, ok := tab.LookupByName("nonexistent"); ok {
		t.Errorf("LookupByName should miss unknown names")
	}
}

func TestFormatAddress(t *testing.T) {
	tab, err := parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := tab.FormatAddress(0x100); got != "boot-entry (Open_Firmware)" {
		t.Errorf("FormatAddress(0x100) = %q", got)
	}
	if got := tab.FormatAddress(0x150); got != "boot-entry+0x50 (Open_Firmware)" {
		t.Errorf("FormatAddress(0x150) = %q", got)
	}
	if got := tab.FormatAddress(0xdeadbeef); got != "0xdeadbeef" {
		t.Errorf("FormatAddress(unmapped) = %q", got)
	}
}

func TestAddProgrammatic(t *testing.T) {
	tab := New()
	tab.Add(&Binary{
		Start: 0x1000, End: 0x1fff, Name: "scratch", Kind: KindDarwinProcess,
		Symbols: []Symbol{{Start: 0x1010, End: 0x1020, Name: "entry"}},
	})
	if got := tab.FormatAddress(0x1015); got != "entry+0x5 (process)" {
		t.Errorf("FormatAddress after Add = %q", got)
	}
}
