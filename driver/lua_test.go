package driver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/user-none/espc/dsp"
)

// fakeBus records register and RAM traffic.
type fakeBus struct {
	regs   [dsp.RegisterCount]uint8
	ram    [0x10000]uint8
	writes []uint8 // DSP register addresses in write order
}

func (b *fakeBus) ReadDSP(addr uint8) uint8 { return b.regs[addr&0x7F] }
func (b *fakeBus) WriteDSP(addr, val uint8) {
	b.regs[addr&0x7F] = val
	b.writes = append(b.writes, addr&0x7F)
}
func (b *fakeBus) ReadRAM(addr uint16) uint8       { return b.ram[addr] }
func (b *fakeBus) WriteRAM(addr uint16, val uint8) { b.ram[addr] = val }

func newTestLua(t *testing.T, src string) *Lua {
	t.Helper()
	d, err := NewLua("test.lua", src)
	if err != nil {
		t.Fatalf("NewLua: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestLua_Hooks(t *testing.T) {
	d := newTestLua(t, `
function init()
	dsp.write(dsp.DIR, 0x02)
	dsp.write(0x00, 0x7F)
end

function frame(n)
	ram.write(0x1000 + n, n * 2)
end
`)
	bus := &fakeBus{}
	if err := d.Init(bus); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if bus.regs[dsp.RegDIR] != 0x02 || bus.regs[0] != 0x7F {
		t.Errorf("init writes missing: DIR=0x%02X VOLL=0x%02X", bus.regs[dsp.RegDIR], bus.regs[0])
	}

	for n := uint32(0); n < 3; n++ {
		if err := d.Frame(bus, n); err != nil {
			t.Fatalf("Frame %d: %v", n, err)
		}
	}
	for n := 0; n < 3; n++ {
		if bus.ram[0x1000+n] != uint8(n*2) {
			t.Errorf("ram[0x%04X] = 0x%02X, want 0x%02X", 0x1000+n, bus.ram[0x1000+n], n*2)
		}
	}
}

func TestLua_NoHooks(t *testing.T) {
	d := newTestLua(t, `x = 1`)
	bus := &fakeBus{}
	if err := d.Init(bus); err != nil {
		t.Fatal(err)
	}
	if err := d.Frame(bus, 0); err != nil {
		t.Errorf("missing frame hook should be ignored: %v", err)
	}
}

func TestLua_ReadMasksAddress(t *testing.T) {
	d := newTestLua(t, `
function init()
	ram.write(0x10005, dsp.read(0xCC))
end
`)
	bus := &fakeBus{}
	bus.regs[0x4C] = 0x5A
	if err := d.Init(bus); err != nil {
		t.Fatal(err)
	}
	if bus.ram[0x0005] != 0x5A {
		t.Errorf("expected masked addresses, ram[5]=0x%02X", bus.ram[5])
	}
}

func TestLua_KeyOnOff(t *testing.T) {
	d := newTestLua(t, `
function frame(n)
	if n == 0 then keyoff(0x03) end
	if n == 1 then keyon(0x01) end
end
`)
	bus := &fakeBus{}
	if err := d.Init(bus); err != nil {
		t.Fatal(err)
	}
	d.Frame(bus, 0)
	if bus.regs[dsp.RegKOFF] != 0x03 {
		t.Errorf("KOFF = 0x%02X, want 0x03", bus.regs[dsp.RegKOFF])
	}
	bus.writes = nil
	d.Frame(bus, 1)
	if bus.regs[dsp.RegKOFF] != 0x02 || bus.regs[dsp.RegKON] != 0x01 {
		t.Errorf("KOFF = 0x%02X KON = 0x%02X", bus.regs[dsp.RegKOFF], bus.regs[dsp.RegKON])
	}
	// KOFF must be released before KON is written
	if len(bus.writes) != 2 || bus.writes[0] != dsp.RegKOFF || bus.writes[1] != dsp.RegKON {
		t.Errorf("unexpected write order %X", bus.writes)
	}
}

func TestLua_RAMLoad(t *testing.T) {
	d := newTestLua(t, `
function init()
	local n = ram.load(0x200, "\1\2\3")
	ram.load(0xFFFF, {0xAA, 0xBB})
	ram.write(0x300, n)
end
`)
	bus := &fakeBus{}
	if err := d.Init(bus); err != nil {
		t.Fatal(err)
	}
	if bus.ram[0x200] != 1 || bus.ram[0x201] != 2 || bus.ram[0x202] != 3 {
		t.Errorf("string load: % X", bus.ram[0x200:0x203])
	}
	if bus.ram[0xFFFF] != 0xAA || bus.ram[0x0000] != 0xBB {
		t.Errorf("table load should wrap: 0x%02X 0x%02X", bus.ram[0xFFFF], bus.ram[0])
	}
	if bus.ram[0x300] != 3 {
		t.Errorf("load returned %d, want 3", bus.ram[0x300])
	}
}

func TestLua_RAMLoadBadArgument(t *testing.T) {
	d := newTestLua(t, `function init() ram.load(0, true) end`)
	if err := d.Init(&fakeBus{}); err == nil {
		t.Error("expected type error")
	}
}

func TestLua_InitRestartsScript(t *testing.T) {
	d := newTestLua(t, `
count = (count or 0) + 1
function init() dsp.write(dsp.KON, count) end
`)
	bus := &fakeBus{}
	for i := 0; i < 2; i++ {
		if err := d.Init(bus); err != nil {
			t.Fatal(err)
		}
		if bus.regs[dsp.RegKON] != 1 {
			t.Errorf("Init %d: KON = %d, expected fresh script state", i, bus.regs[dsp.RegKON])
		}
	}
}

func TestLua_SyntaxError(t *testing.T) {
	if _, err := NewLua("bad.lua", "function ("); err == nil {
		t.Error("expected syntax error")
	} else if !strings.Contains(err.Error(), "bad.lua") {
		t.Errorf("error should name the script: %v", err)
	}
}

func TestLua_RuntimeError(t *testing.T) {
	d := newTestLua(t, `function frame(n) error("boom") end`)
	bus := &fakeBus{}
	if err := d.Init(bus); err != nil {
		t.Fatal(err)
	}
	err := d.Frame(bus, 0)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected boom error, got %v", err)
	}
}

func TestLua_Sandbox(t *testing.T) {
	for _, src := range []string{
		`function init() os.exit(1) end`,
		`function init() io.write("x") end`,
		`function init() dofile("x.lua") end`,
	} {
		d := newTestLua(t, src)
		if err := d.Init(&fakeBus{}); err == nil {
			t.Errorf("expected %q to fail", src)
		}
	}
}

func TestLua_Timeout(t *testing.T) {
	d := newTestLua(t, `function frame(n) while true do end end`)
	d.Timeout = 50 * time.Millisecond
	bus := &fakeBus{}
	if err := d.Init(bus); err != nil {
		t.Fatal(err)
	}
	if err := d.Frame(bus, 0); err == nil {
		t.Error("expected timeout error")
	}
}

func TestLua_FrameBeforeInit(t *testing.T) {
	d := newTestLua(t, `function frame(n) end`)
	if err := d.Frame(&fakeBus{}, 0); err == nil {
		t.Error("expected error before Init")
	}
}

func TestLoadLua(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.lua")
	if err := os.WriteFile(path, []byte(`function init() keyon(0x80) end`), 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := LoadLua(path)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	bus := &fakeBus{}
	if err := d.Init(bus); err != nil {
		t.Fatal(err)
	}
	if bus.regs[dsp.RegKON] != 0x80 {
		t.Errorf("KON = 0x%02X", bus.regs[dsp.RegKON])
	}

	if _, err := LoadLua(filepath.Join(t.TempDir(), "missing.lua")); err == nil {
		t.Error("expected error for missing file")
	}
}
