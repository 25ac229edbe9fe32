// Package driver provides register drivers that stand in for the audio CPU.
package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/user-none/espc/dsp"
	"github.com/user-none/espc/emu"
)

var _ emu.Driver = (*Lua)(nil)

var errNoBus = errors.New("driver: no bus attached")

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = time.Second

// Lua runs a script against the DSP and APU RAM. The script may define
// init() and frame(n). The following are available to it:
//
//	dsp.read(addr)          dsp.write(addr, val)
//	ram.read(addr)          ram.write(addr, val)
//	ram.load(addr, data)    data is a string or a table of bytes
//	keyon(mask)             keyoff(mask)
//
// The dsp table also carries the global register addresses (dsp.KON,
// dsp.FLG, ...). Only the base, table, string and math libraries are
// opened.
type Lua struct {
	name    string
	proto   *lua.FunctionProto
	state   *lua.LState
	bus     emu.Bus
	Timeout time.Duration
}

// NewLua compiles src. name is used in error messages.
func NewLua(name, src string) (*Lua, error) {
	chunk, err := parse.Parse(strings.NewReader(src), name)
	if err != nil {
		return nil, fmt.Errorf("lua %s: %w", name, err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, fmt.Errorf("lua %s: %w", name, err)
	}
	return &Lua{name: name, proto: proto, Timeout: DefaultTimeout}, nil
}

// LoadLua reads and compiles the script at path.
func LoadLua(path string) (*Lua, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewLua(filepath.Base(path), string(src))
}

// Init starts a fresh interpreter, runs the script body and then its
// init hook. Calling Init again discards all script state.
func (d *Lua) Init(bus emu.Bus) error {
	d.Close()
	d.bus = bus

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	d.state = L
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			return fmt.Errorf("lua %s: %w", d.name, err)
		}
	}
	// dofile and loadfile reach the filesystem
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)

	d.register(L)

	if err := d.call(L.NewFunctionFromProto(d.proto)); err != nil {
		return err
	}
	return d.hook("init")
}

// Frame runs the frame hook with the frame number.
func (d *Lua) Frame(bus emu.Bus, frame uint32) error {
	d.bus = bus
	return d.hook("frame", lua.LNumber(frame))
}

// Close releases the interpreter.
func (d *Lua) Close() error {
	if d.state != nil {
		d.state.Close()
		d.state = nil
	}
	return nil
}

// hook calls a global function if the script defined one.
func (d *Lua) hook(name string, args ...lua.LValue) error {
	if d.state == nil {
		return errNoBus
	}
	fn, ok := d.state.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return nil
	}
	return d.call(fn, args...)
}

func (d *Lua) call(fn *lua.LFunction, args ...lua.LValue) error {
	L := d.state
	if d.Timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), d.Timeout)
		defer cancel()
		L.SetContext(ctx)
		defer L.RemoveContext()
	}
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...); err != nil {
		return fmt.Errorf("lua %s: %w", d.name, err)
	}
	return nil
}

func (d *Lua) register(L *lua.LState) {
	dspTbl := L.NewTable()
	L.SetFuncs(dspTbl, map[string]lua.LGFunction{
		"read":  d.dspRead,
		"write": d.dspWrite,
	})
	for name, addr := range map[string]int{
		"MVOLL": dsp.RegMVolL,
		"MVOLR": dsp.RegMVolR,
		"EVOLL": dsp.RegEVolL,
		"EVOLR": dsp.RegEVolR,
		"KON":   dsp.RegKON,
		"KOFF":  dsp.RegKOFF,
		"FLG":   dsp.RegFLG,
		"ENDX":  dsp.RegENDX,
		"EFB":   dsp.RegEFB,
		"PMON":  dsp.RegPMON,
		"NON":   dsp.RegNON,
		"EON":   dsp.RegEON,
		"DIR":   dsp.RegDIR,
		"ESA":   dsp.RegESA,
		"EDL":   dsp.RegEDL,
	} {
		dspTbl.RawSetString(name, lua.LNumber(addr))
	}
	L.SetGlobal("dsp", dspTbl)

	ramTbl := L.NewTable()
	L.SetFuncs(ramTbl, map[string]lua.LGFunction{
		"read":  d.ramRead,
		"write": d.ramWrite,
		"load":  d.ramLoad,
	})
	L.SetGlobal("ram", ramTbl)

	L.SetGlobal("keyon", L.NewFunction(d.keyOn))
	L.SetGlobal("keyoff", L.NewFunction(d.keyOff))
}

func (d *Lua) checkBus(L *lua.LState) emu.Bus {
	if d.bus == nil {
		L.RaiseError("%s", errNoBus.Error())
	}
	return d.bus
}

func (d *Lua) dspRead(L *lua.LState) int {
	bus := d.checkBus(L)
	addr := L.CheckInt(1)
	L.Push(lua.LNumber(bus.ReadDSP(uint8(addr & 0x7F))))
	return 1
}

func (d *Lua) dspWrite(L *lua.LState) int {
	bus := d.checkBus(L)
	addr := L.CheckInt(1)
	val := L.CheckInt(2)
	bus.WriteDSP(uint8(addr&0x7F), uint8(val))
	return 0
}

func (d *Lua) ramRead(L *lua.LState) int {
	bus := d.checkBus(L)
	addr := L.CheckInt(1)
	L.Push(lua.LNumber(bus.ReadRAM(uint16(addr))))
	return 1
}

func (d *Lua) ramWrite(L *lua.LState) int {
	bus := d.checkBus(L)
	addr := L.CheckInt(1)
	val := L.CheckInt(2)
	bus.WriteRAM(uint16(addr), uint8(val))
	return 0
}

// ramLoad copies a string or byte table into RAM, wrapping at 64KB.
// Returns the number of bytes written.
func (d *Lua) ramLoad(L *lua.LState) int {
	bus := d.checkBus(L)
	addr := L.CheckInt(1)
	n := 0
	switch v := L.Get(2).(type) {
	case lua.LString:
		for i := 0; i < len(v); i++ {
			bus.WriteRAM(uint16(addr+i), v[i])
		}
		n = len(v)
	case *lua.LTable:
		n = v.Len()
		for i := 1; i <= n; i++ {
			b, ok := v.RawGetInt(i).(lua.LNumber)
			if !ok {
				L.ArgError(2, fmt.Sprintf("element %d is not a number", i))
			}
			bus.WriteRAM(uint16(addr+i-1), uint8(int(b)))
		}
	default:
		L.TypeError(2, lua.LTString)
	}
	L.Push(lua.LNumber(n))
	return 1
}

// keyOn clears the voices from KOFF and keys them on.
func (d *Lua) keyOn(L *lua.LState) int {
	bus := d.checkBus(L)
	mask := uint8(L.CheckInt(1))
	bus.WriteDSP(dsp.RegKOFF, bus.ReadDSP(dsp.RegKOFF)&^mask)
	bus.WriteDSP(dsp.RegKON, mask)
	return 0
}

func (d *Lua) keyOff(L *lua.LState) int {
	bus := d.checkBus(L)
	mask := uint8(L.CheckInt(1))
	bus.WriteDSP(dsp.RegKOFF, bus.ReadDSP(dsp.RegKOFF)|mask)
	return 0
}
