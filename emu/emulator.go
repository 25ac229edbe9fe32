package emu

import (
	"io"

	emucore "github.com/user-none/eblitui/api"

	"github.com/user-none/espc/dsp"
)

// Compile-time interface checks.
var _ emucore.Emulator = (*Emulator)(nil)
var _ emucore.SaveStater = (*Emulator)(nil)
var _ emucore.MemoryInspector = (*Emulator)(nil)
var _ emucore.MemoryMapper = (*Emulator)(nil)
var _ Bus = (*Emulator)(nil)

// Flat address boundaries for ReadMemory.
const (
	apuRAMStart  = 0x00000
	apuRAMEnd    = 0x0FFFF
	dspRegsStart = 0x10000
	dspRegsEnd   = 0x1007F
)

// Option keys
const (
	OptionSinc = "sinc_interpolation"
	OptionEcho = "echo"
)

// Bus is the view of the sound system a Driver works through: DSP
// registers and the shared RAM.
type Bus interface {
	ReadDSP(addr uint8) uint8
	WriteDSP(addr, val uint8)
	ReadRAM(addr uint16) uint8
	WriteRAM(addr uint16, val uint8)
}

// Driver stands in for the audio CPU. Frame is called once per emulated
// frame, before the DSP runs for that frame.
type Driver interface {
	Init(bus Bus) error
	Frame(bus Bus, frame uint32) error
}

// Emulator plays an SPC snapshot through the DSP.
type Emulator struct {
	spc *SPCFile
	ram [dsp.RAMSize]byte
	dsp *dsp.DSP

	driver    Driver
	driverErr error

	// Region timing
	region     Region
	timing     RegionTiming
	clockAccum int // DSP clocks owed, in 1/FPS units
	frame      uint32

	// Voice mutes from held buttons and from SetVoiceMask
	inputMute  uint8
	optionMute uint8

	// Song echo settings saved while echo is forced off
	echoOff  bool
	echoFLG  uint8
	echoVolL uint8
	echoVolR uint8

	dspBuffer   []int16 // 32 kHz output for the current frame
	resampler   resampler
	audioBuffer []int16 // host rate output for the current frame

	meter       meter
	framebuffer []byte
}

// NewEmulator parses an SPC file and prepares it for playback.
func NewEmulator(data []byte, region Region) (*Emulator, error) {
	spc, err := ParseSPC(data)
	if err != nil {
		return nil, err
	}

	e := &Emulator{
		spc:         spc,
		dsp:         dsp.New(),
		dspBuffer:   make([]int16, 0, 1024),
		audioBuffer: make([]int16, 0, 2048),
		framebuffer: make([]byte, ScreenWidth*ScreenHeight*4),
		resampler:   newResampler(dspSampleRate, sampleRate),
	}
	e.SetRegion(region)
	e.load()
	return e, nil
}

// load resets RAM and the DSP to the snapshot.
func (e *Emulator) load() {
	e.spc.LoadRAM(e.ram[:])
	e.dsp.Init(e.ram[:])
	e.dsp.Load(&e.spc.DSPRegs)
	e.clearEcho()
	if e.echoOff {
		e.holdEcho()
	}
	e.frame = 0
	e.clockAccum = 0
	e.resampler.reset()
	e.applyMutes()
}

// clearEcho fills the echo buffer when echo writes are enabled so stale
// snapshot data does not feed back through the FIR.
func (e *Emulator) clearEcho() {
	if e.dsp.Read(dsp.RegFLG)&0x20 != 0 {
		return
	}
	start := int(e.dsp.Read(dsp.RegESA)) * 0x100
	size := int(e.dsp.Read(dsp.RegEDL)&0x0F) * 0x800
	if size == 0 {
		size = 4
	}
	for i := 0; i < size; i++ {
		e.ram[(start+i)&0xFFFF] = 0xFF
	}
}

// Reset restarts playback from the snapshot. The driver is initialized again.
func (e *Emulator) Reset() {
	e.load()
	if e.driver != nil {
		e.driverErr = e.driver.Init(e)
	}
}

// SetDriver attaches d and runs its Init. A nil driver detaches.
func (e *Emulator) SetDriver(d Driver) error {
	e.driver = d
	e.driverErr = nil
	if d == nil {
		return nil
	}
	e.driverErr = d.Init(e)
	return e.driverErr
}

// DriverErr returns the error that stopped the driver, if any.
func (e *Emulator) DriverErr() error {
	return e.driverErr
}

// SPC returns the loaded snapshot.
func (e *Emulator) SPC() *SPCFile {
	return e.spc
}

// DSP returns the sound processor.
func (e *Emulator) DSP() *dsp.DSP {
	return e.dsp
}

// Frame returns the number of frames run since load.
func (e *Emulator) Frame() uint32 {
	return e.frame
}

// RunFrame executes one frame of emulation.
func (e *Emulator) RunFrame() {
	e.audioBuffer = e.audioBuffer[:0]

	if e.driver != nil && e.driverErr == nil {
		e.driverErr = e.driver.Frame(e, e.frame)
	}

	// Carry the fractional clock count so every second runs exactly
	// DSPClockHz clocks
	e.clockAccum += DSPClockHz
	clocks := e.clockAccum / e.timing.FPS
	e.clockAccum -= clocks * e.timing.FPS

	// Worst case is one extra sample beyond the average
	need := (clocks/32 + 1) * 2
	if cap(e.dspBuffer) < need {
		e.dspBuffer = make([]int16, need)
	}
	e.dspBuffer = e.dspBuffer[:need]
	e.dsp.SetOutput(e.dspBuffer)
	e.dsp.Run(clocks)
	e.dspBuffer = e.dspBuffer[:e.dsp.SampleCount()]

	e.audioBuffer = e.resampler.process(e.dspBuffer, e.audioBuffer)
	e.applyFade()

	e.meter.update(e)
	e.meter.render(e.framebuffer)

	e.frame++
}

// Ended reports whether the tagged play time, including fade, has passed.
// Songs without a length never end.
func (e *Emulator) Ended() bool {
	total := e.spc.Tags.TotalMS()
	if total == 0 {
		return false
	}
	return e.elapsedMS() >= total
}

func (e *Emulator) elapsedMS() int {
	return int(uint64(e.frame) * 1000 / uint64(e.timing.FPS))
}

// SetInput maps buttons 4-11 of player 0 to voice mutes, held to mute.
func (e *Emulator) SetInput(player int, buttons uint32) {
	if player != 0 {
		return
	}
	e.inputMute = uint8(buttons >> 4)
	e.applyMutes()
}

// SetVoiceMask mutes the voices whose bits are set, independent of input.
func (e *Emulator) SetVoiceMask(mask uint8) {
	e.optionMute = mask
	e.applyMutes()
}

func (e *Emulator) applyMutes() {
	e.dsp.MuteVoices(e.inputMute | e.optionMute)
}

// GetFramebuffer returns raw RGBA pixel data for current frame.
func (e *Emulator) GetFramebuffer() []byte {
	return e.framebuffer
}

// GetFramebufferStride returns the stride (bytes per row) of the framebuffer.
func (e *Emulator) GetFramebufferStride() int {
	return ScreenWidth * 4
}

// GetActiveHeight returns the current active display height.
func (e *Emulator) GetActiveHeight() int {
	return ScreenHeight
}

// GetRegion returns the emulator's region setting.
func (e *Emulator) GetRegion() Region {
	return e.region
}

// GetTiming returns FPS and scanline count for the current region.
func (e *Emulator) GetTiming() emucore.Timing {
	return emucore.Timing{
		FPS:       e.timing.FPS,
		Scanlines: e.timing.Scanlines,
	}
}

// SetRegion updates the emulator's region configuration.
func (e *Emulator) SetRegion(region Region) {
	e.region = region
	e.timing = GetTimingForRegion(region)
	e.clockAccum = 0
}

// Close releases any resources held by the emulator.
func (e *Emulator) Close() {
	if c, ok := e.driver.(io.Closer); ok {
		c.Close()
	}
}

// SetOption applies a core option change identified by key.
func (e *Emulator) SetOption(key string, value string) {
	switch key {
	case OptionSinc:
		if value == "true" {
			e.dsp.SetInterpolation(dsp.Sinc)
		} else {
			e.dsp.SetInterpolation(dsp.Gaussian)
		}
	case OptionEcho:
		e.setEcho(value != "false")
	}
}

// setEcho forces the echo unit off or hands it back to the song. While off,
// song writes to FLG and EVOL are remembered and restored on re-enable.
func (e *Emulator) setEcho(enabled bool) {
	if enabled == !e.echoOff {
		return
	}
	if !enabled {
		e.echoOff = true
		e.holdEcho()
		return
	}
	e.echoOff = false
	e.dsp.Write(dsp.RegFLG, e.echoFLG)
	e.dsp.Write(dsp.RegEVolL, e.echoVolL)
	e.dsp.Write(dsp.RegEVolR, e.echoVolR)
}

// holdEcho saves the song's echo settings and silences echo in the DSP.
func (e *Emulator) holdEcho() {
	e.echoFLG = e.dsp.Read(dsp.RegFLG)
	e.echoVolL = e.dsp.Read(dsp.RegEVolL)
	e.echoVolR = e.dsp.Read(dsp.RegEVolR)
	e.dsp.Write(dsp.RegFLG, e.echoFLG|0x20)
	e.dsp.Write(dsp.RegEVolL, 0)
	e.dsp.Write(dsp.RegEVolR, 0)
}

// ReadDSP reads a DSP register.
func (e *Emulator) ReadDSP(addr uint8) uint8 {
	return e.dsp.Read(addr)
}

// WriteDSP writes a DSP register, filtering echo settings while echo is
// forced off.
func (e *Emulator) WriteDSP(addr, val uint8) {
	if e.echoOff {
		switch addr & 0x7F {
		case dsp.RegFLG:
			e.echoFLG = val
			val |= 0x20
		case dsp.RegEVolL:
			e.echoVolL = val
			return
		case dsp.RegEVolR:
			e.echoVolR = val
			return
		}
	}
	e.dsp.Write(addr, val)
}

// ReadRAM reads a byte of APU RAM.
func (e *Emulator) ReadRAM(addr uint16) uint8 {
	return e.ram[addr]
}

// WriteRAM writes a byte of APU RAM.
func (e *Emulator) WriteRAM(addr uint16, val uint8) {
	e.ram[addr] = val
}

// ReadMemory reads from a flat address into buf and returns the number
// of bytes read.
func (e *Emulator) ReadMemory(addr uint32, buf []byte) uint32 {
	var count uint32
	for i := range buf {
		cur := addr + uint32(i)
		var b byte
		switch {
		case cur <= apuRAMEnd:
			b = e.ram[cur-apuRAMStart]
		case cur >= dspRegsStart && cur <= dspRegsEnd:
			b = e.dsp.Read(uint8(cur - dspRegsStart))
		default:
			return count
		}
		buf[i] = b
		count++
	}
	return count
}

// MemoryMap returns a list of available memory regions with sizes.
func (e *Emulator) MemoryMap() []emucore.MemoryRegion {
	return []emucore.MemoryRegion{
		{Type: emucore.MemorySystemRAM, Size: dsp.RAMSize},
	}
}

// ReadRegion returns a copy of the specified memory region.
func (e *Emulator) ReadRegion(regionType int) []byte {
	switch regionType {
	case emucore.MemorySystemRAM:
		out := make([]byte, dsp.RAMSize)
		copy(out, e.ram[:])
		return out
	default:
		return nil
	}
}

// WriteRegion writes data to the specified memory region.
func (e *Emulator) WriteRegion(regionType int, data []byte) {
	switch regionType {
	case emucore.MemorySystemRAM:
		copy(e.ram[:], data)
	}
}
