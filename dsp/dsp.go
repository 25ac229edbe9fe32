// Package dsp emulates the S-DSP sound processor of the Super NES: eight BRR
// sample voices with ADSR/GAIN envelopes, a noise generator and an 8-tap FIR
// echo, stepped one clock at a time through the hardware's 32-clock schedule.
//
// A DSP produces one stereo sample pair every 32 clocks (32 kHz at the
// 1.024 MHz DSP clock). It reads sample data and the echo buffer from a 64KB
// RAM shared with the audio CPU; the caller owns that RAM and drives Run.
package dsp

// RAMSize is the size of the RAM shared with the audio CPU.
const RAMSize = 0x10000

// Interpolation selects the resampling filter applied to decoded BRR data.
type Interpolation int

const (
	// Gaussian is the hardware 4-tap filter.
	Gaussian Interpolation = iota
	// Sinc is an 8-tap windowed sinc filter. Brighter than hardware.
	Sinc
)

// String returns the lower-case name of the filter.
func (i Interpolation) String() string {
	switch i {
	case Sinc:
		return "sinc"
	default:
		return "gaussian"
	}
}

type envMode uint8

const (
	envRelease envMode = iota
	envAttack
	envDecay
	envSustain
)

// voice holds the internal state of one sample voice.
type voice struct {
	buf       [brrBufSize * 2]int // decoded samples, second half mirrors the first
	bufPos    int                 // next decode slot, a multiple of 4
	interpPos int                 // 4.12 fixed-point position relative to bufPos
	brrAddr   int                 // address of current BRR block
	brrOffset int                 // byte offset within block of next pair to decode
	regs      int                 // base register address
	vbit      int                 // bitmask for this voice in KON/ENDX/PMON etc.
	konDelay  int                 // KON delay countdown, 5 after key-on
	envMode   envMode
	env       int   // current envelope level, 0..0x7FF
	hiddenEnv int   // unclamped level used by the bent GAIN slope
	tEnvxOut  uint8 // ENVX value staged for the register file
}

// state is everything Load clears. Host-side fields live on DSP.
type state struct {
	regs [RegisterCount]uint8

	echoHist    [echoHistSize * 2][2]int // second half mirrors the first
	echoHistPos int

	everyOtherSample bool // toggles every sample, KON/KOFF act on odd ones
	kon              int  // KON latched at the last even sample
	noise            int
	counter          int
	echoOffset       int // byte offset from ESA of next echo sample
	echoLength       int // echo buffer size in bytes, latched when offset wraps
	phase            int // next clock cycle to run, 0..31
	konCheck         bool

	// Registers that appear to be buffered by the hardware
	newKON  int
	endxBuf int
	envxBuf int
	outxBuf int

	// Temporaries carried between clocks of the schedule
	tPMON int
	tNON  int
	tEON  int
	tDIR  int
	tKOFF int

	tBRRNextAddr int
	tADSR0       int
	tBRRHeader   int
	tBRRByte     int
	tSRCN        int
	tESA         int
	tEchoEnabled int

	tDirAddr int
	tPitch   int
	tOutput  int
	tLooped  int
	tEchoPtr int

	tMainOut [2]int
	tEchoOut [2]int
	tEchoIn  [2]int

	voices [VoiceCount]voice
}

// DSP is one S-DSP instance.
type DSP struct {
	state

	ram      []byte
	muteMask int
	interp   Interpolation

	out        []int16
	outPos     int
	extra      [extraSize]int16
	extraPos   int
	redirected bool
}

// New returns a DSP with no RAM bound. Call Init before Run.
func New() *DSP {
	d := &DSP{}
	d.SetOutput(nil)
	d.Reset()
	return d
}

// Init binds the shared 64KB RAM and resets the DSP to its power-on state.
// ram must be at least RAMSize bytes; only the first RAMSize are used.
func (d *DSP) Init(ram []byte) {
	if len(ram) < RAMSize {
		panic("dsp: RAM must be 64KB")
	}
	d.ram = ram[:RAMSize:RAMSize]
	d.muteMask = 0
	d.SetOutput(nil)
	d.Reset()
}

// Reset loads the power-on register image and clears all internal state.
func (d *DSP) Reset() {
	d.Load(&initialRegs)
}

// SoftReset emulates the FLG soft-reset: voices are silenced and timing and
// echo positions restart, but registers other than FLG are kept.
func (d *DSP) SoftReset() {
	d.regs[RegFLG] = 0xE0
	d.softResetCommon()
}

// Load replaces the register file with regs and resets internal state to
// match, as if the registers had held these values since power-on.
func (d *DSP) Load(regs *[RegisterCount]byte) {
	d.state = state{regs: *regs}
	for i := range d.voices {
		v := &d.voices[i]
		v.brrOffset = 1
		v.vbit = 1 << i
		v.regs = i * 0x10
	}
	d.newKON = int(d.regs[RegKON])
	d.tDIR = int(d.regs[RegDIR])
	d.tESA = int(d.regs[RegESA])
	d.softResetCommon()
}

func (d *DSP) softResetCommon() {
	d.noise = 0x4000
	d.echoHistPos = 0
	d.everyOtherSample = true
	d.echoOffset = 0
	d.phase = 0
	d.counter = 0
}

// Read returns the register at addr. Addresses wrap to 7 bits.
func (d *DSP) Read(addr uint8) uint8 {
	return d.regs[addr&0x7F]
}

// Write stores val to the register at addr. Addresses wrap to 7 bits.
func (d *DSP) Write(addr, val uint8) {
	addr &= 0x7F
	d.regs[addr] = val
	switch addr & 0x0F {
	case VoiceEnvX:
		d.envxBuf = int(val)
	case VoiceOutX:
		d.outxBuf = int(val)
	case 0x0C:
		switch addr {
		case RegKON:
			d.newKON = int(val)
		case RegENDX:
			// Any write clears ENDX
			d.endxBuf = 0
			d.regs[RegENDX] = 0
		}
	}
}

// SetOutput directs generated samples into buf as interleaved L/R pairs.
// Once buf is full, further samples go to a small scratch area that wraps.
// A nil or empty buf sends everything to the scratch area.
func (d *DSP) SetOutput(buf []int16) {
	d.out = buf[:len(buf)&^1]
	d.outPos = 0
	d.extraPos = 0
	d.redirected = len(d.out) == 0
}

// SampleCount returns the number of int16 samples (two per stereo pair)
// written to the output buffer since the last SetOutput. With no buffer
// bound it counts samples in the scratch area instead.
func (d *DSP) SampleCount() int {
	if len(d.out) == 0 {
		return d.extraPos
	}
	return d.outPos
}

// Extra returns the samples written to the scratch area since it last
// wrapped or since SetOutput.
func (d *DSP) Extra() []int16 {
	return d.extra[:d.extraPos]
}

func (d *DSP) writeSample(l, r int) {
	if !d.redirected {
		d.out[d.outPos] = int16(l)
		d.out[d.outPos+1] = int16(r)
		d.outPos += 2
		if d.outPos >= len(d.out) {
			d.redirected = true
		}
		return
	}
	if d.extraPos >= extraSize {
		d.extraPos = 0
	}
	d.extra[d.extraPos] = int16(l)
	d.extra[d.extraPos+1] = int16(r)
	d.extraPos += 2
}

// SetInterpolation selects the resampling filter used by all voices.
func (d *DSP) SetInterpolation(i Interpolation) {
	d.interp = i
}

// Interpolation returns the active resampling filter.
func (d *DSP) Interpolation() Interpolation {
	return d.interp
}

// Mute reports whether FLG has muted the output.
func (d *DSP) Mute() bool {
	return d.regs[RegFLG]&flgMute != 0
}

// MuteVoices keys off every voice whose bit is set in mask and keeps it
// keyed off until the bit is cleared.
func (d *DSP) MuteVoices(mask uint8) {
	d.muteMask = int(mask)
}

// CheckKON reports whether any voice was keyed on since the last call.
func (d *DSP) CheckKON() bool {
	if d.konCheck {
		d.konCheck = false
		return true
	}
	return false
}

// EnvLevel returns the current envelope level of voice n (0..0x7FF).
func (d *DSP) EnvLevel(n int) int {
	return d.voices[n&7].env
}
