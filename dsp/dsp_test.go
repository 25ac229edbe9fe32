package dsp

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"
)

// newTestDSP returns a DSP over zeroed RAM with every register cleared
// except FLG, which has echo writes disabled.
func newTestDSP(t *testing.T) (*DSP, []byte) {
	t.Helper()
	ram := make([]byte, RAMSize)
	d := New()
	d.Init(ram)
	var regs [RegisterCount]byte
	regs[RegFLG] = flgEchoDisable
	d.Load(&regs)
	return d, ram
}

// setupTestSample places a one-block BRR sample of all 0xFF data at 0x300
// (shift 0, filter 0, no end flag) with its directory entry at 0x200, and
// configures voice 0 to play it at unity pitch with full volume and the
// fastest attack.
func setupTestSample(d *DSP, ram []byte) {
	ram[0x200], ram[0x201] = 0x00, 0x03
	ram[0x202], ram[0x203] = 0x00, 0x03
	ram[0x300] = 0x00
	for i := 1; i < brrBlockSize; i++ {
		ram[0x300+i] = 0xFF
	}
	d.Write(RegDIR, 0x02)
	d.Write(VoiceSrcN, 0)
	d.Write(VoiceADSR0, 0x8F)
	d.Write(VoiceVolL, 127)
	d.Write(VoiceVolR, 127)
	d.Write(VoicePitchH, 0x10)
	d.Write(RegMVolL, 127)
	d.Write(RegMVolR, 127)
}

// runSamples runs n full sample periods and returns the interleaved output.
func runSamples(d *DSP, n int) []int16 {
	buf := make([]int16, n*2)
	d.SetOutput(buf)
	d.Run(n * 32)
	return buf[:d.SampleCount()]
}

func hashSamples(s []int16) [32]byte {
	b := make([]byte, len(s)*2)
	for i, v := range s {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(v))
	}
	return sha256.Sum256(b)
}

func TestDSP_PowerOnSilence(t *testing.T) {
	d := New()
	d.Init(make([]byte, RAMSize))

	buf := make([]int16, 8)
	d.SetOutput(buf)
	d.Run(32)

	if d.SampleCount() != 2 {
		t.Fatalf("expected one stereo pair, got %d samples", d.SampleCount())
	}
	if buf[0] != 0 || buf[1] != 0 {
		t.Errorf("expected (0,0), got (%d,%d)", buf[0], buf[1])
	}
	if d.Read(RegFLG) != 0xE0 {
		t.Errorf("expected FLG 0xE0, got 0x%02X", d.Read(RegFLG))
	}
	if !d.Mute() {
		t.Error("expected power-on FLG to mute output")
	}
}

func TestDSP_ResetClearsEnvelopes(t *testing.T) {
	d, ram := newTestDSP(t)
	setupTestSample(d, ram)
	d.Write(RegKON, 0x01)
	runSamples(d, 64)
	if d.EnvLevel(0) == 0 {
		t.Fatal("expected voice 0 envelope to rise after KON")
	}

	d.Reset()
	for i := 0; i < VoiceCount; i++ {
		if d.EnvLevel(i) != 0 {
			t.Errorf("voice %d: expected env 0 after reset, got 0x%03X", i, d.EnvLevel(i))
		}
	}
	if d.Read(RegKON) != initialRegs[RegKON] {
		t.Errorf("expected KON 0x%02X after reset, got 0x%02X", initialRegs[RegKON], d.Read(RegKON))
	}
}

func TestDSP_FirstKeyOnSample(t *testing.T) {
	d, ram := newTestDSP(t)
	setupTestSample(d, ram)
	d.Write(RegKON, 0x01)

	out := runSamples(d, 64)
	for i := 0; i < len(out); i += 2 {
		if out[i] == 0 && out[i+1] == 0 {
			continue
		}
		// Every decoded sample is -2; Gaussian sum at offset 0 gives -4,
		// attack level 0x400 halves it, volumes 127/128 keep -2.
		if out[i] != -2 || out[i+1] != -2 {
			t.Errorf("sample %d: expected (-2,-2), got (%d,%d)", i/2, out[i], out[i+1])
		}
		return
	}
	t.Fatal("voice never produced output")
}

func TestDSP_KeyOnDelay(t *testing.T) {
	d, ram := newTestDSP(t)
	setupTestSample(d, ram)
	d.Write(RegKON, 0x01)

	// KON is latched on alternate samples, then the voice needs five more
	// samples before its envelope starts.
	out := runSamples(d, 5)
	for i, s := range out {
		if s != 0 {
			t.Fatalf("sample %d: expected silence during KON delay, got %d", i/2, s)
		}
	}
	if !d.CheckKON() {
		t.Error("expected CheckKON to report the key-on")
	}
	if d.CheckKON() {
		t.Error("expected CheckKON to clear after reading")
	}
}

func TestDSP_KeyOnThenKeyOffIsSilent(t *testing.T) {
	d, ram := newTestDSP(t)
	setupTestSample(d, ram)
	d.Write(RegKON, 0x01)
	runSamples(d, 2)
	d.Write(RegKOFF, 0x01)

	out := runSamples(d, 100)
	for i, s := range out {
		if s != 0 {
			t.Fatalf("sample %d: expected silence, got %d", i/2, s)
		}
	}
	if d.voices[0].envMode != envRelease {
		t.Errorf("expected release mode, got %d", d.voices[0].envMode)
	}

	// Same sequence without KOFF must be audible
	d2, ram2 := newTestDSP(t)
	setupTestSample(d2, ram2)
	d2.Write(RegKON, 0x01)
	runSamples(d2, 2)
	loud := false
	for _, s := range runSamples(d2, 100) {
		if s != 0 {
			loud = true
			break
		}
	}
	if !loud {
		t.Error("control run without KOFF produced no output")
	}
}

func TestDSP_ENDXClearedOnKeyOn(t *testing.T) {
	d, ram := newTestDSP(t)
	regs := d.regs
	regs[RegENDX] = 0xFF
	d.Load(&regs)
	setupTestSample(d, ram)
	d.Write(RegKON, 0x01)

	for i := 0; i < 10; i++ {
		runSamples(d, 1)
		if d.voices[0].konDelay != 0 && d.voices[0].konDelay < 5 {
			if got := d.Read(RegENDX); got != 0xFE {
				t.Errorf("sample %d: expected ENDX 0xFE during KON window, got 0x%02X", i, got)
			}
		}
	}
	if got := d.Read(RegENDX); got != 0xFE {
		t.Errorf("expected ENDX 0xFE, got 0x%02X", got)
	}
}

func TestDSP_WriteENDXClears(t *testing.T) {
	d, _ := newTestDSP(t)
	d.regs[RegENDX] = 0x5A
	d.endxBuf = 0x5A
	d.Write(RegENDX, 0xFF)
	if d.Read(RegENDX) != 0 || d.endxBuf != 0 {
		t.Errorf("expected ENDX and shadow cleared, got 0x%02X/0x%02X", d.Read(RegENDX), d.endxBuf)
	}
}

func TestDSP_WriteKONLatches(t *testing.T) {
	d, _ := newTestDSP(t)
	d.Write(RegKON, 0x81)
	if d.newKON != 0x81 {
		t.Errorf("expected pending KON 0x81, got 0x%02X", d.newKON)
	}
	if d.Read(RegKON) != 0x81 {
		t.Errorf("expected KON register 0x81, got 0x%02X", d.Read(RegKON))
	}
}

func TestDSP_AddressMasking(t *testing.T) {
	d, _ := newTestDSP(t)
	d.Write(0x80|RegMVolL, 0x33)
	if d.Read(RegMVolL) != 0x33 {
		t.Errorf("expected write through mirror, got 0x%02X", d.Read(RegMVolL))
	}
	if d.Read(0xFF) != d.Read(0x7F) {
		t.Error("expected reads to wrap to 7 bits")
	}
}

func TestDSP_ENVXWriteVisibleOneExtraTick(t *testing.T) {
	d, _ := newTestDSP(t)

	// V7 for voice 0 stages ENVX on clock 2 and V9 stores it on clock 4.
	d.Run(3)
	d.Write(VoiceEnvX, 0x55)
	d.Run(2)
	if got := d.Read(VoiceEnvX); got != 0x55 {
		t.Errorf("expected CPU value 0x55 to survive, got 0x%02X", got)
	}

	d.Run(32)
	if got := d.Read(VoiceEnvX); got != 0 {
		t.Errorf("expected engine value 0 after a full sample, got 0x%02X", got)
	}
}

func TestDSP_OutputRedirect(t *testing.T) {
	d, _ := newTestDSP(t)

	buf := make([]int16, 4)
	d.SetOutput(buf)
	d.Run(32 * 5)
	if d.SampleCount() != 4 {
		t.Errorf("expected 4 samples in buffer, got %d", d.SampleCount())
	}
	if len(d.Extra()) != 6 {
		t.Errorf("expected 6 samples in scratch, got %d", len(d.Extra()))
	}

	// Scratch wraps instead of overflowing
	d.SetOutput(nil)
	d.Run(32 * 10)
	if d.SampleCount() != 4 {
		t.Errorf("expected scratch count 4 after wrap, got %d", d.SampleCount())
	}
}

func TestDSP_OddOutputBufferTruncated(t *testing.T) {
	d, _ := newTestDSP(t)
	buf := make([]int16, 5)
	d.SetOutput(buf)
	d.Run(32 * 3)
	if d.SampleCount() != 4 {
		t.Errorf("expected 4 samples, got %d", d.SampleCount())
	}
}

func TestDSP_MuteFlag(t *testing.T) {
	d, ram := newTestDSP(t)
	setupTestSample(d, ram)
	d.Write(RegFLG, flgEchoDisable|flgMute)
	d.Write(RegKON, 0x01)

	for i, s := range runSamples(d, 64) {
		if s != 0 {
			t.Fatalf("sample %d: expected muted output, got %d", i/2, s)
		}
	}
	if d.EnvLevel(0) == 0 {
		t.Error("expected voice to keep running while muted")
	}
}

func TestDSP_MuteVoices(t *testing.T) {
	d, ram := newTestDSP(t)
	setupTestSample(d, ram)
	d.MuteVoices(0x01)
	d.Write(RegKON, 0x01)
	runSamples(d, 16)
	if d.voices[0].envMode != envRelease {
		t.Errorf("expected muted voice in release, got mode %d", d.voices[0].envMode)
	}
}

func TestDSP_RunBeforeInitPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	New().Run(1)
}

func TestDSP_InitShortRAMPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	New().Init(make([]byte, 100))
}

func TestDSP_SoftReset(t *testing.T) {
	d, ram := newTestDSP(t)
	setupTestSample(d, ram)
	d.Write(RegKON, 0x01)
	d.Run(32*20 + 7)

	d.SoftReset()
	if d.Read(RegFLG) != 0xE0 {
		t.Errorf("expected FLG 0xE0, got 0x%02X", d.Read(RegFLG))
	}
	if d.phase != 0 || d.echoOffset != 0 || d.noise != 0x4000 {
		t.Errorf("expected timing reinit, got phase=%d offset=%d noise=0x%04X", d.phase, d.echoOffset, d.noise)
	}
	if d.Read(RegDIR) != 0x02 {
		t.Error("expected registers other than FLG to survive")
	}

	// FLG bit 7 silences voices on their next V3
	runSamples(d, 1)
	if d.EnvLevel(0) != 0 {
		t.Errorf("expected env 0 under soft reset, got 0x%03X", d.EnvLevel(0))
	}
}

func TestDSP_MixAudible(t *testing.T) {
	d, ram := newTestDSP(t)
	setupLoudMix(d, ram)
	out := runSamples(d, 2000)
	if len(out) != 4000 {
		t.Fatalf("expected 4000 samples, got %d", len(out))
	}
	nonzero := 0
	for _, s := range out {
		if s != 0 {
			nonzero++
		}
	}
	if nonzero == 0 {
		t.Error("expected audible mix")
	}
}

// setupLoudMix keys on several voices with echo, noise and pitch
// modulation enabled, to exercise every part of the schedule.
func setupLoudMix(d *DSP, ram []byte) {
	setupTestSample(d, ram)

	// Looping block at 0x310: shift 12, filter 2, alternating data
	ram[0x204], ram[0x205] = 0x10, 0x03
	ram[0x206], ram[0x207] = 0x10, 0x03
	ram[0x310] = 0xC0 | 0x08 | 0x02 | 0x01
	for i := 1; i < brrBlockSize; i++ {
		ram[0x310+i] = byte(0x7F ^ i*0x11)
	}

	for v := 1; v < 4; v++ {
		base := uint8(v * 0x10)
		d.Write(base+VoiceSrcN, 1)
		d.Write(base+VoiceVolL, 0x60)
		d.Write(base+VoiceVolR, 0xA0)
		d.Write(base+VoicePitchL, uint8(v*0x35))
		d.Write(base+VoicePitchH, uint8(0x08+v))
		d.Write(base+VoiceADSR0, 0xFA)
		d.Write(base+VoiceADSR1, 0xE5)
	}
	d.Write(0x30+VoiceADSR0, 0x00)
	d.Write(0x30+VoiceGain, 0xE8)

	d.Write(RegEVolL, 0x40)
	d.Write(RegEVolR, 0xC0)
	d.Write(RegEFB, 0x50)
	d.Write(RegESA, 0x80)
	d.Write(RegEDL, 0x02)
	d.Write(RegEON, 0x0F)
	d.Write(RegNON, 0x08)
	d.Write(RegPMON, 0x04)
	fir := []uint8{0x7F, 0x20, 0xF0, 0x10, 0x00, 0xE0, 0x08, 0x40}
	for i, c := range fir {
		d.Write(RegFIR+uint8(i*0x10), c)
	}
	d.Write(RegFLG, 0x1A)
	d.Write(RegKON, 0x0F)
}

func TestDSP_RunResumable(t *testing.T) {
	const clocks = 32 * 1500

	whole, ramA := newTestDSP(t)
	setupLoudMix(whole, ramA)
	bufA := make([]int16, 4000)
	whole.SetOutput(bufA)
	whole.Run(clocks)

	chunked, ramB := newTestDSP(t)
	setupLoudMix(chunked, ramB)
	bufB := make([]int16, 4000)
	chunked.SetOutput(bufB)
	sizes := []int{1, 3, 7, 31, 32, 33, 100, 5}
	for left, i := clocks, 0; left > 0; i++ {
		n := sizes[i%len(sizes)]
		if n > left {
			n = left
		}
		chunked.Run(n)
		left -= n
	}

	if whole.SampleCount() != chunked.SampleCount() {
		t.Fatalf("sample count %d vs %d", whole.SampleCount(), chunked.SampleCount())
	}
	if hashSamples(bufA) != hashSamples(bufB) {
		t.Error("chunked run produced different output")
	}

	stateA := make([]byte, StateSize)
	stateB := make([]byte, StateSize)
	if err := whole.Serialize(stateA); err != nil {
		t.Fatal(err)
	}
	if err := chunked.Serialize(stateB); err != nil {
		t.Fatal(err)
	}
	if sha256.Sum256(stateA) != sha256.Sum256(stateB) {
		t.Error("chunked run produced different state")
	}
	if sha256.Sum256(ramA) != sha256.Sum256(ramB) {
		t.Error("chunked run produced different RAM")
	}
}

func TestDSP_RunZeroClocks(t *testing.T) {
	d, _ := newTestDSP(t)
	d.Run(0)
	d.Run(-5)
	if d.phase != 0 {
		t.Errorf("expected phase 0, got %d", d.phase)
	}
}
