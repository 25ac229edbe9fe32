package dsp

import "testing"

// runEchoFIR runs the FIR steps of the echo unit for one sample.
func runEchoFIR(d *DSP) {
	d.echo22()
	d.echo23()
	d.echo24()
	d.echo25()
}

func TestEcho_ReadIntoHistory(t *testing.T) {
	d, ram := newTestDSP(t)
	d.tESA = 0x40
	d.echoOffset = 0x10
	d.echoHistPos = echoHistSize - 1
	ram[0x4010], ram[0x4011] = 0x00, 0x40 // L = 0x4000
	ram[0x4012], ram[0x4013] = 0x00, 0xC0 // R = -0x4000

	d.echo22()
	d.echo23()

	if d.tEchoPtr != 0x4010 {
		t.Errorf("expected echo pointer 0x4010, got 0x%04X", d.tEchoPtr)
	}
	if d.echoHistPos != 0 {
		t.Errorf("expected history position to wrap to 0, got %d", d.echoHistPos)
	}
	if d.echoHist[0][0] != 0x2000 || d.echoHist[echoHistSize][0] != 0x2000 {
		t.Errorf("expected L 0x2000 in head and mirror, got %d/%d", d.echoHist[0][0], d.echoHist[echoHistSize][0])
	}
	if d.echoHist[0][1] != -0x2000 || d.echoHist[echoHistSize][1] != -0x2000 {
		t.Errorf("expected R -0x2000 in head and mirror, got %d/%d", d.echoHist[0][1], d.echoHist[echoHistSize][1])
	}
}

func TestEcho_FIRNewestTap(t *testing.T) {
	d, ram := newTestDSP(t)
	d.tESA = 0x40
	d.echoHistPos = echoHistSize - 1
	ram[0x4000], ram[0x4001] = 0x00, 0x40
	d.regs[RegFIR+7*0x10] = 0x40 // unity on the newest sample

	runEchoFIR(d)

	if d.tEchoIn[0] != 0x2000 {
		t.Errorf("expected L 0x2000, got %d", d.tEchoIn[0])
	}
	if d.tEchoIn[1] != 0 {
		t.Errorf("expected R 0, got %d", d.tEchoIn[1])
	}
}

func TestEcho_FIRStageWraps(t *testing.T) {
	d, _ := newTestDSP(t)
	d.tESA = 0x40
	d.echoHistPos = echoHistSize - 1
	for i := range d.echoHist {
		d.echoHist[i][0] = -0x4000
	}
	for i := 0; i < 7; i++ {
		d.regs[RegFIR+i*0x10] = 0x7F
	}

	runEchoFIR(d)

	// Seven taps of -32512 wrap to -30976 at the 16-bit stage after tap 6,
	// where a saturating sum would have clamped to -32768.
	if d.tEchoIn[0] != -30976 {
		t.Errorf("expected wrapped -30976, got %d", d.tEchoIn[0])
	}
}

func TestEcho_FeedbackAndOutput(t *testing.T) {
	d, _ := newTestDSP(t)
	d.regs[RegMVolL] = 0x40
	d.regs[RegMVolR] = 0x40
	d.regs[RegEVolL] = 0x40
	d.regs[RegEVolR] = 0xC0 // -64
	d.regs[RegEFB] = 0x40
	d.tMainOut = [2]int{1000, 1000}
	d.tEchoIn = [2]int{2000, 2000}
	d.tEchoOut = [2]int{11, 0}

	d.echo26()
	if d.tMainOut[0] != 500+1000 {
		t.Errorf("expected left 1500, got %d", d.tMainOut[0])
	}
	// 11 + 1000, low bit cleared
	if d.tEchoOut[0] != 1010 {
		t.Errorf("expected feedback 1010, got %d", d.tEchoOut[0])
	}

	buf := make([]int16, 2)
	d.SetOutput(buf)
	d.echo27()
	if buf[0] != 1500 || buf[1] != 500-1000 {
		t.Errorf("expected (1500,-500), got (%d,%d)", buf[0], buf[1])
	}
	if d.tMainOut != [2]int{} {
		t.Errorf("expected main totals cleared, got %v", d.tMainOut)
	}
}

func TestEcho_OutputClamps(t *testing.T) {
	d, _ := newTestDSP(t)
	d.regs[RegMVolL] = 0x7F
	d.regs[RegEVolL] = 0x7F
	d.tMainOut[0] = 32767
	d.tEchoIn[0] = 32767
	if got := d.echoOutput(0); got != 32767 {
		t.Errorf("expected clamp to 32767, got %d", got)
	}
}

func TestEcho_WriteRespectsFLG(t *testing.T) {
	d, ram := newTestDSP(t)
	d.tEchoPtr = 0x1234
	d.tEchoOut[0] = -2

	d.tEchoEnabled = flgEchoDisable
	d.echoWrite(0)
	if ram[0x1234] != 0 || ram[0x1235] != 0 {
		t.Error("expected no write while echo disabled")
	}
	if d.tEchoOut[0] != 0 {
		t.Error("expected echo total cleared after write step")
	}

	d.tEchoOut[0] = -2
	d.tEchoEnabled = 0
	d.echoWrite(0)
	if ram[0x1234] != 0xFE || ram[0x1235] != 0xFF {
		t.Errorf("expected 0xFFFE written, got %02X%02X", ram[0x1235], ram[0x1234])
	}
}

func TestEcho_LengthChangeAppliesAtWrap(t *testing.T) {
	d, _ := newTestDSP(t)
	d.Write(RegESA, 0x80)
	d.Write(RegEDL, 2)

	runSamples(d, 100)
	if d.echoLength != 0x1000 {
		t.Fatalf("expected length 0x1000, got 0x%X", d.echoLength)
	}
	d.Write(RegEDL, 1)

	maxOffset := 0
	for d.echoOffset != 0 {
		if d.echoOffset > maxOffset {
			maxOffset = d.echoOffset
		}
		runSamples(d, 1)
	}
	if maxOffset != 0x1000-4 {
		t.Errorf("expected old length to run out at 0xFFC, max offset 0x%X", maxOffset)
	}

	runSamples(d, 1)
	if d.echoLength != 0x800 {
		t.Errorf("expected new length 0x800 after wrap, got 0x%X", d.echoLength)
	}
	maxOffset = 0
	for d.echoOffset != 0 {
		if d.echoOffset > maxOffset {
			maxOffset = d.echoOffset
		}
		runSamples(d, 1)
	}
	if maxOffset != 0x800-4 {
		t.Errorf("expected max offset 0x7FC, got 0x%X", maxOffset)
	}
}

func TestEcho_ZeroLengthUsesFourBytes(t *testing.T) {
	d, ram := newTestDSP(t)
	d.Write(RegESA, 0x80)
	d.Write(RegEDL, 0)
	d.Write(RegFLG, 0)
	d.Write(RegEFB, 0x7F)
	ram[0x8000] = 0x00
	ram[0x8001] = 0x40

	runSamples(d, 50)
	if d.echoOffset != 0 {
		t.Errorf("expected offset 0, got 0x%X", d.echoOffset)
	}
	for i := 4; i < 0x100; i++ {
		if ram[0x8000+i] != 0 {
			t.Fatalf("echo wrote outside 4-byte buffer at 0x%04X", 0x8000+i)
		}
	}
}

func TestEcho_RoundTripThroughRAM(t *testing.T) {
	d, ram := newTestDSP(t)
	setupTestSample(d, ram)
	d.Write(RegESA, 0x80)
	d.Write(RegEDL, 1)
	d.Write(RegEON, 0x01)
	d.Write(RegFLG, 0)
	d.Write(RegKON, 0x01)

	runSamples(d, 64)
	written := false
	for i := 0; i < 0x800; i++ {
		if ram[0x8000+i] != 0 {
			written = true
			break
		}
	}
	if !written {
		t.Error("expected echo buffer to receive voice output")
	}
}
