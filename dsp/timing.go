package dsp

func (d *DSP) misc27() {
	// Voice 0 doesn't support PMON
	d.tPMON = int(d.regs[RegPMON]) &^ 1
}

func (d *DSP) misc28() {
	d.tNON = int(d.regs[RegNON])
	d.tEON = int(d.regs[RegEON])
	d.tDIR = int(d.regs[RegDIR])
}

func (d *DSP) misc29() {
	d.everyOtherSample = !d.everyOtherSample
	if d.everyOtherSample {
		// Clears KON 63 clocks after it was last read
		d.newKON &^= d.kon
	}
}

func (d *DSP) misc30() {
	if d.everyOtherSample {
		d.kon = d.newKON
		d.tKOFF = int(d.regs[RegKOFF]) | d.muteMask
	}

	d.runCounters()

	// Noise
	if d.readCounter(int(d.regs[RegFLG]&flgNoiseRate)) == 0 {
		d.stepNoise()
	}
}

// stepNoise advances the 15-bit noise LFSR.
func (d *DSP) stepNoise() {
	feedback := (d.noise << 13) ^ (d.noise << 14)
	d.noise = (feedback & 0x4000) ^ (d.noise >> 1)
}

// Run advances the DSP by the given number of clocks. Each clock is one of
// 32 steps of the sample schedule, and every 32 clocks one stereo sample is
// written to the output. Run may stop and resume at any clock.
func (d *DSP) Run(clocks int) {
	if d.ram == nil {
		panic("dsp: Run called before Init")
	}
	for ; clocks > 0; clocks-- {
		d.clock(d.phase)
		d.phase = (d.phase + 1) & 31
	}
}

// clock performs the work of one step of the schedule. The order of calls
// within each step matters: steps read temporaries that earlier steps in
// the same or previous clock wrote.
func (d *DSP) clock(phase int) {
	v := &d.voices
	switch phase {
	case 0:
		d.voiceV5(&v[0])
		d.voiceV2(&v[1])
	case 1:
		d.voiceV6(&v[0])
		d.voiceV3(&v[1])
	case 2:
		d.voiceV7V4V1(0) // V1 for voice 3
	case 3:
		d.voiceV8V5V2(0)
	case 4:
		d.voiceV9V6V3(0)
	case 5:
		d.voiceV7V4V1(1) // V1 for voice 4
	case 6:
		d.voiceV8V5V2(1)
	case 7:
		d.voiceV9V6V3(1)
	case 8:
		d.voiceV7V4V1(2) // V1 for voice 5
	case 9:
		d.voiceV8V5V2(2)
	case 10:
		d.voiceV9V6V3(2)
	case 11:
		d.voiceV7V4V1(3) // V1 for voice 6
	case 12:
		d.voiceV8V5V2(3)
	case 13:
		d.voiceV9V6V3(3)
	case 14:
		d.voiceV7V4V1(4) // V1 for voice 7
	case 15:
		d.voiceV8V5V2(4)
	case 16:
		d.voiceV9V6V3(4)
	case 17:
		d.voiceV1(&v[0])
		d.voiceV7(&v[5])
		d.voiceV4(&v[6])
	case 18:
		d.voiceV8V5V2(5)
	case 19:
		d.voiceV9V6V3(5)
	case 20:
		d.voiceV1(&v[1])
		d.voiceV7(&v[6])
		d.voiceV4(&v[7])
	case 21:
		d.voiceV8(&v[6])
		d.voiceV5(&v[7])
		d.voiceV2(&v[0])
	case 22:
		d.voiceV3a(&v[0])
		d.voiceV9(&v[6])
		d.voiceV6(&v[7])
		d.echo22()
	case 23:
		d.voiceV7(&v[7])
		d.echo23()
	case 24:
		d.voiceV8(&v[7])
		d.echo24()
	case 25:
		d.voiceV3b(&v[0])
		d.voiceV9(&v[7])
		d.echo25()
	case 26:
		d.echo26()
	case 27:
		d.misc27()
		d.echo27()
	case 28:
		d.misc28()
		d.echo28()
	case 29:
		d.misc29()
		d.echo29()
	case 30:
		d.misc30()
		d.voiceV3c(&v[0])
		d.echo30()
	case 31:
		d.voiceV4(&v[0])
		d.voiceV1(&v[2])
	}
}
