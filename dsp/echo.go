package dsp

// calcFIR returns tap i of the FIR filter for channel ch.
func (d *DSP) calcFIR(i, ch int) int {
	s := d.echoHist[d.echoHistPos+i+1][ch]
	return (s * int(int8(d.regs[RegFIR+i*0x10]))) >> 6
}

func (d *DSP) echoRead(ch int) {
	addr := d.tEchoPtr + ch*2
	s := int(int16(uint16(d.ram[addr&0xFFFF]) | uint16(d.ram[(addr+1)&0xFFFF])<<8))
	// second copy simplifies wrap-around handling
	d.echoHist[d.echoHistPos][ch] = s >> 1
	d.echoHist[d.echoHistPos+echoHistSize][ch] = s >> 1
}

func (d *DSP) echoWrite(ch int) {
	if d.tEchoEnabled&flgEchoDisable == 0 {
		addr := d.tEchoPtr + ch*2
		s := uint16(d.tEchoOut[ch])
		d.ram[addr&0xFFFF] = byte(s)
		d.ram[(addr+1)&0xFFFF] = byte(s >> 8)
	}
	d.tEchoOut[ch] = 0
}

func (d *DSP) echoOutput(ch int) int {
	mvol := RegMVolL + ch*0x10
	evol := RegEVolL + ch*0x10
	out := int(int16((d.tMainOut[ch] * int(int8(d.regs[mvol]))) >> 7))
	out += int(int16((d.tEchoIn[ch] * int(int8(d.regs[evol]))) >> 7))
	return clamp16(out)
}

func (d *DSP) echo22() {
	// History
	d.echoHistPos++
	if d.echoHistPos >= echoHistSize {
		d.echoHistPos = 0
	}

	d.tEchoPtr = (d.tESA*0x100 + d.echoOffset) & 0xFFFF
	d.echoRead(0)

	// FIR
	l := d.calcFIR(0, 0)
	r := d.calcFIR(0, 1)

	d.tEchoIn[0] = l
	d.tEchoIn[1] = r
}

func (d *DSP) echo23() {
	l := d.calcFIR(1, 0) + d.calcFIR(2, 0)
	r := d.calcFIR(1, 1) + d.calcFIR(2, 1)

	d.tEchoIn[0] += l
	d.tEchoIn[1] += r

	d.echoRead(1)
}

func (d *DSP) echo24() {
	l := d.calcFIR(3, 0) + d.calcFIR(4, 0) + d.calcFIR(5, 0)
	r := d.calcFIR(3, 1) + d.calcFIR(4, 1) + d.calcFIR(5, 1)

	d.tEchoIn[0] += l
	d.tEchoIn[1] += r
}

func (d *DSP) echo25() {
	l := int(int16(d.tEchoIn[0]+d.calcFIR(6, 0))) + int(int16(d.calcFIR(7, 0)))
	r := int(int16(d.tEchoIn[1]+d.calcFIR(6, 1))) + int(int16(d.calcFIR(7, 1)))

	d.tEchoIn[0] = clamp16(l) &^ 1
	d.tEchoIn[1] = clamp16(r) &^ 1
}

func (d *DSP) echo26() {
	// Left output volumes
	// (save sample for next clock so we can output both together)
	d.tMainOut[0] = d.echoOutput(0)

	// Echo feedback
	l := d.tEchoOut[0] + int(int16((d.tEchoIn[0]*int(int8(d.regs[RegEFB])))>>7))
	r := d.tEchoOut[1] + int(int16((d.tEchoIn[1]*int(int8(d.regs[RegEFB])))>>7))

	d.tEchoOut[0] = clamp16(l) &^ 1
	d.tEchoOut[1] = clamp16(r) &^ 1
}

func (d *DSP) echo27() {
	// Output
	l := d.tMainOut[0]
	r := d.echoOutput(1)
	d.tMainOut[0] = 0
	d.tMainOut[1] = 0

	if d.regs[RegFLG]&flgMute != 0 {
		l = 0
		r = 0
	}

	d.writeSample(l, r)
}

func (d *DSP) echo28() {
	d.tEchoEnabled = int(d.regs[RegFLG])
}

func (d *DSP) echo29() {
	d.tESA = int(d.regs[RegESA])

	if d.echoOffset == 0 {
		d.echoLength = int(d.regs[RegEDL]&0x0F) * 0x800
	}

	d.echoOffset += 4
	if d.echoOffset >= d.echoLength {
		d.echoOffset = 0
	}

	// Write left echo
	d.echoWrite(0)

	d.tEchoEnabled = int(d.regs[RegFLG])
}

func (d *DSP) echo30() {
	// Write right echo
	d.echoWrite(1)
}
