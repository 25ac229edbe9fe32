package dsp

// Voice pipeline. Each voice's work for one sample is split over steps
// V1-V9, run on different clocks and interleaved with neighbouring voices
// by the schedule in timing.go. The t* temporaries carry values between
// steps, so one voice's late steps overlap the next voice's early ones.

func (d *DSP) voiceOutput(v *voice, ch int) {
	// Apply left/right volume
	amp := (d.tOutput * int(int8(d.regs[v.regs+VoiceVolL+ch]))) >> 7

	// Add to output total
	d.tMainOut[ch] = clamp16(d.tMainOut[ch] + amp)

	// Optionally add to echo total
	if d.tEON&v.vbit != 0 {
		d.tEchoOut[ch] = clamp16(d.tEchoOut[ch] + amp)
	}
}

func (d *DSP) voiceV1(v *voice) {
	d.tDirAddr = d.tDIR*0x100 + d.tSRCN*4
	d.tSRCN = int(d.regs[v.regs+VoiceSrcN])
}

func (d *DSP) voiceV2(v *voice) {
	// Read sample pointer, ignored if not needed
	entry := d.tDirAddr
	if v.konDelay == 0 {
		entry += 2
	}
	d.tBRRNextAddr = int(d.ram[entry&0xFFFF]) | int(d.ram[(entry+1)&0xFFFF])<<8

	d.tADSR0 = int(d.regs[v.regs+VoiceADSR0])

	// Read pitch, spread over two clocks
	d.tPitch = int(d.regs[v.regs+VoicePitchL])
}

func (d *DSP) voiceV3a(v *voice) {
	d.tPitch += int(d.regs[v.regs+VoicePitchH]&0x3F) << 8
}

func (d *DSP) voiceV3b(v *voice) {
	// Read BRR header and byte
	d.tBRRByte = int(d.ram[(v.brrAddr+v.brrOffset)&0xFFFF])
	d.tBRRHeader = int(d.ram[v.brrAddr&0xFFFF])
}

func (d *DSP) voiceV3c(v *voice) {
	// Pitch modulation using previous voice's output
	if d.tPMON&v.vbit != 0 {
		d.tPitch += ((d.tOutput >> 5) * d.tPitch) >> 10
	}

	if v.konDelay != 0 {
		// Get ready to start BRR decoding on next sample
		if v.konDelay == 5 {
			v.brrAddr = d.tBRRNextAddr
			v.brrOffset = 1
			v.bufPos = 0
			d.tBRRHeader = 0 // header is ignored on this sample
			d.konCheck = true
		}

		// Envelope is never run during KON
		v.env = 0
		v.hiddenEnv = 0

		// Disable BRR decoding until last three samples
		v.interpPos = 0
		v.konDelay--
		if v.konDelay&3 != 0 {
			v.interpPos = 0x4000
		}

		// Pitch is never added during KON
		d.tPitch = 0
	}

	output := d.interpolate(v)

	// Noise
	if d.tNON&v.vbit != 0 {
		output = int(int16(d.noise * 2))
	}

	// Apply envelope
	d.tOutput = (output * v.env >> 11) &^ 1
	v.tEnvxOut = uint8(v.env >> 4)

	// Immediate silence due to end of sample or soft reset
	if d.regs[RegFLG]&flgSoftReset != 0 || d.tBRRHeader&3 == 1 {
		v.envMode = envRelease
		v.env = 0
	}

	if d.everyOtherSample {
		// KOFF
		if d.tKOFF&v.vbit != 0 {
			v.envMode = envRelease
		}

		// KON
		if d.kon&v.vbit != 0 {
			v.konDelay = 5
			v.envMode = envAttack
		}
	}

	// Run envelope for next sample
	if v.konDelay == 0 {
		d.runEnvelope(v)
	}
}

func (d *DSP) voiceV3(v *voice) {
	d.voiceV3a(v)
	d.voiceV3b(v)
	d.voiceV3c(v)
}

func (d *DSP) voiceV4(v *voice) {
	// Decode BRR
	d.tLooped = 0
	if v.interpPos >= 0x4000 {
		d.decodeBRR(v)

		v.brrOffset += 2
		if v.brrOffset >= brrBlockSize {
			// Start decoding next BRR block
			v.brrAddr = (v.brrAddr + brrBlockSize) & 0xFFFF
			if d.tBRRHeader&1 != 0 {
				v.brrAddr = d.tBRRNextAddr
				d.tLooped = v.vbit
			}
			v.brrOffset = 1
		}
	}

	// Apply pitch
	v.interpPos = (v.interpPos & 0x3FFF) + d.tPitch

	// Keep from getting too far ahead (when using pitch modulation)
	if v.interpPos > 0x7FFF {
		v.interpPos = 0x7FFF
	}

	// Output left
	d.voiceOutput(v, 0)
}

func (d *DSP) voiceV5(v *voice) {
	// Output right
	d.voiceOutput(v, 1)

	// ENDX, OUTX, and ENVX won't update if you wrote to them 1-2 clocks earlier
	endx := int(d.regs[RegENDX]) | d.tLooped

	// Clear bit in ENDX if KON just began
	if v.konDelay == 5 {
		endx &^= v.vbit
	}
	d.endxBuf = endx & 0xFF
}

func (d *DSP) voiceV6(v *voice) {
	d.outxBuf = (d.tOutput >> 8) & 0xFF
}

func (d *DSP) voiceV7(v *voice) {
	// Update ENDX
	d.regs[RegENDX] = uint8(d.endxBuf)
	d.envxBuf = int(v.tEnvxOut)
}

func (d *DSP) voiceV8(v *voice) {
	// Update OUTX
	d.regs[v.regs+VoiceOutX] = uint8(d.outxBuf)
}

func (d *DSP) voiceV9(v *voice) {
	// Update ENVX
	d.regs[v.regs+VoiceEnvX] = uint8(d.envxBuf)
}

// Most voices do all these in one clock, so make a handy composite

func (d *DSP) voiceV7V4V1(i int) {
	d.voiceV7(&d.voices[i])
	d.voiceV1(&d.voices[i+3])
	d.voiceV4(&d.voices[i+1])
}

func (d *DSP) voiceV8V5V2(i int) {
	d.voiceV8(&d.voices[i])
	d.voiceV5(&d.voices[i+1])
	d.voiceV2(&d.voices[i+2])
}

func (d *DSP) voiceV9V6V3(i int) {
	d.voiceV9(&d.voices[i])
	d.voiceV6(&d.voices[i+1])
	d.voiceV3(&d.voices[i+2])
}
