package dsp

// All envelope and noise rates are derived from one counter that counts
// down once per sample and wraps at counterRange.
const counterRange = 2048 * 5 * 3

// counterRates is the period in samples of each 5-bit rate. Rate 0 never fires.
var counterRates = [32]int{
	counterRange + 1,
	2048, 1536,
	1280, 1024, 768,
	640, 512, 384,
	320, 256, 192,
	160, 128, 96,
	80, 64, 48,
	40, 32, 24,
	20, 16, 12,
	10, 8, 6,
	5, 4, 3,
	2,
	1,
}

// counterOffsets phases each rate against the shared counter.
var counterOffsets = [32]int{
	1, 0, 1040,
	536, 0, 1040,
	536, 0, 1040,
	536, 0, 1040,
	536, 0, 1040,
	536, 0, 1040,
	536, 0, 1040,
	536, 0, 1040,
	536, 0, 1040,
	536, 0, 1040,
	0,
	0,
}

func (d *DSP) runCounters() {
	d.counter--
	if d.counter < 0 {
		d.counter = counterRange - 1
	}
}

// readCounter returns zero on the samples where rate should step.
func (d *DSP) readCounter(rate int) int {
	return (d.counter + counterOffsets[rate]) % counterRates[rate]
}

func (d *DSP) runEnvelope(v *voice) {
	env := v.env
	if v.envMode == envRelease {
		// Release is fixed at 8 per sample regardless of ADSR/GAIN
		env -= 0x8
		if env < 0 {
			env = 0
		}
		v.env = env
		return
	}

	var rate int
	envData := int(d.regs[v.regs+VoiceADSR1])
	if d.tADSR0&0x80 != 0 {
		// ADSR
		if v.envMode >= envDecay {
			env--
			env -= env >> 8
			rate = envData & 0x1F
			if v.envMode == envDecay {
				rate = (d.tADSR0>>3)&0x0E + 0x10
			}
		} else {
			rate = (d.tADSR0&0x0F)*2 + 1
			if rate < 31 {
				env += 0x20
			} else {
				env += 0x400
			}
		}
	} else {
		// GAIN
		envData = int(d.regs[v.regs+VoiceGain])
		mode := envData >> 5
		if mode < 4 {
			// Direct
			env = envData * 0x10
			rate = 31
		} else {
			rate = envData & 0x1F
			switch mode {
			case 4:
				// Linear decrease
				env -= 0x20
			case 5:
				// Exponential decrease
				env--
				env -= env >> 8
			default:
				// Linear increase
				env += 0x20
				if mode > 6 && uint(v.hiddenEnv) >= 0x600 {
					// Bent line increase
					env += 0x8 - 0x20
				}
			}
		}
	}

	// Sustain level
	if env>>8 == envData>>5 && v.envMode == envDecay {
		v.envMode = envSustain
	}

	v.hiddenEnv = env

	// uint cast makes negative values look large, catching both bounds
	if uint(env) > 0x7FF {
		if env < 0 {
			env = 0
		} else {
			env = 0x7FF
		}
		if v.envMode == envAttack {
			v.envMode = envDecay
		}
	}

	if d.readCounter(rate) == 0 {
		v.env = env
	}
}
