package emu

const (
	sampleRate    = 48000
	dspSampleRate = DSPClockHz / 32
)

// SampleRate is the host output rate of GetAudioSamples.
const SampleRate = sampleRate

// resampler converts interleaved stereo between two rates by linear
// interpolation. Positions are tracked in units of 1/outRate of an input
// sample so no rounding error accumulates.
type resampler struct {
	inRate  int
	outRate int
	phase   int      // position past prev, in 1/outRate units
	prev    [2]int32 // previous input pair
	cur     [2]int32 // current input pair
}

func newResampler(inRate, outRate int) resampler {
	return resampler{inRate: inRate, outRate: outRate}
}

func (r *resampler) reset() {
	r.phase = 0
	r.prev = [2]int32{}
	r.cur = [2]int32{}
}

// process appends the resampled form of in to out.
func (r *resampler) process(in []int16, out []int16) []int16 {
	for i := 0; i+1 < len(in); i += 2 {
		r.prev = r.cur
		r.cur = [2]int32{int32(in[i]), int32(in[i+1])}
		for r.phase < r.outRate {
			out = append(out, r.lerp(0), r.lerp(1))
			r.phase += r.inRate
		}
		r.phase -= r.outRate
	}
	return out
}

func (r *resampler) lerp(ch int) int16 {
	d := int64(r.cur[ch] - r.prev[ch])
	return int16(int64(r.prev[ch]) + d*int64(r.phase)/int64(r.outRate))
}

// applyFade scales this frame's output down over the tagged fade period
// and silences it afterwards.
func (e *Emulator) applyFade() {
	tags := e.spc.Tags
	if tags.Length <= 0 {
		return
	}
	start := tags.Length * 1000
	now := e.elapsedMS()
	if now < start {
		return
	}
	gain := int32(0)
	if tags.FadeMS > 0 && now < start+tags.FadeMS {
		gain = int32((start + tags.FadeMS - now) * 0x10000 / tags.FadeMS)
	}
	for i, s := range e.audioBuffer {
		e.audioBuffer[i] = int16(clampInt32(int32(s)*gain>>16, -32768, 32767))
	}
}

// GetAudioSamples returns accumulated audio samples as 16-bit stereo PCM.
func (e *Emulator) GetAudioSamples() []int16 {
	return e.audioBuffer
}

// clampInt32 clamps v to [min, max].
func clampInt32(v, min, max int32) int32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
