package dsp

import "testing"

func TestGauss_TableShape(t *testing.T) {
	if gauss[0] != 0 || gauss[255] != 370 || gauss[256] != 374 || gauss[511] != 1305 {
		t.Errorf("unexpected table endpoints: %d %d %d %d", gauss[0], gauss[255], gauss[256], gauss[511])
	}
	for i := 1; i < len(gauss); i++ {
		if gauss[i] < gauss[i-1] {
			t.Fatalf("table decreases at %d: %d < %d", i, gauss[i], gauss[i-1])
		}
	}
	// The four weights used at each fraction sum to roughly unity (2048)
	for off := 0; off < 256; off++ {
		sum := gauss[255-off] + gauss[511-off] + gauss[256+off] + gauss[off]
		if sum < 2047 || sum > 2049 {
			t.Errorf("offset %d: weights sum to %d", off, sum)
		}
	}
}

func TestGauss_Interpolate(t *testing.T) {
	tests := []struct {
		name      string
		in        [4]int
		interpPos int
		want      int
	}{
		{"flat negative", [4]int{-2, -2, -2, -2}, 0, -4},
		{"zero", [4]int{0, 0, 0, 0}, 0x0800, 0},
		{"center sample", [4]int{0, 0x4000, 0, 0}, 0, 0x4000 * 1305 >> 11 &^ 1},
		{"clamp high", [4]int{0x7FFF, 0x7FFF, 0x7FFF, 0x7FFF}, 0x0FF0, 0x7FFE},
	}
	for _, tt := range tests {
		d, _ := newTestDSP(t)
		v := &d.voices[0]
		v.bufPos = 0
		v.interpPos = tt.interpPos
		copy(v.buf[interpBase:], tt.in[:])
		got := d.interpolateGaussian(v)
		if got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.want, got)
		}
		if got&1 != 0 {
			t.Errorf("%s: expected low bit clear, got %d", tt.name, got)
		}
	}
}

func TestGauss_ThirdSumWraps(t *testing.T) {
	d, _ := newTestDSP(t)
	v := &d.voices[0]
	// At offset 0 three full-scale samples sum to 32781, which wraps
	// to -32755 before the last (zero-weight) tap is added.
	v.interpPos = 0
	for i := 0; i < 4; i++ {
		v.buf[interpBase+i] = 0x7FFF
	}
	if got := d.interpolateGaussian(v); got != -32756 {
		t.Errorf("expected wrapped -32756, got %d", got)
	}
}

func TestSinc_TableUnityGain(t *testing.T) {
	for p := range sinc {
		sum := 0
		for _, c := range sinc[p] {
			sum += c
		}
		if sum != 1<<sincBits {
			t.Fatalf("phase %d: taps sum to %d", p, sum)
		}
	}
	for k, c := range sinc[0] {
		want := 0
		if k == 4 {
			want = 1 << sincBits
		}
		if c != want {
			t.Errorf("phase 0 tap %d: expected %d, got %d", k, want, c)
		}
	}
}

func TestSinc_Interpolate(t *testing.T) {
	d, _ := newTestDSP(t)
	d.SetInterpolation(Sinc)
	if d.Interpolation() != Sinc {
		t.Fatal("expected sinc interpolation")
	}
	v := &d.voices[0]
	for i := range v.buf {
		v.buf[i] = 1000
	}
	v.buf[interpBase+1] = 1234

	// Phase 0 lands on the same sample the gaussian kernel centres on
	v.interpPos = 0
	if got := d.interpolate(v); got != 1234 {
		t.Errorf("expected exact sample at phase 0, got %d", got)
	}

	// Constant input passes through unchanged at any phase
	v.buf[interpBase+1] = 1000
	for _, pos := range []int{0x0100, 0x0800, 0x0FF8} {
		v.interpPos = pos
		if got := d.interpolate(v); got < 999 || got > 1000 {
			t.Errorf("pos 0x%04X: expected 1000, got %d", pos, got)
		}
	}
}

func TestInterpolation_TracksRampAtHighPositions(t *testing.T) {
	d, _ := newTestDSP(t)
	v := &d.voices[0]
	// A ramp where the newest decoded sample sits just before bufPos, so
	// any read past it hits the oldest (most negative) sample.
	v.bufPos = 0
	for i := 0; i < brrBufSize; i++ {
		s := 1000 * (i - interpBase)
		v.buf[i] = s
		v.buf[i+brrBufSize] = s
	}

	for _, mode := range []Interpolation{Gaussian, Sinc} {
		d.SetInterpolation(mode)
		prev := 0
		for pos := 0x5000; pos <= 0x7FFF; pos += 0x40 {
			v.interpPos = pos
			got := d.interpolate(v)
			want := 1000 + 1000*pos/0x1000
			if diff := got - want; diff < -64 || diff > 64 {
				t.Errorf("%s pos 0x%04X: expected about %d, got %d", mode, pos, want, got)
			}
			if pos > 0x5000 && got < prev {
				t.Errorf("%s pos 0x%04X: output fell from %d to %d", mode, pos, prev, got)
			}
			prev = got
		}
	}
}

func TestInterpolation_String(t *testing.T) {
	if Gaussian.String() != "gaussian" || Sinc.String() != "sinc" {
		t.Errorf("unexpected names %q %q", Gaussian.String(), Sinc.String())
	}
}
