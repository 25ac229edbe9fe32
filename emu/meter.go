package emu

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/user-none/espc/dsp"
)

// Display constants
const (
	ScreenWidth     = 256
	ScreenHeight    = 224
	MaxScreenHeight = ScreenHeight
)

// Meter layout. Voice columns start at MeterLeft, MeterPitch apart; the two
// master columns follow. Labels are drawn by the front-end.
const (
	MeterLeft   = 8
	MeterPitch  = 24
	MeterWidth  = 16
	MeterTop    = 32
	MeterBottom = 208
	MasterLeft  = MeterLeft + dsp.VoiceCount*MeterPitch + 8

	meterHeight = MeterBottom - MeterTop
)

var (
	colorBackground = color.RGBA{0x10, 0x10, 0x18, 0xFF}
	colorTrack      = color.RGBA{0x28, 0x28, 0x34, 0xFF}
	colorEnvelope   = color.RGBA{0x30, 0xC0, 0x60, 0xFF}
	colorOutput     = color.RGBA{0xF0, 0xD0, 0x40, 0xFF}
	colorMuted      = color.RGBA{0xA0, 0x30, 0x30, 0xFF}
	colorMaster     = color.RGBA{0x50, 0x90, 0xF0, 0xFF}
)

// meter tracks the levels shown on screen.
type meter struct {
	env   [dsp.VoiceCount]int // ENVX, 0..127
	out   [dsp.VoiceCount]int // |OUTX|, 0..128
	peak  [2]int              // decaying master peak, 0..32768
	muted uint8
}

func (m *meter) update(e *Emulator) {
	for v := 0; v < dsp.VoiceCount; v++ {
		base := uint8(v * 0x10)
		m.env[v] = int(e.dsp.Read(base+dsp.VoiceEnvX)) & 0x7F
		out := int(int8(e.dsp.Read(base + dsp.VoiceOutX)))
		if out < 0 {
			out = -out
		}
		m.out[v] = out
	}
	m.muted = e.inputMute | e.optionMute

	var peak [2]int
	for i, s := range e.dspBuffer {
		a := int(s)
		if a < 0 {
			a = -a
		}
		if a > peak[i&1] {
			peak[i&1] = a
		}
	}
	for ch := range m.peak {
		m.peak[ch] -= m.peak[ch] / 8
		if peak[ch] > m.peak[ch] {
			m.peak[ch] = peak[ch]
		}
	}
}

// Levels returns the envelope and output levels of voice v as fractions of
// full scale.
func (m *meter) levels(v int) (env, out float64) {
	return float64(m.env[v]) / 127, float64(m.out[v]) / 128
}

func (m *meter) render(fb []byte) {
	img := &image.RGBA{
		Pix:    fb,
		Stride: ScreenWidth * 4,
		Rect:   image.Rect(0, 0, ScreenWidth, ScreenHeight),
	}
	draw.Draw(img, img.Rect, image.NewUniform(colorBackground), image.Point{}, draw.Src)

	for v := 0; v < dsp.VoiceCount; v++ {
		x := MeterLeft + v*MeterPitch
		fillBar(img, x, MeterWidth, meterHeight, colorTrack)

		env, out := m.levels(v)
		c := colorEnvelope
		if m.muted&(1<<v) != 0 {
			c = colorMuted
		}
		fillBar(img, x, MeterWidth, int(env*meterHeight), c)
		fillBar(img, x+MeterWidth/4, MeterWidth/2, int(out*meterHeight), colorOutput)
	}

	for ch := 0; ch < 2; ch++ {
		x := MasterLeft + ch*MeterPitch
		fillBar(img, x, MeterWidth, meterHeight, colorTrack)
		fillBar(img, x, MeterWidth, m.peak[ch]*meterHeight/32768, colorMaster)
	}
}

// fillBar draws a bar of height h rising from MeterBottom.
func fillBar(img *image.RGBA, x, w, h int, c color.RGBA) {
	if h <= 0 {
		return
	}
	if h > meterHeight {
		h = meterHeight
	}
	r := image.Rect(x, MeterBottom-h, x+w, MeterBottom)
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}
