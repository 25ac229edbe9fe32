// Package ebiten provides an Ebiten-specific wrapper for the emulator.
package ebiten

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"

	"github.com/user-none/espc/dsp"
	"github.com/user-none/espc/emu"
	"github.com/user-none/espc/ui"
)

var (
	labelColor = color.RGBA{0xC0, 0xC0, 0xD0, 0xFF}
	mutedColor = color.RGBA{0xF0, 0x50, 0x50, 0xFF}
	dimColor   = color.RGBA{0x70, 0x70, 0x80, 0xFF}
)

// Emulator wraps emu.Emulator with Ebiten drawing.
type Emulator struct {
	*emu.Emulator

	offscreen *ebiten.Image
	drawOpts  ebiten.DrawImageOptions
	title     string
}

// NewEmulator creates a new emulator instance with Ebiten rendering.
func NewEmulator(data []byte, region emu.Region) (*Emulator, error) {
	base, err := emu.NewEmulator(data, region)
	if err != nil {
		return nil, err
	}
	return &Emulator{
		Emulator: base,
		title:    songTitle(base.SPC().Tags),
	}, nil
}

// songTitle picks the most useful tag line to show.
func songTitle(tags emu.ID666) string {
	switch {
	case tags.Song != "" && tags.Game != "":
		return tags.Game + " - " + tags.Song
	case tags.Song != "":
		return tags.Song
	default:
		return tags.Game
	}
}

// Title returns the text shown at the top of the screen.
func (e *Emulator) Title() string {
	return e.title
}

// Layout implements ebiten.Game.
func (e *Emulator) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

// DrawCachedFramebuffer renders pixel data from the emulation goroutine
// with the label overlay, scaled to fit the window.
func (e *Emulator) DrawCachedFramebuffer(screen *ebiten.Image, pixels []byte, stride, activeHeight int, status ui.Status, paused bool) {
	if activeHeight == 0 || stride == 0 {
		return
	}
	requiredLen := stride * activeHeight
	if len(pixels) < requiredLen {
		return
	}

	if e.offscreen == nil || e.offscreen.Bounds().Dy() != activeHeight {
		e.offscreen = ebiten.NewImage(emu.ScreenWidth, activeHeight)
	}
	e.offscreen.WritePixels(pixels[:requiredLen])
	e.drawOverlay(e.offscreen, status, paused)

	screenW, screenH := screen.Bounds().Dx(), screen.Bounds().Dy()
	nativeW := float64(emu.ScreenWidth)
	nativeH := float64(activeHeight)

	scale := min(float64(screenW)/nativeW, float64(screenH)/nativeH)
	offsetX := (float64(screenW) - nativeW*scale) / 2
	offsetY := (float64(screenH) - nativeH*scale) / 2

	e.drawOpts = ebiten.DrawImageOptions{}
	e.drawOpts.GeoM.Scale(scale, scale)
	e.drawOpts.GeoM.Translate(offsetX, offsetY)
	e.drawOpts.Filter = ebiten.FilterNearest
	screen.DrawImage(e.offscreen, &e.drawOpts)
}

func (e *Emulator) drawOverlay(img *ebiten.Image, status ui.Status, paused bool) {
	face := basicfont.Face7x13

	title := e.title
	if len(title) > 34 {
		title = title[:34]
	}
	text.Draw(img, title, face, emu.MeterLeft, 14, labelColor)

	line := formatTime(status.ElapsedMS)
	if status.TotalMS > 0 {
		line += " / " + formatTime(status.TotalMS)
	}
	if paused {
		line += "  PAUSED"
	} else if status.Ended {
		line += "  END"
	}
	text.Draw(img, line, face, emu.MeterLeft, 27, dimColor)

	for v := 0; v < dsp.VoiceCount; v++ {
		c := labelColor
		if status.Muted&(1<<v) != 0 {
			c = mutedColor
		}
		x := emu.MeterLeft + v*emu.MeterPitch + 5
		text.Draw(img, fmt.Sprint(v+1), face, x, emu.MeterBottom+12, c)
	}
	text.Draw(img, "L", face, emu.MasterLeft+5, emu.MeterBottom+12, labelColor)
	text.Draw(img, "R", face, emu.MasterLeft+emu.MeterPitch+5, emu.MeterBottom+12, labelColor)

	mode := "gauss"
	if status.Sinc {
		mode = "sinc"
	}
	if !status.Echo {
		mode += " noecho"
	}
	text.Draw(img, mode, face, emu.ScreenWidth-len(mode)*7-4, 27, dimColor)
}

// formatTime renders milliseconds as m:ss.
func formatTime(ms int) string {
	s := ms / 1000
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
