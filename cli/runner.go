// Package cli provides a command-line runner for the player.
// It handles key polling and runs the emulator in a window without the full UI.
package cli

import (
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	emubridge "github.com/user-none/espc/bridge/ebiten"
	"github.com/user-none/espc/emu"
	"github.com/user-none/espc/ui"
)

// ADT buffer thresholds in bytes.
const (
	adtMinBuffer = 9600
	adtMaxBuffer = 19200
)

// Keys 1-8 toggle the matching voice's mute.
var voiceKeys = [8]ebiten.Key{
	ebiten.KeyDigit1, ebiten.KeyDigit2, ebiten.KeyDigit3, ebiten.KeyDigit4,
	ebiten.KeyDigit5, ebiten.KeyDigit6, ebiten.KeyDigit7, ebiten.KeyDigit8,
}

// Runner wraps an emulator for command-line mode.
// The emulator runs on a dedicated goroutine with audio-driven timing.
// The Ebiten thread handles key polling and rendering from the shared framebuffer.
type Runner struct {
	emulator    *emubridge.Emulator
	audioPlayer *ui.AudioPlayer

	emuControl        *ui.EmuControl
	sharedInput       *ui.SharedInput
	sharedFramebuffer *ui.SharedFramebuffer
	emuDone           chan struct{}

	// Owned by the Ebiten thread; applied while the emu goroutine is paused
	sinc   bool
	echo   bool
	paused bool
	loop   bool
}

// Options are the initial playback settings.
type Options struct {
	Mute uint8
	Sinc bool
	Echo bool
	Loop bool // restart when the song ends
}

// NewRunner creates a new Runner wrapping the given emulator.
// Audio initialization failure is non-fatal; the runner will work without sound.
func NewRunner(e *emubridge.Emulator, opts Options) *Runner {
	player, err := ui.NewAudioPlayer(1.0)
	if err != nil {
		log.Printf("Warning: audio initialization failed: %v", err)
	}

	r := &Runner{
		emulator:          e,
		audioPlayer:       player,
		emuControl:        ui.NewEmuControl(),
		sharedInput:       &ui.SharedInput{},
		sharedFramebuffer: ui.NewSharedFramebuffer(),
		emuDone:           make(chan struct{}),
		sinc:              opts.Sinc,
		echo:              opts.Echo,
		loop:              opts.Loop,
	}
	r.sharedInput.Set(opts.Mute)
	r.applyOptions()

	go r.emulationLoop()

	return r
}

// Close cleans up the runner's resources.
func (r *Runner) Close() {
	if r.emuControl != nil {
		r.emuControl.Stop()
		<-r.emuDone
	}

	if r.audioPlayer != nil {
		r.audioPlayer.Close()
		r.audioPlayer = nil
	}
}

func (r *Runner) applyOptions() {
	r.emulator.SetOption(emu.OptionSinc, boolString(r.sinc))
	r.emulator.SetOption(emu.OptionEcho, boolString(r.echo))
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// emulationLoop runs on a dedicated goroutine with ADT.
func (r *Runner) emulationLoop() {
	defer close(r.emuDone)

	timing := r.emulator.GetTiming()
	frameTime := time.Duration(float64(time.Second) / float64(timing.FPS))
	lastFrameTime := time.Now()
	var scriptErr error

	for {
		if !r.emuControl.CheckPause() {
			return
		}

		muted := r.sharedInput.Read()
		r.emulator.SetVoiceMask(muted)

		if r.emulator.Ended() && r.loop {
			r.emulator.Reset()
			if r.audioPlayer != nil {
				r.audioPlayer.Flush()
			}
		}

		r.emulator.RunFrame()
		if err := r.emulator.DriverErr(); err != nil && err != scriptErr {
			log.Printf("Warning: script stopped: %v", err)
			scriptErr = err
		}

		if r.audioPlayer != nil {
			r.audioPlayer.QueueSamples(r.emulator.GetAudioSamples())
		}

		r.sharedFramebuffer.Update(
			r.emulator.GetFramebuffer(),
			r.emulator.GetFramebufferStride(),
			r.emulator.GetActiveHeight(),
			r.status(muted),
		)

		elapsed := time.Since(lastFrameTime)
		sleepTime := frameTime - elapsed

		if r.audioPlayer != nil {
			bufferLevel := r.audioPlayer.GetBufferLevel()
			if bufferLevel < adtMinBuffer {
				sleepTime = time.Duration(float64(sleepTime) * 0.9)
			} else if bufferLevel > adtMaxBuffer {
				sleepTime = time.Duration(float64(sleepTime) * 1.1)
			}
		}

		if sleepTime > time.Millisecond {
			time.Sleep(sleepTime)
		}

		lastFrameTime = time.Now()
	}
}

// status is filled in on the emu goroutine. Draw adds the option flags.
func (r *Runner) status(muted uint8) ui.Status {
	fps := r.emulator.GetTiming().FPS
	return ui.Status{
		ElapsedMS: int(uint64(r.emulator.Frame()) * 1000 / uint64(fps)),
		TotalMS:   r.emulator.SPC().Tags.TotalMS(),
		Muted:     muted,
		Ended:     r.emulator.Ended(),
	}
}

// Update implements ebiten.Game.
func (r *Runner) Update() error {
	if !ebiten.IsFocused() {
		return nil
	}

	for v, key := range voiceKeys {
		if inpututil.IsKeyJustPressed(key) {
			r.sharedInput.Toggle(1 << v)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.Key0) {
		r.sharedInput.Set(0)
	}

	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		if r.paused {
			r.emuControl.RequestResume()
		} else {
			r.emuControl.RequestPause()
		}
		r.paused = !r.paused
	}

	// Anything touching the emulator runs with the emu goroutine parked
	reset := inpututil.IsKeyJustPressed(ebiten.KeyR)
	toggleSinc := inpututil.IsKeyJustPressed(ebiten.KeyI)
	toggleEcho := inpututil.IsKeyJustPressed(ebiten.KeyE)
	if reset || toggleSinc || toggleEcho {
		if !r.paused {
			r.emuControl.RequestPause()
		}
		if toggleSinc {
			r.sinc = !r.sinc
		}
		if toggleEcho {
			r.echo = !r.echo
		}
		r.applyOptions()
		if reset {
			r.emulator.Reset()
			if r.audioPlayer != nil {
				r.audioPlayer.Flush()
			}
		}
		if !r.paused {
			r.emuControl.RequestResume()
		}
	}
	return nil
}

// Draw implements ebiten.Game.
func (r *Runner) Draw(screen *ebiten.Image) {
	pixels, stride, height, status := r.sharedFramebuffer.Read()
	if height == 0 {
		return
	}
	status.Sinc = r.sinc
	status.Echo = r.echo
	r.emulator.DrawCachedFramebuffer(screen, pixels, stride, height, status, r.paused)
}

// Layout implements ebiten.Game.
func (r *Runner) Layout(outsideWidth, outsideHeight int) (int, int) {
	return r.emulator.Layout(outsideWidth, outsideHeight)
}
