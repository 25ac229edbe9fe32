package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/user-none/espc/emu"
)

// ringBufferCapacity is ~170ms at 48kHz stereo 16-bit.
const ringBufferCapacity = 32768

// AudioPlayer plays emulator output through oto, which pulls from a ring
// buffer fed by QueueSamples.
type AudioPlayer struct {
	player     *oto.Player
	ringBuffer *AudioRingBuffer
}

var (
	otoCtx      *oto.Context
	otoInitOnce sync.Once
	otoInitErr  error
)

// ensureOtoContext creates the process-wide oto context on first use.
func ensureOtoContext() (*oto.Context, error) {
	otoInitOnce.Do(func() {
		var ready chan struct{}
		otoCtx, ready, otoInitErr = oto.NewContext(&oto.NewContextOptions{
			SampleRate:   emu.SampleRate,
			ChannelCount: 2,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   50 * time.Millisecond,
		})
		if otoInitErr != nil {
			return
		}
		<-ready
	})
	return otoCtx, otoInitErr
}

// NewAudioPlayer starts playback at the given volume.
func NewAudioPlayer(volume float64) (*AudioPlayer, error) {
	ctx, err := ensureOtoContext()
	if err != nil {
		return nil, fmt.Errorf("oto audio not available: %w", err)
	}

	rb := NewAudioRingBuffer(ringBufferCapacity)
	player := ctx.NewPlayer(rb)
	player.SetBufferSize(19200)
	player.SetVolume(volume)
	player.Play()

	return &AudioPlayer{player: player, ringBuffer: rb}, nil
}

// QueueSamples queues interleaved stereo samples for playback.
func (a *AudioPlayer) QueueSamples(samples []int16) {
	a.ringBuffer.WriteSamples(samples)
}

// Flush drops queued audio, used after a reset so stale output is not heard.
func (a *AudioPlayer) Flush() {
	a.ringBuffer.Clear()
}

// GetBufferLevel returns the bytes queued in the ring buffer and in oto's
// player. Used for frame pacing.
func (a *AudioPlayer) GetBufferLevel() int {
	return a.ringBuffer.Buffered() + a.player.BufferedSize()
}

// SetVolume sets the playback volume (0.0 = silent, 1.0 = full).
func (a *AudioPlayer) SetVolume(vol float64) {
	a.player.SetVolume(vol)
}

// Close cleans up audio resources.
func (a *AudioPlayer) Close() {
	if a.ringBuffer != nil {
		a.ringBuffer.Close()
	}
	if a.player != nil {
		a.player.Close()
	}
}
