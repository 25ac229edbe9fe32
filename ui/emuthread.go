package ui

import (
	"sync"
	"time"

	"github.com/user-none/espc/emu"
)

// SharedInput holds the voice mute mask written by the Ebiten thread and
// read by the emulation goroutine. Bit n mutes voice n.
type SharedInput struct {
	mu   sync.Mutex
	mask uint8
}

// Toggle flips the mute state of the voices in bits.
func (si *SharedInput) Toggle(bits uint8) {
	si.mu.Lock()
	si.mask ^= bits
	si.mu.Unlock()
}

// Set replaces the mute mask.
func (si *SharedInput) Set(mask uint8) {
	si.mu.Lock()
	si.mask = mask
	si.mu.Unlock()
}

// Read returns the current mute mask.
func (si *SharedInput) Read() uint8 {
	si.mu.Lock()
	defer si.mu.Unlock()
	return si.mask
}

// Status is the playback state shown alongside the framebuffer.
type Status struct {
	ElapsedMS int
	TotalMS   int // 0 when the song has no length tag
	Muted     uint8
	Sinc      bool
	Echo      bool
	Ended     bool
}

// SharedFramebuffer holds pixel data written by the emulation goroutine
// and read by Ebiten's Draw(). Read copies into a separate buffer so the
// emu goroutine can keep writing while Draw uses the copy.
type SharedFramebuffer struct {
	mu           sync.Mutex
	writePixels  []byte
	readPixels   []byte
	stride       int
	activeHeight int
	status       Status
}

// NewSharedFramebuffer creates a pre-allocated framebuffer.
func NewSharedFramebuffer() *SharedFramebuffer {
	return &SharedFramebuffer{
		writePixels: make([]byte, emu.ScreenWidth*emu.MaxScreenHeight*4),
		readPixels:  make([]byte, emu.ScreenWidth*emu.MaxScreenHeight*4),
	}
}

// Update copies a frame and its status from the emulation goroutine.
func (sf *SharedFramebuffer) Update(pixels []byte, stride, activeHeight int, status Status) {
	sf.mu.Lock()
	n := min(stride*activeHeight, len(sf.writePixels), len(pixels))
	copy(sf.writePixels[:n], pixels[:n])
	sf.stride = stride
	sf.activeHeight = activeHeight
	sf.status = status
	sf.mu.Unlock()
}

// Read returns a snapshot of the latest frame. The pixel slice stays valid
// until the next Read.
func (sf *SharedFramebuffer) Read() (pixels []byte, stride, activeHeight int, status Status) {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	n := min(sf.stride*sf.activeHeight, len(sf.writePixels))
	copy(sf.readPixels[:n], sf.writePixels[:n])
	return sf.readPixels, sf.stride, sf.activeHeight, sf.status
}

// EmuControl coordinates pausing and stopping the emulation goroutine
// from the Ebiten thread.
type EmuControl struct {
	mu       sync.Mutex
	pauseReq bool
	paused   bool
	stopReq  bool
	ackCh    chan struct{}
}

// NewEmuControl creates a new emulation control.
func NewEmuControl() *EmuControl {
	return &EmuControl{ackCh: make(chan struct{}, 1)}
}

// RequestPause asks the emulation goroutine to pause and blocks until it
// is parked between frames. The emulator may then be used from the
// calling goroutine until RequestResume.
func (ec *EmuControl) RequestPause() {
	ec.mu.Lock()
	if ec.paused || ec.pauseReq || ec.stopReq {
		ec.mu.Unlock()
		return
	}
	ec.pauseReq = true
	ec.mu.Unlock()

	<-ec.ackCh
}

// RequestResume lets the emulation goroutine continue.
func (ec *EmuControl) RequestResume() {
	ec.mu.Lock()
	ec.pauseReq = false
	ec.paused = false
	ec.mu.Unlock()
}

// CheckPause is called by the emulation goroutine between frames. It parks
// while a pause is requested and returns false once the goroutine should
// exit.
func (ec *EmuControl) CheckPause() bool {
	ec.mu.Lock()
	if ec.stopReq {
		ec.mu.Unlock()
		return false
	}
	if !ec.pauseReq {
		ec.mu.Unlock()
		return true
	}
	ec.paused = true
	ec.mu.Unlock()

	select {
	case ec.ackCh <- struct{}{}:
	default:
	}

	for {
		ec.mu.Lock()
		if ec.stopReq {
			ec.mu.Unlock()
			return false
		}
		if !ec.pauseReq {
			ec.paused = false
			ec.mu.Unlock()
			return true
		}
		ec.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
}

// Stop signals the emulation goroutine to exit.
func (ec *EmuControl) Stop() {
	ec.mu.Lock()
	ec.stopReq = true
	ec.pauseReq = false
	ec.mu.Unlock()
}

// IsPaused reports whether the emulation goroutine is parked.
func (ec *EmuControl) IsPaused() bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.paused
}
