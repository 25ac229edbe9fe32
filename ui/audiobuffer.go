package ui

import (
	"io"
	"sync"
)

// AudioRingBuffer holds interleaved int16 samples between the emulation
// goroutine and oto. Read serves them as little-endian bytes. Read blocks
// while empty; Write drops the oldest samples on overflow so the producer
// never stalls.
type AudioRingBuffer struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []int16
	head   int // next sample to read
	count  int // samples buffered
	closed bool
}

// NewAudioRingBuffer creates a ring buffer holding capacity bytes of
// 16-bit audio.
func NewAudioRingBuffer(capacity int) *AudioRingBuffer {
	rb := &AudioRingBuffer{buf: make([]int16, capacity/2)}
	rb.cond = sync.NewCond(&rb.mu)
	return rb
}

// WriteSamples appends samples, dropping the oldest data if full.
func (rb *AudioRingBuffer) WriteSamples(s []int16) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.closed || len(s) == 0 {
		return
	}
	size := len(rb.buf)
	if len(s) > size {
		s = s[len(s)-size:]
	}
	if drop := rb.count + len(s) - size; drop > 0 {
		rb.head = (rb.head + drop) % size
		rb.count -= drop
	}

	tail := (rb.head + rb.count) % size
	n := copy(rb.buf[tail:], s)
	copy(rb.buf, s[n:])
	rb.count += len(s)

	rb.cond.Signal()
}

// Read implements io.Reader. Only whole samples are returned, so len(p)
// should be even. Returns io.EOF once closed and drained.
func (rb *AudioRingBuffer) Read(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for rb.count == 0 {
		if rb.closed {
			return 0, io.EOF
		}
		rb.cond.Wait()
	}

	n := len(p) / 2
	if n > rb.count {
		n = rb.count
	}
	size := len(rb.buf)
	for i := 0; i < n; i++ {
		s := rb.buf[(rb.head+i)%size]
		p[2*i] = byte(s)
		p[2*i+1] = byte(s >> 8)
	}
	rb.head = (rb.head + n) % size
	rb.count -= n

	return n * 2, nil
}

// Buffered returns the number of bytes currently in the buffer.
func (rb *AudioRingBuffer) Buffered() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count * 2
}

// Clear discards all buffered audio.
func (rb *AudioRingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.head = 0
	rb.count = 0
}

// Close unblocks readers. Reads drain what is left, then return io.EOF.
func (rb *AudioRingBuffer) Close() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.closed = true
	rb.cond.Broadcast()
}
