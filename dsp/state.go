package dsp

import (
	"encoding/binary"
	"errors"
)

// StateVersion is the snapshot layout version written by CopyState.
const StateVersion = 2

// StateSize is an upper bound on the bytes CopyState moves. Containers
// reserve this much so later layouts can grow without moving other data.
const StateSize = 1024

var (
	errStateShort   = errors.New("dsp: state buffer too small")
	errStateVersion = errors.New("dsp: unsupported state version")
)

// StateCursor moves one field at a time between the DSP and a snapshot.
// A saving cursor records field; a loading cursor overwrites it.
type StateCursor interface {
	Copy(field []byte) error
}

// StateWriter is a saving StateCursor over a byte slice.
type StateWriter struct {
	buf []byte
	pos int
}

// NewStateWriter returns a StateWriter that fills buf from the start.
func NewStateWriter(buf []byte) *StateWriter {
	return &StateWriter{buf: buf}
}

// Copy appends field to the buffer.
func (w *StateWriter) Copy(field []byte) error {
	if w.pos+len(field) > len(w.buf) {
		return errStateShort
	}
	w.pos += copy(w.buf[w.pos:], field)
	return nil
}

// Len returns the number of bytes written.
func (w *StateWriter) Len() int { return w.pos }

// StateReader is a loading StateCursor over a byte slice.
type StateReader struct {
	buf []byte
	pos int
}

// NewStateReader returns a StateReader that consumes buf from the start.
func NewStateReader(buf []byte) *StateReader {
	return &StateReader{buf: buf}
}

// Copy overwrites field with the next len(field) bytes.
func (r *StateReader) Copy(field []byte) error {
	if r.pos+len(field) > len(r.buf) {
		return errStateShort
	}
	r.pos += copy(field, r.buf[r.pos:])
	return nil
}

// Len returns the number of bytes consumed.
func (r *StateReader) Len() int { return r.pos }

// stateCopier adapts int fields to a StateCursor and keeps the first error.
type stateCopier struct {
	c       StateCursor
	err     error
	scratch [2]byte
}

func (s *stateCopier) copy(b []byte) {
	if s.err == nil {
		s.err = s.c.Copy(b)
	}
}

func (s *stateCopier) u8(v *int) {
	b := s.scratch[:1]
	b[0] = byte(*v)
	s.copy(b)
	*v = int(b[0])
}

func (s *stateCopier) u16(v *int) {
	b := s.scratch[:2]
	binary.LittleEndian.PutUint16(b, uint16(*v))
	s.copy(b)
	*v = int(binary.LittleEndian.Uint16(b))
}

func (s *stateCopier) s16(v *int) {
	b := s.scratch[:2]
	binary.LittleEndian.PutUint16(b, uint16(*v))
	s.copy(b)
	*v = int(int16(binary.LittleEndian.Uint16(b)))
}

func (s *stateCopier) flag(v *bool) {
	n := 0
	if *v {
		n = 1
	}
	s.u8(&n)
	*v = n != 0
}

// extra copies a length byte and skips that many bytes. Saving always
// writes zero; loading skips fields appended by newer layouts.
func (s *stateCopier) extra() {
	n := 0
	s.u8(&n)
	if n > 0 && s.err == nil {
		s.copy(make([]byte, n))
	}
}

// CopyState saves or loads the complete engine state through c. The
// direction is the cursor's: a StateWriter records, a StateReader restores.
// Output buffer, voice mute mask and interpolation mode are host settings
// and are not part of the state. A pending CheckKON report is.
func (d *DSP) CopyState(c StateCursor) error {
	s := &stateCopier{c: c}

	version := StateVersion
	s.u8(&version)
	if s.err == nil && version != StateVersion {
		return errStateVersion
	}

	s.copy(d.regs[:])

	for i := range d.voices {
		v := &d.voices[i]
		for j := 0; j < brrBufSize; j++ {
			s.s16(&v.buf[j])
			v.buf[j+brrBufSize] = v.buf[j]
		}
		s.u16(&v.interpPos)
		s.u16(&v.brrAddr)
		s.u16(&v.env)
		s.s16(&v.hiddenEnv)
		s.u8(&v.bufPos)
		s.u8(&v.brrOffset)
		s.u8(&v.konDelay)
		mode := int(v.envMode)
		s.u8(&mode)
		v.envMode = envMode(mode & 3)
		envx := int(v.tEnvxOut)
		s.u8(&envx)
		v.tEnvxOut = uint8(envx)
		s.extra()
	}

	// Echo history is stored from the current position, which then
	// becomes 0. Reads stay ahead of writes so rotating in place is safe.
	for i := 0; i < echoHistSize; i++ {
		for ch := 0; ch < 2; ch++ {
			n := d.echoHist[d.echoHistPos+i][ch]
			s.s16(&n)
			d.echoHist[i][ch] = n
		}
	}
	d.echoHistPos = 0
	copy(d.echoHist[echoHistSize:], d.echoHist[:echoHistSize])

	s.flag(&d.everyOtherSample)
	s.u8(&d.kon)
	s.u16(&d.noise)
	s.u16(&d.counter)
	s.u16(&d.echoOffset)
	s.u16(&d.echoLength)
	s.u8(&d.phase)

	s.u8(&d.newKON)
	s.u8(&d.endxBuf)
	s.u8(&d.envxBuf)
	s.u8(&d.outxBuf)

	s.u8(&d.tPMON)
	s.u8(&d.tNON)
	s.u8(&d.tEON)
	s.u8(&d.tDIR)
	s.u8(&d.tKOFF)

	s.u16(&d.tBRRNextAddr)
	s.u8(&d.tADSR0)
	s.u8(&d.tBRRHeader)
	s.u8(&d.tBRRByte)
	s.u8(&d.tSRCN)
	s.u8(&d.tESA)
	s.u8(&d.tEchoEnabled)

	for ch := 0; ch < 2; ch++ {
		s.s16(&d.tMainOut[ch])
		s.s16(&d.tEchoOut[ch])
		s.s16(&d.tEchoIn[ch])
	}

	s.u16(&d.tDirAddr)
	s.u16(&d.tPitch)
	s.s16(&d.tOutput)
	s.u16(&d.tEchoPtr)
	s.u8(&d.tLooped)
	s.flag(&d.konCheck)

	s.extra()

	d.sanitize()
	return s.err
}

// sanitize bounds fields that index internal arrays, so a corrupt snapshot
// cannot cause out-of-range access.
func (d *DSP) sanitize() {
	for i := range d.voices {
		v := &d.voices[i]
		v.bufPos = v.bufPos % brrBufSize &^ 3
		if v.interpPos > 0x7FFF {
			v.interpPos = 0x7FFF
		}
	}
	d.phase &= 31
	d.counter %= counterRange
}

// Serialize saves the engine state into buf, which must hold StateSize bytes.
func (d *DSP) Serialize(buf []byte) error {
	if len(buf) < StateSize {
		return errStateShort
	}
	return d.CopyState(NewStateWriter(buf[:StateSize]))
}

// Deserialize restores engine state saved by Serialize.
func (d *DSP) Deserialize(buf []byte) error {
	if len(buf) < StateSize {
		return errStateShort
	}
	return d.CopyState(NewStateReader(buf[:StateSize]))
}
