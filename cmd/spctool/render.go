package main

import (
	"bufio"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/user-none/espc/driver"
	"github.com/user-none/espc/emu"
)

// defaultSeconds is used for songs without a length tag.
const defaultSeconds = 180

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	out := fs.String("o", "out.wav", "output WAV file")
	seconds := fs.Int("seconds", 0, "seconds to render (default: tagged length + fade)")
	sinc := fs.Bool("sinc", false, "use sinc interpolation")
	noEcho := fs.Bool("noecho", false, "disable the echo unit")
	mute := fs.String("mute", "0", "voice mute mask")
	script := fs.String("script", "", "Lua script driving the DSP registers")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("render: expected one SPC file")
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	e, err := emu.NewEmulator(data, emu.RegionNTSC)
	if err != nil {
		return fmt.Errorf("%s: %w", fs.Arg(0), err)
	}
	defer e.Close()

	mask, err := strconv.ParseUint(*mute, 0, 8)
	if err != nil {
		return fmt.Errorf("render: invalid mute mask %q", *mute)
	}
	e.SetVoiceMask(uint8(mask))
	e.SetOption(emu.OptionSinc, strconv.FormatBool(*sinc))
	e.SetOption(emu.OptionEcho, strconv.FormatBool(!*noEcho))

	if *script != "" {
		drv, err := driver.LoadLua(*script)
		if err != nil {
			return err
		}
		if err := e.SetDriver(drv); err != nil {
			return err
		}
	}

	ms := *seconds * 1000
	if ms <= 0 {
		ms = e.SPC().Tags.TotalMS()
	}
	if ms <= 0 {
		ms = defaultSeconds * 1000
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := render(f, e, ms); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// render runs e for ms milliseconds of frames and writes the output to w
// as a WAV file.
func render(w io.WriteSeeker, e *emu.Emulator, ms int) error {
	wav, err := newWAVWriter(w, emu.SampleRate)
	if err != nil {
		return err
	}
	frames := ms * e.GetTiming().FPS / 1000
	for i := 0; i < frames; i++ {
		e.RunFrame()
		if err := e.DriverErr(); err != nil {
			return err
		}
		if err := wav.WriteSamples(e.GetAudioSamples()); err != nil {
			return err
		}
	}
	return wav.Close()
}

// wavWriter writes 16-bit stereo PCM. Sizes in the header are patched on
// Close.
type wavWriter struct {
	ws    io.WriteSeeker
	w     *bufio.Writer
	bytes uint32
	buf   []byte
}

const wavHeaderSize = 44

func newWAVWriter(ws io.WriteSeeker, rate int) (*wavWriter, error) {
	var hdr [wavHeaderSize]byte
	copy(hdr[0:], "RIFF")
	copy(hdr[8:], "WAVEfmt ")
	binary.LittleEndian.PutUint32(hdr[16:], 16)           // fmt chunk size
	binary.LittleEndian.PutUint16(hdr[20:], 1)            // PCM
	binary.LittleEndian.PutUint16(hdr[22:], 2)            // channels
	binary.LittleEndian.PutUint32(hdr[24:], uint32(rate)) // sample rate
	binary.LittleEndian.PutUint32(hdr[28:], uint32(rate*4))
	binary.LittleEndian.PutUint16(hdr[32:], 4)  // block align
	binary.LittleEndian.PutUint16(hdr[34:], 16) // bits per sample
	copy(hdr[36:], "data")

	w := bufio.NewWriter(ws)
	if _, err := w.Write(hdr[:]); err != nil {
		return nil, err
	}
	return &wavWriter{ws: ws, w: w}, nil
}

// WriteSamples appends interleaved stereo samples.
func (ww *wavWriter) WriteSamples(s []int16) error {
	ww.buf = ww.buf[:0]
	for _, v := range s {
		ww.buf = binary.LittleEndian.AppendUint16(ww.buf, uint16(v))
	}
	n, err := ww.w.Write(ww.buf)
	ww.bytes += uint32(n)
	return err
}

// Close flushes and fills in the RIFF and data sizes.
func (ww *wavWriter) Close() error {
	if err := ww.w.Flush(); err != nil {
		return err
	}
	var size [4]byte
	for _, patch := range []struct {
		offset int64
		value  uint32
	}{
		{4, 36 + ww.bytes},
		{40, ww.bytes},
	} {
		if _, err := ww.ws.Seek(patch.offset, io.SeekStart); err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(size[:], patch.value)
		if _, err := ww.ws.Write(size[:]); err != nil {
			return err
		}
	}
	_, err := ww.ws.Seek(0, io.SeekEnd)
	return err
}
