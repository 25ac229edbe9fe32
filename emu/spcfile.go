package emu

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"strconv"
	"strings"

	"github.com/user-none/espc/dsp"
)

// SPC file layout
const (
	spcSignature   = "SNES-SPC700 Sound File Data"
	spcHasTagsFlag = 0x23 // 26 = ID666 present, 27 = absent
	spcRegsOffset  = 0x25
	spcTagsOffset  = 0x2E
	spcRAMOffset   = 0x100
	spcDSPOffset   = 0x10100
	spcExtraOffset = 0x101C0
	spcExtraSize   = 0x40
	spcMinSize     = spcExtraOffset + spcExtraSize

	iplRegionStart = 0xFFC0
	controlReg     = 0xF1 // SPC700 CONTROL, bit 7 maps the IPL ROM
)

// CPURegs is the audio CPU register block saved in an SPC file.
type CPURegs struct {
	PC  uint16
	A   uint8
	X   uint8
	Y   uint8
	PSW uint8
	SP  uint8
}

// ID666 holds the text tags of an SPC file.
type ID666 struct {
	Song    string
	Game    string
	Dumper  string
	Comment string
	Artist  string
	Length  int // seconds before fade, 0 for unknown
	FadeMS  int // fade length in milliseconds
}

// SPCFile is a parsed SPC sound snapshot.
type SPCFile struct {
	CPU      CPURegs
	Tags     ID666
	HasTags  bool
	RAM      [dsp.RAMSize]byte
	DSPRegs  [dsp.RegisterCount]byte
	ExtraRAM [spcExtraSize]byte
	CRC      uint32
}

var (
	errSPCShort     = errors.New("spc: file too short")
	errSPCSignature = errors.New("spc: bad signature")
)

// ParseSPC parses an SPC snapshot.
func ParseSPC(data []byte) (*SPCFile, error) {
	if len(data) < len(spcSignature) {
		return nil, errSPCShort
	}
	if string(data[:len(spcSignature)]) != spcSignature {
		return nil, errSPCSignature
	}
	if len(data) < spcMinSize {
		return nil, errSPCShort
	}

	f := &SPCFile{CRC: crc32.ChecksumIEEE(data)}

	r := data[spcRegsOffset:]
	f.CPU = CPURegs{
		PC:  binary.LittleEndian.Uint16(r[0:2]),
		A:   r[2],
		X:   r[3],
		Y:   r[4],
		PSW: r[5],
		SP:  r[6],
	}

	if data[spcHasTagsFlag] != 27 {
		f.HasTags = true
		f.Tags = parseID666(data)
	}

	copy(f.RAM[:], data[spcRAMOffset:spcRAMOffset+dsp.RAMSize])
	copy(f.DSPRegs[:], data[spcDSPOffset:spcDSPOffset+dsp.RegisterCount])
	copy(f.ExtraRAM[:], data[spcExtraOffset:spcExtraOffset+spcExtraSize])

	return f, nil
}

// LoadRAM copies the snapshot RAM into ram. When the IPL ROM was mapped at
// dump time the top 64 bytes of the RAM image hold ROM, and the real RAM
// contents come from the extra block.
func (f *SPCFile) LoadRAM(ram []byte) {
	copy(ram, f.RAM[:])
	if f.RAM[controlReg]&0x80 != 0 {
		copy(ram[iplRegionStart:], f.ExtraRAM[:])
	}
}

// TotalMS returns the play time including fade, or 0 when the length is unknown.
func (t ID666) TotalMS() int {
	if t.Length <= 0 {
		return 0
	}
	return t.Length*1000 + t.FadeMS
}

// ID666 text-format field offsets
const (
	tagSong    = 0x2E
	tagGame    = 0x4E
	tagDumper  = 0x6E
	tagComment = 0x7E
	tagLength  = 0xA9
	tagFade    = 0xAC
	tagArtist  = 0xB1

	// Binary format differs from text after the comment
	tagBinLength = 0xA9
	tagBinFade   = 0xAC
	tagBinArtist = 0xB0
)

func parseID666(data []byte) ID666 {
	t := ID666{
		Song:    tagString(data[tagSong : tagSong+32]),
		Game:    tagString(data[tagGame : tagGame+32]),
		Dumper:  tagString(data[tagDumper : tagDumper+16]),
		Comment: tagString(data[tagComment : tagComment+32]),
	}
	if isTextTag(data) {
		t.Length = tagNumber(data[tagLength : tagLength+3])
		t.FadeMS = tagNumber(data[tagFade : tagFade+5])
		t.Artist = tagString(data[tagArtist : tagArtist+32])
	} else {
		l := data[tagBinLength:]
		t.Length = int(l[0]) | int(l[1])<<8 | int(l[2])<<16
		t.FadeMS = int(binary.LittleEndian.Uint32(data[tagBinFade:]))
		t.Artist = tagString(data[tagBinArtist : tagBinArtist+32])
	}
	return t
}

// isTextTag guesses the ID666 variant. Text tags store the length and fade
// as ASCII digits; binary tags store them as little-endian integers.
func isTextTag(data []byte) bool {
	digits := 0
	for _, b := range data[tagLength : tagFade+5] {
		switch {
		case b >= '0' && b <= '9':
			digits++
		case b == 0 || b == ' ':
		default:
			return false
		}
	}
	// All-zero fields are ambiguous; the text layout puts the artist at
	// 0xB1, which in binary is the second artist byte.
	return digits > 0 || data[tagBinArtist] == 0
}

func tagString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimSpace(string(b))
}

func tagNumber(b []byte) int {
	n, err := strconv.Atoi(tagString(b))
	if err != nil {
		return 0
	}
	return n
}
