package dsp

// RegisterCount is the size of the addressable register file.
const RegisterCount = 128

// VoiceCount is the number of sample voices.
const VoiceCount = 8

// Per-voice register offsets. Voice n's registers live at n*0x10 + offset.
const (
	VoiceVolL   = 0x00
	VoiceVolR   = 0x01
	VoicePitchL = 0x02
	VoicePitchH = 0x03
	VoiceSrcN   = 0x04
	VoiceADSR0  = 0x05
	VoiceADSR1  = 0x06
	VoiceGain   = 0x07
	VoiceEnvX   = 0x08
	VoiceOutX   = 0x09
)

// Global registers.
const (
	RegMVolL = 0x0C
	RegMVolR = 0x1C
	RegEVolL = 0x2C
	RegEVolR = 0x3C
	RegKON   = 0x4C
	RegKOFF  = 0x5C
	RegFLG   = 0x6C
	RegENDX  = 0x7C
	RegEFB   = 0x0D
	RegPMON  = 0x2D
	RegNON   = 0x3D
	RegEON   = 0x4D
	RegDIR   = 0x5D
	RegESA   = 0x6D
	RegEDL   = 0x7D
	RegFIR   = 0x0F // FIR tap i lives at RegFIR + i*0x10
)

// FLG bits
const (
	flgSoftReset   = 0x80
	flgMute        = 0x40
	flgEchoDisable = 0x20
	flgNoiseRate   = 0x1F
)

// Internal sizes
const (
	brrBufSize   = 24 // decoded samples per voice ring
	brrBlockSize = 9
	echoHistSize = 8
	extraSize    = 16
)

// initialRegs is the register image loaded at power-on.
var initialRegs = [RegisterCount]byte{
	0x45, 0x8B, 0x5A, 0x9A, 0xE4, 0x82, 0x1B, 0x78, 0x00, 0x00, 0xAA, 0x96, 0x89, 0x0E, 0xE0, 0x80,
	0x2A, 0x49, 0x3D, 0xBA, 0x14, 0xA0, 0xAC, 0xC5, 0x00, 0x00, 0x51, 0xBB, 0x9C, 0x4E, 0x7B, 0xFF,
	0xF4, 0xFD, 0x57, 0x32, 0x37, 0xD9, 0x42, 0x22, 0x00, 0x00, 0x5B, 0x3C, 0x9F, 0x1B, 0x87, 0x9A,
	0x6F, 0x27, 0xAF, 0x7B, 0xE5, 0x68, 0x0A, 0xD9, 0x00, 0x00, 0x9A, 0xC5, 0x9C, 0x4E, 0x7B, 0xFF,
	0xEA, 0x21, 0x78, 0x4F, 0xDD, 0xED, 0x24, 0x14, 0x00, 0x00, 0x77, 0xB1, 0xD1, 0x36, 0xC1, 0x67,
	0x52, 0x57, 0x46, 0x3D, 0x59, 0xF4, 0x87, 0xA4, 0x00, 0x00, 0x7E, 0x44, 0x9C, 0x4E, 0x7B, 0xFF,
	0x75, 0xF5, 0x06, 0x97, 0x10, 0xC3, 0x24, 0xBB, 0x00, 0x00, 0x7B, 0x7A, 0xE0, 0x60, 0x12, 0x0F,
	0xF7, 0x74, 0x1C, 0xE5, 0x39, 0x3D, 0x73, 0xC1, 0x00, 0x00, 0x7A, 0xB3, 0xFF, 0x4E, 0x7B, 0xFF,
}

// InitialRegisters returns a copy of the power-on register image.
func InitialRegisters() [RegisterCount]byte {
	return initialRegs
}

// clamp16 saturates v to the int16 range.
func clamp16(v int) int {
	if v < -32768 {
		return -32768
	}
	if v > 32767 {
		return 32767
	}
	return v
}
