package emu

import (
	"encoding/binary"
	"errors"
	"hash/crc32"

	"github.com/user-none/espc/dsp"
)

// Save state format constants
const (
	stateVersion    = 2
	stateMagic      = "eSPCSState\x00\x00"
	stateHeaderSize = 22 // magic(12) + version(2) + fileCRC(4) + dataCRC(4)
)

// Fixed serialization sizes for inline components
const (
	emulatorSerializeSize = 4 + 4 + 4 + 8 + 8 + 4 // clockAccum + frame + phase + prev/cur + echo override
	dspSlotSize           = dsp.StateSize
)

// boolByte converts a bool to a uint8 (0 or 1).
func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// SerializeSize returns the total size in bytes needed for a save state.
func SerializeSize() int {
	return stateHeaderSize +
		dsp.RAMSize +
		dspSlotSize +
		emulatorSerializeSize
}

// Serialize creates a save state and returns it as a byte slice.
func (e *Emulator) Serialize() ([]byte, error) {
	data := make([]byte, SerializeSize())

	// Write header
	copy(data[0:12], stateMagic)
	binary.LittleEndian.PutUint16(data[12:14], stateVersion)
	binary.LittleEndian.PutUint32(data[14:18], e.spc.CRC)

	offset := stateHeaderSize

	// APU RAM
	copy(data[offset:], e.ram[:])
	offset += dsp.RAMSize

	// DSP
	if err := e.dsp.Serialize(data[offset : offset+dspSlotSize]); err != nil {
		return nil, err
	}
	offset += dspSlotSize

	// Emulator inline state
	e.serializeInline(data, offset)

	// Calculate and write data CRC32 (over everything after header)
	dataCRC := crc32.ChecksumIEEE(data[stateHeaderSize:])
	binary.LittleEndian.PutUint32(data[18:22], dataCRC)

	return data, nil
}

// Deserialize restores emulator state from a save state byte slice.
// Region, options and the driver are not restored. A scripted driver
// continues from its own state.
func (e *Emulator) Deserialize(data []byte) error {
	if err := e.VerifyState(data); err != nil {
		return err
	}

	offset := stateHeaderSize

	copy(e.ram[:], data[offset:offset+dsp.RAMSize])
	offset += dsp.RAMSize

	if err := e.dsp.Deserialize(data[offset : offset+dspSlotSize]); err != nil {
		return err
	}
	offset += dspSlotSize

	e.deserializeInline(data, offset)
	e.applyMutes()

	return nil
}

// VerifyState checks if a save state is valid without loading it.
func (e *Emulator) VerifyState(data []byte) error {
	if len(data) < SerializeSize() {
		return errors.New("save state too short")
	}

	if string(data[0:12]) != stateMagic {
		return errors.New("invalid save state magic")
	}

	version := binary.LittleEndian.Uint16(data[12:14])
	if version > stateVersion {
		return errors.New("unsupported save state version")
	}

	fileCRC := binary.LittleEndian.Uint32(data[14:18])
	if fileCRC != e.spc.CRC {
		return errors.New("save state is for a different file")
	}

	expectedCRC := binary.LittleEndian.Uint32(data[18:22])
	actualCRC := crc32.ChecksumIEEE(data[stateHeaderSize:])
	if expectedCRC != actualCRC {
		return errors.New("save state data is corrupted")
	}

	return nil
}

// serializeInline writes Emulator inline state to the data buffer.
func (e *Emulator) serializeInline(data []byte, offset int) int {
	binary.LittleEndian.PutUint32(data[offset:], uint32(e.clockAccum))
	offset += 4
	binary.LittleEndian.PutUint32(data[offset:], e.frame)
	offset += 4
	binary.LittleEndian.PutUint32(data[offset:], uint32(e.resampler.phase))
	offset += 4

	for ch := 0; ch < 2; ch++ {
		binary.LittleEndian.PutUint32(data[offset:], uint32(e.resampler.prev[ch]))
		offset += 4
	}
	for ch := 0; ch < 2; ch++ {
		binary.LittleEndian.PutUint32(data[offset:], uint32(e.resampler.cur[ch]))
		offset += 4
	}

	data[offset] = boolByte(e.echoOff)
	offset++
	data[offset] = e.echoFLG
	offset++
	data[offset] = e.echoVolL
	offset++
	data[offset] = e.echoVolR
	offset++

	return offset
}

// deserializeInline reads Emulator inline state from the data buffer.
func (e *Emulator) deserializeInline(data []byte, offset int) int {
	e.clockAccum = int(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4
	e.frame = binary.LittleEndian.Uint32(data[offset:])
	offset += 4
	e.resampler.phase = int(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4

	for ch := 0; ch < 2; ch++ {
		e.resampler.prev[ch] = int32(binary.LittleEndian.Uint32(data[offset:]))
		offset += 4
	}
	for ch := 0; ch < 2; ch++ {
		e.resampler.cur[ch] = int32(binary.LittleEndian.Uint32(data[offset:]))
		offset += 4
	}

	e.echoOff = data[offset] != 0
	offset++
	e.echoFLG = data[offset]
	offset++
	e.echoVolL = data[offset]
	offset++
	e.echoVolR = data[offset]
	offset++

	return offset
}
