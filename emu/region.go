package emu

import emucore "github.com/user-none/eblitui/api"

// Region is an alias for emucore.Region so internal code compiles unchanged.
type Region = emucore.Region

const (
	RegionNTSC = emucore.RegionNTSC
	RegionPAL  = emucore.RegionPAL
)

// DSPClockHz is the S-DSP clock rate. One stereo sample is produced every
// 32 clocks, giving 32 kHz output.
const DSPClockHz = 1024000

// RegionTiming holds frame timing for a specific region. The DSP clock is
// the same everywhere; only the host frame rate changes.
type RegionTiming struct {
	Scanlines int // Total scanlines per frame
	FPS       int // Frames per second
}

// NTSC timing: 262 scanlines, 60 Hz
var NTSCTiming = RegionTiming{
	Scanlines: 262,
	FPS:       60,
}

// PAL timing: 312 scanlines, 50 Hz
var PALTiming = RegionTiming{
	Scanlines: 312,
	FPS:       50,
}

// GetTimingForRegion returns the appropriate timing constants
func GetTimingForRegion(r Region) RegionTiming {
	if r == RegionPAL {
		return PALTiming
	}
	return NTSCTiming
}

// DefaultRegion returns the default region (NTSC). SPC files carry no
// region information.
func DefaultRegion() Region {
	return RegionNTSC
}
