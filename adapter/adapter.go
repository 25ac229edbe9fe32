package adapter

import (
	emucore "github.com/user-none/eblitui/api"

	"github.com/user-none/espc/emu"
)

// Compile-time interface check.
var _ emucore.CoreFactory = (*Factory)(nil)

// Factory implements emucore.CoreFactory for the SPC player.
type Factory struct{}

// SystemInfo returns system metadata for UI configuration. Buttons 4-11
// mute voices 0-7 while held.
func (f *Factory) SystemInfo() emucore.SystemInfo {
	return emucore.SystemInfo{
		Name:            "espc",
		ConsoleName:     "SNES SPC",
		Extensions:      []string{".spc"},
		ScreenWidth:     emu.ScreenWidth,
		MaxScreenHeight: emu.MaxScreenHeight,
		AspectRatio:     8.0 / 7.0,
		SampleRate:      emu.SampleRate,
		Buttons: []emucore.Button{
			{Name: "Voice 1", ID: 4, DefaultKey: "A", DefaultPad: "Y"},
			{Name: "Voice 2", ID: 5, DefaultKey: "S", DefaultPad: "B"},
			{Name: "Voice 3", ID: 6, DefaultKey: "D", DefaultPad: "A"},
			{Name: "Voice 4", ID: 7, DefaultKey: "F", DefaultPad: "Start"},
			{Name: "Voice 5", ID: 8, DefaultKey: "G", DefaultPad: "X"},
			{Name: "Voice 6", ID: 9, DefaultKey: "H", DefaultPad: "L1"},
			{Name: "Voice 7", ID: 10, DefaultKey: "J", DefaultPad: "R1"},
			{Name: "Voice 8", ID: 11, DefaultKey: "K", DefaultPad: "Select"},
		},
		Players: 1,
		CoreOptions: []emucore.CoreOption{
			{
				Key:         emu.OptionSinc,
				Label:       "Sinc Interpolation",
				Description: "Use 8-tap windowed sinc instead of the hardware Gaussian filter",
				Type:        emucore.CoreOptionBool,
				Default:     "false",
			},
			{
				Key:         emu.OptionEcho,
				Label:       "Echo",
				Description: "Allow the song to use the echo unit",
				Type:        emucore.CoreOptionBool,
				Default:     "true",
			},
		},
		DataDirName:   "espc",
		CoreName:      emu.Name,
		CoreVersion:   emu.Version,
		SerializeSize: emu.SerializeSize(),
	}
}

// CreateEmulator creates a new emulator instance for an SPC file.
func (f *Factory) CreateEmulator(data []byte, region emucore.Region) (emucore.Emulator, error) {
	e, err := emu.NewEmulator(data, region)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// DetectRegion returns the default region. SPC files carry no region and
// the DSP runs at the same rate everywhere.
func (f *Factory) DetectRegion(data []byte) (emucore.Region, bool) {
	return emu.DefaultRegion(), false
}
