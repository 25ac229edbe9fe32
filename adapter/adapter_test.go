package adapter

import (
	"testing"

	"github.com/user-none/espc/emu"
)

func TestSystemInfo(t *testing.T) {
	info := (&Factory{}).SystemInfo()
	if len(info.Buttons) != 8 {
		t.Fatalf("expected a button per voice, got %d", len(info.Buttons))
	}
	for i, b := range info.Buttons {
		if int(b.ID) != 4+i {
			t.Errorf("button %d: ID %d, want %d", i, b.ID, 4+i)
		}
	}
	if info.SerializeSize != emu.SerializeSize() {
		t.Errorf("SerializeSize %d, want %d", info.SerializeSize, emu.SerializeSize())
	}
}

func TestCreateEmulator_BadData(t *testing.T) {
	if _, err := (&Factory{}).CreateEmulator([]byte("junk"), emu.RegionNTSC); err == nil {
		t.Error("expected error for bad data")
	}
}

func TestDetectRegion(t *testing.T) {
	region, ok := (&Factory{}).DetectRegion(nil)
	if region != emu.RegionNTSC || ok {
		t.Errorf("got %v %v", region, ok)
	}
}
