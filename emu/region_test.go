package emu

import "testing"

func TestGetTimingForRegion(t *testing.T) {
	if got := GetTimingForRegion(RegionNTSC); got != NTSCTiming {
		t.Errorf("NTSC: got %+v", got)
	}
	if got := GetTimingForRegion(RegionPAL); got != PALTiming {
		t.Errorf("PAL: got %+v", got)
	}
}

func TestDefaultRegion(t *testing.T) {
	if DefaultRegion() != RegionNTSC {
		t.Error("expected NTSC default")
	}
}

func TestSetRegion(t *testing.T) {
	e := createTestEmulator(t)
	e.SetRegion(RegionPAL)
	if e.GetRegion() != RegionPAL {
		t.Error("region not updated")
	}
	timing := e.GetTiming()
	if timing.FPS != 50 || timing.Scanlines != 312 {
		t.Errorf("unexpected PAL timing %+v", timing)
	}
}
