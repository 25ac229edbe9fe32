package main

import (
	libretro "github.com/user-none/eblitui/libretro"

	"github.com/user-none/espc/adapter"
)

// Each pad button mutes one voice while held.
func init() {
	libretro.RegisterFactory(&adapter.Factory{}, []libretro.RetropadMapping{
		{RetroID: libretro.JoypadY, BitID: 4},       // Voice 1
		{RetroID: libretro.JoypadB, BitID: 5},       // Voice 2
		{RetroID: libretro.JoypadA, BitID: 6},       // Voice 3
		{RetroID: libretro.JoypadStart, BitID: 7},   // Voice 4
		{RetroID: libretro.JoypadX, BitID: 8},       // Voice 5
		{RetroID: libretro.JoypadL, BitID: 9},       // Voice 6
		{RetroID: libretro.JoypadR, BitID: 10},      // Voice 7
		{RetroID: libretro.JoypadSelect, BitID: 11}, // Voice 8
	})
}

func main() {}
