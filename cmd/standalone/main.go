//go:build !libretro && !ios

package main

import (
	"flag"
	"log"

	"github.com/user-none/eblitui/standalone"

	"github.com/user-none/espc/adapter"
	"github.com/user-none/espc/emu"
)

func main() {
	spcPath := flag.String("spc", "", "path to SPC file (opens UI if not provided)")
	regionFlag := flag.String("region", "ntsc", "frame rate: ntsc or pal")
	sinc := flag.Bool("sinc", false, "use sinc interpolation")
	echo := flag.Bool("echo", true, "allow echo")
	flag.Parse()

	factory := &adapter.Factory{}

	if *spcPath != "" {
		options := map[string]string{
			emu.OptionSinc: boolOption(*sinc),
			emu.OptionEcho: boolOption(*echo),
		}
		if err := standalone.RunDirect(factory, *spcPath, *regionFlag, options); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := standalone.Run(factory); err != nil {
		log.Fatal(err)
	}
}

func boolOption(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
