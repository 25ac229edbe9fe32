package main

import (
	"flag"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"

	emubridge "github.com/user-none/espc/bridge/ebiten"
	"github.com/user-none/espc/cli"
	"github.com/user-none/espc/driver"
	"github.com/user-none/espc/emu"
)

func main() {
	spcPath := flag.String("spc", "", "path to SPC file (required)")
	regionFlag := flag.String("region", "ntsc", "frame rate: ntsc or pal")
	interp := flag.String("interp", "gaussian", "interpolation: gaussian or sinc")
	script := flag.String("script", "", "Lua script driving the DSP registers")
	mute := flag.String("mute", "0", "voice mute mask, e.g. 0x81 mutes voices 1 and 8")
	noEcho := flag.Bool("noecho", false, "disable the echo unit")
	loop := flag.Bool("loop", false, "restart the song when it ends")
	flag.Parse()

	if *spcPath == "" {
		log.Fatal("SPC path is required. Usage: espc -spc <path>")
	}

	data, err := os.ReadFile(*spcPath)
	if err != nil {
		log.Fatalf("Failed to load SPC: %v", err)
	}

	var region emu.Region
	switch strings.ToLower(*regionFlag) {
	case "ntsc":
		region = emu.RegionNTSC
	case "pal":
		region = emu.RegionPAL
	default:
		log.Fatalf("Invalid region: %s (use ntsc or pal)", *regionFlag)
	}

	var sinc bool
	switch strings.ToLower(*interp) {
	case "gaussian", "gauss":
	case "sinc":
		sinc = true
	default:
		log.Fatalf("Invalid interpolation: %s (use gaussian or sinc)", *interp)
	}

	muteMask, err := strconv.ParseUint(*mute, 0, 8)
	if err != nil {
		log.Fatalf("Invalid mute mask: %s", *mute)
	}

	e, err := emubridge.NewEmulator(data, region)
	if err != nil {
		log.Fatalf("Failed to initialize emulator: %v", err)
	}

	if *script != "" {
		drv, err := driver.LoadLua(*script)
		if err != nil {
			log.Fatalf("Failed to load script: %v", err)
		}
		if err := e.SetDriver(drv); err != nil {
			log.Fatalf("Script init failed: %v", err)
		}
	}

	title := emu.Name
	if t := e.Title(); t != "" {
		title += " - " + t
	}

	ebiten.SetWindowSize(emu.ScreenWidth*3, emu.ScreenHeight*3)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(emu.ScreenWidth, emu.ScreenHeight, -1, -1)
	ebiten.SetTPS(60)

	runner := cli.NewRunner(e, cli.Options{
		Mute: uint8(muteMask),
		Sinc: sinc,
		Echo: !*noEcho,
		Loop: *loop,
	})
	defer runner.Close()
	defer e.Close()

	if err := ebiten.RunGame(runner); err != nil {
		log.Fatal(err)
	}
}
