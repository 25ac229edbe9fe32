// Command spctool inspects and renders SPC files.
//
//	spctool info song.spc
//	spctool render [-o out.wav] [-seconds n] [-sinc] [-noecho] [-mute mask] [-script s.lua] song.spc
package main

import (
	"fmt"
	"log"
	"os"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: spctool info <file.spc>")
	fmt.Fprintln(os.Stderr, "       spctool render [flags] <file.spc>")
	os.Exit(2)
}

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
	}

	var err error
	switch os.Args[1] {
	case "info":
		err = runInfo(os.Args[2:])
	case "render":
		err = runRender(os.Args[2:])
	default:
		usage()
	}
	if err != nil {
		log.Fatal(err)
	}
}
