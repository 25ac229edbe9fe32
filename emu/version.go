package emu

// Core identity reported to front-ends.
const (
	Name    = "espc"
	Version = "0.1.0"
)
