package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/user-none/espc/dsp"
	"github.com/user-none/espc/emu"
)

// styles used by the info report. Plain styles are used when stdout is
// not a terminal.
type styles struct {
	heading lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	active  lipgloss.Style
	box     lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain.MarginBottom(1)}
	}
	return styles{
		heading: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(6)),
		label:   lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(4)),
		value:   lipgloss.NewStyle().Bold(true),
		active:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(2)),
		box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.ANSIColor(8)).
			Padding(0, 1),
	}
}

func runInfo(args []string) error {
	if len(args) != 1 {
		return errors.New("info: expected one SPC file")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	f, err := emu.ParseSPC(data)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	fd := int(os.Stdout.Fd())
	tty := term.IsTerminal(fd)
	width := 80
	if tty {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			width = w
		}
	}
	writeInfo(os.Stdout, f, newStyles(tty), width)
	return nil
}

// writeInfo prints tags, CPU registers, global DSP state and a voice table.
// The tag and register blocks sit side by side when width allows.
func writeInfo(w io.Writer, f *emu.SPCFile, st styles, width int) {
	tags := tagBlock(f, st)
	regs := globalBlock(f, st)
	if lipgloss.Width(tags)+lipgloss.Width(regs) <= width {
		fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, tags, regs))
	} else {
		fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, tags, regs))
	}
	fmt.Fprintln(w, st.box.Render(voiceTable(f, st)))
}

func field(st styles, name, value string) string {
	return st.label.Render(fmt.Sprintf("%-8s", name)) + " " + st.value.Render(value)
}

func tagBlock(f *emu.SPCFile, st styles) string {
	var b strings.Builder
	b.WriteString(st.heading.Render("Tags"))
	if !f.HasTags {
		b.WriteString("\n(none)")
		return st.box.Render(b.String())
	}
	t := f.Tags
	for _, row := range [][2]string{
		{"Song", t.Song},
		{"Game", t.Game},
		{"Artist", t.Artist},
		{"Dumper", t.Dumper},
		{"Comment", t.Comment},
		{"Length", fmt.Sprintf("%ds + %dms fade", t.Length, t.FadeMS)},
	} {
		b.WriteString("\n" + field(st, row[0], row[1]))
	}
	return st.box.Render(b.String())
}

func globalBlock(f *emu.SPCFile, st styles) string {
	r := &f.DSPRegs
	c := f.CPU
	var b strings.Builder
	b.WriteString(st.heading.Render("CPU / DSP"))
	for _, row := range [][2]string{
		{"PC", fmt.Sprintf("%04X  A %02X X %02X Y %02X", c.PC, c.A, c.X, c.Y)},
		{"PSW SP", fmt.Sprintf("%02X %02X", c.PSW, c.SP)},
		{"MVOL", fmt.Sprintf("%4d %4d", int8(r[dsp.RegMVolL]), int8(r[dsp.RegMVolR]))},
		{"EVOL", fmt.Sprintf("%4d %4d", int8(r[dsp.RegEVolL]), int8(r[dsp.RegEVolR]))},
		{"FLG", flagString(r[dsp.RegFLG])},
		{"DIR ESA", fmt.Sprintf("%04X %04X", int(r[dsp.RegDIR])<<8, int(r[dsp.RegESA])<<8)},
		{"EDL EFB", fmt.Sprintf("%dms %d", int(r[dsp.RegEDL]&0x0F)*16, int8(r[dsp.RegEFB]))},
		{"KON", fmt.Sprintf("%08b", r[dsp.RegKON])},
		{"PMON NON", fmt.Sprintf("%08b %08b", r[dsp.RegPMON], r[dsp.RegNON])},
		{"EON", fmt.Sprintf("%08b", r[dsp.RegEON])},
		{"FIR", firString(r)},
	} {
		b.WriteString("\n" + field(st, row[0], row[1]))
	}
	return st.box.Render(b.String())
}

func flagString(flg uint8) string {
	var parts []string
	if flg&0x80 != 0 {
		parts = append(parts, "reset")
	}
	if flg&0x40 != 0 {
		parts = append(parts, "mute")
	}
	if flg&0x20 != 0 {
		parts = append(parts, "no-echo-write")
	}
	parts = append(parts, fmt.Sprintf("noise %d", flg&0x1F))
	return fmt.Sprintf("%02X ", flg) + strings.Join(parts, ",")
}

func firString(r *[dsp.RegisterCount]byte) string {
	taps := make([]string, 8)
	for i := range taps {
		taps[i] = fmt.Sprint(int8(r[i*0x10+dsp.RegFIR]))
	}
	return strings.Join(taps, " ")
}

// voiceTable lists each voice's registers and its sample addresses from
// the source directory.
func voiceTable(f *emu.SPCFile, st styles) string {
	var b strings.Builder
	b.WriteString(st.heading.Render("V  VOLL VOLR PITCH SRC START LOOP ADSR GAIN ENVX"))
	dir := int(f.DSPRegs[dsp.RegDIR]) << 8
	for v := 0; v < dsp.VoiceCount; v++ {
		regs := f.DSPRegs[v*0x10 : v*0x10+0x10]
		srcn := int(regs[dsp.VoiceSrcN])
		entry := (dir + srcn*4) & 0xFFFF
		start := int(f.RAM[entry]) | int(f.RAM[(entry+1)&0xFFFF])<<8
		loop := int(f.RAM[(entry+2)&0xFFFF]) | int(f.RAM[(entry+3)&0xFFFF])<<8
		pitch := (int(regs[dsp.VoicePitchL]) | int(regs[dsp.VoicePitchH])<<8) & 0x3FFF

		line := fmt.Sprintf("%d %5d %4d  %04X  %02X %04X  %04X %02X%02X   %02X   %02X",
			v+1, int8(regs[dsp.VoiceVolL]), int8(regs[dsp.VoiceVolR]), pitch,
			srcn, start, loop, regs[dsp.VoiceADSR0], regs[dsp.VoiceADSR1],
			regs[dsp.VoiceGain], regs[dsp.VoiceEnvX])
		if f.DSPRegs[dsp.RegKON]&(1<<v) != 0 || regs[dsp.VoiceEnvX] != 0 {
			line = st.active.Render(line)
		}
		b.WriteString("\n" + line)
	}
	return b.String()
}
