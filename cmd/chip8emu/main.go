package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/apu"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/emu"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/statsview"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/termui"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/timer"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/ui"
)

type CLIFlags struct {
	ROMPath  string
	Scale    int
	Title    string
	Trace    bool
	IPS      int
	Seed     uint64
	ROMsDir  string
	StateDir string
	Mute     bool

	Term      bool   // render in the terminal instead of a window
	StatsView string // serve runtime stats on this address

	// headless
	Headless bool
	Frames   int
	PNGOut   string
	WAVOut   string
	Expect   string // expected frame CRC32 hex (e.g., "1a2b3c4d")
}

func parseFlags() CLIFlags {
	var f CLIFlags
	flag.StringVar(&f.ROMPath, "rom", "", "path to program (.ch8)")
	flag.IntVar(&f.Scale, "scale", 10, "window scale")
	flag.StringVar(&f.Title, "title", "chip8emu", "window title")
	flag.BoolVar(&f.Trace, "trace", false, "CPU trace log")
	flag.IntVar(&f.IPS, "ips", emu.DefaultIPS, "instructions per second")
	flag.Uint64Var(&f.Seed, "seed", 0, "RND seed (0 = clock)")
	flag.StringVar(&f.ROMsDir, "roms", "roms", "directory listed by the ROM menu")
	flag.StringVar(&f.StateDir, "states", "", "directory for save-state slots (default: current directory)")
	flag.BoolVar(&f.Mute, "mute", false, "start muted")

	flag.BoolVar(&f.Term, "term", false, "render in the terminal")
	flag.StringVar(&f.StatsView, "statsview", "", "serve runtime stats on address (e.g. "+statsview.DefaultAddress+")")

	// headless options
	flag.BoolVar(&f.Headless, "headless", false, "run without a window")
	flag.IntVar(&f.Frames, "frames", 300, "frames to run in headless mode")
	flag.StringVar(&f.PNGOut, "outpng", "", "write last frame to PNG at path")
	flag.StringVar(&f.WAVOut, "wavout", "", "record the buzzer to a WAV file at path")
	flag.StringVar(&f.Expect, "expect", "", "assert frame CRC32 (hex)")
	flag.Parse()
	return f
}

func runHeadless(m *emu.Machine, f CLIFlags) error {
	frames := max(f.Frames, 1)

	var rec *apu.Recorder
	if f.WAVOut != "" {
		out, err := os.Create(f.WAVOut)
		if err != nil {
			return fmt.Errorf("create WAV: %w", err)
		}
		defer out.Close()
		rec = apu.NewRecorder(out, apu.DefaultSampleRate, timer.Hz)
	}

	start := time.Now()
	ran := 0
	for ; ran < frames; ran++ {
		beeping, err := m.StepFrame()
		if err != nil {
			return err
		}
		if rec != nil {
			if err := rec.Frame(beeping); err != nil {
				return fmt.Errorf("record WAV: %w", err)
			}
		}
	}
	dur := time.Since(start)

	fb := m.DisplaySnapshot()
	crc := fb.CRC32()
	fps := float64(ran) / max(dur.Seconds(), 1e-9)

	log.Printf("headless: frames=%d elapsed=%s fps=%.2f fb_crc32=%08x",
		ran, dur.Truncate(time.Millisecond), fps, crc)

	if rec != nil {
		if err := rec.Close(); err != nil {
			return fmt.Errorf("close WAV: %w", err)
		}
		log.Printf("wrote %s", f.WAVOut)
	}

	if f.PNGOut != "" {
		out, err := os.Create(f.PNGOut)
		if err != nil {
			return fmt.Errorf("write PNG: %w", err)
		}
		err = fb.WritePNG(out, f.Scale)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("write PNG: %w", err)
		}
		log.Printf("wrote %s", f.PNGOut)
	}

	if f.Expect != "" {
		// normalize expected hex (allow with/without 0x, upper/lowercase)
		want := strings.TrimPrefix(strings.ToLower(f.Expect), "0x")
		got := fmt.Sprintf("%08x", crc)
		if got != want {
			return fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
		}
	}
	return nil
}

func runTerminal(m *emu.Machine) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err := termui.Run(ctx, m, termui.Options{})
	if errors.Is(err, termui.ErrNotTerminal) {
		return fmt.Errorf("%w (use -headless)", err)
	}
	return err
}

func main() {
	f := parseFlags()

	if f.StatsView != "" {
		statsview.Launch(f.StatsView, os.Stderr)
	}

	m := emu.New(emu.Config{
		IPS:   f.IPS,
		Trace: f.Trace,
		Seed:  f.Seed,
	})
	if f.ROMPath != "" {
		// prefer absolute path for state placement consistency
		path := f.ROMPath
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if err := m.LoadROMFromFile(path); err != nil {
			log.Fatalf("load program: %v", err)
		}
	}

	switch {
	case f.Headless:
		if f.ROMPath == "" {
			log.Fatal("-headless needs -rom")
		}
		if err := runHeadless(m, f); err != nil {
			log.Fatal(err)
		}
	case f.Term:
		if f.ROMPath == "" {
			log.Fatal("-term needs -rom")
		}
		if err := runTerminal(m); err != nil {
			log.Fatal(err)
		}
	default:
		app := ui.NewApp(ui.Config{
			Title:    f.Title,
			Scale:    f.Scale,
			Mute:     f.Mute,
			ROMsDir:  f.ROMsDir,
			StateDir: f.StateDir,
		}, m)
		if err := app.Run(); err != nil {
			log.Fatal(err)
		}
	}
}
