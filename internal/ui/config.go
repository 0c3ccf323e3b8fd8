package ui

import (
	"image/color"

	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/display"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/keypad"
)

// Config contains window/input/audio related settings.
type Config struct {
	Title    string // window title
	Scale    int    // integer upscaling factor
	On, Off  color.RGBA
	Volume   float64 // buzzer level 0..1
	Mute     bool
	ROMsDir  string // directory to browse for programs
	StateDir string // where save-state slots live
	// KeyMap maps lower-case keyboard characters to keypad keys.
	KeyMap map[rune]byte
}

// Defaults fills missing fields with reasonable defaults.
func (c *Config) Defaults() {
	if c.Title == "" {
		c.Title = "chip8emu"
	}
	if c.Scale <= 0 {
		c.Scale = 10
	}
	if c.On == (color.RGBA{}) {
		c.On = display.On
	}
	if c.Off == (color.RGBA{}) {
		c.Off = display.Off
	}
	if c.Volume <= 0 {
		c.Volume = 0.25
	}
	if c.ROMsDir == "" {
		c.ROMsDir = "roms"
	}
	if c.StateDir == "" {
		c.StateDir = "."
	}
	if c.KeyMap == nil {
		c.KeyMap = keypad.QWERTY
	}
}
