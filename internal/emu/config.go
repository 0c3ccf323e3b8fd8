package emu

import (
	"log"

	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/timer"
)

// Config contains settings that affect emulation behavior.
type Config struct {
	IPS     int         // instructions per second ceiling
	TimerHz int         // timer/refresh rate; also the dispatcher's batch rate
	Trace   bool        // log CPU instructions
	Seed    uint64      // RND seed, 0 = from clock
	Logger  *log.Logger // nil = log.Default()
}

// DefaultIPS is a speed most programs were written for.
const DefaultIPS = 700

func Defaults() Config {
	return Config{
		IPS:     DefaultIPS,
		TimerHz: timer.Hz,
	}
}

// normalize fills zero fields with defaults.
func (c Config) normalize() Config {
	d := Defaults()
	if c.IPS <= 0 {
		c.IPS = d.IPS
	}
	if c.TimerHz <= 0 {
		c.TimerHz = d.TimerHz
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	return c
}
