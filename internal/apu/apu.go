// Package apu generates the CHIP-8 buzzer tone.
//
// The hardware has a single fixed-pitch tone that sounds while the sound
// timer is non-zero. Buzzer renders it as a square wave and exposes it as
// an io.Reader of 16-bit little-endian stereo PCM, the format ebiten's
// audio player consumes.
package apu

import (
	"encoding/binary"
	"math"
	"sync/atomic"
)

const (
	DefaultSampleRate = 48000
	DefaultFreq       = 440.0
	DefaultVolume     = 0.25
)

type Buzzer struct {
	sampleRate int
	freq       float64
	amp        atomic.Int32 // peak amplitude, 0 = silent
	on         atomic.Bool
	phase      float64 // position in the current period, 0..1
}

func New(sampleRate int) *Buzzer {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	b := &Buzzer{sampleRate: sampleRate, freq: DefaultFreq}
	b.SetVolume(DefaultVolume)
	return b
}

func (b *Buzzer) SampleRate() int { return b.sampleRate }

// SetOn gates the tone. Safe to call from the timer task.
func (b *Buzzer) SetOn(on bool) { b.on.Store(on) }

func (b *Buzzer) On() bool { return b.on.Load() }

// SetVolume sets the output level in [0,1].
func (b *Buzzer) SetVolume(v float64) {
	v = math.Max(0, math.Min(1, v))
	b.amp.Store(int32(v * math.MaxInt16))
}

// Samples fills out with mono samples and advances the oscillator. The
// phase keeps running while gated off so the tone does not click.
func (b *Buzzer) Samples(out []int16) {
	amp := int16(b.amp.Load())
	if !b.on.Load() {
		amp = 0
	}
	step := b.freq / float64(b.sampleRate)
	for i := range out {
		if b.phase < 0.5 {
			out[i] = amp
		} else {
			out[i] = -amp
		}
		b.phase += step
		if b.phase >= 1 {
			b.phase--
		}
	}
}

// Read implements io.Reader, producing interleaved stereo frames of 4
// bytes. Trailing bytes that do not make a whole frame are zeroed.
func (b *Buzzer) Read(p []byte) (int, error) {
	frames := len(p) / 4
	if frames == 0 {
		clear(p)
		return len(p), nil
	}
	mono := make([]int16, frames)
	b.Samples(mono)
	for i, s := range mono {
		binary.LittleEndian.PutUint16(p[i*4:], uint16(s))
		binary.LittleEndian.PutUint16(p[i*4+2:], uint16(s))
	}
	clear(p[frames*4:])
	return len(p), nil
}
