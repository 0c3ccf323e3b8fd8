// Package timer holds the CHIP-8 delay and sound timers.
//
// Both count down toward zero at a fixed rate (60 Hz on real hardware).
// The CPU loads them through SetDelay/SetSound while the timer task calls
// Tick; the fields are atomic so a store racing a decrement is never lost
// or torn.
package timer

import (
	"sync/atomic"
	"time"
)

// Hz is the standard timer rate.
const Hz = 60

// Period is the time between two ticks at Hz.
const Period = time.Second / Hz

type Timers struct {
	delay atomic.Uint32
	sound atomic.Uint32
}

func (t *Timers) Delay() byte { return byte(t.delay.Load()) }
func (t *Timers) Sound() byte { return byte(t.sound.Load()) }

func (t *Timers) SetDelay(v byte) { t.delay.Store(uint32(v)) }
func (t *Timers) SetSound(v byte) { t.sound.Store(uint32(v)) }

// Tick decrements both timers toward zero and reports whether the sound
// timer was still running after the tick.
func (t *Timers) Tick() (beeping bool) {
	decrement(&t.delay)
	return decrement(&t.sound) > 0
}

// Reset stops both timers.
func (t *Timers) Reset() {
	t.delay.Store(0)
	t.sound.Store(0)
}

// decrement lowers v by one unless it is already zero and returns the new
// value.
func decrement(v *atomic.Uint32) uint32 {
	for {
		cur := v.Load()
		if cur == 0 {
			return 0
		}
		if v.CompareAndSwap(cur, cur-1) {
			return cur - 1
		}
	}
}
