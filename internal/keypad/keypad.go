// Package keypad models the 16-key hexadecimal keypad.
//
// Frontends report key state with Press/Release/SetState. The CPU queries
// IsPressed for SKP/SKNP and uses Arm/TakePress to implement LD Vx, K: a
// press only satisfies the wait if it happened after Arm was called.
package keypad

import (
	"context"
	"sync"
)

// Keys is the number of keys on the keypad.
const Keys = 16

type Keypad struct {
	mu    sync.Mutex
	state uint16

	// latch of the first press seen since Arm
	armed   bool
	latched bool
	latch   byte

	// closed and replaced whenever a press is latched
	notify chan struct{}
}

func New() *Keypad {
	return &Keypad{notify: make(chan struct{})}
}

// IsPressed reports whether key (low nibble) is currently held.
func (k *Keypad) IsPressed(key byte) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.state&(1<<(key&0x0F)) != 0
}

// State returns the key bitmask, bit n set when key n is held.
func (k *Keypad) State() uint16 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.state
}

func (k *Keypad) Press(key byte) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.setLocked(k.state | 1<<(key&0x0F))
}

func (k *Keypad) Release(key byte) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.setLocked(k.state &^ (1 << (key & 0x0F)))
}

// SetState replaces the whole key bitmask. Keys going from released to
// held count as presses.
func (k *Keypad) SetState(mask uint16) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.setLocked(mask)
}

func (k *Keypad) setLocked(mask uint16) {
	pressed := mask &^ k.state
	k.state = mask
	if pressed == 0 || !k.armed || k.latched {
		return
	}
	for key := byte(0); key < Keys; key++ {
		if pressed&(1<<key) != 0 {
			k.latch = key
			k.latched = true
			close(k.notify)
			k.notify = make(chan struct{})
			return
		}
	}
}

// Arm starts waiting for a fresh key press, discarding any earlier latch.
func (k *Keypad) Arm() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.armed = true
	k.latched = false
}

// TakePress returns the key latched since Arm and disarms the keypad.
func (k *Keypad) TakePress() (byte, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.latched {
		return 0, false
	}
	key := k.latch
	k.armed = false
	k.latched = false
	return key, true
}

// WaitPress blocks until a press has been latched or ctx is done. It does
// not consume the press.
func (k *Keypad) WaitPress(ctx context.Context) error {
	for {
		k.mu.Lock()
		if k.latched {
			k.mu.Unlock()
			return nil
		}
		ch := k.notify
		k.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// AwaitKey blocks until the next key press and returns the key.
func (k *Keypad) AwaitKey(ctx context.Context) (byte, error) {
	k.Arm()
	for {
		if err := k.WaitPress(ctx); err != nil {
			return 0, err
		}
		if key, ok := k.TakePress(); ok {
			return key, nil
		}
	}
}

// Reset releases every key and drops any pending wait.
func (k *Keypad) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.state = 0
	k.armed = false
	k.latched = false
}
