// Package termui renders the display in an ANSI terminal and feeds the
// keypad from raw stdin.
//
// Terminals report key presses but not releases, so a pressed key is held
// for a short time and then released automatically.
package termui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/display"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/emu"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/keypad"
)

var ErrNotTerminal = errors.New("termui: stdin is not a terminal")

// HoldTime is how long a key stays pressed after its last key stroke.
const HoldTime = 100 * time.Millisecond

const (
	keyCtrlC = 0x03
	keyEsc   = 0x1B
)

type Options struct {
	In     *os.File
	Out    io.Writer
	KeyMap map[rune]byte
}

// Run starts m and renders it until ctx is done, the user presses Esc or
// Ctrl-C, or the program faults. The fault, if any, is returned.
func Run(ctx context.Context, m *emu.Machine, opts Options) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.KeyMap == nil {
		opts.KeyMap = keypad.QWERTY
	}
	fd := int(opts.In.Fd())
	if !term.IsTerminal(fd) {
		return ErrNotTerminal
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("termui: raw mode: %w", err)
	}
	defer term.Restore(fd, old)

	// hide cursor, clear; restore cursor on exit
	fmt.Fprint(opts.Out, "\x1b[?25l\x1b[2J")
	defer fmt.Fprint(opts.Out, "\x1b[?25h\r\n")

	if err := m.Start(ctx); err != nil {
		return err
	}
	defer m.Stop()

	// The read blocks; the goroutine is abandoned when Run returns.
	input := make(chan byte, 16)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := opts.In.Read(buf)
			if err != nil {
				close(input)
				return
			}
			if n == 1 {
				input <- buf[0]
			}
		}
	}()

	hold := newAutoRelease(HoldTime)
	t := time.NewTicker(time.Second / 60)
	defer t.Stop()
	var drawn uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-m.Done():
			f := m.DisplaySnapshot()
			fmt.Fprint(opts.Out, "\x1b[H"+Render(&f))
			return m.Err()
		case b, ok := <-input:
			if !ok || b == keyCtrlC || b == keyEsc {
				return nil
			}
			if key, ok := keypad.KeyFor(opts.KeyMap, rune(b)); ok {
				m.Keypad().Press(key)
				hold.press(key, time.Now())
			}
		case now := <-t.C:
			for _, key := range hold.expired(now) {
				m.Keypad().Release(key)
			}
			if v := m.DisplayVersion(); v != drawn {
				drawn = v
				f := m.DisplaySnapshot()
				fmt.Fprint(opts.Out, "\x1b[H"+Render(&f))
			}
		}
	}
}

// Render draws f with half-block characters, two pixel rows per text row.
// Lines end in CRLF since the terminal is in raw mode.
func Render(f *display.Frame) string {
	var sb strings.Builder
	sb.Grow(display.Height / 2 * (display.Width*3 + 2))
	for y := 0; y < display.Height; y += 2 {
		for x := 0; x < display.Width; x++ {
			top, bottom := f.Lit(x, y), f.Lit(x, y+1)
			switch {
			case top && bottom:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bottom:
				sb.WriteRune('▄')
			default:
				sb.WriteByte(' ')
			}
		}
		sb.WriteString("\r\n")
	}
	return sb.String()
}

// autoRelease tracks when held keys should be released.
type autoRelease struct {
	hold  time.Duration
	until map[byte]time.Time
}

func newAutoRelease(hold time.Duration) *autoRelease {
	return &autoRelease{hold: hold, until: make(map[byte]time.Time)}
}

func (a *autoRelease) press(key byte, now time.Time) {
	a.until[key] = now.Add(a.hold)
}

// expired returns and forgets the keys whose hold time has passed.
func (a *autoRelease) expired(now time.Time) []byte {
	var out []byte
	for key := byte(0); key < keypad.Keys; key++ {
		if t, ok := a.until[key]; ok && !now.Before(t) {
			out = append(out, key)
			delete(a.until, key)
		}
	}
	return out
}
