package cpu

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/retroenv/retrogolib/assert"

	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/bus"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/display"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/keypad"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/timer"
)

type rig struct {
	cpu  *CPU
	disp *display.Display
	tm   *timer.Timers
	keys *keypad.Keypad
	log  *bytes.Buffer
}

func newRig(t *testing.T, program ...uint16) *rig {
	t.Helper()
	code := make([]byte, 0, len(program)*2)
	for _, op := range program {
		code = append(code, byte(op>>8), byte(op))
	}
	b := bus.New()
	if err := b.Load(code); err != nil {
		t.Fatalf("load: %v", err)
	}
	r := &rig{disp: display.New(), tm: &timer.Timers{}, keys: keypad.New(), log: &bytes.Buffer{}}
	r.cpu = New(b, r.disp, r.tm, r.keys, 1)
	r.cpu.Logger = log.New(r.log, "", 0)
	return r
}

func (r *rig) step(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := r.cpu.Step(); err != nil {
			t.Fatalf("step %d at %03X: %v", i, r.cpu.PC, err)
		}
	}
}

func TestDecode(t *testing.T) {
	in := Decode(0xD12F)
	assert.Equal(t, byte(0x1), in.X)
	assert.Equal(t, byte(0x2), in.Y)
	assert.Equal(t, byte(0xF), in.N)
	assert.Equal(t, byte(0x2F), in.KK)
	assert.Equal(t, uint16(0x12F), in.NNN)
}

func TestFetchAdvancesPC(t *testing.T) {
	r := newRig(t, 0x600A)
	r.step(t, 1)
	if r.cpu.PC != 0x202 {
		t.Fatalf("PC got %03x want 202", r.cpu.PC)
	}
	if r.cpu.V[0] != 0x0A {
		t.Fatalf("V0 got %02x want 0a", r.cpu.V[0])
	}
}

func TestDrawFontGlyph(t *testing.T) {
	// LD V0, 0A; LD F, V0; DRW V0, V0, 5
	r := newRig(t, 0x600A, 0xF029, 0xD005)
	r.step(t, 3)

	assert.Equal(t, bus.FontAddr(0xA), r.cpu.I)
	assert.Equal(t, byte(0), r.cpu.V[0xF])

	// glyph A rows: F0 90 F0 90 90, drawn at (10,10)
	f := r.disp.Snapshot()
	want := []byte{0xF0, 0x90, 0xF0, 0x90, 0x90}
	for row, bits := range want {
		for col := 0; col < 8; col++ {
			on := bits&(0x80>>col) != 0
			if f.Lit(10+col, 10+row) != on {
				t.Fatalf("pixel (%d,%d) got %v want %v", 10+col, 10+row, !on, on)
			}
		}
	}
	assert.Equal(t, 14, f.Count())

	// drawing again erases and reports collision
	r.cpu.PC = 0x204
	r.step(t, 1)
	assert.Equal(t, byte(1), r.cpu.V[0xF])
	f = r.disp.Snapshot()
	assert.Equal(t, 0, f.Count())
}

func TestDrawZeroGlyphAtOrigin(t *testing.T) {
	// LD V0, 00; LD F, V0; DRW V0, V1, 5
	r := newRig(t, 0x6000, 0xF029, 0xD015)
	r.step(t, 3)
	assert.Equal(t, uint16(0x000), r.cpu.I)
	assert.Equal(t, byte(0), r.cpu.V[0xF])
	f := r.disp.Snapshot()
	// glyph 0 is F0 90 90 90 F0
	assert.Equal(t, 14, f.Count())
	assert.Equal(t, true, f.Lit(0, 0))
	assert.Equal(t, false, f.Lit(1, 1))
	assert.Equal(t, true, f.Lit(3, 4))
}

func TestCallAndReturn(t *testing.T) {
	// 200: CALL 300 ... 300: RET
	r := newRig(t, 0x2300)
	if err := r.cpu.Bus().Write(0x300, 0x00); err != nil {
		t.Fatal(err)
	}
	if err := r.cpu.Bus().Write(0x301, 0xEE); err != nil {
		t.Fatal(err)
	}

	r.step(t, 1)
	assert.Equal(t, uint16(0x300), r.cpu.PC)
	assert.Equal(t, byte(1), r.cpu.SP)
	assert.Equal(t, uint16(0x202), r.cpu.Stack[0])

	r.step(t, 1)
	assert.Equal(t, uint16(0x202), r.cpu.PC)
	assert.Equal(t, byte(0), r.cpu.SP)
}

func TestStackOverflow(t *testing.T) {
	// 200: CALL 200 recurses forever
	r := newRig(t, 0x2200)
	r.step(t, StackSize)

	err := r.cpu.Step()
	if !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("got %v want stack overflow", err)
	}
	var fault *Fault
	if !errors.As(err, &fault) {
		t.Fatalf("error %T is not a *Fault", err)
	}
	assert.Equal(t, uint16(0x200), fault.PC)
	assert.Equal(t, uint16(0x2200), fault.Opcode)
	assert.Equal(t, uint16(0x200), r.cpu.PC)
	assert.Equal(t, byte(StackSize), r.cpu.SP)
}

func TestStackUnderflow(t *testing.T) {
	r := newRig(t, 0x00EE)
	err := r.cpu.Step()
	if !errors.Is(err, ErrStackUnderflow) {
		t.Fatalf("got %v want stack underflow", err)
	}
	assert.Equal(t, uint16(0x200), r.cpu.PC)
}

func TestSkips(t *testing.T) {
	tests := []struct {
		name string
		op   uint16
		v0   byte
		v1   byte
		skip bool
	}{
		{"SE imm equal", 0x3012, 0x12, 0, true},
		{"SE imm differ", 0x3012, 0x13, 0, false},
		{"SNE imm equal", 0x4012, 0x12, 0, false},
		{"SNE imm differ", 0x4012, 0x13, 0, true},
		{"SE reg equal", 0x5010, 7, 7, true},
		{"SE reg differ", 0x5010, 7, 8, false},
		{"SNE reg equal", 0x9010, 7, 7, false},
		{"SNE reg differ", 0x9010, 7, 8, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t, tt.op)
			r.cpu.V[0], r.cpu.V[1] = tt.v0, tt.v1
			r.step(t, 1)
			want := uint16(0x202)
			if tt.skip {
				want = 0x204
			}
			assert.Equal(t, want, r.cpu.PC)
		})
	}
}

func TestAddProperty(t *testing.T) {
	r := newRig(t, 0x8014)
	for a := 0; a < 256; a++ {
		for b := 0; b < 256; b++ {
			r.cpu.PC = 0x200
			r.cpu.V[0], r.cpu.V[1] = byte(a), byte(b)
			r.step(t, 1)
			if r.cpu.V[0] != byte(a+b) {
				t.Fatalf("%d+%d got %d", a, b, r.cpu.V[0])
			}
			if (r.cpu.V[0xF] == 1) != (a+b > 255) {
				t.Fatalf("%d+%d carry got %d", a, b, r.cpu.V[0xF])
			}
		}
	}
}

func TestSubProperty(t *testing.T) {
	sub := newRig(t, 0x8015)
	subn := newRig(t, 0x8017)
	for a := 0; a < 256; a++ {
		for b := 0; b < 256; b++ {
			sub.cpu.PC = 0x200
			sub.cpu.V[0], sub.cpu.V[1] = byte(a), byte(b)
			sub.step(t, 1)
			if sub.cpu.V[0] != byte(a-b) {
				t.Fatalf("%d-%d got %d", a, b, sub.cpu.V[0])
			}
			if (sub.cpu.V[0xF] == 1) != (a > b) {
				t.Fatalf("%d-%d no-borrow got %d", a, b, sub.cpu.V[0xF])
			}

			subn.cpu.PC = 0x200
			subn.cpu.V[0], subn.cpu.V[1] = byte(a), byte(b)
			subn.step(t, 1)
			if subn.cpu.V[0] != byte(b-a) {
				t.Fatalf("%d-%d (SUBN) got %d", b, a, subn.cpu.V[0])
			}
			if (subn.cpu.V[0xF] == 1) != (b >= a) {
				t.Fatalf("%d-%d (SUBN) no-borrow got %d", b, a, subn.cpu.V[0xF])
			}
		}
	}
}

func TestLogicAndShifts(t *testing.T) {
	tests := []struct {
		op    uint16
		v0    byte
		v1    byte
		want  byte
		flag  byte
		flags bool
	}{
		{0x8010, 0x00, 0x5A, 0x5A, 0, false},
		{0x8011, 0xF0, 0x0F, 0xFF, 0, false},
		{0x8012, 0xF3, 0x3F, 0x33, 0, false},
		{0x8013, 0xFF, 0x0F, 0xF0, 0, false},
		{0x8016, 0x05, 0x00, 0x02, 1, true},
		{0x8016, 0x04, 0x00, 0x02, 0, true},
		{0x801E, 0x81, 0x00, 0x02, 1, true},
		{0x801E, 0x41, 0x00, 0x82, 0, true},
	}
	for _, tt := range tests {
		r := newRig(t, tt.op)
		r.cpu.V[0], r.cpu.V[1] = tt.v0, tt.v1
		r.cpu.V[0xF] = 0xAA
		r.step(t, 1)
		if r.cpu.V[0] != tt.want {
			t.Fatalf("%04X: V0 got %02x want %02x", tt.op, r.cpu.V[0], tt.want)
		}
		if tt.flags && r.cpu.V[0xF] != tt.flag {
			t.Fatalf("%04X: VF got %02x want %02x", tt.op, r.cpu.V[0xF], tt.flag)
		}
		if !tt.flags && r.cpu.V[0xF] != 0xAA {
			t.Fatalf("%04X: VF changed to %02x", tt.op, r.cpu.V[0xF])
		}
	}
}

func TestFlagRegisterAsOperand(t *testing.T) {
	// ADD VF, V1: the flag write is overwritten by the sum
	r := newRig(t, 0x8F14)
	r.cpu.V[0xF], r.cpu.V[1] = 0xF0, 0x20
	r.step(t, 1)
	assert.Equal(t, byte(0x10), r.cpu.V[0xF])
}

func TestImmediateAddWrapsWithoutFlag(t *testing.T) {
	r := newRig(t, 0x70FF)
	r.cpu.V[0] = 0x02
	r.step(t, 1)
	assert.Equal(t, byte(0x01), r.cpu.V[0])
	assert.Equal(t, byte(0), r.cpu.V[0xF])
}

func TestJumps(t *testing.T) {
	r := newRig(t, 0x1456)
	r.step(t, 1)
	assert.Equal(t, uint16(0x456), r.cpu.PC)

	r = newRig(t, 0xB300)
	r.cpu.V[0] = 0x10
	r.step(t, 1)
	assert.Equal(t, uint16(0x310), r.cpu.PC)
}

func TestRandomMasked(t *testing.T) {
	r := newRig(t, 0xC00F)
	for i := 0; i < 100; i++ {
		r.cpu.PC = 0x200
		r.step(t, 1)
		if r.cpu.V[0]&0xF0 != 0 {
			t.Fatalf("RND result %02x not masked by 0F", r.cpu.V[0])
		}
	}
}

func TestTimerLoads(t *testing.T) {
	// LD DT, V0; LD ST, V1; LD V2, DT
	r := newRig(t, 0xF015, 0xF118, 0xF207)
	r.cpu.V[0], r.cpu.V[1] = 30, 4
	r.step(t, 3)
	assert.Equal(t, byte(30), r.tm.Delay())
	assert.Equal(t, byte(4), r.tm.Sound())
	assert.Equal(t, byte(30), r.cpu.V[2])
}

func TestAddIndex(t *testing.T) {
	r := newRig(t, 0xF01E)
	r.cpu.I, r.cpu.V[0] = 0xFFE, 0x01
	r.step(t, 1)
	assert.Equal(t, uint16(0xFFF), r.cpu.I)
	assert.Equal(t, byte(0), r.cpu.V[0xF])

	r.cpu.PC = 0x200
	r.step(t, 1)
	assert.Equal(t, uint16(0x1000), r.cpu.I)
	assert.Equal(t, byte(1), r.cpu.V[0xF])
}

func TestFontUsesLowNibble(t *testing.T) {
	r := newRig(t, 0xF029)
	r.cpu.V[0] = 0x1B
	r.step(t, 1)
	assert.Equal(t, bus.FontAddr(0xB), r.cpu.I)
}

func TestBCD(t *testing.T) {
	r := newRig(t, 0xF033)
	r.cpu.V[0], r.cpu.I = 254, 0x300
	r.step(t, 1)
	digits, err := r.cpu.Bus().Slice(0x300, 3)
	assert.NoError(t, err)
	if !bytes.Equal(digits, []byte{2, 5, 4}) {
		t.Fatalf("BCD got %v want [2 5 4]", digits)
	}
	assert.Equal(t, uint16(0x300), r.cpu.I)
}

func TestStoreLoadRoundTrip(t *testing.T) {
	for x := 0; x < 16; x++ {
		store := 0xF055 | uint16(x)<<8
		load := 0xF065 | uint16(x)<<8
		r := newRig(t, store, 0xA400, load)
		r.cpu.I = 0x400
		var want [16]byte
		for i := range r.cpu.V {
			r.cpu.V[i] = byte(0x10 + i)
			want[i] = r.cpu.V[i]
		}

		r.step(t, 1)
		assert.Equal(t, uint16(0x400+x+1), r.cpu.I)

		r.cpu.V = [16]byte{}
		r.step(t, 2) // LD I, 400; LD Vx, [I]
		assert.Equal(t, uint16(0x400+x+1), r.cpu.I)
		for i := 0; i <= x; i++ {
			if r.cpu.V[i] != want[i] {
				t.Fatalf("x=%d: V%X got %02x want %02x", x, i, r.cpu.V[i], want[i])
			}
		}
		for i := x + 1; i < 16; i++ {
			if r.cpu.V[i] != 0 {
				t.Fatalf("x=%d: V%X loaded beyond x", x, i)
			}
		}
	}
}

func TestStoreIntoReservedFaults(t *testing.T) {
	r := newRig(t, 0xF255)
	r.cpu.I = 0x1FF
	r.cpu.V[0], r.cpu.V[1], r.cpu.V[2] = 1, 2, 3

	err := r.cpu.Step()
	var access *bus.AccessError
	if !errors.As(err, &access) {
		t.Fatalf("got %v want access error", err)
	}
	assert.Equal(t, uint16(0x1FF), r.cpu.I)
	assert.Equal(t, uint16(0x200), r.cpu.PC)
	b, _ := r.cpu.Bus().Read(0x200)
	assert.Equal(t, byte(0xF2), b)
}

func TestDrawOutOfRangeFaults(t *testing.T) {
	r := newRig(t, 0xD00F)
	r.cpu.I = 0xFF8
	r.cpu.V[0xF] = 0x55
	err := r.cpu.Step()
	var fault *Fault
	if !errors.As(err, &fault) {
		t.Fatalf("got %v want fault", err)
	}
	assert.Equal(t, byte(0x55), r.cpu.V[0xF])
	assert.Equal(t, uint64(0), r.disp.Version())
}

func TestFetchPastEndFaults(t *testing.T) {
	r := newRig(t)
	r.cpu.PC = 0xFFF
	err := r.cpu.Step()
	var access *bus.AccessError
	if !errors.As(err, &access) {
		t.Fatalf("got %v want access error", err)
	}
}

func TestUnknownOpcodeContinues(t *testing.T) {
	r := newRig(t, 0x5121, 0x0123, 0xE1A2, 0xF0FF, 0x8128)
	r.step(t, 5)
	assert.Equal(t, uint16(0x20A), r.cpu.PC)

	out := r.log.String()
	for _, want := range []string{
		"unknown opcode 5121 at 200",
		"unknown opcode 0123 at 202",
		"unknown opcode E1A2 at 204",
		"unknown opcode F0FF at 206",
		"unknown opcode 8128 at 208",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("log missing %q:\n%s", want, out)
		}
	}
}

func TestClearScreen(t *testing.T) {
	r := newRig(t, 0x00E0)
	r.disp.Draw([]byte{0xFF}, 0, 0)
	r.step(t, 1)
	f := r.disp.Snapshot()
	assert.Equal(t, 0, f.Count())
}

func TestSkipOnKey(t *testing.T) {
	r := newRig(t, 0xE09E)
	r.cpu.V[0] = 0x7
	r.step(t, 1)
	assert.Equal(t, uint16(0x202), r.cpu.PC)

	r.keys.Press(0x7)
	r.cpu.PC = 0x200
	r.step(t, 1)
	assert.Equal(t, uint16(0x204), r.cpu.PC)

	r = newRig(t, 0xE0A1)
	r.cpu.V[0] = 0x7
	r.step(t, 1)
	assert.Equal(t, uint16(0x204), r.cpu.PC)
}

func TestWaitForKey(t *testing.T) {
	r := newRig(t, 0xF30A)
	r.keys.Press(0x4) // held before the wait, does not count

	err := r.cpu.Step()
	if !errors.Is(err, ErrAwaitKey) {
		t.Fatalf("got %v want ErrAwaitKey", err)
	}
	assert.Equal(t, uint16(0x200), r.cpu.PC)
	assert.Equal(t, true, r.cpu.AwaitingKey())

	err = r.cpu.Step()
	if !errors.Is(err, ErrAwaitKey) {
		t.Fatalf("retry got %v want ErrAwaitKey", err)
	}

	r.keys.Press(0xB)
	r.step(t, 1)
	assert.Equal(t, byte(0xB), r.cpu.V[3])
	assert.Equal(t, uint16(0x202), r.cpu.PC)
	assert.Equal(t, false, r.cpu.AwaitingKey())
}

func TestResetClearsState(t *testing.T) {
	r := newRig(t, 0x2300, 0xF00A)
	r.step(t, 1)
	r.cpu.V[5], r.cpu.I = 9, 0x321
	r.cpu.Reset()

	assert.Equal(t, uint16(0x200), r.cpu.PC)
	assert.Equal(t, byte(0), r.cpu.SP)
	assert.Equal(t, byte(0), r.cpu.V[5])
	assert.Equal(t, uint16(0), r.cpu.I)
	assert.Equal(t, false, r.cpu.AwaitingKey())
}

func TestStateRoundTrip(t *testing.T) {
	r := newRig(t, 0x2300)
	r.step(t, 1)
	r.cpu.V[3] = 0x42
	s := r.cpu.State()

	r.cpu.Reset()
	assert.NoError(t, r.cpu.SetState(s))
	assert.Equal(t, uint16(0x300), r.cpu.PC)
	assert.Equal(t, byte(1), r.cpu.SP)
	assert.Equal(t, byte(0x42), r.cpu.V[3])

	s.SP = StackSize + 1
	if err := r.cpu.SetState(s); err == nil {
		t.Fatalf("SetState accepted SP=%d", s.SP)
	}
}

func TestTraceLogsMnemonic(t *testing.T) {
	r := newRig(t, 0x600A)
	r.cpu.Trace = true
	r.step(t, 1)
	if !strings.Contains(r.log.String(), "200: [600A] LD V0, $0A") {
		t.Fatalf("trace got %q", r.log.String())
	}
}
