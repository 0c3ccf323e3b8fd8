package cpu

import (
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/bus"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/disasm"
)

// StackSize is the number of return addresses the call stack can hold.
const StackSize = 16

var (
	ErrStackOverflow  = errors.New("cpu: stack overflow")
	ErrStackUnderflow = errors.New("cpu: stack underflow")

	// ErrAwaitKey is returned by Step while LD Vx, K is waiting for a key
	// press. PC is left on the instruction so the next Step retries it.
	// It is not a fault.
	ErrAwaitKey = errors.New("cpu: waiting for key press")

	errUnknownOpcode = errors.New("unknown opcode")
)

// Fault stops execution: the instruction at PC could not be completed and
// left no state behind.
type Fault struct {
	PC     uint16
	Opcode uint16
	Err    error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("cpu: fault at %03X (opcode %04X): %v", f.PC, f.Opcode, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// Screen is the display the CPU draws to.
type Screen interface {
	Draw(sprite []byte, x, y byte) byte
	Clear()
}

// Keyboard is the keypad as seen by SKP, SKNP and LD Vx, K.
type Keyboard interface {
	IsPressed(key byte) bool
	Arm()
	TakePress() (byte, bool)
}

// Timers holds DT and ST. The CPU only loads and reads them; counting
// down is done elsewhere.
type Timers interface {
	Delay() byte
	SetDelay(v byte)
	Sound() byte
	SetSound(v byte)
}

// CPU is the CHIP-8 interpreter core.
type CPU struct {
	V     [16]byte // V0-VF, VF doubles as flag register
	I     uint16
	PC    uint16
	SP    byte // number of occupied stack slots
	Stack [StackSize]uint16

	// Trace logs every executed instruction with the register file.
	Trace  bool
	Logger *log.Logger

	bus     *bus.Bus
	screen  Screen
	timers  Timers
	keys    Keyboard
	rng     *rand.Rand
	waiting bool // LD Vx, K has armed the keypad
}

// New wires a CPU to its collaborators. seed feeds RND; 0 picks a seed
// from the clock.
func New(b *bus.Bus, s Screen, t Timers, k Keyboard, seed uint64) *CPU {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &CPU{
		PC:     bus.ProgramStart,
		bus:    b,
		screen: s,
		timers: t,
		keys:   k,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)),
	}
}

// Bus exposes the underlying bus for tests/tools.
func (c *CPU) Bus() *bus.Bus { return c.bus }

// SetPC allows tests or tools to set the program counter.
func (c *CPU) SetPC(pc uint16) { c.PC = pc }

// AwaitingKey reports whether LD Vx, K is blocked on the keypad.
func (c *CPU) AwaitingKey() bool { return c.waiting }

// Reset clears registers and stack and points PC at the program start.
func (c *CPU) Reset() {
	c.V = [16]byte{}
	c.I = 0
	c.SP = 0
	c.Stack = [StackSize]uint16{}
	c.PC = bus.ProgramStart
	c.waiting = false
}

func (c *CPU) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

// Step fetches, decodes and executes one instruction. It returns a *Fault
// when the program did something invalid, ErrAwaitKey while blocked on the
// keypad, and nil otherwise.
func (c *CPU) Step() error {
	pc := c.PC
	op, err := c.bus.Read16(pc)
	if err != nil {
		return &Fault{PC: pc, Err: err}
	}
	c.PC += 2

	err = c.execute(Decode(op))
	switch {
	case err == nil:
	case errors.Is(err, errUnknownOpcode):
		c.logger().Printf("cpu: unknown opcode %04X at %03X", op, pc)
	case errors.Is(err, ErrAwaitKey):
		c.PC = pc
		return err
	default:
		c.PC = pc
		return &Fault{PC: pc, Opcode: op, Err: err}
	}
	if c.Trace {
		c.trace(pc, op)
	}
	return nil
}

func (c *CPU) trace(pc, op uint16) {
	c.logger().Printf("%03X: [%04X] %-16s I:%03X DT:%02X ST:%02X V:% 02X",
		pc, op, disasm.Mnemonic(op), c.I, c.timers.Delay(), c.timers.Sound(), c.V[:])
}

// String returns formatted information about the register file.
func (c *CPU) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "PC=%03X I=%03X SP=%d DT=%02X ST=%02X", c.PC, c.I, c.SP, c.timers.Delay(), c.timers.Sound())
	for i, v := range c.V {
		fmt.Fprintf(&sb, " V%X=%02X", i, v)
	}
	return sb.String()
}

// State is a copy of the register file and stack, used for save states.
type State struct {
	V       [16]byte
	I       uint16
	PC      uint16
	SP      byte
	Stack   [StackSize]uint16
	Waiting bool
}

func (c *CPU) State() State {
	return State{V: c.V, I: c.I, PC: c.PC, SP: c.SP, Stack: c.Stack, Waiting: c.waiting}
}

func (c *CPU) SetState(s State) error {
	if s.SP > StackSize {
		return fmt.Errorf("cpu: invalid stack pointer %d", s.SP)
	}
	c.V, c.I, c.PC, c.SP, c.Stack = s.V, s.I, s.PC, s.SP, s.Stack
	c.waiting = s.Waiting
	if c.waiting {
		// the latch does not survive a save state; wait for a fresh press
		c.keys.Arm()
	}
	return nil
}
