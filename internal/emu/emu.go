package emu

import (
	"errors"
	"log"
	"sync"

	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/bus"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/cpu"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/display"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/keypad"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/rom"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/timer"
)

var (
	ErrRunning   = errors.New("emu: machine is running")
	ErrNoProgram = errors.New("emu: no program loaded")
)

// Machine owns the whole VM: memory, CPU, timers, display and keypad.
// Program state is only changed under mu, by the dispatcher or by one of
// the lifecycle methods.
type Machine struct {
	cfg Config
	log *log.Logger

	mu      sync.Mutex // execution lock
	bus     *bus.Bus
	cpu     *cpu.CPU
	display *display.Display
	timers  *timer.Timers
	keypad  *keypad.Keypad
	program []byte
	romPath string
	credit  int // instruction budget carried between frames

	// wakes a dispatcher blocked on the keypad after Reset/LoadState
	kick chan struct{}

	run runState
}

func New(cfg Config) *Machine {
	cfg = cfg.normalize()
	m := &Machine{
		cfg:     cfg,
		log:     cfg.Logger,
		bus:     bus.New(),
		display: display.New(),
		timers:  &timer.Timers{},
		keypad:  keypad.New(),
		kick:    make(chan struct{}, 1),
	}
	m.cpu = cpu.New(m.bus, m.display, m.timers, m.keypad, cfg.Seed)
	m.cpu.Trace = cfg.Trace
	m.cpu.Logger = cfg.Logger
	return m
}

func (m *Machine) Config() Config { return m.cfg }

// Init copies program to the program start address and points PC at it.
// The font and any other memory contents are left alone.
func (m *Machine) Init(program []byte) error {
	if err := rom.Validate(program); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initLocked(program)
}

func (m *Machine) initLocked(program []byte) error {
	if err := m.bus.Load(program); err != nil {
		return err
	}
	m.program = append(m.program[:0], program...)
	m.cpu.SetPC(bus.ProgramStart)
	return nil
}

// Reset zeroes program memory, registers, stack, timers and display. The
// font survives, and so does the loaded program image for Reload.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.resetLocked()
	m.mu.Unlock()
	m.wake()
}

func (m *Machine) resetLocked() {
	m.bus.Reset()
	m.cpu.Reset()
	m.timers.Reset()
	m.display.Clear()
	m.keypad.Reset()
	m.credit = 0
}

// Reload resets the machine and loads the last program again.
func (m *Machine) Reload() error {
	m.mu.Lock()
	if len(m.program) == 0 {
		m.mu.Unlock()
		return ErrNoProgram
	}
	m.resetLocked()
	err := m.initLocked(m.program)
	m.mu.Unlock()
	m.wake()
	return err
}

// LoadROMFromFile reads, validates and initializes a program from disk.
func (m *Machine) LoadROMFromFile(path string) error {
	data, err := rom.Load(path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
	if err := m.initLocked(data); err != nil {
		return err
	}
	m.romPath = path
	m.log.Printf("loaded %s", rom.Inspect(path, data))
	return nil
}

// ROMPath returns the path of the last program loaded from disk.
func (m *Machine) ROMPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.romPath
}

// Program returns a copy of the loaded program image.
func (m *Machine) Program() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.program...)
}

// DisplaySnapshot returns a copy of the pixel grid. Safe from any goroutine.
func (m *Machine) DisplaySnapshot() display.Frame { return m.display.Snapshot() }

// DisplayVersion changes whenever the grid does.
func (m *Machine) DisplayVersion() uint64 { return m.display.Version() }

// Keypad is where frontends report key state.
func (m *Machine) Keypad() *keypad.Keypad { return m.keypad }

// SoundActive reports whether the buzzer should be sounding (ST > 0).
func (m *Machine) SoundActive() bool { return m.timers.Sound() > 0 }

// Registers returns a formatted dump of the register file.
func (m *Machine) Registers() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cpu.String()
}

// Step executes a single instruction. ErrAwaitKey is returned unchanged
// while the program waits for the keypad.
func (m *Machine) Step() error {
	if m.IsRunning() {
		return ErrRunning
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cpu.Step()
}

// StepFrame runs one timer period synchronously: the instruction budget for
// one tick, then one timer tick. A pending key wait ends the batch early.
// It reports whether the buzzer is on after the tick.
func (m *Machine) StepFrame() (beeping bool, err error) {
	if m.IsRunning() {
		return false, ErrRunning
	}
	m.mu.Lock()
	err = m.runBudgetLocked(m.nextBudget())
	m.mu.Unlock()
	if errors.Is(err, cpu.ErrAwaitKey) {
		err = nil
	}
	if err != nil {
		return false, err
	}
	return m.timers.Tick(), nil
}

// nextBudget spreads IPS over TimerHz ticks, carrying the remainder so the
// long-run rate is exact.
func (m *Machine) nextBudget() int {
	m.credit += m.cfg.IPS
	n := m.credit / m.cfg.TimerHz
	m.credit %= m.cfg.TimerHz
	return n
}

func (m *Machine) runBudgetLocked(n int) error {
	for i := 0; i < n; i++ {
		if err := m.cpu.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (m *Machine) wake() {
	select {
	case m.kick <- struct{}{}:
	default:
	}
}
