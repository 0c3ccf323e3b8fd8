package emu

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/bus"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/cpu"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/display"
)

// --- Save/Load state ---
type machineState struct {
	Memory  []byte
	CPU     cpu.State
	Delay   byte
	Sound   byte
	Screen  display.Frame
	Program []byte
}

func (m *Machine) SaveState() ([]byte, error) {
	m.mu.Lock()
	s := machineState{
		Memory:  m.bus.Dump(),
		CPU:     m.cpu.State(),
		Delay:   m.timers.Delay(),
		Sound:   m.timers.Sound(),
		Screen:  m.display.Snapshot(),
		Program: append([]byte(nil), m.program...),
	}
	m.mu.Unlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, fmt.Errorf("emu: encode state: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadState restores a snapshot taken by SaveState. It may be called while
// the machine is running.
func (m *Machine) LoadState(data []byte) error {
	var s machineState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return fmt.Errorf("emu: decode state: %w", err)
	}

	if len(s.Memory) != bus.MemSize || s.CPU.SP > cpu.StackSize {
		return fmt.Errorf("emu: corrupt state (memory %d bytes, sp %d)", len(s.Memory), s.CPU.SP)
	}

	m.mu.Lock()
	defer m.wake()
	defer m.mu.Unlock()
	if err := m.bus.Restore(s.Memory); err != nil {
		return err
	}
	if err := m.cpu.SetState(s.CPU); err != nil {
		return err
	}
	m.timers.SetDelay(s.Delay)
	m.timers.SetSound(s.Sound)
	m.display.Restore(s.Screen)
	m.program = s.Program
	m.credit = 0
	return nil
}

func (m *Machine) SaveStateToFile(path string) error {
	data, err := m.SaveState()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (m *Machine) LoadStateFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return m.LoadState(data)
}
