package bus

import (
	"errors"
	"fmt"
)

// Memory map (4 KiB):
//
//	0x000-0x04F  built-in hex digit font (16 glyphs * 5 bytes)
//	0x050-0x1FF  reserved for the interpreter
//	0x200-0xFFF  program space
const (
	MemSize        = 0x1000
	ProgramStart   = 0x200
	MaxAddress     = MemSize - 1
	MaxProgramSize = MemSize - ProgramStart // 0xE00

	FontStart     = 0x000
	FontGlyphSize = 5
)

// ErrProgramTooLarge is returned by Load when the program does not fit
// between ProgramStart and the end of memory.
var ErrProgramTooLarge = errors.New("bus: program exceeds program space")

// AccessError reports an access outside of memory, or a write into the
// reserved interpreter region.
type AccessError struct {
	Addr  uint16
	Len   int
	Write bool
}

func (e *AccessError) Error() string {
	op := "read"
	if e.Write {
		op = "write"
	}
	if e.Len > 1 {
		return fmt.Sprintf("bus: invalid %s of %d bytes at %#04x", op, e.Len, e.Addr)
	}
	return fmt.Sprintf("bus: invalid %s at %#04x", op, e.Addr)
}

// font holds the 4x5 glyphs for the hex digits 0-F, one byte per row with
// the glyph in the high nibble.
var font = [16 * FontGlyphSize]byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// FontAddr returns the address of the glyph for the low nibble of digit.
func FontAddr(digit byte) uint16 {
	return FontStart + uint16(digit&0x0F)*FontGlyphSize
}

// Bus is the flat CHIP-8 address space.
type Bus struct {
	mem [MemSize]byte
}

// New returns a bus with the font installed and program space zeroed.
func New() *Bus {
	b := &Bus{}
	copy(b.mem[FontStart:], font[:])
	return b
}

func (b *Bus) Read(addr uint16) (byte, error) {
	if addr > MaxAddress {
		return 0, &AccessError{Addr: addr, Len: 1}
	}
	return b.mem[addr], nil
}

// Read16 returns the big-endian word at addr and addr+1.
func (b *Bus) Read16(addr uint16) (uint16, error) {
	if int(addr)+1 > MaxAddress {
		return 0, &AccessError{Addr: addr, Len: 2}
	}
	return uint16(b.mem[addr])<<8 | uint16(b.mem[addr+1]), nil
}

func (b *Bus) Write(addr uint16, value byte) error {
	if addr < ProgramStart || addr > MaxAddress {
		return &AccessError{Addr: addr, Len: 1, Write: true}
	}
	b.mem[addr] = value
	return nil
}

// Slice returns the n bytes starting at addr. The slice aliases memory and
// must not be retained across instructions.
func (b *Bus) Slice(addr uint16, n int) ([]byte, error) {
	if n < 0 || int(addr)+n > MemSize {
		return nil, &AccessError{Addr: addr, Len: n}
	}
	return b.mem[addr : int(addr)+n], nil
}

// WriteBlock copies data to memory at addr. Nothing is written unless the
// whole block lies in program space.
func (b *Bus) WriteBlock(addr uint16, data []byte) error {
	if addr < ProgramStart || int(addr)+len(data) > MemSize {
		return &AccessError{Addr: addr, Len: len(data), Write: true}
	}
	copy(b.mem[addr:], data)
	return nil
}

// Load copies program into memory at ProgramStart. The font is untouched.
func (b *Bus) Load(program []byte) error {
	if len(program) > MaxProgramSize {
		return fmt.Errorf("%w: %d bytes, max %d", ErrProgramTooLarge, len(program), MaxProgramSize)
	}
	copy(b.mem[ProgramStart:], program)
	return nil
}

// Reset zeroes everything from ProgramStart on, keeping the font.
func (b *Bus) Reset() {
	clear(b.mem[ProgramStart:])
}

// Dump returns a copy of the whole address space.
func (b *Bus) Dump() []byte {
	out := make([]byte, MemSize)
	copy(out, b.mem[:])
	return out
}

// Restore replaces program space from a Dump. The font region is rebuilt
// rather than taken from data.
func (b *Bus) Restore(data []byte) error {
	if len(data) != MemSize {
		return fmt.Errorf("bus: restore needs %d bytes, got %d", MemSize, len(data))
	}
	copy(b.mem[:], data)
	copy(b.mem[FontStart:], font[:])
	return nil
}
