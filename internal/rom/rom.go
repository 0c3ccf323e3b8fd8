package rom

import (
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"strings"

	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/bus"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/disasm"
)

var (
	ErrEmpty    = errors.New("rom: program is empty")
	ErrTooLarge = errors.New("rom: program does not fit in memory")
)

// Extensions lists the file suffixes CHIP-8 programs are usually shipped with.
var Extensions = []string{".ch8", ".c8", ".chip8"}

// Info is a summary of a program image (for logs and the UI title).
type Info struct {
	Name    string // base file name without extension, if known
	Size    int
	CRC32   uint32
	First   string // mnemonic of the instruction at the entry point
	Opcodes int    // number of 16-bit words
}

func (i Info) String() string {
	name := i.Name
	if name == "" {
		name = "(memory)"
	}
	return fmt.Sprintf("%s: %d bytes, crc32 %08x, entry %q", name, i.Size, i.CRC32, i.First)
}

// Validate checks that program can be loaded at the program start address.
func Validate(program []byte) error {
	switch {
	case len(program) == 0:
		return ErrEmpty
	case len(program) > bus.MaxProgramSize:
		return fmt.Errorf("%w: %d bytes, max %d", ErrTooLarge, len(program), bus.MaxProgramSize)
	}
	return nil
}

// Load reads a program file and validates its size.
func Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rom: load %s: %w", path, err)
	}
	if err := Validate(data); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return data, nil
}

// Inspect summarizes program. name may be a path; only its base is kept.
func Inspect(name string, program []byte) Info {
	info := Info{
		Size:    len(program),
		CRC32:   crc32.ChecksumIEEE(program),
		Opcodes: len(program) / 2,
	}
	if name != "" {
		base := filepath.Base(name)
		info.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if lines := disasm.Listing(program, bus.ProgramStart); len(lines) > 0 {
		info.First = lines[0].Text
	}
	return info
}

// IsProgramFile reports whether path has one of the known extensions.
func IsProgramFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
