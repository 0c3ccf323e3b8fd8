// Package disasm turns CHIP-8 opcodes into assembler mnemonics.
package disasm

import "fmt"

// Line is one disassembled instruction of a listing.
type Line struct {
	Addr   uint16
	Opcode uint16
	Text   string
}

func (l Line) String() string {
	return fmt.Sprintf("%03X: %04X  %s", l.Addr, l.Opcode, l.Text)
}

// Mnemonic returns the assembler form of op, or "DW $xxxx" for words that
// do not decode to an instruction.
func Mnemonic(op uint16) string {
	x := (op >> 8) & 0xF
	y := (op >> 4) & 0xF
	n := op & 0xF
	kk := op & 0xFF
	nnn := op & 0xFFF

	switch op >> 12 {
	case 0x0:
		switch op {
		case 0x00E0:
			return "CLS"
		case 0x00EE:
			return "RET"
		}
		return fmt.Sprintf("SYS $%03X", nnn)
	case 0x1:
		return fmt.Sprintf("JP $%03X", nnn)
	case 0x2:
		return fmt.Sprintf("CALL $%03X", nnn)
	case 0x3:
		return fmt.Sprintf("SE V%X, $%02X", x, kk)
	case 0x4:
		return fmt.Sprintf("SNE V%X, $%02X", x, kk)
	case 0x5:
		if n == 0 {
			return fmt.Sprintf("SE V%X, V%X", x, y)
		}
	case 0x6:
		return fmt.Sprintf("LD V%X, $%02X", x, kk)
	case 0x7:
		return fmt.Sprintf("ADD V%X, $%02X", x, kk)
	case 0x8:
		if name, ok := aluNames[n]; ok {
			if n == 0x6 || n == 0xE {
				return fmt.Sprintf("%s V%X", name, x)
			}
			return fmt.Sprintf("%s V%X, V%X", name, x, y)
		}
	case 0x9:
		if n == 0 {
			return fmt.Sprintf("SNE V%X, V%X", x, y)
		}
	case 0xA:
		return fmt.Sprintf("LD I, $%03X", nnn)
	case 0xB:
		return fmt.Sprintf("JP V0, $%03X", nnn)
	case 0xC:
		return fmt.Sprintf("RND V%X, $%02X", x, kk)
	case 0xD:
		return fmt.Sprintf("DRW V%X, V%X, %d", x, y, n)
	case 0xE:
		switch kk {
		case 0x9E:
			return fmt.Sprintf("SKP V%X", x)
		case 0xA1:
			return fmt.Sprintf("SKNP V%X", x)
		}
	case 0xF:
		if format, ok := miscFormats[kk]; ok {
			return fmt.Sprintf(format, x)
		}
	}
	return fmt.Sprintf("DW $%04X", op)
}

var aluNames = map[uint16]string{
	0x0: "LD",
	0x1: "OR",
	0x2: "AND",
	0x3: "XOR",
	0x4: "ADD",
	0x5: "SUB",
	0x6: "SHR",
	0x7: "SUBN",
	0xE: "SHL",
}

var miscFormats = map[uint16]string{
	0x07: "LD V%X, DT",
	0x0A: "LD V%X, K",
	0x15: "LD DT, V%X",
	0x18: "LD ST, V%X",
	0x1E: "ADD I, V%X",
	0x29: "LD F, V%X",
	0x33: "LD B, V%X",
	0x55: "LD [I], V%X",
	0x65: "LD V%X, [I]",
}

// Listing disassembles program as consecutive 16-bit words starting at
// base. A trailing odd byte is emitted as a one-byte DB line.
func Listing(program []byte, base uint16) []Line {
	lines := make([]Line, 0, (len(program)+1)/2)
	for i := 0; i+1 < len(program); i += 2 {
		op := uint16(program[i])<<8 | uint16(program[i+1])
		lines = append(lines, Line{Addr: base + uint16(i), Opcode: op, Text: Mnemonic(op)})
	}
	if len(program)%2 == 1 {
		last := program[len(program)-1]
		lines = append(lines, Line{
			Addr:   base + uint16(len(program)-1),
			Opcode: uint16(last),
			Text:   fmt.Sprintf("DB $%02X", last),
		})
	}
	return lines
}
