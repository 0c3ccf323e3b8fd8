package disasm

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestMnemonic(t *testing.T) {
	tests := []struct {
		op   uint16
		want string
	}{
		{0x00E0, "CLS"},
		{0x00EE, "RET"},
		{0x0123, "SYS $123"},
		{0x1228, "JP $228"},
		{0x2300, "CALL $300"},
		{0x3A12, "SE VA, $12"},
		{0x4B00, "SNE VB, $00"},
		{0x5120, "SE V1, V2"},
		{0x5121, "DW $5121"},
		{0x600A, "LD V0, $0A"},
		{0x7FFF, "ADD VF, $FF"},
		{0x8120, "LD V1, V2"},
		{0x8124, "ADD V1, V2"},
		{0x8125, "SUB V1, V2"},
		{0x8126, "SHR V1"},
		{0x8127, "SUBN V1, V2"},
		{0x812E, "SHL V1"},
		{0x8128, "DW $8128"},
		{0x9340, "SNE V3, V4"},
		{0xA228, "LD I, $228"},
		{0xB300, "JP V0, $300"},
		{0xC0FF, "RND V0, $FF"},
		{0xD005, "DRW V0, V0, 5"},
		{0xE19E, "SKP V1"},
		{0xE1A1, "SKNP V1"},
		{0xE1A2, "DW $E1A2"},
		{0xF007, "LD V0, DT"},
		{0xF00A, "LD V0, K"},
		{0xF115, "LD DT, V1"},
		{0xF218, "LD ST, V2"},
		{0xF31E, "ADD I, V3"},
		{0xF029, "LD F, V0"},
		{0xF533, "LD B, V5"},
		{0xF655, "LD [I], V6"},
		{0xF765, "LD V7, [I]"},
		{0xF0FF, "DW $F0FF"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Mnemonic(tt.op))
		})
	}
}

func TestListing(t *testing.T) {
	lines := Listing([]byte{0x60, 0x0A, 0xF0, 0x29, 0xD0}, 0x200)
	assert.Equal(t, 3, len(lines))
	assert.Equal(t, uint16(0x200), lines[0].Addr)
	assert.Equal(t, "LD V0, $0A", lines[0].Text)
	assert.Equal(t, uint16(0x202), lines[1].Addr)
	assert.Equal(t, "LD F, V0", lines[1].Text)
	assert.Equal(t, uint16(0x204), lines[2].Addr)
	assert.Equal(t, "DB $D0", lines[2].Text)
	assert.Equal(t, "200: 600A  LD V0, $0A", lines[0].String())
}
