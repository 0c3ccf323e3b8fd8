package ui

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

func (a *App) drawOverlay(screen *ebiten.Image) {
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	if a.overlay == nil || a.overlay.Bounds().Dx() != w || a.overlay.Bounds().Dy() != h {
		a.overlay = ebiten.NewImage(w, h)
		a.overlay.Fill(color.RGBA{0, 0, 0, 0xC0})
	}
	screen.DrawImage(a.overlay, nil)
}

func (a *App) drawMainMenu(screen *ebiten.Image) {
	lines := []string{
		"Menu:",
		fmt.Sprintf("  Save state (slot %d)", a.currentSlot+1),
		fmt.Sprintf("  Load state (slot %d)", a.currentSlot+1),
		"  Select Slot",
		"  Switch ROM",
		"  Keybindings",
		"  Close",
		"  Quit",
	}
	for i, s := range lines {
		prefix := "  "
		if i == a.menuIdx+1 {
			prefix = "> "
		}
		ebitenutil.DebugPrintAt(screen, prefix+s, 10, 10+i*14)
	}
	// quick hints, keep on-screen
	hint := "F5: Save  F9: Load  F2: Reload  P: Pause  Backspace: Back"
	ebitenutil.DebugPrintAt(screen, a.truncateText(hint, a.maxCharsForText(10)), 10, 10+len(lines)*14)
}

func (a *App) drawSlotMenu(screen *ebiten.Image) {
	lines := []string{"Select Slot:"}
	for i := 0; i < slots; i++ {
		state := "[empty]"
		if _, err := os.Stat(a.statePath(i)); err == nil {
			state = ""
		}
		lines = append(lines, fmt.Sprintf("  %d %s", i+1, state))
	}
	for i, s := range lines {
		prefix := "  "
		if i == a.menuIdx+1 {
			prefix = "> "
		}
		ebitenutil.DebugPrintAt(screen, prefix+s, 10, 10+i*14)
	}
}

func (a *App) drawRomMenu(screen *ebiten.Image) {
	ebitenutil.DebugPrintAt(screen, a.truncateText("Select ROM (Enter to load, Esc to return)", a.maxCharsForText(10)), 10, 10)
	ebitenutil.DebugPrintAt(screen, a.truncateText("Dir: "+a.cfg.ROMsDir, a.maxCharsForText(10)), 10, 24)
	if len(a.romList) == 0 {
		ebitenutil.DebugPrintAt(screen, "No ROMs found", 10, 40)
		return
	}
	baseY := 40
	maxRows := a.menuRows(baseY)
	end := min(a.romOff+maxRows, len(a.romList))
	maxChars := max(a.maxCharsForText(10)-2, 1) // account for "> " prefix
	for i, p := range a.romList[a.romOff:end] {
		prefix := "  "
		if a.romOff+i == a.romSel {
			prefix = "> "
		}
		ebitenutil.DebugPrintAt(screen, prefix+a.truncateText(filepath.Base(p), maxChars), 10, baseY+i*14)
	}
	// scroll indicators
	if a.romOff > 0 {
		ebitenutil.DebugPrintAt(screen, "^", 2, baseY)
	}
	if end < len(a.romList) {
		ebitenutil.DebugPrintAt(screen, "v", 2, baseY+(maxRows-1)*14)
	}
}

// keyRows describes the keypad layout followed by the app shortcuts.
func (a *App) keyRows() []string {
	byKey := make(map[byte]string, len(a.cfg.KeyMap))
	for r, k := range a.cfg.KeyMap {
		byKey[k] = strings.ToUpper(string(r))
	}
	var rows []string
	for _, line := range [][]byte{{0x1, 0x2, 0x3, 0xC}, {0x4, 0x5, 0x6, 0xD}, {0x7, 0x8, 0x9, 0xE}, {0xA, 0x0, 0xB, 0xF}} {
		var sb strings.Builder
		for _, k := range line {
			fmt.Fprintf(&sb, "%s:%X  ", byKey[k], k)
		}
		rows = append(rows, strings.TrimSpace(sb.String()))
	}
	extra := []string{
		"P: Pause",
		"N: Step frame (when paused)",
		"F2: Reload program",
		"F5/F9: Save/Load state",
		"F12: Screenshot",
		"M: Mute",
		"Esc: Open/Close Menu",
	}
	return append(rows, extra...)
}

func (a *App) drawKeysMenu(screen *ebiten.Image) {
	ebitenutil.DebugPrintAt(screen, a.truncateText("Keybindings (Up/Down to scroll, Esc to return)", a.maxCharsForText(10)), 10, 10)
	rows := a.keyRows()
	baseY := 28
	maxRows := a.menuRows(baseY)
	a.keysOff = max(0, min(a.keysOff, len(rows)-1))
	end := min(a.keysOff+maxRows, len(rows))
	for i := a.keysOff; i < end; i++ {
		ebitenutil.DebugPrintAt(screen, a.truncateText(rows[i], a.maxCharsForText(10)), 10, baseY+(i-a.keysOff)*14)
	}
	// scroll indicators
	if a.keysOff > 0 {
		ebitenutil.DebugPrintAt(screen, "^", 2, baseY)
	}
	if end < len(rows) {
		ebitenutil.DebugPrintAt(screen, "v", 2, baseY+(maxRows-1)*14)
	}
}
