package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/rom"
)

const slots = 4

// updateMainMenu handles the top-level menu. It returns true when the user
// chose to quit.
func (a *App) updateMainMenu() bool {
	max := 6
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && a.menuIdx > 0 {
		a.menuIdx--
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) && a.menuIdx < max {
		a.menuIdx++
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		switch a.menuIdx {
		case 0:
			a.quickSave()
		case 1:
			a.quickLoad()
		case 2:
			a.menuMode = "slot"
			a.menuIdx = a.currentSlot
		case 3:
			a.romList = a.findROMs()
			a.romSel = 0
			a.romOff = 0
			a.menuMode = "rom"
		case 4:
			a.menuMode = "keys"
			a.keysOff = 0
		case 5:
			a.showMenu = false
		case 6:
			return true
		}
	}
	// Back with Backspace
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		a.showMenu = false
	}
	return false
}

func (a *App) updateSlotMenu() {
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && a.menuIdx > 0 {
		a.menuIdx--
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) && a.menuIdx < slots-1 {
		a.menuIdx++
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		a.currentSlot = a.menuIdx
		a.toast(fmt.Sprintf("Slot set to %d", a.currentSlot+1))
		a.backToMain(2)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		a.backToMain(2)
	}
}

func (a *App) updateRomMenu() {
	n := len(a.romList)
	if n == 0 {
		if inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
			a.backToMain(3)
		}
		return
	}
	// compute window to maintain selection visibility
	maxRows := a.menuRows(40)
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && a.romSel > 0 {
		a.romSel--
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) && a.romSel < n-1 {
		a.romSel++
	}
	if a.romSel < a.romOff {
		a.romOff = a.romSel
	}
	if a.romSel >= a.romOff+maxRows {
		a.romOff = a.romSel - maxRows + 1
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		path := a.romList[a.romSel]
		if err := a.switchROM(path); err != nil {
			a.toast("ROM load failed: " + err.Error())
		} else {
			a.toast("Loaded ROM: " + filepath.Base(path))
			a.showMenu = false
		}
		a.menuMode = "main"
		a.menuIdx = 0
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		a.backToMain(3)
	}
}

func (a *App) updateKeysMenu() {
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && a.keysOff > 0 {
		a.keysOff--
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) {
		a.keysOff++
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		a.backToMain(4)
	}
}

func (a *App) backToMain(idx int) {
	a.menuMode = "main"
	a.menuIdx = idx
}

// switchROM stops the running program, loads path and starts it unless
// the app is paused.
func (a *App) switchROM(path string) error {
	a.m.Stop()
	if err := a.m.LoadROMFromFile(path); err != nil {
		return err
	}
	a.drawn = 0
	ebiten.SetWindowTitle(a.cfg.Title + " - [" + filepath.Base(path) + "]")
	if a.paused {
		return nil
	}
	return a.m.Start(context.Background())
}

// findROMs lists the program files in the configured directory.
func (a *App) findROMs() []string {
	entries, err := os.ReadDir(a.cfg.ROMsDir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && rom.IsProgramFile(e.Name()) {
			out = append(out, filepath.Join(a.cfg.ROMsDir, e.Name()))
		}
	}
	sort.Strings(out)
	return out
}

func (a *App) menuRows(baseY int) int {
	rows := (a.curH - baseY) / 14
	if rows < 1 {
		rows = 1
	}
	return rows
}

// maxCharsForText is how many debug-font glyphs fit between x and the
// right edge.
func (a *App) maxCharsForText(x int) int {
	n := (a.curW - x) / 6
	if n < 1 {
		n = 1
	}
	return n
}

func (a *App) truncateText(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
