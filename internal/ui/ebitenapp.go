package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/apu"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/display"
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/emu"
)

type App struct {
	cfg     Config
	m       *emu.Machine
	tex     *ebiten.Image
	overlay *ebiten.Image
	drawn   uint64 // display version last uploaded to tex
	paused  bool
	keys    map[ebiten.Key]byte

	// overlay/menu
	showMenu    bool
	menuMode    string // "main", "slot", "rom", "keys"
	menuIdx     int
	currentSlot int
	romList     []string
	romSel      int
	romOff      int
	keysOff     int
	toastMsg    string
	toastUntil  time.Time
	curW, curH  int

	audioCtx    *audio.Context
	audioPlayer *audio.Player
	buzzer      *apu.Buzzer
}

func NewApp(cfg Config, m *emu.Machine) *App {
	cfg.Defaults()
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(display.Width*cfg.Scale, display.Height*cfg.Scale)
	a := &App{cfg: cfg, m: m, menuMode: "main", keys: ebitenKeys(cfg.KeyMap)}
	a.initAudio()
	m.OnSound(a.buzzer.SetOn)
	return a
}

// Run starts the machine and blocks until the window is closed.
// Without a program the ROM menu is opened instead.
func (a *App) Run() error {
	err := a.m.Start(context.Background())
	switch {
	case errors.Is(err, emu.ErrNoProgram):
		a.showMenu = true
		a.romList = a.findROMs()
		a.menuMode = "rom"
	case err != nil:
		return err
	}
	defer a.m.Stop()
	return ebiten.RunGame(a)
}

func (a *App) Update() error {
	// Keyboard → keypad
	var mask uint16
	if !a.showMenu {
		for k, key := range a.keys {
			if ebiten.IsKeyPressed(k) {
				mask |= 1 << key
			}
		}
	}
	a.m.Keypad().SetState(mask)

	// Pause toggle (P)
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.setPaused(!a.paused)
	}

	// Reload (F2)
	if !a.showMenu && inpututil.IsKeyJustPressed(ebiten.KeyF2) {
		if err := a.m.Reload(); err != nil {
			a.toast("Reload failed: " + err.Error())
		} else {
			a.drawn = 0
			a.toast("Reloaded")
		}
	}

	// Frame-step when paused (N)
	if a.paused && inpututil.IsKeyJustPressed(ebiten.KeyN) {
		if _, err := a.m.StepFrame(); err != nil {
			a.toast(err.Error())
		}
	}

	// Mute (M)
	if inpututil.IsKeyJustPressed(ebiten.KeyM) {
		a.cfg.Mute = !a.cfg.Mute
		a.applyVolume()
	}

	// Quick save/load
	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		a.quickSave()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF9) {
		a.quickLoad()
	}

	// Screenshot (F12)
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		if name, err := a.saveScreenshot(); err != nil {
			a.toast("Screenshot failed: " + err.Error())
		} else {
			a.toast("Saved " + name)
		}
	}

	// Toggle menu (Escape)
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) && (!a.showMenu || a.menuMode == "main") {
		a.showMenu = !a.showMenu
		a.menuMode = "main"
		a.menuIdx = 0
		return nil
	}
	if a.showMenu {
		switch a.menuMode {
		case "slot":
			a.updateSlotMenu()
		case "rom":
			a.updateRomMenu()
		case "keys":
			a.updateKeysMenu()
		default:
			if a.updateMainMenu() {
				return ebiten.Termination
			}
		}
	}
	return nil
}

func (a *App) setPaused(p bool) {
	if p == a.paused {
		return
	}
	if p {
		a.m.Stop()
	} else if err := a.m.Start(context.Background()); err != nil {
		a.toast("Resume failed: " + err.Error())
		return
	}
	a.paused = p
}

func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(display.Width, display.Height)
	}
	if v := a.m.DisplayVersion(); v != a.drawn {
		f := a.m.DisplaySnapshot()
		a.tex.WritePixels(f.RGBA(a.cfg.On, a.cfg.Off))
		a.drawn = v
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(a.cfg.Scale), float64(a.cfg.Scale))
	screen.DrawImage(a.tex, op)

	if a.showMenu {
		a.drawOverlay(screen)
		switch a.menuMode {
		case "slot":
			a.drawSlotMenu(screen)
		case "rom":
			a.drawRomMenu(screen)
		case "keys":
			a.drawKeysMenu(screen)
		default:
			a.drawMainMenu(screen)
		}
	}

	status := ""
	switch {
	case a.paused:
		status = "PAUSED"
	case !a.m.IsRunning() && a.m.Err() != nil:
		status = "HALTED: " + a.m.Err().Error()
	}
	if status != "" {
		ebitenutil.DebugPrintAt(screen, a.truncateText(status, a.maxCharsForText(4)), 4, a.curH-16)
	}
	if a.toastMsg != "" && time.Now().Before(a.toastUntil) {
		ebitenutil.DebugPrintAt(screen, a.truncateText(a.toastMsg, a.maxCharsForText(4)), 4, 4)
	}
}

func (a *App) Layout(outW, outH int) (int, int) {
	a.curW, a.curH = display.Width*a.cfg.Scale, display.Height*a.cfg.Scale
	return a.curW, a.curH
}

func (a *App) toast(msg string) {
	a.toastMsg = msg
	a.toastUntil = time.Now().Add(2 * time.Second)
}

func (a *App) saveScreenshot() (string, error) {
	ts := time.Now().Format("20060102_150405")
	name := fmt.Sprintf("screenshot_%s.png", ts)
	f, err := os.Create(name)
	if err != nil {
		return "", err
	}
	defer f.Close()
	frame := a.m.DisplaySnapshot()
	return name, frame.WritePNG(f, a.cfg.Scale)
}

func (a *App) statePath(slot int) string {
	base := "memory"
	if p := a.m.ROMPath(); p != "" {
		base = filepath.Base(p)
	}
	return filepath.Join(a.cfg.StateDir, fmt.Sprintf("%s.slot%d.state", base, slot+1))
}

func (a *App) quickSave() {
	if err := a.m.SaveStateToFile(a.statePath(a.currentSlot)); err != nil {
		a.toast("Save failed: " + err.Error())
		return
	}
	a.toast(fmt.Sprintf("Saved slot %d", a.currentSlot+1))
}

func (a *App) quickLoad() {
	path := a.statePath(a.currentSlot)
	if _, err := os.Stat(path); err != nil {
		a.toast("Slot is empty")
		return
	}
	if err := a.m.LoadStateFromFile(path); err != nil {
		a.toast("Load failed: " + err.Error())
		return
	}
	a.drawn = 0
	a.toast(fmt.Sprintf("Loaded slot %d", a.currentSlot+1))
}

var charKeys = map[rune]ebiten.Key{
	'0': ebiten.KeyDigit0, '1': ebiten.KeyDigit1, '2': ebiten.KeyDigit2, '3': ebiten.KeyDigit3,
	'4': ebiten.KeyDigit4, '5': ebiten.KeyDigit5, '6': ebiten.KeyDigit6, '7': ebiten.KeyDigit7,
	'8': ebiten.KeyDigit8, '9': ebiten.KeyDigit9,
	'a': ebiten.KeyA, 'b': ebiten.KeyB, 'c': ebiten.KeyC, 'd': ebiten.KeyD, 'e': ebiten.KeyE,
	'f': ebiten.KeyF, 'g': ebiten.KeyG, 'h': ebiten.KeyH, 'i': ebiten.KeyI, 'j': ebiten.KeyJ,
	'k': ebiten.KeyK, 'l': ebiten.KeyL, 'm': ebiten.KeyM, 'n': ebiten.KeyN, 'o': ebiten.KeyO,
	'p': ebiten.KeyP, 'q': ebiten.KeyQ, 'r': ebiten.KeyR, 's': ebiten.KeyS, 't': ebiten.KeyT,
	'u': ebiten.KeyU, 'v': ebiten.KeyV, 'w': ebiten.KeyW, 'x': ebiten.KeyX, 'y': ebiten.KeyY,
	'z': ebiten.KeyZ,
}

// ebitenKeys translates a character key map into ebiten key codes.
func ebitenKeys(km map[rune]byte) map[ebiten.Key]byte {
	out := make(map[ebiten.Key]byte, len(km))
	for r, key := range km {
		if k, ok := charKeys[r]; ok {
			out[k] = key
		}
	}
	return out
}
