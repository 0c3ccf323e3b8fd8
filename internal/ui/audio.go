package ui

import (
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"

	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/apu"
)

// initAudio creates the audio context and a player streaming the buzzer.
// Audio failures are logged and leave the app silent.
func (a *App) initAudio() {
	a.buzzer = apu.New(apu.DefaultSampleRate)
	a.buzzer.SetVolume(1) // level is set on the player
	a.audioCtx = audio.NewContext(a.buzzer.SampleRate())
	p, err := a.audioCtx.NewPlayer(a.buzzer)
	if err != nil {
		log.Printf("audio disabled: %v", err)
		return
	}
	a.audioPlayer = p
	a.applyPlayerBufferSize()
	a.applyVolume()
	a.audioPlayer.Play()
}

// applyPlayerBufferSize keeps the player's internal buffer small so the
// tone follows the sound timer closely.
func (a *App) applyPlayerBufferSize() {
	if a.audioPlayer == nil {
		return
	}
	a.audioPlayer.SetBufferSize(20 * time.Millisecond)
}

func (a *App) applyVolume() {
	if a.audioPlayer == nil {
		return
	}
	if a.cfg.Mute {
		a.audioPlayer.SetVolume(0)
		return
	}
	a.audioPlayer.SetVolume(a.cfg.Volume)
}
