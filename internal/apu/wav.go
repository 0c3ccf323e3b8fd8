package apu

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Recorder writes the buzzer output of a headless run to a mono 16-bit WAV
// stream, one timer frame at a time.
type Recorder struct {
	enc      *wav.Encoder
	buzzer   *Buzzer
	perFrame float64
	owed     float64
	pcm      []int16
	buf      *audio.IntBuffer
}

// NewRecorder records at sampleRate with frameHz timer frames per second.
func NewRecorder(w io.WriteSeeker, sampleRate, frameHz int) *Recorder {
	b := New(sampleRate)
	return &Recorder{
		enc:      wav.NewEncoder(w, b.SampleRate(), 16, 1, 1),
		buzzer:   b,
		perFrame: float64(b.SampleRate()) / float64(frameHz),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: b.SampleRate()},
			SourceBitDepth: 16,
		},
	}
}

// Frame appends one frame of audio, tone on or off.
func (r *Recorder) Frame(on bool) error {
	r.owed += r.perFrame
	n := int(r.owed)
	r.owed -= float64(n)
	if n == 0 {
		return nil
	}
	if cap(r.pcm) < n {
		r.pcm = make([]int16, n)
	}
	r.pcm = r.pcm[:n]
	r.buzzer.SetOn(on)
	r.buzzer.Samples(r.pcm)

	r.buf.Data = r.buf.Data[:0]
	for _, s := range r.pcm {
		r.buf.Data = append(r.buf.Data, int(s))
	}
	if err := r.enc.Write(r.buf); err != nil {
		return fmt.Errorf("apu: write wav: %w", err)
	}
	return nil
}

// Close finalizes the WAV header. The underlying writer is not closed.
func (r *Recorder) Close() error {
	if err := r.enc.Close(); err != nil {
		return fmt.Errorf("apu: close wav: %w", err)
	}
	return nil
}
