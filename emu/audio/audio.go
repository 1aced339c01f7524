// Package audio plays the buzzer while the sound timer runs.
package audio

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

const (
	SampleRate beep.SampleRate = 48000

	// ToneHz is the buzzer pitch, middle C.
	ToneHz = 261.63

	bufferDuration  = time.Second / 10
	resampleQuality = 4
)

// Beeper gates a looping sound on and off. The speaker plays all the
// time, SetActive pauses or resumes the stream.
type Beeper struct {
	ctrl   *beep.Ctrl
	closer func() error
}

// NewBeeper initializes the speaker and starts a paused stream. An empty
// path selects the built in square tone, otherwise the mp3 file is
// looped. Volume is in beep's logarithmic base 2 scale, 0 leaves the
// source unchanged.
func NewBeeper(path string, volume float64) (*Beeper, error) {
	source, closer, err := openSource(path)
	if err != nil {
		return nil, err
	}

	if err := speaker.Init(SampleRate, SampleRate.N(bufferDuration)); err != nil {
		_ = closer()
		return nil, fmt.Errorf("initializing speaker: %w", err)
	}

	b := &Beeper{
		ctrl: &beep.Ctrl{
			Streamer: &effects.Volume{
				Streamer: source,
				Base:     2,
				Volume:   volume,
			},
			Paused: true,
		},
		closer: closer,
	}
	speaker.Play(b.ctrl)
	return b, nil
}

func openSource(path string) (beep.Streamer, func() error, error) {
	if path == "" {
		return NewTone(SampleRate, ToneHz), func() error { return nil }, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening beep file: %w", err)
	}
	streamer, format, err := mp3.Decode(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("decoding beep file: %w", err)
	}

	looped := beep.Loop(-1, streamer)
	return beep.Resample(resampleQuality, format.SampleRate, SampleRate, looped), streamer.Close, nil
}

// SetActive starts or stops the buzzer. It is safe to call from any
// goroutine.
func (b *Beeper) SetActive(active bool) {
	speaker.Lock()
	b.ctrl.Paused = !active
	speaker.Unlock()
}

// Close silences the stream and releases the sound source.
func (b *Beeper) Close() error {
	speaker.Lock()
	b.ctrl.Paused = true
	b.ctrl.Streamer = nil
	speaker.Unlock()
	return b.closer()
}

// Tone is an endless square wave passed through a one pole low pass
// filter to soften the edges.
type Tone struct {
	halfPeriod int
	phase      int
	high       bool
	filtered   float64
}

// NewTone returns a square wave of the given frequency.
func NewTone(rate beep.SampleRate, hz float64) *Tone {
	half := int(math.Round(float64(rate) / (2 * hz)))
	if half < 1 {
		half = 1
	}
	return &Tone{halfPeriod: half, high: true}
}

// Stream implements beep.Streamer.
func (t *Tone) Stream(samples [][2]float64) (int, bool) {
	for i := range samples {
		value := -1.0
		if t.high {
			value = 1.0
		}
		t.filtered = t.filtered*0.6 + value
		out := t.filtered * 0.4
		samples[i][0] = out
		samples[i][1] = out

		t.phase++
		if t.phase >= t.halfPeriod {
			t.phase = 0
			t.high = !t.high
		}
	}
	return len(samples), true
}

// Err implements beep.Streamer.
func (t *Tone) Err() error {
	return nil
}
