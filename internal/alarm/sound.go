package alarm

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/manav03panchal/bikeguard/internal/logging"
	"github.com/manav03panchal/bikeguard/internal/model"
)

const sampleRate = beep.SampleRate(44100)

// output is the part of the speaker package the alarm uses.
type output interface {
	Init(sr beep.SampleRate, bufferSize int) error
	Play(s beep.Streamer)
	Clear()
}

type speakerOutput struct{}

func (speakerOutput) Init(sr beep.SampleRate, bufferSize int) error {
	return speaker.Init(sr, bufferSize)
}
func (speakerOutput) Play(s beep.Streamer) { speaker.Play(s) }
func (speakerOutput) Clear()               { speaker.Clear() }

// SoundAlarm loops a two-tone siren on the default audio device.
type SoundAlarm struct {
	Low    float64
	High   float64
	Period time.Duration
	Volume float64

	mu      sync.Mutex
	out     output
	ready   bool
	failed  bool
	playing bool
}

// NewSoundAlarm returns a siren sweeping 650-1300 Hz once per second.
func NewSoundAlarm() *SoundAlarm {
	return &SoundAlarm{
		Low:    650,
		High:   1300,
		Period: time.Second,
		Volume: 0.5,
		out:    speakerOutput{},
	}
}

// Start plays the siren until Stop. An unusable audio device is logged once
// and the alarm stays silent.
func (a *SoundAlarm) Start(model.Settings) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.playing || a.failed {
		return
	}
	if !a.ready {
		if err := a.out.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
			a.failed = true
			logging.Warn("audio playback failed", logging.KeyError, err)
			return
		}
		a.ready = true
	}
	a.out.Play(Siren(sampleRate, a.Low, a.High, a.Period, a.Volume))
	a.playing = true
}

// Stop silences the siren.
func (a *SoundAlarm) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.playing {
		return
	}
	a.out.Clear()
	a.playing = false
}

// Playing reports whether the siren is sounding.
func (a *SoundAlarm) Playing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.playing
}

// Siren returns an endless stereo streamer whose pitch rises from low to high
// and falls back over each period.
func Siren(sr beep.SampleRate, low, high float64, period time.Duration, volume float64) beep.Streamer {
	periodSamples := float64(sr.N(period))
	if periodSamples <= 0 {
		periodSamples = float64(sr)
	}
	var phase, pos float64

	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			// triangle sweep: 0 -> 1 -> 0 over one period
			sweep := 1 - math.Abs(2*pos/periodSamples-1)
			freq := low + (high-low)*sweep

			v := volume * math.Sin(phase)
			samples[i][0] = v
			samples[i][1] = v

			phase += 2 * math.Pi * freq / float64(sr)
			if phase > 2*math.Pi {
				phase -= 2 * math.Pi
			}
			pos++
			if pos >= periodSamples {
				pos = 0
			}
		}
		return len(samples), true
	})
}
