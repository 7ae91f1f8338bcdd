// Package beep plays short audible cues for recording state changes.
package beep

import "math"

var disabled bool

func Disable() { disabled = true }

const sampleRate = 44100

type cue int

const (
	cueStart cue = iota
	cueEnd
	cuePause
	cueResume
	cueError
	numCues
)

type tone struct {
	freq     float64
	duration float64 // seconds per beep
	volume   float64
	decay    float64
	repeat   int     // beeps in the cue
	gap      float64 // seconds between beeps
}

var tones = [numCues]tone{
	cueStart:  {freq: 1200, duration: 0.05, volume: 0.5, decay: 60, repeat: 1},
	cueEnd:    {freq: 900, duration: 0.12, volume: 0.5, decay: 40, repeat: 1},
	cuePause:  {freq: 700, duration: 0.06, volume: 0.45, decay: 50, repeat: 2, gap: 0.06},
	cueResume: {freq: 1000, duration: 0.06, volume: 0.45, decay: 50, repeat: 2, gap: 0.04},
	cueError:  {freq: 350, duration: 0.08, volume: 0.6, decay: 30, repeat: 2, gap: 0.05},
}

func PlayStart()  { play(cueStart) }
func PlayEnd()    { play(cueEnd) }
func PlayPause()  { play(cuePause) }
func PlayResume() { play(cueResume) }
func PlayError()  { play(cueError) }

// render synthesizes t as mono PCM16 at rate.
func render(t tone, rate int) []int16 {
	n := int(float64(rate) * t.duration)
	gap := int(float64(rate) * t.gap)
	out := make([]int16, 0, n*t.repeat+gap*max(t.repeat-1, 0))
	for r := 0; r < t.repeat; r++ {
		if r > 0 {
			out = append(out, make([]int16, gap)...)
		}
		for i := 0; i < n; i++ {
			x := float64(i) / float64(rate)
			env := math.Exp(-x * t.decay)
			out = append(out, int16(math.Sin(2*math.Pi*t.freq*x)*32767*t.volume*env))
		}
	}
	return out
}
