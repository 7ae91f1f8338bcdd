package vad

import (
	"fmt"

	"scribe/encoder"
)

// Padding kept around each speech run so word onsets survive trimming.
const trimPadFrames = 15 // 300ms

// Trim drops non-speech stretches from 16 kHz mono samples. It returns the
// kept samples and the share of frames classified as speech. A clip without
// any speech comes back empty.
func Trim(samples []float32, mode int) ([]float32, float64, error) {
	v, err := newVAD(mode)
	if err != nil {
		return nil, 0, fmt.Errorf("vad: %w", err)
	}

	n := len(samples) / FrameSamples
	if n == 0 {
		return samples, 1, nil
	}
	speech := make([]bool, n)
	count := 0
	var frame []byte
	for i := 0; i < n; i++ {
		frame = appendPCM16(frame[:0], samples[i*FrameSamples:(i+1)*FrameSamples])
		active, err := v.Process(encoder.SampleRate, frame)
		if err != nil {
			return nil, 0, fmt.Errorf("vad frame %d: %w", i, err)
		}
		speech[i] = active
		if active {
			count++
		}
	}

	keep := make([]bool, n)
	for i, s := range speech {
		if !s {
			continue
		}
		for j := max(0, i-trimPadFrames); j <= min(n-1, i+trimPadFrames); j++ {
			keep[j] = true
		}
	}

	out := make([]float32, 0, len(samples))
	for i, k := range keep {
		if k {
			out = append(out, samples[i*FrameSamples:(i+1)*FrameSamples]...)
		}
	}
	if keep[n-1] {
		out = append(out, samples[n*FrameSamples:]...)
	}
	return out, float64(count) / float64(n), nil
}
