package transcriber

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scribe/encoder"
	"scribe/vad"
)

type payload struct {
	data        []byte
	filename    string
	rawBytes    int
	speechRatio float64
	encodeTime  time.Duration
	empty       bool // VAD found no speech at all
}

// preparePayload turns a recording into the bytes sent to a remote engine.
// 16 kHz WAV input is optionally VAD-trimmed and compressed to FLAC; any
// other file is sent as-is.
func preparePayload(path string, vadFilter bool) (*payload, error) {
	if encoder.IsWAV(path) {
		samples, rate, err := encoder.ReadWAV(path)
		if err == nil && rate == encoder.SampleRate {
			return encodeSamples(samples, vadFilter)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &payload{
		data:        data,
		filename:    "audio" + strings.ToLower(filepath.Ext(path)),
		rawBytes:    len(data),
		speechRatio: 1,
	}, nil
}

func encodeSamples(samples []float32, vadFilter bool) (*payload, error) {
	start := time.Now()
	p := &payload{filename: "audio.flac", rawBytes: len(samples) * 2, speechRatio: 1}
	if vadFilter {
		trimmed, ratio, err := vad.Trim(samples, vad.Mode)
		if err != nil {
			return nil, err
		}
		samples, p.speechRatio = trimmed, ratio
		if len(samples) == 0 {
			p.empty = true
			return p, nil
		}
	}
	data, err := encoder.EncodeFLAC(samples)
	if err != nil {
		return nil, fmt.Errorf("encoding upload: %w", err)
	}
	p.data = data
	p.encodeTime = time.Since(start)
	return p, nil
}
