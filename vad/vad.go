// Package vad wraps webrtc voice-activity detection for live monitoring and
// for trimming silence before upload.
package vad

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"

	"scribe/encoder"
)

const (
	Mode          = 3
	FrameMs       = 20
	FrameSamples  = encoder.SampleRate * FrameMs / 1000 // 320 samples
	frameBytes    = FrameSamples * 2                    // 640 bytes
	debounce      = 3                                   // consecutive speech frames to confirm voice
	speechTickMin = 0.10                                // share of frames that must be speech per tick
)

func newVAD(mode int) (*webrtcvad.VAD, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, err
	}
	if err := v.SetMode(mode); err != nil {
		return nil, err
	}
	return v, nil
}

// appendPCM16 encodes float samples as little-endian 16-bit PCM.
func appendPCM16(dst []byte, samples []float32) []byte {
	for _, s := range encoder.ToPCM16(samples) {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(s))
	}
	return dst
}

// Processor tracks speech activity of a live stream. Safe for use by one
// writer and any number of readers.
type Processor struct {
	vad *webrtcvad.VAD

	mu            sync.Mutex
	buf           []byte
	voiceDetected bool
	lastVoiceTime time.Time
	speechRun     int
	totalFrames   int
	speechFrames  int
	tickTotal     int
	tickSpeech    int
}

func NewProcessor() (*Processor, error) {
	v, err := newVAD(Mode)
	if err != nil {
		return nil, fmt.Errorf("vad: %w", err)
	}
	return &Processor{vad: v}, nil
}

func (p *Processor) Process(samples []float32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf = appendPCM16(p.buf, samples)
	for len(p.buf) >= frameBytes {
		frame := p.buf[:frameBytes]

		active, err := p.vad.Process(encoder.SampleRate, frame)
		p.buf = p.buf[frameBytes:]
		if err != nil {
			continue
		}
		p.totalFrames++
		if active {
			p.speechFrames++
			p.speechRun++
			if p.voiceDetected {
				p.lastVoiceTime = time.Now()
			} else if p.speechRun >= debounce {
				p.voiceDetected = true
				p.lastVoiceTime = time.Now()
			}
		} else {
			p.speechRun = 0
		}
	}
}

func (p *Processor) VoiceDetected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.voiceDetected
}

func (p *Processor) LastVoiceTime() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastVoiceTime
}

func (p *Processor) Stats() (total, speech int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalFrames, p.speechFrames
}

// HasSpeechTick reports whether enough frames since the previous call were speech.
func (p *Processor) HasSpeechTick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := p.totalFrames - p.tickTotal
	s := p.speechFrames - p.tickSpeech
	p.tickTotal, p.tickSpeech = p.totalFrames, p.speechFrames
	if t == 0 {
		return false
	}
	return float64(s)/float64(t) >= speechTickMin
}

func (p *Processor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buf = p.buf[:0]
	p.voiceDetected = false
	p.lastVoiceTime = time.Time{}
	p.speechRun = 0
}
