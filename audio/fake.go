package audio

import (
	"sync"
	"time"

	"scribe/encoder"
)

const fakeFrameSize = 1024

// FakeContext serves a single fake input device backed by an in-memory clip.
type FakeContext struct {
	samples  []float32
	realtime bool

	mu   sync.Mutex
	last *FakeCapture
}

func NewFakeContext(samples []float32, realtime bool) *FakeContext {
	return &FakeContext{samples: samples, realtime: realtime}
}

func NewFakeContextFromWAV(wavPath string, realtime bool) (*FakeContext, error) {
	samples, _, err := encoder.ReadWAV(wavPath)
	if err != nil {
		return nil, err
	}
	return NewFakeContext(samples, realtime), nil
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake", InputChannels: 1, IsDefault: true}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	c := &FakeCapture{samples: f.samples, realtime: f.realtime, audioDone: make(chan struct{})}
	f.mu.Lock()
	f.last = c
	f.mu.Unlock()
	return c, nil
}

// LastCapture returns the most recently created capture.
func (f *FakeContext) LastCapture() *FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// FakeCapture replays its clip on Start. Tests can also drive it by hand
// with Push.
type FakeCapture struct {
	samples   []float32
	realtime  bool
	audioDone chan struct{}
	doneOnce  sync.Once

	mu       sync.Mutex
	cb       DataCallback
	running  bool
	stopCh   chan struct{}
	feedDone chan struct{}
}

// AudioDone closes once the whole clip has been delivered.
func (f *FakeCapture) AudioDone() <-chan struct{} { return f.audioDone }

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

// Push delivers samples to the callback as the driver would. It is a no-op
// while the capture is stopped.
func (f *FakeCapture) Push(samples []float32) {
	f.mu.Lock()
	cb, running := f.cb, f.running
	f.mu.Unlock()
	if cb != nil && running {
		cb(samples)
	}
}

func (f *FakeCapture) markDone() {
	f.doneOnce.Do(func() { close(f.audioDone) })
}

func (f *FakeCapture) Start() error {
	f.mu.Lock()
	f.running = true
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})
	f.mu.Unlock()

	if len(f.samples) == 0 {
		close(f.feedDone)
		f.markDone()
		return nil
	}

	if !f.realtime {
		for pos := 0; pos < len(f.samples); pos += fakeFrameSize {
			f.Push(f.samples[pos:min(pos+fakeFrameSize, len(f.samples))])
		}
		close(f.feedDone)
		f.markDone()
		return nil
	}

	interval := time.Duration(fakeFrameSize) * time.Second / time.Duration(encoder.SampleRate)
	stop, done := f.stopCh, f.feedDone
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for pos := 0; pos < len(f.samples); pos += fakeFrameSize {
			chunk := make([]float32, min(fakeFrameSize, len(f.samples)-pos))
			copy(chunk, f.samples[pos:])
			f.Push(chunk)
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
		f.markDone()
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	stop, done := f.stopCh, f.feedDone
	f.mu.Unlock()

	close(stop)
	<-done
}

func (f *FakeCapture) Close() { f.Stop() }
