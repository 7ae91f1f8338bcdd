// Package recorder owns the microphone capture loop and its
// idle → recording ⇄ paused → finalizing → idle lifecycle.
//
// The driver callback never touches the frame buffer. It copies each buffer
// into a bounded channel; a single worker goroutine drains that channel and is
// the only writer of the samples. The controlling side only flips atomic
// flags and reads snapshots.
package recorder

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"scribe/audio"
	"scribe/encoder"
	"scribe/errs"
	"scribe/log"
	"scribe/vad"
)

type Status int32

const (
	Idle Status = iota
	Recording
	Paused
	Finalizing
)

func (s Status) String() string {
	switch s {
	case Recording:
		return "recording"
	case Paused:
		return "paused"
	case Finalizing:
		return "finalizing"
	}
	return "idle"
}

type Options struct {
	Dir         string // where WAV files are written
	Device      string // preferred input device name, empty for automatic
	JoinTimeout time.Duration
	QueueDepth  int // buffers held between driver callback and worker

	MinDuration float64
	TargetPeak  float32
	Epsilon     float64
}

type Event struct {
	From, To Status
	At       time.Time
	Result   *Finalized
	Err      error
}

// Snapshot is a point-in-time copy of the session for UI polling.
type Snapshot struct {
	Status    Status
	Base      string
	Device    string
	StartedAt time.Time
	Elapsed   time.Duration // wall time since start
	Recorded  time.Duration // wall time not spent paused
	Paused    time.Duration
	Captured  time.Duration // audio actually buffered
	Level     float32       // RMS of the latest buffer
	Voice     bool
	Overruns  int64
}

// voiceMonitor is fed every captured buffer by the worker.
type voiceMonitor interface {
	Process(samples []float32)
	VoiceDetected() bool
	HasSpeechTick() bool
}

type session struct {
	base      string
	device    string
	capture   audio.CaptureDevice
	vad       voiceMonitor
	startedAt time.Time

	frames chan []float32
	stopCh chan struct{}
	done   chan struct{}

	// written by the worker only; read after done is closed
	samples []float32

	captured atomic.Int64
	level    atomic.Uint32
	overruns atomic.Int64
}

type Controller struct {
	ctx  audio.Context
	opts Options

	status atomic.Int32
	paused atomic.Bool

	mu      sync.Mutex // serializes Start/Pause/Resume/Stop/Abort
	session *session
	live    atomic.Pointer[session] // read side for Snapshot

	clockMu     sync.Mutex
	pausedAt    time.Time
	pausedTotal time.Duration

	events chan Event
	now    func() time.Time
	newVAD func() (voiceMonitor, error)
}

func New(ctx audio.Context, opts Options) *Controller {
	if opts.JoinTimeout <= 0 {
		opts.JoinTimeout = 5 * time.Second
	}
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = 256
	}
	return &Controller{
		ctx:    ctx,
		opts:   opts,
		events: make(chan Event, 16),
		now:    time.Now,
		newVAD: func() (voiceMonitor, error) { return vad.NewProcessor() },
	}
}

// Events delivers state transitions. Slow readers miss events.
func (c *Controller) Events() <-chan Event { return c.events }

func (c *Controller) Status() Status { return Status(c.status.Load()) }

func (c *Controller) transition(from, to Status, res *Finalized, err error) {
	c.status.Store(int32(to))
	log.RecordingState(from.String(), to.String())
	select {
	case c.events <- Event{From: from, To: to, At: c.now(), Result: res, Err: err}:
	default:
	}
}

// Start opens the input device and begins capturing into a new session.
func (c *Controller) Start(baseName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Status() != Idle {
		return errs.E("start", errs.ErrSessionActive)
	}

	dev, err := audio.SelectInput(c.ctx, c.opts.Device)
	if err != nil {
		return errs.E("start", err)
	}
	if audio.IsBluetooth(dev.Name) {
		log.Warnf("input %q looks like a bluetooth headset; expect reduced quality", dev.Name)
	}

	capture, err := c.ctx.NewCapture(dev, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		return errs.E("start", fmt.Errorf("opening %s: %w", dev.Name, err), errs.KindResource)
	}

	s := &session{
		base:      baseName,
		device:    capture.DeviceName(),
		capture:   capture,
		startedAt: c.now(),
		frames:    make(chan []float32, c.opts.QueueDepth),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	if p, err := c.newVAD(); err == nil {
		s.vad = p
	} else {
		log.Warnf("voice monitor unavailable: %v", err)
	}

	c.paused.Store(false)
	c.clockMu.Lock()
	c.pausedAt = time.Time{}
	c.pausedTotal = 0
	c.clockMu.Unlock()

	capture.SetCallback(c.callback(s))
	go s.run()

	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		close(s.stopCh)
		<-s.done
		capture.Close()
		return errs.E("start", fmt.Errorf("starting capture: %w", err), errs.KindResource)
	}

	c.session = s
	c.live.Store(s)
	log.Infof("recording started: base=%q device=%q", baseName, s.device)
	c.transition(Idle, Recording, nil, nil)
	return nil
}

// callback runs on the driver thread. It never blocks: frames arriving while
// paused are dropped, frames that do not fit the queue are counted.
func (c *Controller) callback(s *session) audio.DataCallback {
	return func(samples []float32) {
		if c.paused.Load() || len(samples) == 0 {
			return
		}
		buf := make([]float32, len(samples))
		copy(buf, samples)
		select {
		case s.frames <- buf:
		default:
			s.overruns.Add(1)
		}
	}
}

func (s *session) consume(buf []float32) {
	s.samples = append(s.samples, buf...)
	s.captured.Add(int64(len(buf)))
	s.level.Store(math.Float32bits(rms(buf)))
	if s.vad != nil {
		s.vad.Process(buf)
	}
}

func (s *session) run() {
	defer close(s.done)
	for {
		select {
		case buf := <-s.frames:
			s.consume(buf)
		case <-s.stopCh:
			for {
				select {
				case buf := <-s.frames:
					s.consume(buf)
				default:
					return
				}
			}
		}
	}
}

// Pause drops captured audio until Resume. Pausing a paused session is a no-op.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.Status() {
	case Paused:
		log.Warn("pause ignored: already paused")
		return nil
	case Recording:
	default:
		return errs.E("pause", errs.ErrNoSession)
	}

	c.paused.Store(true)
	c.clockMu.Lock()
	c.pausedAt = c.now()
	c.clockMu.Unlock()
	c.transition(Recording, Paused, nil, nil)
	return nil
}

// Resume continues a paused session. Resuming a running session is a no-op.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.Status() {
	case Recording:
		log.Warn("resume ignored: already recording")
		return nil
	case Paused:
	default:
		return errs.E("resume", errs.ErrNoSession)
	}

	c.clockMu.Lock()
	c.pausedTotal += c.now().Sub(c.pausedAt)
	c.pausedAt = time.Time{}
	c.clockMu.Unlock()
	c.paused.Store(false)
	c.transition(Paused, Recording, nil, nil)
	return nil
}

// Toggle pauses a running session or resumes a paused one.
func (c *Controller) Toggle() error {
	if c.Status() == Paused {
		return c.Resume()
	}
	return c.Pause()
}

// halt stops the driver and joins the worker. The session is detached and
// the controller is back to idle whatever the outcome.
func (c *Controller) halt(op string) (*session, error) {
	s := c.session
	c.transition(c.Status(), Finalizing, nil, nil)

	if c.paused.Load() {
		c.clockMu.Lock()
		c.pausedTotal += c.now().Sub(c.pausedAt)
		c.pausedAt = time.Time{}
		c.clockMu.Unlock()
	}

	s.capture.Stop()
	s.capture.ClearCallback()
	close(s.stopCh)

	timer := time.NewTimer(c.opts.JoinTimeout)
	defer timer.Stop()
	select {
	case <-s.done:
	case <-timer.C:
		s.capture.Close()
		c.session = nil
		c.live.Store(nil)
		c.paused.Store(false)
		err := errs.E(op, fmt.Errorf("%w after %s", errs.ErrJoinTimeout, c.opts.JoinTimeout))
		c.transition(Finalizing, Idle, nil, err)
		return nil, err
	}

	s.capture.Close()
	c.session = nil
	c.live.Store(nil)
	c.paused.Store(false)
	return s, nil
}

// Stop ends the session and writes the captured audio to disk.
func (c *Controller) Stop() (*Finalized, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if st := c.Status(); st != Recording && st != Paused {
		return nil, errs.E("stop", errs.ErrNoSession)
	}

	recorded, paused := c.clocks()
	s, err := c.halt("stop")
	if err != nil {
		return nil, err
	}

	res, err := Finalize(s.samples, FinalizeOptions{
		Dir:         c.opts.Dir,
		BaseName:    s.base,
		SampleRate:  encoder.SampleRate,
		Time:        s.startedAt,
		MinDuration: c.opts.MinDuration,
		TargetPeak:  c.opts.TargetPeak,
		Epsilon:     c.opts.Epsilon,
	})
	if err != nil {
		log.Warnf("recording rejected: %v", err)
		c.transition(Finalizing, Idle, nil, err)
		return nil, err
	}

	log.RecordingFinalized(log.Recording{
		Path:      res.Path,
		Device:    s.device,
		DurationS: res.Duration,
		RecordedS: recorded.Seconds(),
		PausedS:   paused.Seconds(),
		Peak:      float64(res.Peak),
		Std:       res.Std,
		Overruns:  s.overruns.Load(),
	})
	c.transition(Finalizing, Idle, res, nil)
	return res, nil
}

// Abort ends the session without writing anything.
func (c *Controller) Abort() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if st := c.Status(); st != Recording && st != Paused {
		return nil
	}
	if _, err := c.halt("abort"); err != nil {
		return err
	}
	log.Info("recording aborted")
	c.transition(Finalizing, Idle, nil, nil)
	return nil
}

func (c *Controller) clocks() (recorded, paused time.Duration) {
	c.clockMu.Lock()
	defer c.clockMu.Unlock()
	paused = c.pausedTotal
	if !c.pausedAt.IsZero() {
		paused += c.now().Sub(c.pausedAt)
	}
	s := c.session
	if s == nil {
		return 0, paused
	}
	return c.now().Sub(s.startedAt) - paused, paused
}

// Snapshot never blocks on Stop; it only reads atomics and the clock fields.
func (c *Controller) Snapshot() Snapshot {
	snap := Snapshot{Status: c.Status()}
	if snap.Status == Idle {
		return snap
	}

	c.clockMu.Lock()
	pausedTotal, pausedAt := c.pausedTotal, c.pausedAt
	c.clockMu.Unlock()

	s := c.current()
	if s == nil {
		return snap
	}
	now := c.now()
	snap.Base = s.base
	snap.Device = s.device
	snap.StartedAt = s.startedAt
	snap.Elapsed = now.Sub(s.startedAt)
	snap.Paused = pausedTotal
	if !pausedAt.IsZero() {
		snap.Paused += now.Sub(pausedAt)
	}
	snap.Recorded = snap.Elapsed - snap.Paused
	snap.Captured = time.Duration(s.captured.Load()) * time.Second / encoder.SampleRate
	snap.Level = math.Float32frombits(s.level.Load())
	snap.Overruns = s.overruns.Load()
	if s.vad != nil {
		snap.Voice = s.vad.VoiceDetected()
	}
	return snap
}

// SpeechTick reports whether the live voice monitor heard speech since the
// previous call.
func (c *Controller) SpeechTick() bool {
	s := c.current()
	if s == nil || s.vad == nil || c.paused.Load() {
		return false
	}
	return s.vad.HasSpeechTick()
}

func (c *Controller) current() *session { return c.live.Load() }
