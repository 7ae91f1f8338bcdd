package transcriber

import (
	"context"
	"sync"
)

// FakeEngine returns scripted results, one per VAD mode, and records calls.
type FakeEngine struct {
	Filtered   *Result // returned when VADFilter is set
	Unfiltered *Result
	Err        error
	RetryErr   error // returned for unfiltered calls when set

	mu    sync.Mutex
	calls []Options
}

func NewFake(text string, err error) *FakeEngine {
	r := &Result{Text: text}
	return &FakeEngine{Filtered: r, Unfiltered: r, Err: err}
}

func (f *FakeEngine) Name() string { return "fake" }

func (f *FakeEngine) Transcribe(_ context.Context, _ string, opts Options) (*Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	src := f.Filtered
	if !opts.VADFilter {
		if f.RetryErr != nil {
			return nil, f.RetryErr
		}
		src = f.Unfiltered
	}
	if src == nil {
		return &Result{}, nil
	}
	out := *src
	out.Segments = append([]Segment(nil), src.Segments...)
	return &out, nil
}

func (f *FakeEngine) Calls() []Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Options(nil), f.calls...)
}
