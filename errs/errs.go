package errs

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindInput
	KindSignalQuality
	KindTranscriptionBackend
	KindPipelineInvariant
	KindGeneration
	KindResource
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindSignalQuality:
		return "signal_quality"
	case KindTranscriptionBackend:
		return "transcription_backend"
	case KindPipelineInvariant:
		return "pipeline_invariant"
	case KindGeneration:
		return "generation"
	case KindResource:
		return "resource"
	case KindState:
		return "state"
	}
	return "unknown"
}

var (
	ErrNoInputDevice      = errors.New("no input device available")
	ErrSessionActive      = errors.New("recording session already active")
	ErrNoSession          = errors.New("no active recording session")
	ErrTooShort           = errors.New("recording too short")
	ErrInvalidSignal      = errors.New("recording has no signal variation")
	ErrJoinTimeout        = errors.New("capture worker did not exit")
	ErrAudioNotFound      = errors.New("audio file not found")
	ErrModelLoad          = errors.New("speech model failed to load")
	ErrAuth               = errors.New("authentication rejected")
	ErrEmptyTranscript    = errors.New("transcript is empty")
	ErrEmptyLLMResponse   = errors.New("language model returned no content")
	ErrUnknownMeetingType = errors.New("unknown meeting type")
)

var sentinelKinds = map[error]Kind{
	ErrNoInputDevice:      KindInput,
	ErrAudioNotFound:      KindInput,
	ErrUnknownMeetingType: KindInput,
	ErrSessionActive:      KindState,
	ErrNoSession:          KindState,
	ErrTooShort:           KindSignalQuality,
	ErrInvalidSignal:      KindSignalQuality,
	ErrJoinTimeout:        KindResource,
	ErrModelLoad:          KindTranscriptionBackend,
	ErrAuth:               KindTranscriptionBackend,
	ErrEmptyTranscript:    KindGeneration,
	ErrEmptyLLMResponse:   KindGeneration,
}

// Error annotates a failure with the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with op. The kind is taken from the first sentinel found in the
// chain unless kind is given explicitly.
func E(op string, err error, kind ...Kind) error {
	if err == nil {
		return nil
	}
	k := KindOf(err)
	if len(kind) > 0 {
		k = kind[0]
	}
	return &Error{Kind: k, Op: op, Err: err}
}

func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) && e.Kind != KindUnknown {
		return e.Kind
	}
	for sentinel, k := range sentinelKinds {
		if errors.Is(err, sentinel) {
			return k
		}
	}
	return KindUnknown
}

// Fatal reports whether err ends the current session rather than the process.
// Only resource leaks are treated as fatal to the process.
func Fatal(err error) bool {
	return KindOf(err) == KindResource
}
