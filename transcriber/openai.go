package transcriber

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"scribe/errs"
	"scribe/log"
)

type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey, model string) *OpenAI {
	return NewOpenAIWithConfig(openai.DefaultConfig(apiKey), model)
}

// NewOpenAIWithConfig is used for OpenAI-compatible servers and tests.
func NewOpenAIWithConfig(cfg openai.ClientConfig, model string) *OpenAI {
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Transcribe(ctx context.Context, path string, opts Options) (*Result, error) {
	p, err := preparePayload(path, opts.VADFilter)
	if err != nil {
		return nil, err
	}
	if p.empty {
		return &Result{Language: opts.Language}, nil
	}

	start := time.Now()
	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.model,
		FilePath: p.filename,
		Reader:   bytes.NewReader(p.data),
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: opts.Language,
	})
	if err != nil {
		if authFailure(err) {
			return nil, fmt.Errorf("%w: openai: %v", errs.ErrAuth, err)
		}
		return nil, fmt.Errorf("openai transcription: %w", err)
	}

	log.UploadMetrics(log.Upload{
		Provider:     o.Name(),
		RawSizeKB:    float64(p.rawBytes) / 1024,
		SentSizeKB:   float64(len(p.data)) / 1024,
		SpeechRatio:  p.speechRatio,
		EncodeTimeMs: float64(p.encodeTime.Microseconds()) / 1000,
		TotalTimeMs:  float64(time.Since(start).Microseconds()) / 1000,
	})

	segments := make([]Segment, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		segments = append(segments, Segment{
			Start:        seg.Start,
			End:          seg.End,
			Text:         seg.Text,
			NoSpeechProb: seg.NoSpeechProb,
			AvgLogProb:   seg.AvgLogprob,
		})
	}
	return &Result{
		Text:     resp.Text,
		Language: resp.Language,
		Segments: segments,
	}, nil
}

func authFailure(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusUnauthorized || reqErr.HTTPStatusCode == http.StatusForbidden
	}
	return false
}
