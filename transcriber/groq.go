package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"scribe/errs"
	"scribe/log"
)

const groqURL = "https://api.groq.com/openai/v1/audio/transcriptions"

type Groq struct {
	client *TracedClient
	apiURL string
	apiKey string
	model  string
}

func NewGroq(apiKey, model string) *Groq {
	if model == "" {
		model = "whisper-large-v3-turbo"
	}
	return &Groq{
		client: NewTracedClient(5 * time.Minute),
		apiURL: groqURL,
		apiKey: apiKey,
		model:  model,
	}
}

func (g *Groq) Name() string { return "groq" }

// Warm opens the API connection so the upload skips the TLS handshake.
func (g *Groq) Warm(ctx context.Context) error {
	tls := g.client.Warm(ctx, g.apiURL)
	log.Infof("groq connection warmed: tls=%s", tls.Round(time.Millisecond))
	return nil
}

type groqResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Text         string  `json:"text"`
		Start        float64 `json:"start"`
		End          float64 `json:"end"`
		NoSpeechProb float64 `json:"no_speech_prob"`
		AvgLogProb   float64 `json:"avg_logprob"`
	} `json:"segments"`
}

func (g *Groq) Transcribe(ctx context.Context, path string, opts Options) (*Result, error) {
	p, err := preparePayload(path, opts.VADFilter)
	if err != nil {
		return nil, err
	}
	if p.empty {
		return &Result{Language: opts.Language}, nil
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", p.filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(p.data); err != nil {
		return nil, err
	}

	writer.WriteField("model", g.model)
	writer.WriteField("response_format", "verbose_json")
	writer.WriteField("temperature", "0")
	if opts.Language != "" {
		writer.WriteField("language", opts.Language)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", g.apiURL, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: groq %d: %s", errs.ErrAuth, resp.StatusCode, string(resp.Body))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("groq API error %d: %s", resp.StatusCode, string(resp.Body))
	}

	var gResp groqResponse
	if err := json.Unmarshal(resp.Body, &gResp); err != nil {
		return nil, fmt.Errorf("groq response parse error: %w", err)
	}

	segments := make([]Segment, 0, len(gResp.Segments))
	for _, seg := range gResp.Segments {
		segments = append(segments, Segment{
			Start:        seg.Start,
			End:          seg.End,
			Text:         seg.Text,
			NoSpeechProb: seg.NoSpeechProb,
			AvgLogProb:   seg.AvgLogProb,
		})
	}

	m := resp.Metrics
	log.UploadMetrics(log.Upload{
		Provider:     g.Name(),
		RawSizeKB:    float64(p.rawBytes) / 1024,
		SentSizeKB:   float64(len(p.data)) / 1024,
		SpeechRatio:  p.speechRatio,
		EncodeTimeMs: float64(p.encodeTime.Microseconds()) / 1000,
		DNSTimeMs:    float64(m.DNS.Microseconds()) / 1000,
		TLSTimeMs:    float64(m.TLS.Microseconds()) / 1000,
		TTFBMs:       float64(m.TTFB.Microseconds()) / 1000,
		TotalTimeMs:  float64(m.Total.Microseconds()) / 1000,
		ConnReused:   m.ConnReused,
		TLSProto:     m.TLSProtocol,
	})

	remaining := firstNonEmpty(resp.Header, "x-ratelimit-remaining-requests")
	limit := firstNonEmpty(resp.Header, "x-ratelimit-limit-requests")

	return &Result{
		Text:      gResp.Text,
		Language:  gResp.Language,
		Segments:  segments,
		Metrics:   m,
		RateLimit: remaining + "/" + limit,
	}, nil
}
