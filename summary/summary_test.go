package summary

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"

	"scribe/config"
	"scribe/errs"
)

type replacerFunc func(string) string

func (f replacerFunc) Apply(s string) string { return f(s) }

func TestGenerateMinutesEmptyTranscript(t *testing.T) {
	called := false
	gen := GeneratorFunc(func(context.Context, string) (string, error) {
		called = true
		return "x", nil
	})
	for _, tr := range []string{"", "  \n\t"} {
		_, err := GenerateMinutes(context.Background(), gen, tr, "preamble", "internal_meeting")
		if !errors.Is(err, errs.ErrEmptyTranscript) {
			t.Errorf("err = %v, want ErrEmptyTranscript", err)
		}
		if errs.KindOf(err) != errs.KindGeneration {
			t.Errorf("kind = %v", errs.KindOf(err))
		}
	}
	if called {
		t.Error("generator called for an empty transcript")
	}
}

func TestGenerateMinutesEmptyResponse(t *testing.T) {
	gen := GeneratorFunc(func(context.Context, string) (string, error) { return "  \n", nil })
	_, err := GenerateMinutes(context.Background(), gen, "texto", "p", "l")
	if !errors.Is(err, errs.ErrEmptyLLMResponse) {
		t.Fatalf("err = %v, want ErrEmptyLLMResponse", err)
	}
}

func TestGenerateMinutesPrompt(t *testing.T) {
	var prompt string
	gen := GeneratorFunc(func(_ context.Context, p string) (string, error) {
		prompt = p
		return "  # Ata  \n", nil
	})
	out, err := GenerateMinutes(context.Background(), gen, "bom dia a todos", "PREAMBLE", "kickoff")
	if err != nil {
		t.Fatal(err)
	}
	if out != "# Ata" {
		t.Errorf("out = %q", out)
	}
	want := "PREAMBLE\n\nSession context: kickoff\n\nMeeting transcript:\n\"\"\"\nbom dia a todos\n\"\"\"\n\nWrite the minutes following the instructions above."
	if prompt != want {
		t.Errorf("prompt = %q", prompt)
	}
}

func TestGeneratorErrorKind(t *testing.T) {
	gen := GeneratorFunc(func(context.Context, string) (string, error) { return "", errors.New("connection refused") })
	_, err := GenerateDaily(context.Background(), gen, "texto", "p")
	if errs.KindOf(err) != errs.KindGeneration {
		t.Errorf("kind = %v, err = %v", errs.KindOf(err), err)
	}
}

func TestLookup(t *testing.T) {
	for _, tt := range []struct{ in, want string }{
		{"daily", "daily"},
		{" Internal-Meeting ", "internal_meeting"},
		{"meeting", "internal_meeting"},
		{"course", "training"},
		{"capacitation", "training"},
		{"postmortem", "incident_postmortem"},
		{"reuniao_externa", "external_meeting"},
		{"outro", "other"},
	} {
		mt, err := Lookup(tt.in)
		if err != nil || mt.Name != tt.want {
			t.Errorf("Lookup(%q) = %q, %v; want %q", tt.in, mt.Name, err, tt.want)
		}
	}

	_, err := Lookup("brainstorm")
	if !errors.Is(err, errs.ErrUnknownMeetingType) || errs.KindOf(err) != errs.KindInput {
		t.Errorf("err = %v", err)
	}
}

func TestEveryTypeHasPreamble(t *testing.T) {
	for _, name := range Names() {
		mt, _ := Lookup(name)
		if mt.Preamble() == "" {
			t.Errorf("%s has an empty preamble", name)
		}
	}
}

func TestPostprocess(t *testing.T) {
	vocab := replacerFunc(func(s string) string { return strings.ReplaceAll(s, "Kubernets", "Kubernetes") })
	in := "Re-envolver do Kubernets e re-envolver dos submetos"
	want := "Handover (transferência) do Kubernetes e handover (transferência) dos suprimentos"
	if got := Postprocess(in, vocab); got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
	if got := Postprocess("submetoss", nil); got != "submetoss" {
		t.Errorf("partial word replaced: %q", got)
	}
}

func TestSummarize(t *testing.T) {
	var prompt string
	s := &Summarizer{
		Gen: GeneratorFunc(func(_ context.Context, p string) (string, error) {
			prompt = p
			return "## Progress\n- submetos entregues", nil
		}),
		Provider: "fake",
	}
	out, mt, err := s.Summarize(context.Background(), "standup", "ontem entreguei os submetos")
	if err != nil {
		t.Fatal(err)
	}
	if mt.Name != "daily" || mt.Suffix != "daily_summary" {
		t.Errorf("type = %+v", mt)
	}
	if !strings.Contains(prompt, "Refined transcript:") || strings.Contains(prompt, "Session context") {
		t.Errorf("daily prompt = %q", prompt)
	}
	if out != "## Progress\n- suprimentos entregues" {
		t.Errorf("out = %q", out)
	}

	if _, _, err := s.Summarize(context.Background(), "nope", "x"); !errors.Is(err, errs.ErrUnknownMeetingType) {
		t.Errorf("err = %v", err)
	}
}

func TestBaseName(t *testing.T) {
	for _, tt := range []struct{ in, want string }{
		{"out/transcripts/daily_2026-01-02_10-00-00.txt", "daily_2026-01-02_10-00-00"},
		{"out/transcripts/daily.raw.txt", "daily"},
		{"reunião geral.txt", "reunião_geral"},
		{"dir/.txt", "summary"},
	} {
		if got := BaseName(tt.in); got != tt.want {
			t.Errorf("BaseName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteAndReadTranscript(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "summaries")
	mt, _ := Lookup("internal_meeting")
	path, err := Write(dir, "sync", mt, "# Ata")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "sync_internal_meeting_minutes.md" {
		t.Errorf("path = %s", path)
	}
	raw, _ := os.ReadFile(path)
	if string(raw) != "\ufeff# Ata\n" {
		t.Errorf("content = %q", raw)
	}

	text, err := ReadTranscript(path)
	if err != nil || text != "# Ata\n" {
		t.Errorf("ReadTranscript = %q, %v", text, err)
	}
	if _, err := ReadTranscript(filepath.Join(dir, "missing.txt")); errs.KindOf(err) != errs.KindInput {
		t.Errorf("missing file kind = %v", errs.KindOf(err))
	}
}

func TestChatGenerator(t *testing.T) {
	var req openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &req)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gemma3:4b","choices":[{"index":0,"message":{"role":"assistant","content":"## Resumo"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("ollama")
	cfg.BaseURL = srv.URL + "/v1"
	out, err := NewChat(cfg, "gemma3:4b", 0.2).Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatal(err)
	}
	if out != "## Resumo" {
		t.Errorf("out = %q", out)
	}
	if req.Model != "gemma3:4b" || len(req.Messages) != 1 || req.Messages[0].Content != "prompt" {
		t.Errorf("request = %+v", req)
	}
}

func TestNewGenerator(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	ctx := context.Background()

	if g, err := NewGenerator(ctx, config.Default().Summary); err != nil {
		t.Errorf("ollama: %v", err)
	} else if _, ok := g.(*ChatGenerator); !ok {
		t.Errorf("ollama generator = %T", g)
	}
	if _, err := NewGenerator(ctx, config.Summary{Provider: "openai"}); err == nil {
		t.Error("openai without key should fail")
	}
	if _, err := NewGenerator(ctx, config.Summary{Provider: "gemini"}); err == nil {
		t.Error("gemini without key should fail")
	}
	if _, err := NewGenerator(ctx, config.Summary{Provider: "claude"}); err == nil {
		t.Error("unknown provider should fail")
	}
}

func TestNewGeneratorProviderDefaultModel(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &req)
		gotModel = req.Model
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()
	t.Setenv("OPENAI_API_KEY", "sk-test")

	path := filepath.Join(t.TempDir(), "config.toml")
	doc := "[summary]\nprovider = \"openai\"\nbase_url = \"" + srv.URL + "/v1\"\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	g, err := NewGenerator(context.Background(), cfg.Summary)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Generate(context.Background(), "prompt"); err != nil {
		t.Fatal(err)
	}
	if gotModel != openai.GPT4oMini {
		t.Errorf("model sent = %q, want %q", gotModel, openai.GPT4oMini)
	}
}

func TestModel(t *testing.T) {
	tests := []struct {
		cfg  config.Summary
		want string
	}{
		{config.Default().Summary, "gemma3:4b"},
		{config.Summary{Provider: "ollama"}, "gemma3:4b"},
		{config.Summary{Provider: "openai"}, openai.GPT4oMini},
		{config.Summary{Provider: "gemini"}, "gemini-2.5-flash"},
		{config.Summary{Provider: "openai", Model: "gpt-4o"}, "gpt-4o"},
	}
	for _, tt := range tests {
		if got := Model(tt.cfg); got != tt.want {
			t.Errorf("Model(%+v) = %q, want %q", tt.cfg, got, tt.want)
		}
	}
}
