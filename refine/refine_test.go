package refine

import (
	"strings"
	"testing"

	"scribe/config"
)

type replacerFunc func(string) string

func (f replacerFunc) Apply(s string) string { return f(s) }

func TestStructuralFillers(t *testing.T) {
	fillers := compileFillers(DefaultFillers)
	for _, tt := range []struct {
		name, in, want string
	}{
		{"empty", "   ", ""},
		{"drops fillers", "né eu acho que tá tudo certo com o projeto", "eu acho que tudo certo com o projeto"},
		{"case insensitive", "Então vamos começar a reunião de hoje", "vamos começar a reunião de hoje"},
		{"keeps words containing fillers", "o sistema está assado", "o sistema está assado"},
		{"elongated hesitation", "éééé a entrega foi adiada para sexta", "a entrega foi adiada para sexta"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := Structural(tt.in, fillers); got != tt.want {
				t.Errorf("Structural(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStructuralParagraphs(t *testing.T) {
	in := "Primeira frase bem longa aqui. Segunda frase bem longa aqui. Terceira frase bem longa aqui. Quarta frase bem longa aqui."
	want := "Primeira frase bem longa aqui. Segunda frase bem longa aqui. Terceira frase bem longa aqui.\n\nQuarta frase bem longa aqui."
	if got := Structural(in, nil); got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestMergeShortSentences(t *testing.T) {
	got := mergeShort(splitSentences("Essa é uma frase comprida o bastante. Sim. Outra frase comprida o bastante."))
	want := []string{"Essa é uma frase comprida o bastante. Sim.", "Outra frase comprida o bastante."}
	if len(got) != len(want) {
		t.Fatalf("got %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitSentencesNeedsWhitespace(t *testing.T) {
	got := splitSentences("versão 1.2 saiu hoje! Funcionou?sim")
	if len(got) != 2 || got[0] != "versão 1.2 saiu hoje!" || got[1] != "Funcionou?sim" {
		t.Errorf("got %q", got)
	}
}

func TestOrality(t *testing.T) {
	if got := Orality("a gente tipo vai tipo tipo fazer", []string{"tipo"}); got != "a gente vai fazer" {
		t.Errorf("got %q", got)
	}
	if got := Orality("x  y", nil); got != "x  y" {
		t.Errorf("empty term list should be a no-op, got %q", got)
	}
	if got := Orality("", []string{"tipo"}); got != "" {
		t.Errorf("got %q", got)
	}
}

func TestRepetition(t *testing.T) {
	for _, tt := range []struct {
		in   string
		max  int
		want string
	}{
		{"ok ok ok", 1, "ok"},
		{"a a b b b", 2, "a a b b"},
		{"ok ok\nok ok", 1, "ok\nok"},
		{"a a a", 0, "a a a"},
		{"", 1, ""},
	} {
		if got := Repetition(tt.in, tt.max); got != tt.want {
			t.Errorf("Repetition(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestLexical(t *testing.T) {
	got := Lexical("Os iscos e os Conis. variedade da CNH e riscos")
	want := "Os riscos e os cones. validade da cnh e riscos"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if Lexical("  ") != "" {
		t.Error("blank input should give empty output")
	}
}

func TestStagesIdempotent(t *testing.T) {
	vocab := replacerFunc(func(s string) string { return strings.ReplaceAll(s, "plano", "roadmap") })
	pipeline := New(Options{MaxRepeats: 1, Vocabulary: vocab})

	stages := []struct {
		name string
		fn   func(string) string
	}{
		{"repetition/1", func(s string) string { return Repetition(s, 1) }},
		{"repetition/2", func(s string) string { return Repetition(s, 2) }},
		{"lexical", Lexical},
		{"pipeline", pipeline.Text},
	}
	inputs := []string{
		"ok ok ok",
		"a a b b b c",
		"sim sim\nnão não não",
		"Os iscos e os Conis. variedade da CNH e riscos",
		"Então o projeto tem muitos muitos iscos. Tá bom pessoal, vamos seguir com o plano.",
		"",
	}
	for _, st := range stages {
		t.Run(st.name, func(t *testing.T) {
			for _, in := range inputs {
				once := st.fn(in)
				if twice := st.fn(once); twice != once {
					t.Errorf("%q: once %q, twice %q", in, once, twice)
				}
			}
		})
	}
}

func TestHallucinationTail(t *testing.T) {
	cfg := TailConfig{MinWords: 5, Window: 3, Diversity: 0.5}
	for _, tt := range []struct {
		name string
		in   string
		cfg  TailConfig
		want string
	}{
		{"repetitive tail", "x y z w w w", cfg, "x y z"},
		{"below min words", "x y w w w", TailConfig{MinWords: 10, Window: 3, Diversity: 0.5}, "x y w w w"},
		{"diverse tail", "a b c d e f", cfg, "a b c d e f"},
		{"disabled", "x y z w w w", TailConfig{}, "x y z w w w"},
		{"keeps paragraphs", "um dois\n\ntres w w w", cfg, "um dois\n\ntres"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := HallucinationTail(tt.in, tt.cfg); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPipeline(t *testing.T) {
	vocab := replacerFunc(func(s string) string { return strings.ReplaceAll(s, "plano", "roadmap") })
	p := New(Options{MaxRepeats: 1, Vocabulary: vocab})

	in := "Então o projeto tem muitos muitos iscos. Tá bom pessoal, vamos seguir com o plano."
	want := "o projeto tem muitos riscos. bom pessoal, vamos seguir com o roadmap."

	got, metrics := p.Apply(in)
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
	names := []string{"structural", "orality", "repetition", "lexical", "hallucination", "vocabulary"}
	if len(metrics) != len(names) {
		t.Fatalf("metrics = %+v", metrics)
	}
	for i, m := range metrics {
		if m.Name != names[i] || m.Guarded {
			t.Errorf("metric %d = %+v", i, m)
		}
	}

	if again := p.Text(got); again != got {
		t.Errorf("second pass changed text: %q", again)
	}
}

func TestPipelineGuardsEmptiedText(t *testing.T) {
	p := &Pipeline{}
	p.add("eraser", func(string) string { return "" })
	p.add("upper", strings.ToUpper)

	got, metrics := p.Apply("oi")
	if got != "OI" {
		t.Errorf("got %q", got)
	}
	if !metrics[0].Guarded || metrics[0].CharsOut != 2 || metrics[1].Guarded {
		t.Errorf("metrics = %+v", metrics)
	}
}

func TestPipelineTailCutCannotEraseEverything(t *testing.T) {
	p := New(Options{Tail: TailConfig{MinWords: 1, Window: 10, Diversity: 0.5}})
	got, metrics := p.Apply("w w w")
	if got != "w w w" {
		t.Errorf("got %q", got)
	}
	if !metrics[4].Guarded {
		t.Errorf("hallucination stage should be guarded: %+v", metrics[4])
	}
}

func TestPipelineEmptyInput(t *testing.T) {
	got, metrics := New(Options{}).Apply("")
	if got != "" {
		t.Errorf("got %q", got)
	}
	for _, m := range metrics {
		if m.Guarded {
			t.Errorf("%s guarded on empty input", m.Name)
		}
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default().Transcription
	if got := FromConfig(cfg, nil).Text("ok ok ok"); got != "ok" {
		t.Errorf("got %q", got)
	}

	cfg.Repetition.Enabled = false
	cfg.Orality = config.Orality{Enabled: true, Terms: []string{"tipo"}}
	if got := FromConfig(cfg, nil).Text("ok ok tipo ok"); got != "ok ok ok" {
		t.Errorf("got %q", got)
	}
}
