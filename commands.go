package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"scribe/audio"
	"scribe/log"
	"scribe/recorder"
	"scribe/refine"
	"scribe/summary"
	"scribe/transcriber"
	"scribe/transcript"
)

func (a *app) cmdRecord(args []string, setup bool) int {
	name := strings.Join(args, " ")

	ctx, err := audio.NewContext()
	if err != nil {
		return reportError(fmt.Errorf("audio init: %w", err))
	}
	defer ctx.Close()

	if setup {
		dev, err := audio.PickDevice(ctx)
		if err != nil {
			return reportError(err)
		}
		a.cfg.Audio.Device = dev.Name
	}

	engine, err := a.newEngine()
	if err != nil {
		return reportError(err)
	}
	proc := transcript.New(a.cfg, engine, a.vocab)
	if w, ok := engine.(transcriber.Warmer); ok {
		go func() {
			if err := w.Warm(a.ctx); err != nil {
				log.Warnf("engine warm-up: %v", err)
			}
		}()
	}

	ctrl := recorder.New(ctx, recorder.Options{
		Dir:    a.cfg.AudioDir(),
		Device: a.cfg.Audio.Device,
	})
	a.onClose(func() {
		if ctrl.Status() != recorder.Idle {
			ctrl.Abort()
		}
	})

	res, err := runRecordTUI(a.ctx, ctrl, name)
	if err != nil {
		return reportError(err)
	}
	if res == nil {
		fmt.Println("recording discarded")
		return 0
	}
	fmt.Printf("saved %s (%.1fs)\n", res.Path, res.Duration)

	if err := a.process(proc, res.Path, transcript.ModeMic); err != nil {
		return reportError(err)
	}
	return 0
}

func (a *app) cmdTranscribe(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: scribe transcribe <audio>")
		return 2
	}
	engine, err := a.newEngine()
	if err != nil {
		return reportError(err)
	}
	proc := transcript.New(a.cfg, engine, a.vocab)
	if err := a.process(proc, args[0], transcript.ModeFile); err != nil {
		return reportError(err)
	}
	return 0
}

func (a *app) cmdSummarize(args []string) int {
	fs := flag.NewFlagSet("summarize", flag.ContinueOnError)
	typeFlag := fs.String("type", "internal_meeting", "Meeting type ("+strings.Join(summary.Names(), ", ")+")")
	outFlag := fs.String("out", "", "Output directory (default: configured summaries dir)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: scribe summarize -type <meeting> <transcript>")
		return 2
	}
	path := fs.Arg(0)

	text, err := summary.ReadTranscript(path)
	if err != nil {
		return reportError(err)
	}
	text = refine.FromConfig(a.cfg.Transcription, a.vocab).Text(text)

	gen, err := summary.NewGenerator(a.ctx, a.cfg.Summary)
	if err != nil {
		return reportError(err)
	}
	s := &summary.Summarizer{Gen: gen, Vocab: a.vocab, Provider: a.cfg.Summary.Provider}

	fmt.Fprintf(os.Stderr, "summarizing with %s...\n", a.cfg.Summary.Provider)
	out, mt, err := s.Summarize(a.ctx, *typeFlag, text)
	if err != nil {
		return reportError(err)
	}

	dir := *outFlag
	if dir == "" {
		dir = a.cfg.SummariesDir()
	}
	written, err := summary.Write(dir, summary.BaseName(path), mt, out)
	if err != nil {
		return reportError(err)
	}
	fmt.Println(written)
	return 0
}

func (a *app) cmdVocab(args []string) int {
	if len(args) == 0 {
		args = []string{"list"}
	}
	switch args[0] {
	case "list":
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, e := range a.vocab.Entries() {
			fmt.Fprintf(w, "%s\t→ %s\n", e.Source, e.Target)
		}
		w.Flush()
		if a.vocab.Len() == 0 {
			fmt.Printf("no entries in %s\n", a.cfg.Paths.VocabPath)
		}
		return 0
	case "add":
		if len(args) != 3 {
			fmt.Fprintln(os.Stderr, "usage: scribe vocab add <source> <target>")
			return 2
		}
		if err := a.vocab.Add(args[1], args[2]); err != nil {
			return reportError(err)
		}
	case "remove":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "usage: scribe vocab remove <source>")
			return 2
		}
		if !a.vocab.Remove(args[1]) {
			fmt.Fprintf(os.Stderr, "%q not in vocabulary\n", args[1])
			return 1
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown vocab command %q\n", args[0])
		return 2
	}
	if err := a.vocab.Save(); err != nil {
		return reportError(err)
	}
	log.Infof("vocab %s: %d entries", args[0], a.vocab.Len())
	fmt.Printf("%d entries saved to %s\n", a.vocab.Len(), a.cfg.Paths.VocabPath)
	return 0
}

func (a *app) cmdDevices(setup bool) int {
	ctx, err := audio.NewContext()
	if err != nil {
		return reportError(fmt.Errorf("audio init: %w", err))
	}
	defer ctx.Close()

	if setup {
		dev, err := audio.PickDevice(ctx)
		if err != nil {
			return reportError(err)
		}
		fmt.Printf("selected %q; set audio.device in %s or pass -device to keep it\n", dev.Name, "config.toml")
		return 0
	}

	devices, err := ctx.Devices()
	if err != nil {
		return reportError(err)
	}
	selected, _ := audio.SelectInput(ctx, a.cfg.Audio.Device)
	for _, d := range devices {
		if d.InputChannels == 0 {
			continue
		}
		mark := " "
		if selected != nil && d.ID == selected.ID {
			mark = "*"
		}
		tag := ""
		if d.IsDefault {
			tag = " (default)"
		}
		if audio.IsBluetooth(d.Name) {
			tag += " [bluetooth: lower audio quality]"
		}
		fmt.Printf("%s %s%s\n", mark, d.Name, tag)
	}
	return 0
}
