package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"scribe/audio"
	"scribe/errs"
	"scribe/recorder"
	"scribe/transcriber"
	"scribe/transcript"
)

// fakeTextEnv feeds the "fake" engine in test mode.
const fakeTextEnv = "SCRIBE_FAKE_TEXT"

// runTestMode drives a recorder over a WAV clip from line commands on stdin:
//
//	START <name>  PAUSE  RESUME  STOP  ABORT  SLEEP <ms>  WAIT_AUDIO_DONE  QUIT
//
// STOP finalizes and transcribes synchronously. Every command answers with
// one line on stdout so a driver can follow along.
func (a *app) runTestMode(wavPath string) int {
	fakeCtx, err := audio.NewFakeContextFromWAV(wavPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		return 1
	}

	var engine transcriber.Engine
	if a.cfg.Transcription.Engine == "fake" {
		engine = transcriber.NewFake(os.Getenv(fakeTextEnv), nil)
	} else if engine, err = a.newEngine(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	proc := transcript.New(a.cfg, engine, a.vocab)

	ctrl := recorder.New(fakeCtx, recorder.Options{Dir: a.cfg.AudioDir()})
	defer ctrl.Abort()

	go func() {
		for ev := range ctrl.Events() {
			if ev.Err != nil {
				fmt.Printf("STATE %s %s\n", ev.To, errs.KindOf(ev.Err))
				continue
			}
			fmt.Printf("STATE %s\n", ev.To)
		}
	}()

	failures := 0
	reply := func(err error, format string, args ...any) {
		if err != nil {
			failures++
			fmt.Printf("ERROR %s: %v\n", errs.KindOf(err), err)
			return
		}
		fmt.Printf(format+"\n", args...)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if a.ctx.Err() != nil {
			break
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		switch cmd {
		case "":
		case "START":
			reply(ctrl.Start(arg), "OK recording")
		case "PAUSE":
			reply(ctrl.Pause(), "OK %s", ctrl.Status())
		case "RESUME":
			reply(ctrl.Resume(), "OK %s", ctrl.Status())
		case "ABORT":
			reply(ctrl.Abort(), "OK idle")
		case "STOP":
			res, err := ctrl.Stop()
			if err != nil {
				reply(err, "")
				continue
			}
			fmt.Printf("SAVED %s %.2f\n", res.Path, res.Duration)
			if err := a.process(proc, res.Path, transcript.ModeMic); err != nil {
				reply(err, "")
			}
		case "SLEEP":
			if ms, err := strconv.Atoi(arg); err == nil {
				time.Sleep(time.Duration(ms) * time.Millisecond)
			}
			fmt.Println("OK")
		case "WAIT_AUDIO_DONE":
			if c := fakeCtx.LastCapture(); c != nil {
				<-c.AudioDone()
			}
			fmt.Println("OK")
		case "QUIT":
			return exitCode(failures)
		default:
			reply(fmt.Errorf("unknown command %q", cmd), "")
		}
	}
	return exitCode(failures)
}

func exitCode(failures int) int {
	if failures > 0 {
		return 1
	}
	return 0
}
