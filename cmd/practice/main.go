// Command practice runs a guess session from the terminal. Stills come from
// image files named at the prompt or from an external capture command.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"signpractice/internal/camera"
	"signpractice/internal/practice"
	"signpractice/internal/recognition"
)

const (
	ansiReset     = "\033[0m"
	ansiGreen     = "\033[32m"
	ansiBoldUnder = "\033[1;4;33m"
	ansiDim       = "\033[2m"
)

const helpText = `commands:
  guess [file]  submit a still (a file, or the capture command's output)
  reset         start the sequence over
  dismiss       hide the hint
  state         show progress
  quit          exit`

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] Failed to load .env: %v", err)
	}

	apiURL := os.Getenv("RECOGNITION_API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:5000/"
	}
	var (
		api        = flag.String("api", apiURL, "Recognition service base URL")
		timeout    = flag.Duration("timeout", practice.DefaultTimeout, "Timeout per recognition call")
		quality    = flag.Float64("quality", practice.DefaultCaptureQuality, "Still quality in (0, 1]")
		captureCmd = flag.String("capture-cmd", "", "Command that writes one JPEG or PNG still to stdout")
		device     = flag.String("device", "", "Capture device that must exist, e.g. /dev/video0")
		noColor    = flag.Bool("no-color", false, "Disable ANSI colours")
	)
	flag.Parse()

	if *quality <= 0 || *quality > 1 {
		log.Fatalf("[FATAL] -quality must be in (0, 1], got %v", *quality)
	}

	var (
		cam    practice.Camera
		frames *camera.FrameSource
	)
	if *captureCmd != "" {
		src, err := camera.NewCommandSource(*captureCmd, *device)
		if err != nil {
			log.Fatalf("[FATAL] Invalid capture command: %v", err)
		}
		cam = src
	} else {
		frames = camera.NewFrameSource(true)
		cam = frames
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec := recognition.New(*api,
		recognition.WithTimeout(*timeout),
		recognition.WithSessionKey(uuid.NewString()))
	guess := practice.New(rec, cam,
		practice.WithTimeout(*timeout),
		practice.WithCaptureQuality(*quality))

	if err := guess.Initialize(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "recognition service unavailable, showing the default sequence: %v\n", err)
	}

	r := &repl{guess: guess, frames: frames, out: os.Stdout, color: !*noColor}
	if err := r.run(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("[FATAL] %v", err)
	}
}

type repl struct {
	guess  *practice.GuessSession
	frames *camera.FrameSource
	out    io.Writer
	color  bool
}

// run reads commands until quit, EOF or ctx ends.
func (r *repl) run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(r.out, render(r.guess.View(), r.color))
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Fprint(r.out, "> ")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if done := r.exec(ctx, line); done {
				return nil
			}
		}
	}
}

// exec runs one command line and reports whether the user asked to quit.
func (r *repl) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "guess", "g":
		r.submit(ctx, fields[1:])
	case "reset":
		if err := r.guess.Reset(ctx); err != nil {
			fmt.Fprintf(r.out, "could not start over: %v\n", err)
		}
		fmt.Fprintln(r.out, render(r.guess.View(), r.color))
	case "dismiss":
		r.guess.DismissHint()
		fmt.Fprintln(r.out, render(r.guess.View(), r.color))
	case "state":
		fmt.Fprintln(r.out, render(r.guess.View(), r.color))
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprintln(r.out, helpText)
	default:
		fmt.Fprintf(r.out, "unknown command %q\n%s\n", fields[0], helpText)
	}
	return false
}

func (r *repl) submit(ctx context.Context, args []string) {
	if r.frames != nil {
		if len(args) == 0 {
			fmt.Fprintln(r.out, "usage: guess <image file>")
			return
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Fprintf(r.out, "could not read %s: %v\n", args[0], err)
			return
		}
		r.frames.Offer(data)
	}

	start := time.Now()
	outcome, err := r.guess.SubmitGuess(ctx)
	switch {
	case recognition.IsTransportError(err):
		fmt.Fprintf(r.out, "recognition service did not answer: %v\n", err)
	case err != nil:
		fmt.Fprintf(r.out, "capture failed: %v\n", err)
	default:
		fmt.Fprintf(r.out, "%s in %v\n", outcome, time.Since(start).Round(time.Millisecond))
	}
	fmt.Fprintln(r.out, render(r.guess.View(), r.color))
}

// render draws the sequence on one line followed by the streak and hint.
func render(v practice.View, color bool) string {
	var b strings.Builder
	for i, l := range v.Letters {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(letter(l, color))
	}
	if v.Complete {
		b.WriteString("\nAll letters signed. Type reset to practise again.")
	}
	if v.ConsecutiveErrorCount > 0 {
		fmt.Fprintf(&b, "\nMisses in a row: %d", v.ConsecutiveErrorCount)
	}
	if v.HintVisible {
		b.WriteString("\nHint: check your hand is inside the frame and well lit, and hold the sign still. (dismiss to hide)")
	}
	return b.String()
}

func letter(l practice.LetterView, color bool) string {
	if !color {
		switch l.State {
		case practice.LetterCurrent:
			return "[" + l.Symbol + "]"
		case practice.LetterSolved:
			return strings.ToLower(l.Symbol)
		default:
			return l.Symbol
		}
	}
	switch l.State {
	case practice.LetterCurrent:
		return ansiBoldUnder + l.Symbol + ansiReset
	case practice.LetterSolved:
		return ansiGreen + l.Symbol + ansiReset
	default:
		return ansiDim + l.Symbol + ansiReset
	}
}
