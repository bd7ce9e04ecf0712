package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signpractice/internal/camera"
	"signpractice/internal/practice"
	"signpractice/internal/recognition"
)

func TestRenderPlain(t *testing.T) {
	v := practice.View{
		Letters:               practice.Letters([]string{"A", "B", "C"}, 1),
		CurrentLetterIndex:    1,
		ConsecutiveErrorCount: 4,
		HintVisible:           true,
	}
	got := render(v, false)
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "a [B] C", lines[0])
	assert.Equal(t, "Misses in a row: 4", lines[1])
	assert.Contains(t, lines[2], "Hint:")
}

func TestRenderColor(t *testing.T) {
	v := practice.View{Letters: practice.Letters([]string{"A", "B"}, 0)}
	got := render(v, true)
	assert.Equal(t, ansiBoldUnder+"A"+ansiReset+" "+ansiDim+"B"+ansiReset, got)

	done := practice.View{Letters: practice.Letters([]string{"A"}, 1), CurrentLetterIndex: 1, Complete: true}
	got = render(done, true)
	assert.True(t, strings.HasPrefix(got, ansiGreen+"A"+ansiReset))
	assert.Contains(t, got, "All letters signed")
}

func TestREPL(t *testing.T) {
	index := 0
	mux := http.NewServeMux()
	state := func(w http.ResponseWriter) {
		_ = json.NewEncoder(w).Encode(map[string]any{"currentLetterIndex": index, "letterSequence": []string{"O", "K"}})
	}
	mux.HandleFunc("GET /getState", func(w http.ResponseWriter, r *http.Request) { state(w) })
	mux.HandleFunc("POST /makeGuess", func(w http.ResponseWriter, r *http.Request) {
		index++
		_ = json.NewEncoder(w).Encode(map[string]any{"currentLetterIndex": index})
	})
	mux.HandleFunc("POST /clearState", func(w http.ResponseWriter, r *http.Request) {
		index = 0
		state(w)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	still := filepath.Join(t.TempDir(), "still.png")
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	require.NoError(t, os.WriteFile(still, buf.Bytes(), 0644))

	frames := camera.NewFrameSource(true)
	guess := practice.New(recognition.New(srv.URL), frames)
	ctx := context.Background()
	require.NoError(t, guess.Initialize(ctx))

	var out bytes.Buffer
	r := &repl{guess: guess, frames: frames, out: &out}
	input := strings.Join([]string{"guess", "guess " + still, "state", "reset", "bogus", "quit", "state"}, "\n")
	require.NoError(t, r.run(ctx, strings.NewReader(input)))

	text := out.String()
	assert.Contains(t, text, "usage: guess <image file>")
	assert.Contains(t, text, "accepted")
	assert.Contains(t, text, "o [K]")
	assert.Contains(t, text, `unknown command "bogus"`)
	assert.Equal(t, 0, guess.Session().CurrentLetterIndex)
}
