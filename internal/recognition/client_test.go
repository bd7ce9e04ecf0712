package recognition

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signpractice/internal/types"
)

func TestGetState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/getState", r.URL.Path)
		assert.Equal(t, "abc123", r.Header.Get(SessionHeader))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"currentLetterIndex":1,"letterSequence":["E","N","G","I","R"]}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/api/", WithSessionKey("abc123"))
	state, err := c.GetState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.PracticeState{CurrentLetterIndex: 1, LetterSequence: []string{"E", "N", "G", "I", "R"}}, state)
}

func TestGetState_LegacyShape(t *testing.T) {
	tests := []struct {
		name string
		body string
		want types.PracticeState
	}{
		{
			name: "current marker",
			body: `{"selectedLetters":["A","B","C"],"selectedIndecies":[1,2,0]}`,
			want: types.PracticeState{CurrentLetterIndex: 1, LetterSequence: []string{"A", "B", "C"}},
		},
		{
			name: "all solved",
			body: `{"selectedLetters":["A","B"],"selectedIndecies":[1,1]}`,
			want: types.PracticeState{CurrentLetterIndex: 2, LetterSequence: []string{"A", "B"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			state, err := New(srv.URL).GetState(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, state)
		})
	}
}

func TestMakeGuess_SendsMultipartImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/makeGuess", r.URL.Path)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "aW1hZ2U=", r.FormValue(ImageField))
		assert.Len(t, r.MultipartForm.Value, 1)
		_, _ = w.Write([]byte(`{"currentLetterIndex":3}`))
	}))
	defer srv.Close()

	res, err := New(srv.URL).MakeGuess(context.Background(), "aW1hZ2U=")
	require.NoError(t, err)
	assert.Equal(t, 3, res.CurrentLetterIndex)
}

func TestClearState(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/clearState", r.URL.Path)
		_, _ = w.Write([]byte(`{"currentLetterIndex":0,"letterSequence":["S","I","G","N"]}`))
	}))
	defer srv.Close()

	state, err := New(srv.URL).ClearState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, state.CurrentLetterIndex)
	assert.Equal(t, []string{"S", "I", "G", "N"}, state.LetterSequence)
	assert.EqualValues(t, 1, calls.Load())
}

func TestTransportErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{"server error", http.StatusInternalServerError, "kaboom", http.StatusInternalServerError},
		{"bad json", http.StatusOK, "{not json", http.StatusOK},
		{"missing index", http.StatusOK, `{"letterSequence":["A"]}`, 0},
		{"negative index", http.StatusOK, `{"currentLetterIndex":-1,"letterSequence":["A"]}`, 0},
		{"index past end", http.StatusOK, `{"currentLetterIndex":5,"letterSequence":["A"]}`, 0},
		{"empty sequence", http.StatusOK, `{"currentLetterIndex":0,"letterSequence":[]}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL).GetState(context.Background())
			require.Error(t, err)
			var te *TransportError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, EndpointGetState, te.Op)
			assert.Equal(t, tt.wantStatus, te.Status)
			assert.True(t, IsTransportError(err))
		})
	}
}

func TestTransportError_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url).MakeGuess(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
}

func TestTransportError_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := New(srv.URL).MakeGuess(ctx, "x")
	require.Error(t, err)
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.True(t, te.Timeout())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTransportError_Message(t *testing.T) {
	err := &TransportError{Op: EndpointMakeGuess, Status: 502, Err: errors.New("bad gateway")}
	assert.Equal(t, "recognition makeGuess: status 502: bad gateway", err.Error())
	err = &TransportError{Op: EndpointGetState, Err: errors.New("refused")}
	assert.Equal(t, "recognition getState: refused", err.Error())
	assert.False(t, err.Timeout())
}
