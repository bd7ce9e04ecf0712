// Package recognition is the HTTP client for the remote sign recognition
// service. The service owns practice progress; this client only moves it over
// the wire.
package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"

	"signpractice/internal/types"
)

// Endpoint names, appended to the configured base path.
const (
	EndpointGetState   = "getState"
	EndpointMakeGuess  = "makeGuess"
	EndpointClearState = "clearState"
)

const (
	// ImageField is the multipart field carrying the base64 still.
	ImageField = "base64Image"
	// SessionHeader carries the optional per-client session key.
	SessionHeader = "X-Practice-Session"

	maxResponseBytes = 1 << 20
	defaultTimeout   = 30 * time.Second
)

// Legacy per-letter states.
const (
	legacyUnsolved = 0
	legacySolved   = 1
	legacyCurrent  = 2
)

// Client talks to one recognition service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessionKey string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the transport-level timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithSessionKey sends key with every request so the service can keep
// separate progress per client.
func WithSessionKey(key string) Option {
	return func(c *Client) {
		c.sessionKey = key
	}
}

// New returns a Client rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetState fetches the current progress.
func (c *Client) GetState(ctx context.Context) (types.PracticeState, error) {
	return c.fetchState(ctx, http.MethodGet, EndpointGetState)
}

// ClearState resets progress on the service and returns the fresh state.
func (c *Client) ClearState(ctx context.Context) (types.PracticeState, error) {
	return c.fetchState(ctx, http.MethodPost, EndpointClearState)
}

// MakeGuess submits one base64-encoded still.
func (c *Client) MakeGuess(ctx context.Context, base64Image string) (types.GuessResult, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField(ImageField, base64Image); err != nil {
		return types.GuessResult{}, &TransportError{Op: EndpointMakeGuess, Err: err}
	}
	if err := form.Close(); err != nil {
		return types.GuessResult{}, &TransportError{Op: EndpointMakeGuess, Err: err}
	}

	req, err := c.newRequest(ctx, http.MethodPost, EndpointMakeGuess, &body)
	if err != nil {
		return types.GuessResult{}, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var w wireState
	if err := c.do(req, EndpointMakeGuess, &w); err != nil {
		return types.GuessResult{}, err
	}
	index, err := w.index()
	if err != nil {
		return types.GuessResult{}, &TransportError{Op: EndpointMakeGuess, Err: err}
	}
	return types.GuessResult{CurrentLetterIndex: index}, nil
}

func (c *Client) fetchState(ctx context.Context, method, endpoint string) (types.PracticeState, error) {
	req, err := c.newRequest(ctx, method, endpoint, nil)
	if err != nil {
		return types.PracticeState{}, err
	}
	var w wireState
	if err := c.do(req, endpoint, &w); err != nil {
		return types.PracticeState{}, err
	}
	state, err := w.practiceState()
	if err != nil {
		return types.PracticeState{}, &TransportError{Op: endpoint, Err: err}
	}
	return state, nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+endpoint, body)
	if err != nil {
		return nil, &TransportError{Op: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	if c.sessionKey != "" {
		req.Header.Set(SessionHeader, c.sessionKey)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &TransportError{
			Op:     op,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected response: %q", strings.TrimSpace(string(snippet))),
		}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// wireState accepts the current response shape and the older per-letter one.
type wireState struct {
	CurrentLetterIndex *int     `json:"currentLetterIndex"`
	LetterSequence     []string `json:"letterSequence"`
	SelectedLetters    []string `json:"selectedLetters"`
	SelectedIndecies   []int    `json:"selectedIndecies"`
}

func (w wireState) legacy() bool {
	return w.CurrentLetterIndex == nil && len(w.SelectedIndecies) > 0
}

func (w wireState) index() (int, error) {
	var index int
	switch {
	case w.CurrentLetterIndex != nil:
		index = *w.CurrentLetterIndex
	case w.legacy():
		index = legacyIndex(w.SelectedIndecies)
	default:
		return 0, errors.New("response has no currentLetterIndex")
	}
	if index < 0 {
		return 0, fmt.Errorf("negative currentLetterIndex %d", index)
	}
	return index, nil
}

func (w wireState) practiceState() (types.PracticeState, error) {
	index, err := w.index()
	if err != nil {
		return types.PracticeState{}, err
	}
	sequence := w.LetterSequence
	if w.legacy() {
		sequence = w.SelectedLetters
	}
	if len(sequence) == 0 {
		return types.PracticeState{}, errors.New("response has no letterSequence")
	}
	if index > len(sequence) {
		return types.PracticeState{}, fmt.Errorf("currentLetterIndex %d beyond sequence of %d", index, len(sequence))
	}
	return types.PracticeState{CurrentLetterIndex: index, LetterSequence: sequence}, nil
}

// legacyIndex finds the letter marked current; without one, progress is the
// run of solved letters from the start.
func legacyIndex(states []int) int {
	if i := lo.IndexOf(states, legacyCurrent); i >= 0 {
		return i
	}
	solved := 0
	for _, s := range states {
		if s != legacySolved {
			break
		}
		solved++
	}
	return solved
}
