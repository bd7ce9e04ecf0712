package practice

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"signpractice/internal/types"
)

const (
	// HintThreshold is the error streak the hint appears after.
	HintThreshold = 3
	// DefaultCaptureQuality matches the still quality the service was tuned on.
	DefaultCaptureQuality = 0.2
	// DefaultTimeout bounds every capture and every call to the recognition service.
	DefaultTimeout = 15 * time.Second
)

// DefaultSequence is shown until the service reports a real one.
var DefaultSequence = []string{"E", "N", "G", "I", "R"}

// Recognizer is the remote recognition service.
type Recognizer interface {
	GetState(ctx context.Context) (types.PracticeState, error)
	MakeGuess(ctx context.Context, base64Image string) (types.GuessResult, error)
	ClearState(ctx context.Context) (types.PracticeState, error)
}

// Camera produces encoded stills on demand.
type Camera interface {
	RequestPermission(ctx context.Context) (bool, error)
	CaptureStill(ctx context.Context, quality float64) (string, error)
}

// Session is the client-tracked practice progress.
type Session struct {
	CurrentLetterIndex    int
	LetterSequence        []string
	ConsecutiveErrorCount int
}

func (s Session) clone() Session {
	s.LetterSequence = slices.Clone(s.LetterSequence)
	return s
}

// Outcome is how a guess cycle ended.
type Outcome int

const (
	// OutcomeSkipped means another guess was still in flight.
	OutcomeSkipped Outcome = iota
	// OutcomeNoCapture means there was nothing to capture from.
	OutcomeNoCapture
	// OutcomeAccepted means the service moved to another letter.
	OutcomeAccepted
	// OutcomeRejected means the service kept the same letter.
	OutcomeRejected
	// OutcomeFailed means capture or transport failed; nothing changed.
	OutcomeFailed
	// OutcomeStale means a reset landed while the guess was in flight and
	// its response was dropped.
	OutcomeStale
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeNoCapture:
		return "no-capture"
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	case OutcomeStale:
		return "stale"
	default:
		return "unknown"
	}
}

// GuessSession mediates guess cycles and keeps the local session consistent
// with the service. Presentation layers read View and call the intent methods;
// they never touch Session directly.
type GuessSession struct {
	recognizer Recognizer
	camera     Camera
	quality    float64
	timeout    time.Duration
	onChange   func(Session)

	mu               sync.Mutex
	session          Session
	busy             bool
	generation       uint64
	hintDismissed    bool
	cameraPermission bool
	revision         uint64

	notifyMu sync.Mutex
	notified uint64
}

// Option configures a GuessSession.
type Option func(*GuessSession)

// WithFallback replaces the default session used until the service answers.
func WithFallback(s Session) Option {
	return func(g *GuessSession) {
		if len(s.LetterSequence) == 0 {
			return
		}
		g.session = s.clone()
	}
}

// WithCaptureQuality sets the still quality in (0, 1].
func WithCaptureQuality(q float64) Option {
	return func(g *GuessSession) {
		if q > 0 && q <= 1 {
			g.quality = q
		}
	}
}

// WithTimeout sets the bound on each capture and each recognition call.
func WithTimeout(d time.Duration) Option {
	return func(g *GuessSession) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithChangeHook registers fn to be called with a copy of the session after
// every change. It runs outside the session lock; calls are serialised and a
// change older than one already delivered is not delivered.
func WithChangeHook(fn func(Session)) Option {
	return func(g *GuessSession) {
		g.onChange = fn
	}
}

// New returns a GuessSession holding the default sequence.
func New(recognizer Recognizer, camera Camera, opts ...Option) *GuessSession {
	g := &GuessSession{
		recognizer: recognizer,
		camera:     camera,
		quality:    DefaultCaptureQuality,
		timeout:    DefaultTimeout,
		session:    Session{LetterSequence: slices.Clone(DefaultSequence)},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Initialize asks for camera permission and fetches the session from the
// service. A failed fetch is logged and the fallback session stays in place.
func (g *GuessSession) Initialize(ctx context.Context) error {
	if _, err := g.RequestPermission(ctx); err != nil {
		logWarn("Camera permission request failed: %v", err)
	}

	callCtx, cancel := g.callContext(ctx)
	defer cancel()
	state, err := g.recognizer.GetState(callCtx)
	if err != nil {
		logWarn("Failed to fetch practice state, keeping fallback sequence: %v", err)
		return err
	}
	g.adopt(state)
	logInfo("Practice session initialized at letter %d of %d", state.CurrentLetterIndex, len(state.LetterSequence))
	return nil
}

// RequestPermission asks the camera for permission and records the answer.
func (g *GuessSession) RequestPermission(ctx context.Context) (bool, error) {
	granted, err := g.camera.RequestPermission(ctx)
	if err != nil {
		granted = false
	}
	g.mu.Lock()
	g.cameraPermission = granted
	g.mu.Unlock()
	if !granted && err == nil {
		logInfo("Camera permission denied")
	}
	return granted, err
}

// SubmitGuess runs one capture, submit and reconcile cycle. A call made while
// another is in flight returns OutcomeSkipped without touching the network.
func (g *GuessSession) SubmitGuess(ctx context.Context) (Outcome, error) {
	g.mu.Lock()
	if g.busy {
		g.mu.Unlock()
		return OutcomeSkipped, nil
	}
	g.busy = true
	generation := g.generation
	before := g.session.CurrentLetterIndex
	g.mu.Unlock()
	defer g.clearBusy()

	captureCtx, cancelCapture := g.callContext(ctx)
	image, err := g.camera.CaptureStill(captureCtx, g.quality)
	cancelCapture()
	if err != nil {
		switch {
		case errors.Is(err, ErrNoCaptureDevice):
			return OutcomeNoCapture, nil
		case errors.Is(err, ErrPermissionDenied):
			g.mu.Lock()
			g.cameraPermission = false
			g.mu.Unlock()
		}
		logWarn("Capture failed: %v", err)
		return OutcomeFailed, err
	}
	g.mu.Lock()
	g.cameraPermission = true
	g.mu.Unlock()

	callCtx, cancel := g.callContext(ctx)
	defer cancel()
	result, err := g.recognizer.MakeGuess(callCtx, image)
	if err != nil {
		logWarn("Guess submission failed: %v", err)
		return OutcomeFailed, err
	}

	g.mu.Lock()
	if generation != g.generation {
		g.mu.Unlock()
		logInfo("Dropping guess response for letter %d: session was reset", before)
		return OutcomeStale, nil
	}
	outcome := g.reconcileLocked(before, result.CurrentLetterIndex)
	g.revision++
	snapshot, rev := g.session.clone(), g.revision
	g.mu.Unlock()

	g.notify(snapshot, rev)
	return outcome, nil
}

// reconcileLocked applies a guess response. The caller holds g.mu.
func (g *GuessSession) reconcileLocked(before, returned int) Outcome {
	if returned == before {
		g.session.ConsecutiveErrorCount++
		return OutcomeRejected
	}
	g.session.CurrentLetterIndex = returned
	g.session.ConsecutiveErrorCount = 0
	g.hintDismissed = false
	return OutcomeAccepted
}

// Reset clears the service state and adopts the fresh session it returns.
func (g *GuessSession) Reset(ctx context.Context) error {
	callCtx, cancel := g.callContext(ctx)
	defer cancel()
	state, err := g.recognizer.ClearState(callCtx)
	if err != nil {
		logWarn("Failed to clear practice state: %v", err)
		return err
	}
	g.adopt(state)
	return nil
}

// DismissHint hides the hint until the current error streak ends.
func (g *GuessSession) DismissHint() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hintDismissed = true
}

// HintVisible reports whether the hint should be shown.
func (g *GuessSession) HintVisible() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hintVisibleLocked()
}

func (g *GuessSession) hintVisibleLocked() bool {
	return g.session.ConsecutiveErrorCount > HintThreshold && !g.hintDismissed
}

// Busy reports whether a guess is in flight.
func (g *GuessSession) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy
}

// Session returns a copy of the current session.
func (g *GuessSession) Session() Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session.clone()
}

// View returns the derived render state.
func (g *GuessSession) View() View {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.session
	return View{
		Letters:               Letters(s.LetterSequence, s.CurrentLetterIndex),
		CurrentLetterIndex:    s.CurrentLetterIndex,
		ConsecutiveErrorCount: s.ConsecutiveErrorCount,
		HintVisible:           g.hintVisibleLocked(),
		Busy:                  g.busy,
		CameraPermission:      g.cameraPermission,
		Complete:              s.CurrentLetterIndex >= len(s.LetterSequence),
	}
}

// adopt replaces the session with server state and invalidates in-flight guesses.
func (g *GuessSession) adopt(state types.PracticeState) {
	g.mu.Lock()
	g.session = Session{
		CurrentLetterIndex: state.CurrentLetterIndex,
		LetterSequence:     slices.Clone(state.LetterSequence),
	}
	g.generation++
	g.hintDismissed = false
	g.revision++
	snapshot, rev := g.session.clone(), g.revision
	g.mu.Unlock()
	g.notify(snapshot, rev)
}

func (g *GuessSession) clearBusy() {
	g.mu.Lock()
	g.busy = false
	g.mu.Unlock()
}

func (g *GuessSession) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, g.timeout)
}

// notify hands s to the change hook unless a later revision got there first.
func (g *GuessSession) notify(s Session, rev uint64) {
	if g.onChange == nil {
		return
	}
	g.notifyMu.Lock()
	defer g.notifyMu.Unlock()
	if rev <= g.notified {
		return
	}
	g.notified = rev
	g.onChange(s)
}

// SessionFromSnapshot converts a stored snapshot into a fallback session.
func SessionFromSnapshot(snap types.Snapshot) Session {
	return Session{
		CurrentLetterIndex:    snap.CurrentLetterIndex,
		LetterSequence:        slices.Clone(snap.LetterSequence),
		ConsecutiveErrorCount: snap.ConsecutiveErrorCount,
	}
}

// SnapshotOf converts a session into a storable snapshot.
func SnapshotOf(s Session) types.Snapshot {
	return types.Snapshot{
		CurrentLetterIndex:    s.CurrentLetterIndex,
		LetterSequence:        slices.Clone(s.LetterSequence),
		ConsecutiveErrorCount: s.ConsecutiveErrorCount,
		SavedAt:               time.Now(),
	}
}
