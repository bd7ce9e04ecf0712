package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"signpractice/internal/camera"
	"signpractice/internal/practice"
)

// getOrCreateSession retrieves the session ID from the cookie or creates a new one.
func (app *App) getOrCreateSession(c *gin.Context) string {
	sessionID, err := c.Cookie(SessionCookieName)
	if err != nil || !validSessionID(sessionID) {
		sessionID = uuid.NewString()
		c.SetSameSite(http.SameSiteStrictMode)
		secure := app.Config.IsProduction
		c.SetCookie(SessionCookieName, sessionID, int(app.Config.CookieMaxAge.Seconds()), "/", "", secure, true)
		logInfo("Created new session: %s", sessionID)
	}
	return sessionID
}

// getPracticeSession retrieves or creates the practice session for a browser session.
func (app *App) getPracticeSession(ctx context.Context, sessionID string) *PracticeSession {
	app.SessionMutex.Lock()
	ps, exists := app.Sessions[sessionID]
	if exists {
		ps.LastAccessTime = time.Now()
	}
	app.SessionMutex.Unlock()
	if exists {
		return ps
	}

	ps = app.newPracticeSession(ctx, sessionID)

	app.SessionMutex.Lock()
	defer app.SessionMutex.Unlock()
	if existing, ok := app.Sessions[sessionID]; ok {
		// Another request for the same browser session got there first.
		existing.LastAccessTime = time.Now()
		return existing
	}
	app.Sessions[sessionID] = ps
	return ps
}

// newPracticeSession builds a guess session, restoring the last snapshot as its
// fallback, and initializes it against the recognition service.
func (app *App) newPracticeSession(ctx context.Context, sessionID string) *PracticeSession {
	reqID := requestID(ctx)
	frames := camera.NewFrameSource(false)
	opts := []practice.Option{
		practice.WithCaptureQuality(app.Config.CaptureQuality),
		practice.WithTimeout(app.Config.RequestTimeout),
		practice.WithChangeHook(func(s practice.Session) {
			app.saveSnapshot(sessionID, s)
		}),
	}

	snap, err := app.Snapshots.Load(ctx, sessionID)
	switch {
	case err == nil:
		logInfo("[request_id=%v] Restored snapshot for session %s at letter %d", reqID, sessionID, snap.CurrentLetterIndex)
		opts = append(opts, practice.WithFallback(practice.SessionFromSnapshot(snap)))
	case !errors.Is(err, ErrSnapshotNotFound):
		logWarn("[request_id=%v] Failed to load snapshot for session %s: %v", reqID, sessionID, err)
	}

	guess := practice.New(app.NewRecognizer(sessionID), frames, opts...)
	if err := guess.Initialize(ctx); err != nil {
		logWarn("[request_id=%v] Session %s starts from fallback progress: %v", reqID, sessionID, err)
	}
	logInfo("[request_id=%v] New practice session %s", reqID, sessionID)

	return &PracticeSession{
		Guess:          guess,
		Camera:         frames,
		LastAccessTime: time.Now(),
	}
}

// saveSnapshot persists the progress of a session. Failures are logged only.
func (app *App) saveSnapshot(sessionID string, s practice.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Snapshots.Save(ctx, sessionID, practice.SnapshotOf(s)); err != nil {
		logWarn("Failed to save snapshot for session %s: %v", sessionID, err)
	}
}

// dropPracticeSession forgets a browser session entirely.
func (app *App) dropPracticeSession(sessionID string) {
	app.SessionMutex.Lock()
	delete(app.Sessions, sessionID)
	app.SessionMutex.Unlock()
}

// cleanupExpiredSessions drops sessions idle for longer than the session
// timeout and prunes old snapshots.
func (app *App) cleanupExpiredSessions(ctx context.Context) int {
	cutoff := time.Now().Add(-app.Config.SessionTimeout)
	removed := 0

	app.SessionMutex.Lock()
	for id, ps := range app.Sessions {
		if ps.LastAccessTime.Before(cutoff) && !ps.Guess.Busy() {
			delete(app.Sessions, id)
			removed++
		}
	}
	app.SessionMutex.Unlock()

	if err := app.Snapshots.Cleanup(ctx); err != nil {
		logWarn("Snapshot cleanup failed: %v", err)
	}
	if removed > 0 {
		logInfo("Expired %d idle practice sessions", removed)
	}
	return removed
}

// runSessionSweeper calls cleanupExpiredSessions every interval until ctx ends.
func (app *App) runSessionSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.cleanupExpiredSessions(ctx)
		}
	}
}
