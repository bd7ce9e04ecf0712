package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"signpractice/internal/camera"
	"signpractice/internal/practice"
	"signpractice/internal/recognition"
)

const maxFrameBytes = 8 << 20

// pageData builds the template data shared by the page and its fragment.
func pageData(view practice.View, errMsg string) gin.H {
	return gin.H{
		"title":       PageTitle,
		"message":     PagePrompt,
		"hintMessage": HintMessage,
		"view":        view,
		"error":       errMsg,
	}
}

// render writes the practice fragment for HTMX requests and the full page otherwise.
func render(c *gin.Context, view practice.View, errMsg string) {
	if errMsg != "" {
		payload := map[string]string{"server_error": errMsg}
		if b, jerr := json.Marshal(payload); jerr == nil {
			c.Header("HX-Trigger", string(b))
		} else {
			logWarn("Failed to marshal HX-Trigger payload: %v", jerr)
		}
	}
	if isHTMX(c) {
		c.HTML(http.StatusOK, "practice-content", pageData(view, errMsg))
		return
	}
	c.HTML(http.StatusOK, "index.html", pageData(view, errMsg))
}

// homeHandler renders the practice page for the current session.
func (app *App) homeHandler(c *gin.Context) {
	sessionID := app.getOrCreateSession(c)
	ps := app.getPracticeSession(c.Request.Context(), sessionID)
	c.HTML(http.StatusOK, "index.html", pageData(ps.Guess.View(), ""))
}

// practiceStateHandler renders the letters and hint as an HTML fragment.
func (app *App) practiceStateHandler(c *gin.Context) {
	sessionID := app.getOrCreateSession(c)
	ps := app.getPracticeSession(c.Request.Context(), sessionID)
	c.HTML(http.StatusOK, "practice-content", pageData(ps.Guess.View(), ""))
}

// guessHandler takes the uploaded frame, runs one guess cycle and renders the result.
func (app *App) guessHandler(c *gin.Context) {
	ctx := c.Request.Context()
	reqID := requestID(ctx)
	sessionID := app.getOrCreateSession(c)
	ps := app.getPracticeSession(ctx, sessionID)

	frame, err := readFrame(c)
	if err != nil {
		logWarn("[request_id=%v] Session %s sent an unreadable frame: %v", reqID, sessionID, err)
		render(c, ps.Guess.View(), ErrorInvalidFrame)
		return
	}
	if frame != nil {
		ps.Camera.Offer(frame)
	}

	start := time.Now()
	outcome, err := ps.Guess.SubmitGuess(ctx)
	if outcome == practice.OutcomeSkipped && frame != nil {
		// A skipped guess must not leave its frame for the next one.
		ps.Camera.Discard()
	}
	logInfo("[request_id=%v] Session %s guess %s in %v", reqID, sessionID, outcome, time.Since(start))
	render(c, ps.Guess.View(), guessErrorMessage(err))
}

// guessErrorMessage maps a guess failure to the text shown to the user.
func guessErrorMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, practice.ErrPermissionDenied):
		return ErrorCameraDenied
	case recognition.IsTransportError(err):
		return ErrorServiceUnavailable
	default:
		return ErrorCaptureFailed
	}
}

// readFrame returns the frame in the request, either a "frame" data URL form
// value or a "frame" file upload. No frame is not an error.
func readFrame(c *gin.Context) ([]byte, error) {
	if dataURL := c.PostForm("frame"); dataURL != "" {
		return camera.DecodeDataURL(dataURL)
	}
	fh, err := c.FormFile("frame")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	if fh.Size > maxFrameBytes {
		return nil, errors.New("frame too large")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxFrameBytes))
}

// resetHandler clears progress on the recognition service.
func (app *App) resetHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	ps := app.getPracticeSession(ctx, sessionID)

	var errMsg string
	if err := ps.Guess.Reset(ctx); err != nil {
		logWarn("[request_id=%v] Reset failed for session %s: %v", requestID(ctx), sessionID, err)
		errMsg = ErrorResetFailed
	} else {
		logInfo("[request_id=%v] Session %s reset", requestID(ctx), sessionID)
	}
	render(c, ps.Guess.View(), errMsg)
}

// dismissHintHandler hides the hint for the current error streak.
func (app *App) dismissHintHandler(c *gin.Context) {
	sessionID := app.getOrCreateSession(c)
	ps := app.getPracticeSession(c.Request.Context(), sessionID)
	ps.Guess.DismissHint()
	render(c, ps.Guess.View(), "")
}

// cameraPermissionHandler records what the browser reported about camera
// access and re-runs the permission request.
func (app *App) cameraPermissionHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	ps := app.getPracticeSession(ctx, sessionID)

	granted, err := strconv.ParseBool(c.PostForm("granted"))
	if err != nil {
		render(c, ps.Guess.View(), ErrorPermissionMalformed)
		return
	}
	ps.Camera.SetPermission(granted)
	if _, err := ps.Guess.RequestPermission(ctx); err != nil {
		logWarn("[request_id=%v] Permission request failed for session %s: %v", requestID(ctx), sessionID, err)
	}
	var errMsg string
	if !granted {
		errMsg = ErrorCameraDenied
	}
	render(c, ps.Guess.View(), errMsg)
}

// leaveHandler destroys the session when the page is closed.
func (app *App) leaveHandler(c *gin.Context) {
	sessionID, err := c.Cookie(SessionCookieName)
	if err == nil && validSessionID(sessionID) {
		app.dropPracticeSession(sessionID)
		logInfo("Session %s left", sessionID)
	}
	c.Status(http.StatusNoContent)
}

// apiPracticeHandler returns the current view as JSON.
func (app *App) apiPracticeHandler(c *gin.Context) {
	sessionID := app.getOrCreateSession(c)
	ps := app.getPracticeSession(c.Request.Context(), sessionID)
	c.JSON(http.StatusOK, ps.Guess.View())
}

// healthzHandler returns a JSON health check with server stats.
func (app *App) healthzHandler(c *gin.Context) {
	app.SessionMutex.RLock()
	sessions := len(app.Sessions)
	app.SessionMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"env":             map[bool]string{true: "production", false: "development"}[app.Config.IsProduction],
		"sessions":        sessions,
		"recognition_url": app.Config.RecognitionURL,
		"uptime":          formatUptime(time.Since(app.StartTime)),
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}
