package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	cachecontrol "go.eigsys.de/gin-cachecontrol/v2"
	"golang.org/x/time/rate"

	"signpractice/internal/practice"
	"signpractice/internal/recognition"
)

// App holds the server-wide state.
type App struct {
	Config        Config
	Sessions      map[string]*PracticeSession
	SessionMutex  sync.RWMutex
	LimiterMap    map[string]*rate.Limiter
	LimiterMutex  sync.Mutex
	Snapshots     SnapshotStore
	NewRecognizer func(sessionID string) practice.Recognizer
	StartTime     time.Time
}

// newApp wires an App to the recognition service named in cfg.
func newApp(cfg Config, snapshots SnapshotStore) *App {
	app := &App{
		Config:     cfg,
		Sessions:   make(map[string]*PracticeSession),
		LimiterMap: make(map[string]*rate.Limiter),
		Snapshots:  snapshots,
		StartTime:  time.Now(),
	}
	app.NewRecognizer = func(sessionID string) practice.Recognizer {
		return recognition.New(cfg.RecognitionURL,
			recognition.WithTimeout(cfg.RequestTimeout),
			recognition.WithSessionKey(sessionID))
	}
	return app
}

func main() {
	cfg := loadConfig()
	logInfo("Starting Sign Practice in %s mode", map[bool]string{true: "production", false: "development"}[cfg.IsProduction])
	logInfo("Recognition service: %s (timeout %v)", cfg.RecognitionURL, cfg.RequestTimeout)

	snapshots, err := newSnapshotStore(cfg)
	if err != nil {
		logFatal("Failed to open snapshot store: %v", err)
	}
	logInfo("Snapshot backend: %s", cfg.SnapshotBackend)

	app := newApp(cfg, snapshots)
	router := app.setupRouter()

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go app.runSessionSweeper(sweepCtx, 10*time.Minute)

	startServer(router, cfg.Port)
}

// setupRouter builds the gin engine with middleware, templates and routes.
func (app *App) setupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(requestIDMiddleware())

	router.Use(ginGzip.Gzip(ginGzip.DefaultCompression,
		ginGzip.WithExcludedExtensions([]string{".svg", ".ico", ".png", ".jpg", ".jpeg", ".gif"}),
		ginGzip.WithExcludedPaths([]string{"/static/fonts"})))

	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logWarn("Failed to set trusted proxies: %v", err)
	}

	production := app.Config.IsProduction
	router.Use(func(c *gin.Context) {
		app.applyCacheHeaders(c, production)
	})

	if production && dirExists("dist") {
		logInfo("Serving assets from dist/ directory")
		router.LoadHTMLGlob("dist/templates/*.html")
		router.Static("/static", "./dist/static")
	} else {
		router.LoadHTMLGlob("templates/*.html")
		router.Static("/static", "./static")
	}

	router.GET(RouteHome, app.homeHandler)
	router.GET(RoutePracticeState, app.practiceStateHandler)
	router.POST(RouteGuess, app.rateLimitMiddleware(), app.guessHandler)
	router.POST(RouteReset, app.rateLimitMiddleware(), app.resetHandler)
	router.POST(RouteDismissHint, app.dismissHintHandler)
	router.POST(RouteCameraPermission, app.cameraPermissionHandler)
	router.POST(RouteLeave, app.leaveHandler)
	router.GET(RouteHealthz, app.healthzHandler)

	apiCORS := corsMiddleware(app.Config.CORSAllowedOrigins)
	router.GET(RouteAPIPractice, apiCORS, app.apiPracticeHandler)
	router.OPTIONS(RouteAPIPractice, apiCORS, func(c *gin.Context) { c.Status(http.StatusNoContent) })

	return router
}

func startServer(router *gin.Engine, port string) {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
		<-sigint
		logInfo("Shutdown signal received, shutting down server gracefully...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logWarn("HTTP server Shutdown: %v", err)
		}
		close(idleConnsClosed)
	}()

	logInfo("Server starting on http://localhost:%s", port)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logFatal("Server failed to start: %v", err)
	}
	<-idleConnsClosed
	logInfo("Server shutdown complete")
}

func (app *App) applyCacheHeaders(c *gin.Context, production bool) {
	if production && strings.HasPrefix(c.Request.URL.Path, "/static/") {
		cachecontrol.New(cachecontrol.Config{
			Public: true,
			MaxAge: cachecontrol.Duration(app.Config.StaticCacheAge),
		})(c)
		c.Header("Vary", "Accept-Encoding")
		return
	}
	cachecontrol.New(cachecontrol.Config{
		NoStore:        true,
		NoCache:        true,
		MustRevalidate: true,
	})(c)
}
