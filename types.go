package main

import (
	"time"

	"signpractice/internal/camera"
	"signpractice/internal/practice"
)

type contextKey string

// PracticeSession is one browser's guess session and the camera frames it uploads.
type PracticeSession struct {
	Guess          *practice.GuessSession
	Camera         *camera.FrameSource
	LastAccessTime time.Time
}
