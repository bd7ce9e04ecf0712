package practice

import (
	"errors"
	"log"
)

var (
	// ErrPermissionDenied reports that the camera may not be used.
	ErrPermissionDenied = errors.New("camera permission denied")
	// ErrNoCaptureDevice reports a capture attempted without an active camera
	// handle or frame. Guesses hitting it are skipped silently.
	ErrNoCaptureDevice = errors.New("no capture device")
)

func logInfo(format string, v ...any) {
	log.Printf("[INFO] "+format, v...)
}

func logWarn(format string, v ...any) {
	log.Printf("[WARN] "+format, v...)
}
