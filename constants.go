package main

// Session configuration constants
const (
	SessionCookieName = "session_id"
)

// Route constants
const (
	RouteHome             = "/"
	RoutePracticeState    = "/practice-state"
	RouteGuess            = "/guess"
	RouteReset            = "/reset"
	RouteDismissHint      = "/dismiss-hint"
	RouteCameraPermission = "/camera-permission"
	RouteAPIPractice      = "/api/practice"
	RouteLeave            = "/leave"
	RouteHealthz          = "/healthz"
)

// Error message constants
const (
	ErrorInvalidFrame        = "Could not read the camera frame."
	ErrorCameraDenied        = "Camera permission is required to practise."
	ErrorServiceUnavailable  = "The recognition service did not answer. Try again."
	ErrorCaptureFailed       = "Could not capture a still. Try again."
	ErrorResetFailed         = "Could not start over. Try again."
	ErrorPermissionMalformed = "Permission must be true or false."
)

// Page text
const (
	PageTitle   = "Sign Practice"
	PagePrompt  = "Sign the underlined letter, then press Submit."
	HintMessage = "Having trouble? Check your hand is inside the frame and well lit, and hold the sign still."
)

// Context key constants
const (
	requestIDKey contextKey = "request_id"
)
