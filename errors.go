package rendercache

import "errors"

// The pipeline distinguishes these failure kinds internally for logging and
// notification. At the HTTP boundary they all collapse into one generic
// server error with no entry payload.
var (
	// ErrInvalidRequest marks a request without a usable target URL.
	ErrInvalidRequest = errors.New("missing or invalid url")
	// ErrRender marks an engine launch, navigation or timeout failure.
	ErrRender = errors.New("render failed")
	// ErrStore marks a cache lookup or persist round-trip failure.
	ErrStore = errors.New("cache store failed")
)
