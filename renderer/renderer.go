package renderer

import (
	"context"
	"errors"
)

// ErrTimeout indicates the render did not finish within its deadline.
// The pipeline needs to tell this apart from other engine failures for
// diagnostics, even though callers only ever see a generic failure.
var ErrTimeout = errors.New("render timed out")

// Renderer produces the fully rendered HTML for a URL.
// The context carries the render deadline; implementations must abandon
// the render when it fires and surface ErrTimeout. Engine teardown is the
// implementation's concern and must never block the returned result.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}
