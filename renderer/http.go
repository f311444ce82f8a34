package renderer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const (
	defaultUserAgent = "render-cache/1.0"
	defaultMaxBytes  = 10 << 20
)

// HTTP renders pages by fetching them over plain HTTP. It stands in for a
// headless browser engine where client-side rendering is not needed, and
// doubles as the reference Renderer implementation.
//
// Each render acquires its own transport and disposes of it off the
// response path, mirroring the one-engine-per-render lifecycle.
type HTTP struct {
	userAgent string
	maxBytes  int64
}

func NewHTTP(userAgent string, maxBytes int64) *HTTP {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &HTTP{userAgent: userAgent, maxBytes: maxBytes}
}

func (h *HTTP) Render(ctx context.Context, rawURL string) (string, error) {
	transport := &http.Transport{}
	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			return nil
		},
	}
	// closing the engine is not on the critical path to responding
	defer func() {
		go transport.CloseIdleConnections()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	res, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status: %d %s", res.StatusCode, res.Status)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, h.maxBytes))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}
