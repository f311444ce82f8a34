package rendercache

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/render-cache/render-cache/cache"
	"github.com/render-cache/render-cache/notifier"
)

type renderResponse struct {
	Status string      `json:"status"`
	Data   cache.Entry `json:"data"`
}

// Handler returns the HTTP surface of the render cache.
func (rc *RenderCache) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(hlog.NewHandler(rc.log))
	router.Get("/ping", ping)
	router.Route("/api/v1", func(r chi.Router) {
		// keep intermediaries from ever answering api requests with a 304
		r.Use(noStore)
		r.Get("/html", rc.renderHandler)
	})
	return router
}

func ping(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode("pong")
}

func noStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		next.ServeHTTP(w, r)
	})
}

func (rc *RenderCache) renderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), rc.requestTimeout)
	defer cancel()

	logger := hlog.FromRequest(r)
	rawURL := r.URL.Query().Get("url")
	ttl := rc.policy.Window(r.URL.Query().Get("cacheTTL"))

	entry, err := rc.Handle(ctx, rawURL, ttl)
	if err != nil {
		logger.Error().Err(err).Str("url", rawURL).Msg("Request failed")
		// one-way dispatch, never awaited: a broken sink must not slow
		// down or change the response
		go rc.notifier.NotifyFailure(notifier.FailureEvent{
			Method:  r.Method,
			Path:    r.URL.Path,
			Payload: queryPayload(r),
			Err:     err.Error(),
			Time:    time.Now().UTC(),
		})
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(renderResponse{Status: "OK", Data: entry}); err != nil {
		logger.Error().Err(err).Msg("Could not write response body to client")
	}
}

func queryPayload(r *http.Request) map[string]string {
	payload := make(map[string]string)
	for name, values := range r.URL.Query() {
		if len(values) > 0 {
			payload[name] = values[0]
		}
	}
	return payload
}
