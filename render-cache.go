package rendercache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/render-cache/render-cache/cache"
	"github.com/render-cache/render-cache/notifier"
	cachekey "github.com/render-cache/render-cache/pkg/cache-key"
	"github.com/render-cache/render-cache/pkg/freshness"
	hostlimit "github.com/render-cache/render-cache/pkg/host-limit"
	pagetitle "github.com/render-cache/render-cache/pkg/page-title"
	"github.com/render-cache/render-cache/renderer"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultRenderTimeout is deliberately shorter than DefaultRequestTimeout,
	// leaving a margin for persistence before the outer deadline fires.
	DefaultRenderTimeout  = 9 * time.Second
	DefaultRequestTimeout = 10 * time.Second
)

type Config struct {
	// Storage for rendered entries.
	Store cache.Store
	// Renderer invoked on cache misses.
	Renderer renderer.Renderer
	// Optional sink for failure diagnostics. Discarded if nil.
	Notifier notifier.Notifier
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
	// Freshness window applied when a request carries no usable TTL.
	// Defaults to freshness.DefaultTTL.
	DefaultTTL time.Duration
	// Hard limit for a single render. Must stay strictly below
	// RequestTimeout; it is clamped if it does not.
	RenderTimeout time.Duration
	// Overall deadline for one request.
	RequestTimeout time.Duration
	// Namespace for derived cache keys.
	KeyNamespace string
	// CoalesceRenders collapses concurrent renders of the same key into a
	// single engine launch. Off by default: without it, concurrent misses
	// for one key may all render, and the store's upsert makes the final
	// value last-writer-wins.
	CoalesceRenders bool
	// RendersPerHost limits render starts per second per target host.
	// Zero disables limiting.
	RendersPerHost float64
}

// RenderCache is the cache-aware rendering pipeline. Each request flows
// through key derivation, lookup, render and persist, in that order, with a
// short-circuit on a fresh cache hit. All per-request state stays on the
// stack; the store is the only shared mutable resource.
type RenderCache struct {
	store          cache.Store
	renderer       renderer.Renderer
	notifier       notifier.Notifier
	keyer          cachekey.CacheKeyer
	policy         freshness.Policy
	log            zerolog.Logger
	renderTimeout  time.Duration
	requestTimeout time.Duration
	group          *singleflight.Group
	limiter        *hostlimit.Limiter
}

// New initializes a render cache instance from the given config,
// applying defaults for anything left unset.
func New(config Config) *RenderCache {
	// use console logger if not specified in config
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}

	notif := config.Notifier
	if notif == nil {
		notif = notifier.Noop{}
	}

	requestTimeout := config.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	renderTimeout := config.RenderTimeout
	if renderTimeout <= 0 {
		renderTimeout = DefaultRenderTimeout
	}
	if renderTimeout >= requestTimeout {
		clamped := requestTimeout - requestTimeout/10
		logger.Warn().
			Dur("renderTimeout", renderTimeout).
			Dur("requestTimeout", requestTimeout).
			Dur("clamped", clamped).
			Msg("Render timeout must stay below the request deadline")
		renderTimeout = clamped
	}

	namespace := config.KeyNamespace
	if namespace == "" {
		namespace = "render-cache"
	}

	rc := &RenderCache{
		store:          config.Store,
		renderer:       config.Renderer,
		notifier:       notif,
		keyer:          cachekey.NewCacheKeyer(namespace),
		policy:         freshness.NewPolicy(config.DefaultTTL),
		log:            logger,
		renderTimeout:  renderTimeout,
		requestTimeout: requestTimeout,
	}
	if config.CoalesceRenders {
		rc.group = &singleflight.Group{}
	}
	if config.RendersPerHost > 0 {
		rc.limiter = hostlimit.NewLimiter(config.RendersPerHost, int(config.RendersPerHost))
	}
	return rc
}

// Handle runs the pipeline for one request. On a fresh hit the cached entry
// is returned unchanged and the renderer is never invoked; on a miss or
// stale hit the page is rendered, persisted and the stored form returned.
func (rc *RenderCache) Handle(ctx context.Context, rawURL string, ttl time.Duration) (cache.Entry, error) {
	if !usableURL(rawURL) {
		return cache.Entry{}, ErrInvalidRequest
	}
	key := rc.keyer.Derive(rawURL)
	log := rc.log.With().Str("key", key).Logger()

	entry, found, err := rc.store.Get(ctx, key)
	if err != nil {
		log.Error().Err(err).Msg("Could not read from cache")
		return cache.Entry{}, fmt.Errorf("%w: %s", ErrStore, err)
	}
	if found && rc.policy.Fresh(entry.CreatedAt, time.Now().UTC(), ttl) {
		log.Debug().Time("created", entry.CreatedAt).Dur("ttl", ttl).Msg("Cache hit and serving")
		return entry, nil
	}
	if found {
		log.Debug().Time("created", entry.CreatedAt).Dur("ttl", ttl).Msg("Cache expired")
	} else {
		log.Debug().Msg("Not in cache")
	}

	if rc.group != nil {
		v, err, shared := rc.group.Do(key, func() (interface{}, error) {
			return rc.renderAndPersist(ctx, log, key, rawURL)
		})
		if err != nil {
			return cache.Entry{}, err
		}
		if shared {
			log.Debug().Msg("Joined in-flight render")
		}
		return v.(cache.Entry), nil
	}
	return rc.renderAndPersist(ctx, log, key, rawURL)
}

func (rc *RenderCache) renderAndPersist(ctx context.Context, log zerolog.Logger, key, rawURL string) (cache.Entry, error) {
	if rc.limiter != nil {
		if err := rc.limiter.Wait(ctx, rawURL); err != nil {
			log.Error().Err(err).Msg("Render rate limit not cleared")
			return cache.Entry{}, fmt.Errorf("%w: %s", ErrRender, err)
		}
	}

	renderCtx, cancel := context.WithTimeout(ctx, rc.renderTimeout)
	defer cancel()

	log.Debug().Str("url", rawURL).Msg("Loading page")
	html, err := rc.renderer.Render(renderCtx, rawURL)
	if err != nil {
		log.Error().Err(err).
			Bool("timeout", errors.Is(err, renderer.ErrTimeout)).
			Msg("Could not render page")
		return cache.Entry{}, fmt.Errorf("%w: %s", ErrRender, err)
	}
	log.Debug().Int("bytes", len(html)).Msg("Page loaded")

	entry := cache.Entry{
		Key:       key,
		URL:       rawURL,
		HTML:      html,
		Title:     pagetitle.Extract(html),
		CreatedAt: time.Now().UTC(),
	}
	stored, err := rc.store.Put(ctx, entry)
	if err != nil {
		log.Error().Err(err).Msg("Could not write to cache")
		return cache.Entry{}, fmt.Errorf("%w: %s", ErrStore, err)
	}
	log.Debug().Time("created", stored.CreatedAt).Msg("Cache write")
	return stored, nil
}

// usableURL reports whether the pipeline may hand the URL to the renderer.
func usableURL(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	u, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
