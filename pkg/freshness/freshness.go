package freshness

import (
	"strconv"
	"time"
)

// DefaultTTL is the freshness window applied when the caller does not
// request one.
const DefaultTTL = 5 * time.Minute

// Policy decides whether a cached entry may still be reused.
// Evaluating freshness never mutates the entry or the store;
// staleness is discovered at read time, not enforced by deletion.
type Policy struct {
	// Default is the window used when a request carries no usable TTL.
	Default time.Duration
}

func NewPolicy(defaultTTL time.Duration) Policy {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return Policy{Default: defaultTTL}
}

// Fresh reports whether an entry created at createdAt is reusable at now
// under the given window. An entry is fresh iff createdAt <= now < createdAt+ttl.
// The lower bound guards against clock skew: a timestamp in the future means
// the entry is not yet valid, not that it is fresh. The upper bound is
// exclusive, so an entry exactly ttl old has already expired.
func (p Policy) Fresh(createdAt, now time.Time, ttl time.Duration) bool {
	return !now.Before(createdAt) && now.Before(createdAt.Add(ttl))
}

// Window resolves the requested TTL from its wire representation,
// a non-negative number of milliseconds (numeric strings included).
// Anything unparseable or negative falls back to the default window,
// so malformed input cannot be used to force unconditional misses.
// A literal zero is honored: it opts the caller out of caching.
func (p Policy) Window(raw string) time.Duration {
	if ms, ok := ParseTTL(raw); ok {
		return ms
	}
	return p.Default
}

// ParseTTL parses a TTL request parameter given in milliseconds.
// It returns false for empty, non-numeric or negative input.
func ParseTTL(raw string) (time.Duration, bool) {
	if raw == "" {
		return 0, false
	}
	ms, err := strconv.ParseFloat(raw, 64)
	if err != nil || ms < 0 {
		return 0, false
	}
	return time.Duration(ms * float64(time.Millisecond)), true
}
