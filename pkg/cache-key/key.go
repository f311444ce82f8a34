package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
)

// keyVersion is bumped whenever the derivation input changes,
// so old entries become unreachable instead of wrongly reused.
const keyVersion = "v1"

// CacheKeyer derives cache keys from the render-relevant parts of a request.
// Only parameters that affect the rendered output take part in the
// derivation; a caller-supplied TTL override must never be included,
// since that would fragment the cache for semantically identical requests.
type CacheKeyer struct {
	// Unique identifier for the deployment.
	// Keeps keys of unrelated instances apart when they share a store.
	Namespace string
}

func NewCacheKeyer(namespace string) CacheKeyer {
	return CacheKeyer{Namespace: namespace}
}

// Derive returns the cache key for the given target URL.
// It is a pure function: the same URL always yields the same key,
// independent of time or request order.
func (c CacheKeyer) Derive(url string) string {
	sum := sha256.Sum256([]byte("url:" + url))
	return c.Namespace + ":" + keyVersion + ":" + hex.EncodeToString(sum[:])
}
