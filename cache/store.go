package cache

import (
	"context"
	"time"
)

// Entry is the persisted unit of the render cache: one rendered document
// addressed by its derived key. Entries are immutable once written; a later
// put with the same key supersedes the old value wholesale.
type Entry struct {
	// Key is the entry's unique identifier and also its storage address.
	Key string `json:"key"`
	// URL is the resource that was rendered.
	URL string `json:"url"`
	// HTML is the rendered document. The store treats it as opaque.
	HTML string `json:"html"`
	// Title is the document title at render time, kept for diagnostics.
	Title string `json:"title,omitempty"`
	// CreatedAt is the moment the entry was produced, always in UTC.
	CreatedAt time.Time `json:"timestamp"`
}

// Store persists rendered entries by key.
// It must not expire entries on its own: staleness is a read-time judgment
// made by the freshness policy, never a deletion performed by the store.
// A single key's get and put must be atomic; no multi-key transactions are
// required.
//
// Implementations must be thread-safe!
type Store interface {
	// Get returns the entry for the given key, if it exists.
	// Absence of an entry is not an error.
	Get(ctx context.Context, key string) (Entry, bool, error)
	// Put stores the entry under entry.Key, replacing any prior value
	// (last-writer-wins, no version check). It returns the stored form,
	// which becomes the canonical entry.
	Put(ctx context.Context, entry Entry) (Entry, error)
	// Purge removes the entry for the given key.
	// It is a utility method that is not used by the pipeline.
	Purge(ctx context.Context, key string) error
}
