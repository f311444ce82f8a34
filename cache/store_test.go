package cache

import (
	"context"
	"testing"
	"time"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	return map[string]Store{
		"sqlite": NewSQLiteStore(""),
		"memory": NewMemoryStore(),
	}
}

func TestGetMissingKey(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, found, err := store.Get(context.Background(), "no-such-key")
			if err != nil {
				t.Fatalf("Get returned error: %v", err)
			}
			if found {
				t.Fatal("Found entry for missing key")
			}
		})
	}
}

func TestPutAndGetRoundtrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			entry := Entry{
				Key:       "key-1",
				URL:       "https://example.com",
				HTML:      "<html><title>Example</title></html>",
				Title:     "Example",
				CreatedAt: time.Date(2023, 6, 1, 10, 30, 0, 0, time.UTC),
			}
			stored, err := store.Put(context.Background(), entry)
			if err != nil {
				t.Fatalf("Put returned error: %v", err)
			}

			got, found, err := store.Get(context.Background(), "key-1")
			if err != nil || !found {
				t.Fatalf("Get: found=%v err=%v", found, err)
			}
			if got != stored {
				t.Fatalf("Read-back entry differs from stored form:\n%+v\n%+v", got, stored)
			}
		})
	}
}

func TestPutSupersedesPriorValue(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			first := Entry{Key: "key-1", URL: "https://example.com", HTML: "old", CreatedAt: time.Now().UTC()}
			second := Entry{Key: "key-1", URL: "https://example.com", HTML: "new", CreatedAt: time.Now().UTC().Add(time.Second)}

			if _, err := store.Put(context.Background(), first); err != nil {
				t.Fatalf("first Put: %v", err)
			}
			if _, err := store.Put(context.Background(), second); err != nil {
				t.Fatalf("second Put: %v", err)
			}

			got, found, err := store.Get(context.Background(), "key-1")
			if err != nil || !found {
				t.Fatalf("Get: found=%v err=%v", found, err)
			}
			if got.HTML != "new" {
				t.Fatalf("Entry not superseded, html is %q", got.HTML)
			}
		})
	}
}

func TestTimestampsAreUTCMilliseconds(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			entry := Entry{
				Key:       "key-tz",
				URL:       "https://example.com",
				HTML:      "x",
				CreatedAt: time.Date(2023, 6, 1, 13, 30, 0, 123456789, loc),
			}
			stored, err := store.Put(context.Background(), entry)
			if err != nil {
				t.Fatalf("Put: %v", err)
			}
			want := time.Date(2023, 6, 1, 10, 30, 0, 123000000, time.UTC)
			if !stored.CreatedAt.Equal(want) || stored.CreatedAt.Location() != time.UTC {
				t.Fatalf("CreatedAt = %v, want %v", stored.CreatedAt, want)
			}

			got, _, err := store.Get(context.Background(), "key-tz")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if !got.CreatedAt.Equal(want) {
				t.Fatalf("Read-back CreatedAt = %v, want %v", got.CreatedAt, want)
			}
		})
	}
}

func TestPurge(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			entry := Entry{Key: "key-1", URL: "https://example.com", HTML: "x", CreatedAt: time.Now().UTC()}
			if _, err := store.Put(context.Background(), entry); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := store.Purge(context.Background(), "key-1"); err != nil {
				t.Fatalf("Purge: %v", err)
			}
			_, found, err := store.Get(context.Background(), "key-1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if found {
				t.Fatal("Entry still present after purge")
			}
		})
	}
}
