package pagetitle

import "testing"

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"simple", "<html><head><title>Example Domain</title></head></html>", "Example Domain"},
		{"whitespace", "<title>\n  Padded \n</title>", "Padded"},
		{"no title", "<html><body><h1>Heading</h1></body></html>", ""},
		{"empty title", "<title></title>", ""},
		{"empty document", "", ""},
		{"first of many", "<title>First</title><title>Second</title>", "First"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(tt.doc); got != tt.want {
				t.Fatalf("Extract() = %q, want %q", got, tt.want)
			}
		})
	}
}
