package pagetitle

import (
	"strings"

	"golang.org/x/net/html"
)

// Extract returns the text of the first <title> element in the document,
// with surrounding whitespace trimmed. It returns an empty string if the
// document has no title or cannot be tokenized far enough to find one.
func Extract(doc string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(doc))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if string(name) == "title" {
				if tokenizer.Next() == html.TextToken {
					return strings.TrimSpace(string(tokenizer.Text()))
				}
				return ""
			}
		}
	}
}
