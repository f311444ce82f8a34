package notifier

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestWebhookDeliversEvent(t *testing.T) {
	var got []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = io.ReadAll(r.Body)
	}))
	defer server.Close()

	webhook := NewWebhook(server.URL, zerolog.Nop())
	webhook.NotifyFailure(FailureEvent{
		Method:  "GET",
		Path:    "/api/v1/html",
		Payload: map[string]string{"url": "https://example.com"},
		Err:     "render timed out",
		Time:    time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC),
	})

	var message struct {
		Attachments []struct {
			AuthorName string `json:"author_name"`
			Text       string `json:"text"`
			Ts         int64  `json:"ts"`
		} `json:"attachments"`
	}
	if err := json.Unmarshal(got, &message); err != nil {
		t.Fatalf("Could not decode webhook body: %v", err)
	}
	if len(message.Attachments) != 1 {
		t.Fatalf("Got %d attachments", len(message.Attachments))
	}
	attachment := message.Attachments[0]
	if attachment.AuthorName != "GET /api/v1/html - 500" {
		t.Fatalf("AuthorName is %q", attachment.AuthorName)
	}
	if !strings.Contains(attachment.Text, "render timed out") {
		t.Fatalf("Text is %q", attachment.Text)
	}
	if attachment.Ts == 0 {
		t.Fatal("Timestamp missing")
	}
}

func TestWebhookSwallowsDeliveryFailure(t *testing.T) {
	// nothing is listening here; NotifyFailure must simply return
	webhook := NewWebhook("http://127.0.0.1:1/unreachable", zerolog.Nop())
	webhook.NotifyFailure(FailureEvent{Method: "GET", Path: "/", Err: "boom", Time: time.Now()})
}
