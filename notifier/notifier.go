package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// FailureEvent describes one terminally failed request: the parameters the
// caller sent and the error that stopped the pipeline.
type FailureEvent struct {
	Method  string
	Path    string
	Payload map[string]string
	Err     string
	Time    time.Time
}

// Notifier delivers diagnostics about failed requests to an external sink.
// Delivery is strictly best-effort: implementations must swallow their own
// failures, so that a broken sink can never affect the response returned
// to the caller.
type Notifier interface {
	NotifyFailure(event FailureEvent)
}

// Noop discards all events.
type Noop struct{}

func (Noop) NotifyFailure(FailureEvent) {}

// Webhook posts failure events to an incoming-webhook URL using the Slack
// attachment format.
type Webhook struct {
	url    string
	client *http.Client
	log    zerolog.Logger
}

func NewWebhook(url string, logger zerolog.Logger) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
		log:    logger,
	}
}

type webhookMessage struct {
	Attachments []webhookAttachment `json:"attachments"`
}

type webhookAttachment struct {
	Fallback   string         `json:"fallback"`
	AuthorName string         `json:"author_name"`
	Title      string         `json:"title"`
	Fields     []webhookField `json:"fields"`
	Text       string         `json:"text"`
	Ts         int64          `json:"ts"`
	Color      string         `json:"color"`
}

type webhookField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

func (w *Webhook) NotifyFailure(event FailureEvent) {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		payload = []byte("{}")
	}
	message := webhookMessage{
		Attachments: []webhookAttachment{{
			Fallback:   "Exception: Something went wrong!",
			AuthorName: fmt.Sprintf("%s %s - 500", event.Method, event.Path),
			Title:      "Exception: Something went wrong!",
			Fields: []webhookField{{
				Title: "Received",
				Value: string(payload),
			}},
			Text:  fmt.Sprintf("*Message*: %s", event.Err),
			Ts:    event.Time.Unix(),
			Color: "#E03E2F",
		}},
	}

	body, err := json.Marshal(message)
	if err != nil {
		w.log.Debug().Err(err).Msg("Could not marshal failure notification")
		return
	}
	res, err := w.client.Post(w.url, "application/json", bytes.NewReader(body))
	if err != nil {
		w.log.Debug().Err(err).Msg("Could not deliver failure notification")
		return
	}
	res.Body.Close()
}
