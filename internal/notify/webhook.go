package notify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"schwab-trader/internal/config"
)

// Webhook posts events as JSON to a configured URL. Same non-blocking
// queue shape as the Telegram sink.
type Webhook struct {
	url    string
	client *http.Client
	logger zerolog.Logger
	queue  chan webhookEvent
}

type webhookEvent struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func NewWebhook(cfg config.WebhookConfig, logger zerolog.Logger) *Webhook {
	w := &Webhook{
		url:    cfg.URL,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
		queue:  make(chan webhookEvent, 64),
	}
	go w.drain()
	return w
}

func (w *Webhook) Notify(level Level, message string) {
	select {
	case w.queue <- webhookEvent{Level: level.String(), Message: message, Timestamp: time.Now()}:
	default:
		w.logger.Warn().Msg("Webhook queue full, dropping notification")
	}
}

func (w *Webhook) drain() {
	for ev := range w.queue {
		payload, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		resp, err := w.client.Post(w.url, "application/json", bytes.NewReader(payload))
		if err != nil {
			w.logger.Warn().Err(err).Msg("Webhook post failed")
			continue
		}
		resp.Body.Close()
	}
}
