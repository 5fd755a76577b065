package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"schwab-trader/internal/config"
)

const telegramAPI = "https://api.telegram.org"

// Telegram posts events to a Telegram chat through the bot API.
// Messages are sent on a buffered channel drained by one goroutine;
// when the buffer is full the event is dropped rather than blocking.
type Telegram struct {
	botToken string
	chatID   string
	client   *http.Client
	logger   zerolog.Logger
	queue    chan string
}

func NewTelegram(cfg config.TelegramConfig, logger zerolog.Logger) *Telegram {
	t := &Telegram{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
		queue:    make(chan string, 64),
	}
	go t.drain()
	return t
}

func (t *Telegram) Notify(level Level, message string) {
	select {
	case t.queue <- fmt.Sprintf("[%s] %s", level, message):
	default:
		t.logger.Warn().Msg("Telegram queue full, dropping notification")
	}
}

func (t *Telegram) drain() {
	for msg := range t.queue {
		if err := t.send(msg); err != nil {
			t.logger.Warn().Err(err).Msg("Telegram send failed")
		}
	}
}

func (t *Telegram) send(text string) error {
	payload, err := json.Marshal(map[string]string{
		"chat_id": t.chatID,
		"text":    text,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", telegramAPI, t.botToken)
	resp, err := t.client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram sendMessage: status %d", resp.StatusCode)
	}
	return nil
}
