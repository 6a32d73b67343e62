package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultTelegramBaseURL is the Bot API root
const DefaultTelegramBaseURL = "https://api.telegram.org"

// Sender delivers a formatted message to a destination
type Sender interface {
	Send(ctx context.Context, text, destination string) error
}

// TelegramConfig configures the Telegram Bot API sender
type TelegramConfig struct {
	BaseURL string
	Token   string
	// DefaultChatID is used when Send is called without a destination
	DefaultChatID string
	Timeout       time.Duration
}

// TelegramSender sends Markdown messages through the Telegram Bot API
type TelegramSender struct {
	config     TelegramConfig
	httpClient *http.Client

	mu       sync.Mutex
	resolved map[string]string
}

// NewTelegramSender creates a sender with defaults applied
func NewTelegramSender(config TelegramConfig) *TelegramSender {
	if config.BaseURL == "" {
		config.BaseURL = DefaultTelegramBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &TelegramSender{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		resolved:   make(map[string]string),
	}
}

type telegramResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

type telegramChat struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type telegramMessage struct {
	Chat telegramChat `json:"chat"`
}

type telegramUpdate struct {
	Message       *telegramMessage `json:"message"`
	EditedMessage *telegramMessage `json:"edited_message"`
	ChannelPost   *telegramMessage `json:"channel_post"`
}

// Send posts text to destination. Destination may be a numeric chat id or an
// @username, which is resolved from the bot's recent updates.
func (s *TelegramSender) Send(ctx context.Context, text, destination string) error {
	if destination == "" {
		destination = s.config.DefaultChatID
	}
	if destination == "" {
		return &DeliveryError{Destination: "(none)", Message: "no destination and no default chat id configured"}
	}
	if s.config.Token == "" {
		return &DeliveryError{Destination: destination, Message: "bot token is not configured"}
	}

	chatID, err := s.resolveChatID(ctx, destination)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]string{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return &DeliveryError{Destination: destination, Message: "failed to marshal payload", Cause: err}
	}

	var resp telegramResponse
	if err := s.call(ctx, http.MethodPost, "sendMessage", bytes.NewReader(payload), &resp); err != nil {
		return &DeliveryError{Destination: destination, Message: "sendMessage failed", Cause: err}
	}
	if !resp.OK {
		return &DeliveryError{Destination: destination, Message: "telegram rejected message: " + resp.Description}
	}
	return nil
}

func (s *TelegramSender) resolveChatID(ctx context.Context, destination string) (string, error) {
	if !strings.HasPrefix(destination, "@") {
		return destination, nil
	}

	s.mu.Lock()
	id, ok := s.resolved[destination]
	s.mu.Unlock()
	if ok {
		return id, nil
	}

	var resp telegramResponse
	if err := s.call(ctx, http.MethodGet, "getUpdates?limit=100", nil, &resp); err != nil {
		return "", &DeliveryError{Destination: destination, Message: "getUpdates failed", Cause: err}
	}
	if !resp.OK {
		return "", &DeliveryError{Destination: destination, Message: "getUpdates rejected: " + resp.Description}
	}

	var updates []telegramUpdate
	if err := json.Unmarshal(resp.Result, &updates); err != nil {
		return "", &DeliveryError{Destination: destination, Message: "failed to decode updates", Cause: err}
	}

	username := strings.TrimPrefix(destination, "@")
	for i := len(updates) - 1; i >= 0; i-- {
		for _, m := range []*telegramMessage{updates[i].Message, updates[i].EditedMessage, updates[i].ChannelPost} {
			if m != nil && strings.EqualFold(m.Chat.Username, username) {
				id := strconv.FormatInt(m.Chat.ID, 10)
				s.mu.Lock()
				s.resolved[destination] = id
				s.mu.Unlock()
				return id, nil
			}
		}
	}
	return "", &DeliveryError{
		Destination: destination,
		Message:     "username not found in recent updates, send the bot a message first",
	}
}

func (s *TelegramSender) call(ctx context.Context, method, path string, body io.Reader, out *telegramResponse) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", strings.TrimRight(s.config.BaseURL, "/"), s.config.Token, path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach telegram: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
