package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AlexIndustrial/latebot/pkg/logger"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.telegram.org"

// Telegram caps bots at roughly 30 messages per second overall; outbound
// calls are paced below that so broadcasts cannot trip the platform limit.
const (
	sendRatePerSecond = 25
	sendBurst         = 5
)

// Client is a minimal Telegram Bot API client covering what the bot sends:
// messages with optional inline keyboards and callback query answers.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logger.Logger
}

// Option customizes the client
type Option func(*Client)

// WithBaseURL overrides the API endpoint (used in tests)
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// NewClient creates a new Bot API client
func NewClient(token string, log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		token:   token,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(sendRatePerSecond), sendBurst),
		logger:  log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiResponse is the envelope every Bot API method returns
type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
	ErrorCode   int    `json:"error_code,omitempty"`
}

// SendMessage sends a text message to a chat, optionally with an inline keyboard
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, keyboard *InlineKeyboardMarkup) error {
	payload := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}
	if keyboard != nil {
		payload["reply_markup"] = keyboard
	}
	return c.call(ctx, "sendMessage", payload)
}

// AnswerCallbackQuery acknowledges a button press, optionally with a toast text
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error {
	payload := map[string]interface{}{
		"callback_query_id": callbackQueryID,
	}
	if text != "" {
		payload["text"] = text
	}
	return c.call(ctx, "answerCallbackQuery", payload)
}

// call performs one paced Bot API method invocation
func (c *Client) call(ctx context.Context, method string, payload map[string]interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send pacing interrupted: %w", err)
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", method, err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", method, err)
	}
	if !apiResp.OK {
		if c.logger != nil {
			c.logger.WithFields(map[string]interface{}{
				"method":      method,
				"error_code":  apiResp.ErrorCode,
				"description": apiResp.Description,
			}).Error("Telegram API call failed")
		}
		return fmt.Errorf("%s returned error %d: %s", method, apiResp.ErrorCode, apiResp.Description)
	}

	return nil
}
