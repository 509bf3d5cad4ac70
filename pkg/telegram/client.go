package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/giftdrop-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://api.telegram.org"
	requestBodyReadLimit  int64 = 1024
)

var errBotTokenRequired = errors.New("telegram bot token is required")

// Client wraps the Telegram Bot API methods the backend sends with.
type Client struct {
	httpClient *http.Client
	baseURL    string
	botToken   string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured Bot API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient builds the Telegram client given a bot token.
func NewClient(botToken string, opts ...Option) (*Client, error) {
	trimmedToken := strings.TrimSpace(botToken)
	if trimmedToken == "" {
		return nil, errBotTokenRequired
	}

	client := &Client{
		botToken:   trimmedToken,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client, nil
}

// InlineButton is a single inline keyboard button with a callback payload.
type InlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// SendMessageRequest describes the payload sent to the sendMessage method.
type SendMessageRequest struct {
	ChatID      int64  `json:"chat_id"`
	Text        string `json:"text"`
	ParseMode   string `json:"parse_mode,omitempty"`
	ReplyMarkup any    `json:"reply_markup,omitempty"`
}

type inlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineButton `json:"inline_keyboard"`
}

// SendMessage delivers a text message, optionally with inline buttons
// (one button per row).
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, buttons []InlineButton) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "telegram client not configured")
	}
	if strings.TrimSpace(text) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "message text is required")
	}

	req := SendMessageRequest{ChatID: chatID, Text: text}
	if len(buttons) > 0 {
		rows := make([][]InlineButton, 0, len(buttons))
		for _, b := range buttons {
			rows = append(rows, []InlineButton{b})
		}
		req.ReplyMarkup = inlineKeyboardMarkup{InlineKeyboard: rows}
	}

	var apiResp struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := c.post(ctx, "sendMessage", req, &apiResp); err != nil {
		return err
	}
	if !apiResp.OK {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("telegram sendMessage rejected: %s", apiResp.Description))
	}
	return nil
}

// AnswerCallback acknowledges a pressed inline button so the chat client
// stops showing a spinner.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "telegram client not configured")
	}
	if strings.TrimSpace(callbackID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "callback id is required")
	}

	payload := map[string]string{"callback_query_id": callbackID}
	if text != "" {
		payload["text"] = text
	}

	var apiResp struct {
		OK bool `json:"ok"`
	}
	if err := c.post(ctx, "answerCallbackQuery", payload, &apiResp); err != nil {
		return err
	}
	if !apiResp.OK {
		return pkgerrors.New(pkgerrors.CodeDependency, "telegram answerCallbackQuery rejected")
	}
	return nil
}

func (c *Client) post(ctx context.Context, method string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal telegram request")
	}

	url := fmt.Sprintf("%s/bot%s/%s", strings.TrimRight(c.baseURL, "/"), c.botToken, method)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build telegram request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute telegram request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "telegram request failed")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode telegram response")
	}
	return nil
}
