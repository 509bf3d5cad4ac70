package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/giftdrop-backend/pkg/errors"
)

func TestNewClientRequiresBotToken(t *testing.T) {
	_, err := NewClient("  ")
	assert.ErrorIs(t, err, errBotTokenRequired)
}

func TestSendMessageBuildsInlineKeyboard(t *testing.T) {
	var gotPath string
	var gotBody struct {
		ChatID      int64  `json:"chat_id"`
		Text        string `json:"text"`
		ReplyMarkup *struct {
			InlineKeyboard [][]InlineButton `json:"inline_keyboard"`
		} `json:"reply_markup"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer server.Close()

	client, err := NewClient("bot-token", WithBaseURL(server.URL))
	require.NoError(t, err)

	buttons := []InlineButton{
		{Text: "Confirm", CallbackData: "confirm:1"},
		{Text: "Decline", CallbackData: "decline:1"},
	}
	require.NoError(t, client.SendMessage(context.Background(), 42, "review order", buttons))

	assert.Equal(t, "/botbot-token/sendMessage", gotPath)
	assert.Equal(t, int64(42), gotBody.ChatID)
	assert.Equal(t, "review order", gotBody.Text)
	require.NotNil(t, gotBody.ReplyMarkup)
	require.Len(t, gotBody.ReplyMarkup.InlineKeyboard, 2)
	assert.Equal(t, "confirm:1", gotBody.ReplyMarkup.InlineKeyboard[0][0].CallbackData)
}

func TestSendMessageOmitsKeyboardWithoutButtons(t *testing.T) {
	var raw map[string]json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer server.Close()

	client, err := NewClient("bot-token", WithBaseURL(server.URL))
	require.NoError(t, err)

	require.NoError(t, client.SendMessage(context.Background(), 42, "hi", nil))
	_, hasMarkup := raw["reply_markup"]
	assert.False(t, hasMarkup)
}

func TestSendMessageRejectedByAPI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": "chat not found"})
	}))
	defer server.Close()

	client, err := NewClient("bot-token", WithBaseURL(server.URL))
	require.NoError(t, err)

	err = client.SendMessage(context.Background(), 42, "hi", nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
	assert.Contains(t, err.Error(), "chat not found")
}

func TestSendMessageRequiresText(t *testing.T) {
	client, err := NewClient("bot-token")
	require.NoError(t, err)

	err = client.SendMessage(context.Background(), 42, "   ", nil)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestAnswerCallback(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer server.Close()

	client, err := NewClient("bot-token", WithBaseURL(server.URL))
	require.NoError(t, err)

	require.NoError(t, client.AnswerCallback(context.Background(), "cb-9", "Order confirmed."))
	assert.Equal(t, "/botbot-token/answerCallbackQuery", gotPath)
	assert.Equal(t, "cb-9", gotBody["callback_query_id"])
	assert.Equal(t, "Order confirmed.", gotBody["text"])
}

func TestAnswerCallbackNon200IsDependencyError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewClient("bot-token", WithBaseURL(server.URL))
	require.NoError(t, err)

	err = client.AnswerCallback(context.Background(), "cb-9", "")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
	cause := errors.Unwrap(err)
	require.NotNil(t, cause)
	assert.Contains(t, cause.Error(), "429")
}
