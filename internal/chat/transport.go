package chat

import (
	"context"

	"github.com/angelmondragon/giftdrop-backend/pkg/telegram"
)

// Transport pushes outbound messages to the chat platform. The concrete
// implementation is the Bot API client; tests swap in a recorder.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string, buttons []telegram.InlineButton) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}
