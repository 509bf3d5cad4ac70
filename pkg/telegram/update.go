package telegram

// Update is the webhook payload delivered by the Bot API. Only the fields
// the chat router consumes are mapped.
type Update struct {
	UpdateID int64          `json:"update_id"`
	Message  *Message       `json:"message"`
	Callback *CallbackQuery `json:"callback_query"`
}

// Message is an inbound chat message.
type Message struct {
	MessageID int64     `json:"message_id"`
	From      *ChatUser `json:"from"`
	Chat      Chat      `json:"chat"`
	Text      string    `json:"text"`
	Document  *Document `json:"document"`
	Photo     []Photo   `json:"photo"`
}

// CallbackQuery is a pressed inline button.
type CallbackQuery struct {
	ID   string    `json:"id"`
	From *ChatUser `json:"from"`
	Data string    `json:"data"`
}

// ChatUser identifies the sender of an update.
type ChatUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// Chat identifies the conversation an update belongs to.
type Chat struct {
	ID int64 `json:"id"`
}

// Document is an uploaded file attachment.
type Document struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
}

// Photo is one size variant of an uploaded photo.
type Photo struct {
	FileID string `json:"file_id"`
}
