package bot

import "context"

type InlineButton struct {
	Text string
	Data string
}

type SendOptions struct {
	ParseMode      string
	ReplyKeyboard  [][]string
	InlineKeyboard [][]InlineButton
}

// Transport is the narrow chat-platform contract consumed by the core.
// SendMessage returns the platform message id so the caller can edit or
// delete the message later.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts SendOptions) (int64, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, opts SendOptions) error
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
	AnswerCallback(ctx context.Context, callbackID string) error
	FileURL(ctx context.Context, fileID string) (string, error)
}
