package bot

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Ivanka58/OpenAI-GPT/llm"
	"github.com/Ivanka58/OpenAI-GPT/store"
)

// messageLimit is the transport's single-message ceiling. Longer answers are
// chunked into fresh messages and the placeholder is deleted instead of
// edited.
const messageLimit = 4000

const defaultHistoryLimit = 50

const systemPrompt = "Ты умный AI помощник. Ты умеешь писать качественный код. " +
	"Ты отвечаешь на русском языке. Ты помнишь контекст диалога. " +
	"Ты интегрирован в Telegram бота."

// Pipeline runs one conversation turn: placeholder, bounded history, model
// call, persistence of both sides, and length-aware delivery.
type Pipeline struct {
	Store        store.Store
	Transport    Transport
	LLM          llm.Client
	Model        string
	HistoryLimit int
	Logger       *slog.Logger
}

func (p *Pipeline) historyLimit() int {
	if p.HistoryLimit > 0 {
		return p.HistoryLimit
	}
	return defaultHistoryLimit
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// HandleTurn processes one accepted text/photo/voice event for a VIP user.
// The placeholder is sent before anything can fail so the user always sees a
// reaction; every later failure is reported by editing it in place.
func (p *Pipeline) HandleTurn(ctx context.Context, user *store.User, ev Event) {
	placeholderID, err := p.Transport.SendMessage(ctx, ev.ChatID, textThinking, SendOptions{})
	if err != nil {
		p.logger().Warn("placeholder_send_error", "chat_id", ev.ChatID, "error", err.Error())
		return
	}

	if ev.Kind == EventVoice {
		// Short-circuit: nothing is persisted and the model is not called.
		if err := p.Transport.EditMessageText(ctx, ev.ChatID, placeholderID, textVoiceUnsupported, SendOptions{}); err != nil {
			p.logger().Warn("placeholder_edit_error", "chat_id", ev.ChatID, "error", err.Error())
		}
		return
	}

	answer, err := p.runTurn(ctx, user, ev)
	if err != nil {
		p.logger().Warn("turn_error", "chat_id", ev.ChatID, "user_id", user.ID, "error", err.Error())
		if err := p.Transport.EditMessageText(ctx, ev.ChatID, placeholderID, textPipelineError, SendOptions{}); err != nil {
			p.logger().Warn("placeholder_edit_error", "chat_id", ev.ChatID, "error", err.Error())
		}
		return
	}

	p.deliver(ctx, ev.ChatID, placeholderID, answer)
}

// runTurn covers history load through assistant-turn persistence. The user
// turn is persisted before the model call on purpose: a failed call still
// leaves the prompt in history.
func (p *Pipeline) runTurn(ctx context.Context, user *store.User, ev Event) (string, error) {
	recent, err := p.Store.RecentTurns(ctx, user.ID, p.historyLimit())
	if err != nil {
		return "", err
	}

	messages := make([]llm.Message, 0, len(recent)+2)
	messages = append(messages, llm.TextMessage(llm.RoleSystem, systemPrompt))
	// RecentTurns is most-recent-first; context is rebuilt oldest-first.
	for i := len(recent) - 1; i >= 0; i-- {
		messages = append(messages, llm.TextMessage(recent[i].Role, recent[i].Content))
	}

	var content string
	var kind string
	var imageURL string
	switch ev.Kind {
	case EventPhoto:
		kind = store.KindImage
		url, err := p.Transport.FileURL(ctx, ev.PhotoFileID)
		if err != nil {
			return "", err
		}
		imageURL = url
		content = strings.TrimSpace(ev.Caption)
		if content == "" {
			content = imageCaptionFallback
		}
	default:
		kind = store.KindText
		content = ev.Text
	}

	if err := p.Store.AppendTurn(ctx, &store.Turn{
		UserID:  user.ID,
		Role:    store.RoleUser,
		Content: content,
		Kind:    kind,
	}); err != nil {
		return "", err
	}

	if imageURL != "" {
		messages = append(messages, llm.ImageMessage(llm.RoleUser, content, imageURL))
	} else {
		messages = append(messages, llm.TextMessage(llm.RoleUser, content))
	}

	res, err := p.LLM.Chat(ctx, llm.Request{Model: p.Model, Messages: messages})
	if err != nil {
		return "", err
	}
	answer := res.Text
	if strings.TrimSpace(answer) == "" {
		answer = textEmptyCompletion
	}

	if err := p.Store.AppendTurn(ctx, &store.Turn{
		UserID:  user.ID,
		Role:    store.RoleAssistant,
		Content: answer,
		Kind:    store.KindText,
	}); err != nil {
		return "", err
	}

	p.logger().Info("turn_done",
		"chat_id", ev.ChatID,
		"user_id", user.ID,
		"kind", kind,
		"answer_len", len(answer),
		"total_tokens", res.Usage.TotalTokens,
	)
	return answer, nil
}

// deliver edits the placeholder in place for short answers, preferring
// Markdown and falling back to plain text when the transport rejects the
// formatting. Long answers go out as sequential chunks and the placeholder
// is deleted.
func (p *Pipeline) deliver(ctx context.Context, chatID, placeholderID int64, answer string) {
	runes := []rune(answer)
	if len(runes) <= messageLimit {
		err := p.Transport.EditMessageText(ctx, chatID, placeholderID, answer, SendOptions{ParseMode: "Markdown"})
		if err != nil {
			p.logger().Debug("markdown_edit_rejected", "chat_id", chatID, "error", err.Error())
			if err := p.Transport.EditMessageText(ctx, chatID, placeholderID, answer, SendOptions{}); err != nil {
				p.logger().Warn("placeholder_edit_error", "chat_id", chatID, "error", err.Error())
			}
		}
		return
	}

	for _, chunk := range splitChunks(runes, messageLimit) {
		if _, err := p.Transport.SendMessage(ctx, chatID, chunk, SendOptions{}); err != nil {
			p.logger().Warn("chunk_send_error", "chat_id", chatID, "error", err.Error())
		}
	}
	if err := p.Transport.DeleteMessage(ctx, chatID, placeholderID); err != nil {
		p.logger().Warn("placeholder_delete_error", "chat_id", chatID, "error", err.Error())
	}
}

func splitChunks(runes []rune, size int) []string {
	if size <= 0 || len(runes) == 0 {
		return nil
	}
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for len(runes) > 0 {
		n := size
		if n > len(runes) {
			n = len(runes)
		}
		chunks = append(chunks, string(runes[:n]))
		runes = runes[n:]
	}
	return chunks
}
