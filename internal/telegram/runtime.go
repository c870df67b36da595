package telegram

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Ivanka58/OpenAI-GPT/bot"
)

// Handler consumes one inbound event. The router satisfies this. Handlers
// own their failure reporting; the runtime only isolates and bounds them.
type Handler interface {
	Handle(ctx context.Context, ev bot.Event)
}

type RuntimeOptions struct {
	PollTimeout    time.Duration
	EventTimeout   time.Duration
	MaxConcurrency int
	UptimeLimit    time.Duration
	Logger         *slog.Logger
}

// ErrUptimeLimit is returned when the runtime stops itself after
// uptime_limit so a supervisor can restart the process.
var ErrUptimeLimit = errors.New("uptime limit reached")

// Run polls getUpdates until ctx is canceled, converting each update into
// a bot.Event and dispatching it to h on a bounded goroutine pool.
func Run(ctx context.Context, api *API, h Handler, opts RuntimeOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pollTimeout := opts.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 30 * time.Second
	}
	eventTimeout := opts.EventTimeout
	if eventTimeout <= 0 {
		eventTimeout = 2 * time.Minute
	}
	maxConc := opts.MaxConcurrency
	if maxConc <= 0 {
		maxConc = 8
	}

	var me *User
	for {
		var err error
		me, err = api.GetMe(ctx)
		if err == nil {
			break
		}
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			logger.Info("bot_stop", "reason", "context_canceled")
			return nil
		}
		logger.Warn("get_me_error", "error", err.Error())
		select {
		case <-ctx.Done():
			logger.Info("bot_stop", "reason", "context_canceled")
			return nil
		case <-time.After(2 * time.Second):
		}
	}

	logger.Info("bot_start",
		"bot_username", me.Username,
		"bot_id", me.ID,
		"poll_timeout", pollTimeout.String(),
		"event_timeout", eventTimeout.String(),
		"max_concurrency", maxConc,
	)

	var deadline <-chan time.Time
	if opts.UptimeLimit > 0 {
		t := time.NewTimer(opts.UptimeLimit)
		defer t.Stop()
		deadline = t.C
	}

	sem := make(chan struct{}, maxConc)
	var wg sync.WaitGroup
	defer wg.Wait()

	var offset int64
	for {
		select {
		case <-ctx.Done():
			logger.Info("bot_stop", "reason", "context_canceled")
			return nil
		case <-deadline:
			logger.Info("bot_stop", "reason", "uptime_limit", "limit", opts.UptimeLimit.String())
			return ErrUptimeLimit
		default:
		}

		updates, nextOffset, err := api.GetUpdates(ctx, offset, pollTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				logger.Info("bot_stop", "reason", "context_canceled")
				return nil
			}
			if IsPollTimeoutError(err) {
				logger.Debug("get_updates_timeout", "error", err.Error())
			} else {
				logger.Warn("get_updates_error", "error", err.Error())
			}
			select {
			case <-ctx.Done():
				logger.Info("bot_stop", "reason", "context_canceled")
				return nil
			case <-time.After(1 * time.Second):
			}
			continue
		}
		offset = nextOffset

		for _, u := range updates {
			ev, ok := EventFromUpdate(u)
			if !ok {
				continue
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				logger.Info("bot_stop", "reason", "context_canceled")
				return nil
			}
			wg.Add(1)
			go func(ev bot.Event) {
				defer wg.Done()
				defer func() { <-sem }()
				evCtx, cancel := context.WithTimeout(ctx, eventTimeout)
				defer cancel()
				h.Handle(evCtx, ev)
			}(ev)
		}
	}
}

// EventFromUpdate classifies a raw update into the router's event model.
// Updates the bot does not act on (bot senders, empty payloads, unsupported
// media) are dropped.
func EventFromUpdate(u Update) (bot.Event, bool) {
	if cb := u.CallbackQuery; cb != nil {
		if cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
			return bot.Event{}, false
		}
		return bot.Event{
			Kind:         bot.EventCallback,
			ChatID:       cb.Message.Chat.ID,
			MessageID:    cb.Message.MessageID,
			TelegramID:   strconv.FormatInt(cb.From.ID, 10),
			Username:     strings.TrimSpace(cb.From.Username),
			CallbackID:   cb.ID,
			CallbackData: strings.TrimSpace(cb.Data),
		}, true
	}

	msg := u.Message
	if msg == nil || msg.Chat == nil || msg.From == nil || msg.From.IsBot {
		return bot.Event{}, false
	}
	ev := bot.Event{
		ChatID:     msg.Chat.ID,
		MessageID:  msg.MessageID,
		TelegramID: strconv.FormatInt(msg.From.ID, 10),
		Username:   strings.TrimSpace(msg.From.Username),
	}

	switch {
	case msg.Voice != nil:
		ev.Kind = bot.EventVoice
		return ev, true
	case len(msg.Photo) > 0:
		ev.Kind = bot.EventPhoto
		ev.PhotoFileID = largestPhotoFileID(msg.Photo)
		ev.Caption = strings.TrimSpace(msg.Caption)
		return ev, true
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return bot.Event{}, false
	}
	if strings.HasPrefix(text, "/") {
		ev.Kind = bot.EventCommand
		ev.Command = normalizeCommand(text)
		ev.Text = text
		return ev, true
	}
	ev.Kind = bot.EventText
	ev.Text = text
	return ev, true
}

// largestPhotoFileID picks the highest-resolution variant Telegram offers.
func largestPhotoFileID(sizes []PhotoSize) string {
	best := ""
	bestArea := -1
	for _, p := range sizes {
		area := p.Width * p.Height
		if area > bestArea {
			bestArea = area
			best = p.FileID
		}
	}
	return best
}

// normalizeCommand lowercases the command word and strips the @botname
// suffix Telegram appends in group chats.
func normalizeCommand(text string) string {
	word := text
	if i := strings.IndexAny(word, " \t\n"); i >= 0 {
		word = word[:i]
	}
	if i := strings.Index(word, "@"); i >= 0 {
		word = word[:i]
	}
	return strings.ToLower(strings.TrimSpace(word))
}
