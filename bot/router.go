package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Ivanka58/OpenAI-GPT/llm"
	"github.com/Ivanka58/OpenAI-GPT/store"
)

// Router owns the per-event decision: identity resolution first, then
// commands, reserved keyboard buttons, callback actions, the admin session
// machine, and finally the conversation pipeline.
type Router struct {
	store     store.Store
	transport Transport
	resolver  *Resolver
	pipeline  *Pipeline
	sessions  *Sessions
	adminID   string
	secret    string
	logger    *slog.Logger
}

type RouterOptions struct {
	Store        store.Store
	Transport    Transport
	LLM          llm.Client
	Model        string
	AdminID      string
	Secret       string
	HistoryLimit int
	Logger       *slog.Logger
}

func NewRouter(opts RouterOptions) (*Router, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if opts.LLM == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		store:     opts.Store,
		transport: opts.Transport,
		resolver:  &Resolver{Store: opts.Store, AdminID: strings.TrimSpace(opts.AdminID)},
		pipeline: &Pipeline{
			Store:        opts.Store,
			Transport:    opts.Transport,
			LLM:          opts.LLM,
			Model:        opts.Model,
			HistoryLimit: opts.HistoryLimit,
			Logger:       logger,
		},
		sessions: NewSessions(),
		adminID:  strings.TrimSpace(opts.AdminID),
		secret:   opts.Secret,
		logger:   logger,
	}, nil
}

// Sessions exposes the session map for tests.
func (r *Router) Sessions() *Sessions {
	return r.sessions
}

func (r *Router) isAdmin(telegramID string) bool {
	return r.adminID != "" && telegramID == r.adminID
}

// Handle processes one inbound event to completion. Failures are logged and
// never escalate past the event.
func (r *Router) Handle(ctx context.Context, ev Event) {
	user, err := r.resolver.Resolve(ctx, ev.TelegramID, ev.Username)
	if err != nil {
		r.logger.Warn("identity_resolve_error", "telegram_id", ev.TelegramID, "error", err.Error())
		return
	}

	switch ev.Kind {
	case EventCommand:
		r.handleCommand(ctx, user, ev)
	case EventCallback:
		r.handleCallback(ctx, user, ev)
	case EventText:
		r.handleText(ctx, user, ev)
	case EventPhoto, EventVoice:
		if _, active := r.sessions.Get(ev.TelegramID); active {
			return
		}
		r.runPipeline(ctx, user, ev)
	default:
		r.logger.Warn("event_kind_unknown", "kind", int(ev.Kind), "chat_id", ev.ChatID)
	}
}

func (r *Router) handleCommand(ctx context.Context, user *store.User, ev Event) {
	switch strings.ToLower(ev.Command) {
	case "/start":
		if user.IsVIP || r.isAdmin(ev.TelegramID) {
			r.reply(ctx, ev.ChatID, textStartVIP, SendOptions{
				ReplyKeyboard: [][]string{{ButtonStartDialog}},
			})
			return
		}
		r.reply(ctx, ev.ChatID, textWelcome, SendOptions{})

	case "/help":
		r.reply(ctx, ev.ChatID, textHelp, SendOptions{})

	case "/stats":
		if !r.isAdmin(ev.TelegramID) {
			return
		}
		stats, err := r.store.GlobalStats(ctx)
		if err != nil {
			r.logger.Warn("stats_error", "error", err.Error())
			return
		}
		r.reply(ctx, ev.ChatID, fmt.Sprintf("Количество всех пользователей: %d\nVIP пользователей: %d", stats.TotalUsers, stats.VIPUsers), SendOptions{})

	case "/vip":
		if !r.isAdmin(ev.TelegramID) {
			return
		}
		r.sessions.Begin(ev.TelegramID, StepPassword)
		r.reply(ctx, ev.ChatID, textAskPassword, SendOptions{})

	case "/vipall":
		if !r.isAdmin(ev.TelegramID) {
			return
		}
		r.sessions.Begin(ev.TelegramID, StepVIPAllPassword)
		r.reply(ctx, ev.ChatID, textAskVIPAllPassword, SendOptions{})

	case "/add":
		if !r.isAdmin(ev.TelegramID) {
			return
		}
		r.sessions.Begin(ev.TelegramID, StepAddPassword)
		r.reply(ctx, ev.ChatID, textAskBroadcastPassword, SendOptions{})

	default:
		// Unknown commands are ignored.
	}
}

func (r *Router) handleCallback(ctx context.Context, user *store.User, ev Event) {
	defer func() {
		if err := r.transport.AnswerCallback(ctx, ev.CallbackID); err != nil {
			r.logger.Debug("callback_answer_error", "error", err.Error())
		}
	}()

	switch ev.CallbackData {
	case CallbackClearHistoryYes:
		if err := r.store.ClearTurns(ctx, user.ID); err != nil {
			r.logger.Warn("clear_turns_error", "user_id", user.ID, "error", err.Error())
			return
		}
		if err := r.transport.EditMessageText(ctx, ev.ChatID, ev.MessageID, textHistoryCleared, SendOptions{}); err != nil {
			r.logger.Warn("callback_edit_error", "chat_id", ev.ChatID, "error", err.Error())
		}

	case CallbackClearHistoryNo:
		if err := r.transport.EditMessageText(ctx, ev.ChatID, ev.MessageID, textHistoryKept, SendOptions{}); err != nil {
			r.logger.Warn("callback_edit_error", "chat_id", ev.ChatID, "error", err.Error())
		}

	case CallbackRemoveVIP:
		if !r.isAdmin(ev.TelegramID) {
			return
		}
		r.sessions.Begin(ev.TelegramID, StepRemoveVIPUsername)
		r.reply(ctx, ev.ChatID, textAskRemoveUsername, SendOptions{})

	default:
		r.logger.Debug("callback_unknown", "data", ev.CallbackData)
	}
}

func (r *Router) handleText(ctx context.Context, user *store.User, ev Event) {
	text := ev.Text

	// Reserved keyboard buttons take priority over everything, including an
	// active admin session.
	switch text {
	case ButtonStartDialog:
		if !user.IsVIP {
			return
		}
		r.reply(ctx, ev.ChatID, textStartDialog, SendOptions{
			ReplyKeyboard: [][]string{{ButtonClearDialog}, {"/help"}},
		})
		return
	case ButtonClearDialog:
		r.reply(ctx, ev.ChatID, textClearConfirm, SendOptions{
			InlineKeyboard: [][]InlineButton{{
				{Text: textClearYes, Data: CallbackClearHistoryYes},
				{Text: textClearNo, Data: CallbackClearHistoryNo},
			}},
		})
		return
	}

	if sess, active := r.sessions.Get(ev.TelegramID); active && r.isAdmin(ev.TelegramID) {
		flows := &AdminFlows{
			Secret: r.secret,
			Store:  r.store,
			Reply: func(ctx context.Context, text string, opts SendOptions) error {
				_, err := r.transport.SendMessage(ctx, ev.ChatID, text, opts)
				return err
			},
			Notify: r.notifyByTelegramID,
			Logger: r.logger,
		}
		next, stillActive, err := flows.Advance(ctx, sess, text)
		if err != nil {
			r.logger.Warn("admin_flow_error", "step", sess.Step.String(), "error", err.Error())
		}
		if stillActive && err == nil {
			r.sessions.Set(ev.TelegramID, next)
		} else {
			r.sessions.Clear(ev.TelegramID)
		}
		return
	}

	r.runPipeline(ctx, user, ev)
}

func (r *Router) runPipeline(ctx context.Context, user *store.User, ev Event) {
	if !user.IsVIP {
		r.reply(ctx, ev.ChatID, textNoAccess, SendOptions{})
		return
	}
	r.pipeline.HandleTurn(ctx, user, ev)
}

// notifyByTelegramID sends a direct message to a user. In private chats the
// Telegram chat id equals the user id.
func (r *Router) notifyByTelegramID(ctx context.Context, telegramID, text string) error {
	chatID, err := strconv.ParseInt(strings.TrimSpace(telegramID), 10, 64)
	if err != nil {
		return fmt.Errorf("telegram id is invalid: %w", err)
	}
	_, err = r.transport.SendMessage(ctx, chatID, text, SendOptions{})
	return err
}

func (r *Router) reply(ctx context.Context, chatID int64, text string, opts SendOptions) {
	if _, err := r.transport.SendMessage(ctx, chatID, text, opts); err != nil {
		r.logger.Warn("reply_send_error", "chat_id", chatID, "error", err.Error())
	}
}
