package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Ivanka58/OpenAI-GPT/store"
)

// Step enumerates the admin dialog states. Every sensitive mutation requires
// the secret at the step immediately before the mutating action, so a stale
// mid-flow session cannot mutate state without re-proving it.
type Step int

const (
	StepPassword Step = iota
	StepUsername
	StepVIPAllPassword
	StepRemoveVIPUsername
	StepRemoveVIPPassword
	StepAddPassword
	StepAddMessage
)

func (s Step) String() string {
	switch s {
	case StepPassword:
		return "password"
	case StepUsername:
		return "username"
	case StepVIPAllPassword:
		return "vipall_password"
	case StepRemoveVIPUsername:
		return "remove_vip_username"
	case StepRemoveVIPPassword:
		return "remove_vip_password"
	case StepAddPassword:
		return "add_password"
	case StepAddMessage:
		return "add_message"
	default:
		return "unknown"
	}
}

// Session is the ephemeral per-actor dialog state. It is never persisted;
// a restart drops all in-flight admin dialogs by design.
type Session struct {
	Step           Step
	TargetUsername string
}

// Sessions is the bounded per-actor session map, owned by the router.
// Look-up-then-mutate is a single logical step per key.
type Sessions struct {
	mu sync.Mutex
	m  map[string]Session
}

func NewSessions() *Sessions {
	return &Sessions{m: make(map[string]Session)}
}

// Begin installs a fresh session for the actor, discarding any prior one.
func (s *Sessions) Begin(telegramID string, step Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[telegramID] = Session{Step: step}
}

func (s *Sessions) Get(telegramID string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[telegramID]
	return sess, ok
}

func (s *Sessions) Set(telegramID string, sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[telegramID] = sess
}

func (s *Sessions) Clear(telegramID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, telegramID)
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// AdminStore is the slice of the store the admin flows touch.
type AdminStore interface {
	GetUserByUsername(ctx context.Context, username string) (*store.User, error)
	SetVIPByUsername(ctx context.Context, username string, isVIP bool) error
	ListVIPs(ctx context.Context) ([]store.User, error)
}

// ReplyFunc sends a message back to the admin driving the dialog.
type ReplyFunc func(ctx context.Context, text string, opts SendOptions) error

// NotifyFunc delivers a direct message to another user, best effort.
type NotifyFunc func(ctx context.Context, telegramID, text string) error

// AdminFlows advances admin sessions. The transition function is total over
// (Step, input); collaborators are injected so it tests without a transport
// or a real store.
type AdminFlows struct {
	Secret string
	Store  AdminStore
	Reply  ReplyFunc
	Notify NotifyFunc
	Logger *slog.Logger
}

// Advance consumes one plain-text input for an in-flight session and returns
// the next session plus whether the dialog is still active. Store failures
// propagate; the session is treated as terminated on error.
func (f *AdminFlows) Advance(ctx context.Context, sess Session, input string) (Session, bool, error) {
	switch sess.Step {
	case StepPassword:
		if input != f.Secret {
			return Session{}, false, f.Reply(ctx, textWrongPassword, SendOptions{})
		}
		if err := f.Reply(ctx, textPasswordOKUsername, SendOptions{}); err != nil {
			return Session{}, false, err
		}
		return Session{Step: StepUsername}, true, nil

	case StepUsername:
		username := cleanUsername(input)
		target, err := f.Store.GetUserByUsername(ctx, username)
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, false, f.Reply(ctx, textVIPNotFound(username), SendOptions{})
		}
		if err != nil {
			return Session{}, false, err
		}
		if err := f.Store.SetVIPByUsername(ctx, username, true); err != nil {
			return Session{}, false, err
		}
		if err := f.Reply(ctx, textVIPGranted(username), SendOptions{}); err != nil {
			return Session{}, false, err
		}
		// The grant is authoritative; notification is advisory.
		if err := f.Notify(ctx, target.TelegramID, textVIPGrantedNotice); err != nil {
			f.logger().Warn("vip_notify_error", "target", username, "error", err.Error())
			if err := f.Reply(ctx, textNotifyFailed, SendOptions{}); err != nil {
				return Session{}, false, err
			}
		}
		return Session{}, false, nil

	case StepVIPAllPassword:
		if input != f.Secret {
			return Session{}, false, f.Reply(ctx, textWrongPasswordShort, SendOptions{})
		}
		vips, err := f.Store.ListVIPs(ctx)
		if err != nil {
			return Session{}, false, err
		}
		if len(vips) == 0 {
			return Session{}, false, f.Reply(ctx, textVIPListEmpty, SendOptions{})
		}
		lines := make([]string, 0, len(vips))
		for _, v := range vips {
			handle := strings.TrimSpace(v.Username)
			if handle == "" {
				handle = v.TelegramID
			}
			lines = append(lines, "@"+handle)
		}
		opts := SendOptions{InlineKeyboard: [][]InlineButton{
			{{Text: textVIPListButton, Data: CallbackRemoveVIP}},
		}}
		return Session{}, false, f.Reply(ctx, textVIPList(strings.Join(lines, "\n")), opts)

	case StepRemoveVIPUsername:
		username := cleanUsername(input)
		target, err := f.Store.GetUserByUsername(ctx, username)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return Session{}, false, err
		}
		if err != nil || !target.IsVIP {
			return Session{}, false, f.Reply(ctx, textVIPNotFoundOrNotVIP(username), SendOptions{})
		}
		if err := f.Reply(ctx, textVIPRemoveConfirm(username), SendOptions{}); err != nil {
			return Session{}, false, err
		}
		return Session{Step: StepRemoveVIPPassword, TargetUsername: username}, true, nil

	case StepRemoveVIPPassword:
		if input != f.Secret {
			return Session{}, false, f.Reply(ctx, textWrongPasswordCancel, SendOptions{})
		}
		username := sess.TargetUsername
		target, err := f.Store.GetUserByUsername(ctx, username)
		if errors.Is(err, store.ErrNotFound) {
			// The target vanished between confirmation steps; nothing to do.
			return Session{}, false, nil
		}
		if err != nil {
			return Session{}, false, err
		}
		if err := f.Store.SetVIPByUsername(ctx, username, false); err != nil {
			return Session{}, false, err
		}
		if err := f.Reply(ctx, textVIPRevoked(username), SendOptions{}); err != nil {
			return Session{}, false, err
		}
		if err := f.Notify(ctx, target.TelegramID, textVIPRevokedNotice); err != nil {
			f.logger().Warn("vip_notify_error", "target", username, "error", err.Error())
		}
		return Session{}, false, nil

	case StepAddPassword:
		if input != f.Secret {
			return Session{}, false, f.Reply(ctx, textWrongPasswordShort, SendOptions{})
		}
		if err := f.Reply(ctx, textPasswordOKBroadcast, SendOptions{}); err != nil {
			return Session{}, false, err
		}
		return Session{Step: StepAddMessage}, true, nil

	case StepAddMessage:
		vips, err := f.Store.ListVIPs(ctx)
		if err != nil {
			return Session{}, false, err
		}
		runID := uuid.NewString()
		if err := f.Reply(ctx, fmt.Sprintf("Начинаю рассылку для %d пользователей...", len(vips)), SendOptions{}); err != nil {
			return Session{}, false, err
		}
		// Strictly sequential so the tally stays exact.
		success, failed := 0, 0
		for _, v := range vips {
			if err := f.Notify(ctx, v.TelegramID, input); err != nil {
				f.logger().Warn("broadcast_delivery_error", "run_id", runID, "telegram_id", v.TelegramID, "error", err.Error())
				failed++
				continue
			}
			success++
		}
		f.logger().Info("broadcast_done", "run_id", runID, "recipients", len(vips), "success", success, "failed", failed)
		tally := fmt.Sprintf("Рассылка завершена!\nУспешно: %d\nОшибка: %d", success, failed)
		return Session{}, false, f.Reply(ctx, tally, SendOptions{})

	default:
		return Session{}, false, fmt.Errorf("unknown admin step: %d", sess.Step)
	}
}

func (f *AdminFlows) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}

func cleanUsername(input string) string {
	return strings.TrimSpace(strings.ReplaceAll(input, "@", ""))
}
