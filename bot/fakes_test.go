package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Ivanka58/OpenAI-GPT/llm"
	"github.com/Ivanka58/OpenAI-GPT/store"
)

type fakeStore struct {
	mu     sync.Mutex
	nextID uint
	users  []*store.User
	turns  []store.Turn

	appendTurnErr error
	recentErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

func (s *fakeStore) addUser(telegramID, username string, vip bool) *store.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	u := &store.User{ID: s.nextID, TelegramID: telegramID, Username: username, IsVIP: vip}
	s.users = append(s.users, u)
	return u
}

func (s *fakeStore) GetUserByTelegramID(_ context.Context, telegramID string) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.TelegramID == telegramID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) GetUserByUsername(_ context.Context, username string) (*store.User, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) CreateUser(_ context.Context, user *store.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	user.ID = s.nextID
	cp := *user
	s.users = append(s.users, &cp)
	return nil
}

func (s *fakeStore) SetVIPByTelegramID(_ context.Context, telegramID string, isVIP bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.TelegramID == telegramID {
			u.IsVIP = isVIP
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *fakeStore) SetVIPByUsername(_ context.Context, username string, isVIP bool) error {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			u.IsVIP = isVIP
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *fakeStore) ListVIPs(_ context.Context) ([]store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.User
	for _, u := range s.users {
		if u.IsVIP {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *fakeStore) GlobalStats(_ context.Context) (store.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats store.Stats
	stats.TotalUsers = int64(len(s.users))
	for _, u := range s.users {
		if u.IsVIP {
			stats.VIPUsers++
		}
	}
	return stats, nil
}

func (s *fakeStore) AppendTurn(_ context.Context, turn *store.Turn) error {
	if s.appendTurnErr != nil {
		return s.appendTurnErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	turn.ID = s.nextID
	if turn.Kind == "" {
		turn.Kind = store.KindText
	}
	s.turns = append(s.turns, *turn)
	return nil
}

func (s *fakeStore) RecentTurns(_ context.Context, userID uint, limit int) ([]store.Turn, error) {
	if s.recentErr != nil {
		return nil, s.recentErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Turn
	for i := len(s.turns) - 1; i >= 0 && len(out) < limit; i-- {
		if s.turns[i].UserID == userID {
			out = append(out, s.turns[i])
		}
	}
	return out, nil
}

func (s *fakeStore) ClearTurns(_ context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []store.Turn
	for _, t := range s.turns {
		if t.UserID != userID {
			kept = append(kept, t)
		}
	}
	s.turns = kept
	return nil
}

func (s *fakeStore) turnsFor(userID uint) []store.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Turn
	for _, t := range s.turns {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

type sentMessage struct {
	ChatID int64
	Text   string
	Opts   SendOptions
}

type editedMessage struct {
	ChatID    int64
	MessageID int64
	Text      string
	Opts      SendOptions
}

type fakeTransport struct {
	mu     sync.Mutex
	nextID int64

	sent     []sentMessage
	edits    []editedMessage
	deletes  []int64
	answered []string

	sendErrFor     func(chatID int64, text string) error
	editErrFor     func(parseMode string) error
	fileURLByID    map[string]string
	fileURLErr     error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{fileURLByID: map[string]string{}}
}

func (t *fakeTransport) SendMessage(_ context.Context, chatID int64, text string, opts SendOptions) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sendErrFor != nil {
		if err := t.sendErrFor(chatID, text); err != nil {
			return 0, err
		}
	}
	t.nextID++
	t.sent = append(t.sent, sentMessage{ChatID: chatID, Text: text, Opts: opts})
	return t.nextID, nil
}

func (t *fakeTransport) EditMessageText(_ context.Context, chatID, messageID int64, text string, opts SendOptions) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.editErrFor != nil {
		if err := t.editErrFor(opts.ParseMode); err != nil {
			return err
		}
	}
	t.edits = append(t.edits, editedMessage{ChatID: chatID, MessageID: messageID, Text: text, Opts: opts})
	return nil
}

func (t *fakeTransport) DeleteMessage(_ context.Context, _, messageID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deletes = append(t.deletes, messageID)
	return nil
}

func (t *fakeTransport) AnswerCallback(_ context.Context, callbackID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.answered = append(t.answered, callbackID)
	return nil
}

func (t *fakeTransport) FileURL(_ context.Context, fileID string) (string, error) {
	if t.fileURLErr != nil {
		return "", t.fileURLErr
	}
	if url, ok := t.fileURLByID[fileID]; ok {
		return url, nil
	}
	return "", fmt.Errorf("unknown file id: %s", fileID)
}

func (t *fakeTransport) sentTexts() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.sent))
	for _, m := range t.sent {
		out = append(out, m.Text)
	}
	return out
}

type fakeLLM struct {
	mu       sync.Mutex
	requests []llm.Request
	reply    string
	err      error
}

func (f *fakeLLM) Chat(_ context.Context, req llm.Request) (llm.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return llm.Result{}, f.err
	}
	return llm.Result{Text: f.reply}, nil
}
