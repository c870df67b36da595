package bot

import (
	"context"
	"errors"
	"strings"

	"github.com/Ivanka58/OpenAI-GPT/store"
)

// Resolver maps an inbound actor identity to a persisted user record.
// Unknown identities are provisioned on first contact. The configured admin
// identity is always VIP; the upgrade is monotonic and never reversed here.
type Resolver struct {
	Store   store.Store
	AdminID string
}

func (r *Resolver) Resolve(ctx context.Context, telegramID, username string) (*store.User, error) {
	telegramID = strings.TrimSpace(telegramID)
	if telegramID == "" {
		return nil, errors.New("telegram id is required")
	}
	isAdmin := r.AdminID != "" && telegramID == r.AdminID

	user, err := r.Store.GetUserByTelegramID(ctx, telegramID)
	if errors.Is(err, store.ErrNotFound) {
		user = &store.User{
			TelegramID: telegramID,
			Username:   strings.TrimSpace(username),
			IsVIP:      isAdmin,
		}
		if err := r.Store.CreateUser(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}
	if err != nil {
		return nil, err
	}

	if isAdmin && !user.IsVIP {
		if err := r.Store.SetVIPByTelegramID(ctx, telegramID, true); err != nil {
			return nil, err
		}
		user.IsVIP = true
	}
	return user, nil
}
