package store

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	KindText  = "text"
	KindImage = "image"
	KindVoice = "voice"
)

// User is one Telegram identity. TelegramID is the stable platform id;
// Username is a display handle used as a lookup key even though Telegram does
// not guarantee it stays unique or stable.
type User struct {
	ID         uint   `gorm:"primaryKey"`
	TelegramID string `gorm:"uniqueIndex;not null"`
	Username   string `gorm:"index"`
	IsVIP      bool   `gorm:"column:is_vip;not null;default:false"`
	CreatedAt  time.Time
}

// Turn is one persisted conversation message, either side. For image turns
// Content holds the caption (or a placeholder); the binary is never stored.
type Turn struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index;not null"`
	Role      string `gorm:"not null"`
	Content   string `gorm:"not null"`
	Kind      string `gorm:"not null;default:text"`
	Meta      string
	CreatedAt time.Time
}

type Stats struct {
	TotalUsers int64
	VIPUsers   int64
}
