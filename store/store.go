package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrNotFound = errors.New("store: not found")

// Store is the persistence contract consumed by the bot core.
type Store interface {
	GetUserByTelegramID(ctx context.Context, telegramID string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	CreateUser(ctx context.Context, user *User) error
	SetVIPByTelegramID(ctx context.Context, telegramID string, isVIP bool) error
	SetVIPByUsername(ctx context.Context, username string, isVIP bool) error
	ListVIPs(ctx context.Context) ([]User, error)
	GlobalStats(ctx context.Context) (Stats, error)

	AppendTurn(ctx context.Context, turn *Turn) error
	RecentTurns(ctx context.Context, userID uint, limit int) ([]Turn, error)
	ClearTurns(ctx context.Context, userID uint) error
}

type SQLStore struct {
	db *gorm.DB
}

// Open connects per config and runs AutoMigrate when enabled.
func Open(cfg Config) (*SQLStore, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "sqlite":
		dsn, err := ResolveSQLiteDSN(cfg.DSN)
		if err != nil {
			return nil, err
		}
		dialector = sqlite.Open(sqliteDSNWithPragmas(dsn, cfg.SQLite))
	case "postgres":
		if strings.TrimSpace(cfg.DSN) == "" {
			return nil, fmt.Errorf("db.dsn is required for postgres")
		}
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown db.driver: %s", cfg.Driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	}
	if cfg.Pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	}
	if cfg.Pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.Pool.ConnMaxLifetime)
	}

	if cfg.AutoMigrate {
		if err := AutoMigrate(gdb); err != nil {
			return nil, err
		}
	}
	return &SQLStore{db: gdb}, nil
}

// NewWithDB wraps an already-open gorm handle. Used by tests.
func NewWithDB(gdb *gorm.DB) *SQLStore {
	return &SQLStore{db: gdb}
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func AutoMigrate(gdb *gorm.DB) error {
	if gdb == nil {
		return fmt.Errorf("nil gorm db")
	}
	return gdb.AutoMigrate(
		&User{},
		&Turn{},
	)
}

func (s *SQLStore) GetUserByTelegramID(ctx context.Context, telegramID string) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByUsername returns the first match ordered by id. Telegram usernames
// are not guaranteed unique over time; an arbitrary-but-stable match is
// deliberate here.
func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return nil, ErrNotFound
	}
	var u User
	err := s.db.WithContext(ctx).Where("username = ?", username).Order("id").First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SQLStore) CreateUser(ctx context.Context, user *User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *SQLStore) SetVIPByTelegramID(ctx context.Context, telegramID string, isVIP bool) error {
	res := s.db.WithContext(ctx).Model(&User{}).
		Where("telegram_id = ?", telegramID).
		Update("is_vip", isVIP)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) SetVIPByUsername(ctx context.Context, username string, isVIP bool) error {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	res := s.db.WithContext(ctx).Model(&User{}).
		Where("username = ?", username).
		Update("is_vip", isVIP)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) ListVIPs(ctx context.Context) ([]User, error) {
	var users []User
	if err := s.db.WithContext(ctx).Where("is_vip = ?", true).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *SQLStore) GlobalStats(ctx context.Context) (Stats, error) {
	var out Stats
	if err := s.db.WithContext(ctx).Model(&User{}).Count(&out.TotalUsers).Error; err != nil {
		return Stats{}, err
	}
	if err := s.db.WithContext(ctx).Model(&User{}).Where("is_vip = ?", true).Count(&out.VIPUsers).Error; err != nil {
		return Stats{}, err
	}
	return out, nil
}

func (s *SQLStore) AppendTurn(ctx context.Context, turn *Turn) error {
	if turn.Kind == "" {
		turn.Kind = KindText
	}
	return s.db.WithContext(ctx).Create(turn).Error
}

// RecentTurns returns up to limit turns, most recent first. Callers reverse
// the slice to rebuild chronological context.
func (s *SQLStore) RecentTurns(ctx context.Context, userID uint, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 50
	}
	var turns []Turn
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&turns).Error
	if err != nil {
		return nil, err
	}
	return turns, nil
}

func (s *SQLStore) ClearTurns(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&Turn{}).Error
}
